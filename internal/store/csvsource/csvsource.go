// Package csvsource loads companies and investment edges from CSV files and
// region polygons from a GeoJSON feature collection.
package csvsource

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/alfredjeanlab/unicorns/internal/model"
	"github.com/alfredjeanlab/unicorns/internal/store"
)

// Default file names inside a data directory.
const (
	DefaultCompaniesFile   = "Unicorn_Companies_clean.csv"
	DefaultInvestmentsFile = "Unicorn_Companies_investments.csv"
	DefaultRegionsFile     = "geo-world.json"
)

// dateLayouts are tried in order when parsing date_joined.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"1/2/2006",
	"01/02/2006",
	"Jan 2, 2006",
}

// Source reads records from files on disk.
type Source struct {
	CompaniesPath   string
	InvestmentsPath string
	RegionsPath     string // optional; empty means no regions
	Logger          *slog.Logger
}

var _ store.Source = (*Source)(nil)

// New returns a Source reading the default file names from dir. A missing
// regions file is tolerated.
func New(dir string) *Source {
	s := &Source{
		CompaniesPath:   filepath.Join(dir, DefaultCompaniesFile),
		InvestmentsPath: filepath.Join(dir, DefaultInvestmentsFile),
		RegionsPath:     filepath.Join(dir, DefaultRegionsFile),
		Logger:          slog.Default(),
	}
	if _, err := os.Stat(s.RegionsPath); errors.Is(err, os.ErrNotExist) {
		s.RegionsPath = ""
	}
	return s
}

func (s *Source) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// LoadCompanies reads the companies file.
func (s *Source) LoadCompanies(ctx context.Context) ([]*model.Company, error) {
	f, err := os.Open(s.CompaniesPath)
	if err != nil {
		return nil, fmt.Errorf("open companies: %w", err)
	}
	defer f.Close()
	return ReadCompanies(ctx, f, s.logger())
}

// LoadInvestments reads the investments file.
func (s *Source) LoadInvestments(ctx context.Context) ([]model.Investment, error) {
	f, err := os.Open(s.InvestmentsPath)
	if err != nil {
		return nil, fmt.Errorf("open investments: %w", err)
	}
	defer f.Close()
	return ReadInvestments(ctx, f)
}

// LoadRegions reads the regions file, if configured.
func (s *Source) LoadRegions(ctx context.Context) ([]*model.Region, error) {
	if s.RegionsPath == "" {
		return nil, nil
	}
	f, err := os.Open(s.RegionsPath)
	if err != nil {
		return nil, fmt.Errorf("open regions: %w", err)
	}
	defer f.Close()
	return ReadRegions(f)
}

// columns maps header names to their index in a record.
type columns map[string]int

func newColumns(header []string) columns {
	c := make(columns, len(header))
	for i, h := range header {
		c[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	return c
}

func (c columns) get(rec []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func (c columns) require(names ...string) error {
	var missing []string
	for _, n := range names {
		if _, ok := c[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ReadCompanies decodes a companies CSV. Empty or malformed numeric and date
// fields are coerced to nil (or zero) instead of rejecting the row.
func ReadCompanies(ctx context.Context, r io.Reader, logger *slog.Logger) ([]*model.Company, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := newColumns(header)
	if err := cols.require("id", "company_name", "industry", "date_joined"); err != nil {
		return nil, err
	}

	var out []*model.Company
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		var ve model.ValidationError
		c := &model.Company{
			ID:          cols.get(rec, "id"),
			Name:        cols.get(rec, "company_name"),
			Industry:    model.CanonicalIndustry(cols.get(rec, "industry")),
			Country:     cols.get(rec, "country"),
			CountryCode: cols.get(rec, "country_code"),
			City:        cols.get(rec, "city"),
			Website:     cols.get(rec, "website"),
			Description: cols.get(rec, "description"),
		}
		if v, ok := parseFloat(cols.get(rec, "valuation"), "valuation", &ve); ok {
			c.Valuation = v
		}
		if v, ok := parseFloat(cols.get(rec, "total_raised"), "total_raised", &ve); ok {
			c.TotalRaised = &v
		}
		if v, ok := parseFloat(cols.get(rec, "roi"), "roi", &ve); ok {
			c.ROI = &v
		}
		if raw := cols.get(rec, "founded_year"); raw != "" {
			if y, err := strconv.Atoi(raw); err == nil {
				c.FoundedYear = &y
			} else {
				ve.Add("founded_year", "not a year: %q", raw)
			}
		}
		if t, ok := parseDate(cols.get(rec, "date_joined")); ok {
			c.DateJoined = t
		} else {
			ve.Add("date_joined", "unparseable: %q", cols.get(rec, "date_joined"))
		}
		if ve.HasErrors() {
			logger.Debug("coerced company fields", "line", line, "id", c.ID, "err", &ve)
		}
		out = append(out, c)
	}
	return out, nil
}

// ReadInvestments decodes an investments CSV (investor_id, company_id).
func ReadInvestments(ctx context.Context, r io.Reader) ([]model.Investment, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := newColumns(header)
	if err := cols.require("investor_id", "company_id"); err != nil {
		return nil, err
	}

	var out []model.Investment
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		inv := model.Investment{
			InvestorID: cols.get(rec, "investor_id"),
			CompanyID:  cols.get(rec, "company_id"),
		}
		if inv.InvestorID == "" || inv.CompanyID == "" {
			continue
		}
		out = append(out, inv)
	}
	return out, nil
}

type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	ID         json.RawMessage `json:"id"`
	Properties struct {
		Name string `json:"name"`
	} `json:"properties"`
	Geometry json.RawMessage `json:"geometry"`
}

// ReadRegions decodes a GeoJSON FeatureCollection. Feature ids may be
// strings or numbers.
func ReadRegions(r io.Reader) ([]*model.Region, error) {
	var fc featureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}
	out := make([]*model.Region, 0, len(fc.Features))
	for i, f := range fc.Features {
		id := featureID(f.ID)
		if id == "" {
			id = strconv.Itoa(i)
		}
		out = append(out, &model.Region{ID: id, Name: f.Properties.Name, Geometry: f.Geometry})
	}
	return out, nil
}

func featureID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func parseFloat(raw, field string, ve *model.ValidationError) (float64, bool) {
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		ve.Add(field, "not a number: %q", raw)
		return 0, false
	}
	return v, true
}

func parseDate(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
