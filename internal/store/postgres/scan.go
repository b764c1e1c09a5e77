package postgres

import (
	"database/sql"
	"encoding/json"

	"github.com/alfredjeanlab/unicorns/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanCompany scans a single row into a model.Company.
// The row must contain columns in the order defined by companyColumns.
func scanCompany(row scannable) (*model.Company, error) {
	var c model.Company
	var (
		industry    string
		countryCode sql.NullString
		foundedYear sql.NullInt64
		totalRaised sql.NullFloat64
		roi         sql.NullFloat64
		website     sql.NullString
		description sql.NullString
	)

	err := row.Scan(
		&c.ID,
		&c.Name,
		&industry,
		&c.Country,
		&countryCode,
		&c.City,
		&foundedYear,
		&c.DateJoined,
		&c.Valuation,
		&totalRaised,
		&roi,
		&website,
		&description,
	)
	if err != nil {
		return nil, err
	}

	c.Industry = model.CanonicalIndustry(industry)
	c.CountryCode = countryCode.String
	c.Website = website.String
	c.Description = description.String

	if foundedYear.Valid {
		y := int(foundedYear.Int64)
		c.FoundedYear = &y
	}
	if totalRaised.Valid {
		v := totalRaised.Float64
		c.TotalRaised = &v
	}
	if roi.Valid {
		v := roi.Float64
		c.ROI = &v
	}

	return &c, nil
}

// scanRegion scans an (id, name, geometry) row.
func scanRegion(row scannable) (*model.Region, error) {
	var r model.Region
	var geometry []byte
	if err := row.Scan(&r.ID, &r.Name, &geometry); err != nil {
		return nil, err
	}
	if len(geometry) > 0 {
		r.Geometry = json.RawMessage(geometry)
	}
	return &r, nil
}

// nullString converts an empty string to a SQL NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullIntPtr converts a nil *int to a SQL NULL.
func nullIntPtr(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

// nullFloatPtr converts a nil *float64 to a SQL NULL.
func nullFloatPtr(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// jsonbBytes returns nil for empty or JSON-null payloads so they are stored as NULL.
func jsonbBytes(raw json.RawMessage) any {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return []byte(raw)
}
