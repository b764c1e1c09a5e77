package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/aclements/go-moremath/stats"
	"github.com/alfredjeanlab/unicorns/internal/derive"
	"github.com/alfredjeanlab/unicorns/internal/model"
	"github.com/alfredjeanlab/unicorns/internal/store"
	"github.com/alfredjeanlab/unicorns/internal/ui"
	"github.com/spf13/cobra"
)

var (
	summaryIndustries []string
	summaryYears      []int
	summarySelected   string
	summaryRows       int
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Load the dataset and print the derived view datasets",
	Long: `Load the dataset locally and print every derived view dataset for one
filter state. No server is needed; data is read from UNICORNS_DATA_DIR or
UNICORNS_DATABASE_URL.`,
	GroupID:           "data",
	PersistentPreRunE: localPreRun,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		ctx := context.Background()

		cfg, tuning, err := loadConfig()
		if err != nil {
			return err
		}
		e, err := loadEntities(ctx, cfg, logger)
		if err != nil {
			return err
		}
		f, err := buildFilter(e, summaryIndustries, summaryYears, summarySelected)
		if err != nil {
			return err
		}

		ds := derive.Compute(e, f, tuning.DeriveOptions())
		if jsonOutput {
			return printJSON(ds)
		}
		writeSummary(os.Stdout, ds, summaryRows)
		return nil
	},
}

func init() {
	summaryCmd.Flags().StringArrayVar(&summaryIndustries, "industry", nil, "restrict to this industry, repeatable (default all)")
	summaryCmd.Flags().IntSliceVar(&summaryYears, "years", nil, "join-year range as start,end")
	summaryCmd.Flags().StringVar(&summarySelected, "select", "", "company or investor id to mark as selected")
	summaryCmd.Flags().IntVar(&summaryRows, "rows", 10, "maximum rows per table (0 = all)")
}

// buildFilter turns command-line filter flags into a filter state over e.
func buildFilter(e *store.Entities, industries []string, years []int, selected string) (model.FilterState, error) {
	f := model.NewFilterState(e.YearExtent())

	if len(industries) > 0 {
		set := model.NewIndustrySet()
		for _, label := range industries {
			ind := model.Industry(label)
			if !ind.IsValid() {
				return model.FilterState{}, fmt.Errorf("unknown industry %q", label)
			}
			set[ind] = struct{}{}
		}
		f.Industries = set
	}

	switch len(years) {
	case 0:
	case 2:
		f.SetYears(model.YearRange{years[0], years[1]}, e.YearExtent())
	default:
		return model.FilterState{}, fmt.Errorf("--years takes start,end, got %d values", len(years))
	}

	if selected != "" {
		if !e.Known(selected) {
			return model.FilterState{}, fmt.Errorf("unknown company or investor %q", selected)
		}
		f.Selected = selected
	}
	return f.Snapshot(), nil
}

// writeSummary prints each dataset as a table, truncated to rows entries.
func writeSummary(w io.Writer, ds *derive.Datasets, rows int) {
	ui.Section(w, "Filter")
	fmt.Fprintf(w, "  Industries:  %s\n", formatIndustries(ds.Filter.Industries))
	fmt.Fprintf(w, "  Years:       %d-%d\n", ds.Filter.Years.Start(), ds.Filter.Years.End())
	if ds.Filter.Selected != "" {
		fmt.Fprintf(w, "  Selected:    %s\n", ds.Filter.Selected)
	}
	fmt.Fprintf(w, "  Companies:   %d\n", len(ds.Companies))
	if vs := valuationStats(ds.Companies); vs != "" {
		fmt.Fprintf(w, "  Valuation:   %s\n", vs)
	}
	fmt.Fprintln(w)

	ui.Section(w, "Scatterplot")
	var scatter [][]string
	for _, c := range ds.Scatter {
		roi := ""
		if c.ROI != nil {
			roi = strconv.FormatFloat(*c.ROI, 'f', 2, 64)
		}
		scatter = append(scatter, []string{c.ID, string(c.Industry), billions(c.Valuation), roi})
	}
	ui.Table(w, []string{"ID", "Industry", "Valuation", "ROI"}, truncate(scatter, rows))
	fmt.Fprintln(w)

	ui.Section(w, "Investor heatmap")
	headers := []string{"Investor"}
	for _, ind := range model.Industries() {
		headers = append(headers, shortIndustry(ind))
	}
	var heat [][]string
	for _, row := range ds.Heatmap {
		line := []string{row.Investor.ID}
		for _, cell := range row.Cells {
			line = append(line, strconv.Itoa(cell.Count))
		}
		heat = append(heat, line)
	}
	ui.Table(w, headers, truncate(heat, rows))
	fmt.Fprintln(w)

	ui.Section(w, "Network")
	fmt.Fprintf(w, "  %d companies, %d investors, %d links\n\n",
		len(ds.Network.Companies), len(ds.Network.Investors), len(ds.Network.Links))

	ui.Section(w, "Regions")
	regions := append([]*model.RegionAggregate(nil), ds.Regions...)
	sort.SliceStable(regions, func(i, j int) bool { return regions[i].Count > regions[j].Count })
	var regionRows [][]string
	for _, r := range regions {
		key := r.Key
		if key == model.UnknownRegion {
			key = "(unknown)"
		}
		regionRows = append(regionRows, []string{key, r.Country, strconv.Itoa(r.Count), billions(r.TotalValuation), string(r.LeadingIndustry)})
	}
	ui.Table(w, []string{"Key", "Country", "Count", "Valuation", "Leading"}, truncate(regionRows, rows))
	fmt.Fprintln(w)

	ui.Section(w, "Join years")
	var hist [][]string
	for _, yc := range ds.Histogram {
		hist = append(hist, []string{strconv.Itoa(yc.Year), strconv.Itoa(yc.Count)})
	}
	ui.Table(w, []string{"Year", "Companies"}, hist)

	if n := len(ds.Series); n > 0 {
		last := ds.Series[n-1]
		fmt.Fprintln(w)
		ui.Section(w, "Cumulative by "+last.Date.Format("2006-01-02"))
		var series [][]string
		for _, ind := range model.Industries() {
			if c := last.Count(ind); c > 0 {
				series = append(series, []string{string(ind), strconv.Itoa(c)})
			}
		}
		ui.Table(w, []string{"Industry", "Companies"}, series)
	}
}

// valuationStats summarises the valuation distribution in billions.
func valuationStats(companies []*model.Company) string {
	if len(companies) == 0 {
		return ""
	}
	xs := make([]float64, len(companies))
	for i, c := range companies {
		xs[i] = c.ValuationBillions()
	}
	sort.Float64s(xs)
	s := stats.Sample{Xs: xs, Sorted: true}
	lo, hi := s.Bounds()
	return fmt.Sprintf("min $%.2fB  median $%.2fB  mean $%.2fB  max $%.2fB",
		lo, s.Quantile(0.5), s.Mean(), hi)
}

// shortIndustry is the first word of a label, used for narrow columns.
func shortIndustry(ind model.Industry) string {
	word, _, _ := strings.Cut(string(ind), " ")
	return strings.TrimRight(word, ",")
}

func billions(v float64) string {
	return fmt.Sprintf("$%.2fB", v/1e9)
}

func truncate(rows [][]string, n int) [][]string {
	if n > 0 && len(rows) > n {
		return rows[:n]
	}
	return rows
}
