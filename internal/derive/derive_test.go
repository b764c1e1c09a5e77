package derive

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/alfredjeanlab/unicorns/internal/model"
	"github.com/alfredjeanlab/unicorns/internal/store"
)

func company(id string, ind model.Industry, year int) *model.Company {
	return &model.Company{
		ID:         id,
		Name:       "Company " + id,
		Industry:   ind,
		DateJoined: time.Date(year, 3, 1, 0, 0, 0, 0, time.UTC),
		Valuation:  1e9,
	}
}

func withROI(c *model.Company, roi float64) *model.Company {
	c.ROI = &roi
	return c
}

func ids(companies []*model.Company) []string {
	out := make([]string, len(companies))
	for i, c := range companies {
		out[i] = c.ID
	}
	return out
}

func investorIDs(investors []*model.Investor) []string {
	out := make([]string, len(investors))
	for i, inv := range investors {
		out[i] = inv.ID
	}
	return out
}

func TestFilterCompanies_Example(t *testing.T) {
	companies := []*model.Company{
		company("A", model.IndustryFintech, 2015),
		company("B", model.IndustryHealth, 2020),
	}
	f := model.FilterState{
		Industries: model.NewIndustrySet(model.IndustryFintech),
		Years:      model.YearRange{2013, 2023},
	}

	got := FilterCompanies(companies, f)
	if want := []string{"A"}; !reflect.DeepEqual(ids(got), want) {
		t.Errorf("filtered = %v, want %v", ids(got), want)
	}
}

func TestFilterCompanies_IdempotentAndOrdered(t *testing.T) {
	var companies []*model.Company
	labels := model.Industries()
	for i := 0; i < 60; i++ {
		companies = append(companies, company(fmt.Sprint(i), labels[i%len(labels)], 2010+i%14))
	}
	states := []model.FilterState{
		*model.NewFilterState(model.YearRange{2010, 2023}),
		{Industries: model.NewIndustrySet(model.IndustryHealth, model.IndustryTravel), Years: model.YearRange{2012, 2018}},
		{Industries: model.NewIndustrySet(), Years: model.YearRange{2010, 2023}},
		{Industries: model.AllIndustries(), Years: model.YearRange{2030, 2031}},
	}
	for i, f := range states {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			a := FilterCompanies(companies, f)
			b := FilterCompanies(companies, f)
			if !reflect.DeepEqual(ids(a), ids(b)) {
				t.Fatalf("not idempotent: %v vs %v", ids(a), ids(b))
			}
			last := -1
			for _, c := range a {
				var n int
				fmt.Sscan(c.ID, &n)
				if n <= last {
					t.Fatalf("store order not preserved: %v", ids(a))
				}
				last = n
				if !f.Matches(c) {
					t.Errorf("company %s does not match the filter", c.ID)
				}
			}
			if a == nil {
				t.Error("empty result should be non-nil")
			}
		})
	}
}

func TestTopInvestors(t *testing.T) {
	companies := []*model.Company{
		company("1", model.IndustryFintech, 2015),
		company("2", model.IndustryFintech, 2016),
		company("3", model.IndustryHealth, 2017),
	}
	investments := []model.Investment{
		{InvestorID: "early", CompanyID: "1"},
		{InvestorID: "big", CompanyID: "1"},
		{InvestorID: "big", CompanyID: "2"},
		{InvestorID: "big", CompanyID: "2"},
		{InvestorID: "tie", CompanyID: "3"},
		{InvestorID: "ghost", CompanyID: "404"},
	}

	got := TopInvestors(companies, investments, 2)
	if want := []string{"big", "early"}; !reflect.DeepEqual(investorIDs(got), want) {
		t.Errorf("top = %v, want %v", investorIDs(got), want)
	}
	if got[0].Count() != 2 {
		t.Errorf("big count = %d, want 2 (duplicate edge counted once)", got[0].Count())
	}

	all := TopInvestors(companies, investments, 100)
	if want := []string{"big", "early", "tie"}; !reflect.DeepEqual(investorIDs(all), want) {
		t.Errorf("all = %v, want %v", investorIDs(all), want)
	}

	if got := TopInvestors(nil, nil, 0); got == nil || len(got) != 0 {
		t.Errorf("empty input = %#v, want empty non-nil", got)
	}
}

func TestTopInvestors_CutIsCorrect(t *testing.T) {
	var companies []*model.Company
	var investments []model.Investment
	for i := 0; i < 40; i++ {
		companies = append(companies, company(fmt.Sprint(i), model.IndustryEdtech, 2015))
	}
	for inv := 0; inv < 25; inv++ {
		n := (inv * 7) % 13
		for c := 0; c < n; c++ {
			investments = append(investments, model.Investment{
				InvestorID: fmt.Sprintf("inv-%d", inv),
				CompanyID:  fmt.Sprint((c + inv) % 40),
			})
		}
	}

	for _, k := range []int{1, 5, 10, 30} {
		top := TopInvestors(companies, investments, k)
		if len(top) > k {
			t.Fatalf("k=%d: len = %d", k, len(top))
		}
		all := TopInvestors(companies, investments, 1000)
		in := make(map[string]bool)
		minKept := 1 << 30
		for _, i := range top {
			in[i.ID] = true
			if i.Count() < minKept {
				minKept = i.Count()
			}
		}
		for _, i := range all {
			if !in[i.ID] && i.Count() > minKept {
				t.Errorf("k=%d: excluded %s has %d > kept minimum %d", k, i.ID, i.Count(), minKept)
			}
		}
	}
}

func TestRegionRollup(t *testing.T) {
	a := company("a", model.IndustryFintech, 2015)
	a.CountryCode, a.Country, a.Valuation = "USA", "United States", 5e9
	b := company("b", model.IndustryHealth, 2016)
	b.CountryCode, b.Country, b.Valuation = "USA", "United States", 3e9
	c := company("c", model.IndustryHealth, 2016)
	c.CountryCode, c.Country, c.Valuation = "USA", "United States", 3e9
	d := company("d", model.IndustryTravel, 2017)
	d.Country, d.Valuation = "Narnia", 1e9
	e := company("e", model.IndustryTravel, 2017)

	got := RegionRollup([]*model.Company{a, b, c, d, e})
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	usa := got[0]
	if usa.Key != "USA" || usa.Count != 3 || usa.TotalValuation != 11e9 {
		t.Errorf("USA aggregate = %+v", usa)
	}
	if usa.LeadingIndustry != model.IndustryHealth {
		t.Errorf("leading industry = %q, want Health", usa.LeadingIndustry)
	}
	if got[1].Key != "Narnia" {
		t.Errorf("fallback key = %q, want country name", got[1].Key)
	}
	if unknown := got[2]; unknown.Key != model.UnknownRegion || unknown.Count != 1 || unknown.Companies[0] != e {
		t.Errorf("country-less aggregate = %+v", unknown)
	}
}

func TestRegionRollup_LeadingIndustryTie(t *testing.T) {
	a := company("a", model.IndustryHealth, 2015)
	b := company("b", model.IndustryFintech, 2015)
	a.CountryCode, b.CountryCode = "CAN", "CAN"

	got := RegionRollup([]*model.Company{a, b})
	if got[0].LeadingIndustry != model.IndustryFintech {
		t.Errorf("tie went to %q, want Fintech (earlier fixed label)", got[0].LeadingIndustry)
	}
}

func TestRegionRollup_TotalsMatchFilteredCount(t *testing.T) {
	codes := []string{"USA", "CHN", "IND", "GBR", "DEU"}
	var companies []*model.Company
	for i := 0; i < 47; i++ {
		c := company(fmt.Sprint(i), model.Industries()[i%15], 2010+i%10)
		// Every seventh company has no country at all.
		if i%7 != 0 {
			c.CountryCode = codes[i%len(codes)]
		}
		companies = append(companies, c)
	}
	f := model.FilterState{Industries: model.NewIndustrySet(model.Industries()[:8]...), Years: model.YearRange{2012, 2017}}
	filtered := FilterCompanies(companies, f)

	total, unknown := 0, 0
	for _, agg := range RegionRollup(filtered) {
		total += agg.Count
		if agg.Key == model.UnknownRegion {
			unknown = agg.Count
		}
	}
	if unknown == 0 {
		t.Fatal("expected some filtered companies without a country")
	}
	if total != len(filtered) {
		t.Errorf("sum of counts = %d, want %d", total, len(filtered))
	}
}

func TestCumulativeSeries(t *testing.T) {
	a := company("a", model.IndustryFintech, 2015)
	b := company("b", model.IndustryHealth, 2014)
	c := company("c", model.IndustryFintech, 2015)
	d := company("d", model.IndustryFintech, 2016)

	got := CumulativeSeries([]*model.Company{a, b, c, d})
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3 distinct dates", len(got))
	}
	if got[0].Date.Year() != 2014 || got[2].Date.Year() != 2016 {
		t.Errorf("dates not ascending: %v .. %v", got[0].Date, got[2].Date)
	}
	if got[1].Count(model.IndustryFintech) != 2 || got[1].Count(model.IndustryHealth) != 1 {
		t.Errorf("2015 counts = %v", got[1].Counts)
	}
	if got[2].Count(model.IndustryFintech) != 3 || got[2].Count(model.IndustryTravel) != 0 {
		t.Errorf("2016 counts = %v", got[2].Counts)
	}

	if empty := CumulativeSeries(nil); empty == nil || len(empty) != 0 {
		t.Errorf("empty = %#v", empty)
	}
}

func TestCrossTab_ZeroFilled(t *testing.T) {
	inv := &model.Investor{ID: "x", Companies: []*model.Company{
		company("1", model.IndustryFintech, 2015),
		company("2", model.IndustryFintech, 2015),
		company("3", model.IndustryOther, 2015),
	}}

	rows := CrossTab([]*model.Investor{inv})
	if len(rows) != 1 || len(rows[0].Cells) != len(model.Industries()) {
		t.Fatalf("rows = %+v", rows)
	}
	cells := rows[0].Cells
	if cells[0].Industry != model.IndustryFintech || cells[0].Count != 2 {
		t.Errorf("first cell = %+v", cells[0])
	}
	if last := cells[len(cells)-1]; last.Industry != model.IndustryOther || last.Count != 1 {
		t.Errorf("last cell = %+v", last)
	}
	if cells[1].Count != 0 || cells[1].InvestorID != "x" {
		t.Errorf("zero cell = %+v", cells[1])
	}
}

func TestYearHistogram(t *testing.T) {
	got := YearHistogram([]*model.Company{
		company("a", model.IndustryFintech, 2019),
		company("b", model.IndustryFintech, 2015),
		company("c", model.IndustryFintech, 2019),
	})
	want := []YearCount{{2015, 1}, {2019, 2}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("histogram = %v, want %v", got, want)
	}
}

func TestScatterPoints(t *testing.T) {
	var companies []*model.Company
	for i := 0; i < 40; i++ {
		c := company(fmt.Sprint(i), model.IndustryFintech, 2015)
		if i%4 != 0 {
			withROI(c, float64(i))
		}
		companies = append(companies, c)
	}

	got := ScatterPoints(companies, 0)
	if len(got) != DefaultScatterLimit {
		t.Fatalf("len = %d, want %d", len(got), DefaultScatterLimit)
	}
	if *got[0].ROI != 39 {
		t.Errorf("first ROI = %v, want 39", *got[0].ROI)
	}
	for i := 1; i < len(got); i++ {
		if *got[i].ROI > *got[i-1].ROI {
			t.Fatalf("not sorted descending at %d", i)
		}
	}
}

func TestNetworkGraph(t *testing.T) {
	a := withROI(company("a", model.IndustryFintech, 2015), 3)
	b := withROI(company("b", model.IndustryHealth, 2015), 5)
	noROI := company("n", model.IndustryHealth, 2015)
	investments := []model.Investment{
		{InvestorID: "seq", CompanyID: "a"},
		{InvestorID: "seq", CompanyID: "b"},
		{InvestorID: "seq", CompanyID: "n"},
		{InvestorID: "solo", CompanyID: "n"},
		{InvestorID: "accel", CompanyID: "b"},
	}

	g := NetworkGraph([]*model.Company{a, b, noROI}, investments, 10)

	if want := []string{"seq", "accel"}; !reflect.DeepEqual(investorIDs(g.Investors), want) {
		t.Errorf("investors = %v, want %v", investorIDs(g.Investors), want)
	}
	if want := []string{"a", "b"}; !reflect.DeepEqual(ids(g.Companies), want) {
		t.Errorf("companies = %v, want %v", ids(g.Companies), want)
	}
	if len(g.Links) != 3 {
		t.Errorf("links = %v, want 3 edges", g.Links)
	}
	if g.Empty() {
		t.Error("graph reported empty")
	}

	empty := NetworkGraph(nil, nil, 10)
	if !empty.Empty() || empty.Links == nil {
		t.Errorf("empty graph = %+v", empty)
	}
}

func TestCompute(t *testing.T) {
	a := withROI(company("a", model.IndustryFintech, 2015), 3)
	b := company("b", model.IndustryHealth, 2020)
	e := store.New([]*model.Company{a, b}, []model.Investment{{InvestorID: "seq", CompanyID: "a"}}, nil)

	f := model.NewFilterState(e.YearExtent()).Snapshot()
	f.Industries = model.NewIndustrySet(model.IndustryFintech)
	d := Compute(e, f, Options{})

	if want := []string{"a"}; !reflect.DeepEqual(ids(d.Companies), want) {
		t.Errorf("companies = %v", ids(d.Companies))
	}
	if len(d.Heatmap) != 1 || len(d.Network.Investors) != 1 || len(d.Scatter) != 1 {
		t.Errorf("unexpected datasets: %+v", d)
	}
	if len(d.Histogram) != 2 {
		t.Errorf("histogram should cover all companies, got %v", d.Histogram)
	}
}
