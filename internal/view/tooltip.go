package view

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/alfredjeanlab/unicorns/internal/events"
)

// TooltipPadding offsets tooltips from the pointer.
const TooltipPadding = 10

var (
	firstSentenceRe = regexp.MustCompile(`^(.*?)[.?!]\s`)
	urlSchemeRe     = regexp.MustCompile(`(^\w+:|^)//`)
)

// FirstSentence returns the leading sentence of text including its
// terminator, or text unchanged when no sentence break is found.
func FirstSentence(text string) string {
	if m := firstSentenceRe.FindString(text); m != "" {
		return strings.TrimSpace(m)
	}
	return text
}

// URLBody strips the scheme from a URL.
func URLBody(url string) string {
	return urlSchemeRe.ReplaceAllString(url, "")
}

func padded(p events.Position) (float64, float64) {
	return p.X + TooltipPadding, p.Y + TooltipPadding
}

// CompanyTooltip formats a company tooltip.
func CompanyTooltip(e events.ShowCompanyTooltip) Tooltip {
	c := e.Company
	x, y := padded(e.Position)
	roi := "n/a"
	if c.ROI != nil {
		roi = formatFixed(*c.ROI, 2)
	}
	return Tooltip{
		Title:    c.Name,
		Link:     c.Website,
		LinkText: URLBody(c.Website),
		Text:     FirstSentence(c.Description),
		Lines: []string{
			fmt.Sprintf("Valuation: $%s billion", formatFixed(c.ValuationBillions(), 2)),
			fmt.Sprintf("Return on Investment: %s", roi),
			fmt.Sprintf("Origin: %s, %s", c.City, c.Country),
			fmt.Sprintf("Industry: %s", c.Industry),
		},
		X: x,
		Y: y,
	}
}

// InvestorTooltip formats an investor tooltip.
func InvestorTooltip(e events.ShowInvestorTooltip) Tooltip {
	x, y := padded(e.Position)
	return Tooltip{
		Title: e.Investor.ID,
		Lines: []string{fmt.Sprintf("%d investments in filtered companies", e.Investor.Count())},
		X:     x,
		Y:     y,
	}
}

// HeatmapTooltip formats a heatmap cell tooltip.
func HeatmapTooltip(e events.ShowHeatmapTooltip) Tooltip {
	x, y := padded(e.Position)
	return Tooltip{
		Title: string(e.Industry),
		Lines: []string{fmt.Sprintf("Company count: %d", e.Count)},
		X:     x,
		Y:     y,
	}
}

// MapTooltip formats a choropleth region tooltip.
func MapTooltip(e events.ShowMapTooltip) Tooltip {
	x, y := padded(e.Position)
	agg := e.Aggregate
	return Tooltip{
		Title: e.Name,
		Lines: []string{
			fmt.Sprintf("# of Unicorns: %d", agg.Count),
			fmt.Sprintf("Total Valuation: $%s", formatSI(agg.TotalValuation)),
			fmt.Sprintf("Leading Industry: %s", agg.LeadingIndustry),
		},
		X: x,
		Y: y,
	}
}
