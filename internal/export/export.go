// Package export writes JSONL snapshots of the derived view datasets and
// ships them to files or object storage.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/alfredjeanlab/unicorns/internal/derive"
	"github.com/alfredjeanlab/unicorns/internal/model"
)

// Record types, in the order they appear in a snapshot.
const (
	TypeHeader    = "header"
	TypeCompany   = "company"
	TypeScatter   = "scatter"
	TypeHeatmap   = "heatmap"
	TypeInvestor  = "investor"
	TypeLink      = "link"
	TypeRegion    = "region"
	TypeSeries    = "series"
	TypeHistogram = "histogram"
)

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version   string            `json:"version"`
	Type      string            `json:"type"`
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Filter    model.FilterState `json:"filter"`
	Counts    map[string]int    `json:"counts"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// scatterPoint is the scatterplot record: the plotted company with its
// axis values.
type scatterPoint struct {
	ID        string  `json:"id"`
	Valuation float64 `json:"valuation"`
	ROI       float64 `json:"roi"`
}

// ExportJSONL writes ds to w as JSONL: a header followed by one record per
// dataset row. Companies are sorted by ID; every other dataset keeps its
// derived order.
func ExportJSONL(ds *derive.Datasets, id string, now time.Time, w io.Writer) error {
	companies := append([]*model.Company(nil), ds.Companies...)
	sort.Slice(companies, func(i, j int) bool {
		return companies[i].ID < companies[j].ID
	})

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:   "1",
		Type:      TypeHeader,
		ID:        id,
		Timestamp: now.UTC(),
		Filter:    ds.Filter,
		Counts: map[string]int{
			TypeCompany:   len(companies),
			TypeScatter:   len(ds.Scatter),
			TypeHeatmap:   len(ds.Heatmap),
			TypeInvestor:  len(ds.Network.Investors),
			TypeLink:      len(ds.Network.Links),
			TypeRegion:    len(ds.Regions),
			TypeSeries:    len(ds.Series),
			TypeHistogram: len(ds.Histogram),
		},
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	write := func(typ string, data any) error {
		if err := enc.Encode(record{Type: typ, Data: data}); err != nil {
			return fmt.Errorf("encode %s: %w", typ, err)
		}
		return nil
	}

	for _, c := range companies {
		if err := write(TypeCompany, c); err != nil {
			return err
		}
	}
	for _, c := range ds.Scatter {
		p := scatterPoint{ID: c.ID, Valuation: c.Valuation}
		if c.ROI != nil {
			p.ROI = *c.ROI
		}
		if err := write(TypeScatter, p); err != nil {
			return err
		}
	}
	for _, row := range ds.Heatmap {
		if err := write(TypeHeatmap, row); err != nil {
			return err
		}
	}
	for _, inv := range ds.Network.Investors {
		if err := write(TypeInvestor, inv); err != nil {
			return err
		}
	}
	for _, l := range ds.Network.Links {
		if err := write(TypeLink, l); err != nil {
			return err
		}
	}
	for _, r := range ds.Regions {
		if err := write(TypeRegion, r); err != nil {
			return err
		}
	}
	for _, p := range ds.Series {
		if err := write(TypeSeries, p); err != nil {
			return err
		}
	}
	for _, y := range ds.Histogram {
		if err := write(TypeHistogram, y); err != nil {
			return err
		}
	}
	return nil
}
