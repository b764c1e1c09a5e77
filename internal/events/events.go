package events

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/alfredjeanlab/unicorns/internal/model"
)

// Event topic constants. This is the complete vocabulary shared between
// views and the coordinator.
const (
	// Filter events trigger full re-derivation of filter-sensitive views.
	TopicToggleIndustry   = "toggleIndustry"
	TopicUpdateYearFilter = "updateYearFilter"

	// Selection events trigger selection-only restyling.
	TopicSelectItem         = "selectItem"
	TopicToggleSelectedItem = "toggleSelectedItem"
	TopicClearSelectedItem  = "clearSelectedItem"

	// Tooltip events only affect the renderer.
	TopicShowCompanyTooltip  = "showCompanyTooltip"
	TopicShowInvestorTooltip = "showInvestorTooltip"
	TopicShowHeatmapTooltip  = "showHeatmapTooltip"
	TopicShowMapTooltip      = "showMapTooltip"
	TopicMoveTooltip         = "moveTooltip"
	TopicHideTooltip         = "hideTooltip"
)

// SubjectPrefix is prepended to topics when events are mirrored to NATS.
const SubjectPrefix = "unicorns."

// Topics lists every known topic in a stable order.
var Topics = []string{
	TopicToggleIndustry,
	TopicUpdateYearFilter,
	TopicSelectItem,
	TopicToggleSelectedItem,
	TopicClearSelectedItem,
	TopicShowCompanyTooltip,
	TopicShowInvestorTooltip,
	TopicShowHeatmapTooltip,
	TopicShowMapTooltip,
	TopicMoveTooltip,
	TopicHideTooltip,
}

// IsKnown reports whether topic belongs to the fixed vocabulary.
func IsKnown(topic string) bool {
	for _, t := range Topics {
		if t == topic {
			return true
		}
	}
	return false
}

// Subject returns the NATS subject an event topic is mirrored to.
func Subject(topic string) string {
	return SubjectPrefix + topic
}

// Event types

type ToggleIndustry struct {
	Industry model.Industry `json:"industry"`
}

type UpdateYearFilter struct {
	Range model.YearRange `json:"range"`
}

type SelectItem struct {
	ID string `json:"id"`
}

type ToggleSelectedItem struct {
	ID string `json:"id"`
}

type ClearSelectedItem struct{}

// Position is a pointer location in page coordinates.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Tooltip events

type ShowCompanyTooltip struct {
	Company *model.Company `json:"company"`
	Position
}

type ShowInvestorTooltip struct {
	Investor *model.Investor `json:"investor"`
	Position
}

type ShowHeatmapTooltip struct {
	InvestorID string         `json:"investor_id"`
	Industry   model.Industry `json:"industry"`
	Count      int            `json:"count"`
	Position
}

type ShowMapTooltip struct {
	Name      string                 `json:"name"`
	Aggregate *model.RegionAggregate `json:"aggregate"`
	Position
}

type MoveTooltip struct {
	Position
}

type HideTooltip struct{}

// Publisher is the interface for emitting events outside the process.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Decode parses a JSON payload into the typed event for topic.
func Decode(topic string, data []byte) (any, error) {
	var v any
	switch topic {
	case TopicToggleIndustry:
		v = &ToggleIndustry{}
	case TopicUpdateYearFilter:
		v = &UpdateYearFilter{}
	case TopicSelectItem:
		v = &SelectItem{}
	case TopicToggleSelectedItem:
		v = &ToggleSelectedItem{}
	case TopicClearSelectedItem:
		return ClearSelectedItem{}, nil
	case TopicShowCompanyTooltip:
		v = &ShowCompanyTooltip{}
	case TopicShowInvestorTooltip:
		v = &ShowInvestorTooltip{}
	case TopicShowHeatmapTooltip:
		v = &ShowHeatmapTooltip{}
	case TopicShowMapTooltip:
		v = &ShowMapTooltip{}
	case TopicMoveTooltip:
		v = &MoveTooltip{}
	case TopicHideTooltip:
		return HideTooltip{}, nil
	default:
		return nil, fmt.Errorf("unknown event topic %q", topic)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, v); err != nil {
			return nil, fmt.Errorf("decoding %s payload: %w", topic, err)
		}
	}
	return reflect.ValueOf(v).Elem().Interface(), nil
}
