// Package client provides a transport-agnostic interface for a running
// dashboard and an HTTP/JSON implementation that talks to its REST API.
package client

import (
	"context"
	"encoding/json"
	"time"

	"github.com/alfredjeanlab/unicorns/internal/model"
	"github.com/alfredjeanlab/unicorns/internal/presence"
	"github.com/alfredjeanlab/unicorns/internal/view"
)

// DashboardClient is the interface the CLI uses to drive a served
// dashboard. It is implemented by HTTPClient.
type DashboardClient interface {
	// State
	State(ctx context.Context) (*State, error)
	Datasets(ctx context.Context) (json.RawMessage, error)

	// Frames
	Views(ctx context.Context) (map[view.Name]*view.Frame, error)
	View(ctx context.Context, name view.Name) (*view.Frame, error)
	SetScale(ctx context.Context, name view.Name, scale view.ScaleType) (*view.Frame, error)

	// Events and gestures
	Emit(ctx context.Context, topic string, payload any) (*EmitResult, error)
	Interact(ctx context.Context, in view.Interaction) (*State, error)
	Search(ctx context.Context, query string) (*SearchResult, error)

	// Stream delivers server-sent events until ctx is done or fn fails.
	Stream(ctx context.Context, req *StreamRequest, fn func(StreamEvent) error) error

	// Viewers lists clients seen recently; stale hides those idle longer.
	Viewers(ctx context.Context, stale time.Duration) ([]presence.Entry, error)

	// Health
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

// State is the dashboard filter state as reported by the server.
type State struct {
	Session  string            `json:"session"`
	Filter   model.FilterState `json:"filter"`
	Extent   model.YearRange   `json:"extent"`
	Failures uint64            `json:"failures"`
}

// EmitResult is the response from Emit.
type EmitResult struct {
	State    State  `json:"state"`
	Failures uint64 `json:"failures"`
}

// SearchResult is the response from Search.
type SearchResult struct {
	Feedback string `json:"feedback,omitempty"`
	Selected string `json:"selected,omitempty"`
}

// StreamRequest selects which stream topics to receive. Topics accept "*"
// for one segment and ">" for the rest, e.g. "frame.*" or "events.>".
type StreamRequest struct {
	Topics      []string
	LastEventID string
}

// StreamEvent is one server-sent event.
type StreamEvent struct {
	ID    string
	Topic string
	Data  json.RawMessage
}
