package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alfredjeanlab/unicorns/internal/dashboard"
	"github.com/alfredjeanlab/unicorns/internal/events"
	"github.com/alfredjeanlab/unicorns/internal/loop"
	"github.com/alfredjeanlab/unicorns/internal/model"
	"github.com/alfredjeanlab/unicorns/internal/view"
)

// maxBodyBytes bounds request bodies; every payload here is a small JSON
// object.
const maxBodyBytes = 1 << 16

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except GET /v1/health) must include
// a valid Authorization: Bearer <token> header.
func (s *DashboardServer) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.HandleFunc("GET /v1/state", s.handleGetState)
	mux.HandleFunc("GET /v1/datasets", s.handleGetDatasets)
	mux.HandleFunc("GET /v1/views", s.handleListViews)
	mux.HandleFunc("GET /v1/views/{name}", s.handleGetView)
	mux.HandleFunc("POST /v1/views/{name}/scale", s.handleSetScale)
	mux.HandleFunc("GET /v1/tooltip", s.handleGetTooltip)
	mux.HandleFunc("POST /v1/events", s.handleEmit)
	mux.HandleFunc("POST /v1/interactions", s.handleInteract)
	mux.HandleFunc("POST /v1/network/search", s.handleSearch)
	mux.HandleFunc("GET /v1/events/stream", s.handleEventStream)
	mux.HandleFunc("GET /v1/viewers", s.handleListViewers)
	return RecoveryMiddleware(s.logger, LoggingMiddleware(s.logger,
		AuthMiddleware(authToken, PresenceMiddleware(s.viewers, mux))))
}

// StateResponse is the body of GET /v1/state.
type StateResponse struct {
	Session  string            `json:"session"`
	Filter   model.FilterState `json:"filter"`
	Extent   model.YearRange   `json:"extent"`
	Failures uint64            `json:"failures"`
}

// EmitRequest is the body of POST /v1/events.
type EmitRequest struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// EmitResponse reports the state after an emit and how many handlers failed
// while it was delivered.
type EmitResponse struct {
	State    StateResponse `json:"state"`
	Failures uint64        `json:"failures"`
}

// SearchRequest is the body of POST /v1/network/search.
type SearchRequest struct {
	Query string `json:"query"`
}

// SearchResponse carries the search feedback text and the resulting
// selection.
type SearchResponse struct {
	Feedback string `json:"feedback,omitempty"`
	Selected string `json:"selected,omitempty"`
}

// ScaleRequest is the body of POST /v1/views/{name}/scale.
type ScaleRequest struct {
	Scale string `json:"scale"`
}

// handleHealth handles GET /v1/health.
func (s *DashboardServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "session": s.session.ID})
}

// handleListViewers handles GET /v1/viewers. The optional stale query
// parameter (a duration such as "5m") hides viewers idle for longer.
func (s *DashboardServer) handleListViewers(w http.ResponseWriter, r *http.Request) {
	var stale time.Duration
	if q := r.URL.Query().Get("stale"); q != "" {
		d, err := time.ParseDuration(q)
		if err != nil || d < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid stale duration %q", q))
			return
		}
		stale = d
	}
	writeJSON(w, http.StatusOK, map[string]any{"viewers": s.viewers.Roster(stale)})
}

// handleGetState handles GET /v1/state.
func (s *DashboardServer) handleGetState(w http.ResponseWriter, r *http.Request) {
	var resp StateResponse
	err := s.do(r.Context(), func(c *dashboard.Coordinator) error {
		resp = s.state(c)
		return nil
	})
	if err != nil {
		writeDoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *DashboardServer) state(c *dashboard.Coordinator) StateResponse {
	return StateResponse{
		Session:  s.session.ID,
		Filter:   c.State(),
		Extent:   c.Entities().YearExtent(),
		Failures: c.Bus().Failures(),
	}
}

// handleGetDatasets handles GET /v1/datasets.
func (s *DashboardServer) handleGetDatasets(w http.ResponseWriter, r *http.Request) {
	var resp any
	err := s.do(r.Context(), func(c *dashboard.Coordinator) error {
		resp = c.Datasets()
		return nil
	})
	if err != nil {
		writeDoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleListViews handles GET /v1/views. It returns the latest frame of
// every rendered view.
func (s *DashboardServer) handleListViews(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.recorder.Frames())
}

// handleGetView handles GET /v1/views/{name}.
func (s *DashboardServer) handleGetView(w http.ResponseWriter, r *http.Request) {
	name := view.Name(r.PathValue("name"))
	f, ok := s.recorder.Frame(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("view %q not found", name))
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// handleSetScale handles POST /v1/views/{name}/scale.
func (s *DashboardServer) handleSetScale(w http.ResponseWriter, r *http.Request) {
	var req ScaleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	t, err := view.ParseScaleType(req.Scale)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	name := view.Name(r.PathValue("name"))
	err = s.do(r.Context(), func(c *dashboard.Coordinator) error {
		if _, ok := c.View(name); !ok {
			return fmt.Errorf("%w %q", dashboard.ErrUnknownView, name)
		}
		if err := c.SetScale(name, t); err != nil {
			return inputError(err.Error())
		}
		return nil
	})
	if err != nil {
		writeDoError(w, err)
		return
	}
	f, _ := s.recorder.Frame(name)
	writeJSON(w, http.StatusOK, f)
}

// handleGetTooltip handles GET /v1/tooltip.
func (s *DashboardServer) handleGetTooltip(w http.ResponseWriter, _ *http.Request) {
	t, ok := s.recorder.Tooltip()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"visible": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"visible": true, "tooltip": t})
}

// handleEmit handles POST /v1/events. The payload is decoded into the typed
// event for the topic and emitted on the dashboard bus.
func (s *DashboardServer) handleEmit(w http.ResponseWriter, r *http.Request) {
	var req EmitRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !events.IsKnown(req.Topic) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown topic %q", req.Topic))
		return
	}
	payload, err := events.Decode(req.Topic, req.Payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var resp EmitResponse
	err = s.do(r.Context(), func(c *dashboard.Coordinator) error {
		before := c.Bus().Failures()
		c.Bus().Emit(req.Topic, payload)
		resp.State = s.state(c)
		resp.Failures = resp.State.Failures - before
		return nil
	})
	if err != nil {
		writeDoError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}

// handleInteract handles POST /v1/interactions.
func (s *DashboardServer) handleInteract(w http.ResponseWriter, r *http.Request) {
	var in view.Interaction
	if !decodeBody(w, r, &in) {
		return
	}
	if err := in.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var resp StateResponse
	err := s.do(r.Context(), func(c *dashboard.Coordinator) error {
		if err := c.Interact(in); err != nil {
			return err
		}
		resp = s.state(c)
		return nil
	})
	if err != nil {
		writeDoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSearch handles POST /v1/network/search.
func (s *DashboardServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	var resp SearchResponse
	err := s.do(r.Context(), func(c *dashboard.Coordinator) error {
		resp.Feedback = c.Search(req.Query)
		resp.Selected = c.State().Selected
		return nil
	})
	if err != nil {
		writeDoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// do runs f on the session loop and returns either the loop error or f's.
func (s *DashboardServer) do(ctx context.Context, f func(c *dashboard.Coordinator) error) error {
	var ferr error
	if err := s.session.Do(ctx, func(c *dashboard.Coordinator) { ferr = f(c) }); err != nil {
		return err
	}
	return ferr
}

// decodeBody decodes a JSON request body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+strings.TrimPrefix(err.Error(), "json: "))
		return false
	}
	return true
}

// writeDoError maps an error from the session loop to a status code.
func writeDoError(w http.ResponseWriter, err error) {
	var ie inputError
	switch {
	case errors.As(err, &ie):
		writeError(w, http.StatusBadRequest, ie.Error())
	case errors.Is(err, dashboard.ErrUnknownView):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, loop.ErrStopped), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
