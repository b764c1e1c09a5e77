package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/unicorns/internal/events"
	"github.com/alfredjeanlab/unicorns/internal/model"
	"github.com/alfredjeanlab/unicorns/internal/view"
)

var _ DashboardClient = (*HTTPClient)(nil)

// testHandler captures the incoming request details and returns a canned response.
type testHandler struct {
	// captured from the request
	method      string
	path        string
	query       string
	body        string
	contentType string
	auth        string
	lastEventID string
	viewer      string

	// canned response
	statusCode   int
	responseBody string
}

func (h *testHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.method = r.Method
	h.path = r.URL.Path
	h.query = r.URL.RawQuery
	h.contentType = r.Header.Get("Content-Type")
	h.auth = r.Header.Get("Authorization")
	h.lastEventID = r.Header.Get("Last-Event-ID")
	h.viewer = r.Header.Get("X-Unicorns-Viewer")
	if r.Body != nil {
		data, _ := io.ReadAll(r.Body)
		h.body = string(data)
	}

	w.Header().Set("Content-Type", "application/json")
	if h.statusCode != 0 {
		w.WriteHeader(h.statusCode)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	if h.responseBody != "" {
		_, _ = w.Write([]byte(h.responseBody))
	}
}

// newTestClient creates an HTTPClient pointed at a test server with the given handler.
func newTestClient(h http.Handler) (*HTTPClient, *httptest.Server) {
	srv := httptest.NewServer(h)
	c := NewHTTPClient(srv.URL+"/", "tok")
	return c, srv
}

func TestHTTPClient_State(t *testing.T) {
	h := &testHandler{
		responseBody: `{
			"session": "sess-abc",
			"filter": {"industries": ["Fintech", "Health"], "years": [2016, 2020], "selected": "A"},
			"extent": [2007, 2022],
			"failures": 2
		}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	st, err := c.State(context.Background())
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}
	if h.method != http.MethodGet || h.path != "/v1/state" {
		t.Errorf("request = %s %s, want GET /v1/state", h.method, h.path)
	}
	if h.auth != "Bearer tok" {
		t.Errorf("authorization = %q", h.auth)
	}
	if st.Session != "sess-abc" || st.Failures != 2 {
		t.Errorf("state = %+v", st)
	}
	if st.Filter.Years != (model.YearRange{2016, 2020}) || st.Extent != (model.YearRange{2007, 2022}) {
		t.Errorf("years = %v extent = %v", st.Filter.Years, st.Extent)
	}
	if !st.Filter.Industries.Has(model.IndustryHealth) || st.Filter.Industries.Has(model.IndustryTravel) {
		t.Errorf("industries = %v", st.Filter.Industries)
	}
	if st.Filter.Selected != "A" {
		t.Errorf("selected = %q", st.Filter.Selected)
	}
}

func TestHTTPClient_Emit(t *testing.T) {
	h := &testHandler{
		statusCode:   http.StatusAccepted,
		responseBody: `{"state": {"session": "sess-1", "filter": {"industries": [], "years": [2015, 2020]}}, "failures": 0}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	res, err := c.Emit(context.Background(), events.TopicToggleIndustry, events.ToggleIndustry{Industry: model.IndustryHealth})
	if err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	if h.method != http.MethodPost || h.path != "/v1/events" {
		t.Errorf("request = %s %s", h.method, h.path)
	}
	if h.contentType != "application/json" {
		t.Errorf("content-type = %q", h.contentType)
	}
	var body struct {
		Topic   string          `json:"topic"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal([]byte(h.body), &body); err != nil {
		t.Fatalf("unmarshaling request body: %v", err)
	}
	if body.Topic != "toggleIndustry" || string(body.Payload) != `{"industry":"Health"}` {
		t.Errorf("request body = %s", h.body)
	}
	if res.State.Session != "sess-1" {
		t.Errorf("result = %+v", res)
	}

	// A nil payload is omitted.
	if _, err := c.Emit(context.Background(), events.TopicClearSelectedItem, nil); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	if strings.Contains(h.body, "payload") {
		t.Errorf("nil payload sent: %s", h.body)
	}
}

func TestHTTPClient_Interact(t *testing.T) {
	h := &testHandler{responseBody: `{"session": "s", "filter": {"selected": "B"}}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	st, err := c.Interact(context.Background(), view.Interaction{View: view.Heatmap, Type: view.InteractClick, ID: "B"})
	if err != nil {
		t.Fatalf("Interact() error = %v", err)
	}
	if h.path != "/v1/interactions" {
		t.Errorf("path = %q", h.path)
	}
	if !strings.Contains(h.body, `"view":"heatmap"`) || !strings.Contains(h.body, `"type":"click"`) {
		t.Errorf("request body = %s", h.body)
	}
	if st.Filter.Selected != "B" {
		t.Errorf("selected = %q", st.Filter.Selected)
	}
}

func TestHTTPClient_ViewsAndScale(t *testing.T) {
	h := &testHandler{responseBody: `{"view": "network", "update": "scale", "width": 600, "height": 600, "elements": [], "empty": false, "scale": "linear"}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	f, err := c.SetScale(context.Background(), view.Network, view.ScaleLinear)
	if err != nil {
		t.Fatalf("SetScale() error = %v", err)
	}
	if h.path != "/v1/views/network/scale" || h.body != `{"scale":"linear"}` {
		t.Errorf("request = %s %s", h.path, h.body)
	}
	if f.View != view.Network || f.Scale != view.ScaleLinear {
		t.Errorf("frame = %+v", f)
	}

	h.responseBody = `{"legend": {"view": "legend", "elements": []}, "heatmap": {"view": "heatmap", "empty": true}}`
	frames, err := c.Views(context.Background())
	if err != nil {
		t.Fatalf("Views() error = %v", err)
	}
	if len(frames) != 2 || !frames[view.Heatmap].Empty {
		t.Errorf("frames = %v", frames)
	}
}

func TestHTTPClient_Search(t *testing.T) {
	h := &testHandler{responseBody: `{"feedback": "Not found"}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	res, err := c.Search(context.Background(), "zzz")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if h.body != `{"query":"zzz"}` {
		t.Errorf("request body = %s", h.body)
	}
	if res.Feedback != "Not found" || res.Selected != "" {
		t.Errorf("result = %+v", res)
	}
}

func TestHTTPClient_APIError(t *testing.T) {
	for _, tc := range []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"JSONError", http.StatusBadRequest, `{"error": "unknown topic \"x\""}`, `unknown topic "x"`},
		{"PlainError", http.StatusBadGateway, `upstream down`, "upstream down"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := &testHandler{statusCode: tc.status, responseBody: tc.body}
			c, srv := newTestClient(h)
			defer srv.Close()

			_, err := c.Health(context.Background())
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want *APIError", err)
			}
			if apiErr.StatusCode != tc.status || apiErr.Message != tc.wantMsg {
				t.Errorf("APIError = %+v", apiErr)
			}
		})
	}
}

func TestReadSSE(t *testing.T) {
	stream := ":keepalive\n\n" +
		"id:1\nevent:frame.legend\ndata:{\"view\":\"legend\"}\n\n" +
		"id:2\nevent:events.hideTooltip\ndata:{}\n\n" +
		"id:3\nevent:multi\ndata: a\ndata: b\n\n"

	var got []StreamEvent
	if err := readSSE(strings.NewReader(stream), func(e StreamEvent) error {
		got = append(got, e)
		return nil
	}); err != nil {
		t.Fatalf("readSSE: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d: %+v", len(got), got)
	}
	if got[0].ID != "1" || got[0].Topic != "frame.legend" || string(got[0].Data) != `{"view":"legend"}` {
		t.Errorf("event 0 = %+v", got[0])
	}
	if string(got[2].Data) != "a\nb" {
		t.Errorf("multi-line data = %q", got[2].Data)
	}

	stop := errors.New("stop")
	err := readSSE(strings.NewReader(stream), func(StreamEvent) error { return stop })
	if !errors.Is(err, stop) {
		t.Errorf("callback error not returned: %v", err)
	}
}

func TestHTTPClient_Stream(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("topics") != "frame.*,events.>" || r.Header.Get("Last-Event-ID") != "7" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "id:8\nevent:frame.heatmap\ndata:{}\n\n")
	})
	c, srv := newTestClient(h)
	defer srv.Close()

	var topics []string
	err := c.Stream(context.Background(), &StreamRequest{Topics: []string{"frame.*", "events.>"}, LastEventID: "7"},
		func(e StreamEvent) error {
			topics = append(topics, e.Topic)
			return nil
		})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if len(topics) != 1 || topics[0] != "frame.heatmap" {
		t.Errorf("topics = %v", topics)
	}
}

func TestHTTPClient_Viewers(t *testing.T) {
	h := &testHandler{responseBody: `{"viewers": [{"viewer": "alice", "request_count": 4, "streams": 1}]}`}
	c, srv := newTestClient(h)
	defer srv.Close()
	c.Viewer = "bob"

	viewers, err := c.Viewers(context.Background(), 5*time.Minute)
	if err != nil {
		t.Fatalf("Viewers() error = %v", err)
	}
	if h.path != "/v1/viewers" || h.query != "stale=5m0s" {
		t.Errorf("request = %s?%s", h.path, h.query)
	}
	if h.viewer != "bob" {
		t.Errorf("viewer header = %q", h.viewer)
	}
	if len(viewers) != 1 || viewers[0].Viewer != "alice" || viewers[0].RequestCount != 4 || viewers[0].Streams != 1 {
		t.Errorf("viewers = %+v", viewers)
	}
}
