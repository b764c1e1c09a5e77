package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/unicorns/internal/events"
	"github.com/alfredjeanlab/unicorns/internal/render"
	"github.com/alfredjeanlab/unicorns/internal/view"
)

func frameUpdate(name view.Name) render.Update {
	return render.Update{Kind: render.KindFrame, View: name, Frame: &view.Frame{}}
}

func topicsOf(entries []*streamEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Topic
	}
	return out
}

func (h *streamHub) lastSeq() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.seq
}

func TestStreamHub_BacklogIsLatestPaintState(t *testing.T) {
	hub := newStreamHub()
	hub.paint(frameUpdate(view.Network))
	hub.paint(frameUpdate(view.Legend))
	hub.paint(frameUpdate(view.Network))
	hub.paint(render.Update{Kind: render.KindPositions, View: view.Network})
	hub.event(events.TopicSelectItem, events.SelectItem{ID: "A"})

	_, backlog := hub.attach("", nil, 0)
	want := []string{"frame.legend", "frame.network", "positions.network"}
	if got := topicsOf(backlog); strings.Join(got, " ") != strings.Join(want, " ") {
		t.Fatalf("backlog = %v, want %v", got, want)
	}
	if backlog[1].Seq != 3 {
		t.Errorf("network frame seq = %d, want the latest (3)", backlog[1].Seq)
	}

	// A new frame supersedes the positions of the previous node set.
	hub.paint(frameUpdate(view.Network))
	_, backlog = hub.attach("", nil, 0)
	if got := topicsOf(backlog); strings.Join(got, " ") != "frame.legend frame.network" {
		t.Errorf("backlog after repaint = %v", got)
	}
}

func TestStreamHub_ReconnectReplaysMissedEvents(t *testing.T) {
	hub := newStreamHub()
	hub.paint(frameUpdate(view.Scatterplot))
	hub.event(events.TopicSelectItem, events.SelectItem{ID: "A"})
	seen := hub.lastSeq()
	hub.event(events.TopicClearSelectedItem, events.ClearSelectedItem{})
	hub.paint(frameUpdate(view.Heatmap))

	_, backlog := hub.attach("", nil, seen)
	want := []string{"events.clearSelectedItem", "frame.heatmap"}
	if got := topicsOf(backlog); strings.Join(got, " ") != strings.Join(want, " ") {
		t.Fatalf("backlog = %v, want %v", got, want)
	}

	// A new client gets paint state only.
	_, backlog = hub.attach("", nil, 0)
	if got := topicsOf(backlog); strings.Join(got, " ") != "frame.scatterplot frame.heatmap" {
		t.Errorf("fresh backlog = %v", got)
	}
}

func TestStreamHub_Tooltip(t *testing.T) {
	hub := newStreamHub()
	hub.paint(render.Update{Kind: render.KindTooltipShow, Tooltip: &view.Tooltip{Title: "Alpha"}})

	_, backlog := hub.attach("", []string{"tooltip.>"}, 0)
	if len(backlog) != 1 || backlog[0].Topic != render.KindTooltipShow {
		t.Fatalf("backlog = %v", topicsOf(backlog))
	}
	shown := hub.lastSeq()

	hub.paint(render.Update{Kind: render.KindTooltipHide})
	if _, backlog := hub.attach("", []string{"tooltip.>"}, 0); len(backlog) != 0 {
		t.Errorf("fresh client got hidden tooltip: %v", topicsOf(backlog))
	}
	_, backlog = hub.attach("", []string{"tooltip.>"}, shown)
	if len(backlog) != 1 || backlog[0].Topic != render.KindTooltipHide {
		t.Errorf("reconnect backlog = %v, want the hide", topicsOf(backlog))
	}
}

func TestStreamHub_EventHistoryWraps(t *testing.T) {
	hub := newStreamHub()
	for i := 0; i < eventHistorySize+10; i++ {
		hub.event(events.TopicSelectItem, events.SelectItem{ID: fmt.Sprint(i)})
	}
	_, backlog := hub.attach("", nil, 1)
	if len(backlog) != eventHistorySize {
		t.Fatalf("backlog = %d entries, want %d", len(backlog), eventHistorySize)
	}
	if backlog[0].Seq != 11 || backlog[len(backlog)-1].Seq != eventHistorySize+10 {
		t.Errorf("backlog spans %d..%d", backlog[0].Seq, backlog[len(backlog)-1].Seq)
	}
}

func TestStreamHub_DeliveryAndDrops(t *testing.T) {
	hub := newStreamHub()
	frames, _ := hub.attach("viewer", []string{"frame.*"}, 0)
	all, _ := hub.attach("viewer", nil, 0)

	hub.paint(render.Update{Kind: render.KindPositions, View: view.Network})
	hub.paint(frameUpdate(view.Network))

	select {
	case e := <-frames.queue:
		if e.Topic != "frame.network" {
			t.Fatalf("filtered client got %q", e.Topic)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
	}
	if len(frames.queue) != 0 {
		t.Errorf("filtered client has %d extra entries", len(frames.queue))
	}

	for i := 0; i < streamQueueSize+5; i++ {
		hub.event(events.TopicHideTooltip, events.HideTooltip{})
	}
	if dropped := hub.detach(all); dropped != 7 {
		t.Errorf("dropped = %d, want 7", dropped)
	}
	if dropped := hub.detach(frames); dropped != 0 {
		t.Errorf("filtered client dropped %d", dropped)
	}
	hub.paint(frameUpdate(view.Legend))
	if len(frames.queue) != 0 {
		t.Errorf("detached client still receives entries")
	}
}

func TestMatchTopicPattern(t *testing.T) {
	for _, tc := range []struct {
		pattern string
		topic   string
		want    bool
	}{
		{"frame.network", "frame.network", true},
		{"frame.network", "frame.legend", false},
		{"frame.*", "frame.network", true},
		{"frame.*", "events.selectItem", false},
		{"frame.*", "frame", false},
		{"tooltip.>", "tooltip.show", true},
		{"tooltip.>", "tooltip", false},
		{"tooltip.>", "frame.network", false},
		{"events.>", "events.selectItem", true},
		{">", "positions.network", true},
		{"*.*", "positions.network", true},
		{"*.*", "tooltip", false},
	} {
		t.Run(tc.pattern+"_"+tc.topic, func(t *testing.T) {
			if got := matchTopicPattern(tc.pattern, tc.topic); got != tc.want {
				t.Fatalf("matchTopicPattern(%q, %q) = %v, want %v", tc.pattern, tc.topic, got, tc.want)
			}
		})
	}
}

// openStream runs a GET /v1/events/stream request until stop is called and
// returns the recorded response.
func openStream(t *testing.T, handler http.Handler, target string, header map[string]string) (stop func() *httptest.ResponseRecorder) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", target, nil).WithContext(ctx)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		handler.ServeHTTP(rec, req)
	}()

	// Give the handler time to attach.
	time.Sleep(50 * time.Millisecond)
	return func() *httptest.ResponseRecorder {
		time.Sleep(50 * time.Millisecond)
		cancel()
		<-done
		return rec
	}
}

type wireEvent struct {
	id    uint64
	event string
	data  string
}

func parseStream(t *testing.T, body string) []wireEvent {
	t.Helper()
	var out []wireEvent
	var cur wireEvent
	scanner := bufio.NewScanner(strings.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if cur.event != "" {
				out = append(out, cur)
			}
			cur = wireEvent{}
		case strings.HasPrefix(line, "id:"):
			id, err := strconv.ParseUint(strings.TrimPrefix(line, "id:"), 10, 64)
			if err != nil {
				t.Fatalf("bad id line %q", line)
			}
			cur.id = id
		case strings.HasPrefix(line, "event:"):
			cur.event = strings.TrimPrefix(line, "event:")
		case strings.HasPrefix(line, "data:"):
			cur.data = strings.TrimPrefix(line, "data:")
		}
	}
	return out
}

func TestHandleEventStream_InitialPaint(t *testing.T) {
	_, handler := newTestServer(t)

	rec := openStream(t, handler, "/v1/events/stream?topics=frame.*", nil)()
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}
	got := make(map[string]bool)
	for _, e := range parseStream(t, rec.Body.String()) {
		if !json.Valid([]byte(e.data)) {
			t.Errorf("%s data is not JSON: %q", e.event, e.data)
		}
		got[e.event] = true
	}
	for _, name := range []view.Name{view.Scatterplot, view.Heatmap, view.Network, view.Choropleth, view.StackedArea, view.Slider, view.Legend} {
		if !got["frame."+string(name)] {
			t.Errorf("no initial frame for %s", name)
		}
	}
}

func TestHandleEventStream_BusEvents(t *testing.T) {
	_, handler := newTestServer(t)

	stop := openStream(t, handler, "/v1/events/stream?topics=events.*,frame.scatterplot", nil)
	rec := doRequest(t, handler, "POST", "/v1/events",
		`{"topic":"selectItem","payload":{"id":"A"}}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("emit status = %d: %s", rec.Code, rec.Body.String())
	}
	body := stop().Body.String()

	if !strings.Contains(body, "event:events."+events.TopicSelectItem+"\ndata:{\"id\":\"A\"}") {
		t.Fatalf("expected selectItem event, got:\n%s", body)
	}
	if n := strings.Count(body, "event:frame.scatterplot"); n < 2 {
		t.Errorf("scatterplot frames = %d, want initial paint plus repaint", n)
	}
	if strings.Contains(body, "event:positions.") {
		t.Fatalf("positions should be filtered out, got:\n%s", body)
	}
}

func TestHandleEventStream_LastEventID(t *testing.T) {
	srv, handler := newTestServer(t)

	before := srv.stream.lastSeq()
	rec := doRequest(t, handler, "POST", "/v1/events", `{"topic":"selectItem","payload":{"id":"A"}}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("emit status = %d", rec.Code)
	}
	after := srv.stream.lastSeq()

	header := map[string]string{"Last-Event-ID": strconv.FormatUint(before, 10)}
	wire := parseStream(t, openStream(t, handler, "/v1/events/stream?topics=events.*,frame.scatterplot", header)().Body.String())
	got := make(map[string]int)
	for i, e := range wire {
		got[e.event]++
		if e.id <= before || e.id > after {
			t.Errorf("replayed id %d outside (%d,%d]", e.id, before, after)
		}
		if i > 0 && e.id <= wire[i-1].id {
			t.Errorf("replay out of order at %d", e.id)
		}
	}
	if got["events.selectItem"] != 1 || got["frame.scatterplot"] != 1 || len(wire) != 2 {
		t.Fatalf("replay = %+v, want the missed event and the latest repaint", wire)
	}

	header["Last-Event-ID"] = strconv.FormatUint(after, 10)
	if wire := parseStream(t, openStream(t, handler, "/v1/events/stream", header)().Body.String()); len(wire) != 0 {
		t.Errorf("up-to-date client got %+v", wire)
	}
}

func TestHandleEventStream_BadLastEventID(t *testing.T) {
	_, handler := newTestServer(t)
	req := httptest.NewRequest("GET", "/v1/events/stream", nil)
	req.Header.Set("Last-Event-ID", "yesterday")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleEventStream_MultipleClientsAndViewers(t *testing.T) {
	srv, handler := newTestServer(t)

	stop1 := openStream(t, handler, "/v1/events/stream?topics=events.*", map[string]string{ViewerHeader: "alice"})
	stop2 := openStream(t, handler, "/v1/events/stream?topics=events.*", map[string]string{ViewerHeader: "bob"})

	streaming := 0
	for _, e := range srv.viewers.Roster(0) {
		streaming += e.Streams
	}
	if streaming != 2 {
		t.Errorf("open streams in roster = %d, want 2", streaming)
	}

	doRequest(t, handler, "POST", "/v1/events", `{"topic":"clearSelectedItem"}`)
	for i, rec := range []*httptest.ResponseRecorder{stop1(), stop2()} {
		if !strings.Contains(rec.Body.String(), "event:events.clearSelectedItem") {
			t.Fatalf("client %d: expected event, got:\n%s", i+1, rec.Body.String())
		}
	}
	for _, e := range srv.viewers.Roster(0) {
		if e.Streams != 0 {
			t.Errorf("%s still has %d streams", e.Viewer, e.Streams)
		}
	}
}
