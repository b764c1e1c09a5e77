package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/alfredjeanlab/unicorns/internal/render"
	"github.com/alfredjeanlab/unicorns/internal/view"
)

const (
	// eventHistorySize bounds the bus events kept for Last-Event-ID replay.
	// Paint updates are not kept; the latest paint state replaces them.
	eventHistorySize = 256

	// streamQueueSize is each client's delivery queue. Entries that do not
	// fit are dropped and counted.
	streamQueueSize = 64

	streamKeepalive = 15 * time.Second
)

// streamEntry is one message on the event stream. Seq is its SSE id.
type streamEntry struct {
	Seq   uint64
	Topic string
	Data  json.RawMessage
}

// streamHub fans paint updates and bus events out to SSE clients.
//
// It holds the paint state a client needs to draw the dashboard from
// nothing: the latest frame of every view, the node positions reported
// since that frame and the tooltip. Bus events are kept in a short history
// so a reconnecting client can catch up on the interactions it missed.
type streamHub struct {
	mu  sync.Mutex
	seq uint64

	frames    map[view.Name]*streamEntry
	positions map[view.Name]*streamEntry
	tooltip   *streamEntry // last show, move or hide

	history []*streamEntry // ring; oldest at head once full
	head    int

	clients map[*streamClient]struct{}
}

// streamClient is one open event stream.
type streamClient struct {
	viewer   string
	patterns []string // empty matches every topic
	queue    chan *streamEntry
	dropped  int
}

func newStreamHub() *streamHub {
	return &streamHub{
		frames:    make(map[view.Name]*streamEntry),
		positions: make(map[view.Name]*streamEntry),
		clients:   make(map[*streamClient]struct{}),
	}
}

// paint records u as the current paint state of its view or of the
// tooltip, then delivers it. It runs on the session loop and never blocks.
func (h *streamHub) paint(u render.Update) error {
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	e := h.next(u.Topic(), data)
	switch u.Kind {
	case render.KindFrame:
		h.frames[u.View] = e
		// Earlier positions belong to the previous frame's node set.
		delete(h.positions, u.View)
	case render.KindPositions:
		h.positions[u.View] = e
	case render.KindTooltipShow, render.KindTooltipMove, render.KindTooltipHide:
		h.tooltip = e
	}
	h.deliver(e)
	return nil
}

// event appends a bus event to the replay history and delivers it.
func (h *streamHub) event(topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	e := h.next(EventTopicPrefix+topic, data)
	if len(h.history) < eventHistorySize {
		h.history = append(h.history, e)
	} else {
		h.history[h.head] = e
		h.head = (h.head + 1) % eventHistorySize
	}
	h.deliver(e)
	return nil
}

func (h *streamHub) next(topic string, data []byte) *streamEntry {
	h.seq++
	return &streamEntry{Seq: h.seq, Topic: topic, Data: data}
}

// deliver queues e for every interested client. Callers hold h.mu.
func (h *streamHub) deliver(e *streamEntry) {
	for c := range h.clients {
		if !c.wants(e.Topic) {
			continue
		}
		select {
		case c.queue <- e:
		default:
			c.dropped++
		}
	}
}

// attach registers a client and returns the backlog to write before its
// queue, in sequence order. A new client (lastSeq 0) gets the current paint
// state. A reconnecting client gets the paint state that changed after
// lastSeq and the bus events it missed. Registration and backlog are taken
// under one lock, so nothing falls between them.
func (h *streamHub) attach(viewer string, patterns []string, lastSeq uint64) (*streamClient, []*streamEntry) {
	c := &streamClient{
		viewer:   viewer,
		patterns: patterns,
		queue:    make(chan *streamEntry, streamQueueSize),
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	var backlog []*streamEntry
	add := func(e *streamEntry) {
		if e != nil && e.Seq > lastSeq && c.wants(e.Topic) {
			backlog = append(backlog, e)
		}
	}
	for _, e := range h.frames {
		add(e)
	}
	for _, e := range h.positions {
		add(e)
	}
	if h.tooltip != nil && (lastSeq > 0 || h.tooltip.Topic != render.KindTooltipHide) {
		add(h.tooltip)
	}
	if lastSeq > 0 {
		for i := range h.history {
			add(h.history[(h.head+i)%len(h.history)])
		}
	}
	sort.Slice(backlog, func(i, j int) bool { return backlog[i].Seq < backlog[j].Seq })

	h.clients[c] = struct{}{}
	return c, backlog
}

// detach removes c and returns how many entries it dropped.
func (h *streamHub) detach(c *streamClient) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	return c.dropped
}

func (c *streamClient) wants(topic string) bool {
	if len(c.patterns) == 0 {
		return true
	}
	for _, p := range c.patterns {
		if matchTopicPattern(p, topic) {
			return true
		}
	}
	return false
}

// matchTopicPattern reports whether a dot-separated topic matches pattern.
// "*" matches exactly one segment; a trailing ">" matches one or more.
func matchTopicPattern(pattern, topic string) bool {
	pats := strings.Split(pattern, ".")
	segs := strings.Split(topic, ".")
	if n := len(pats); pats[n-1] == ">" {
		if len(segs) < n {
			return false
		}
		pats, segs = pats[:n-1], segs[:n-1]
	}
	if len(pats) != len(segs) {
		return false
	}
	for i, p := range pats {
		if p != "*" && p != segs[i] {
			return false
		}
	}
	return true
}

func parseTopicPatterns(q string) []string {
	var out []string
	for _, p := range strings.Split(q, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// handleEventStream handles GET /v1/events/stream.
func (s *DashboardServer) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	var lastSeq uint64
	if v := r.Header.Get("Last-Event-ID"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid Last-Event-ID")
			return
		}
		lastSeq = n
	}

	viewer := viewerID(r)
	c, backlog := s.stream.attach(viewer, parseTopicPatterns(r.URL.Query().Get("topics")), lastSeq)
	s.viewers.StreamOpened(viewer)
	defer func() {
		s.viewers.StreamClosed(viewer)
		if dropped := s.stream.detach(c); dropped > 0 {
			s.logger.Warn("event stream fell behind", "viewer", viewer, "dropped", dropped)
		}
	}()

	hdr := w.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	for _, e := range backlog {
		writeStreamEntry(w, e)
	}
	flusher.Flush()

	keepalive := time.NewTicker(streamKeepalive)
	defer keepalive.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-c.queue:
			writeStreamEntry(w, e)
			flusher.Flush()
		case <-keepalive.C:
			io.WriteString(w, ":keepalive\n\n")
			flusher.Flush()
		}
	}
}

func writeStreamEntry(w io.Writer, e *streamEntry) {
	fmt.Fprintf(w, "id:%d\nevent:%s\ndata:%s\n\n", e.Seq, e.Topic, e.Data)
}
