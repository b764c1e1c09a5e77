// Package presence tracks who is viewing a dashboard session.
//
// The Tracker maintains an in-memory map of viewers, updated by the HTTP
// layer on every request and while event streams are open. A background
// reaper goroutine marks viewers as gone once they have been idle past a
// threshold with no stream open, and later evicts them.
package presence

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Entry is a single viewer's presence state.
type Entry struct {
	Viewer       string    `json:"viewer"`
	LastSeen     time.Time `json:"last_seen"`
	FirstSeen    time.Time `json:"first_seen"`
	LastRequest  string    `json:"last_request"`         // e.g. "POST /v1/events"
	UserAgent    string    `json:"user_agent,omitempty"` // last reported agent
	IdleSecs     float64   `json:"idle_secs"`
	RequestCount int64     `json:"request_count"`
	Streams      int       `json:"streams"` // open SSE connections
	Reaped       bool      `json:"reaped,omitempty"`
	ReapedAt     time.Time `json:"reaped_at,omitempty"`
	SessionSecs  float64   `json:"session_secs"`
}

// Request is what the tracker needs from one API request.
type Request struct {
	Viewer    string
	Method    string
	Path      string
	UserAgent string
}

// ReaperConfig configures the background idle-viewer reaper.
type ReaperConfig struct {
	// IdleThreshold is how long a viewer without an open stream may be idle
	// before being marked gone. Default: 5 minutes.
	IdleThreshold time.Duration

	// EvictAfter is how long after being reaped before a viewer is removed
	// from the map. Default: 15 minutes.
	EvictAfter time.Duration

	// SweepInterval is how often the reaper scans. Default: 30 seconds.
	SweepInterval time.Duration

	// OnGone is called for each viewer newly marked gone, outside the lock.
	OnGone func(viewer string)
}

// Tracker maintains an in-memory roster of viewers.
type Tracker struct {
	mu      sync.RWMutex
	viewers map[string]*viewerState
	started time.Time
	now     func() time.Time

	reaperStop chan struct{}
	reaperDone chan struct{}
}

type viewerState struct {
	firstSeen    time.Time
	lastSeen     time.Time
	lastRequest  string
	userAgent    string
	requestCount int64
	streams      int
	reaped       bool
	reapedAt     time.Time
}

// New creates a new presence tracker.
func New() *Tracker {
	return &Tracker{
		viewers: make(map[string]*viewerState),
		started: time.Now(),
		now:     time.Now,
	}
}

// touch returns the state for viewer, creating or reviving it. Callers hold
// the write lock.
func (t *Tracker) touch(viewer string, now time.Time) *viewerState {
	state, ok := t.viewers[viewer]
	if !ok {
		state = &viewerState{firstSeen: now}
		t.viewers[viewer] = state
	}
	if state.reaped {
		slog.Info("presence: viewer returned", "viewer", viewer)
		state.reaped = false
		state.reapedAt = time.Time{}
	}
	state.lastSeen = now
	return state
}

// Record updates the viewer's state for one request.
func (t *Tracker) Record(r Request) {
	if r.Viewer == "" {
		return
	}
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()

	state := t.touch(r.Viewer, now)
	state.requestCount++
	state.lastRequest = r.Method + " " + r.Path
	if r.UserAgent != "" {
		state.userAgent = r.UserAgent
	}
}

// StreamOpened marks an event stream as open for viewer. A viewer with an
// open stream is never reaped.
func (t *Tracker) StreamOpened(viewer string) {
	if viewer == "" {
		return
	}
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.touch(viewer, now).streams++
}

// StreamClosed undoes StreamOpened and counts as activity.
func (t *Tracker) StreamClosed(viewer string) {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	if state, ok := t.viewers[viewer]; ok {
		if state.streams > 0 {
			state.streams--
		}
		state.lastSeen = now
	}
}

// Roster returns a snapshot of all tracked viewers, most recently active
// first. Viewers idle longer than staleThreshold with no open stream are
// left out; pass 0 to include everyone.
func (t *Tracker) Roster(staleThreshold time.Duration) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := t.now()
	entries := make([]Entry, 0, len(t.viewers))
	for viewer, state := range t.viewers {
		idle := now.Sub(state.lastSeen)
		if state.streams > 0 {
			idle = 0
		}
		if staleThreshold > 0 && idle > staleThreshold {
			continue
		}
		firstSeen := state.firstSeen
		if firstSeen.IsZero() {
			firstSeen = t.started
		}
		entries = append(entries, Entry{
			Viewer:       viewer,
			LastSeen:     state.lastSeen,
			FirstSeen:    firstSeen,
			LastRequest:  state.lastRequest,
			UserAgent:    state.userAgent,
			IdleSecs:     idle.Seconds(),
			RequestCount: state.requestCount,
			Streams:      state.streams,
			Reaped:       state.reaped,
			ReapedAt:     state.reapedAt,
			SessionSecs:  now.Sub(firstSeen).Seconds(),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].LastSeen.Equal(entries[j].LastSeen) {
			return entries[i].LastSeen.After(entries[j].LastSeen)
		}
		return entries[i].Viewer < entries[j].Viewer
	})
	return entries
}

// StartReaper launches a background goroutine that periodically marks idle
// viewers as gone. Call Stop to shut it down.
func (t *Tracker) StartReaper(cfg *ReaperConfig) {
	cfg = withDefaults(cfg)
	t.reaperStop = make(chan struct{})
	t.reaperDone = make(chan struct{})

	go t.reapLoop(cfg)
	slog.Debug("presence: reaper started",
		"idle_threshold", cfg.IdleThreshold,
		"sweep_interval", cfg.SweepInterval)
}

func withDefaults(cfg *ReaperConfig) *ReaperConfig {
	out := ReaperConfig{}
	if cfg != nil {
		out = *cfg
	}
	if out.IdleThreshold == 0 {
		out.IdleThreshold = 5 * time.Minute
	}
	if out.EvictAfter == 0 {
		out.EvictAfter = 15 * time.Minute
	}
	if out.SweepInterval == 0 {
		out.SweepInterval = 30 * time.Second
	}
	return &out
}

// Stop shuts down the reaper goroutine.
func (t *Tracker) Stop() {
	if t.reaperStop != nil {
		close(t.reaperStop)
		<-t.reaperDone
		t.reaperStop = nil
		t.reaperDone = nil
	}
}

func (t *Tracker) reapLoop(cfg *ReaperConfig) {
	defer close(t.reaperDone)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.reaperStop:
			return
		case <-ticker.C:
			t.sweep(cfg)
		}
	}
}

func (t *Tracker) sweep(cfg *ReaperConfig) {
	now := t.now()
	var gone []string

	t.mu.Lock()
	for viewer, state := range t.viewers {
		if state.reaped {
			if !state.reapedAt.IsZero() && now.Sub(state.reapedAt) > cfg.EvictAfter {
				delete(t.viewers, viewer)
			}
			continue
		}
		if state.streams == 0 && now.Sub(state.lastSeen) > cfg.IdleThreshold {
			state.reaped = true
			state.reapedAt = now
			gone = append(gone, viewer)
		}
	}
	t.mu.Unlock()

	for _, viewer := range gone {
		slog.Info("presence: viewer gone", "viewer", viewer, "threshold", cfg.IdleThreshold)
		if cfg.OnGone != nil {
			cfg.OnGone(viewer)
		}
	}
}
