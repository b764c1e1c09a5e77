package presence

import (
	"sync"
	"testing"
	"time"
)

// fakeClock lets tests move the tracker's notion of now.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestTracker() (*Tracker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	tr := New()
	tr.now = clock.Now
	return tr, clock
}

func TestRecord_BasicTracking(t *testing.T) {
	tr, _ := newTestTracker()

	tr.Record(Request{Viewer: "10.0.0.1", Method: "GET", Path: "/v1/state", UserAgent: "curl/8.0"})

	roster := tr.Roster(0)
	if len(roster) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(roster))
	}
	e := roster[0]
	if e.Viewer != "10.0.0.1" {
		t.Errorf("expected viewer 10.0.0.1, got %s", e.Viewer)
	}
	if e.LastRequest != "GET /v1/state" {
		t.Errorf("expected last_request GET /v1/state, got %s", e.LastRequest)
	}
	if e.UserAgent != "curl/8.0" {
		t.Errorf("expected user agent curl/8.0, got %s", e.UserAgent)
	}
	if e.RequestCount != 1 {
		t.Errorf("expected request_count 1, got %d", e.RequestCount)
	}
}

func TestRecord_UpdatesExistingViewer(t *testing.T) {
	tr, clock := newTestTracker()

	tr.Record(Request{Viewer: "alice", Method: "GET", Path: "/v1/views", UserAgent: "unicorns-cli"})
	clock.Advance(time.Second)
	tr.Record(Request{Viewer: "alice", Method: "POST", Path: "/v1/events"})
	clock.Advance(time.Second)
	tr.Record(Request{Viewer: "alice", Method: "POST", Path: "/v1/interactions"})

	roster := tr.Roster(0)
	if len(roster) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(roster))
	}
	e := roster[0]
	if e.RequestCount != 3 {
		t.Errorf("expected 3 requests, got %d", e.RequestCount)
	}
	if e.LastRequest != "POST /v1/interactions" {
		t.Errorf("expected last request POST /v1/interactions, got %s", e.LastRequest)
	}
	// An empty agent keeps the last one reported.
	if e.UserAgent != "unicorns-cli" {
		t.Errorf("expected user agent kept, got %q", e.UserAgent)
	}
	if e.SessionSecs != 2 {
		t.Errorf("expected session_secs 2, got %v", e.SessionSecs)
	}
}

func TestRecord_IgnoresEmptyViewer(t *testing.T) {
	tr, _ := newTestTracker()

	tr.Record(Request{Method: "GET", Path: "/v1/state"})
	tr.StreamOpened("")

	if roster := tr.Roster(0); len(roster) != 0 {
		t.Fatalf("expected 0 entries for empty viewer, got %d", len(roster))
	}
}

func TestRoster_StaleThresholdAndOrder(t *testing.T) {
	tr, clock := newTestTracker()

	tr.Record(Request{Viewer: "old", Method: "GET", Path: "/v1/state"})
	clock.Advance(10 * time.Minute)
	tr.Record(Request{Viewer: "new", Method: "GET", Path: "/v1/state"})
	clock.Advance(time.Minute)

	all := tr.Roster(0)
	if len(all) != 2 || all[0].Viewer != "new" || all[1].Viewer != "old" {
		t.Fatalf("roster order = %+v", all)
	}

	fresh := tr.Roster(5 * time.Minute)
	if len(fresh) != 1 || fresh[0].Viewer != "new" {
		t.Fatalf("fresh roster = %+v", fresh)
	}
	if fresh[0].IdleSecs != 60 {
		t.Errorf("idle_secs = %v, want 60", fresh[0].IdleSecs)
	}
}

func TestStreams_KeepViewerPresent(t *testing.T) {
	tr, clock := newTestTracker()

	tr.StreamOpened("watcher")
	tr.StreamOpened("watcher")
	clock.Advance(time.Hour)

	roster := tr.Roster(time.Minute)
	if len(roster) != 1 || roster[0].Streams != 2 || roster[0].IdleSecs != 0 {
		t.Fatalf("roster = %+v", roster)
	}

	cfg := withDefaults(nil)
	tr.sweep(cfg)
	if roster := tr.Roster(0); roster[0].Reaped {
		t.Error("viewer with open streams was reaped")
	}

	tr.StreamClosed("watcher")
	tr.StreamClosed("watcher")
	tr.StreamClosed("watcher") // extra close is harmless
	if roster := tr.Roster(0); roster[0].Streams != 0 {
		t.Errorf("streams = %d, want 0", roster[0].Streams)
	}
}

func TestSweep_ReapsAndEvicts(t *testing.T) {
	tr, clock := newTestTracker()

	var gone []string
	cfg := withDefaults(&ReaperConfig{
		IdleThreshold: time.Minute,
		EvictAfter:    10 * time.Minute,
		OnGone:        func(v string) { gone = append(gone, v) },
	})

	tr.Record(Request{Viewer: "idle", Method: "GET", Path: "/v1/state"})
	clock.Advance(30 * time.Second)
	tr.Record(Request{Viewer: "busy", Method: "GET", Path: "/v1/state"})
	clock.Advance(45 * time.Second)

	tr.sweep(cfg)
	if len(gone) != 1 || gone[0] != "idle" {
		t.Fatalf("gone = %v, want [idle]", gone)
	}
	for _, e := range tr.Roster(0) {
		if (e.Viewer == "idle") != e.Reaped {
			t.Errorf("%s reaped = %v", e.Viewer, e.Reaped)
		}
	}

	// A second sweep does not report the viewer again.
	tr.sweep(cfg)
	if len(gone) != 1 {
		t.Fatalf("gone = %v", gone)
	}

	clock.Advance(11 * time.Minute)
	tr.sweep(cfg)
	roster := tr.Roster(0)
	if len(roster) != 1 || roster[0].Viewer != "busy" || !roster[0].Reaped {
		t.Fatalf("expected idle evicted and busy reaped, got %+v", roster)
	}

	clock.Advance(11 * time.Minute)
	tr.sweep(cfg)
	if roster := tr.Roster(0); len(roster) != 0 {
		t.Errorf("expected evicted viewers, got %+v", roster)
	}
}

func TestSweep_ReturningViewerIsRevived(t *testing.T) {
	tr, clock := newTestTracker()
	cfg := withDefaults(&ReaperConfig{IdleThreshold: time.Minute})

	tr.Record(Request{Viewer: "bob", Method: "GET", Path: "/v1/state"})
	clock.Advance(2 * time.Minute)
	tr.sweep(cfg)
	if !tr.Roster(0)[0].Reaped {
		t.Fatal("expected bob reaped")
	}

	tr.Record(Request{Viewer: "bob", Method: "GET", Path: "/v1/views"})
	e := tr.Roster(0)[0]
	if e.Reaped || !e.ReapedAt.IsZero() {
		t.Errorf("expected bob revived, got %+v", e)
	}
	if e.RequestCount != 2 {
		t.Errorf("request_count = %d, want 2", e.RequestCount)
	}
}

func TestStartReaper_Stop(t *testing.T) {
	tr := New()
	tr.StartReaper(&ReaperConfig{SweepInterval: time.Millisecond})
	time.Sleep(5 * time.Millisecond)
	tr.Stop()
	// Stop is idempotent.
	tr.Stop()
}
