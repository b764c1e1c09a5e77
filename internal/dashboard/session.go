package dashboard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alfredjeanlab/unicorns/internal/events"
	"github.com/alfredjeanlab/unicorns/internal/idgen"
	"github.com/alfredjeanlab/unicorns/internal/loop"
	"github.com/alfredjeanlab/unicorns/internal/store"
	"github.com/alfredjeanlab/unicorns/internal/view"
)

// Session runs a Coordinator on its own loop so that HTTP handlers, timers
// and the layout stepper never touch dashboard state concurrently.
type Session struct {
	ID string

	loop  *loop.Loop
	coord *Coordinator
}

// NewSession starts a loop, builds the coordinator on it and renders the
// initial state.
func NewSession(ctx context.Context, e *store.Entities, bus *events.Bus, r view.Renderer, opts Options, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	id, err := idgen.GenerateWithPrefix(idgen.SessionPrefix)
	if err != nil {
		return nil, fmt.Errorf("session id: %w", err)
	}
	logger = logger.With("session", id)

	l := loop.New(logger)
	l.Start()
	s := &Session{ID: id, loop: l}
	err = l.Do(ctx, func() {
		s.coord = New(e, bus, r, l, opts, logger)
		s.coord.Start()
	})
	if err != nil {
		l.Stop()
		return nil, fmt.Errorf("starting session: %w", err)
	}
	return s, nil
}

// Do runs f on the session loop with exclusive access to the coordinator
// and waits for it to return.
func (s *Session) Do(ctx context.Context, f func(c *Coordinator)) error {
	return s.loop.Do(ctx, func() { f(s.coord) })
}

// Close stops the layout and the loop.
func (s *Session) Close() {
	_ = s.loop.Do(context.Background(), s.coord.Close)
	s.loop.Stop()
}
