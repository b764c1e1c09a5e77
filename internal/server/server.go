package server

import (
	"context"
	"log/slog"
	"sort"

	"github.com/alfredjeanlab/unicorns/internal/dashboard"
	"github.com/alfredjeanlab/unicorns/internal/presence"
	"github.com/alfredjeanlab/unicorns/internal/render"
	"github.com/alfredjeanlab/unicorns/internal/view"
)

// EventTopicPrefix prefixes bus events on the event stream so that clients
// can tell them apart from paint updates ("frame.*", "positions.*",
// "tooltip.*").
const EventTopicPrefix = "events."

// DashboardServer exposes one dashboard session over HTTP. Paint updates
// from the recorder and every bus event are fanned out to stream clients.
type DashboardServer struct {
	session  *dashboard.Session
	recorder *render.Recorder
	stream   *streamHub
	viewers  *presence.Tracker
	logger   *slog.Logger

	cancels []func()
}

// NewDashboardServer wires the session's renderer and bus to a new stream hub
// and starts the viewer reaper. The bus subscription is installed on the
// session loop.
func NewDashboardServer(s *dashboard.Session, r *render.Recorder, logger *slog.Logger) (*DashboardServer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &DashboardServer{
		session:  s,
		recorder: r,
		stream:   newStreamHub(),
		viewers:  presence.New(),
		logger:   logger,
	}
	srv.viewers.StartReaper(&presence.ReaperConfig{
		OnGone: func(viewer string) {
			logger.Debug("viewer gone", "viewer", viewer)
		},
	})
	// Renders only happen on the session loop, so seeding the paint state
	// and subscribing there leaves no gap between the two.
	err := s.Do(context.Background(), func(c *dashboard.Coordinator) {
		srv.seed(r)
		srv.cancels = append(srv.cancels,
			r.Listen(srv.publishPaint),
			c.Bus().OnAny(func(topic string, payload any) error {
				if err := srv.stream.event(topic, payload); err != nil {
					logger.Warn("dropping bus event from stream", "topic", topic, "error", err)
				}
				return nil
			}),
		)
	})
	if err != nil {
		srv.Close()
		return nil, err
	}
	return srv, nil
}

// seed loads the frames and tooltip already painted before the server was
// attached.
func (s *DashboardServer) seed(r *render.Recorder) {
	frames := r.Frames()
	names := make([]view.Name, 0, len(frames))
	for name := range frames {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	for _, name := range names {
		s.publishPaint(render.Update{Kind: render.KindFrame, View: name, Frame: frames[name]})
	}
	if t, ok := r.Tooltip(); ok {
		s.publishPaint(render.Update{Kind: render.KindTooltipShow, Tooltip: &t})
	}
}

func (s *DashboardServer) publishPaint(u render.Update) {
	if err := s.stream.paint(u); err != nil {
		s.logger.Warn("dropping paint update", "topic", u.Topic(), "error", err)
	}
}

// Close detaches the server from the recorder and the bus and stops the
// viewer reaper.
func (s *DashboardServer) Close() {
	s.viewers.Stop()
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
}

// inputError indicates invalid user input.
// The HTTP layer maps this to 400.
type inputError string

func (e inputError) Error() string { return string(e) }
