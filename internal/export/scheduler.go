package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/alfredjeanlab/unicorns/internal/derive"
	"github.com/alfredjeanlab/unicorns/internal/idgen"
)

// Destination is the interface for a snapshot target (file, S3).
type Destination interface {
	// Write sends the JSONL payload to the destination.
	Write(ctx context.Context, data []byte) error
}

// Source produces the datasets to snapshot. Sessions implement it by
// computing on their loop.
type Source func(ctx context.Context) (*derive.Datasets, error)

// FileDestination writes snapshots to a local file, replacing it atomically.
type FileDestination struct {
	Path string
}

func (d *FileDestination) Write(_ context.Context, data []byte) error {
	dir := filepath.Dir(d.Path)
	tmp, err := os.CreateTemp(dir, filepath.Base(d.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), d.Path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

func (d *FileDestination) String() string { return d.Path }

// Snapshot renders one JSONL snapshot from src and returns it with its id.
func Snapshot(ctx context.Context, src Source) (id string, data []byte, err error) {
	ds, err := src(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("compute datasets: %w", err)
	}
	id, err = idgen.GenerateWithPrefix(idgen.SnapshotPrefix)
	if err != nil {
		return "", nil, fmt.Errorf("snapshot id: %w", err)
	}
	var buf bytes.Buffer
	if err := ExportJSONL(ds, id, time.Now(), &buf); err != nil {
		return "", nil, err
	}
	return id, buf.Bytes(), nil
}

// Scheduler runs periodic snapshots to one or more destinations.
type Scheduler struct {
	source       Source
	destinations []Destination
	interval     time.Duration
	logger       *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler that snapshots src to the given
// destinations at the specified interval.
func NewScheduler(src Source, destinations []Destination, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		source:       src,
		destinations: destinations,
		interval:     interval,
		logger:       logger,
	}
}

// Start begins periodic snapshots. It runs one immediately, then on each
// tick.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop cancels the scheduler and waits for the current snapshot (if any) to
// finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce takes one snapshot and writes it to every destination. Failures
// are logged; a failing destination does not stop the others.
func (s *Scheduler) RunOnce(ctx context.Context) {
	id, data, err := Snapshot(ctx, s.source)
	if err != nil {
		s.logger.Error("snapshot failed", "err", err)
		return
	}

	for i, dest := range s.destinations {
		if err := dest.Write(ctx, data); err != nil {
			s.logger.Error("snapshot destination write failed", "destination", destName(i, dest), "err", err)
		}
	}

	s.logger.Info("snapshot completed", "id", id, "destinations", len(s.destinations), "bytes", len(data))
}

func destName(i int, d Destination) string {
	if s, ok := d.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%d", i)
}
