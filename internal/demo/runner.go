package demo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Robobluez/streamview/internal/stream"
)

// Item is a stream the runner can send.
type Item struct {
	Name   string
	Active bool
}

// Runner publishes the active streams of a scenario on every tick.
type Runner struct {
	scenario *Scenario
	pub      stream.Publisher
	frames   []FrameSource
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	graphsOn []bool
	videosOn []bool
	deg      float64

	sent   atomic.Uint64
	failed atomic.Uint64
}

// NewRunner prepares the frame generators of every video in s.
func NewRunner(s *Scenario, pub stream.Publisher, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &Runner{
		scenario: s,
		pub:      pub,
		logger:   logger,
		now:      time.Now,
		graphsOn: make([]bool, len(s.Graphs)),
		videosOn: make([]bool, len(s.Videos)),
	}
	for _, v := range s.Videos {
		src, err := NewFrameSource(v)
		if err != nil {
			return nil, fmt.Errorf("video %q: %w", v.Name, err)
		}
		r.frames = append(r.frames, src)
	}
	return r, nil
}

// Interval is the time between ticks.
func (r *Runner) Interval() time.Duration {
	return time.Duration(float64(time.Second) / r.scenario.Rate)
}

// Run ticks until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.Interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := r.Tick(); err != nil {
				r.logger.Warn("publish failed", "error", err)
			}
		}
	}
}

// Tick publishes one payload per kind, skipping kinds with nothing active,
// and advances the demo clock.
func (r *Runner) Tick() error {
	r.mu.Lock()
	deg := r.deg
	r.deg += r.scenario.Step
	graphs := make(stream.GraphPayload)
	for i, on := range r.graphsOn {
		if on {
			g := r.scenario.Graphs[i]
			graphs[g.Name] = g.Message(deg, r.now())
		}
	}
	videos := make(stream.VideoPayload)
	for i, on := range r.videosOn {
		if on {
			videos[r.scenario.Videos[i].Name] = r.frames[i].Next(deg)
		}
	}
	r.mu.Unlock()

	var errs []error
	if len(graphs) > 0 {
		errs = append(errs, r.count(r.pub.PublishGraph(graphs)))
	}
	if len(videos) > 0 {
		errs = append(errs, r.count(r.pub.PublishVideo(videos)))
	}
	return errors.Join(errs...)
}

func (r *Runner) count(err error) error {
	if err != nil {
		r.failed.Add(1)
		return err
	}
	r.sent.Add(1)
	return nil
}

// Toggle flips a stream on or off and reports its new state.
func (r *Runner) Toggle(kind string, idx int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	flags, err := r.flags(kind)
	if err != nil {
		return false, err
	}
	if idx < 0 || idx >= len(flags) {
		return false, fmt.Errorf("no %s stream at %d", kind, idx)
	}
	flags[idx] = !flags[idx]
	r.logger.Debug("stream toggled", "kind", kind, "index", idx, "active", flags[idx])
	return flags[idx], nil
}

// SetAll switches every stream on or off.
func (r *Runner) SetAll(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, flags := range [][]bool{r.graphsOn, r.videosOn} {
		for i := range flags {
			flags[i] = on
		}
	}
}

// Items lists the streams of a kind in scenario order.
func (r *Runner) Items(kind string) []Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	flags, err := r.flags(kind)
	if err != nil {
		return nil
	}
	out := make([]Item, len(flags))
	for i, on := range flags {
		if kind == stream.KindGraph {
			out[i] = Item{Name: r.scenario.Graphs[i].Name, Active: on}
		} else {
			out[i] = Item{Name: r.scenario.Videos[i].Name, Active: on}
		}
	}
	return out
}

// Stats returns how many publishes succeeded and failed.
func (r *Runner) Stats() (sent, failed uint64) {
	return r.sent.Load(), r.failed.Load()
}

func (r *Runner) flags(kind string) ([]bool, error) {
	switch kind {
	case stream.KindGraph:
		return r.graphsOn, nil
	case stream.KindVideo:
		return r.videosOn, nil
	}
	return nil, fmt.Errorf("unknown stream kind %q", kind)
}

