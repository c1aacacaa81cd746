// Package viewer composes the video grid and the graph panels onto one
// canvas and paces the composed frames.
package viewer

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"maps"
	"math"
	"slices"
	"time"

	"github.com/Robobluez/streamview/internal/canvas"
	"github.com/Robobluez/streamview/internal/graph"
	"github.com/Robobluez/streamview/internal/metrics"
	"github.com/Robobluez/streamview/internal/output"
	"github.com/Robobluez/streamview/internal/stream"
	"github.com/Robobluez/streamview/internal/video"
)

// DefaultLeader is shown until the first stream arrives.
const DefaultLeader = "Waiting for streaming data .."

const leaderFontSize = 24.0

// Config sizes the canvas and its grids.
type Config struct {
	Width     int
	Height    int
	FPS       int
	GraphCols int
	VideoCols int
	ColorModel video.ColorModel

	// Recorded frames and snapshots go below VideoPath.
	VideoPath   string
	Format      string
	JPEGQuality int
	Record      bool

	Leader string
}

// Sources are the inputs polled on every step. Either may be nil.
type Sources struct {
	Graph stream.GraphSource
	Video stream.VideoSource
}

// Presenter receives every composed frame.
type Presenter interface {
	Publish(img image.Image) error
}

// Stats describes the current state of the canvas.
type Stats struct {
	Videos        []string
	Graphs        []string
	BlockedVideos []string
	BlockedGraphs []string

	Presented uint64
	Recorded  uint64
	Failed    uint64
	Recording bool
	RecordDir string

	// Waiting is true until the first payload arrives.
	Waiting bool
}

// Viewer owns the canvas and everything drawn on it. It is not safe for
// concurrent use; a single loop calls Step.
type Viewer struct {
	cfg     Config
	sources Sources
	logger  *slog.Logger
	metrics *metrics.Metrics
	present Presenter

	canvas *image.RGBA
	root   *canvas.Box
	videos *video.Set
	panels *graph.Panels

	now         time.Time
	base        time.Time
	lastSnapped int
	presented   uint64
	waiting     bool

	recorder *output.Recorder
	recorded uint64
	failed   uint64

	graphReflows int
	videoReflows int
}

// Option configures a Viewer.
type Option func(*Viewer)

// WithPresenter hands every composed frame to p.
func WithPresenter(p Presenter) Option {
	return func(v *Viewer) { v.present = p }
}

// New builds the canvas and draws the leader text. Recording starts right
// away when cfg.Record is set.
func New(cfg Config, sources Sources, logger *slog.Logger, m *metrics.Metrics, opts ...Option) (*Viewer, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.FPS <= 0 {
		return nil, fmt.Errorf("fps must be positive, got %d", cfg.FPS)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Leader == "" {
		cfg.Leader = DefaultLeader
	}

	v := &Viewer{
		cfg:     cfg,
		sources: sources,
		logger:  logger,
		metrics: m,
		canvas:  canvas.NewSurface(cfg.Width, cfg.Height, 255),
		waiting: true,
	}
	for _, opt := range opts {
		opt(v)
	}

	v.root = canvas.NewBox(v.canvas, "", 0, 0, cfg.Width, cfg.Height)
	videoBox := canvas.NewBox(v.canvas, "", v.root.InnerX(), v.root.InnerY(), v.root.InnerWidth(), 0)
	v.videos = video.NewSet(v.canvas, videoBox, cfg.VideoCols, cfg.ColorModel, logger)
	v.newPanels(0)
	v.drawLeader()

	if cfg.Record {
		if _, err := v.StartRecording(time.Now()); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (v *Viewer) newPanels(top int) {
	height := max(0, v.root.InnerHeight()-top)
	box := canvas.NewBox(v.canvas, "", v.root.InnerX(), v.root.InnerY()+top, v.root.InnerWidth(), height)
	v.panels = graph.NewPanels(v.canvas, box, v.cfg.GraphCols, v.logger,
		graph.WithClock(func() time.Time { return v.now }))
	v.graphReflows = 0
}

func (v *Viewer) drawLeader() {
	w, _ := canvas.TextSize(v.cfg.Leader, leaderFontSize)
	x := v.root.InnerWidth()/2 - w/2
	y := v.root.InnerHeight() / 2
	v.root.DrawTextCanvas(v.cfg.Leader, x, y, leaderFontSize, canvas.Black)
}

// Step drains both sources, routes every stream to its grid and composes
// a frame when one is due. It reports whether a frame was composed.
func (v *Viewer) Step(now time.Time) bool {
	v.now = now

	if v.sources.Graph != nil {
		for {
			payload, ok := v.sources.Graph.Read()
			if !ok {
				break
			}
			v.waiting = false
			for _, name := range slices.Sorted(maps.Keys(payload)) {
				v.panels.Update(name, payload[name])
			}
		}
	}

	if v.sources.Video != nil {
		if payload, ok := v.sources.Video.Read(); ok {
			v.waiting = false
			for _, name := range slices.Sorted(maps.Keys(payload)) {
				v.videos.Update(name, payload[name], v.root.Wipe)
				if v.videos.Redrawn() {
					v.newPanels(v.videos.Height())
				}
			}
		}
	}

	v.recordLayout()
	return v.snap(now)
}

// Run steps the viewer every interval until ctx is done. The terminal UI
// drives Step itself; Run serves headless operation.
func (v *Viewer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			v.Step(now)
		}
	}
}

func (v *Viewer) recordLayout() {
	if v.metrics == nil {
		return
	}
	v.metrics.RecordLayout(stream.KindGraph, v.panels.Count(), len(v.panels.Blocked()), v.panels.Reflows()-v.graphReflows)
	v.metrics.RecordLayout(stream.KindVideo, v.videos.Count(), len(v.videos.Blocked()), v.videos.Reflows()-v.videoReflows)
	v.graphReflows = v.panels.Reflows()
	v.videoReflows = v.videos.Reflows()
}

// snap composes a frame whenever the frame number derived from the elapsed
// time advances.
func (v *Viewer) snap(now time.Time) bool {
	if v.base.IsZero() {
		v.base = now
	}
	snapped := int(math.Round(now.Sub(v.base).Seconds() * float64(v.cfg.FPS)))
	if snapped <= v.lastSnapped {
		return false
	}
	v.lastSnapped = snapped
	v.compose()
	return true
}

func (v *Viewer) compose() {
	start := time.Now()
	v.videos.Flush()
	v.panels.Flush()
	v.presented++
	if v.metrics != nil {
		v.metrics.RecordFrame(time.Since(start))
	}

	if v.present != nil {
		if err := v.present.Publish(v.canvas); err != nil {
			v.logger.Warn("cannot present frame", "error", err)
		}
	}
	if v.recorder != nil {
		_, err := v.recorder.Save(v.canvas)
		if err != nil {
			v.failed++
			v.logger.Warn("cannot record frame", "dir", v.recorder.Dir(), "error", err)
		} else {
			v.recorded++
		}
		if v.metrics != nil {
			v.metrics.RecordSaved(err)
		}
	}
}

// StartRecording begins a new recording session and returns its directory.
func (v *Viewer) StartRecording(now time.Time) (string, error) {
	if v.recorder != nil {
		return v.recorder.Dir(), nil
	}
	rec, err := output.NewRecorder(v.cfg.VideoPath, v.cfg.Format, v.cfg.JPEGQuality, now)
	if err != nil {
		return "", fmt.Errorf("start recording: %w", err)
	}
	v.recorder = rec
	v.logger.Info("recording started", "dir", rec.Dir())
	return rec.Dir(), nil
}

// StopRecording ends the current session, if any.
func (v *Viewer) StopRecording() {
	if v.recorder == nil {
		return
	}
	saved, failed := v.recorder.Stats()
	v.logger.Info("recording stopped", "dir", v.recorder.Dir(), "saved", saved, "failed", failed)
	v.recorder = nil
}

// Recording reports whether composed frames are being written to disk.
func (v *Viewer) Recording() bool { return v.recorder != nil }

// SaveSnapshot writes the current canvas to a single image file.
func (v *Viewer) SaveSnapshot(now time.Time) (string, error) {
	return output.SaveSnapshot(v.cfg.VideoPath, v.cfg.Format, v.cfg.JPEGQuality, v.Snapshot(), now)
}

// Snapshot returns a copy of the canvas.
func (v *Viewer) Snapshot() *image.RGBA { return canvas.Clone(v.canvas) }

// Panels returns the graph grid. It is replaced whenever the video grid
// is rebuilt.
func (v *Viewer) Panels() *graph.Panels { return v.panels }

// Videos returns the video grid.
func (v *Viewer) Videos() *video.Set { return v.videos }

// Stats returns the current stream and frame counters.
func (v *Viewer) Stats() Stats {
	s := Stats{
		Videos:        v.videos.Names(),
		Graphs:        v.panels.Names(),
		BlockedVideos: v.videos.Blocked(),
		BlockedGraphs: v.panels.Blocked(),
		Presented:     v.presented,
		Recorded:      v.recorded,
		Failed:        v.failed,
		Recording:     v.recorder != nil,
		Waiting:       v.waiting,
	}
	if v.recorder != nil {
		s.RecordDir = v.recorder.Dir()
	}
	return s
}
