package viewer

import (
	"context"
	"image"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Robobluez/streamview/internal/graph"
	"github.com/Robobluez/streamview/internal/metrics"
	"github.com/Robobluez/streamview/internal/stream"
	"github.com/Robobluez/streamview/internal/video"
)

// queue is an in-memory source.
type queue[T any] struct {
	items  []T
	closed bool
}

func (q *queue[T]) push(v T) { q.items = append(q.items, v) }

func (q *queue[T]) Read() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	v := q.items[0]
	q.items = q.items[1:]
	return v, true
}

func (q *queue[T]) Close() error { q.closed = true; return nil }

type countingPresenter struct{ frames int }

func (p *countingPresenter) Publish(image.Image) error { p.frames++; return nil }

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testConfig(t *testing.T) Config {
	return Config{
		Width:      800,
		Height:     680,
		FPS:        10,
		GraphCols:  1,
		VideoCols:  2,
		ColorModel: video.RGB,
		VideoPath:  t.TempDir(),
		Format:     "png",
	}
}

func newTestViewer(t *testing.T, cfg Config, opts ...Option) (*Viewer, *queue[stream.GraphPayload], *queue[stream.VideoPayload]) {
	t.Helper()
	g := &queue[stream.GraphPayload]{}
	vq := &queue[stream.VideoPayload]{}
	v, err := New(cfg, Sources{Graph: g, Video: vq}, nil, nil, opts...)
	require.NoError(t, err)
	return v, g, vq
}

func graphPayload(names ...string) stream.GraphPayload {
	p := stream.GraphPayload{}
	for _, n := range names {
		p[n] = &graph.Message{Left: []graph.Channel{{Name: "x", Values: []float64{0.25}}}}
	}
	return p
}

func nonWhite(img *image.RGBA, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c := img.RGBAAt(x, y)
			if c.R != 255 || c.G != 255 || c.B != 255 {
				n++
			}
		}
	}
	return n
}

func TestNewDrawsLeader(t *testing.T) {
	v, _, _ := newTestViewer(t, testConfig(t))

	snap := v.Snapshot()
	assert.Equal(t, image.Rect(0, 0, 800, 680), snap.Bounds())
	assert.Positive(t, nonWhite(snap, image.Rect(200, 300, 600, 350)))
	assert.Zero(t, nonWhite(snap, image.Rect(0, 0, 800, 100)))
	assert.True(t, v.Stats().Waiting)
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.FPS = 0
	_, err := New(cfg, Sources{}, nil, nil)
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.Format = "tiff"
	cfg.Record = true
	_, err = New(cfg, Sources{}, nil, nil)
	assert.Error(t, err)
}

func TestStepRoutesGraphs(t *testing.T) {
	v, g, _ := newTestViewer(t, testConfig(t))
	g.push(graphPayload("b", "a"))
	g.push(graphPayload("a"))

	v.Step(t0)

	assert.Equal(t, []string{"a", "b"}, v.Stats().Graphs)
	assert.False(t, v.Stats().Waiting)
	assert.Empty(t, g.items)
}

func TestVideoRebuildMovesGraphsDown(t *testing.T) {
	v, g, vq := newTestViewer(t, testConfig(t))
	g.push(graphPayload("a"))
	v.Step(t0)
	require.Equal(t, 1, v.Panels().Count())

	vq.push(stream.VideoPayload{"cam": image.NewRGBA(image.Rect(0, 0, 320, 240))})
	v.Step(t0.Add(time.Millisecond))

	assert.Equal(t, []string{"cam"}, v.Stats().Videos)
	height := v.Videos().Height()
	require.Positive(t, height)
	// the graph grid was replaced and starts empty below the videos
	assert.Zero(t, v.Panels().Count())

	g.push(graphPayload("a"))
	v.Step(t0.Add(2 * time.Millisecond))
	panel, ok := v.Panels().Panel("a")
	require.True(t, ok)
	assert.Equal(t, height, panel.Box().Y())
}

func TestSnapPacing(t *testing.T) {
	p := &countingPresenter{}
	v, _, _ := newTestViewer(t, testConfig(t), WithPresenter(p))

	assert.False(t, v.Step(t0))
	assert.True(t, v.Step(t0.Add(100*time.Millisecond)))
	assert.False(t, v.Step(t0.Add(120*time.Millisecond)))
	assert.True(t, v.Step(t0.Add(260*time.Millisecond)))
	assert.False(t, v.Step(t0.Add(270*time.Millisecond)))

	assert.Equal(t, 2, p.frames)
	assert.Equal(t, uint64(2), v.Stats().Presented)
}

func TestRecording(t *testing.T) {
	cfg := testConfig(t)
	cfg.Record = true
	v, _, _ := newTestViewer(t, cfg)
	require.True(t, v.Recording())
	dir := v.Stats().RecordDir

	v.Step(t0)
	v.Step(t0.Add(time.Second))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, uint64(1), v.Stats().Recorded)

	v.StopRecording()
	assert.False(t, v.Recording())
	v.Step(t0.Add(2 * time.Second))
	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSaveSnapshot(t *testing.T) {
	v, _, _ := newTestViewer(t, testConfig(t))
	path, err := v.SaveSnapshot(t0)
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestStepRecordsMetrics(t *testing.T) {
	m := metrics.New()
	g := &queue[stream.GraphPayload]{}
	v, err := New(testConfig(t), Sources{Graph: g}, nil, m)
	require.NoError(t, err)

	g.push(graphPayload("a", "b"))
	v.Step(t0)
	v.Step(t0.Add(time.Second))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ActiveStreams.WithLabelValues(stream.KindGraph)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Reflows.WithLabelValues(stream.KindGraph)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FramesPresented))
}

func TestRunStepsUntilCancelled(t *testing.T) {
	v, g, _ := newTestViewer(t, testConfig(t))
	g.push(graphPayload("a"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	v.Run(ctx, 5*time.Millisecond)

	assert.Equal(t, []string{"a"}, v.Stats().Graphs)
	assert.Empty(t, g.items)
}
