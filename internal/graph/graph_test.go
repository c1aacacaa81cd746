package graph

import (
	"fmt"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Robobluez/streamview/internal/canvas"
)

func TestPaletteExhaustion(t *testing.T) {
	p := NewPalette()
	for i := 0; i < len(DefaultColors); i++ {
		c, ok := p.Next()
		require.True(t, ok)
		assert.Equal(t, DefaultColors[i], c)
	}
	assert.Equal(t, 0, p.Remaining())
	_, ok := p.Next()
	assert.False(t, ok)
}

func TestSeriesConnectsSamples(t *testing.T) {
	box := newScaleBox(200)
	s := NewScale(RangeDef{Min: Float(0), Max: Float(1)}, box, Left)
	surface := canvas.NewSurface(50, box.InnerHeight(), 255)
	red := color.RGBA{R: 255, A: 255}
	series := NewSeries("a", s, red)

	top, _ := s.Pixel(1)
	bottom, _ := s.Pixel(0)

	series.Update(surface, []float64{1})
	assert.Equal(t, canvas.White, surface.RGBAAt(49, top), "first sample only remembers its row")

	series.Update(surface, []float64{1})
	assert.Equal(t, red, surface.RGBAAt(49, top))

	// out of range: skipped, remembered row stays at the top
	canvas.Fill(surface, surface.Bounds(), canvas.White)
	series.Update(surface, []float64{5})
	assert.Equal(t, canvas.White, surface.RGBAAt(49, top))

	series.Update(surface, []float64{0})
	assert.Equal(t, red, surface.RGBAAt(49, top))
	assert.Equal(t, red, surface.RGBAAt(49, (top+bottom)/2))
	assert.Equal(t, red, surface.RGBAAt(49, bottom))
	assert.Equal(t, canvas.White, surface.RGBAAt(48, bottom))
}

func TestSeriesGrowsLines(t *testing.T) {
	box := newScaleBox(200)
	s := NewScale(RangeDef{Min: Float(0), Max: Float(1)}, box, Left)
	surface := canvas.NewSurface(10, box.InnerHeight(), 255)
	series := NewSeries("multi", s, DefaultColors[0])

	series.Update(surface, []float64{0})
	series.Update(surface, []float64{0, 1})
	series.Update(surface, []float64{0, 1, 0.5})
	assert.Len(t, series.prev, 3)

	series.Update(surface, []float64{0, 1, 0.5})
	top, _ := s.Pixel(1)
	mid, _ := s.Pixel(0.5)
	assert.Equal(t, DefaultColors[0], surface.RGBAAt(9, top))
	assert.Equal(t, DefaultColors[0], surface.RGBAAt(9, mid))
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestGraph(t *testing.T, clock *fakeClock) (*Graph, *canvas.Box) {
	t.Helper()
	c := canvas.NewSurface(400, 300, 255)
	lbox := canvas.NewBox(c, "", 0, 0, scaleWidth, 200, canvas.Margins(1, 0))
	rbox := canvas.NewBox(c, "", 364, 0, scaleWidth, 200, canvas.Margins(1, 0))
	gbox := canvas.NewBox(c, "", scaleWidth, 0, 400-2*scaleWidth, 200, canvas.Margins(1, 0))
	g := NewGraph("test", gbox, NewScale(RangeDef{}, lbox, Left), NewScale(RangeDef{}, rbox, Right), NewPalette(), discardLogger(), clock.Now)
	return g, gbox
}

func TestGraphColorsAndSkips(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	g, _ := newTestGraph(t, clock)

	left := make([]Channel, 0, 4)
	for i := range 4 {
		left = append(left, Channel{Name: fmt.Sprintf("l%d", i), Values: []float64{0}})
	}
	right := make([]Channel, 0, 4)
	for i := range 4 {
		right = append(right, Channel{Name: fmt.Sprintf("r%d", i), Values: []float64{0}})
	}
	msg := &Message{Left: left, Right: right}
	g.Update(msg)
	g.Update(msg)

	assert.Equal(t, []string{"l0", "l1", "l2", "l3"}, g.Channels(Left))
	assert.Equal(t, []string{"r0", "r1"}, g.Channels(Right))
	assert.True(t, g.Skipped("r2"))
	assert.True(t, g.Skipped("r3"))
	assert.False(t, g.Skipped("l0"))
	assert.Equal(t, DefaultColors[4], g.rightVars.byName["r0"].Color())
}

func TestGraphSeventhChannelSkippedForever(t *testing.T) {
	g, _ := newTestGraph(t, &fakeClock{t: time.Unix(0, 0)})

	var chans []Channel
	for i := range 7 {
		chans = append(chans, Channel{Name: fmt.Sprintf("c%d", i), Values: []float64{0}})
	}
	for range 5 {
		g.Update(&Message{Left: chans})
	}
	assert.Len(t, g.Channels(Left), 6)
	assert.True(t, g.Skipped("c6"))
}

func TestGraphDataVariables(t *testing.T) {
	g, _ := newTestGraph(t, &fakeClock{t: time.Unix(0, 0)})

	g.Update(&Message{Data: []Datum{{"speed", 1.5}, {"temp", -20}}})
	g.Update(&Message{Data: []Datum{{"temp", 3.14159}, {"load", 0}}})

	v, ok := g.Data("speed")
	require.True(t, ok)
	assert.Equal(t, " 1.50", v)
	v, _ = g.Data("temp")
	assert.Equal(t, " 3.14", v)
	v, _ = g.Data("load")
	assert.Equal(t, " 0.00", v)

	names := make([]string, 0, len(g.dataVars))
	for _, d := range g.dataVars {
		names = append(names, d.name)
	}
	assert.Equal(t, []string{"speed", "temp", "load"}, names)
}

func TestGraphScrolls(t *testing.T) {
	g, gbox := newTestGraph(t, &fakeClock{t: time.Unix(0, 0)})
	surface := gbox.Surface()
	require.NotNil(t, surface)
	w := surface.Bounds().Dx()

	y, _ := g.left.Pixel(1)
	g.Update(&Message{Left: []Channel{{"a", []float64{1}}}})
	g.Update(&Message{Left: []Channel{{"a", []float64{1}}}})

	surface = gbox.Surface()
	// drawn in the last column, then scrolled one pixel left
	assert.Equal(t, DefaultColors[0], surface.RGBAAt(w-2, y))
}

func TestGraphElapsedLabel(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	g, _ := newTestGraph(t, clock)

	g.Update(&Message{})
	assert.Equal(t, 0, g.basePix)

	clock.Advance(2 * time.Second)
	g.Update(&Message{})
	require.Positive(t, g.basePix)
	assert.Equal(t, 2, g.lastLapsed)

	pix := g.basePix
	clock.Advance(time.Second)
	g.Update(&Message{})
	assert.Equal(t, pix-1, g.basePix, "label suppressed while the previous one is in view")
	assert.Equal(t, 3, g.lastLapsed)
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "0:05", FormatElapsed(5))
	assert.Equal(t, "1:05", FormatElapsed(65))
	assert.Equal(t, "60:00", FormatElapsed(3600))
	assert.Equal(t, "1:02:05", FormatElapsed(3725))
}

func TestGraphFirstChannelDrawnOnTop(t *testing.T) {
	g, gbox := newTestGraph(t, &fakeClock{t: time.Unix(0, 0)})

	msg := &Message{Left: []Channel{
		{Name: "first", Values: []float64{0.3}},
		{Name: "second", Values: []float64{0.3}},
	}}
	g.Update(msg)
	g.Update(msg)

	y, ok := g.left.Pixel(0.3)
	require.True(t, ok)
	surface := gbox.Surface()
	got := surface.RGBAAt(surface.Bounds().Dx()-2, y)
	assert.Equal(t, DefaultColors[0], got)
	assert.NotEqual(t, DefaultColors[1], got)
}
