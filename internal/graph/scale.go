package graph

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/Robobluez/streamview/internal/canvas"
)

// Side is the side of the graph a scale sits on.
type Side int

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

const (
	scaleFontSize  = 8.0
	scaleTitleSize = scaleFontSize * 1.3
)

var (
	tickCounts = []int{1, 2, 3, 5, 10, 20}
	stepUnits  = []float64{1, 2, 5, 10}
)

// Scale holds the tick layout of one vertical axis and renders it into its
// box. It is immutable after construction except for the grid roll index.
type Scale struct {
	box   *canvas.Box
	side  Side
	min   float64
	max   float64
	label string

	height      int
	labelHeight int
	gridMargin  int
	gridHeight  int

	labels []string
	steps  []int

	rollIdx int
}

// NewScale computes the ticks for def within box and renders the axis. It
// panics if the range is empty or the box is too short for two ticks.
func NewScale(def RangeDef, box *canvas.Box, side Side) *Scale {
	lo, hi := def.Bounds()
	if !(lo < hi) {
		panic(fmt.Sprintf("graph: %s scale with empty range [%g, %g]", side, lo, hi))
	}
	_, lh := canvas.TextSize("0123456789", scaleFontSize)
	s := &Scale{
		box:         box,
		side:        side,
		min:         lo,
		max:         hi,
		label:       def.Label,
		height:      box.InnerHeight(),
		labelHeight: lh,
		gridMargin:  lh,
	}
	s.gridHeight = s.height - 2*s.gridMargin

	s.labels = autoLabels(lo, hi, s.gridHeight, lh)
	if len(s.labels) < 2 {
		panic(fmt.Sprintf("graph: %s scale %q has no room for ticks (grid height %d)", side, def.Label, s.gridHeight))
	}
	stepCount := len(s.labels) - 1
	s.steps = make([]int, len(s.labels))
	for i := range s.steps {
		s.steps[i] = int(float64(i)*(float64(s.gridHeight)/float64(stepCount)) + float64(s.gridMargin))
	}

	s.render()
	return s
}

// autoLabels picks a tick count that fits gridHeight and a 1-2-5 step, and
// returns the tick labels. It returns nil when fewer than two ticks fit.
func autoLabels(lo, hi float64, gridHeight, labelHeight int) []string {
	if labelHeight <= 0 || gridHeight <= 0 {
		return nil
	}
	limit := int(math.Round(0.6 * float64(gridHeight) / float64(labelHeight)))
	count := 0
	for _, c := range tickCounts {
		if c < limit {
			count = c
		}
	}
	if count <= 1 {
		return nil
	}

	step := niceStep((hi - lo) / float64(count))
	first := int(math.Floor(lo / step))
	last := int(math.Ceil(hi / step))
	labels := make([]string, 0, last-first+1)
	for i := first; i <= last; i++ {
		labels = append(labels, fmt.Sprintf("%.4g", float64(i)*step))
	}
	return labels
}

// niceStep returns the smallest of 1, 2, 5 or 10 times a power of ten that is
// not below diff.
func niceStep(diff float64) float64 {
	base := math.Pow10(int(math.Floor(math.Log10(diff))))
	for _, u := range stepUnits {
		if u*base >= diff {
			return u * base
		}
	}
	return 10 * base
}

func (s *Scale) render() {
	if s.box.ForceSurface() == nil {
		return
	}
	if s.label != "" {
		lw, lh := canvas.TextSize(s.label, scaleTitleSize)
		x := max(0, s.box.InnerHeight()/2-lw/2)
		y := lh
		if s.side == Right {
			y = s.box.InnerWidth() - 2
		}
		s.box.DrawText(s.label, x, y, scaleTitleSize, canvas.LabelGrey, canvas.Rot90)
	}

	for i, label := range s.labels {
		w, h := canvas.TextSize(label, scaleFontSize)
		x := 2
		if s.side == Left {
			x = max(0, s.box.InnerWidth()-w-2)
		}
		y := s.height - s.steps[i] + h/2
		s.box.DrawText(label, x, y, scaleFontSize, canvas.LabelGrey, canvas.Rot0)
	}

	surface := s.box.Surface()
	col := 0
	if s.side == Left {
		col = surface.Bounds().Dx() - 1
	}
	canvas.VLine(surface, col, 0, surface.Bounds().Dy(), canvas.LabelGrey)
}

// Row maps v to a row counted upward from the bottom of the surface. ok is
// false for values outside the range.
func (s *Scale) Row(v float64) (row int, ok bool) {
	if math.IsNaN(v) || v < s.min || v > s.max {
		return 0, false
	}
	return s.gridMargin + int(math.Round((v-s.min)/(s.max-s.min)*float64(s.gridHeight))), true
}

// Pixel maps v to the y coordinate on a surface of the scale's height.
func (s *Scale) Pixel(v float64) (y int, ok bool) {
	row, ok := s.Row(v)
	if !ok {
		return 0, false
	}
	return s.height - row, true
}

func (s *Scale) tickY(i int) int { return s.height - s.steps[i] }

func (s *Scale) tickColor(i int) color.RGBA {
	if i%2 == 0 {
		return canvas.GridMajor
	}
	return canvas.GridMinor
}

// InitGrid paints the initial grid onto a graph surface: a grey column every
// 10 pixels and a silver one every 20, counted from the right, and the tick
// lines.
func (s *Scale) InitGrid(surface *image.RGBA) {
	b := surface.Bounds()
	for x := b.Dx() - 1; x >= 0; x -= 10 {
		canvas.VLine(surface, x, 0, b.Dy(), canvas.GridMinor)
	}
	for x := b.Dx() - 1; x >= 0; x -= 20 {
		canvas.VLine(surface, x, 0, b.Dy(), canvas.GridMajor)
	}
	for i := range s.steps {
		if y := s.tickY(i); y >= 0 && y < b.Dy() {
			canvas.HLine(surface, y, 0, b.Dx(), s.tickColor(i))
		}
	}
}

// RollGrid paints the grid into the rightmost column after a scroll.
func (s *Scale) RollGrid(surface *image.RGBA) {
	b := surface.Bounds()
	x := b.Dx() - 1
	switch {
	case s.rollIdx%20 == 0:
		canvas.VLine(surface, x, 0, b.Dy(), canvas.GridMajor)
	case s.rollIdx%10 == 0:
		canvas.VLine(surface, x, 0, b.Dy(), canvas.GridMinor)
	default:
		for i := range s.steps {
			if y := s.tickY(i); y >= 0 && y < b.Dy() {
				surface.SetRGBA(x, y, s.tickColor(i))
			}
		}
	}
	s.rollIdx++
}

// Labels returns the tick labels, lowest first.
func (s *Scale) Labels() []string { return s.labels }

// Steps returns the tick offsets from the bottom of the surface.
func (s *Scale) Steps() []int { return s.steps }

// Range returns the resolved bounds.
func (s *Scale) Range() (lo, hi float64) { return s.min, s.max }

// GridMargin is the space kept free above and below the grid.
func (s *Scale) GridMargin() int { return s.gridMargin }

// GridHeight is the height of the plotted value range.
func (s *Scale) GridHeight() int { return s.gridHeight }

// Flush blits the scale onto the canvas.
func (s *Scale) Flush() { s.box.Flush() }
