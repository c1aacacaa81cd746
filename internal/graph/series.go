package graph

import (
	"image"
	"image/color"

	"github.com/Robobluez/streamview/internal/canvas"
)

const unset = -1

// Series draws one channel into the rightmost column of a graph surface,
// connecting each sample to the previous one of the same line.
type Series struct {
	name  string
	scale *Scale
	color color.RGBA
	prev  []int
}

// NewSeries returns a series plotted against scale.
func NewSeries(name string, scale *Scale, c color.RGBA) *Series {
	return &Series{name: name, scale: scale, color: c}
}

func (s *Series) Name() string      { return s.name }
func (s *Series) Color() color.RGBA { return s.color }

// Update plots values, one line per element. Values outside the scale are
// skipped and leave the remembered row of their line untouched.
func (s *Series) Update(surface *image.RGBA, values []float64) {
	for len(s.prev) < len(values) {
		s.prev = append(s.prev, unset)
	}
	b := surface.Bounds()
	x := b.Dx() - 1
	for i, v := range values {
		y, ok := s.scale.Pixel(v)
		if !ok || y < 0 || y >= b.Dy() {
			continue
		}
		if p := s.prev[i]; p != unset {
			canvas.VLine(surface, x, min(y, p), max(y, p)+1, s.color)
		}
		s.prev[i] = y
	}
}
