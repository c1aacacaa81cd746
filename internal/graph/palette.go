package graph

import "image/color"

// DefaultColors are handed out to channels in this order.
var DefaultColors = []color.RGBA{
	{R: 255, A: 255},                // red
	{R: 255, G: 165, A: 255},        // orange
	{R: 64, G: 64, B: 64, A: 255},   // lead
	{R: 255, G: 86, B: 255, A: 255}, // ultimate pink
	{G: 192, A: 255},                // waystone green
	{B: 128, A: 255},                // navy blue
}

// Palette hands out each of its colors once.
type Palette struct {
	colors []color.RGBA
	next   int
}

// NewPalette returns a palette over colors, or DefaultColors if none given.
func NewPalette(colors ...color.RGBA) *Palette {
	if len(colors) == 0 {
		colors = DefaultColors
	}
	return &Palette{colors: colors}
}

// Next returns the next unused color. ok is false once the palette is spent.
func (p *Palette) Next() (c color.RGBA, ok bool) {
	if p.next >= len(p.colors) {
		return color.RGBA{}, false
	}
	c = p.colors[p.next]
	p.next++
	return c, true
}

// Remaining returns how many colors are left.
func (p *Palette) Remaining() int { return len(p.colors) - p.next }
