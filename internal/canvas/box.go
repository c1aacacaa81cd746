// Package canvas implements rectangular regions on a shared RGB canvas.
//
// A Box owns a private surface that is drawn into independently and copied
// onto the parent canvas by Flush. Boxes carry margins, an optional title and
// an optional border, and detect when they no longer fit the canvas.
package canvas

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

// DefaultFontSize is the title size in pixels.
const DefaultFontSize = 12.0

// Rotation of text drawn into a box surface.
type Rotation int

const (
	Rot0  Rotation = 0
	Rot90 Rotation = 90
)

// Box is a rectangle inside a parent canvas.
type Box struct {
	canvas *image.RGBA
	name   string

	x, y          int
	width, height int

	// requested margins, kept so Resize can recompute the effective ones
	reqTB, reqSide int
	tb, side       int
	titleMargin    int

	titled   bool
	stamped  bool
	border   bool
	fill     uint8
	fontSize float64
	overflow bool

	surface *image.RGBA
}

// Option configures a Box.
type Option func(*Box)

// Margins sets the top/bottom and side margins.
func Margins(tb, side int) Option {
	return func(b *Box) {
		b.reqTB = tb
		b.reqSide = side
	}
}

// Border draws a 1px frame and grows both margins by 3px.
func Border() Option {
	return func(b *Box) { b.border = true }
}

// Background sets the gray value a new surface is filled with (default white).
func Background(v uint8) Option {
	return func(b *Box) { b.fill = v }
}

// FontSize sets the title font size.
func FontSize(size float64) Option {
	return func(b *Box) { b.fontSize = size }
}

// ReserveTitle keeps the title margin even when the title is empty.
func ReserveTitle() Option {
	return func(b *Box) { b.titled = true }
}

// NewBox places a box at (x, y) of the parent canvas. A nil parent makes a
// geometry-only box that never overflows and never allocates. A negative
// height is taken as the inner height.
func NewBox(parent *image.RGBA, title string, x, y, width, height int, opts ...Option) *Box {
	b := &Box{
		canvas:   parent,
		name:     title,
		x:        x,
		y:        y,
		width:    width,
		fill:     255,
		fontSize: DefaultFontSize,
		titled:   title != "",
	}
	for _, opt := range opts {
		opt(b)
	}
	b.calc(height)
	return b
}

// TitleHeight is the vertical room a title takes at the given font size.
func TitleHeight(size float64) int {
	_, h := TextSize("()", size)
	return h + 4
}

func (b *Box) calc(height int) {
	tm := 0
	if b.titled {
		tm = TitleHeight(b.fontSize)
	}
	tb, side := b.reqTB, b.reqSide
	if b.border {
		tb += 3
		side += 3
	}
	if height < 0 {
		height = -height + tm + 2*tb
	}
	b.height = height
	b.titleMargin = min(height, tm)
	b.tb = max(0, min(tb, (height-b.titleMargin)/2))
	b.side = min(side, b.width/2)

	b.overflow = false
	if b.canvas != nil {
		bounds := b.canvas.Bounds()
		b.overflow = b.y+b.height > bounds.Dy() || b.x+b.width > bounds.Dx() || b.side < 0
	}
}

// Resize recomputes the margins for a new height. It may turn overflow on or
// off. The surface is dropped.
func (b *Box) Resize(height int) {
	b.surface = nil
	b.calc(height)
}

func (b *Box) X() int           { return b.x }
func (b *Box) Y() int           { return b.y }
func (b *Box) Width() int       { return b.width }
func (b *Box) Height() int      { return b.height }
func (b *Box) Name() string     { return b.name }
func (b *Box) InnerX() int      { return b.x + b.side }
func (b *Box) InnerY() int      { return b.y + b.titleMargin + b.tb }
func (b *Box) InnerWidth() int  { return b.width - 2*b.side }
func (b *Box) InnerHeight() int { return b.height - b.titleMargin - 2*b.tb }
func (b *Box) TitleMargin() int { return b.titleMargin }
func (b *Box) Overflow() bool   { return b.overflow }

// Inner returns the inner rectangle in canvas coordinates.
func (b *Box) Inner() image.Rectangle {
	return image.Rect(b.InnerX(), b.InnerY(), b.InnerX()+b.InnerWidth(), b.InnerY()+b.InnerHeight())
}

// Outer returns the outer rectangle in canvas coordinates.
func (b *Box) Outer() image.Rectangle {
	return image.Rect(b.x, b.y, b.x+b.width, b.y+b.height)
}

func (b *Box) mustFit(op string) {
	if b.overflow {
		panic(fmt.Sprintf("canvas: %s on overflowed box %q (%dx%d at %d,%d)", op, b.name, b.width, b.height, b.x, b.y))
	}
}

// ForceSurface allocates the surface if needed and returns it. It returns nil
// for geometry-only boxes and boxes without inner area.
func (b *Box) ForceSurface() *image.RGBA {
	b.mustFit("ForceSurface")
	if b.surface == nil && b.canvas != nil && b.InnerWidth() > 0 && b.InnerHeight() > 0 {
		b.surface = NewSurface(b.InnerWidth(), b.InnerHeight(), b.fill)
	}
	return b.surface
}

// Surface returns the current surface, possibly nil.
func (b *Box) Surface() *image.RGBA { return b.surface }

// SetSurface replaces the surface.
func (b *Box) SetSurface(img *image.RGBA) {
	b.mustFit("SetSurface")
	b.surface = img
}

// DrawText draws text into the surface with its baseline at (x, y). With
// Rot90 the coordinates refer to the surface turned 90 degrees clockwise, so
// the text reads bottom to top.
func (b *Box) DrawText(text string, x, y int, size float64, c color.Color, rot Rotation) {
	surface := b.ForceSurface()
	if surface == nil {
		return
	}
	switch rot {
	case Rot0:
		DrawText(surface, text, x, y, size, c)
	case Rot90:
		turned := RotateCW(surface)
		DrawText(turned, text, x, y, size, c)
		b.surface = RotateCCW(turned)
	default:
		panic(fmt.Sprintf("canvas: unsupported rotation %d", rot))
	}
}

// DrawTextCanvas draws text straight onto the parent canvas at coordinates
// relative to the inner area, clipped to it.
func (b *Box) DrawTextCanvas(text string, x, y int, size float64, c color.Color) {
	b.mustFit("DrawTextCanvas")
	if b.canvas == nil {
		return
	}
	dst := b.canvas.SubImage(b.Inner()).(*image.RGBA)
	DrawText(dst, text, b.InnerX()+x, b.InnerY()+y, size, c)
}

// Wipe paints the whole outer rectangle of the box white.
func (b *Box) Wipe() {
	b.mustFit("Wipe")
	if b.canvas == nil {
		return
	}
	Fill(b.canvas, b.Outer(), White)
}

// Flush copies the surface into the inner area, stamps the title on first
// flush and draws the border.
func (b *Box) Flush() {
	b.mustFit("Flush")
	if b.canvas == nil {
		return
	}
	if b.surface != nil {
		sb := b.surface.Bounds()
		r := image.Rect(0, 0, min(b.InnerWidth(), sb.Dx()), min(b.InnerHeight(), sb.Dy())).
			Add(image.Pt(b.InnerX(), b.InnerY()))
		draw.Draw(b.canvas, r, b.surface, sb.Min, draw.Src)
	}
	if b.name != "" && !b.stamped {
		b.stampTitle()
	}
	if b.border {
		b.drawBorder()
	}
}

func (b *Box) stampTitle() {
	b.stamped = true
	size, tw := FitSize(b.name, b.fontSize, b.width)
	x := b.x + max(0, b.width/2-tw/2)
	DrawText(b.canvas, b.name, x, b.InnerY()-3, size, LabelGrey)
}

func (b *Box) drawBorder() {
	if b.tb <= 0 || b.side <= 0 {
		panic(fmt.Sprintf("canvas: border on box %q without margins (tb=%d side=%d)", b.name, b.tb, b.side))
	}
	x0, y0 := b.x+1, b.y+1
	x1, y1 := b.x+b.width-1, b.y+b.height-1
	HLine(b.canvas, y0, x0, x1, BorderGrey)
	HLine(b.canvas, b.y+b.height-2, x0, x1, BorderGrey)
	VLine(b.canvas, x0, y0, y1, BorderGrey)
	VLine(b.canvas, b.x+b.width-2, y0, y1, BorderGrey)
}
