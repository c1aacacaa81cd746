package canvas

import (
	"image"
	"image/color"
	"image/draw"
)

// Shades used across the dashboard.
var (
	White      = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Black      = color.RGBA{A: 255}
	GridMinor  = Gray(180)
	GridMajor  = Gray(220)
	LabelGrey  = Gray(120)
	BorderGrey = Gray(200)
	DarkGrey   = Gray(100)
)

// Gray returns an opaque gray of the given intensity.
func Gray(v uint8) color.RGBA {
	return color.RGBA{R: v, G: v, B: v, A: 255}
}

// NewSurface allocates a w x h surface filled with the given gray value.
func NewSurface(w, h int, fill uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	Fill(img, img.Bounds(), Gray(fill))
	return img
}

// Fill paints r (clipped to img) with c.
func Fill(img draw.Image, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
}

// HLine paints row y from x0 (inclusive) to x1 (exclusive).
func HLine(img *image.RGBA, y, x0, x1 int, c color.RGBA) {
	Fill(img, image.Rect(x0, y, x1, y+1), c)
}

// VLine paints column x from y0 (inclusive) to y1 (exclusive).
func VLine(img *image.RGBA, x, y0, y1 int, c color.RGBA) {
	Fill(img, image.Rect(x, y0, x+1, y1), c)
}

// ShiftLeft scrolls img one pixel to the left and paints the freed rightmost
// column with c.
func ShiftLeft(img *image.RGBA, c color.RGBA) {
	b := img.Bounds()
	w := b.Dx()
	if w == 0 {
		return
	}
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		copy(row, row[4:])
		last := row[(w-1)*4:]
		last[0], last[1], last[2], last[3] = c.R, c.G, c.B, c.A
	}
}

// RotateCW returns a copy of src rotated 90 degrees clockwise.
func RotateCW(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			si := src.PixOffset(b.Min.X+x, b.Min.Y+y)
			di := dst.PixOffset(h-1-y, x)
			copy(dst.Pix[di:di+4], src.Pix[si:si+4])
		}
	}
	return dst
}

// RotateCCW returns a copy of src rotated 90 degrees counter-clockwise.
func RotateCCW(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			si := src.PixOffset(b.Min.X+x, b.Min.Y+y)
			di := dst.PixOffset(y, w-1-x)
			copy(dst.Pix[di:di+4], src.Pix[si:si+4])
		}
	}
	return dst
}

// Clone returns a deep copy of img.
func Clone(img *image.RGBA) *image.RGBA {
	out := image.NewRGBA(img.Bounds())
	copy(out.Pix, img.Pix)
	return out
}
