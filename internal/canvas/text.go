package canvas

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var (
	fontOnce sync.Once
	goFont   *opentype.Font

	facesMu sync.Mutex
	faces   = map[float64]font.Face{}
)

func parsedFont() *opentype.Font {
	fontOnce.Do(func() {
		f, err := opentype.Parse(goregular.TTF)
		if err != nil {
			panic(fmt.Sprintf("canvas: parse embedded font: %v", err))
		}
		goFont = f
	})
	return goFont
}

// Face returns the font face for a pixel size. Faces are cached for the
// lifetime of the process; callers use a handful of fixed sizes.
func Face(size float64) font.Face {
	facesMu.Lock()
	defer facesMu.Unlock()

	if f, ok := faces[size]; ok {
		return f
	}
	f, err := opentype.NewFace(parsedFont(), &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		panic(fmt.Sprintf("canvas: font face %.2fpx: %v", size, err))
	}
	faces[size] = f
	return f
}

// TextSize returns the advance width of text and the height of its ink above
// the baseline, both in pixels.
func TextSize(text string, size float64) (width, height int) {
	bounds, advance := font.BoundString(Face(size), text)
	height = (-bounds.Min.Y).Round()
	if height < 0 {
		height = 0
	}
	return advance.Ceil(), height
}

// DrawText draws text with its baseline starting at (x, y). Pixels outside dst
// are clipped.
func DrawText(dst draw.Image, text string, x, y int, size float64, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: Face(size),
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// FitSize shrinks size in 2% steps until text is narrower than maxWidth and
// returns the resulting size and width.
func FitSize(text string, size float64, maxWidth int) (float64, int) {
	base, _ := TextSize(text, size)
	fitted := size
	width := base
	for width >= maxWidth && fitted > 1 {
		fitted *= 0.98
		width = int(float64(base) * fitted / size)
	}
	return fitted, width
}
