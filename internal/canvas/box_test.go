package canvas

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoxMarginsAndInnerArea(t *testing.T) {
	c := NewSurface(200, 100, 255)
	b := NewBox(c, "", 10, 20, 100, 50, Margins(2, 4))

	assert.False(t, b.Overflow())
	assert.Equal(t, 14, b.InnerX())
	assert.Equal(t, 22, b.InnerY())
	assert.Equal(t, 92, b.InnerWidth())
	assert.Equal(t, 46, b.InnerHeight())
}

func TestBoxBorderAddsMargins(t *testing.T) {
	c := NewSurface(200, 100, 255)
	b := NewBox(c, "", 0, 0, 100, 50, Border())

	assert.Equal(t, 3, b.InnerX())
	assert.Equal(t, 3, b.InnerY())
	assert.Equal(t, 94, b.InnerWidth())
	assert.Equal(t, 44, b.InnerHeight())
}

func TestBoxTitleReservesMargin(t *testing.T) {
	c := NewSurface(200, 100, 255)
	b := NewBox(c, "cam1", 0, 0, 100, 50)

	tm := TitleHeight(DefaultFontSize)
	require.Greater(t, tm, 4)
	assert.Equal(t, tm, b.TitleMargin())
	assert.Equal(t, tm, b.InnerY())
	assert.Equal(t, 50-tm, b.InnerHeight())

	reserved := NewBox(nil, "", 0, 0, 100, 50, ReserveTitle())
	assert.Equal(t, tm, reserved.TitleMargin())
}

func TestBoxNegativeHeightIsInnerHeight(t *testing.T) {
	b := NewBox(nil, "", 0, 0, 100, -40, ReserveTitle(), Margins(3, 3))

	assert.Equal(t, 40, b.InnerHeight())
	assert.Equal(t, 40+TitleHeight(DefaultFontSize)+6, b.Height())
}

func TestBoxMarginClamping(t *testing.T) {
	b := NewBox(nil, "", 0, 0, 10, 6, Margins(5, 8))

	// tb limited to half the height, side to half the width
	assert.Equal(t, 3, b.InnerY())
	assert.Equal(t, 0, b.InnerHeight())
	assert.Equal(t, 5, b.InnerX())
	assert.Equal(t, 0, b.InnerWidth())
}

func TestBoxOverflow(t *testing.T) {
	c := NewSurface(100, 100, 255)

	tests := []struct {
		name string
		box  *Box
		want bool
	}{
		{"fits", NewBox(c, "", 0, 0, 100, 100), false},
		{"too tall", NewBox(c, "", 0, 50, 100, 51), true},
		{"too wide", NewBox(c, "", 1, 0, 100, 10), true},
		{"negative side margin", NewBox(c, "", 0, 0, 50, 10, Margins(0, -1)), true},
		{"geometry only never overflows", NewBox(nil, "", 0, 0, 1000, 1000), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.box.Overflow())
		})
	}
}

func TestBoxResizeFlipsOverflow(t *testing.T) {
	c := NewSurface(100, 100, 255)
	b := NewBox(c, "", 0, 0, 100, 0)
	require.False(t, b.Overflow())

	b.Resize(120)
	assert.True(t, b.Overflow())

	b.Resize(80)
	assert.False(t, b.Overflow())
	assert.Equal(t, 80, b.InnerHeight())
}

func TestOverflowedBoxPanics(t *testing.T) {
	c := NewSurface(50, 50, 255)
	b := NewBox(c, "big", 0, 0, 60, 60)
	require.True(t, b.Overflow())

	assert.Panics(t, func() { b.Flush() })
	assert.Panics(t, func() { b.Wipe() })
	assert.Panics(t, func() { b.DrawText("x", 0, 5, 8, Black, Rot0) })
	assert.Panics(t, func() { b.SetSurface(NewSurface(1, 1, 0)) })
}

func TestBoxSurfaceIsLazy(t *testing.T) {
	c := NewSurface(100, 100, 255)
	b := NewBox(c, "", 0, 0, 100, 100, Background(240))
	assert.Nil(t, b.Surface())

	s := b.ForceSurface()
	require.NotNil(t, s)
	assert.Equal(t, image.Rect(0, 0, 100, 100), s.Bounds())
	assert.Equal(t, Gray(240), s.RGBAAt(10, 10))

	geo := NewBox(nil, "", 0, 0, 100, 100)
	assert.Nil(t, geo.ForceSurface())
}

func TestBoxFlushBlitsClippedToInner(t *testing.T) {
	c := NewSurface(100, 100, 255)
	b := NewBox(c, "", 10, 10, 20, 20, Margins(2, 2))
	b.SetSurface(NewSurface(40, 40, 0))
	b.Flush()

	assert.Equal(t, Gray(0), c.RGBAAt(12, 12))
	assert.Equal(t, Gray(0), c.RGBAAt(27, 27))
	assert.Equal(t, White, c.RGBAAt(28, 28))
	assert.Equal(t, White, c.RGBAAt(11, 11))
}

func TestBoxBorderLines(t *testing.T) {
	c := NewSurface(100, 100, 255)
	b := NewBox(c, "", 0, 0, 40, 30, Border())
	b.Flush()

	assert.Equal(t, BorderGrey, c.RGBAAt(1, 1))
	assert.Equal(t, BorderGrey, c.RGBAAt(20, 28))
	assert.Equal(t, BorderGrey, c.RGBAAt(38, 15))
	assert.Equal(t, White, c.RGBAAt(0, 0))
	assert.Equal(t, White, c.RGBAAt(20, 15))
}

func TestBorderWithoutMarginsPanics(t *testing.T) {
	c := NewSurface(100, 100, 255)
	b := NewBox(c, "", 0, 0, 4, 4, Border())
	b.Resize(0)

	assert.Panics(t, func() { b.Flush() })
}

func TestBoxWipe(t *testing.T) {
	c := NewSurface(100, 100, 0)
	b := NewBox(c, "", 10, 10, 20, 20)
	b.Wipe()

	assert.Equal(t, White, c.RGBAAt(10, 10))
	assert.Equal(t, White, c.RGBAAt(29, 29))
	assert.Equal(t, Gray(0), c.RGBAAt(30, 30))
}

func TestBoxTitleStampedOnce(t *testing.T) {
	c := NewSurface(200, 100, 255)
	b := NewBox(c, "graph I", 0, 0, 200, 100)
	b.Flush()

	inked := func() int {
		n := 0
		for y := 0; y < b.TitleMargin(); y++ {
			for x := 0; x < 200; x++ {
				if c.RGBAAt(x, y) != White {
					n++
				}
			}
		}
		return n
	}
	require.Positive(t, inked())

	Fill(c, c.Bounds(), White)
	b.Flush()
	if n := inked(); n != 0 {
		t.Fatalf("expected title to be stamped only once, found %d inked pixels", n)
	}
}

func TestBoxDrawTextRotated(t *testing.T) {
	c := NewSurface(100, 100, 255)
	b := NewBox(c, "", 0, 0, 20, 80)
	b.DrawText("label", 2, 14, 12, Black, Rot90)

	s := b.Surface()
	require.NotNil(t, s)
	assert.Equal(t, image.Rect(0, 0, 20, 80), s.Bounds())

	minY, maxY := 80, -1
	for y := 0; y < 80; y++ {
		for x := 0; x < 20; x++ {
			if s.RGBAAt(x, y) != White {
				minY = min(minY, y)
				maxY = max(maxY, y)
			}
		}
	}
	require.GreaterOrEqual(t, maxY, 0)
	// vertical text spans more rows than a single glyph line would
	assert.Greater(t, maxY-minY, 15)
}

func TestDrawTextCanvasClipsToInner(t *testing.T) {
	c := NewSurface(100, 100, 255)
	b := NewBox(c, "", 10, 10, 20, 20)
	b.DrawTextCanvas("a very long label indeed", 0, 12, 12, Black)

	for y := 0; y < 100; y++ {
		if c.RGBAAt(31, y) != White || c.RGBAAt(5, y) != White {
			t.Fatalf("text leaked outside the inner area at row %d", y)
		}
	}
}

func TestFitSizeShrinks(t *testing.T) {
	w, _ := TextSize("a fairly long title", 12)
	size, fitted := FitSize("a fairly long title", 12, w/2)

	assert.Less(t, size, 12.0)
	assert.Less(t, fitted, w/2)

	size, fitted = FitSize("ok", 12, 1000)
	assert.Equal(t, 12.0, size)
	assert.Positive(t, fitted)
}

func TestRotateRoundTrip(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	src.SetRGBA(0, 0, Gray(10))
	src.SetRGBA(2, 1, Gray(20))

	cw := RotateCW(src)
	assert.Equal(t, image.Rect(0, 0, 2, 3), cw.Bounds())
	assert.Equal(t, Gray(10), cw.RGBAAt(1, 0))
	assert.Equal(t, Gray(20), cw.RGBAAt(0, 2))

	back := RotateCCW(cw)
	assert.Equal(t, src.Pix, back.Pix)
}

func TestShiftLeft(t *testing.T) {
	img := NewSurface(3, 1, 0)
	img.SetRGBA(1, 0, Gray(50))
	img.SetRGBA(2, 0, Gray(60))

	ShiftLeft(img, White)
	assert.Equal(t, Gray(50), img.RGBAAt(0, 0))
	assert.Equal(t, Gray(60), img.RGBAAt(1, 0))
	assert.Equal(t, White, img.RGBAAt(2, 0))
}
