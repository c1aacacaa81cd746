package video

import (
	"fmt"
	"image"
	"image/draw"
	"math"
)

// ColorModel tells how the subpixels of incoming 3-channel frames are ordered.
type ColorModel string

const (
	RGB  ColorModel = "rgb"
	BGR  ColorModel = "bgr"
	Auto ColorModel = "auto"
)

// ParseColorModel validates s.
func ParseColorModel(s string) (ColorModel, error) {
	switch m := ColorModel(s); m {
	case RGB, BGR, Auto:
		return m, nil
	}
	return "", fmt.Errorf("unknown color model %q (want rgb, bgr or auto)", s)
}

// toRGBA returns a private RGBA copy of img anchored at the origin, so
// producers may reuse their buffers. gray reports whether the source had a
// single channel, in which case no channel order applies.
func toRGBA(img image.Image) (out *image.RGBA, gray bool) {
	b := img.Bounds()
	switch src := img.(type) {
	case *image.Gray:
		out = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		for y := 0; y < b.Dy(); y++ {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			row := src.Pix[off : off+b.Dx()]
			for x, v := range row {
				i := y*out.Stride + x*4
				out.Pix[i], out.Pix[i+1], out.Pix[i+2], out.Pix[i+3] = v, v, v, 255
			}
		}
		return out, true
	}
	out = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out, false
}

// swapRB returns a copy of img with the first and third channels exchanged.
func swapRB(img *image.RGBA) *image.RGBA {
	out := image.NewRGBA(img.Bounds())
	copy(out.Pix, img.Pix)
	for i := 0; i+2 < len(out.Pix); i += 4 {
		out.Pix[i], out.Pix[i+2] = out.Pix[i+2], out.Pix[i]
	}
	return out
}

// likelyBGR guesses that a frame is BGR when its third channel has both a
// higher mean and a higher spread than its first.
func likelyBGR(img *image.RGBA) bool {
	m0, s0 := channelStats(img, 0)
	m2, s2 := channelStats(img, 2)
	return m2 > m0 && s2 > s0
}

func channelStats(img *image.RGBA, ch int) (mean, std float64) {
	b := img.Bounds()
	n := float64(b.Dx() * b.Dy())
	if n == 0 {
		return 0, 0
	}
	var sum, sq float64
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		for x := ch; x < len(row); x += 4 {
			v := float64(row[x])
			sum += v
			sq += v * v
		}
	}
	mean = sum / n
	return mean, math.Sqrt(math.Max(0, sq/n-mean*mean))
}
