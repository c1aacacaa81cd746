package demo

import (
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"math"
	"os"

	xdraw "golang.org/x/image/draw"
)

// FrameSource yields the next frame of a video stream.
type FrameSource interface {
	Next(deg float64) image.Image
}

// NewFrameSource builds the frame generator of v.
func NewFrameSource(v VideoDef) (FrameSource, error) {
	if v.GIF != "" {
		return loadGIF(v.GIF, v.Scale, v.Gray)
	}
	return newDisc(v), nil
}

// disc draws a disc circling the frame center on black.
type disc struct {
	w, h  int
	gray  bool
	color color.RGBA
}

func newDisc(v VideoDef) *disc {
	h := fnv.New32a()
	_, _ = h.Write([]byte(v.Name))
	sum := h.Sum32()
	return &disc{
		w:     v.Width,
		h:     v.Height,
		gray:  v.Gray,
		color: color.RGBA{R: uint8(96 + sum%160), G: uint8(96 + (sum>>8)%160), B: uint8(96 + (sum>>16)%160), A: 255},
	}
}

func (d *disc) Next(deg float64) image.Image {
	rad := deg * math.Pi / 180
	r := float64(min(d.w, d.h)) / 6
	cx := float64(d.w)/2 + math.Cos(rad)*float64(d.w)/4
	cy := float64(d.h)/2 + math.Sin(rad)*float64(d.h)/4

	bounds := image.Rect(0, 0, d.w, d.h)
	var img draw.Image
	var fg color.Color = d.color
	if d.gray {
		img = image.NewGray(bounds)
		fg = color.GrayModel.Convert(d.color)
	} else {
		rgba := image.NewRGBA(bounds)
		draw.Draw(rgba, bounds, image.NewUniform(color.Black), image.Point{}, draw.Src)
		img = rgba
	}

	y0, y1 := max(0, int(cy-r)), min(d.h, int(cy+r)+1)
	x0, x1 := max(0, int(cx-r)), min(d.w, int(cx+r)+1)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			dx, dy := float64(x)+0.5-cx, float64(y)+0.5-cy
			if dx*dx+dy*dy <= r*r {
				img.Set(x, y, fg)
			}
		}
	}
	return img
}

// animation cycles through the pre-rendered frames of a GIF.
type animation struct {
	frames []image.Image
	idx    int
}

func loadGIF(path string, scale float64, gray bool) (*animation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open gif: %w", err)
	}
	defer f.Close()

	g, err := gif.DecodeAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if len(g.Image) == 0 {
		return nil, fmt.Errorf("%s has no frames", path)
	}
	if scale <= 0 {
		scale = 1
	}

	// Frames may only cover part of the canvas; composite them in order.
	width, height := g.Config.Width, g.Config.Height
	if width == 0 || height == 0 {
		b := g.Image[0].Bounds()
		width, height = b.Max.X, b.Max.Y
	}
	screen := image.NewRGBA(image.Rect(0, 0, width, height))
	out := image.Rect(0, 0, max(1, int(float64(width)*scale)), max(1, int(float64(height)*scale)))

	a := &animation{}
	for _, frame := range g.Image {
		draw.Draw(screen, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)
		var dst draw.Image = image.NewRGBA(out)
		if gray {
			dst = image.NewGray(out)
		}
		xdraw.BiLinear.Scale(dst, out, screen, screen.Bounds(), draw.Src, nil)
		a.frames = append(a.frames, dst)
	}
	return a, nil
}

func (a *animation) Next(float64) image.Image {
	frame := a.frames[a.idx]
	a.idx = (a.idx + 1) % len(a.frames)
	return frame
}
