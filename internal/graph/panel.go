package graph

import (
	"image"
	"log/slog"
	"time"

	"github.com/Robobluez/streamview/internal/canvas"
)

const (
	scaleWidth = 36
	scaleFill  = 240
)

// Panel is one titled cell of the grid: a left scale, the graph and a right
// scale side by side.
type Panel struct {
	name  string
	box   *canvas.Box
	left  *Scale
	right *Scale
	graph *Graph
}

// NewPanel lays out the scales and the graph inside box.
func NewPanel(name string, c *image.RGBA, box *canvas.Box, ldef, rdef RangeDef, logger *slog.Logger, now func() time.Time) *Panel {
	x, y, w, h := box.InnerX(), box.InnerY(), box.InnerWidth(), box.InnerHeight()

	lbox := canvas.NewBox(c, "", x, y, scaleWidth, h, canvas.Margins(1, 0), canvas.Background(scaleFill))
	rbox := canvas.NewBox(c, "", x+w-scaleWidth, y, scaleWidth, h, canvas.Margins(1, 0), canvas.Background(scaleFill))
	left := NewScale(ldef, lbox, Left)
	right := NewScale(rdef, rbox, Right)

	gbox := canvas.NewBox(c, "", x+lbox.Width(), y, w-lbox.Width()-rbox.Width(), h, canvas.Margins(1, 0))

	return &Panel{
		name:  name,
		box:   box,
		left:  left,
		right: right,
		graph: NewGraph(name, gbox, left, right, NewPalette(), logger, now),
	}
}

func (p *Panel) Name() string     { return p.name }
func (p *Panel) Graph() *Graph    { return p.graph }
func (p *Panel) Box() *canvas.Box { return p.box }

// Update forwards one tick to the graph.
func (p *Panel) Update(msg *Message) { p.graph.Update(msg) }

// Flush draws the frame, the title and the graph.
func (p *Panel) Flush() {
	p.box.Flush()
	p.graph.Flush()
}
