package graph

import (
	"image"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/Robobluez/streamview/internal/canvas"
)

// MinRowHeight is the smallest panel row height accepted by default.
const MinRowHeight = 64

// Panels manages a grid of named panels inside one box.
type Panels struct {
	canvas       *image.RGBA
	box          *canvas.Box
	cols         int
	rows         int
	minRowHeight int
	logger       *slog.Logger
	now          func() time.Time

	panels  map[string]*Panel
	ldefs   map[string]RangeDef
	rdefs   map[string]RangeDef
	blocked map[string]bool
	reflows int
}

// PanelsOption configures Panels.
type PanelsOption func(*Panels)

// WithClock sets the time source used for the elapsed-time labels.
func WithClock(now func() time.Time) PanelsOption {
	return func(p *Panels) { p.now = now }
}

// WithMinRowHeight overrides MinRowHeight.
func WithMinRowHeight(h int) PanelsOption {
	return func(p *Panels) { p.minRowHeight = h }
}

// NewPanels returns an empty grid with cols columns inside box. Zero columns
// disables graphs entirely.
func NewPanels(c *image.RGBA, box *canvas.Box, cols int, logger *slog.Logger, opts ...PanelsOption) *Panels {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p := &Panels{
		canvas:       c,
		box:          box,
		cols:         cols,
		minRowHeight: MinRowHeight,
		logger:       logger,
		now:          time.Now,
		panels:       make(map[string]*Panel),
		ldefs:        make(map[string]RangeDef),
		rdefs:        make(map[string]RangeDef),
		blocked:      make(map[string]bool),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Update routes one message to the panel called name, creating it and
// reflowing the grid on first sight. Names that do not fit are blocked for
// good; invalid messages are logged and dropped.
func (p *Panels) Update(name string, msg *Message) {
	if p.cols == 0 || p.blocked[name] {
		return
	}
	if err := msg.Validate(); err != nil {
		p.logger.Warn("graph data error, check format", "graph", name, "error", err)
		return
	}

	if _, ok := p.panels[name]; !ok {
		if len(p.panels) == p.rows*p.cols && p.box.InnerHeight()/(p.rows+1) < p.minRowHeight {
			p.logger.Warn("cannot fit graph, skipping", "graph", name, "rows", p.rows, "cols", p.cols)
			p.blocked[name] = true
			return
		}
		p.ldefs[name] = msg.LeftRange
		p.rdefs[name] = msg.RightRange
		p.redraw(name)
	}

	if panel, ok := p.panels[name]; ok {
		panel.Update(msg)
	}
}

func (p *Panels) redraw(name string) {
	p.box.Wipe()

	names := append(slices.Collect(maps.Keys(p.panels)), name)
	slices.Sort(names)

	p.rows = (len(names) + p.cols - 1) / p.cols
	height := 0
	for p.rows > 0 {
		height = p.box.InnerHeight() / p.rows
		if height >= p.minRowHeight {
			break
		}
		p.rows--
	}

	fresh := make(map[string]*Panel, len(names))
	for row := 0; row < p.rows; row++ {
		rowBox := canvas.NewBox(nil, "", p.box.InnerX(), p.box.InnerY()+row*height, p.box.InnerWidth(), height)
		w := rowBox.InnerWidth() / p.cols
		for col := 0; col < p.cols; col++ {
			idx := row*p.cols + col
			if idx >= len(names) {
				break
			}
			n := names[idx]
			box := canvas.NewBox(p.canvas, n, rowBox.InnerX()+col*w, rowBox.InnerY(), w, rowBox.InnerHeight(), canvas.Border())
			fresh[n] = NewPanel(n, p.canvas, box, p.ldefs[n], p.rdefs[n], p.logger, p.now)
		}
	}
	if placed := len(fresh); placed < len(names) {
		p.logger.Warn("graph grid shrunk, some graphs not placed", "placed", placed, "wanted", len(names))
		for _, n := range names {
			if _, ok := fresh[n]; !ok {
				p.blocked[n] = true
			}
		}
	}
	p.panels = fresh
	p.reflows++
}

// Flush blits every panel.
func (p *Panels) Flush() {
	for _, name := range p.Names() {
		p.panels[name].Flush()
	}
}

// Count returns the number of placed panels.
func (p *Panels) Count() int { return len(p.panels) }

// Rows returns the current number of grid rows.
func (p *Panels) Rows() int { return p.rows }

// Reflows returns how often the grid has been rebuilt.
func (p *Panels) Reflows() int { return p.reflows }

// Names returns the placed panel names, sorted.
func (p *Panels) Names() []string {
	return slices.Sorted(maps.Keys(p.panels))
}

// Blocked returns the blocked names, sorted.
func (p *Panels) Blocked() []string {
	return slices.Sorted(maps.Keys(p.blocked))
}

// Panel returns the panel called name, if placed.
func (p *Panels) Panel(name string) (*Panel, bool) {
	panel, ok := p.panels[name]
	return panel, ok
}
