// Package graph renders rolling time-series panels.
//
// Each Panel is a Graph between a left and a right Scale. The graph surface
// scrolls one pixel per update; new samples are drawn into the rightmost
// column. Panels arranges named panels into a grid and reflows it when a new
// name appears.
package graph

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Robobluez/streamview/internal/canvas"
)

const (
	legendFontSize = 11.0
	dataFontSize   = 10.0
	timeFontSize   = 8.0
)

// seriesSet keeps series in first-seen order.
type seriesSet struct {
	order  []*Series
	byName map[string]*Series
}

func newSeriesSet() *seriesSet {
	return &seriesSet{byName: make(map[string]*Series)}
}

func (s *seriesSet) add(series *Series) {
	s.order = append(s.order, series)
	s.byName[series.name] = series
}

type dataVar struct {
	name string
	text string
}

// Graph is the scrolling plot area of a panel.
type Graph struct {
	name    string
	box     *canvas.Box
	left    *Scale
	right   *Scale
	palette *Palette
	logger  *slog.Logger
	now     func() time.Time

	leftVars  *seriesSet
	rightVars *seriesSet
	dataVars  []dataVar
	dataIdx   map[string]int
	skipped   map[string]bool

	start      time.Time
	basePix    int
	lastLapsed int
}

// NewGraph prepares the plot surface of box and paints the initial grid.
func NewGraph(name string, box *canvas.Box, left, right *Scale, palette *Palette, logger *slog.Logger, now func() time.Time) *Graph {
	if now == nil {
		now = time.Now
	}
	g := &Graph{
		name:      name,
		box:       box,
		left:      left,
		right:     right,
		palette:   palette,
		logger:    logger,
		now:       now,
		leftVars:  newSeriesSet(),
		rightVars: newSeriesSet(),
		dataIdx:   make(map[string]int),
		skipped:   make(map[string]bool),
	}
	if surface := box.ForceSurface(); surface != nil {
		left.InitGrid(surface)
	}
	return g
}

// Update plots one tick: left channels, right channels, data variables, then
// the scroll.
func (g *Graph) Update(msg *Message) {
	if g.box.Surface() == nil {
		return
	}
	g.plot(msg.Left, g.left, g.leftVars)
	g.plot(msg.Right, g.right, g.rightVars)
	g.setData(msg.Data)
	g.roll()
}

func (g *Graph) plot(channels []Channel, scale *Scale, vars *seriesSet) {
	for _, ch := range channels {
		if _, ok := vars.byName[ch.Name]; ok || g.skipped[ch.Name] {
			continue
		}
		c, ok := g.palette.Next()
		if !ok {
			g.skipped[ch.Name] = true
			g.logger.Warn("too many graph variables, skipping channel", "graph", g.name, "channel", ch.Name)
			continue
		}
		vars.add(NewSeries(ch.Name, scale, c))
	}

	// first channel drawn last so it ends up on top
	surface := g.box.Surface()
	for i := len(channels) - 1; i >= 0; i-- {
		if s, ok := vars.byName[channels[i].Name]; ok {
			s.Update(surface, channels[i].Values)
		}
	}
}

func (g *Graph) setData(data []Datum) {
	for _, d := range data {
		text := fmt.Sprintf("% .2f", d.Value)
		if i, ok := g.dataIdx[d.Name]; ok {
			g.dataVars[i].text = text
			continue
		}
		g.dataIdx[d.Name] = len(g.dataVars)
		g.dataVars = append(g.dataVars, dataVar{name: d.Name, text: text})
	}
}

func (g *Graph) roll() {
	surface := g.box.Surface()
	canvas.ShiftLeft(surface, canvas.White)
	g.left.RollGrid(surface)
	g.drawElapsed()
}

func (g *Graph) drawElapsed() {
	now := g.now()
	if g.start.IsZero() {
		g.start = now
	}
	if g.basePix > 0 {
		g.basePix--
	}
	lapsed := int(math.Round(now.Sub(g.start).Seconds()))
	if lapsed <= g.lastLapsed {
		return
	}
	g.lastLapsed = lapsed
	if g.basePix > 0 {
		return
	}
	label := FormatElapsed(lapsed)
	w, _ := canvas.TextSize(label, timeFontSize)
	g.box.DrawText(label, g.box.InnerWidth()-w, g.box.InnerHeight()-2, timeFontSize, canvas.LabelGrey, canvas.Rot0)
	g.basePix = int(float64(w) * 1.4)
}

// FormatElapsed formats whole seconds as M:SS, or H:MM:SS past one hour.
func FormatElapsed(secs int) string {
	if secs > 3600 {
		return fmt.Sprintf("%d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
	}
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// Flush blits both scales and the plot, then restamps the legends and the
// data table on top.
func (g *Graph) Flush() {
	g.left.Flush()
	g.right.Flush()
	g.box.Flush()
	g.flushLegends()
	g.flushData()
}

func (g *Graph) flushLegends() {
	width := g.box.InnerWidth()
	xl := 2
	for _, s := range g.leftVars.order {
		w, h := canvas.TextSize(s.name, legendFontSize)
		if xl+w > width {
			break
		}
		g.box.DrawTextCanvas(s.name, xl, h, legendFontSize, s.color)
		xl += w + 2
	}

	xr := width - 2
	for _, s := range g.rightVars.order {
		w, h := canvas.TextSize(s.name, legendFontSize)
		if xr-w < xl {
			break
		}
		g.box.DrawTextCanvas(s.name, xr-w, h, legendFontSize, s.color)
		xr -= w + 2
	}
}

func (g *Graph) flushData() {
	width, height := 0, 0
	for _, d := range g.dataVars {
		w, h := canvas.TextSize(d.name, dataFontSize)
		width = max(width, w)
		height = max(height, h)
	}

	y := 3 * height
	for _, d := range g.dataVars {
		if height+y >= g.box.InnerHeight() {
			break
		}
		g.box.DrawTextCanvas(d.name, 2, y, dataFontSize, canvas.LabelGrey)
		g.box.DrawTextCanvas("= "+d.text, 5+width, y, dataFontSize, canvas.LabelGrey)
		y += int(1.6 * float64(height))
	}
}

// Channels returns the plotted channel names per side in first-seen order.
func (g *Graph) Channels(side Side) []string {
	set := g.leftVars
	if side == Right {
		set = g.rightVars
	}
	names := make([]string, 0, len(set.order))
	for _, s := range set.order {
		names = append(names, s.name)
	}
	return names
}

// Skipped reports whether a channel was dropped for lack of colors.
func (g *Graph) Skipped(name string) bool { return g.skipped[name] }

// Data returns the formatted value of a data variable.
func (g *Graph) Data(name string) (string, bool) {
	i, ok := g.dataIdx[name]
	if !ok {
		return "", false
	}
	return g.dataVars[i].text, true
}
