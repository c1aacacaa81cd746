// Package video tiles named video frames into a grid at the top of the
// canvas.
package video

import (
	"cmp"
	"image"
	"log/slog"
	"maps"
	"slices"

	"github.com/Robobluez/streamview/internal/canvas"
)

const (
	hSpacer   = 2
	vSpacer   = 2
	rowMargin = 3
)

// Tile shows the frames of one stream.
type Tile struct {
	name string
	box  *canvas.Box
}

// Update replaces the frame shown by the tile.
func (t *Tile) Update(img *image.RGBA) { t.box.SetSurface(img) }

// Box returns the tile's region.
func (t *Tile) Box() *canvas.Box { return t.box }

// Set manages the grid of video tiles.
type Set struct {
	canvas *image.RGBA
	box    *canvas.Box
	cols   int
	model  ColorModel
	logger *slog.Logger

	tiles   map[string]*Tile
	images  map[string]*image.RGBA
	isBGR   map[string]bool
	blocked map[string]bool
	rows    int
	redrawn bool
	reflows int
}

// NewSet returns an empty grid with cols columns. The grid grows box
// downwards as rows are added.
func NewSet(c *image.RGBA, box *canvas.Box, cols int, model ColorModel, logger *slog.Logger) *Set {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Set{
		canvas:  c,
		box:     box,
		cols:    cols,
		model:   model,
		logger:  logger,
		tiles:   make(map[string]*Tile),
		images:  make(map[string]*image.RGBA),
		isBGR:   make(map[string]bool),
		blocked: make(map[string]bool),
	}
}

// Update shows img in the tile called name. A name seen for the first time
// rebuilds the grid after calling wipe; if the new frame cannot fit, the name
// is blocked and the previous grid is restored.
func (s *Set) Update(name string, img image.Image, wipe func()) {
	s.redrawn = false
	if s.cols == 0 || s.blocked[name] || img == nil {
		return
	}
	frame := s.convert(name, img)
	s.images[name] = frame

	if _, ok := s.tiles[name]; !ok {
		s.redrawn = true
		wipe()
		fresh := make(map[string]*Tile)
		height, overflow := s.layout(name, fresh)
		if !overflow {
			s.tiles = fresh
			s.box.Resize(height)
		} else {
			s.logger.Warn("cannot fit image, skipping", "video", name,
				"height", frame.Bounds().Dy(), "width", frame.Bounds().Dx())
			s.blocked[name] = true
			delete(s.images, name)
			if len(s.tiles) > 0 {
				wipe()
				fresh = make(map[string]*Tile)
				height, _ = s.layout("", fresh)
				s.tiles = fresh
				s.box.Resize(height)
			}
		}
		s.reflows++
	}

	if t, ok := s.tiles[name]; ok {
		t.Update(frame)
	}
}

func (s *Set) convert(name string, img image.Image) *image.RGBA {
	frame, gray := toRGBA(img)
	if gray {
		return frame
	}
	switch s.model {
	case BGR:
		return swapRB(frame)
	case Auto:
		bgr, seen := s.isBGR[name]
		if !seen {
			bgr = likelyBGR(frame)
			s.isBGR[name] = bgr
			if !bgr {
				s.logger.Info("treating video as RGB; use the color model setting to override", "video", name)
			}
		}
		if bgr {
			return swapRB(frame)
		}
	}
	return frame
}

// layout tiles the accepted names plus extra (if not empty) into fresh and
// returns the occupied height. Tiles that would overflow the canvas are left
// out and reported.
func (s *Set) layout(extra string, fresh map[string]*Tile) (height int, overflow bool) {
	if !s.box.Overflow() {
		s.box.Wipe()
	}
	names := slices.Collect(maps.Keys(s.tiles))
	if extra != "" {
		names = append(names, extra)
	}
	slices.SortFunc(names, func(a, b string) int {
		return cmp.Or(cmp.Compare(s.images[a].Bounds().Dy(), s.images[b].Bounds().Dy()), cmp.Compare(a, b))
	})

	s.rows = (len(names) + s.cols - 1) / s.cols
	w := s.box.InnerWidth()/s.cols - hSpacer
	for row := 0; row < s.rows; row++ {
		members := names[row*s.cols : min(len(names), (row+1)*s.cols)]
		tallest := 0
		for _, n := range members {
			tallest = max(tallest, s.images[n].Bounds().Dy())
		}
		rowBox := canvas.NewBox(nil, "", s.box.InnerX(), s.box.InnerY()+height, s.box.InnerWidth(), -tallest,
			canvas.ReserveTitle(), canvas.Margins(rowMargin, rowMargin))
		h := rowBox.Height()

		for col, n := range members {
			b := s.images[n].Bounds()
			x := s.box.InnerX() + col*w + hSpacer/2 + col*hSpacer
			box := canvas.NewBox(s.canvas, n, x, s.box.InnerY()+height, w, h, canvas.ReserveTitle(),
				canvas.Margins(floorDiv(h-rowBox.TitleMargin()-b.Dy(), 2), floorDiv(w-b.Dx(), 2)))
			if box.Overflow() {
				overflow = true
				continue
			}
			fresh[n] = &Tile{name: n, box: box}
		}
		height += h + vSpacer
	}
	return height, overflow
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Flush blits every tile.
func (s *Set) Flush() {
	for _, name := range s.Names() {
		s.tiles[name].box.Flush()
	}
}

// Redrawn reports whether the last Update rebuilt the grid.
func (s *Set) Redrawn() bool { return s.redrawn }

// Count returns the number of placed tiles.
func (s *Set) Count() int { return len(s.tiles) }

// Reflows returns how often the grid has been rebuilt.
func (s *Set) Reflows() int { return s.reflows }

// Height returns the height occupied by the grid.
func (s *Set) Height() int { return s.box.Height() }

// Names returns the placed names in grid order.
func (s *Set) Names() []string {
	names := slices.Collect(maps.Keys(s.tiles))
	slices.SortFunc(names, func(a, b string) int {
		ta, tb := s.tiles[a].box, s.tiles[b].box
		return cmp.Or(cmp.Compare(ta.Y(), tb.Y()), cmp.Compare(ta.X(), tb.X()))
	})
	return names
}

// Blocked returns the blocked names, sorted.
func (s *Set) Blocked() []string {
	return slices.Sorted(maps.Keys(s.blocked))
}

// Tile returns the tile called name, if placed.
func (s *Set) Tile(name string) (*Tile, bool) {
	t, ok := s.tiles[name]
	return t, ok
}
