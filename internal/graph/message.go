package graph

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidMessage is returned by Message.Validate.
var ErrInvalidMessage = errors.New("invalid graph message")

// RangeDef describes one vertical axis. Nil bounds take the defaults -1 and 1.
type RangeDef struct {
	Min   *float64 `json:"min,omitempty"`
	Max   *float64 `json:"max,omitempty"`
	Label string   `json:"label,omitempty"`
}

// Bounds resolves the axis range. The upper bound is Max (default 1) and the
// lower bound is the smaller of Min (default -1) and the upper bound.
func (r RangeDef) Bounds() (lo, hi float64) {
	hi = 1
	if r.Max != nil {
		hi = *r.Max
	}
	lo = -1
	if r.Min != nil {
		lo = *r.Min
	}
	return math.Min(lo, hi), hi
}

const (
	maxTicks = 20
	minStep  = 1e-300
)

// Validate reports whether the range can be drawn.
func (r RangeDef) Validate() error {
	lo, hi := r.Bounds()
	if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return fmt.Errorf("%w: range bounds must be finite", ErrInvalidMessage)
	}
	if lo >= hi {
		return fmt.Errorf("%w: empty range [%g, %g]", ErrInvalidMessage, lo, hi)
	}
	// Ticks divide the span into up to 20 steps of at least minStep.
	if span := hi - lo; math.IsInf(span, 0) || span/maxTicks < minStep {
		return fmt.Errorf("%w: range [%g, %g] cannot be divided into ticks", ErrInvalidMessage, lo, hi)
	}
	return nil
}

// Channel is one named series. A scalar sample is a one element slice; longer
// slices plot one line per element.
type Channel struct {
	Name   string
	Values []float64
}

// Datum is a data-only variable shown as text.
type Datum struct {
	Name  string
	Value float64
}

// Message is one tick of samples for a graph panel. Channel order matters: it
// decides color assignment and drawing order.
type Message struct {
	LeftRange  RangeDef
	Left       []Channel
	RightRange RangeDef
	Right      []Channel
	Data       []Datum
}

// Validate checks both ranges and channel names.
func (m *Message) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: nil message", ErrInvalidMessage)
	}
	if err := m.LeftRange.Validate(); err != nil {
		return fmt.Errorf("left range: %w", err)
	}
	if err := m.RightRange.Validate(); err != nil {
		return fmt.Errorf("right range: %w", err)
	}
	for _, set := range [][]Channel{m.Left, m.Right} {
		for _, ch := range set {
			if ch.Name == "" {
				return fmt.Errorf("%w: unnamed channel", ErrInvalidMessage)
			}
		}
	}
	for _, d := range m.Data {
		if d.Name == "" {
			return fmt.Errorf("%w: unnamed data variable", ErrInvalidMessage)
		}
	}
	return nil
}

// Float returns a pointer to v, for building RangeDefs.
func Float(v float64) *float64 { return &v }
