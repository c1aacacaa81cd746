// Package demo generates synthetic graph samples and video frames and
// publishes them, so the viewer can be tried without real producers.
package demo

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/tidwall/jsonc"

	"github.com/Robobluez/streamview/internal/graph"
)

//go:embed default.jsonc
var defaultScenario []byte

// Waveform kinds.
const (
	WaveSin  = "sin"
	WaveCos  = "cos"
	WaveTan  = "tan"
	WaveRamp = "ramp"
	WaveTime = "time"
)

// Scenario lists the streams the demo can publish.
type Scenario struct {
	// Rate is ticks per second, Step the degrees the demo clock advances per tick.
	Rate   float64    `json:"rate"`
	Step   float64    `json:"step"`
	Graphs []GraphDef `json:"graphs"`
	Videos []VideoDef `json:"videos"`
}

// GraphDef is one graph stream.
type GraphDef struct {
	Name       string         `json:"name"`
	LeftRange  graph.RangeDef `json:"left_range"`
	Left       []Wave         `json:"left"`
	RightRange graph.RangeDef `json:"right_range"`
	Right      []Wave         `json:"right"`
	Data       []Wave         `json:"data"`
}

// Wave is one generated channel or data variable.
type Wave struct {
	Name      string  `json:"name"`
	Kind      string  `json:"wave"`
	Amplitude float64 `json:"amplitude"`
	// Phase in degrees; Period in degrees per cycle.
	Phase  float64 `json:"phase"`
	Period float64 `json:"period"`
}

// VideoDef is one video stream: a GIF scaled by Scale, or a moving disc
// on a Width x Height frame.
type VideoDef struct {
	Name   string  `json:"name"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	GIF    string  `json:"gif,omitempty"`
	Scale  float64 `json:"scale,omitempty"`
	Gray   bool    `json:"gray,omitempty"`
}

// DefaultScenario returns the built-in scenario.
func DefaultScenario() (*Scenario, error) {
	return Parse(defaultScenario)
}

// LoadScenario reads a JSONC scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates a JSONC scenario.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := json.Unmarshal(jsonc.ToJSON(data), &s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if s.Rate == 0 {
		s.Rate = 40
	}
	if s.Step == 0 {
		s.Step = 1
	}
	for i := range s.Graphs {
		for _, waves := range [][]Wave{s.Graphs[i].Left, s.Graphs[i].Right, s.Graphs[i].Data} {
			for j := range waves {
				waves[j].defaults()
			}
		}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (w *Wave) defaults() {
	if w.Amplitude == 0 {
		w.Amplitude = 1
	}
	if w.Period == 0 {
		w.Period = 360
	}
}

// Validate checks names, wave kinds and frame sizes.
func (s *Scenario) Validate() error {
	var errs []error
	if s.Rate <= 0 {
		errs = append(errs, fmt.Errorf("rate must be positive, got %g", s.Rate))
	}
	seen := map[string]bool{}
	for _, g := range s.Graphs {
		if g.Name == "" || seen["g:"+g.Name] {
			errs = append(errs, fmt.Errorf("graph name %q is empty or duplicated", g.Name))
		}
		seen["g:"+g.Name] = true
		for _, r := range []graph.RangeDef{g.LeftRange, g.RightRange} {
			if err := r.Validate(); err != nil {
				errs = append(errs, fmt.Errorf("graph %q: %w", g.Name, err))
			}
		}
		for _, w := range append(append(append([]Wave{}, g.Left...), g.Right...), g.Data...) {
			if w.Name == "" {
				errs = append(errs, fmt.Errorf("graph %q: unnamed wave", g.Name))
			}
			switch w.Kind {
			case WaveSin, WaveCos, WaveTan, WaveRamp, WaveTime:
			default:
				errs = append(errs, fmt.Errorf("graph %q: unknown wave %q for %q", g.Name, w.Kind, w.Name))
			}
		}
	}
	for _, v := range s.Videos {
		if v.Name == "" || seen["v:"+v.Name] {
			errs = append(errs, fmt.Errorf("video name %q is empty or duplicated", v.Name))
		}
		seen["v:"+v.Name] = true
		if v.GIF == "" && (v.Width <= 0 || v.Height <= 0) {
			errs = append(errs, fmt.Errorf("video %q needs a gif or a positive size", v.Name))
		}
	}
	return errors.Join(errs...)
}

// Sample evaluates the wave at the demo angle deg.
func (w Wave) Sample(deg float64, now time.Time) float64 {
	x := (deg + w.Phase) * 360 / w.Period
	rad := x * math.Pi / 180
	switch w.Kind {
	case WaveSin:
		return w.Amplitude * math.Sin(rad)
	case WaveCos:
		return w.Amplitude * math.Cos(rad)
	case WaveTan:
		return w.Amplitude * math.Tan(rad)
	case WaveRamp:
		return w.Amplitude * math.Mod(x, 360)
	case WaveTime:
		return float64(now.UnixNano()) / 1e9
	}
	return 0
}

// Message builds the graph message of g at the demo angle deg.
func (g GraphDef) Message(deg float64, now time.Time) *graph.Message {
	channels := func(waves []Wave) []graph.Channel {
		out := make([]graph.Channel, 0, len(waves))
		for _, w := range waves {
			out = append(out, graph.Channel{Name: w.Name, Values: []float64{w.Sample(deg, now)}})
		}
		return out
	}
	msg := &graph.Message{
		LeftRange:  g.LeftRange,
		Left:       channels(g.Left),
		RightRange: g.RightRange,
		Right:      channels(g.Right),
	}
	for _, w := range g.Data {
		msg.Data = append(msg.Data, graph.Datum{Name: w.Name, Value: w.Sample(deg, now)})
	}
	return msg
}
