package stream

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"slices"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/Robobluez/streamview/internal/graph"
)

// DecodeGraph parses a graph payload: a JSON object mapping stream names to
// messages. A message is either an object with the keys left_range, left,
// right_range, right and data, or an array holding the same five values in
// that order. Streams that fail to decode are left out and reported in the
// returned error; the others are still returned.
func DecodeGraph(data []byte) (map[string]*graph.Message, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: graph payload is not valid JSON", ErrMalformedMessage)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: graph payload must be an object", ErrMalformedMessage)
	}

	out := make(map[string]*graph.Message)
	var errs []error
	root.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		msg, err := decodeGraphMessage(value)
		if err == nil {
			err = msg.Validate()
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: graph %q: %w", ErrMalformedMessage, name, err))
			return true
		}
		out[name] = msg
		return true
	})
	return out, errors.Join(errs...)
}

func decodeGraphMessage(v gjson.Result) (*graph.Message, error) {
	var ldef, left, rdef, right, data gjson.Result
	switch {
	case v.IsObject():
		ldef, left = v.Get("left_range"), v.Get("left")
		rdef, right = v.Get("right_range"), v.Get("right")
		data = v.Get("data")
	case v.IsArray():
		parts := v.Array()
		if len(parts) != 5 {
			return nil, fmt.Errorf("expected 5 elements, got %d", len(parts))
		}
		ldef, left, rdef, right, data = parts[0], parts[1], parts[2], parts[3], parts[4]
	default:
		return nil, fmt.Errorf("expected object or array, got %s", v.Type)
	}

	msg := &graph.Message{}
	var err error
	if msg.LeftRange, err = decodeRange(ldef); err != nil {
		return nil, fmt.Errorf("left_range: %w", err)
	}
	if msg.RightRange, err = decodeRange(rdef); err != nil {
		return nil, fmt.Errorf("right_range: %w", err)
	}
	if msg.Left, err = decodeChannels(left); err != nil {
		return nil, fmt.Errorf("left: %w", err)
	}
	if msg.Right, err = decodeChannels(right); err != nil {
		return nil, fmt.Errorf("right: %w", err)
	}
	if msg.Data, err = decodeData(data); err != nil {
		return nil, fmt.Errorf("data: %w", err)
	}
	return msg, nil
}

func absent(v gjson.Result) bool {
	return !v.Exists() || v.Type == gjson.Null
}

func decodeRange(v gjson.Result) (graph.RangeDef, error) {
	var def graph.RangeDef
	if absent(v) {
		return def, nil
	}
	if !v.IsObject() {
		return def, fmt.Errorf("expected object, got %s", v.Type)
	}
	for _, bound := range []struct {
		key string
		dst **float64
	}{{"min", &def.Min}, {"max", &def.Max}} {
		b := v.Get(bound.key)
		if absent(b) {
			continue
		}
		if b.Type != gjson.Number {
			return def, fmt.Errorf("%s must be a number", bound.key)
		}
		*bound.dst = graph.Float(b.Num)
	}
	if label := v.Get("label"); label.Exists() {
		def.Label = label.String()
	}
	return def, nil
}

func decodeChannels(v gjson.Result) ([]graph.Channel, error) {
	if absent(v) {
		return nil, nil
	}
	if !v.IsObject() {
		return nil, fmt.Errorf("expected object, got %s", v.Type)
	}
	var (
		out []graph.Channel
		err error
	)
	v.ForEach(func(key, value gjson.Result) bool {
		ch := graph.Channel{Name: key.String()}
		switch {
		case value.Type == gjson.Number:
			ch.Values = []float64{value.Num}
		case value.IsArray():
			for _, e := range value.Array() {
				if e.Type != gjson.Number {
					err = fmt.Errorf("channel %q: non-numeric element %s", ch.Name, e.Raw)
					return false
				}
				ch.Values = append(ch.Values, e.Num)
			}
		default:
			err = fmt.Errorf("channel %q: expected number or array", ch.Name)
			return false
		}
		out = append(out, ch)
		return true
	})
	return out, err
}

func decodeData(v gjson.Result) ([]graph.Datum, error) {
	if absent(v) {
		return nil, nil
	}
	if !v.IsObject() {
		return nil, fmt.Errorf("expected object, got %s", v.Type)
	}
	var (
		out []graph.Datum
		err error
	)
	v.ForEach(func(key, value gjson.Result) bool {
		if value.Type != gjson.Number {
			err = fmt.Errorf("variable %q: expected number", key.String())
			return false
		}
		out = append(out, graph.Datum{Name: key.String(), Value: value.Num})
		return true
	})
	return out, err
}

// EncodeGraph renders msgs in the object form read by DecodeGraph. Streams
// are written in name order; channels and data keep their order.
func EncodeGraph(msgs map[string]*graph.Message) ([]byte, error) {
	out := []byte(`{}`)
	names := make([]string, 0, len(msgs))
	for name := range msgs {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		obj, err := encodeGraphMessage(msgs[name])
		if err != nil {
			return nil, fmt.Errorf("encode graph %q: %w", name, err)
		}
		if out, err = sjson.SetRawBytes(out, escapePath(name), obj); err != nil {
			return nil, fmt.Errorf("encode graph %q: %w", name, err)
		}
	}
	return out, nil
}

func encodeGraphMessage(msg *graph.Message) ([]byte, error) {
	ldef, err := encodeRange(msg.LeftRange)
	if err != nil {
		return nil, err
	}
	rdef, err := encodeRange(msg.RightRange)
	if err != nil {
		return nil, err
	}
	left, err := encodeChannels(msg.Left)
	if err != nil {
		return nil, err
	}
	right, err := encodeChannels(msg.Right)
	if err != nil {
		return nil, err
	}
	data := []byte(`{}`)
	for _, d := range msg.Data {
		if data, err = sjson.SetBytes(data, escapePath(d.Name), d.Value); err != nil {
			return nil, err
		}
	}

	obj := []byte(`{}`)
	for _, part := range []struct {
		key string
		raw []byte
	}{{"left_range", ldef}, {"left", left}, {"right_range", rdef}, {"right", right}, {"data", data}} {
		if obj, err = sjson.SetRawBytes(obj, part.key, part.raw); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

func encodeRange(def graph.RangeDef) ([]byte, error) {
	out := []byte(`{}`)
	var err error
	if def.Min != nil {
		if out, err = sjson.SetBytes(out, "min", *def.Min); err != nil {
			return nil, err
		}
	}
	if def.Max != nil {
		if out, err = sjson.SetBytes(out, "max", *def.Max); err != nil {
			return nil, err
		}
	}
	return sjson.SetBytes(out, "label", def.Label)
}

func encodeChannels(chans []graph.Channel) ([]byte, error) {
	out := []byte(`{}`)
	var err error
	for _, ch := range chans {
		var v any = ch.Values
		if len(ch.Values) == 1 {
			v = ch.Values[0]
		}
		if out, err = sjson.SetBytes(out, escapePath(ch.Name), v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// escapePath makes a key safe to use as a single sjson path component.
func escapePath(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '\\', '|', '#', '@', '!', ':':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// frame is the wire form of one video frame: h rows of w pixels with c
// interleaved 8-bit channels (1 for gray, 3 for color).
type frame struct {
	H   int    `msgpack:"h"`
	W   int    `msgpack:"w"`
	C   int    `msgpack:"c"`
	Pix []byte `msgpack:"pix"`
}

// EncodeVideo packs frames into a msgpack map keyed by stream name. Gray
// images travel as one channel, everything else as three.
func EncodeVideo(frames map[string]image.Image) ([]byte, error) {
	wire := make(map[string]frame, len(frames))
	for name, img := range frames {
		wire[name] = toFrame(img)
	}
	data, err := msgpack.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("encode video: %w", err)
	}
	return data, nil
}

func toFrame(img image.Image) frame {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if g, ok := img.(*image.Gray); ok {
		pix := make([]byte, 0, w*h)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			off := g.PixOffset(b.Min.X, y)
			pix = append(pix, g.Pix[off:off+w]...)
		}
		return frame{H: h, W: w, C: 1, Pix: pix}
	}

	rgba, ok := img.(*image.RGBA)
	if !ok {
		rgba = image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
		b = rgba.Bounds()
	}
	pix := make([]byte, 0, w*h*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := rgba.PixOffset(b.Min.X, y)
		row := rgba.Pix[off : off+w*4]
		for x := 0; x < len(row); x += 4 {
			pix = append(pix, row[x], row[x+1], row[x+2])
		}
	}
	return frame{H: h, W: w, C: 3, Pix: pix}
}

// DecodeVideo unpacks a msgpack video payload. Single channel frames become
// *image.Gray, three channel frames *image.RGBA with the channel order kept
// as sent.
func DecodeVideo(data []byte) (map[string]image.Image, error) {
	var wire map[string]frame
	if err := msgpack.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: video payload: %w", ErrMalformedMessage, err)
	}
	out := make(map[string]image.Image, len(wire))
	var errs []error
	for name, f := range wire {
		img, err := f.image()
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: video %q: %w", ErrMalformedMessage, name, err))
			continue
		}
		out[name] = img
	}
	return out, errors.Join(errs...)
}

// MaxFrameSide bounds the width and height of a decoded frame.
const MaxFrameSide = 1 << 14

func (f frame) image() (image.Image, error) {
	if f.H <= 0 || f.W <= 0 || f.H > MaxFrameSide || f.W > MaxFrameSide {
		return nil, fmt.Errorf("bad size %dx%d", f.W, f.H)
	}
	if f.C != 1 && f.C != 3 {
		return nil, fmt.Errorf("unsupported channel count %d", f.C)
	}
	if want := f.H * f.W * f.C; len(f.Pix) != want {
		return nil, fmt.Errorf("pixel data is %d bytes, want %d", len(f.Pix), want)
	}

	if f.C == 1 {
		g := image.NewGray(image.Rect(0, 0, f.W, f.H))
		copy(g.Pix, f.Pix)
		return g, nil
	}
	img := image.NewRGBA(image.Rect(0, 0, f.W, f.H))
	for i, j := 0, 0; i < len(f.Pix); i, j = i+3, j+4 {
		img.Pix[j], img.Pix[j+1], img.Pix[j+2], img.Pix[j+3] = f.Pix[i], f.Pix[i+1], f.Pix[i+2], 255
	}
	return img, nil
}
