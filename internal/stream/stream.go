// Package stream moves graph samples and video frames between publishers and
// the viewer over websocket, NATS or MQTT.
package stream

import (
	"errors"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Robobluez/streamview/internal/graph"
)

var (
	// ErrMalformedMessage marks payloads that could not be decoded.
	ErrMalformedMessage = errors.New("malformed message")
	// ErrUnknownTransport is returned for transports other than websocket,
	// nats and mqtt.
	ErrUnknownTransport = errors.New("unknown transport")
	// ErrNotConnected is returned when publishing without a connection.
	ErrNotConnected = errors.New("not connected")
)

// Payload kinds, used in logs and metrics.
const (
	KindGraph = "graph"
	KindVideo = "video"
)

type (
	GraphPayload = map[string]*graph.Message
	VideoPayload = map[string]image.Image
)

// Source hands out decoded payloads without blocking.
type Source[T any] interface {
	// Read returns the next payload, or false if none is waiting.
	Read() (T, bool)
	Close() error
}

type (
	GraphSource = Source[GraphPayload]
	VideoSource = Source[VideoPayload]
)

// Observer is told about traffic on a source. metrics.Metrics implements it.
type Observer interface {
	MessageReceived(kind string)
	MessageDropped(kind string)
	DecodeError(kind string)
}

type nopObserver struct{}

func (nopObserver) MessageReceived(string) {}
func (nopObserver) MessageDropped(string)  {}
func (nopObserver) DecodeError(string)     {}

// Stats summarises traffic on one source.
type Stats struct {
	Received     int64
	Dropped      int64
	DecodeErrors int64
}

// inbox is the hand-over point between a transport goroutine and the
// polling loop. A conflating inbox keeps only the latest payload; otherwise
// payloads queue up to the buffer size and newer ones are dropped when full.
type inbox[T any] struct {
	ch       chan T
	conflate bool

	received atomic.Int64
	dropped  atomic.Int64
}

func newInbox[T any](size int, conflate bool) *inbox[T] {
	if conflate || size < 1 {
		size = 1
	}
	return &inbox[T]{ch: make(chan T, size), conflate: conflate}
}

// put stores v and reports whether a payload was dropped to make room.
func (b *inbox[T]) put(v T) (dropped bool) {
	b.received.Add(1)
	if !b.conflate {
		select {
		case b.ch <- v:
			return false
		default:
			b.dropped.Add(1)
			return true
		}
	}
	for {
		select {
		case b.ch <- v:
			return dropped
		default:
		}
		// Replace the stale payload
		select {
		case <-b.ch:
			b.dropped.Add(1)
			dropped = true
		default:
		}
	}
}

func (b *inbox[T]) read() (T, bool) {
	select {
	case v := <-b.ch:
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// feed decodes raw messages from a transport into an inbox.
type feed[V any] struct {
	kind   string
	box    *inbox[map[string]V]
	decode func([]byte) (map[string]V, error)
	obs    Observer
	logger *slog.Logger

	decodeErrors atomic.Int64

	closeOnce sync.Once
	closer    func() error
	closeErr  error
}

func newFeed[V any](kind string, size int, conflate bool, decode func([]byte) (map[string]V, error), obs Observer, logger *slog.Logger) *feed[V] {
	if obs == nil {
		obs = nopObserver{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &feed[V]{
		kind:   kind,
		box:    newInbox[map[string]V](size, conflate),
		decode: decode,
		obs:    obs,
		logger: logger,
	}
}

// handle is called from transport goroutines with one raw message.
func (f *feed[V]) handle(data []byte) {
	payload, err := f.decode(data)
	if err != nil {
		f.decodeErrors.Add(1)
		f.obs.DecodeError(f.kind)
		f.logger.Warn("dropping malformed streams", "kind", f.kind, "error", err)
	}
	if len(payload) == 0 {
		return
	}
	f.obs.MessageReceived(f.kind)
	if f.box.put(payload) {
		f.obs.MessageDropped(f.kind)
	}
}

// Read implements Source.
func (f *feed[V]) Read() (map[string]V, bool) { return f.box.read() }

// Close stops the transport behind the feed.
func (f *feed[V]) Close() error {
	f.closeOnce.Do(func() {
		if f.closer != nil {
			f.closeErr = f.closer()
		}
	})
	return f.closeErr
}

// Stats returns the traffic counters.
func (f *feed[V]) Stats() Stats {
	return Stats{
		Received:     f.box.received.Load(),
		Dropped:      f.box.dropped.Load(),
		DecodeErrors: f.decodeErrors.Load(),
	}
}

// Publisher sends payloads to viewers.
type Publisher interface {
	PublishGraph(GraphPayload) error
	PublishVideo(VideoPayload) error
	Close() error
}
