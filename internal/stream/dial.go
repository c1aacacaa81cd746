package stream

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net"
	"strconv"

	"github.com/google/uuid"

	"github.com/Robobluez/streamview/internal/graph"
)

// Transports understood by Dial and NewPublisher.
const (
	TransportWebsocket = "websocket"
	TransportNATS      = "nats"
	TransportMQTT      = "mqtt"
)

// Default ports of the websocket transport.
const (
	DefaultVideoPort = 5550
	DefaultGraphPort = 5551
)

// DefaultGraphQueue is how many graph payloads may wait for the viewer loop.
const DefaultGraphQueue = 64

// DefaultMaxMessageSize caps one websocket message: room for a few
// full-HD RGB frames in one video payload.
const DefaultMaxMessageSize = 32 << 20

// Config selects and addresses a transport.
type Config struct {
	Transport string

	// websocket: viewers dial Host (VideoHost for video, when set),
	// publishers listen on Bind
	Host      string
	VideoHost string
	Bind      string
	GraphPort int
	VideoPort int

	NATSURL    string
	MQTTBroker string
	// Prefix of NATS subjects (prefix.graph) and MQTT topics (prefix/graph).
	Prefix string

	GraphQueue int
	// MaxMessageSize bounds websocket messages read by viewers.
	MaxMessageSize int64
}

func (c Config) withDefaults() Config {
	if c.Transport == "" {
		c.Transport = TransportWebsocket
	}
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.VideoHost == "" {
		c.VideoHost = c.Host
	}
	if c.GraphPort == 0 {
		c.GraphPort = DefaultGraphPort
	}
	if c.VideoPort == 0 {
		c.VideoPort = DefaultVideoPort
	}
	if c.Prefix == "" {
		c.Prefix = "streamview"
	}
	if c.GraphQueue <= 0 {
		c.GraphQueue = DefaultGraphQueue
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = DefaultMaxMessageSize
	}
	return c
}

// ValidateTransport reports whether name is a known transport.
func ValidateTransport(name string) error {
	switch name {
	case TransportWebsocket, TransportNATS, TransportMQTT:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownTransport, name)
}

func (c Config) wsURL(kind string) string {
	host, port := c.Host, c.GraphPort
	if kind == KindVideo {
		host, port = c.VideoHost, c.VideoPort
	}
	return "ws://" + net.JoinHostPort(host, strconv.Itoa(port)) + "/" + kind
}

func (c Config) subject(kind string) string { return c.Prefix + "." + kind }
func (c Config) topic(kind string) string   { return c.Prefix + "/" + kind }

// Receiver is the viewer side of a transport: one graph and one video source.
type Receiver struct {
	graph   *feed[*graph.Message]
	video   *feed[image.Image]
	closers []func() error
}

func newReceiver(cfg Config, obs Observer, logger *slog.Logger) *Receiver {
	return &Receiver{
		graph: newFeed(KindGraph, cfg.GraphQueue, false, DecodeGraph, obs, logger),
		video: newFeed(KindVideo, 1, true, DecodeVideo, obs, logger),
	}
}

// Dial connects to the configured transport and starts receiving. Websocket
// sources keep retrying in the background until closed; NATS and MQTT fail
// here if the server cannot be reached.
func Dial(ctx context.Context, cfg Config, obs Observer, logger *slog.Logger) (*Receiver, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cfg = cfg.withDefaults()
	r := newReceiver(cfg, obs, logger)

	switch cfg.Transport {
	case TransportWebsocket:
		r.graph.closer = dialWebsocket(ctx, cfg.wsURL(KindGraph), cfg.MaxMessageSize, r.graph.handle, logger)
		r.video.closer = dialWebsocket(ctx, cfg.wsURL(KindVideo), cfg.MaxMessageSize, r.video.handle, logger)

	case TransportNATS:
		conn, err := connectNATS(cfg.NATSURL, "streamview-viewer", logger)
		if err != nil {
			return nil, err
		}
		if r.graph.closer, err = subscribeNATS(conn, cfg.subject(KindGraph), r.graph.handle); err != nil {
			conn.Close()
			return nil, err
		}
		if r.video.closer, err = subscribeNATS(conn, cfg.subject(KindVideo), r.video.handle); err != nil {
			_ = r.graph.Close()
			conn.Close()
			return nil, err
		}
		r.closers = append(r.closers, func() error { conn.Close(); return nil })

	case TransportMQTT:
		client, err := connectMQTT(cfg.MQTTBroker, "streamview-viewer-"+uuid.NewString()[:8], map[string]func([]byte){
			cfg.topic(KindGraph): r.graph.handle,
			cfg.topic(KindVideo): r.video.handle,
		}, logger)
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, func() error { client.Disconnect(250); return nil })

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, cfg.Transport)
	}
	return r, nil
}

// Graph returns the graph source.
func (r *Receiver) Graph() GraphSource { return r.graph }

// Video returns the video source.
func (r *Receiver) Video() VideoSource { return r.video }

// GraphStats returns the graph traffic counters.
func (r *Receiver) GraphStats() Stats { return r.graph.Stats() }

// VideoStats returns the video traffic counters.
func (r *Receiver) VideoStats() Stats { return r.video.Stats() }

// Close stops both sources and the shared connection, if any.
func (r *Receiver) Close() error {
	errs := []error{r.graph.Close(), r.video.Close()}
	for _, c := range r.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// NewPublisher starts the publishing side of the configured transport.
func NewPublisher(ctx context.Context, cfg Config, logger *slog.Logger) (Publisher, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cfg = cfg.withDefaults()
	switch cfg.Transport {
	case TransportWebsocket:
		return ListenWebsocket(ctx, cfg, logger)
	case TransportNATS:
		return NewNATSPublisher(cfg, logger)
	case TransportMQTT:
		return NewMQTTPublisher(cfg, logger)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, cfg.Transport)
}
