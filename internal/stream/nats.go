package stream

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

func connectNATS(url, name string, logger *slog.Logger) (*nats.Conn, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected, will reconnect", "url", url, "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats %s: %w", url, err)
	}
	logger.Info("nats connected", "url", conn.ConnectedUrl())
	return conn, nil
}

func subscribeNATS(conn *nats.Conn, subject string, handle func([]byte)) (func() error, error) {
	sub, err := conn.Subscribe(subject, func(m *nats.Msg) {
		handle(m.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", subject, err)
	}
	return sub.Unsubscribe, nil
}

// NATSPublisher publishes payloads on <prefix>.graph and <prefix>.video.
type NATSPublisher struct {
	conn   *nats.Conn
	cfg    Config
	logger *slog.Logger
}

// NewNATSPublisher connects to cfg.NATSURL.
func NewNATSPublisher(cfg Config, logger *slog.Logger) (*NATSPublisher, error) {
	cfg = cfg.withDefaults()
	conn, err := connectNATS(cfg.NATSURL, "streamview-publisher", logger)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: conn, cfg: cfg, logger: logger}, nil
}

func (p *NATSPublisher) publish(kind string, data []byte) error {
	if !p.conn.IsConnected() {
		return fmt.Errorf("publish %s: %w", kind, ErrNotConnected)
	}
	if err := p.conn.Publish(p.cfg.subject(kind), data); err != nil {
		return fmt.Errorf("publish %s: %w", kind, err)
	}
	return nil
}

// PublishGraph encodes and publishes a graph payload.
func (p *NATSPublisher) PublishGraph(payload GraphPayload) error {
	data, err := EncodeGraph(payload)
	if err != nil {
		return err
	}
	return p.publish(KindGraph, data)
}

// PublishVideo encodes and publishes a video payload.
func (p *NATSPublisher) PublishVideo(payload VideoPayload) error {
	data, err := EncodeVideo(payload)
	if err != nil {
		return err
	}
	return p.publish(KindVideo, data)
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	defer p.conn.Close()
	if !p.conn.IsConnected() {
		return nil
	}
	return p.conn.FlushTimeout(2 * time.Second)
}
