package stream

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

const mqttTimeout = 5 * time.Second

func brokerURL(broker string) string {
	if broker == "" {
		broker = "127.0.0.1:1883"
	}
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}
	return broker
}

// connectMQTT connects with auto-reconnect and (re)subscribes to every topic
// in subs on each connect.
func connectMQTT(broker, clientID string, subs map[string]func([]byte), logger *slog.Logger) (mqtt.Client, error) {
	url := brokerURL(broker)
	opts := mqtt.NewClientOptions()
	opts.AddBroker(url)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		logger.Info("mqtt connection established", "broker", url, "client_id", clientID)
		for topic, handle := range subs {
			token := c.Subscribe(topic, 0, func(_ mqtt.Client, m mqtt.Message) {
				handle(m.Payload())
			})
			if !token.WaitTimeout(mqttTimeout) || token.Error() != nil {
				logger.Error("mqtt subscribe failed", "topic", topic, "error", token.Error())
			}
		}
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost, will auto-reconnect", "broker", url, "error", err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttTimeout) {
		client.Disconnect(0)
		return nil, fmt.Errorf("mqtt connection to %s timed out", url)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connection to %s failed: %w", url, err)
	}
	return client, nil
}

// MQTTPublisher publishes payloads on <prefix>/graph and <prefix>/video.
type MQTTPublisher struct {
	client mqtt.Client
	cfg    Config
	logger *slog.Logger
}

// NewMQTTPublisher connects to cfg.MQTTBroker.
func NewMQTTPublisher(cfg Config, logger *slog.Logger) (*MQTTPublisher, error) {
	cfg = cfg.withDefaults()
	client, err := connectMQTT(cfg.MQTTBroker, "streamview-publisher-"+uuid.NewString()[:8], nil, logger)
	if err != nil {
		return nil, err
	}
	return &MQTTPublisher{client: client, cfg: cfg, logger: logger}, nil
}

func (p *MQTTPublisher) publish(kind string, data []byte) error {
	if !p.client.IsConnected() {
		return fmt.Errorf("publish %s: %w", kind, ErrNotConnected)
	}
	token := p.client.Publish(p.cfg.topic(kind), 0, false, data)
	if !token.WaitTimeout(2 * time.Second) {
		return fmt.Errorf("publish %s: %w", kind, errors.New("timeout"))
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", kind, err)
	}
	return nil
}

// PublishGraph encodes and publishes a graph payload.
func (p *MQTTPublisher) PublishGraph(payload GraphPayload) error {
	data, err := EncodeGraph(payload)
	if err != nil {
		return err
	}
	return p.publish(KindGraph, data)
}

// PublishVideo encodes and publishes a video payload.
func (p *MQTTPublisher) PublishVideo(payload VideoPayload) error {
	data, err := EncodeVideo(payload)
	if err != nil {
		return err
	}
	return p.publish(KindVideo, data)
}

// Close disconnects with a short grace period.
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}
