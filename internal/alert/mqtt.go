package alert

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	// DefaultTopicPrefix is used when no MQTT topic prefix is configured.
	DefaultTopicPrefix = "facewatch"

	connectTimeout = 5 * time.Second
	publishTimeout = 2 * time.Second
)

// MQTTConfig holds broker settings for the MQTT sender.
type MQTTConfig struct {
	Broker      string // host:port or a full tcp:// URL
	ClientID    string
	TopicPrefix string
	QoS         byte
}

// Payload is the JSON document published for every alert.
type Payload struct {
	ID        string    `json:"id"`
	Identity  string    `json:"identity"`
	Caption   string    `json:"caption"`
	Timestamp time.Time `json:"timestamp"`
	ImageB64  string    `json:"image_b64,omitempty"`
}

// NewPayload converts a into its published form.
func NewPayload(a Alert) Payload {
	p := Payload{
		ID:        a.ID,
		Identity:  a.Identity,
		Caption:   a.Caption,
		Timestamp: a.Timestamp,
	}
	if len(a.Image) > 0 {
		p.ImageB64 = base64.StdEncoding.EncodeToString(a.Image)
	}
	return p
}

// MQTT publishes alerts to <prefix>/alerts/<identity>.
type MQTT struct {
	cfg       MQTTConfig
	client    mqtt.Client
	connected atomic.Bool
	published atomic.Uint64
}

// NewMQTT creates an unconnected sender, or nil when no broker is configured.
func NewMQTT(cfg MQTTConfig) *MQTT {
	if cfg.Broker == "" {
		return nil
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = DefaultTopicPrefix
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "facewatch"
	}
	return &MQTT{cfg: cfg}
}

// Connect dials the broker. The client reconnects on its own afterwards.
func (m *MQTT) Connect() error {
	broker := m.cfg.Broker
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(m.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnect = func(mqtt.Client) {
		m.connected.Store(true)
		log.Printf("alert: mqtt connected to %s", broker)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		m.connected.Store(false)
		log.Printf("alert: mqtt connection lost: %v", err)
	}

	m.client = mqtt.NewClient(opts)
	token := m.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("mqtt connect to %s: timeout", broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect to %s: %w", broker, err)
	}
	m.connected.Store(true)
	return nil
}

// Topic returns the topic alerts for identity are published to.
func (m *MQTT) Topic(identity string) string {
	return fmt.Sprintf("%s/alerts/%s", m.cfg.TopicPrefix, topicSegment(identity))
}

// Send publishes a as JSON.
func (m *MQTT) Send(ctx context.Context, a Alert) error {
	if m == nil || m.client == nil {
		return ErrNotConfigured
	}
	if !m.connected.Load() {
		return fmt.Errorf("mqtt not connected")
	}

	payload, err := json.Marshal(NewPayload(a))
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	token := m.client.Publish(m.Topic(a.Identity), m.cfg.QoS, false, payload)
	select {
	case <-token.Done():
	case <-time.After(publishTimeout):
		return fmt.Errorf("mqtt publish: timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish: %w", err)
	}

	m.published.Add(1)
	return nil
}

// Published returns the number of alerts delivered to the broker.
func (m *MQTT) Published() uint64 {
	return m.published.Load()
}

// Close disconnects from the broker.
func (m *MQTT) Close() {
	if m != nil && m.client != nil {
		m.client.Disconnect(250)
	}
}

// topicSegment strips MQTT wildcard and separator characters from s.
func topicSegment(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '+', '#':
			return '_'
		}
		return r
	}, s)
}
