// Package mqttbridge mirrors shake events onto MQTT and can feed a detector
// from motion samples published by headless devices.
package mqttbridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/teslashibe/go-miniapp/pkg/gesture"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 2 * time.Second
)

var (
	// ErrTimeout is returned when the broker does not acknowledge in time.
	ErrTimeout = errors.New("mqttbridge: timeout")

	// ErrNotConnected is returned when publishing before Start.
	ErrNotConnected = errors.New("mqttbridge: not connected")
)

// Config holds the broker connection settings.
type Config struct {
	Broker      string // tcp://host:1883, ssl://host:8883, ws://...
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// client is the part of mqtt.Client the bridge uses.
type client interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
}

// Bridge is a connected MQTT client.
type Bridge struct {
	cfg    Config
	logger *slog.Logger
	conn   mqtt.Client
	client client

	mu          sync.Mutex
	sources     []*Source
	onConnected []func()

	published atomic.Uint64
	received  atomic.Uint64
}

// New creates a bridge. Call Start to connect.
func New(cfg Config, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "go-miniapp"
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "miniapp"
	}
	return &Bridge{cfg: cfg, logger: logger.With("component", "mqtt")}
}

// Start connects to the broker.
func (b *Bridge) Start() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(b.cfg.Broker)
	opts.SetClientID(fmt.Sprintf("%s-%d", b.cfg.ClientID, time.Now().Unix()))
	if b.cfg.Username != "" {
		opts.SetUsername(b.cfg.Username)
		opts.SetPassword(b.cfg.Password)
	}

	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = b.onConnect
	opts.OnConnectionLost = b.onConnectionLost
	opts.OnReconnecting = b.onReconnecting

	b.conn = mqtt.NewClient(opts)
	b.client = b.conn

	b.logger.Info("connecting", "broker", b.cfg.Broker)
	token := b.conn.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("mqtt connect: %w", ErrTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

// Stop disconnects from the broker.
func (b *Bridge) Stop() {
	if b.conn != nil && b.conn.IsConnected() {
		b.conn.Disconnect(250)
	}
	b.logger.Info("disconnected", "published", b.published.Load(), "received", b.received.Load())
}

// OnConnected registers fn to run after every successful connect, including
// automatic reconnects. Subscriptions do not survive a reconnect, so this is
// where consumers restart their sources.
func (b *Bridge) OnConnected(fn func()) {
	b.mu.Lock()
	b.onConnected = append(b.onConnected, fn)
	b.mu.Unlock()
}

func (b *Bridge) onConnect(mqtt.Client) {
	b.logger.Info("connected", "broker", b.cfg.Broker)

	b.mu.Lock()
	hooks := append([]func(){}, b.onConnected...)
	b.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

func (b *Bridge) onConnectionLost(_ mqtt.Client, err error) {
	b.logger.Warn("connection lost", "error", err)

	b.mu.Lock()
	sources := append([]*Source(nil), b.sources...)
	b.mu.Unlock()
	for _, s := range sources {
		s.lose(err)
	}
}

func (b *Bridge) onReconnecting(mqtt.Client, *mqtt.ClientOptions) {
	b.logger.Debug("reconnecting")
}

// ShakeTopic returns the topic shakes of a session are published to.
func (b *Bridge) ShakeTopic(sessionID string) string {
	return strings.TrimSuffix(b.cfg.TopicPrefix, "/") + "/" + sessionID + "/shake"
}

// ShakePayload is the JSON body of a shake publication.
type ShakePayload struct {
	Session   string  `json:"session"`
	Sequence  uint64  `json:"seq"`
	Magnitude float64 `json:"magnitude"`
	At        int64   `json:"t"`
}

// PublishShake publishes ev at QoS 0.
func (b *Bridge) PublishShake(sessionID string, ev gesture.ShakeEvent) error {
	if b.client == nil {
		return ErrNotConnected
	}
	payload, err := json.Marshal(ShakePayload{
		Session:   sessionID,
		Sequence:  ev.Sequence,
		Magnitude: ev.Magnitude,
		At:        ev.OccurredAtMillis,
	})
	if err != nil {
		return err
	}

	token := b.client.Publish(b.ShakeTopic(sessionID), 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return ErrTimeout
	}
	if err := token.Error(); err != nil {
		return err
	}
	b.published.Add(1)
	return nil
}

// Published returns the number of shakes published.
func (b *Bridge) Published() uint64 {
	return b.published.Load()
}
