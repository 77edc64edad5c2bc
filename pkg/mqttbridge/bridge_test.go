package mqttbridge

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-miniapp/pkg/gesture"
)

type doneToken struct {
	err error
}

func (t *doneToken) Wait() bool                     { return true }
func (t *doneToken) WaitTimeout(time.Duration) bool { return true }
func (t *doneToken) Error() error                   { return t.err }
func (t *doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic   string
	payload []byte
}

type fakeClient struct {
	mu           sync.Mutex
	connected    bool
	publishErr   error
	subscribeErr error
	published    []published
	handlers     map[string]mqtt.MessageHandler
	unsubscribed []string
}

func (c *fakeClient) IsConnected() bool { return c.connected }

func (c *fakeClient) Publish(topic string, _ byte, _ bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publishErr == nil {
		c.published = append(c.published, published{topic: topic, payload: payload.([]byte)})
	}
	return &doneToken{err: c.publishErr}
}

func (c *fakeClient) Subscribe(topic string, _ byte, cb mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subscribeErr == nil {
		if c.handlers == nil {
			c.handlers = make(map[string]mqtt.MessageHandler)
		}
		c.handlers[topic] = cb
	}
	return &doneToken{err: c.subscribeErr}
}

func (c *fakeClient) Unsubscribe(topics ...string) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unsubscribed = append(c.unsubscribed, topics...)
	for _, t := range topics {
		delete(c.handlers, t)
	}
	return &doneToken{}
}

func newTestBridge(c *fakeClient) *Bridge {
	b := New(Config{Broker: "tcp://localhost:1883", TopicPrefix: "miniapp/"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	b.client = c
	return b
}

func TestPublishShake(t *testing.T) {
	c := &fakeClient{connected: true}
	b := newTestBridge(c)

	err := b.PublishShake("s-1", gesture.ShakeEvent{Sequence: 3, Magnitude: 18.5, OccurredAtMillis: 1200})
	require.NoError(t, err)

	require.Len(t, c.published, 1)
	assert.Equal(t, "miniapp/s-1/shake", c.published[0].topic)

	var payload ShakePayload
	require.NoError(t, json.Unmarshal(c.published[0].payload, &payload))
	assert.Equal(t, ShakePayload{Session: "s-1", Sequence: 3, Magnitude: 18.5, At: 1200}, payload)
	assert.Equal(t, uint64(1), b.Published())
}

func TestPublishShakeErrors(t *testing.T) {
	b := New(Config{}, nil)
	assert.ErrorIs(t, b.PublishShake("s", gesture.ShakeEvent{}), ErrNotConnected)

	c := &fakeClient{publishErr: errors.New("not connected")}
	b = newTestBridge(c)
	assert.Error(t, b.PublishShake("s", gesture.ShakeEvent{}))
	assert.Equal(t, uint64(0), b.Published())
}

func TestParseSample(t *testing.T) {
	s, err := ParseSample([]byte(`{"x":1.5,"y":null,"z":-2,"t":99,"gravity":true}`))
	require.NoError(t, err)
	assert.Equal(t, 1.5, s.X)
	assert.Equal(t, gesture.AxisY, s.Absent)
	assert.Equal(t, int64(99), s.CapturedAtMillis)
	assert.True(t, s.IncludesGravity)

	_, err = ParseSample([]byte(`{"t":1}`))
	assert.ErrorIs(t, err, gesture.ErrInvalidSample)

	_, err = ParseSample([]byte(`nope`))
	assert.Error(t, err)
}

func TestSourceFeedsDetector(t *testing.T) {
	c := &fakeClient{connected: true}
	b := newTestBridge(c)
	src := b.Source("devices/pi/motion")
	require.True(t, src.Available())

	det, err := gesture.New(gesture.DefaultConfig(), src, gesture.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)

	var shakes []gesture.ShakeEvent
	det.OnShake(func(ev gesture.ShakeEvent) { shakes = append(shakes, ev) })

	state, err := det.Start()
	require.NoError(t, err)
	require.Equal(t, gesture.StateActive, state)

	handler := c.handlers["devices/pi/motion"]
	require.NotNil(t, handler)
	src.handlePayload([]byte(`{"x":0,"y":0,"z":1,"t":100}`))
	src.handlePayload([]byte(`{"x":0,"y":22,"z":0,"t":200}`))
	src.handlePayload([]byte(`garbage`))

	require.Len(t, shakes, 1)
	assert.Equal(t, 22.0, shakes[0].Magnitude)

	det.Stop()
	assert.Equal(t, []string{"devices/pi/motion"}, c.unsubscribed)

	// After unsubscribing nothing reaches the detector.
	src.handlePayload([]byte(`{"x":0,"y":40,"z":0,"t":900}`))
	assert.Len(t, shakes, 1)
}

func TestSourceConnectionLost(t *testing.T) {
	c := &fakeClient{connected: true}
	b := newTestBridge(c)
	src := b.Source("motion")

	det, err := gesture.New(gesture.DefaultConfig(), src, gesture.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	_, err = det.Start()
	require.NoError(t, err)

	b.onConnectionLost(nil, errors.New("broker went away"))
	assert.Equal(t, gesture.StateError, det.State())
	assert.ErrorIs(t, det.Err(), gesture.ErrSensorUnavailable)
}

func TestSourceUnavailable(t *testing.T) {
	b := newTestBridge(&fakeClient{connected: false})
	src := b.Source("motion")

	det, err := gesture.New(gesture.DefaultConfig(), src)
	require.NoError(t, err)
	state, err := det.Start()
	assert.Equal(t, gesture.StateError, state)
	assert.ErrorIs(t, err, gesture.ErrSensorUnavailable)

}

func TestSubscribeRefusedReportsLoss(t *testing.T) {
	c := &fakeClient{connected: true, subscribeErr: errors.New("not authorized")}
	b := newTestBridge(c)

	det, err := gesture.New(gesture.DefaultConfig(), b.Source("motion"), gesture.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)

	// Start does not wait for the broker.
	state, err := det.Start()
	require.NoError(t, err)
	assert.Equal(t, gesture.StateActive, state)

	assert.Eventually(t, func() bool { return det.State() == gesture.StateError }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, det.Err(), gesture.ErrSensorUnavailable)
	assert.Contains(t, det.Err().Error(), "not authorized")
}

func TestHeadlessDetectorRecoversOnReconnect(t *testing.T) {
	c := &fakeClient{connected: true}
	b := newTestBridge(c)
	src := b.Source("motion")

	det, err := gesture.New(gesture.DefaultConfig(), src, gesture.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	var mu sync.Mutex
	var shakes []gesture.ShakeEvent
	det.OnShake(func(ev gesture.ShakeEvent) {
		mu.Lock()
		shakes = append(shakes, ev)
		mu.Unlock()
	})
	b.OnConnected(func() {
		if det.State() == gesture.StateError {
			det.Start()
		}
	})
	_, err = det.Start()
	require.NoError(t, err)

	b.onConnectionLost(nil, errors.New("broker went away"))
	require.Equal(t, gesture.StateError, det.State())

	// Samples while disconnected go nowhere.
	src.handlePayload([]byte(`{"x":0,"y":30,"z":0,"t":100}`))

	b.onConnect(nil)
	assert.Equal(t, gesture.StateActive, det.State())

	src.handlePayload([]byte(`{"x":0,"y":0,"z":1,"t":1000}`))
	src.handlePayload([]byte(`{"x":0,"y":22,"z":0,"t":1100}`))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, shakes, 1)
	assert.Equal(t, int64(1100), shakes[0].OccurredAtMillis)
}
