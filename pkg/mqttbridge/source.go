package mqttbridge

import (
	"encoding/json"
	"fmt"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/teslashibe/go-miniapp/pkg/gesture"
	"github.com/teslashibe/go-miniapp/pkg/protocol"
)

// Source is a gesture.MotionSource fed by JSON motion samples on an MQTT
// topic, in the same shape as the web-view's motion message data.
type Source struct {
	bridge *Bridge
	topic  string

	mu       sync.Mutex
	token    uint64
	onSample func(gesture.Sample)
	onLost   func(error)
}

// Source returns a motion source reading topic.
func (b *Bridge) Source(topic string) *Source {
	s := &Source{bridge: b, topic: topic}
	b.mu.Lock()
	b.sources = append(b.sources, s)
	b.mu.Unlock()
	return s
}

// Available reports whether the broker connection is up.
func (s *Source) Available() bool {
	return s.bridge.client != nil && s.bridge.client.IsConnected()
}

// Subscribe implements gesture.MotionSource. It returns without waiting for
// the broker: a refused or unacknowledged subscription is reported through
// onLost.
func (s *Source) Subscribe(onSample func(gesture.Sample), onLost func(error)) (func(), error) {
	if s.bridge.client == nil {
		return nil, ErrNotConnected
	}

	s.mu.Lock()
	s.token++
	token := s.token
	s.onSample = onSample
	s.onLost = onLost
	s.mu.Unlock()

	go s.confirm(token, s.bridge.client.Subscribe(s.topic, 0, s.onMessage))

	var once sync.Once
	return func() {
		once.Do(func() {
			if s.clear(token) {
				s.bridge.client.Unsubscribe(s.topic)
			}
		})
	}, nil
}

// confirm waits for the SUBACK of subscription token.
func (s *Source) confirm(token uint64, t mqtt.Token) {
	var err error
	if !t.WaitTimeout(connectTimeout) {
		err = fmt.Errorf("subscribe %s: %w", s.topic, ErrTimeout)
	} else if t.Error() != nil {
		err = fmt.Errorf("subscribe %s: %w", s.topic, t.Error())
	}
	if err == nil {
		s.bridge.logger.Info("motion source subscribed", "topic", s.topic)
		return
	}
	s.bridge.logger.Warn("motion subscription failed", "error", err)
	s.loseToken(token, err)
}

func (s *Source) clear(token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != token {
		return false
	}
	s.onSample = nil
	s.onLost = nil
	return true
}

func (s *Source) onMessage(_ mqtt.Client, msg mqtt.Message) {
	s.handlePayload(msg.Payload())
}

func (s *Source) handlePayload(payload []byte) {
	sample, err := ParseSample(payload)
	if err != nil {
		s.bridge.logger.Debug("dropping motion payload", "topic", s.topic, "error", err)
		return
	}
	s.bridge.received.Add(1)

	s.mu.Lock()
	fn := s.onSample
	s.mu.Unlock()
	if fn != nil {
		fn(sample)
	}
}

func (s *Source) lose(err error) {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()
	s.loseToken(token, err)
}

// loseToken reports err to the subscriber holding token, if it still does.
func (s *Source) loseToken(token uint64, err error) {
	s.mu.Lock()
	if s.token != token {
		s.mu.Unlock()
		return
	}
	fn := s.onLost
	s.onSample = nil
	s.onLost = nil
	s.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

// ParseSample decodes a JSON motion payload {"x","y","z","t","gravity"}.
func ParseSample(payload []byte) (gesture.Sample, error) {
	var m protocol.MotionData
	if err := json.Unmarshal(payload, &m); err != nil {
		return gesture.Sample{}, fmt.Errorf("decode motion: %w", err)
	}
	s := m.Sample()
	if err := s.Validate(); err != nil {
		return gesture.Sample{}, err
	}
	return s, nil
}
