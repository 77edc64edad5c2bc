package session

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/teslashibe/go-miniapp/pkg/gesture"
	"github.com/teslashibe/go-miniapp/pkg/protocol"
)

// errPromptFailed is reported when the web-view answers "error" without a message.
var errPromptFailed = errors.New("session: permission prompt failed")

// wsSource is the motion stream of one web-view. Samples are pushed by the
// session read loop, so callbacks always run on that goroutine.
//
// A reported sensor error marks the source unavailable until the web-view
// delivers a valid sample again.
type wsSource struct {
	mu        sync.Mutex
	available bool
	token     uint64
	onSample  func(gesture.Sample)
	onLost    func(error)
}

func newSource(available bool) *wsSource {
	return &wsSource{available: available}
}

func (s *wsSource) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available
}

func (s *wsSource) Subscribe(onSample func(gesture.Sample), onLost func(error)) (func(), error) {
	s.mu.Lock()
	if !s.available {
		s.mu.Unlock()
		return nil, gesture.ErrSensorUnavailable
	}
	s.token++
	token := s.token
	s.onSample = onSample
	s.onLost = onLost
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		if s.token == token {
			s.onSample = nil
			s.onLost = nil
		}
		s.mu.Unlock()
	}, nil
}

func (s *wsSource) subscribed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onSample != nil
}

func (s *wsSource) push(sample gesture.Sample) {
	s.mu.Lock()
	if sample.Validate() == nil {
		s.available = true
	}
	fn := s.onSample
	s.mu.Unlock()
	if fn != nil {
		fn(sample)
	}
}

func (s *wsSource) lose(err error) {
	s.mu.Lock()
	fn := s.onLost
	s.available = false
	s.onSample = nil
	s.onLost = nil
	s.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

// wsGate asks the web-view to show the motion permission prompt and waits
// for the matching permission_result.
type wsGate struct {
	send func(*protocol.Message) error

	mu      sync.Mutex
	pending map[string]chan protocol.PermissionResultData
}

func newGate(send func(*protocol.Message) error) *wsGate {
	return &wsGate{
		send:    send,
		pending: make(map[string]chan protocol.PermissionResultData),
	}
}

func (g *wsGate) RequestPermission(ctx context.Context) (gesture.PermissionResult, error) {
	id := uuid.NewString()
	ch := make(chan protocol.PermissionResultData, 1)

	g.mu.Lock()
	g.pending[id] = ch
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		delete(g.pending, id)
		g.mu.Unlock()
	}()

	msg, err := protocol.NewPermissionRequestMessage(id)
	if err != nil {
		return gesture.PermissionDenied, err
	}
	if err := g.send(msg); err != nil {
		return gesture.PermissionDenied, err
	}

	select {
	case res := <-ch:
		switch res.Outcome {
		case protocol.OutcomeGranted:
			return gesture.PermissionGranted, nil
		case protocol.OutcomeDenied:
			return gesture.PermissionDenied, nil
		default:
			if res.Error != "" {
				return gesture.PermissionDenied, errors.New(res.Error)
			}
			return gesture.PermissionDenied, errPromptFailed
		}
	case <-ctx.Done():
		return gesture.PermissionDenied, ctx.Err()
	}
}

// resolve hands a permission_result to the waiting request. It reports
// false for unknown or already answered ids.
func (g *wsGate) resolve(res protocol.PermissionResultData) bool {
	g.mu.Lock()
	ch, ok := g.pending[res.ID]
	if ok {
		delete(g.pending, res.ID)
	}
	g.mu.Unlock()
	if !ok {
		return false
	}
	ch <- res
	return true
}

func (g *wsGate) pendingCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}
