package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/teslashibe/go-miniapp/pkg/debuglog"
	"github.com/teslashibe/go-miniapp/pkg/gesture"
	"github.com/teslashibe/go-miniapp/pkg/orientation"
	"github.com/teslashibe/go-miniapp/pkg/protocol"
	"github.com/teslashibe/go-miniapp/pkg/telegram"
)

// Main button labels.
const (
	LabelStart  = "Start shake detection"
	LabelStop   = "Stop shake detection"
	LabelEnable = "Enable shake detection"
)

// HapticStyle is the impact style sent on every shake.
const HapticStyle = "heavy"

// ErrSessionClosed is returned when writing to a closed session.
var ErrSessionClosed = errors.New("session: closed")

// frameWriter is the write half of a websocket connection.
type frameWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// Session is one open Mini App web-view.
type Session struct {
	ID        string
	Connected time.Time

	manager *Manager
	logger  *slog.Logger

	writeMu sync.Mutex
	conn    frameWriter
	closed  bool

	mu        sync.Mutex
	lastSeen  time.Time
	user      protocol.UserInfo
	preset    string
	platform  string
	detector  *gesture.Detector
	source    *wsSource
	gate      *wsGate
	tracker   *orientation.Tracker
	granted   bool
	resumable bool
}

func newSession(id string, conn frameWriter, m *Manager) *Session {
	now := m.now()
	return &Session{
		ID:        id,
		Connected: now,
		manager:   m,
		logger:    m.logger.With("session", id),
		conn:      conn,
		lastSeen:  now,
	}
}

// Detector returns the session detector, or nil before hello.
func (s *Session) Detector() *gesture.Detector {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detector
}

// Send writes a message to the web-view.
func (s *Session) Send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	s.manager.messagesSent.Add(1)
	return nil
}

func (s *Session) sendOrLog(msg *protocol.Message, err error) {
	if err == nil {
		err = s.Send(msg)
	}
	if err != nil && !errors.Is(err, ErrSessionClosed) {
		s.logger.Debug("send failed", "error", err)
	}
}

// HandleFrame validates and dispatches one inbound frame.
func (s *Session) HandleFrame(data []byte) {
	s.mu.Lock()
	s.lastSeen = s.manager.now()
	s.mu.Unlock()

	msg, err := s.manager.validator.Decode(data)
	if err != nil {
		s.manager.invalidFrames.Add(1)
		s.logger.Warn("dropping invalid frame", "error", err)
		return
	}
	s.handleMessage(msg)
}

func (s *Session) handleMessage(msg *protocol.Message) {
	switch msg.Type {
	case protocol.TypeHello:
		hello, err := msg.GetHelloData()
		if err == nil {
			s.handleHello(hello)
		}

	case protocol.TypeMotion:
		motion, err := msg.GetMotionData()
		if err == nil {
			s.handleMotion(motion)
		}

	case protocol.TypeOrientation:
		o, err := msg.GetOrientationData()
		if err == nil {
			s.handleOrientation(o)
		}

	case protocol.TypePermissionResult:
		res, err := msg.GetPermissionResultData()
		if err == nil {
			s.handlePermissionResult(res)
		}

	case protocol.TypeVisibility:
		v, err := msg.GetVisibilityData()
		if err == nil {
			s.handleVisibility(v.Visible)
		}

	case protocol.TypeControl:
		ctrl, err := msg.GetControlData()
		if err == nil {
			s.handleControl(ctrl.Action)
		}

	case protocol.TypeSensorError:
		se, err := msg.GetSensorErrorData()
		if err == nil {
			s.handleSensorError(se.Reason)
		}

	case protocol.TypeLog:
		l, err := msg.GetLogData()
		if err == nil {
			s.handleLog(l)
		}

	case protocol.TypePing:
		ping, err := msg.GetPingData()
		id := ""
		if err == nil && ping != nil {
			id = ping.ID
		}
		pong, err := protocol.NewPongMessage(id, msg.Timestamp, s.manager.now().UnixMilli())
		s.sendOrLog(pong, err)
	}
}

func (s *Session) handleHello(hello *protocol.HelloData) {
	s.mu.Lock()
	if s.detector != nil {
		s.mu.Unlock()
		s.logger.Warn("ignoring repeated hello")
		return
	}
	s.mu.Unlock()

	settings := s.manager.Settings()
	user := s.resolveUser(hello.InitData, settings)
	preset, cfg := settings.detectorConfig(hello.Preset)

	source := newSource(hello.MotionSupported)
	opts := []gesture.Option{
		gesture.WithLogger(s.logger),
		gesture.WithFeedback(gesture.FeedbackFunc(s.haptic)),
	}
	var gate *wsGate
	if hello.PermissionRequired {
		gate = newGate(s.Send)
		opts = append(opts, gesture.WithPermissionGate(gate))
	}

	det, err := gesture.New(cfg, source, opts...)
	if err != nil {
		s.logger.Error("invalid detector config", "preset", preset, "error", err)
		preset, cfg = gesture.PresetMedium, gesture.DefaultConfig()
		det, _ = gesture.New(cfg, source, opts...)
	}
	det.OnStateChange(s.stateChanged)
	det.OnShake(s.shake)

	s.mu.Lock()
	s.user = user
	s.preset = preset
	s.platform = hello.Platform
	s.detector = det
	s.source = source
	s.gate = gate
	if hello.OrientationSupported {
		s.tracker = &orientation.Tracker{}
	}
	s.mu.Unlock()

	s.logger.Info("session hello",
		"platform", hello.Platform,
		"user", user.Name,
		"verified", user.Verified,
		"preset", preset,
		"motion", hello.MotionSupported,
		"permission_required", hello.PermissionRequired,
	)

	vars := hello.Theme.Merge(telegram.DefaultTheme()).CSSVars()
	for k, v := range hello.Viewport.CSSVars() {
		vars[k] = v
	}
	welcome, err := protocol.NewWelcomeMessage(protocol.WelcomeData{
		SessionID:  s.ID,
		User:       user,
		CSSVars:    vars,
		Preset:     preset,
		Detector:   cfg,
		MainButton: mainButton(gesture.StateUninitialized, gate != nil),
	})
	s.sendOrLog(welcome, err)

	// Platforms with a permission prompt need a user gesture first.
	if gate == nil {
		det.Start()
	} else {
		st, err := protocol.NewStateMessage(det.Status())
		s.sendOrLog(st, err)
	}
}

func (s *Session) resolveUser(raw string, settings Settings) protocol.UserInfo {
	guest := userInfo(nil, false)
	if raw == "" {
		return guest
	}

	if settings.BotToken != "" {
		data, err := telegram.ValidateInitData(raw, settings.BotToken, settings.InitDataMaxAge, s.manager.now())
		if err == nil {
			return userInfo(data.User, true)
		}
		s.logger.Warn("init data rejected", "error", err)
		if !settings.AllowUnverified {
			return guest
		}
	} else if !settings.AllowUnverified {
		return guest
	}

	data, err := telegram.ParseInitData(raw)
	if err != nil {
		return guest
	}
	return userInfo(data.User, false)
}

func userInfo(u *telegram.User, verified bool) protocol.UserInfo {
	info := protocol.UserInfo{Name: u.DisplayName(), Verified: verified && u != nil}
	if u != nil {
		info.ID = u.ID
		info.Username = u.Username
	}
	return info
}

func (s *Session) handleMotion(m *protocol.MotionData) {
	s.mu.Lock()
	source := s.source
	s.mu.Unlock()
	if source == nil {
		return
	}
	s.manager.samplesReceived.Add(1)
	source.push(m.Sample())
}

func (s *Session) handleOrientation(o *protocol.OrientationData) {
	s.mu.Lock()
	tracker := s.tracker
	if tracker == nil {
		s.mu.Unlock()
		return
	}
	label, changed := tracker.Update(o.Reading)
	s.mu.Unlock()

	if changed {
		msg, err := protocol.NewOrientationLabelMessage(label)
		s.sendOrLog(msg, err)
	}
}

func (s *Session) handlePermissionResult(res *protocol.PermissionResultData) {
	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()
	if gate == nil || !gate.resolve(*res) {
		s.logger.Debug("unmatched permission result", "id", res.ID, "outcome", res.Outcome)
	}
}

func (s *Session) handleVisibility(visible bool) {
	det := s.Detector()
	if det == nil {
		return
	}
	if !visible {
		state := det.State()
		running := state == gesture.StateActive || state == gesture.StateAwaitingPermission
		s.mu.Lock()
		s.resumable = running
		s.mu.Unlock()
		if running {
			det.Stop()
		}
		return
	}

	s.mu.Lock()
	resume := s.resumable
	s.resumable = false
	s.mu.Unlock()
	if resume {
		det.Start()
	}
}

func (s *Session) handleControl(action string) {
	det := s.Detector()
	if det == nil {
		s.logger.Debug("control before hello", "action", action)
		return
	}
	switch action {
	case protocol.ActionStart, protocol.ActionRequestPermission:
		det.Start()
	case protocol.ActionStop:
		det.Stop()
	case protocol.ActionToggle:
		switch det.State() {
		case gesture.StateActive, gesture.StateAwaitingPermission:
			det.Stop()
		default:
			det.Start()
		}
	}
}

func (s *Session) handleSensorError(reason string) {
	s.mu.Lock()
	source := s.source
	s.mu.Unlock()
	if source == nil {
		return
	}
	if reason == "" {
		reason = "motion stream lost"
	}
	source.lose(errors.New(reason))
}

func (s *Session) handleLog(l *protocol.LogData) {
	var attrs map[string]string
	if len(l.Attrs) > 0 {
		attrs = make(map[string]string, len(l.Attrs))
		for k, v := range l.Attrs {
			attrs[k] = fmt.Sprint(v)
		}
	}
	if buf := s.manager.logs; buf != nil {
		buf.Add(debuglog.Entry{
			Level:   l.Level,
			Source:  "webview",
			Session: s.ID,
			Message: l.Message,
			Attrs:   attrs,
		})
		return
	}
	s.logger.Debug("webview: "+l.Message, "level", l.Level)
}

func (s *Session) stateChanged(change gesture.StateChange) {
	det := s.Detector()
	if det == nil {
		return
	}
	st := det.Status()
	st.State = change.To
	st.Err = change.Err

	msg, err := protocol.NewStateMessage(st)
	s.sendOrLog(msg, err)

	s.mu.Lock()
	if change.To == gesture.StateActive {
		s.granted = true
	}
	needsPermission := s.gate != nil && !s.granted
	s.mu.Unlock()
	btn, err := protocol.NewMainButtonMessage(mainButton(change.To, needsPermission))
	s.sendOrLog(btn, err)
}

func (s *Session) shake(ev gesture.ShakeEvent) {
	s.manager.shakes.Add(1)
	msg, err := protocol.NewShakeMessage(ev)
	s.sendOrLog(msg, err)

	if pub := s.manager.publisher; pub != nil {
		if err := pub.PublishShake(s.ID, ev); err != nil {
			s.logger.Debug("publish shake failed", "seq", ev.Sequence, "error", err)
		}
	}
}

func (s *Session) haptic(gesture.ShakeEvent) error {
	msg, err := protocol.NewHapticMessage(HapticStyle)
	if err != nil {
		return err
	}
	return s.Send(msg)
}

// Close stops the detector and refuses further writes.
func (s *Session) Close() {
	if det := s.Detector(); det != nil {
		det.Stop()
	}
	s.writeMu.Lock()
	s.closed = true
	s.writeMu.Unlock()
}

// Info is the public view of a session.
type Info struct {
	ID        string    `json:"id"`
	Connected time.Time `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
	User      string    `json:"user"`
	Verified  bool      `json:"verified"`
	Platform  string    `json:"platform,omitempty"`
	Preset    string    `json:"preset,omitempty"`
	State     string    `json:"state"`
	Count     uint64    `json:"count"`
}

// Info returns a snapshot of the session.
func (s *Session) Info() Info {
	s.mu.Lock()
	info := Info{
		ID:        s.ID,
		Connected: s.Connected,
		LastSeen:  s.lastSeen,
		User:      s.user.Name,
		Verified:  s.user.Verified,
		Platform:  s.platform,
		Preset:    s.preset,
		State:     gesture.StateUninitialized.String(),
	}
	det := s.detector
	s.mu.Unlock()

	if det != nil {
		st := det.Status()
		info.State = st.State.String()
		info.Count = st.Count
	}
	return info
}

// mainButton returns the main button for a detector state.
func mainButton(state gesture.State, needsPermission bool) telegram.MainButton {
	btn := telegram.MainButton{Visible: true, Active: true}
	switch {
	case state == gesture.StateActive:
		btn.Text = LabelStop
	case state == gesture.StateAwaitingPermission:
		btn.Text = LabelEnable
		btn.Active = false
		btn.Progress = true
	case needsPermission:
		btn.Text = LabelEnable
	default:
		btn.Text = LabelStart
	}
	return btn
}
