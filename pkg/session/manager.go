// Package session runs one shake detector per connected Mini App web-view.
// The web-view forwards its motion, orientation and permission events over
// a websocket; the session answers with detector state, shake events,
// haptic requests and main button updates.
package session

import (
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-miniapp/pkg/debuglog"
	"github.com/teslashibe/go-miniapp/pkg/gesture"
	"github.com/teslashibe/go-miniapp/pkg/protocol"
)

// Publisher receives every shake detected in any session.
type Publisher interface {
	PublishShake(sessionID string, ev gesture.ShakeEvent) error
}

// Settings are read once per session, when its hello arrives.
type Settings struct {
	BotToken        string
	AllowUnverified bool
	InitDataMaxAge  time.Duration

	// Detector maps the preset a web-view asked for to the preset actually
	// used and its settings. Nil means gesture.Preset.
	Detector func(preset string) (string, gesture.Config)
}

func (s Settings) detectorConfig(preset string) (string, gesture.Config) {
	if s.Detector != nil {
		return s.Detector(preset)
	}
	cfg, ok := gesture.Preset(preset)
	if !ok {
		preset = gesture.PresetMedium
	}
	return preset, cfg
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithPublisher forwards shakes to p.
func WithPublisher(p Publisher) Option {
	return func(m *Manager) {
		m.publisher = p
	}
}

// WithLogBuffer appends web-view log lines to buf.
func WithLogBuffer(buf *debuglog.Buffer) Option {
	return func(m *Manager) {
		m.logs = buf
	}
}

// Manager keeps the live sessions.
type Manager struct {
	logger    *slog.Logger
	validator *protocol.Validator
	publisher Publisher
	logs      *debuglog.Buffer
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
	settings Settings

	// Stats
	sessionsOpened   atomic.Uint64
	messagesReceived atomic.Uint64
	messagesSent     atomic.Uint64
	invalidFrames    atomic.Uint64
	samplesReceived  atomic.Uint64
	shakes           atomic.Uint64
}

// NewManager creates a session manager.
func NewManager(settings Settings, opts ...Option) (*Manager, error) {
	validator, err := protocol.NewValidator()
	if err != nil {
		return nil, err
	}
	m := &Manager{
		logger:    slog.Default(),
		validator: validator,
		now:       time.Now,
		sessions:  make(map[string]*Session),
		settings:  settings,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Settings returns the settings applied to new sessions.
func (m *Manager) Settings() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// SetSettings replaces the settings for sessions that say hello from now
// on. Running detectors keep their configuration.
func (m *Manager) SetSettings(s Settings) {
	m.mu.Lock()
	m.settings = s
	m.mu.Unlock()
}

// RegisterRoutes registers the web-view websocket endpoint.
func (m *Manager) RegisterRoutes(app fiber.Router) {
	app.Use("/ws/miniapp", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/miniapp", websocket.New(m.handleConn))
}

func (m *Manager) handleConn(c *websocket.Conn) {
	s := m.open(c)
	defer m.close(s)

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			s.logger.Debug("session read ended", "error", err)
			return
		}
		m.messagesReceived.Add(1)
		s.HandleFrame(data)
	}
}

func (m *Manager) open(conn frameWriter) *Session {
	s := newSession(uuid.NewString(), conn, m)

	m.mu.Lock()
	m.sessions[s.ID] = s
	count := len(m.sessions)
	m.mu.Unlock()
	m.sessionsOpened.Add(1)

	s.logger.Info("session opened", "sessions", count)
	return s
}

func (m *Manager) close(s *Session) {
	s.Close()

	m.mu.Lock()
	delete(m.sessions, s.ID)
	count := len(m.sessions)
	m.mu.Unlock()

	s.logger.Info("session closed", "sessions", count)
}

// Get returns a session by ID.
func (m *Manager) Get(id string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[id]
}

// Count returns the number of open sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Infos returns a snapshot of every open session, oldest first.
func (m *Manager) Infos() []Info {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	infos := make([]Info, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Connected.Before(infos[j].Connected)
	})
	return infos
}

// CloseAll stops every session detector. Connections are closed by the
// HTTP server shutdown.
func (m *Manager) CloseAll() {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	for _, s := range sessions {
		s.Close()
	}
}

// Stats contains manager statistics.
type Stats struct {
	Sessions         int    `json:"sessions"`
	SessionsOpened   uint64 `json:"sessions_opened"`
	MessagesReceived uint64 `json:"messages_received"`
	MessagesSent     uint64 `json:"messages_sent"`
	InvalidFrames    uint64 `json:"invalid_frames"`
	SamplesReceived  uint64 `json:"samples_received"`
	Shakes           uint64 `json:"shakes"`
}

// GetStats returns manager statistics.
func (m *Manager) GetStats() Stats {
	return Stats{
		Sessions:         m.Count(),
		SessionsOpened:   m.sessionsOpened.Load(),
		MessagesReceived: m.messagesReceived.Load(),
		MessagesSent:     m.messagesSent.Load(),
		InvalidFrames:    m.invalidFrames.Load(),
		SamplesReceived:  m.samplesReceived.Load(),
		Shakes:           m.shakes.Load(),
	}
}

// RegisterAPIRoutes registers REST routes for session inspection.
func (m *Manager) RegisterAPIRoutes(api fiber.Router) {
	sessions := api.Group("/sessions")

	sessions.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"sessions": m.Infos(),
			"count":    m.Count(),
		})
	})

	sessions.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(m.GetStats())
	})

	sessions.Get("/:id", func(c *fiber.Ctx) error {
		s := m.Get(c.Params("id"))
		if s == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
		}
		return c.JSON(s.Info())
	})

	// Start or stop a session's detector from outside the web-view.
	sessions.Post("/:id/control", func(c *fiber.Ctx) error {
		s := m.Get(c.Params("id"))
		if s == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
		}

		var body protocol.ControlData
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		switch body.Action {
		case protocol.ActionStart, protocol.ActionStop, protocol.ActionToggle, protocol.ActionRequestPermission:
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown action"})
		}
		if s.Detector() == nil {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "session has not said hello"})
		}

		s.handleControl(body.Action)
		return c.JSON(s.Info())
	})
}
