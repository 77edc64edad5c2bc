// Package web serves the Mini App page, its websocket endpoints and a small
// REST API for inspecting sessions and host logs.
package web

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-miniapp/pkg/debuglog"
	"github.com/teslashibe/go-miniapp/pkg/hub"
	"github.com/teslashibe/go-miniapp/pkg/session"
)

// Options configures the server.
type Options struct {
	Addr          string // listen address, e.g. ":8080"
	StaticDir     string // empty disables static files
	RequestLogger bool
	Logger        *slog.Logger
}

// Server is the Mini App host HTTP server
type Server struct {
	app     *fiber.App
	addr    string
	logger  *slog.Logger
	started time.Time

	sessions *session.Manager
	logs     *debuglog.Buffer

	// Hub for the log viewer websocket
	logHub *hub.Hub
}

// NewServer creates a new server. logHub should be the hub logs broadcasts to.
func NewServer(opts Options, sessions *session.Manager, logs *debuglog.Buffer, logHub *hub.Hub) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Server{
		addr:     opts.Addr,
		logger:   opts.Logger,
		started:  time.Now(),
		sessions: sessions,
		logs:     logs,
		logHub:   logHub,
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-miniapp",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	// The page is served from the Telegram web-view's origin during development
	app.Use(cors.New())
	if opts.RequestLogger {
		app.Use(logger.New())
	}

	if opts.StaticDir != "" {
		app.Static("/", opts.StaticDir)
	}

	app.Get("/health", s.handleHealth)
	app.Get("/metrics", s.handleMetrics)

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/presets", s.handlePresets)
	api.Get("/logs", s.handleGetLogs)
	api.Delete("/logs", s.handleClearLogs)
	sessions.RegisterAPIRoutes(api)

	// Web-view endpoint
	sessions.RegisterRoutes(app)

	// Log viewer endpoint
	app.Use("/ws/logs", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/logs", websocket.New(s.handleLogsWS))

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start starts the log hub and listens. It blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("web server listening", "addr", s.addr)
	go s.logHub.Run()
	return s.app.Listen(s.addr)
}

// StartAsync starts the web server in a goroutine
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("web server error", "error", err)
		}
	}()
}

// Shutdown stops the detectors, closes the log viewers and drains the
// HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.sessions.CloseAll()
	s.logHub.Stop()
	return s.app.ShutdownWithContext(ctx)
}
