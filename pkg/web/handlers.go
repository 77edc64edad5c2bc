package web

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-miniapp/pkg/gesture"
	"github.com/teslashibe/go-miniapp/pkg/hub"
)

// backlogSize is how many buffered log entries a new viewer receives.
const backlogSize = 200

// handleHealth is the liveness probe
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// StatusResponse is returned by /api/status
type StatusResponse struct {
	Uptime     string `json:"uptime"`
	Sessions   int    `json:"sessions"`
	Shakes     uint64 `json:"shakes"`
	LogViewers int    `json:"log_viewers"`
	LogEntries int    `json:"log_entries"`
}

// handleStatus returns host status
func (s *Server) handleStatus(c *fiber.Ctx) error {
	stats := s.sessions.GetStats()
	return c.JSON(StatusResponse{
		Uptime:     time.Since(s.started).Round(time.Second).String(),
		Sessions:   stats.Sessions,
		Shakes:     stats.Shakes,
		LogViewers: s.logHub.ClientCount(),
		LogEntries: s.logs.Len(),
	})
}

// handleMetrics exposes session counters in Prometheus text format
func (s *Server) handleMetrics(c *fiber.Ctx) error {
	stats := s.sessions.GetStats()
	c.Set(fiber.HeaderContentType, "text/plain; version=0.0.4")
	return c.SendString(fmt.Sprintf(`# HELP miniapp_sessions Open web-view sessions
# TYPE miniapp_sessions gauge
miniapp_sessions %d

# HELP miniapp_sessions_opened_total Sessions opened since start
# TYPE miniapp_sessions_opened_total counter
miniapp_sessions_opened_total %d

# HELP miniapp_messages_received_total Websocket frames received
# TYPE miniapp_messages_received_total counter
miniapp_messages_received_total %d

# HELP miniapp_messages_sent_total Websocket frames sent
# TYPE miniapp_messages_sent_total counter
miniapp_messages_sent_total %d

# HELP miniapp_invalid_frames_total Frames rejected by schema validation
# TYPE miniapp_invalid_frames_total counter
miniapp_invalid_frames_total %d

# HELP miniapp_motion_samples_total Motion samples received
# TYPE miniapp_motion_samples_total counter
miniapp_motion_samples_total %d

# HELP miniapp_shakes_total Shake events emitted
# TYPE miniapp_shakes_total counter
miniapp_shakes_total %d

# HELP miniapp_log_viewers Connected log viewers
# TYPE miniapp_log_viewers gauge
miniapp_log_viewers %d
`, stats.Sessions, stats.SessionsOpened, stats.MessagesReceived, stats.MessagesSent,
		stats.InvalidFrames, stats.SamplesReceived, stats.Shakes, s.logHub.ClientCount()))
}

// PresetInfo describes a sensitivity preset
type PresetInfo struct {
	Name   string         `json:"name"`
	Config gesture.Config `json:"config"`
}

// handlePresets lists the sensitivity presets
func (s *Server) handlePresets(c *fiber.Ctx) error {
	names := gesture.PresetNames()
	presets := make([]PresetInfo, 0, len(names))
	for _, name := range names {
		cfg, _ := gesture.Preset(name)
		presets = append(presets, PresetInfo{Name: name, Config: cfg})
	}
	return c.JSON(presets)
}

// handleGetLogs returns recent log entries; ?tail=N limits the count
func (s *Server) handleGetLogs(c *fiber.Ctx) error {
	tail := c.QueryInt("tail", 0)
	if tail < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "tail must not be negative"})
	}
	return c.JSON(s.logs.Tail(tail))
}

// handleClearLogs empties the log buffer
func (s *Server) handleClearLogs(c *fiber.Ctx) error {
	s.logs.Clear()
	return c.SendStatus(fiber.StatusNoContent)
}

// handleLogsWS streams log entries to a viewer, starting with the backlog
func (s *Server) handleLogsWS(c *websocket.Conn) {
	client := hub.NewClient(s.logHub, c)
	for _, entry := range s.logs.Tail(backlogSize) {
		data, err := json.Marshal(entry)
		if err != nil {
			continue
		}
		if !client.Queue(hub.NewJSONMessage(data)) {
			break
		}
	}
	client.Run()
}
