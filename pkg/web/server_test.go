package web

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-miniapp/pkg/debuglog"
	"github.com/teslashibe/go-miniapp/pkg/hub"
	"github.com/teslashibe/go-miniapp/pkg/session"
)

type fixture struct {
	server *Server
	logs   *debuglog.Buffer
	hub    *hub.Hub
}

func newFixture(t *testing.T, port string) *fixture {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	logHub := hub.New("logs", quiet)
	logs := debuglog.NewBuffer(50, logHub)
	sessions, err := session.NewManager(session.Settings{}, session.WithLogger(quiet), session.WithLogBuffer(logs))
	require.NoError(t, err)

	s := NewServer(Options{Addr: ":" + port, Logger: quiet}, sessions, logs, logHub)
	return &fixture{server: s, logs: logs, hub: logHub}
}

func get(t *testing.T, app *fiber.App, path string, v interface{}) int {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	f := newFixture(t, "0")

	var body map[string]string
	assert.Equal(t, 200, get(t, f.server.App(), "/health", &body))
	assert.Equal(t, "ok", body["status"])
}

func TestMetrics(t *testing.T) {
	f := newFixture(t, "0")

	resp, err := f.server.App().Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "miniapp_sessions 0")
	assert.Contains(t, string(body), "miniapp_shakes_total 0")
}

func TestPresets(t *testing.T) {
	f := newFixture(t, "0")

	var presets []PresetInfo
	require.Equal(t, 200, get(t, f.server.App(), "/api/presets", &presets))
	require.Len(t, presets, 4)

	byName := map[string]PresetInfo{}
	for _, p := range presets {
		byName[p.Name] = p
	}
	assert.Equal(t, 25.0, byName["low"].Config.MagnitudeThreshold)
	assert.Equal(t, int64(500), byName["low"].Config.CooldownMillis)
	assert.Equal(t, 5.0, byName["very_high"].Config.MagnitudeThreshold)
}

func TestLogsAPI(t *testing.T) {
	f := newFixture(t, "0")
	for _, msg := range []string{"one", "two", "three"} {
		f.logs.Add(debuglog.Entry{Message: msg})
	}
	app := f.server.App()

	var all []debuglog.Entry
	require.Equal(t, 200, get(t, app, "/api/logs", &all))
	assert.Len(t, all, 3)

	var tail []debuglog.Entry
	require.Equal(t, 200, get(t, app, "/api/logs?tail=1", &tail))
	require.Len(t, tail, 1)
	assert.Equal(t, "three", tail[0].Message)

	assert.Equal(t, 400, get(t, app, "/api/logs?tail=-1", nil))

	resp, err := app.Test(httptest.NewRequest("DELETE", "/api/logs", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 0, f.logs.Len())
}

func TestStatus(t *testing.T) {
	f := newFixture(t, "0")
	f.logs.Add(debuglog.Entry{Message: "booted"})

	var st StatusResponse
	require.Equal(t, 200, get(t, f.server.App(), "/api/status", &st))
	assert.Equal(t, 0, st.Sessions)
	assert.Equal(t, 1, st.LogEntries)
	assert.NotEmpty(t, st.Uptime)
}

func TestSessionRoutesMounted(t *testing.T) {
	f := newFixture(t, "0")
	app := f.server.App()

	assert.Equal(t, 200, get(t, app, "/api/sessions/stats", nil))

	resp, err := app.Test(httptest.NewRequest("GET", "/ws/logs", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/ws/miniapp", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func TestLogViewerStream(t *testing.T) {
	f := newFixture(t, "18091")
	f.logs.Add(debuglog.Entry{Message: "before viewer", Source: "host"})

	f.server.StartAsync()
	defer f.server.Shutdown(context.Background())
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18091/ws/logs", nil)
	require.NoError(t, err)
	defer ws.Close()

	read := func() debuglog.Entry {
		ws.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := ws.ReadMessage()
		require.NoError(t, err)
		var e debuglog.Entry
		require.NoError(t, json.Unmarshal(data, &e))
		return e
	}

	assert.Equal(t, "before viewer", read().Message)

	require.Eventually(t, func() bool { return f.hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	f.logs.Add(debuglog.Entry{Message: "live", Source: "webview"})

	live := read()
	assert.Equal(t, "live", live.Message)
	assert.Equal(t, "webview", live.Source)
}
