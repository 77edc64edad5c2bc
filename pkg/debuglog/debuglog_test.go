package debuglog

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferKeepsNewest(t *testing.T) {
	buf := NewBuffer(3, nil)
	for _, msg := range []string{"a", "b", "c", "d", "e"} {
		buf.Add(Entry{Message: msg})
	}

	entries := buf.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "c", entries[0].Message)
	assert.Equal(t, "e", entries[2].Message)
	assert.Equal(t, "info", entries[0].Level)
	assert.NotEmpty(t, entries[0].Time)

	tail := buf.Tail(2)
	require.Len(t, tail, 2)
	assert.Equal(t, "d", tail[0].Message)

	buf.Clear()
	assert.Equal(t, 0, buf.Len())
}

func TestBufferStampsTime(t *testing.T) {
	buf := NewBuffer(10, nil)
	buf.now = func() time.Time { return time.Date(2024, 1, 1, 13, 4, 5, 6_000_000, time.UTC) }
	buf.Add(Entry{Message: "x"})
	assert.Equal(t, "13:04:05.006", buf.Entries()[0].Time)
}

func TestHandler(t *testing.T) {
	buf := NewBuffer(10, nil)
	logger := slog.New(NewHandler(buf, slog.LevelInfo))

	logger.Debug("hidden")
	logger.With("session", "s-1").WithGroup("shake").Info("shake detected", "seq", 3, "magnitude", 17.5)
	logger.Warn("permission denied", slog.Group("detector", slog.String("state", "error")))

	entries := buf.Entries()
	require.Len(t, entries, 2)

	first := entries[0]
	assert.Equal(t, "info", first.Level)
	assert.Equal(t, "host", first.Source)
	assert.Equal(t, "s-1", first.Session)
	assert.Equal(t, "3", first.Attrs["shake.seq"])
	assert.Equal(t, "17.5", first.Attrs["shake.magnitude"])

	second := entries[1]
	assert.Equal(t, "warn", second.Level)
	assert.Equal(t, "error", second.Attrs["detector.state"])
}
