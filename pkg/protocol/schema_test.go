package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorAccepts(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	frames := map[string]string{
		"hello":           `{"type":"hello","data":{"platform":"ios","theme":{"bg_color":"#fff"},"viewport":{"height":600},"motion_supported":true,"permission_required":true}}`,
		"motion":          `{"type":"motion","ts":1,"data":{"x":1.5,"y":null,"z":-3,"t":1700000000000,"gravity":true}}`,
		"orientation":     `{"type":"orientation","data":{"alpha":null,"beta":45.5,"gamma":-10}}`,
		"permission":      `{"type":"permission_result","data":{"id":"abc","outcome":"granted"}}`,
		"visibility":      `{"type":"visibility","data":{"visible":false}}`,
		"control":         `{"type":"control","data":{"action":"toggle"}}`,
		"sensor error":    `{"type":"sensor_error","data":{"reason":"NotReadableError"}}`,
		"log":             `{"type":"log","data":{"level":"info","message":"hi","attrs":{"k":1}}}`,
		"ping":            `{"type":"ping","data":{"id":"1","ts":5}}`,
		"hello with null": `{"type":"hello"}`,
	}

	for name, frame := range frames {
		t.Run(name, func(t *testing.T) {
			msg, err := v.Decode([]byte(frame))
			require.NoError(t, err)
			assert.NotEmpty(t, msg.Type)
		})
	}
}

func TestValidatorRejects(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	frames := map[string]string{
		"not json":         `{"type":`,
		"no type":          `{"data":{}}`,
		"unknown type":     `{"type":"launch_missiles"}`,
		"host-only type":   `{"type":"shake","data":{"seq":1}}`,
		"motion no data":   `{"type":"motion"}`,
		"motion no time":   `{"type":"motion","data":{"x":1,"y":2,"z":3}}`,
		"motion string":    `{"type":"motion","data":{"x":"1","t":1}}`,
		"bad outcome":      `{"type":"permission_result","data":{"id":"a","outcome":"maybe"}}`,
		"bad action":       `{"type":"control","data":{"action":"explode"}}`,
		"visibility empty": `{"type":"visibility","data":{}}`,
	}

	for name, frame := range frames {
		t.Run(name, func(t *testing.T) {
			_, err := v.Decode([]byte(frame))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidMessage), "expected ErrInvalidMessage, got %v", err)
		})
	}
}
