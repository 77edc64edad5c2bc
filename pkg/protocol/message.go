// Package protocol defines the WebSocket messages exchanged between the
// Mini App web-view and the go-miniapp host.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/teslashibe/go-miniapp/pkg/gesture"
	"github.com/teslashibe/go-miniapp/pkg/orientation"
	"github.com/teslashibe/go-miniapp/pkg/telegram"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Web-view → host messages
	TypeHello            MessageType = "hello"             // Session handshake
	TypeMotion           MessageType = "motion"            // devicemotion sample
	TypeOrientation      MessageType = "orientation"       // deviceorientation reading
	TypePermissionResult MessageType = "permission_result" // Answer to a permission prompt
	TypeVisibility       MessageType = "visibility"        // Page shown / hidden
	TypeControl          MessageType = "control"           // Main button or UI action
	TypeSensorError      MessageType = "sensor_error"      // Motion stream went away
	TypeLog              MessageType = "log"               // Web-view log line

	// Host → web-view messages
	TypeWelcome           MessageType = "welcome"            // Handshake reply
	TypeState             MessageType = "state"              // Detector state
	TypeShake             MessageType = "shake"              // Shake event
	TypePermissionRequest MessageType = "permission_request" // Ask the user for motion access
	TypeHaptic            MessageType = "haptic"             // Haptic feedback
	TypeOrientationLabel  MessageType = "orientation_label"  // Coarse orientation
	TypeMainButton        MessageType = "main_button"        // Main button state

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// =============================================================================
// Web-view → Host Message Types
// =============================================================================

// HelloData opens a session
type HelloData struct {
	Platform string `json:"platform,omitempty"` // "ios", "android", "tdesktop", ...
	Version  string `json:"version,omitempty"`  // Bot API version of the host
	InitData string `json:"init_data,omitempty"`

	Theme       telegram.ThemeParams `json:"theme"`
	ColorScheme string               `json:"color_scheme,omitempty"` // "light" or "dark"
	Viewport    telegram.Viewport    `json:"viewport"`

	// Capability probes done by the web-view
	MotionSupported      bool `json:"motion_supported"`
	PermissionRequired   bool `json:"permission_required"`
	OrientationSupported bool `json:"orientation_supported"`

	Preset string `json:"preset,omitempty"` // Sensitivity preset name
}

// MotionData is one devicemotion reading. Null axes stay nil.
type MotionData struct {
	X       *float64 `json:"x"`
	Y       *float64 `json:"y"`
	Z       *float64 `json:"z"`
	T       int64    `json:"t"`       // Capture time, milliseconds
	Gravity bool     `json:"gravity"` // accelerationIncludingGravity
}

// Sample converts the reading to a detector sample.
func (m *MotionData) Sample() gesture.Sample {
	s := gesture.Sample{
		CapturedAtMillis: m.T,
		IncludesGravity:  m.Gravity,
	}
	if m.X != nil {
		s.X = *m.X
	} else {
		s.Absent |= gesture.AxisX
	}
	if m.Y != nil {
		s.Y = *m.Y
	} else {
		s.Absent |= gesture.AxisY
	}
	if m.Z != nil {
		s.Z = *m.Z
	} else {
		s.Absent |= gesture.AxisZ
	}
	return s
}

// OrientationData is one deviceorientation reading
type OrientationData struct {
	orientation.Reading
	Absolute bool `json:"absolute,omitempty"`
}

// Permission outcomes reported by the web-view
const (
	OutcomeGranted = "granted"
	OutcomeDenied  = "denied"
	OutcomeError   = "error"
)

// PermissionResultData answers a permission_request
type PermissionResultData struct {
	ID      string `json:"id"`
	Outcome string `json:"outcome"`         // granted, denied, error
	Error   string `json:"error,omitempty"` // Set when outcome is "error"
}

// VisibilityData reports the page visibility
type VisibilityData struct {
	Visible bool `json:"visible"`
}

// Control actions
const (
	ActionStart             = "start"
	ActionStop              = "stop"
	ActionToggle            = "toggle"
	ActionRequestPermission = "request_permission"
)

// ControlData is a UI action
type ControlData struct {
	Action string `json:"action"`
}

// SensorErrorData reports loss of the motion stream
type SensorErrorData struct {
	Reason string `json:"reason"`
}

// LogData is a log line produced by the web-view
type LogData struct {
	Level   string         `json:"level"` // debug, info, warn, error
	Message string         `json:"message"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// =============================================================================
// Host → Web-view Message Types
// =============================================================================

// UserInfo is the user shown on the page
type UserInfo struct {
	ID       int64  `json:"id,omitempty"`
	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
	Verified bool   `json:"verified"`
}

// WelcomeData answers hello
type WelcomeData struct {
	SessionID  string              `json:"session_id"`
	User       UserInfo            `json:"user"`
	CSSVars    map[string]string   `json:"css_vars"`
	Preset     string              `json:"preset"`
	Detector   gesture.Config      `json:"detector"`
	MainButton telegram.MainButton `json:"main_button"`
}

// StateData reports the detector state
type StateData struct {
	State  string `json:"state"`
	Reason string `json:"reason,omitempty"` // permission_denied, sensor_unavailable, ...
	Error  string `json:"error,omitempty"`
	Count  uint64 `json:"count"`
}

// PermissionRequestData asks the web-view to prompt for motion access
type PermissionRequestData struct {
	ID string `json:"id"`
}

// HapticData triggers HapticFeedback.impactOccurred
type HapticData struct {
	Style string `json:"style"` // light, medium, heavy, rigid, soft
}

// OrientationLabelData carries the coarse orientation
type OrientationLabelData struct {
	Label orientation.Label `json:"label"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
