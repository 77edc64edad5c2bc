package protocol

import (
	"github.com/teslashibe/go-miniapp/pkg/gesture"
	"github.com/teslashibe/go-miniapp/pkg/orientation"
	"github.com/teslashibe/go-miniapp/pkg/telegram"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewHelloMessage creates a hello message
func NewHelloMessage(hello HelloData) (*Message, error) {
	return NewMessage(TypeHello, hello)
}

// NewMotionMessage creates a motion message with all three axes present
func NewMotionMessage(x, y, z float64, t int64, gravity bool) (*Message, error) {
	return NewMessage(TypeMotion, MotionData{
		X:       &x,
		Y:       &y,
		Z:       &z,
		T:       t,
		Gravity: gravity,
	})
}

// NewPermissionResultMessage creates a permission_result message
func NewPermissionResultMessage(id, outcome, errMsg string) (*Message, error) {
	return NewMessage(TypePermissionResult, PermissionResultData{
		ID:      id,
		Outcome: outcome,
		Error:   errMsg,
	})
}

// NewVisibilityMessage creates a visibility message
func NewVisibilityMessage(visible bool) (*Message, error) {
	return NewMessage(TypeVisibility, VisibilityData{Visible: visible})
}

// NewControlMessage creates a control message
func NewControlMessage(action string) (*Message, error) {
	return NewMessage(TypeControl, ControlData{Action: action})
}

// NewWelcomeMessage creates a welcome message
func NewWelcomeMessage(welcome WelcomeData) (*Message, error) {
	return NewMessage(TypeWelcome, welcome)
}

// NewStateMessage creates a state message from a detector status
func NewStateMessage(st gesture.Status) (*Message, error) {
	data := StateData{
		State: st.State.String(),
		Count: st.Count,
	}
	if st.Err != nil {
		data.Reason = gesture.Reason(st.Err)
		data.Error = st.Err.Error()
	}
	return NewMessage(TypeState, data)
}

// NewShakeMessage creates a shake message
func NewShakeMessage(ev gesture.ShakeEvent) (*Message, error) {
	return NewMessage(TypeShake, ev)
}

// NewPermissionRequestMessage creates a permission_request message
func NewPermissionRequestMessage(id string) (*Message, error) {
	return NewMessage(TypePermissionRequest, PermissionRequestData{ID: id})
}

// NewHapticMessage creates a haptic message
func NewHapticMessage(style string) (*Message, error) {
	return NewMessage(TypeHaptic, HapticData{Style: style})
}

// NewOrientationLabelMessage creates an orientation_label message
func NewOrientationLabelMessage(label orientation.Label) (*Message, error) {
	return NewMessage(TypeOrientationLabel, OrientationLabelData{Label: label})
}

// NewMainButtonMessage creates a main_button message
func NewMainButtonMessage(button telegram.MainButton) (*Message, error) {
	return NewMessage(TypeMainButton, button)
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: 0, // Will be set by NewMessage
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetHelloData extracts hello data from a message
func (m *Message) GetHelloData() (*HelloData, error) {
	var data HelloData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetMotionData extracts motion data from a message
func (m *Message) GetMotionData() (*MotionData, error) {
	var data MotionData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetOrientationData extracts orientation data from a message
func (m *Message) GetOrientationData() (*OrientationData, error) {
	var data OrientationData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPermissionResultData extracts a permission result from a message
func (m *Message) GetPermissionResultData() (*PermissionResultData, error) {
	var data PermissionResultData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetVisibilityData extracts visibility data from a message
func (m *Message) GetVisibilityData() (*VisibilityData, error) {
	var data VisibilityData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetControlData extracts control data from a message
func (m *Message) GetControlData() (*ControlData, error) {
	var data ControlData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSensorErrorData extracts sensor error data from a message
func (m *Message) GetSensorErrorData() (*SensorErrorData, error) {
	var data SensorErrorData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetLogData extracts log data from a message
func (m *Message) GetLogData() (*LogData, error) {
	var data LogData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetWelcomeData extracts welcome data from a message
func (m *Message) GetWelcomeData() (*WelcomeData, error) {
	var data WelcomeData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetStateData extracts state data from a message
func (m *Message) GetStateData() (*StateData, error) {
	var data StateData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetShakeEvent extracts a shake event from a message
func (m *Message) GetShakeEvent() (*gesture.ShakeEvent, error) {
	var data gesture.ShakeEvent
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPermissionRequestData extracts a permission request from a message
func (m *Message) GetPermissionRequestData() (*PermissionRequestData, error) {
	var data PermissionRequestData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
