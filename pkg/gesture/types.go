package gesture

import (
	"fmt"
	"math"
)

// Axes is a bitmask of acceleration axes.
type Axes uint8

const (
	AxisX Axes = 1 << iota
	AxisY
	AxisZ

	// AxisAll marks every axis.
	AxisAll = AxisX | AxisY | AxisZ
)

// Sample is one 3-axis acceleration reading delivered by the host.
//
// Absent marks axes the host reported as null. A partially absent sample
// reads the missing axes as zero; a sample with every axis absent is not a
// valid reading.
type Sample struct {
	X, Y, Z          float64
	CapturedAtMillis int64
	IncludesGravity  bool
	Absent           Axes
}

// Validate reports whether the sample can be fed to a detector.
func (s Sample) Validate() error {
	if s.Absent&AxisAll == AxisAll {
		return fmt.Errorf("%w: all axes absent", ErrInvalidSample)
	}
	for _, v := range [...]float64{s.X, s.Y, s.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite axis value", ErrInvalidSample)
		}
	}
	return nil
}

// Vector returns the sample's axes with absent ones zeroed.
func (s Sample) Vector() (x, y, z float64) {
	if s.Absent&AxisX == 0 {
		x = s.X
	}
	if s.Absent&AxisY == 0 {
		y = s.Y
	}
	if s.Absent&AxisZ == 0 {
		z = s.Z
	}
	return x, y, z
}

// State is the detector lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateAwaitingPermission
	StateActive
	StateInactive
	StateError
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateAwaitingPermission:
		return "awaiting_permission"
	case StateActive:
		return "active"
	case StateInactive:
		return "inactive"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ShakeEvent is emitted once per recognized shake.
type ShakeEvent struct {
	Sequence         uint64  `json:"seq"`
	Magnitude        float64 `json:"magnitude"`
	OccurredAtMillis int64   `json:"t"`
}

// StateChange describes one transition of the detector state machine.
type StateChange struct {
	From       State
	To         State
	Err        error // set when To is StateError
	Generation uint64
}

// PermissionResult is the outcome of a host permission prompt.
type PermissionResult int

const (
	PermissionDenied PermissionResult = iota
	PermissionGranted
)

func (r PermissionResult) String() string {
	if r == PermissionGranted {
		return "granted"
	}
	return "denied"
}
