package gesture

import (
	"errors"
	"fmt"
)

// Sentinel errors for detector failures.
var (
	// ErrPermissionDenied is returned when the host prompt resolves as denied.
	ErrPermissionDenied = errors.New("gesture: motion permission denied")

	// ErrPermissionRequestFailed is returned when the permission prompt itself errors.
	ErrPermissionRequestFailed = errors.New("gesture: motion permission request failed")

	// ErrSensorUnavailable is returned when no motion stream exists or it disappears.
	ErrSensorUnavailable = errors.New("gesture: motion sensor unavailable")

	// ErrInvalidSample marks a malformed sample. It is logged, never returned.
	ErrInvalidSample = errors.New("gesture: invalid acceleration sample")

	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("gesture: invalid detector config")
)

// DetectorError is the failure that moved a detector into StateError.
type DetectorError struct {
	// Kind is one of ErrPermissionDenied, ErrPermissionRequestFailed or
	// ErrSensorUnavailable.
	Kind error

	// Cause is the underlying error reported by the host, if any.
	Cause error
}

// Error implements the error interface.
func (e *DetectorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%v: %v", e.Kind, e.Cause)
	}
	return e.Kind.Error()
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *DetectorError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func newDetectorError(kind, cause error) *DetectorError {
	return &DetectorError{Kind: kind, Cause: cause}
}

// Reason returns a short machine-readable code for a detector error,
// suitable for a UI to pick a message. It returns "" for nil.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrPermissionRequestFailed):
		return "permission_request_failed"
	case errors.Is(err, ErrSensorUnavailable):
		return "sensor_unavailable"
	case errors.Is(err, ErrInvalidConfig):
		return "invalid_config"
	default:
		return "unknown"
	}
}
