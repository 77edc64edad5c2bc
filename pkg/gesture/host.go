package gesture

import "context"

// MotionSource is the host stream of acceleration samples.
//
// Subscribe must not invoke either callback before it returns, and the
// callbacks must be called from one goroutine at a time. The returned
// unsubscribe function may be called more than once.
//
// Subscribe runs while the detector holds its lock, so it must not block
// on the network. A source that needs a remote
// acknowledgement reports a later failure through onLost.
type MotionSource interface {
	// Available reports whether the device can deliver motion at all.
	Available() bool

	// Subscribe registers the sample handler and the handler invoked if the
	// stream becomes unavailable while subscribed.
	Subscribe(onSample func(Sample), onLost func(error)) (unsubscribe func(), err error)
}

// PermissionGate is the host's motion permission prompt. Passing a gate to
// the detector declares that the runtime requires an explicit grant; the
// detector only calls RequestPermission when it actually needs one.
//
// Stop cancels ctx and a later Start issues a fresh request, possibly while
// the cancelled one is still running. Implementations must return promptly
// once ctx is done; results of cancelled requests are ignored.
type PermissionGate interface {
	RequestPermission(ctx context.Context) (PermissionResult, error)
}

// Feedback is an optional haptic or notification sink invoked on each shake.
// Its errors are logged and otherwise ignored.
type Feedback interface {
	ShakeFeedback(ev ShakeEvent) error
}

// FeedbackFunc adapts a function to Feedback.
type FeedbackFunc func(ev ShakeEvent) error

// ShakeFeedback calls f(ev).
func (f FeedbackFunc) ShakeFeedback(ev ShakeEvent) error {
	return f(ev)
}
