// Package gesture detects shake gestures from a stream of 3-axis
// acceleration samples delivered by a Mini App host.
//
// A Detector owns a small state machine:
//
//	Uninitialized ─┬─> AwaitingPermission ─┬─> Active <──> Inactive
//	               │                       └─> Error
//	               └─> Active ───────────────> Error
//
// Error and Inactive are left by calling Start again.
package gesture

import (
	"context"
	"log/slog"
	"sync"
)

// Option configures a Detector.
type Option func(*Detector)

// WithPermissionGate declares that the runtime requires an explicit motion
// permission grant obtained through gate.
func WithPermissionGate(gate PermissionGate) Option {
	return func(d *Detector) {
		d.gate = gate
	}
}

// WithFeedback sets the sink poked on every shake.
func WithFeedback(f Feedback) Option {
	return func(d *Detector) {
		d.feedback = f
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Detector) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// stamp is an optional millisecond timestamp.
type stamp struct {
	at int64
	ok bool
}

type permissionRequest struct {
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}
}

// Status is a read-only snapshot of a detector.
type Status struct {
	State     State
	Err       error
	Count     uint64
	LastShake *ShakeEvent
}

// Detector turns acceleration samples into ShakeEvents.
// It is safe for concurrent use; observers run on the goroutine that
// delivered the sample or resolved the permission request.
type Detector struct {
	cfg      Config
	source   MotionSource
	gate     PermissionGate
	feedback Feedback
	logger   *slog.Logger

	mu          sync.Mutex
	state       State
	err         error
	generation  uint64
	unsubscribe func()
	granted     bool
	pending     *permissionRequest

	prev      baseline
	processed stamp
	lastShake stamp
	count     uint64
	last      ShakeEvent

	onShake []func(ShakeEvent)
	onState []func(StateChange)
}

// New creates a detector reading from source. source may be nil, in which
// case Start reports ErrSensorUnavailable.
func New(cfg Config, source MotionSource, opts ...Option) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Detector{
		cfg:    cfg,
		source: source,
		logger: slog.Default(),
		state:  StateUninitialized,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// OnShake registers a callback for every emitted ShakeEvent.
func (d *Detector) OnShake(fn func(ShakeEvent)) {
	d.mu.Lock()
	d.onShake = append(d.onShake, fn)
	d.mu.Unlock()
}

// OnStateChange registers a callback for every state transition.
func (d *Detector) OnStateChange(fn func(StateChange)) {
	d.mu.Lock()
	d.onState = append(d.onState, fn)
	d.mu.Unlock()
}

// Config returns the detector's configuration.
func (d *Detector) Config() Config {
	return d.cfg
}

// State returns the current state.
func (d *Detector) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Err returns the failure behind StateError, or nil in any other state.
func (d *Detector) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Count returns the number of shakes emitted so far.
func (d *Detector) Count() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count
}

// LastShake returns the most recent ShakeEvent.
func (d *Detector) LastShake() (ShakeEvent, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last, d.count > 0
}

// Status returns a consistent snapshot of state, error and counters.
func (d *Detector) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := Status{State: d.state, Err: d.err, Count: d.count}
	if d.count > 0 {
		last := d.last
		st.LastShake = &last
	}
	return st
}

// Start begins detection. From Uninitialized, Inactive or Error it moves to
// Active, or to AwaitingPermission when a permission gate is configured and
// permission has not been granted yet, or to Error when there is no motion
// stream. It is a no-op in Active and AwaitingPermission.
//
// The returned error is non-nil only when the new state is StateError.
func (d *Detector) Start() (State, error) {
	d.mu.Lock()
	if d.state == StateActive || d.state == StateAwaitingPermission {
		state := d.state
		d.mu.Unlock()
		return state, nil
	}

	d.generation++
	var change StateChange
	switch {
	case d.source == nil || !d.source.Available():
		change = d.failLocked(newDetectorError(ErrSensorUnavailable, nil))
	case d.gate != nil && !d.granted:
		change = d.transitionLocked(StateAwaitingPermission, nil)
		d.requestPermissionLocked()
	default:
		change = d.activateLocked()
	}
	state, err := d.state, d.err
	d.mu.Unlock()

	d.notify(change)
	return state, err
}

// RequestPermissionThenStart starts the detector and, if that requires a
// permission prompt, waits for the prompt to resolve or ctx to end.
func (d *Detector) RequestPermissionThenStart(ctx context.Context) (State, error) {
	state, err := d.Start()
	if state != StateAwaitingPermission {
		return state, err
	}

	d.mu.Lock()
	req := d.pending
	d.mu.Unlock()

	if req != nil {
		select {
		case <-req.done:
		case <-ctx.Done():
			return d.State(), ctx.Err()
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state, d.err
}

// Stop releases the motion subscription, abandons any pending permission
// request and moves to Inactive. Calling it repeatedly is harmless.
func (d *Detector) Stop() {
	d.mu.Lock()
	if d.state == StateInactive {
		d.mu.Unlock()
		return
	}
	d.generation++
	if d.pending != nil {
		d.pending.cancel()
		d.pending = nil
	}
	unsub := d.takeSubscriptionLocked()
	change := d.transitionLocked(StateInactive, nil)
	d.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	d.notify(change)
}

// HandleSample processes one sample as if delivered by the subscribed
// source. Samples are ignored unless the detector is Active.
func (d *Detector) HandleSample(s Sample) {
	d.mu.Lock()
	ev, ok := d.processLocked(s)
	d.mu.Unlock()

	if ok {
		d.emit(ev)
	}
}

func (d *Detector) deliver(generation uint64, s Sample) {
	d.mu.Lock()
	if generation != d.generation {
		d.mu.Unlock()
		return
	}
	ev, ok := d.processLocked(s)
	d.mu.Unlock()

	if ok {
		d.emit(ev)
	}
}

func (d *Detector) processLocked(s Sample) (ShakeEvent, bool) {
	if d.state != StateActive {
		return ShakeEvent{}, false
	}
	if err := s.Validate(); err != nil {
		d.logger.Debug("dropping motion sample", "error", err, "t", s.CapturedAtMillis)
		return ShakeEvent{}, false
	}
	if d.processed.ok && s.CapturedAtMillis-d.processed.at < d.cfg.MinSampleIntervalMillis {
		return ShakeEvent{}, false
	}

	scalar, ready := motionScalar(d.cfg, d.prev, s)
	d.processed = stamp{at: s.CapturedAtMillis, ok: true}
	d.prev.set(s)

	if !ready || !(scalar > d.cfg.MagnitudeThreshold) {
		return ShakeEvent{}, false
	}
	if d.lastShake.ok && s.CapturedAtMillis-d.lastShake.at < d.cfg.CooldownMillis {
		return ShakeEvent{}, false
	}

	d.count++
	d.lastShake = stamp{at: s.CapturedAtMillis, ok: true}
	d.last = ShakeEvent{
		Sequence:         d.count,
		Magnitude:        scalar,
		OccurredAtMillis: s.CapturedAtMillis,
	}
	return d.last, true
}

func (d *Detector) requestPermissionLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	req := &permissionRequest{
		generation: d.generation,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	d.pending = req
	d.logger.Info("requesting motion permission", "generation", req.generation)
	go d.awaitPermission(ctx, req)
}

func (d *Detector) awaitPermission(ctx context.Context, req *permissionRequest) {
	defer close(req.done)
	defer req.cancel()

	result, err := d.gate.RequestPermission(ctx)
	d.resolvePermission(req, result, err)
}

func (d *Detector) resolvePermission(req *permissionRequest, result PermissionResult, err error) {
	d.mu.Lock()
	if d.pending != req || d.generation != req.generation || d.state != StateAwaitingPermission {
		d.mu.Unlock()
		d.logger.Debug("ignoring stale permission result", "generation", req.generation, "result", result.String())
		return
	}
	d.pending = nil

	var change StateChange
	switch {
	case err != nil:
		change = d.failLocked(newDetectorError(ErrPermissionRequestFailed, err))
	case result != PermissionGranted:
		change = d.failLocked(newDetectorError(ErrPermissionDenied, nil))
	default:
		d.granted = true
		change = d.activateLocked()
	}
	d.mu.Unlock()

	d.notify(change)
}

func (d *Detector) activateLocked() StateChange {
	if d.unsubscribe == nil {
		gen := d.generation
		unsub, err := d.source.Subscribe(
			func(s Sample) { d.deliver(gen, s) },
			func(err error) { d.sensorLost(gen, err) },
		)
		if err != nil {
			return d.failLocked(newDetectorError(ErrSensorUnavailable, err))
		}
		d.unsubscribe = unsub
	}
	d.prev.reset()
	d.processed = stamp{}
	return d.transitionLocked(StateActive, nil)
}

func (d *Detector) sensorLost(generation uint64, cause error) {
	d.mu.Lock()
	if generation != d.generation || d.state != StateActive {
		d.mu.Unlock()
		return
	}
	d.generation++
	unsub := d.takeSubscriptionLocked()
	change := d.failLocked(newDetectorError(ErrSensorUnavailable, cause))
	d.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	d.notify(change)
}

func (d *Detector) takeSubscriptionLocked() func() {
	unsub := d.unsubscribe
	d.unsubscribe = nil
	return unsub
}

func (d *Detector) failLocked(err *DetectorError) StateChange {
	return d.transitionLocked(StateError, err)
}

func (d *Detector) transitionLocked(to State, err error) StateChange {
	change := StateChange{
		From:       d.state,
		To:         to,
		Err:        err,
		Generation: d.generation,
	}
	d.state = to
	d.err = err
	return change
}

func (d *Detector) notify(change StateChange) {
	if change.From == change.To && change.Err == nil {
		return
	}
	if change.Err != nil {
		d.logger.Warn("shake detector failed", "from", change.From.String(), "reason", Reason(change.Err), "error", change.Err)
	} else {
		d.logger.Info("shake detector state", "from", change.From.String(), "to", change.To.String())
	}

	d.mu.Lock()
	observers := d.onState
	d.mu.Unlock()

	for _, fn := range observers {
		fn(change)
	}
}

func (d *Detector) emit(ev ShakeEvent) {
	d.logger.Info("shake detected", "seq", ev.Sequence, "magnitude", ev.Magnitude)

	d.mu.Lock()
	observers := d.onShake
	d.mu.Unlock()

	for _, fn := range observers {
		fn(ev)
	}
	if d.feedback != nil {
		d.sendFeedback(ev)
	}
}

func (d *Detector) sendFeedback(ev ShakeEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("shake feedback panicked", "seq", ev.Sequence, "panic", r)
		}
	}()
	if err := d.feedback.ShakeFeedback(ev); err != nil {
		d.logger.Debug("shake feedback failed", "seq", ev.Sequence, "error", err)
	}
}
