package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/psds-microservice/checkin-scanner/internal/camera"
	"github.com/psds-microservice/checkin-scanner/internal/decoder"
	"github.com/psds-microservice/checkin-scanner/internal/model"
	"go.uber.org/zap"
)

// DefaultInterval is the frame sampling cadence.
const DefaultInterval = 100 * time.Millisecond

// Validator submits a decoded payload for the active event.
type Validator interface {
	ScanTicket(ctx context.Context, token, payload string, eventID int64) (*model.ScanResponse, error)
}

// FrameDecoder extracts a QR payload from the current frame of src.
type FrameDecoder interface {
	Decode(src decoder.FrameSource, buf *decoder.Buffer) (string, bool)
}

// Notifier receives transient operator notifications and state snapshots.
type Notifier interface {
	Notify(n model.Notification)
	PublishState(v View)
}

// Host is what the surrounding application supplies to a scanner view.
type Host struct {
	Token     string
	EventID   int64
	EventName string
	// OnSessionExpired is called at most once, from its own goroutine.
	OnSessionExpired func()
	// OnBack is called after Back has released everything.
	OnBack func()
}

// Options tune a Runner. Zero values get defaults.
type Options struct {
	Interval       time.Duration
	Constraints    camera.Constraints
	AcquireTimeout time.Duration
	NewSurface     func() camera.Surface
	Clock          func() time.Time
	NewAttemptID   func() string
}

func (o *Options) setDefaults() {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Constraints == (camera.Constraints{}) {
		o.Constraints = camera.DefaultConstraints()
	}
	if o.AcquireTimeout <= 0 {
		o.AcquireTimeout = 10 * time.Second
	}
	if o.NewSurface == nil {
		o.NewSurface = func() camera.Surface { return camera.NewImageSurface() }
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.NewAttemptID == nil {
		o.NewAttemptID = func() string { return uuid.New().String() }
	}
}

// Runner drives Transition. Events, timer ticks and effect outcomes are
// handled one at a time by Run; camera acquisition and submissions run in
// their own goroutines and report back through the event queue.
type Runner struct {
	host      Host
	device    camera.Device
	decoder   FrameDecoder
	validator Validator
	notifier  Notifier
	log       *zap.Logger
	opts      Options

	events chan Event
	done   chan struct{}

	acquiring sync.WaitGroup

	// owned by the Run goroutine
	buf    decoder.Buffer
	ticker *time.Ticker
	tick   <-chan time.Time

	mu   sync.RWMutex
	view View
}

// NewRunner creates a scanner for one view. Call Run to start processing.
func NewRunner(host Host, dev camera.Device, dec FrameDecoder, v Validator, n Notifier, log *zap.Logger, opts Options) *Runner {
	opts.setDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	r := &Runner{
		host:      host,
		device:    dev,
		decoder:   dec,
		validator: v,
		notifier:  n,
		log:       log.With(zap.Int64("event_id", host.EventID)),
		opts:      opts,
		events:    make(chan Event, 16),
		done:      make(chan struct{}),
	}
	r.view = r.project(State{})
	return r
}

// Start asks the scanner to acquire the camera and begin sampling.
func (r *Runner) Start() bool { return r.post(StartRequested{}) }

// Stop releases the camera and returns to idle.
func (r *Runner) Stop() bool { return r.post(StopRequested{}) }

// ScanNext dismisses the result and resumes sampling.
func (r *Runner) ScanNext() bool { return r.post(ScanNextRequested{}) }

// Close tears the scanner down and waits for Run to return. Run must have
// been started.
func (r *Runner) Close() {
	r.post(Teardown{})
	<-r.done
}

// Back tears the scanner down and then hands control back to the host.
func (r *Runner) Back() {
	r.Close()
	if r.host.OnBack != nil {
		r.host.OnBack()
	}
}

// Done is closed when Run has returned.
func (r *Runner) Done() <-chan struct{} { return r.done }

// View returns the latest published state.
func (r *Runner) View() View {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.view
}

// Run processes events until Teardown or ctx cancellation. The camera is
// released and the timer stopped on every exit path.
func (r *Runner) Run(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	var state State
	defer func() {
		if !state.Closed {
			state = r.apply(runCtx, state, Teardown{})
		}
		r.stopTimer()
		close(r.done)
		cancel()
		// Acquisitions in progress may still produce a handle; wait for
		// them so nothing granted after teardown stays open.
		r.acquiring.Wait()
		r.drain()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-r.events:
			state = r.apply(runCtx, state, ev)
			if state.Closed {
				return
			}
		case <-r.tick:
			if state.Phase != PhaseScanning || state.Processing || state.Camera == nil {
				continue
			}
			payload, ok := r.decoder.Decode(state.Camera.Surface(), &r.buf)
			if !ok {
				continue
			}
			r.log.Info("qr code detected")
			state = r.apply(runCtx, state, Decoded{AttemptID: r.opts.NewAttemptID(), Payload: payload})
		}
	}
}

func (r *Runner) apply(ctx context.Context, s State, ev Event) State {
	next, effects := Transition(s, ev)
	if next.Phase != s.Phase {
		r.log.Debug("scanner transition",
			zap.String("from", string(s.Phase)),
			zap.String("to", string(next.Phase)))
	}
	for _, eff := range effects {
		r.execute(ctx, eff)
	}
	if next.Camera != nil && next.Camera != s.Camera {
		go r.watch(next.Camera)
	}
	r.publish(next)
	return next
}

// watch reports the device ending h's stream until h is released.
func (r *Runner) watch(h *camera.Handle) {
	lost := h.Lost()
	if lost == nil {
		return
	}
	select {
	case <-lost:
	case <-h.ReleasedC():
		return
	}
	if h.Released() {
		return
	}
	err := h.Err()
	r.log.Warn("camera stream ended", zap.String("stream_id", h.StreamID()), zap.Error(err))
	r.post(CameraLost{Camera: h, Err: err})
}

func (r *Runner) execute(ctx context.Context, eff Effect) {
	switch e := eff.(type) {
	case AcquireCamera:
		r.acquiring.Add(1)
		go r.acquire(ctx, e.Generation)
	case ReleaseCamera:
		if e.Camera != nil {
			r.log.Info("stopping camera", zap.String("stream_id", e.Camera.StreamID()))
		}
		e.Camera.Release()
	case StartTimer:
		r.stopTimer()
		r.ticker = time.NewTicker(r.opts.Interval)
		r.tick = r.ticker.C
	case StopTimer:
		r.stopTimer()
	case Submit:
		go r.submit(ctx, e)
	case Notify:
		if r.notifier != nil {
			r.notifier.Notify(e.Notification)
		}
	case ExpireSession:
		r.log.Warn("session expired during scan")
		if r.host.OnSessionExpired != nil {
			go r.host.OnSessionExpired()
		}
	}
}

// stopTimer cancels the sampling timer. A tick already buffered in the old
// channel is never read because tick is cleared in the same step.
func (r *Runner) stopTimer() {
	if r.ticker != nil {
		r.ticker.Stop()
		r.ticker = nil
	}
	r.tick = nil
}

func (r *Runner) acquire(ctx context.Context, gen uint64) {
	defer r.acquiring.Done()
	actx, cancel := context.WithTimeout(ctx, r.opts.AcquireTimeout)
	defer cancel()
	r.log.Info("requesting camera access", zap.String("facing_mode", string(r.opts.Constraints.FacingMode)))
	h, err := camera.Acquire(actx, r.device, r.opts.NewSurface(), r.opts.Constraints)
	if err != nil {
		r.log.Warn("camera acquisition failed", zap.Error(err))
		r.post(CameraFailed{Generation: gen, Err: err})
		return
	}
	r.log.Info("camera ready", zap.String("stream_id", h.StreamID()))
	if !r.post(CameraReady{Generation: gen, Camera: h}) {
		h.Release()
	}
}

// submit is not cancelled by Stop: the server may already have recorded the
// check-in, so the outcome is still reported.
func (r *Runner) submit(ctx context.Context, e Submit) {
	sctx := context.WithoutCancel(ctx)
	resp, err := r.validator.ScanTicket(sctx, r.host.Token, e.Payload, r.host.EventID)
	var ev Event
	if err != nil {
		r.log.Info("ticket rejected", zap.String("attempt_id", e.AttemptID), zap.Error(err))
		ev = SubmissionFailed{AttemptID: e.AttemptID, Payload: e.Payload, Err: err}
	} else {
		ev = SubmissionSucceeded{AttemptID: e.AttemptID, Payload: e.Payload, Response: resp, At: r.opts.Clock()}
	}
	if !r.post(ev) {
		r.log.Warn("scan outcome arrived after scanner closed", zap.String("attempt_id", e.AttemptID))
	}
}

// post queues ev unless Run has returned.
func (r *Runner) post(ev Event) bool {
	select {
	case <-r.done:
		return false
	default:
	}
	select {
	case r.events <- ev:
		return true
	case <-r.done:
		return false
	}
}

// drain releases camera handles that were queued but never processed.
func (r *Runner) drain() {
	for {
		select {
		case ev := <-r.events:
			if cr, ok := ev.(CameraReady); ok {
				cr.Camera.Release()
			}
		default:
			return
		}
	}
}

func (r *Runner) project(s State) View {
	v := s.View()
	v.EventID = r.host.EventID
	v.EventName = r.host.EventName
	return v
}

func (r *Runner) publish(s State) {
	v := r.project(s)
	r.mu.Lock()
	r.view = v
	r.mu.Unlock()
	if r.notifier != nil {
		r.notifier.PublishState(v)
	}
}
