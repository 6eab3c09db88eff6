package framepace

import (
	"sync"
	"time"
)

// Stats is a read-only snapshot of scheduler observability counters.
// It is diagnostic only; nothing in the scheduler depends on it.
type Stats struct {
	// FPS is the average frame rate over the last completed window.
	FPS float64

	// Mode is the performance mode selected on the most recent tick.
	Mode Mode

	// ActiveCallbacks is the number of callbacks executed on the most
	// recent tick after mode-based admission.
	ActiveCallbacks int

	// TotalCallbacks is the number of registered callbacks, enabled or not.
	TotalCallbacks int
}

// Scheduler orchestrates per-frame work: it feeds the frame-rate estimator,
// classifies the current performance mode, and executes the admissible
// subset of registered callbacks, isolating individual callback failures.
//
// Construct one Scheduler at the application's composition root and share
// it by reference; there is no package-level instance.
//
// Tick must be called from a single goroutine (the host render loop).
// Registration and metrics reads are safe from any goroutine.
type Scheduler struct {
	registry *CallbackRegistry
	metrics  *FrameMetrics
	now      func() time.Time

	mu     sync.RWMutex
	mode   Mode
	active int
}

// SchedulerOption configures a Scheduler during creation.
type SchedulerOption func(*Scheduler)

// WithClock sets the time source used for frame-rate measurement.
// Intended for tests; defaults to time.Now.
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRegistry sets a caller-owned callback registry, for hosts that share
// one registry between schedulers or pre-populate it before construction.
func WithRegistry(r *CallbackRegistry) SchedulerOption {
	return func(s *Scheduler) {
		if r != nil {
			s.registry = r
		}
	}
}

// New creates a Scheduler. The initial mode is ModeHigh until the first
// measurement window completes.
func New(opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		registry: NewCallbackRegistry(),
		metrics:  NewFrameMetrics(),
		now:      time.Now,
		mode:     ModeHigh,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the scheduler's callback registry.
func (s *Scheduler) Registry() *CallbackRegistry { return s.registry }

// Register adds or replaces a per-frame callback. See CallbackRegistry.Register.
func (s *Scheduler) Register(id string, fn Callback, priority int) {
	s.registry.Register(id, fn, priority)
}

// Unregister removes a per-frame callback. Unknown ids are a no-op.
func (s *Scheduler) Unregister(id string) {
	s.registry.Unregister(id)
}

// SetEnabled toggles a registered callback without unregistering it.
func (s *Scheduler) SetEnabled(id string, enabled bool) {
	s.registry.SetEnabled(id, enabled)
}

// Tick runs one frame: it records the frame time, recomputes the
// performance mode, and executes the callbacks admissible under that mode
// in priority order. A callback error or panic is logged and contained;
// the remaining callbacks of the same tick still run, and the faulty
// callback stays registered for the next frame.
//
// Tick never blocks beyond the synchronous execution of the admitted
// callbacks and must be called once per rendered frame.
func (s *Scheduler) Tick(fc *FrameContext, dt time.Duration) {
	s.metrics.RecordFrame(s.now())

	mode := ModeHigh
	if s.metrics.Measured() {
		mode = Classify(s.metrics.FPS())
	}

	admitted := admit(s.registry.Snapshot(), mode)
	for _, cb := range admitted {
		s.runOne(cb, fc, dt)
	}

	s.mu.Lock()
	if mode != s.mode {
		Logger().Debug("performance mode changed",
			"from", s.mode.String(), "to", mode.String(), "fps", s.metrics.FPS())
	}
	s.mode = mode
	s.active = len(admitted)
	s.mu.Unlock()
}

// Mode returns the performance mode selected on the most recent tick.
func (s *Scheduler) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// FPS returns the rolling frame-rate estimate.
func (s *Scheduler) FPS() float64 { return s.metrics.FPS() }

// Stats returns a snapshot of the scheduler's observability counters.
func (s *Scheduler) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		FPS:             s.metrics.FPS(),
		Mode:            s.mode,
		ActiveCallbacks: s.active,
		TotalCallbacks:  s.registry.Len(),
	}
}

// admit selects the executable subset of an ordered snapshot for a mode.
//
// ModeLow narrows in two stages: first filter to strictly positive
// priorities, then truncate to the top max(1, n/2) entries. The snapshot
// is already in priority order, so truncation keeps the most important
// work.
func admit(entries []RegisteredCallback, mode Mode) []RegisteredCallback {
	switch mode {
	case ModeHigh:
		return entries
	case ModeMedium:
		kept := entries[:0:0]
		for _, e := range entries {
			if e.Priority >= 0 {
				kept = append(kept, e)
			}
		}
		return kept
	default: // ModeLow
		kept := entries[:0:0]
		for _, e := range entries {
			if e.Priority > 0 {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			return kept
		}
		limit := len(kept) / 2
		if limit < 1 {
			limit = 1
		}
		return kept[:limit]
	}
}

// runOne executes a single callback inside a failure boundary. Errors and
// panics are logged with the callback id and do not propagate.
func (s *Scheduler) runOne(cb RegisteredCallback, fc *FrameContext, dt time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			Logger().Warn("frame callback panicked", "id", cb.ID, "panic", r)
		}
	}()
	if err := cb.Invoke(fc, dt); err != nil {
		Logger().Warn("frame callback failed", "id", cb.ID, "err", err)
	}
}
