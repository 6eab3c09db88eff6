package framepace

import (
	"sync"
	"time"
)

// measurementWindow is the span over which the frame rate is averaged.
const measurementWindow = time.Second

// FrameMetrics is a rolling frame-rate estimator fed with one timestamp
// per rendered frame.
//
// Frames are counted inside fixed one-second measurement windows. When a
// window closes, the average fps for that window replaces the published
// value; between window boundaries FPS returns the last completed value
// unchanged. The stale-but-stable semantics avoid the visible flicker an
// instantaneous estimate would produce.
//
// FrameMetrics is safe for concurrent use, though RecordFrame is expected
// to be driven from a single render loop.
type FrameMetrics struct {
	mu          sync.Mutex
	windowStart time.Time
	frames      int
	fps         float64
	measured    bool
}

// NewFrameMetrics creates an idle frame-rate estimator. The first call to
// RecordFrame arms the measurement window.
func NewFrameMetrics() *FrameMetrics {
	return &FrameMetrics{}
}

// RecordFrame records one rendered frame at the given time.
//
// The very first call only marks the window start; there is no prior
// window to measure. Subsequent calls increment the per-window frame
// counter, and once the window span has elapsed, publish the new average
// and start the next window at now.
func (m *FrameMetrics) RecordFrame(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.windowStart.IsZero() {
		m.windowStart = now
		return
	}

	m.frames++

	elapsed := now.Sub(m.windowStart)
	if elapsed >= measurementWindow {
		m.fps = float64(m.frames) / elapsed.Seconds()
		m.frames = 0
		m.windowStart = now
		m.measured = true
	}
}

// FPS returns the average frame rate over the last completed measurement
// window. It returns 0 before the first window has completed; use Measured
// to distinguish "no data yet" from a genuine zero.
func (m *FrameMetrics) FPS() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fps
}

// Measured reports whether at least one measurement window has completed.
func (m *FrameMetrics) Measured() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.measured
}

// Reset discards all state, returning the estimator to idle.
func (m *FrameMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windowStart = time.Time{}
	m.frames = 0
	m.fps = 0
	m.measured = false
}
