// Package framepace provides frame-budget scheduling and compute offload
// for real-time visualization applications.
//
// # Overview
//
// framepace coordinates per-frame work for applications driven by a host
// render loop. Independent components register named, prioritized callbacks
// with a Scheduler; the Scheduler measures the achieved frame rate each
// frame and adaptively sheds lower-priority work when the frame budget is
// under pressure. Heavy numeric workloads (transform batching, geometry
// optimization, memory-layout packing, path interpolation) are routed
// through the compute subpackage, which prefers a GPU-accelerated backend
// and transparently falls back to a pure-Go reference implementation.
//
// # Quick Start
//
//	import "github.com/gogpu/framepace"
//
//	sched := framepace.New()
//	sched.Register("particles", updateParticles, 1)
//	sched.Register("background", updateBackground, -1)
//
//	// Host render loop, once per frame:
//	sched.Tick(&framepace.FrameContext{Now: time.Now()}, dt)
//
// # Performance Modes
//
// The Scheduler classifies the rolling frame rate into three modes:
//   - ModeHigh (>= 55 fps): every enabled callback runs.
//   - ModeMedium (40-55 fps): only callbacks with priority >= 0 run.
//   - ModeLow (< 40 fps): only the top half of the strictly-positive
//     priority callbacks run (at least one).
//
// Mode selection is a pure function of the frame-rate estimate and is
// re-evaluated every tick. There is no hysteresis band, so a frame rate
// oscillating around a threshold flaps the mode with it.
//
// # Compute Offload
//
// See the compute subpackage for the Backend interface and the Facade.
// GPU acceleration is opt-in via blank import:
//
//	import _ "github.com/gogpu/framepace/gpu" // enable GPU compute
//
// # Architecture
//
// The library is organized into:
//   - Public API: Scheduler, CallbackRegistry, FrameMetrics, Mode, math types
//   - compute: Backend interface, reference implementation, Facade
//   - internal/gpu: wgpu/hal compute backend (build tag !nogpu)
//   - anim: animation entity engine driven by scheduler callbacks
//
// # Threading
//
// Tick must be driven from a single goroutine (the render loop). Registry
// mutation and metrics reads are safe from any goroutine.
package framepace
