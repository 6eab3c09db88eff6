// Package anim provides an animation entity engine for memory-visualization
// scenes: arrows linking locations and labeled blocks representing memory
// regions. The engine advances its animations from a scheduler callback and
// leaves all drawing to the host.
package anim

import (
	"math"
	"sync"
	"time"

	"github.com/gogpu/framepace"
)

// Animation speed bounds and pulse shape.
const (
	minSpeed = 0.1
	maxSpeed = 5.0

	baseThickness  = 3.0
	pulseAmplitude = 2.0
)

// callbackID is the id the engine registers under when attached to a
// scheduler.
const callbackID = "anim.engine"

// Region tags the kind of memory a block visualizes.
type Region string

// Memory region tags.
const (
	RegionStack  Region = "stack"
	RegionHeap   Region = "heap"
	RegionGlobal Region = "global"
)

// Arrow is an animated arrow between two points in scene space, typically
// visualizing a reference from one location to another. Animated arrows
// pulse their thickness as Progress cycles.
type Arrow struct {
	ID        string
	Start     framepace.Vec3
	End       framepace.Vec3
	Color     string
	Thickness float32
	Animated  bool
	Progress  float32
}

// Block is a labeled box representing a span of memory.
type Block struct {
	ID       string
	Position framepace.Vec3
	Size     framepace.Vec3
	Color    string
	Label    string
	Region   Region
}

// Engine is a store of animated scene entities. It is safe for concurrent
// use; Advance is expected to run on the render loop via a scheduler
// callback (see Attach).
type Engine struct {
	mu     sync.RWMutex
	arrows map[string]*Arrow
	blocks map[string]*Block
	speed  float32
}

// NewEngine creates an empty animation engine with speed 1.
func NewEngine() *Engine {
	return &Engine{
		arrows: make(map[string]*Arrow),
		blocks: make(map[string]*Block),
		speed:  1,
	}
}

// AddArrow inserts or replaces an arrow by id.
func (e *Engine) AddArrow(a Arrow) {
	e.mu.Lock()
	defer e.mu.Unlock()
	stored := a
	e.arrows[a.ID] = &stored
}

// RemoveArrow removes an arrow by id. Unknown ids are a no-op.
func (e *Engine) RemoveArrow(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.arrows, id)
}

// SetArrowTarget retargets an existing arrow's end point. Unknown ids are
// a no-op.
func (e *Engine) SetArrowTarget(id string, end framepace.Vec3) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if a, ok := e.arrows[id]; ok {
		a.End = end
	}
}

// Arrow returns a copy of the arrow with the given id.
func (e *Engine) Arrow(id string) (Arrow, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if a, ok := e.arrows[id]; ok {
		return *a, true
	}
	return Arrow{}, false
}

// AddBlock inserts or replaces a block by id.
func (e *Engine) AddBlock(b Block) {
	e.mu.Lock()
	defer e.mu.Unlock()
	stored := b
	e.blocks[b.ID] = &stored
}

// RemoveBlock removes a block by id. Unknown ids are a no-op.
func (e *Engine) RemoveBlock(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.blocks, id)
}

// Block returns a copy of the block with the given id.
func (e *Engine) Block(id string) (Block, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if b, ok := e.blocks[id]; ok {
		return *b, true
	}
	return Block{}, false
}

// ArrowCount returns the number of stored arrows.
func (e *Engine) ArrowCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.arrows)
}

// BlockCount returns the number of stored blocks.
func (e *Engine) BlockCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.blocks)
}

// SetSpeed sets the animation speed multiplier, clamped to [0.1, 5].
func (e *Engine) SetSpeed(speed float32) {
	if speed < minSpeed {
		speed = minSpeed
	}
	if speed > maxSpeed {
		speed = maxSpeed
	}
	e.mu.Lock()
	e.speed = speed
	e.mu.Unlock()
}

// Speed returns the animation speed multiplier.
func (e *Engine) Speed() float32 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.speed
}

// Advance steps all animated arrows by the elapsed frame time. Progress
// wraps at 1.0 and thickness pulses one full sine cycle per wrap.
func (e *Engine) Advance(dt time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	step := float32(dt.Seconds()) * e.speed
	for _, a := range e.arrows {
		if !a.Animated {
			continue
		}
		a.Progress += step
		if a.Progress > 1 {
			a.Progress = 0
		}
		pulse := float32(math.Sin(float64(a.Progress) * 2 * math.Pi))
		a.Thickness = baseThickness + pulse*pulseAmplitude
	}
}

// Reset removes all arrows and blocks. Speed is retained.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.arrows = make(map[string]*Arrow)
	e.blocks = make(map[string]*Block)
}

// Attach registers the engine's per-frame update on the scheduler at the
// given priority. Attaching twice replaces the previous registration.
func (e *Engine) Attach(s *framepace.Scheduler, priority int) {
	s.Register(callbackID, func(_ *framepace.FrameContext, dt time.Duration) error {
		e.Advance(dt)
		return nil
	}, priority)
}

// Detach removes the engine's registration from the scheduler.
func (e *Engine) Detach(s *framepace.Scheduler) {
	s.Unregister(callbackID)
}
