package framepace

import (
	"sort"
	"sync"
	"time"
)

// FrameContext carries per-frame data from the render host to callbacks.
// The Scheduler never inspects it; it is forwarded to callbacks as-is.
type FrameContext struct {
	// Frame is the host's frame counter, if it keeps one.
	Frame uint64

	// Now is the host's timestamp for this frame.
	Now time.Time

	// UserData is an opaque payload for application use.
	UserData any
}

// Callback is one per-frame unit of work. It receives the host's frame
// context and the elapsed time since the previous frame.
//
// A non-nil error is logged by the Scheduler and does not affect other
// callbacks in the same tick, nor the callback's own registration: a
// callback that fails one frame runs again the next.
type Callback func(fc *FrameContext, dt time.Duration) error

// callbackEntry is the registry's record of one registered callback.
// The registry exclusively owns entries; callers retain only the id.
type callbackEntry struct {
	id       string
	fn       Callback
	priority int
	enabled  bool
}

// RegisteredCallback is a read-only view of one registry entry, handed out
// by Snapshot. It carries the callback by value so later registry mutation
// cannot affect an in-flight tick.
type RegisteredCallback struct {
	ID       string
	Priority int
	fn       Callback
}

// Invoke runs the callback with the given frame context and delta time.
func (r RegisteredCallback) Invoke(fc *FrameContext, dt time.Duration) error {
	return r.fn(fc, dt)
}

// CallbackRegistry is an ordered set of named, prioritized, per-frame
// callbacks. Entries are kept sorted by descending priority; ties preserve
// registration order, so execution order is deterministic across runs.
//
// All methods are safe for concurrent use. None of them return errors:
// unknown ids are silently ignored by Unregister and SetEnabled, keeping
// the hot path branch-free for callers.
type CallbackRegistry struct {
	mu      sync.RWMutex
	entries []*callbackEntry
	byID    map[string]*callbackEntry
}

// NewCallbackRegistry creates an empty registry.
func NewCallbackRegistry() *CallbackRegistry {
	return &CallbackRegistry{
		byID: make(map[string]*callbackEntry),
	}
}

// Register inserts a callback under the given id, or replaces the existing
// entry if the id is already registered. Replacement keeps the entry's
// position among equal priorities. New entries start enabled.
//
// Entries are re-sorted by descending priority with a stable sort, so
// callbacks registered at the same priority run in registration order.
func (r *CallbackRegistry) Register(id string, fn Callback, priority int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.byID[id]; ok {
		e.fn = fn
		e.priority = priority
		r.sortLocked()
		return
	}

	e := &callbackEntry{id: id, fn: fn, priority: priority, enabled: true}
	r.entries = append(r.entries, e)
	r.byID[id] = e
	r.sortLocked()
}

// Unregister removes the entry with the given id. Unknown ids are a no-op.
// Removal preserves the order of the remaining entries, so no re-sort is
// needed.
func (r *CallbackRegistry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byID, id)
	for i, cur := range r.entries {
		if cur == e {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			break
		}
	}
}

// SetEnabled toggles the entry with the given id without altering its
// position in the priority order. Unknown ids are a no-op. Disabled
// entries are skipped by Snapshot but remain registered.
func (r *CallbackRegistry) SetEnabled(id string, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.byID[id]; ok {
		e.enabled = enabled
	}
}

// Clear removes all entries.
func (r *CallbackRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
	r.byID = make(map[string]*callbackEntry)
}

// Len returns the number of registered entries, enabled or not.
func (r *CallbackRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Snapshot returns the currently enabled entries in priority order.
// The returned slice is a copy; mutating the registry afterwards does not
// affect it, and vice versa.
func (r *CallbackRegistry) Snapshot() []RegisteredCallback {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]RegisteredCallback, 0, len(r.entries))
	for _, e := range r.entries {
		if !e.enabled {
			continue
		}
		out = append(out, RegisteredCallback{ID: e.id, Priority: e.priority, fn: e.fn})
	}
	return out
}

// sortLocked re-sorts entries by descending priority. The sort is stable:
// equal priorities keep their current relative order. Caller holds r.mu.
func (r *CallbackRegistry) sortLocked() {
	sort.SliceStable(r.entries, func(i, j int) bool {
		return r.entries[i].priority > r.entries[j].priority
	})
}
