package compute

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/gogpu/framepace"
	"github.com/gogpu/framepace/cache"
)

// opRateWindow is the sliding window over which the operation rate is
// derived. Records older than this are purged on every metrics read.
const opRateWindow = 10 * time.Second

// opRecord is one compute invocation, retained only to derive the
// operation rate. This is a diagnostic ring, not a ledger.
type opRecord struct {
	kind string
	at   time.Time
}

// Facade is the single entry point for compute operations. It owns backend
// selection and initialization, attempts the accelerated backend first for
// every call, and transparently retries against the reference backend when
// the accelerated path fails.
//
// Construct one Facade at the application's composition root and share it
// by reference. All methods are safe for concurrent use.
//
// Operations may be called before Initialize completes; they return empty
// results (and start initialization in the background) rather than block.
type Facade struct {
	backendName string
	clock       func() time.Time

	mu     sync.Mutex
	initCh chan struct{} // nil until init starts; closed when it finishes
	accel  Backend       // nil when unavailable; pinned for process lifetime
	ref    *ReferenceBackend

	recMu   sync.Mutex
	records []opRecord

	geoCache *cache.Cache[uint64, Mesh]
}

// FacadeOption configures a Facade during creation.
type FacadeOption func(*Facade)

// WithBackend selects the accelerated backend by registered name instead
// of the default priority order. The reference backend is still used as
// the fallback.
func WithBackend(name string) FacadeOption {
	return func(f *Facade) { f.backendName = name }
}

// WithFacadeClock sets the time source for operation-rate metrics.
// Intended for tests; defaults to time.Now.
func WithFacadeClock(now func() time.Time) FacadeOption {
	return func(f *Facade) {
		if now != nil {
			f.clock = now
		}
	}
}

// WithoutGeometryCache disables memoization of OptimizeGeometry results.
func WithoutGeometryCache() FacadeOption {
	return func(f *Facade) { f.geoCache = nil }
}

// NewFacade creates a compute facade. The accelerated backend is not
// loaded until Initialize or the first operation call.
func NewFacade(opts ...FacadeOption) *Facade {
	f := &Facade{
		clock:    time.Now,
		ref:      NewReferenceBackend(),
		geoCache: cache.New[uint64, Mesh](64, cache.Uint64Hasher),
	}
	_ = f.ref.Init() // reference backend never fails to init
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Initialize loads the accelerated backend, at most once per Facade.
// Concurrent callers share a single underlying load attempt. A load
// failure is logged once and pins the reference backend for the lifetime
// of the Facade; it is not surfaced as an error, since the facade remains
// fully operational.
//
// Initialize returns once the shared attempt finishes or ctx is done.
// Cancelling ctx abandons the wait, not the load.
func (f *Facade) Initialize(ctx context.Context) error {
	ch := f.ensureInit()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Initialized reports whether backend initialization has completed.
func (f *Facade) Initialized() bool {
	f.mu.Lock()
	ch := f.initCh
	f.mu.Unlock()
	if ch == nil {
		return false
	}
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// BackendName returns the name of the backend serving accelerated calls,
// or the reference backend's name when no accelerated backend is active.
func (f *Facade) BackendName() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.accel != nil {
		return f.accel.Name()
	}
	return f.ref.Name()
}

// SetDeviceProvider passes a shared GPU device provider to the accelerated
// backend, if one is active and supports device sharing. Otherwise a no-op.
func (f *Facade) SetDeviceProvider(provider any) error {
	f.mu.Lock()
	accel := f.accel
	f.mu.Unlock()
	if accel == nil {
		return nil
	}
	if dpa, ok := accel.(DeviceProviderAware); ok {
		return dpa.SetDeviceProvider(provider)
	}
	return nil
}

// Close releases the accelerated backend, if any. The facade keeps serving
// calls through the reference backend afterwards.
func (f *Facade) Close() {
	f.mu.Lock()
	accel := f.accel
	f.accel = nil
	f.mu.Unlock()
	if accel != nil {
		accel.Close()
	}
}

// ensureInit starts the shared initialization attempt if it has not
// started yet, and returns the completion channel.
func (f *Facade) ensureInit() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.initCh == nil {
		f.initCh = make(chan struct{})
		go f.loadAccelerated(f.initCh)
	}
	return f.initCh
}

// loadAccelerated resolves and initializes the accelerated backend.
// Runs exactly once per Facade, on its own goroutine.
func (f *Facade) loadAccelerated(done chan struct{}) {
	defer close(done)

	var candidate Backend
	if f.backendName != "" {
		candidate = Get(f.backendName)
		if candidate == nil {
			framepace.Logger().Warn("compute backend unavailable, using reference",
				"backend", f.backendName, "err", ErrBackendNotAvailable)
			return
		}
	} else {
		candidate = Default()
	}
	if candidate == nil || candidate.Name() == BackendReference {
		framepace.Logger().Info("no accelerated compute backend registered, using reference")
		return
	}

	if err := candidate.Init(); err != nil {
		framepace.Logger().Warn("accelerated compute backend failed to load, using reference",
			"backend", candidate.Name(), "err", err)
		candidate.Close()
		return
	}

	f.mu.Lock()
	f.accel = candidate
	f.mu.Unlock()
	framepace.Logger().Info("compute backend initialized", "backend", candidate.Name())
}

// ready reports whether initialization has finished, starting it if
// needed, and returns the accelerated backend (nil when unavailable).
func (f *Facade) ready() (Backend, bool) {
	ch := f.ensureInit()
	select {
	case <-ch:
	default:
		return nil, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accel, true
}

// PackMemoryLayout assigns each object a non-overlapping span. See
// Backend.PackMemoryLayout. Before initialization completes it returns an
// empty result.
func (f *Facade) PackMemoryLayout(objects []LayoutObject) ([]Placement, error) {
	f.recordOp("packMemoryLayout")
	accel, ok := f.ready()
	if !ok {
		return []Placement{}, nil
	}
	if accel != nil {
		placements, err := accel.PackMemoryLayout(objects)
		if err == nil {
			return placements, nil
		}
		f.logFallback("packMemoryLayout", accel, err)
		placements, refErr := f.ref.PackMemoryLayout(objects)
		if refErr != nil {
			return nil, errors.Join(err, refErr)
		}
		return placements, nil
	}
	return f.ref.PackMemoryLayout(objects)
}

// OptimizeGeometry transforms a mesh into an equivalent-or-better mesh.
// Results are memoized by content hash; callers must not modify the
// returned buffers. Before initialization completes it returns an empty
// result.
func (f *Facade) OptimizeGeometry(mesh Mesh) (Mesh, error) {
	f.recordOp("optimizeGeometry")
	accel, ok := f.ready()
	if !ok {
		return Mesh{}, nil
	}

	var key uint64
	if f.geoCache != nil {
		key = hashMesh(mesh)
		if cached, hit := f.geoCache.Get(key); hit {
			return cached, nil
		}
	}

	out, err := f.optimizeUncached(accel, mesh)
	if err != nil {
		return Mesh{}, err
	}
	if f.geoCache != nil {
		f.geoCache.Set(key, out)
	}
	return out, nil
}

func (f *Facade) optimizeUncached(accel Backend, mesh Mesh) (Mesh, error) {
	if accel != nil {
		out, err := accel.OptimizeGeometry(mesh)
		if err == nil {
			return out, nil
		}
		f.logFallback("optimizeGeometry", accel, err)
		out, refErr := f.ref.OptimizeGeometry(mesh)
		if refErr != nil {
			return Mesh{}, errors.Join(err, refErr)
		}
		return out, nil
	}
	return f.ref.OptimizeGeometry(mesh)
}

// BatchComposeTransforms composes one column-major 4x4 matrix block per
// transform, concatenated in input order. Before initialization completes
// it returns an empty result.
func (f *Facade) BatchComposeTransforms(transforms []framepace.Transform) ([]float32, error) {
	f.recordOp("batchComposeTransforms")
	accel, ok := f.ready()
	if !ok {
		return []float32{}, nil
	}
	if accel != nil {
		matrices, err := accel.BatchComposeTransforms(transforms)
		if err == nil {
			return matrices, nil
		}
		f.logFallback("batchComposeTransforms", accel, err)
		matrices, refErr := f.ref.BatchComposeTransforms(transforms)
		if refErr != nil {
			return nil, errors.Join(err, refErr)
		}
		return matrices, nil
	}
	return f.ref.BatchComposeTransforms(transforms)
}

// InterpolatePaths produces one polyline per segment. Before
// initialization completes it returns an empty result.
func (f *Facade) InterpolatePaths(segments []PathSegment) ([]Polyline, error) {
	f.recordOp("interpolatePaths")
	accel, ok := f.ready()
	if !ok {
		return []Polyline{}, nil
	}
	if accel != nil {
		lines, err := accel.InterpolatePaths(segments)
		if err == nil {
			return lines, nil
		}
		f.logFallback("interpolatePaths", accel, err)
		lines, refErr := f.ref.InterpolatePaths(segments)
		if refErr != nil {
			return nil, errors.Join(err, refErr)
		}
		return lines, nil
	}
	return f.ref.InterpolatePaths(segments)
}

// OperationsPerSecond returns the rate of compute calls over the sliding
// record window. Records older than the window are purged on each read.
func (f *Facade) OperationsPerSecond() float64 {
	f.recMu.Lock()
	defer f.recMu.Unlock()

	cutoff := f.clock().Add(-opRateWindow)
	keep := 0
	for _, rec := range f.records {
		if rec.at.After(cutoff) {
			break
		}
		keep++
	}
	f.records = f.records[keep:]
	return float64(len(f.records)) / opRateWindow.Seconds()
}

// CacheStats returns hit/miss/eviction counters for the geometry cache,
// or zeros when caching is disabled.
func (f *Facade) CacheStats() cache.Stats {
	if f.geoCache == nil {
		return cache.Stats{}
	}
	return f.geoCache.Stats()
}

// recordOp appends one invocation record to the diagnostic ring.
func (f *Facade) recordOp(kind string) {
	now := f.clock()
	f.recMu.Lock()
	f.records = append(f.records, opRecord{kind: kind, at: now})
	f.recMu.Unlock()
}

func (f *Facade) logFallback(op string, accel Backend, err error) {
	// A deliberate decline is routing, not a fault.
	if errors.Is(err, ErrFallbackToReference) {
		framepace.Logger().Debug("compute routed to reference backend",
			"op", op, "backend", accel.Name())
		return
	}
	framepace.Logger().Warn("accelerated compute failed, retrying on reference backend",
		"op", op, "backend", accel.Name(), "err", err)
}

// hashMesh computes a content hash of a mesh's buffers for cache keying.
func hashMesh(mesh Mesh) uint64 {
	buf := make([]byte, 0, len(mesh.Vertices)*4+len(mesh.Indices)*4+8)
	var scratch [4]byte
	for _, v := range mesh.Vertices {
		binary.LittleEndian.PutUint32(scratch[:], math.Float32bits(v))
		buf = append(buf, scratch[:]...)
	}
	// Separator guards against vertex/index boundary ambiguity.
	buf = append(buf, 0xFF, 0, 0xFF, 0, 0xFF, 0, 0xFF, 0)
	for _, idx := range mesh.Indices {
		binary.LittleEndian.PutUint32(scratch[:], idx)
		buf = append(buf, scratch[:]...)
	}
	return xxh3.Hash(buf)
}
