package compute

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogpu/framepace"
)

// stubBackend is a controllable accelerated backend for facade tests.
type stubBackend struct {
	name     string
	initErr  error
	initGate chan struct{} // when non-nil, Init blocks until closed

	initCalls atomic.Int32
	optCalls  atomic.Int32
	failOps   bool
	decline   bool // decline ops with ErrFallbackToReference
	closed    atomic.Bool
}

func (s *stubBackend) Name() string { return s.name }

func (s *stubBackend) Init() error {
	s.initCalls.Add(1)
	if s.initGate != nil {
		<-s.initGate
	}
	return s.initErr
}

func (s *stubBackend) Close() { s.closed.Store(true) }

func (s *stubBackend) PackMemoryLayout(objects []LayoutObject) ([]Placement, error) {
	if s.failOps {
		return nil, errors.New("stub: packMemoryLayout failed")
	}
	// Distinguishable from the reference layout: every offset is 1000.
	placements := make([]Placement, len(objects))
	for i, obj := range objects {
		placements[i] = Placement{ID: obj.ID, Offset: 1000, Address: LayoutBaseAddress + 1000}
	}
	return placements, nil
}

func (s *stubBackend) OptimizeGeometry(mesh Mesh) (Mesh, error) {
	if s.failOps {
		return Mesh{}, errors.New("stub: optimizeGeometry failed")
	}
	s.optCalls.Add(1)
	out := Mesh{
		Vertices: append([]float32(nil), mesh.Vertices...),
		Indices:  append([]uint32(nil), mesh.Indices...),
	}
	return out, nil
}

func (s *stubBackend) BatchComposeTransforms(transforms []framepace.Transform) ([]float32, error) {
	if s.decline {
		return nil, ErrFallbackToReference
	}
	if s.failOps {
		return nil, errors.New("stub: batchComposeTransforms failed")
	}
	matrices := make([]float32, 0, len(transforms)*16)
	for _, tr := range transforms {
		m := framepace.ComposeTRS(tr)
		matrices = append(matrices, m[:]...)
	}
	return matrices, nil
}

func (s *stubBackend) InterpolatePaths(segments []PathSegment) ([]Polyline, error) {
	if s.failOps {
		return nil, errors.New("stub: interpolatePaths failed")
	}
	lines := make([]Polyline, len(segments))
	for i, seg := range segments {
		lines[i] = Polyline{seg.Start, seg.End}
	}
	return lines, nil
}

// registerStub installs a stub factory under a test-unique name and removes
// it when the test finishes.
func registerStub(t *testing.T, stub *stubBackend, factoryCalls *atomic.Int32) {
	t.Helper()
	Register(stub.name, func() Backend {
		if factoryCalls != nil {
			factoryCalls.Add(1)
		}
		return stub
	})
	t.Cleanup(func() { Unregister(stub.name) })
}

func TestFacadeInitializeOnce(t *testing.T) {
	stub := &stubBackend{name: "stub-once"}
	var factoryCalls atomic.Int32
	registerStub(t, stub, &factoryCalls)

	f := NewFacade(WithBackend("stub-once"))
	defer f.Close()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := f.Initialize(context.Background()); err != nil {
				t.Errorf("Initialize() = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := factoryCalls.Load(); got != 1 {
		t.Errorf("factory invoked %d times, want 1", got)
	}
	if got := stub.initCalls.Load(); got != 1 {
		t.Errorf("Init called %d times, want 1", got)
	}
	if !f.Initialized() {
		t.Error("Initialized() = false after Initialize returned")
	}
	if got := f.BackendName(); got != "stub-once" {
		t.Errorf("BackendName() = %q, want %q", got, "stub-once")
	}
}

func TestFacadeInitFailurePinsReference(t *testing.T) {
	stub := &stubBackend{name: "stub-broken", initErr: errors.New("no device")}
	registerStub(t, stub, nil)

	f := NewFacade(WithBackend("stub-broken"))
	defer f.Close()

	if err := f.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() = %v, want nil on load failure", err)
	}
	if got := f.BackendName(); got != BackendReference {
		t.Errorf("BackendName() = %q, want %q", got, BackendReference)
	}
	if !stub.closed.Load() {
		t.Error("failed backend was not closed")
	}

	// Operations keep working through the reference backend.
	placements, err := f.PackMemoryLayout([]LayoutObject{{ID: "a", Size: 8}})
	if err != nil {
		t.Fatalf("PackMemoryLayout() = %v", err)
	}
	if len(placements) != 1 || placements[0].Offset != 0 {
		t.Errorf("placements = %+v, want reference layout at offset 0", placements)
	}
}

func TestFacadeUnknownBackendUsesReference(t *testing.T) {
	f := NewFacade(WithBackend("no-such-backend"))
	defer f.Close()

	if err := f.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() = %v", err)
	}
	if got := f.BackendName(); got != BackendReference {
		t.Errorf("BackendName() = %q, want %q", got, BackendReference)
	}
}

func TestFacadeFallbackOnOperationFailure(t *testing.T) {
	stub := &stubBackend{name: "stub-flaky", failOps: true}
	registerStub(t, stub, nil)

	f := NewFacade(WithBackend("stub-flaky"))
	defer f.Close()
	if err := f.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() = %v", err)
	}

	mesh := Mesh{Vertices: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}, Indices: []uint32{0, 1, 2}}
	out, err := f.OptimizeGeometry(mesh)
	if err != nil {
		t.Fatalf("OptimizeGeometry() = %v, want transparent fallback", err)
	}
	if len(out.Vertices) != len(mesh.Vertices) {
		t.Errorf("fallback result has %d vertices, want %d", len(out.Vertices), len(mesh.Vertices))
	}

	placements, err := f.PackMemoryLayout([]LayoutObject{{ID: "a", Size: 8}, {ID: "b", Size: 4}})
	if err != nil {
		t.Fatalf("PackMemoryLayout() = %v, want transparent fallback", err)
	}
	if placements[1].Offset != 8 {
		t.Errorf("fallback placement offset = %d, want 8 (reference layout)", placements[1].Offset)
	}

	matrices, err := f.BatchComposeTransforms([]framepace.Transform{framepace.TransformIdentity()})
	if err != nil {
		t.Fatalf("BatchComposeTransforms() = %v, want transparent fallback", err)
	}
	if len(matrices) != 16 {
		t.Errorf("fallback matrices length = %d, want 16", len(matrices))
	}

	lines, err := f.InterpolatePaths([]PathSegment{{Start: framepace.V3(0, 0, 0), End: framepace.V3(1, 0, 0)}})
	if err != nil {
		t.Fatalf("InterpolatePaths() = %v, want transparent fallback", err)
	}
	if len(lines) != 1 || len(lines[0]) != 3 {
		t.Errorf("fallback lines = %v, want one 3-point polyline", lines)
	}
}

func TestFacadeDeclineRoutesToReference(t *testing.T) {
	stub := &stubBackend{name: "stub-decline", decline: true}
	registerStub(t, stub, nil)

	f := NewFacade(WithBackend("stub-decline"))
	defer f.Close()
	if err := f.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() = %v", err)
	}

	tr := framepace.Transform{
		Position: framepace.V3(1, 2, 3),
		Rotation: framepace.QuatIdentity(),
		Scale:    framepace.V3(1, 1, 1),
	}
	matrices, err := f.BatchComposeTransforms([]framepace.Transform{tr})
	if err != nil {
		t.Fatalf("BatchComposeTransforms() = %v, want reference result on decline", err)
	}
	want := framepace.ComposeTRS(tr)
	for i := 0; i < 16; i++ {
		if matrices[i] != want[i] {
			t.Fatalf("matrix element %d = %v, want %v", i, matrices[i], want[i])
		}
	}
}

func TestFacadeEmptyResultsBeforeInit(t *testing.T) {
	gate := make(chan struct{})
	stub := &stubBackend{name: "stub-slow", initGate: gate}
	registerStub(t, stub, nil)

	f := NewFacade(WithBackend("stub-slow"))
	defer f.Close()

	// Init is still in flight: operations return empty, non-nil results
	// without blocking.
	matrices, err := f.BatchComposeTransforms([]framepace.Transform{framepace.TransformIdentity()})
	if err != nil {
		t.Fatalf("BatchComposeTransforms() = %v", err)
	}
	if matrices == nil || len(matrices) != 0 {
		t.Errorf("matrices = %v, want empty non-nil slice before init", matrices)
	}
	if f.Initialized() {
		t.Error("Initialized() = true while init is gated")
	}

	close(gate)
	if err := f.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() = %v", err)
	}

	matrices, err = f.BatchComposeTransforms([]framepace.Transform{framepace.TransformIdentity()})
	if err != nil {
		t.Fatalf("BatchComposeTransforms() after init = %v", err)
	}
	if len(matrices) != 16 {
		t.Errorf("matrices length = %d, want 16 after init", len(matrices))
	}
}

func TestFacadeInitializeContextCancel(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)
	stub := &stubBackend{name: "stub-gated", initGate: gate}
	registerStub(t, stub, nil)

	f := NewFacade(WithBackend("stub-gated"))
	defer f.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := f.Initialize(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Initialize() = %v, want context.DeadlineExceeded", err)
	}
}

func TestFacadeGeometryCache(t *testing.T) {
	stub := &stubBackend{name: "stub-cache"}
	registerStub(t, stub, nil)

	f := NewFacade(WithBackend("stub-cache"))
	defer f.Close()
	if err := f.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() = %v", err)
	}

	mesh := Mesh{Vertices: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}, Indices: []uint32{0, 1, 2}}
	if _, err := f.OptimizeGeometry(mesh); err != nil {
		t.Fatalf("OptimizeGeometry() = %v", err)
	}
	if _, err := f.OptimizeGeometry(mesh); err != nil {
		t.Fatalf("OptimizeGeometry() = %v", err)
	}

	if got := stub.optCalls.Load(); got != 1 {
		t.Errorf("backend invoked %d times for identical mesh, want 1", got)
	}
	stats := f.CacheStats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("cache stats = %+v, want 1 hit, 1 miss", stats)
	}

	// A different mesh misses again.
	other := Mesh{Vertices: []float32{5, 5, 5}, Indices: []uint32{0}}
	if _, err := f.OptimizeGeometry(other); err != nil {
		t.Fatalf("OptimizeGeometry() = %v", err)
	}
	if got := stub.optCalls.Load(); got != 2 {
		t.Errorf("backend invoked %d times after distinct mesh, want 2", got)
	}
}

func TestFacadeGeometryCacheDisabled(t *testing.T) {
	stub := &stubBackend{name: "stub-nocache"}
	registerStub(t, stub, nil)

	f := NewFacade(WithBackend("stub-nocache"), WithoutGeometryCache())
	defer f.Close()
	if err := f.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() = %v", err)
	}

	mesh := Mesh{Vertices: []float32{1, 2, 3}}
	f.OptimizeGeometry(mesh)
	f.OptimizeGeometry(mesh)
	if got := stub.optCalls.Load(); got != 2 {
		t.Errorf("backend invoked %d times with cache disabled, want 2", got)
	}
	if stats := f.CacheStats(); stats.Hits != 0 || stats.Misses != 0 {
		t.Errorf("cache stats = %+v, want zeros with cache disabled", stats)
	}
}

func TestFacadeOperationsPerSecond(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	f := NewFacade(WithBackend("no-such-backend"), WithFacadeClock(clock))
	defer f.Close()
	if err := f.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() = %v", err)
	}

	for i := 0; i < 5; i++ {
		f.PackMemoryLayout(nil)
	}
	if got, want := f.OperationsPerSecond(), 0.5; got != want {
		t.Errorf("OperationsPerSecond() = %v, want %v", got, want)
	}

	// Records age out of the sliding window.
	now = now.Add(opRateWindow + time.Second)
	if got := f.OperationsPerSecond(); got != 0 {
		t.Errorf("OperationsPerSecond() after window = %v, want 0", got)
	}
}

func TestFacadeSetDeviceProviderNoAccel(t *testing.T) {
	f := NewFacade(WithBackend("no-such-backend"))
	defer f.Close()
	if err := f.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() = %v", err)
	}
	if err := f.SetDeviceProvider(struct{}{}); err != nil {
		t.Errorf("SetDeviceProvider() = %v, want no-op nil", err)
	}
}

func TestHashMesh(t *testing.T) {
	a := Mesh{Vertices: []float32{1, 2, 3}, Indices: []uint32{0, 1, 2}}
	if hashMesh(a) != hashMesh(a) {
		t.Error("hash is not deterministic")
	}
	b := Mesh{Vertices: []float32{1, 2, 3}, Indices: []uint32{2, 1, 0}}
	if hashMesh(a) == hashMesh(b) {
		t.Error("distinct index order hashed to the same key")
	}
	// Moving a word across the vertex/index boundary changes the key.
	c := Mesh{Vertices: []float32{1, 2}, Indices: []uint32{3, 0, 1, 2}}
	if hashMesh(a) == hashMesh(c) {
		t.Error("boundary shift hashed to the same key")
	}
}
