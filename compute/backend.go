package compute

import (
	"errors"

	"github.com/gogpu/framepace"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not
	// registered.
	ErrBackendNotAvailable = errors.New("compute: backend not available")

	// ErrNotInitialized is returned when operations are called on a backend
	// before Init.
	ErrNotInitialized = errors.New("compute: backend not initialized")

	// ErrFallbackToReference indicates the accelerated backend cannot handle
	// an operation. The Facade retries against the reference backend.
	ErrFallbackToReference = errors.New("compute: falling back to reference backend")
)

// LayoutBaseAddress is the conceptual base address from which memory-layout
// placements are reported. It only anchors the Address field of Placement;
// no real memory is addressed.
const LayoutBaseAddress uint32 = 0x1000

// LayoutObject describes one object to place in a packed memory layout.
type LayoutObject struct {
	ID        string
	Size      uint32
	Alignment uint32
	Priority  int
}

// Placement is the assigned location of one layout object. Address is
// always LayoutBaseAddress + Offset.
type Placement struct {
	ID      string
	Offset  uint32
	Address uint32
}

// Mesh is a vertex/index buffer pair. Vertices hold three floats per
// vertex (x, y, z); Indices reference vertices by position.
type Mesh struct {
	Vertices []float32
	Indices  []uint32
}

// VertexCount returns the number of vertices in the mesh.
func (m Mesh) VertexCount() int { return len(m.Vertices) / 3 }

// PathSegment is one segment of a path to interpolate, weighted by visual
// importance (heavier segments arc higher).
type PathSegment struct {
	Start  framepace.Vec3
	End    framepace.Vec3
	Weight float32
}

// Polyline is an ordered run of points approximating a curved path.
type Polyline []framepace.Vec3

// Backend performs the compute operation menu. Both the accelerated and
// the reference implementation satisfy it; they must agree semantically
// on every operation, though PackMemoryLayout outputs may differ in
// placement order (each backend only guarantees valid, non-overlapping
// spans).
//
// Backends must be registered via Register and are selected via Get or
// Default.
type Backend interface {
	// Name returns the backend identifier (e.g. "reference", "wgpu").
	Name() string

	// Init initializes the backend. It must be called before any
	// operation; an error means the backend is unusable.
	Init() error

	// Close releases backend resources. The backend must not be used
	// after Close.
	Close()

	// PackMemoryLayout assigns each object a unique, non-overlapping span
	// of at least Size bytes from a conceptual base address.
	PackMemoryLayout(objects []LayoutObject) ([]Placement, error)

	// OptimizeGeometry transforms a mesh into an equivalent-or-better
	// mesh. The reference implementation is the identity, which is the
	// correctness floor; real optimization happens only on the
	// accelerated path.
	OptimizeGeometry(mesh Mesh) (Mesh, error)

	// BatchComposeTransforms composes translation-rotation-scale for each
	// input into a 16-element column-major matrix block, concatenated in
	// input order. Results are bit-for-bit reproducible across backends.
	BatchComposeTransforms(transforms []framepace.Transform) ([]float32, error)

	// InterpolatePaths produces one polyline per segment: start, a
	// midpoint lifted by the segment weight, and end. Both backends
	// produce this exact shape.
	InterpolatePaths(segments []PathSegment) ([]Polyline, error)
}

// DeviceProviderAware is an optional interface for backends that can share
// a GPU device with an external provider (e.g. a gogpu window) instead of
// creating their own.
type DeviceProviderAware interface {
	SetDeviceProvider(provider any) error
}
