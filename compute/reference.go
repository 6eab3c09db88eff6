package compute

import (
	"github.com/gogpu/framepace"
)

// arcLift is the vertical rise, per unit of segment weight, applied to the
// midpoint of an interpolated path.
const arcLift = 1.0

// ReferenceBackend is the pure-Go compute backend. It is always available,
// fully synchronous, and serves as the correctness floor the accelerated
// backend is measured against.
type ReferenceBackend struct {
	initialized bool
}

// init registers the reference backend on package import.
func init() {
	Register(BackendReference, func() Backend {
		return NewReferenceBackend()
	})
}

// NewReferenceBackend creates a new reference compute backend.
func NewReferenceBackend() *ReferenceBackend {
	return &ReferenceBackend{}
}

// Name returns the backend identifier.
func (b *ReferenceBackend) Name() string {
	return BackendReference
}

// Init initializes the backend. The reference backend has no resources to
// acquire and never fails.
func (b *ReferenceBackend) Init() error {
	b.initialized = true
	return nil
}

// Close releases backend resources.
func (b *ReferenceBackend) Close() {
	b.initialized = false
}

// PackMemoryLayout assigns offsets by cumulative sum in input order.
// Alignment and priority are ignored here; only the accelerated backend
// reorders for tighter packing.
func (b *ReferenceBackend) PackMemoryLayout(objects []LayoutObject) ([]Placement, error) {
	if !b.initialized {
		return nil, ErrNotInitialized
	}

	placements := make([]Placement, len(objects))
	var offset uint32
	for i, obj := range objects {
		placements[i] = Placement{
			ID:      obj.ID,
			Offset:  offset,
			Address: LayoutBaseAddress + offset,
		}
		offset += obj.Size
	}
	return placements, nil
}

// OptimizeGeometry is the identity: it returns a copy of the input mesh.
// Pass-through is the guaranteed floor; real optimization only happens on
// the accelerated path.
func (b *ReferenceBackend) OptimizeGeometry(mesh Mesh) (Mesh, error) {
	if !b.initialized {
		return Mesh{}, ErrNotInitialized
	}

	out := Mesh{
		Vertices: make([]float32, len(mesh.Vertices)),
		Indices:  make([]uint32, len(mesh.Indices)),
	}
	copy(out.Vertices, mesh.Vertices)
	copy(out.Indices, mesh.Indices)
	return out, nil
}

// BatchComposeTransforms composes T*R*S for each transform into a
// 16-float column-major block, concatenated in input order.
func (b *ReferenceBackend) BatchComposeTransforms(transforms []framepace.Transform) ([]float32, error) {
	if !b.initialized {
		return nil, ErrNotInitialized
	}

	out := make([]float32, 0, len(transforms)*16)
	for _, t := range transforms {
		m := framepace.ComposeTRS(t)
		out = append(out, m[:]...)
	}
	return out, nil
}

// InterpolatePaths produces a 3-point polyline per segment: start, a
// midpoint lifted by weight*arcLift, and end.
func (b *ReferenceBackend) InterpolatePaths(segments []PathSegment) ([]Polyline, error) {
	if !b.initialized {
		return nil, ErrNotInitialized
	}
	return interpolateSegments(segments), nil
}

// interpolateSegments is the canonical arc approximation shared by both
// backends: there is no "more correct" accelerated equivalent, so the
// accelerated backend delegates here.
func interpolateSegments(segments []PathSegment) []Polyline {
	lines := make([]Polyline, len(segments))
	for i, seg := range segments {
		mid := seg.Start.Lerp(seg.End, 0.5)
		mid.Y += seg.Weight * arcLift
		lines[i] = Polyline{seg.Start, mid, seg.End}
	}
	return lines
}

// InterpolateSegments exposes the canonical arc approximation for backend
// implementations outside this package.
func InterpolateSegments(segments []PathSegment) []Polyline {
	return interpolateSegments(segments)
}
