package compute

import (
	"errors"
	"testing"

	"github.com/gogpu/framepace"
)

func newTestReference(t *testing.T) *ReferenceBackend {
	t.Helper()
	b := NewReferenceBackend()
	if err := b.Init(); err != nil {
		t.Fatalf("Init() = %v", err)
	}
	return b
}

func TestReferenceRequiresInit(t *testing.T) {
	b := NewReferenceBackend()
	if _, err := b.PackMemoryLayout(nil); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("PackMemoryLayout before Init = %v, want ErrNotInitialized", err)
	}
	if _, err := b.OptimizeGeometry(Mesh{}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("OptimizeGeometry before Init = %v, want ErrNotInitialized", err)
	}
}

func TestReferencePackMemoryLayout(t *testing.T) {
	b := newTestReference(t)

	objects := []LayoutObject{
		{ID: "header", Size: 16, Alignment: 8, Priority: 1},
		{ID: "payload", Size: 100, Alignment: 4},
		{ID: "tail", Size: 4, Alignment: 1, Priority: -1},
	}
	placements, err := b.PackMemoryLayout(objects)
	if err != nil {
		t.Fatalf("PackMemoryLayout() = %v", err)
	}

	// Cumulative sum in input order; alignment and priority are ignored.
	want := []Placement{
		{ID: "header", Offset: 0, Address: LayoutBaseAddress},
		{ID: "payload", Offset: 16, Address: LayoutBaseAddress + 16},
		{ID: "tail", Offset: 116, Address: LayoutBaseAddress + 116},
	}
	for i := range want {
		if placements[i] != want[i] {
			t.Errorf("placement[%d] = %+v, want %+v", i, placements[i], want[i])
		}
	}
}

func TestReferencePackMemoryLayoutEmpty(t *testing.T) {
	b := newTestReference(t)
	placements, err := b.PackMemoryLayout(nil)
	if err != nil {
		t.Fatalf("PackMemoryLayout(nil) = %v", err)
	}
	if len(placements) != 0 {
		t.Errorf("placements = %v, want empty", placements)
	}
}

func TestReferenceOptimizeGeometryIdentity(t *testing.T) {
	b := newTestReference(t)

	mesh := Mesh{
		Vertices: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		Indices:  []uint32{0, 1, 2},
	}
	out, err := b.OptimizeGeometry(mesh)
	if err != nil {
		t.Fatalf("OptimizeGeometry() = %v", err)
	}

	if len(out.Vertices) != len(mesh.Vertices) || len(out.Indices) != len(mesh.Indices) {
		t.Fatalf("identity changed buffer sizes: %d/%d verts, %d/%d indices",
			len(out.Vertices), len(mesh.Vertices), len(out.Indices), len(mesh.Indices))
	}
	for i := range mesh.Vertices {
		if out.Vertices[i] != mesh.Vertices[i] {
			t.Fatalf("vertex %d = %v, want %v", i, out.Vertices[i], mesh.Vertices[i])
		}
	}

	// The result is a copy: mutating it must not touch the input.
	out.Vertices[0] = 99
	if mesh.Vertices[0] == 99 {
		t.Error("OptimizeGeometry aliased the input buffer")
	}
}

func TestReferenceBatchComposeTransforms(t *testing.T) {
	b := newTestReference(t)

	transforms := []framepace.Transform{
		{Position: framepace.V3(1, 2, 3), Rotation: framepace.QuatIdentity(), Scale: framepace.V3(1, 1, 1)},
		{Position: framepace.V3(-1, 0, 0), Rotation: framepace.QuatIdentity(), Scale: framepace.V3(2, 2, 2)},
	}
	matrices, err := b.BatchComposeTransforms(transforms)
	if err != nil {
		t.Fatalf("BatchComposeTransforms() = %v", err)
	}
	if len(matrices) != 32 {
		t.Fatalf("len(matrices) = %d, want 32", len(matrices))
	}

	for i, tr := range transforms {
		want := framepace.ComposeTRS(tr)
		for j := 0; j < 16; j++ {
			if matrices[i*16+j] != want[j] {
				t.Errorf("matrix %d element %d = %v, want %v", i, j, matrices[i*16+j], want[j])
			}
		}
	}
}

func TestReferenceInterpolatePaths(t *testing.T) {
	b := newTestReference(t)

	segments := []PathSegment{
		{Start: framepace.V3(0, 0, 0), End: framepace.V3(10, 0, 0), Weight: 2},
		{Start: framepace.V3(1, 1, 1), End: framepace.V3(1, 1, 5), Weight: 0},
	}
	lines, err := b.InterpolatePaths(segments)
	if err != nil {
		t.Fatalf("InterpolatePaths() = %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("len(lines) = %d, want 2", len(lines))
	}

	// 3 points per segment: start, lifted midpoint, end.
	want0 := Polyline{framepace.V3(0, 0, 0), framepace.V3(5, 2, 0), framepace.V3(10, 0, 0)}
	for i, p := range want0 {
		if lines[0][i] != p {
			t.Errorf("line 0 point %d = %v, want %v", i, lines[0][i], p)
		}
	}

	// Zero weight: flat midpoint.
	if lines[1][1] != framepace.V3(1, 1, 3) {
		t.Errorf("line 1 midpoint = %v, want (1, 1, 3)", lines[1][1])
	}
}
