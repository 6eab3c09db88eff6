//go:build !nogpu

package gpu

import (
	"math"

	"github.com/gogpu/framepace/compute"
)

// OptimizeGeometry welds duplicate vertices and rewrites the index buffer
// to match. Duplicate detection is exact (bit-identical coordinates), so
// welding never moves a vertex. A mesh without an index buffer gains one,
// which is itself a size win once duplicates exist.
func (a *Accelerator) OptimizeGeometry(mesh compute.Mesh) (compute.Mesh, error) {
	a.mu.Lock()
	ready := a.ready
	a.mu.Unlock()
	if !ready {
		return compute.Mesh{}, compute.ErrNotInitialized
	}

	count := mesh.VertexCount()
	type vertexKey [3]uint32
	seen := make(map[vertexKey]uint32, count)
	remap := make([]uint32, count)
	welded := make([]float32, 0, len(mesh.Vertices))

	for v := 0; v < count; v++ {
		x, y, z := mesh.Vertices[v*3], mesh.Vertices[v*3+1], mesh.Vertices[v*3+2]
		key := vertexKey{math.Float32bits(x), math.Float32bits(y), math.Float32bits(z)}
		if idx, ok := seen[key]; ok {
			remap[v] = idx
			continue
		}
		idx := uint32(len(welded) / 3)
		seen[key] = idx
		remap[v] = idx
		welded = append(welded, x, y, z)
	}

	out := compute.Mesh{Vertices: welded}
	if len(mesh.Indices) > 0 {
		out.Indices = make([]uint32, len(mesh.Indices))
		for i, old := range mesh.Indices {
			out.Indices[i] = remap[old]
		}
	} else {
		// Unindexed input: the remap table is the new index buffer.
		out.Indices = remap
	}
	return out, nil
}
