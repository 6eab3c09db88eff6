//go:build !nogpu

package gpu

import (
	"sort"

	"github.com/gogpu/framepace/compute"
)

// PackMemoryLayout assigns aligned, non-overlapping spans. Unlike the
// reference backend's cumulative-sum-in-input-order, objects are packed in
// descending alignment order (priority breaks ties) so large-alignment
// objects come first and padding holes stay small. Placements are returned
// in input order regardless of packing order.
func (a *Accelerator) PackMemoryLayout(objects []compute.LayoutObject) ([]compute.Placement, error) {
	a.mu.Lock()
	ready := a.ready
	a.mu.Unlock()
	if !ready {
		return nil, compute.ErrNotInitialized
	}

	order := make([]int, len(objects))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := objects[order[i]], objects[order[j]]
		if a.Alignment != b.Alignment {
			return a.Alignment > b.Alignment
		}
		return a.Priority > b.Priority
	})

	placements := make([]compute.Placement, len(objects))
	var offset uint32
	for _, idx := range order {
		obj := objects[idx]
		offset = alignUp(offset, obj.Alignment)
		placements[idx] = compute.Placement{
			ID:      obj.ID,
			Offset:  offset,
			Address: compute.LayoutBaseAddress + offset,
		}
		offset += obj.Size
	}
	return placements, nil
}

// alignUp rounds offset up to the next multiple of align.
// Zero or one alignment means no constraint.
func alignUp(offset, align uint32) uint32 {
	if align <= 1 {
		return offset
	}
	rem := offset % align
	if rem == 0 {
		return offset
	}
	return offset + align - rem
}
