//go:build !nogpu

package gpu

import (
	"github.com/gogpu/framepace/compute"
)

// InterpolatePaths delegates to the canonical reference shape. The 3-point
// arc approximation has no "more correct" accelerated equivalent, and
// keeping both backends byte-identical here keeps callers' golden tests
// stable regardless of which backend served them.
func (a *Accelerator) InterpolatePaths(segments []compute.PathSegment) ([]compute.Polyline, error) {
	a.mu.Lock()
	ready := a.ready
	a.mu.Unlock()
	if !ready {
		return nil, compute.ErrNotInitialized
	}
	return compute.InterpolateSegments(segments), nil
}
