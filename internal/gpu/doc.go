//go:build !nogpu

// Package gpu implements the accelerated compute backend on wgpu/hal.
//
// Batched transform composition runs as a compute shader; memory-layout
// packing and geometry optimization run on the CPU with better algorithms
// than the reference backend (alignment-aware reordering, vertex welding);
// path interpolation delegates to the canonical reference shape.
//
// The backend is registered by blank-importing the public
// github.com/gogpu/framepace/gpu package. If no Vulkan-capable adapter is
// available, Init fails and the Facade pins the reference backend.
package gpu
