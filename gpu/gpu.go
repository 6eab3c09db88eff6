//go:build !nogpu

// Package gpu registers the wgpu compute backend for GPU-accelerated
// numeric operations.
//
// Import this package to make the accelerated backend available to
// compute.Facade. If no Vulkan-capable GPU is present, the backend's Init
// fails at facade initialization time and the facade permanently falls
// back to the reference implementation.
//
// Usage:
//
//	import _ "github.com/gogpu/framepace/gpu" // enable GPU compute
//
// To share a GPU device with a host application instead of creating one,
// see compute.Facade.SetDeviceProvider.
package gpu

import (
	"github.com/gogpu/gpucontext"

	"github.com/gogpu/framepace/compute"
	gpuimpl "github.com/gogpu/framepace/internal/gpu"
)

func init() {
	compute.Register(compute.BackendAccelerated, func() compute.Backend {
		return gpuimpl.New()
	})
}

// DeviceHandle provides GPU device access from the host application.
//
// Hosts that already own a GPU device (e.g. a gogpu window) implement this
// and pass it to SetDeviceProvider so compute work runs on the shared
// device instead of a second instance.
//
// DeviceHandle is an alias for gpucontext.DeviceProvider, providing a
// framepace-specific name while staying compatible with the gpucontext
// ecosystem.
type DeviceHandle = gpucontext.DeviceProvider

// SetDeviceProvider switches the facade's accelerated backend to a shared
// GPU device from the host. The provider must also implement
// gpucontext.HalProvider for direct HAL access; providers without HAL
// access leave the backend on its own device and return an error.
func SetDeviceProvider(f *compute.Facade, provider DeviceHandle) error {
	return f.SetDeviceProvider(provider)
}
