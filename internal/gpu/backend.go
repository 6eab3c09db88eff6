//go:build !nogpu

package gpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/framepace"
	"github.com/gogpu/framepace/compute"
	"github.com/gogpu/framepace/internal/native"
)

// Accelerator is the GPU compute backend. It implements compute.Backend.
type Accelerator struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	// Transform composition pipeline.
	composeShader     hal.ShaderModule
	composeBindLayout hal.BindGroupLayout
	composePipeLayout hal.PipelineLayout
	composePipeline   hal.ComputePipeline

	ready          bool
	externalDevice bool // true when using a shared device (don't destroy on Close)
}

var _ compute.Backend = (*Accelerator)(nil)
var _ compute.DeviceProviderAware = (*Accelerator)(nil)

// New creates an uninitialized accelerator. Init must be called before use.
func New() *Accelerator {
	return &Accelerator{}
}

// Name returns the backend identifier.
func (a *Accelerator) Name() string { return compute.BackendAccelerated }

// Init brings up the GPU device and compute pipelines. An error means no
// usable GPU; the caller falls back to the reference backend.
func (a *Accelerator) Init() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("gpu: vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("gpu: create instance: %w", err)
	}
	a.instance = instance

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		a.instance.Destroy()
		a.instance = nil
		return fmt.Errorf("gpu: no adapters found")
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		a.instance.Destroy()
		a.instance = nil
		return fmt.Errorf("gpu: open device: %w", err)
	}
	a.device = openDev.Device
	a.queue = openDev.Queue

	if err := a.createPipelines(); err != nil {
		a.device.Destroy()
		a.device = nil
		a.queue = nil
		a.instance.Destroy()
		a.instance = nil
		return fmt.Errorf("gpu: create pipelines: %w", err)
	}
	a.ready = true
	framepace.Logger().Info("gpu compute backend initialized", "adapter", selected.Info.Name)
	return nil
}

// Close releases GPU resources. Shared devices are not destroyed.
func (a *Accelerator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.destroyPipelines()
	if !a.externalDevice {
		if a.device != nil {
			a.device.Destroy()
		}
		if a.instance != nil {
			a.instance.Destroy()
		}
	}
	a.instance = nil
	a.device = nil
	a.queue = nil
	a.ready = false
	a.externalDevice = false
}

// SetDeviceProvider switches the accelerator to a shared GPU device from
// an external provider (e.g. a gogpu window). The provider must implement
// HalDevice() any and HalQueue() any returning hal.Device and hal.Queue.
func (a *Accelerator) SetDeviceProvider(provider any) error {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return fmt.Errorf("gpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return fmt.Errorf("gpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return fmt.Errorf("gpu: provider HalQueue is not hal.Queue")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.destroyPipelines()
	if !a.externalDevice && a.device != nil {
		a.device.Destroy()
	}
	if a.instance != nil {
		a.instance.Destroy()
		a.instance = nil
	}

	a.device = device
	a.queue = queue
	a.externalDevice = true

	if err := a.createPipelines(); err != nil {
		a.ready = false
		return fmt.Errorf("gpu: create pipelines with shared device: %w", err)
	}
	a.ready = true
	framepace.Logger().Info("gpu compute backend switched to shared device")
	return nil
}

func (a *Accelerator) createPipelines() error {
	shader, err := native.NewShaderModule(a.device, "trs_compose", trsComposeShaderSource)
	if err != nil {
		return fmt.Errorf("compile trs_compose shader: %w", err)
	}
	a.composeShader = shader

	bindLayout, err := a.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "trs_compose_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	a.composeBindLayout = bindLayout

	pipeLayout, err := a.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "trs_compose_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{a.composeBindLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	a.composePipeLayout = pipeLayout

	pipeline, err := a.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: "trs_compose_pipeline", Layout: a.composePipeLayout,
		Compute: hal.ComputeState{Module: a.composeShader, EntryPoint: "main"},
	})
	if err != nil {
		return fmt.Errorf("create compute pipeline: %w", err)
	}
	a.composePipeline = pipeline

	return nil
}

func (a *Accelerator) destroyPipelines() {
	if a.device == nil {
		return
	}
	if a.composePipeline != nil {
		a.device.DestroyComputePipeline(a.composePipeline)
		a.composePipeline = nil
	}
	if a.composePipeLayout != nil {
		a.device.DestroyPipelineLayout(a.composePipeLayout)
		a.composePipeLayout = nil
	}
	if a.composeBindLayout != nil {
		a.device.DestroyBindGroupLayout(a.composeBindLayout)
		a.composeBindLayout = nil
	}
	if a.composeShader != nil {
		a.device.DestroyShaderModule(a.composeShader)
		a.composeShader = nil
	}
}
