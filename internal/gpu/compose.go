//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framepace"
	"github.com/gogpu/framepace/compute"
)

const (
	// Floats per transform in the shader's input layout (padded).
	transformStride = 12
	// Floats per output matrix.
	matrixStride = 16

	// Batches below this size are cheaper on the CPU than a dispatch
	// round-trip, so they are declined to the reference backend.
	minGPUBatch = 64

	gpuWaitTimeout = 5 * time.Second
)

// BatchComposeTransforms dispatches the TRS composition shader over all
// transforms in a single compute pass and reads the matrices back.
// Small batches return ErrFallbackToReference instead of dispatching.
func (a *Accelerator) BatchComposeTransforms(transforms []framepace.Transform) ([]float32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.ready {
		return nil, compute.ErrNotInitialized
	}
	if len(transforms) < minGPUBatch {
		return nil, compute.ErrFallbackToReference
	}

	inputBytes := packTransforms(transforms)
	outputSize := uint64(len(transforms) * matrixStride * 4)

	inputBuf, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "trs_input", Size: uint64(len(inputBytes)),
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create input buffer: %w", err)
	}
	defer a.device.DestroyBuffer(inputBuf)

	outputBuf, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "trs_output", Size: outputSize,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create output buffer: %w", err)
	}
	defer a.device.DestroyBuffer(outputBuf)

	stagingBuf, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "trs_staging", Size: outputSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create staging buffer: %w", err)
	}
	defer a.device.DestroyBuffer(stagingBuf)

	paramsBytes := makeParams(uint32(len(transforms)))
	paramsBuf, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "trs_params", Size: uint64(len(paramsBytes)),
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create params buffer: %w", err)
	}
	defer a.device.DestroyBuffer(paramsBuf)

	a.queue.WriteBuffer(paramsBuf, 0, paramsBytes)
	a.queue.WriteBuffer(inputBuf, 0, inputBytes)

	bindGroup, err := a.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: "trs_bind", Layout: a.composeBindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: paramsBuf.NativeHandle(), Offset: 0, Size: uint64(len(paramsBytes))}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: inputBuf.NativeHandle(), Offset: 0, Size: uint64(len(inputBytes))}},
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: outputBuf.NativeHandle(), Offset: 0, Size: outputSize}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create bind group: %w", err)
	}
	defer a.device.DestroyBindGroup(bindGroup)

	if err := a.encodeCompose(bindGroup, outputBuf, stagingBuf, outputSize, len(transforms)); err != nil {
		return nil, err
	}

	readback := make([]byte, outputSize)
	if err := a.queue.ReadBuffer(stagingBuf, 0, readback); err != nil {
		return nil, fmt.Errorf("gpu: readback: %w", err)
	}
	return unpackMatrices(readback, len(transforms)), nil
}

// encodeCompose records the compute pass and the staging copy, submits,
// and waits for the fence.
func (a *Accelerator) encodeCompose(bindGroup hal.BindGroup, outputBuf, stagingBuf hal.Buffer, outputSize uint64, count int) error {
	encoder, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "trs_encoder"})
	if err != nil {
		return fmt.Errorf("gpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("trs_compose"); err != nil {
		return fmt.Errorf("gpu: begin encoding: %w", err)
	}

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "trs_pass"})
	pass.SetPipeline(a.composePipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.Dispatch(uint32((count+63)/64), 1, 1)
	pass.End()

	encoder.CopyBufferToBuffer(outputBuf, stagingBuf, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: outputSize},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("gpu: end encoding: %w", err)
	}
	defer a.device.FreeCommandBuffer(cmdBuf)

	fence, err := a.device.CreateFence()
	if err != nil {
		return fmt.Errorf("gpu: create fence: %w", err)
	}
	defer a.device.DestroyFence(fence)

	if err := a.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("gpu: submit: %w", err)
	}
	fenceOK, err := a.device.Wait(fence, 1, gpuWaitTimeout)
	if err != nil {
		return fmt.Errorf("gpu: wait for fence: %w", err)
	}
	if !fenceOK {
		return fmt.Errorf("gpu: fence wait timed out after %v", gpuWaitTimeout)
	}
	return nil
}

// packTransforms serializes transforms into the shader's padded layout.
func packTransforms(transforms []framepace.Transform) []byte {
	out := make([]byte, len(transforms)*transformStride*4)
	for i, t := range transforms {
		base := i * transformStride * 4
		putF32 := func(slot int, v float32) {
			binary.LittleEndian.PutUint32(out[base+slot*4:], math.Float32bits(v))
		}
		putF32(0, t.Position.X)
		putF32(1, t.Position.Y)
		putF32(2, t.Position.Z)
		putF32(4, t.Rotation.X)
		putF32(5, t.Rotation.Y)
		putF32(6, t.Rotation.Z)
		putF32(7, t.Rotation.W)
		putF32(8, t.Scale.X)
		putF32(9, t.Scale.Y)
		putF32(10, t.Scale.Z)
	}
	return out
}

// makeParams returns the 16-byte uniform block for the compose dispatch.
func makeParams(count uint32) []byte {
	out := make([]byte, 16)
	binary.LittleEndian.PutUint32(out, count)
	return out
}

// unpackMatrices converts the readback bytes into a flat float32 slice.
func unpackMatrices(readback []byte, count int) []float32 {
	out := make([]float32, count*matrixStride)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(readback[i*4:]))
	}
	return out
}
