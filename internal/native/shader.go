// Package native holds shared helpers for talking to the wgpu HAL.
package native

import (
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// CompileWGSL compiles WGSL source to a SPIR-V word slice suitable for
// hal.ShaderSource.
func CompileWGSL(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("compile WGSL: %w", err)
	}

	// SPIR-V is a stream of little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

// NewShaderModule compiles WGSL and creates a HAL shader module from the
// resulting SPIR-V.
func NewShaderModule(device hal.Device, label, source string) (hal.ShaderModule, error) {
	words, err := CompileWGSL(source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	return device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: words},
	})
}
