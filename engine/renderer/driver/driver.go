// Package driver is the handle-based interface the material pipeline uses to reach the GPU.
//
// Components above this package never touch GPU objects: they create, update, bind and destroy
// resources through opaque handles and numbered binding points. NewWGPUDriver provides the WebGPU
// implementation; the drivertest package provides a recording implementation for tests.
package driver

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-matcore/common"
	"github.com/Carmen-Shannon/oxy-matcore/engine/binding"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/program"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/sampler"
)

// ErrInvalidHandle is returned when a handle does not refer to a live resource.
var ErrInvalidHandle = errors.New("invalid handle")

// BufferHandle identifies a buffer object. The zero value is the null handle.
type BufferHandle uint32

// SamplerGroupHandle identifies a sampler group. The zero value is the null handle.
type SamplerGroupHandle uint32

// ProgramHandle identifies a compiled program. The zero value is the null handle.
type ProgramHandle uint32

// TextureHandle identifies a texture. The zero value is the null handle.
type TextureHandle = sampler.TextureHandle

// IsValid reports whether the handle is not the null handle.
func (h BufferHandle) IsValid() bool { return h != 0 }

// IsValid reports whether the handle is not the null handle.
func (h SamplerGroupHandle) IsValid() bool { return h != 0 }

// IsValid reports whether the handle is not the null handle.
func (h ProgramHandle) IsValid() bool { return h != 0 }

// BufferUsage hints how often a buffer object is updated.
type BufferUsage uint8

const (
	// BufferUsageStatic is updated rarely.
	BufferUsageStatic BufferUsage = iota
	// BufferUsageDynamic is updated about once per frame.
	BufferUsageDynamic
)

// Driver is the GPU abstraction consumed by the material pipeline. Calls are synchronous from the
// caller's perspective; an implementation may queue the work internally.
type Driver interface {
	// CreateBufferObject creates a uniform buffer object of size bytes.
	//
	// Parameters:
	//   - size: the buffer size in bytes
	//   - usage: the update frequency hint
	//
	// Returns:
	//   - BufferHandle: the new buffer
	//   - error: an error if the buffer could not be created
	CreateBufferObject(size int, usage BufferUsage) (BufferHandle, error)

	// UpdateBufferObject copies data into the buffer at byte offset.
	//
	// Parameters:
	//   - h: the buffer
	//   - data: the bytes to upload
	//   - offset: the destination byte offset
	//
	// Returns:
	//   - error: ErrInvalidHandle if h is not a live buffer
	UpdateBufferObject(h BufferHandle, data []byte, offset int) error

	// DestroyBufferObject releases the buffer. Destroying the null handle is a no-op.
	DestroyBufferObject(h BufferHandle)

	// CreateSamplerGroup creates a sampler group with room for size samplers.
	//
	// Parameters:
	//   - size: the number of samplers
	//
	// Returns:
	//   - SamplerGroupHandle: the new group
	//   - error: an error if the group could not be created
	CreateSamplerGroup(size int) (SamplerGroupHandle, error)

	// UpdateSamplerGroup replaces the texture bindings of the group.
	//
	// Parameters:
	//   - h: the group
	//   - bindings: one binding per sampler, in binding order
	//
	// Returns:
	//   - error: ErrInvalidHandle if h is not a live group
	UpdateSamplerGroup(h SamplerGroupHandle, bindings []sampler.Binding) error

	// DestroySamplerGroup releases the group. Destroying the null handle is a no-op.
	DestroySamplerGroup(h SamplerGroupHandle)

	// CreateTexture uploads RGBA8 pixel data into a new 2D texture.
	//
	// Parameters:
	//   - data: the pixels and their dimensions
	//
	// Returns:
	//   - TextureHandle: the new texture
	//   - error: an error if the texture could not be created
	CreateTexture(data common.TextureStagingData) (TextureHandle, error)

	// DestroyTexture releases the texture. Destroying the null handle is a no-op.
	DestroyTexture(h TextureHandle)

	// BindUniformBuffer attaches the buffer to a uniform binding point for the following draws.
	BindUniformBuffer(bindingPoint binding.UniformBindingPoint, h BufferHandle)

	// BindSamplers attaches the sampler group to a sampler binding point for the following draws.
	BindSamplers(bindingPoint binding.SamplerBindingPoint, h SamplerGroupHandle)

	// CreateProgram compiles the program descriptor. The descriptor is taken by value.
	//
	// Parameters:
	//   - p: the program descriptor
	//
	// Returns:
	//   - ProgramHandle: the compiled program
	//   - error: an error if compilation failed
	CreateProgram(p program.Program) (ProgramHandle, error)

	// DestroyProgram releases the program. Destroying the null handle is a no-op.
	DestroyProgram(h ProgramHandle)
}
