// Package drivertest provides a Driver that records calls instead of reaching a GPU.
package drivertest

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-matcore/common"
	"github.com/Carmen-Shannon/oxy-matcore/engine/binding"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/driver"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/program"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/sampler"
)

// Call is one recorded driver call.
type Call struct {
	// Op is the driver method name, e.g. "UpdateBufferObject".
	Op string
	// Handle is the handle the call created or operated on.
	Handle uint32
	// BindingPoint is set for bind calls.
	BindingPoint int
	// Data is a copy of the uploaded bytes for UpdateBufferObject.
	Data []byte
	// Bindings is a copy of the sampler bindings for UpdateSamplerGroup.
	Bindings []sampler.Binding
}

// Recorder is a driver.Driver that keeps the resources it creates in memory and records every call.
// It is safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	next     uint32
	calls    []Call
	buffers  map[driver.BufferHandle][]byte
	groups   map[driver.SamplerGroupHandle][]sampler.Binding
	programs map[driver.ProgramHandle]program.Program
	textures map[driver.TextureHandle]common.TextureStagingData

	uniforms [binding.UniformBindingCount]driver.BufferHandle
	samplers [binding.SamplerBindingCount]driver.SamplerGroupHandle

	// FailCreate makes every Create call fail with this error when set.
	FailCreate error
}

var _ driver.Driver = &Recorder{}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		buffers:  make(map[driver.BufferHandle][]byte),
		groups:   make(map[driver.SamplerGroupHandle][]sampler.Binding),
		programs: make(map[driver.ProgramHandle]program.Program),
		textures: make(map[driver.TextureHandle]common.TextureStagingData),
	}
}

func (r *Recorder) record(c Call) {
	r.calls = append(r.calls, c)
}

func (r *Recorder) CreateBufferObject(size int, _ driver.BufferUsage) (driver.BufferHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailCreate != nil {
		return 0, r.FailCreate
	}
	r.next++
	h := driver.BufferHandle(r.next)
	r.buffers[h] = make([]byte, size)
	r.record(Call{Op: "CreateBufferObject", Handle: uint32(h)})
	return h, nil
}

func (r *Recorder) UpdateBufferObject(h driver.BufferHandle, data []byte, offset int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	buf, ok := r.buffers[h]
	if !ok {
		return fmt.Errorf("buffer %d: %w", h, driver.ErrInvalidHandle)
	}
	if offset < 0 || offset+len(data) > len(buf) {
		return fmt.Errorf("buffer %d: write of %d bytes at %d exceeds size %d", h, len(data), offset, len(buf))
	}
	copy(buf[offset:], data)
	r.record(Call{Op: "UpdateBufferObject", Handle: uint32(h), Data: common.Clone(data)})
	return nil
}

func (r *Recorder) DestroyBufferObject(h driver.BufferHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !h.IsValid() {
		return
	}
	delete(r.buffers, h)
	r.record(Call{Op: "DestroyBufferObject", Handle: uint32(h)})
}

func (r *Recorder) CreateSamplerGroup(size int) (driver.SamplerGroupHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailCreate != nil {
		return 0, r.FailCreate
	}
	r.next++
	h := driver.SamplerGroupHandle(r.next)
	r.groups[h] = make([]sampler.Binding, size)
	r.record(Call{Op: "CreateSamplerGroup", Handle: uint32(h)})
	return h, nil
}

func (r *Recorder) UpdateSamplerGroup(h driver.SamplerGroupHandle, bindings []sampler.Binding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.groups[h]; !ok {
		return fmt.Errorf("sampler group %d: %w", h, driver.ErrInvalidHandle)
	}
	r.groups[h] = common.Clone(bindings)
	r.record(Call{Op: "UpdateSamplerGroup", Handle: uint32(h), Bindings: common.Clone(bindings)})
	return nil
}

func (r *Recorder) DestroySamplerGroup(h driver.SamplerGroupHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !h.IsValid() {
		return
	}
	delete(r.groups, h)
	r.record(Call{Op: "DestroySamplerGroup", Handle: uint32(h)})
}

func (r *Recorder) CreateTexture(data common.TextureStagingData) (driver.TextureHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailCreate != nil {
		return 0, r.FailCreate
	}
	r.next++
	h := driver.TextureHandle(r.next)
	r.textures[h] = data
	r.record(Call{Op: "CreateTexture", Handle: uint32(h)})
	return h, nil
}

func (r *Recorder) DestroyTexture(h driver.TextureHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !h.IsValid() {
		return
	}
	delete(r.textures, h)
	r.record(Call{Op: "DestroyTexture", Handle: uint32(h)})
}

func (r *Recorder) BindUniformBuffer(bp binding.UniformBindingPoint, h driver.BufferHandle) {
	binding.CheckUniformBindingPoint("drivertest", int(bp), binding.UniformBindingCount)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uniforms[bp] = h
	r.record(Call{Op: "BindUniformBuffer", Handle: uint32(h), BindingPoint: int(bp)})
}

func (r *Recorder) BindSamplers(bp binding.SamplerBindingPoint, h driver.SamplerGroupHandle) {
	binding.CheckSamplerBindingPoint("drivertest", int(bp), binding.SamplerBindingCount)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samplers[bp] = h
	r.record(Call{Op: "BindSamplers", Handle: uint32(h), BindingPoint: int(bp)})
}

func (r *Recorder) CreateProgram(p program.Program) (driver.ProgramHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailCreate != nil {
		return 0, r.FailCreate
	}
	r.next++
	h := driver.ProgramHandle(r.next)
	r.programs[h] = p
	r.record(Call{Op: "CreateProgram", Handle: uint32(h)})
	return h, nil
}

func (r *Recorder) DestroyProgram(h driver.ProgramHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !h.IsValid() {
		return
	}
	delete(r.programs, h)
	r.record(Call{Op: "DestroyProgram", Handle: uint32(h)})
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return common.Clone(r.calls)
}

// Count returns how many calls of op were recorded.
func (r *Recorder) Count(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Reset forgets the recorded calls. Live resources are kept.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// BufferContents returns a copy of the contents of a live buffer.
func (r *Recorder) BufferContents(h driver.BufferHandle) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	buf, ok := r.buffers[h]
	return common.Clone(buf), ok
}

// SamplerBindings returns a copy of the bindings of a live sampler group.
func (r *Recorder) SamplerBindings(h driver.SamplerGroupHandle) ([]sampler.Binding, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.groups[h]
	return common.Clone(b), ok
}

// Program returns the descriptor a live program was created from.
func (r *Recorder) Program(h driver.ProgramHandle) (program.Program, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.programs[h]
	return p, ok
}

// BoundUniform returns the buffer last bound at a uniform binding point.
func (r *Recorder) BoundUniform(bp binding.UniformBindingPoint) driver.BufferHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.uniforms[bp]
}

// BoundSamplers returns the sampler group last bound at a sampler binding point.
func (r *Recorder) BoundSamplers(bp binding.SamplerBindingPoint) driver.SamplerGroupHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.samplers[bp]
}

// Live returns the number of live buffers, sampler groups, programs and textures.
func (r *Recorder) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buffers) + len(r.groups) + len(r.programs) + len(r.textures)
}
