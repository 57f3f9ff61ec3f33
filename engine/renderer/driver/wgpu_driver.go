package driver

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-matcore/common"
	"github.com/Carmen-Shannon/oxy-matcore/engine/binding"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/program"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/sampler"
	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuDriver is the implementation of the WGPUDriver interface.
type wgpuDriver struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue
	label  string

	next          uint32
	buffers       map[BufferHandle]*wgpuBuffer
	samplerGroups map[SamplerGroupHandle]*wgpuSamplerGroup
	textures      map[TextureHandle]*wgpuTexture
	programs      map[ProgramHandle]*wgpuProgram
	samplers      map[sampler.Params]*wgpu.Sampler

	boundUniforms [binding.UniformBindingCount]BufferHandle
	boundSamplers [binding.SamplerBindingCount]SamplerGroupHandle

	// transient holds the bind groups created by Apply since the last ReleaseTransient.
	transient []*wgpu.BindGroup
}

// WGPUDriver is a Driver backed by a WebGPU device. Binding calls record which buffer and sampler
// group sit at each binding point; Apply turns the recorded bindings into bind groups laid out for a
// program and sets them on a render pass.
//
// Uniform binding point N maps to binding N of bind group UniformGroup. Sampler binding point M maps
// to bind group SamplerGroupIndex(M), where sampler i uses the bindings returned by SamplerBindings(i).
//
// All methods are safe for concurrent use.
type WGPUDriver interface {
	Driver

	// Device returns the underlying device.
	//
	// Returns:
	//   - *wgpu.Device: the device
	Device() *wgpu.Device

	// Queue returns the queue used for uploads.
	//
	// Returns:
	//   - *wgpu.Queue: the queue
	Queue() *wgpu.Queue

	// RegisterTextureView makes an existing texture view available to sampler groups.
	// The driver does not take ownership of the view.
	//
	// Parameters:
	//   - view: the texture view
	//
	// Returns:
	//   - TextureHandle: the handle used in sampler bindings
	RegisterTextureView(view *wgpu.TextureView) TextureHandle

	// ShaderModule returns the module compiled for one stage of a program.
	//
	// Parameters:
	//   - h: the program
	//   - stage: the shader stage
	//
	// Returns:
	//   - *wgpu.ShaderModule: the module, or nil if the program has no such stage
	ShaderModule(h ProgramHandle, stage program.ShaderStage) *wgpu.ShaderModule

	// PipelineLayout returns the pipeline layout derived from a program's bindings.
	//
	// Parameters:
	//   - h: the program
	//
	// Returns:
	//   - *wgpu.PipelineLayout: the layout, or nil if h is not a live program
	PipelineLayout(h ProgramHandle) *wgpu.PipelineLayout

	// Apply creates bind groups for the program from the currently bound buffers and sampler groups
	// and sets them on the pass. The bind groups stay alive until ReleaseTransient.
	//
	// Parameters:
	//   - pass: the render pass being recorded
	//   - h: the program the next draw uses
	//
	// Returns:
	//   - error: an error if a binding the program declares is missing
	Apply(pass *wgpu.RenderPassEncoder, h ProgramHandle) error

	// ReleaseTransient releases the bind groups created by Apply. Call it once the command buffers
	// recorded with them have been submitted.
	ReleaseTransient()

	// Release releases every resource owned by the driver.
	Release()
}

var _ WGPUDriver = &wgpuDriver{}

// NewWGPUDriver creates a driver on an existing device and queue.
//
// Parameters:
//   - device: the device resources are created on
//   - queue: the queue uploads are written to
//   - options: functional options for the driver
//
// Returns:
//   - WGPUDriver: the new driver
func NewWGPUDriver(device *wgpu.Device, queue *wgpu.Queue, options ...WGPUDriverBuilderOption) WGPUDriver {
	d := &wgpuDriver{
		mu:            &sync.Mutex{},
		device:        device,
		queue:         queue,
		label:         "oxy",
		buffers:       make(map[BufferHandle]*wgpuBuffer),
		samplerGroups: make(map[SamplerGroupHandle]*wgpuSamplerGroup),
		textures:      make(map[TextureHandle]*wgpuTexture),
		programs:      make(map[ProgramHandle]*wgpuProgram),
		samplers:      make(map[sampler.Params]*wgpu.Sampler),
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

func (d *wgpuDriver) Device() *wgpu.Device {
	return d.device
}

func (d *wgpuDriver) Queue() *wgpu.Queue {
	return d.queue
}

// nextHandle returns a fresh non-zero handle value. Callers hold d.mu.
func (d *wgpuDriver) nextHandle() uint32 {
	d.next++
	return d.next
}

func (d *wgpuDriver) CreateBufferObject(size int, usage BufferUsage) (BufferHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: d.label + " Uniform Buffer",
		Size:  uint64(common.RoundUpAlign(16, uint32(size))),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create uniform buffer: %w", err)
	}
	h := BufferHandle(d.nextHandle())
	d.buffers[h] = &wgpuBuffer{buffer: buf, size: uint64(size)}
	common.Logger().Debug("buffer created", "handle", h, "size", size, "dynamic", usage == BufferUsageDynamic)
	return h, nil
}

func (d *wgpuDriver) UpdateBufferObject(h BufferHandle, data []byte, offset int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.buffers[h]
	if !ok {
		return fmt.Errorf("buffer %d: %w", h, ErrInvalidHandle)
	}
	if offset < 0 || uint64(offset+len(data)) > b.size {
		return fmt.Errorf("buffer %d: write of %d bytes at %d exceeds size %d", h, len(data), offset, b.size)
	}
	d.queue.WriteBuffer(b.buffer, uint64(offset), data)
	return nil
}

func (d *wgpuDriver) DestroyBufferObject(h BufferHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if b, ok := d.buffers[h]; ok {
		b.buffer.Release()
		delete(d.buffers, h)
	}
}

func (d *wgpuDriver) CreateSamplerGroup(size int) (SamplerGroupHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	h := SamplerGroupHandle(d.nextHandle())
	d.samplerGroups[h] = &wgpuSamplerGroup{bindings: make([]sampler.Binding, size)}
	return h, nil
}

func (d *wgpuDriver) UpdateSamplerGroup(h SamplerGroupHandle, bindings []sampler.Binding) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	g, ok := d.samplerGroups[h]
	if !ok {
		return fmt.Errorf("sampler group %d: %w", h, ErrInvalidHandle)
	}
	g.bindings = common.Clone(bindings)
	for _, b := range bindings {
		if b.Texture.IsValid() {
			if _, err := d.sampler(b.Params); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *wgpuDriver) DestroySamplerGroup(h SamplerGroupHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.samplerGroups, h)
}

// sampler returns the cached sampler for p, creating it on first use. Callers hold d.mu.
func (d *wgpuDriver) sampler(p sampler.Params) (*wgpu.Sampler, error) {
	if s, ok := d.samplers[p]; ok {
		return s, nil
	}
	s, err := d.device.CreateSampler(samplerDescriptor(d.label+" Sampler", p))
	if err != nil {
		return nil, fmt.Errorf("failed to create sampler: %w", err)
	}
	d.samplers[p] = s
	return s, nil
}

func (d *wgpuDriver) CreateTexture(data common.TextureStagingData) (TextureHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     d.label + " Texture",
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              data.Width,
			Height:             data.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create texture: %w", err)
	}

	d.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		data.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  data.Width * 4,
			RowsPerImage: data.Height,
		},
		&wgpu.Extent3D{
			Width:              data.Width,
			Height:             data.Height,
			DepthOrArrayLayers: 1,
		},
	)

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return 0, fmt.Errorf("failed to create texture view: %w", err)
	}
	h := TextureHandle(d.nextHandle())
	d.textures[h] = &wgpuTexture{texture: tex, view: view}
	return h, nil
}

func (d *wgpuDriver) RegisterTextureView(view *wgpu.TextureView) TextureHandle {
	d.mu.Lock()
	defer d.mu.Unlock()

	h := TextureHandle(d.nextHandle())
	d.textures[h] = &wgpuTexture{view: view}
	return h
}

func (d *wgpuDriver) DestroyTexture(h TextureHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.textures[h]
	if !ok {
		return
	}
	if t.texture != nil {
		t.view.Release()
		t.texture.Release()
	}
	delete(d.textures, h)
}

func (d *wgpuDriver) BindUniformBuffer(bindingPoint binding.UniformBindingPoint, h BufferHandle) {
	binding.CheckUniformBindingPoint("driver", int(bindingPoint), binding.UniformBindingCount)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.boundUniforms[bindingPoint] = h
}

func (d *wgpuDriver) BindSamplers(bindingPoint binding.SamplerBindingPoint, h SamplerGroupHandle) {
	binding.CheckSamplerBindingPoint("driver", int(bindingPoint), binding.SamplerBindingCount)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.boundSamplers[bindingPoint] = h
}

func (d *wgpuDriver) CreateProgram(p program.Program) (ProgramHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	compiled := &wgpuProgram{descriptor: p}
	for stage := program.ShaderStage(0); stage < program.ShaderStageCount; stage++ {
		src := p.ShaderSource(stage)
		if len(src) == 0 {
			continue
		}
		module, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
			Label: p.Name() + " " + stage.String(),
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
				Code: string(src),
			},
		})
		if err != nil {
			compiled.release()
			return 0, fmt.Errorf("failed to create %s shader module for %s: %w", stage, p.String(), err)
		}
		compiled.modules[stage] = module
	}

	descs := layoutDescriptors(&p)
	compiled.layouts = make([]*wgpu.BindGroupLayout, len(descs))
	for g := range descs {
		layout, err := d.device.CreateBindGroupLayout(&descs[g])
		if err != nil {
			compiled.release()
			return 0, fmt.Errorf("failed to create bind group layout for group %d: %w", g, err)
		}
		compiled.layouts[g] = layout
	}

	pipelineLayout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.Name() + " Pipeline Layout",
		BindGroupLayouts: compiled.layouts,
	})
	if err != nil {
		compiled.release()
		return 0, fmt.Errorf("failed to create pipeline layout for %s: %w", p.String(), err)
	}
	compiled.pipelineLayout = pipelineLayout

	h := ProgramHandle(d.nextHandle())
	d.programs[h] = compiled
	common.Logger().Debug("program created", "handle", h, "program", p.String(), "groups", len(descs))
	return h, nil
}

func (d *wgpuDriver) DestroyProgram(h ProgramHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.programs[h]; ok {
		p.release()
		delete(d.programs, h)
	}
}

func (d *wgpuDriver) ShaderModule(h ProgramHandle, stage program.ShaderStage) *wgpu.ShaderModule {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.programs[h]
	if !ok || stage >= program.ShaderStageCount {
		return nil
	}
	return p.modules[stage]
}

func (d *wgpuDriver) PipelineLayout(h ProgramHandle) *wgpu.PipelineLayout {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.programs[h]; ok {
		return p.pipelineLayout
	}
	return nil
}

func (d *wgpuDriver) Apply(pass *wgpu.RenderPassEncoder, h ProgramHandle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.programs[h]
	if !ok {
		return fmt.Errorf("program %d: %w", h, ErrInvalidHandle)
	}

	for g, layout := range p.layouts {
		entries, err := d.bindGroupEntries(&p.descriptor, uint32(g))
		if err != nil {
			return err
		}
		bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:   fmt.Sprintf("%s Group %d", p.descriptor.Name(), g),
			Layout:  layout,
			Entries: entries,
		})
		if err != nil {
			return fmt.Errorf("failed to create bind group %d: %w", g, err)
		}
		d.transient = append(d.transient, bg)
		pass.SetBindGroup(uint32(g), bg, nil)
	}
	return nil
}

// bindGroupEntries resolves the recorded bindings of one bind group of a program. Callers hold d.mu.
func (d *wgpuDriver) bindGroupEntries(p *program.Program, group uint32) ([]wgpu.BindGroupEntry, error) {
	var entries []wgpu.BindGroupEntry
	if group == UniformGroup {
		for bp, name := range p.UniformBlocks() {
			if name == "" {
				continue
			}
			b, ok := d.buffers[d.boundUniforms[bp]]
			if !ok {
				return nil, fmt.Errorf("uniform block %q at %v has no buffer bound", name, binding.UniformBindingPoint(bp))
			}
			entries = append(entries, wgpu.BindGroupEntry{
				Binding: uint32(bp),
				Buffer:  b.buffer,
				Offset:  0,
				Size:    wgpu.WholeSize,
			})
		}
		return entries, nil
	}

	bp := uint8(group - 1)
	sg := p.SamplerGroup(bp)
	if sg.IsEmpty() {
		return nil, nil
	}
	bound, ok := d.samplerGroups[d.boundSamplers[bp]]
	if !ok {
		return nil, fmt.Errorf("sampler group at %v has no group bound", binding.SamplerBindingPoint(bp))
	}
	for _, s := range sg.Samplers {
		if int(s.Binding) >= len(bound.bindings) {
			return nil, fmt.Errorf("sampler %q: index %d outside bound group of %d", s.Name, s.Binding, len(bound.bindings))
		}
		b := bound.bindings[s.Binding]
		tex, ok := d.textures[b.Texture]
		if !ok {
			return nil, fmt.Errorf("sampler %q has no texture", s.Name)
		}
		samp, err := d.sampler(b.Params)
		if err != nil {
			return nil, err
		}
		texBinding, sampBinding := SamplerBindings(s.Binding)
		entries = append(entries,
			wgpu.BindGroupEntry{Binding: texBinding, TextureView: tex.view},
			wgpu.BindGroupEntry{Binding: sampBinding, Sampler: samp},
		)
	}
	return entries, nil
}

func (d *wgpuDriver) ReleaseTransient() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, bg := range d.transient {
		bg.Release()
	}
	d.transient = d.transient[:0]
}

func (d *wgpuDriver) Release() {
	d.ReleaseTransient()

	d.mu.Lock()
	defer d.mu.Unlock()

	for h, b := range d.buffers {
		b.buffer.Release()
		delete(d.buffers, h)
	}
	for h, p := range d.programs {
		p.release()
		delete(d.programs, h)
	}
	for h, t := range d.textures {
		if t.texture != nil {
			t.view.Release()
			t.texture.Release()
		}
		delete(d.textures, h)
	}
	for params, s := range d.samplers {
		s.Release()
		delete(d.samplers, params)
	}
	clear(d.samplerGroups)
}

// release frees the GPU objects of a program that were created so far.
func (p *wgpuProgram) release() {
	if p.pipelineLayout != nil {
		p.pipelineLayout.Release()
	}
	for _, l := range p.layouts {
		if l != nil {
			l.Release()
		}
	}
	for _, m := range p.modules {
		if m != nil {
			m.Release()
		}
	}
}
