package pipeline

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-matcore/common"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/driver"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/program"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// DefaultEntryPoint is used for a stage whose source declares no entry point.
const DefaultEntryPoint = "main"

// ProgramResources exposes the compiled form of programs. driver.WGPUDriver implements it.
type ProgramResources interface {
	ShaderModule(h driver.ProgramHandle, stage program.ShaderStage) *wgpu.ShaderModule
	PipelineLayout(h driver.ProgramHandle) *wgpu.PipelineLayout
}

// CreateFunc creates a render pipeline from a descriptor.
type CreateFunc func(desc *wgpu.RenderPipelineDescriptor) (*wgpu.RenderPipeline, error)

// DeviceCreateFunc returns a CreateFunc that creates pipelines on device.
//
// Parameters:
//   - device: the WebGPU device
//
// Returns:
//   - CreateFunc: the creation function
func DeviceCreateFunc(device *wgpu.Device) CreateFunc {
	return device.CreateRenderPipeline
}

// Target describes the attachments pipelines render into.
type Target struct {
	ColorFormat wgpu.TextureFormat
	// DepthFormat is wgpu.TextureFormatUndefined when there is no depth attachment.
	DepthFormat wgpu.TextureFormat
	SampleCount uint32
}

// entryPoints are the entry point names of a program's vertex and fragment stages.
type entryPoints struct {
	vertex, fragment string
}

// cache is the implementation of the Cache interface.
type cache struct {
	mu sync.RWMutex

	resources ProgramResources
	create    CreateFunc

	pipelines map[Key]*pipeline
	entries   map[driver.ProgramHandle]entryPoints

	hits   atomic.Uint64
	misses atomic.Uint64

	label         string
	target        Target
	vertexBuffers []wgpu.VertexBufferLayout
	topology      wgpu.PrimitiveTopology
	frontFace     wgpu.FrontFace
	blendState    wgpu.BlendState
}

// Cache creates render pipelines on demand and shares them between material instances. It is safe for
// concurrent use.
type Cache interface {
	// Pipelines returns the pipelines of every pass of a material instance, in draw order, creating
	// the missing ones. The instance's material must have a compiled program with a vertex stage.
	//
	// Parameters:
	//   - mi: the material instance
	//
	// Returns:
	//   - []Pipeline: one pipeline per pass, empty when the instance culls every face
	//   - error: an error if the program is missing or pipeline creation failed
	Pipelines(mi material.MaterialInstance) ([]Pipeline, error)

	// Get returns the pipeline cached for key.
	//
	// Parameters:
	//   - key: the pipeline key
	//
	// Returns:
	//   - Pipeline: the pipeline
	//   - bool: false if no pipeline is cached for key
	Get(key Key) (Pipeline, bool)

	// Len returns the number of cached pipelines.
	Len() int

	// Stats returns the number of lookups served from the cache and the number of pipelines created.
	Stats() (hits, misses uint64)

	// Evict releases every pipeline created for a program. Call it before the program is destroyed.
	//
	// Parameters:
	//   - h: the program
	Evict(h driver.ProgramHandle)

	// Release releases every cached pipeline.
	Release()
}

var _ Cache = &cache{}

// NewCache creates an empty pipeline cache.
//
// Parameters:
//   - resources: the source of shader modules and pipeline layouts
//   - create: the pipeline creation function, usually DeviceCreateFunc
//   - options: functional options configuring the pipelines
//
// Returns:
//   - Cache: the new cache
func NewCache(resources ProgramResources, create CreateFunc, options ...CacheBuilderOption) Cache {
	c := &cache{
		resources: resources,
		create:    create,
		pipelines: make(map[Key]*pipeline),
		entries:   make(map[driver.ProgramHandle]entryPoints),
		label:     "material pipeline",
		target: Target{
			ColorFormat: wgpu.TextureFormatBGRA8Unorm,
			DepthFormat: wgpu.TextureFormatDepth24PlusStencil8,
			SampleCount: 1,
		},
		topology:  wgpu.PrimitiveTopologyTriangleList,
		frontFace: wgpu.FrontFaceCCW,
		blendState: wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		},
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *cache) Pipelines(mi material.MaterialInstance) ([]Pipeline, error) {
	m := mi.Material()
	h := m.Program()
	if !h.IsValid() {
		return nil, fmt.Errorf("material %q has no program", m.Name())
	}

	// the descriptor clones every shader source, so it is only built when a pass misses
	var desc *program.Program
	describe := func() *program.Program {
		if desc == nil {
			desc = m.ProgramDescriptor()
		}
		return desc
	}

	passes := Passes(mi.RasterState())
	result := make([]Pipeline, 0, len(passes))
	for _, pass := range passes {
		p, err := c.getOrCreate(Key{Program: h, Pass: pass}, describe)
		if err != nil {
			return nil, fmt.Errorf("material instance %q: %w", mi.Name(), err)
		}
		result = append(result, p)
	}
	return result, nil
}

// getOrCreate returns the cached pipeline for key or creates it, with double-checked locking.
func (c *cache) getOrCreate(key Key, describe func() *program.Program) (*pipeline, error) {
	c.mu.RLock()
	if p, ok := c.pipelines[key]; ok {
		c.mu.RUnlock()
		c.hits.Add(1)
		return p, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.pipelines[key]; ok {
		c.hits.Add(1)
		return p, nil
	}

	modules, err := c.modules(key.Program, describe())
	if err != nil {
		return nil, err
	}
	descriptor := c.descriptor(key, modules)
	created, err := c.create(descriptor)
	if err != nil {
		return nil, fmt.Errorf("failed to create render pipeline: %w", err)
	}

	p := &pipeline{key: key, renderPipeline: created, descriptor: descriptor}
	c.pipelines[key] = p
	c.misses.Add(1)
	common.Logger().Debug("render pipeline created", "program", key.Program,
		"culling", key.Pass.State.Culling, "blend", key.Pass.Blend, "pipelines", len(c.pipelines))
	return p, nil
}

// modules resolves the compiled stages of a program. Entry point names are read from the program's
// sources once per program.
func (c *cache) modules(h driver.ProgramHandle, desc *program.Program) (stageModules, error) {
	if desc == nil || !desc.HasStage(program.StageVertex) {
		return stageModules{}, fmt.Errorf("program %d has no vertex stage", h)
	}

	entries, ok := c.entries[h]
	if !ok {
		entries = entryPoints{
			vertex:   entryPoint(desc, program.StageVertex),
			fragment: entryPoint(desc, program.StageFragment),
		}
		c.entries[h] = entries
	}
	return stageModules{
		layout:        c.resources.PipelineLayout(h),
		vertex:        c.resources.ShaderModule(h, program.StageVertex),
		fragment:      c.resources.ShaderModule(h, program.StageFragment),
		hasFragment:   desc.HasStage(program.StageFragment),
		vertexEntry:   entries.vertex,
		fragmentEntry: entries.fragment,
	}, nil
}

// entryPoint reflects the entry point of one stage of a program.
func entryPoint(desc *program.Program, stage program.ShaderStage) string {
	if !desc.HasStage(stage) {
		return DefaultEntryPoint
	}
	if name := shader.Reflect(string(desc.ShaderSource(stage))).EntryPoints[stage]; name != "" {
		return name
	}
	return DefaultEntryPoint
}

func (c *cache) Get(key Key) (Pipeline, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.pipelines[key]
	if !ok {
		return nil, false
	}
	return p, true
}

func (c *cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pipelines)
}

func (c *cache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *cache) Evict(h driver.ProgramHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, p := range c.pipelines {
		if key.Program == h {
			p.release()
			delete(c.pipelines, key)
		}
	}
	delete(c.entries, h)
}

func (c *cache) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.pipelines {
		p.release()
	}
	clear(c.pipelines)
	clear(c.entries)
}
