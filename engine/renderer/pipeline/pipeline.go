// Package pipeline turns the render state of material instances into WebGPU render pipelines.
//
// A material instance may need more than one pipeline: its transparency mode splits a draw into passes,
// and every pass with a distinct state gets its own pipeline. Pipelines are created on demand by a Cache
// and shared between every instance that resolves to the same program and pass state.
package pipeline

import (
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/driver"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/raster"
	"github.com/cogentcore/webgpu/wgpu"
)

// Pass is one draw of a material instance.
type Pass struct {
	// State is the fixed-function state of the pass. Its scissor, stencil reference values and
	// transparency mode are cleared: the scissor and reference are set on the render pass and the
	// transparency mode has been resolved into passes.
	State raster.State

	// Blend is true when the pass blends into the colour target.
	Blend bool
}

// Passes splits a render state into the passes its transparency mode draws, in draw order:
//   - TransparencyDefault draws once with the state as is.
//   - TransparencyTwoPassesOneSide draws depth only, then blended colour without depth writes.
//   - TransparencyTwoPassesTwoSides draws blended back faces, then blended front faces.
//
// WebGPU cannot cull both faces, so a state culling front and back has no passes.
//
// Parameters:
//   - state: the render state of a material instance
//
// Returns:
//   - []Pass: the passes to draw
func Passes(state raster.State) []Pass {
	if state.Culling == raster.CullFrontAndBack {
		return nil
	}

	base := state
	base.Scissor = raster.Viewport{}
	base.Stencil.Front.Reference = 0
	base.Stencil.Back.Reference = 0
	base.Transparency = raster.TransparencyDefault

	switch state.Transparency {
	case raster.TransparencyTwoPassesOneSide:
		depth := base
		depth.ColorWrite = false
		depth.DepthWrite = true
		color := base
		color.DepthWrite = false
		return []Pass{{State: depth}, {State: color, Blend: true}}
	case raster.TransparencyTwoPassesTwoSides:
		back := base
		back.Culling = raster.CullFront
		front := base
		front.Culling = raster.CullBack
		return []Pass{{State: back, Blend: true}, {State: front, Blend: true}}
	default:
		return []Pass{{State: base}}
	}
}

// Key identifies a render pipeline. Keys are comparable and are used as cache keys.
type Key struct {
	Program driver.ProgramHandle
	Pass    Pass
}

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	key            Key
	renderPipeline *wgpu.RenderPipeline
	descriptor     *wgpu.RenderPipelineDescriptor
}

// Pipeline is a render pipeline created for one Key.
type Pipeline interface {
	// Key returns the program and pass the pipeline was created for.
	//
	// Returns:
	//   - Key: the pipeline key
	Key() Key

	// RenderPipeline returns the underlying WebGPU pipeline.
	//
	// Returns:
	//   - *wgpu.RenderPipeline: the pipeline, nil when the cache was built without a device
	RenderPipeline() *wgpu.RenderPipeline

	// CullMode returns the WebGPU cull mode of the pipeline.
	//
	// Returns:
	//   - wgpu.CullMode: the cull mode
	CullMode() wgpu.CullMode

	// WriteMask returns the colour write mask of the pipeline.
	//
	// Returns:
	//   - wgpu.ColorWriteMask: the write mask, 0 for depth-only passes
	WriteMask() wgpu.ColorWriteMask

	// BlendState returns the blend state of the colour target.
	//
	// Returns:
	//   - *wgpu.BlendState: the blend state, or nil if blending is not enabled
	BlendState() *wgpu.BlendState

	// DepthStencil returns the depth-stencil state of the pipeline.
	//
	// Returns:
	//   - *wgpu.DepthStencilState: the state, or nil when the target has no depth attachment
	DepthStencil() *wgpu.DepthStencilState

	// Descriptor returns the descriptor the pipeline was created from.
	Descriptor() *wgpu.RenderPipelineDescriptor
}

var _ Pipeline = &pipeline{}

func (p *pipeline) Key() Key {
	return p.key
}

func (p *pipeline) RenderPipeline() *wgpu.RenderPipeline {
	return p.renderPipeline
}

func (p *pipeline) CullMode() wgpu.CullMode {
	return p.descriptor.Primitive.CullMode
}

func (p *pipeline) WriteMask() wgpu.ColorWriteMask {
	if p.descriptor.Fragment == nil || len(p.descriptor.Fragment.Targets) == 0 {
		return 0
	}
	return p.descriptor.Fragment.Targets[0].WriteMask
}

func (p *pipeline) BlendState() *wgpu.BlendState {
	if p.descriptor.Fragment == nil || len(p.descriptor.Fragment.Targets) == 0 {
		return nil
	}
	return p.descriptor.Fragment.Targets[0].Blend
}

func (p *pipeline) DepthStencil() *wgpu.DepthStencilState {
	return p.descriptor.DepthStencil
}

func (p *pipeline) Descriptor() *wgpu.RenderPipelineDescriptor {
	return p.descriptor
}

// release frees the WebGPU pipeline.
func (p *pipeline) release() {
	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
}

// stageModules are the compiled modules and entry points of a program.
type stageModules struct {
	layout           *wgpu.PipelineLayout
	vertex, fragment *wgpu.ShaderModule
	hasFragment      bool
	vertexEntry      string
	fragmentEntry    string
}

// descriptor builds the WebGPU descriptor of a pipeline. The fragment stage is omitted when the program
// has none.
func (c *cache) descriptor(key Key, modules stageModules) *wgpu.RenderPipelineDescriptor {
	state := key.Pass.State
	cull, _ := state.Culling.WGPU()

	desc := &wgpu.RenderPipelineDescriptor{
		Label:  c.label,
		Layout: modules.layout,
		Vertex: wgpu.VertexState{
			Module:     modules.vertex,
			EntryPoint: modules.vertexEntry,
			Buffers:    c.vertexBuffers,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  c.topology,
			FrontFace: c.frontFace,
			CullMode:  cull,
		},
		Multisample: wgpu.MultisampleState{
			Count: max(c.target.SampleCount, 1),
			Mask:  0xFFFFFFFF,
		},
	}

	if c.target.DepthFormat != wgpu.TextureFormatUndefined {
		desc.DepthStencil = state.DepthStencil(c.target.DepthFormat)
	}

	if modules.hasFragment {
		target := wgpu.ColorTargetState{
			Format:    c.target.ColorFormat,
			WriteMask: state.ColorWriteMask(),
		}
		if key.Pass.Blend && state.ColorWrite {
			blend := c.blendState
			target.Blend = &blend
		}
		desc.Fragment = &wgpu.FragmentState{
			Module:     modules.fragment,
			EntryPoint: modules.fragmentEntry,
			Targets:    []wgpu.ColorTargetState{target},
		}
	}
	return desc
}
