package driver

import (
	"github.com/Carmen-Shannon/oxy-matcore/engine/binding"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/program"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/sampler"
	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuBuffer is a live buffer object.
type wgpuBuffer struct {
	buffer *wgpu.Buffer
	size   uint64
}

// wgpuSamplerGroup is a live sampler group. The bindings are resolved to views and samplers when a
// bind group is materialised.
type wgpuSamplerGroup struct {
	bindings []sampler.Binding
}

// wgpuTexture is a texture created from staging data or registered from an existing view.
type wgpuTexture struct {
	texture *wgpu.Texture // nil for registered views
	view    *wgpu.TextureView
}

// wgpuProgram is a compiled program: one shader module per stage plus the bind group layouts derived
// from the descriptor.
type wgpuProgram struct {
	descriptor     program.Program
	modules        [program.ShaderStageCount]*wgpu.ShaderModule
	layouts        []*wgpu.BindGroupLayout
	pipelineLayout *wgpu.PipelineLayout
}

// wgpuStageMap maps program stage flags to wgpu shader stages.
var wgpuStageMap = map[program.ShaderStage]wgpu.ShaderStage{
	program.StageVertex:   wgpu.ShaderStageVertex,
	program.StageFragment: wgpu.ShaderStageFragment,
	program.StageCompute:  wgpu.ShaderStageCompute,
}

// wgpuViewDimensionMap maps sampler types to texture view dimensions.
var wgpuViewDimensionMap = map[sampler.Type]wgpu.TextureViewDimension{
	sampler.Sampler2D:           wgpu.TextureViewDimension2D,
	sampler.Sampler2DArray:      wgpu.TextureViewDimension2DArray,
	sampler.SamplerCubemap:      wgpu.TextureViewDimensionCube,
	sampler.SamplerExternal:     wgpu.TextureViewDimension2D,
	sampler.Sampler3D:           wgpu.TextureViewDimension3D,
	sampler.SamplerCubemapArray: wgpu.TextureViewDimensionCubeArray,
}

// wgpuSampleTypeMap maps sampler formats to texture sample types.
var wgpuSampleTypeMap = map[sampler.Format]wgpu.TextureSampleType{
	sampler.FormatFloat:  wgpu.TextureSampleTypeFloat,
	sampler.FormatInt:    wgpu.TextureSampleTypeSint,
	sampler.FormatUint:   wgpu.TextureSampleTypeUint,
	sampler.FormatShadow: wgpu.TextureSampleTypeDepth,
}

var wgpuAddressModeMap = map[sampler.Wrap]wgpu.AddressMode{
	sampler.WrapClampToEdge:    wgpu.AddressModeClampToEdge,
	sampler.WrapRepeat:         wgpu.AddressModeRepeat,
	sampler.WrapMirroredRepeat: wgpu.AddressModeMirrorRepeat,
}

// UniformGroup is the bind group index holding every uniform binding point; uniform binding point N
// is binding N of this group.
const UniformGroup = 0

// SamplerGroupIndex returns the bind group index of a sampler binding point.
//
// Parameters:
//   - bindingPoint: the sampler binding point
//
// Returns:
//   - uint32: the bind group index
func SamplerGroupIndex(bindingPoint uint8) uint32 {
	return 1 + uint32(bindingPoint)
}

// SamplerBindings returns the texture and sampler binding indices of sampler index within its group.
//
// Parameters:
//   - index: the binding-relative sampler index
//
// Returns:
//   - texture: the binding of the texture view
//   - samp: the binding of the sampler
func SamplerBindings(index uint8) (texture, samp uint32) {
	return 2 * uint32(index), 2*uint32(index) + 1
}

// visibility converts program stage flags to wgpu shader stages.
func visibility(flags program.ShaderStageFlags) wgpu.ShaderStage {
	out := wgpu.ShaderStageNone
	for stage, s := range wgpuStageMap {
		if flags.Has(stage) {
			out |= s
		}
	}
	return out
}

// samplerDescriptor converts sampling parameters to a wgpu sampler descriptor. Anisotropy is only
// kept when every filter is linear, as WebGPU requires.
func samplerDescriptor(label string, p sampler.Params) *wgpu.SamplerDescriptor {
	desc := &wgpu.SamplerDescriptor{
		Label:         label,
		AddressModeU:  wgpuAddressModeMap[p.WrapS],
		AddressModeV:  wgpuAddressModeMap[p.WrapT],
		AddressModeW:  wgpuAddressModeMap[p.WrapR],
		MagFilter:     wgpu.FilterModeNearest,
		MinFilter:     wgpu.FilterModeNearest,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	}
	if p.MagFilter == sampler.MagFilterLinear {
		desc.MagFilter = wgpu.FilterModeLinear
	}
	switch p.MinFilter {
	case sampler.MinFilterLinear, sampler.MinFilterLinearMipmapNearest, sampler.MinFilterLinearMipmapLinear:
		desc.MinFilter = wgpu.FilterModeLinear
	}
	switch p.MinFilter {
	case sampler.MinFilterNearest, sampler.MinFilterLinear:
		desc.LodMaxClamp = 0
	case sampler.MinFilterNearestMipmapLinear, sampler.MinFilterLinearMipmapLinear:
		desc.MipmapFilter = wgpu.MipmapFilterModeLinear
	}
	if desc.MagFilter == wgpu.FilterModeLinear && desc.MinFilter == wgpu.FilterModeLinear &&
		desc.MipmapFilter == wgpu.MipmapFilterModeLinear {
		desc.MaxAnisotropy = p.MaxAnisotropy()
	}
	if p.CompareMode == sampler.CompareModeCompareToTexture {
		desc.Compare = p.CompareFunc.WGPU()
	}
	return desc
}

// layoutDescriptors derives the bind group layout descriptors of a program: group 0 holds one
// uniform buffer per bound block, group 1+M holds a texture and a sampler per sampler of sampler
// binding point M. Groups between used ones are empty.
func layoutDescriptors(p *program.Program) []wgpu.BindGroupLayoutDescriptor {
	var descs []wgpu.BindGroupLayoutDescriptor
	group := func(i uint32) *wgpu.BindGroupLayoutDescriptor {
		for uint32(len(descs)) <= i {
			descs = append(descs, wgpu.BindGroupLayoutDescriptor{})
		}
		return &descs[i]
	}

	stages := visibility(p.Stages())
	for bp, name := range p.UniformBlocks() {
		if name == "" {
			continue
		}
		g := group(UniformGroup)
		g.Label = p.Name() + " Uniforms"
		entry := wgpu.BindGroupLayoutEntry{
			Binding:    uint32(bp),
			Visibility: stages,
		}
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		g.Entries = append(g.Entries, entry)
	}

	for bp := uint8(0); bp < binding.SamplerBindingCount; bp++ {
		sg := p.SamplerGroup(bp)
		if sg.IsEmpty() {
			continue
		}
		g := group(SamplerGroupIndex(bp))
		g.Label = p.Name() + " Samplers"
		vis := visibility(sg.StageFlags)
		for _, s := range sg.Samplers {
			texBinding, sampBinding := SamplerBindings(s.Binding)
			tex := wgpu.BindGroupLayoutEntry{Binding: texBinding, Visibility: vis}
			tex.Texture.SampleType = wgpuSampleTypeMap[s.Format]
			tex.Texture.ViewDimension = wgpuViewDimensionMap[s.Type]

			samp := wgpu.BindGroupLayoutEntry{Binding: sampBinding, Visibility: vis}
			samp.Sampler.Type = wgpu.SamplerBindingTypeFiltering
			if s.Format == sampler.FormatShadow {
				samp.Sampler.Type = wgpu.SamplerBindingTypeComparison
			} else if s.Format != sampler.FormatFloat {
				samp.Sampler.Type = wgpu.SamplerBindingTypeNonFiltering
			}
			g.Entries = append(g.Entries, tex, samp)
		}
	}
	return descs
}
