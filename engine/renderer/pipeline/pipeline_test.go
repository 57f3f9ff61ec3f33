package pipeline

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/driver"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/driver/drivertest"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/program"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/raster"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vertexSource = `@vertex
fn vs_main(@builtin(vertex_index) i: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(0.0);
}`

const fragmentSource = `@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0);
}`

// noResources stands in for a driver that compiled nothing.
type noResources struct{}

func (noResources) ShaderModule(driver.ProgramHandle, program.ShaderStage) *wgpu.ShaderModule {
	return nil
}

func (noResources) PipelineLayout(driver.ProgramHandle) *wgpu.PipelineLayout {
	return nil
}

type recordingCreate struct {
	descriptors []*wgpu.RenderPipelineDescriptor
	err         error
}

func (r *recordingCreate) create(desc *wgpu.RenderPipelineDescriptor) (*wgpu.RenderPipeline, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.descriptors = append(r.descriptors, desc)
	return nil, nil
}

// describeCounter counts how often the descriptor of the wrapped material is rebuilt.
type describeCounter struct {
	material.Material
	calls int
}

func (d *describeCounter) ProgramDescriptor() *program.Program {
	d.calls++
	return d.Material.ProgramDescriptor()
}

// counterInstance reports a describeCounter as its material.
type counterInstance struct {
	material.MaterialInstance
	m *describeCounter
}

func (c counterInstance) Material() material.Material {
	return c.m
}

func newMaterial(t *testing.T, drv driver.Driver, options ...material.MaterialBuilderOption) material.Material {
	t.Helper()
	options = append([]material.MaterialBuilderOption{
		material.WithShader(program.StageVertex, []byte(vertexSource)),
		material.WithShader(program.StageFragment, []byte(fragmentSource)),
	}, options...)
	m, err := material.NewMaterial(drv, options...)
	require.NoError(t, err)
	return m
}

func TestPasses(t *testing.T) {
	state := raster.DefaultState()
	state.Scissor = raster.Viewport{Left: 1, Bottom: 2, Width: 3, Height: 4}

	passes := Passes(state)
	require.Len(t, passes, 1)
	assert.False(t, passes[0].Blend)
	assert.Equal(t, raster.Viewport{}, passes[0].State.Scissor)
	assert.Equal(t, raster.CullBack, passes[0].State.Culling)

	state.Transparency = raster.TransparencyTwoPassesOneSide
	passes = Passes(state)
	require.Len(t, passes, 2)
	assert.False(t, passes[0].State.ColorWrite)
	assert.True(t, passes[0].State.DepthWrite)
	assert.False(t, passes[0].Blend)
	assert.True(t, passes[1].State.ColorWrite)
	assert.False(t, passes[1].State.DepthWrite)
	assert.True(t, passes[1].Blend)
	assert.Equal(t, raster.TransparencyDefault, passes[1].State.Transparency)

	state.Transparency = raster.TransparencyTwoPassesTwoSides
	passes = Passes(state)
	require.Len(t, passes, 2)
	assert.Equal(t, raster.CullFront, passes[0].State.Culling)
	assert.Equal(t, raster.CullBack, passes[1].State.Culling)
	assert.True(t, passes[0].Blend && passes[1].Blend)

	state.Culling = raster.CullFrontAndBack
	assert.Empty(t, Passes(state))

	state = raster.DefaultState()
	state.Stencil.Front.Reference = 3
	state.Stencil.Back.Reference = 5
	state.Stencil.Front.ReadMask = 0x0f
	passes = Passes(state)
	require.Len(t, passes, 1)
	assert.Zero(t, passes[0].State.Stencil.Front.Reference)
	assert.Zero(t, passes[0].State.Stencil.Back.Reference)
	assert.Equal(t, uint8(0x0f), passes[0].State.Stencil.Front.ReadMask)
}

func TestCacheIgnoresStencilReference(t *testing.T) {
	rc := &recordingCreate{}
	c := NewCache(noResources{}, rc.create)

	m := newMaterial(t, drivertest.NewRecorder())
	a := m.CreateInstance("a")
	b := m.CreateInstance("b")
	b.SetStencilReferenceValue(7, raster.StencilFaceFrontAndBack)

	pa, err := c.Pipelines(a)
	require.NoError(t, err)
	pb, err := c.Pipelines(b)
	require.NoError(t, err)
	assert.Same(t, pa[0], pb[0])
	assert.Equal(t, 1, c.Len())
}

func TestCacheDescribesProgramOnlyOnMiss(t *testing.T) {
	rc := &recordingCreate{}
	c := NewCache(noResources{}, rc.create)

	counter := &describeCounter{Material: newMaterial(t, drivertest.NewRecorder())}
	inst := counterInstance{MaterialInstance: counter.Material.CreateInstance("i"), m: counter}
	inst.SetTransparencyMode(raster.TransparencyTwoPassesOneSide)

	ps, err := c.Pipelines(inst)
	require.NoError(t, err)
	require.Len(t, ps, 2)
	assert.Equal(t, 1, counter.calls, "both misses share one descriptor")

	for i := 0; i < 3; i++ {
		_, err = c.Pipelines(inst)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, counter.calls, "hits do not rebuild the descriptor")
	hits, misses := c.Stats()
	assert.Equal(t, uint64(6), hits)
	assert.Equal(t, uint64(2), misses)
}

func TestCacheSharesPipelines(t *testing.T) {
	rc := &recordingCreate{}
	c := NewCache(noResources{}, rc.create, WithLabel("test"), WithTarget(Target{
		ColorFormat: wgpu.TextureFormatRGBA8Unorm,
		DepthFormat: wgpu.TextureFormatDepth32Float,
		SampleCount: 4,
	}))

	m := newMaterial(t, drivertest.NewRecorder())
	a := m.CreateInstance("a")
	b := m.CreateInstance("b")

	pa, err := c.Pipelines(a)
	require.NoError(t, err)
	pb, err := c.Pipelines(b)
	require.NoError(t, err)
	require.Len(t, pa, 1)
	assert.Same(t, pa[0], pb[0])
	assert.Equal(t, 1, c.Len())
	hits, misses := c.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)

	desc := rc.descriptors[0]
	assert.Equal(t, "test", desc.Label)
	assert.Equal(t, "vs_main", desc.Vertex.EntryPoint)
	require.NotNil(t, desc.Fragment)
	assert.Equal(t, "fs_main", desc.Fragment.EntryPoint)
	assert.Equal(t, wgpu.TextureFormatRGBA8Unorm, desc.Fragment.Targets[0].Format)
	assert.Equal(t, uint32(4), desc.Multisample.Count)
	assert.Equal(t, wgpu.CullModeBack, pa[0].CullMode())
	assert.Equal(t, wgpu.ColorWriteMaskAll, pa[0].WriteMask())
	assert.Nil(t, pa[0].BlendState())
	require.NotNil(t, pa[0].DepthStencil())
	assert.Equal(t, wgpu.TextureFormatDepth32Float, pa[0].DepthStencil().Format)
	assert.Equal(t, wgpu.CompareFunctionGreaterEqual, pa[0].DepthStencil().DepthCompare)

	b.SetCullingMode(raster.CullNone)
	pb, err = c.Pipelines(b)
	require.NoError(t, err)
	assert.NotSame(t, pa[0], pb[0])
	assert.Equal(t, wgpu.CullModeNone, pb[0].CullMode())
	assert.Equal(t, 2, c.Len())

	got, ok := c.Get(pb[0].Key())
	require.True(t, ok)
	assert.Same(t, pb[0], got)
}

func TestCacheTransparentPasses(t *testing.T) {
	rc := &recordingCreate{}
	blend := wgpu.BlendState{
		Color: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOneMinusSrcAlpha, Operation: wgpu.BlendOperationAdd},
		Alpha: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOneMinusSrcAlpha, Operation: wgpu.BlendOperationAdd},
	}
	c := NewCache(noResources{}, rc.create, WithBlendState(blend), WithTarget(Target{ColorFormat: wgpu.TextureFormatBGRA8Unorm}))

	mi := newMaterial(t, drivertest.NewRecorder(), material.WithTransparencyMode(raster.TransparencyTwoPassesOneSide)).CreateInstance("glass")
	ps, err := c.Pipelines(mi)
	require.NoError(t, err)
	require.Len(t, ps, 2)

	assert.Equal(t, wgpu.ColorWriteMask(0), ps[0].WriteMask())
	assert.Nil(t, ps[0].BlendState())
	assert.Nil(t, ps[0].DepthStencil(), "target without depth attachment")

	require.NotNil(t, ps[1].BlendState())
	assert.Equal(t, blend, *ps[1].BlendState())
}

func TestCacheErrors(t *testing.T) {
	rec := drivertest.NewRecorder()
	rc := &recordingCreate{err: errors.New("device lost")}
	c := NewCache(noResources{}, rc.create)

	_, err := c.Pipelines(newMaterial(t, rec).DefaultInstance())
	assert.ErrorContains(t, err, "device lost")
	assert.Zero(t, c.Len())

	fragmentOnly, err := material.NewMaterial(rec, material.WithShader(program.StageFragment, []byte(fragmentSource)))
	require.NoError(t, err)
	_, err = NewCache(noResources{}, (&recordingCreate{}).create).Pipelines(fragmentOnly.DefaultInstance())
	assert.ErrorContains(t, err, "no vertex stage")

	m := newMaterial(t, rec)
	mi := m.CreateInstance("orphan")
	m.Destroy(rec)
	_, err = c.Pipelines(mi)
	assert.ErrorContains(t, err, "has no program")
}

func TestCacheEvict(t *testing.T) {
	rc := &recordingCreate{}
	c := NewCache(noResources{}, rc.create)

	rec := drivertest.NewRecorder()
	m1, m2 := newMaterial(t, rec), newMaterial(t, rec)
	_, err := c.Pipelines(m1.DefaultInstance())
	require.NoError(t, err)
	_, err = c.Pipelines(m2.DefaultInstance())
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())

	c.Evict(m1.Program())
	assert.Equal(t, 1, c.Len())

	c.Release()
	assert.Zero(t, c.Len())
}
