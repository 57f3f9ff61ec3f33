package shader

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-matcore/common"
	"github.com/Carmen-Shannon/oxy-matcore/engine/binding"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/program"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/sampler"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/uniform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBlocks() (uniform.InterfaceBlock, sampler.InterfaceBlock) {
	ub := uniform.NewBuilder().Name("MaterialParams").Add(
		uniform.Field{Name: "baseColor", Type: uniform.Float4},
		uniform.Field{Name: "roughness", Type: uniform.Float},
		uniform.Field{Name: "tint", Type: uniform.Float3},
		uniform.Field{Name: "weights", Type: uniform.Float, ArrayLength: 2},
	).Build()
	sb := sampler.NewBuilder().Name("MaterialParams").Add(
		sampler.Entry{Name: "albedo", Type: sampler.Sampler2D},
		sampler.Entry{Name: "shadow", Type: sampler.Sampler2DArray, Format: sampler.FormatShadow},
	).Build()
	return ub, sb
}

func TestReflectStructLayout(t *testing.T) {
	src := `
/* header /* nested */ comment */
struct Light {
    color: vec3<f32>,
    intensity: f32,
}

struct Params {
    @builtin(position) pos: vec4<f32>, // skipped
    a: f32,
    @align(16) b: vec2<f32>,
    @size(32) c: f32,
    lights: array<Light, 2>,
    m: mat3x3<f32>,
}
`
	refl := Reflect(src)

	light := refl.Structs["Light"]
	assert.Equal(t, uint32(16), light.Size)
	assert.Equal(t, uint32(16), light.Align)

	params := refl.Structs["Params"]
	require.Len(t, params.Members, 5)
	offsets := map[string]uint32{}
	for _, m := range params.Members {
		offsets[m.Name] = m.Offset
	}
	assert.Equal(t, map[string]uint32{"a": 0, "b": 16, "c": 24, "lights": 64, "m": 96}, offsets)
	assert.Equal(t, uint32(144), params.Size)

	lights, ok := params.Member("lights")
	require.True(t, ok)
	assert.Equal(t, "array<Light,2>", lights.Type)
	assert.Equal(t, uint32(32), lights.Size)
}

func TestReflectUnresolvedStruct(t *testing.T) {
	refl := Reflect("struct S { x: Unknown, }")
	s, ok := refl.Structs["S"]
	require.True(t, ok)
	assert.Empty(t, s.Members)
	assert.Zero(t, s.Size)
}

func TestReflectBindingsAndEntryPoints(t *testing.T) {
	src := `
@group(0) @binding(7) var<uniform> material: MaterialParams;
@group(3) @binding(0) var albedo: texture_2d < f32 >;
@group(3) @binding(1) var albedoSampler: sampler;
@group(3) @binding(3) var shadowSampler: sampler_comparison;
@group(4) @binding(0) var<storage, read> data: array<f32>;
@group(4) @binding(1) var depth: texture_depth_2d;
// @group(5) @binding(0) var hidden: sampler;

@vertex
fn vs_main() -> @builtin(position) vec4<f32> { return vec4<f32>(); }

@fragment fn fs_main() {}
`
	refl := Reflect(src)
	require.Len(t, refl.Bindings, 6)

	b, ok := refl.Binding(3, 0)
	require.True(t, ok)
	assert.Equal(t, "albedo", b.Name)
	assert.Equal(t, "texture_2d<f32>", b.Type)
	assert.Equal(t, ResourceTexture, b.Kind)

	kinds := map[string]ResourceKind{}
	for _, b := range refl.Bindings {
		kinds[b.Name] = b.Kind
	}
	assert.Equal(t, map[string]ResourceKind{
		"material":      ResourceUniformBuffer,
		"albedo":        ResourceTexture,
		"albedoSampler": ResourceSampler,
		"shadowSampler": ResourceComparisonSampler,
		"data":          ResourceStorageBuffer,
		"depth":         ResourceDepthTexture,
	}, kinds)

	assert.Len(t, refl.Group(3), 3)
	_, ok = refl.Binding(5, 0)
	assert.False(t, ok)

	assert.Equal(t, map[program.ShaderStage]string{
		program.StageVertex:   "vs_main",
		program.StageFragment: "fs_main",
	}, refl.EntryPoints)
}

func TestTextureType(t *testing.T) {
	tests := []struct {
		info sampler.Info
		want string
	}{
		{sampler.Info{Type: sampler.Sampler2D}, "texture_2d<f32>"},
		{sampler.Info{Type: sampler.Sampler2DArray, Format: sampler.FormatInt}, "texture_2d_array<i32>"},
		{sampler.Info{Type: sampler.SamplerCubemap, Format: sampler.FormatUint}, "texture_cube<u32>"},
		{sampler.Info{Type: sampler.Sampler3D}, "texture_3d<f32>"},
		{sampler.Info{Type: sampler.SamplerCubemapArray}, "texture_cube_array<f32>"},
		{sampler.Info{Type: sampler.SamplerExternal}, "texture_2d<f32>"},
		{sampler.Info{Type: sampler.Sampler2D, Multisample: true}, "texture_multisampled_2d<f32>"},
		{sampler.Info{Type: sampler.Sampler2D, Format: sampler.FormatShadow}, "texture_depth_2d"},
		{sampler.Info{Type: sampler.SamplerCubemap, Format: sampler.FormatShadow}, "texture_depth_cube"},
		{sampler.Info{Type: sampler.Sampler2D, Format: sampler.FormatShadow, Multisample: true}, "texture_depth_multisampled_2d"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, err := TextureType(tt.info)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := TextureType(sampler.Info{Name: "vol", Type: sampler.Sampler3D, Format: sampler.FormatShadow})
	assert.Error(t, err)
	_, err = TextureType(sampler.Info{Name: "ms", Type: sampler.SamplerCubemap, Multisample: true})
	assert.Error(t, err)

	assert.Equal(t, "sampler_comparison", SamplerType(sampler.Info{Format: sampler.FormatShadow}))
	assert.Equal(t, "sampler", SamplerType(sampler.Info{}))
}

func TestParseAnnotation(t *testing.T) {
	a, err := parseAnnotation("  //@oxy:params", 3)
	require.NoError(t, err)
	assert.Equal(t, &Annotation{Type: AnnotationTypeParams, Args: []string{"material"}, Line: 3}, a)

	a, err = parseAnnotation("// @oxy:params mat", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"mat"}, a.Args)

	a, err = parseAnnotation("let x = 1; //@oxy:params", 1)
	require.NoError(t, err)
	assert.Nil(t, a, "annotations must start the line")

	a, err = parseAnnotation("// plain comment", 1)
	require.NoError(t, err)
	assert.Nil(t, a)

	for _, line := range []string{
		"//@oxy:",
		"//@oxy:include camera",
		"//@oxy:params a b",
		"//@oxy:params 1abc",
		"//@oxy:samplers extra",
	} {
		_, err := parseAnnotation(line, 7)
		assert.ErrorContains(t, err, "line 7", line)
	}
}

func TestPreProcessorExpandsAnnotations(t *testing.T) {
	ub, sb := testBlocks()
	pp := NewPreProcessor(
		WithUniformBlock(ub, binding.PerMaterialInstance),
		WithSamplerBlock(sb, binding.SamplerPerMaterialInstance),
	)
	src := "//@oxy:params mat\n//@oxy:samplers\n@fragment\nfn main() {}"

	out, err := pp.Process(src)
	require.NoError(t, err)
	assert.Contains(t, out, uniform.WGSL(ub))
	assert.Contains(t, out, "@group(0) @binding(7) var<uniform> mat: MaterialParams;")
	assert.Contains(t, out, "@group(3) @binding(0) var albedo: texture_2d<f32>;")
	assert.Contains(t, out, "@group(3) @binding(1) var albedoSampler: sampler;")
	assert.Contains(t, out, "@group(3) @binding(2) var shadow: texture_depth_2d_array;")
	assert.Contains(t, out, "@group(3) @binding(3) var shadowSampler: sampler_comparison;")
	assert.Contains(t, out, "@fragment\nfn main() {}")

	decls := pp.Declarations()
	require.Len(t, decls, 2)
	assert.Equal(t, AnnotationTypeParams, decls[0].Type)
	assert.Equal(t, 2, decls[1].Line)

	// generated declarations agree with the blocks they came from
	assert.NoError(t, Validate(program.StageFragment, out, ub, sb))
}

func TestPreProcessorErrors(t *testing.T) {
	ub, sb := testBlocks()

	_, err := NewPreProcessor().Process("//@oxy:params")
	assert.ErrorContains(t, err, "without parameters")

	_, err = NewPreProcessor().Process("//@oxy:samplers")
	assert.ErrorContains(t, err, "without samplers")

	pp := NewPreProcessor(WithUniformBlock(ub, binding.PerMaterialInstance), WithSamplerBlock(sb, binding.SamplerPerMaterialInstance))
	_, err = pp.Process("//@oxy:params\n//@oxy:params other")
	assert.ErrorContains(t, err, "already expanded on line 1")

	out, err := NewPreProcessor().Process("fn f() {}\r\n// note")
	require.NoError(t, err)
	assert.Equal(t, "fn f() {}\r\n// note", out)
}

func TestCheckUniformBlock(t *testing.T) {
	ub, _ := testBlocks()

	good := uniform.WGSL(ub) + uniform.WGSLBinding(ub, 0, 7, "material")
	assert.NoError(t, CheckUniformBlock(Reflect(good), ub, binding.PerMaterialInstance))

	assert.NoError(t, CheckUniformBlock(Reflect("fn main() {}"), ub, binding.PerMaterialInstance))

	shifted := `struct MaterialParams { roughness: f32, extra: f32, }
@group(0) @binding(7) var<uniform> material: MaterialParams;`
	err := CheckUniformBlock(Reflect(shifted), ub, binding.PerMaterialInstance)
	assert.ErrorIs(t, err, common.ErrShaderMismatch)
	assert.ErrorContains(t, err, "roughness: offset 0, block places it at 16")
	assert.ErrorContains(t, err, "extra: member is not part of the block")

	storage := `struct MaterialParams { baseColor: vec4<f32>, }
@group(0) @binding(7) var<storage, read> material: MaterialParams;`
	assert.ErrorContains(t, CheckUniformBlock(Reflect(storage), ub, binding.PerMaterialInstance), "expected a uniform buffer")

	unresolved := `@group(0) @binding(7) var<uniform> material: Missing;`
	assert.ErrorContains(t, CheckUniformBlock(Reflect(unresolved), ub, binding.PerMaterialInstance), "cannot be resolved")

	empty := uniform.NewBuilder().Name("Empty").Build()
	assert.ErrorIs(t, CheckUniformBlock(Reflect(good), empty, binding.PerMaterialInstance), common.ErrShaderMismatch)
}

func TestCheckSamplerBlock(t *testing.T) {
	_, sb := testBlocks()

	good := `@group(3) @binding(0) var albedo: texture_2d<f32>;
@group(3) @binding(1) var albedoSampler: sampler;
@group(3) @binding(3) var shadowSampler: sampler_comparison;`
	assert.NoError(t, CheckSamplerBlock(Reflect(good), sb, binding.SamplerPerMaterialInstance))

	bad := `@group(3) @binding(0) var albedo: texture_cube<f32>;
@group(3) @binding(3) var shadowSampler: sampler;
@group(3) @binding(4) var extra: texture_2d<f32>;
@group(1) @binding(9) var other: texture_2d<f32>;`
	err := CheckSamplerBlock(Reflect(bad), sb, binding.SamplerPerMaterialInstance)
	assert.ErrorIs(t, err, common.ErrShaderMismatch)
	assert.ErrorContains(t, err, `texture "albedo" is texture_cube<f32>`)
	assert.ErrorContains(t, err, `sampler "shadowSampler" is sampler`)
	assert.ErrorContains(t, err, `"extra" at binding 4 has no sampler`)
	assert.NotContains(t, err.Error(), "other")
}

func TestValidateEntryPoint(t *testing.T) {
	ub, sb := testBlocks()

	err := Validate(program.StageFragment, "@vertex fn main() {}", ub, sb)
	assert.ErrorIs(t, err, common.ErrShaderMismatch)
	assert.ErrorContains(t, err, "fragment shader: no @fragment entry point")

	assert.NoError(t, Validate(program.StageFragment, "// no code yet", ub, sb))
}
