package matdef

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-matcore/common"
	"github.com/Carmen-Shannon/oxy-matcore/engine/binding"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/driver/drivertest"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/program"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/raster"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/sampler"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/uniform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

const litTOML = `
name = "Lit"
culling = "front"
transparency = "two_passes_one_side"
double_sided = true
mask_threshold = 0.5
sampler_visibility = ["vertex", "fragment"]

[shaders]
vertex = "lit.vert.wgsl"
fragment = "lit.frag.wgsl"

[specular_anti_aliasing]
variance = 0.2
threshold = 0.3

[[parameters]]
name = "baseColor"
type = "float4"

[[parameters]]
name = "lights"
type = "struct"
struct = "Light"
stride = 8
array_length = 2

[[samplers]]
name = "albedo"
type = "sampler2d"
texture = "albedo.png"

[[samplers]]
name = "shadow"
type = "sampler2d"
format = "shadow"
`

const litYAML = `
name: Lit
culling: front
transparency: two_passes_one_side
double_sided: true
mask_threshold: 0.5
sampler_visibility: [vertex, fragment]
shaders:
  vertex: lit.vert.wgsl
  fragment: lit.frag.wgsl
specular_anti_aliasing:
  variance: 0.2
  threshold: 0.3
parameters:
  - name: baseColor
    type: float4
  - name: lights
    type: struct
    struct: Light
    stride: 8
    array_length: 2
samplers:
  - name: albedo
    type: sampler2d
    texture: albedo.png
  - name: shadow
    type: sampler2d
    format: shadow
`

func TestParseFormatsAgree(t *testing.T) {
	fromTOML, err := Parse([]byte(litTOML), FormatTOML)
	require.NoError(t, err)
	fromYAML, err := Parse([]byte(litYAML), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, fromTOML, fromYAML)

	assert.Equal(t, "Lit", fromTOML.Name)
	require.Len(t, fromTOML.Parameters, 2)
	assert.Equal(t, uint32(8), fromTOML.Parameters[1].Stride)
	require.NotNil(t, fromTOML.MaskThreshold)
	assert.Equal(t, float32(0.5), *fromTOML.MaskThreshold)
	assert.Equal(t, "lit.frag.wgsl", fromTOML.Shaders["fragment"])
}

func TestCloneIsDeep(t *testing.T) {
	def, err := Parse([]byte(litTOML), FormatTOML)
	require.NoError(t, err)

	c, err := def.Clone()
	require.NoError(t, err)
	assert.Equal(t, def, c)

	c.Parameters[0].Name = "tint"
	c.Samplers = append(c.Samplers, Sampler{Name: "extra"})
	c.Shaders["fragment"] = "other.wgsl"
	*c.DoubleSided = false
	*c.MaskThreshold = 0.9
	c.SpecularAntiAliasing.Variance = 1
	c.SamplerVisibility[0] = "compute"

	assert.Equal(t, "baseColor", def.Parameters[0].Name)
	assert.Len(t, def.Samplers, 2)
	assert.Equal(t, "lit.frag.wgsl", def.Shaders["fragment"])
	assert.True(t, *def.DoubleSided)
	assert.Equal(t, float32(0.5), *def.MaskThreshold)
	assert.Equal(t, float32(0.2), def.SpecularAntiAliasing.Variance)
	assert.Equal(t, "vertex", def.SamplerVisibility[0])
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte("culling = \"back\"\n"), FormatTOML)
	assert.ErrorContains(t, err, "no name")

	_, err = Parse([]byte("name = \"x\"\ncolour = \"red\"\n"), FormatTOML)
	assert.Error(t, err, "unknown keys are rejected")

	_, err = Parse([]byte("name: x\ncolour: red\n"), FormatYAML)
	assert.Error(t, err)

	_, err = FormatFromPath("lit.json")
	assert.Error(t, err)
	format, err := FormatFromPath("LIT.YML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, format)
}

func TestBlocks(t *testing.T) {
	def, err := Parse([]byte(litTOML), FormatTOML)
	require.NoError(t, err)

	ub, err := def.UniformBlock()
	require.NoError(t, err)
	assert.Equal(t, 0, ub.UniformOffset("baseColor", 0))
	assert.Equal(t, 12, ub.UniformOffset("lights", 1))
	assert.Equal(t, uint32(20), ub.SizeWords())

	sb, err := def.SamplerBlock()
	require.NoError(t, err)
	info, ok := sb.SamplerInfo("shadow")
	require.True(t, ok)
	assert.Equal(t, uint8(1), info.Offset)
	assert.Equal(t, sampler.FormatShadow, info.Format)
}

func TestDeclarationErrors(t *testing.T) {
	tests := []struct {
		name string
		def  Definition
		want error
	}{
		{
			name: "unknown parameter type",
			def:  Definition{Name: "m", Parameters: []Parameter{{Name: "v", Type: "vec3"}}},
			want: common.ErrUnknownType,
		},
		{
			name: "struct without stride",
			def:  Definition{Name: "m", Parameters: []Parameter{{Name: "s", Type: "struct", StructName: "S"}}},
			want: common.ErrMissingStride,
		},
		{
			name: "duplicate parameter",
			def:  Definition{Name: "m", Parameters: []Parameter{{Name: "v", Type: "float"}, {Name: "v", Type: "int"}}},
			want: common.ErrDuplicateName,
		},
		{
			name: "unknown sampler type",
			def:  Definition{Name: "m", Samplers: []Sampler{{Name: "t", Type: "sampler1d"}}},
			want: common.ErrUnknownType,
		},
		{
			name: "duplicate sampler",
			def:  Definition{Name: "m", Samplers: []Sampler{{Name: "t", Type: "sampler2d"}, {Name: "t", Type: "sampler3d"}}},
			want: common.ErrDuplicateName,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.def.Options(t.TempDir())
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := (&Definition{Name: "m", Culling: "sideways"}).Options("")
	assert.ErrorContains(t, err, "culling")
	_, err = (&Definition{Name: "m", Shaders: map[string]string{"geometry": "g.wgsl"}}).Options("")
	assert.ErrorContains(t, err, "shader stage")
	_, err = (&Definition{Name: "m", ErrorPolicy: "sometimes"}).Policy()
	assert.Error(t, err)
}

func writeFixture(t *testing.T, dir string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lit.vert.wgsl"), []byte("// vertex"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lit.frag.wgsl"), []byte("// fragment"), 0o644))

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	f, err := os.Create(filepath.Join(dir, "albedo.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	path := filepath.Join(dir, "lit.toml")
	require.NoError(t, os.WriteFile(path, []byte(litTOML), 0o644))
	return path
}

func TestLoadMaterial(t *testing.T) {
	rec := drivertest.NewRecorder()
	path := writeFixture(t, t.TempDir())

	loaded, err := LoadMaterial(rec, path)
	require.NoError(t, err)
	m := loaded.Material
	require.Len(t, loaded.Textures, 1)
	assert.Equal(t, 1, rec.Count("CreateTexture"))

	p, ok := rec.Program(m.Program())
	require.True(t, ok)
	assert.Equal(t, []byte("// vertex"), p.ShaderSource(program.StageVertex))
	assert.Equal(t, []byte("// fragment"), p.ShaderSource(program.StageFragment))
	group := p.SamplerGroup(uint8(binding.SamplerPerMaterialInstance))
	assert.Equal(t, program.StageFlagVertex|program.StageFlagFragment, group.StageFlags)

	inst := m.DefaultInstance()
	assert.Equal(t, float32(0.5), inst.MaskThreshold())
	assert.True(t, inst.IsDoubleSided())
	assert.Equal(t, raster.CullNone, inst.CullingMode(), "double-sided instances do not cull")
	assert.Equal(t, raster.CullFront, m.RasterState().Culling)
	assert.Equal(t, raster.TransparencyTwoPassesOneSide, inst.TransparencyMode())
	assert.InDelta(t, 0.09, inst.SpecularAntiAliasingThreshold(), 1e-6)
	assert.True(t, m.UniformBlock().HasUniform("baseColor"))

	bindings := inst.SamplerBindings()
	require.Len(t, bindings, 2)
	assert.Equal(t, loaded.Textures[0], bindings[0].Texture)
	assert.False(t, bindings[1].Texture.IsValid())

	require.NotNil(t, loaded.Definition)
	assert.Equal(t, "Lit", loaded.Definition.Name)

	loaded.Destroy(rec)
	assert.Zero(t, rec.Live())
}

func TestInstantiateKeepsDefinitionSnapshot(t *testing.T) {
	rec := drivertest.NewRecorder()
	dir := t.TempDir()
	def, err := Load(writeFixture(t, dir))
	require.NoError(t, err)

	loaded, err := def.Instantiate(rec, dir)
	require.NoError(t, err)
	def.Name = "Renamed"
	def.Parameters[0].Type = "float"
	*def.DoubleSided = false

	assert.Equal(t, "Lit", loaded.Definition.Name)
	assert.Equal(t, "float4", loaded.Definition.Parameters[0].Type)
	assert.True(t, *loaded.Definition.DoubleSided)
	loaded.Destroy(rec)
}

func TestSamplerTextureAcceptsBMP(t *testing.T) {
	rec := drivertest.NewRecorder()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unlit.wgsl"), []byte("// fragment"), 0o644))

	img := image.NewRGBA(image.Rect(0, 0, 3, 1))
	for x := 0; x < 3; x++ {
		img.Set(x, 0, color.RGBA{G: 200, A: 255})
	}
	f, err := os.Create(filepath.Join(dir, "albedo.bmp"))
	require.NoError(t, err)
	require.NoError(t, bmp.Encode(f, img))
	require.NoError(t, f.Close())

	def := &Definition{
		Name:     "Unlit",
		Shaders:  map[string]string{"fragment": "unlit.wgsl"},
		Samplers: []Sampler{{Name: "albedo", Type: "sampler2d", Texture: "albedo.bmp"}},
	}
	loaded, err := def.Instantiate(rec, dir)
	require.NoError(t, err)
	require.Len(t, loaded.Textures, 1)
	assert.Equal(t, 1, rec.Count("CreateTexture"))
	loaded.Destroy(rec)
	assert.Zero(t, rec.Live())
}

func TestInstantiateReleasesOnTextureFailure(t *testing.T) {
	rec := drivertest.NewRecorder()
	dir := t.TempDir()
	path := writeFixture(t, dir)
	require.NoError(t, os.Remove(filepath.Join(dir, "albedo.png")))

	_, err := LoadMaterial(rec, path)
	assert.ErrorContains(t, err, "albedo")
	assert.Zero(t, rec.Live())
}

func TestFieldsFollowDeclarationOrder(t *testing.T) {
	def := Definition{Name: "m", Parameters: []Parameter{
		{Name: "a", Type: "float3", Precision: "high"},
		{Name: "b", Type: "float"},
	}}
	fields, err := def.Fields()
	require.NoError(t, err)
	assert.Equal(t, []uniform.Field{
		{Name: "a", Type: uniform.Float3, Precision: uniform.PrecisionHigh},
		{Name: "b", Type: uniform.Float},
	}, fields)
}
