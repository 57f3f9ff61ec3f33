package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-matcore/engine/asset"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/driver/drivertest"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/raster"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/sampler"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/uniform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type assignment struct {
	renderable asset.Entity
	primitive  int
	mi         material.MaterialInstance
}

type fakeRenderables struct {
	assignments []assignment
}

func (f *fakeRenderables) SetMaterialInstanceAt(renderable asset.Entity, primitiveIndex int, mi material.MaterialInstance) {
	f.assignments = append(f.assignments, assignment{renderable, primitiveIndex, mi})
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// testDocument is a two-material asset: one skinned mesh with two primitives, two variants and a
// texture shared by both materials.
func testDocument(img map[string]any) map[string]any {
	return map[string]any{
		"asset":          map[string]any{"version": "2.0"},
		"extensionsUsed": []string{"KHR_materials_variants"},
		"extensions": map[string]any{
			"KHR_materials_variants": map[string]any{
				"variants": []any{map[string]any{"name": "red"}, map[string]any{"name": "blue"}},
			},
		},
		"nodes": []any{
			map[string]any{"name": "body", "mesh": 0, "skin": 0},
			map[string]any{"name": "hip"},
			map[string]any{"name": "knee"},
		},
		"meshes": []any{map[string]any{"primitives": []any{
			map[string]any{
				"material": 0,
				"extensions": map[string]any{"KHR_materials_variants": map[string]any{"mappings": []any{
					map[string]any{"material": 0, "variants": []int{0}},
					map[string]any{"material": 1, "variants": []int{1}},
				}}},
			},
			map[string]any{"material": 1},
		}}},
		"skins": []any{map[string]any{"name": "armature", "joints": []int{1, 2}}},
		"materials": []any{
			map[string]any{
				"name":        "red",
				"alphaMode":   "MASK",
				"alphaCutoff": 0.3,
				"pbrMetallicRoughness": map[string]any{
					"baseColorFactor":  []float32{1, 0, 0, 1},
					"metallicFactor":   0.25,
					"roughnessFactor":  0.5,
					"baseColorTexture": map[string]any{"index": 0},
				},
			},
			map[string]any{
				"name":        "blue",
				"alphaMode":   "BLEND",
				"doubleSided": true,
				"pbrMetallicRoughness": map[string]any{
					"baseColorFactor":  []float32{0, 0, 1, 1},
					"baseColorTexture": map[string]any{"index": 0},
				},
			},
		},
		"textures": []any{map[string]any{"sampler": 0, "source": 0}},
		"samplers": []any{map[string]any{"magFilter": 9728, "minFilter": 9985, "wrapS": 33071}},
		"images":   []any{img},
	}
}

func marshal(t *testing.T, doc map[string]any) []byte {
	t.Helper()
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	return data
}

func newTestMaterial(t *testing.T, rec *drivertest.Recorder) material.Material {
	t.Helper()
	m, err := material.NewMaterial(rec,
		material.WithName("pbr"),
		material.WithParameters(
			uniform.Field{Name: BaseColorParameter, Type: uniform.Float4},
			uniform.Field{Name: MetallicParameter, Type: uniform.Float},
			uniform.Field{Name: RoughnessParameter, Type: uniform.Float3},
		),
		material.WithSamplers(sampler.Entry{Name: BaseColorMap, Type: sampler.Sampler2D}),
		material.WithMaskThreshold(-1),
		material.WithDoubleSided(false),
	)
	require.NoError(t, err)
	return m
}

func float4(mi material.MaterialInstance, name string) [4]float32 {
	info, _ := mi.Material().UniformBlock().UniformInfo(name)
	buf := mi.UniformBuffer()[info.BufferOffset(0):]
	var v [4]float32
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}

func TestLoadReaderImportsMaterialsSkinsAndVariants(t *testing.T) {
	rec := drivertest.NewRecorder()
	m := newTestMaterial(t, rec)
	rm := &fakeRenderables{}
	l := NewLoader(WithDriver(rec), WithMaterial(m), WithRenderableManager(rm))

	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t))
	data := marshal(t, testDocument(map[string]any{"uri": uri}))

	inst, err := l.LoadReader("character", bytes.NewReader(data), false)
	require.NoError(t, err)
	assert.Same(t, inst, l.Get("character"))

	assert.Equal(t, []asset.Entity{1, 2, 3}, inst.Entities())
	assert.Equal(t, asset.Entity(4), inst.Root())
	require.Equal(t, 1, inst.SkinCount())
	assert.Equal(t, "armature", inst.SkinNameAt(0))
	assert.Equal(t, []asset.Entity{2, 3}, inst.JointsAt(0))
	assert.Equal(t, []asset.Entity{1}, inst.SkinTargetsAt(0))

	mis := inst.MaterialInstances()
	require.Len(t, mis, 2)
	red, blue := mis[0], mis[1]
	assert.Equal(t, "red", red.Name())
	assert.Equal(t, "blue", blue.Name())
	assert.Equal(t, []assignment{{1, 0, red}, {1, 1, blue}}, rm.assignments)

	assert.Equal(t, [4]float32{1, 0, 0, 1}, float4(red, BaseColorParameter))
	metallic, ok := red.ParameterFloat(MetallicParameter)
	require.True(t, ok)
	assert.InDelta(t, 0.25, metallic, 1e-6)
	assert.InDelta(t, 0.3, red.MaskThreshold(), 1e-6)
	assert.True(t, red.IsDepthWriteEnabled())

	assert.Equal(t, [4]float32{0, 0, 1, 1}, float4(blue, BaseColorParameter))
	blueMetallic, _ := blue.ParameterFloat(MetallicParameter)
	assert.Equal(t, float32(1), blueMetallic, "glTF default")
	assert.True(t, blue.IsDoubleSided())
	assert.Equal(t, raster.CullNone, blue.CullingMode())
	assert.False(t, blue.IsDepthWriteEnabled())

	assert.Equal(t, 1, rec.Count("CreateTexture"), "the shared texture is uploaded once")
	redTex := red.SamplerBindings()[0]
	assert.True(t, redTex.Texture.IsValid())
	assert.Equal(t, redTex.Texture, blue.SamplerBindings()[0].Texture)
	assert.Equal(t, sampler.MagFilterNearest, redTex.Params.MagFilter)
	assert.Equal(t, sampler.MinFilterLinearMipmapNearest, redTex.Params.MinFilter)
	assert.Equal(t, sampler.WrapClampToEdge, redTex.Params.WrapS)
	assert.Equal(t, sampler.WrapRepeat, redTex.Params.WrapT)

	require.Equal(t, 2, inst.MaterialVariantCount())
	assert.Equal(t, "red", inst.MaterialVariantNameAt(0))
	assert.Equal(t, "blue", inst.MaterialVariantNameAt(1))
	rm.assignments = nil
	inst.ApplyMaterialVariant(1)
	assert.Equal(t, []assignment{{1, 0, blue}}, rm.assignments)

	require.NoError(t, red.Commit(rec))
	require.NoError(t, blue.Commit(rec))
	l.Evict("character")
	assert.Nil(t, l.Get("character"))
	assert.Equal(t, 1, rec.Count("DestroyTexture"))
	assert.Equal(t, 2, rec.Count("DestroyBufferObject"))
	assert.Equal(t, 2, rec.Count("DestroySamplerGroup"))

	m.Destroy(rec)
	assert.Zero(t, rec.Live())
}

func TestLoadFileCachesByPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "albedo.png"), pngBytes(t), 0o644))
	path := filepath.Join(dir, "character.gltf")
	require.NoError(t, os.WriteFile(path, marshal(t, testDocument(map[string]any{"uri": "albedo.png"})), 0o644))

	rec := drivertest.NewRecorder()
	l := NewLoader(WithDriver(rec), WithMaterial(newTestMaterial(t, rec)))

	first, err := l.Load(path)
	require.NoError(t, err)
	second, err := l.Load(path)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, rec.Count("CreateTexture"))
	assert.Len(t, l.Instances(), 1)
}

// glb packs a JSON document and a binary chunk into a GLB container.
func glb(jsonData, bin []byte) []byte {
	pad := func(b []byte, with byte) []byte {
		for len(b)%4 != 0 {
			b = append(b, with)
		}
		return b
	}
	jsonData = pad(jsonData, ' ')
	bin = pad(bin, 0)

	var out bytes.Buffer
	total := 12 + 8 + len(jsonData) + 8 + len(bin)
	_ = binary.Write(&out, binary.LittleEndian, gltfGLBHeader{Magic: gltfGLBMagic, Version: gltfGLBVersion, Length: uint32(total)})
	_ = binary.Write(&out, binary.LittleEndian, gltfGLBChunkHeader{ChunkLength: uint32(len(jsonData)), ChunkType: gltfGLBChunkJSON})
	out.Write(jsonData)
	_ = binary.Write(&out, binary.LittleEndian, gltfGLBChunkHeader{ChunkLength: uint32(len(bin)), ChunkType: gltfGLBChunkBIN})
	out.Write(bin)
	return out.Bytes()
}

func TestLoadReaderGLBImageFromBufferView(t *testing.T) {
	img := pngBytes(t)
	doc := testDocument(map[string]any{"bufferView": 0, "mimeType": "image/png"})
	doc["buffers"] = []any{map[string]any{"byteLength": len(img)}}
	doc["bufferViews"] = []any{map[string]any{"buffer": 0, "byteLength": len(img)}}

	rec := drivertest.NewRecorder()
	l := NewLoader(WithDriver(rec), WithMaterial(newTestMaterial(t, rec)))

	inst, err := l.LoadReader("character.glb", bytes.NewReader(glb(marshal(t, doc), img)), true)
	require.NoError(t, err)
	assert.Equal(t, 2, len(inst.MaterialInstances()))
	assert.Equal(t, 1, rec.Count("CreateTexture"))
}

func TestLoadErrors(t *testing.T) {
	rec := drivertest.NewRecorder()
	m := newTestMaterial(t, rec)
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t))

	_, err := NewLoader().LoadReader("x", bytes.NewReader(marshal(t, testDocument(map[string]any{"uri": uri}))), false)
	assert.ErrorIs(t, err, ErrNoMaterial)

	l := NewLoader(WithDriver(rec), WithMaterial(m))

	_, err = l.Load("character.obj")
	assert.ErrorContains(t, err, "unsupported asset format")

	_, err = l.LoadReader("v1", bytes.NewReader([]byte(`{"asset":{"version":"1.0"}}`)), false)
	assert.ErrorIs(t, err, errInvalidGLTFVersion)

	_, err = l.LoadReader("ext", bytes.NewReader([]byte(`{"asset":{"version":"2.0"},"extensionsRequired":["KHR_draco_mesh_compression"]}`)), false)
	assert.ErrorIs(t, err, errUnsupportedExtension)

	_, err = l.LoadReader("glb", bytes.NewReader([]byte("not a glb file")), true)
	assert.ErrorIs(t, err, errInvalidGLBMagic)

	doc := testDocument(map[string]any{"uri": uri})
	doc["nodes"] = []any{map[string]any{"mesh": 3}}
	doc["skins"] = []any{}
	_, err = l.LoadReader("mesh", bytes.NewReader(marshal(t, doc)), false)
	assert.ErrorContains(t, err, "mesh 3 out of range")

	doc = testDocument(map[string]any{"uri": uri})
	doc["skins"] = []any{map[string]any{"joints": []int{9}}}
	_, err = l.LoadReader("skin", bytes.NewReader(marshal(t, doc)), false)
	assert.ErrorContains(t, err, "joint node 9 out of range")

	assert.Empty(t, l.Instances())
}

func TestFailedImportReleasesTextures(t *testing.T) {
	rec := drivertest.NewRecorder()
	l := NewLoader(WithDriver(rec), WithMaterial(newTestMaterial(t, rec)))

	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t))
	doc := testDocument(map[string]any{"uri": uri})
	doc["skins"] = []any{map[string]any{"joints": []int{9}}}

	_, err := l.LoadReader("broken", bytes.NewReader(marshal(t, doc)), false)
	assert.ErrorContains(t, err, "joint node 9 out of range")
	assert.Equal(t, 1, rec.Count("CreateTexture"))
	assert.Equal(t, 1, rec.Count("DestroyTexture"))
	assert.Nil(t, l.Get("broken"))
}

func TestTextureErrorsStopBeforeUpload(t *testing.T) {
	rec := drivertest.NewRecorder()
	l := NewLoader(WithDriver(rec), WithMaterial(newTestMaterial(t, rec)))

	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t))
	doc := testDocument(map[string]any{"uri": uri})
	doc["textures"] = []any{
		map[string]any{"source": 0},
		map[string]any{"source": 5},
	}
	blue := doc["materials"].([]any)[1].(map[string]any)
	blue["pbrMetallicRoughness"].(map[string]any)["baseColorTexture"] = map[string]any{"index": 1}

	_, err := l.LoadReader("missing", bytes.NewReader(marshal(t, doc)), false)
	assert.ErrorContains(t, err, "image index 5 out of range")

	garbage := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("not a png"))
	_, err = l.LoadReader("corrupt", bytes.NewReader(marshal(t, testDocument(map[string]any{"uri": garbage}))), false)
	assert.ErrorContains(t, err, "texture 0")

	assert.Zero(t, rec.Count("CreateTexture"))
	assert.Empty(t, l.Instances())
}

func TestTexturesDecodedInParallel(t *testing.T) {
	rec := drivertest.NewRecorder()
	m, err := material.NewMaterial(rec,
		material.WithName("pbr"),
		material.WithSamplers(
			sampler.Entry{Name: BaseColorMap, Type: sampler.Sampler2D},
			sampler.Entry{Name: NormalMap, Type: sampler.Sampler2D},
		),
	)
	require.NoError(t, err)
	l := NewLoader(WithDriver(rec), WithMaterial(m), WithDecodeWorkers(2))
	defer l.Close()

	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t))
	doc := testDocument(map[string]any{"uri": uri})
	doc["images"] = []any{map[string]any{"uri": uri}, map[string]any{"uri": uri}}
	doc["textures"] = []any{map[string]any{"source": 0}, map[string]any{"source": 1}}
	materials := doc["materials"].([]any)
	materials[0].(map[string]any)["normalTexture"] = map[string]any{"index": 1}
	materials[1].(map[string]any)["pbrMetallicRoughness"].(map[string]any)["baseColorTexture"] = map[string]any{"index": 1}

	inst, err := l.LoadReader("pair", bytes.NewReader(marshal(t, doc)), false)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Count("CreateTexture"))

	mis := inst.MaterialInstances()
	red, blue := mis[0].SamplerBindings(), mis[1].SamplerBindings()
	assert.NotEqual(t, red[0].Texture, red[1].Texture)
	assert.Equal(t, red[1].Texture, blue[0].Texture)
	assert.False(t, blue[1].Texture.IsValid())
}

func TestWebPSourcePreferred(t *testing.T) {
	rec := drivertest.NewRecorder()
	l := NewLoader(WithDriver(rec), WithMaterial(newTestMaterial(t, rec)))

	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t))
	doc := testDocument(map[string]any{"uri": uri})
	doc["extensionsRequired"] = []string{"EXT_texture_webp"}
	doc["images"] = []any{map[string]any{"uri": "data:image/png;base64,AA=="}, map[string]any{"name": "webp", "uri": uri}}
	doc["textures"] = []any{map[string]any{
		"source":     0,
		"extensions": map[string]any{"EXT_texture_webp": map[string]any{"source": 1}},
	}}

	_, err := l.LoadReader("webp", bytes.NewReader(marshal(t, doc)), false)
	require.NoError(t, err, "the broken core image must be ignored")
	assert.Equal(t, 1, rec.Count("CreateTexture"))
}

func TestClose(t *testing.T) {
	rec := drivertest.NewRecorder()
	l := NewLoader(WithDriver(rec), WithMaterial(newTestMaterial(t, rec)))

	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t))
	data := marshal(t, testDocument(map[string]any{"uri": uri}))
	_, err := l.LoadReader("character", bytes.NewReader(data), false)
	require.NoError(t, err)

	l.Close()
	assert.Empty(t, l.Instances())
	assert.Equal(t, 1, rec.Count("DestroyTexture"))

	_, err = l.LoadReader("character", bytes.NewReader(data), false)
	assert.ErrorIs(t, err, ErrClosed)
	l.Close()
}

func TestGLTFSamplerParams(t *testing.T) {
	nearest, linearMip, mirrored := gltfFilterNearest, gltfFilterLinearMipmapLinear, gltfWrapMirroredRepeat
	p := gltfSamplerParams(&gltfSampler{MagFilter: &nearest, MinFilter: &linearMip, WrapT: &mirrored})
	assert.Equal(t, sampler.MagFilterNearest, p.MagFilter)
	assert.Equal(t, sampler.MinFilterLinearMipmapLinear, p.MinFilter)
	assert.Equal(t, sampler.WrapRepeat, p.WrapS)
	assert.Equal(t, sampler.WrapMirroredRepeat, p.WrapT)

	assert.Equal(t, sampler.DefaultParams(), gltfSamplerParams(&gltfSampler{}))
}

func TestDecodeDataURI(t *testing.T) {
	data, mime, err := decodeDataURI("data:application/octet-stream;base64,AQID")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)
	assert.Equal(t, "application/octet-stream", mime)

	_, _, err = decodeDataURI("data:text/plain,hello")
	assert.ErrorContains(t, err, "unsupported data URI encoding")
	_, _, err = decodeDataURI("file.bin")
	assert.ErrorIs(t, err, errInvalidDataURI)
}
