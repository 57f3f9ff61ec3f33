package loader

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-matcore/common"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/sampler"
)

// importedMaterial is a glTF material reduced to the values a material instance can take: factors keyed by
// uniform parameter name and texture indices keyed by sampler name.
type importedMaterial struct {
	name        string
	float4s     map[string][4]float32
	float3s     map[string][3]float32
	floats      map[string]float32
	textures    map[string]int
	alphaMode   string
	alphaCutoff float32
	doubleSided bool
}

// importedTexture is a glTF texture resolved to its image source and sampling parameters.
type importedTexture struct {
	source common.TextureSource
	params sampler.Params
}

// gltfMaterialExtractorImpl is the implementation of the gltfMaterialExtractor interface.
type gltfMaterialExtractorImpl struct {
	parser gltfParser
}

// gltfMaterialExtractor extracts materials and their textures from a parsed glTF document.
type gltfMaterialExtractor interface {
	// ExtractMaterial extracts a single material by index. glTF defaults apply to absent factors.
	//
	// Parameters:
	//   - materialIndex: the index of the material in the document
	//
	// Returns:
	//   - *importedMaterial: the extracted material
	//   - error: error if the index or one of its texture references is out of range
	ExtractMaterial(materialIndex int) (*importedMaterial, error)

	// ExtractTexture resolves a texture to its image source and sampler parameters. Image data is not
	// decoded.
	//
	// Parameters:
	//   - textureIndex: the index of the texture in the document
	//
	// Returns:
	//   - *importedTexture: the texture, or nil when it has no image source
	//   - error: error if the texture cannot be resolved
	ExtractTexture(textureIndex int) (*importedTexture, error)
}

var _ gltfMaterialExtractor = &gltfMaterialExtractorImpl{}

// newGLTFMaterialExtractor creates a new material extractor for a parsed document.
func newGLTFMaterialExtractor(parser gltfParser) gltfMaterialExtractor {
	return &gltfMaterialExtractorImpl{parser: parser}
}

func (e *gltfMaterialExtractorImpl) ExtractMaterial(materialIndex int) (*importedMaterial, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, errors.New("no document loaded")
	}
	if materialIndex < 0 || materialIndex >= len(doc.Materials) {
		return nil, fmt.Errorf("material index %d out of range", materialIndex)
	}

	mat := &doc.Materials[materialIndex]
	result := &importedMaterial{
		name:        mat.Name,
		float4s:     map[string][4]float32{BaseColorParameter: {1, 1, 1, 1}},
		float3s:     map[string][3]float32{EmissiveParameter: {0, 0, 0}},
		floats:      map[string]float32{MetallicParameter: 1, RoughnessParameter: 1, NormalScaleParameter: 1},
		textures:    make(map[string]int),
		alphaMode:   mat.AlphaMode,
		alphaCutoff: gltfDefaultAlphaCutoff,
		doubleSided: mat.DoubleSided,
	}
	if result.name == "" {
		result.name = fmt.Sprintf("material%d", materialIndex)
	}
	if mat.AlphaCutoff != nil {
		result.alphaCutoff = *mat.AlphaCutoff
	}

	if pbr := mat.PbrMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			result.float4s[BaseColorParameter] = *pbr.BaseColorFactor
		}
		if pbr.MetallicFactor != nil {
			result.floats[MetallicParameter] = *pbr.MetallicFactor
		}
		if pbr.RoughnessFactor != nil {
			result.floats[RoughnessParameter] = *pbr.RoughnessFactor
		}
		if pbr.BaseColorTexture != nil {
			result.textures[BaseColorMap] = pbr.BaseColorTexture.Index
		}
		if pbr.MetallicRoughnessTexture != nil {
			result.textures[MetallicRoughnessMap] = pbr.MetallicRoughnessTexture.Index
		}
	}

	if mat.NormalTexture != nil {
		result.textures[NormalMap] = mat.NormalTexture.Index
		if mat.NormalTexture.Scale != nil {
			result.floats[NormalScaleParameter] = *mat.NormalTexture.Scale
		}
	}
	if mat.OcclusionTexture != nil {
		result.textures[OcclusionMap] = mat.OcclusionTexture.Index
	}
	if mat.EmissiveTexture != nil {
		result.textures[EmissiveMap] = mat.EmissiveTexture.Index
	}
	if mat.EmissiveFactor != nil {
		result.float3s[EmissiveParameter] = *mat.EmissiveFactor
	}

	for name, index := range result.textures {
		if index < 0 || index >= len(doc.Textures) {
			return nil, fmt.Errorf("material %q: %s: texture index %d out of range", result.name, name, index)
		}
	}
	return result, nil
}

func (e *gltfMaterialExtractorImpl) ExtractTexture(textureIndex int) (*importedTexture, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, errors.New("no document loaded")
	}
	if textureIndex < 0 || textureIndex >= len(doc.Textures) {
		return nil, fmt.Errorf("texture index %d out of range", textureIndex)
	}

	tex := &doc.Textures[textureIndex]
	source := tex.Source
	if tex.Extensions != nil && tex.Extensions.WebP != nil && tex.Extensions.WebP.Source != nil {
		source = tex.Extensions.WebP.Source
	}
	if source == nil {
		return nil, nil
	}

	result := &importedTexture{params: sampler.DefaultParams()}
	if tex.Sampler != nil {
		if i := *tex.Sampler; i >= 0 && i < len(doc.Samplers) {
			result.params = gltfSamplerParams(&doc.Samplers[i])
		}
	}

	imageIndex := *source
	if imageIndex < 0 || imageIndex >= len(doc.Images) {
		return nil, fmt.Errorf("image index %d out of range", imageIndex)
	}
	img := &doc.Images[imageIndex]
	result.source.Name = common.Coalesce(img.Name, tex.Name, fmt.Sprintf("texture%d", textureIndex))

	switch {
	case img.BufferView != nil:
		data, err := e.parser.ReadBufferView(*img.BufferView)
		if err != nil {
			return nil, fmt.Errorf("failed to read image buffer view: %w", err)
		}
		result.source.Data = data
	case strings.HasPrefix(img.URI, "data:"):
		data, _, err := decodeDataURI(img.URI)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image data URI: %w", err)
		}
		result.source.Data = data
	case img.URI != "":
		result.source.Path = filepath.Join(e.parser.BaseDir(), img.URI)
	default:
		return nil, nil
	}
	return result, nil
}

// gltfSamplerParams converts a glTF sampler into sampling parameters. Absent fields keep the
// DefaultParams values (linear filtering, trilinear mipmapping, repeat).
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-sampler
func gltfSamplerParams(s *gltfSampler) sampler.Params {
	result := sampler.DefaultParams()

	if s.MagFilter != nil {
		switch *s.MagFilter {
		case gltfFilterNearest:
			result.MagFilter = sampler.MagFilterNearest
		case gltfFilterLinear:
			result.MagFilter = sampler.MagFilterLinear
		}
	}

	if s.MinFilter != nil {
		switch *s.MinFilter {
		case gltfFilterNearest:
			result.MinFilter = sampler.MinFilterNearest
		case gltfFilterLinear:
			result.MinFilter = sampler.MinFilterLinear
		case gltfFilterNearestMipmapNearest:
			result.MinFilter = sampler.MinFilterNearestMipmapNearest
		case gltfFilterLinearMipmapNearest:
			result.MinFilter = sampler.MinFilterLinearMipmapNearest
		case gltfFilterNearestMipmapLinear:
			result.MinFilter = sampler.MinFilterNearestMipmapLinear
		case gltfFilterLinearMipmapLinear:
			result.MinFilter = sampler.MinFilterLinearMipmapLinear
		}
	}

	if s.WrapS != nil {
		result.WrapS = gltfWrap(*s.WrapS)
	}
	if s.WrapT != nil {
		result.WrapT = gltfWrap(*s.WrapT)
	}
	return result
}

// gltfWrap converts a glTF wrap mode constant, defaulting to repeat.
func gltfWrap(wrap int) sampler.Wrap {
	switch wrap {
	case gltfWrapClampToEdge:
		return sampler.WrapClampToEdge
	case gltfWrapMirroredRepeat:
		return sampler.WrapMirroredRepeat
	default:
		return sampler.WrapRepeat
	}
}
