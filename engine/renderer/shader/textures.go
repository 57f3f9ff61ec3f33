package shader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/sampler"
)

// wgslTextureBaseMap maps sampler types to the base name of the sampled WGSL texture type.
var wgslTextureBaseMap = map[sampler.Type]string{
	sampler.Sampler2D:           "texture_2d",
	sampler.Sampler2DArray:      "texture_2d_array",
	sampler.SamplerCubemap:      "texture_cube",
	sampler.SamplerExternal:     "texture_2d",
	sampler.Sampler3D:           "texture_3d",
	sampler.SamplerCubemapArray: "texture_cube_array",
}

// wgslDepthTextureMap maps sampler types to the WGSL depth texture type used by shadow samplers.
var wgslDepthTextureMap = map[sampler.Type]string{
	sampler.Sampler2D:           "texture_depth_2d",
	sampler.Sampler2DArray:      "texture_depth_2d_array",
	sampler.SamplerCubemap:      "texture_depth_cube",
	sampler.SamplerCubemapArray: "texture_depth_cube_array",
}

// wgslSampleTypeMap maps sampler formats to the WGSL sample type parameter.
var wgslSampleTypeMap = map[sampler.Format]string{
	sampler.FormatFloat: "f32",
	sampler.FormatInt:   "i32",
	sampler.FormatUint:  "u32",
}

// TextureType returns the WGSL type of the texture variable backing a sampler.
//
// Parameters:
//   - info: the sampler declaration
//
// Returns:
//   - string: the WGSL type, e.g. "texture_2d<f32>" or "texture_depth_cube"
//   - error: an error if the combination has no WGSL equivalent (3D shadow samplers, multisampled
//     non-2D textures)
func TextureType(info sampler.Info) (string, error) {
	if info.Format == sampler.FormatShadow {
		name, ok := wgslDepthTextureMap[info.Type]
		if !ok {
			return "", fmt.Errorf("sampler %q: %s has no depth texture type", info.Name, info.Type)
		}
		if info.Multisample {
			if info.Type != sampler.Sampler2D {
				return "", fmt.Errorf("sampler %q: multisampled %s is not supported", info.Name, info.Type)
			}
			return "texture_depth_multisampled_2d", nil
		}
		return name, nil
	}

	base, ok := wgslTextureBaseMap[info.Type]
	if !ok {
		return "", fmt.Errorf("sampler %q: unknown sampler type %s", info.Name, info.Type)
	}
	sampleType, ok := wgslSampleTypeMap[info.Format]
	if !ok {
		return "", fmt.Errorf("sampler %q: unknown format %s", info.Name, info.Format)
	}
	if info.Multisample {
		if info.Type != sampler.Sampler2D {
			return "", fmt.Errorf("sampler %q: multisampled %s is not supported", info.Name, info.Type)
		}
		base = "texture_multisampled_2d"
	}
	return fmt.Sprintf("%s<%s>", base, sampleType), nil
}

// SamplerType returns the WGSL type of the sampler variable paired with a texture.
//
// Parameters:
//   - info: the sampler declaration
//
// Returns:
//   - string: "sampler_comparison" for shadow samplers, "sampler" otherwise
func SamplerType(info sampler.Info) string {
	if info.Format == sampler.FormatShadow {
		return "sampler_comparison"
	}
	return "sampler"
}

// SamplerVariable returns the name of the sampler variable generated for a texture variable.
func SamplerVariable(name string) string {
	return name + "Sampler"
}
