package sampler

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/raster"
)

// Type is the dimensionality of a sampled texture.
type Type uint8

const (
	Sampler2D Type = iota
	Sampler2DArray
	SamplerCubemap
	SamplerExternal
	Sampler3D
	SamplerCubemapArray
)

var typeNames = [...]string{
	Sampler2D:           "sampler2d",
	Sampler2DArray:      "sampler2d_array",
	SamplerCubemap:      "sampler_cubemap",
	SamplerExternal:     "sampler_external",
	Sampler3D:           "sampler3d",
	SamplerCubemapArray: "sampler_cubemap_array",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// ParseType converts a sampler type name into a Type.
//
// Parameters:
//   - s: the type name as printed by Type.String
//
// Returns:
//   - Type: the parsed type
//   - bool: false if the name is not recognized
func ParseType(s string) (Type, bool) {
	for i, name := range typeNames {
		if name == s {
			return Type(i), true
		}
	}
	return 0, false
}

// Format is the component format a sampler returns.
type Format uint8

const (
	FormatFloat Format = iota
	FormatInt
	FormatUint
	// FormatShadow samples a depth texture with a comparison.
	FormatShadow
)

var formatNames = [...]string{
	FormatFloat:  "float",
	FormatInt:    "int",
	FormatUint:   "uint",
	FormatShadow: "shadow",
}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

// ParseFormat converts a format name into a Format. The empty string is FormatFloat.
//
// Parameters:
//   - s: the format name
//
// Returns:
//   - Format: the parsed format
//   - bool: false if the name is not recognized
func ParseFormat(s string) (Format, bool) {
	if s == "" {
		return FormatFloat, true
	}
	for i, name := range formatNames {
		if name == s {
			return Format(i), true
		}
	}
	return FormatFloat, false
}

// MagFilter selects the magnification filter.
type MagFilter uint8

const (
	MagFilterNearest MagFilter = iota
	MagFilterLinear
)

// MinFilter selects the minification filter and the mipmap filter.
type MinFilter uint8

const (
	MinFilterNearest MinFilter = iota
	MinFilterLinear
	MinFilterNearestMipmapNearest
	MinFilterLinearMipmapNearest
	MinFilterNearestMipmapLinear
	MinFilterLinearMipmapLinear
)

// Wrap selects the addressing mode outside [0, 1].
type Wrap uint8

const (
	WrapClampToEdge Wrap = iota
	WrapRepeat
	WrapMirroredRepeat
)

// CompareMode enables depth comparison on shadow samplers.
type CompareMode uint8

const (
	CompareModeNone CompareMode = iota
	CompareModeCompareToTexture
)

// Params are the sampling parameters of one texture binding. Params is comparable and is used as a
// cache key by drivers.
type Params struct {
	MagFilter      MagFilter
	MinFilter      MinFilter
	WrapS          Wrap
	WrapT          Wrap
	WrapR          Wrap
	AnisotropyLog2 uint8
	CompareMode    CompareMode
	CompareFunc    raster.CompareFunc
}

// DefaultParams returns linear filtering with trilinear mipmapping and repeat addressing.
//
// Returns:
//   - Params: the default sampling parameters
func DefaultParams() Params {
	return Params{
		MagFilter:   MagFilterLinear,
		MinFilter:   MinFilterLinearMipmapLinear,
		WrapS:       WrapRepeat,
		WrapT:       WrapRepeat,
		WrapR:       WrapRepeat,
		CompareFunc: raster.CompareLessEqual,
	}
}

// MaxAnisotropy returns the anisotropy clamp the log2 value encodes.
func (p Params) MaxAnisotropy() uint16 {
	return 1 << min(p.AnisotropyLog2, 4)
}
