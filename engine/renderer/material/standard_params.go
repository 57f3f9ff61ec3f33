package material

import (
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/uniform"
	"github.com/chewxy/math32"
)

// ParamsBlockName is the name of the uniform and sampler blocks of every material.
const ParamsBlockName = "MaterialParams"

// Names of the uniforms a material adds to its block for the features it enables.
const (
	// MaskThresholdParameter holds the alpha-mask cutoff of masked materials.
	MaskThresholdParameter = "_maskThreshold"
	// DoubleSidedParameter is 1 when back faces are lit as front faces.
	DoubleSidedParameter = "_doubleSided"
	// SpecularAntiAliasingVarianceParameter holds the screen-space variance of specular anti-aliasing.
	SpecularAntiAliasingVarianceParameter = "_specularAntiAliasingVariance"
	// SpecularAntiAliasingThresholdParameter holds the squared clamping threshold of specular anti-aliasing.
	SpecularAntiAliasingThresholdParameter = "_specularAntiAliasingThreshold"
)

// Defaults applied by WithMaskThreshold and WithSpecularAntiAliasing when the caller passes a negative value.
const (
	DefaultMaskThreshold                 float32 = 0.4
	DefaultSpecularAntiAliasingVariance  float32 = 0.15
	DefaultSpecularAntiAliasingThreshold float32 = 0.2
)

// standardFields lists the feature uniforms m appends after its own parameters.
func (m *material) standardFields() []uniform.Field {
	var fields []uniform.Field
	if m.masked {
		fields = append(fields, uniform.Field{Name: MaskThresholdParameter, Type: uniform.Float})
	}
	if m.doubleSidedCapable {
		fields = append(fields, uniform.Field{Name: DoubleSidedParameter, Type: uniform.Bool})
	}
	if m.specularAntiAliasing {
		fields = append(fields,
			uniform.Field{Name: SpecularAntiAliasingVarianceParameter, Type: uniform.Float},
			uniform.Field{Name: SpecularAntiAliasingThresholdParameter, Type: uniform.Float},
		)
	}
	return fields
}

// saturate clamps v to [0, 1].
func saturate(v float32) float32 {
	return math32.Max(0, math32.Min(v, 1))
}
