package material

import (
	"github.com/Carmen-Shannon/oxy-matcore/common"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/program"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/raster"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/sampler"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/uniform"
)

// MaterialBuilderOption is a function that configures a material during NewMaterial.
type MaterialBuilderOption func(*material)

// WithName is an option builder that sets the name of the material.
//
// Parameters:
//   - name: the identifier for the material
//
// Returns:
//   - MaterialBuilderOption: a function that applies the name option to a material
func WithName(name string) MaterialBuilderOption {
	return func(m *material) {
		m.name = name
	}
}

// WithErrorPolicy is an option builder that selects how parameter lookups report misses.
//
// Parameters:
//   - policy: the error policy of the material's blocks and instances
//
// Returns:
//   - MaterialBuilderOption: a function that applies the policy to a material
func WithErrorPolicy(policy common.ErrorPolicy) MaterialBuilderOption {
	return func(m *material) {
		m.policy = policy
	}
}

// WithParameters is an option builder that appends uniform parameters to the material. Parameters are
// laid out in the order they are added, followed by the uniforms of enabled features.
//
// Parameters:
//   - fields: the uniform declarations
//
// Returns:
//   - MaterialBuilderOption: a function that appends the parameters to a material
func WithParameters(fields ...uniform.Field) MaterialBuilderOption {
	return func(m *material) {
		m.parameters = append(m.parameters, fields...)
	}
}

// WithSamplers is an option builder that appends sampler parameters to the material.
//
// Parameters:
//   - entries: the sampler declarations, in binding order
//
// Returns:
//   - MaterialBuilderOption: a function that appends the samplers to a material
func WithSamplers(entries ...sampler.Entry) MaterialBuilderOption {
	return func(m *material) {
		m.samplers = append(m.samplers, entries...)
	}
}

// WithShader is an option builder that sets the source of one shader stage.
// An invalid stage is ignored.
//
// Parameters:
//   - stage: the shader stage
//   - source: the stage source, copied
//
// Returns:
//   - MaterialBuilderOption: a function that applies the shader to a material
func WithShader(stage program.ShaderStage, source []byte) MaterialBuilderOption {
	return func(m *material) {
		if int(stage) < len(m.shaders) {
			m.shaders[stage] = common.Clone(source)
		}
	}
}

// WithSamplerVisibility is an option builder that sets the stages the material samplers are visible to.
// The default is the fragment stage.
//
// Parameters:
//   - stages: the stage flags
//
// Returns:
//   - MaterialBuilderOption: a function that applies the visibility to a material
func WithSamplerVisibility(stages program.ShaderStageFlags) MaterialBuilderOption {
	return func(m *material) {
		m.samplerStages = stages
	}
}

// WithRasterState is an option builder that replaces the fixed-function state instances start from.
//
// Parameters:
//   - state: the raster state
//
// Returns:
//   - MaterialBuilderOption: a function that applies the state to a material
func WithRasterState(state raster.State) MaterialBuilderOption {
	return func(m *material) {
		m.rasterState = state
	}
}

// WithCullingMode is an option builder that sets the default culling mode.
//
// Parameters:
//   - mode: the culling mode
//
// Returns:
//   - MaterialBuilderOption: a function that applies the culling mode to a material
func WithCullingMode(mode raster.CullingMode) MaterialBuilderOption {
	return func(m *material) {
		m.rasterState.Culling = mode
	}
}

// WithTransparencyMode is an option builder that sets the default transparency mode.
//
// Parameters:
//   - mode: the transparency mode
//
// Returns:
//   - MaterialBuilderOption: a function that applies the transparency mode to a material
func WithTransparencyMode(mode raster.TransparencyMode) MaterialBuilderOption {
	return func(m *material) {
		m.rasterState.Transparency = mode
	}
}

// WithDoubleSided is an option builder that gives the material double-sided capability and sets
// whether new instances start double-sided. Double-sided instances disable culling.
//
// Parameters:
//   - doubleSided: the initial double-sided flag of instances
//
// Returns:
//   - MaterialBuilderOption: a function that applies the option to a material
func WithDoubleSided(doubleSided bool) MaterialBuilderOption {
	return func(m *material) {
		m.doubleSidedCapable = true
		m.doubleSided = doubleSided
	}
}

// WithMaskThreshold is an option builder that makes the material alpha-masked.
//
// Parameters:
//   - threshold: the initial cutoff, clamped to [0, 1]; a negative value selects DefaultMaskThreshold
//
// Returns:
//   - MaterialBuilderOption: a function that applies the option to a material
func WithMaskThreshold(threshold float32) MaterialBuilderOption {
	return func(m *material) {
		m.masked = true
		m.maskThreshold = threshold
		if threshold < 0 {
			m.maskThreshold = DefaultMaskThreshold
		}
	}
}

// WithSpecularAntiAliasing is an option builder that enables specular anti-aliasing.
//
// Parameters:
//   - variance: the initial screen-space variance; a negative value selects the default
//   - threshold: the initial clamping threshold; a negative value selects the default
//
// Returns:
//   - MaterialBuilderOption: a function that applies the option to a material
func WithSpecularAntiAliasing(variance, threshold float32) MaterialBuilderOption {
	return func(m *material) {
		m.specularAntiAliasing = true
		m.specularAntiAliasingVariance = variance
		if variance < 0 {
			m.specularAntiAliasingVariance = DefaultSpecularAntiAliasingVariance
		}
		m.specularAntiAliasingThreshold = threshold
		if threshold < 0 {
			m.specularAntiAliasingThreshold = DefaultSpecularAntiAliasingThreshold
		}
	}
}
