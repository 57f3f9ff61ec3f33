// Package binding is the engine-wide registry of uniform-buffer and sampler-group binding points.
//
// Every producer of bindings (program descriptors, material instances) and every consumer (the driver)
// numbers its slots from the enumerations below. Capacities are the minimum guaranteed by the target
// hardware and are checked against the enumerations at compile time.
package binding

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-matcore/common"
)

// UniformBindingPoint identifies the slot a uniform buffer is bound to.
type UniformBindingPoint uint8

const (
	// PerView holds uniforms updated once per view.
	PerView UniformBindingPoint = iota
	// PerRenderable holds uniforms updated once per renderable.
	PerRenderable
	// PerRenderableBones holds skinning bone data for a renderable.
	PerRenderableBones
	// PerRenderableMorphing holds morph target weights for a render primitive.
	PerRenderableMorphing
	// Lights holds the light data array.
	Lights
	// Shadow holds punctual shadow data.
	Shadow
	// FroxelRecords holds the froxel record buffer.
	FroxelRecords
	// PerMaterialInstance holds the uniforms of one material instance.
	PerMaterialInstance

	uniformBindingPointCount
)

// SamplerBindingPoint identifies the slot a sampler group is bound to.
type SamplerBindingPoint uint8

const (
	// SamplerPerView holds samplers updated once per view.
	SamplerPerView SamplerBindingPoint = iota
	// SamplerPerRenderableMorphing holds the morphing sampler of a render primitive.
	SamplerPerRenderableMorphing
	// SamplerPerMaterialInstance holds the samplers of one material instance.
	SamplerPerMaterialInstance

	samplerBindingPointCount
)

const (
	// UniformBindingCount is the number of uniform-buffer binding slots the driver guarantees.
	UniformBindingCount = 10
	// SamplerBindingCount is the number of sampler-group binding slots the driver guarantees.
	SamplerBindingCount = 4

	// UniformBindingPointCount is the number of uniform binding points the engine uses.
	UniformBindingPointCount = int(uniformBindingPointCount)
	// SamplerBindingPointCount is the number of sampler binding points the engine uses.
	SamplerBindingPointCount = int(samplerBindingPointCount)
)

// Engine limits bound by the minimum uniform buffer size.
const (
	// MinspecUBOSize is the largest uniform buffer, in bytes, every supported device accepts.
	MinspecUBOSize = 16384
	// MaxLightCount is the maximum number of lights in the light buffer.
	MaxLightCount = 256
	// MaxLightIndex is the largest valid light index.
	MaxLightIndex = MaxLightCount - 1
	// MaxShadowCastingSpots is the maximum number of spot lights casting shadows.
	MaxShadowCastingSpots = 14
	// MaxShadowCascades is the maximum number of cascades of a directional light.
	MaxShadowCascades = 4
	// MaxInstances is the maximum number of automatic instances of a renderable.
	MaxInstances = 64
	// MaxBoneCount is the maximum number of bones of one renderable. Each bone takes 32 bytes.
	MaxBoneCount = 256
	// MaxMorphTargetCount is the maximum number of morph targets of one renderable. Each takes 16 bytes.
	MaxMorphTargetCount = 256

	boneSize        = 32
	morphTargetSize = 16
)

// Compile-time capacity checks: a negative array length fails the build.
var (
	_ [UniformBindingCount - UniformBindingPointCount]struct{}
	_ [SamplerBindingCount - SamplerBindingPointCount]struct{}
	_ [MinspecUBOSize - MaxBoneCount*boneSize]struct{}
	_ [MinspecUBOSize - MaxMorphTargetCount*morphTargetSize]struct{}
	_ [1 - MaxBoneCount&(MaxBoneCount-1)]struct{} // MaxBoneCount is a power of two
)

var uniformBindingPointNames = [...]string{
	PerView:               "PerView",
	PerRenderable:         "PerRenderable",
	PerRenderableBones:    "PerRenderableBones",
	PerRenderableMorphing: "PerRenderableMorphing",
	Lights:                "Lights",
	Shadow:                "Shadow",
	FroxelRecords:         "FroxelRecords",
	PerMaterialInstance:   "PerMaterialInstance",
}

var samplerBindingPointNames = [...]string{
	SamplerPerView:               "PerView",
	SamplerPerRenderableMorphing: "PerRenderableMorphing",
	SamplerPerMaterialInstance:   "PerMaterialInstance",
}

func (p UniformBindingPoint) String() string {
	if int(p) < len(uniformBindingPointNames) {
		return uniformBindingPointNames[p]
	}
	return fmt.Sprintf("UniformBindingPoint(%d)", uint8(p))
}

func (p SamplerBindingPoint) String() string {
	if int(p) < len(samplerBindingPointNames) {
		return samplerBindingPointNames[p]
	}
	return fmt.Sprintf("SamplerBindingPoint(%d)", uint8(p))
}

// CheckUniformBindingPoint panics with a *common.ConfigError when bindingPoint is not below capacity.
// It is the single place where uniform binding capacities are enforced.
//
// Parameters:
//   - component: the component declaring the binding, used in the error message
//   - bindingPoint: the requested binding point
//   - capacity: the number of available slots
func CheckUniformBindingPoint(component string, bindingPoint, capacity int) {
	if bindingPoint < 0 || bindingPoint >= capacity {
		common.PanicConfig(component, common.ErrBindingOutOfRange,
			"uniform binding point %d, capacity %d", bindingPoint, capacity)
	}
}

// CheckSamplerBindingPoint panics with a *common.ConfigError when bindingPoint is not below capacity.
//
// Parameters:
//   - component: the component declaring the binding, used in the error message
//   - bindingPoint: the requested binding point
//   - capacity: the number of available slots
func CheckSamplerBindingPoint(component string, bindingPoint, capacity int) {
	if bindingPoint < 0 || bindingPoint >= capacity {
		common.PanicConfig(component, common.ErrBindingOutOfRange,
			"sampler binding point %d, capacity %d", bindingPoint, capacity)
	}
}
