package binding

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-matcore/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindingPointCounts(t *testing.T) {
	assert.Equal(t, 8, UniformBindingPointCount)
	assert.Equal(t, 3, SamplerBindingPointCount)
	assert.LessOrEqual(t, UniformBindingPointCount, UniformBindingCount)
	assert.LessOrEqual(t, SamplerBindingPointCount, SamplerBindingCount)
	assert.Equal(t, UniformBindingPoint(7), PerMaterialInstance)
	assert.Equal(t, SamplerBindingPoint(2), SamplerPerMaterialInstance)
}

func TestBindingPointString(t *testing.T) {
	assert.Equal(t, "PerMaterialInstance", PerMaterialInstance.String())
	assert.Equal(t, "Lights", Lights.String())
	assert.Equal(t, "UniformBindingPoint(12)", UniformBindingPoint(12).String())
	assert.Equal(t, "PerView", SamplerPerView.String())
	assert.Equal(t, "SamplerBindingPoint(9)", SamplerBindingPoint(9).String())
}

func recoverConfigError(t *testing.T, fn func()) *common.ConfigError {
	t.Helper()
	var cfgErr *common.ConfigError
	func() {
		defer func() {
			r := recover()
			require.NotNil(t, r, "expected a panic")
			err, ok := r.(error)
			require.True(t, ok)
			require.True(t, errors.As(err, &cfgErr))
		}()
		fn()
	}()
	return cfgErr
}

func TestCheckUniformBindingPoint(t *testing.T) {
	assert.NotPanics(t, func() { CheckUniformBindingPoint("test", 7, 8) })

	cfgErr := recoverConfigError(t, func() { CheckUniformBindingPoint("test", 9, 8) })
	assert.ErrorIs(t, cfgErr, common.ErrBindingOutOfRange)
	assert.Contains(t, cfgErr.Error(), "uniform binding point 9, capacity 8")

	recoverConfigError(t, func() { CheckUniformBindingPoint("test", 8, 8) })
	recoverConfigError(t, func() { CheckUniformBindingPoint("test", -1, 8) })
}

func TestCheckSamplerBindingPoint(t *testing.T) {
	assert.NotPanics(t, func() { CheckSamplerBindingPoint("test", SamplerBindingCount-1, SamplerBindingCount) })
	cfgErr := recoverConfigError(t, func() { CheckSamplerBindingPoint("test", SamplerBindingCount, SamplerBindingCount) })
	assert.ErrorIs(t, cfgErr, common.ErrBindingOutOfRange)
}

func TestEngineLimitsFitUBO(t *testing.T) {
	assert.LessOrEqual(t, MaxBoneCount*boneSize, MinspecUBOSize)
	assert.LessOrEqual(t, MaxMorphTargetCount*morphTargetSize, MinspecUBOSize)
	assert.Equal(t, 255, MaxLightIndex)
}
