package material

import (
	"slices"

	"github.com/Carmen-Shannon/oxy-matcore/common"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/driver"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/sampler"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/uniform"
)

// vectorComponents maps the scalar and vector types accepted by the array setters to their component
// count.
var vectorComponents = map[uniform.Type]int{
	uniform.Float: 1, uniform.Float2: 2, uniform.Float3: 3, uniform.Float4: 4,
	uniform.Int: 1, uniform.Int2: 2, uniform.Int3: 3, uniform.Int4: 4,
	uniform.Uint: 1, uniform.Uint2: 2, uniform.Uint3: 3, uniform.Uint4: 4,
	uniform.Bool: 1, uniform.Bool2: 2, uniform.Bool3: 3, uniform.Bool4: 4,
}

var (
	floatVectors = []uniform.Type{uniform.Float, uniform.Float2, uniform.Float3, uniform.Float4}
	intVectors   = []uniform.Type{uniform.Int, uniform.Int2, uniform.Int3, uniform.Int4}
	uintVectors  = []uniform.Type{uniform.Uint, uniform.Uint2, uniform.Uint3, uniform.Uint4}
	boolVectors  = []uniform.Type{uniform.Bool, uniform.Bool2, uniform.Bool3, uniform.Bool4}
)

// miss reports a failed parameter lookup according to the material's error policy.
func (mi *materialInstance) miss(block, name string, index int, err error) error {
	lookupErr := &common.LookupError{Block: block, Name: name, Index: index, Err: err}
	if mi.material.policy == common.ErrorPolicyThrow {
		panic(lookupErr)
	}
	common.Logger().Warn("material parameter not set", "instance", mi.name, "err", lookupErr)
	return lookupErr
}

// lookup resolves a uniform whose type is one of accept and checks that count elements starting at
// first exist.
func (mi *materialInstance) lookup(name string, first, count int, accept ...uniform.Type) (uniform.Info, error) {
	block := mi.material.uniformBlock
	info, ok := block.UniformInfo(name)
	switch {
	case !ok:
		return info, mi.miss(block.Name(), name, -1, common.ErrUnknownParameter)
	case !slices.Contains(accept, info.Type):
		return info, mi.miss(block.Name(), name, -1, common.ErrTypeMismatch)
	case first < 0 || first+count > int(info.ElementCount()):
		return info, mi.miss(block.Name(), name, first+count-1, common.ErrIndexOutOfRange)
	}
	return info, nil
}

// setUniform writes v to element 0 of the named uniform through set.
func setUniform[T any](mi *materialInstance, name string, typ uniform.Type, v T, set func(*uniform.Buffer, int, T)) error {
	info, err := mi.lookup(name, 0, 1, typ)
	if err != nil {
		return err
	}
	set(mi.uniforms, info.BufferOffset(0), v)
	return nil
}

func (mi *materialInstance) SetParameterFloat(name string, v float32) error {
	return setUniform(mi, name, uniform.Float, v, (*uniform.Buffer).SetFloat)
}

func (mi *materialInstance) SetParameterFloat2(name string, v [2]float32) error {
	return setUniform(mi, name, uniform.Float2, v, (*uniform.Buffer).SetFloat2)
}

func (mi *materialInstance) SetParameterFloat3(name string, v [3]float32) error {
	return setUniform(mi, name, uniform.Float3, v, (*uniform.Buffer).SetFloat3)
}

func (mi *materialInstance) SetParameterFloat4(name string, v [4]float32) error {
	return setUniform(mi, name, uniform.Float4, v, (*uniform.Buffer).SetFloat4)
}

func (mi *materialInstance) SetParameterInt(name string, v int32) error {
	return setUniform(mi, name, uniform.Int, v, (*uniform.Buffer).SetInt)
}

func (mi *materialInstance) SetParameterInt2(name string, v [2]int32) error {
	return setUniform(mi, name, uniform.Int2, v, (*uniform.Buffer).SetInt2)
}

func (mi *materialInstance) SetParameterInt3(name string, v [3]int32) error {
	return setUniform(mi, name, uniform.Int3, v, (*uniform.Buffer).SetInt3)
}

func (mi *materialInstance) SetParameterInt4(name string, v [4]int32) error {
	return setUniform(mi, name, uniform.Int4, v, (*uniform.Buffer).SetInt4)
}

func (mi *materialInstance) SetParameterUint(name string, v uint32) error {
	return setUniform(mi, name, uniform.Uint, v, (*uniform.Buffer).SetUint)
}

func (mi *materialInstance) SetParameterUint2(name string, v [2]uint32) error {
	return setUniform(mi, name, uniform.Uint2, v, (*uniform.Buffer).SetUint2)
}

func (mi *materialInstance) SetParameterUint3(name string, v [3]uint32) error {
	return setUniform(mi, name, uniform.Uint3, v, (*uniform.Buffer).SetUint3)
}

func (mi *materialInstance) SetParameterUint4(name string, v [4]uint32) error {
	return setUniform(mi, name, uniform.Uint4, v, (*uniform.Buffer).SetUint4)
}

func (mi *materialInstance) SetParameterBool(name string, v bool) error {
	return setUniform(mi, name, uniform.Bool, v, (*uniform.Buffer).SetBool)
}

func (mi *materialInstance) SetParameterBool2(name string, v [2]bool) error {
	return setUniform(mi, name, uniform.Bool2, v, (*uniform.Buffer).SetBool2)
}

func (mi *materialInstance) SetParameterBool3(name string, v [3]bool) error {
	return setUniform(mi, name, uniform.Bool3, v, (*uniform.Buffer).SetBool3)
}

func (mi *materialInstance) SetParameterBool4(name string, v [4]bool) error {
	return setUniform(mi, name, uniform.Bool4, v, (*uniform.Buffer).SetBool4)
}

func (mi *materialInstance) SetParameterMat3(name string, v [9]float32) error {
	return setUniform(mi, name, uniform.Mat3, v, (*uniform.Buffer).SetMat3)
}

func (mi *materialInstance) SetParameterMat4(name string, v [16]float32) error {
	return setUniform(mi, name, uniform.Mat4, v, (*uniform.Buffer).SetMat4)
}

// setVectorArray writes packed vector components to consecutive elements starting at first. The
// element type of the named uniform must be one of accept.
func setVectorArray[T any](mi *materialInstance, name string, first int, values []T, accept []uniform.Type,
	set func(*uniform.Buffer, int, int, int, []T)) error {
	block := mi.material.uniformBlock
	info, ok := block.UniformInfo(name)
	if !ok {
		return mi.miss(block.Name(), name, -1, common.ErrUnknownParameter)
	}
	components := vectorComponents[info.Type]
	if !slices.Contains(accept, info.Type) || len(values)%components != 0 {
		return mi.miss(block.Name(), name, -1, common.ErrTypeMismatch)
	}
	if _, err := mi.lookup(name, first, len(values)/components, info.Type); err != nil {
		return err
	}
	set(mi.uniforms, info.BufferOffset(first), int(info.Stride)*4, components, values)
	return nil
}

// setMatrixArray writes whole matrices to consecutive elements starting at first.
func setMatrixArray[M any](mi *materialInstance, name string, typ uniform.Type, first int, values []M,
	set func(*uniform.Buffer, int, M)) error {
	info, err := mi.lookup(name, first, len(values), typ)
	if err != nil {
		return err
	}
	for i, v := range values {
		set(mi.uniforms, info.BufferOffset(first+i), v)
	}
	return nil
}

func (mi *materialInstance) SetParameterFloatArray(name string, first int, values []float32) error {
	return setVectorArray(mi, name, first, values, floatVectors, (*uniform.Buffer).SetFloatArray)
}

func (mi *materialInstance) SetParameterIntArray(name string, first int, values []int32) error {
	return setVectorArray(mi, name, first, values, intVectors, (*uniform.Buffer).SetIntArray)
}

func (mi *materialInstance) SetParameterUintArray(name string, first int, values []uint32) error {
	return setVectorArray(mi, name, first, values, uintVectors, (*uniform.Buffer).SetUintArray)
}

func (mi *materialInstance) SetParameterBoolArray(name string, first int, values []bool) error {
	return setVectorArray(mi, name, first, values, boolVectors, (*uniform.Buffer).SetBoolArray)
}

func (mi *materialInstance) SetParameterMat3Array(name string, first int, values [][9]float32) error {
	return setMatrixArray(mi, name, uniform.Mat3, first, values, (*uniform.Buffer).SetMat3)
}

func (mi *materialInstance) SetParameterMat4Array(name string, first int, values [][16]float32) error {
	return setMatrixArray(mi, name, uniform.Mat4, first, values, (*uniform.Buffer).SetMat4)
}

func (mi *materialInstance) SetParameterStruct(name string, index int, data []byte) error {
	info, err := mi.lookup(name, index, 1, uniform.Struct)
	if err != nil {
		return err
	}
	if len(data) > int(info.Width)*4 {
		return mi.miss(mi.material.uniformBlock.Name(), name, index, common.ErrTypeMismatch)
	}
	mi.uniforms.SetBytes(info.BufferOffset(index), data)
	return nil
}

func (mi *materialInstance) SetParameterTexture(name string, texture driver.TextureHandle, params sampler.Params) error {
	block := mi.material.samplerBlock
	info, ok := block.SamplerInfo(name)
	if !ok {
		return mi.miss(block.Name(), name, -1, common.ErrUnknownParameter)
	}
	mi.samplers.SetSampler(int(info.Offset), texture, params)
	return nil
}

func (mi *materialInstance) ParameterFloat(name string) (float32, bool) {
	info, ok := mi.material.uniformBlock.UniformInfo(name)
	if !ok || info.Type != uniform.Float {
		return 0, false
	}
	return mi.uniforms.FloatAt(info.BufferOffset(0)), true
}

func (mi *materialInstance) SetMaskThreshold(threshold float32) error {
	return mi.SetParameterFloat(MaskThresholdParameter, saturate(threshold))
}

func (mi *materialInstance) MaskThreshold() float32 {
	v, _ := mi.ParameterFloat(MaskThresholdParameter)
	return v
}

func (mi *materialInstance) SetSpecularAntiAliasingVariance(variance float32) error {
	return mi.SetParameterFloat(SpecularAntiAliasingVarianceParameter, saturate(variance))
}

func (mi *materialInstance) SpecularAntiAliasingVariance() float32 {
	v, _ := mi.ParameterFloat(SpecularAntiAliasingVarianceParameter)
	return v
}

func (mi *materialInstance) SetSpecularAntiAliasingThreshold(threshold float32) error {
	return mi.SetParameterFloat(SpecularAntiAliasingThresholdParameter, saturate(threshold*threshold))
}

func (mi *materialInstance) SpecularAntiAliasingThreshold() float32 {
	v, _ := mi.ParameterFloat(SpecularAntiAliasingThresholdParameter)
	return v
}
