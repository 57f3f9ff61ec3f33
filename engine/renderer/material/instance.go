package material

import (
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-matcore/common"
	"github.com/Carmen-Shannon/oxy-matcore/engine/binding"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/driver"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/raster"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/sampler"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/uniform"
)

// materialInstance is the implementation of the MaterialInstance interface.
type materialInstance struct {
	material   *material
	id         uint32
	name       string
	sortingKey uint64

	uniforms *uniform.Buffer
	samplers *sampler.Group
	ubHandle driver.BufferHandle
	sbHandle driver.SamplerGroupHandle

	state raster.State
}

// MaterialInstance holds the parameter values and fixed-function state used to draw with a Material.
//
// Parameter setters write into CPU-side mirrors and mark them dirty; Commit uploads dirty mirrors and
// Use binds the uploaded resources. Fixed-function setters change state applied at bind time and never
// mark a mirror dirty.
//
// An instance is not safe for concurrent use: every setter and the Commit/Use pair of a draw must run
// on the goroutine recording that draw.
type MaterialInstance interface {
	// Material returns the material the instance was created from.
	//
	// Returns:
	//   - Material: the material
	Material() Material

	// Name returns the instance name.
	//
	// Returns:
	//   - string: the name
	Name() string

	// SortingKey returns the key draws are sorted by: the material id in the high 32 bits and the
	// instance id in the low 32 bits.
	//
	// Returns:
	//   - uint64: the sorting key
	SortingKey() uint64

	// Commit uploads the dirty mirrors. It makes no driver call when nothing changed since the previous
	// commit. Buffers and sampler groups are created on the first commit that needs them.
	//
	// Parameters:
	//   - drv: the driver
	//
	// Returns:
	//   - error: an error if the driver failed to create or update a resource; the mirrors stay dirty
	Commit(drv driver.Driver) error

	// Use binds the uniform buffer and the sampler group to the per-material-instance binding points.
	// A resource that was never committed is skipped.
	//
	// Parameters:
	//   - drv: the driver
	Use(drv driver.Driver)

	// Terminate releases the GPU resources of the instance. The mirrors are kept and marked dirty, so
	// a later commit recreates the resources. Calling Terminate twice is a no-op.
	//
	// Parameters:
	//   - drv: the driver
	Terminate(drv driver.Driver)

	// IsDirty reports whether the next Commit has anything to upload.
	//
	// Returns:
	//   - bool: true if the uniform or the sampler mirror is dirty
	IsDirty() bool

	// UniformBuffer returns a copy of the uniform mirror.
	//
	// Returns:
	//   - []byte: the uniform bytes, laid out per the material's uniform block
	UniformBuffer() []byte

	// SamplerBindings returns a copy of the sampler mirror.
	//
	// Returns:
	//   - []sampler.Binding: one binding per sampler of the material's sampler block
	SamplerBindings() []sampler.Binding

	// BufferHandle returns the uniform buffer created by Commit, or the null handle.
	BufferHandle() driver.BufferHandle

	// SamplerGroupHandle returns the sampler group created by Commit, or the null handle.
	SamplerGroupHandle() driver.SamplerGroupHandle

	// SetParameterFloat writes a float uniform.
	//
	// Parameters:
	//   - name: the uniform name
	//   - v: the value
	//
	// Returns:
	//   - error: a *common.LookupError when the uniform is missing or has another type (NoThrow policy)
	SetParameterFloat(name string, v float32) error
	// SetParameterFloat2 writes a vec2 uniform. See SetParameterFloat.
	SetParameterFloat2(name string, v [2]float32) error
	// SetParameterFloat3 writes a vec3 uniform. See SetParameterFloat.
	SetParameterFloat3(name string, v [3]float32) error
	// SetParameterFloat4 writes a vec4 uniform. See SetParameterFloat.
	SetParameterFloat4(name string, v [4]float32) error
	// SetParameterInt writes an int uniform. See SetParameterFloat.
	SetParameterInt(name string, v int32) error
	// SetParameterInt2 writes an ivec2 uniform. See SetParameterFloat.
	SetParameterInt2(name string, v [2]int32) error
	// SetParameterInt3 writes an ivec3 uniform. See SetParameterFloat.
	SetParameterInt3(name string, v [3]int32) error
	// SetParameterInt4 writes an ivec4 uniform. See SetParameterFloat.
	SetParameterInt4(name string, v [4]int32) error
	// SetParameterUint writes a uint uniform. See SetParameterFloat.
	SetParameterUint(name string, v uint32) error
	// SetParameterUint2 writes a uvec2 uniform. See SetParameterFloat.
	SetParameterUint2(name string, v [2]uint32) error
	// SetParameterUint3 writes a uvec3 uniform. See SetParameterFloat.
	SetParameterUint3(name string, v [3]uint32) error
	// SetParameterUint4 writes a uvec4 uniform. See SetParameterFloat.
	SetParameterUint4(name string, v [4]uint32) error
	// SetParameterBool writes a bool uniform. See SetParameterFloat.
	SetParameterBool(name string, v bool) error
	// SetParameterBool2 writes a bvec2 uniform. See SetParameterFloat.
	SetParameterBool2(name string, v [2]bool) error
	// SetParameterBool3 writes a bvec3 uniform. See SetParameterFloat.
	SetParameterBool3(name string, v [3]bool) error
	// SetParameterBool4 writes a bvec4 uniform. See SetParameterFloat.
	SetParameterBool4(name string, v [4]bool) error
	// SetParameterMat3 writes a column-major mat3 uniform. See SetParameterFloat.
	SetParameterMat3(name string, v [9]float32) error
	// SetParameterMat4 writes a column-major mat4 uniform. See SetParameterFloat.
	SetParameterMat4(name string, v [16]float32) error

	// SetParameterFloatArray writes consecutive elements of a float, vec2, vec3 or vec4 uniform array.
	//
	// Parameters:
	//   - name: the uniform name
	//   - first: the index of the first element written
	//   - values: the element components, packed
	//
	// Returns:
	//   - error: a *common.LookupError on a missing uniform, a type mismatch or elements past the end
	SetParameterFloatArray(name string, first int, values []float32) error
	// SetParameterIntArray writes consecutive elements of an int, ivec2, ivec3 or ivec4 uniform array.
	// See SetParameterFloatArray.
	SetParameterIntArray(name string, first int, values []int32) error
	// SetParameterUintArray writes consecutive elements of a uint or uvec uniform array. See
	// SetParameterFloatArray.
	SetParameterUintArray(name string, first int, values []uint32) error
	// SetParameterBoolArray writes consecutive elements of a bool or bvec uniform array. See
	// SetParameterFloatArray.
	SetParameterBoolArray(name string, first int, values []bool) error
	// SetParameterMat3Array writes consecutive column-major mat3 elements. See SetParameterFloatArray.
	SetParameterMat3Array(name string, first int, values [][9]float32) error
	// SetParameterMat4Array writes consecutive column-major mat4 elements. See SetParameterFloatArray.
	SetParameterMat4Array(name string, first int, values [][16]float32) error

	// SetParameterStruct copies the packed bytes of one element of a struct uniform. The caller lays
	// data out to match the struct declaration; bytes past len(data) are left untouched.
	//
	// Parameters:
	//   - name: the uniform name
	//   - index: the array element, 0 for a single struct
	//   - data: the element bytes, at most the element width
	//
	// Returns:
	//   - error: a *common.LookupError on a missing uniform, a non-struct uniform, an element past the
	//     end or data wider than the element
	SetParameterStruct(name string, index int, data []byte) error

	// SetParameterTexture binds a texture to a sampler parameter.
	//
	// Parameters:
	//   - name: the sampler name
	//   - texture: the texture
	//   - params: the sampling parameters
	//
	// Returns:
	//   - error: a *common.LookupError when the sampler is missing (NoThrow policy)
	SetParameterTexture(name string, texture driver.TextureHandle, params sampler.Params) error

	// ParameterFloat reads back a float uniform. It never panics.
	//
	// Parameters:
	//   - name: the uniform name
	//
	// Returns:
	//   - float32: the value
	//   - bool: false if the material has no float uniform with that name
	ParameterFloat(name string) (float32, bool)

	// SetMaskThreshold sets the alpha-mask cutoff, clamped to [0, 1].
	SetMaskThreshold(threshold float32) error
	// MaskThreshold returns the alpha-mask cutoff, or 0 when the material is not masked.
	MaskThreshold() float32
	// SetSpecularAntiAliasingVariance sets the specular anti-aliasing variance, clamped to [0, 1].
	SetSpecularAntiAliasingVariance(variance float32) error
	// SpecularAntiAliasingVariance returns the specular anti-aliasing variance.
	SpecularAntiAliasingVariance() float32
	// SetSpecularAntiAliasingThreshold sets the specular anti-aliasing threshold. The uniform holds
	// the squared threshold clamped to [0, 1].
	SetSpecularAntiAliasingThreshold(threshold float32) error
	// SpecularAntiAliasingThreshold returns the stored squared threshold.
	SpecularAntiAliasingThreshold() float32

	// SetDoubleSided toggles double-sided lighting. Turning it on also disables culling.
	//
	// Parameters:
	//   - doubleSided: the new flag
	//
	// Returns:
	//   - error: a *common.LookupError when the material has no double-sided capability (NoThrow policy)
	SetDoubleSided(doubleSided bool) error
	// IsDoubleSided reports the double-sided flag.
	IsDoubleSided() bool

	// SetTransparencyMode sets how transparent objects are drawn.
	SetTransparencyMode(mode raster.TransparencyMode)
	// TransparencyMode returns the transparency mode.
	TransparencyMode() raster.TransparencyMode
	// SetCullingMode sets which faces are culled.
	SetCullingMode(mode raster.CullingMode)
	// CullingMode returns the culling mode.
	CullingMode() raster.CullingMode
	// SetColorWrite enables or disables writes to the colour buffer.
	SetColorWrite(enable bool)
	// IsColorWriteEnabled reports whether colour writes are enabled.
	IsColorWriteEnabled() bool
	// SetDepthWrite enables or disables writes to the depth buffer.
	SetDepthWrite(enable bool)
	// IsDepthWriteEnabled reports whether depth writes are enabled.
	IsDepthWriteEnabled() bool
	// SetDepthCulling enables the reversed-Z depth test, or disables it by letting every fragment pass.
	SetDepthCulling(enable bool)
	// IsDepthCullingEnabled reports whether the depth test rejects any fragment.
	IsDepthCullingEnabled() bool
	// DepthFunc returns the depth comparison.
	DepthFunc() raster.CompareFunc

	// SetStencilWrite enables or disables writes to the stencil buffer.
	SetStencilWrite(enable bool)
	// IsStencilWriteEnabled reports whether stencil writes are enabled.
	IsStencilWriteEnabled() bool
	// SetStencilCompareFunction sets the stencil test of the selected faces.
	SetStencilCompareFunction(fn raster.CompareFunc, face raster.StencilFace)
	// SetStencilOpStencilFail sets the operation run when the stencil test fails on the selected faces.
	SetStencilOpStencilFail(op raster.StencilOperation, face raster.StencilFace)
	// SetStencilOpDepthFail sets the operation run when the depth test fails on the selected faces.
	SetStencilOpDepthFail(op raster.StencilOperation, face raster.StencilFace)
	// SetStencilOpDepthStencilPass sets the operation run when both tests pass on the selected faces.
	SetStencilOpDepthStencilPass(op raster.StencilOperation, face raster.StencilFace)
	// SetStencilReferenceValue sets the stencil reference of the selected faces.
	SetStencilReferenceValue(value uint8, face raster.StencilFace)
	// SetStencilReadMask sets the stencil read mask of the selected faces.
	SetStencilReadMask(mask uint8, face raster.StencilFace)
	// SetStencilWriteMask sets the stencil write mask of the selected faces.
	SetStencilWriteMask(mask uint8, face raster.StencilFace)
	// StencilState returns the stencil configuration of both faces.
	StencilState() raster.StencilState

	// SetPolygonOffset sets the depth bias. Both terms are negated for the reversed-Z depth buffer.
	//
	// Parameters:
	//   - slope: the slope-scaled term
	//   - constant: the constant term
	SetPolygonOffset(slope, constant float32)
	// PolygonOffset returns the stored, negated, depth bias.
	PolygonOffset() raster.PolygonOffset

	// SetScissor restricts drawing to a rectangle. Width and height are clamped to math.MaxInt32.
	//
	// Parameters:
	//   - left: the left edge
	//   - bottom: the bottom edge
	//   - width: the rectangle width
	//   - height: the rectangle height
	SetScissor(left, bottom int32, width, height uint32)
	// UnsetScissor removes the scissor rectangle. It is a no-op when none is set.
	UnsetScissor()
	// Scissor returns the scissor rectangle, raster.NoScissor when none is set.
	Scissor() raster.Viewport

	// RasterState returns the full fixed-function state.
	//
	// Returns:
	//   - raster.State: a copy of the state
	RasterState() raster.State
}

var _ MaterialInstance = &materialInstance{}

// newInstance creates an instance of m with fresh mirrors and the material's initial feature values.
func newInstance(m *material, name string) *materialInstance {
	mi := &materialInstance{
		material: m,
		id:       m.nextInstanceID.Add(1),
		name:     name,
		uniforms: uniform.NewBuffer(m.uniformBlock.Size()),
		samplers: sampler.NewGroup(m.samplerBlock.Size()),
		state:    m.rasterState,
	}
	mi.sortingKey = m.sortingKey(mi.id)

	if m.masked {
		mi.SetMaskThreshold(m.maskThreshold)
	}
	if m.doubleSidedCapable {
		mi.SetDoubleSided(m.doubleSided)
	}
	if m.specularAntiAliasing {
		mi.SetSpecularAntiAliasingVariance(m.specularAntiAliasingVariance)
		mi.SetSpecularAntiAliasingThreshold(m.specularAntiAliasingThreshold)
	}
	return mi
}

// Duplicate creates an instance holding a copy of the parameter values and fixed-function state of other.
// GPU resources are not shared: the duplicate is dirty, so its first commit uploads everything once.
//
// Parameters:
//   - other: the instance to copy
//   - name: the name of the duplicate, or "" to keep the name of other
//
// Returns:
//   - MaterialInstance: the duplicate, or nil if other is nil
func Duplicate(other MaterialInstance, name string) MaterialInstance {
	src, ok := other.(*materialInstance)
	if !ok || src == nil {
		return nil
	}
	return duplicate(src, common.Coalesce(name, src.name))
}

func duplicate(src *materialInstance, name string) *materialInstance {
	m := src.material
	dst := &materialInstance{
		material: m,
		id:       m.nextInstanceID.Add(1),
		name:     name,
		uniforms: src.uniforms.Clone(),
		samplers: src.samplers.Clone(),
	}
	dst.sortingKey = m.sortingKey(dst.id)
	dst.state = src.state
	return dst
}

func (mi *materialInstance) Material() Material {
	return mi.material
}

func (mi *materialInstance) Name() string {
	return mi.name
}

func (mi *materialInstance) SortingKey() uint64 {
	return mi.sortingKey
}

func (mi *materialInstance) Commit(drv driver.Driver) error {
	if !mi.uniforms.IsDirty() && !mi.samplers.IsDirty() {
		return nil
	}
	return mi.commitSlow(drv)
}

func (mi *materialInstance) commitSlow(drv driver.Driver) error {
	if mi.uniforms.IsDirty() {
		if mi.uniforms.Size() > 0 {
			if !mi.ubHandle.IsValid() {
				h, err := drv.CreateBufferObject(mi.uniforms.Size(), driver.BufferUsageDynamic)
				if err != nil {
					return fmt.Errorf("failed to create uniform buffer for material instance %q: %w", mi.name, err)
				}
				mi.ubHandle = h
			}
			if err := drv.UpdateBufferObject(mi.ubHandle, mi.uniforms.Bytes(), 0); err != nil {
				return fmt.Errorf("failed to upload uniforms of material instance %q: %w", mi.name, err)
			}
		}
		mi.uniforms.Clean()
	}

	if mi.samplers.IsDirty() {
		if mi.samplers.Size() > 0 {
			if !mi.sbHandle.IsValid() {
				h, err := drv.CreateSamplerGroup(mi.samplers.Size())
				if err != nil {
					return fmt.Errorf("failed to create sampler group for material instance %q: %w", mi.name, err)
				}
				mi.sbHandle = h
			}
			if err := drv.UpdateSamplerGroup(mi.sbHandle, mi.samplers.Bindings()); err != nil {
				return fmt.Errorf("failed to upload samplers of material instance %q: %w", mi.name, err)
			}
		}
		mi.samplers.Clean()
	}

	common.Logger().Debug("material instance committed", "instance", mi.name, "buffer", mi.ubHandle, "samplers", mi.sbHandle)
	return nil
}

func (mi *materialInstance) Use(drv driver.Driver) {
	if mi.ubHandle.IsValid() {
		drv.BindUniformBuffer(binding.PerMaterialInstance, mi.ubHandle)
	}
	if mi.sbHandle.IsValid() {
		drv.BindSamplers(binding.SamplerPerMaterialInstance, mi.sbHandle)
	}
}

func (mi *materialInstance) Terminate(drv driver.Driver) {
	if !mi.ubHandle.IsValid() && !mi.sbHandle.IsValid() {
		return
	}
	drv.DestroyBufferObject(mi.ubHandle)
	drv.DestroySamplerGroup(mi.sbHandle)
	mi.ubHandle = 0
	mi.sbHandle = 0
	mi.uniforms.Invalidate()
	mi.samplers.Invalidate()
	common.Logger().Debug("material instance terminated", "instance", mi.name)
}

func (mi *materialInstance) IsDirty() bool {
	return mi.uniforms.IsDirty() || mi.samplers.IsDirty()
}

func (mi *materialInstance) UniformBuffer() []byte {
	return common.Clone(mi.uniforms.Bytes())
}

func (mi *materialInstance) SamplerBindings() []sampler.Binding {
	return mi.samplers.Bindings()
}

func (mi *materialInstance) BufferHandle() driver.BufferHandle {
	return mi.ubHandle
}

func (mi *materialInstance) SamplerGroupHandle() driver.SamplerGroupHandle {
	return mi.sbHandle
}

func (mi *materialInstance) SetDoubleSided(doubleSided bool) error {
	if err := mi.SetParameterBool(DoubleSidedParameter, doubleSided); err != nil {
		return err
	}
	if doubleSided {
		mi.state.Culling = raster.CullNone
	}
	return nil
}

func (mi *materialInstance) IsDoubleSided() bool {
	info, ok := mi.material.uniformBlock.UniformInfo(DoubleSidedParameter)
	return ok && mi.uniforms.Word(info.BufferOffset(0)) != 0
}

func (mi *materialInstance) SetTransparencyMode(mode raster.TransparencyMode) {
	mi.state.Transparency = mode
}

func (mi *materialInstance) TransparencyMode() raster.TransparencyMode {
	return mi.state.Transparency
}

func (mi *materialInstance) SetCullingMode(mode raster.CullingMode) {
	mi.state.Culling = mode
}

func (mi *materialInstance) CullingMode() raster.CullingMode {
	return mi.state.Culling
}

func (mi *materialInstance) SetColorWrite(enable bool) {
	mi.state.ColorWrite = enable
}

func (mi *materialInstance) IsColorWriteEnabled() bool {
	return mi.state.ColorWrite
}

func (mi *materialInstance) SetDepthWrite(enable bool) {
	mi.state.DepthWrite = enable
}

func (mi *materialInstance) IsDepthWriteEnabled() bool {
	return mi.state.DepthWrite
}

func (mi *materialInstance) SetDepthCulling(enable bool) {
	if enable {
		mi.state.DepthFunc = raster.CompareGreaterEqual
	} else {
		mi.state.DepthFunc = raster.CompareAlways
	}
}

func (mi *materialInstance) IsDepthCullingEnabled() bool {
	return mi.state.DepthFunc != raster.CompareAlways
}

func (mi *materialInstance) DepthFunc() raster.CompareFunc {
	return mi.state.DepthFunc
}

func (mi *materialInstance) SetStencilWrite(enable bool) {
	mi.state.Stencil.Write = enable
}

func (mi *materialInstance) IsStencilWriteEnabled() bool {
	return mi.state.Stencil.Write
}

func (mi *materialInstance) SetStencilCompareFunction(fn raster.CompareFunc, face raster.StencilFace) {
	mi.state.Stencil.Apply(face, func(s *raster.StencilFaceState) { s.Compare = fn })
}

func (mi *materialInstance) SetStencilOpStencilFail(op raster.StencilOperation, face raster.StencilFace) {
	mi.state.Stencil.Apply(face, func(s *raster.StencilFaceState) { s.StencilFail = op })
}

func (mi *materialInstance) SetStencilOpDepthFail(op raster.StencilOperation, face raster.StencilFace) {
	mi.state.Stencil.Apply(face, func(s *raster.StencilFaceState) { s.DepthFail = op })
}

func (mi *materialInstance) SetStencilOpDepthStencilPass(op raster.StencilOperation, face raster.StencilFace) {
	mi.state.Stencil.Apply(face, func(s *raster.StencilFaceState) { s.DepthStencilPass = op })
}

func (mi *materialInstance) SetStencilReferenceValue(value uint8, face raster.StencilFace) {
	mi.state.Stencil.Apply(face, func(s *raster.StencilFaceState) { s.Reference = value })
}

func (mi *materialInstance) SetStencilReadMask(mask uint8, face raster.StencilFace) {
	mi.state.Stencil.Apply(face, func(s *raster.StencilFaceState) { s.ReadMask = mask })
}

func (mi *materialInstance) SetStencilWriteMask(mask uint8, face raster.StencilFace) {
	mi.state.Stencil.Apply(face, func(s *raster.StencilFaceState) { s.WriteMask = mask })
}

func (mi *materialInstance) StencilState() raster.StencilState {
	return mi.state.Stencil
}

func (mi *materialInstance) SetPolygonOffset(slope, constant float32) {
	mi.state.PolygonOffset = raster.PolygonOffset{Slope: -slope, Constant: -constant}
}

func (mi *materialInstance) PolygonOffset() raster.PolygonOffset {
	return mi.state.PolygonOffset
}

func (mi *materialInstance) SetScissor(left, bottom int32, width, height uint32) {
	mi.state.Scissor = raster.Viewport{
		Left:   left,
		Bottom: bottom,
		Width:  min(width, math.MaxInt32),
		Height: min(height, math.MaxInt32),
	}
}

func (mi *materialInstance) UnsetScissor() {
	mi.state.Scissor = raster.NoScissor
}

func (mi *materialInstance) Scissor() raster.Viewport {
	return mi.state.Scissor
}

func (mi *materialInstance) RasterState() raster.State {
	return mi.state
}
