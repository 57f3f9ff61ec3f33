package raster

import (
	"github.com/cogentcore/webgpu/wgpu"
)

var compareFunctionMap = map[CompareFunc]wgpu.CompareFunction{
	CompareLessEqual:    wgpu.CompareFunctionLessEqual,
	CompareGreaterEqual: wgpu.CompareFunctionGreaterEqual,
	CompareLess:         wgpu.CompareFunctionLess,
	CompareGreater:      wgpu.CompareFunctionGreater,
	CompareEqual:        wgpu.CompareFunctionEqual,
	CompareNotEqual:     wgpu.CompareFunctionNotEqual,
	CompareAlways:       wgpu.CompareFunctionAlways,
	CompareNever:        wgpu.CompareFunctionNever,
}

var stencilOperationMap = map[StencilOperation]wgpu.StencilOperation{
	StencilKeep:          wgpu.StencilOperationKeep,
	StencilZero:          wgpu.StencilOperationZero,
	StencilReplace:       wgpu.StencilOperationReplace,
	StencilIncrement:     wgpu.StencilOperationIncrementClamp,
	StencilIncrementWrap: wgpu.StencilOperationIncrementWrap,
	StencilDecrement:     wgpu.StencilOperationDecrementClamp,
	StencilDecrementWrap: wgpu.StencilOperationDecrementWrap,
	StencilInvert:        wgpu.StencilOperationInvert,
}

// WGPU converts the comparison to its WebGPU equivalent. Unknown values map to CompareFunctionUndefined.
func (c CompareFunc) WGPU() wgpu.CompareFunction {
	if f, ok := compareFunctionMap[c]; ok {
		return f
	}
	return wgpu.CompareFunctionUndefined
}

// WGPU converts the operation to its WebGPU equivalent. Unknown values map to StencilOperationKeep.
func (o StencilOperation) WGPU() wgpu.StencilOperation {
	if op, ok := stencilOperationMap[o]; ok {
		return op
	}
	return wgpu.StencilOperationKeep
}

// WGPU converts the culling mode to a WebGPU cull mode. WebGPU cannot cull both faces; for
// CullFrontAndBack the second result is false and the draw should be skipped.
//
// Returns:
//   - wgpu.CullMode: the cull mode
//   - bool: false if nothing would be rasterized
func (c CullingMode) WGPU() (wgpu.CullMode, bool) {
	switch c {
	case CullFront:
		return wgpu.CullModeFront, true
	case CullBack:
		return wgpu.CullModeBack, true
	case CullFrontAndBack:
		return wgpu.CullModeNone, false
	default:
		return wgpu.CullModeNone, true
	}
}

// WGPU converts the face state to a WebGPU stencil face state.
func (f StencilFaceState) WGPU() wgpu.StencilFaceState {
	return wgpu.StencilFaceState{
		Compare:     f.Compare.WGPU(),
		FailOp:      f.StencilFail.WGPU(),
		DepthFailOp: f.DepthFail.WGPU(),
		PassOp:      f.DepthStencilPass.WGPU(),
	}
}

// ColorWriteMask returns the WebGPU colour write mask for the state.
func (s State) ColorWriteMask() wgpu.ColorWriteMask {
	if s.ColorWrite {
		return wgpu.ColorWriteMaskAll
	}
	return wgpu.ColorWriteMask(0)
}

// DepthStencil builds the WebGPU depth-stencil state for a pipeline rendering into a depth attachment
// of the given format. WebGPU shares the stencil masks between faces, so the front face masks are
// used; the reference value is dynamic and set on the pass with SetStencilReference.
//
// Parameters:
//   - format: the depth attachment format
//
// Returns:
//   - *wgpu.DepthStencilState: the depth-stencil state
func (s State) DepthStencil(format wgpu.TextureFormat) *wgpu.DepthStencilState {
	ds := &wgpu.DepthStencilState{
		Format:              format,
		DepthWriteEnabled:   s.DepthWrite,
		DepthCompare:        s.DepthFunc.WGPU(),
		DepthBias:           int32(s.PolygonOffset.Constant),
		DepthBiasSlopeScale: s.PolygonOffset.Slope,
		StencilFront:        s.Stencil.Front.WGPU(),
		StencilBack:         s.Stencil.Back.WGPU(),
		StencilReadMask:     uint32(s.Stencil.Front.ReadMask),
		StencilWriteMask:    0,
	}
	if s.Stencil.Write {
		ds.StencilWriteMask = uint32(s.Stencil.Front.WriteMask)
	}
	return ds
}

// ScissorRect returns the scissor rectangle clipped to a target of width by height pixels, in the
// top-left origin convention of SetScissorRect.
//
// Parameters:
//   - width: the render target width
//   - height: the render target height
//
// Returns:
//   - x, y, w, h: the clipped rectangle
func (s State) ScissorRect(width, height uint32) (x, y, w, h uint32) {
	left := max(int64(s.Scissor.Left), 0)
	bottom := max(int64(s.Scissor.Bottom), 0)
	right := min(int64(s.Scissor.Left)+int64(s.Scissor.Width), int64(width))
	top := min(int64(s.Scissor.Bottom)+int64(s.Scissor.Height), int64(height))
	if right <= left || top <= bottom {
		return 0, 0, 0, 0
	}
	return uint32(left), uint32(int64(height) - top), uint32(right - left), uint32(top - bottom)
}
