// Package raster holds the fixed-function state a material instance applies alongside its uniform and
// sampler bindings: culling, depth and colour writes, stencil, scissor and polygon offset.
//
// The engine renders with a reversed depth buffer (near = 1, far = 0), so the default depth test is
// CompareGreaterEqual and polygon offsets are negated before they reach the driver.
package raster

import (
	"fmt"
	"math"
)

// CullingMode selects which faces are discarded.
type CullingMode uint8

const (
	CullNone CullingMode = iota
	CullFront
	CullBack
	CullFrontAndBack
)

var cullingNames = [...]string{
	CullNone:         "none",
	CullFront:        "front",
	CullBack:         "back",
	CullFrontAndBack: "front_and_back",
}

func (c CullingMode) String() string {
	if int(c) < len(cullingNames) {
		return cullingNames[c]
	}
	return fmt.Sprintf("CullingMode(%d)", uint8(c))
}

// ParseCullingMode converts a culling mode name into a CullingMode. The empty string is CullBack.
func ParseCullingMode(s string) (CullingMode, bool) {
	if s == "" {
		return CullBack, true
	}
	for i, name := range cullingNames {
		if name == s {
			return CullingMode(i), true
		}
	}
	return CullBack, false
}

// CompareFunc is a depth, stencil or shadow-sampler comparison.
type CompareFunc uint8

const (
	CompareLessEqual CompareFunc = iota
	CompareGreaterEqual
	CompareLess
	CompareGreater
	CompareEqual
	CompareNotEqual
	CompareAlways
	CompareNever
)

var compareNames = [...]string{
	CompareLessEqual:    "le",
	CompareGreaterEqual: "ge",
	CompareLess:         "l",
	CompareGreater:      "g",
	CompareEqual:        "e",
	CompareNotEqual:     "ne",
	CompareAlways:       "a",
	CompareNever:        "n",
}

func (c CompareFunc) String() string {
	if int(c) < len(compareNames) {
		return compareNames[c]
	}
	return fmt.Sprintf("CompareFunc(%d)", uint8(c))
}

// StencilOperation is applied to the stencil buffer when a stencil or depth test resolves.
type StencilOperation uint8

const (
	StencilKeep StencilOperation = iota
	StencilZero
	StencilReplace
	StencilIncrement
	StencilIncrementWrap
	StencilDecrement
	StencilDecrementWrap
	StencilInvert
)

// StencilFace selects the faces a stencil setter applies to.
type StencilFace uint8

const (
	StencilFaceFront StencilFace = 1 << iota
	StencilFaceBack

	StencilFaceFrontAndBack = StencilFaceFront | StencilFaceBack
)

// TransparencyMode controls how transparent objects are drawn.
type TransparencyMode uint8

const (
	// TransparencyDefault draws the object once, with the material's culling.
	TransparencyDefault TransparencyMode = iota
	// TransparencyTwoPassesOneSide draws depth first, then colour, with the material's culling.
	TransparencyTwoPassesOneSide
	// TransparencyTwoPassesTwoSides draws back faces, then front faces.
	TransparencyTwoPassesTwoSides
)

var transparencyNames = [...]string{
	TransparencyDefault:           "default",
	TransparencyTwoPassesOneSide:  "two_passes_one_side",
	TransparencyTwoPassesTwoSides: "two_passes_two_sides",
}

func (t TransparencyMode) String() string {
	if int(t) < len(transparencyNames) {
		return transparencyNames[t]
	}
	return fmt.Sprintf("TransparencyMode(%d)", uint8(t))
}

// ParseTransparencyMode converts a transparency mode name. The empty string is TransparencyDefault.
func ParseTransparencyMode(s string) (TransparencyMode, bool) {
	if s == "" {
		return TransparencyDefault, true
	}
	for i, name := range transparencyNames {
		if name == s {
			return TransparencyMode(i), true
		}
	}
	return TransparencyDefault, false
}

// StencilFaceState is the stencil configuration of one face.
type StencilFaceState struct {
	Compare          CompareFunc
	StencilFail      StencilOperation
	DepthFail        StencilOperation
	DepthStencilPass StencilOperation
	Reference        uint8
	ReadMask         uint8
	WriteMask        uint8
}

// StencilState is the stencil configuration of both faces.
type StencilState struct {
	Front StencilFaceState
	Back  StencilFaceState
	Write bool
}

// Apply runs fn on every face selected by face.
//
// Parameters:
//   - face: the faces to modify
//   - fn: the modification
func (s *StencilState) Apply(face StencilFace, fn func(*StencilFaceState)) {
	if face&StencilFaceFront != 0 {
		fn(&s.Front)
	}
	if face&StencilFaceBack != 0 {
		fn(&s.Back)
	}
}

// PolygonOffset is the depth bias applied to rasterized polygons.
type PolygonOffset struct {
	Slope    float32
	Constant float32
}

// Viewport is a rectangle in window coordinates. It is also used for scissor rectangles.
type Viewport struct {
	Left   int32
	Bottom int32
	Width  uint32
	Height uint32
}

// NoScissor is the scissor rectangle that clips nothing.
var NoScissor = Viewport{Left: 0, Bottom: 0, Width: math.MaxInt32, Height: math.MaxInt32}

// State is the full fixed-function state of a material instance.
type State struct {
	Culling       CullingMode
	ColorWrite    bool
	DepthWrite    bool
	DepthFunc     CompareFunc
	Stencil       StencilState
	Scissor       Viewport
	PolygonOffset PolygonOffset
	Transparency  TransparencyMode
}

// DefaultState returns the state of a newly created material: back-face culling, colour and depth
// writes on, reversed-Z depth test, stencil disabled and no scissor.
//
// Returns:
//   - State: the default state
func DefaultState() State {
	face := StencilFaceState{
		Compare:          CompareAlways,
		StencilFail:      StencilKeep,
		DepthFail:        StencilKeep,
		DepthStencilPass: StencilKeep,
		ReadMask:         0xff,
		WriteMask:        0xff,
	}
	return State{
		Culling:    CullBack,
		ColorWrite: true,
		DepthWrite: true,
		DepthFunc:  CompareGreaterEqual,
		Stencil:    StencilState{Front: face, Back: face},
		Scissor:    NoScissor,
	}
}
