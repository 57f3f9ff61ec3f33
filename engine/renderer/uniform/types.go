package uniform

import "fmt"

// Type is the closed enumeration of element types a uniform field can have.
type Type uint8

const (
	Bool Type = iota
	Bool2
	Bool3
	Bool4
	Float
	Float2
	Float3
	Float4
	Int
	Int2
	Int3
	Int4
	Uint
	Uint2
	Uint3
	Uint4
	// Mat3 is a 3x3 float matrix stored as three columns padded to four words each.
	Mat3
	// Mat4 is a 4x4 float matrix.
	Mat4
	// Struct is a caller-defined structure whose element stride is supplied with the field.
	Struct
)

// Precision is the shader precision qualifier of a field. It does not affect the layout.
type Precision uint8

const (
	PrecisionDefault Precision = iota
	PrecisionLow
	PrecisionMedium
	PrecisionHigh
)

var typeNames = [...]string{
	Bool: "bool", Bool2: "bool2", Bool3: "bool3", Bool4: "bool4",
	Float: "float", Float2: "float2", Float3: "float3", Float4: "float4",
	Int: "int", Int2: "int2", Int3: "int3", Int4: "int4",
	Uint: "uint", Uint2: "uint2", Uint3: "uint3", Uint4: "uint4",
	Mat3: "mat3", Mat4: "mat4", Struct: "struct",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// ParseType converts a type name as printed by Type.String back into a Type.
//
// Parameters:
//   - s: the type name, e.g. "float3" or "mat4"
//
// Returns:
//   - Type: the parsed type
//   - bool: false if the name is not part of the enumeration
func ParseType(s string) (Type, bool) {
	for i, name := range typeNames {
		if name == s {
			return Type(i), true
		}
	}
	return 0, false
}

var precisionNames = [...]string{
	PrecisionDefault: "default",
	PrecisionLow:     "low",
	PrecisionMedium:  "medium",
	PrecisionHigh:    "high",
}

func (p Precision) String() string {
	if int(p) < len(precisionNames) {
		return precisionNames[p]
	}
	return fmt.Sprintf("Precision(%d)", uint8(p))
}

// ParsePrecision converts a precision name into a Precision. The empty string is PrecisionDefault.
//
// Parameters:
//   - s: the precision name
//
// Returns:
//   - Precision: the parsed precision
//   - bool: false if the name is not recognized
func ParsePrecision(s string) (Precision, bool) {
	if s == "" {
		return PrecisionDefault, true
	}
	for i, name := range precisionNames {
		if name == s {
			return Precision(i), true
		}
	}
	return PrecisionDefault, false
}

// typeLayout is the std140 layout of one element type, in 4-byte words.
type typeLayout struct {
	width uint32
	align uint32
}

// std140LayoutMap holds the element width and base alignment of every non-struct type.
//
//	scalars           | width 1, align 1
//	2-component vecs  | width 2, align 2
//	3-component vecs  | width 3, align 4
//	4-component vecs  | width 4, align 4
//	mat3              | width 12 (3 columns of vec4), align 4
//	mat4              | width 16, align 4
//
// Struct elements align to 4 words and take the caller supplied stride.
var std140LayoutMap = map[Type]typeLayout{
	Bool: {1, 1}, Float: {1, 1}, Int: {1, 1}, Uint: {1, 1},
	Bool2: {2, 2}, Float2: {2, 2}, Int2: {2, 2}, Uint2: {2, 2},
	Bool3: {3, 4}, Float3: {3, 4}, Int3: {3, 4}, Uint3: {3, 4},
	Bool4: {4, 4}, Float4: {4, 4}, Int4: {4, 4}, Uint4: {4, 4},
	Mat3: {12, 4},
	Mat4: {16, 4},
}

// BaseAlignment returns the base alignment of t in words.
//
// Parameters:
//   - t: the element type
//
// Returns:
//   - uint32: the alignment in words
//   - bool: false if t is not part of the enumeration
func BaseAlignment(t Type) (uint32, bool) {
	if t == Struct {
		return 4, true
	}
	l, ok := std140LayoutMap[t]
	return l.align, ok
}

// ElementWidth returns the number of words one element of t occupies.
// For Struct the caller supplied stride is returned; it must be non-zero.
//
// Parameters:
//   - t: the element type
//   - structStride: the element stride of a Struct field, ignored for other types
//
// Returns:
//   - uint32: the width in words
//   - bool: false if t is not part of the enumeration or a Struct has no stride
func ElementWidth(t Type, structStride uint32) (uint32, bool) {
	if t == Struct {
		return structStride, structStride > 0
	}
	l, ok := std140LayoutMap[t]
	return l.width, ok
}
