package uniform

import (
	"errors"
	"fmt"
	"strings"
)

// wgslTypeLayout holds the byte size and alignment of a WGSL type.
type wgslTypeLayout struct {
	size  uint32
	align uint32
}

// wgslTypeMap maps every non-struct element type to the WGSL type that reproduces its std140 footprint.
// Booleans are not host-shareable in WGSL and are declared as u32 vectors holding 0 or 1.
//
// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
var wgslTypeMap = map[Type]struct {
	name   string
	layout wgslTypeLayout
}{
	Bool:   {"u32", wgslTypeLayout{4, 4}},
	Bool2:  {"vec2<u32>", wgslTypeLayout{8, 8}},
	Bool3:  {"vec3<u32>", wgslTypeLayout{12, 16}},
	Bool4:  {"vec4<u32>", wgslTypeLayout{16, 16}},
	Float:  {"f32", wgslTypeLayout{4, 4}},
	Float2: {"vec2<f32>", wgslTypeLayout{8, 8}},
	Float3: {"vec3<f32>", wgslTypeLayout{12, 16}},
	Float4: {"vec4<f32>", wgslTypeLayout{16, 16}},
	Int:    {"i32", wgslTypeLayout{4, 4}},
	Int2:   {"vec2<i32>", wgslTypeLayout{8, 8}},
	Int3:   {"vec3<i32>", wgslTypeLayout{12, 16}},
	Int4:   {"vec4<i32>", wgslTypeLayout{16, 16}},
	Uint:   {"u32", wgslTypeLayout{4, 4}},
	Uint2:  {"vec2<u32>", wgslTypeLayout{8, 8}},
	Uint3:  {"vec3<u32>", wgslTypeLayout{12, 16}},
	Uint4:  {"vec4<u32>", wgslTypeLayout{16, 16}},
	Mat3:   {"mat3x3<f32>", wgslTypeLayout{48, 16}},
	Mat4:   {"mat4x4<f32>", wgslTypeLayout{64, 16}},
}

// wgslArrayElement returns the WGSL element type used for arrays of t. Scalar and vector arrays are
// widened to 4-component vectors so the WGSL array stride equals the 16-byte std140 stride; shaders
// read element i through its leading components.
func wgslArrayElement(info Info) (string, wgslTypeLayout) {
	switch info.Type {
	case Mat3, Mat4:
		t := wgslTypeMap[info.Type]
		return t.name, t.layout
	case Struct:
		return info.StructName, wgslTypeLayout{info.Stride * 4, 16}
	case Int, Int2, Int3, Int4:
		return "vec4<i32>", wgslTypeLayout{16, 16}
	case Uint, Uint2, Uint3, Uint4, Bool, Bool2, Bool3, Bool4:
		return "vec4<u32>", wgslTypeLayout{16, 16}
	default:
		return "vec4<f32>", wgslTypeLayout{16, 16}
	}
}

// wgslMember resolves the WGSL type name and natural layout of one resolved field.
func wgslMember(info Info) (string, wgslTypeLayout) {
	if info.IsArray() {
		elem, layout := wgslArrayElement(info)
		return fmt.Sprintf("array<%s, %d>", elem, info.ArrayLength), wgslTypeLayout{layout.size * info.ArrayLength, 16}
	}
	if info.Type == Struct {
		return info.StructName, wgslTypeLayout{info.Width * 4, 16}
	}
	t := wgslTypeMap[info.Type]
	return t.name, t.layout
}

// WGSLStructName returns the name used for the struct generated for block.
//
// Parameters:
//   - block: the interface block
//
// Returns:
//   - string: the block name, or "Block" for an unnamed block
func WGSLStructName(block InterfaceBlock) string {
	if block.Name() == "" {
		return "Block"
	}
	return block.Name()
}

// WGSL generates a WGSL struct declaration whose memory layout is identical to block. Members carry
// an explicit @size attribute wherever the std140 placement leaves padding, so offsets match
// Info.Offset exactly and the struct size equals block.Size(). Struct-typed fields reference
// StructName, which the caller must declare with a matching layout; a single struct member always
// carries @size so its padded width does not depend on that declaration.
//
// An empty block produces an empty string since WGSL structs need at least one member.
//
// Parameters:
//   - block: the interface block to describe
//
// Returns:
//   - string: the WGSL source of the struct declaration
func WGSL(block InterfaceBlock) string {
	infos := block.Infos()
	if len(infos) == 0 {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "struct %s {\n", WGSLStructName(block))
	for i, info := range infos {
		typeName, layout := wgslMember(info)
		span := memberSpan(block, infos, i)

		sb.WriteString("    ")
		if span != layout.size || (info.Type == Struct && !info.IsArray()) {
			fmt.Fprintf(&sb, "@size(%d) ", span)
		}
		fmt.Fprintf(&sb, "%s: %s,\n", info.Name, typeName)
	}
	sb.WriteString("}\n")
	return sb.String()
}

// WGSLBinding generates the module-scope variable declaration binding block to a uniform slot.
//
// Parameters:
//   - block: the interface block
//   - group: the bind group index
//   - binding: the binding index within the group
//   - variable: the WGSL variable name
//
// Returns:
//   - string: the declaration, e.g. "@group(0) @binding(7) var<uniform> material: MaterialParams;"
func WGSLBinding(block InterfaceBlock, group, binding uint32, variable string) string {
	return fmt.Sprintf("@group(%d) @binding(%d) var<uniform> %s: %s;\n", group, binding, variable, WGSLStructName(block))
}

// CheckWGSL verifies that every field of block can be expressed in WGSL at the offset the std140
// layout assigned it: the offset must satisfy the WGSL alignment of the member and the space up to
// the next member must hold the member's natural size.
//
// Parameters:
//   - block: the interface block to check
//
// Returns:
//   - error: nil if the layout is valid WGSL, otherwise every violation joined together
func CheckWGSL(block InterfaceBlock) error {
	infos := block.Infos()
	var errs []error
	for i, info := range infos {
		_, layout := wgslMember(info)
		offset := info.Offset * 4
		if offset%layout.align != 0 {
			errs = append(errs, fmt.Errorf("%s.%s: offset %d is not aligned to %d bytes", block.Name(), info.Name, offset, layout.align))
		}
		if span := memberSpan(block, infos, i); span < layout.size {
			errs = append(errs, fmt.Errorf("%s.%s: %d bytes available, %d required", block.Name(), info.Name, span, layout.size))
		}
	}
	return errors.Join(errs...)
}

// memberSpan returns the number of bytes from the start of member i to the start of the next member,
// or to the end of the block for the last member.
func memberSpan(block InterfaceBlock, infos []Info, i int) uint32 {
	end := block.SizeWords()
	if i+1 < len(infos) {
		end = infos[i+1].Offset
	}
	return (end - infos[i].Offset) * 4
}
