package shader

import (
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-matcore/common"
)

// wgslPrimitiveLayoutMap maps WGSL primitive, vector, matrix, and atomic type names
// to their byte size and alignment per the WGSL specification.
//
// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
var wgslPrimitiveLayoutMap = map[string]wgslTypeLayout{
	// Scalars
	"f32":  {4, 4},
	"i32":  {4, 4},
	"u32":  {4, 4},
	"f16":  {2, 2},
	"bool": {4, 4},

	// Vectors – f32
	"vec2<f32>": {8, 8},
	"vec2f":     {8, 8},
	"vec3<f32>": {12, 16},
	"vec3f":     {12, 16},
	"vec4<f32>": {16, 16},
	"vec4f":     {16, 16},

	// Vectors – i32
	"vec2<i32>": {8, 8},
	"vec2i":     {8, 8},
	"vec3<i32>": {12, 16},
	"vec3i":     {12, 16},
	"vec4<i32>": {16, 16},
	"vec4i":     {16, 16},

	// Vectors – u32
	"vec2<u32>": {8, 8},
	"vec2u":     {8, 8},
	"vec3<u32>": {12, 16},
	"vec3u":     {12, 16},
	"vec4<u32>": {16, 16},
	"vec4u":     {16, 16},

	// Vectors – f16
	"vec2<f16>": {4, 4},
	"vec2h":     {4, 4},
	"vec4<f16>": {8, 8},
	"vec4h":     {8, 8},

	// Matrices – matCxR<f32>: C columns of vecR<f32>
	"mat2x2<f32>": {16, 8},
	"mat2x2f":     {16, 8},
	"mat3x3<f32>": {48, 16},
	"mat3x3f":     {48, 16},
	"mat4x4<f32>": {64, 16},
	"mat4x4f":     {64, 16},
	"mat2x4<f32>": {32, 16},
	"mat3x4<f32>": {48, 16},
	"mat4x3<f32>": {64, 16},

	// Atomic types
	"atomic<u32>": {4, 4},
	"atomic<i32>": {4, 4},
}

// resolveTypeLayout resolves a WGSL type name to its size and alignment using primitives
// and previously-computed struct layouts. Handles fixed-size arrays (array<T, N>) and returns
// false for runtime-sized arrays or unknown types.
//
// Parameters:
//   - typeName: the normalized WGSL type name to resolve, e.g. "f32", "Light", "array<vec4<f32>,4>"
//   - knownTypes: a map of already-resolved type names to their layouts
//
// Returns:
//   - wgslTypeLayout: the resolved layout
//   - bool: true if the type could be resolved
func resolveTypeLayout(typeName string, knownTypes map[string]wgslTypeLayout) (wgslTypeLayout, bool) {
	if layout, ok := wgslPrimitiveLayoutMap[typeName]; ok {
		return layout, true
	}
	if layout, ok := knownTypes[typeName]; ok {
		return layout, true
	}

	inner, ok := strings.CutPrefix(typeName, "array<")
	if !ok || !strings.HasSuffix(inner, ">") {
		return wgslTypeLayout{}, false
	}
	parts := splitAtTopLevelCommas(strings.TrimSuffix(inner, ">"))
	if len(parts) != 2 {
		return wgslTypeLayout{}, false
	}
	elem, ok := resolveTypeLayout(parts[0], knownTypes)
	if !ok {
		return wgslTypeLayout{}, false
	}
	count, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return wgslTypeLayout{}, false
	}
	stride := common.RoundUpAlign(elem.align, elem.size)
	return wgslTypeLayout{uint32(count) * stride, elem.align}, true
}

// computeStructLayout places the members of a single WGSL struct using WGSL struct layout rules:
// each member is placed at the next offset aligned to its @align (or natural alignment) and occupies
// its @size (or natural size); the struct size is rounded up to the largest member alignment.
// Fields with @builtin attributes are skipped as they are not part of the buffer layout.
//
// Parameters:
//   - ps: the parsed struct whose layout to compute
//   - knownTypes: a map of already-resolved type names to their layouts
//
// Returns:
//   - Struct: the struct with every member placed
//   - bool: true if all members could be resolved
func computeStructLayout(ps parsedStruct, knownTypes map[string]wgslTypeLayout) (Struct, bool) {
	out := Struct{Name: ps.name, Members: make([]Member, 0, len(ps.fields))}
	offset := uint32(0)
	maxAlign := uint32(1)

	for _, field := range ps.fields {
		if field.isBuiltin {
			continue
		}

		layout, ok := resolveTypeLayout(field.typeName, knownTypes)
		if !ok {
			return Struct{Name: ps.name}, false
		}
		align := common.Coalesce(field.align, layout.align)
		size := common.Coalesce(field.size, layout.size)

		offset = common.RoundUpAlign(align, offset)
		out.Members = append(out.Members, Member{Name: field.name, Type: field.typeName, Offset: offset, Size: size})
		offset += size
		maxAlign = max(maxAlign, align)
	}

	out.Size = common.RoundUpAlign(maxAlign, offset)
	out.Align = maxAlign
	return out, true
}

// computeStructs lays out all parsed WGSL structs. Dependencies between structs are resolved
// iteratively; a struct whose members cannot all be resolved is reported with its name only.
//
// Parameters:
//   - structs: all parsed struct blocks from the WGSL source
//
// Returns:
//   - map[string]Struct: the structs keyed by name
func computeStructs(structs []parsedStruct) map[string]Struct {
	resolved := make(map[string]Struct, len(structs))
	known := make(map[string]wgslTypeLayout, len(structs))
	remaining := make([]parsedStruct, len(structs))
	copy(remaining, structs)

	for {
		progress := false
		next := remaining[:0]

		for _, ps := range remaining {
			if s, ok := computeStructLayout(ps, known); ok {
				resolved[ps.name] = s
				known[ps.name] = wgslTypeLayout{s.Size, s.Align}
				progress = true
			} else {
				next = append(next, ps)
			}
		}

		remaining = next
		if !progress || len(remaining) == 0 {
			break
		}
	}

	for _, ps := range remaining {
		resolved[ps.name] = Struct{Name: ps.name}
	}
	return resolved
}

// classifyResource determines the resource category of a declaration from its address space
// qualifier and type name.
//
// Parameters:
//   - addressSpace: the address space qualifier (e.g. "uniform", "storage, read_write"), empty for handle types
//   - typeName: the WGSL type string (e.g. "MaterialParams", "texture_2d<f32>", "sampler")
//
// Returns:
//   - ResourceKind: the category
func classifyResource(addressSpace, typeName string) ResourceKind {
	switch {
	case addressSpace == "uniform":
		return ResourceUniformBuffer
	case strings.HasPrefix(addressSpace, "storage"):
		return ResourceStorageBuffer
	case addressSpace != "":
		return ResourceUnknown
	case typeName == "sampler":
		return ResourceSampler
	case typeName == "sampler_comparison":
		return ResourceComparisonSampler
	case strings.HasPrefix(typeName, "texture_storage_"):
		return ResourceStorageTexture
	case strings.HasPrefix(typeName, "texture_depth_"):
		return ResourceDepthTexture
	case strings.HasPrefix(typeName, "texture_"):
		return ResourceTexture
	}
	return ResourceUnknown
}

// stripComments removes both single-line (//) and block (/* */) comments from WGSL source.
// Block comments may be nested per the WGSL specification.
//
// Parameters:
//   - source: raw WGSL source string
//
// Returns:
//   - string: source with all comments removed
func stripComments(source string) string {
	return stripLineComments(stripBlockComments(source))
}

// stripLineComments removes single-line // comments from WGSL source.
func stripLineComments(source string) string {
	var sb strings.Builder
	for line := range strings.SplitSeq(source, "\n") {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// stripBlockComments removes block comments (/* ... */) from WGSL source,
// handling nested block comments per the WGSL specification
func stripBlockComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	i := 0
	for i < len(source) {
		if i+1 < len(source) {
			if source[i] == '/' && source[i+1] == '*' {
				depth++
				i += 2
				continue
			}
			if source[i] == '*' && source[i+1] == '/' {
				if depth > 0 {
					depth--
				}
				i += 2
				continue
			}
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
		i++
	}
	return sb.String()
}

// splitAtTopLevelCommas splits a string at commas that are not nested inside angle brackets.
// This correctly handles WGSL types like array<Light, 6> where the comma is part of
// the type syntax rather than a field separator.
//
// Parameters:
//   - s: the string to split (typically the body of a WGSL struct)
//
// Returns:
//   - []string: substrings between top-level commas
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<', '(':
			depth++
		case '>', ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}
