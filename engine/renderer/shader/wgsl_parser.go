package shader

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/program"
)

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// builtinRegex matches @builtin(...) attributes
	builtinRegex = regexp.MustCompile(`@builtin\(\w+\)`)

	// sizeAttrRegex and alignAttrRegex capture the explicit layout attributes of a struct member
	sizeAttrRegex  = regexp.MustCompile(`@size\(\s*(\d+)\s*\)`)
	alignAttrRegex = regexp.MustCompile(`@align\(\s*(\d+)\s*\)`)

	// fieldRegex matches a struct field line: optional attributes, name, colon, type.
	// The type capture (.+) is greedy to handle parameterized types like array<T, N>.
	fieldRegex = regexp.MustCompile(`(?:(?:@\w+\([^)]*\)\s*)*)*\s*(\w+)\s*:\s*(.+)`)

	// entryRegexes match entry point functions per stage and capture the function name
	entryRegexes = map[program.ShaderStage]*regexp.Regexp{
		program.StageVertex:   regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`),
		program.StageFragment: regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`),
		program.StageCompute:  regexp.MustCompile(`(?s)@compute\b.*?\bfn\s+(\w+)`),
	}

	// bindGroupDeclRegex captures group, binding, optional address space, variable name, and type
	// from declarations like: @group(0) @binding(7) var<uniform> material: MaterialParams;
	// or handle types: @group(3) @binding(0) var albedo: texture_2d<f32>;
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// Reflect recovers the resource interface of a WGSL module from its source. It is a textual scan, not
// a compiler: declarations inside comments are ignored, everything else that matches is reported.
//
// Parameters:
//   - source: the WGSL source code
//
// Returns:
//   - *Reflection: the structs, bindings and entry points found in the source
func Reflect(source string) *Reflection {
	cleaned := stripComments(source)
	structs := parseStructBlocks(cleaned)
	return &Reflection{
		Structs:     computeStructs(structs),
		Bindings:    parseBindings(cleaned),
		EntryPoints: parseEntryPoints(cleaned),
	}
}

// parseBindings extracts all @group(N) @binding(M) resource declarations in source order.
//
// Parameters:
//   - source: WGSL source with comments already stripped
//
// Returns:
//   - []Binding: the declarations
func parseBindings(source string) []Binding {
	matches := bindGroupDeclRegex.FindAllStringSubmatch(source, -1)
	bindings := make([]Binding, 0, len(matches))
	for _, match := range matches {
		group, _ := strconv.ParseUint(match[1], 10, 32)
		binding, _ := strconv.ParseUint(match[2], 10, 32)
		addressSpace := strings.TrimSpace(match[3])
		typeName := normalizeType(match[5])

		bindings = append(bindings, Binding{
			Group:        uint32(group),
			Binding:      uint32(binding),
			AddressSpace: addressSpace,
			Name:         strings.TrimSpace(match[4]),
			Type:         typeName,
			Kind:         classifyResource(addressSpace, typeName),
		})
	}
	return bindings
}

// parseEntryPoints finds the first entry point function of each stage.
func parseEntryPoints(source string) map[program.ShaderStage]string {
	entries := make(map[program.ShaderStage]string)
	for stage, re := range entryRegexes {
		if match := re.FindStringSubmatch(source); match != nil {
			entries[stage] = match[1]
		}
	}
	return entries
}

// parseStructBlocks finds all struct { ... } blocks in the cleaned WGSL source
// and parses their fields including @builtin, @size and @align attributes
//
// Parameters:
//   - source: WGSL source with comments already stripped
//
// Returns:
//   - []parsedStruct: all struct blocks found in the source
func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))

	for _, match := range matches {
		structs = append(structs, parsedStruct{
			name:   match[1],
			fields: parseStructFields(match[2]),
		})
	}

	return structs
}

// parseStructFields parses the body of a struct block into individual fields.
//
// Parameters:
//   - body: the content between { and } of a struct declaration
//
// Returns:
//   - []parsedField: all fields found in the struct body
func parseStructFields(body string) []parsedField {
	lines := splitAtTopLevelCommas(body)
	fields := make([]parsedField, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var field parsedField
		field.isBuiltin = builtinRegex.MatchString(line)
		if m := sizeAttrRegex.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseUint(m[1], 10, 32); err == nil {
				field.size = uint32(v)
			}
		}
		if m := alignAttrRegex.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseUint(m[1], 10, 32); err == nil {
				field.align = uint32(v)
			}
		}

		fm := fieldRegex.FindStringSubmatch(line)
		if fm == nil {
			continue
		}
		field.name = fm[1]
		field.typeName = normalizeType(fm[2])

		fields = append(fields, field)
	}

	return fields
}

// normalizeType removes the whitespace WGSL allows inside a type expression so that
// "array<vec4<f32>, 4>" and "array<vec4<f32>,4>" resolve alike.
func normalizeType(typeName string) string {
	return strings.Join(strings.Fields(typeName), "")
}
