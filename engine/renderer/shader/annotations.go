// annotations.go defines the annotation types and parser for the WGSL shader pre-processor.
// Annotations are single-line WGSL comments prefixed with @oxy: that are replaced with the
// declarations of a material's parameter block and sampler group.
package shader

import (
	"fmt"
	"regexp"
	"strings"
)

// annotationPrefix is the marker that identifies an annotation within a WGSL comment line.
// Every annotation must appear on a line beginning with "//" followed by this prefix.
const annotationPrefix = "@oxy:"

// defaultParamsVariable is the variable name used when a params annotation does not name one.
const defaultParamsVariable = "material"

// identifierRegex matches a WGSL identifier.
var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// AnnotationTypeParams injects the struct generated for the material's uniform block together
	// with its var<uniform> declaration at the per-material-instance binding.
	//
	// Syntax: //@oxy:params [variable]
	//
	// Example: //@oxy:params material
	AnnotationTypeParams AnnotationType = "params"

	// AnnotationTypeSamplers injects one texture and one sampler declaration per sampler of the
	// material, in the per-material-instance sampler group. The texture variable carries the sampler
	// name; the sampler variable carries the name with a "Sampler" suffix.
	//
	// Syntax: //@oxy:samplers
	AnnotationTypeSamplers AnnotationType = "samplers"
)

// Annotation represents a single parsed @oxy: annotation from a WGSL shader source line.
type Annotation struct {
	// Type identifies which annotation was parsed.
	Type AnnotationType

	// Args holds the annotation's arguments. For params, [0] is the variable name.
	Args []string

	// Line is the 1-based line number in the original WGSL source where this annotation
	// was found. Used for error reporting.
	Line int
}

// parseAnnotation attempts to parse a single line of WGSL source as an @oxy: annotation.
// Returns nil with no error for lines that are not annotation comments. Returns a populated
// Annotation for valid annotations, or an error describing the problem for malformed annotations.
//
// Parameters:
//   - line: the raw WGSL source line to parse
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	comment, ok := strings.CutPrefix(strings.TrimSpace(line), "//")
	if !ok {
		return nil, nil
	}
	after, ok := strings.CutPrefix(strings.TrimSpace(comment), annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	switch AnnotationType(args[0]) {
	case AnnotationTypeParams:
		if len(args) > 2 {
			return nil, fmt.Errorf("line %d: @oxy params annotation takes at most one argument (variable name)", lineNum)
		}
		variable := defaultParamsVariable
		if len(args) == 2 {
			variable = args[1]
		}
		if !identifierRegex.MatchString(variable) {
			return nil, fmt.Errorf("line %d: invalid variable name %q in @oxy params annotation", lineNum, variable)
		}
		return &Annotation{Type: AnnotationTypeParams, Args: []string{variable}, Line: lineNum}, nil
	case AnnotationTypeSamplers:
		if len(args) != 1 {
			return nil, fmt.Errorf("line %d: @oxy samplers annotation takes no arguments", lineNum)
		}
		return &Annotation{Type: AnnotationTypeSamplers, Line: lineNum}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @oxy annotation type %q", lineNum, args[0])
	}
}
