// pre_processor.go implements the WGSL shader pre-processor. It scans shader source code for
// @oxy: annotations and replaces them with the declarations that match a material's uniform block
// and sampler group, so shader authors never restate offsets or binding indices by hand.
package shader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-matcore/engine/binding"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/driver"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/sampler"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/uniform"
)

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	uniforms       uniform.InterfaceBlock
	uniformBinding binding.UniformBindingPoint
	samplers       sampler.InterfaceBlock
	samplerBinding binding.SamplerBindingPoint

	// declarations accumulates the annotations replaced during a Process call. Reset at the start of
	// each Process invocation.
	declarations []Annotation
}

// PreProcessor replaces @oxy: annotations in WGSL source with generated declarations.
type PreProcessor interface {
	// Process takes raw WGSL shader source code and replaces every annotation with its generated
	// WGSL. Lines that are not annotations are kept verbatim.
	//
	// The declarations list is reset at the start of each call and can be retrieved
	// via Declarations() after Process returns.
	//
	// Parameters:
	//   - source: the raw WGSL shader source code
	//
	// Returns:
	//   - string: the processed WGSL shader source code
	//   - error: an error if an annotation is malformed, repeated, or refers to a block the
	//     pre-processor was not given
	Process(source string) (string, error)

	// Declarations returns the annotations replaced during the most recent call to Process, in
	// source order.
	//
	// Returns:
	//   - []Annotation: the annotations collected during the last Process call
	Declarations() []Annotation
}

var _ PreProcessor = &preProcessor{}

// PreProcessorBuilderOption is a function that configures a preProcessor.
type PreProcessorBuilderOption func(*preProcessor)

// WithUniformBlock is an option builder that sets the block expanded by params annotations.
//
// Parameters:
//   - block: the uniform block
//   - bindingPoint: the uniform binding point the block is bound to
//
// Returns:
//   - PreProcessorBuilderOption: a function that applies the block
func WithUniformBlock(block uniform.InterfaceBlock, bindingPoint binding.UniformBindingPoint) PreProcessorBuilderOption {
	return func(p *preProcessor) {
		p.uniforms = block
		p.uniformBinding = bindingPoint
	}
}

// WithSamplerBlock is an option builder that sets the block expanded by samplers annotations.
//
// Parameters:
//   - block: the sampler block
//   - bindingPoint: the sampler binding point the group is bound to
//
// Returns:
//   - PreProcessorBuilderOption: a function that applies the block
func WithSamplerBlock(block sampler.InterfaceBlock, bindingPoint binding.SamplerBindingPoint) PreProcessorBuilderOption {
	return func(p *preProcessor) {
		p.samplers = block
		p.samplerBinding = bindingPoint
	}
}

// NewPreProcessor creates a new PreProcessor. Without options it accepts only sources that contain
// no annotations.
//
// Parameters:
//   - options: the blocks annotations expand to
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor(options ...PreProcessorBuilderOption) PreProcessor {
	p := &preProcessor{
		uniformBinding: binding.PerMaterialInstance,
		samplerBinding: binding.SamplerPerMaterialInstance,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = p.declarations[:0]

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	seen := make(map[AnnotationType]int)

	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}
		if prev, dup := seen[a.Type]; dup {
			return "", fmt.Errorf("line %d: @oxy %s annotation already expanded on line %d", a.Line, a.Type, prev)
		}
		seen[a.Type] = a.Line

		var generated string
		switch a.Type {
		case AnnotationTypeParams:
			generated, err = p.params(a.Args[0])
		case AnnotationTypeSamplers:
			generated, err = p.samplerDeclarations()
		default:
			err = fmt.Errorf("unknown annotation type %q", a.Type)
		}
		if err != nil {
			return "", fmt.Errorf("line %d: %w", a.Line, err)
		}
		out = append(out, strings.TrimSuffix(generated, "\n"))
		p.declarations = append(p.declarations, *a)
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}

// params generates the struct and var<uniform> declaration of the uniform block.
func (p *preProcessor) params(variable string) (string, error) {
	if p.uniforms == nil || p.uniforms.IsEmpty() {
		return "", errors.New("@oxy params annotation without parameters to declare")
	}
	if err := uniform.CheckWGSL(p.uniforms); err != nil {
		return "", err
	}
	return uniform.WGSL(p.uniforms) +
		uniform.WGSLBinding(p.uniforms, driver.UniformGroup, uint32(p.uniformBinding), variable), nil
}

// samplerDeclarations generates a texture and a sampler variable per sampler of the sampler block.
func (p *preProcessor) samplerDeclarations() (string, error) {
	if p.samplers == nil {
		return "", errors.New("@oxy samplers annotation without samplers to declare")
	}
	group := driver.SamplerGroupIndex(uint8(p.samplerBinding))

	var sb strings.Builder
	for _, info := range p.samplers.Infos() {
		textureType, err := TextureType(info)
		if err != nil {
			return "", err
		}
		texBinding, sampBinding := driver.SamplerBindings(info.Offset)
		fmt.Fprintf(&sb, "@group(%d) @binding(%d) var %s: %s;\n", group, texBinding, info.Name, textureType)
		fmt.Fprintf(&sb, "@group(%d) @binding(%d) var %s: %s;\n", group, sampBinding, SamplerVariable(info.Name), SamplerType(info))
	}
	return sb.String(), nil
}
