// Package program assembles the descriptor of one shader program: per-stage sources, uniform block
// bindings and sampler groups. A Program is a pure value; compiling it is the driver's job.
package program

import (
	"fmt"
	"io"
	"strings"

	"github.com/Carmen-Shannon/oxy-matcore/common"
	"github.com/Carmen-Shannon/oxy-matcore/engine/binding"
)

// Program describes a shader program. It is built with chained setters and handed by value to
// driver.Driver.CreateProgram. Setters copy their arguments, so callers may reuse their buffers.
//
// A Program is not safe for concurrent mutation; once built it may be read from any goroutine.
type Program struct {
	name          string
	formatter     func(io.Writer)
	shaders       [ShaderStageCount][]byte
	uniformBlocks [binding.UniformBindingCount]string
	samplerGroups [binding.SamplerBindingCount]SamplerGroup
}

// New creates an empty program descriptor.
//
// Returns:
//   - *Program: the new descriptor
func New() *Program {
	return &Program{}
}

// Diagnostics attaches a name and a formatting callback used when the program is printed.
// Neither affects the compiled program.
//
// Parameters:
//   - name: the diagnostic name
//   - formatter: writes additional diagnostic text, may be nil
//
// Returns:
//   - *Program: the program, for chaining
func (p *Program) Diagnostics(name string, formatter func(io.Writer)) *Program {
	p.name = name
	p.formatter = formatter
	return p
}

// Shader sets the source of one stage, replacing any previous source. The data is copied.
// An empty source marks the stage as unused.
//
// Parameters:
//   - stage: the stage to set
//   - data: the shader source
//
// Returns:
//   - *Program: the program, for chaining
func (p *Program) Shader(stage ShaderStage, data []byte) *Program {
	if stage >= ShaderStageCount {
		common.PanicConfig("program", common.ErrUnknownType, "program %q shader stage %d", p.name, stage)
	}
	p.shaders[stage] = common.Clone(data)
	return p
}

// UniformBlockBindings assigns uniform blocks to binding points. Every binding must be below
// binding.UniformBindingCount; a violation panics with a *common.ConfigError.
//
// Parameters:
//   - bindings: the block name and binding point pairs
//
// Returns:
//   - *Program: the program, for chaining
func (p *Program) UniformBlockBindings(bindings []UniformBlockBinding) *Program {
	for _, b := range bindings {
		binding.CheckUniformBindingPoint("program", int(b.Binding), binding.UniformBindingCount)
		p.uniformBlocks[b.Binding] = b.Name
	}
	return p
}

// SetSamplerGroup declares the samplers visible at a sampler binding point, replacing any previous
// group there. The sampler list is copied. bindingPoint must be below binding.SamplerBindingCount.
//
// Parameters:
//   - bindingPoint: the sampler binding point
//   - stageFlags: the stages that may sample from the group
//   - samplers: the samplers of the group, in binding order
//
// Returns:
//   - *Program: the program, for chaining
func (p *Program) SetSamplerGroup(bindingPoint uint8, stageFlags ShaderStageFlags, samplers []Sampler) *Program {
	binding.CheckSamplerBindingPoint("program", int(bindingPoint), binding.SamplerBindingCount)
	p.samplerGroups[bindingPoint] = SamplerGroup{
		StageFlags: stageFlags,
		Samplers:   common.Clone(samplers),
	}
	return p
}

// Name returns the diagnostic name.
func (p *Program) Name() string {
	return p.name
}

// ShaderSource returns the source of stage, or nil if the stage is unused.
// The returned slice must not be modified.
//
// Parameters:
//   - stage: the stage
//
// Returns:
//   - []byte: the source
func (p *Program) ShaderSource(stage ShaderStage) []byte {
	if stage >= ShaderStageCount {
		return nil
	}
	return p.shaders[stage]
}

// HasStage reports whether stage has a source.
func (p *Program) HasStage(stage ShaderStage) bool {
	return len(p.ShaderSource(stage)) > 0
}

// Stages returns the set of stages with a source.
func (p *Program) Stages() ShaderStageFlags {
	var flags ShaderStageFlags
	for s := ShaderStage(0); s < ShaderStageCount; s++ {
		if p.HasStage(s) {
			flags |= s.Flag()
		}
	}
	return flags
}

// UniformBlockName returns the name of the block bound at bindingPoint, or "" if none is.
//
// Parameters:
//   - bindingPoint: the uniform binding point
//
// Returns:
//   - string: the block name
func (p *Program) UniformBlockName(bindingPoint uint8) string {
	if int(bindingPoint) >= len(p.uniformBlocks) {
		return ""
	}
	return p.uniformBlocks[bindingPoint]
}

// UniformBlocks returns the block names indexed by binding point.
func (p *Program) UniformBlocks() [binding.UniformBindingCount]string {
	return p.uniformBlocks
}

// SamplerGroup returns the group declared at bindingPoint. The sampler list is a copy.
//
// Parameters:
//   - bindingPoint: the sampler binding point
//
// Returns:
//   - SamplerGroup: the group, empty if none is declared
func (p *Program) SamplerGroup(bindingPoint uint8) SamplerGroup {
	if int(bindingPoint) >= len(p.samplerGroups) {
		return SamplerGroup{}
	}
	g := p.samplerGroups[bindingPoint]
	g.Samplers = common.Clone(g.Samplers)
	return g
}

// String prints the program through its diagnostics formatter.
func (p *Program) String() string {
	var sb strings.Builder
	sb.WriteString("Program{")
	if p.formatter != nil {
		p.formatter(&sb)
	} else if p.name != "" {
		fmt.Fprint(&sb, p.name)
	}
	sb.WriteString("}")
	return sb.String()
}
