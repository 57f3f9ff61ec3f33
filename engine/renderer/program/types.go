package program

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/sampler"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/uniform"
)

// ShaderStage addresses one shader source slot of a program.
type ShaderStage uint8

const (
	StageVertex ShaderStage = iota
	StageFragment
	StageCompute

	// ShaderStageCount is the number of shader source slots.
	ShaderStageCount = 3
)

var stageNames = [...]string{
	StageVertex:   "vertex",
	StageFragment: "fragment",
	StageCompute:  "compute",
}

func (s ShaderStage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("ShaderStage(%d)", uint8(s))
}

// ParseShaderStage converts a stage name into a ShaderStage.
func ParseShaderStage(s string) (ShaderStage, bool) {
	for i, name := range stageNames {
		if name == s {
			return ShaderStage(i), true
		}
	}
	return 0, false
}

// Flag returns the visibility flag of the stage.
func (s ShaderStage) Flag() ShaderStageFlags {
	return 1 << s
}

// ShaderStageFlags is a set of shader stages a binding is visible to.
type ShaderStageFlags uint8

const (
	StageFlagNone     ShaderStageFlags = 0
	StageFlagVertex   ShaderStageFlags = 1 << StageVertex
	StageFlagFragment ShaderStageFlags = 1 << StageFragment
	StageFlagCompute  ShaderStageFlags = 1 << StageCompute

	// AllShaderStages is visible to every stage.
	AllShaderStages = StageFlagVertex | StageFlagFragment | StageFlagCompute
)

// Has reports whether stage is part of the set.
func (f ShaderStageFlags) Has(stage ShaderStage) bool {
	return f&stage.Flag() != 0
}

func (f ShaderStageFlags) String() string {
	if f == StageFlagNone {
		return "none"
	}
	var parts []string
	for s := ShaderStage(0); s < ShaderStageCount; s++ {
		if f.Has(s) {
			parts = append(parts, s.String())
		}
	}
	return strings.Join(parts, "|")
}

// Sampler describes one sampler of a sampler group as the shader sees it.
type Sampler struct {
	Name      string
	Type      sampler.Type
	Format    sampler.Format
	Precision uniform.Precision
	// Binding is the index of the sampler within its group.
	Binding uint8
}

// SamplersFromBlock lists the samplers of a sampler interface block in binding order.
//
// Parameters:
//   - block: the sampler block
//
// Returns:
//   - []Sampler: one descriptor per sampler of the block
func SamplersFromBlock(block sampler.InterfaceBlock) []Sampler {
	infos := block.Infos()
	out := make([]Sampler, len(infos))
	for i, info := range infos {
		out[i] = Sampler{
			Name:      info.Name,
			Type:      info.Type,
			Format:    info.Format,
			Precision: info.Precision,
			Binding:   info.Offset,
		}
	}
	return out
}

// UniformBlockBinding assigns a uniform block, by name, to a binding point.
type UniformBlockBinding struct {
	Name    string
	Binding uint8
}

// SamplerGroup is the sampler metadata a program declares at one sampler binding point.
type SamplerGroup struct {
	StageFlags ShaderStageFlags
	Samplers   []Sampler
}

// IsEmpty reports whether the group declares no samplers.
func (g SamplerGroup) IsEmpty() bool {
	return len(g.Samplers) == 0
}
