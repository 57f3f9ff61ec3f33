// Package material ties frozen interface blocks and a compiled program together into a Material, and
// tracks the per-instance uniform and sampler state that is committed to the driver before each draw.
//
// A Material owns its blocks and its program. Material instances reference their material without
// owning it and are terminated explicitly; a material must outlive its instances.
package material

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-matcore/common"
	"github.com/Carmen-Shannon/oxy-matcore/engine/binding"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/driver"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/program"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/raster"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/sampler"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/uniform"
)

// nextMaterialID numbers materials process-wide; the id forms the high half of instance sorting keys.
var nextMaterialID atomic.Uint32

// material is the implementation of the Material interface.
type material struct {
	id     uint32
	name   string
	policy common.ErrorPolicy

	parameters    []uniform.Field
	samplers      []sampler.Entry
	shaders       [program.ShaderStageCount][]byte
	samplerStages program.ShaderStageFlags
	rasterState   raster.State

	masked                        bool
	maskThreshold                 float32
	doubleSidedCapable            bool
	doubleSided                   bool
	specularAntiAliasing          bool
	specularAntiAliasingVariance  float32
	specularAntiAliasingThreshold float32

	uniformBlock    uniform.InterfaceBlock
	samplerBlock    sampler.InterfaceBlock
	program         driver.ProgramHandle
	defaultInstance *materialInstance
	nextInstanceID  atomic.Uint32
}

// Material is a compiled shader program together with the layout of its per-instance parameters.
// It is read-only after NewMaterial and may be shared across goroutines; its instances may not.
type Material interface {
	// ID returns the process-wide identifier of the material.
	//
	// Returns:
	//   - uint32: the material id, never 0
	ID() uint32

	// Name returns the material name.
	//
	// Returns:
	//   - string: the name
	Name() string

	// UniformBlock returns the frozen layout of the per-instance uniforms.
	//
	// Returns:
	//   - uniform.InterfaceBlock: the uniform block
	UniformBlock() uniform.InterfaceBlock

	// SamplerBlock returns the frozen list of per-instance samplers.
	//
	// Returns:
	//   - sampler.InterfaceBlock: the sampler block
	SamplerBlock() sampler.InterfaceBlock

	// Program returns the compiled program, or the null handle after Destroy.
	//
	// Returns:
	//   - driver.ProgramHandle: the program
	Program() driver.ProgramHandle

	// ProgramDescriptor rebuilds the descriptor the program was compiled from.
	//
	// Returns:
	//   - *program.Program: the descriptor
	ProgramDescriptor() *program.Program

	// HasParameter reports whether the material declares a uniform or a sampler with the given name.
	//
	// Parameters:
	//   - name: the parameter name
	//
	// Returns:
	//   - bool: true if either block declares it
	HasParameter(name string) bool

	// HasDoubleSidedCapability reports whether instances may toggle double-sided lighting.
	//
	// Returns:
	//   - bool: true if the material was built WithDoubleSided
	HasDoubleSidedCapability() bool

	// RasterState returns the fixed-function state new instances start from.
	//
	// Returns:
	//   - raster.State: the default state
	RasterState() raster.State

	// ErrorPolicy returns how parameter lookups of this material and its instances report misses.
	//
	// Returns:
	//   - common.ErrorPolicy: the policy
	ErrorPolicy() common.ErrorPolicy

	// DefaultInstance returns the instance owned by the material.
	//
	// Returns:
	//   - MaterialInstance: the default instance
	DefaultInstance() MaterialInstance

	// CreateInstance creates a new instance starting from the current state of the default instance.
	// The new instance has no GPU resources until its first commit.
	//
	// Parameters:
	//   - name: the instance name, or "" to use the material name
	//
	// Returns:
	//   - MaterialInstance: the new instance
	CreateInstance(name string) MaterialInstance

	// Destroy terminates the default instance and releases the program. Instances created from the
	// material must be terminated by their owners first. Calling Destroy twice is a no-op.
	//
	// Parameters:
	//   - drv: the driver that created the program
	Destroy(drv driver.Driver)
}

var _ Material = &material{}

// NewMaterial builds the interface blocks of a material, compiles its program and creates its default
// instance. Invalid declarations panic with a *common.ConfigError; a failed compilation is returned.
//
// Parameters:
//   - drv: the driver used to compile the program
//   - options: functional options describing the material
//
// Returns:
//   - Material: the new material
//   - error: an error if the driver rejected the program
func NewMaterial(drv driver.Driver, options ...MaterialBuilderOption) (Material, error) {
	m, err := resolve(options)
	if err != nil {
		return nil, err
	}
	m.id = nextMaterialID.Add(1)

	h, err := drv.CreateProgram(*m.ProgramDescriptor())
	if err != nil {
		return nil, fmt.Errorf("failed to create program for material %q: %w", m.name, err)
	}
	m.program = h
	m.defaultInstance = newInstance(m, m.name)

	common.Logger().Debug("material created",
		"material", m.name, "id", m.id, "uniformBytes", m.uniformBlock.Size(), "samplers", m.samplerBlock.Size())
	return m, nil
}

// Layout is what a material built from a set of options owns, resolved without a driver.
type Layout struct {
	UniformBlock uniform.InterfaceBlock
	SamplerBlock sampler.InterfaceBlock
	// Program is the descriptor NewMaterial would compile, with shader annotations expanded.
	Program *program.Program
}

// ResolveLayout builds the interface blocks and the program descriptor of a material and checks its
// shaders, without creating GPU resources. Invalid declarations panic as in NewMaterial.
//
// Parameters:
//   - options: functional options describing the material
//
// Returns:
//   - *Layout: the blocks and program descriptor
//   - error: an error if a shader annotation is malformed or a shader disagrees with the blocks
func ResolveLayout(options ...MaterialBuilderOption) (*Layout, error) {
	m, err := resolve(options)
	if err != nil {
		return nil, err
	}
	return &Layout{UniformBlock: m.uniformBlock, SamplerBlock: m.samplerBlock, Program: m.ProgramDescriptor()}, nil
}

// resolve applies options, freezes the blocks and prepares the shaders.
func resolve(options []MaterialBuilderOption) (*material, error) {
	m := &material{
		name:          "material",
		policy:        common.DefaultErrorPolicy,
		samplerStages: program.StageFlagFragment,
		rasterState:   raster.DefaultState(),
	}
	for _, opt := range options {
		opt(m)
	}

	m.uniformBlock = uniform.NewBuilder().
		Name(ParamsBlockName).
		Add(m.parameters...).
		Add(m.standardFields()...).
		Build(uniform.WithErrorPolicy(m.policy))
	m.samplerBlock = sampler.NewBuilder().
		Name(ParamsBlockName).
		Add(m.samplers...).
		Build(sampler.WithErrorPolicy(m.policy))

	if err := m.prepareShaders(); err != nil {
		return nil, err
	}
	return m, nil
}

// prepareShaders expands the annotations of every shader source and checks the result against the
// material's blocks.
func (m *material) prepareShaders() error {
	pp := shader.NewPreProcessor(
		shader.WithUniformBlock(m.uniformBlock, binding.PerMaterialInstance),
		shader.WithSamplerBlock(m.samplerBlock, binding.SamplerPerMaterialInstance),
	)
	for i, src := range m.shaders {
		if src == nil {
			continue
		}
		stage := program.ShaderStage(i)
		out, err := pp.Process(string(src))
		if err != nil {
			return fmt.Errorf("material %q: %s shader: %w", m.name, stage, err)
		}
		if err := shader.Validate(stage, out, m.uniformBlock, m.samplerBlock); err != nil {
			return fmt.Errorf("material %q: %w", m.name, err)
		}
		m.shaders[i] = []byte(out)
	}
	return nil
}

func (m *material) ID() uint32 {
	return m.id
}

func (m *material) Name() string {
	return m.name
}

func (m *material) UniformBlock() uniform.InterfaceBlock {
	return m.uniformBlock
}

func (m *material) SamplerBlock() sampler.InterfaceBlock {
	return m.samplerBlock
}

func (m *material) Program() driver.ProgramHandle {
	return m.program
}

func (m *material) ProgramDescriptor() *program.Program {
	p := program.New().Diagnostics(m.name, func(w io.Writer) {
		fmt.Fprintf(w, "material=%s id=%d", m.name, m.id)
	})
	for stage, src := range m.shaders {
		if src != nil {
			p.Shader(program.ShaderStage(stage), src)
		}
	}
	if !m.uniformBlock.IsEmpty() {
		p.UniformBlockBindings([]program.UniformBlockBinding{
			{Name: ParamsBlockName, Binding: uint8(binding.PerMaterialInstance)},
		})
	}
	if !m.samplerBlock.IsEmpty() {
		p.SetSamplerGroup(uint8(binding.SamplerPerMaterialInstance), m.samplerStages, program.SamplersFromBlock(m.samplerBlock))
	}
	return p
}

func (m *material) HasParameter(name string) bool {
	return m.uniformBlock.HasUniform(name) || m.samplerBlock.HasSampler(name)
}

func (m *material) HasDoubleSidedCapability() bool {
	return m.doubleSidedCapable
}

func (m *material) RasterState() raster.State {
	return m.rasterState
}

func (m *material) ErrorPolicy() common.ErrorPolicy {
	return m.policy
}

func (m *material) DefaultInstance() MaterialInstance {
	return m.defaultInstance
}

func (m *material) CreateInstance(name string) MaterialInstance {
	return duplicate(m.defaultInstance, common.Coalesce(name, m.name))
}

func (m *material) Destroy(drv driver.Driver) {
	if !m.program.IsValid() {
		return
	}
	m.defaultInstance.Terminate(drv)
	drv.DestroyProgram(m.program)
	m.program = 0
	common.Logger().Debug("material destroyed", "material", m.name, "id", m.id)
}

// sortingKey packs the material id above the instance id so draws sort by material first.
func (m *material) sortingKey(instanceID uint32) uint64 {
	return uint64(m.id)<<32 | uint64(instanceID)
}
