package shader

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-matcore/common"
	"github.com/Carmen-Shannon/oxy-matcore/engine/binding"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/driver"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/program"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/sampler"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/uniform"
)

func mismatch(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), common.ErrShaderMismatch)
}

// CheckUniformBlock verifies the variable a module declares at a uniform binding point against a
// uniform block: it must be a uniform buffer whose struct members exist in the block at the same byte
// offsets. A module that declares nothing at the binding point passes.
//
// Parameters:
//   - refl: the reflected module
//   - block: the uniform block bound at the binding point
//   - bindingPoint: the uniform binding point
//
// Returns:
//   - error: nil if the declaration matches, otherwise every violation joined together, each wrapping
//     common.ErrShaderMismatch
func CheckUniformBlock(refl *Reflection, block uniform.InterfaceBlock, bindingPoint binding.UniformBindingPoint) error {
	decl, ok := refl.Binding(driver.UniformGroup, uint32(bindingPoint))
	if !ok {
		return nil
	}
	if decl.Kind != ResourceUniformBuffer {
		return mismatch("%s: binding %d holds %s %q, expected a uniform buffer", block.Name(), bindingPoint, decl.Kind, decl.Name)
	}
	if block.IsEmpty() {
		return mismatch("%s: %q is declared but the block has no fields", block.Name(), decl.Name)
	}
	s, ok := refl.Structs[decl.Type]
	if !ok || len(s.Members) == 0 {
		return mismatch("%s: layout of %s cannot be resolved", block.Name(), decl.Type)
	}

	var errs []error
	for _, m := range s.Members {
		info, ok := block.UniformInfo(m.Name)
		if !ok {
			errs = append(errs, mismatch("%s.%s: member is not part of the block", s.Name, m.Name))
			continue
		}
		if want := info.Offset * 4; m.Offset != want {
			errs = append(errs, mismatch("%s.%s: offset %d, block places it at %d", s.Name, m.Name, m.Offset, want))
		}
	}
	if s.Size > uint32(block.Size()) {
		errs = append(errs, mismatch("%s: %d bytes, block holds %d", s.Name, s.Size, block.Size()))
	}
	return errors.Join(errs...)
}

// CheckSamplerBlock verifies the variables a module declares in the bind group of a sampler binding
// point against a sampler block: binding 2i must be the texture of sampler i with the matching WGSL
// texture type and binding 2i+1 its sampler.
//
// Parameters:
//   - refl: the reflected module
//   - block: the sampler block bound at the binding point
//   - bindingPoint: the sampler binding point
//
// Returns:
//   - error: nil if every declaration matches, otherwise every violation joined together, each
//     wrapping common.ErrShaderMismatch
func CheckSamplerBlock(refl *Reflection, block sampler.InterfaceBlock, bindingPoint binding.SamplerBindingPoint) error {
	infos := block.Infos()
	var errs []error
	for _, decl := range refl.Group(driver.SamplerGroupIndex(uint8(bindingPoint))) {
		index := int(decl.Binding / 2)
		if index >= len(infos) {
			errs = append(errs, mismatch("%s: %q at binding %d has no sampler", block.Name(), decl.Name, decl.Binding))
			continue
		}
		info := infos[index]
		if decl.Binding%2 == 0 {
			want, err := TextureType(info)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if decl.Type != want {
				errs = append(errs, mismatch("%s: texture %q is %s, sampler %q needs %s", block.Name(), decl.Name, decl.Type, info.Name, want))
			}
			continue
		}
		if want := SamplerType(info); decl.Type != want {
			errs = append(errs, mismatch("%s: sampler %q is %s, sampler %q needs %s", block.Name(), decl.Name, decl.Type, info.Name, want))
		}
	}
	return errors.Join(errs...)
}

// Validate reflects one shader stage and checks it against the blocks of a material. A source that
// declares an entry point for another stage only is rejected as well.
//
// Parameters:
//   - stage: the stage the source is compiled for
//   - source: the WGSL source, after pre-processing
//   - uniforms: the uniform block bound at binding.PerMaterialInstance
//   - samplers: the sampler block bound at binding.SamplerPerMaterialInstance
//
// Returns:
//   - error: nil if the source agrees with the blocks
func Validate(stage program.ShaderStage, source string, uniforms uniform.InterfaceBlock, samplers sampler.InterfaceBlock) error {
	refl := Reflect(source)
	var errs []error
	if _, ok := refl.EntryPoints[stage]; !ok && len(refl.EntryPoints) > 0 {
		errs = append(errs, mismatch("no @%s entry point", stage))
	}
	errs = append(errs,
		CheckUniformBlock(refl, uniforms, binding.PerMaterialInstance),
		CheckSamplerBlock(refl, samplers, binding.SamplerPerMaterialInstance),
	)
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%s shader: %w", stage, err)
	}
	return nil
}
