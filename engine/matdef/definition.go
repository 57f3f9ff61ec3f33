// Package matdef reads material definition files. A definition declares the parameters, samplers,
// shaders and fixed-function defaults of a material in TOML or YAML, and maps them onto the builders of
// the renderer packages.
//
// Example (TOML):
//
//	name = "Lit"
//	culling = "back"
//	double_sided = true
//
//	[shaders]
//	vertex = "lit.vert.wgsl"
//	fragment = "lit.frag.wgsl"
//
//	[[parameters]]
//	name = "baseColor"
//	type = "float4"
//
//	[[samplers]]
//	name = "albedo"
//	type = "sampler2d"
//	texture = "albedo.png"
package matdef

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-matcore/common"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/program"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/raster"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/sampler"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/uniform"
	"github.com/jinzhu/copier"
)

// Parameter declares one uniform parameter.
type Parameter struct {
	Name        string `toml:"name" yaml:"name"`
	Type        string `toml:"type" yaml:"type"`
	Precision   string `toml:"precision,omitempty" yaml:"precision,omitempty"`
	ArrayLength uint32 `toml:"array_length,omitempty" yaml:"array_length,omitempty"`
	StructName  string `toml:"struct,omitempty" yaml:"struct,omitempty"`
	Stride      uint32 `toml:"stride,omitempty" yaml:"stride,omitempty"`
}

// Sampler declares one sampler parameter and, optionally, the image bound to it by default.
type Sampler struct {
	Name        string `toml:"name" yaml:"name"`
	Type        string `toml:"type" yaml:"type"`
	Format      string `toml:"format,omitempty" yaml:"format,omitempty"`
	Precision   string `toml:"precision,omitempty" yaml:"precision,omitempty"`
	Multisample bool   `toml:"multisample,omitempty" yaml:"multisample,omitempty"`
	// Texture is the path of an image, relative to the definition file. Any format
	// common.TextureSource.Decode reads is accepted (PNG, JPEG, WebP, BMP, TIFF).
	Texture string `toml:"texture,omitempty" yaml:"texture,omitempty"`
}

// SpecularAntiAliasing enables specular anti-aliasing with the given initial values.
type SpecularAntiAliasing struct {
	Variance  float32 `toml:"variance" yaml:"variance"`
	Threshold float32 `toml:"threshold" yaml:"threshold"`
}

// Definition is the decoded content of a material definition file.
type Definition struct {
	Name        string `toml:"name" yaml:"name"`
	ErrorPolicy string `toml:"error_policy,omitempty" yaml:"error_policy,omitempty"`

	Parameters []Parameter `toml:"parameters,omitempty" yaml:"parameters,omitempty"`
	Samplers   []Sampler   `toml:"samplers,omitempty" yaml:"samplers,omitempty"`
	// Shaders maps a stage name ("vertex", "fragment", "compute") to a source path relative to the file.
	Shaders map[string]string `toml:"shaders,omitempty" yaml:"shaders,omitempty"`
	// SamplerVisibility lists the stages the samplers are visible to; empty means fragment only.
	SamplerVisibility []string `toml:"sampler_visibility,omitempty" yaml:"sampler_visibility,omitempty"`

	Culling              string                `toml:"culling,omitempty" yaml:"culling,omitempty"`
	Transparency         string                `toml:"transparency,omitempty" yaml:"transparency,omitempty"`
	ColorWrite           *bool                 `toml:"color_write,omitempty" yaml:"color_write,omitempty"`
	DepthWrite           *bool                 `toml:"depth_write,omitempty" yaml:"depth_write,omitempty"`
	DepthCulling         *bool                 `toml:"depth_culling,omitempty" yaml:"depth_culling,omitempty"`
	DoubleSided          *bool                 `toml:"double_sided,omitempty" yaml:"double_sided,omitempty"`
	MaskThreshold        *float32              `toml:"mask_threshold,omitempty" yaml:"mask_threshold,omitempty"`
	SpecularAntiAliasing *SpecularAntiAliasing `toml:"specular_anti_aliasing,omitempty" yaml:"specular_anti_aliasing,omitempty"`
}

// Clone returns a deep copy of the definition. Declarations, shader paths and optional settings are
// not shared with d.
//
// Returns:
//   - *Definition: the copy
//   - error: an error if the copy failed
func (d *Definition) Clone() (*Definition, error) {
	c := &Definition{}
	if err := copier.CopyWithOption(c, d, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("matdef: %s: failed to copy definition: %w", d.Name, err)
	}
	return c, nil
}

// Policy resolves the error policy named by the definition.
//
// Returns:
//   - common.ErrorPolicy: the policy, common.DefaultErrorPolicy when unset
//   - error: an error if the name is not recognized
func (d *Definition) Policy() (common.ErrorPolicy, error) {
	p, err := common.ParseErrorPolicy(d.ErrorPolicy)
	if err != nil {
		return p, fmt.Errorf("matdef: %s: %w", d.Name, err)
	}
	return p, nil
}

// Fields converts the parameter declarations to uniform fields.
//
// Returns:
//   - []uniform.Field: the fields in declaration order
//   - error: an error naming the first parameter with an unknown type or precision
func (d *Definition) Fields() ([]uniform.Field, error) {
	fields := make([]uniform.Field, len(d.Parameters))
	for i, p := range d.Parameters {
		typ, ok := uniform.ParseType(p.Type)
		if !ok {
			return nil, fmt.Errorf("matdef: %s: parameter %q: %w %q", d.Name, p.Name, common.ErrUnknownType, p.Type)
		}
		precision, ok := uniform.ParsePrecision(p.Precision)
		if !ok {
			return nil, fmt.Errorf("matdef: %s: parameter %q: unknown precision %q", d.Name, p.Name, p.Precision)
		}
		if typ == uniform.Struct && p.Stride == 0 {
			return nil, fmt.Errorf("matdef: %s: parameter %q: %w", d.Name, p.Name, common.ErrMissingStride)
		}
		fields[i] = uniform.Field{
			Name:        p.Name,
			Type:        typ,
			Precision:   precision,
			ArrayLength: p.ArrayLength,
			StructName:  p.StructName,
			Stride:      p.Stride,
		}
	}
	return fields, nil
}

// Entries converts the sampler declarations to sampler entries.
//
// Returns:
//   - []sampler.Entry: the entries in binding order
//   - error: an error naming the first sampler with an unknown type, format or precision
func (d *Definition) Entries() ([]sampler.Entry, error) {
	entries := make([]sampler.Entry, len(d.Samplers))
	for i, s := range d.Samplers {
		typ, ok := sampler.ParseType(s.Type)
		if !ok {
			return nil, fmt.Errorf("matdef: %s: sampler %q: %w %q", d.Name, s.Name, common.ErrUnknownType, s.Type)
		}
		format, ok := sampler.ParseFormat(s.Format)
		if !ok {
			return nil, fmt.Errorf("matdef: %s: sampler %q: unknown format %q", d.Name, s.Name, s.Format)
		}
		precision, ok := uniform.ParsePrecision(s.Precision)
		if !ok {
			return nil, fmt.Errorf("matdef: %s: sampler %q: unknown precision %q", d.Name, s.Name, s.Precision)
		}
		entries[i] = sampler.Entry{Name: s.Name, Type: typ, Format: format, Precision: precision, Multisample: s.Multisample}
	}
	return entries, nil
}

// UniformBlock builds the uniform block described by the parameters alone, without the uniforms the
// material adds for enabled features.
//
// Returns:
//   - uniform.InterfaceBlock: the frozen block
//   - error: an error if a declaration is invalid
func (d *Definition) UniformBlock() (uniform.InterfaceBlock, error) {
	fields, err := d.Fields()
	if err != nil {
		return nil, err
	}
	policy, err := d.Policy()
	if err != nil {
		return nil, err
	}
	if err := checkDuplicates(d.Name, "parameter", len(fields), func(i int) string { return fields[i].Name }); err != nil {
		return nil, err
	}
	return uniform.NewBuilder().Name(d.Name).Add(fields...).Build(uniform.WithErrorPolicy(policy)), nil
}

// SamplerBlock builds the sampler block described by the samplers.
//
// Returns:
//   - sampler.InterfaceBlock: the frozen block
//   - error: an error if a declaration is invalid
func (d *Definition) SamplerBlock() (sampler.InterfaceBlock, error) {
	entries, err := d.Entries()
	if err != nil {
		return nil, err
	}
	policy, err := d.Policy()
	if err != nil {
		return nil, err
	}
	if err := checkDuplicates(d.Name, "sampler", len(entries), func(i int) string { return entries[i].Name }); err != nil {
		return nil, err
	}
	return sampler.NewBuilder().Name(d.Name).Add(entries...).Build(sampler.WithErrorPolicy(policy)), nil
}

// stages resolves the shader map keys and the sampler visibility list.
func (d *Definition) stages() (map[program.ShaderStage]string, program.ShaderStageFlags, error) {
	shaders := make(map[program.ShaderStage]string, len(d.Shaders))
	for name, path := range d.Shaders {
		stage, ok := program.ParseShaderStage(name)
		if !ok {
			return nil, 0, fmt.Errorf("matdef: %s: unknown shader stage %q", d.Name, name)
		}
		shaders[stage] = path
	}

	visibility := program.StageFlagNone
	for _, name := range d.SamplerVisibility {
		stage, ok := program.ParseShaderStage(name)
		if !ok {
			return nil, 0, fmt.Errorf("matdef: %s: unknown sampler visibility stage %q", d.Name, name)
		}
		visibility |= stage.Flag()
	}
	return shaders, visibility, nil
}

// rasterState applies the fixed-function defaults of the definition on top of raster.DefaultState.
func (d *Definition) rasterState() (raster.State, error) {
	state := raster.DefaultState()
	if d.Culling != "" {
		culling, ok := raster.ParseCullingMode(d.Culling)
		if !ok {
			return state, fmt.Errorf("matdef: %s: unknown culling mode %q", d.Name, d.Culling)
		}
		state.Culling = culling
	}
	if d.Transparency != "" {
		mode, ok := raster.ParseTransparencyMode(d.Transparency)
		if !ok {
			return state, fmt.Errorf("matdef: %s: unknown transparency mode %q", d.Name, d.Transparency)
		}
		state.Transparency = mode
	}
	if d.ColorWrite != nil {
		state.ColorWrite = *d.ColorWrite
	}
	if d.DepthWrite != nil {
		state.DepthWrite = *d.DepthWrite
	}
	if d.DepthCulling != nil && !*d.DepthCulling {
		state.DepthFunc = raster.CompareAlways
	}
	return state, nil
}

func checkDuplicates(material, kind string, n int, name func(int) string) error {
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		if _, dup := seen[name(i)]; dup {
			return fmt.Errorf("matdef: %s: %s %q: %w", material, kind, name(i), common.ErrDuplicateName)
		}
		seen[name(i)] = struct{}{}
	}
	return nil
}
