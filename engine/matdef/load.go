package matdef

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-matcore/common"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/driver"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/sampler"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a definition file.
type Format int

const (
	// FormatTOML decodes with github.com/pelletier/go-toml/v2.
	FormatTOML Format = iota
	// FormatYAML decodes with gopkg.in/yaml.v3.
	FormatYAML
)

// FormatFromPath picks the format from the file extension: ".toml", ".yaml" or ".yml".
//
// Parameters:
//   - path: the file path
//
// Returns:
//   - Format: the format
//   - error: an error for any other extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return 0, fmt.Errorf("matdef: %s: unsupported file extension", path)
}

// Parse decodes a definition. Unknown keys are rejected so typos surface as errors.
//
// Parameters:
//   - data: the encoded definition
//   - format: the encoding
//
// Returns:
//   - *Definition: the decoded definition
//   - error: an error if decoding failed or the definition has no name
func Parse(data []byte, format Format) (*Definition, error) {
	var def Definition
	switch format {
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("matdef: failed to decode toml: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("matdef: failed to decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("matdef: unknown format %d", format)
	}
	if def.Name == "" {
		return nil, errors.New("matdef: definition has no name")
	}
	return &def, nil
}

// Load reads and decodes a definition file.
//
// Parameters:
//   - path: the file path; the extension selects the format
//
// Returns:
//   - *Definition: the decoded definition
//   - error: an error if the file could not be read or decoded
func Load(path string) (*Definition, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("matdef: failed to read %s: %w", path, err)
	}
	def, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return def, nil
}

// Options maps the definition onto material builder options. Shader sources are read from disk.
//
// Parameters:
//   - baseDir: the directory relative shader paths are resolved against
//
// Returns:
//   - []material.MaterialBuilderOption: the options for material.NewMaterial
//   - error: an error if a declaration is invalid or a shader could not be read
func (d *Definition) Options(baseDir string) ([]material.MaterialBuilderOption, error) {
	fields, err := d.Fields()
	if err != nil {
		return nil, err
	}
	entries, err := d.Entries()
	if err != nil {
		return nil, err
	}
	policy, err := d.Policy()
	if err != nil {
		return nil, err
	}
	shaders, visibility, err := d.stages()
	if err != nil {
		return nil, err
	}
	state, err := d.rasterState()
	if err != nil {
		return nil, err
	}
	if err := checkDuplicates(d.Name, "parameter", len(fields), func(i int) string { return fields[i].Name }); err != nil {
		return nil, err
	}
	if err := checkDuplicates(d.Name, "sampler", len(entries), func(i int) string { return entries[i].Name }); err != nil {
		return nil, err
	}

	options := []material.MaterialBuilderOption{
		material.WithName(d.Name),
		material.WithErrorPolicy(policy),
		material.WithParameters(fields...),
		material.WithSamplers(entries...),
		material.WithRasterState(state),
	}
	if visibility != 0 {
		options = append(options, material.WithSamplerVisibility(visibility))
	}
	for stage, path := range shaders {
		src, err := os.ReadFile(resolve(baseDir, path))
		if err != nil {
			return nil, fmt.Errorf("matdef: %s: failed to read %s shader: %w", d.Name, stage, err)
		}
		options = append(options, material.WithShader(stage, src))
	}
	if d.DoubleSided != nil {
		options = append(options, material.WithDoubleSided(*d.DoubleSided))
	}
	if d.MaskThreshold != nil {
		options = append(options, material.WithMaskThreshold(*d.MaskThreshold))
	}
	if aa := d.SpecularAntiAliasing; aa != nil {
		options = append(options, material.WithSpecularAntiAliasing(aa.Variance, aa.Threshold))
	}
	return options, nil
}

// TextureSources lists the default images of the samplers that declare one.
//
// Parameters:
//   - baseDir: the directory relative texture paths are resolved against
//
// Returns:
//   - []common.TextureSource: one source per sampler with a texture, named after the sampler
func (d *Definition) TextureSources(baseDir string) []common.TextureSource {
	var sources []common.TextureSource
	for _, s := range d.Samplers {
		if s.Texture != "" {
			sources = append(sources, common.TextureSource{Name: s.Name, Path: resolve(baseDir, s.Texture)})
		}
	}
	return sources
}

// Loaded is a material created from a definition together with the textures created for it.
type Loaded struct {
	// Definition is a copy of the definition taken at instantiation. Later edits to the source
	// definition do not reach it.
	Definition *Definition
	Material   material.Material
	Textures   []driver.TextureHandle
}

// Destroy releases the material and its textures. Instances created by the caller must be terminated
// first.
//
// Parameters:
//   - drv: the driver that created the resources
func (l *Loaded) Destroy(drv driver.Driver) {
	l.Material.Destroy(drv)
	for _, h := range l.Textures {
		drv.DestroyTexture(h)
	}
	l.Textures = nil
}

// Instantiate creates the material and binds the default images of its samplers to the default instance.
//
// Parameters:
//   - drv: the driver
//   - baseDir: the directory relative paths are resolved against
//
// Returns:
//   - *Loaded: the material and its textures
//   - error: an error if any step failed; resources created before the failure are released
func (d *Definition) Instantiate(drv driver.Driver, baseDir string) (*Loaded, error) {
	snapshot, err := d.Clone()
	if err != nil {
		return nil, err
	}
	options, err := snapshot.Options(baseDir)
	if err != nil {
		return nil, err
	}
	m, err := material.NewMaterial(drv, options...)
	if err != nil {
		return nil, fmt.Errorf("matdef: %s: %w", d.Name, err)
	}

	loaded := &Loaded{Definition: snapshot, Material: m}
	for _, src := range snapshot.TextureSources(baseDir) {
		staging, err := src.Decode()
		if err != nil {
			loaded.Destroy(drv)
			return nil, fmt.Errorf("matdef: %s: sampler %q: %w", d.Name, src.Name, err)
		}
		h, err := drv.CreateTexture(staging)
		if err != nil {
			loaded.Destroy(drv)
			return nil, fmt.Errorf("matdef: %s: failed to create texture for sampler %q: %w", d.Name, src.Name, err)
		}
		loaded.Textures = append(loaded.Textures, h)
		if err := m.DefaultInstance().SetParameterTexture(src.Name, h, sampler.DefaultParams()); err != nil {
			loaded.Destroy(drv)
			return nil, fmt.Errorf("matdef: %s: %w", d.Name, err)
		}
	}
	common.Logger().Debug("material definition instantiated", "material", d.Name, "textures", len(loaded.Textures))
	return loaded, nil
}

func resolve(baseDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// LoadMaterial loads a definition file and instantiates it, resolving paths against the file's directory.
//
// Parameters:
//   - drv: the driver
//   - path: the definition file
//
// Returns:
//   - *Loaded: the material and its textures
//   - error: an error if loading or instantiation failed
func LoadMaterial(drv driver.Driver, path string) (*Loaded, error) {
	def, err := Load(path)
	if err != nil {
		return nil, err
	}
	return def.Instantiate(drv, filepath.Dir(path))
}
