// Package loader imports glTF 2.0 assets as asset instances: one material instance per glTF material,
// the textures they sample, skins, and KHR_materials_variants.
//
// Geometry is not read. glTF material values reach the instances through the parameter and sampler
// names below; a material that does not declare a name, or declares it with another type, ignores
// that value.
package loader

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-matcore/common"
	"github.com/Carmen-Shannon/oxy-matcore/engine/asset"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/driver"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/material"
)

// Uniform parameters written from glTF material factors.
const (
	BaseColorParameter   = "baseColorFactor" // float4
	MetallicParameter    = "metallicFactor"  // float
	RoughnessParameter   = "roughnessFactor" // float
	EmissiveParameter    = "emissiveFactor"  // float3
	NormalScaleParameter = "normalScale"     // float
)

// Samplers bound to glTF material textures.
const (
	BaseColorMap         = "baseColorMap"
	MetallicRoughnessMap = "metallicRoughnessMap"
	NormalMap            = "normalMap"
	OcclusionMap         = "occlusionMap"
	EmissiveMap          = "emissiveMap"
)

// ErrNoMaterial is returned when a Loader has no material to instantiate.
var ErrNoMaterial = errors.New("loader has no material")

// ErrClosed is returned by loads on a closed Loader.
var ErrClosed = errors.New("loader is closed")

// decodeQueueSize bounds the images waiting for a decode worker.
const decodeQueueSize = 64

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	drv         driver.Driver
	mat         material.Material
	renderables asset.RenderableManager

	decodeWorkers int
	pool          worker.DynamicWorkerPool
	closed        bool

	cache map[string]asset.Instance
}

// Loader imports glTF assets and caches the resulting instances by name.
type Loader interface {
	// Load imports a .gltf or .glb file and caches the result under its path. A cached instance is
	// returned without reading the file again.
	//
	// Parameters:
	//   - path: the file path to the asset
	//
	// Returns:
	//   - asset.Instance: the loaded instance
	//   - error: error if the file cannot be read, parsed or instantiated
	Load(path string) (asset.Instance, error)

	// LoadReader imports an asset from a stream and caches it under name.
	//
	// Parameters:
	//   - name: the cache key
	//   - r: the reader providing the asset
	//   - isGLB: true if the reader provides GLB binary data
	//
	// Returns:
	//   - asset.Instance: the loaded instance
	//   - error: error if the data cannot be parsed or instantiated
	LoadReader(name string, r io.Reader, isGLB bool) (asset.Instance, error)

	// Get retrieves a cached instance by name. Returns nil if not found.
	Get(name string) asset.Instance

	// Instances returns a copy of the cache.
	//
	// Returns:
	//   - map[string]asset.Instance: all cached instances keyed by name
	Instances() map[string]asset.Instance

	// Evict destroys a cached instance and removes it from the cache. Unknown names are ignored.
	//
	// Parameters:
	//   - name: the cache key
	Evict(name string)

	// Close destroys every cached instance and stops the decode workers. Later loads fail with
	// ErrClosed; closing twice does nothing.
	Close()
}

var _ Loader = &loader{}

// NewLoader creates a new Loader with the given options applied. WithDriver and WithMaterial are
// required before the first load.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new Loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		decodeWorkers: runtime.NumCPU(),
		cache:         make(map[string]asset.Instance),
	}

	for _, option := range options {
		option(l)
	}

	l.pool = worker.NewDynamicWorkerPool(l.decodeWorkers, decodeQueueSize, time.Second)
	return l
}

func (l *loader) Load(path string) (asset.Instance, error) {
	if inst := l.Get(path); inst != nil {
		return inst, nil
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".gltf" && ext != ".glb" {
		return nil, fmt.Errorf("unsupported asset format %q", ext)
	}

	parser := newGLTFParser()
	if err := parser.Parse(path); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return l.instantiate(path, parser)
}

func (l *loader) LoadReader(name string, r io.Reader, isGLB bool) (asset.Instance, error) {
	parser := newGLTFParser()
	if err := parser.ParseReader(r, isGLB); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return l.instantiate(name, parser)
}

// instantiate imports the parsed document and caches the instance under name, replacing and destroying
// any instance previously cached there.
func (l *loader) instantiate(name string, parser gltfParser) (asset.Instance, error) {
	if l.drv == nil || l.mat == nil {
		return nil, ErrNoMaterial
	}
	l.mu.RLock()
	closed := l.closed
	l.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}

	inst, err := newGLTFImporter(l.drv, l.mat, l.renderables, l.pool).Import(parser)
	if err != nil {
		return nil, fmt.Errorf("failed to import %s: %w", name, err)
	}

	l.mu.Lock()
	old := l.cache[name]
	l.cache[name] = inst
	l.mu.Unlock()

	if old != nil {
		old.Destroy(l.drv)
	}
	common.Logger().Debug("asset loaded", "name", name, "material", l.mat.Name())
	return inst, nil
}

func (l *loader) Get(name string) asset.Instance {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cache[name]
}

func (l *loader) Instances() map[string]asset.Instance {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return maps.Clone(l.cache)
}

func (l *loader) Evict(name string) {
	l.mu.Lock()
	inst, ok := l.cache[name]
	delete(l.cache, name)
	l.mu.Unlock()

	if ok {
		inst.Destroy(l.drv)
	}
}

func (l *loader) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	cached := l.cache
	l.cache = make(map[string]asset.Instance)
	l.mu.Unlock()

	for _, inst := range cached {
		inst.Destroy(l.drv)
	}
	l.pool.Stop()
	common.Logger().Debug("loader closed", "instances", len(cached))
}
