package loader

import (
	"github.com/Carmen-Shannon/oxy-matcore/engine/asset"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/driver"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/material"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithDriver is an option builder that sets the driver textures are uploaded and released through.
//
// Parameters:
//   - drv: the driver
//
// Returns:
//   - LoaderBuilderOption: a function that applies the driver option to a loader
func WithDriver(drv driver.Driver) LoaderBuilderOption {
	return func(l *loader) {
		l.drv = drv
	}
}

// WithMaterial is an option builder that sets the material every glTF material is instantiated from.
//
// Parameters:
//   - mat: the material
//
// Returns:
//   - LoaderBuilderOption: a function that applies the material option to a loader
func WithMaterial(mat material.Material) LoaderBuilderOption {
	return func(l *loader) {
		l.mat = mat
	}
}

// WithRenderableManager is an option builder that sets the manager primitives get their materials and
// variants through.
//
// Parameters:
//   - rm: the renderable manager
//
// Returns:
//   - LoaderBuilderOption: a function that applies the manager option to a loader
func WithRenderableManager(rm asset.RenderableManager) LoaderBuilderOption {
	return func(l *loader) {
		l.renderables = rm
	}
}

// WithInstance is an option builder that pre-populates the cache.
//
// Parameters:
//   - key: the cache key
//   - inst: the instance to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the instance option to a loader
func WithInstance(key string, inst asset.Instance) LoaderBuilderOption {
	return func(l *loader) {
		l.cache[key] = inst
	}
}

// WithDecodeWorkers is an option builder that sets how many images are decoded in parallel. The
// default is the number of CPUs.
//
// Parameters:
//   - n: the number of decode workers; values below 1 select one worker
//
// Returns:
//   - LoaderBuilderOption: a function that applies the worker count to a loader
func WithDecodeWorkers(n int) LoaderBuilderOption {
	return func(l *loader) {
		l.decodeWorkers = max(n, 1)
	}
}
