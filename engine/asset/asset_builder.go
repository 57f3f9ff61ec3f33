package asset

import (
	"github.com/Carmen-Shannon/oxy-matcore/common"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/driver"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/material"
)

// InstanceBuilderOption is a function that configures an instance.
type InstanceBuilderOption func(*instance)

// WithRoot is an option builder that sets the root entity.
//
// Parameters:
//   - root: the root entity
//
// Returns:
//   - InstanceBuilderOption: a function that applies the root
func WithRoot(root Entity) InstanceBuilderOption {
	return func(a *instance) {
		a.root = root
	}
}

// WithEntities is an option builder that appends entities to the instance.
//
// Parameters:
//   - entities: the entities, excluding the root
//
// Returns:
//   - InstanceBuilderOption: a function that appends the entities
func WithEntities(entities ...Entity) InstanceBuilderOption {
	return func(a *instance) {
		a.entities = append(a.entities, entities...)
	}
}

// WithSkin is an option builder that appends a skin with no targets.
//
// Parameters:
//   - name: the skin name
//   - joints: the joint entities, in joint order
//
// Returns:
//   - InstanceBuilderOption: a function that appends the skin
func WithSkin(name string, joints ...Entity) InstanceBuilderOption {
	return func(a *instance) {
		a.skins = append(a.skins, Skin{Name: name, Joints: common.Clone(joints)})
	}
}

// WithMaterialVariant is an option builder that appends a material variant.
//
// Parameters:
//   - name: the variant name
//   - mappings: the material assignments of the variant
//
// Returns:
//   - InstanceBuilderOption: a function that appends the variant
func WithMaterialVariant(name string, mappings ...VariantMapping) InstanceBuilderOption {
	return func(a *instance) {
		a.variants = append(a.variants, Variant{Name: name, Mappings: common.Clone(mappings)})
	}
}

// WithRenderableManager is an option builder that sets the manager variants are applied through.
//
// Parameters:
//   - rm: the renderable manager
//
// Returns:
//   - InstanceBuilderOption: a function that applies the manager
func WithRenderableManager(rm RenderableManager) InstanceBuilderOption {
	return func(a *instance) {
		a.renderables = rm
	}
}

// WithMaterialInstances is an option builder that hands ownership of material instances to the instance.
//
// Parameters:
//   - instances: the material instances to terminate on Destroy
//
// Returns:
//   - InstanceBuilderOption: a function that appends the instances
func WithMaterialInstances(instances ...material.MaterialInstance) InstanceBuilderOption {
	return func(a *instance) {
		a.materials = append(a.materials, instances...)
	}
}

// WithTextures is an option builder that hands ownership of textures to the instance.
func WithTextures(textures ...driver.TextureHandle) InstanceBuilderOption {
	return func(a *instance) {
		a.textures = append(a.textures, textures...)
	}
}
