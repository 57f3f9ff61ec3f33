// Package asset holds the per-instance view of an imported asset: its entities, its skins and the
// material variants that can be swapped onto its renderables.
package asset

import (
	"slices"

	"github.com/Carmen-Shannon/oxy-matcore/common"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/driver"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/material"
)

// Entity identifies a scene entity. The zero value is the null entity.
type Entity uint32

// IsNull reports whether e is the null entity.
func (e Entity) IsNull() bool {
	return e == 0
}

// Skin is a named set of joints. Targets are the renderables currently deformed by the skin.
type Skin struct {
	Name    string
	Joints  []Entity
	targets []Entity
}

// VariantMapping assigns a material instance to one primitive of a renderable.
type VariantMapping struct {
	Renderable     Entity
	PrimitiveIndex int
	Material       material.MaterialInstance
}

// Variant is a named set of material assignments applied together.
type Variant struct {
	Name     string
	Mappings []VariantMapping
}

// RenderableManager is the part of the renderable component manager an instance needs to swap
// materials.
type RenderableManager interface {
	// SetMaterialInstanceAt replaces the material instance of one primitive of a renderable.
	//
	// Parameters:
	//   - renderable: the renderable entity
	//   - primitiveIndex: the primitive within the renderable
	//   - mi: the material instance to use
	SetMaterialInstanceAt(renderable Entity, primitiveIndex int, mi material.MaterialInstance)
}

// instance is the implementation of the Instance interface.
type instance struct {
	root        Entity
	entities    []Entity
	skins       []Skin
	variants    []Variant
	materials   []material.MaterialInstance
	textures    []driver.TextureHandle
	renderables RenderableManager
}

// Instance is one instantiation of an asset. Out-of-range skin and variant indices are ignored by
// every method: queries return zero values and mutations do nothing.
type Instance interface {
	// Root returns the entity every other entity of the instance descends from.
	//
	// Returns:
	//   - Entity: the root entity
	Root() Entity

	// Entities returns the entities of the instance, excluding the root. The slice is a copy.
	//
	// Returns:
	//   - []Entity: the entities
	Entities() []Entity

	// EntityCount returns the number of entities, excluding the root.
	//
	// Returns:
	//   - int: the entity count
	EntityCount() int

	// SkinCount returns the number of skins.
	//
	// Returns:
	//   - int: the skin count
	SkinCount() int

	// SkinNameAt returns the name of a skin.
	//
	// Parameters:
	//   - skinIndex: the skin
	//
	// Returns:
	//   - string: the name, or "" for an invalid index
	SkinNameAt(skinIndex int) string

	// JointCountAt returns the number of joints of a skin.
	//
	// Parameters:
	//   - skinIndex: the skin
	//
	// Returns:
	//   - int: the joint count, or 0 for an invalid index
	JointCountAt(skinIndex int) int

	// JointsAt returns the joints of a skin. The slice is a copy.
	//
	// Parameters:
	//   - skinIndex: the skin
	//
	// Returns:
	//   - []Entity: the joints, or nil for an invalid index
	JointsAt(skinIndex int) []Entity

	// AttachSkin makes a skin deform target. Attaching twice has no further effect; an invalid
	// index or a null target is ignored.
	//
	// Parameters:
	//   - skinIndex: the skin
	//   - target: the renderable to deform
	AttachSkin(skinIndex int, target Entity)

	// DetachSkin stops a skin from deforming target. Invalid indices, null targets and targets that
	// are not attached are ignored.
	//
	// Parameters:
	//   - skinIndex: the skin
	//   - target: the renderable
	DetachSkin(skinIndex int, target Entity)

	// SkinTargetsAt returns the renderables a skin is attached to, in attachment order.
	//
	// Parameters:
	//   - skinIndex: the skin
	//
	// Returns:
	//   - []Entity: the targets, or nil for an invalid index
	SkinTargetsAt(skinIndex int) []Entity

	// MaterialVariantCount returns the number of material variants.
	//
	// Returns:
	//   - int: the variant count
	MaterialVariantCount() int

	// MaterialVariantNameAt returns the name of a material variant.
	//
	// Parameters:
	//   - variantIndex: the variant
	//
	// Returns:
	//   - string: the name, or "" for an invalid index
	MaterialVariantNameAt(variantIndex int) string

	// ApplyMaterialVariant pushes every mapping of a variant to the renderable manager. An invalid
	// index, or an instance without a renderable manager, does nothing.
	//
	// Parameters:
	//   - variantIndex: the variant
	ApplyMaterialVariant(variantIndex int)

	// MaterialInstances returns the material instances owned by the instance, in creation order.
	//
	// Returns:
	//   - []material.MaterialInstance: the owned instances
	MaterialInstances() []material.MaterialInstance

	// Destroy terminates every owned material instance and every instance referenced by the
	// variants, then releases the owned textures. Each distinct instance is terminated once.
	//
	// Parameters:
	//   - drv: the driver the instances were committed to
	Destroy(drv driver.Driver)
}

var _ Instance = &instance{}

// NewInstance creates an Instance configured with the given options.
//
// Parameters:
//   - options: functional options describing the instance
//
// Returns:
//   - Instance: the new instance
func NewInstance(options ...InstanceBuilderOption) Instance {
	inst := &instance{}
	for _, opt := range options {
		opt(inst)
	}
	return inst
}

func (a *instance) Root() Entity {
	return a.root
}

func (a *instance) Entities() []Entity {
	return common.Clone(a.entities)
}

func (a *instance) EntityCount() int {
	return len(a.entities)
}

// skin returns the skin at index, or nil for an invalid index.
func (a *instance) skin(index int) *Skin {
	if index < 0 || index >= len(a.skins) {
		return nil
	}
	return &a.skins[index]
}

func (a *instance) SkinCount() int {
	return len(a.skins)
}

func (a *instance) SkinNameAt(skinIndex int) string {
	if s := a.skin(skinIndex); s != nil {
		return s.Name
	}
	return ""
}

func (a *instance) JointCountAt(skinIndex int) int {
	if s := a.skin(skinIndex); s != nil {
		return len(s.Joints)
	}
	return 0
}

func (a *instance) JointsAt(skinIndex int) []Entity {
	if s := a.skin(skinIndex); s != nil {
		return common.Clone(s.Joints)
	}
	return nil
}

func (a *instance) AttachSkin(skinIndex int, target Entity) {
	s := a.skin(skinIndex)
	if s == nil || target.IsNull() || slices.Contains(s.targets, target) {
		return
	}
	s.targets = append(s.targets, target)
}

func (a *instance) DetachSkin(skinIndex int, target Entity) {
	s := a.skin(skinIndex)
	if s == nil || target.IsNull() {
		return
	}
	if i := slices.Index(s.targets, target); i >= 0 {
		s.targets = slices.Delete(s.targets, i, i+1)
	}
}

func (a *instance) SkinTargetsAt(skinIndex int) []Entity {
	if s := a.skin(skinIndex); s != nil {
		return common.Clone(s.targets)
	}
	return nil
}

func (a *instance) MaterialVariantCount() int {
	return len(a.variants)
}

func (a *instance) MaterialVariantNameAt(variantIndex int) string {
	if variantIndex < 0 || variantIndex >= len(a.variants) {
		return ""
	}
	return a.variants[variantIndex].Name
}

func (a *instance) ApplyMaterialVariant(variantIndex int) {
	if variantIndex < 0 || variantIndex >= len(a.variants) || a.renderables == nil {
		return
	}
	v := a.variants[variantIndex]
	for _, m := range v.Mappings {
		a.renderables.SetMaterialInstanceAt(m.Renderable, m.PrimitiveIndex, m.Material)
	}
	common.Logger().Debug("material variant applied", "variant", v.Name, "mappings", len(v.Mappings))
}

func (a *instance) MaterialInstances() []material.MaterialInstance {
	return common.Clone(a.materials)
}

func (a *instance) Destroy(drv driver.Driver) {
	seen := make(map[material.MaterialInstance]struct{})
	terminate := func(mi material.MaterialInstance) {
		if mi == nil {
			return
		}
		if _, done := seen[mi]; done {
			return
		}
		seen[mi] = struct{}{}
		mi.Terminate(drv)
	}
	for _, mi := range a.materials {
		terminate(mi)
	}
	for _, v := range a.variants {
		for _, m := range v.Mappings {
			terminate(m.Material)
		}
	}
	for _, h := range a.textures {
		drv.DestroyTexture(h)
	}
	a.textures = nil
}
