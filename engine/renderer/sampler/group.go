package sampler

import "github.com/Carmen-Shannon/oxy-matcore/common"

// TextureHandle identifies a texture owned by the driver. The zero value means no texture.
type TextureHandle uint32

// IsValid reports whether the handle refers to a texture.
func (h TextureHandle) IsValid() bool {
	return h != 0
}

// Binding pairs a texture with the parameters it is sampled with.
type Binding struct {
	Texture TextureHandle
	Params  Params
}

// Group is the CPU-side mirror of a sampler group: one Binding per sampler of an InterfaceBlock.
// A Group is not safe for concurrent mutation.
type Group struct {
	bindings []Binding
	dirty    bool
}

// NewGroup creates a group of size empty bindings. A new group is dirty.
//
// Parameters:
//   - size: the number of samplers, normally InterfaceBlock.Size()
//
// Returns:
//   - *Group: the new group
func NewGroup(size int) *Group {
	return &Group{bindings: make([]Binding, size), dirty: true}
}

// Size returns the number of bindings in the group.
func (g *Group) Size() int {
	return len(g.bindings)
}

// SetSampler replaces the binding at index and marks the group dirty if it changed.
// An index outside the group is ignored.
//
// Parameters:
//   - index: the binding-relative sampler index
//   - texture: the texture to sample
//   - params: the sampling parameters
func (g *Group) SetSampler(index int, texture TextureHandle, params Params) {
	if index < 0 || index >= len(g.bindings) {
		return
	}
	b := Binding{Texture: texture, Params: params}
	if g.bindings[index] != b {
		g.bindings[index] = b
		g.dirty = true
	}
}

// Binding returns the binding at index.
//
// Parameters:
//   - index: the binding-relative sampler index
//
// Returns:
//   - Binding: the binding
//   - bool: false if index is outside the group
func (g *Group) Binding(index int) (Binding, bool) {
	if index < 0 || index >= len(g.bindings) {
		return Binding{}, false
	}
	return g.bindings[index], true
}

// Bindings returns a copy of all bindings in index order.
func (g *Group) Bindings() []Binding {
	return common.Clone(g.bindings)
}

// IsDirty reports whether the group changed since the last Clean.
func (g *Group) IsDirty() bool {
	return g.dirty
}

// Invalidate marks the group as needing an update.
func (g *Group) Invalidate() {
	g.dirty = true
}

// Clean marks the group as committed.
func (g *Group) Clean() {
	g.dirty = false
}

// Clone returns an independent, dirty copy of the group.
func (g *Group) Clone() *Group {
	return &Group{bindings: common.Clone(g.bindings), dirty: true}
}
