package shader

import "github.com/Carmen-Shannon/oxy-matcore/engine/renderer/program"

// ResourceKind classifies a module-scope resource variable.
type ResourceKind uint8

const (
	ResourceUnknown ResourceKind = iota
	ResourceUniformBuffer
	ResourceStorageBuffer
	ResourceTexture
	ResourceDepthTexture
	ResourceStorageTexture
	ResourceSampler
	ResourceComparisonSampler
)

var resourceKindNames = [...]string{
	ResourceUnknown:           "unknown",
	ResourceUniformBuffer:     "uniform buffer",
	ResourceStorageBuffer:     "storage buffer",
	ResourceTexture:           "texture",
	ResourceDepthTexture:      "depth texture",
	ResourceStorageTexture:    "storage texture",
	ResourceSampler:           "sampler",
	ResourceComparisonSampler: "comparison sampler",
}

func (k ResourceKind) String() string {
	if int(k) < len(resourceKindNames) {
		return resourceKindNames[k]
	}
	return "unknown"
}

// Member is one member of a reflected struct with its resolved byte placement.
type Member struct {
	Name   string
	Type   string
	Offset uint32
	Size   uint32
}

// Struct is a reflected struct declaration. Size and Align are zero if a member type could not be
// resolved.
type Struct struct {
	Name    string
	Members []Member
	Size    uint32
	Align   uint32
}

// Member looks up a member by name.
func (s Struct) Member(name string) (Member, bool) {
	for _, m := range s.Members {
		if m.Name == name {
			return m, true
		}
	}
	return Member{}, false
}

// Binding is a module-scope @group/@binding variable declaration.
type Binding struct {
	Group   uint32
	Binding uint32
	// AddressSpace is the var<> qualifier, empty for handle types.
	AddressSpace string
	Name         string
	Type         string
	Kind         ResourceKind
}

// Reflection is the resource interface of a WGSL module as far as it can be recovered from the source
// text: struct layouts, bound variables and entry points.
type Reflection struct {
	Structs     map[string]Struct
	Bindings    []Binding
	EntryPoints map[program.ShaderStage]string
}

// Binding returns the variable declared at group and binding.
//
// Parameters:
//   - group: the bind group index
//   - binding: the binding index within the group
//
// Returns:
//   - Binding: the declaration
//   - bool: false if nothing is declared there
func (r *Reflection) Binding(group, binding uint32) (Binding, bool) {
	for _, b := range r.Bindings {
		if b.Group == group && b.Binding == binding {
			return b, true
		}
	}
	return Binding{}, false
}

// Group returns the variables declared in one bind group, in source order.
func (r *Reflection) Group(group uint32) []Binding {
	var out []Binding
	for _, b := range r.Bindings {
		if b.Group == group {
			out = append(out, b)
		}
	}
	return out
}

// wgslTypeLayout holds the byte size and alignment for a WGSL type.
type wgslTypeLayout struct {
	size  uint32
	align uint32
}

// parsedField represents a single field extracted from a WGSL struct during parsing.
// size and align hold the @size and @align attributes, zero when absent.
type parsedField struct {
	name      string
	typeName  string
	size      uint32
	align     uint32
	isBuiltin bool
}

// parsedStruct represents a WGSL struct block extracted during parsing.
type parsedStruct struct {
	name   string
	fields []parsedField
}
