// Package sampler describes the samplers a material exposes and mirrors the texture bindings of one
// material instance until they are committed to the driver.
package sampler

import (
	"github.com/Carmen-Shannon/oxy-matcore/common"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/uniform"
)

// Entry is the declaration of one sampler, as submitted to a Builder.
type Entry struct {
	Name        string
	Type        Type
	Format      Format
	Precision   uniform.Precision
	Multisample bool
}

// Info is the resolved declaration of one sampler.
type Info struct {
	Name string
	// Offset is the binding-relative index of the sampler within its group.
	Offset      uint8
	Type        Type
	Format      Format
	Precision   uniform.Precision
	Multisample bool
}

// interfaceBlock is the implementation of the InterfaceBlock interface.
type interfaceBlock struct {
	name   string
	infos  []Info
	index  map[string]int
	policy common.ErrorPolicy
}

// InterfaceBlock is a frozen list of samplers. Like a uniform block it is read-only after Build and
// may be shared freely.
type InterfaceBlock interface {
	// Name returns the diagnostic name of the block.
	//
	// Returns:
	//   - string: the block name
	Name() string

	// Size returns the number of samplers in the block.
	//
	// Returns:
	//   - int: the sampler count
	Size() int

	// Infos returns the samplers in declaration order. The returned slice is a copy.
	//
	// Returns:
	//   - []Info: the sampler declarations
	Infos() []Info

	// SamplerOffset returns the binding-relative index of the named sampler. On a miss the block
	// returns -1 or panics with a *common.LookupError, depending on its error policy.
	//
	// Parameters:
	//   - name: the sampler name
	//
	// Returns:
	//   - int: the index, or -1 if the sampler does not exist
	SamplerOffset(name string) int

	// SamplerInfo returns the declaration of the named sampler. It never panics.
	//
	// Parameters:
	//   - name: the sampler name
	//
	// Returns:
	//   - Info: the sampler declaration
	//   - bool: false if the block has no such sampler
	SamplerInfo(name string) (Info, bool)

	// HasSampler reports whether the block declares the named sampler.
	//
	// Parameters:
	//   - name: the sampler name
	//
	// Returns:
	//   - bool: true if the sampler exists
	HasSampler(name string) bool

	// IsEmpty reports whether the block declares no samplers.
	IsEmpty() bool

	// ErrorPolicy returns the policy lookups of this block follow.
	ErrorPolicy() common.ErrorPolicy
}

var _ InterfaceBlock = &interfaceBlock{}

func (b *interfaceBlock) Name() string {
	return b.name
}

func (b *interfaceBlock) Size() int {
	return len(b.infos)
}

func (b *interfaceBlock) Infos() []Info {
	return common.Clone(b.infos)
}

func (b *interfaceBlock) SamplerOffset(name string) int {
	i, ok := b.index[name]
	if !ok {
		lookupErr := &common.LookupError{Block: b.name, Name: name, Index: -1, Err: common.ErrUnknownParameter}
		if b.policy == common.ErrorPolicyThrow {
			panic(lookupErr)
		}
		common.Logger().Warn("sampler lookup miss", "block", b.name, "name", name)
		return -1
	}
	return int(b.infos[i].Offset)
}

func (b *interfaceBlock) SamplerInfo(name string) (Info, bool) {
	i, ok := b.index[name]
	if !ok {
		return Info{}, false
	}
	return b.infos[i], true
}

func (b *interfaceBlock) HasSampler(name string) bool {
	_, ok := b.index[name]
	return ok
}

func (b *interfaceBlock) IsEmpty() bool {
	return len(b.infos) == 0
}

func (b *interfaceBlock) ErrorPolicy() common.ErrorPolicy {
	return b.policy
}
