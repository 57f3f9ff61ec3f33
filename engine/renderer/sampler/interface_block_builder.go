package sampler

import (
	"math"

	"github.com/Carmen-Shannon/oxy-matcore/common"
)

// Builder accumulates sampler declarations. It is consumed by Build.
type Builder struct {
	name     string
	entries  []Entry
	consumed bool
}

// InterfaceBlockBuilderOption is a functional option applied to a sampler block during Build.
type InterfaceBlockBuilderOption func(*interfaceBlock)

// WithErrorPolicy selects how lookups on the built block report misses.
//
// Parameters:
//   - policy: the error policy for the block
//
// Returns:
//   - InterfaceBlockBuilderOption: a function that applies the policy to the block
func WithErrorPolicy(policy common.ErrorPolicy) InterfaceBlockBuilderOption {
	return func(b *interfaceBlock) {
		b.policy = policy
	}
}

// NewBuilder creates an empty sampler block builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Name sets the diagnostic name of the block.
func (b *Builder) Name(name string) *Builder {
	b.checkLive()
	b.name = name
	return b
}

// Add appends sampler declarations. Samplers receive consecutive indices in the order they are added.
func (b *Builder) Add(entries ...Entry) *Builder {
	b.checkLive()
	b.entries = append(b.entries, entries...)
	return b
}

// Build freezes the declarations. Duplicate names, unknown types or more samplers than an index can
// address panic with a *common.ConfigError.
//
// Parameters:
//   - options: functional options applied to the block
//
// Returns:
//   - InterfaceBlock: the frozen block
func (b *Builder) Build(options ...InterfaceBlockBuilderOption) InterfaceBlock {
	b.checkLive()
	b.consumed = true

	if len(b.entries) > math.MaxUint8+1 {
		common.PanicConfig("sampler", common.ErrBindingOutOfRange, "block %q declares %d samplers", b.name, len(b.entries))
	}

	block := &interfaceBlock{
		name:   b.name,
		infos:  make([]Info, len(b.entries)),
		index:  make(map[string]int, len(b.entries)),
		policy: common.DefaultErrorPolicy,
	}
	for i, e := range b.entries {
		if _, dup := block.index[e.Name]; dup {
			common.PanicConfig("sampler", common.ErrDuplicateName, "block %q sampler %q", b.name, e.Name)
		}
		if int(e.Type) >= len(typeNames) || int(e.Format) >= len(formatNames) {
			common.PanicConfig("sampler", common.ErrUnknownType, "block %q sampler %q type %v format %v", b.name, e.Name, e.Type, e.Format)
		}
		block.infos[i] = Info{
			Name:        e.Name,
			Offset:      uint8(i),
			Type:        e.Type,
			Format:      e.Format,
			Precision:   e.Precision,
			Multisample: e.Multisample,
		}
		block.index[e.Name] = i
	}
	for _, opt := range options {
		opt(block)
	}
	b.entries = nil
	return block
}

func (b *Builder) checkLive() {
	if b.consumed {
		common.PanicConfig("sampler", common.ErrBuilderConsumed, "block %q", b.name)
	}
}
