package uniform

import (
	"github.com/Carmen-Shannon/oxy-matcore/common"
)

// Builder accumulates the declaration of an interface block. It is consumed by Build; any use
// afterwards panics.
type Builder struct {
	name     string
	fields   []Field
	consumed bool
}

// InterfaceBlockBuilderOption is a functional option applied to an interface block during Build.
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

// NewBuilder creates an empty interface block builder.
//
// Returns:
//   - *Builder: a new builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Name sets the diagnostic name of the block.
//
// Parameters:
//   - name: the block name
//
// Returns:
//   - *Builder: the builder, for chaining
func (b *Builder) Name(name string) *Builder {
	b.checkLive()
	b.name = name
	return b
}

// Add appends field declarations. Fields are laid out in the order they are added.
//
// Parameters:
//   - fields: the fields to append
//
// Returns:
//   - *Builder: the builder, for chaining
func (b *Builder) Add(fields ...Field) *Builder {
	b.checkLive()
	b.fields = append(b.fields, fields...)
	return b
}

// Build computes the layout and returns the frozen block. The builder cannot be used afterwards.
// Configuration errors (unknown types, duplicate names, struct fields without stride) panic with a
// *common.ConfigError.
//
// Parameters:
//   - options: functional options applied to the block, e.g. WithErrorPolicy
//
// Returns:
//   - InterfaceBlock: the frozen block
func (b *Builder) Build(options ...InterfaceBlockBuilderOption) InterfaceBlock {
	b.checkLive()
	b.consumed = true

	infos, index, size := computeLayout(b.name, b.fields)
	block := &interfaceBlock{
		name:   b.name,
		infos:  infos,
		index:  index,
		size:   size,
		policy: common.DefaultErrorPolicy,
	}
	for _, opt := range options {
		opt(block)
	}
	b.fields = nil
	return block
}

func (b *Builder) checkLive() {
	if b.consumed {
		common.PanicConfig("uniform", common.ErrBuilderConsumed, "block %q", b.name)
	}
}
