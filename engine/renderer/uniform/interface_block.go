// Package uniform computes std140-compatible memory layouts for uniform interface blocks and holds the
// CPU-side mirror of a uniform buffer.
//
// Offsets, strides and sizes are expressed in 4-byte words unless a function says otherwise. The layout
// rules are the std140 rules:
//
//   - every field is placed at the next multiple of its base alignment (see BaseAlignment)
//   - array fields (ArrayLength > 1) align to 4 words and round their element stride up to 4 words
//   - struct fields align to 4 words and take the element stride supplied by the caller
//   - the block size is rounded up to a multiple of 4 words (16 bytes)
//
// Layout depends on declaration order; reordering fields produces a different, equally valid layout.
package uniform

import (
	"github.com/Carmen-Shannon/oxy-matcore/common"
)

// Field is the declaration of one uniform field, as submitted to a Builder.
type Field struct {
	// Name identifies the field; it must be unique within a block.
	Name string
	// Type is the element type.
	Type Type
	// Precision is the shader precision qualifier.
	Precision Precision
	// ArrayLength is the number of array elements, or 0 for a field that is not an array.
	ArrayLength uint32
	// StructName is the shader type name of a Struct field.
	StructName string
	// Stride is the element size in words of a Struct field. For other types a non-zero Stride
	// larger than the element width widens the array stride.
	Stride uint32
}

// Info is the resolved layout of one field.
type Info struct {
	// Name of the field.
	Name string
	// Offset of the first element, in words from the start of the block.
	Offset uint32
	// Stride between consecutive array elements in words; 0 for a field that is not an array.
	Stride uint32
	// Width is the number of words one element occupies.
	Width uint32
	// Type is the element type.
	Type Type
	// ArrayLength is the number of elements, or 0 when the field is not an array.
	ArrayLength uint32
	// Precision is the shader precision qualifier.
	Precision Precision
	// StructName is the shader type name for Struct fields.
	StructName string
}

// IsArray reports whether the field was declared with more than one element.
func (i Info) IsArray() bool {
	return i.ArrayLength > 1
}

// ElementCount returns the number of addressable elements, which is at least 1.
func (i Info) ElementCount() uint32 {
	return max(1, i.ArrayLength)
}

// BufferOffset returns the byte offset of element index.
//
// Parameters:
//   - index: the array element, 0 for non-array fields
//
// Returns:
//   - int: the byte offset from the start of the block
func (i Info) BufferOffset(index int) int {
	return int(i.Offset+i.Stride*uint32(index)) * 4
}

// End returns the word just past the last element of the field.
func (i Info) End() uint32 {
	return i.Offset + i.Stride*(i.ElementCount()-1) + i.Width
}

// interfaceBlock is the implementation of the InterfaceBlock interface.
type interfaceBlock struct {
	name   string
	infos  []Info
	index  map[string]int
	size   uint32 // words, multiple of 4
	policy common.ErrorPolicy
}

// InterfaceBlock is a frozen uniform block layout. It is created once with a Builder and is read-only
// afterwards, so a single block may be shared by any number of material instances and goroutines.
type InterfaceBlock interface {
	// Name returns the diagnostic name of the block.
	//
	// Returns:
	//   - string: the block name
	Name() string

	// Size returns the size of the block in bytes, a multiple of 16.
	//
	// Returns:
	//   - int: the block size in bytes
	Size() int

	// SizeWords returns the size of the block in 4-byte words, a multiple of 4.
	//
	// Returns:
	//   - uint32: the block size in words
	SizeWords() uint32

	// Infos returns the resolved fields in declaration order. The returned slice is a copy.
	//
	// Returns:
	//   - []Info: the field layouts
	Infos() []Info

	// UniformOffset returns the word offset of element index of the named field.
	// On a miss the block either returns -1 or panics with a *common.LookupError, depending on the
	// error policy it was built with.
	//
	// Parameters:
	//   - name: the field name
	//   - index: the array element, 0 for non-array fields
	//
	// Returns:
	//   - int: the word offset, or -1 when the field does not exist or index is out of range
	UniformOffset(name string, index int) int

	// UniformInfo returns the layout of the named field. It never panics.
	//
	// Parameters:
	//   - name: the field name
	//
	// Returns:
	//   - Info: the field layout
	//   - bool: false if the block has no such field
	UniformInfo(name string) (Info, bool)

	// HasUniform reports whether the block declares the named field.
	//
	// Parameters:
	//   - name: the field name
	//
	// Returns:
	//   - bool: true if the field exists
	HasUniform(name string) bool

	// IsEmpty reports whether the block declares no fields.
	//
	// Returns:
	//   - bool: true if the block has no fields
	IsEmpty() bool

	// ErrorPolicy returns the policy lookups of this block follow.
	//
	// Returns:
	//   - common.ErrorPolicy: the policy chosen at build time
	ErrorPolicy() common.ErrorPolicy
}

var _ InterfaceBlock = &interfaceBlock{}

func (b *interfaceBlock) Name() string {
	return b.name
}

func (b *interfaceBlock) Size() int {
	return int(b.size) * 4
}

func (b *interfaceBlock) SizeWords() uint32 {
	return b.size
}

func (b *interfaceBlock) Infos() []Info {
	return common.Clone(b.infos)
}

func (b *interfaceBlock) UniformOffset(name string, index int) int {
	i, ok := b.index[name]
	if !ok {
		b.miss(name, -1, common.ErrUnknownParameter)
		return -1
	}
	info := &b.infos[i]
	if index < 0 || index >= int(info.ElementCount()) {
		b.miss(name, index, common.ErrIndexOutOfRange)
		return -1
	}
	return int(info.Offset + info.Stride*uint32(index))
}

func (b *interfaceBlock) UniformInfo(name string) (Info, bool) {
	i, ok := b.index[name]
	if !ok {
		return Info{}, false
	}
	return b.infos[i], true
}

func (b *interfaceBlock) HasUniform(name string) bool {
	_, ok := b.index[name]
	return ok
}

func (b *interfaceBlock) IsEmpty() bool {
	return len(b.infos) == 0
}

func (b *interfaceBlock) ErrorPolicy() common.ErrorPolicy {
	return b.policy
}

// miss reports a failed lookup according to the block's error policy.
func (b *interfaceBlock) miss(name string, index int, err error) {
	lookupErr := &common.LookupError{Block: b.name, Name: name, Index: index, Err: err}
	if b.policy == common.ErrorPolicyThrow {
		panic(lookupErr)
	}
	common.Logger().Warn("uniform lookup miss", "block", b.name, "name", name, "index", index, "err", err)
}

// computeLayout places fields in declaration order and returns their layouts and the block size in words.
// It panics with a *common.ConfigError on unknown types, duplicate names or struct fields without a stride.
func computeLayout(blockName string, fields []Field) ([]Info, map[string]int, uint32) {
	infos := make([]Info, len(fields))
	index := make(map[string]int, len(fields))

	offset := uint32(0)
	for i, f := range fields {
		if _, dup := index[f.Name]; dup {
			common.PanicConfig("uniform", common.ErrDuplicateName, "block %q field %q", blockName, f.Name)
		}

		align, ok := BaseAlignment(f.Type)
		if !ok {
			common.PanicConfig("uniform", common.ErrUnknownType, "block %q field %q type %v", blockName, f.Name, f.Type)
		}
		width, ok := ElementWidth(f.Type, f.Stride)
		if !ok {
			common.PanicConfig("uniform", common.ErrMissingStride, "block %q field %q", blockName, f.Name)
		}
		if f.Type == Struct {
			// a struct occupies a multiple of its base alignment, so trailing members start past its padding
			width = common.RoundUpAlign(4, width)
		}

		stride := uint32(0)
		if f.ArrayLength > 1 {
			align = common.RoundUpAlign(4, align)
			stride = common.RoundUpAlign(4, max(width, f.Stride))
		}

		offset = common.RoundUpAlign(align, offset)
		infos[i] = Info{
			Name:        f.Name,
			Offset:      offset,
			Stride:      stride,
			Width:       width,
			Type:        f.Type,
			ArrayLength: f.ArrayLength,
			Precision:   f.Precision,
			StructName:  f.StructName,
		}
		index[f.Name] = i

		if f.ArrayLength > 1 {
			offset += stride * f.ArrayLength
		} else {
			offset += width
		}
	}

	return infos, index, common.RoundUpAlign(4, offset)
}
