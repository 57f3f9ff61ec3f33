package uniform

import (
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/oxy-matcore/common"
)

// Buffer is the CPU-side mirror of a uniform buffer. Writes go to the mirror and mark it dirty; the owner
// uploads the whole mirror on its next commit and then calls Clean.
//
// All offsets are byte offsets, normally obtained from Info.BufferOffset. A Buffer is not safe for
// concurrent mutation.
type Buffer struct {
	data  []byte
	dirty bool
}

// NewBuffer creates a zeroed mirror of size bytes. A new mirror is dirty so its first commit uploads it.
//
// Parameters:
//   - size: the size of the mirror in bytes
//
// Returns:
//   - *Buffer: the new mirror
func NewBuffer(size int) *Buffer {
	return &Buffer{data: make([]byte, size), dirty: true}
}

// Bytes returns the mirror contents. The slice aliases the mirror and must not be modified.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Size returns the size of the mirror in bytes.
func (b *Buffer) Size() int {
	return len(b.data)
}

// IsDirty reports whether the mirror changed since the last Clean.
func (b *Buffer) IsDirty() bool {
	return b.dirty
}

// Invalidate marks the whole mirror as needing an upload.
func (b *Buffer) Invalidate() {
	b.dirty = true
}

// Clean marks the mirror as uploaded.
func (b *Buffer) Clean() {
	b.dirty = false
}

// Clone returns an independent copy of the mirror. The copy is dirty.
//
// Returns:
//   - *Buffer: the copy
func (b *Buffer) Clone() *Buffer {
	return &Buffer{data: common.Clone(b.data), dirty: true}
}

// putWords writes consecutive 32-bit words starting at offset.
func (b *Buffer) putWords(offset int, words ...uint32) {
	for i, w := range words {
		binary.LittleEndian.PutUint32(b.data[offset+i*4:], w)
	}
	b.dirty = true
}

// Word returns the 32-bit word stored at byte offset.
//
// Parameters:
//   - offset: the byte offset, a multiple of 4
//
// Returns:
//   - uint32: the stored word
func (b *Buffer) Word(offset int) uint32 {
	return binary.LittleEndian.Uint32(b.data[offset:])
}

// FloatAt returns the float stored at byte offset.
//
// Parameters:
//   - offset: the byte offset, a multiple of 4
//
// Returns:
//   - float32: the stored value
func (b *Buffer) FloatAt(offset int) float32 {
	return math.Float32frombits(b.Word(offset))
}

func floatWords(v []float32) []uint32 {
	out := make([]uint32, len(v))
	for i, f := range v {
		out[i] = math.Float32bits(f)
	}
	return out
}

func intWords(v []int32) []uint32 {
	out := make([]uint32, len(v))
	for i, n := range v {
		out[i] = uint32(n)
	}
	return out
}

func boolWords(v []bool) []uint32 {
	out := make([]uint32, len(v))
	for i, t := range v {
		if t {
			out[i] = 1
		}
	}
	return out
}

// SetFloat writes a float at offset.
func (b *Buffer) SetFloat(offset int, v float32) { b.putWords(offset, math.Float32bits(v)) }

// SetFloat2 writes a 2-component float vector at offset.
func (b *Buffer) SetFloat2(offset int, v [2]float32) { b.putWords(offset, floatWords(v[:])...) }

// SetFloat3 writes a 3-component float vector at offset.
func (b *Buffer) SetFloat3(offset int, v [3]float32) { b.putWords(offset, floatWords(v[:])...) }

// SetFloat4 writes a 4-component float vector at offset.
func (b *Buffer) SetFloat4(offset int, v [4]float32) { b.putWords(offset, floatWords(v[:])...) }

// SetInt writes a signed integer at offset.
func (b *Buffer) SetInt(offset int, v int32) { b.putWords(offset, uint32(v)) }

// SetInt2 writes a 2-component signed integer vector at offset.
func (b *Buffer) SetInt2(offset int, v [2]int32) { b.putWords(offset, intWords(v[:])...) }

// SetInt3 writes a 3-component signed integer vector at offset.
func (b *Buffer) SetInt3(offset int, v [3]int32) { b.putWords(offset, intWords(v[:])...) }

// SetInt4 writes a 4-component signed integer vector at offset.
func (b *Buffer) SetInt4(offset int, v [4]int32) { b.putWords(offset, intWords(v[:])...) }

// SetUint writes an unsigned integer at offset.
func (b *Buffer) SetUint(offset int, v uint32) { b.putWords(offset, v) }

// SetUint2 writes a 2-component unsigned integer vector at offset.
func (b *Buffer) SetUint2(offset int, v [2]uint32) { b.putWords(offset, v[:]...) }

// SetUint3 writes a 3-component unsigned integer vector at offset.
func (b *Buffer) SetUint3(offset int, v [3]uint32) { b.putWords(offset, v[:]...) }

// SetUint4 writes a 4-component unsigned integer vector at offset.
func (b *Buffer) SetUint4(offset int, v [4]uint32) { b.putWords(offset, v[:]...) }

// SetBool writes a boolean as a 32-bit 0 or 1 at offset.
func (b *Buffer) SetBool(offset int, v bool) { b.putWords(offset, boolWords([]bool{v})...) }

// SetBool2 writes a 2-component boolean vector at offset.
func (b *Buffer) SetBool2(offset int, v [2]bool) { b.putWords(offset, boolWords(v[:])...) }

// SetBool3 writes a 3-component boolean vector at offset.
func (b *Buffer) SetBool3(offset int, v [3]bool) { b.putWords(offset, boolWords(v[:])...) }

// SetBool4 writes a 4-component boolean vector at offset.
func (b *Buffer) SetBool4(offset int, v [4]bool) { b.putWords(offset, boolWords(v[:])...) }

// SetMat3 writes a column-major 3x3 matrix at offset. Each column is padded to four words.
//
// Parameters:
//   - offset: the byte offset of the first column
//   - m: the matrix, column-major
func (b *Buffer) SetMat3(offset int, m [9]float32) {
	for c := 0; c < 3; c++ {
		b.putWords(offset+c*16, floatWords(m[c*3:c*3+3])...)
		b.putWords(offset+c*16+12, 0)
	}
}

// SetMat4 writes a column-major 4x4 matrix at offset.
//
// Parameters:
//   - offset: the byte offset of the first column
//   - m: the matrix, column-major
func (b *Buffer) SetMat4(offset int, m [16]float32) {
	b.putWords(offset, floatWords(m[:])...)
}

// SetFloatArray writes elements of components floats each, taken consecutively from values,
// at offset with stride bytes between elements.
//
// Parameters:
//   - offset: the byte offset of the first element
//   - stride: the byte distance between elements
//   - components: the number of floats per element (1 to 4)
//   - values: the packed element values, len(values) must be a multiple of components
func (b *Buffer) SetFloatArray(offset, stride, components int, values []float32) {
	b.putElements(offset, stride, components, floatWords(values))
}

// SetIntArray writes consecutive int vectors. See SetFloatArray.
func (b *Buffer) SetIntArray(offset, stride, components int, values []int32) {
	b.putElements(offset, stride, components, intWords(values))
}

// SetUintArray writes consecutive uint vectors. See SetFloatArray.
func (b *Buffer) SetUintArray(offset, stride, components int, values []uint32) {
	b.putElements(offset, stride, components, values)
}

// SetBoolArray writes consecutive bool vectors. See SetFloatArray.
func (b *Buffer) SetBoolArray(offset, stride, components int, values []bool) {
	b.putElements(offset, stride, components, boolWords(values))
}

// putElements writes words in groups of components, one group every stride bytes.
func (b *Buffer) putElements(offset, stride, components int, words []uint32) {
	if components <= 0 {
		return
	}
	for i := 0; (i+1)*components <= len(words); i++ {
		b.putWords(offset+i*stride, words[i*components:(i+1)*components]...)
	}
}

// SetBytes copies raw data at offset. Material instances use it for struct fields, whose packing the
// caller resolves.
//
// Parameters:
//   - offset: the byte offset
//   - data: the bytes to copy
func (b *Buffer) SetBytes(offset int, data []byte) {
	copy(b.data[offset:], data)
	b.dirty = true
}
