package uniform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferStartsDirty(t *testing.T) {
	buf := NewBuffer(32)
	assert.Equal(t, 32, buf.Size())
	assert.True(t, buf.IsDirty())

	buf.Clean()
	assert.False(t, buf.IsDirty())
	buf.Invalidate()
	assert.True(t, buf.IsDirty())
}

func TestBufferSettersMarkDirty(t *testing.T) {
	block := build(
		Field{Name: "a", Type: Float3},
		Field{Name: "b", Type: Float},
		Field{Name: "c", Type: Float4},
	)
	buf := NewBuffer(block.Size())
	buf.Clean()

	b, ok := block.UniformInfo("b")
	require.True(t, ok)
	buf.SetFloat(b.BufferOffset(0), 0.5)
	assert.True(t, buf.IsDirty())
	assert.Equal(t, float32(0.5), buf.FloatAt(12))

	c, _ := block.UniformInfo("c")
	buf.SetFloat4(c.BufferOffset(0), [4]float32{1, 2, 3, 4})
	assert.Equal(t, float32(4), buf.FloatAt(28))
	assert.Equal(t, float32(0.5), buf.FloatAt(12), "neighbouring field is untouched")
}

func TestBufferIntegersAndBools(t *testing.T) {
	buf := NewBuffer(32)
	buf.SetInt(0, -1)
	buf.SetUint2(8, [2]uint32{7, 9})
	buf.SetBool3(16, [3]bool{true, false, true})

	assert.Equal(t, uint32(0xffffffff), buf.Word(0))
	assert.Equal(t, uint32(9), buf.Word(12))
	assert.Equal(t, uint32(1), buf.Word(16))
	assert.Equal(t, uint32(0), buf.Word(20))
	assert.Equal(t, uint32(1), buf.Word(24))
}

func TestBufferMat3PadsColumns(t *testing.T) {
	buf := NewBuffer(48)
	for i := 0; i < 12; i++ {
		buf.SetFloat(i*4, -1)
	}
	buf.SetMat3(0, [9]float32{1, 2, 3, 4, 5, 6, 7, 8, 9})

	want := []float32{1, 2, 3, 0, 4, 5, 6, 0, 7, 8, 9, 0}
	for i, w := range want {
		assert.Equal(t, w, buf.FloatAt(i*4), "word %d", i)
	}
}

func TestBufferSetFloatArrayUsesStride(t *testing.T) {
	block := build(Field{Name: "weights", Type: Float2, ArrayLength: 3})
	info, _ := block.UniformInfo("weights")
	buf := NewBuffer(block.Size())

	buf.SetFloatArray(info.BufferOffset(0), int(info.Stride)*4, 2, []float32{1, 2, 3, 4, 5, 6, 7})

	assert.Equal(t, float32(1), buf.FloatAt(info.BufferOffset(0)))
	assert.Equal(t, float32(3), buf.FloatAt(info.BufferOffset(1)))
	assert.Equal(t, float32(6), buf.FloatAt(info.BufferOffset(2)+4))
}

func TestBufferCloneIsIndependent(t *testing.T) {
	buf := NewBuffer(16)
	buf.SetFloat(0, 1)
	buf.Clean()

	clone := buf.Clone()
	assert.True(t, clone.IsDirty())
	clone.SetFloat(0, 2)
	assert.Equal(t, float32(1), buf.FloatAt(0))
	assert.False(t, buf.IsDirty())
}
