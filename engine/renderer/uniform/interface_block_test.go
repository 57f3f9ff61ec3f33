package uniform

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/Carmen-Shannon/oxy-matcore/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build(fields ...Field) InterfaceBlock {
	return NewBuilder().Name("Test").Add(fields...).Build()
}

func TestLayoutPacksScalarAfterVec3(t *testing.T) {
	block := build(
		Field{Name: "a", Type: Float3},
		Field{Name: "b", Type: Float},
		Field{Name: "c", Type: Float4},
	)

	assert.Equal(t, 0, block.UniformOffset("a", 0))
	assert.Equal(t, 3, block.UniformOffset("b", 0))
	assert.Equal(t, 4, block.UniformOffset("c", 0))
	assert.Equal(t, uint32(8), block.SizeWords())
	assert.Equal(t, 32, block.Size())

	a, ok := block.UniformInfo("a")
	require.True(t, ok)
	assert.Equal(t, uint32(0), a.Stride)
	assert.Equal(t, uint32(3), a.Width)
}

func TestLayoutTable(t *testing.T) {
	tests := []struct {
		name    string
		fields  []Field
		offsets []uint32
		strides []uint32
		size    uint32
	}{
		{
			name:    "vec2 aligns to two words",
			fields:  []Field{{Name: "x", Type: Float}, {Name: "v", Type: Float2}},
			offsets: []uint32{0, 2},
			strides: []uint32{0, 0},
			size:    4,
		},
		{
			name:    "vec3 after scalar aligns to four words",
			fields:  []Field{{Name: "x", Type: Float}, {Name: "v", Type: Float3}},
			offsets: []uint32{0, 4},
			strides: []uint32{0, 0},
			size:    8,
		},
		{
			name:    "scalar array elements are padded to four words",
			fields:  []Field{{Name: "x", Type: Float}, {Name: "arr", Type: Float, ArrayLength: 3}, {Name: "y", Type: Float}},
			offsets: []uint32{0, 4, 16},
			strides: []uint32{0, 4, 0},
			size:    20,
		},
		{
			name:    "array of length one is laid out like a single value",
			fields:  []Field{{Name: "x", Type: Float}, {Name: "one", Type: Float, ArrayLength: 1}},
			offsets: []uint32{0, 1},
			strides: []uint32{0, 0},
			size:    4,
		},
		{
			name:    "mat3 occupies three padded columns",
			fields:  []Field{{Name: "m", Type: Mat3}, {Name: "f", Type: Float}},
			offsets: []uint32{0, 12},
			strides: []uint32{0, 0},
			size:    16,
		},
		{
			name:    "mat4 array",
			fields:  []Field{{Name: "b", Type: Bool}, {Name: "m", Type: Mat4, ArrayLength: 2}},
			offsets: []uint32{0, 4},
			strides: []uint32{0, 16},
			size:    36,
		},
		{
			name:    "struct array uses caller stride rounded to four words",
			fields:  []Field{{Name: "s", Type: Struct, StructName: "Light", Stride: 6, ArrayLength: 2}, {Name: "n", Type: Uint}},
			offsets: []uint32{0, 16},
			strides: []uint32{8, 0},
			size:    20,
		},
		{
			name:    "single struct is padded to four words",
			fields:  []Field{{Name: "s", Type: Struct, StructName: "S", Stride: 3}, {Name: "f", Type: Float}},
			offsets: []uint32{0, 4},
			strides: []uint32{0, 0},
			size:    8,
		},
		{
			name:    "empty block",
			fields:  nil,
			offsets: nil,
			strides: nil,
			size:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			block := build(tt.fields...)
			infos := block.Infos()
			require.Len(t, infos, len(tt.fields))
			for i, info := range infos {
				assert.Equal(t, tt.offsets[i], info.Offset, "offset of %s", info.Name)
				assert.Equal(t, tt.strides[i], info.Stride, "stride of %s", info.Name)
			}
			assert.Equal(t, tt.size, block.SizeWords())
			assert.Equal(t, tt.fields == nil, block.IsEmpty())
		})
	}
}

var allTypes = []Type{
	Bool, Bool2, Bool3, Bool4, Float, Float2, Float3, Float4,
	Int, Int2, Int3, Int4, Uint, Uint2, Uint3, Uint4, Mat3, Mat4, Struct,
}

func randomFields(r *rand.Rand, n int) []Field {
	fields := make([]Field, n)
	for i := range fields {
		f := Field{Name: string(rune('a'+i%26)) + string(rune('0'+i/26)), Type: allTypes[r.Intn(len(allTypes))]}
		if r.Intn(3) == 0 {
			f.ArrayLength = uint32(r.Intn(5))
		}
		if f.Type == Struct {
			f.StructName = "S"
			f.Stride = uint32(1 + r.Intn(9))
		}
		fields[i] = f
	}
	return fields
}

func TestLayoutInvariants(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for iter := 0; iter < 200; iter++ {
		block := build(randomFields(r, 1+r.Intn(12))...)
		infos := block.Infos()

		assert.Zero(t, block.SizeWords()%4)
		var prevEnd uint32
		for _, info := range infos {
			align, ok := BaseAlignment(info.Type)
			require.True(t, ok)
			if info.IsArray() {
				align = 4
				assert.Zero(t, info.Stride%4, "array stride of %s", info.Name)
			} else {
				assert.Zero(t, info.Stride, "non-array stride of %s", info.Name)
			}
			assert.Zero(t, info.Offset%align, "alignment of %s (%v)", info.Name, info.Type)
			assert.GreaterOrEqual(t, info.Offset, prevEnd, "%s overlaps its predecessor", info.Name)
			assert.LessOrEqual(t, info.End(), block.SizeWords())
			prevEnd = info.End()

			for i := 0; i < int(info.ElementCount()); i++ {
				assert.Equal(t, int(info.Offset+info.Stride*uint32(i)), block.UniformOffset(info.Name, i))
				assert.Equal(t, block.UniformOffset(info.Name, i)*4, info.BufferOffset(i))
			}
		}
	}
}

func TestLayoutIsOrderSensitive(t *testing.T) {
	a := build(Field{Name: "f", Type: Float}, Field{Name: "v", Type: Float3}, Field{Name: "g", Type: Float2})
	b := build(Field{Name: "v", Type: Float3}, Field{Name: "f", Type: Float}, Field{Name: "g", Type: Float2})

	assert.Equal(t, uint32(12), a.SizeWords())
	assert.Equal(t, uint32(8), b.SizeWords())
	assert.NotEqual(t, a.UniformOffset("f", 0), b.UniformOffset("f", 0))
	assert.Equal(t, []string{"f", "v", "g"}, names(a.Infos()))
}

func names(infos []Info) []string {
	out := make([]string, len(infos))
	for i, info := range infos {
		out[i] = info.Name
	}
	return out
}

func TestLookupNoThrow(t *testing.T) {
	block := NewBuilder().Name("Params").
		Add(Field{Name: "arr", Type: Float4, ArrayLength: 2}).
		Build(WithErrorPolicy(common.ErrorPolicyNoThrow))

	assert.Equal(t, common.ErrorPolicyNoThrow, block.ErrorPolicy())
	assert.Equal(t, -1, block.UniformOffset("missing", 0))
	assert.Equal(t, -1, block.UniformOffset("arr", 2))
	assert.Equal(t, -1, block.UniformOffset("arr", -1))
	assert.Equal(t, 4, block.UniformOffset("arr", 1))
	assert.False(t, block.HasUniform("missing"))
	_, ok := block.UniformInfo("missing")
	assert.False(t, ok)
}

func TestLookupThrow(t *testing.T) {
	block := NewBuilder().Name("Params").
		Add(Field{Name: "x", Type: Float}).
		Build(WithErrorPolicy(common.ErrorPolicyThrow))

	assert.Equal(t, 0, block.UniformOffset("x", 0))

	defer func() {
		r := recover()
		require.NotNil(t, r)
		var lookupErr *common.LookupError
		require.True(t, errors.As(r.(error), &lookupErr))
		assert.Equal(t, "Params", lookupErr.Block)
		assert.Equal(t, "nope", lookupErr.Name)
		assert.ErrorIs(t, lookupErr, common.ErrUnknownParameter)
	}()
	block.UniformOffset("nope", 0)
}

func configPanic(t *testing.T, fn func()) *common.ConfigError {
	t.Helper()
	var cfgErr *common.ConfigError
	func() {
		defer func() {
			r := recover()
			require.NotNil(t, r, "expected a panic")
			require.True(t, errors.As(r.(error), &cfgErr))
		}()
		fn()
	}()
	return cfgErr
}

func TestBuildConfigurationErrors(t *testing.T) {
	err := configPanic(t, func() { build(Field{Name: "x", Type: Type(200)}) })
	assert.ErrorIs(t, err, common.ErrUnknownType)

	err = configPanic(t, func() { build(Field{Name: "x", Type: Float}, Field{Name: "x", Type: Int}) })
	assert.ErrorIs(t, err, common.ErrDuplicateName)

	err = configPanic(t, func() { build(Field{Name: "s", Type: Struct, StructName: "S"}) })
	assert.ErrorIs(t, err, common.ErrMissingStride)
}

func TestBuilderConsumed(t *testing.T) {
	b := NewBuilder().Name("Once").Add(Field{Name: "x", Type: Float})
	b.Build()

	err := configPanic(t, func() { b.Add(Field{Name: "y", Type: Float}) })
	assert.ErrorIs(t, err, common.ErrBuilderConsumed)
	configPanic(t, func() { b.Build() })
}

func TestInfosReturnsCopy(t *testing.T) {
	block := build(Field{Name: "x", Type: Float})
	infos := block.Infos()
	infos[0].Offset = 99
	assert.Equal(t, 0, block.UniformOffset("x", 0))
}

func TestParseType(t *testing.T) {
	for _, typ := range allTypes {
		parsed, ok := ParseType(typ.String())
		require.True(t, ok)
		assert.Equal(t, typ, parsed)
	}
	_, ok := ParseType("vec3")
	assert.False(t, ok)

	p, ok := ParsePrecision("")
	assert.True(t, ok)
	assert.Equal(t, PrecisionDefault, p)
	p, ok = ParsePrecision("high")
	assert.True(t, ok)
	assert.Equal(t, PrecisionHigh, p)
}
