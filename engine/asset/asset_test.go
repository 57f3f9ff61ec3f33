package asset

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-matcore/common"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/driver/drivertest"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/uniform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type assignment struct {
	renderable Entity
	primitive  int
	mi         material.MaterialInstance
}

type fakeRenderables struct {
	assignments []assignment
}

func (f *fakeRenderables) SetMaterialInstanceAt(renderable Entity, primitiveIndex int, mi material.MaterialInstance) {
	f.assignments = append(f.assignments, assignment{renderable, primitiveIndex, mi})
}

func TestSkins(t *testing.T) {
	inst := NewInstance(
		WithRoot(1),
		WithEntities(2, 3, 4),
		WithSkin("armature", 3, 4),
	)
	assert.Equal(t, Entity(1), inst.Root())
	assert.Equal(t, []Entity{2, 3, 4}, inst.Entities())
	assert.Equal(t, 3, inst.EntityCount())
	require.Equal(t, 1, inst.SkinCount())
	assert.Equal(t, "armature", inst.SkinNameAt(0))
	assert.Equal(t, 2, inst.JointCountAt(0))
	assert.Equal(t, []Entity{3, 4}, inst.JointsAt(0))

	inst.AttachSkin(0, 2)
	inst.AttachSkin(0, 2)
	inst.AttachSkin(0, 0)
	inst.AttachSkin(1, 2)
	inst.AttachSkin(-1, 2)
	assert.Equal(t, []Entity{2}, inst.SkinTargetsAt(0))

	inst.DetachSkin(0, 3)
	inst.DetachSkin(5, 2)
	assert.Equal(t, []Entity{2}, inst.SkinTargetsAt(0))
	inst.DetachSkin(0, 2)
	assert.Empty(t, inst.SkinTargetsAt(0))

	assert.Equal(t, "", inst.SkinNameAt(1))
	assert.Zero(t, inst.JointCountAt(-1))
	assert.Nil(t, inst.JointsAt(3))
	assert.Nil(t, inst.SkinTargetsAt(3))
}

func TestAccessorsReturnCopies(t *testing.T) {
	joints := []Entity{5, 6}
	inst := NewInstance(WithEntities(1), WithSkin("s", joints...))
	joints[0] = 99

	got := inst.JointsAt(0)
	assert.Equal(t, []Entity{5, 6}, got)
	got[0] = 42
	assert.Equal(t, []Entity{5, 6}, inst.JointsAt(0))

	entities := inst.Entities()
	entities[0] = 42
	assert.Equal(t, []Entity{1}, inst.Entities())
}

func TestMaterialVariants(t *testing.T) {
	rec := drivertest.NewRecorder()
	m, err := material.NewMaterial(rec, material.WithParameters(uniform.Field{Name: "tint", Type: uniform.Float3}))
	require.NoError(t, err)
	red := m.CreateInstance("red")
	blue := m.CreateInstance("blue")

	rm := &fakeRenderables{}
	inst := NewInstance(
		WithRenderableManager(rm),
		WithMaterialVariant("red", VariantMapping{Renderable: 7, PrimitiveIndex: 0, Material: red}),
		WithMaterialVariant("blue",
			VariantMapping{Renderable: 7, PrimitiveIndex: 0, Material: blue},
			VariantMapping{Renderable: 8, PrimitiveIndex: 1, Material: blue},
		),
	)
	assert.Equal(t, 2, inst.MaterialVariantCount())
	assert.Equal(t, "blue", inst.MaterialVariantNameAt(1))
	assert.Equal(t, "", inst.MaterialVariantNameAt(2))

	inst.ApplyMaterialVariant(2)
	inst.ApplyMaterialVariant(-1)
	assert.Empty(t, rm.assignments)

	inst.ApplyMaterialVariant(1)
	assert.Equal(t, []assignment{{7, 0, blue}, {8, 1, blue}}, rm.assignments)

	require.NoError(t, red.Commit(rec))
	require.NoError(t, blue.Commit(rec))
	inst.Destroy(rec)
	assert.Equal(t, 2, rec.Count("DestroyBufferObject"), "blue is terminated once")

	m.Destroy(rec)
	assert.Zero(t, rec.Live())
}

func TestApplyWithoutRenderableManager(t *testing.T) {
	inst := NewInstance(WithMaterialVariant("v", VariantMapping{Renderable: 1}))
	assert.NotPanics(t, func() { inst.ApplyMaterialVariant(0) })
	assert.NotPanics(t, func() { inst.Destroy(drivertest.NewRecorder()) })
}

func TestDestroyReleasesOwnedResources(t *testing.T) {
	rec := drivertest.NewRecorder()
	m, err := material.NewMaterial(rec, material.WithParameters(uniform.Field{Name: "tint", Type: uniform.Float4}))
	require.NoError(t, err)
	owned := m.CreateInstance("owned")
	shared := m.CreateInstance("shared")
	require.NoError(t, owned.Commit(rec))
	require.NoError(t, shared.Commit(rec))
	tex, err := rec.CreateTexture(common.TextureStagingData{Pixels: make([]byte, 4), Width: 1, Height: 1})
	require.NoError(t, err)

	inst := NewInstance(
		WithMaterialInstances(owned, shared),
		WithTextures(tex),
		WithMaterialVariant("v", VariantMapping{Renderable: 1, Material: shared}),
	)
	assert.Len(t, inst.MaterialInstances(), 2)

	inst.Destroy(rec)
	assert.Equal(t, 2, rec.Count("DestroyBufferObject"))
	assert.Equal(t, 1, rec.Count("DestroyTexture"))

	inst.Destroy(rec)
	assert.Equal(t, 1, rec.Count("DestroyTexture"))

	m.Destroy(rec)
	assert.Zero(t, rec.Live())
}
