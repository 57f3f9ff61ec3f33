package profiler

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-matcore/engine/binding"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/driver/drivertest"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/program"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/uniform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func TestTickReportsAtInterval(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	p := NewProfiler(WithInterval(time.Second), WithClock(clock.now))

	clock.t = clock.t.Add(400 * time.Millisecond)
	assert.False(t, p.Tick())
	clock.t = clock.t.Add(400 * time.Millisecond)
	assert.False(t, p.Tick())
	clock.t = clock.t.Add(400 * time.Millisecond)
	assert.True(t, p.Tick())
	assert.Equal(t, 3, p.Last().Frames)

	clock.t = clock.t.Add(100 * time.Millisecond)
	assert.False(t, p.Tick(), "interval restarts after a report")
}

func TestDriverTraffic(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := NewProfiler(WithClock(clock.now))
	rec := drivertest.NewRecorder()
	drv := p.Driver(rec)

	m, err := material.NewMaterial(rec,
		material.WithShader(program.StageFragment, []byte("fs")),
		material.WithParameters(uniform.Field{Name: "color", Type: uniform.Float4}),
	)
	require.NoError(t, err)
	inst := m.CreateInstance("a")
	require.NoError(t, inst.Commit(drv))
	require.NoError(t, inst.Commit(drv))

	h, err := drv.CreateBufferObject(8, 0)
	require.NoError(t, err)
	drv.BindUniformBuffer(binding.PerView, h)
	assert.Error(t, drv.UpdateBufferObject(h, make([]byte, 16), 0), "oversized write")
	drv.DestroyBufferObject(h)

	clock.t = clock.t.Add(time.Second)
	require.True(t, p.Tick())
	stats := p.Last()
	assert.Equal(t, uint64(1), stats.Uploads)
	assert.Equal(t, uint64(16), stats.UploadedBytes)
	assert.Equal(t, uint64(1), stats.Binds)
	assert.GreaterOrEqual(t, stats.Creates, uint64(2))
	assert.Equal(t, uint64(1), stats.Destroys)

	clock.t = clock.t.Add(time.Second)
	require.True(t, p.Tick())
	assert.Zero(t, p.Last().Uploads, "counters reset every interval")
}
