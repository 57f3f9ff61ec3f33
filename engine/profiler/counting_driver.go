package profiler

import (
	"github.com/Carmen-Shannon/oxy-matcore/common"
	"github.com/Carmen-Shannon/oxy-matcore/engine/binding"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/driver"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/program"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/sampler"
)

// countingDriver forwards every call to the wrapped driver and counts it. Failed calls are not counted.
type countingDriver struct {
	driver.Driver
	c *counters
}

var _ driver.Driver = &countingDriver{}

func (d *countingDriver) CreateBufferObject(size int, usage driver.BufferUsage) (driver.BufferHandle, error) {
	h, err := d.Driver.CreateBufferObject(size, usage)
	if err == nil {
		d.c.creates.Add(1)
	}
	return h, err
}

func (d *countingDriver) UpdateBufferObject(h driver.BufferHandle, data []byte, offset int) error {
	if err := d.Driver.UpdateBufferObject(h, data, offset); err != nil {
		return err
	}
	d.c.uploads.Add(1)
	d.c.uploadedBytes.Add(uint64(len(data)))
	return nil
}

func (d *countingDriver) DestroyBufferObject(h driver.BufferHandle) {
	d.Driver.DestroyBufferObject(h)
	d.c.destroys.Add(1)
}

func (d *countingDriver) CreateSamplerGroup(size int) (driver.SamplerGroupHandle, error) {
	h, err := d.Driver.CreateSamplerGroup(size)
	if err == nil {
		d.c.creates.Add(1)
	}
	return h, err
}

func (d *countingDriver) UpdateSamplerGroup(h driver.SamplerGroupHandle, bindings []sampler.Binding) error {
	if err := d.Driver.UpdateSamplerGroup(h, bindings); err != nil {
		return err
	}
	d.c.samplerUpdates.Add(1)
	return nil
}

func (d *countingDriver) DestroySamplerGroup(h driver.SamplerGroupHandle) {
	d.Driver.DestroySamplerGroup(h)
	d.c.destroys.Add(1)
}

func (d *countingDriver) CreateTexture(data common.TextureStagingData) (driver.TextureHandle, error) {
	h, err := d.Driver.CreateTexture(data)
	if err == nil {
		d.c.creates.Add(1)
		d.c.uploads.Add(1)
		d.c.uploadedBytes.Add(uint64(len(data.Pixels)))
	}
	return h, err
}

func (d *countingDriver) DestroyTexture(h driver.TextureHandle) {
	d.Driver.DestroyTexture(h)
	d.c.destroys.Add(1)
}

func (d *countingDriver) BindUniformBuffer(bindingPoint binding.UniformBindingPoint, h driver.BufferHandle) {
	d.Driver.BindUniformBuffer(bindingPoint, h)
	d.c.binds.Add(1)
}

func (d *countingDriver) BindSamplers(bindingPoint binding.SamplerBindingPoint, h driver.SamplerGroupHandle) {
	d.Driver.BindSamplers(bindingPoint, h)
	d.c.binds.Add(1)
}

func (d *countingDriver) CreateProgram(p program.Program) (driver.ProgramHandle, error) {
	h, err := d.Driver.CreateProgram(p)
	if err == nil {
		d.c.creates.Add(1)
	}
	return h, err
}

func (d *countingDriver) DestroyProgram(h driver.ProgramHandle) {
	d.Driver.DestroyProgram(h)
	d.c.destroys.Add(1)
}
