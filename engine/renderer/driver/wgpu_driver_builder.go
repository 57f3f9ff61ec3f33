package driver

// WGPUDriverBuilderOption is a function that configures a WGPUDriver during construction.
type WGPUDriverBuilderOption func(*wgpuDriver)

// WithLabel is an option builder that sets the label prefix of every GPU object the driver creates.
//
// Parameters:
//   - label: the label prefix
//
// Returns:
//   - WGPUDriverBuilderOption: a function that applies the label option to a driver
func WithLabel(label string) WGPUDriverBuilderOption {
	return func(d *wgpuDriver) {
		d.label = label
	}
}
