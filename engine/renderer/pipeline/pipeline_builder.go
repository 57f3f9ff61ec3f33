package pipeline

import "github.com/cogentcore/webgpu/wgpu"

// CacheBuilderOption is a functional option used to configure a Cache during construction.
type CacheBuilderOption func(*cache)

// WithLabel sets the label of created pipelines.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - CacheBuilderOption: a function that sets the label
func WithLabel(label string) CacheBuilderOption {
	return func(c *cache) {
		c.label = label
	}
}

// WithTarget sets the attachments pipelines render into. The default is a BGRA8 colour target with a
// Depth24PlusStencil8 depth attachment and no multisampling.
//
// Parameters:
//   - target: the attachment formats
//
// Returns:
//   - CacheBuilderOption: a function that sets the target
func WithTarget(target Target) CacheBuilderOption {
	return func(c *cache) {
		c.target = target
	}
}

// WithVertexBuffers sets the vertex buffer layouts shared by every pipeline.
//
// Parameters:
//   - layouts: the vertex buffer layouts, in slot order
//
// Returns:
//   - CacheBuilderOption: a function that sets the layouts
func WithVertexBuffers(layouts ...wgpu.VertexBufferLayout) CacheBuilderOption {
	return func(c *cache) {
		c.vertexBuffers = append(c.vertexBuffers, layouts...)
	}
}

// WithTopology sets the primitive topology. The default is a triangle list.
//
// Parameters:
//   - topology: the primitive topology
//
// Returns:
//   - CacheBuilderOption: a function that sets the topology
func WithTopology(topology wgpu.PrimitiveTopology) CacheBuilderOption {
	return func(c *cache) {
		c.topology = topology
	}
}

// WithFrontFace sets the winding order of front faces. The default is counter-clockwise.
//
// Parameters:
//   - frontFace: the front face winding order
//
// Returns:
//   - CacheBuilderOption: a function that sets the winding order
func WithFrontFace(frontFace wgpu.FrontFace) CacheBuilderOption {
	return func(c *cache) {
		c.frontFace = frontFace
	}
}

// WithBlendState sets the blend equation of blended passes. The default is straight alpha blending.
//
// Parameters:
//   - state: the blend state
//
// Returns:
//   - CacheBuilderOption: a function that sets the blend state
func WithBlendState(state wgpu.BlendState) CacheBuilderOption {
	return func(c *cache) {
		c.blendState = state
	}
}
