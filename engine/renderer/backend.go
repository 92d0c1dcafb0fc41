package renderer

import "github.com/spaghettifunk/voxrt/engine/renderer/vulkan"

// RendererBackend is what the frontend needs from a GPU backend.
// *vulkan.Context implements it.
type RendererBackend interface {
	Resize(width, height uint32)
	RenderFrame(pipeline *vulkan.Pipeline) error
	FrameNumber() uint64
	CreateGraphicsPipeline(shaders vulkan.GraphicsShaders) (*vulkan.Pipeline, error)
	CreateRayTracingPipeline(shaders vulkan.RayTracingShaders) (*vulkan.Pipeline, error)
	RebuildGraphicsPipeline(p *vulkan.Pipeline, shaders vulkan.GraphicsShaders) error
	DestroyPipeline(p *vulkan.Pipeline)
	Shutdown() error
}

var _ RendererBackend = (*vulkan.Context)(nil)
