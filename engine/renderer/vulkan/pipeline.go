package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/voxrt/engine/core"
)

// Pipeline holds a compiled pipeline and its layout. The handles are never
// modified once built; a rebuild swaps in a complete new pair.
type Pipeline struct {
	Handle    Handle
	Layout    Handle
	BindPoint vk.PipelineBindPoint

	device *Device
}

// GraphicsShaders is the SPIR-V for the vertex and fragment stages.
type GraphicsShaders struct {
	Vertex   []byte
	Fragment []byte
}

// BuildGraphicsPipeline builds the fixed baseline raster pipeline: no vertex
// input, triangle list, one static viewport and scissor covering extent,
// filled polygons, back-face culling with clockwise front faces, a single
// sample and no blending. The layout is empty.
func BuildGraphicsPipeline(device *Device, renderpass *RenderPass, shaders GraphicsShaders, extent Extent) (*Pipeline, error) {
	stages, release, err := createShaderStages(device, []shaderSource{
		{stage: ShaderStageVertex, name: "vertex", code: shaders.Vertex},
		{stage: ShaderStageFragment, name: "fragment", code: shaders.Fragment},
	})
	if err != nil {
		return nil, err
	}
	defer release()

	driver := device.Driver
	layout, err := driver.CreatePipelineLayout(device.Logical)
	if err != nil {
		return nil, logError(fmt.Errorf("failed to create pipeline layout: %w", err))
	}

	handle, err := driver.CreateGraphicsPipeline(device.Logical, GraphicsPipelineCreateInfo{
		Stages:      stages,
		Layout:      layout,
		RenderPass:  renderpass.Handle,
		Subpass:     0,
		Extent:      extent,
		Topology:    vk.PrimitiveTopologyTriangleList,
		PolygonMode: vk.PolygonModeFill,
		CullMode:    vk.CullModeBackBit,
		FrontFace:   vk.FrontFaceClockwise,
	})
	if err != nil {
		driver.DestroyPipelineLayout(device.Logical, layout)
		return nil, logError(fmt.Errorf("failed to create graphics pipeline: %w", err))
	}

	core.LogDebug("Graphics pipeline created for %dx%d.", extent.Width, extent.Height)
	return &Pipeline{
		Handle:    handle,
		Layout:    layout,
		BindPoint: vk.PipelineBindPointGraphics,
		device:    device,
	}, nil
}

func (p *Pipeline) Bind(cb *CommandBuffer) {
	p.device.Driver.CmdBindPipeline(cb.Handle, p.BindPoint, p.Handle)
}

// replace destroys the current handles and takes over next's.
func (p *Pipeline) replace(next *Pipeline) {
	p.Destroy()
	p.Handle = next.Handle
	p.Layout = next.Layout
	p.BindPoint = next.BindPoint
	p.device = next.device
}

func (p *Pipeline) Destroy() {
	if p.Handle != NullHandle {
		p.device.Driver.DestroyPipeline(p.device.Logical, p.Handle)
		p.Handle = NullHandle
	}
	if p.Layout != NullHandle {
		p.device.Driver.DestroyPipelineLayout(p.device.Logical, p.Layout)
		p.Layout = NullHandle
	}
}
