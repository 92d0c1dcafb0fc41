package vulkan

import (
	vk "github.com/goki/vulkan"
)

func (d *vkDriver) CreateShaderModule(device Handle, code []uint32) (Handle, error) {
	dev, err := lookup(&d.devices, device, "device")
	if err != nil {
		return NullHandle, err
	}
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code) * 4),
		PCode:    code,
	}
	var module vk.ShaderModule
	if res := vk.CreateShaderModule(dev, &createInfo, nil, &module); res != vk.Success {
		return NullHandle, resultError("vkCreateShaderModule", res)
	}
	return d.shaderModules.put(module), nil
}

func (d *vkDriver) DestroyShaderModule(device, module Handle) {
	dev, err := lookup(&d.devices, device, "device")
	if err != nil {
		return
	}
	if m, ok := d.shaderModules.take(module); ok {
		vk.DestroyShaderModule(dev, m, nil)
	}
}

func (d *vkDriver) CreatePipelineLayout(device Handle) (Handle, error) {
	dev, err := lookup(&d.devices, device, "device")
	if err != nil {
		return NullHandle, err
	}
	createInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         0,
		PSetLayouts:            nil,
		PushConstantRangeCount: 0,
		PPushConstantRanges:    nil,
	}
	var layout vk.PipelineLayout
	if res := vk.CreatePipelineLayout(dev, &createInfo, nil, &layout); res != vk.Success {
		return NullHandle, resultError("vkCreatePipelineLayout", res)
	}
	return d.pipelineLayouts.put(layout), nil
}

func (d *vkDriver) DestroyPipelineLayout(device, layout Handle) {
	dev, err := lookup(&d.devices, device, "device")
	if err != nil {
		return
	}
	if l, ok := d.pipelineLayouts.take(layout); ok {
		vk.DestroyPipelineLayout(dev, l, nil)
	}
}

// shaderStages turns stage infos into Vulkan create infos.
func (d *vkDriver) shaderStages(stages []ShaderStageInfo) ([]vk.PipelineShaderStageCreateInfo, error) {
	out := make([]vk.PipelineShaderStageCreateInfo, len(stages))
	for i, s := range stages {
		module, err := lookup(&d.shaderModules, s.Module, "shader module")
		if err != nil {
			return nil, err
		}
		out[i] = vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFlagBits(s.Stage),
			Module: module,
			PName:  VulkanSafeString(s.EntryPoint),
		}
	}
	return out, nil
}

func (d *vkDriver) CreateGraphicsPipeline(device Handle, info GraphicsPipelineCreateInfo) (Handle, error) {
	dev, err := lookup(&d.devices, device, "device")
	if err != nil {
		return NullHandle, err
	}
	layout, err := lookup(&d.pipelineLayouts, info.Layout, "pipeline layout")
	if err != nil {
		return NullHandle, err
	}
	rp, err := lookup(&d.renderPasses, info.RenderPass, "render pass")
	if err != nil {
		return NullHandle, err
	}
	stages, err := d.shaderStages(info.Stages)
	if err != nil {
		return NullHandle, err
	}

	// Vertices are generated in the vertex shader.
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               info.Topology,
		PrimitiveRestartEnable: vk.False,
	}

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports: []vk.Viewport{{
			X:        0,
			Y:        0,
			Width:    float32(info.Extent.Width),
			Height:   float32(info.Extent.Height),
			MinDepth: 0.0,
			MaxDepth: 1.0,
		}},
		ScissorCount: 1,
		PScissors: []vk.Rect2D{{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{Width: info.Extent.Width, Height: info.Extent.Height},
		}},
	}

	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             info.PolygonMode,
		CullMode:                vk.CullModeFlags(info.CullMode),
		FrontFace:               info.FrontFace,
		DepthBiasEnable:         vk.False,
		LineWidth:               1.0,
	}

	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:   vk.False,
		RasterizationSamples:  vk.SampleCount1Bit,
		MinSampleShading:      1.0,
		PSampleMask:           nil,
		AlphaToCoverageEnable: vk.False,
		AlphaToOneEnable:      vk.False,
	}

	colorBlendAttachmentState := vk.PipelineColorBlendAttachmentState{
		BlendEnable: vk.False,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}

	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentState},
	}

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  nil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       nil,
		PTessellationState:  nil,
		Layout:              layout,
		RenderPass:          rp,
		Subpass:             info.Subpass,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	if res := vk.CreateGraphicsPipelines(dev, vk.NullPipelineCache, 1, []vk.GraphicsPipelineCreateInfo{pipelineCreateInfo}, nil, pipelines); !VulkanResultIsSuccess(res) {
		return NullHandle, resultError("vkCreateGraphicsPipelines", res)
	}
	return d.pipelines.put(pipelines[0]), nil
}

func (d *vkDriver) DestroyPipeline(device, pipeline Handle) {
	dev, err := lookup(&d.devices, device, "device")
	if err != nil {
		return
	}
	if p, ok := d.pipelines.take(pipeline); ok {
		vk.DestroyPipeline(dev, p, nil)
	}
}
