package vulkan

import (
	vk "github.com/goki/vulkan"
)

func (d *vkDriver) CreateRenderPass(device Handle, format vk.Format) (Handle, error) {
	dev, err := lookup(&d.devices, device, "device")
	if err != nil {
		return NullHandle, err
	}

	colorAttachment := vk.AttachmentDescription{
		Format:         format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		// Do not expect any particular layout before render pass starts.
		InitialLayout: vk.ImageLayoutUndefined,
		// Transitioned to after the render pass.
		FinalLayout: vk.ImageLayoutPresentSrc,
	}

	colorAttachmentReference := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    colorAttachmentReference,
	}

	dependency := vk.SubpassDependency{
		SrcSubpass:      vk.SubpassExternal,
		DstSubpass:      0,
		SrcStageMask:    vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask:   0,
		DstStageMask:    vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask:   vk.AccessFlags(vk.AccessColorAttachmentReadBit) | vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
		DependencyFlags: 0,
	}

	createInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.AttachmentDescription{colorAttachment},
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var renderPass vk.RenderPass
	if res := vk.CreateRenderPass(dev, &createInfo, nil, &renderPass); res != vk.Success {
		return NullHandle, resultError("vkCreateRenderPass", res)
	}
	return d.renderPasses.put(renderPass), nil
}

func (d *vkDriver) DestroyRenderPass(device, renderPass Handle) {
	dev, err := lookup(&d.devices, device, "device")
	if err != nil {
		return
	}
	if rp, ok := d.renderPasses.take(renderPass); ok {
		vk.DestroyRenderPass(dev, rp, nil)
	}
}

func (d *vkDriver) CreateFramebuffer(device, renderPass Handle, attachments []Handle, extent Extent) (Handle, error) {
	dev, err := lookup(&d.devices, device, "device")
	if err != nil {
		return NullHandle, err
	}
	rp, err := lookup(&d.renderPasses, renderPass, "render pass")
	if err != nil {
		return NullHandle, err
	}
	views := make([]vk.ImageView, len(attachments))
	for i, a := range attachments {
		if views[i], err = lookup(&d.views, a, "image view"); err != nil {
			return NullHandle, err
		}
	}

	createInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      rp,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           extent.Width,
		Height:          extent.Height,
		Layers:          1,
	}

	var framebuffer vk.Framebuffer
	if res := vk.CreateFramebuffer(dev, &createInfo, nil, &framebuffer); res != vk.Success {
		return NullHandle, resultError("vkCreateFramebuffer", res)
	}
	return d.framebuffers.put(framebuffer), nil
}

func (d *vkDriver) DestroyFramebuffer(device, framebuffer Handle) {
	dev, err := lookup(&d.devices, device, "device")
	if err != nil {
		return
	}
	if fb, ok := d.framebuffers.take(framebuffer); ok {
		vk.DestroyFramebuffer(dev, fb, nil)
	}
}
