package vulkan

import (
	vk "github.com/goki/vulkan"
)

func (d *vkDriver) CreateCommandPool(device Handle, family uint32) (Handle, error) {
	dev, err := lookup(&d.devices, device, "device")
	if err != nil {
		return NullHandle, err
	}
	createInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: family,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(dev, &createInfo, nil, &pool); res != vk.Success {
		return NullHandle, resultError("vkCreateCommandPool", res)
	}
	return d.commandPools.put(pool), nil
}

func (d *vkDriver) DestroyCommandPool(device, pool Handle) {
	dev, err := lookup(&d.devices, device, "device")
	if err != nil {
		return
	}
	if p, ok := d.commandPools.take(pool); ok {
		vk.DestroyCommandPool(dev, p, nil)
	}
}

func (d *vkDriver) AllocateCommandBuffers(device, pool Handle, count uint32) ([]Handle, error) {
	dev, err := lookup(&d.devices, device, "device")
	if err != nil {
		return nil, err
	}
	p, err := lookup(&d.commandPools, pool, "command pool")
	if err != nil {
		return nil, err
	}

	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        p,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: count,
	}
	buffers := make([]vk.CommandBuffer, count)
	if res := vk.AllocateCommandBuffers(dev, &allocateInfo, buffers); res != vk.Success {
		return nil, resultError("vkAllocateCommandBuffers", res)
	}

	handles := make([]Handle, count)
	for i, b := range buffers {
		handles[i] = d.commandBuffers.put(b)
	}
	return handles, nil
}

func (d *vkDriver) FreeCommandBuffers(device, pool Handle, buffers []Handle) {
	dev, err := lookup(&d.devices, device, "device")
	if err != nil {
		return
	}
	p, err := lookup(&d.commandPools, pool, "command pool")
	if err != nil {
		return
	}
	raw := make([]vk.CommandBuffer, 0, len(buffers))
	for _, h := range buffers {
		if b, ok := d.commandBuffers.take(h); ok {
			raw = append(raw, b)
		}
	}
	if len(raw) > 0 {
		vk.FreeCommandBuffers(dev, p, uint32(len(raw)), raw)
	}
}

func (d *vkDriver) ResetCommandBuffer(buffer Handle) error {
	b, err := lookup(&d.commandBuffers, buffer, "command buffer")
	if err != nil {
		return err
	}
	return resultError("vkResetCommandBuffer", vk.ResetCommandBuffer(b, 0))
}

func (d *vkDriver) BeginCommandBuffer(buffer Handle) error {
	b, err := lookup(&d.commandBuffers, buffer, "command buffer")
	if err != nil {
		return err
	}
	beginInfo := &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: 0,
	}
	return resultError("vkBeginCommandBuffer", vk.BeginCommandBuffer(b, beginInfo))
}

func (d *vkDriver) EndCommandBuffer(buffer Handle) error {
	b, err := lookup(&d.commandBuffers, buffer, "command buffer")
	if err != nil {
		return err
	}
	return resultError("vkEndCommandBuffer", vk.EndCommandBuffer(b))
}

func (d *vkDriver) CmdBeginRenderPass(buffer Handle, info RenderPassBeginInfo) {
	b, _ := d.commandBuffers.get(buffer)
	rp, _ := d.renderPasses.get(info.RenderPass)
	fb, _ := d.framebuffers.get(info.Framebuffer)

	clearValues := make([]vk.ClearValue, 1)
	clearValues[0].SetColor(info.ClearColor[:])

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  rp,
		Framebuffer: fb,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{Width: info.Extent.Width, Height: info.Extent.Height},
		},
		ClearValueCount: 1,
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(b, &beginInfo, vk.SubpassContentsInline)
}

func (d *vkDriver) CmdBindPipeline(buffer Handle, bindPoint vk.PipelineBindPoint, pipeline Handle) {
	b, _ := d.commandBuffers.get(buffer)
	p, _ := d.pipelines.get(pipeline)
	vk.CmdBindPipeline(b, bindPoint, p)
}

func (d *vkDriver) CmdDraw(buffer Handle, vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	b, _ := d.commandBuffers.get(buffer)
	vk.CmdDraw(b, vertexCount, instanceCount, firstVertex, firstInstance)
}

func (d *vkDriver) CmdEndRenderPass(buffer Handle) {
	b, _ := d.commandBuffers.get(buffer)
	vk.CmdEndRenderPass(b)
}

func (d *vkDriver) QueueSubmit(queue Handle, info SubmitInfo) error {
	q, err := lookup(&d.queues, queue, "queue")
	if err != nil {
		return err
	}
	b, err := lookup(&d.commandBuffers, info.CommandBuffer, "command buffer")
	if err != nil {
		return err
	}
	wait, err := lookup(&d.semaphores, info.WaitSemaphore, "semaphore")
	if err != nil {
		return err
	}
	signal, err := lookup(&d.semaphores, info.SignalSemaphore, "semaphore")
	if err != nil {
		return err
	}
	fence, err := lookup(&d.fences, info.Fence, "fence")
	if err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait},
		// Each semaphore waits on the corresponding pipeline stage to complete. 1:1 ratio.
		PWaitDstStageMask:    []vk.PipelineStageFlags{info.WaitStage},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{b},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{signal},
	}
	return resultError("vkQueueSubmit", vk.QueueSubmit(q, 1, []vk.SubmitInfo{submitInfo}, fence))
}
