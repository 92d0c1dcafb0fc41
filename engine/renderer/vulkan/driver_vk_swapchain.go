package vulkan

import (
	vk "github.com/goki/vulkan"
)

func (d *vkDriver) CreateSwapchain(device Handle, info SwapchainCreateInfo) (Handle, error) {
	dev, err := lookup(&d.devices, device, "device")
	if err != nil {
		return NullHandle, err
	}
	s, err := lookup(&d.surfaces, info.Surface, "surface")
	if err != nil {
		return NullHandle, err
	}

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          s,
		MinImageCount:    info.MinImageCount,
		ImageFormat:      info.Format.Format,
		ImageColorSpace:  info.Format.ColorSpace,
		ImageExtent:      vk.Extent2D{Width: info.Extent.Width, Height: info.Extent.Height},
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		// Graphics and present share one family.
		ImageSharingMode:      vk.SharingModeExclusive,
		QueueFamilyIndexCount: 0,
		PQueueFamilyIndices:   nil,
		PreTransform:          info.PreTransform,
		CompositeAlpha:        vk.CompositeAlphaOpaqueBit,
		PresentMode:           info.PresentMode,
		Clipped:               vk.True,
		OldSwapchain:          nil,
	}

	var swapchain vk.Swapchain
	if res := vk.CreateSwapchain(dev, &createInfo, nil, &swapchain); res != vk.Success {
		return NullHandle, resultError("vkCreateSwapchainKHR", res)
	}
	return d.swapchains.put(swapchain), nil
}

func (d *vkDriver) SwapchainImages(device, swapchain Handle) ([]Handle, error) {
	if images, ok := d.swapchainImages[swapchain]; ok {
		return images, nil
	}
	dev, err := lookup(&d.devices, device, "device")
	if err != nil {
		return nil, err
	}
	sc, err := lookup(&d.swapchains, swapchain, "swapchain")
	if err != nil {
		return nil, err
	}

	var count uint32
	if res := vk.GetSwapchainImages(dev, sc, &count, nil); res != vk.Success {
		return nil, resultError("vkGetSwapchainImagesKHR", res)
	}
	images := make([]vk.Image, count)
	if res := vk.GetSwapchainImages(dev, sc, &count, images); res != vk.Success {
		return nil, resultError("vkGetSwapchainImagesKHR", res)
	}

	handles := make([]Handle, count)
	for i, image := range images[:count] {
		handles[i] = d.images.put(image)
	}
	d.swapchainImages[swapchain] = handles
	return handles, nil
}

func (d *vkDriver) DestroySwapchain(device, swapchain Handle) {
	for _, image := range d.swapchainImages[swapchain] {
		d.images.take(image)
	}
	delete(d.swapchainImages, swapchain)

	dev, err := lookup(&d.devices, device, "device")
	if err != nil {
		return
	}
	if sc, ok := d.swapchains.take(swapchain); ok {
		vk.DestroySwapchain(dev, sc, nil)
	}
}

func (d *vkDriver) CreateImageView(device, image Handle, format vk.Format) (Handle, error) {
	dev, err := lookup(&d.devices, device, "device")
	if err != nil {
		return NullHandle, err
	}
	img, err := lookup(&d.images, image, "image")
	if err != nil {
		return NullHandle, err
	}

	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	var view vk.ImageView
	if res := vk.CreateImageView(dev, &viewInfo, nil, &view); res != vk.Success {
		return NullHandle, resultError("vkCreateImageView", res)
	}
	return d.views.put(view), nil
}

func (d *vkDriver) DestroyImageView(device, view Handle) {
	dev, err := lookup(&d.devices, device, "device")
	if err != nil {
		return
	}
	if v, ok := d.views.take(view); ok {
		vk.DestroyImageView(dev, v, nil)
	}
}

func (d *vkDriver) AcquireNextImage(device, swapchain Handle, timeout uint64, semaphore Handle) (uint32, bool, error) {
	dev, err := lookup(&d.devices, device, "device")
	if err != nil {
		return 0, false, err
	}
	sc, err := lookup(&d.swapchains, swapchain, "swapchain")
	if err != nil {
		return 0, false, err
	}
	sem, err := lookup(&d.semaphores, semaphore, "semaphore")
	if err != nil {
		return 0, false, err
	}

	var index uint32
	switch res := vk.AcquireNextImage(dev, sc, timeout, sem, vk.NullFence, &index); res {
	case vk.Success:
		return index, false, nil
	case vk.Suboptimal:
		return index, true, nil
	default:
		return 0, false, resultError("vkAcquireNextImageKHR", res)
	}
}

func (d *vkDriver) QueuePresent(queue Handle, info PresentInfo) (bool, error) {
	q, err := lookup(&d.queues, queue, "queue")
	if err != nil {
		return false, err
	}
	wait, err := lookup(&d.semaphores, info.WaitSemaphore, "semaphore")
	if err != nil {
		return false, err
	}
	sc, err := lookup(&d.swapchains, info.Swapchain, "swapchain")
	if err != nil {
		return false, err
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{sc},
		PImageIndices:      []uint32{info.ImageIndex},
		PResults:           nil,
	}
	switch res := vk.QueuePresent(q, &presentInfo); res {
	case vk.Success:
		return false, nil
	case vk.Suboptimal:
		return true, nil
	default:
		return false, resultError("vkQueuePresentKHR", res)
	}
}
