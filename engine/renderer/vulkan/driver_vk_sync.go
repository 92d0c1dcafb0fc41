package vulkan

import (
	vk "github.com/goki/vulkan"
)

func (d *vkDriver) CreateSemaphore(device Handle) (Handle, error) {
	dev, err := lookup(&d.devices, device, "device")
	if err != nil {
		return NullHandle, err
	}
	createInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	if res := vk.CreateSemaphore(dev, &createInfo, nil, &semaphore); res != vk.Success {
		return NullHandle, resultError("vkCreateSemaphore", res)
	}
	return d.semaphores.put(semaphore), nil
}

func (d *vkDriver) DestroySemaphore(device, semaphore Handle) {
	dev, err := lookup(&d.devices, device, "device")
	if err != nil {
		return
	}
	if s, ok := d.semaphores.take(semaphore); ok {
		vk.DestroySemaphore(dev, s, nil)
	}
}

func (d *vkDriver) CreateFence(device Handle, signaled bool) (Handle, error) {
	dev, err := lookup(&d.devices, device, "device")
	if err != nil {
		return NullHandle, err
	}
	createInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		createInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var fence vk.Fence
	if res := vk.CreateFence(dev, &createInfo, nil, &fence); res != vk.Success {
		return NullHandle, resultError("vkCreateFence", res)
	}
	return d.fences.put(fence), nil
}

func (d *vkDriver) DestroyFence(device, fence Handle) {
	dev, err := lookup(&d.devices, device, "device")
	if err != nil {
		return
	}
	if f, ok := d.fences.take(fence); ok {
		vk.DestroyFence(dev, f, nil)
	}
}

func (d *vkDriver) WaitForFence(device, fence Handle, timeout uint64) error {
	dev, err := lookup(&d.devices, device, "device")
	if err != nil {
		return err
	}
	f, err := lookup(&d.fences, fence, "fence")
	if err != nil {
		return err
	}
	return resultError("vkWaitForFences", vk.WaitForFences(dev, 1, []vk.Fence{f}, vk.True, timeout))
}

func (d *vkDriver) ResetFence(device, fence Handle) error {
	dev, err := lookup(&d.devices, device, "device")
	if err != nil {
		return err
	}
	f, err := lookup(&d.fences, fence, "fence")
	if err != nil {
		return err
	}
	return resultError("vkResetFences", vk.ResetFences(dev, 1, []vk.Fence{f}))
}
