package vulkan

import (
	vk "github.com/goki/vulkan"
)

func (d *vkDriver) CreateDevice(physical Handle, family uint32, extensions []string) (Handle, error) {
	pd, err := lookup(&d.physicals, physical, "physical device")
	if err != nil {
		return NullHandle, err
	}

	queueCreateInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: family,
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}}

	deviceFeatures := vk.PhysicalDeviceFeatures{
		ShaderClipDistance: vk.True,
	}

	features, freeFeatures := rayTracingFeatures(extensions)
	defer freeFeatures()

	createInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		PNext:                   features,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensions),
		// Deprecated and ignored, so pass nothing.
		EnabledLayerCount:   0,
		PpEnabledLayerNames: nil,
	}

	var device vk.Device
	if res := vk.CreateDevice(pd, &createInfo, nil, &device); res != vk.Success {
		return NullHandle, resultError("vkCreateDevice", res)
	}
	return d.devices.put(device), nil
}

func (d *vkDriver) DeviceQueue(device Handle, family, index uint32) Handle {
	dev, err := lookup(&d.devices, device, "device")
	if err != nil {
		return NullHandle
	}
	var queue vk.Queue
	vk.GetDeviceQueue(dev, family, index, &queue)
	return d.queues.put(queue)
}

func (d *vkDriver) DeviceWaitIdle(device Handle) error {
	dev, err := lookup(&d.devices, device, "device")
	if err != nil {
		return err
	}
	return resultError("vkDeviceWaitIdle", vk.DeviceWaitIdle(dev))
}

func (d *vkDriver) DestroyDevice(device Handle) {
	if dev, ok := d.devices.take(device); ok {
		vk.DestroyDevice(dev, nil)
	}
	// Queues go away with their device.
	d.queues = newHandleTable[vk.Queue](&d.ids)
}
