package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// vkDriver implements Driver on goki/vulkan. Vulkan objects live in handle
// tables so the rest of the package only ever sees Handles.
type vkDriver struct {
	instance      vk.Instance
	debugCallback vk.DebugReportCallback

	// getInstanceProcAddr resolves entry points the bindings do not cover.
	getInstanceProcAddr unsafe.Pointer

	ids             handleAllocator
	physicalIDs     map[vk.PhysicalDevice]Handle
	physicals       handleTable[vk.PhysicalDevice]
	surfaces        handleTable[vk.Surface]
	devices         handleTable[vk.Device]
	queues          handleTable[vk.Queue]
	swapchains      handleTable[vk.Swapchain]
	images          handleTable[vk.Image]
	swapchainImages map[Handle][]Handle
	views           handleTable[vk.ImageView]
	renderPasses    handleTable[vk.RenderPass]
	framebuffers    handleTable[vk.Framebuffer]
	commandPools    handleTable[vk.CommandPool]
	commandBuffers  handleTable[vk.CommandBuffer]
	semaphores      handleTable[vk.Semaphore]
	fences          handleTable[vk.Fence]
	shaderModules   handleTable[vk.ShaderModule]
	pipelineLayouts handleTable[vk.PipelineLayout]
	pipelines       handleTable[vk.Pipeline]
}

func newVkDriver(instance vk.Instance, debugCallback vk.DebugReportCallback, getInstanceProcAddr unsafe.Pointer) *vkDriver {
	d := &vkDriver{
		instance:            instance,
		debugCallback:       debugCallback,
		getInstanceProcAddr: getInstanceProcAddr,
		physicalIDs:         make(map[vk.PhysicalDevice]Handle),
		swapchainImages:     make(map[Handle][]Handle),
	}
	d.physicals = newHandleTable[vk.PhysicalDevice](&d.ids)
	d.surfaces = newHandleTable[vk.Surface](&d.ids)
	d.devices = newHandleTable[vk.Device](&d.ids)
	d.queues = newHandleTable[vk.Queue](&d.ids)
	d.swapchains = newHandleTable[vk.Swapchain](&d.ids)
	d.images = newHandleTable[vk.Image](&d.ids)
	d.views = newHandleTable[vk.ImageView](&d.ids)
	d.renderPasses = newHandleTable[vk.RenderPass](&d.ids)
	d.framebuffers = newHandleTable[vk.Framebuffer](&d.ids)
	d.commandPools = newHandleTable[vk.CommandPool](&d.ids)
	d.commandBuffers = newHandleTable[vk.CommandBuffer](&d.ids)
	d.semaphores = newHandleTable[vk.Semaphore](&d.ids)
	d.fences = newHandleTable[vk.Fence](&d.ids)
	d.shaderModules = newHandleTable[vk.ShaderModule](&d.ids)
	d.pipelineLayouts = newHandleTable[vk.PipelineLayout](&d.ids)
	d.pipelines = newHandleTable[vk.Pipeline](&d.ids)
	return d
}

// lookup resolves h or reports which kind of object was missing.
func lookup[T any](t *handleTable[T], h Handle, kind string) (T, error) {
	v, ok := t.get(h)
	if !ok {
		var zero T
		return zero, fmt.Errorf("unknown %s handle %d", kind, h)
	}
	return v, nil
}

func (d *vkDriver) CreateSurface(window Window) (Handle, error) {
	ptr, err := window.CreateWindowSurface(d.instance, nil)
	if err != nil {
		return NullHandle, err
	}
	return d.surfaces.put(vk.SurfaceFromPointer(ptr)), nil
}

func (d *vkDriver) DestroySurface(surface Handle) {
	if s, ok := d.surfaces.take(surface); ok {
		vk.DestroySurface(d.instance, s, nil)
	}
}

func (d *vkDriver) PhysicalDevices() ([]PhysicalDeviceInfo, error) {
	var count uint32
	if res := vk.EnumeratePhysicalDevices(d.instance, &count, nil); res != vk.Success {
		return nil, resultError("vkEnumeratePhysicalDevices", res)
	}
	if count == 0 {
		return nil, nil
	}
	devices := make([]vk.PhysicalDevice, count)
	if res := vk.EnumeratePhysicalDevices(d.instance, &count, devices); res != vk.Success {
		return nil, resultError("vkEnumeratePhysicalDevices", res)
	}

	infos := make([]PhysicalDeviceInfo, 0, count)
	for _, pd := range devices[:count] {
		h, ok := d.physicalIDs[pd]
		if !ok {
			h = d.physicals.put(pd)
			d.physicalIDs[pd] = h
		}

		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(pd, &properties)
		properties.Deref()

		info := PhysicalDeviceInfo{
			Handle:        h,
			Name:          vk.ToString(properties.DeviceName[:]),
			Type:          properties.DeviceType,
			APIVersion:    properties.ApiVersion,
			DriverVersion: properties.DriverVersion,
		}

		var familyCount uint32
		vk.GetPhysicalDeviceQueueFamilyProperties(pd, &familyCount, nil)
		families := make([]vk.QueueFamilyProperties, familyCount)
		vk.GetPhysicalDeviceQueueFamilyProperties(pd, &familyCount, families)
		for i := range families {
			families[i].Deref()
			info.QueueFamilies = append(info.QueueFamilies, QueueFamily{
				Index: uint32(i),
				Flags: families[i].QueueFlags,
				Count: families[i].QueueCount,
			})
		}

		var extensionCount uint32
		if res := vk.EnumerateDeviceExtensionProperties(pd, "", &extensionCount, nil); res != vk.Success {
			return nil, resultError("vkEnumerateDeviceExtensionProperties", res)
		}
		if extensionCount > 0 {
			extensions := make([]vk.ExtensionProperties, extensionCount)
			if res := vk.EnumerateDeviceExtensionProperties(pd, "", &extensionCount, extensions); res != vk.Success {
				return nil, resultError("vkEnumerateDeviceExtensionProperties", res)
			}
			for i := range extensions[:extensionCount] {
				extensions[i].Deref()
				info.Extensions = append(info.Extensions, vk.ToString(extensions[i].ExtensionName[:]))
			}
		}

		infos = append(infos, info)
	}
	return infos, nil
}

func (d *vkDriver) SurfaceSupport(physical Handle, family uint32, surface Handle) (bool, error) {
	pd, err := lookup(&d.physicals, physical, "physical device")
	if err != nil {
		return false, err
	}
	s, err := lookup(&d.surfaces, surface, "surface")
	if err != nil {
		return false, err
	}
	var supported vk.Bool32
	if res := vk.GetPhysicalDeviceSurfaceSupport(pd, family, s, &supported); res != vk.Success {
		return false, resultError("vkGetPhysicalDeviceSurfaceSupportKHR", res)
	}
	return supported == vk.True, nil
}

func (d *vkDriver) QuerySwapchainSupport(physical, surface Handle) (SwapchainSupportInfo, error) {
	var info SwapchainSupportInfo
	pd, err := lookup(&d.physicals, physical, "physical device")
	if err != nil {
		return info, err
	}
	s, err := lookup(&d.surfaces, surface, "surface")
	if err != nil {
		return info, err
	}

	var caps vk.SurfaceCapabilities
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(pd, s, &caps); res != vk.Success {
		return info, resultError("vkGetPhysicalDeviceSurfaceCapabilitiesKHR", res)
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	info.Capabilities = SurfaceCapabilities{
		MinImageCount:    caps.MinImageCount,
		MaxImageCount:    caps.MaxImageCount,
		CurrentExtent:    Extent{Width: caps.CurrentExtent.Width, Height: caps.CurrentExtent.Height},
		MinImageExtent:   Extent{Width: caps.MinImageExtent.Width, Height: caps.MinImageExtent.Height},
		MaxImageExtent:   Extent{Width: caps.MaxImageExtent.Width, Height: caps.MaxImageExtent.Height},
		CurrentTransform: caps.CurrentTransform,
	}

	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(pd, s, &formatCount, nil); res != vk.Success {
		return info, resultError("vkGetPhysicalDeviceSurfaceFormatsKHR", res)
	}
	if formatCount > 0 {
		formats := make([]vk.SurfaceFormat, formatCount)
		if res := vk.GetPhysicalDeviceSurfaceFormats(pd, s, &formatCount, formats); res != vk.Success {
			return info, resultError("vkGetPhysicalDeviceSurfaceFormatsKHR", res)
		}
		for i := range formats[:formatCount] {
			formats[i].Deref()
			info.Formats = append(info.Formats, SurfaceFormat{Format: formats[i].Format, ColorSpace: formats[i].ColorSpace})
		}
	}

	var modeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(pd, s, &modeCount, nil); res != vk.Success {
		return info, resultError("vkGetPhysicalDeviceSurfacePresentModesKHR", res)
	}
	if modeCount > 0 {
		info.PresentModes = make([]vk.PresentMode, modeCount)
		if res := vk.GetPhysicalDeviceSurfacePresentModes(pd, s, &modeCount, info.PresentModes); res != vk.Success {
			return info, resultError("vkGetPhysicalDeviceSurfacePresentModesKHR", res)
		}
		info.PresentModes = info.PresentModes[:modeCount]
	}
	return info, nil
}

func (d *vkDriver) Destroy() {
	if d.debugCallback != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(d.instance, d.debugCallback, nil)
		d.debugCallback = vk.NullDebugReportCallback
	}
	if d.instance != nil {
		vk.DestroyInstance(d.instance, nil)
		d.instance = nil
	}
}
