package vulkan

import (
	"fmt"
	"strings"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/voxrt/engine/core"
	"golang.org/x/exp/slices"
)

const (
	extensionSwapchain              = "VK_KHR_swapchain"
	extensionRayTracingPipeline     = "VK_KHR_ray_tracing_pipeline"
	extensionAccelerationStructure  = "VK_KHR_acceleration_structure"
	extensionDeferredHostOperations = "VK_KHR_deferred_host_operations"
	extensionPortabilitySubset      = "VK_KHR_portability_subset"
)

type PhysicalDeviceRequirements struct {
	Graphics             bool
	Compute              bool
	Present              bool
	DeviceExtensionNames []string
}

// DefaultDeviceRequirements asks for one queue family doing graphics,
// compute and present, plus the swapchain extension. requireRayTracing adds
// the ray tracing pipeline and acceleration structure extensions.
func DefaultDeviceRequirements(requireRayTracing bool) PhysicalDeviceRequirements {
	req := PhysicalDeviceRequirements{
		Graphics:             true,
		Compute:              true,
		Present:              true,
		DeviceExtensionNames: []string{extensionSwapchain},
	}
	if requireRayTracing {
		req.DeviceExtensionNames = append(req.DeviceExtensionNames,
			extensionRayTracingPipeline,
			extensionAccelerationStructure,
		)
	}
	return req
}

// Device is the logical device with its single graphics+compute+present
// queue. It is created first and destroyed last.
type Device struct {
	Driver           Driver
	Physical         PhysicalDeviceInfo
	Logical          Handle
	QueueFamilyIndex uint32
	Queue            Handle
	Extensions       []string
}

// SelectPhysicalDevice walks devices and their queue families in enumeration
// order and returns the first pair meeting every requirement. There is no
// scoring, so an integrated GPU listed before a discrete one wins.
func SelectPhysicalDevice(driver Driver, surface Handle, req PhysicalDeviceRequirements) (PhysicalDeviceInfo, uint32, error) {
	devices, err := driver.PhysicalDevices()
	if err != nil {
		return PhysicalDeviceInfo{}, 0, fmt.Errorf("failed to enumerate physical devices: %w", err)
	}
	if len(devices) == 0 {
		return PhysicalDeviceInfo{}, 0, fmt.Errorf("no devices which support Vulkan were found: %w", ErrNoSuitableDevice)
	}

	for _, device := range devices {
		core.LogInfo("Evaluating device: '%s'", device.Name)

		missing := false
		for _, name := range req.DeviceExtensionNames {
			if !slices.Contains(device.Extensions, name) {
				core.LogInfo("Required extension not found: '%s', skipping device.", name)
				missing = true
				break
			}
		}
		if missing {
			continue
		}

		for _, family := range device.QueueFamilies {
			if req.Graphics && family.Flags&vk.QueueFlags(vk.QueueGraphicsBit) == 0 {
				continue
			}
			if req.Compute && family.Flags&vk.QueueFlags(vk.QueueComputeBit) == 0 {
				continue
			}
			if req.Present {
				supported, err := driver.SurfaceSupport(device.Handle, family.Index, surface)
				if err != nil {
					return PhysicalDeviceInfo{}, 0, fmt.Errorf("failed to query surface support of '%s': %w", device.Name, err)
				}
				if !supported {
					continue
				}
			}
			core.LogInfo("Selected device '%s', queue family %d.", device.Name, family.Index)
			return device, family.Index, nil
		}
	}
	return PhysicalDeviceInfo{}, 0, ErrNoSuitableDevice
}

// SelectAndCreateDevice picks the physical device and creates the logical
// device and its queue.
func SelectAndCreateDevice(driver Driver, surface *Surface, req PhysicalDeviceRequirements) (*Device, error) {
	physical, family, err := SelectPhysicalDevice(driver, surface.Handle, req)
	if err != nil {
		return nil, logError(fmt.Errorf("failed to select a physical device: %w", err))
	}
	logDeviceInfo(physical)

	extensions := append([]string{}, req.DeviceExtensionNames...)
	if slices.Contains(extensions, extensionAccelerationStructure) && slices.Contains(physical.Extensions, extensionDeferredHostOperations) {
		extensions = append(extensions, extensionDeferredHostOperations)
	}
	if slices.Contains(physical.Extensions, extensionPortabilitySubset) {
		core.LogInfo("Adding required extension '%s'.", extensionPortabilitySubset)
		extensions = append(extensions, extensionPortabilitySubset)
	}

	core.LogInfo("Creating logical device...")
	logical, err := driver.CreateDevice(physical.Handle, family, extensions)
	if err != nil {
		return nil, logError(fmt.Errorf("failed to create logical device: %w", err))
	}
	core.LogInfo("Logical device created.")

	device := &Device{
		Driver:           driver,
		Physical:         physical,
		Logical:          logical,
		QueueFamilyIndex: family,
		Queue:            driver.DeviceQueue(logical, family, 0),
		Extensions:       extensions,
	}
	core.LogInfo("Queues obtained.")
	return device, nil
}

func (d *Device) WaitIdle() error {
	if err := d.Driver.DeviceWaitIdle(d.Logical); err != nil {
		return logError(fmt.Errorf("device wait idle failed: %w", err))
	}
	return nil
}

// SupportsRayTracing reports whether the ray tracing pipeline extension was
// enabled on the logical device and the driver can build such pipelines.
func (d *Device) SupportsRayTracing() bool {
	return slices.Contains(d.Extensions, extensionRayTracingPipeline) && d.Driver.RayTracingPipelinesAvailable()
}

func (d *Device) Destroy() {
	if d.Logical == NullHandle {
		return
	}
	core.LogInfo("Destroying logical device...")
	d.Driver.DestroyDevice(d.Logical)
	d.Logical = NullHandle
	d.Queue = NullHandle
}

func logDeviceInfo(info PhysicalDeviceInfo) {
	core.LogInfo("Selected device: '%s'.", info.Name)
	switch info.Type {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		core.LogInfo("GPU type is Integrated.")
	case vk.PhysicalDeviceTypeDiscreteGpu:
		core.LogInfo("GPU type is Discrete.")
	case vk.PhysicalDeviceTypeVirtualGpu:
		core.LogInfo("GPU type is Virtual.")
	case vk.PhysicalDeviceTypeCpu:
		core.LogInfo("GPU type is CPU.")
	default:
		core.LogInfo("GPU type is Unknown.")
	}
	core.LogInfo("GPU Driver version: %d.%d.%d",
		info.DriverVersion>>22, (info.DriverVersion>>12)&0x3ff, info.DriverVersion&0xfff)
	core.LogInfo("Vulkan API version: %d.%d.%d",
		info.APIVersion>>22, (info.APIVersion>>12)&0x3ff, info.APIVersion&0xfff)
	for _, family := range info.QueueFamilies {
		core.LogDebug("Queue family %d: %s (x%d)", family.Index, queueFlagsString(family.Flags), family.Count)
	}
	rt := slices.Contains(info.Extensions, extensionRayTracingPipeline) && slices.Contains(info.Extensions, extensionAccelerationStructure)
	core.LogInfo("Ray tracing support: %t", rt)
}

func queueFlagsString(flags vk.QueueFlags) string {
	var names []string
	if flags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
		names = append(names, "GRAPHICS")
	}
	if flags&vk.QueueFlags(vk.QueueComputeBit) != 0 {
		names = append(names, "COMPUTE")
	}
	if flags&vk.QueueFlags(vk.QueueTransferBit) != 0 {
		names = append(names, "TRANSFER")
	}
	if flags&vk.QueueFlags(vk.QueueSparseBindingBit) != 0 {
		names = append(names, "SPARSE_BINDING")
	}
	if len(names) == 0 {
		return "NONE"
	}
	return strings.Join(names, "|")
}
