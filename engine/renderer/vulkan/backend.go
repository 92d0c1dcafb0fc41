package vulkan

import (
	"errors"
	"fmt"
	"runtime"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/voxrt/engine/core"
	"golang.org/x/exp/slices"
)

const (
	extensionSurface                       = "VK_KHR_surface"
	extensionGetPhysicalDeviceProperties2  = "VK_KHR_get_physical_device_properties2"
	extensionPortabilityEnumeration        = "VK_KHR_portability_enumeration"
	layerKhronosValidation                 = "VK_LAYER_KHRONOS_validation"
	instanceCreateEnumeratePortabilityFlag = 0x00000001
)

type InstanceConfig struct {
	ApplicationName string
	// Debug enables the validation layer and routes its reports into the
	// engine log.
	Debug bool
	// GetInstanceProcAddr is the loader entry point, as returned by
	// glfw.GetVulkanGetInstanceProcAddress.
	GetInstanceProcAddr unsafe.Pointer
}

// NewVulkanDriver loads Vulkan, creates the instance with the extensions
// window needs and, in debug builds, the validation layer and debug report
// callback.
func NewVulkanDriver(window Window, config InstanceConfig) (Driver, error) {
	if config.GetInstanceProcAddr == nil {
		return nil, logError(errors.New("GetInstanceProcAddress is nil"))
	}
	vk.SetGetInstanceProcAddr(config.GetInstanceProcAddr)
	if err := vk.Init(); err != nil {
		return nil, logError(fmt.Errorf("failed to initialize vk: %w", err))
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 2, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(config.ApplicationName),
		PEngineName:        VulkanSafeString("VOXRT Engine"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	// Obtain a list of required extensions
	requiredExtensions := []string{extensionSurface}
	for _, ext := range window.GetRequiredInstanceExtensions() {
		if !slices.Contains(requiredExtensions, ext) {
			requiredExtensions = append(requiredExtensions, ext)
		}
	}
	requiredExtensions = append(requiredExtensions, extensionGetPhysicalDeviceProperties2)
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions, extensionPortabilityEnumeration)
		createInfo.Flags |= instanceCreateEnumeratePortabilityFlag
	}
	if config.Debug {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
	}
	core.LogInfo("Required extensions:")
	for _, ext := range requiredExtensions {
		core.LogInfo(ext)
	}

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	// Validation layers should only be enabled on debug builds.
	var requiredLayers []string
	if config.Debug {
		core.LogInfo("Validation layers enabled. Enumerating...")
		requiredLayers = []string{layerKhronosValidation}
		if err := checkValidationLayers(requiredLayers); err != nil {
			return nil, logError(err)
		}
		core.LogInfo("All required validation layers are present.")
	}
	createInfo.EnabledLayerCount = uint32(len(requiredLayers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(requiredLayers)

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, nil, &instance); res != vk.Success {
		return nil, logError(fmt.Errorf("failed in creating the Vulkan Instance with error `%s`", VulkanResultString(res, true)))
	}
	if err := vk.InitInstance(instance); err != nil {
		vk.DestroyInstance(instance, nil)
		return nil, logError(err)
	}
	core.LogInfo("Vulkan Instance created.")

	dbg := vk.NullDebugReportCallback
	if config.Debug {
		core.LogDebug("Creating Vulkan debugger...")
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
			PNext:       nil,
		}
		if err := vk.Error(vk.CreateDebugReportCallback(instance, &debugCreateInfo, nil, &dbg)); err != nil {
			vk.DestroyInstance(instance, nil)
			return nil, logError(fmt.Errorf("vk.CreateDebugReportCallback failed with %w", err))
		}
		core.LogDebug("Vulkan debugger created.")
	}

	return newVkDriver(instance, dbg, config.GetInstanceProcAddr), nil
}

func checkValidationLayers(required []string) error {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return resultError("vkEnumerateInstanceLayerProperties", res)
	}
	layers := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, layers); res != vk.Success {
		return resultError("vkEnumerateInstanceLayerProperties", res)
	}
	available := make([]string, 0, count)
	for i := range layers[:count] {
		layers[i].Deref()
		available = append(available, vk.ToString(layers[i].LayerName[:]))
	}
	for _, name := range required {
		core.LogInfo("Searching for layer: %s...", name)
		if !slices.Contains(available, name) {
			return fmt.Errorf("required validation layer is missing: %s", name)
		}
		core.LogInfo("Found.")
	}
	return nil
}

// Initialize creates the Vulkan driver for window and brings the renderer
// up on it.
func Initialize(window Window, config Config, getInstanceProcAddr unsafe.Pointer) (*Context, error) {
	driver, err := NewVulkanDriver(window, InstanceConfig{
		ApplicationName:     config.ApplicationName,
		Debug:               config.Debug,
		GetInstanceProcAddr: getInstanceProcAddr,
	})
	if err != nil {
		return nil, err
	}
	return NewContext(driver, window, config)
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		core.LogDebug("DEBUG: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
