package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

type resultInfo struct {
	name        string
	description string
	success     bool
}

// From: https://www.khronos.org/registry/vulkan/specs/1.3-extensions/man/html/VkResult.html
var resultInfos = map[vk.Result]resultInfo{
	vk.Success:                 {"VK_SUCCESS", "Command successfully completed", true},
	vk.NotReady:                {"VK_NOT_READY", "A fence or query has not yet completed", true},
	vk.Timeout:                 {"VK_TIMEOUT", "A wait operation has not completed in the specified time", true},
	vk.EventSet:                {"VK_EVENT_SET", "An event is signaled", true},
	vk.EventReset:              {"VK_EVENT_RESET", "An event is unsignaled", true},
	vk.Incomplete:              {"VK_INCOMPLETE", "A return array was too small for the result", true},
	vk.Suboptimal:              {"VK_SUBOPTIMAL_KHR", "A swapchain no longer matches the surface properties exactly, but can still be used to present", true},
	vk.ThreadIdle:              {"VK_THREAD_IDLE_KHR", "A deferred operation has no work for this thread right now", true},
	vk.ThreadDone:              {"VK_THREAD_DONE_KHR", "A deferred operation has no work left to assign", true},
	vk.OperationDeferred:       {"VK_OPERATION_DEFERRED_KHR", "Some of the requested work was deferred", true},
	vk.OperationNotDeferred:    {"VK_OPERATION_NOT_DEFERRED_KHR", "No operations were deferred", true},
	vk.PipelineCompileRequired: {"VK_PIPELINE_COMPILE_REQUIRED_EXT", "Pipeline creation would have required compilation", true},

	vk.ErrorOutOfHostMemory:             {"VK_ERROR_OUT_OF_HOST_MEMORY", "A host memory allocation has failed", false},
	vk.ErrorOutOfDeviceMemory:           {"VK_ERROR_OUT_OF_DEVICE_MEMORY", "A device memory allocation has failed", false},
	vk.ErrorInitializationFailed:        {"VK_ERROR_INITIALIZATION_FAILED", "Initialization of an object could not be completed", false},
	vk.ErrorDeviceLost:                  {"VK_ERROR_DEVICE_LOST", "The logical or physical device has been lost", false},
	vk.ErrorMemoryMapFailed:             {"VK_ERROR_MEMORY_MAP_FAILED", "Mapping of a memory object has failed", false},
	vk.ErrorLayerNotPresent:             {"VK_ERROR_LAYER_NOT_PRESENT", "A requested layer is not present or could not be loaded", false},
	vk.ErrorExtensionNotPresent:         {"VK_ERROR_EXTENSION_NOT_PRESENT", "A requested extension is not supported", false},
	vk.ErrorFeatureNotPresent:           {"VK_ERROR_FEATURE_NOT_PRESENT", "A requested feature is not supported", false},
	vk.ErrorIncompatibleDriver:          {"VK_ERROR_INCOMPATIBLE_DRIVER", "The requested Vulkan version is not supported by the driver", false},
	vk.ErrorTooManyObjects:              {"VK_ERROR_TOO_MANY_OBJECTS", "Too many objects of the type have already been created", false},
	vk.ErrorFormatNotSupported:          {"VK_ERROR_FORMAT_NOT_SUPPORTED", "A requested format is not supported on this device", false},
	vk.ErrorFragmentedPool:              {"VK_ERROR_FRAGMENTED_POOL", "A pool allocation has failed due to fragmentation", false},
	vk.ErrorSurfaceLost:                 {"VK_ERROR_SURFACE_LOST_KHR", "A surface is no longer available", false},
	vk.ErrorNativeWindowInUse:           {"VK_ERROR_NATIVE_WINDOW_IN_USE_KHR", "The window is already in use by Vulkan or another API", false},
	vk.ErrorOutOfDate:                   {"VK_ERROR_OUT_OF_DATE_KHR", "The surface changed and is no longer compatible with the swapchain", false},
	vk.ErrorIncompatibleDisplay:         {"VK_ERROR_INCOMPATIBLE_DISPLAY_KHR", "The display is incompatible with the swapchain images", false},
	vk.ErrorInvalidShaderNv:             {"VK_ERROR_INVALID_SHADER_NV", "One or more shaders failed to compile or link", false},
	vk.ErrorOutOfPoolMemory:             {"VK_ERROR_OUT_OF_POOL_MEMORY", "A pool memory allocation has failed", false},
	vk.ErrorInvalidExternalHandle:       {"VK_ERROR_INVALID_EXTERNAL_HANDLE", "An external handle is not a valid handle of the specified type", false},
	vk.ErrorFragmentation:               {"VK_ERROR_FRAGMENTATION", "A descriptor pool creation has failed due to fragmentation", false},
	vk.ErrorInvalidDeviceAddress:        {"VK_ERROR_INVALID_DEVICE_ADDRESS_EXT", "The requested buffer address is not available", false},
	vk.ErrorFullScreenExclusiveModeLost: {"VK_ERROR_FULL_SCREEN_EXCLUSIVE_MODE_LOST_EXT", "Exclusive full-screen access was lost", false},
	vk.ErrorUnknown:                     {"VK_ERROR_UNKNOWN", "An unknown error has occurred", false},
}

// VulkanResultString names result, followed by its description when
// getExtended is set.
func VulkanResultString(result vk.Result, getExtended bool) string {
	info, ok := resultInfos[result]
	if !ok {
		return fmt.Sprintf("VkResult(%d)", int32(result))
	}
	return ConditionalOperator(!getExtended, info.name, info.name+" "+info.description)
}

// VulkanResultIsSuccess reports whether result is one of the success codes.
// Unknown codes are treated as errors.
func VulkanResultIsSuccess(result vk.Result) bool {
	info, ok := resultInfos[result]
	return ok && info.success
}

func ConditionalOperator(condition bool, res1, res2 string) string {
	if condition {
		return res1
	}
	return res2
}

const end = "\x00"

// VulkanSafeString null-terminates s for the C side of the bindings.
func VulkanSafeString(s string) string {
	if len(s) == 0 || s[len(s)-1] != 0 {
		return s + end
	}
	return s
}

// VulkanSafeStrings returns a null-terminated copy of list.
func VulkanSafeStrings(list []string) []string {
	out := make([]string, len(list))
	for i := range list {
		out[i] = VulkanSafeString(list[i])
	}
	return out
}
