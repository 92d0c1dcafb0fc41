package vulkan

import (
	"errors"
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/voxrt/engine/core"
)

var (
	ErrNoSuitableDevice      = errors.New("no physical device with a graphics, compute and present capable queue family")
	ErrSwapchainOutOfDate    = errors.New("swapchain out of date")
	ErrRayTracingUnsupported = errors.New("ray tracing pipelines are not supported")
	ErrInvalidSPIRV          = errors.New("invalid SPIR-V bytecode")
	ErrUnsupportedBindPoint  = errors.New("pipeline bind point cannot be drawn by the frame executor")
	ErrEmptySurfaceFormats   = errors.New("surface reports no formats")
)

// resultError turns a failed VkResult into an error naming the call.
func resultError(call string, result vk.Result) error {
	if result == vk.Success {
		return nil
	}
	if result == vk.ErrorOutOfDate {
		return fmt.Errorf("%s: %w", call, ErrSwapchainOutOfDate)
	}
	return fmt.Errorf("%s failed with %s", call, VulkanResultString(result, true))
}

// logError logs err and returns it, the way every constructor in this
// package reports failures.
func logError(err error) error {
	core.LogError(err.Error())
	return err
}
