//go:build !raytracing

package vulkan

import "unsafe"

// RayTracingPipelinesAvailable is false unless built with the raytracing tag.
func (d *vkDriver) RayTracingPipelinesAvailable() bool {
	return false
}

func (d *vkDriver) CreateRayTracingPipeline(device Handle, info RayTracingPipelineCreateInfo) (Handle, error) {
	return NullHandle, ErrRayTracingUnsupported
}

func rayTracingFeatures(extensions []string) (unsafe.Pointer, func()) {
	return nil, func() {}
}
