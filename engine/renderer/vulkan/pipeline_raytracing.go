package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/voxrt/engine/core"
)

// RayTracingShaders is the SPIR-V for the ray generation, miss and
// closest-hit stages.
type RayTracingShaders struct {
	RayGen     []byte
	Miss       []byte
	ClosestHit []byte
}

// BuildRayTracingPipeline assembles raygen, miss and closest-hit into three
// groups (general, general, triangles hit) with a recursion depth of 1 and an
// empty layout. It does not depend on a render pass. Devices created without
// the ray tracing extensions, or drivers built without the raytracing tag,
// return ErrRayTracingUnsupported before any object is created.
func BuildRayTracingPipeline(device *Device, shaders RayTracingShaders) (*Pipeline, error) {
	if !device.SupportsRayTracing() {
		return nil, logError(fmt.Errorf("device '%s': %w", device.Physical.Name, ErrRayTracingUnsupported))
	}

	stages, release, err := createShaderStages(device, []shaderSource{
		{stage: ShaderStageRaygen, name: "raygen", code: shaders.RayGen},
		{stage: ShaderStageMiss, name: "miss", code: shaders.Miss},
		{stage: ShaderStageClosestHit, name: "closest hit", code: shaders.ClosestHit},
	})
	if err != nil {
		return nil, err
	}
	defer release()

	driver := device.Driver
	layout, err := driver.CreatePipelineLayout(device.Logical)
	if err != nil {
		return nil, logError(fmt.Errorf("failed to create pipeline layout: %w", err))
	}

	handle, err := driver.CreateRayTracingPipeline(device.Logical, RayTracingPipelineCreateInfo{
		Stages: stages,
		Groups: []ShaderGroupInfo{
			{Type: ShaderGroupGeneral, General: 0, ClosestHit: ShaderUnused, AnyHit: ShaderUnused, Intersection: ShaderUnused},
			{Type: ShaderGroupGeneral, General: 1, ClosestHit: ShaderUnused, AnyHit: ShaderUnused, Intersection: ShaderUnused},
			{Type: ShaderGroupTrianglesHit, General: ShaderUnused, ClosestHit: 2, AnyHit: ShaderUnused, Intersection: ShaderUnused},
		},
		MaxRecursionDepth: 1,
		Layout:            layout,
	})
	if err != nil {
		driver.DestroyPipelineLayout(device.Logical, layout)
		return nil, logError(fmt.Errorf("failed to create ray tracing pipeline: %w", err))
	}

	core.LogDebug("Ray tracing pipeline created.")
	return &Pipeline{
		Handle:    handle,
		Layout:    layout,
		BindPoint: vk.PipelineBindPointRayTracing,
		device:    device,
	}, nil
}
