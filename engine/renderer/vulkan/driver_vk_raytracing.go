//go:build raytracing

package vulkan

/*
#cgo CFLAGS: -DVK_NO_PROTOTYPES
#include <stdlib.h>
#include <string.h>
#include <vulkan/vulkan.h>

typedef struct {
	VkPhysicalDeviceRayTracingPipelineFeaturesKHR pipeline;
	VkPhysicalDeviceAccelerationStructureFeaturesKHR accelerationStructure;
	VkPhysicalDeviceBufferDeviceAddressFeatures bufferDeviceAddress;
} rtFeatureChain;

// newRTFeatureChain returns the pNext chain enabling the ray tracing
// pipeline, acceleration structure and buffer device address features.
static void* newRTFeatureChain(void) {
	rtFeatureChain* f = calloc(1, sizeof(rtFeatureChain));
	if (f == NULL) {
		return NULL;
	}
	f->pipeline.sType = VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_RAY_TRACING_PIPELINE_FEATURES_KHR;
	f->pipeline.pNext = &f->accelerationStructure;
	f->pipeline.rayTracingPipeline = VK_TRUE;
	f->accelerationStructure.sType = VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_ACCELERATION_STRUCTURE_FEATURES_KHR;
	f->accelerationStructure.pNext = &f->bufferDeviceAddress;
	f->accelerationStructure.accelerationStructure = VK_TRUE;
	f->bufferDeviceAddress.sType = VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_BUFFER_DEVICE_ADDRESS_FEATURES;
	f->bufferDeviceAddress.bufferDeviceAddress = VK_TRUE;
	return f;
}

// createRTPipeline resolves vkCreateRayTracingPipelinesKHR through the
// loader and builds one pipeline. entryPoints holds stageCount names, each
// NUL terminated. groups holds 5 words per group: type, general, closest
// hit, any hit, intersection.
static VkResult createRTPipeline(void* getInstanceProcAddr, VkInstance instance, VkDevice device,
	uint32_t stageCount, const uint32_t* stageFlags, const VkShaderModule* modules, const char* entryPoints,
	uint32_t groupCount, const uint32_t* groups,
	uint32_t maxRecursionDepth, VkPipelineLayout layout, VkPipeline* pipeline)
{
	PFN_vkGetInstanceProcAddr gipa = (PFN_vkGetInstanceProcAddr)getInstanceProcAddr;
	PFN_vkGetDeviceProcAddr gdpa = (PFN_vkGetDeviceProcAddr)gipa(instance, "vkGetDeviceProcAddr");
	if (gdpa == NULL) {
		return VK_ERROR_INITIALIZATION_FAILED;
	}
	PFN_vkCreateRayTracingPipelinesKHR create =
		(PFN_vkCreateRayTracingPipelinesKHR)gdpa(device, "vkCreateRayTracingPipelinesKHR");
	if (create == NULL) {
		return VK_ERROR_EXTENSION_NOT_PRESENT;
	}

	VkPipelineShaderStageCreateInfo* stages = calloc(stageCount, sizeof(*stages));
	VkRayTracingShaderGroupCreateInfoKHR* shaderGroups = calloc(groupCount, sizeof(*shaderGroups));
	if (stages == NULL || shaderGroups == NULL) {
		free(stages);
		free(shaderGroups);
		return VK_ERROR_OUT_OF_HOST_MEMORY;
	}

	const char* name = entryPoints;
	for (uint32_t i = 0; i < stageCount; i++) {
		stages[i].sType = VK_STRUCTURE_TYPE_PIPELINE_SHADER_STAGE_CREATE_INFO;
		stages[i].stage = (VkShaderStageFlagBits)stageFlags[i];
		stages[i].module = modules[i];
		stages[i].pName = name;
		name += strlen(name) + 1;
	}
	for (uint32_t i = 0; i < groupCount; i++) {
		const uint32_t* g = groups + i * 5;
		shaderGroups[i].sType = VK_STRUCTURE_TYPE_RAY_TRACING_SHADER_GROUP_CREATE_INFO_KHR;
		shaderGroups[i].type = (VkRayTracingShaderGroupTypeKHR)g[0];
		shaderGroups[i].generalShader = g[1];
		shaderGroups[i].closestHitShader = g[2];
		shaderGroups[i].anyHitShader = g[3];
		shaderGroups[i].intersectionShader = g[4];
	}

	VkRayTracingPipelineCreateInfoKHR info;
	memset(&info, 0, sizeof(info));
	info.sType = VK_STRUCTURE_TYPE_RAY_TRACING_PIPELINE_CREATE_INFO_KHR;
	info.stageCount = stageCount;
	info.pStages = stages;
	info.groupCount = groupCount;
	info.pGroups = shaderGroups;
	info.maxPipelineRayRecursionDepth = maxRecursionDepth;
	info.layout = layout;
	info.basePipelineHandle = VK_NULL_HANDLE;
	info.basePipelineIndex = -1;

	VkResult res = create(device, VK_NULL_HANDLE, VK_NULL_HANDLE, 1, &info, NULL, pipeline);
	free(stages);
	free(shaderGroups);
	return res;
}
*/
import "C"

import (
	"errors"
	"strings"
	"unsafe"

	vk "github.com/goki/vulkan"
	"golang.org/x/exp/slices"
)

// shaderGroupWords is the number of words packShaderGroups emits per group.
const shaderGroupWords = 5

// RayTracingPipelinesAvailable needs the loader entry point to resolve
// vkCreateRayTracingPipelinesKHR, which goki/vulkan does not bind.
func (d *vkDriver) RayTracingPipelinesAvailable() bool {
	return d.getInstanceProcAddr != nil
}

func (d *vkDriver) CreateRayTracingPipeline(device Handle, info RayTracingPipelineCreateInfo) (Handle, error) {
	if !d.RayTracingPipelinesAvailable() {
		return NullHandle, ErrRayTracingUnsupported
	}
	if len(info.Stages) == 0 || len(info.Groups) == 0 {
		return NullHandle, errors.New("ray tracing pipeline needs at least one stage and one group")
	}
	dev, err := lookup(&d.devices, device, "device")
	if err != nil {
		return NullHandle, err
	}
	layout, err := lookup(&d.pipelineLayouts, info.Layout, "pipeline layout")
	if err != nil {
		return NullHandle, err
	}

	stageFlags := make([]C.uint32_t, len(info.Stages))
	modules := make([]C.VkShaderModule, len(info.Stages))
	for i, s := range info.Stages {
		module, err := lookup(&d.shaderModules, s.Module, "shader module")
		if err != nil {
			return NullHandle, err
		}
		stageFlags[i] = C.uint32_t(s.Stage)
		modules[i] = C.VkShaderModule(unsafe.Pointer(module))
	}
	entryPoints := C.CString(joinEntryPoints(info.Stages))
	defer C.free(unsafe.Pointer(entryPoints))

	groups := packShaderGroups(info.Groups)

	var pipeline C.VkPipeline
	res := vk.Result(C.createRTPipeline(
		d.getInstanceProcAddr,
		C.VkInstance(unsafe.Pointer(d.instance)),
		C.VkDevice(unsafe.Pointer(dev)),
		C.uint32_t(len(info.Stages)), &stageFlags[0], &modules[0], entryPoints,
		C.uint32_t(len(info.Groups)), (*C.uint32_t)(unsafe.Pointer(&groups[0])),
		C.uint32_t(info.MaxRecursionDepth),
		C.VkPipelineLayout(unsafe.Pointer(layout)),
		&pipeline,
	))
	if !VulkanResultIsSuccess(res) {
		return NullHandle, resultError("vkCreateRayTracingPipelinesKHR", res)
	}
	return d.pipelines.put(vk.Pipeline(unsafe.Pointer(pipeline))), nil
}

// joinEntryPoints lays the stage entry points out back to back, NUL
// separated. C.CString adds the final terminator.
func joinEntryPoints(stages []ShaderStageInfo) string {
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = s.EntryPoint
	}
	return strings.Join(names, "\x00")
}

// packShaderGroups flattens groups into the word layout createRTPipeline
// reads. ShaderGroupType values match VkRayTracingShaderGroupTypeKHR.
func packShaderGroups(groups []ShaderGroupInfo) []uint32 {
	words := make([]uint32, 0, len(groups)*shaderGroupWords)
	for _, g := range groups {
		words = append(words, uint32(g.Type), g.General, g.ClosestHit, g.AnyHit, g.Intersection)
	}
	return words
}

// rayTracingFeatures returns the feature chain to hang off
// VkDeviceCreateInfo when the ray tracing pipeline extension is enabled,
// and the func that frees it once the device exists.
func rayTracingFeatures(extensions []string) (unsafe.Pointer, func()) {
	if !slices.Contains(extensions, extensionRayTracingPipeline) {
		return nil, func() {}
	}
	chain := C.newRTFeatureChain()
	return chain, func() { C.free(chain) }
}
