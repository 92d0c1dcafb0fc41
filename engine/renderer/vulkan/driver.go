package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
)

// Handle identifies an object owned by a Driver. Zero is never a live object.
type Handle uint64

const NullHandle Handle = 0

type Extent struct {
	Width  uint32
	Height uint32
}

type SurfaceFormat struct {
	Format     vk.Format
	ColorSpace vk.ColorSpace
}

type SurfaceCapabilities struct {
	MinImageCount    uint32
	MaxImageCount    uint32
	CurrentExtent    Extent
	MinImageExtent   Extent
	MaxImageExtent   Extent
	CurrentTransform vk.SurfaceTransformFlagBits
}

type SwapchainSupportInfo struct {
	Capabilities SurfaceCapabilities
	Formats      []SurfaceFormat
	PresentModes []vk.PresentMode
}

type QueueFamily struct {
	Index uint32
	Flags vk.QueueFlags
	Count uint32
}

type PhysicalDeviceInfo struct {
	Handle        Handle
	Name          string
	Type          vk.PhysicalDeviceType
	APIVersion    uint32
	DriverVersion uint32
	QueueFamilies []QueueFamily
	Extensions    []string
}

type SwapchainCreateInfo struct {
	Surface          Handle
	MinImageCount    uint32
	Format           SurfaceFormat
	Extent           Extent
	PresentMode      vk.PresentMode
	PreTransform     vk.SurfaceTransformFlagBits
	QueueFamilyIndex uint32
}

type RenderPassBeginInfo struct {
	RenderPass  Handle
	Framebuffer Handle
	Extent      Extent
	ClearColor  [4]float32
}

type SubmitInfo struct {
	WaitSemaphore   Handle
	WaitStage       vk.PipelineStageFlags
	CommandBuffer   Handle
	SignalSemaphore Handle
	Fence           Handle
}

type PresentInfo struct {
	WaitSemaphore Handle
	Swapchain     Handle
	ImageIndex    uint32
}

// ShaderStage mirrors the Vulkan shader stage bits, ray tracing stages included.
type ShaderStage uint32

const (
	ShaderStageVertex       ShaderStage = 0x00000001
	ShaderStageFragment     ShaderStage = 0x00000010
	ShaderStageRaygen       ShaderStage = 0x00000100
	ShaderStageAnyHit       ShaderStage = 0x00000200
	ShaderStageClosestHit   ShaderStage = 0x00000400
	ShaderStageMiss         ShaderStage = 0x00000800
	ShaderStageIntersection ShaderStage = 0x00001000
)

type ShaderStageInfo struct {
	Stage      ShaderStage
	Module     Handle
	EntryPoint string
}

type GraphicsPipelineCreateInfo struct {
	Stages      []ShaderStageInfo
	Layout      Handle
	RenderPass  Handle
	Subpass     uint32
	Extent      Extent
	Topology    vk.PrimitiveTopology
	PolygonMode vk.PolygonMode
	CullMode    vk.CullModeFlagBits
	FrontFace   vk.FrontFace
}

type ShaderGroupType uint32

const (
	ShaderGroupGeneral ShaderGroupType = iota
	ShaderGroupTrianglesHit
	ShaderGroupProceduralHit
)

// ShaderUnused marks an unused slot in a ShaderGroupInfo.
const ShaderUnused = ^uint32(0)

// ShaderGroupInfo references stages by their index in the pipeline stage list.
type ShaderGroupInfo struct {
	Type         ShaderGroupType
	General      uint32
	ClosestHit   uint32
	AnyHit       uint32
	Intersection uint32
}

type RayTracingPipelineCreateInfo struct {
	Stages            []ShaderStageInfo
	Groups            []ShaderGroupInfo
	MaxRecursionDepth uint32
	Layout            Handle
}

// Window is the part of the platform window the renderer needs. *glfw.Window
// satisfies it.
type Window interface {
	CreateWindowSurface(instance interface{}, allocCallbacks unsafe.Pointer) (uintptr, error)
	GetFramebufferSize() (width, height int)
	GetRequiredInstanceExtensions() []string
}

// Driver is the set of graphics API calls the device and frame layer is
// built on. The Vulkan implementation lives in driver_vk.go.
type Driver interface {
	CreateSurface(window Window) (Handle, error)
	DestroySurface(surface Handle)

	PhysicalDevices() ([]PhysicalDeviceInfo, error)
	SurfaceSupport(physical Handle, family uint32, surface Handle) (bool, error)
	QuerySwapchainSupport(physical, surface Handle) (SwapchainSupportInfo, error)

	CreateDevice(physical Handle, family uint32, extensions []string) (Handle, error)
	DeviceQueue(device Handle, family, index uint32) Handle
	DeviceWaitIdle(device Handle) error
	DestroyDevice(device Handle)

	CreateSwapchain(device Handle, info SwapchainCreateInfo) (Handle, error)
	SwapchainImages(device, swapchain Handle) ([]Handle, error)
	DestroySwapchain(device, swapchain Handle)
	CreateImageView(device, image Handle, format vk.Format) (Handle, error)
	DestroyImageView(device, view Handle)

	CreateRenderPass(device Handle, format vk.Format) (Handle, error)
	DestroyRenderPass(device, renderPass Handle)
	CreateFramebuffer(device, renderPass Handle, attachments []Handle, extent Extent) (Handle, error)
	DestroyFramebuffer(device, framebuffer Handle)

	CreateCommandPool(device Handle, family uint32) (Handle, error)
	DestroyCommandPool(device, pool Handle)
	AllocateCommandBuffers(device, pool Handle, count uint32) ([]Handle, error)
	FreeCommandBuffers(device, pool Handle, buffers []Handle)
	ResetCommandBuffer(buffer Handle) error
	BeginCommandBuffer(buffer Handle) error
	EndCommandBuffer(buffer Handle) error
	CmdBeginRenderPass(buffer Handle, info RenderPassBeginInfo)
	CmdBindPipeline(buffer Handle, bindPoint vk.PipelineBindPoint, pipeline Handle)
	CmdDraw(buffer Handle, vertexCount, instanceCount, firstVertex, firstInstance uint32)
	CmdEndRenderPass(buffer Handle)

	CreateSemaphore(device Handle) (Handle, error)
	DestroySemaphore(device, semaphore Handle)
	CreateFence(device Handle, signaled bool) (Handle, error)
	DestroyFence(device, fence Handle)
	WaitForFence(device, fence Handle, timeout uint64) error
	ResetFence(device, fence Handle) error

	// AcquireNextImage reports suboptimal as a flag and out-of-date as
	// ErrSwapchainOutOfDate.
	AcquireNextImage(device, swapchain Handle, timeout uint64, semaphore Handle) (index uint32, suboptimal bool, err error)
	QueueSubmit(queue Handle, info SubmitInfo) error
	QueuePresent(queue Handle, info PresentInfo) (suboptimal bool, err error)

	CreateShaderModule(device Handle, code []uint32) (Handle, error)
	DestroyShaderModule(device, module Handle)
	CreatePipelineLayout(device Handle) (Handle, error)
	DestroyPipelineLayout(device, layout Handle)
	CreateGraphicsPipeline(device Handle, info GraphicsPipelineCreateInfo) (Handle, error)
	// RayTracingPipelinesAvailable reports whether CreateRayTracingPipeline
	// can succeed at all. Devices are still selected by their extensions.
	RayTracingPipelinesAvailable() bool
	CreateRayTracingPipeline(device Handle, info RayTracingPipelineCreateInfo) (Handle, error)
	DestroyPipeline(device, pipeline Handle)

	// Destroy releases the instance-level objects. Every other object must
	// already be destroyed.
	Destroy()
}
