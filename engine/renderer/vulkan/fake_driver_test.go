package vulkan

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
)

type fakeResult int

const (
	fakeOK fakeResult = iota
	fakeSuboptimal
	fakeOutOfDate
)

type fakeFence struct {
	signaled         bool
	waitedSinceReset bool
}

type fakeDraw struct {
	buffer      Handle
	framebuffer Handle
	pipeline    Handle
	vertices    uint32
}

// fakeDriver is an in-memory Driver. The GPU finishes submitted work
// instantly, so a submit signals its fence right away. Misuse of fences or
// stale handles is collected in violations instead of failing the call.
type fakeDriver struct {
	next  Handle
	alive map[Handle]string
	log   []string

	devices          []PhysicalDeviceInfo
	noPresent        map[uint32]bool
	swapchainSupport SwapchainSupportInfo
	failOn           map[string]error

	// noRayTracingPipelines models a build that cannot create ray tracing
	// pipelines even on a device exposing the extensions.
	noRayTracingPipelines bool

	acquireScript []fakeResult
	presentScript []fakeResult

	deviceExtensions  []string
	swapchainInfos    []SwapchainCreateInfo
	swapchainImages   map[Handle][]Handle
	viewImage         map[Handle]Handle
	nextImage         map[Handle]uint32
	framebufferViews  map[Handle][]Handle
	fences            map[Handle]*fakeFence
	boundFramebuffer  map[Handle]Handle
	boundPipeline     map[Handle]Handle
	graphicsPipelines map[Handle]GraphicsPipelineCreateInfo
	rtPipelines       map[Handle]RayTracingPipelineCreateInfo
	renderPassFormats map[Handle]vk.Format

	draws      []fakeDraw
	submits    []SubmitInfo
	presents   []PresentInfo
	fenceWaits int
	violations []string
	destroyed  bool
}

const (
	fakeDeviceName = "Fake GPU"
)

func fakeDevice(name string, extensions ...string) PhysicalDeviceInfo {
	return PhysicalDeviceInfo{
		Name:          name,
		Type:          vk.PhysicalDeviceTypeDiscreteGpu,
		APIVersion:    uint32(vk.MakeVersion(1, 2, 0)),
		DriverVersion: uint32(vk.MakeVersion(1, 0, 0)),
		QueueFamilies: []QueueFamily{
			{Index: 0, Flags: vk.QueueFlags(vk.QueueGraphicsBit) | vk.QueueFlags(vk.QueueComputeBit) | vk.QueueFlags(vk.QueueTransferBit), Count: 16},
		},
		Extensions: extensions,
	}
}

var allDeviceExtensions = []string{
	extensionSwapchain,
	extensionRayTracingPipeline,
	extensionAccelerationStructure,
	extensionDeferredHostOperations,
}

func fakeSupport(width, height uint32) SwapchainSupportInfo {
	return SwapchainSupportInfo{
		Capabilities: SurfaceCapabilities{
			MinImageCount:  2,
			MaxImageCount:  8,
			CurrentExtent:  Extent{Width: width, Height: height},
			MinImageExtent: Extent{Width: 1, Height: 1},
			MaxImageExtent: Extent{Width: 4096, Height: 4096},
		},
		Formats: []SurfaceFormat{
			{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
			{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		},
		PresentModes: []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox},
	}
}

func newFakeDriver() *fakeDriver {
	d := &fakeDriver{
		alive:             make(map[Handle]string),
		noPresent:         make(map[uint32]bool),
		failOn:            make(map[string]error),
		swapchainSupport:  fakeSupport(1920, 1080),
		swapchainImages:   make(map[Handle][]Handle),
		viewImage:         make(map[Handle]Handle),
		nextImage:         make(map[Handle]uint32),
		framebufferViews:  make(map[Handle][]Handle),
		fences:            make(map[Handle]*fakeFence),
		boundFramebuffer:  make(map[Handle]Handle),
		boundPipeline:     make(map[Handle]Handle),
		graphicsPipelines: make(map[Handle]GraphicsPipelineCreateInfo),
		rtPipelines:       make(map[Handle]RayTracingPipelineCreateInfo),
		renderPassFormats: make(map[Handle]vk.Format),
	}
	d.devices = []PhysicalDeviceInfo{fakeDevice(fakeDeviceName, allDeviceExtensions...)}
	return d
}

func (d *fakeDriver) record(format string, args ...interface{}) {
	d.log = append(d.log, fmt.Sprintf(format, args...))
}

func (d *fakeDriver) violate(format string, args ...interface{}) {
	d.violations = append(d.violations, fmt.Sprintf(format, args...))
}

func (d *fakeDriver) create(kind string) Handle {
	d.next++
	d.alive[d.next] = kind
	return d.next
}

func (d *fakeDriver) destroy(kind string, h Handle) {
	if h == NullHandle {
		return
	}
	got, ok := d.alive[h]
	if !ok {
		d.violate("destroy of dead %s %d", kind, h)
		return
	}
	if got != kind {
		d.violate("destroy of %s %d as %s", got, h, kind)
	}
	delete(d.alive, h)
}

func (d *fakeDriver) isAlive(h Handle) bool {
	_, ok := d.alive[h]
	return ok
}

func (d *fakeDriver) count(kind string) int {
	n := 0
	for _, k := range d.alive {
		if k == kind {
			n++
		}
	}
	return n
}

func (d *fakeDriver) fail(call string) error {
	return d.failOn[call]
}

func (d *fakeDriver) logged(call string) int {
	n := 0
	for _, entry := range d.log {
		if entry == call {
			n++
		}
	}
	return n
}

func (d *fakeDriver) CreateSurface(window Window) (Handle, error) {
	d.record("CreateSurface")
	if err := d.fail("CreateSurface"); err != nil {
		return NullHandle, err
	}
	return d.create("surface"), nil
}

func (d *fakeDriver) DestroySurface(surface Handle) {
	d.record("DestroySurface")
	d.destroy("surface", surface)
}

func (d *fakeDriver) PhysicalDevices() ([]PhysicalDeviceInfo, error) {
	for i := range d.devices {
		if d.devices[i].Handle == NullHandle {
			d.next++
			d.devices[i].Handle = d.next
		}
	}
	return d.devices, d.fail("PhysicalDevices")
}

func (d *fakeDriver) SurfaceSupport(physical Handle, family uint32, surface Handle) (bool, error) {
	if !d.isAlive(surface) {
		d.violate("surface support queried on dead surface %d", surface)
	}
	return !d.noPresent[family], nil
}

func (d *fakeDriver) QuerySwapchainSupport(physical, surface Handle) (SwapchainSupportInfo, error) {
	return d.swapchainSupport, d.fail("QuerySwapchainSupport")
}

func (d *fakeDriver) CreateDevice(physical Handle, family uint32, extensions []string) (Handle, error) {
	d.record("CreateDevice")
	if err := d.fail("CreateDevice"); err != nil {
		return NullHandle, err
	}
	d.deviceExtensions = append([]string(nil), extensions...)
	return d.create("device"), nil
}

func (d *fakeDriver) DeviceQueue(device Handle, family, index uint32) Handle {
	d.next++
	return d.next
}

func (d *fakeDriver) DeviceWaitIdle(device Handle) error {
	d.record("DeviceWaitIdle")
	return nil
}

func (d *fakeDriver) DestroyDevice(device Handle) {
	d.record("DestroyDevice")
	d.destroy("device", device)
}

func (d *fakeDriver) CreateSwapchain(device Handle, info SwapchainCreateInfo) (Handle, error) {
	d.record("CreateSwapchain")
	if err := d.fail("CreateSwapchain"); err != nil {
		return NullHandle, err
	}
	if info.Extent.Width == 0 || info.Extent.Height == 0 {
		d.violate("swapchain created with extent %dx%d", info.Extent.Width, info.Extent.Height)
	}
	d.swapchainInfos = append(d.swapchainInfos, info)
	h := d.create("swapchain")
	images := make([]Handle, info.MinImageCount)
	for i := range images {
		images[i] = d.create("image")
	}
	d.swapchainImages[h] = images
	return h, nil
}

func (d *fakeDriver) SwapchainImages(device, swapchain Handle) ([]Handle, error) {
	return d.swapchainImages[swapchain], d.fail("SwapchainImages")
}

func (d *fakeDriver) DestroySwapchain(device, swapchain Handle) {
	d.record("DestroySwapchain")
	for _, image := range d.swapchainImages[swapchain] {
		d.destroy("image", image)
	}
	delete(d.swapchainImages, swapchain)
	d.destroy("swapchain", swapchain)
}

func (d *fakeDriver) CreateImageView(device, image Handle, format vk.Format) (Handle, error) {
	if err := d.fail("CreateImageView"); err != nil {
		return NullHandle, err
	}
	if !d.isAlive(image) {
		d.violate("view created on dead image %d", image)
	}
	h := d.create("view")
	d.viewImage[h] = image
	return h, nil
}

func (d *fakeDriver) DestroyImageView(device, view Handle) {
	d.destroy("view", view)
}

func (d *fakeDriver) CreateRenderPass(device Handle, format vk.Format) (Handle, error) {
	d.record("CreateRenderPass")
	if err := d.fail("CreateRenderPass"); err != nil {
		return NullHandle, err
	}
	h := d.create("renderpass")
	d.renderPassFormats[h] = format
	return h, nil
}

func (d *fakeDriver) DestroyRenderPass(device, renderPass Handle) {
	d.record("DestroyRenderPass")
	d.destroy("renderpass", renderPass)
}

func (d *fakeDriver) CreateFramebuffer(device, renderPass Handle, attachments []Handle, extent Extent) (Handle, error) {
	if err := d.fail("CreateFramebuffer"); err != nil {
		return NullHandle, err
	}
	for _, a := range attachments {
		if !d.isAlive(a) {
			d.violate("framebuffer created with dead attachment %d", a)
		}
	}
	h := d.create("framebuffer")
	d.framebufferViews[h] = append([]Handle(nil), attachments...)
	return h, nil
}

func (d *fakeDriver) DestroyFramebuffer(device, framebuffer Handle) {
	d.record("DestroyFramebuffer")
	d.destroy("framebuffer", framebuffer)
}

func (d *fakeDriver) CreateCommandPool(device Handle, family uint32) (Handle, error) {
	if err := d.fail("CreateCommandPool"); err != nil {
		return NullHandle, err
	}
	return d.create("commandpool"), nil
}

func (d *fakeDriver) DestroyCommandPool(device, pool Handle) {
	d.destroy("commandpool", pool)
}

func (d *fakeDriver) AllocateCommandBuffers(device, pool Handle, count uint32) ([]Handle, error) {
	if err := d.fail("AllocateCommandBuffers"); err != nil {
		return nil, err
	}
	buffers := make([]Handle, count)
	for i := range buffers {
		buffers[i] = d.create("commandbuffer")
	}
	return buffers, nil
}

func (d *fakeDriver) FreeCommandBuffers(device, pool Handle, buffers []Handle) {
	for _, b := range buffers {
		d.destroy("commandbuffer", b)
	}
}

func (d *fakeDriver) ResetCommandBuffer(buffer Handle) error {
	delete(d.boundFramebuffer, buffer)
	delete(d.boundPipeline, buffer)
	return nil
}

func (d *fakeDriver) BeginCommandBuffer(buffer Handle) error {
	if !d.isAlive(buffer) {
		d.violate("begin on dead command buffer %d", buffer)
	}
	return nil
}

func (d *fakeDriver) EndCommandBuffer(buffer Handle) error {
	return nil
}

func (d *fakeDriver) CmdBeginRenderPass(buffer Handle, info RenderPassBeginInfo) {
	d.record("CmdBeginRenderPass")
	if !d.isAlive(info.Framebuffer) {
		d.violate("render pass begun on dead framebuffer %d", info.Framebuffer)
	}
	if !d.isAlive(info.RenderPass) {
		d.violate("dead render pass %d begun", info.RenderPass)
	}
	d.boundFramebuffer[buffer] = info.Framebuffer
}

func (d *fakeDriver) CmdBindPipeline(buffer Handle, bindPoint vk.PipelineBindPoint, pipeline Handle) {
	if !d.isAlive(pipeline) {
		d.violate("dead pipeline %d bound", pipeline)
	}
	d.boundPipeline[buffer] = pipeline
}

func (d *fakeDriver) CmdDraw(buffer Handle, vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	d.record("CmdDraw")
	d.draws = append(d.draws, fakeDraw{
		buffer:      buffer,
		framebuffer: d.boundFramebuffer[buffer],
		pipeline:    d.boundPipeline[buffer],
		vertices:    vertexCount,
	})
}

func (d *fakeDriver) CmdEndRenderPass(buffer Handle) {}

func (d *fakeDriver) CreateSemaphore(device Handle) (Handle, error) {
	if err := d.fail("CreateSemaphore"); err != nil {
		return NullHandle, err
	}
	return d.create("semaphore"), nil
}

func (d *fakeDriver) DestroySemaphore(device, semaphore Handle) {
	d.destroy("semaphore", semaphore)
}

func (d *fakeDriver) CreateFence(device Handle, signaled bool) (Handle, error) {
	if err := d.fail("CreateFence"); err != nil {
		return NullHandle, err
	}
	h := d.create("fence")
	d.fences[h] = &fakeFence{signaled: signaled}
	return h, nil
}

func (d *fakeDriver) DestroyFence(device, fence Handle) {
	delete(d.fences, fence)
	d.destroy("fence", fence)
}

func (d *fakeDriver) WaitForFence(device, fence Handle, timeout uint64) error {
	d.fenceWaits++
	f, ok := d.fences[fence]
	if !ok {
		d.violate("wait on dead fence %d", fence)
		return nil
	}
	if !f.signaled {
		d.violate("wait on fence %d that nothing will signal", fence)
	}
	if f.waitedSinceReset {
		d.violate("fence %d waited twice without a reset", fence)
	}
	f.waitedSinceReset = true
	return nil
}

func (d *fakeDriver) ResetFence(device, fence Handle) error {
	f, ok := d.fences[fence]
	if !ok {
		d.violate("reset of dead fence %d", fence)
		return nil
	}
	f.signaled = false
	f.waitedSinceReset = false
	return nil
}

func (d *fakeDriver) AcquireNextImage(device, swapchain Handle, timeout uint64, semaphore Handle) (uint32, bool, error) {
	d.record("AcquireNextImage")
	if !d.isAlive(swapchain) {
		d.violate("acquire on dead swapchain %d", swapchain)
	}
	result := fakeOK
	if len(d.acquireScript) > 0 {
		result = d.acquireScript[0]
		d.acquireScript = d.acquireScript[1:]
	}
	if result == fakeOutOfDate {
		return 0, false, fmt.Errorf("vkAcquireNextImageKHR: %w", ErrSwapchainOutOfDate)
	}
	images := d.swapchainImages[swapchain]
	index := d.nextImage[swapchain] % uint32(len(images))
	d.nextImage[swapchain]++
	return index, result == fakeSuboptimal, nil
}

func (d *fakeDriver) QueueSubmit(queue Handle, info SubmitInfo) error {
	d.record("QueueSubmit")
	if err := d.fail("QueueSubmit"); err != nil {
		return err
	}
	f, ok := d.fences[info.Fence]
	if !ok {
		d.violate("submit with dead fence %d", info.Fence)
	} else {
		if f.signaled {
			d.violate("submit with fence %d still signaled", info.Fence)
		}
		f.signaled = true
	}
	d.submits = append(d.submits, info)
	return nil
}

func (d *fakeDriver) QueuePresent(queue Handle, info PresentInfo) (bool, error) {
	d.record("QueuePresent")
	if !d.isAlive(info.Swapchain) {
		d.violate("present on dead swapchain %d", info.Swapchain)
	}
	d.presents = append(d.presents, info)
	result := fakeOK
	if len(d.presentScript) > 0 {
		result = d.presentScript[0]
		d.presentScript = d.presentScript[1:]
	}
	if result == fakeOutOfDate {
		return false, fmt.Errorf("vkQueuePresentKHR: %w", ErrSwapchainOutOfDate)
	}
	return result == fakeSuboptimal, nil
}

func (d *fakeDriver) CreateShaderModule(device Handle, code []uint32) (Handle, error) {
	if err := d.fail("CreateShaderModule"); err != nil {
		return NullHandle, err
	}
	return d.create("shadermodule"), nil
}

func (d *fakeDriver) DestroyShaderModule(device, module Handle) {
	d.destroy("shadermodule", module)
}

func (d *fakeDriver) CreatePipelineLayout(device Handle) (Handle, error) {
	if err := d.fail("CreatePipelineLayout"); err != nil {
		return NullHandle, err
	}
	return d.create("pipelinelayout"), nil
}

func (d *fakeDriver) DestroyPipelineLayout(device, layout Handle) {
	d.destroy("pipelinelayout", layout)
}

func (d *fakeDriver) CreateGraphicsPipeline(device Handle, info GraphicsPipelineCreateInfo) (Handle, error) {
	d.record("CreateGraphicsPipeline")
	if err := d.fail("CreateGraphicsPipeline"); err != nil {
		return NullHandle, err
	}
	for _, s := range info.Stages {
		if !d.isAlive(s.Module) {
			d.violate("pipeline built from dead shader module %d", s.Module)
		}
	}
	h := d.create("pipeline")
	d.graphicsPipelines[h] = info
	return h, nil
}

func (d *fakeDriver) RayTracingPipelinesAvailable() bool {
	return !d.noRayTracingPipelines
}

func (d *fakeDriver) CreateRayTracingPipeline(device Handle, info RayTracingPipelineCreateInfo) (Handle, error) {
	d.record("CreateRayTracingPipeline")
	if err := d.fail("CreateRayTracingPipeline"); err != nil {
		return NullHandle, err
	}
	h := d.create("pipeline")
	d.rtPipelines[h] = info
	return h, nil
}

func (d *fakeDriver) DestroyPipeline(device, pipeline Handle) {
	d.destroy("pipeline", pipeline)
}

func (d *fakeDriver) Destroy() {
	d.record("Destroy")
	d.destroyed = true
}

type fakeWindow struct {
	width, height int
}

func (w *fakeWindow) CreateWindowSurface(instance interface{}, allocCallbacks unsafe.Pointer) (uintptr, error) {
	return 1, nil
}

func (w *fakeWindow) GetFramebufferSize() (int, int) {
	return w.width, w.height
}

func (w *fakeWindow) GetRequiredInstanceExtensions() []string {
	return []string{"VK_KHR_surface", "VK_KHR_xcb_surface"}
}

// spirv returns a minimal module header in the given byte order.
func spirv(order binary.ByteOrder) []byte {
	words := []uint32{spirvMagic, 0x00010500, 0, 8, 0}
	code := make([]byte, len(words)*4)
	for i, w := range words {
		order.PutUint32(code[i*4:], w)
	}
	return code
}

func testGraphicsShaders() GraphicsShaders {
	return GraphicsShaders{Vertex: spirv(binary.LittleEndian), Fragment: spirv(binary.LittleEndian)}
}

func testRayTracingShaders() RayTracingShaders {
	return RayTracingShaders{
		RayGen:     spirv(binary.LittleEndian),
		Miss:       spirv(binary.LittleEndian),
		ClosestHit: spirv(binary.LittleEndian),
	}
}

// newTestDevice selects and creates the device on a fresh fake surface.
func newTestDevice(d *fakeDriver, requireRayTracing bool) (*Device, *Surface, error) {
	surface, err := CreateSurface(d, &fakeWindow{width: 1920, height: 1080})
	if err != nil {
		return nil, nil, err
	}
	device, err := SelectAndCreateDevice(d, surface, DefaultDeviceRequirements(requireRayTracing))
	if err != nil {
		return nil, nil, err
	}
	return device, surface, nil
}
