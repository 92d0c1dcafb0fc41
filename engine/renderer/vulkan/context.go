package vulkan

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/voxrt/engine/core"
)

type Config struct {
	ApplicationName   string
	Debug             bool
	FramesInFlight    uint32
	SurfaceFormat     vk.Format
	PresentMode       vk.PresentMode
	ClearColor        [4]float32
	RequireRayTracing bool
}

func DefaultConfig() Config {
	prefs := DefaultSwapchainPreferences()
	return Config{
		ApplicationName:   "VOXRT",
		FramesInFlight:    1,
		SurfaceFormat:     prefs.Format,
		PresentMode:       prefs.PresentMode,
		ClearColor:        [4]float32{0, 0, 0, 1},
		RequireRayTracing: true,
	}
}

// Context owns every GPU object of the renderer. It is created first,
// destroyed last, and is driven from a single thread.
type Context struct {
	// ID tells renderer sessions apart in logs.
	ID uuid.UUID

	driver   Driver
	surface  *Surface
	device   *Device
	executor *FrameExecutor

	// Graphics pipelines are rebuilt in place when the swapchain format or
	// extent changes. Their shaders are kept for that purpose.
	pipelines   map[*Pipeline]GraphicsShaders
	rtPipelines map[*Pipeline]struct{}

	closed bool
}

// NewContext brings the renderer up on top of driver: surface, device,
// swapchain and everything the frame executor needs. On failure, whatever
// was created is destroyed, driver included.
func NewContext(driver Driver, window Window, config Config) (*Context, error) {
	if config.FramesInFlight == 0 {
		config.FramesInFlight = 1
	}
	c := &Context{
		ID:          uuid.New(),
		driver:      driver,
		pipelines:   make(map[*Pipeline]GraphicsShaders),
		rtPipelines: make(map[*Pipeline]struct{}),
	}

	var cleanup cleanupStack
	defer cleanup.run()
	cleanup.push(driver.Destroy)

	if config.RequireRayTracing && !driver.RayTracingPipelinesAvailable() {
		core.LogWarn("Ray tracing devices are required but this build cannot create ray tracing pipelines (build with -tags raytracing).")
	}

	surface, err := CreateSurface(driver, window)
	if err != nil {
		return nil, err
	}
	c.surface = surface
	cleanup.push(surface.Destroy)

	device, err := SelectAndCreateDevice(driver, surface, DefaultDeviceRequirements(config.RequireRayTracing))
	if err != nil {
		return nil, err
	}
	c.device = device
	cleanup.push(device.Destroy)

	width, height := window.GetFramebufferSize()
	executor, err := NewFrameExecutor(device, surface, uint32(width), uint32(height), FrameExecutorConfig{
		FramesInFlight: config.FramesInFlight,
		ClearColor:     config.ClearColor,
		Preferences: SwapchainPreferences{
			Format:      config.SurfaceFormat,
			PresentMode: config.PresentMode,
		},
	})
	if err != nil {
		return nil, err
	}
	executor.OnRecreate = c.rebuildPipelines
	c.executor = executor

	cleanup.release()
	core.LogInfo("Vulkan renderer %s initialized successfully.", c.ID)
	return c, nil
}

func (c *Context) Device() *Device       { return c.device }
func (c *Context) Swapchain() *Swapchain { return c.executor.Swapchain() }
func (c *Context) FrameNumber() uint64   { return c.executor.FrameNumber }

// Resize records the new framebuffer size; recreation happens lazily on the
// next frame.
func (c *Context) Resize(width, height uint32) {
	if c.closed {
		return
	}
	c.executor.Resize(width, height)
}

// RenderFrame draws one frame with pipeline. core.ErrSwapchainBooting means
// the frame was skipped and the caller should simply try again later.
func (c *Context) RenderFrame(pipeline *Pipeline) error {
	if c.closed {
		return core.ErrContextClosed
	}
	return c.executor.RenderFrame(pipeline)
}

// CreateGraphicsPipeline builds a graphics pipeline against the current
// render pass and extent and keeps it up to date across recreation.
func (c *Context) CreateGraphicsPipeline(shaders GraphicsShaders) (*Pipeline, error) {
	if c.closed {
		return nil, core.ErrContextClosed
	}
	p, err := BuildGraphicsPipeline(c.device, c.executor.RenderPass(), shaders, c.executor.Swapchain().Extent)
	if err != nil {
		return nil, err
	}
	c.pipelines[p] = shaders
	return p, nil
}

func (c *Context) CreateRayTracingPipeline(shaders RayTracingShaders) (*Pipeline, error) {
	if c.closed {
		return nil, core.ErrContextClosed
	}
	p, err := BuildRayTracingPipeline(c.device, shaders)
	if err != nil {
		return nil, err
	}
	c.rtPipelines[p] = struct{}{}
	return p, nil
}

// RebuildGraphicsPipeline swaps in a pipeline built from new shaders. The
// new pipeline is built first so a bad shader leaves the old one in place.
func (c *Context) RebuildGraphicsPipeline(p *Pipeline, shaders GraphicsShaders) error {
	if c.closed {
		return core.ErrContextClosed
	}
	if _, ok := c.pipelines[p]; !ok {
		return fmt.Errorf("pipeline %d is not a graphics pipeline of this context", p.Handle)
	}
	next, err := BuildGraphicsPipeline(c.device, c.executor.RenderPass(), shaders, c.executor.Swapchain().Extent)
	if err != nil {
		return err
	}
	if err := c.device.WaitIdle(); err != nil {
		next.Destroy()
		return err
	}
	p.replace(next)
	c.pipelines[p] = shaders
	core.LogInfo("Graphics pipeline rebuilt from new shaders.")
	return nil
}

// DestroyPipeline waits for the device and destroys p.
func (c *Context) DestroyPipeline(p *Pipeline) {
	if c.closed || p == nil {
		return
	}
	if err := c.device.WaitIdle(); err != nil {
		core.LogWarn("destroying pipeline on a busy device: %s", err)
	}
	delete(c.pipelines, p)
	delete(c.rtPipelines, p)
	p.Destroy()
}

// rebuildPipelines runs after swapchain recreation. Graphics pipelines bake
// the render pass and a static viewport, so they follow the new swapchain.
func (c *Context) rebuildPipelines(formatChanged bool, extent Extent) error {
	var errs []error
	for p, shaders := range c.pipelines {
		next, err := BuildGraphicsPipeline(c.device, c.executor.RenderPass(), shaders, extent)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		p.replace(next)
	}
	if len(c.pipelines) > 0 {
		core.LogDebug("Rebuilt %d graphics pipelines (format changed: %t).", len(c.pipelines), formatChanged)
	}
	return errors.Join(errs...)
}

// Shutdown destroys everything in reverse creation order. A second call
// returns core.ErrContextClosed.
func (c *Context) Shutdown() error {
	if c.closed {
		return core.ErrContextClosed
	}
	c.closed = true

	if err := c.device.WaitIdle(); err != nil {
		core.LogWarn("shutting down on a busy device: %s", err)
	}
	for p := range c.rtPipelines {
		p.Destroy()
	}
	for p := range c.pipelines {
		p.Destroy()
	}
	c.rtPipelines = nil
	c.pipelines = nil

	c.executor.Destroy()
	c.device.Destroy()
	c.surface.Destroy()

	core.LogDebug("Destroying Vulkan instance...")
	c.driver.Destroy()
	core.LogInfo("Vulkan renderer %s shut down.", c.ID)
	return nil
}
