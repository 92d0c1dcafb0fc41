package engine

import (
	"fmt"
	"sync/atomic"

	"github.com/spaghettifunk/voxrt/engine/assets"
	"github.com/spaghettifunk/voxrt/engine/config"
	"github.com/spaghettifunk/voxrt/engine/core"
	"github.com/spaghettifunk/voxrt/engine/platform"
	"github.com/spaghettifunk/voxrt/engine/renderer"
	"github.com/spaghettifunk/voxrt/engine/renderer/vulkan"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// suspendedWait is how long a minimized window blocks for events, in
// seconds, before the loop looks at the quit flag again.
const suspendedWait = 0.1

type Engine struct {
	currentStage Stage
	config       *config.Config
	isRunning    atomic.Bool
	isSuspended  bool
	platform     *platform.Platform
	assetManager *assets.AssetManager
	renderer     *renderer.Renderer
	width        uint32
	height       uint32
	clock        *core.Clock
	metrics      *core.Metrics
	lastTime     float64
}

func New(cfg *config.Config) *Engine {
	return &Engine{
		currentStage: EngineStageUninitialized,
		config:       cfg,
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
		platform:     platform.New(),
		assetManager: assets.NewAssetManager(),
		width:        cfg.Application.StartWidth,
		height:       cfg.Application.StartHeight,
	}
}

// rendererConfig maps the renderer section of the configuration onto the
// Vulkan backend settings.
func rendererConfig(cfg *config.Config) (vulkan.Config, error) {
	format, err := vulkan.ParseSurfaceFormat(cfg.Renderer.SurfaceFormat)
	if err != nil {
		return vulkan.Config{}, err
	}
	mode, err := vulkan.ParsePresentMode(cfg.Renderer.PresentMode)
	if err != nil {
		return vulkan.Config{}, err
	}
	return vulkan.Config{
		ApplicationName:   cfg.Application.Name,
		Debug:             cfg.Renderer.Debug,
		FramesInFlight:    cfg.Renderer.FramesInFlight,
		SurfaceFormat:     format,
		PresentMode:       mode,
		ClearColor:        cfg.Renderer.ClearColor,
		RequireRayTracing: cfg.Renderer.RequireRayTracing,
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	app := e.config.Application

	if err := core.SetLogLevel(app.LogLevel); err != nil {
		return err
	}

	// register some events
	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	core.EventRegister(core.EVENT_CODE_RESIZED, e, e.onResized)
	core.EventRegister(core.EVENT_CODE_SHADER_CHANGED, e, e.onShaderChanged)

	if err := e.platform.Startup(app.Name, app.StartPosX, app.StartPosY, app.StartWidth, app.StartHeight); err != nil {
		return err
	}

	if err := e.assetManager.Initialize(e.config.Shaders.Directory, e.config.Shaders.HotReload); err != nil {
		return err
	}

	vkConfig, err := rendererConfig(e.config)
	if err != nil {
		return err
	}
	backend, err := vulkan.Initialize(e.platform.Window, vkConfig, e.platform.GetInstanceProcAddress())
	if err != nil {
		return err
	}

	r, err := renderer.New(backend, e.assetManager, renderer.Config{
		Shaders: renderer.ShaderNames{
			Vertex:     e.config.Shaders.Vertex,
			Fragment:   e.config.Shaders.Fragment,
			RayGen:     e.config.Shaders.RayGen,
			Miss:       e.config.Shaders.Miss,
			ClosestHit: e.config.Shaders.ClosestHit,
		},
		UseRayTracing: e.config.Shaders.UseRayTrace,
	})
	if err != nil {
		if serr := backend.Shutdown(); serr != nil {
			core.LogWarn("renderer shutdown after failed initialization: %s", serr)
		}
		return err
	}
	e.renderer = r
	e.width, e.height = e.platform.FramebufferSize()

	e.currentStage = EngineStageInitialized
	return nil
}

// Run drives the frame loop until the window closes or Quit is called.
func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	// idle is set after a frame was skipped, so the next pump blocks instead
	// of spinning until the surface has a size again.
	idle := false
	for e.isRunning.Load() {
		if e.isSuspended {
			if !pumpMessages(e.platform, true) {
				break
			}
			continue
		}
		if !pumpMessages(e.platform, idle) {
			break
		}

		// Shader rebuilds happen between frames, on this thread.
		e.assetManager.DispatchChanges()

		drawn, err := e.renderer.DrawFrame()
		if err != nil {
			core.LogError("Frame %d failed, shutting down.", e.renderer.FrameNumber())
			return err
		}
		idle = !drawn

		// Update clock and get delta time.
		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		e.lastTime = currentTime

		if drawn && e.metrics.Update(delta) {
			fps, frameTime := e.metrics.Frame()
			e.platform.SetTitle(fmt.Sprintf("%s. FPS: %.0f", e.config.Application.Name, fps))
			core.LogDebug("FPS: %.0f, frame time: %.3fms", fps, frameTime)
		}
	}
	return nil
}

type messagePump interface {
	PumpMessages() bool
	WaitMessages(timeout float64) bool
}

// pumpMessages handles pending window events. With wait set it blocks for up
// to suspendedWait seconds. It returns false once the window should close.
func pumpMessages(p messagePump, wait bool) bool {
	if wait {
		return p.WaitMessages(suspendedWait)
	}
	return p.PumpMessages()
}

// Quit asks the loop to stop after the current frame. It may be called
// from any goroutine.
func (e *Engine) Quit() {
	e.isRunning.Store(false)
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	defer core.EventShutdown()

	if e.renderer != nil {
		if err := e.renderer.Shutdown(); err != nil {
			return err
		}
		e.renderer = nil
	}
	if err := e.assetManager.Shutdown(); err != nil {
		return err
	}
	return e.platform.Shutdown()
}

// GetFramebufferSize returns the width and height (in this order)
// of the application Framebuffer
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onEvent(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
	if code == core.EVENT_CODE_APPLICATION_QUIT {
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.Quit()
		return true
	}
	return false
}

func (e *Engine) onResized(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
	width := data.Data.U32[0]
	height := data.Data.U32[1]

	// Check if different. If so, trigger a resize event.
	if width == e.width && height == e.height {
		return false
	}
	e.width = width
	e.height = height
	core.LogDebug("Window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
	} else if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	if e.renderer != nil {
		e.renderer.OnResize(width, height)
	}
	return false
}

func (e *Engine) onShaderChanged(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
	name := data.Data.C[0]
	if e.renderer == nil {
		return false
	}
	if err := e.renderer.ReloadShader(name); err != nil {
		core.LogError("hot reload of %s failed: %s", name, err)
	}
	return true
}
