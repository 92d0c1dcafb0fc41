package platform

import (
	"errors"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/voxrt/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

type Platform struct {
	Window *glfw.Window
}

func New() *Platform {
	return &Platform{}
}

// Startup initializes GLFW and opens a resizable window without a client
// API, ready for a Vulkan surface.
func (p *Platform) Startup(applicationName string, x uint32, y uint32, width uint32, height uint32) error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return err
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		err := errors.New("glfw reports no Vulkan loader on this system")
		core.LogError(err.Error())
		return err
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		glfw.Terminate()
		core.LogError("failed to create window: %s", err)
		return err
	}
	p.Window = window

	p.Window.SetFramebufferSizeCallback(framebufferSizeCallback)
	p.Window.SetCloseCallback(closeCallback)
	p.Window.SetPos(int(x), int(y))
	p.Window.Show()

	core.LogInfo("Window %q created (%dx%d).", applicationName, width, height)
	return nil
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

// PumpMessages processes pending window events. It returns false once the
// window was asked to close.
func (p *Platform) PumpMessages() bool {
	glfw.PollEvents()
	return !p.Window.ShouldClose()
}

// WaitMessages blocks until a window event arrives or timeout seconds pass.
// Used while the window is minimized so the loop does not spin.
func (p *Platform) WaitMessages(timeout float64) bool {
	glfw.WaitEventsTimeout(timeout)
	return !p.Window.ShouldClose()
}

func (p *Platform) SetTitle(title string) {
	p.Window.SetTitle(title)
}

// FramebufferSize reports the drawable size in pixels.
func (p *Platform) FramebufferSize() (uint32, uint32) {
	w, h := p.Window.GetFramebufferSize()
	return uint32(w), uint32(h)
}

// GetInstanceProcAddress returns the loader entry point GLFW found, for
// the Vulkan bindings to resolve everything else from.
func (p *Platform) GetInstanceProcAddress() unsafe.Pointer {
	return glfw.GetVulkanGetInstanceProcAddress()
}

func framebufferSizeCallback(w *glfw.Window, width, height int) {
	var ctx core.EventContext
	ctx.Data.U32[0] = uint32(width)
	ctx.Data.U32[1] = uint32(height)
	core.EventFire(core.EVENT_CODE_RESIZED, w, ctx)
}

func closeCallback(w *glfw.Window) {
	core.EventFire(core.EVENT_CODE_APPLICATION_QUIT, w, core.EventContext{})
}
