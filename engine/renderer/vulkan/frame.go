package vulkan

import (
	"errors"
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/voxrt/engine/core"
	emath "github.com/spaghettifunk/voxrt/engine/math"
)

const (
	// waitForever is the timeout for fence waits and image acquisition.
	waitForever = ^uint64(0)
	// maxAcquireAttempts bounds acquire retries after out-of-date recreation.
	maxAcquireAttempts = 3
)

type FrameState int

const (
	FrameIdle FrameState = iota
	FrameRecording
	FrameSubmitted
	FramePresented
)

func (s FrameState) String() string {
	switch s {
	case FrameIdle:
		return "idle"
	case FrameRecording:
		return "recording"
	case FrameSubmitted:
		return "submitted"
	case FramePresented:
		return "presented"
	}
	return fmt.Sprintf("FrameState(%d)", int(s))
}

type FrameExecutorConfig struct {
	// FramesInFlight is the number of frame slots in the ring. Zero means one.
	FramesInFlight uint32
	ClearColor     [4]float32
	Preferences    SwapchainPreferences
}

// frameSlot is one entry of the frames-in-flight ring.
type frameSlot struct {
	imageAvailable *Semaphore
	renderFinished *Semaphore
	inFlight       *Fence
}

// FrameExecutor drives acquire, record, submit and present against the
// swapchain and rebuilds everything derived from it when it goes stale.
type FrameExecutor struct {
	device  *Device
	surface *Surface
	config  FrameExecutorConfig

	commandPool    *CommandPool
	swapchain      *Swapchain
	renderPass     *RenderPass
	framebuffers   []*Framebuffer
	commandBuffers []*CommandBuffer
	slots          []frameSlot

	// Fences of the frames currently using each image. Entries are owned by
	// slots, never by this list.
	imagesInFlight []*Fence

	currentFrame uint32
	imageIndex   uint32
	state        FrameState
	FrameNumber  uint64

	// The framebuffer size last reported by the window.
	width  uint32
	height uint32
	// Current generation of framebuffer size. If it does not match
	// lastSizeGeneration, the swapchain is rebuilt before the next acquire.
	sizeGeneration     uint64
	lastSizeGeneration uint64

	recreating      bool
	pendingRecreate bool

	// OnRecreate runs after the swapchain and its dependents were rebuilt.
	// formatChanged reports that the render pass was rebuilt as well.
	OnRecreate func(formatChanged bool, extent Extent) error
}

// NewFrameExecutor creates the command pool, swapchain, render pass,
// framebuffers, command buffers and sync objects, in that order. Anything
// created before a failure is destroyed.
func NewFrameExecutor(device *Device, surface *Surface, width, height uint32, config FrameExecutorConfig) (*FrameExecutor, error) {
	if config.FramesInFlight == 0 {
		config.FramesInFlight = 1
	}
	fe := &FrameExecutor{
		device:  device,
		surface: surface,
		config:  config,
		width:   width,
		height:  height,
	}

	var cleanup cleanupStack
	defer cleanup.run()

	pool, err := CreateCommandPool(device)
	if err != nil {
		return nil, err
	}
	fe.commandPool = pool
	cleanup.push(pool.Destroy)

	sc, err := CreateSwapchain(device, surface, width, height, config.Preferences)
	if err != nil {
		return nil, err
	}
	fe.swapchain = sc
	cleanup.push(func() { fe.swapchain.Destroy() })

	rp, err := CreateRenderPass(device, sc.Format.Format, config.ClearColor)
	if err != nil {
		return nil, err
	}
	fe.renderPass = rp
	cleanup.push(func() { fe.renderPass.Destroy() })

	if err := fe.createTargets(); err != nil {
		return nil, err
	}
	cleanup.push(fe.destroyTargets)

	fe.slots = make([]frameSlot, config.FramesInFlight)
	for i := range fe.slots {
		slot := &fe.slots[i]
		if slot.imageAvailable, err = NewSemaphore(device); err != nil {
			return nil, err
		}
		cleanup.push(slot.imageAvailable.Destroy)
		if slot.renderFinished, err = NewSemaphore(device); err != nil {
			return nil, err
		}
		cleanup.push(slot.renderFinished.Destroy)
		// Created signaled so the first wait on each slot returns at once.
		if slot.inFlight, err = NewFence(device, true); err != nil {
			return nil, err
		}
		cleanup.push(slot.inFlight.Destroy)
	}

	cleanup.release()
	core.LogInfo("Frame executor ready: %d images, %d frames in flight.", len(sc.Images), config.FramesInFlight)
	return fe, nil
}

// createTargets builds the framebuffers and command buffers, one per
// swapchain image, and clears the images-in-flight table.
func (fe *FrameExecutor) createTargets() error {
	framebuffers, err := CreateFramebuffers(fe.device, fe.renderPass, fe.swapchain.Views, fe.swapchain.Extent)
	if err != nil {
		return err
	}
	buffers, err := fe.commandPool.Allocate(uint32(len(fe.swapchain.Images)))
	if err != nil {
		for _, fb := range framebuffers {
			fb.Destroy()
		}
		return err
	}
	fe.framebuffers = framebuffers
	fe.commandBuffers = buffers
	fe.imagesInFlight = make([]*Fence, len(fe.swapchain.Images))
	return nil
}

func (fe *FrameExecutor) destroyTargets() {
	fe.commandPool.Free(fe.commandBuffers)
	fe.commandBuffers = nil
	for _, fb := range fe.framebuffers {
		fb.Destroy()
	}
	fe.framebuffers = nil
	fe.imagesInFlight = nil
}

func (fe *FrameExecutor) Swapchain() *Swapchain             { return fe.swapchain }
func (fe *FrameExecutor) RenderPass() *RenderPass           { return fe.renderPass }
func (fe *FrameExecutor) Framebuffers() []*Framebuffer      { return fe.framebuffers }
func (fe *FrameExecutor) CommandBuffers() []*CommandBuffer  { return fe.commandBuffers }
func (fe *FrameExecutor) State() FrameState                 { return fe.state }
func (fe *FrameExecutor) CurrentFrame() uint32              { return fe.currentFrame }
func (fe *FrameExecutor) FramesInFlight() uint32            { return uint32(len(fe.slots)) }
func (fe *FrameExecutor) FramebufferSize() (uint32, uint32) { return fe.width, fe.height }

// Resize records the new framebuffer size. The swapchain is rebuilt at the
// start of the next RenderFrame.
func (fe *FrameExecutor) Resize(width, height uint32) {
	fe.width = width
	fe.height = height
	fe.sizeGeneration++
	core.LogInfo("Vulkan renderer resized: w/h/gen: %d/%d/%d", width, height, fe.sizeGeneration)
}

// RenderFrame runs one full cycle: fence wait, acquire, record, submit and
// present. It returns core.ErrSwapchainBooting when the frame was skipped
// because the window has no area.
func (fe *FrameExecutor) RenderFrame(pipeline *Pipeline) error {
	if pipeline == nil {
		return logError(errors.New("render frame called without a pipeline"))
	}
	if pipeline.BindPoint != vk.PipelineBindPointGraphics {
		return logError(fmt.Errorf("bind point %d: %w", pipeline.BindPoint, ErrUnsupportedBindPoint))
	}

	if fe.pendingRecreate || fe.sizeGeneration != fe.lastSizeGeneration {
		if err := fe.Recreate(); err != nil {
			return err
		}
	}

	slot := &fe.slots[fe.currentFrame]

	// Wait for the GPU to finish the work last submitted from this slot.
	if err := slot.inFlight.Wait(waitForever); err != nil {
		return err
	}

	imageIndex, suboptimal, err := fe.acquire(slot)
	if err != nil {
		return err
	}
	fe.imageIndex = imageIndex

	// Make sure no other slot's frame is still using this image.
	if other := fe.imagesInFlight[imageIndex]; other != nil && other != slot.inFlight {
		if err := other.Wait(waitForever); err != nil {
			return err
		}
	}
	fe.imagesInFlight[imageIndex] = slot.inFlight

	fe.state = FrameRecording
	cb := fe.commandBuffers[imageIndex]
	if err := fe.record(cb, fe.framebuffers[imageIndex], pipeline); err != nil {
		fe.state = FrameIdle
		return err
	}

	// Reset after the last early return; nothing else would signal it.
	if err := slot.inFlight.Reset(); err != nil {
		fe.state = FrameIdle
		return err
	}

	if err := fe.device.Driver.QueueSubmit(fe.device.Queue, SubmitInfo{
		WaitSemaphore:   slot.imageAvailable.Handle,
		WaitStage:       vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		CommandBuffer:   cb.Handle,
		SignalSemaphore: slot.renderFinished.Handle,
		Fence:           slot.inFlight.Handle,
	}); err != nil {
		fe.state = FrameIdle
		return logError(fmt.Errorf("queue submit failed: %w", err))
	}
	cb.UpdateSubmitted()
	fe.state = FrameSubmitted

	presentSuboptimal, err := fe.device.Driver.QueuePresent(fe.device.Queue, PresentInfo{
		WaitSemaphore: slot.renderFinished.Handle,
		Swapchain:     fe.swapchain.Handle,
		ImageIndex:    imageIndex,
	})
	outOfDate := errors.Is(err, ErrSwapchainOutOfDate)
	if err != nil && !outOfDate {
		fe.state = FrameIdle
		return logError(fmt.Errorf("queue present failed: %w", err))
	}
	fe.state = FramePresented

	fe.currentFrame = emath.NextIndex(fe.currentFrame, uint32(len(fe.slots)))
	fe.FrameNumber++

	if outOfDate || suboptimal || presentSuboptimal {
		// Swapchain is out of date, suboptimal or a framebuffer resize has
		// occurred. Rebuild before the next acquire.
		fe.pendingRecreate = true
		if err := fe.Recreate(); err != nil && !errors.Is(err, core.ErrSwapchainBooting) {
			fe.state = FrameIdle
			return err
		}
	}

	fe.state = FrameIdle
	return nil
}

// acquire gets the next image, rebuilding the swapchain and retrying when
// it is out of date. Nothing is recorded against the stale swapchain.
func (fe *FrameExecutor) acquire(slot *frameSlot) (uint32, bool, error) {
	for attempt := 1; ; attempt++ {
		index, suboptimal, err := fe.device.Driver.AcquireNextImage(fe.device.Logical, fe.swapchain.Handle, waitForever, slot.imageAvailable.Handle)
		if err == nil {
			return index, suboptimal, nil
		}
		if !errors.Is(err, ErrSwapchainOutOfDate) {
			return 0, false, logError(fmt.Errorf("failed to acquire swapchain image: %w", err))
		}
		if attempt == maxAcquireAttempts {
			return 0, false, logError(fmt.Errorf("swapchain still out of date after %d attempts: %w", attempt, err))
		}
		core.LogDebug("Swapchain %s out of date on acquire, recreating.", fe.swapchain.ID)
		fe.pendingRecreate = true
		if err := fe.Recreate(); err != nil {
			return 0, false, err
		}
	}
}

func (fe *FrameExecutor) record(cb *CommandBuffer, framebuffer *Framebuffer, pipeline *Pipeline) error {
	if err := cb.Reset(); err != nil {
		return err
	}
	if err := cb.Begin(); err != nil {
		return err
	}
	fe.renderPass.Begin(cb, framebuffer)
	pipeline.Bind(cb)
	cb.Draw(3, 1, 0, 0)
	fe.renderPass.End(cb)
	return cb.End()
}

// Recreate destroys the swapchain, its views, the framebuffers and the
// command buffers and builds them again for the current framebuffer size.
// Format and present mode are negotiated again, and the render pass is
// rebuilt when the format changed. With a zero-sized window nothing is
// rebuilt and core.ErrSwapchainBooting is returned; the rebuild stays pending.
func (fe *FrameExecutor) Recreate() error {
	if fe.recreating {
		core.LogDebug("Recreate called when already recreating. Booting.")
		return core.ErrSwapchainBooting
	}
	if fe.width == 0 || fe.height == 0 {
		core.LogDebug("Recreate called when window is < 1 in a dimension. Booting.")
		fe.pendingRecreate = true
		return core.ErrSwapchainBooting
	}

	fe.recreating = true
	defer func() { fe.recreating = false }()

	if err := fe.device.WaitIdle(); err != nil {
		return err
	}

	oldID := fe.swapchain.ID
	fe.destroyTargets()
	fe.swapchain.Destroy()

	sc, err := CreateSwapchain(fe.device, fe.surface, fe.width, fe.height, fe.config.Preferences)
	if err != nil {
		if errors.Is(err, core.ErrSwapchainBooting) {
			fe.pendingRecreate = true
		}
		return err
	}
	fe.swapchain = sc

	formatChanged := sc.Format.Format != fe.renderPass.Format
	if formatChanged {
		core.LogInfo("Swapchain format changed from %d to %d, rebuilding render pass.", fe.renderPass.Format, sc.Format.Format)
		rp, err := CreateRenderPass(fe.device, sc.Format.Format, fe.config.ClearColor)
		if err != nil {
			return err
		}
		fe.renderPass.Destroy()
		fe.renderPass = rp
	}

	if err := fe.createTargets(); err != nil {
		return err
	}

	fe.lastSizeGeneration = fe.sizeGeneration
	fe.pendingRecreate = false
	core.LogInfo("Swapchain %s replaced by %s (%dx%d).", oldID, sc.ID, sc.Extent.Width, sc.Extent.Height)

	if fe.OnRecreate != nil {
		if err := fe.OnRecreate(formatChanged, sc.Extent); err != nil {
			return err
		}
	}
	return nil
}

// Destroy waits for the device to go idle and releases everything the
// executor owns in reverse creation order.
func (fe *FrameExecutor) Destroy() {
	if err := fe.device.WaitIdle(); err != nil {
		core.LogWarn("destroying frame executor on a busy device: %s", err)
	}
	for i := range fe.slots {
		fe.slots[i].inFlight.Destroy()
		fe.slots[i].renderFinished.Destroy()
		fe.slots[i].imageAvailable.Destroy()
	}
	fe.slots = nil
	if fe.commandBuffers != nil || fe.framebuffers != nil {
		fe.destroyTargets()
	}
	if fe.renderPass != nil {
		fe.renderPass.Destroy()
	}
	if fe.swapchain != nil {
		fe.swapchain.Destroy()
	}
	fe.commandPool.Destroy()
}
