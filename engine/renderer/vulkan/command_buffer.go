package vulkan

import (
	"fmt"

	"github.com/spaghettifunk/voxrt/engine/core"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

// CommandPool allocates the per-image command buffers on the graphics family.
// Buffers from it can be reset individually.
type CommandPool struct {
	Handle Handle

	device *Device
}

type CommandBuffer struct {
	Handle Handle
	// Command buffer state.
	State VulkanCommandBufferState

	driver Driver
}

func CreateCommandPool(device *Device) (*CommandPool, error) {
	h, err := device.Driver.CreateCommandPool(device.Logical, device.QueueFamilyIndex)
	if err != nil {
		return nil, logError(fmt.Errorf("failed to create command pool: %w", err))
	}
	core.LogInfo("Graphics command pool created.")
	return &CommandPool{Handle: h, device: device}, nil
}

// Allocate returns count primary command buffers in the ready state.
func (p *CommandPool) Allocate(count uint32) ([]*CommandBuffer, error) {
	handles, err := p.device.Driver.AllocateCommandBuffers(p.device.Logical, p.Handle, count)
	if err != nil {
		return nil, logError(fmt.Errorf("failed to allocate %d command buffers: %w", count, err))
	}
	buffers := make([]*CommandBuffer, len(handles))
	for i, h := range handles {
		buffers[i] = &CommandBuffer{
			Handle: h,
			State:  COMMAND_BUFFER_STATE_READY,
			driver: p.device.Driver,
		}
	}
	core.LogDebug("Vulkan command buffers created.")
	return buffers, nil
}

func (p *CommandPool) Free(buffers []*CommandBuffer) {
	handles := make([]Handle, 0, len(buffers))
	for _, cb := range buffers {
		if cb.Handle != NullHandle {
			handles = append(handles, cb.Handle)
		}
		cb.Handle = NullHandle
		cb.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
	}
	if len(handles) > 0 {
		p.device.Driver.FreeCommandBuffers(p.device.Logical, p.Handle, handles)
	}
}

func (p *CommandPool) Destroy() {
	if p.Handle != NullHandle {
		core.LogInfo("Destroying command pools...")
		p.device.Driver.DestroyCommandPool(p.device.Logical, p.Handle)
		p.Handle = NullHandle
	}
}

// Reset discards previous recording so the buffer can be recorded again.
func (cb *CommandBuffer) Reset() error {
	if err := cb.driver.ResetCommandBuffer(cb.Handle); err != nil {
		return logError(fmt.Errorf("failed to reset command buffer: %w", err))
	}
	cb.State = COMMAND_BUFFER_STATE_READY
	return nil
}

func (cb *CommandBuffer) Begin() error {
	if cb.State != COMMAND_BUFFER_STATE_READY {
		return logError(fmt.Errorf("command buffer begin in state %d", cb.State))
	}
	if err := cb.driver.BeginCommandBuffer(cb.Handle); err != nil {
		return logError(fmt.Errorf("failed to begin command buffer: %w", err))
	}
	cb.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (cb *CommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	cb.driver.CmdDraw(cb.Handle, vertexCount, instanceCount, firstVertex, firstInstance)
}

func (cb *CommandBuffer) End() error {
	if err := cb.driver.EndCommandBuffer(cb.Handle); err != nil {
		return logError(fmt.Errorf("failed to end command buffer: %w", err))
	}
	cb.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (cb *CommandBuffer) UpdateSubmitted() {
	cb.State = COMMAND_BUFFER_STATE_SUBMITTED
}
