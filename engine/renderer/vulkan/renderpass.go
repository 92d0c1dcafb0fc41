package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/voxrt/engine/core"
)

// RenderPass has one subpass writing one color attachment: cleared on load,
// stored, and left ready for presentation.
type RenderPass struct {
	Handle     Handle
	Format     vk.Format
	ClearColor [4]float32

	device *Device
}

func CreateRenderPass(device *Device, format vk.Format, clearColor [4]float32) (*RenderPass, error) {
	h, err := device.Driver.CreateRenderPass(device.Logical, format)
	if err != nil {
		return nil, logError(fmt.Errorf("failed to create render pass: %w", err))
	}
	core.LogDebug("Render pass created for format %d.", format)
	return &RenderPass{
		Handle:     h,
		Format:     format,
		ClearColor: clearColor,
		device:     device,
	}, nil
}

// Begin starts the pass on framebuffer over its full extent.
func (rp *RenderPass) Begin(cb *CommandBuffer, framebuffer *Framebuffer) {
	rp.device.Driver.CmdBeginRenderPass(cb.Handle, RenderPassBeginInfo{
		RenderPass:  rp.Handle,
		Framebuffer: framebuffer.Handle,
		Extent:      framebuffer.Extent,
		ClearColor:  rp.ClearColor,
	})
	cb.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (rp *RenderPass) End(cb *CommandBuffer) {
	rp.device.Driver.CmdEndRenderPass(cb.Handle)
	cb.State = COMMAND_BUFFER_STATE_RECORDING
}

func (rp *RenderPass) Destroy() {
	if rp.Handle != NullHandle {
		rp.device.Driver.DestroyRenderPass(rp.device.Logical, rp.Handle)
		rp.Handle = NullHandle
	}
}
