package vulkan

import (
	"fmt"
)

type Framebuffer struct {
	Handle      Handle
	Attachments []Handle
	Extent      Extent
	Renderpass  *RenderPass

	device *Device
}

func CreateFramebuffer(device *Device, renderpass *RenderPass, extent Extent, attachments []Handle) (*Framebuffer, error) {
	fb := &Framebuffer{
		Attachments: append([]Handle(nil), attachments...),
		Extent:      extent,
		Renderpass:  renderpass,
		device:      device,
	}
	h, err := device.Driver.CreateFramebuffer(device.Logical, renderpass.Handle, fb.Attachments, extent)
	if err != nil {
		return nil, logError(fmt.Errorf("failed to create framebuffer: %w", err))
	}
	fb.Handle = h
	return fb, nil
}

// CreateFramebuffers builds one single-attachment framebuffer per view, in
// view order, sized to extent.
func CreateFramebuffers(device *Device, renderpass *RenderPass, views []Handle, extent Extent) ([]*Framebuffer, error) {
	var cleanup cleanupStack
	defer cleanup.run()

	framebuffers := make([]*Framebuffer, len(views))
	for i, view := range views {
		fb, err := CreateFramebuffer(device, renderpass, extent, []Handle{view})
		if err != nil {
			return nil, err
		}
		cleanup.push(fb.Destroy)
		framebuffers[i] = fb
	}
	cleanup.release()
	return framebuffers, nil
}

func (fb *Framebuffer) Destroy() {
	if fb.Handle != NullHandle {
		fb.device.Driver.DestroyFramebuffer(fb.device.Logical, fb.Handle)
	}
	fb.Handle = NullHandle
	fb.Attachments = nil
	fb.Renderpass = nil
}
