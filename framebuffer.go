package vkr

import (
	"fmt"
)

// Framebuffer binds concrete image views to a render pass's attachment
// slots. One exists per swapchain image, all sharing the depth view.
type Framebuffer struct {
	device Device
	handle FramebufferHandle
	extent Extent2D
}

// NewFramebuffer creates a framebuffer for renderPass from views. The view
// count must match the pass's attachment descriptors and the extent must be
// nonzero; both are checked eagerly since the driver-side failure for a
// mismatch is deferred and cryptic.
func NewFramebuffer(device Device, renderPass *RenderPass, views []ImageViewHandle, extent Extent2D, layers uint32) (*Framebuffer, error) {
	if len(views) != len(renderPass.attachments) {
		return nil, fmt.Errorf("framebuffer has %d attachments, render pass expects %d",
			len(views), len(renderPass.attachments))
	}
	if extent.IsZero() {
		return nil, fmt.Errorf("framebuffer extent %dx%d has a zero dimension", extent.Width, extent.Height)
	}
	if layers == 0 {
		layers = 1
	}

	handle, err := device.CreateFramebuffer(FramebufferCreateInfo{
		RenderPass:  renderPass.Handle(),
		Attachments: views,
		Extent:      extent,
		Layers:      layers,
	})
	if err != nil {
		return nil, fmt.Errorf("creating framebuffer: %w", err)
	}
	return &Framebuffer{device: device, handle: handle, extent: extent}, nil
}

// Handle returns the native framebuffer handle.
func (f *Framebuffer) Handle() FramebufferHandle {
	return f.handle
}

// Extent returns the framebuffer dimensions.
func (f *Framebuffer) Extent() Extent2D {
	return f.extent
}

// Destroy releases the native framebuffer.
func (f *Framebuffer) Destroy() {
	if f.handle != 0 {
		f.device.DestroyFramebuffer(f.handle)
		f.handle = 0
	}
}
