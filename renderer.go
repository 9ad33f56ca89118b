package vkr

import (
	"log"
)

// Renderer drives the per-frame acquire → record → submit → present cycle
// over a Swapchain and reacts to surface changes: out-of-date surfaces
// trigger a full recreation on the next tick, zero-sized surfaces skip
// frames until the window comes back. It runs on a single goroutine.
type Renderer struct {
	swapchain *Swapchain

	// Draw records the frame's draw commands. It is called inside the
	// swapchain's render pass with the target image index; a nil Draw
	// renders clear-only frames.
	Draw func(cb *CommandBuffer, imageIndex int) error

	width  uint32
	height uint32
}

// NewRenderer wraps an already-created swapchain. The swapchain's current
// extent seeds the size used when recreation is triggered from the frame
// loop rather than an explicit Resize.
func NewRenderer(swapchain *Swapchain) *Renderer {
	ext := swapchain.Extent()
	return &Renderer{
		swapchain: swapchain,
		width:     ext.Width,
		height:    ext.Height,
	}
}

// Swapchain returns the driven swapchain.
func (r *Renderer) Swapchain() *Swapchain {
	return r.swapchain
}

// Resize records the new framebuffer size and recreates the swapchain. A
// zero dimension suspends rendering instead; RenderFrame becomes a no-op
// until a nonzero Resize arrives.
func (r *Renderer) Resize(width, height uint32) error {
	r.width, r.height = width, height
	return r.swapchain.Resize(width, height)
}

// RenderFrame runs one frame. A frame that finds the surface out of date
// (at acquire or present) is dropped without error; the swapchain is
// recreated at the start of the next call. Suspended frames are skipped
// entirely, without touching the device.
func (r *Renderer) RenderFrame() error {
	if r.swapchain.Suspended() {
		return nil
	}
	if r.swapchain.NeedsRecreation() {
		if err := r.swapchain.Resize(r.width, r.height); err != nil {
			return err
		}
		if r.swapchain.Suspended() {
			return nil
		}
	}

	imageIndex, outdated, err := r.swapchain.BeginFrame()
	if err != nil {
		return err
	}
	if outdated {
		return nil
	}

	err = r.swapchain.Record(imageIndex, func(cb *CommandBuffer) error {
		if r.Draw == nil {
			return nil
		}
		return r.Draw(cb, imageIndex)
	})
	if err != nil {
		return err
	}

	if _, err := r.swapchain.Present(imageIndex); err != nil {
		return err
	}
	return nil
}

// Close destroys the swapchain after draining the device.
func (r *Renderer) Close() {
	log.Printf("vkr: renderer shutting down after %d swapchain generations", r.swapchain.Generation())
	r.swapchain.Destroy()
}
