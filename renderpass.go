package vkr

import (
	"fmt"
)

// RenderPassState mirrors the command-buffer bracketing for the pass itself,
// so a double Begin or an End without Begin surfaces as an error instead of
// invalid API usage inside the driver.
type RenderPassState int

const (
	RenderPassReady RenderPassState = iota
	RenderPassInProgress
)

func (s RenderPassState) String() string {
	switch s {
	case RenderPassReady:
		return "Ready"
	case RenderPassInProgress:
		return "InRenderPass"
	}
	return "Unknown"
}

// RenderPassDescriptor configures a render pass. ClearValues pair with
// Attachments by index. Attachments the caller wants cleared carry
// LoadOpClear; attachments whose previous contents matter carry LoadOpLoad.
// Initial/final layouts left at zero are derived from the attachment kind:
// color attachments end presentable, depth attachments end in the
// depth/stencil layout.
type RenderPassDescriptor struct {
	Attachments []AttachmentDescription
	ClearValues []ClearValue
	RenderArea  Rect2D
}

// RenderPass describes how draw commands interact with a fixed set of target
// images for one pass, including the clear behavior and the synchronization
// dependencies against surrounding passes.
type RenderPass struct {
	device      Device
	handle      RenderPassHandle
	state       RenderPassState
	renderArea  Rect2D
	clearValues []ClearValue
	attachments []AttachmentDescription
}

// NewRenderPass validates the descriptor eagerly and creates the native
// pass. Subpass dependencies are derived from the attachment kinds (see
// deriveDependencies); callers never spell them out.
func NewRenderPass(device Device, desc RenderPassDescriptor) (*RenderPass, error) {
	if len(desc.Attachments) == 0 {
		return nil, fmt.Errorf("render pass needs at least one attachment")
	}
	if len(desc.ClearValues) != len(desc.Attachments) {
		return nil, fmt.Errorf("render pass has %d attachments but %d clear values",
			len(desc.Attachments), len(desc.ClearValues))
	}

	attachments := make([]AttachmentDescription, len(desc.Attachments))
	hasColor, hasDepth := false, false
	for i, att := range desc.Attachments {
		switch att.Kind {
		case AttachmentColor:
			hasColor = true
			if att.FinalLayout == LayoutUndefined {
				att.FinalLayout = LayoutPresentSrc
			}
		case AttachmentDepth:
			hasDepth = true
			if att.FinalLayout == LayoutUndefined {
				att.FinalLayout = LayoutDepthStencilAttachment
			}
		default:
			return nil, fmt.Errorf("attachment %d: unknown kind %d", i, att.Kind)
		}
		if att.Format == FormatUndefined {
			return nil, fmt.Errorf("attachment %d: format is required", i)
		}
		attachments[i] = att
	}

	handle, err := device.CreateRenderPass(RenderPassCreateInfo{
		Attachments:  attachments,
		Dependencies: deriveDependencies(hasColor, hasDepth),
	})
	if err != nil {
		return nil, fmt.Errorf("creating render pass: %w", err)
	}

	clears := make([]ClearValue, len(desc.ClearValues))
	copy(clears, desc.ClearValues)

	return &RenderPass{
		device:      device,
		handle:      handle,
		state:       RenderPassReady,
		renderArea:  desc.RenderArea,
		clearValues: clears,
		attachments: attachments,
	}, nil
}

// deriveDependencies builds the external↔subpass dependency pairs. A color
// attachment gets a pair gating color-attachment-output against fragment
// shading; a depth attachment gets the analogous pair on the early/late
// fragment tests. The pairs stop this pass from writing an attachment a
// previous reader or writer is still using, without synchronizing unrelated
// passes.
func deriveDependencies(hasColor, hasDepth bool) []SubpassDependency {
	var deps []SubpassDependency
	if hasColor {
		deps = append(deps,
			SubpassDependency{
				SrcSubpass: SubpassExternal,
				DstSubpass: 0,
				SrcStage:   StageFragmentShader,
				SrcAccess:  AccessShaderRead,
				DstStage:   StageColorAttachmentOutput,
				DstAccess:  AccessColorAttachmentWrite,
			},
			SubpassDependency{
				SrcSubpass: 0,
				DstSubpass: SubpassExternal,
				SrcStage:   StageColorAttachmentOutput,
				SrcAccess:  AccessColorAttachmentWrite,
				DstStage:   StageFragmentShader,
				DstAccess:  AccessShaderRead,
			})
	}
	if hasDepth {
		deps = append(deps,
			SubpassDependency{
				SrcSubpass: SubpassExternal,
				DstSubpass: 0,
				SrcStage:   StageFragmentShader,
				SrcAccess:  AccessShaderRead,
				DstStage:   StageEarlyFragmentTests,
				DstAccess:  AccessDepthStencilAttachmentWrite,
			},
			SubpassDependency{
				SrcSubpass: 0,
				DstSubpass: SubpassExternal,
				SrcStage:   StageLateFragmentTests,
				SrcAccess:  AccessDepthStencilAttachmentWrite,
				DstStage:   StageFragmentShader,
				DstAccess:  AccessShaderRead,
			})
	}
	return deps
}

// Handle returns the native render pass handle.
func (r *RenderPass) Handle() RenderPassHandle {
	return r.handle
}

// RenderArea returns the rectangle drawing is clipped to.
func (r *RenderPass) RenderArea() Rect2D {
	return r.renderArea
}

// Begin opens the pass on cb targeting fb. Illegal while the pass is already
// in progress.
func (r *RenderPass) Begin(cb *CommandBuffer, fb *Framebuffer) error {
	if r.state != RenderPassReady {
		return &StateError{Object: "RenderPass", Op: "Begin", State: r.state.String()}
	}
	if err := cb.enterRenderPass(); err != nil {
		return err
	}
	r.device.CmdBeginRenderPass(cb.handle, RenderPassBeginInfo{
		RenderPass:  r.handle,
		Framebuffer: fb.Handle(),
		RenderArea:  r.renderArea,
		ClearValues: r.clearValues,
	})
	r.state = RenderPassInProgress
	return nil
}

// End closes the pass on cb.
func (r *RenderPass) End(cb *CommandBuffer) error {
	if r.state != RenderPassInProgress {
		return &StateError{Object: "RenderPass", Op: "End", State: r.state.String()}
	}
	if err := cb.leaveRenderPass(); err != nil {
		return err
	}
	r.device.CmdEndRenderPass(cb.handle)
	r.state = RenderPassReady
	return nil
}

// Destroy releases the native pass.
func (r *RenderPass) Destroy() {
	if r.handle != 0 {
		r.device.DestroyRenderPass(r.handle)
		r.handle = 0
	}
}
