package vkr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func colorDepthDescriptor() RenderPassDescriptor {
	return RenderPassDescriptor{
		Attachments: []AttachmentDescription{
			{Kind: AttachmentColor, Format: FormatB8G8R8A8Unorm, LoadOp: LoadOpClear, StoreOp: StoreOpStore},
			{Kind: AttachmentDepth, Format: FormatD32Sfloat, LoadOp: LoadOpClear, StoreOp: StoreOpDontCare},
		},
		ClearValues: []ClearValue{
			ClearColor(0, 0, 0, 1),
			ClearDepthStencil(1, 0),
		},
		RenderArea: Rect2D{Width: 800, Height: 600},
	}
}

func TestRenderPassDerivesFinalLayouts(t *testing.T) {
	dev := newFakeDevice()

	rp, err := NewRenderPass(dev, colorDepthDescriptor())
	require.NoError(t, err)

	info := dev.renderPasses[rp.Handle()]
	require.Len(t, info.Attachments, 2)
	assert.Equal(t, LayoutPresentSrc, info.Attachments[0].FinalLayout)
	assert.Equal(t, LayoutDepthStencilAttachment, info.Attachments[1].FinalLayout)
}

func TestRenderPassDependencyDerivation(t *testing.T) {
	colorOnly := deriveDependencies(true, false)
	require.Len(t, colorOnly, 2)

	in := colorOnly[0]
	assert.Equal(t, uint32(SubpassExternal), in.SrcSubpass)
	assert.Equal(t, uint32(0), in.DstSubpass)
	assert.Equal(t, StageFragmentShader, in.SrcStage)
	assert.Equal(t, AccessShaderRead, in.SrcAccess)
	assert.Equal(t, StageColorAttachmentOutput, in.DstStage)
	assert.Equal(t, AccessColorAttachmentWrite, in.DstAccess)

	out := colorOnly[1]
	assert.Equal(t, uint32(0), out.SrcSubpass)
	assert.Equal(t, uint32(SubpassExternal), out.DstSubpass)
	assert.Equal(t, StageColorAttachmentOutput, out.SrcStage)
	assert.Equal(t, StageFragmentShader, out.DstStage)

	depthOnly := deriveDependencies(false, true)
	require.Len(t, depthOnly, 2)
	assert.Equal(t, StageEarlyFragmentTests, depthOnly[0].DstStage)
	assert.Equal(t, AccessDepthStencilAttachmentWrite, depthOnly[0].DstAccess)
	assert.Equal(t, StageLateFragmentTests, depthOnly[1].SrcStage)

	both := deriveDependencies(true, true)
	assert.Len(t, both, 4)
}

func TestRenderPassValidation(t *testing.T) {
	dev := newFakeDevice()

	_, err := NewRenderPass(dev, RenderPassDescriptor{})
	assert.Error(t, err)

	desc := colorDepthDescriptor()
	desc.ClearValues = desc.ClearValues[:1]
	_, err = NewRenderPass(dev, desc)
	assert.Error(t, err)

	desc = colorDepthDescriptor()
	desc.Attachments[0].Format = FormatUndefined
	_, err = NewRenderPass(dev, desc)
	assert.Error(t, err)
}

func TestRenderPassBracketing(t *testing.T) {
	dev := newFakeDevice()
	alloc, err := NewCommandBufferAllocator(dev, 0, 1)
	require.NoError(t, err)

	rp, err := NewRenderPass(dev, colorDepthDescriptor())
	require.NoError(t, err)

	fb := &Framebuffer{device: dev, handle: 1, extent: Extent2D{Width: 800, Height: 600}}

	cb, err := alloc.AllocateOne(true)
	require.NoError(t, err)

	// Begin outside recording is rejected and leaves both state machines
	// untouched.
	err = rp.Begin(cb, fb)
	assert.Error(t, err)
	assert.Equal(t, RenderPassReady, rp.state)

	require.NoError(t, alloc.Begin(cb, false, false, false))
	require.NoError(t, rp.Begin(cb, fb))
	assert.Equal(t, CommandBufferInRenderPass, cb.State())

	// Double Begin while in progress.
	assert.Error(t, rp.Begin(cb, fb))

	require.NoError(t, rp.End(cb))
	assert.Equal(t, CommandBufferRecording, cb.State())
	assert.Equal(t, RenderPassReady, rp.state)

	// End without Begin.
	assert.Error(t, rp.End(cb))
}

func TestFramebufferValidation(t *testing.T) {
	dev := newFakeDevice()

	rp, err := NewRenderPass(dev, colorDepthDescriptor())
	require.NoError(t, err)

	// Attachment count must match the pass.
	_, err = NewFramebuffer(dev, rp, []ImageViewHandle{1}, Extent2D{Width: 800, Height: 600}, 1)
	assert.Error(t, err)

	// Zero extent is rejected eagerly.
	_, err = NewFramebuffer(dev, rp, []ImageViewHandle{1, 2}, Extent2D{}, 1)
	assert.Error(t, err)
}
