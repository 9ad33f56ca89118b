package vkr

// Opaque handles minted by a Device implementation. The zero value is the
// null handle. Handles from one swapchain generation are never valid in the
// next one; the Vulkan-backed device keeps the mapping to native objects in a
// private table so stale handles fail loudly instead of dangling.
type (
	SurfaceHandle       uint64
	SwapchainHandle     uint64
	ImageHandle         uint64
	ImageViewHandle     uint64
	FramebufferHandle   uint64
	RenderPassHandle    uint64
	SemaphoreHandle     uint64
	FenceHandle         uint64
	CommandPoolHandle   uint64
	CommandBufferHandle uint64
	QueueHandle         uint64
)

// TimeoutInfinite is the effectively-unbounded timeout used for every fence
// and acquire wait in this package. No finite-deadline path is exposed.
const TimeoutInfinite = ^uint64(0)

// ExtentUndefined is the sentinel width/height a surface reports when the
// windowing system leaves the extent up to the swapchain.
const ExtentUndefined = ^uint32(0)

// SubpassExternal marks the implicit subpass before or after a render pass in
// a dependency description.
const SubpassExternal = ^uint32(0)

type Extent2D struct {
	Width  uint32
	Height uint32
}

// IsZero reports whether either dimension is zero, which is how a minimized
// window shows up.
func (e Extent2D) IsZero() bool {
	return e.Width == 0 || e.Height == 0
}

type Rect2D struct {
	X      int32
	Y      int32
	Width  uint32
	Height uint32
}

// Format identifies a pixel format. The values mirror Vulkan's VkFormat so
// the binding converts by table lookup; only the formats this core touches
// are named.
type Format uint32

const (
	FormatUndefined     Format = 0
	FormatR8G8B8A8Unorm Format = 37
	FormatB8G8R8A8Unorm Format = 44
	FormatB8G8R8A8SRGB  Format = 50
	FormatD32Sfloat     Format = 126
	FormatD24UnormS8    Format = 129
)

// ColorSpace identifies how presented values are interpreted.
type ColorSpace uint32

const (
	ColorSpaceSRGBNonlinear ColorSpace = 0
)

// SurfaceFormat pairs a pixel format with a color space, as reported by the
// surface.
type SurfaceFormat struct {
	Format     Format
	ColorSpace ColorSpace
}

// PresentMode selects how presentation requests are queued. Values mirror
// VkPresentModeKHR.
type PresentMode uint32

const (
	// PresentModeImmediate presents without waiting for vertical blank. May
	// tear; lowest latency.
	PresentModeImmediate PresentMode = 0
	// PresentModeMailbox replaces the queued image when a new one arrives.
	// Tear-free and low latency.
	PresentModeMailbox PresentMode = 1
	// PresentModeFifo is the vsync queue every implementation must support.
	PresentModeFifo PresentMode = 2
)

func (m PresentMode) String() string {
	switch m {
	case PresentModeImmediate:
		return "Immediate"
	case PresentModeMailbox:
		return "Mailbox"
	case PresentModeFifo:
		return "Fifo"
	}
	return "Unknown"
}

// SurfaceCapabilities is what the surface currently supports. MaxImageCount
// of zero means unbounded.
type SurfaceCapabilities struct {
	MinImageCount    uint32
	MaxImageCount    uint32
	CurrentExtent    Extent2D
	MinImageExtent   Extent2D
	MaxImageExtent   Extent2D
	CurrentTransform uint32
}

// ImageLayout mirrors the VkImageLayout values this core transitions between.
type ImageLayout uint32

const (
	LayoutUndefined              ImageLayout = 0
	LayoutColorAttachment        ImageLayout = 2
	LayoutDepthStencilAttachment ImageLayout = 3
	LayoutShaderReadOnly         ImageLayout = 5
	LayoutPresentSrc             ImageLayout = 1000001002
)

// PipelineStage is a synchronization scope bit. Values mirror
// VkPipelineStageFlagBits.
type PipelineStage uint32

const (
	StageColorAttachmentOutput PipelineStage = 0x00000400
	StageFragmentShader        PipelineStage = 0x00000080
	StageEarlyFragmentTests    PipelineStage = 0x00000100
	StageLateFragmentTests     PipelineStage = 0x00000200
)

// Access is a memory access scope bit. Values mirror VkAccessFlagBits.
type Access uint32

const (
	AccessShaderRead                  Access = 0x00000020
	AccessColorAttachmentWrite        Access = 0x00000100
	AccessDepthStencilAttachmentWrite Access = 0x00000400
)

// AttachmentKind distinguishes color from depth attachments when deriving
// layouts and subpass dependencies.
type AttachmentKind int

const (
	AttachmentColor AttachmentKind = iota
	AttachmentDepth
)

type LoadOp uint32

const (
	LoadOpLoad     LoadOp = 0
	LoadOpClear    LoadOp = 1
	LoadOpDontCare LoadOp = 2
)

type StoreOp uint32

const (
	StoreOpStore    StoreOp = 0
	StoreOpDontCare StoreOp = 1
)

// AttachmentDescription describes one render pass attachment. Layouts are
// derived from Kind when left at their zero values.
type AttachmentDescription struct {
	Kind          AttachmentKind
	Format        Format
	LoadOp        LoadOp
	StoreOp       StoreOp
	InitialLayout ImageLayout
	FinalLayout   ImageLayout
}

// SubpassDependency mirrors VkSubpassDependency for the single-subpass passes
// this core builds.
type SubpassDependency struct {
	SrcSubpass uint32
	DstSubpass uint32
	SrcStage   PipelineStage
	DstStage   PipelineStage
	SrcAccess  Access
	DstAccess  Access
}

// ClearValue holds either a clear color or a depth/stencil clear, matching
// the attachment it is paired with by index. Build them with ClearColor and
// ClearDepthStencil; the zero value is an opaque-black color clear.
type ClearValue struct {
	Color        [4]float32
	Depth        float32
	Stencil      uint32
	depthStencil bool
}

// IsDepthStencil reports whether the value clears depth/stencil rather than
// color.
func (c ClearValue) IsDepthStencil() bool {
	return c.depthStencil
}

// ClearColor builds a color clear value.
func ClearColor(r, g, b, a float32) ClearValue {
	return ClearValue{Color: [4]float32{r, g, b, a}}
}

// ClearDepthStencil builds a depth/stencil clear value.
func ClearDepthStencil(depth float32, stencil uint32) ClearValue {
	return ClearValue{Depth: depth, Stencil: stencil, depthStencil: true}
}

type ImageUsage uint32

const (
	ImageUsageColorAttachment        ImageUsage = 0x00000010
	ImageUsageDepthStencilAttachment ImageUsage = 0x00000020
)

type ImageAspect uint32

const (
	AspectColor ImageAspect = 0x00000001
	AspectDepth ImageAspect = 0x00000002
)

// CommandBufferUsage are the begin-time usage flags, mirroring
// VkCommandBufferUsageFlagBits.
type CommandBufferUsage uint32

const (
	UsageOneTimeSubmit      CommandBufferUsage = 0x00000001
	UsageRenderPassContinue CommandBufferUsage = 0x00000002
	UsageSimultaneousUse    CommandBufferUsage = 0x00000004
)

// SwapchainCreateInfo carries everything the device needs to create the
// native swapchain object. QueueFamilyIndices lists the graphics and present
// families; when they differ the binding switches the images to concurrent
// sharing.
type SwapchainCreateInfo struct {
	Surface            SurfaceHandle
	MinImageCount      uint32
	Format             SurfaceFormat
	Extent             Extent2D
	PresentMode        PresentMode
	QueueFamilyIndices []uint32
	PreTransform       uint32
	OldSwapchain       SwapchainHandle
}

// ImageCreateInfo describes a device-owned image such as the depth
// attachment. Allocator is the explicitly shared memory allocator backing
// the image; it is never reached through package state.
type ImageCreateInfo struct {
	Format    Format
	Extent    Extent2D
	Usage     ImageUsage
	Allocator *MemoryAllocator
}

type ImageViewCreateInfo struct {
	Image  ImageHandle
	Format Format
	Aspect ImageAspect
}

type RenderPassCreateInfo struct {
	Attachments  []AttachmentDescription
	Dependencies []SubpassDependency
}

type FramebufferCreateInfo struct {
	RenderPass  RenderPassHandle
	Attachments []ImageViewHandle
	Extent      Extent2D
	Layers      uint32
}

type RenderPassBeginInfo struct {
	RenderPass  RenderPassHandle
	Framebuffer FramebufferHandle
	RenderArea  Rect2D
	ClearValues []ClearValue
}

// SubmitInfo mirrors the slice-of-one VkSubmitInfo shape the frame loop
// uses: wait each WaitSemaphores[i] at WaitStages[i], run the command
// buffers, signal SignalSemaphores.
type SubmitInfo struct {
	WaitSemaphores   []SemaphoreHandle
	WaitStages       []PipelineStage
	CommandBuffers   []CommandBufferHandle
	SignalSemaphores []SemaphoreHandle
}

type PresentInfo struct {
	WaitSemaphores []SemaphoreHandle
	Swapchain      SwapchainHandle
	ImageIndex     int
}
