package vkr

// Device is the logical-device/queue collaborator the presentation core
// talks through. The core never bypasses it to call the native API; the
// production implementation is VulkanDevice, tests use an in-memory fake.
//
// Every create call returns an opaque handle owned by the implementation.
// Destroy calls on the null handle are no-ops so teardown paths stay
// unconditional.
type Device interface {
	CreateSwapchain(info SwapchainCreateInfo) (SwapchainHandle, error)
	DestroySwapchain(sc SwapchainHandle)
	// SwapchainImages returns the presentable images owned by the native
	// swapchain. The images are created and destroyed with the swapchain and
	// must not be destroyed individually.
	SwapchainImages(sc SwapchainHandle) ([]ImageHandle, error)
	// AcquireNextImage blocks up to timeout for the next presentable image
	// and signals sem when it is ready for color writes. Returns
	// ErrSurfaceOutOfDate when the swapchain no longer matches the surface,
	// ErrSurfaceLost when the surface is gone.
	AcquireNextImage(sc SwapchainHandle, timeout uint64, sem SemaphoreHandle) (int, error)

	CreateImage(info ImageCreateInfo) (ImageHandle, error)
	DestroyImage(img ImageHandle)
	CreateImageView(info ImageViewCreateInfo) (ImageViewHandle, error)
	DestroyImageView(view ImageViewHandle)
	CreateRenderPass(info RenderPassCreateInfo) (RenderPassHandle, error)
	DestroyRenderPass(rp RenderPassHandle)
	CreateFramebuffer(info FramebufferCreateInfo) (FramebufferHandle, error)
	DestroyFramebuffer(fb FramebufferHandle)

	CreateCommandPool(queueFamily uint32) (CommandPoolHandle, error)
	DestroyCommandPool(pool CommandPoolHandle)
	AllocateCommandBuffers(pool CommandPoolHandle, primary bool, count int) ([]CommandBufferHandle, error)
	FreeCommandBuffers(pool CommandPoolHandle, buffers []CommandBufferHandle)
	BeginCommandBuffer(cb CommandBufferHandle, flags CommandBufferUsage) error
	EndCommandBuffer(cb CommandBufferHandle) error
	ResetCommandBuffer(cb CommandBufferHandle) error
	CmdBeginRenderPass(cb CommandBufferHandle, info RenderPassBeginInfo)
	CmdEndRenderPass(cb CommandBufferHandle)

	CreateSemaphore() (SemaphoreHandle, error)
	DestroySemaphore(sem SemaphoreHandle)
	CreateFence(signaled bool) (FenceHandle, error)
	DestroyFence(fence FenceHandle)
	// WaitForFence blocks until the fence signals or timeout elapses.
	WaitForFence(fence FenceHandle, timeout uint64) error
	ResetFence(fence FenceHandle) error

	// Submit enqueues the command buffers on queue and signals fence when
	// the GPU has finished them.
	Submit(queue QueueHandle, info SubmitInfo, fence FenceHandle) error
	// Present hands a rendered image back to the windowing system. Returns
	// ErrSurfaceOutOfDate for out-of-date and suboptimal surfaces.
	Present(queue QueueHandle, info PresentInfo) error
	QueueWaitIdle(queue QueueHandle) error
	WaitIdle() error
}

// Surface is the window-surface collaborator: capability queries plus the
// opaque handle the device needs to create a swapchain against it.
type Surface interface {
	Handle() SurfaceHandle
	Capabilities() (SurfaceCapabilities, error)
	Formats() ([]SurfaceFormat, error)
	PresentModes() ([]PresentMode, error)
}
