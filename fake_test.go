package vkr

import (
	"fmt"
)

// fakeDevice implements Device in memory. It models just enough GPU
// behavior for the frame loop to be driven honestly: submitted work
// completes instantly and signals its fence, but resetting a command buffer
// whose fence was never observed signaled afterwards is an error, as is
// waiting on a fence nothing will signal. Destroy calls append to the
// events log so tests can assert teardown ordering.
type fakeDevice struct {
	next uint64

	swapchains   map[SwapchainHandle]*fakeSwapchain
	images       map[ImageHandle]*fakeImage
	views        map[ImageViewHandle]ImageViewCreateInfo
	renderPasses map[RenderPassHandle]RenderPassCreateInfo
	framebuffers map[FramebufferHandle]FramebufferCreateInfo
	pools        map[CommandPoolHandle]uint32
	buffers      map[CommandBufferHandle]CommandPoolHandle
	semaphores   map[SemaphoreHandle]bool
	fences       map[FenceHandle]bool

	// unobserved maps a submitted command buffer to the fence that must be
	// waited on before the buffer may be reset.
	unobserved map[CommandBufferHandle]FenceHandle

	acquireErr error
	presentErr error

	events    []string
	submits   []SubmitInfo
	presents  []PresentInfo
	waitIdles int
}

type fakeSwapchain struct {
	info       SwapchainCreateInfo
	imageCount int
	images     []ImageHandle
	acquires   int
}

type fakeImage struct {
	info  ImageCreateInfo
	alloc *Allocation
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		swapchains:   make(map[SwapchainHandle]*fakeSwapchain),
		images:       make(map[ImageHandle]*fakeImage),
		views:        make(map[ImageViewHandle]ImageViewCreateInfo),
		renderPasses: make(map[RenderPassHandle]RenderPassCreateInfo),
		framebuffers: make(map[FramebufferHandle]FramebufferCreateInfo),
		pools:        make(map[CommandPoolHandle]uint32),
		buffers:      make(map[CommandBufferHandle]CommandPoolHandle),
		semaphores:   make(map[SemaphoreHandle]bool),
		fences:       make(map[FenceHandle]bool),
		unobserved:   make(map[CommandBufferHandle]FenceHandle),
	}
}

var _ Device = (*fakeDevice)(nil)

func (d *fakeDevice) mint() uint64 {
	d.next++
	return d.next
}

func (d *fakeDevice) event(format string, args ...interface{}) {
	d.events = append(d.events, fmt.Sprintf(format, args...))
}

func (d *fakeDevice) CreateSwapchain(info SwapchainCreateInfo) (SwapchainHandle, error) {
	if info.Extent.IsZero() {
		return 0, fmt.Errorf("fake: zero extent swapchain")
	}
	handle := SwapchainHandle(d.mint())
	count := int(info.MinImageCount)
	d.swapchains[handle] = &fakeSwapchain{info: info, imageCount: count}
	d.event("create swapchain %d", handle)
	return handle, nil
}

func (d *fakeDevice) DestroySwapchain(sc SwapchainHandle) {
	if sc == 0 {
		return
	}
	// The presentable images die with the swapchain.
	if chain, ok := d.swapchains[sc]; ok {
		for _, img := range chain.images {
			delete(d.images, img)
		}
	}
	delete(d.swapchains, sc)
	d.event("destroy swapchain %d", sc)
}

func (d *fakeDevice) SwapchainImages(sc SwapchainHandle) ([]ImageHandle, error) {
	chain, ok := d.swapchains[sc]
	if !ok {
		return nil, fmt.Errorf("fake: unknown swapchain %d", sc)
	}
	handles := make([]ImageHandle, chain.imageCount)
	for i := range handles {
		handles[i] = ImageHandle(d.mint())
		d.images[handles[i]] = &fakeImage{}
	}
	chain.images = handles
	return handles, nil
}

func (d *fakeDevice) AcquireNextImage(sc SwapchainHandle, timeout uint64, sem SemaphoreHandle) (int, error) {
	if d.acquireErr != nil {
		err := d.acquireErr
		d.acquireErr = nil
		return 0, err
	}
	chain, ok := d.swapchains[sc]
	if !ok {
		return 0, fmt.Errorf("fake: unknown swapchain %d", sc)
	}
	if _, ok := d.semaphores[sem]; !ok {
		return 0, fmt.Errorf("fake: unknown semaphore %d", sem)
	}
	idx := chain.acquires % chain.imageCount
	chain.acquires++
	return idx, nil
}

func (d *fakeDevice) CreateImage(info ImageCreateInfo) (ImageHandle, error) {
	if info.Allocator == nil {
		return 0, fmt.Errorf("fake: image without allocator")
	}
	size := uint64(info.Extent.Width) * uint64(info.Extent.Height) * 4
	alloc, err := info.Allocator.Allocate(size, 256)
	if err != nil {
		return 0, err
	}
	handle := ImageHandle(d.mint())
	d.images[handle] = &fakeImage{info: info, alloc: alloc}
	d.event("create image %d", handle)
	return handle, nil
}

func (d *fakeDevice) DestroyImage(img ImageHandle) {
	if img == 0 {
		return
	}
	if fi, ok := d.images[img]; ok && fi.alloc != nil {
		fi.info.Allocator.Free(fi.alloc)
	}
	delete(d.images, img)
	d.event("destroy image %d", img)
}

func (d *fakeDevice) CreateImageView(info ImageViewCreateInfo) (ImageViewHandle, error) {
	if _, ok := d.images[info.Image]; !ok {
		return 0, fmt.Errorf("fake: view of unknown image %d", info.Image)
	}
	handle := ImageViewHandle(d.mint())
	d.views[handle] = info
	return handle, nil
}

func (d *fakeDevice) DestroyImageView(view ImageViewHandle) {
	if view == 0 {
		return
	}
	delete(d.views, view)
	d.event("destroy view %d", view)
}

func (d *fakeDevice) CreateRenderPass(info RenderPassCreateInfo) (RenderPassHandle, error) {
	handle := RenderPassHandle(d.mint())
	d.renderPasses[handle] = info
	return handle, nil
}

func (d *fakeDevice) DestroyRenderPass(rp RenderPassHandle) {
	if rp == 0 {
		return
	}
	delete(d.renderPasses, rp)
	d.event("destroy renderpass %d", rp)
}

func (d *fakeDevice) CreateFramebuffer(info FramebufferCreateInfo) (FramebufferHandle, error) {
	if _, ok := d.renderPasses[info.RenderPass]; !ok {
		return 0, fmt.Errorf("fake: framebuffer against unknown render pass %d", info.RenderPass)
	}
	for _, view := range info.Attachments {
		if _, ok := d.views[view]; !ok {
			return 0, fmt.Errorf("fake: framebuffer with unknown view %d", view)
		}
	}
	handle := FramebufferHandle(d.mint())
	d.framebuffers[handle] = info
	return handle, nil
}

func (d *fakeDevice) DestroyFramebuffer(fb FramebufferHandle) {
	if fb == 0 {
		return
	}
	delete(d.framebuffers, fb)
	d.event("destroy framebuffer %d", fb)
}

func (d *fakeDevice) CreateCommandPool(queueFamily uint32) (CommandPoolHandle, error) {
	handle := CommandPoolHandle(d.mint())
	d.pools[handle] = queueFamily
	return handle, nil
}

func (d *fakeDevice) DestroyCommandPool(pool CommandPoolHandle) {
	if pool == 0 {
		return
	}
	delete(d.pools, pool)
	for cb, p := range d.buffers {
		if p == pool {
			delete(d.buffers, cb)
		}
	}
	d.event("destroy pool %d", pool)
}

func (d *fakeDevice) AllocateCommandBuffers(pool CommandPoolHandle, primary bool, count int) ([]CommandBufferHandle, error) {
	if _, ok := d.pools[pool]; !ok {
		return nil, fmt.Errorf("fake: unknown pool %d", pool)
	}
	handles := make([]CommandBufferHandle, count)
	for i := range handles {
		handles[i] = CommandBufferHandle(d.mint())
		d.buffers[handles[i]] = pool
	}
	return handles, nil
}

func (d *fakeDevice) FreeCommandBuffers(pool CommandPoolHandle, buffers []CommandBufferHandle) {
	for _, cb := range buffers {
		delete(d.buffers, cb)
		delete(d.unobserved, cb)
	}
}

func (d *fakeDevice) BeginCommandBuffer(cb CommandBufferHandle, flags CommandBufferUsage) error {
	if _, ok := d.buffers[cb]; !ok {
		return fmt.Errorf("fake: begin on unknown buffer %d", cb)
	}
	return nil
}

func (d *fakeDevice) EndCommandBuffer(cb CommandBufferHandle) error {
	if _, ok := d.buffers[cb]; !ok {
		return fmt.Errorf("fake: end on unknown buffer %d", cb)
	}
	return nil
}

func (d *fakeDevice) ResetCommandBuffer(cb CommandBufferHandle) error {
	if _, ok := d.buffers[cb]; !ok {
		return fmt.Errorf("fake: reset on unknown buffer %d", cb)
	}
	if fence, pending := d.unobserved[cb]; pending {
		return fmt.Errorf("fake: buffer %d reset before fence %d was observed", cb, fence)
	}
	return nil
}

func (d *fakeDevice) CmdBeginRenderPass(cb CommandBufferHandle, info RenderPassBeginInfo) {
	d.event("begin renderpass on %d", cb)
}

func (d *fakeDevice) CmdEndRenderPass(cb CommandBufferHandle) {
	d.event("end renderpass on %d", cb)
}

func (d *fakeDevice) CreateSemaphore() (SemaphoreHandle, error) {
	handle := SemaphoreHandle(d.mint())
	d.semaphores[handle] = true
	return handle, nil
}

func (d *fakeDevice) DestroySemaphore(sem SemaphoreHandle) {
	if sem == 0 {
		return
	}
	delete(d.semaphores, sem)
	d.event("destroy semaphore %d", sem)
}

func (d *fakeDevice) CreateFence(signaled bool) (FenceHandle, error) {
	handle := FenceHandle(d.mint())
	d.fences[handle] = signaled
	return handle, nil
}

func (d *fakeDevice) DestroyFence(fence FenceHandle) {
	if fence == 0 {
		return
	}
	delete(d.fences, fence)
	d.event("destroy fence %d", fence)
}

func (d *fakeDevice) WaitForFence(fence FenceHandle, timeout uint64) error {
	signaled, ok := d.fences[fence]
	if !ok {
		return fmt.Errorf("fake: wait on unknown fence %d", fence)
	}
	if !signaled {
		return fmt.Errorf("fake: wait on fence %d that nothing will signal", fence)
	}
	for cb, f := range d.unobserved {
		if f == fence {
			delete(d.unobserved, cb)
		}
	}
	return nil
}

func (d *fakeDevice) ResetFence(fence FenceHandle) error {
	if _, ok := d.fences[fence]; !ok {
		return fmt.Errorf("fake: reset of unknown fence %d", fence)
	}
	d.fences[fence] = false
	return nil
}

func (d *fakeDevice) Submit(queue QueueHandle, info SubmitInfo, fence FenceHandle) error {
	for _, cb := range info.CommandBuffers {
		if _, ok := d.buffers[cb]; !ok {
			return fmt.Errorf("fake: submit of unknown buffer %d", cb)
		}
	}
	d.submits = append(d.submits, info)
	if fence != 0 {
		if _, ok := d.fences[fence]; !ok {
			return fmt.Errorf("fake: submit with unknown fence %d", fence)
		}
		// Work completes instantly but the buffer stays untouchable until
		// the fence is observed.
		d.fences[fence] = true
		for _, cb := range info.CommandBuffers {
			d.unobserved[cb] = fence
		}
	}
	return nil
}

func (d *fakeDevice) Present(queue QueueHandle, info PresentInfo) error {
	if d.presentErr != nil {
		err := d.presentErr
		d.presentErr = nil
		return err
	}
	if _, ok := d.swapchains[info.Swapchain]; !ok {
		return fmt.Errorf("fake: present to unknown swapchain %d", info.Swapchain)
	}
	d.presents = append(d.presents, info)
	return nil
}

func (d *fakeDevice) QueueWaitIdle(queue QueueHandle) error {
	return nil
}

func (d *fakeDevice) WaitIdle() error {
	d.waitIdles++
	return nil
}

// fakeSurface reports whatever the test configures. The default reports the
// undefined current extent so requested sizes pass through the clamp.
type fakeSurface struct {
	handle  SurfaceHandle
	caps    SurfaceCapabilities
	formats []SurfaceFormat
	modes   []PresentMode
}

var _ Surface = (*fakeSurface)(nil)

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		handle: 1,
		caps: SurfaceCapabilities{
			MinImageCount:  1,
			MaxImageCount:  8,
			CurrentExtent:  Extent2D{Width: ExtentUndefined, Height: ExtentUndefined},
			MinImageExtent: Extent2D{Width: 1, Height: 1},
			MaxImageExtent: Extent2D{Width: 4096, Height: 4096},
		},
		formats: []SurfaceFormat{
			{Format: FormatR8G8B8A8Unorm, ColorSpace: ColorSpaceSRGBNonlinear},
			{Format: FormatB8G8R8A8Unorm, ColorSpace: ColorSpaceSRGBNonlinear},
		},
		modes: []PresentMode{PresentModeFifo, PresentModeMailbox},
	}
}

func (s *fakeSurface) Handle() SurfaceHandle {
	return s.handle
}

func (s *fakeSurface) Capabilities() (SurfaceCapabilities, error) {
	return s.caps, nil
}

func (s *fakeSurface) Formats() ([]SurfaceFormat, error) {
	return s.formats, nil
}

func (s *fakeSurface) PresentModes() ([]PresentMode, error) {
	return s.modes, nil
}
