package vkr

import (
	"fmt"
	"log"
	"sync"

	vk "github.com/vulkan-go/vulkan"
)

// mapResult translates a vk.Result into this package's error taxonomy.
// Suboptimal is success here; acquire and present decide what to do with it.
func mapResult(res vk.Result) error {
	switch res {
	case vk.Success, vk.Suboptimal:
		return nil
	case vk.ErrorOutOfDate:
		return ErrSurfaceOutOfDate
	case vk.ErrorSurfaceLost:
		return ErrSurfaceLost
	case vk.ErrorDeviceLost:
		return ErrDeviceLost
	case vk.ErrorOutOfHostMemory, vk.ErrorOutOfDeviceMemory:
		return ErrOutOfMemory
	}
	return fmt.Errorf("%w: %v", ErrDeviceOther, vk.Error(res))
}

// boundImage is a device-owned image together with the sub-allocation
// backing it, so DestroyImage can return the memory to the shared allocator.
type boundImage struct {
	image     vk.Image
	alloc     *Allocation
	allocator *MemoryAllocator
}

// boundSwapchain is a native swapchain together with the image handles
// minted for its presentable images. The images belong to the swapchain, so
// DestroySwapchain reclaims their table entries; callers never pass them to
// DestroyImage.
type boundSwapchain struct {
	swapchain vk.Swapchain
	images    []ImageHandle
}

// staleHandle reports a table miss: the handle was never minted by this
// device, or its object was destroyed, possibly with a previous swapchain
// generation.
func staleHandle(kind string, handle uint64) error {
	return fmt.Errorf("%w: stale %s handle %d", ErrDeviceOther, kind, handle)
}

// VulkanDevice implements Device over vulkan-go. Every handle it mints maps
// to a native object through the tables below; a stale or foreign handle
// misses the table and is reported as an ErrDeviceOther-wrapped error
// instead of dangling into the driver. The tables are mutex-guarded so
// Destroy calls from cleanup paths do not race the frame loop's lookups.
type VulkanDevice struct {
	instance *Instance
	adapter  adapter
	device   vk.Device

	graphicsQueue QueueHandle
	presentQueue  QueueHandle

	mu         sync.Mutex
	nextHandle uint64

	surfaces       map[SurfaceHandle]vk.Surface
	swapchains     map[SwapchainHandle]*boundSwapchain
	images         map[ImageHandle]boundImage
	views          map[ImageViewHandle]vk.ImageView
	renderPasses   map[RenderPassHandle]vk.RenderPass
	framebuffers   map[FramebufferHandle]vk.Framebuffer
	pools          map[CommandPoolHandle]vk.CommandPool
	commandBuffers map[CommandBufferHandle]vk.CommandBuffer
	semaphores     map[SemaphoreHandle]vk.Semaphore
	fences         map[FenceHandle]vk.Fence
	queues         map[QueueHandle]vk.Queue
	memoryPools    map[*MemoryAllocator]*deviceMemoryPool
}

var _ Device = (*VulkanDevice)(nil)

// NewVulkanDevice selects an adapter able to render to surface, creates the
// logical device with the swapchain extension and fetches one queue per
// family.
func NewVulkanDevice(instance *Instance, surface vk.Surface) (*VulkanDevice, error) {
	ad, err := selectAdapter(instance, surface)
	if err != nil {
		return nil, err
	}

	families := []uint32{ad.graphicsFamily}
	if ad.presentFamily != ad.graphicsFamily {
		families = append(families, ad.presentFamily)
	}
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(families))
	for i, family := range families {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	extensions := safeStrings([]string{"VK_KHR_swapchain"})
	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
	}

	var device vk.Device
	if err := mapResult(vk.CreateDevice(ad.physical, &deviceCreateInfo, nil, &device)); err != nil {
		return nil, fmt.Errorf("creating logical device: %w", err)
	}

	d := &VulkanDevice{
		instance:       instance,
		adapter:        ad,
		device:         device,
		surfaces:       make(map[SurfaceHandle]vk.Surface),
		swapchains:     make(map[SwapchainHandle]*boundSwapchain),
		images:         make(map[ImageHandle]boundImage),
		views:          make(map[ImageViewHandle]vk.ImageView),
		renderPasses:   make(map[RenderPassHandle]vk.RenderPass),
		framebuffers:   make(map[FramebufferHandle]vk.Framebuffer),
		pools:          make(map[CommandPoolHandle]vk.CommandPool),
		commandBuffers: make(map[CommandBufferHandle]vk.CommandBuffer),
		semaphores:     make(map[SemaphoreHandle]vk.Semaphore),
		fences:         make(map[FenceHandle]vk.Fence),
		queues:         make(map[QueueHandle]vk.Queue),
		memoryPools:    make(map[*MemoryAllocator]*deviceMemoryPool),
	}

	var gq vk.Queue
	vk.GetDeviceQueue(device, ad.graphicsFamily, 0, &gq)
	d.graphicsQueue = QueueHandle(d.mintLocked())
	d.queues[d.graphicsQueue] = gq

	if ad.presentFamily == ad.graphicsFamily {
		d.presentQueue = d.graphicsQueue
	} else {
		var pq vk.Queue
		vk.GetDeviceQueue(device, ad.presentFamily, 0, &pq)
		d.presentQueue = QueueHandle(d.mintLocked())
		d.queues[d.presentQueue] = pq
	}

	return d, nil
}

// mintLocked issues the next handle value. Callers hold d.mu (or own d
// exclusively during construction).
func (d *VulkanDevice) mintLocked() uint64 {
	d.nextHandle++
	return d.nextHandle
}

// AdapterName returns the selected physical device's name.
func (d *VulkanDevice) AdapterName() string {
	return d.adapter.name
}

// GraphicsQueue returns the handle of the graphics queue.
func (d *VulkanDevice) GraphicsQueue() QueueHandle {
	return d.graphicsQueue
}

// PresentQueue returns the handle of the present queue. Equal to the
// graphics queue when one family serves both.
func (d *VulkanDevice) PresentQueue() QueueHandle {
	return d.presentQueue
}

// GraphicsFamily returns the graphics queue family index.
func (d *VulkanDevice) GraphicsFamily() uint32 {
	return d.adapter.graphicsFamily
}

// QueueFamilies returns the distinct queue family indices the swapchain
// images must be shared across.
func (d *VulkanDevice) QueueFamilies() []uint32 {
	if d.adapter.presentFamily == d.adapter.graphicsFamily {
		return []uint32{d.adapter.graphicsFamily}
	}
	return []uint32{d.adapter.graphicsFamily, d.adapter.presentFamily}
}

// WrapSurface builds the Surface collaborator for a native window surface.
func (d *VulkanDevice) WrapSurface(surface vk.Surface) *VulkanSurface {
	d.mu.Lock()
	handle := SurfaceHandle(d.mintLocked())
	d.surfaces[handle] = surface
	d.mu.Unlock()
	return &VulkanSurface{
		physical: d.adapter.physical,
		surface:  surface,
		handle:   handle,
	}
}

// Destroy releases the logical device and every memory pool. All handles
// minted by this device must have been destroyed first.
func (d *VulkanDevice) Destroy() {
	d.mu.Lock()
	for _, pool := range d.memoryPools {
		pool.destroy(d.device)
	}
	d.memoryPools = make(map[*MemoryAllocator]*deviceMemoryPool)
	d.mu.Unlock()
	vk.DestroyDevice(d.device, nil)
}

func (d *VulkanDevice) CreateSwapchain(info SwapchainCreateInfo) (SwapchainHandle, error) {
	d.mu.Lock()
	surface, surfaceOK := d.surfaces[info.Surface]
	old := vk.NullSwapchain
	oldOK := true
	if info.OldSwapchain != 0 {
		var bound *boundSwapchain
		if bound, oldOK = d.swapchains[info.OldSwapchain]; oldOK {
			old = bound.swapchain
		}
	}
	d.mu.Unlock()
	if !surfaceOK {
		return 0, staleHandle("surface", uint64(info.Surface))
	}
	if !oldOK {
		return 0, staleHandle("swapchain", uint64(info.OldSwapchain))
	}

	createInfo := vk.SwapchainCreateInfo{
		SType:           vk.StructureTypeSwapchainCreateInfo,
		Surface:         surface,
		MinImageCount:   info.MinImageCount,
		ImageFormat:     vk.Format(info.Format.Format),
		ImageColorSpace: vk.ColorSpace(info.Format.ColorSpace),
		ImageExtent: vk.Extent2D{
			Width:  info.Extent.Width,
			Height: info.Extent.Height,
		},
		PresentMode:      vk.PresentMode(info.PresentMode),
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageArrayLayers: 1,
		Clipped:          vk.True,
		PreTransform:     vk.SurfaceTransformFlagBits(info.PreTransform),
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		OldSwapchain:     old,
	}

	if len(info.QueueFamilyIndices) > 1 {
		createInfo.ImageSharingMode = vk.SharingModeConcurrent
		createInfo.QueueFamilyIndexCount = uint32(len(info.QueueFamilyIndices))
		createInfo.PQueueFamilyIndices = info.QueueFamilyIndices
	} else {
		createInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var swapchain vk.Swapchain
	if err := mapResult(vk.CreateSwapchain(d.device, &createInfo, nil, &swapchain)); err != nil {
		return 0, err
	}

	d.mu.Lock()
	handle := SwapchainHandle(d.mintLocked())
	d.swapchains[handle] = &boundSwapchain{swapchain: swapchain}
	d.mu.Unlock()
	return handle, nil
}

// forgetSwapchain removes the swapchain's table entries, including the image
// handles minted by SwapchainImages, and returns the native handle.
func (d *VulkanDevice) forgetSwapchain(sc SwapchainHandle) (vk.Swapchain, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	bound, ok := d.swapchains[sc]
	if !ok {
		return vk.NullSwapchain, false
	}
	for _, img := range bound.images {
		delete(d.images, img)
	}
	delete(d.swapchains, sc)
	return bound.swapchain, true
}

func (d *VulkanDevice) DestroySwapchain(sc SwapchainHandle) {
	if swapchain, ok := d.forgetSwapchain(sc); ok {
		vk.DestroySwapchain(d.device, swapchain, nil)
	}
}

func (d *VulkanDevice) SwapchainImages(sc SwapchainHandle) ([]ImageHandle, error) {
	d.mu.Lock()
	bound, ok := d.swapchains[sc]
	d.mu.Unlock()
	if !ok {
		return nil, staleHandle("swapchain", uint64(sc))
	}

	var count uint32
	if err := mapResult(vk.GetSwapchainImages(d.device, bound.swapchain, &count, nil)); err != nil {
		return nil, err
	}
	images := make([]vk.Image, count)
	if err := mapResult(vk.GetSwapchainImages(d.device, bound.swapchain, &count, images)); err != nil {
		return nil, err
	}

	d.mu.Lock()
	handles := make([]ImageHandle, count)
	for i, img := range images {
		handles[i] = ImageHandle(d.mintLocked())
		// No allocation record: the swapchain owns this memory.
		d.images[handles[i]] = boundImage{image: img}
	}
	bound.images = append(bound.images, handles...)
	d.mu.Unlock()
	return handles, nil
}

func (d *VulkanDevice) AcquireNextImage(sc SwapchainHandle, timeout uint64, sem SemaphoreHandle) (int, error) {
	d.mu.Lock()
	bound, scOK := d.swapchains[sc]
	semaphore, semOK := d.semaphores[sem]
	d.mu.Unlock()
	if !scOK {
		return 0, staleHandle("swapchain", uint64(sc))
	}
	if !semOK {
		return 0, staleHandle("semaphore", uint64(sem))
	}

	var imageIndex uint32
	res := vk.AcquireNextImage(d.device, bound.swapchain, timeout, semaphore, vk.NullFence, &imageIndex)
	if err := mapResult(res); err != nil {
		return 0, err
	}
	return int(imageIndex), nil
}

func (d *VulkanDevice) CreateImage(info ImageCreateInfo) (ImageHandle, error) {
	imageInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  info.Extent.Width,
			Height: info.Extent.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        vk.Format(info.Format),
		Tiling:        vk.ImageTilingOptimal,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         vk.ImageUsageFlags(info.Usage),
		Samples:       vk.SampleCount1Bit,
		SharingMode:   vk.SharingModeExclusive,
	}

	var image vk.Image
	if err := mapResult(vk.CreateImage(d.device, &imageInfo, nil, &image)); err != nil {
		return 0, err
	}

	var memReq vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.device, image, &memReq)
	memReq.Deref()

	pool, err := d.memoryPool(info.Allocator, memReq.MemoryTypeBits)
	if err != nil {
		vk.DestroyImage(d.device, image, nil)
		return 0, err
	}

	alloc, err := info.Allocator.Allocate(uint64(memReq.Size), uint64(memReq.Alignment))
	if err != nil {
		vk.DestroyImage(d.device, image, nil)
		return 0, err
	}

	if err := mapResult(vk.BindImageMemory(d.device, image, pool.memory, vk.DeviceSize(alloc.Offset))); err != nil {
		info.Allocator.Free(alloc)
		vk.DestroyImage(d.device, image, nil)
		return 0, err
	}

	d.mu.Lock()
	handle := ImageHandle(d.mintLocked())
	d.images[handle] = boundImage{image: image, alloc: alloc, allocator: info.Allocator}
	d.mu.Unlock()
	return handle, nil
}

func (d *VulkanDevice) DestroyImage(img ImageHandle) {
	d.mu.Lock()
	bound, ok := d.images[img]
	delete(d.images, img)
	d.mu.Unlock()
	if !ok {
		return
	}
	vk.DestroyImage(d.device, bound.image, nil)
	if bound.alloc != nil {
		bound.allocator.Free(bound.alloc)
	}
}

func (d *VulkanDevice) CreateImageView(info ImageViewCreateInfo) (ImageViewHandle, error) {
	d.mu.Lock()
	bound, ok := d.images[info.Image]
	d.mu.Unlock()
	if !ok {
		return 0, staleHandle("image", uint64(info.Image))
	}

	createInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    bound.image,
		ViewType: vk.ImageViewType2d,
		Format:   vk.Format(info.Format),
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleR,
			G: vk.ComponentSwizzleG,
			B: vk.ComponentSwizzleB,
			A: vk.ComponentSwizzleA,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(info.Aspect),
			LevelCount: 1,
			LayerCount: 1,
		},
	}

	var view vk.ImageView
	if err := mapResult(vk.CreateImageView(d.device, &createInfo, nil, &view)); err != nil {
		return 0, err
	}

	d.mu.Lock()
	handle := ImageViewHandle(d.mintLocked())
	d.views[handle] = view
	d.mu.Unlock()
	return handle, nil
}

func (d *VulkanDevice) DestroyImageView(view ImageViewHandle) {
	d.mu.Lock()
	v, ok := d.views[view]
	delete(d.views, view)
	d.mu.Unlock()
	if ok {
		vk.DestroyImageView(d.device, v, nil)
	}
}

func (d *VulkanDevice) CreateRenderPass(info RenderPassCreateInfo) (RenderPassHandle, error) {
	attachments := make([]vk.AttachmentDescription, len(info.Attachments))
	var colorRefs []vk.AttachmentReference
	var depthRef *vk.AttachmentReference

	for i, att := range info.Attachments {
		attachments[i] = vk.AttachmentDescription{
			Format:         vk.Format(att.Format),
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOp(att.LoadOp),
			StoreOp:        vk.AttachmentStoreOp(att.StoreOp),
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayout(att.InitialLayout),
			FinalLayout:    vk.ImageLayout(att.FinalLayout),
		}
		switch att.Kind {
		case AttachmentColor:
			colorRefs = append(colorRefs, vk.AttachmentReference{
				Attachment: uint32(i),
				Layout:     vk.ImageLayoutColorAttachmentOptimal,
			})
		case AttachmentDepth:
			depthRef = &vk.AttachmentReference{
				Attachment: uint32(i),
				Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
			}
		}
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    uint32(len(colorRefs)),
		PColorAttachments:       colorRefs,
		PDepthStencilAttachment: depthRef,
	}

	dependencies := make([]vk.SubpassDependency, len(info.Dependencies))
	for i, dep := range info.Dependencies {
		dependencies[i] = vk.SubpassDependency{
			SrcSubpass:    dep.SrcSubpass,
			DstSubpass:    dep.DstSubpass,
			SrcStageMask:  vk.PipelineStageFlags(dep.SrcStage),
			DstStageMask:  vk.PipelineStageFlags(dep.DstStage),
			SrcAccessMask: vk.AccessFlags(dep.SrcAccess),
			DstAccessMask: vk.AccessFlags(dep.DstAccess),
		}
	}

	createInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}

	var renderPass vk.RenderPass
	if err := mapResult(vk.CreateRenderPass(d.device, &createInfo, nil, &renderPass)); err != nil {
		return 0, err
	}

	d.mu.Lock()
	handle := RenderPassHandle(d.mintLocked())
	d.renderPasses[handle] = renderPass
	d.mu.Unlock()
	return handle, nil
}

func (d *VulkanDevice) DestroyRenderPass(rp RenderPassHandle) {
	d.mu.Lock()
	pass, ok := d.renderPasses[rp]
	delete(d.renderPasses, rp)
	d.mu.Unlock()
	if ok {
		vk.DestroyRenderPass(d.device, pass, nil)
	}
}

func (d *VulkanDevice) CreateFramebuffer(info FramebufferCreateInfo) (FramebufferHandle, error) {
	d.mu.Lock()
	renderPass, rpOK := d.renderPasses[info.RenderPass]
	attachments := make([]vk.ImageView, len(info.Attachments))
	missingView := ImageViewHandle(0)
	for i, view := range info.Attachments {
		v, ok := d.views[view]
		if !ok {
			missingView = view
			break
		}
		attachments[i] = v
	}
	d.mu.Unlock()
	if !rpOK {
		return 0, staleHandle("render pass", uint64(info.RenderPass))
	}
	if missingView != 0 {
		return 0, staleHandle("image view", uint64(missingView))
	}

	createInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderPass,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		Width:           info.Extent.Width,
		Height:          info.Extent.Height,
		Layers:          info.Layers,
	}

	var framebuffer vk.Framebuffer
	if err := mapResult(vk.CreateFramebuffer(d.device, &createInfo, nil, &framebuffer)); err != nil {
		return 0, err
	}

	d.mu.Lock()
	handle := FramebufferHandle(d.mintLocked())
	d.framebuffers[handle] = framebuffer
	d.mu.Unlock()
	return handle, nil
}

func (d *VulkanDevice) DestroyFramebuffer(fb FramebufferHandle) {
	d.mu.Lock()
	framebuffer, ok := d.framebuffers[fb]
	delete(d.framebuffers, fb)
	d.mu.Unlock()
	if ok {
		vk.DestroyFramebuffer(d.device, framebuffer, nil)
	}
}

func (d *VulkanDevice) CreateCommandPool(queueFamily uint32) (CommandPoolHandle, error) {
	createInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: queueFamily,
	}

	var pool vk.CommandPool
	if err := mapResult(vk.CreateCommandPool(d.device, &createInfo, nil, &pool)); err != nil {
		return 0, err
	}

	d.mu.Lock()
	handle := CommandPoolHandle(d.mintLocked())
	d.pools[handle] = pool
	d.mu.Unlock()
	return handle, nil
}

func (d *VulkanDevice) DestroyCommandPool(pool CommandPoolHandle) {
	d.mu.Lock()
	p, ok := d.pools[pool]
	delete(d.pools, pool)
	d.mu.Unlock()
	if ok {
		vk.DestroyCommandPool(d.device, p, nil)
	}
}

func (d *VulkanDevice) AllocateCommandBuffers(pool CommandPoolHandle, primary bool, count int) ([]CommandBufferHandle, error) {
	d.mu.Lock()
	p, ok := d.pools[pool]
	d.mu.Unlock()
	if !ok {
		return nil, staleHandle("command pool", uint64(pool))
	}

	level := vk.CommandBufferLevelPrimary
	if !primary {
		level = vk.CommandBufferLevelSecondary
	}
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        p,
		Level:              level,
		CommandBufferCount: uint32(count),
	}

	buffers := make([]vk.CommandBuffer, count)
	if err := mapResult(vk.AllocateCommandBuffers(d.device, &allocateInfo, buffers)); err != nil {
		return nil, err
	}

	d.mu.Lock()
	handles := make([]CommandBufferHandle, count)
	for i, buffer := range buffers {
		handles[i] = CommandBufferHandle(d.mintLocked())
		d.commandBuffers[handles[i]] = buffer
	}
	d.mu.Unlock()
	return handles, nil
}

func (d *VulkanDevice) FreeCommandBuffers(pool CommandPoolHandle, buffers []CommandBufferHandle) {
	d.mu.Lock()
	p, poolOK := d.pools[pool]
	native := make([]vk.CommandBuffer, 0, len(buffers))
	for _, cb := range buffers {
		if b, ok := d.commandBuffers[cb]; ok {
			native = append(native, b)
			delete(d.commandBuffers, cb)
		}
	}
	d.mu.Unlock()
	if poolOK && len(native) > 0 {
		vk.FreeCommandBuffers(d.device, p, uint32(len(native)), native)
	}
}

func (d *VulkanDevice) BeginCommandBuffer(cb CommandBufferHandle, flags CommandBufferUsage) error {
	d.mu.Lock()
	buffer, ok := d.commandBuffers[cb]
	d.mu.Unlock()
	if !ok {
		return staleHandle("command buffer", uint64(cb))
	}

	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(flags),
	}
	return mapResult(vk.BeginCommandBuffer(buffer, &beginInfo))
}

func (d *VulkanDevice) EndCommandBuffer(cb CommandBufferHandle) error {
	d.mu.Lock()
	buffer, ok := d.commandBuffers[cb]
	d.mu.Unlock()
	if !ok {
		return staleHandle("command buffer", uint64(cb))
	}
	return mapResult(vk.EndCommandBuffer(buffer))
}

func (d *VulkanDevice) ResetCommandBuffer(cb CommandBufferHandle) error {
	d.mu.Lock()
	buffer, ok := d.commandBuffers[cb]
	d.mu.Unlock()
	if !ok {
		return staleHandle("command buffer", uint64(cb))
	}
	return mapResult(vk.ResetCommandBuffer(buffer, 0))
}

func (d *VulkanDevice) CmdBeginRenderPass(cb CommandBufferHandle, info RenderPassBeginInfo) {
	d.mu.Lock()
	buffer, bufOK := d.commandBuffers[cb]
	renderPass, rpOK := d.renderPasses[info.RenderPass]
	framebuffer, fbOK := d.framebuffers[info.Framebuffer]
	d.mu.Unlock()
	if !bufOK || !rpOK || !fbOK {
		log.Printf("vkr: dropping render pass begin on stale handle (buffer %d, pass %d, framebuffer %d)",
			cb, info.RenderPass, info.Framebuffer)
		return
	}

	clearValues := make([]vk.ClearValue, len(info.ClearValues))
	for i, cv := range info.ClearValues {
		if cv.IsDepthStencil() {
			clearValues[i].SetDepthStencil(cv.Depth, cv.Stencil)
		} else {
			clearValues[i].SetColor(cv.Color[:])
		}
	}

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  renderPass,
		Framebuffer: framebuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: info.RenderArea.X, Y: info.RenderArea.Y},
			Extent: vk.Extent2D{Width: info.RenderArea.Width, Height: info.RenderArea.Height},
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(buffer, &beginInfo, vk.SubpassContentsInline)
}

func (d *VulkanDevice) CmdEndRenderPass(cb CommandBufferHandle) {
	d.mu.Lock()
	buffer, ok := d.commandBuffers[cb]
	d.mu.Unlock()
	if !ok {
		log.Printf("vkr: dropping render pass end on stale command buffer handle %d", cb)
		return
	}
	vk.CmdEndRenderPass(buffer)
}

func (d *VulkanDevice) CreateSemaphore() (SemaphoreHandle, error) {
	createInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	if err := mapResult(vk.CreateSemaphore(d.device, &createInfo, nil, &semaphore)); err != nil {
		return 0, err
	}

	d.mu.Lock()
	handle := SemaphoreHandle(d.mintLocked())
	d.semaphores[handle] = semaphore
	d.mu.Unlock()
	return handle, nil
}

func (d *VulkanDevice) DestroySemaphore(sem SemaphoreHandle) {
	d.mu.Lock()
	semaphore, ok := d.semaphores[sem]
	delete(d.semaphores, sem)
	d.mu.Unlock()
	if ok {
		vk.DestroySemaphore(d.device, semaphore, nil)
	}
}

func (d *VulkanDevice) CreateFence(signaled bool) (FenceHandle, error) {
	createInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		createInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var fence vk.Fence
	if err := mapResult(vk.CreateFence(d.device, &createInfo, nil, &fence)); err != nil {
		return 0, err
	}

	d.mu.Lock()
	handle := FenceHandle(d.mintLocked())
	d.fences[handle] = fence
	d.mu.Unlock()
	return handle, nil
}

func (d *VulkanDevice) DestroyFence(fence FenceHandle) {
	d.mu.Lock()
	f, ok := d.fences[fence]
	delete(d.fences, fence)
	d.mu.Unlock()
	if ok {
		vk.DestroyFence(d.device, f, nil)
	}
}

func (d *VulkanDevice) WaitForFence(fence FenceHandle, timeout uint64) error {
	d.mu.Lock()
	f, ok := d.fences[fence]
	d.mu.Unlock()
	if !ok {
		return staleHandle("fence", uint64(fence))
	}
	return mapResult(vk.WaitForFences(d.device, 1, []vk.Fence{f}, vk.True, timeout))
}

func (d *VulkanDevice) ResetFence(fence FenceHandle) error {
	d.mu.Lock()
	f, ok := d.fences[fence]
	d.mu.Unlock()
	if !ok {
		return staleHandle("fence", uint64(fence))
	}
	return mapResult(vk.ResetFences(d.device, 1, []vk.Fence{f}))
}

func (d *VulkanDevice) Submit(queue QueueHandle, info SubmitInfo, fence FenceHandle) error {
	d.mu.Lock()
	q, qOK := d.queues[queue]
	f := vk.NullFence
	fenceOK := true
	if fence != 0 {
		f, fenceOK = d.fences[fence]
	}
	missingSem := SemaphoreHandle(0)
	waits := make([]vk.Semaphore, len(info.WaitSemaphores))
	for i, sem := range info.WaitSemaphores {
		s, ok := d.semaphores[sem]
		if !ok {
			missingSem = sem
		}
		waits[i] = s
	}
	signals := make([]vk.Semaphore, len(info.SignalSemaphores))
	for i, sem := range info.SignalSemaphores {
		s, ok := d.semaphores[sem]
		if !ok {
			missingSem = sem
		}
		signals[i] = s
	}
	missingBuf := CommandBufferHandle(0)
	buffers := make([]vk.CommandBuffer, len(info.CommandBuffers))
	for i, cb := range info.CommandBuffers {
		b, ok := d.commandBuffers[cb]
		if !ok {
			missingBuf = cb
		}
		buffers[i] = b
	}
	d.mu.Unlock()

	if !qOK {
		return staleHandle("queue", uint64(queue))
	}
	if !fenceOK {
		return staleHandle("fence", uint64(fence))
	}
	if missingSem != 0 {
		return staleHandle("semaphore", uint64(missingSem))
	}
	if missingBuf != 0 {
		return staleHandle("command buffer", uint64(missingBuf))
	}

	stages := make([]vk.PipelineStageFlags, len(info.WaitStages))
	for i, stage := range info.WaitStages {
		stages[i] = vk.PipelineStageFlags(stage)
	}

	submitInfo := []vk.SubmitInfo{{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(waits)),
		PWaitSemaphores:      waits,
		PWaitDstStageMask:    stages,
		CommandBufferCount:   uint32(len(buffers)),
		PCommandBuffers:      buffers,
		SignalSemaphoreCount: uint32(len(signals)),
		PSignalSemaphores:    signals,
	}}
	return mapResult(vk.QueueSubmit(q, 1, submitInfo, f))
}

func (d *VulkanDevice) Present(queue QueueHandle, info PresentInfo) error {
	d.mu.Lock()
	q, qOK := d.queues[queue]
	bound, scOK := d.swapchains[info.Swapchain]
	missingSem := SemaphoreHandle(0)
	waits := make([]vk.Semaphore, len(info.WaitSemaphores))
	for i, sem := range info.WaitSemaphores {
		s, ok := d.semaphores[sem]
		if !ok {
			missingSem = sem
		}
		waits[i] = s
	}
	d.mu.Unlock()

	if !qOK {
		return staleHandle("queue", uint64(queue))
	}
	if !scOK {
		return staleHandle("swapchain", uint64(info.Swapchain))
	}
	if missingSem != 0 {
		return staleHandle("semaphore", uint64(missingSem))
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: uint32(len(waits)),
		PWaitSemaphores:    waits,
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{bound.swapchain},
		PImageIndices:      []uint32{uint32(info.ImageIndex)},
	}

	res := vk.QueuePresent(q, &presentInfo)
	// A suboptimal present still showed the image, but the swapchain no
	// longer matches the surface. Report it the same as out-of-date so the
	// frame driver recreates.
	if res == vk.Suboptimal {
		return ErrSurfaceOutOfDate
	}
	return mapResult(res)
}

func (d *VulkanDevice) QueueWaitIdle(queue QueueHandle) error {
	d.mu.Lock()
	q, ok := d.queues[queue]
	d.mu.Unlock()
	if !ok {
		return staleHandle("queue", uint64(queue))
	}
	return mapResult(vk.QueueWaitIdle(q))
}

func (d *VulkanDevice) WaitIdle() error {
	return mapResult(vk.DeviceWaitIdle(d.device))
}
