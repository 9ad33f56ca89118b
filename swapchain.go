package vkr

import (
	"errors"
	"fmt"
	"log"
)

// SwapchainState is the whole-swapchain lifecycle:
// Uninitialized → Ready ⇄ Recreating → Ready → Destroyed, with Suspended
// parked in between while the window has a zero-sized extent.
type SwapchainState int

const (
	SwapchainUninitialized SwapchainState = iota
	SwapchainReady
	SwapchainRecreating
	SwapchainSuspended
	SwapchainDestroyed
)

func (s SwapchainState) String() string {
	switch s {
	case SwapchainUninitialized:
		return "Uninitialized"
	case SwapchainReady:
		return "Ready"
	case SwapchainRecreating:
		return "Recreating"
	case SwapchainSuspended:
		return "Suspended"
	case SwapchainDestroyed:
		return "Destroyed"
	}
	return "Unknown"
}

var errZeroExtent = errors.New("vkr: surface extent has a zero dimension")

// SwapchainConfig configures NewSwapchain. Device, Surface, Allocator and
// CommandBuffers are required. MaxFramesInFlight defaults to 2, DepthFormat
// to FormatD32Sfloat, ClearColor to an opaque light blue.
type SwapchainConfig struct {
	Device         Device
	Surface        Surface
	Allocator      *MemoryAllocator
	CommandBuffers *CommandBufferAllocator

	GraphicsQueue QueueHandle
	PresentQueue  QueueHandle
	// QueueFamilyIndices lists the graphics and present families. Two
	// distinct entries switch the images to concurrent sharing.
	QueueFamilyIndices []uint32

	// Extent is the requested size in pixels, honored only when the surface
	// reports the undefined extent sentinel.
	Extent Extent2D

	MaxFramesInFlight int

	// PreferLowLatency accepts the tearing immediate mode when mailbox is
	// unavailable instead of falling back to FIFO.
	PreferLowLatency bool

	DepthFormat Format
	ClearColor  [4]float32
}

// frameSlot is the per-frame synchronization bundle: the slot's fence must
// be observed signaled before its command buffer is re-recorded, and its two
// semaphores order acquire → render → present on the GPU timeline.
type frameSlot struct {
	imageAvailable SemaphoreHandle
	renderFinished SemaphoreHandle
	inFlight       FenceHandle
	commands       *CommandBuffer
}

// chain is one swapchain generation: everything that must be destroyed and
// rebuilt together on resize because it is sized to the extent.
type chain struct {
	handle       SwapchainHandle
	format       SurfaceFormat
	presentMode  PresentMode
	extent       Extent2D
	images       []ImageHandle
	views        []ImageViewHandle
	depthImage   ImageHandle
	depthView    ImageViewHandle
	renderPass   *RenderPass
	framebuffers []*Framebuffer
	slots        []frameSlot
}

// Swapchain owns the presentable image chain and the per-frame
// synchronization pipeline around it. All methods must be called from the
// single frame-loop goroutine.
type Swapchain struct {
	device    Device
	surface   Surface
	allocator *MemoryAllocator
	cmdAlloc  *CommandBufferAllocator
	cfg       SwapchainConfig

	state      SwapchainState
	generation uint64
	frame      int
	chain
}

// NewSwapchain creates the swapchain and everything it owns. A zero-sized
// clamped extent (minimized window) parks the swapchain in the Suspended
// state instead of failing; the first nonzero Resize builds it.
func NewSwapchain(cfg SwapchainConfig) (*Swapchain, error) {
	if cfg.Device == nil || cfg.Surface == nil {
		return nil, fmt.Errorf("swapchain config requires a device and a surface")
	}
	if cfg.Allocator == nil {
		return nil, fmt.Errorf("swapchain config requires the shared memory allocator")
	}
	if cfg.CommandBuffers == nil {
		return nil, fmt.Errorf("swapchain config requires a command buffer allocator")
	}
	if cfg.MaxFramesInFlight <= 0 {
		cfg.MaxFramesInFlight = 2
	}
	if cfg.DepthFormat == FormatUndefined {
		cfg.DepthFormat = FormatD32Sfloat
	}
	if cfg.ClearColor == ([4]float32{}) {
		cfg.ClearColor = [4]float32{0.65, 0.8, 0.9, 1.0}
	}
	if len(cfg.QueueFamilyIndices) == 0 {
		cfg.QueueFamilyIndices = []uint32{0}
	}

	s := &Swapchain{
		device:    cfg.Device,
		surface:   cfg.Surface,
		allocator: cfg.Allocator,
		cmdAlloc:  cfg.CommandBuffers,
		cfg:       cfg,
		state:     SwapchainUninitialized,
	}

	c, err := s.build(cfg.Extent, 0)
	if errors.Is(err, errZeroExtent) {
		s.state = SwapchainSuspended
		s.extent = Extent2D{}
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	s.install(c)
	return s, nil
}

// build constructs one complete generation, passing old to the driver as a
// reuse hint. It destroys whatever it managed to create when it fails
// partway, and never touches the currently installed generation.
func (s *Swapchain) build(requested Extent2D, old SwapchainHandle) (c chain, err error) {
	defer func() {
		if err != nil {
			s.teardown(&c)
		}
	}()

	caps, err := s.surface.Capabilities()
	if err != nil {
		return c, fmt.Errorf("querying surface capabilities: %w", err)
	}
	formats, err := s.surface.Formats()
	if err != nil {
		return c, fmt.Errorf("querying surface formats: %w", err)
	}
	if len(formats) == 0 {
		return c, fmt.Errorf("surface reports no formats: %w", ErrNotMeetRequirement)
	}
	modes, err := s.surface.PresentModes()
	if err != nil {
		return c, fmt.Errorf("querying present modes: %w", err)
	}

	c.format = chooseSurfaceFormat(formats)
	c.presentMode = choosePresentMode(modes, s.cfg.PreferLowLatency)
	c.extent = chooseExtent(caps, requested)
	if c.extent.IsZero() {
		return c, errZeroExtent
	}

	c.handle, err = s.device.CreateSwapchain(SwapchainCreateInfo{
		Surface:            s.surface.Handle(),
		MinImageCount:      chooseImageCount(caps, s.cfg.MaxFramesInFlight),
		Format:             c.format,
		Extent:             c.extent,
		PresentMode:        c.presentMode,
		QueueFamilyIndices: s.cfg.QueueFamilyIndices,
		PreTransform:       caps.CurrentTransform,
		OldSwapchain:       old,
	})
	if err != nil {
		return c, fmt.Errorf("creating swapchain: %w", err)
	}

	c.images, err = s.device.SwapchainImages(c.handle)
	if err != nil {
		return c, fmt.Errorf("fetching swapchain images: %w", err)
	}

	c.views = make([]ImageViewHandle, 0, len(c.images))
	for _, img := range c.images {
		view, verr := s.device.CreateImageView(ImageViewCreateInfo{
			Image:  img,
			Format: c.format.Format,
			Aspect: AspectColor,
		})
		if verr != nil {
			return c, fmt.Errorf("creating swapchain image view: %w", verr)
		}
		c.views = append(c.views, view)
	}

	// One depth attachment shared across images; it is sized to the extent
	// so it lives and dies with the generation.
	c.depthImage, err = s.device.CreateImage(ImageCreateInfo{
		Format:    s.cfg.DepthFormat,
		Extent:    c.extent,
		Usage:     ImageUsageDepthStencilAttachment,
		Allocator: s.allocator,
	})
	if err != nil {
		return c, fmt.Errorf("creating depth attachment: %w", err)
	}
	c.depthView, err = s.device.CreateImageView(ImageViewCreateInfo{
		Image:  c.depthImage,
		Format: s.cfg.DepthFormat,
		Aspect: AspectDepth,
	})
	if err != nil {
		return c, fmt.Errorf("creating depth view: %w", err)
	}

	cc := s.cfg.ClearColor
	c.renderPass, err = NewRenderPass(s.device, RenderPassDescriptor{
		Attachments: []AttachmentDescription{
			{
				Kind:        AttachmentColor,
				Format:      c.format.Format,
				LoadOp:      LoadOpClear,
				StoreOp:     StoreOpStore,
				FinalLayout: LayoutPresentSrc,
			},
			{
				Kind:        AttachmentDepth,
				Format:      s.cfg.DepthFormat,
				LoadOp:      LoadOpClear,
				StoreOp:     StoreOpDontCare,
				FinalLayout: LayoutDepthStencilAttachment,
			},
		},
		ClearValues: []ClearValue{
			ClearColor(cc[0], cc[1], cc[2], cc[3]),
			ClearDepthStencil(1.0, 0),
		},
		RenderArea: Rect2D{Width: c.extent.Width, Height: c.extent.Height},
	})
	if err != nil {
		return c, err
	}

	c.framebuffers = make([]*Framebuffer, 0, len(c.views))
	for _, view := range c.views {
		fb, ferr := NewFramebuffer(s.device, c.renderPass,
			[]ImageViewHandle{view, c.depthView}, c.extent, 1)
		if ferr != nil {
			return c, ferr
		}
		c.framebuffers = append(c.framebuffers, fb)
	}

	buffers, err := s.cmdAlloc.Allocate(s.cfg.MaxFramesInFlight, true)
	if err != nil {
		return c, err
	}
	c.slots = make([]frameSlot, s.cfg.MaxFramesInFlight)
	for i := range c.slots {
		c.slots[i].commands = buffers[i]
		if c.slots[i].imageAvailable, err = s.device.CreateSemaphore(); err != nil {
			return c, fmt.Errorf("creating image-available semaphore: %w", err)
		}
		if c.slots[i].renderFinished, err = s.device.CreateSemaphore(); err != nil {
			return c, fmt.Errorf("creating render-finished semaphore: %w", err)
		}
		// Signaled so the first BeginFrame on the slot does not block.
		if c.slots[i].inFlight, err = s.device.CreateFence(true); err != nil {
			return c, fmt.Errorf("creating frame fence: %w", err)
		}
	}

	return c, nil
}

// install makes c the current generation.
func (s *Swapchain) install(c chain) {
	s.chain = c
	s.frame = 0
	s.generation++
	s.state = SwapchainReady
}

// teardown destroys one generation's sub-objects in reverse construction
// order, the native swapchain last.
func (s *Swapchain) teardown(c *chain) {
	for i := range c.slots {
		if c.slots[i].commands != nil && c.slots[i].commands.Handle() != 0 {
			s.cmdAlloc.Free(c.slots[i].commands)
		}
		s.device.DestroyFence(c.slots[i].inFlight)
		s.device.DestroySemaphore(c.slots[i].renderFinished)
		s.device.DestroySemaphore(c.slots[i].imageAvailable)
	}
	for _, fb := range c.framebuffers {
		fb.Destroy()
	}
	if c.renderPass != nil {
		c.renderPass.Destroy()
	}
	s.device.DestroyImageView(c.depthView)
	s.device.DestroyImage(c.depthImage)
	for _, view := range c.views {
		s.device.DestroyImageView(view)
	}
	s.device.DestroySwapchain(c.handle)
	*c = chain{}
}

// BeginFrame waits for the current frame slot's fence, acquires the next
// presentable image with the slot's image-available semaphore, resets the
// fence and returns the image index. When the surface is out of date it
// returns outdated=true with the slot's fence and semaphores untouched; the
// caller resizes and retries next tick. Lost surfaces and devices propagate
// as errors.
func (s *Swapchain) BeginFrame() (imageIndex int, outdated bool, err error) {
	if s.state != SwapchainReady {
		return 0, false, &StateError{Object: "Swapchain", Op: "BeginFrame", State: s.state.String()}
	}
	slot := &s.slots[s.frame]

	if err := s.device.WaitForFence(slot.inFlight, TimeoutInfinite); err != nil {
		return 0, false, fmt.Errorf("waiting for frame %d fence: %w", s.frame, err)
	}

	idx, err := s.device.AcquireNextImage(s.handle, TimeoutInfinite, slot.imageAvailable)
	if errors.Is(err, ErrSurfaceOutOfDate) {
		s.state = SwapchainRecreating
		return 0, true, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("acquiring image: %w", err)
	}

	if err := s.device.ResetFence(slot.inFlight); err != nil {
		return 0, false, fmt.Errorf("resetting frame %d fence: %w", s.frame, err)
	}
	return idx, false, nil
}

// Record re-records the current slot's command buffer for imageIndex: reset,
// begin, render pass bracketing around the caller's recording callback, end.
// Only legal after a successful BeginFrame returned imageIndex, which is
// what guarantees the slot's fence was observed signaled.
func (s *Swapchain) Record(imageIndex int, record func(cb *CommandBuffer) error) error {
	if s.state != SwapchainReady {
		return &StateError{Object: "Swapchain", Op: "Record", State: s.state.String()}
	}
	if imageIndex < 0 || imageIndex >= len(s.framebuffers) {
		return fmt.Errorf("image index %d out of range (%d images)", imageIndex, len(s.framebuffers))
	}
	cb := s.slots[s.frame].commands

	if err := s.cmdAlloc.Reset(cb); err != nil {
		return err
	}
	if err := s.cmdAlloc.Begin(cb, false, false, false); err != nil {
		return err
	}
	if err := s.renderPass.Begin(cb, s.framebuffers[imageIndex]); err != nil {
		return err
	}
	if record != nil {
		if err := record(cb); err != nil {
			return fmt.Errorf("recording frame commands: %w", err)
		}
	}
	if err := s.renderPass.End(cb); err != nil {
		return err
	}
	return s.cmdAlloc.End(cb)
}

// Present submits the current slot's command buffer (waiting on the slot's
// image-available semaphore at the color-attachment-output stage, signaling
// render-finished and the slot fence) and presents imageIndex. On success
// the frame slot index advances round-robin. An out-of-date or suboptimal
// surface reports outdated=true; the submitted work still completes and the
// recreation path waits for it.
func (s *Swapchain) Present(imageIndex int) (outdated bool, err error) {
	if s.state != SwapchainReady {
		return false, &StateError{Object: "Swapchain", Op: "Present", State: s.state.String()}
	}
	slot := &s.slots[s.frame]

	submit := SubmitInfo{
		WaitSemaphores:   []SemaphoreHandle{slot.imageAvailable},
		WaitStages:       []PipelineStage{StageColorAttachmentOutput},
		CommandBuffers:   []CommandBufferHandle{slot.commands.Handle()},
		SignalSemaphores: []SemaphoreHandle{slot.renderFinished},
	}
	if err := s.device.Submit(s.cfg.GraphicsQueue, submit, slot.inFlight); err != nil {
		return false, fmt.Errorf("submitting frame commands: %w", err)
	}
	if err := s.cmdAlloc.MarkSubmitted(slot.commands); err != nil {
		return false, err
	}

	err = s.device.Present(s.cfg.PresentQueue, PresentInfo{
		WaitSemaphores: []SemaphoreHandle{slot.renderFinished},
		Swapchain:      s.handle,
		ImageIndex:     imageIndex,
	})
	if errors.Is(err, ErrSurfaceOutOfDate) {
		s.state = SwapchainRecreating
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("presenting image %d: %w", imageIndex, err)
	}

	s.frame = (s.frame + 1) % s.cfg.MaxFramesInFlight
	return false, nil
}

// Resize recreates the swapchain at the new size. It blocks until the
// device is fully idle first, so no in-flight GPU work can reference the
// sub-objects about to be destroyed. The replacement is built completely
// before anything old is torn down; on failure the previous generation
// stays installed and usable (modulo being out of date). A zero dimension
// suspends the swapchain until a nonzero resize arrives.
func (s *Swapchain) Resize(width, height uint32) error {
	switch s.state {
	case SwapchainDestroyed, SwapchainUninitialized:
		return &StateError{Object: "Swapchain", Op: "Resize", State: s.state.String()}
	}

	if width == 0 || height == 0 {
		log.Printf("vkr: swapchain suspended at %dx%d", width, height)
		s.state = SwapchainSuspended
		return nil
	}

	if err := s.device.WaitIdle(); err != nil {
		return fmt.Errorf("waiting for device before resize: %w", err)
	}

	old := s.chain
	c, err := s.build(Extent2D{Width: width, Height: height}, old.handle)
	if errors.Is(err, errZeroExtent) {
		s.state = SwapchainSuspended
		return nil
	}
	if err != nil {
		// The old generation is still installed; the caller decides whether
		// to retry.
		if s.handle != 0 {
			s.state = SwapchainRecreating
		}
		return err
	}

	s.teardown(&old)
	s.install(c)
	log.Printf("vkr: swapchain recreated at %dx%d (generation %d)", width, height, s.generation)
	return nil
}

// Destroy waits for the device to go idle and releases everything the
// swapchain owns. The swapchain is unusable afterwards.
func (s *Swapchain) Destroy() {
	if s.state == SwapchainDestroyed {
		return
	}
	if s.state != SwapchainSuspended || s.handle != 0 {
		if err := s.device.WaitIdle(); err != nil {
			log.Printf("vkr: wait-idle before swapchain destroy: %v", err)
		}
		s.teardown(&s.chain)
	}
	s.state = SwapchainDestroyed
}

// State returns the lifecycle state.
func (s *Swapchain) State() SwapchainState {
	return s.state
}

// Suspended reports whether the swapchain is parked on a zero-sized surface
// and frames should be skipped.
func (s *Swapchain) Suspended() bool {
	return s.state == SwapchainSuspended
}

// NeedsRecreation reports whether acquire or present flagged the surface as
// out of date since the last successful (re)creation.
func (s *Swapchain) NeedsRecreation() bool {
	return s.state == SwapchainRecreating
}

// Extent returns the current swapchain extent in pixels.
func (s *Swapchain) Extent() Extent2D {
	return s.extent
}

// Format returns the selected surface format and color space.
func (s *Swapchain) Format() SurfaceFormat {
	return s.format
}

// ColorSpace returns the selected color space.
func (s *Swapchain) ColorSpace() ColorSpace {
	return s.format.ColorSpace
}

// PresentMode returns the selected presentation mode.
func (s *Swapchain) PresentMode() PresentMode {
	return s.presentMode
}

// ImageCount returns the number of presentable images in the chain.
func (s *Swapchain) ImageCount() int {
	return len(s.images)
}

// MaxFramesInFlight returns the number of frame slots.
func (s *Swapchain) MaxFramesInFlight() int {
	return s.cfg.MaxFramesInFlight
}

// FrameIndex returns the current frame slot index. After N successful
// presents it equals N mod MaxFramesInFlight.
func (s *Swapchain) FrameIndex() int {
	return s.frame
}

// Generation increments every time the swapchain is (re)created. Callers
// that derive anything from swapchain-owned objects use it to notice
// staleness instead of caching handles across a resize.
func (s *Swapchain) Generation() uint64 {
	return s.generation
}

// RenderPass returns the pass every frame is recorded against.
func (s *Swapchain) RenderPass() *RenderPass {
	return s.renderPass
}

// Framebuffer returns the framebuffer for an acquired image index. The
// pointer is valid only within the current generation.
func (s *Swapchain) Framebuffer(imageIndex int) *Framebuffer {
	return s.framebuffers[imageIndex]
}

// CommandBuffer returns the frame slot's command buffer, mainly for tests
// and diagnostics; recording goes through Record.
func (s *Swapchain) CommandBuffer(slot int) *CommandBuffer {
	return s.slots[slot].commands
}
