package vkr

import (
	"fmt"
)

// CommandBufferAllocator owns one command pool bound to one queue family and
// tracks the recording state of every buffer it hands out. All state
// transitions on a CommandBuffer flow through here (or through RenderPass
// bracketing); nothing else mutates them.
type CommandBufferAllocator struct {
	device      Device
	pool        CommandPoolHandle
	queue       QueueHandle
	queueFamily uint32
}

// NewCommandBufferAllocator creates the pool on the given queue family.
// Buffers allocated from it are submitted on queue.
func NewCommandBufferAllocator(device Device, queueFamily uint32, queue QueueHandle) (*CommandBufferAllocator, error) {
	pool, err := device.CreateCommandPool(queueFamily)
	if err != nil {
		return nil, fmt.Errorf("creating command pool: %w", err)
	}
	return &CommandBufferAllocator{
		device:      device,
		pool:        pool,
		queue:       queue,
		queueFamily: queueFamily,
	}, nil
}

// Queue returns the queue this allocator submits on.
func (a *CommandBufferAllocator) Queue() QueueHandle {
	return a.queue
}

// Destroy frees the pool and with it every buffer allocated from it.
func (a *CommandBufferAllocator) Destroy() {
	a.device.DestroyCommandPool(a.pool)
	a.pool = 0
}

// Allocate allocates count buffers at the primary or secondary level. The
// returned buffers start in state Ready.
func (a *CommandBufferAllocator) Allocate(count int, primary bool) ([]*CommandBuffer, error) {
	handles, err := a.device.AllocateCommandBuffers(a.pool, primary, count)
	if err != nil {
		return nil, fmt.Errorf("allocating %d command buffers: %w", count, err)
	}
	buffers := make([]*CommandBuffer, count)
	for i := range buffers {
		buffers[i] = &CommandBuffer{handle: handles[i], state: CommandBufferReady}
	}
	return buffers, nil
}

// AllocateOne allocates a single primary or secondary buffer.
func (a *CommandBufferAllocator) AllocateOne(primary bool) (*CommandBuffer, error) {
	buffers, err := a.Allocate(1, primary)
	if err != nil {
		return nil, err
	}
	return buffers[0], nil
}

// Free returns a buffer to the pool. Its handle is invalid afterwards.
func (a *CommandBufferAllocator) Free(cb *CommandBuffer) {
	a.device.FreeCommandBuffers(a.pool, []CommandBufferHandle{cb.handle})
	cb.handle = 0
	cb.state = CommandBufferNotAllocated
}

// Begin starts recording. The three booleans become the native usage flags:
// single-use buffers are invalid after one submission, render-pass-continue
// marks a secondary buffer living entirely inside a pass, simultaneous
// allows resubmission while still pending.
func (a *CommandBufferAllocator) Begin(cb *CommandBuffer, singleUse, renderPassContinue, simultaneous bool) error {
	if err := cb.beginRecording(); err != nil {
		return err
	}
	var flags CommandBufferUsage
	if singleUse {
		flags |= UsageOneTimeSubmit
	}
	if renderPassContinue {
		flags |= UsageRenderPassContinue
	}
	if simultaneous {
		flags |= UsageSimultaneousUse
	}
	if err := a.device.BeginCommandBuffer(cb.handle, flags); err != nil {
		cb.state = CommandBufferReady
		return fmt.Errorf("beginning command buffer: %w", err)
	}
	return nil
}

// End closes recording. Any render pass opened on the buffer must have been
// ended first.
func (a *CommandBufferAllocator) End(cb *CommandBuffer) error {
	if err := cb.endRecording(); err != nil {
		return err
	}
	if err := a.device.EndCommandBuffer(cb.handle); err != nil {
		cb.state = CommandBufferRecording
		return fmt.Errorf("ending command buffer: %w", err)
	}
	return nil
}

// MarkSubmitted records that the buffer was handed to the queue. The owner
// of the frame fence calls Reset once that fence is observed signaled.
func (a *CommandBufferAllocator) MarkSubmitted(cb *CommandBuffer) error {
	return cb.markSubmitted()
}

// Reset returns the buffer to Ready for re-recording. The caller must have
// observed the buffer's frame fence signaled first: the GPU may otherwise
// still be executing it.
func (a *CommandBufferAllocator) Reset(cb *CommandBuffer) error {
	if err := cb.resetState(); err != nil {
		return err
	}
	if err := a.device.ResetCommandBuffer(cb.handle); err != nil {
		return fmt.Errorf("resetting command buffer: %w", err)
	}
	return nil
}

// SubmitSingleUse allocates a one-shot primary buffer, records it through
// action, submits it on the pool's queue and blocks until the queue drains,
// then frees the buffer. It serializes the queue, so it is for setup-time
// transfer and layout-transition work only, never the frame loop.
func (a *CommandBufferAllocator) SubmitSingleUse(action func(cb *CommandBuffer) error) error {
	cb, err := a.AllocateOne(true)
	if err != nil {
		return err
	}
	defer a.Free(cb)

	if err := a.Begin(cb, true, false, false); err != nil {
		return err
	}
	if err := action(cb); err != nil {
		return err
	}
	if err := a.End(cb); err != nil {
		return err
	}

	submit := SubmitInfo{CommandBuffers: []CommandBufferHandle{cb.handle}}
	if err := a.device.Submit(a.queue, submit, 0); err != nil {
		return fmt.Errorf("submitting single-use command buffer: %w", err)
	}
	if err := cb.markSubmitted(); err != nil {
		return err
	}
	// No fence on the submit, so the queue drain is the completion signal.
	if err := a.device.QueueWaitIdle(a.queue); err != nil {
		return fmt.Errorf("waiting for single-use submission: %w", err)
	}
	return nil
}
