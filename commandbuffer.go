package vkr

// CommandBufferState tags where a command buffer is in its recording cycle.
// The legal cycle is
//
//	Ready → Recording → (InRenderPass → Recording)* → RecordingEnded → Submitted → (reset) → Ready
//
// Transitions happen only through CommandBufferAllocator and RenderPass
// operations; an out-of-order call is a programmer error reported as a
// *StateError, never silently accepted.
type CommandBufferState int

const (
	CommandBufferNotAllocated CommandBufferState = iota
	CommandBufferReady
	CommandBufferRecording
	CommandBufferInRenderPass
	CommandBufferRecordingEnded
	CommandBufferSubmitted
)

func (s CommandBufferState) String() string {
	switch s {
	case CommandBufferNotAllocated:
		return "NotAllocated"
	case CommandBufferReady:
		return "Ready"
	case CommandBufferRecording:
		return "Recording"
	case CommandBufferInRenderPass:
		return "InRenderPass"
	case CommandBufferRecordingEnded:
		return "RecordingEnded"
	case CommandBufferSubmitted:
		return "Submitted"
	}
	return "Unknown"
}

// CommandBuffer wraps a native command buffer handle together with its
// recording state.
type CommandBuffer struct {
	handle CommandBufferHandle
	state  CommandBufferState
}

// Handle returns the native handle for submission and recording calls.
func (c *CommandBuffer) Handle() CommandBufferHandle {
	return c.handle
}

// State returns the current recording state.
func (c *CommandBuffer) State() CommandBufferState {
	return c.state
}

func (c *CommandBuffer) stateError(op string) error {
	return &StateError{Object: "CommandBuffer", Op: op, State: c.state.String()}
}

func (c *CommandBuffer) beginRecording() error {
	if c.state != CommandBufferReady {
		return c.stateError("Begin")
	}
	c.state = CommandBufferRecording
	return nil
}

func (c *CommandBuffer) enterRenderPass() error {
	if c.state != CommandBufferRecording {
		return c.stateError("BeginRenderPass")
	}
	c.state = CommandBufferInRenderPass
	return nil
}

func (c *CommandBuffer) leaveRenderPass() error {
	if c.state != CommandBufferInRenderPass {
		return c.stateError("EndRenderPass")
	}
	c.state = CommandBufferRecording
	return nil
}

func (c *CommandBuffer) endRecording() error {
	if c.state != CommandBufferRecording {
		return c.stateError("End")
	}
	c.state = CommandBufferRecordingEnded
	return nil
}

func (c *CommandBuffer) markSubmitted() error {
	if c.state != CommandBufferRecordingEnded {
		return c.stateError("Submit")
	}
	c.state = CommandBufferSubmitted
	return nil
}

// resetState is legal from any state where the GPU cannot still be reading
// the buffer: the caller guarantees the associated fence was observed
// signaled before resetting a Submitted buffer.
func (c *CommandBuffer) resetState() error {
	switch c.state {
	case CommandBufferReady, CommandBufferRecordingEnded, CommandBufferSubmitted:
		c.state = CommandBufferReady
		return nil
	}
	return c.stateError("Reset")
}
