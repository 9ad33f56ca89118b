package vkr

import (
	"errors"
	"fmt"
)

// Device errors. Everything except ErrSurfaceOutOfDate is fatal to the
// current swapchain generation; see the package documentation for the
// propagation policy.
var (
	// ErrOutOfMemory is returned when the driver reports host or device
	// memory exhaustion.
	ErrOutOfMemory = errors.New("vkr: out of memory")

	// ErrDeviceLost is returned when the logical or physical device has been
	// lost. No recovery is attempted; the caller owns the decision to tear
	// the whole context down.
	ErrDeviceLost = errors.New("vkr: device lost")

	// ErrNotMeetRequirement is returned at adapter-selection time when no
	// physical device satisfies the caller's requirements. It is never
	// produced per-frame.
	ErrNotMeetRequirement = errors.New("vkr: no device meets requirements")

	// ErrAllocator is returned when the shared memory allocator cannot
	// satisfy a request.
	ErrAllocator = errors.New("vkr: allocator failure")

	// ErrDeviceOther covers driver results this package has no dedicated
	// mapping for.
	ErrDeviceOther = errors.New("vkr: device error")
)

// Surface errors.
var (
	// ErrSurfaceOutOfDate means the surface has changed incompatibly and the
	// swapchain must be recreated before further presentation. It is the one
	// expected, recoverable per-frame error: the frame is abandoned and the
	// frame driver triggers recreation.
	ErrSurfaceOutOfDate = errors.New("vkr: surface out of date")

	// ErrSurfaceLost means the surface is gone for good. Fatal.
	ErrSurfaceLost = errors.New("vkr: surface lost")
)

// IsRecoverable reports whether err is a condition the frame driver handles
// by recreating the swapchain rather than propagating.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrSurfaceOutOfDate)
}

// StateError reports an illegal transition on a state-machine type. It is a
// programmer error, not a driver condition.
type StateError struct {
	Object string
	Op     string
	State  string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("vkr: %s.%s called in state %s", e.Object, e.Op, e.State)
}
