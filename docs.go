/*
Package vkr implements the presentation core of a small Vulkan renderer: the
swapchain lifecycle and the per-frame CPU/GPU synchronization pipeline around
it.

Vulkan hands the application full responsibility for keeping the CPU and the
GPU timelines coordinated. The pieces that actually go wrong in practice are
all concentrated in one place: acquiring presentable images, keeping several
frames in flight behind fences and semaphores, reusing command buffers only
after the GPU is provably done with them, and surviving a window resize or a
lost surface by tearing the whole chain down and rebuilding it. This package
owns exactly that part and nothing else.

The Swapchain is the orchestrator. It owns the presentable image chain, one
image view and framebuffer per image, a shared depth attachment, a render
pass, and one command buffer plus one fence/semaphore pair per frame slot. A
frame is driven as BeginFrame (wait the slot fence, acquire an image), Record
(the application's draw callback bracketed by the render pass) and Present
(submit with the slot's semaphores, present, advance the slot index). When
acquire or present reports the surface is out of date the condition is
returned to the frame driver, which recreates the swapchain with the last
known extent; the previous native swapchain is handed to the new one as a
reuse hint and destroyed only after its replacement exists.

The core talks to the GPU exclusively through the Device and Surface
interfaces. The production implementation in this package wraps
github.com/vulkan-go/vulkan and keeps its native objects in a private handle
table, so no component can cache a raw Vulkan handle across a recreation.
Tests drive the same core with an in-memory device.

Everything here assumes a single frame-loop goroutine. The only concurrency
is between that goroutine and the GPU itself, mediated by the fences and
semaphores; the shared memory allocator is mutex-guarded because setup-time
loaders may allocate outside the frame loop.
*/
package vkr
