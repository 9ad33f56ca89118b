package vkr

// Swapchain property selection. Pure decisions over the surface's reported
// capabilities, kept free of device calls so they hold under test exactly as
// they run in production.

// chooseSurfaceFormat prefers the widely supported BGRA8-unorm /
// sRGB-nonlinear pair; when the surface does not offer it the first reported
// format wins. First match wins, so the result does not depend on the
// ordering of the rest of the list.
func chooseSurfaceFormat(formats []SurfaceFormat) SurfaceFormat {
	for _, f := range formats {
		if f.Format == FormatB8G8R8A8Unorm && f.ColorSpace == ColorSpaceSRGBNonlinear {
			return f
		}
	}
	return formats[0]
}

// choosePresentMode picks mailbox when offered: tear-free and low latency.
// When mailbox is missing and the caller prefers latency over tear-freedom,
// immediate is the second choice. FIFO is the only mode every implementation
// must support, so it is the fallback.
func choosePresentMode(modes []PresentMode, preferLowLatency bool) PresentMode {
	best := PresentModeFifo
	for _, m := range modes {
		if m == PresentModeMailbox {
			return m
		}
		if m == PresentModeImmediate && preferLowLatency {
			best = PresentModeImmediate
		}
	}
	return best
}

// chooseExtent resolves the swapchain extent. A surface with a fixed current
// extent dictates it verbatim; the undefined sentinel means the window
// system leaves it to us, in which case the requested dimensions are clamped
// componentwise into the supported range.
func chooseExtent(caps SurfaceCapabilities, requested Extent2D) Extent2D {
	if caps.CurrentExtent.Width != ExtentUndefined {
		return caps.CurrentExtent
	}
	return Extent2D{
		Width:  clampU32(requested.Width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clampU32(requested.Height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// chooseImageCount asks for one image more than the driver minimum so
// acquire does not serialize on the presentation engine, never fewer than
// the frames we keep in flight, and never more than the surface allows
// (max of zero meaning unbounded).
func chooseImageCount(caps SurfaceCapabilities, maxFramesInFlight int) uint32 {
	count := caps.MinImageCount + 1
	if c := uint32(maxFramesInFlight); count < c {
		count = c
	}
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

func clampU32(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
