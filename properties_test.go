package vkr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChooseSurfaceFormatPrefersBGRA8(t *testing.T) {
	formats := []SurfaceFormat{
		{Format: FormatR8G8B8A8Unorm, ColorSpace: ColorSpaceSRGBNonlinear},
		{Format: FormatB8G8R8A8Unorm, ColorSpace: ColorSpaceSRGBNonlinear},
		{Format: FormatB8G8R8A8SRGB, ColorSpace: ColorSpaceSRGBNonlinear},
	}

	got := chooseSurfaceFormat(formats)
	assert.Equal(t, FormatB8G8R8A8Unorm, got.Format)
	assert.Equal(t, ColorSpaceSRGBNonlinear, got.ColorSpace)
}

func TestChooseSurfaceFormatFallsBackToFirst(t *testing.T) {
	formats := []SurfaceFormat{
		{Format: FormatR8G8B8A8Unorm, ColorSpace: ColorSpaceSRGBNonlinear},
		{Format: FormatB8G8R8A8SRGB, ColorSpace: ColorSpaceSRGBNonlinear},
	}

	got := chooseSurfaceFormat(formats)
	assert.Equal(t, formats[0], got)
}

func TestChooseSurfaceFormatIgnoresTrailingOrder(t *testing.T) {
	a := []SurfaceFormat{
		{Format: FormatB8G8R8A8Unorm, ColorSpace: ColorSpaceSRGBNonlinear},
		{Format: FormatR8G8B8A8Unorm, ColorSpace: ColorSpaceSRGBNonlinear},
	}
	b := []SurfaceFormat{a[0], {Format: FormatB8G8R8A8SRGB, ColorSpace: ColorSpaceSRGBNonlinear}, a[1]}

	assert.Equal(t, chooseSurfaceFormat(a), chooseSurfaceFormat(b))
}

func TestChoosePresentModeMailboxWins(t *testing.T) {
	modes := []PresentMode{PresentModeFifo, PresentModeImmediate, PresentModeMailbox}

	assert.Equal(t, PresentModeMailbox, choosePresentMode(modes, false))
	assert.Equal(t, PresentModeMailbox, choosePresentMode(modes, true))
}

func TestChoosePresentModeImmediateOnlyWhenLowLatency(t *testing.T) {
	modes := []PresentMode{PresentModeFifo, PresentModeImmediate}

	assert.Equal(t, PresentModeFifo, choosePresentMode(modes, false))
	assert.Equal(t, PresentModeImmediate, choosePresentMode(modes, true))
}

func TestChoosePresentModeFifoFallback(t *testing.T) {
	assert.Equal(t, PresentModeFifo, choosePresentMode([]PresentMode{PresentModeFifo}, true))
}

func TestChooseExtentFixedCurrentExtentWins(t *testing.T) {
	caps := SurfaceCapabilities{
		CurrentExtent:  Extent2D{Width: 1024, Height: 768},
		MinImageExtent: Extent2D{Width: 1, Height: 1},
		MaxImageExtent: Extent2D{Width: 4096, Height: 4096},
	}

	got := chooseExtent(caps, Extent2D{Width: 333, Height: 444})
	assert.Equal(t, Extent2D{Width: 1024, Height: 768}, got)
}

func TestChooseExtentClampsWhenUndefined(t *testing.T) {
	caps := SurfaceCapabilities{
		CurrentExtent:  Extent2D{Width: ExtentUndefined, Height: ExtentUndefined},
		MinImageExtent: Extent2D{Width: 100, Height: 100},
		MaxImageExtent: Extent2D{Width: 2000, Height: 2000},
	}

	assert.Equal(t, Extent2D{Width: 800, Height: 600},
		chooseExtent(caps, Extent2D{Width: 800, Height: 600}))
	assert.Equal(t, Extent2D{Width: 100, Height: 100},
		chooseExtent(caps, Extent2D{Width: 10, Height: 10}))
	assert.Equal(t, Extent2D{Width: 2000, Height: 2000},
		chooseExtent(caps, Extent2D{Width: 9999, Height: 9999}))
}

func TestChooseImageCount(t *testing.T) {
	// One more than the driver minimum.
	caps := SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 8}
	assert.Equal(t, uint32(3), chooseImageCount(caps, 2))

	// Never fewer than the frames kept in flight.
	assert.Equal(t, uint32(5), chooseImageCount(caps, 5))

	// Clamped to the surface maximum when it has one.
	caps.MaxImageCount = 3
	assert.Equal(t, uint32(3), chooseImageCount(caps, 5))

	// Max of zero means unbounded.
	caps.MaxImageCount = 0
	assert.Equal(t, uint32(6), chooseImageCount(caps, 6))
}
