package vkr

import (
	vk "github.com/vulkan-go/vulkan"
)

// VulkanSurface implements Surface over a window surface, re-querying the
// physical device on every call since capabilities change with the window.
// Build one with VulkanDevice.WrapSurface.
type VulkanSurface struct {
	physical vk.PhysicalDevice
	surface  vk.Surface
	handle   SurfaceHandle
}

var _ Surface = (*VulkanSurface)(nil)

func (s *VulkanSurface) Handle() SurfaceHandle {
	return s.handle
}

func (s *VulkanSurface) Capabilities() (SurfaceCapabilities, error) {
	var caps vk.SurfaceCapabilities
	if err := mapResult(vk.GetPhysicalDeviceSurfaceCapabilities(s.physical, s.surface, &caps)); err != nil {
		return SurfaceCapabilities{}, err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()

	return SurfaceCapabilities{
		MinImageCount:    caps.MinImageCount,
		MaxImageCount:    caps.MaxImageCount,
		CurrentExtent:    Extent2D{Width: caps.CurrentExtent.Width, Height: caps.CurrentExtent.Height},
		MinImageExtent:   Extent2D{Width: caps.MinImageExtent.Width, Height: caps.MinImageExtent.Height},
		MaxImageExtent:   Extent2D{Width: caps.MaxImageExtent.Width, Height: caps.MaxImageExtent.Height},
		CurrentTransform: uint32(caps.CurrentTransform),
	}, nil
}

func (s *VulkanSurface) Formats() ([]SurfaceFormat, error) {
	var count uint32
	if err := mapResult(vk.GetPhysicalDeviceSurfaceFormats(s.physical, s.surface, &count, nil)); err != nil {
		return nil, err
	}
	native := make([]vk.SurfaceFormat, count)
	if err := mapResult(vk.GetPhysicalDeviceSurfaceFormats(s.physical, s.surface, &count, native)); err != nil {
		return nil, err
	}

	formats := make([]SurfaceFormat, count)
	for i, f := range native {
		f.Deref()
		formats[i] = SurfaceFormat{
			Format:     Format(f.Format),
			ColorSpace: ColorSpace(f.ColorSpace),
		}
	}
	return formats, nil
}

func (s *VulkanSurface) PresentModes() ([]PresentMode, error) {
	var count uint32
	if err := mapResult(vk.GetPhysicalDeviceSurfacePresentModes(s.physical, s.surface, &count, nil)); err != nil {
		return nil, err
	}
	native := make([]vk.PresentMode, count)
	if err := mapResult(vk.GetPhysicalDeviceSurfacePresentModes(s.physical, s.surface, &count, native)); err != nil {
		return nil, err
	}

	modes := make([]PresentMode, count)
	for i, m := range native {
		modes[i] = PresentMode(m)
	}
	return modes, nil
}

// DestroySurface releases the native window surface. Callers destroy the
// swapchain first and the instance after.
func (s *VulkanSurface) DestroySurface(instance *Instance) {
	vk.DestroySurface(instance.vkInstance, s.surface, nil)
}
