package vkr

import (
	"fmt"
	"log"

	vk "github.com/vulkan-go/vulkan"
)

// InstanceOptions names the application to the driver and lists the layers
// and extensions to enable. Extensions required by the windowing system
// (glfw.GetRequiredInstanceExtensions) must be included by the caller.
type InstanceOptions struct {
	AppName           string
	EngineName        string
	EnabledLayers     []string
	EnabledExtensions []string
}

// Instance wraps the Vulkan instance. One per process.
type Instance struct {
	vkInstance vk.Instance
}

// NewInstance creates the Vulkan instance. vk.Init (or the glfw proc-addr
// handoff) must have happened first.
func NewInstance(opts InstanceOptions) (*Instance, error) {
	appInfo := vk.ApplicationInfo{
		SType:            vk.StructureTypeApplicationInfo,
		ApiVersion:       vk.MakeVersion(1, 0, 0),
		PApplicationName: safeString(opts.AppName),
		PEngineName:      safeString(opts.EngineName),
	}

	extensions := safeStrings(opts.EnabledExtensions)
	layers := safeStrings(opts.EnabledLayers)

	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     layers,
	}

	inst := &Instance{}
	if err := mapResult(vk.CreateInstance(&createInfo, nil, &inst.vkInstance)); err != nil {
		return nil, fmt.Errorf("creating instance: %w", err)
	}
	vk.InitInstance(inst.vkInstance)
	return inst, nil
}

// VK returns the native instance, needed for window-surface creation.
func (i *Instance) VK() vk.Instance {
	return i.vkInstance
}

func (i *Instance) Destroy() {
	vk.DestroyInstance(i.vkInstance, nil)
}

// SupportedLayers enumerates the instance layers the loader offers.
func SupportedLayers() ([]string, error) {
	var count uint32
	if err := mapResult(vk.EnumerateInstanceLayerProperties(&count, nil)); err != nil {
		return nil, err
	}
	props := make([]vk.LayerProperties, count)
	if err := mapResult(vk.EnumerateInstanceLayerProperties(&count, props)); err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for _, p := range props {
		p.Deref()
		names = append(names, vk.ToString(p.LayerName[:]))
	}
	return names, nil
}

// adapter is a physical device together with the queue families usable for
// this surface.
type adapter struct {
	physical       vk.PhysicalDevice
	name           string
	graphicsFamily uint32
	presentFamily  uint32
}

// selectAdapter picks the first physical device that has a graphics queue, a
// queue able to present to surface and the swapchain extension. Failing
// every device is an ErrNotMeetRequirement, reported once at startup, never
// per frame.
func selectAdapter(instance *Instance, surface vk.Surface) (adapter, error) {
	var none adapter

	var deviceCount uint32
	if err := mapResult(vk.EnumeratePhysicalDevices(instance.vkInstance, &deviceCount, nil)); err != nil {
		return none, fmt.Errorf("enumerating physical devices: %w", err)
	}
	if deviceCount == 0 {
		return none, fmt.Errorf("no physical devices present: %w", ErrNotMeetRequirement)
	}
	devices := make([]vk.PhysicalDevice, deviceCount)
	if err := mapResult(vk.EnumeratePhysicalDevices(instance.vkInstance, &deviceCount, devices)); err != nil {
		return none, fmt.Errorf("enumerating physical devices: %w", err)
	}

	for _, device := range devices {
		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(device, &props)
		props.Deref()
		name := vk.ToString(props.DeviceName[:])

		if !hasSwapchainExtension(device) {
			continue
		}

		graphics, present, ok := findQueueFamilies(device, surface)
		if !ok {
			continue
		}

		log.Printf("vkr: using adapter %q (graphics family %d, present family %d)", name, graphics, present)
		return adapter{
			physical:       device,
			name:           name,
			graphicsFamily: graphics,
			presentFamily:  present,
		}, nil
	}

	return none, fmt.Errorf("no adapter supports graphics, presentation and swapchains: %w", ErrNotMeetRequirement)
}

func hasSwapchainExtension(device vk.PhysicalDevice) bool {
	var count uint32
	if vk.EnumerateDeviceExtensionProperties(device, "", &count, nil) != vk.Success {
		return false
	}
	props := make([]vk.ExtensionProperties, count)
	if vk.EnumerateDeviceExtensionProperties(device, "", &count, props) != vk.Success {
		return false
	}
	for _, p := range props {
		p.Deref()
		if vk.ToString(p.ExtensionName[:]) == "VK_KHR_swapchain" {
			return true
		}
	}
	return false
}

// findQueueFamilies returns the graphics and present family indices,
// preferring a single family that does both.
func findQueueFamilies(device vk.PhysicalDevice, surface vk.Surface) (graphics, present uint32, ok bool) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &count, nil)
	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &count, families)

	haveGraphics, havePresent := false, false
	for i, family := range families {
		family.Deref()
		isGraphics := family.QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0

		var supportsPresent vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), surface, &supportsPresent)
		isPresent := supportsPresent == vk.True

		if isGraphics && isPresent {
			return uint32(i), uint32(i), true
		}
		if isGraphics && !haveGraphics {
			graphics, haveGraphics = uint32(i), true
		}
		if isPresent && !havePresent {
			present, havePresent = uint32(i), true
		}
	}
	return graphics, present, haveGraphics && havePresent
}

var end = "\x00"

func safeString(s string) string {
	if len(s) == 0 {
		return end
	}
	if s[len(s)-1] != '\x00' {
		return s + end
	}
	return s
}

func safeStrings(list []string) []string {
	out := make([]string, len(list))
	for i := range list {
		out[i] = safeString(list[i])
	}
	return out
}
