package vkr

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// deviceMemoryPool is one device-local vk.DeviceMemory block carved up by a
// MemoryAllocator. The allocator decides offsets; the pool owns the native
// block. One pool exists per allocator, created on first use and sized to
// the allocator, so every image the allocator backs binds into the same
// block at its allocation offset.
type deviceMemoryPool struct {
	memory     vk.DeviceMemory
	memoryType uint32
	size       uint64
}

// memoryPool returns the pool backing allocator, creating it on first use.
// typeBits comes from the first resource's memory requirements; later
// resources must be satisfiable by the same memory type.
func (d *VulkanDevice) memoryPool(allocator *MemoryAllocator, typeBits uint32) (*deviceMemoryPool, error) {
	d.mu.Lock()
	pool, ok := d.memoryPools[allocator]
	d.mu.Unlock()
	if ok {
		if typeBits&(1<<pool.memoryType) == 0 {
			return nil, fmt.Errorf("%w: resource cannot use pooled memory type %d", ErrAllocator, pool.memoryType)
		}
		return pool, nil
	}

	memoryType, err := d.findMemoryType(typeBits, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, err
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(allocator.Size()),
		MemoryTypeIndex: memoryType,
	}

	var memory vk.DeviceMemory
	if err := mapResult(vk.AllocateMemory(d.device, &allocateInfo, nil, &memory)); err != nil {
		return nil, fmt.Errorf("allocating %d byte memory pool: %w", allocator.Size(), err)
	}

	pool = &deviceMemoryPool{
		memory:     memory,
		memoryType: memoryType,
		size:       allocator.Size(),
	}

	d.mu.Lock()
	d.memoryPools[allocator] = pool
	d.mu.Unlock()
	return pool, nil
}

func (p *deviceMemoryPool) destroy(device vk.Device) {
	vk.FreeMemory(device, p.memory, nil)
	p.memory = vk.NullDeviceMemory
}

// findMemoryType locates a memory type satisfying both the resource's type
// bits and the requested properties.
func (d *VulkanDevice) findMemoryType(typeBits uint32, properties vk.MemoryPropertyFlags) (uint32, error) {
	var memProps vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(d.adapter.physical, &memProps)
	memProps.Deref()

	for i := uint32(0); i < memProps.MemoryTypeCount; i++ {
		memType := memProps.MemoryTypes[i]
		memType.Deref()
		if typeBits&(1<<i) != 0 &&
			vk.MemoryPropertyFlags(memType.PropertyFlags)&properties == properties {
			return i, nil
		}
	}
	return 0, fmt.Errorf("no memory type matches bits 0x%x with properties 0x%x: %w",
		typeBits, properties, ErrNotMeetRequirement)
}
