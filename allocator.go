package vkr

import (
	"fmt"
	"sync"
)

// Allocation is one region handed out by a MemoryAllocator. Offset and Size
// are in bytes from the start of the backing block.
type Allocation struct {
	Offset uint64
	Size   uint64
}

func (a *Allocation) String() string {
	return fmt.Sprintf("[%d %d]", a.Offset, a.Size)
}

// MemoryAllocator hands out regions of one fixed-size backing block using
// first-fit linear placement. It is a single shared instance guarded by a
// lock: creation and destruction of images can originate outside the frame
// loop's strict sequencing (setup code, texture loads, resize), so the
// allocator is passed explicitly to every component that allocates and never
// promoted to package state.
type MemoryAllocator struct {
	mu     sync.Mutex
	size   uint64
	allocs []*Allocation
}

// NewMemoryAllocator creates an allocator managing size bytes.
func NewMemoryAllocator(size uint64) *MemoryAllocator {
	return &MemoryAllocator{size: size}
}

// Size returns the total managed size in bytes.
func (p *MemoryAllocator) Size() uint64 {
	return p.size
}

func alignUp(a uint64, align uint64) uint64 {
	m := a % align
	if m == 0 {
		return a
	}
	return (a - m) + align
}

// Allocate reserves size bytes at the given alignment. The returned error
// wraps ErrAllocator when the block cannot satisfy the request.
func (p *MemoryAllocator) Allocate(size uint64, align uint64) (*Allocation, error) {
	if align == 0 {
		align = 1
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.allocs) == 0 {
		if size > p.size {
			return nil, fmt.Errorf("%w: %d bytes requested, %d managed", ErrAllocator, size, p.size)
		}
		na := &Allocation{Offset: 0, Size: size}
		p.allocs = append(p.allocs, na)
		return na, nil
	}

	// Head of the block.
	if p.allocs[0].Offset >= size {
		na := &Allocation{Offset: 0, Size: size}
		p.allocs = append([]*Allocation{na}, p.allocs...)
		return na, nil
	}

	// Gaps between neighbours.
	for i := 0; i+1 < len(p.allocs); i++ {
		c := p.allocs[i]
		n := p.allocs[i+1]

		l := alignUp(c.Offset+c.Size, align)
		if n.Offset >= l && n.Offset-l >= size {
			na := &Allocation{Offset: l, Size: size}
			p.allocs = append(p.allocs[:i+1], append([]*Allocation{na}, p.allocs[i+1:]...)...)
			return na, nil
		}
	}

	// Tail.
	last := p.allocs[len(p.allocs)-1]
	nl := alignUp(last.Offset+last.Size, align)
	if p.size >= nl && p.size-nl >= size {
		na := &Allocation{Offset: nl, Size: size}
		p.allocs = append(p.allocs, na)
		return na, nil
	}

	return nil, fmt.Errorf("%w: no region of %d bytes free", ErrAllocator, size)
}

// Free returns a region to the allocator. Freeing an allocation twice or
// freeing a region the allocator never handed out is a no-op.
func (p *MemoryAllocator) Free(fa *Allocation) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, a := range p.allocs {
		if a == fa {
			p.allocs = append(p.allocs[:i], p.allocs[i+1:]...)
			return
		}
	}
}

// InUse returns the number of live allocations.
func (p *MemoryAllocator) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.allocs)
}

func (p *MemoryAllocator) String() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fmt.Sprintf("%v", p.allocs)
}
