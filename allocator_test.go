package vkr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocatorFirstFit(t *testing.T) {
	p := NewMemoryAllocator(100)

	a1, err := p.Allocate(10, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), a1.Offset)

	a2, err := p.Allocate(10, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), a2.Offset)

	a3, err := p.Allocate(10, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), a3.Offset)

	// Freeing the middle region opens a gap that the next fitting request
	// reuses.
	p.Free(a2)
	a4, err := p.Allocate(10, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), a4.Offset)

	assert.Equal(t, 3, p.InUse())
}

func TestAllocatorAlignment(t *testing.T) {
	p := NewMemoryAllocator(1024)

	a1, err := p.Allocate(10, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), a1.Offset)

	a2, err := p.Allocate(10, 256)
	require.NoError(t, err)
	assert.Equal(t, uint64(256), a2.Offset)
}

func TestAllocatorExhaustion(t *testing.T) {
	p := NewMemoryAllocator(64)

	_, err := p.Allocate(100, 1)
	assert.ErrorIs(t, err, ErrAllocator)

	a, err := p.Allocate(64, 1)
	require.NoError(t, err)

	_, err = p.Allocate(1, 1)
	assert.ErrorIs(t, err, ErrAllocator)

	// Everything is reusable once freed.
	p.Free(a)
	_, err = p.Allocate(64, 1)
	assert.NoError(t, err)
}

func TestAllocatorDoubleFreeIsNoop(t *testing.T) {
	p := NewMemoryAllocator(100)

	a1, err := p.Allocate(10, 1)
	require.NoError(t, err)
	a2, err := p.Allocate(10, 1)
	require.NoError(t, err)

	p.Free(a1)
	p.Free(a1)
	assert.Equal(t, 1, p.InUse())

	p.Free(a2)
	assert.Equal(t, 0, p.InUse())
}

func TestAllocatorHeadReuse(t *testing.T) {
	p := NewMemoryAllocator(100)

	a1, err := p.Allocate(20, 1)
	require.NoError(t, err)
	_, err = p.Allocate(20, 1)
	require.NoError(t, err)

	p.Free(a1)

	a3, err := p.Allocate(15, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), a3.Offset)
}
