package vkr

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRecoverable(t *testing.T) {
	assert.True(t, IsRecoverable(ErrSurfaceOutOfDate))
	assert.True(t, IsRecoverable(fmt.Errorf("presenting image 1: %w", ErrSurfaceOutOfDate)))

	assert.False(t, IsRecoverable(ErrSurfaceLost))
	assert.False(t, IsRecoverable(ErrDeviceLost))
	assert.False(t, IsRecoverable(ErrOutOfMemory))
	assert.False(t, IsRecoverable(nil))
}

func TestStateErrorMessage(t *testing.T) {
	err := &StateError{Object: "CommandBuffer", Op: "End", State: "Ready"}
	assert.Equal(t, "vkr: CommandBuffer.End called in state Ready", err.Error())
}
