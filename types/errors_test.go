package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServiceError_Message(t *testing.T) {
	err := NewServiceError(KindNotFound, "frame.get", "frame not found", nil)
	assert.Contains(t, err.Error(), "frame.get")
	assert.Contains(t, err.Error(), "frame not found")

	wrapped := NewServiceError(KindUnavailable, "frame.list", "", errors.New("connection refused"))
	assert.Contains(t, wrapped.Error(), "connection refused")
}

func TestServiceError_Unwrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := NewServiceError(KindUnavailable, "conversation.message", "backend unreachable", cause)
	assert.ErrorIs(t, err, cause)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindRejected, KindOf(NewServiceError(KindRejected, "op", "", nil)))
	assert.Equal(t, KindNotFound, KindOf(fmt.Errorf("wrapped: %w", NewServiceError(KindNotFound, "op", "", nil))))
	assert.Equal(t, KindUnavailable, KindOf(errors.New("plain transport error")))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(NewServiceError(KindNotFound, "frame.delete", "gone", nil)))
	assert.False(t, IsNotFound(NewServiceError(KindUnavailable, "frame.delete", "", nil)))
	assert.False(t, IsNotFound(errors.New("not found")))
}
