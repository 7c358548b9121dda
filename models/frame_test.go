package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameContent_MergeKeepsUntouchedSections(t *testing.T) {
	base := FrameContent{
		ProblemStatement: "Login fails",
		RootCause:        "encoding",
	}
	merged := base.Merge(FrameContent{
		RootCause:          "password encoding regression",
		ValidationThinking: "check auth logs",
	})

	assert.Equal(t, "Login fails", merged.ProblemStatement)
	assert.Equal(t, "password encoding regression", merged.RootCause)
	assert.Equal(t, "check auth logs", merged.ValidationThinking)
	// The receiver is untouched.
	assert.Equal(t, "encoding", base.RootCause)
}

func TestFrameContent_MergeEmptyUpdatesIsIdentity(t *testing.T) {
	base := FrameContent{ProblemStatement: "Login fails"}
	assert.Equal(t, base, base.Merge(FrameContent{}))
}

func TestFrameContent_IsEmpty(t *testing.T) {
	assert.True(t, FrameContent{}.IsEmpty())
	assert.False(t, FrameContent{UserPerspective: "users are blocked"}.IsEmpty())
}

func TestNewFrame_Defaults(t *testing.T) {
	frame := NewFrame("f-2026-08-30-abc123", TypeBug, "ada")
	assert.Equal(t, StatusDraft, frame.Status)
	assert.Equal(t, "ada", frame.Owner)
	assert.False(t, frame.CreatedAt.IsZero())
	assert.False(t, frame.IsArchived())
	require.NoError(t, ValidateStruct(frame))
}

func TestValidateStruct_RejectsUnknownEnumValues(t *testing.T) {
	frame := NewFrame("f-1", TypeBug, "ada")
	frame.Status = FrameStatus("resolved")
	err := ValidateStruct(frame)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Status")

	frame = NewFrame("f-1", FrameType("epic"), "ada")
	assert.Error(t, ValidateStruct(frame))
}

func TestNewFrameID_Shape(t *testing.T) {
	at := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	id := NewFrameID(at)
	assert.Regexp(t, `^f-2026-08-30-[0-9a-f-]{6}$`, id)
	assert.NotEqual(t, id, NewFrameID(at))
}
