package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// FrameStatus represents where a frame sits in its review lifecycle.
// Transitions only move forward: draft -> in_review -> ready -> feedback -> archived.
type FrameStatus string

const (
	StatusDraft    FrameStatus = "draft"
	StatusInReview FrameStatus = "in_review"
	StatusReady    FrameStatus = "ready"
	StatusFeedback FrameStatus = "feedback"
	StatusArchived FrameStatus = "archived"
)

// FrameType determines which sections a frame carries. Immutable after creation.
type FrameType string

const (
	TypeBug         FrameType = "bug"
	TypeFeature     FrameType = "feature"
	TypeExploration FrameType = "exploration"
)

// Section identifiers as the backend reports them in coverage maps.
const (
	SectionProblemStatement   = "problem_statement"
	SectionRootCause          = "root_cause"
	SectionUserPerspective    = "user_perspective"
	SectionEngineeringFraming = "engineering_framing"
	SectionValidationThinking = "validation_thinking"
)

// FrameContent holds the free-text sections of a frame.
// RootCause is only populated for bug-type frames.
type FrameContent struct {
	ProblemStatement   string `json:"problemStatement,omitempty"`
	RootCause          string `json:"rootCause,omitempty"`
	UserPerspective    string `json:"userPerspective,omitempty"`
	EngineeringFraming string `json:"engineeringFraming,omitempty"`
	ValidationThinking string `json:"validationThinking,omitempty"`
}

// Merge returns a copy of c with the non-empty sections of updates applied.
// Empty fields in updates leave the existing section untouched, so partial
// edits never wipe content.
func (c FrameContent) Merge(updates FrameContent) FrameContent {
	out := c
	if updates.ProblemStatement != "" {
		out.ProblemStatement = updates.ProblemStatement
	}
	if updates.RootCause != "" {
		out.RootCause = updates.RootCause
	}
	if updates.UserPerspective != "" {
		out.UserPerspective = updates.UserPerspective
	}
	if updates.EngineeringFraming != "" {
		out.EngineeringFraming = updates.EngineeringFraming
	}
	if updates.ValidationThinking != "" {
		out.ValidationThinking = updates.ValidationThinking
	}
	return out
}

// IsEmpty reports whether no section has content yet.
func (c FrameContent) IsEmpty() bool {
	return c.ProblemStatement == "" && c.RootCause == "" && c.UserPerspective == "" &&
		c.EngineeringFraming == "" && c.ValidationThinking == ""
}

// Evaluation is the result of an AI quality pass over a frame.
// Only meaningful once the frame has left draft.
type Evaluation struct {
	Score       int            `json:"score" validate:"min=0,max=100"`
	Breakdown   map[string]int `json:"breakdown,omitempty"`
	Feedback    string         `json:"feedback,omitempty"`
	Issues      []string       `json:"issues,omitempty"`
	EvaluatedAt time.Time      `json:"evaluatedAt"`
}

// ReviewComment is a single reviewer remark tied to a section.
type ReviewComment struct {
	Section string `json:"section,omitempty"`
	Author  string `json:"author,omitempty"`
	Content string `json:"content"`
}

// Review holds the summarized outcome of a review discussion.
type Review struct {
	Summary        string          `json:"summary,omitempty"`
	Comments       []ReviewComment `json:"comments,omitempty"`
	Recommendation string          `json:"recommendation,omitempty"`
}

// FeedbackRecord captures the retrospective attached when a frame is archived.
// A frame carries one iff its status is archived.
type FeedbackRecord struct {
	Outcome           string          `json:"outcome" validate:"required"`
	Summary           string          `json:"summary,omitempty"`
	LessonsLearned    []string        `json:"lessonsLearned,omitempty"`
	AssumptionResults map[string]bool `json:"assumptionResults,omitempty"`
	SubmittedAt       time.Time       `json:"submittedAt"`
}

// Frame is a structured problem-framing document.
type Frame struct {
	ID         string          `json:"id" validate:"required"`
	Type       FrameType       `json:"type" validate:"required,oneof=bug feature exploration"`
	Status     FrameStatus     `json:"status" validate:"required,oneof=draft in_review ready feedback archived"`
	Owner      string          `json:"owner" validate:"required"`
	ProjectID  string          `json:"projectId,omitempty"`
	Reviewer   string          `json:"reviewer,omitempty"`
	Approver   string          `json:"approver,omitempty"`
	Content    FrameContent    `json:"content"`
	Evaluation *Evaluation     `json:"evaluation,omitempty"`
	Review     *Review         `json:"review,omitempty"`
	Feedback   *FeedbackRecord `json:"feedback,omitempty"`
	CreatedAt  time.Time       `json:"createdAt" validate:"required"`
	UpdatedAt  time.Time       `json:"updatedAt" validate:"required"`
}

// IsArchived reports whether the frame has completed its lifecycle.
func (f Frame) IsArchived() bool {
	return f.Status == StatusArchived
}

// NewFrame creates a draft frame owned by owner. The remote service is the
// authority on ids; this constructor is used by tests and offline seeding.
func NewFrame(id string, frameType FrameType, owner string) *Frame {
	now := time.Now().UTC()
	return &Frame{
		ID:        id,
		Type:      frameType,
		Status:    StatusDraft,
		Owner:     owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewFrameID generates a frame id of the form f-YYYY-MM-DD-xxxxxx.
func NewFrameID(at time.Time) string {
	return fmt.Sprintf("f-%s-%s", at.UTC().Format("2006-01-02"), uuid.New().String()[:6])
}

// global validator instance
var validate = validator.New()

// ValidateStruct performs validation on any struct that has validation tags.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	var msgs []string
	for _, e := range validationErrors {
		msgs = append(msgs, fmt.Sprintf("validation failed on field '%s': rule '%s' (value: '%v')", e.StructNamespace(), e.Tag(), e.Value()))
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}
