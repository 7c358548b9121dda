package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ConversationStatus tracks the lifecycle of an authoring session.
type ConversationStatus string

const (
	ConversationActive      ConversationStatus = "active"
	ConversationSynthesized ConversationStatus = "synthesized"
	ConversationAbandoned   ConversationStatus = "abandoned"
)

// ConversationPurpose distinguishes sessions that author a frame from
// sessions that discuss an existing one without mutating it.
type ConversationPurpose string

const (
	PurposeAuthoring ConversationPurpose = "authoring"
	PurposeReview    ConversationPurpose = "review"
)

// MessageRole is the author of a conversation message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// MessageStatus marks whether a message made it to the backend.
type MessageStatus string

const (
	MessageOK     MessageStatus = "ok"
	MessageFailed MessageStatus = "failed"
)

// Message is a single entry in a conversation log. The log is append-only
// except that a failed message is removed when it is retried.
type Message struct {
	ID         string        `json:"id" validate:"required"`
	Role       MessageRole   `json:"role" validate:"required,oneof=user assistant"`
	Content    string        `json:"content"`
	Timestamp  time.Time     `json:"timestamp"`
	SenderName string        `json:"senderName,omitempty"`
	Status     MessageStatus `json:"status,omitempty"`
}

// ConversationState is the coverage snapshot the backend derives from the
// message log. It is replaced wholesale after every successful exchange.
type ConversationState struct {
	FrameType         string             `json:"frameType,omitempty"`
	SectionsCovered   map[string]float64 `json:"sectionsCovered"`
	Gaps              []string           `json:"gaps,omitempty"`
	ReadyToSynthesize bool               `json:"readyToSynthesize"`
}

// NewConversationState returns a zeroed coverage snapshot over all sections.
func NewConversationState() ConversationState {
	return ConversationState{
		SectionsCovered: map[string]float64{
			SectionProblemStatement:   0,
			SectionRootCause:          0,
			SectionUserPerspective:    0,
			SectionEngineeringFraming: 0,
			SectionValidationThinking: 0,
		},
	}
}

// Clone returns a deep copy the caller can mutate freely.
func (s ConversationState) Clone() ConversationState {
	out := s
	if s.SectionsCovered != nil {
		out.SectionsCovered = make(map[string]float64, len(s.SectionsCovered))
		for section, ratio := range s.SectionsCovered {
			out.SectionsCovered[section] = ratio
		}
	}
	out.Gaps = append([]string(nil), s.Gaps...)
	return out
}

// Conversation is an ephemeral authoring session. It references a frame by
// id only; it never holds a Frame object.
type Conversation struct {
	ID        string              `json:"id" validate:"required"`
	Owner     string              `json:"owner" validate:"required"`
	FrameID   string              `json:"frameId,omitempty"`
	ProjectID string              `json:"projectId,omitempty"`
	Purpose   ConversationPurpose `json:"purpose" validate:"required,oneof=authoring review"`
	Status    ConversationStatus  `json:"status" validate:"required,oneof=active synthesized abandoned"`
	Messages  []Message           `json:"messages,omitempty"`
	State     ConversationState   `json:"state"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

// MessageByID returns the index of the message with the given id, or -1.
func (c *Conversation) MessageByID(id string) int {
	for i := range c.Messages {
		if c.Messages[i].ID == id {
			return i
		}
	}
	return -1
}

// NewConversationID generates a conversation id of the form conv-YYYY-MM-DD-xxxxxx.
func NewConversationID(at time.Time) string {
	return fmt.Sprintf("conv-%s-%s", at.UTC().Format("2006-01-02"), uuid.New().String()[:6])
}

// KnowledgeHit is a retrieved knowledge snippet the backend found relevant
// to the latest user message.
type KnowledgeHit struct {
	ID      string  `json:"id,omitempty"`
	Content string  `json:"content"`
	Source  string  `json:"source,omitempty"`
	Score   float64 `json:"score,omitempty"`
}
