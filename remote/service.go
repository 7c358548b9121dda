// Package remote contains the HTTP clients for the two external
// collaborators of the coordination core: the frame record store and the
// conversation coach. Both are reached through the same Framer backend.
package remote

import (
	"context"

	"github.com/framerhq/framer/models"
)

// MessageResult is the paired outcome of a message exchange: the confirmed
// user message, the assistant reply, the recomputed coverage snapshot, and
// any knowledge snippets the backend retrieved for context.
type MessageResult struct {
	Message           models.Message
	AIResponse        models.Message
	State             models.ConversationState
	RelevantKnowledge []models.KnowledgeHit
}

// SynthesisResult is the outcome of committing a conversation into a frame.
type SynthesisResult struct {
	FrameID string
	Content models.FrameContent
}

// ReviewSummary is the outcome of summarizing a review discussion.
type ReviewSummary struct {
	Summary        string
	Comments       []models.ReviewComment
	Recommendation string
}

// StartConversationRequest creates a new authoring or review session.
type StartConversationRequest struct {
	Owner     string
	Purpose   models.ConversationPurpose
	FrameID   string
	ProjectID string
}

// MessageRequest is a single user turn in a conversation.
type MessageRequest struct {
	Content    string
	SenderName string
	Language   string
}

// ConversationService defines the interface for the remote conversation
// collaborator. Implementations must be safe for concurrent use; the
// engine serializes calls per conversation itself.
type ConversationService interface {
	// Start creates a conversation and returns it with an empty log and a
	// zeroed coverage snapshot.
	Start(ctx context.Context, req StartConversationRequest) (models.Conversation, error)

	// Message appends a user message, runs the coach, and returns the
	// confirmed pair plus the updated coverage state.
	Message(ctx context.Context, conversationID string, req MessageRequest) (MessageResult, error)

	// Preview returns a non-persisted synthesis of the conversation so far.
	Preview(ctx context.Context, conversationID string) (models.FrameContent, error)

	// Synthesize commits the conversation into a frame. Passing non-nil
	// content skips regeneration on the backend.
	Synthesize(ctx context.Context, conversationID string, content *models.FrameContent) (SynthesisResult, error)

	// SummarizeReview condenses a review discussion. Review-purpose only.
	SummarizeReview(ctx context.Context, conversationID string) (ReviewSummary, error)
}

// CreateFrameRequest creates a new draft frame.
type CreateFrameRequest struct {
	Type      models.FrameType
	Owner     string
	ProjectID string
	Content   *models.FrameContent
}

// MetaUpdate assigns review roles on a frame. Nil fields are left untouched.
type MetaUpdate struct {
	Reviewer *string
	Approver *string
}

// FrameService defines the interface for the remote frame record store.
type FrameService interface {
	Create(ctx context.Context, req CreateFrameRequest) (models.Frame, error)
	Get(ctx context.Context, id string) (models.Frame, error)
	List(ctx context.Context, owner string) ([]models.Frame, error)
	UpdateContent(ctx context.Context, id string, content models.FrameContent) (models.Frame, error)
	UpdateStatus(ctx context.Context, id string, status models.FrameStatus) (models.Frame, error)
	UpdateMeta(ctx context.Context, id string, update MetaUpdate) (models.Frame, error)
	SubmitFeedback(ctx context.Context, id string, record models.FeedbackRecord) error
	Evaluate(ctx context.Context, id string) (models.Evaluation, error)
	Delete(ctx context.Context, id string) error
}
