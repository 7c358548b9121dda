// Package engine owns the active conversation: it mediates every message
// send, retry, preview, and synthesis request against the remote
// conversation service and keeps the local log, coverage state, and
// preview cache consistent with it.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/framerhq/framer/internal/syncx"
	"github.com/framerhq/framer/internal/telemetry"
	"github.com/framerhq/framer/models"
	"github.com/framerhq/framer/remote"
	"github.com/framerhq/framer/types"
)

// ErrNoActiveConversation is returned by operations that require a session
// when none has been started. Operations documented as no-ops return nil
// instead.
var ErrNoActiveConversation = errors.New("no active conversation")

// previewCache holds the last previewed content keyed to the message count
// at which it was generated. Any new message invalidates it.
type previewCache struct {
	content      models.FrameContent
	messageCount int
}

// Engine owns at most one conversation at a time.
type Engine struct {
	svc remote.ConversationService
	tel telemetry.Client

	mu        sync.Mutex
	conv      *models.Conversation
	knowledge []models.KnowledgeHit
	preview   *previewCache
	lastErr   string

	// gate rejects a second send while one is in flight for this
	// conversation. Nothing is queued; callers re-invoke explicitly.
	gate syncx.Gate
}

// New creates an engine backed by the given conversation service.
func New(svc remote.ConversationService, tel telemetry.Client) *Engine {
	if tel == nil {
		tel = telemetry.NoopClient{}
	}
	return &Engine{svc: svc, tel: tel}
}

// StartOptions tune a new session. Zero values mean an authoring session
// with no linked frame.
type StartOptions struct {
	Purpose   models.ConversationPurpose
	FrameID   string
	ProjectID string
}

// Start creates a new session, replacing any current one. On failure the
// previous conversation is discarded and no new one is set.
func (e *Engine) Start(ctx context.Context, owner string, opts StartOptions) error {
	purpose := opts.Purpose
	if purpose == "" {
		purpose = models.PurposeAuthoring
	}

	e.mu.Lock()
	e.conv = nil
	e.preview = nil
	e.knowledge = nil
	e.mu.Unlock()

	conv, err := e.svc.Start(ctx, remote.StartConversationRequest{
		Owner:     owner,
		Purpose:   purpose,
		FrameID:   opts.FrameID,
		ProjectID: opts.ProjectID,
	})

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.lastErr = humanize(err)
		return err
	}
	e.conv = &conv
	e.lastErr = ""
	e.tel.Track("conversation_started", telemetry.Properties{"purpose": string(purpose)})
	return nil
}

// Resume installs a previously persisted conversation as the active one,
// with no remote effect. Used when reloading a snapshot at process start.
func (e *Engine) Resume(conv models.Conversation) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := conv
	e.conv = &c
	e.preview = nil
	e.knowledge = nil
	e.lastErr = ""
}

// SendMessage appends the content as a user message and exchanges it with
// the coach. The append happens before the network call; on failure the
// message stays in the log flagged failed so the input survives for retry.
// A no-op when no conversation is active. Returns syncx.ErrInFlight if a
// send is already pending.
func (e *Engine) SendMessage(ctx context.Context, content, senderName string) error {
	e.mu.Lock()
	if e.conv == nil {
		e.mu.Unlock()
		return nil
	}
	if !e.gate.TryAcquire() {
		e.mu.Unlock()
		return syncx.ErrInFlight
	}
	convID := e.conv.ID
	e.mu.Unlock()
	defer e.gate.Release()

	return e.send(ctx, convID, content, senderName)
}

// RetryMessage removes a failed message and replays it through the send
// protocol. A second failure therefore produces a new failed message with
// a new temporary id. No-op unless the id names a failed message. Returns
// syncx.ErrInFlight with the log untouched if a send is already pending:
// the failed message must stay in the log until a replay can actually run.
func (e *Engine) RetryMessage(ctx context.Context, messageID string) error {
	e.mu.Lock()
	if e.conv == nil {
		e.mu.Unlock()
		return nil
	}
	i := e.conv.MessageByID(messageID)
	if i < 0 || e.conv.Messages[i].Status != models.MessageFailed {
		e.mu.Unlock()
		return nil
	}
	if !e.gate.TryAcquire() {
		e.mu.Unlock()
		return syncx.ErrInFlight
	}
	content := e.conv.Messages[i].Content
	senderName := e.conv.Messages[i].SenderName
	e.conv.Messages = append(e.conv.Messages[:i], e.conv.Messages[i+1:]...)
	convID := e.conv.ID
	e.mu.Unlock()
	defer e.gate.Release()

	return e.send(ctx, convID, content, senderName)
}

// send runs one message exchange. The caller holds the gate. The stale
// check drops the result if the conversation was cleared or replaced
// while the call was in flight; the gate only serializes sends, not
// Start/ClearConversation.
func (e *Engine) send(ctx context.Context, convID, content, senderName string) error {
	tempID := "tmp-" + uuid.New().String()
	stale := func() bool {
		return e.conv == nil || e.conv.ID != convID
	}

	mutation := syncx.Mutation[remote.MessageResult]{
		Apply: func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if stale() {
				return
			}
			if e.conv.Status == models.ConversationSynthesized {
				// A new message reopens a committed session.
				e.conv.Status = models.ConversationActive
			}
			e.conv.Messages = append(e.conv.Messages, models.Message{
				ID:         tempID,
				Role:       models.RoleUser,
				Content:    content,
				Timestamp:  nowUTC(),
				SenderName: senderName,
				Status:     models.MessageOK,
			})
			e.preview = nil
		},
		Call: func() (remote.MessageResult, error) {
			return e.svc.Message(ctx, convID, remote.MessageRequest{
				Content:    content,
				SenderName: senderName,
			})
		},
		Reconcile: func(result remote.MessageResult) {
			e.mu.Lock()
			defer e.mu.Unlock()
			if stale() {
				return
			}
			if i := e.conv.MessageByID(tempID); i >= 0 {
				confirmed := result.Message
				confirmed.SenderName = senderName
				e.conv.Messages[i] = confirmed
			}
			e.conv.Messages = append(e.conv.Messages, result.AIResponse)
			e.conv.State = result.State
			e.knowledge = result.RelevantKnowledge
			e.lastErr = ""
		},
		OnFailure: func(err error) {
			e.mu.Lock()
			defer e.mu.Unlock()
			if stale() {
				return
			}
			if i := e.conv.MessageByID(tempID); i >= 0 {
				e.conv.Messages[i].Status = models.MessageFailed
			}
			e.lastErr = humanize(err)
		},
	}
	return mutation.Run()
}

// PreviewFrame returns a synthesis preview of the conversation. If a
// preview was already generated at the current message count it is
// returned without a remote call; previews must not re-trigger generation
// when nothing changed.
func (e *Engine) PreviewFrame(ctx context.Context) (models.FrameContent, error) {
	e.mu.Lock()
	if e.conv == nil {
		e.mu.Unlock()
		return models.FrameContent{}, nil
	}
	count := len(e.conv.Messages)
	if e.preview != nil && e.preview.messageCount == count {
		content := e.preview.content
		e.mu.Unlock()
		return content, nil
	}
	convID := e.conv.ID
	e.mu.Unlock()

	content, err := e.svc.Preview(ctx, convID)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.lastErr = humanize(err)
		return models.FrameContent{}, err
	}
	e.preview = &previewCache{content: content, messageCount: count}
	e.lastErr = ""
	return content, nil
}

// SynthesizeFrame commits the conversation into a frame. When a preview is
// still valid for the current message count its content is passed along so
// the backend skips regeneration. Returns the new frame id, or "" with the
// error recorded on failure.
func (e *Engine) SynthesizeFrame(ctx context.Context) (string, error) {
	e.mu.Lock()
	if e.conv == nil {
		e.mu.Unlock()
		return "", nil
	}
	convID := e.conv.ID
	var cached *models.FrameContent
	if e.preview != nil && e.preview.messageCount == len(e.conv.Messages) {
		content := e.preview.content
		cached = &content
	}
	e.mu.Unlock()

	result, err := e.svc.Synthesize(ctx, convID, cached)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.lastErr = humanize(err)
		return "", err
	}
	e.conv.Status = models.ConversationSynthesized
	e.conv.FrameID = result.FrameID
	e.preview = nil
	e.lastErr = ""
	e.tel.Track("frame_synthesized", telemetry.Properties{"from_preview": cached != nil})
	return result.FrameID, nil
}

// SummarizeReview condenses a review discussion and returns the summary
// along with the id of the frame under review. The conversation status is
// unchanged. Only valid on review-purpose sessions.
func (e *Engine) SummarizeReview(ctx context.Context) (remote.ReviewSummary, string, error) {
	e.mu.Lock()
	if e.conv == nil {
		e.mu.Unlock()
		return remote.ReviewSummary{}, "", ErrNoActiveConversation
	}
	if e.conv.Purpose != models.PurposeReview {
		purpose := e.conv.Purpose
		e.mu.Unlock()
		return remote.ReviewSummary{}, "", fmt.Errorf("cannot summarize a %s conversation", purpose)
	}
	convID := e.conv.ID
	frameID := e.conv.FrameID
	e.mu.Unlock()

	summary, err := e.svc.SummarizeReview(ctx, convID)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.lastErr = humanize(err)
		return remote.ReviewSummary{}, "", err
	}
	e.lastErr = ""
	return summary, frameID, nil
}

// ClearConversation discards the active conversation and all transient
// state with no remote effect. This is the explicit abandon path.
func (e *Engine) ClearConversation() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.conv = nil
	e.preview = nil
	e.knowledge = nil
	e.lastErr = ""
}

// Conversation returns a copy of the active conversation, if any.
func (e *Engine) Conversation() (models.Conversation, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conv == nil {
		return models.Conversation{}, false
	}
	conv := *e.conv
	conv.Messages = append([]models.Message(nil), e.conv.Messages...)
	conv.State = e.conv.State.Clone()
	return conv, true
}

// RelevantKnowledge returns the knowledge snippets retrieved for the most
// recent successful exchange.
func (e *Engine) RelevantKnowledge() []models.KnowledgeHit {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.KnowledgeHit(nil), e.knowledge...)
}

// Sending reports whether a message exchange is in flight.
func (e *Engine) Sending() bool {
	return e.gate.Busy()
}

// LastError returns the human-readable message of the most recent remote
// failure, or "" after a successful operation.
func (e *Engine) LastError() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

func humanize(err error) string {
	var se *types.ServiceError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return err.Error()
}
