package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framerhq/framer/internal/syncx"
	"github.com/framerhq/framer/models"
	"github.com/framerhq/framer/remote"
	"github.com/framerhq/framer/types"
)

// fakeConversationService scripts the remote collaborator: counters for
// the cost-avoidance properties, failure toggles for the reconcile paths,
// and an optional block channel for the single-flight guard test.
type fakeConversationService struct {
	mu sync.Mutex

	startCalls      int
	messageCalls    int
	previewCalls    int
	synthesizeCalls int

	failStart      bool
	failMessage    bool
	failPreview    bool
	failSynthesize bool

	blockMessage chan struct{}

	state     *models.ConversationState
	knowledge []models.KnowledgeHit

	lastSynthesisContent *models.FrameContent

	seq int
}

func (f *fakeConversationService) Start(ctx context.Context, req remote.StartConversationRequest) (models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	if f.failStart {
		return models.Conversation{}, types.NewServiceError(types.KindUnavailable, "conversation.start", "the backend could not be reached", nil)
	}
	return models.Conversation{
		ID:        fmt.Sprintf("conv-2026-08-30-%06d", f.startCalls),
		Owner:     req.Owner,
		Purpose:   req.Purpose,
		FrameID:   req.FrameID,
		ProjectID: req.ProjectID,
		Status:    models.ConversationActive,
		State:     models.NewConversationState(),
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (f *fakeConversationService) Message(ctx context.Context, conversationID string, req remote.MessageRequest) (remote.MessageResult, error) {
	if f.blockMessage != nil {
		<-f.blockMessage
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messageCalls++
	if f.failMessage {
		return remote.MessageResult{}, types.NewServiceError(types.KindUnavailable, "conversation.message", "the backend did not respond in time", nil)
	}
	f.seq++
	state := models.NewConversationState()
	state.SectionsCovered[models.SectionProblemStatement] = 0.5
	if f.state != nil {
		state = *f.state
	}
	return remote.MessageResult{
		Message: models.Message{
			ID:        fmt.Sprintf("m-%d", f.seq),
			Role:      models.RoleUser,
			Content:   req.Content,
			Timestamp: time.Now().UTC(),
			Status:    models.MessageOK,
		},
		AIResponse: models.Message{
			ID:        fmt.Sprintf("m-%d-ai", f.seq),
			Role:      models.RoleAssistant,
			Content:   "Tell me more about that.",
			Timestamp: time.Now().UTC(),
			Status:    models.MessageOK,
		},
		State:             state,
		RelevantKnowledge: f.knowledge,
	}, nil
}

func (f *fakeConversationService) Preview(ctx context.Context, conversationID string) (models.FrameContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.previewCalls++
	if f.failPreview {
		return models.FrameContent{}, types.NewServiceError(types.KindUnavailable, "conversation.preview", "the backend could not be reached", nil)
	}
	return models.FrameContent{
		ProblemStatement: fmt.Sprintf("Synthesized after %d exchanges", f.seq),
		UserPerspective:  "Users are blocked at login.",
	}, nil
}

func (f *fakeConversationService) Synthesize(ctx context.Context, conversationID string, content *models.FrameContent) (remote.SynthesisResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synthesizeCalls++
	f.lastSynthesisContent = content
	if f.failSynthesize {
		return remote.SynthesisResult{}, types.NewServiceError(types.KindUnavailable, "conversation.synthesize", "the backend could not be reached", nil)
	}
	result := remote.SynthesisResult{FrameID: "f-2026-08-30-def456"}
	if content != nil {
		result.Content = *content
	}
	return result, nil
}

func (f *fakeConversationService) SummarizeReview(ctx context.Context, conversationID string) (remote.ReviewSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return remote.ReviewSummary{
		Summary:        "Solid framing, validation thinking is thin.",
		Recommendation: "revise",
	}, nil
}

func startedEngine(t *testing.T, svc *fakeConversationService) *Engine {
	t.Helper()
	e := New(svc, nil)
	require.NoError(t, e.Start(context.Background(), "u1", StartOptions{}))
	return e
}

func TestSendMessage_AppendsUserAssistantPairs(t *testing.T) {
	svc := &fakeConversationService{}
	e := startedEngine(t, svc)

	contents := []string{"Users can't log in", "It started after the last deploy", "Only special characters"}
	for _, content := range contents {
		require.NoError(t, e.SendMessage(context.Background(), content, ""))
	}

	conv, ok := e.Conversation()
	require.True(t, ok)
	require.Len(t, conv.Messages, 2*len(contents))
	for i, content := range contents {
		user := conv.Messages[2*i]
		assistant := conv.Messages[2*i+1]
		assert.Equal(t, models.RoleUser, user.Role)
		assert.Equal(t, content, user.Content)
		assert.Equal(t, models.RoleAssistant, assistant.Role)
	}
}

func TestSendMessage_NoActiveConversationIsNoop(t *testing.T) {
	svc := &fakeConversationService{}
	e := New(svc, nil)

	require.NoError(t, e.SendMessage(context.Background(), "hello", ""))
	assert.Zero(t, svc.messageCalls)
}

func TestSendMessage_FailureKeepsMessageFlagged(t *testing.T) {
	svc := &fakeConversationService{}
	e := startedEngine(t, svc)

	svc.failMessage = true
	err := e.SendMessage(context.Background(), "Users can't log in", "ada")
	require.Error(t, err)

	conv, _ := e.Conversation()
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, models.MessageFailed, conv.Messages[0].Status)
	assert.Equal(t, "Users can't log in", conv.Messages[0].Content)
	assert.Equal(t, "ada", conv.Messages[0].SenderName)
	assert.NotEmpty(t, e.LastError())

	// The conversation stays usable.
	svc.failMessage = false
	require.NoError(t, e.SendMessage(context.Background(), "still there?", ""))
	conv, _ = e.Conversation()
	assert.Len(t, conv.Messages, 3)
}

func TestRetryMessage_ReplaysThroughSendProtocol(t *testing.T) {
	svc := &fakeConversationService{}
	e := startedEngine(t, svc)

	svc.failMessage = true
	require.Error(t, e.SendMessage(context.Background(), "flaky network", "ada"))
	conv, _ := e.Conversation()
	failedID := conv.Messages[0].ID

	svc.failMessage = false
	require.NoError(t, e.RetryMessage(context.Background(), failedID))

	conv, _ = e.Conversation()
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "flaky network", conv.Messages[0].Content)
	assert.Equal(t, "ada", conv.Messages[0].SenderName)
	assert.Equal(t, models.MessageOK, conv.Messages[0].Status)
	assert.NotEqual(t, failedID, conv.Messages[0].ID)
	assert.Equal(t, models.RoleAssistant, conv.Messages[1].Role)
}

func TestRetryMessage_SecondFailureYieldsNewFailedMessage(t *testing.T) {
	svc := &fakeConversationService{failMessage: true}
	e := startedEngine(t, svc)

	require.Error(t, e.SendMessage(context.Background(), "flaky network", ""))
	conv, _ := e.Conversation()
	firstID := conv.Messages[0].ID

	require.Error(t, e.RetryMessage(context.Background(), firstID))
	conv, _ = e.Conversation()
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, models.MessageFailed, conv.Messages[0].Status)
	assert.NotEqual(t, firstID, conv.Messages[0].ID)
}

func TestRetryMessage_RejectedWhileSendInFlight(t *testing.T) {
	svc := &fakeConversationService{}
	e := startedEngine(t, svc)

	svc.failMessage = true
	require.Error(t, e.SendMessage(context.Background(), "precious input", ""))
	before, _ := e.Conversation()
	failedID := before.Messages[0].ID

	svc.failMessage = false
	svc.blockMessage = make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- e.SendMessage(context.Background(), "concurrent send", "")
	}()
	require.Eventually(t, e.Sending, time.Second, time.Millisecond)

	err := e.RetryMessage(context.Background(), failedID)
	assert.ErrorIs(t, err, syncx.ErrInFlight)

	close(svc.blockMessage)
	require.NoError(t, <-done)

	// The rejected retry left the failed message in place for a later retry.
	conv, _ := e.Conversation()
	i := conv.MessageByID(failedID)
	require.GreaterOrEqual(t, i, 0, "the failed message must survive a rejected retry")
	assert.Equal(t, models.MessageFailed, conv.Messages[i].Status)
	assert.Equal(t, "precious input", conv.Messages[i].Content)

	require.NoError(t, e.RetryMessage(context.Background(), failedID))
	conv, _ = e.Conversation()
	assert.Equal(t, -1, conv.MessageByID(failedID))
	assert.Len(t, conv.Messages, 4)
}

func TestRetryMessage_NoopForUnknownOrHealthyIDs(t *testing.T) {
	svc := &fakeConversationService{}
	e := startedEngine(t, svc)

	require.NoError(t, e.SendMessage(context.Background(), "hello", ""))
	conv, _ := e.Conversation()
	okID := conv.Messages[0].ID
	calls := svc.messageCalls

	require.NoError(t, e.RetryMessage(context.Background(), "m-does-not-exist"))
	require.NoError(t, e.RetryMessage(context.Background(), okID))

	after, _ := e.Conversation()
	assert.Equal(t, conv.Messages, after.Messages)
	assert.Equal(t, calls, svc.messageCalls)
}

func TestPreviewFrame_SecondCallHitsCache(t *testing.T) {
	svc := &fakeConversationService{}
	e := startedEngine(t, svc)
	require.NoError(t, e.SendMessage(context.Background(), "the bug", ""))

	first, err := e.PreviewFrame(context.Background())
	require.NoError(t, err)
	second, err := e.PreviewFrame(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, svc.previewCalls)
}

func TestPreviewFrame_InvalidatedByAnySend(t *testing.T) {
	svc := &fakeConversationService{}
	e := startedEngine(t, svc)
	require.NoError(t, e.SendMessage(context.Background(), "the bug", ""))

	_, err := e.PreviewFrame(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, svc.previewCalls)

	// A successful send invalidates.
	require.NoError(t, e.SendMessage(context.Background(), "more detail", ""))
	_, err = e.PreviewFrame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, svc.previewCalls)

	// A failed send invalidates too: the optimistic append changed the log.
	svc.failMessage = true
	require.Error(t, e.SendMessage(context.Background(), "doomed", ""))
	svc.failMessage = false
	_, err = e.PreviewFrame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, svc.previewCalls)
}

func TestSynthesizeFrame_ReusesFreshPreview(t *testing.T) {
	svc := &fakeConversationService{}
	e := startedEngine(t, svc)
	require.NoError(t, e.SendMessage(context.Background(), "the bug", ""))

	preview, err := e.PreviewFrame(context.Background())
	require.NoError(t, err)

	frameID, err := e.SynthesizeFrame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "f-2026-08-30-def456", frameID)

	require.NotNil(t, svc.lastSynthesisContent, "synthesize must pass the cached preview so the backend skips regeneration")
	assert.Equal(t, preview, *svc.lastSynthesisContent)

	conv, _ := e.Conversation()
	assert.Equal(t, models.ConversationSynthesized, conv.Status)
	assert.Equal(t, frameID, conv.FrameID)

	// The cache was cleared by synthesis; the next preview goes remote.
	_, err = e.PreviewFrame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, svc.previewCalls)
}

func TestSynthesizeFrame_WithoutPreviewLetsBackendGenerate(t *testing.T) {
	svc := &fakeConversationService{}
	e := startedEngine(t, svc)
	require.NoError(t, e.SendMessage(context.Background(), "the bug", ""))

	_, err := e.SynthesizeFrame(context.Background())
	require.NoError(t, err)
	assert.Nil(t, svc.lastSynthesisContent)
}

func TestSynthesizeFrame_StalePreviewIsNotReused(t *testing.T) {
	svc := &fakeConversationService{}
	e := startedEngine(t, svc)
	require.NoError(t, e.SendMessage(context.Background(), "the bug", ""))

	_, err := e.PreviewFrame(context.Background())
	require.NoError(t, err)
	require.NoError(t, e.SendMessage(context.Background(), "one more thing", ""))

	_, err = e.SynthesizeFrame(context.Background())
	require.NoError(t, err)
	assert.Nil(t, svc.lastSynthesisContent)
}

func TestSynthesizeFrame_FailureRecordsError(t *testing.T) {
	svc := &fakeConversationService{failSynthesize: true}
	e := startedEngine(t, svc)
	require.NoError(t, e.SendMessage(context.Background(), "the bug", ""))

	frameID, err := e.SynthesizeFrame(context.Background())
	require.Error(t, err)
	assert.Empty(t, frameID)
	assert.NotEmpty(t, e.LastError())

	conv, _ := e.Conversation()
	assert.Equal(t, models.ConversationActive, conv.Status)
}

func TestSendMessage_ReactivatesSynthesizedConversation(t *testing.T) {
	svc := &fakeConversationService{}
	e := startedEngine(t, svc)
	require.NoError(t, e.SendMessage(context.Background(), "the bug", ""))
	_, err := e.SynthesizeFrame(context.Background())
	require.NoError(t, err)

	require.NoError(t, e.SendMessage(context.Background(), "actually, one more thing", ""))
	conv, _ := e.Conversation()
	assert.Equal(t, models.ConversationActive, conv.Status)
	assert.Equal(t, "f-2026-08-30-def456", conv.FrameID, "the frame link survives reactivation")
}

func TestSendMessage_RejectsConcurrentSend(t *testing.T) {
	svc := &fakeConversationService{blockMessage: make(chan struct{})}
	e := startedEngine(t, svc)

	done := make(chan error, 1)
	go func() {
		done <- e.SendMessage(context.Background(), "first", "")
	}()

	require.Eventually(t, e.Sending, time.Second, time.Millisecond)
	err := e.SendMessage(context.Background(), "second", "")
	assert.ErrorIs(t, err, syncx.ErrInFlight)

	close(svc.blockMessage)
	require.NoError(t, <-done)

	conv, _ := e.Conversation()
	assert.Len(t, conv.Messages, 2, "the rejected send must not touch the log")
}

func TestStart_FailureLeavesConversationUnset(t *testing.T) {
	svc := &fakeConversationService{failStart: true}
	e := New(svc, nil)

	require.Error(t, e.Start(context.Background(), "u1", StartOptions{}))
	_, ok := e.Conversation()
	assert.False(t, ok)
	assert.NotEmpty(t, e.LastError())
}

func TestStart_ReplacesConversationAndClearsTransients(t *testing.T) {
	svc := &fakeConversationService{knowledge: []models.KnowledgeHit{{Content: "auth runbook"}}}
	e := startedEngine(t, svc)
	require.NoError(t, e.SendMessage(context.Background(), "the bug", ""))
	_, err := e.PreviewFrame(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, e.RelevantKnowledge())

	require.NoError(t, e.Start(context.Background(), "u1", StartOptions{}))
	conv, ok := e.Conversation()
	require.True(t, ok)
	assert.Empty(t, conv.Messages)
	assert.Empty(t, e.RelevantKnowledge())

	// Preview cache was dropped with the old conversation.
	_, err = e.PreviewFrame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, svc.previewCalls)
}

func TestClearConversation_DuringSendDropsStaleResult(t *testing.T) {
	svc := &fakeConversationService{blockMessage: make(chan struct{})}
	e := startedEngine(t, svc)

	done := make(chan error, 1)
	go func() {
		done <- e.SendMessage(context.Background(), "about to be abandoned", "")
	}()
	require.Eventually(t, e.Sending, time.Second, time.Millisecond)

	e.ClearConversation()
	close(svc.blockMessage)
	require.NoError(t, <-done)

	_, ok := e.Conversation()
	assert.False(t, ok, "the late response must not resurrect the conversation")
	assert.Empty(t, e.RelevantKnowledge())
}

func TestStart_DuringSendDropsStaleResult(t *testing.T) {
	svc := &fakeConversationService{blockMessage: make(chan struct{})}
	e := startedEngine(t, svc)

	done := make(chan error, 1)
	go func() {
		done <- e.SendMessage(context.Background(), "sent to the old session", "")
	}()
	require.Eventually(t, e.Sending, time.Second, time.Millisecond)

	// Starting a fresh session replaces the conversation mid-flight. The
	// fake serves Start without touching the message block.
	require.NoError(t, e.Start(context.Background(), "u2", StartOptions{}))
	close(svc.blockMessage)
	require.NoError(t, <-done)

	conv, ok := e.Conversation()
	require.True(t, ok)
	assert.Empty(t, conv.Messages, "the old session's exchange must not leak into the new one")
}

func TestClearConversation_DiscardsEverythingLocally(t *testing.T) {
	svc := &fakeConversationService{}
	e := startedEngine(t, svc)
	require.NoError(t, e.SendMessage(context.Background(), "the bug", ""))

	e.ClearConversation()
	_, ok := e.Conversation()
	assert.False(t, ok)
	assert.Empty(t, e.RelevantKnowledge())
	assert.Empty(t, e.LastError())
	assert.Equal(t, 1, svc.messageCalls, "clearing has no remote effect")
}

func TestConversation_ReturnsOwnedCopy(t *testing.T) {
	gappy := models.NewConversationState()
	gappy.SectionsCovered[models.SectionProblemStatement] = 0.5
	gappy.Gaps = []string{models.SectionValidationThinking}
	svc := &fakeConversationService{state: &gappy}
	e := startedEngine(t, svc)
	require.NoError(t, e.SendMessage(context.Background(), "the bug", ""))

	conv, ok := e.Conversation()
	require.True(t, ok)
	conv.Messages[0].Content = "tampered"
	conv.State.SectionsCovered[models.SectionProblemStatement] = 99
	conv.State.Gaps[0] = "tampered"

	fresh, _ := e.Conversation()
	assert.Equal(t, "the bug", fresh.Messages[0].Content)
	assert.InDelta(t, 0.5, fresh.State.SectionsCovered[models.SectionProblemStatement], 1e-9)
	assert.Equal(t, models.SectionValidationThinking, fresh.State.Gaps[0])
}

func TestSummarizeReview_RequiresReviewPurpose(t *testing.T) {
	svc := &fakeConversationService{}
	e := New(svc, nil)
	require.NoError(t, e.Start(context.Background(), "u1", StartOptions{
		Purpose: models.PurposeReview,
		FrameID: "f-2026-08-30-def456",
	}))

	summary, frameID, err := e.SummarizeReview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "f-2026-08-30-def456", frameID)
	assert.NotEmpty(t, summary.Summary)

	conv, _ := e.Conversation()
	assert.Equal(t, models.ConversationActive, conv.Status, "summarizing does not change conversation status")

	require.NoError(t, e.Start(context.Background(), "u1", StartOptions{}))
	_, _, err = e.SummarizeReview(context.Background())
	assert.Error(t, err)
}

func TestScenario_CoverageGrowsUntilSynthesis(t *testing.T) {
	svc := &fakeConversationService{}
	e := startedEngine(t, svc)

	require.NoError(t, e.SendMessage(context.Background(), "Users can't log in with special characters", ""))
	conv, _ := e.Conversation()
	assert.Greater(t, conv.State.SectionsCovered[models.SectionProblemStatement], 0.0)
	assert.False(t, conv.State.ReadyToSynthesize)

	ready := models.NewConversationState()
	for section := range ready.SectionsCovered {
		ready.SectionsCovered[section] = 1
	}
	ready.ReadyToSynthesize = true
	svc.state = &ready

	require.NoError(t, e.SendMessage(context.Background(), "We validated it against the auth logs", ""))
	conv, _ = e.Conversation()
	require.True(t, conv.State.ReadyToSynthesize)

	frameID, err := e.SynthesizeFrame(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, frameID)
}
