package remote

import (
	"context"
	"net/http"

	"github.com/framerhq/framer/models"
)

// ConversationClient talks to the conversation endpoints of the backend.
type ConversationClient struct {
	client *Client
	// language is forwarded on every message call; empty means backend default.
	language string
}

// NewConversationClient wraps a transport for the conversation collaborator.
func NewConversationClient(client *Client, language string) *ConversationClient {
	return &ConversationClient{client: client, language: language}
}

var _ ConversationService = (*ConversationClient)(nil)

type startConversationPayload struct {
	Owner     string `json:"owner"`
	Purpose   string `json:"purpose,omitempty"`
	FrameID   string `json:"frame_id,omitempty"`
	ProjectID string `json:"project_id,omitempty"`
}

func (c *ConversationClient) Start(ctx context.Context, req StartConversationRequest) (models.Conversation, error) {
	payload := startConversationPayload{
		Owner:     req.Owner,
		Purpose:   string(req.Purpose),
		FrameID:   req.FrameID,
		ProjectID: req.ProjectID,
	}
	var resp wireConversation
	if err := c.client.doJSON(ctx, "conversation.start", http.MethodPost, "/api/conversations", payload, &resp); err != nil {
		return models.Conversation{}, err
	}
	return resp.toModel(), nil
}

type sendMessagePayload struct {
	Content    string `json:"content"`
	SenderName string `json:"sender_name,omitempty"`
	Language   string `json:"language,omitempty"`
}

type sendMessageResponse struct {
	Message           wireMessage        `json:"message"`
	AIResponse        wireMessage        `json:"ai_response"`
	State             wireState          `json:"state"`
	RelevantKnowledge []wireKnowledgeHit `json:"relevant_knowledge"`
}

func (c *ConversationClient) Message(ctx context.Context, conversationID string, req MessageRequest) (MessageResult, error) {
	payload := sendMessagePayload{
		Content:    req.Content,
		SenderName: req.SenderName,
		Language:   req.Language,
	}
	if payload.Language == "" {
		payload.Language = c.language
	}
	var resp sendMessageResponse
	err := c.client.doJSON(ctx, "conversation.message", http.MethodPost,
		"/api/conversations/"+conversationID+"/message", payload, &resp)
	if err != nil {
		return MessageResult{}, err
	}
	result := MessageResult{
		Message:    resp.Message.toModel(),
		AIResponse: resp.AIResponse.toModel(),
		State:      resp.State.toModel(),
	}
	for _, hit := range resp.RelevantKnowledge {
		result.RelevantKnowledge = append(result.RelevantKnowledge, models.KnowledgeHit(hit))
	}
	return result, nil
}

type previewResponse struct {
	Content wireContent `json:"content"`
}

func (c *ConversationClient) Preview(ctx context.Context, conversationID string) (models.FrameContent, error) {
	var resp previewResponse
	err := c.client.doJSON(ctx, "conversation.preview", http.MethodPost,
		"/api/conversations/"+conversationID+"/preview", nil, &resp)
	if err != nil {
		return models.FrameContent{}, err
	}
	return resp.Content.toModel(), nil
}

type synthesizePayload struct {
	Content *wireContent `json:"content,omitempty"`
}

type synthesizeResponse struct {
	FrameID string      `json:"frame_id"`
	Content wireContent `json:"content"`
}

func (c *ConversationClient) Synthesize(ctx context.Context, conversationID string, content *models.FrameContent) (SynthesisResult, error) {
	payload := synthesizePayload{}
	if content != nil {
		wc := contentToWire(*content)
		payload.Content = &wc
	}
	var resp synthesizeResponse
	err := c.client.doJSON(ctx, "conversation.synthesize", http.MethodPost,
		"/api/conversations/"+conversationID+"/synthesize", payload, &resp)
	if err != nil {
		return SynthesisResult{}, err
	}
	return SynthesisResult{FrameID: resp.FrameID, Content: resp.Content.toModel()}, nil
}

type summarizeReviewResponse struct {
	Summary        string        `json:"summary"`
	Comments       []wireComment `json:"comments"`
	Recommendation string        `json:"recommendation"`
}

func (c *ConversationClient) SummarizeReview(ctx context.Context, conversationID string) (ReviewSummary, error) {
	var resp summarizeReviewResponse
	err := c.client.doJSON(ctx, "conversation.summarize_review", http.MethodPost,
		"/api/conversations/"+conversationID+"/summarize-review", nil, &resp)
	if err != nil {
		return ReviewSummary{}, err
	}
	summary := ReviewSummary{
		Summary:        resp.Summary,
		Recommendation: resp.Recommendation,
	}
	for _, c := range resp.Comments {
		summary.Comments = append(summary.Comments, models.ReviewComment(c))
	}
	return summary, nil
}
