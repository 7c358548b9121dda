package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/framerhq/framer/models"
)

// FrameClient talks to the frame endpoints of the backend.
type FrameClient struct {
	client *Client
}

// NewFrameClient wraps a transport for the frame record store.
func NewFrameClient(client *Client) *FrameClient {
	return &FrameClient{client: client}
}

var _ FrameService = (*FrameClient)(nil)

type createFramePayload struct {
	Type      string       `json:"type"`
	Owner     string       `json:"owner"`
	ProjectID string       `json:"project_id,omitempty"`
	Content   *wireContent `json:"content,omitempty"`
}

func (c *FrameClient) Create(ctx context.Context, req CreateFrameRequest) (models.Frame, error) {
	payload := createFramePayload{
		Type:      string(req.Type),
		Owner:     req.Owner,
		ProjectID: req.ProjectID,
	}
	if req.Content != nil {
		wc := contentToWire(*req.Content)
		payload.Content = &wc
	}
	var resp wireFrame
	if err := c.client.doJSON(ctx, "frame.create", http.MethodPost, "/api/frames", payload, &resp); err != nil {
		return models.Frame{}, err
	}
	return resp.toModel(), nil
}

func (c *FrameClient) Get(ctx context.Context, id string) (models.Frame, error) {
	var resp wireFrame
	if err := c.client.doJSON(ctx, "frame.get", http.MethodGet, "/api/frames/"+id, nil, &resp); err != nil {
		return models.Frame{}, err
	}
	return resp.toModel(), nil
}

func (c *FrameClient) List(ctx context.Context, owner string) ([]models.Frame, error) {
	path := "/api/frames"
	if owner != "" {
		path += "?owner=" + url.QueryEscape(owner)
	}
	var resp []wireFrame
	if err := c.client.doJSON(ctx, "frame.list", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	frames := make([]models.Frame, 0, len(resp))
	for _, f := range resp {
		frames = append(frames, f.toModel())
	}
	return frames, nil
}

type updateContentPayload struct {
	Content wireContent `json:"content"`
}

func (c *FrameClient) UpdateContent(ctx context.Context, id string, content models.FrameContent) (models.Frame, error) {
	payload := updateContentPayload{Content: contentToWire(content)}
	var resp wireFrame
	if err := c.client.doJSON(ctx, "frame.update", http.MethodPut, "/api/frames/"+id, payload, &resp); err != nil {
		return models.Frame{}, err
	}
	return resp.toModel(), nil
}

type updateStatusPayload struct {
	Status string `json:"status"`
}

func (c *FrameClient) UpdateStatus(ctx context.Context, id string, status models.FrameStatus) (models.Frame, error) {
	payload := updateStatusPayload{Status: string(status)}
	var resp wireFrame
	if err := c.client.doJSON(ctx, "frame.status", http.MethodPatch, "/api/frames/"+id+"/status", payload, &resp); err != nil {
		return models.Frame{}, err
	}
	return resp.toModel(), nil
}

type updateMetaPayload struct {
	Reviewer *string `json:"reviewer,omitempty"`
	Approver *string `json:"approver,omitempty"`
}

func (c *FrameClient) UpdateMeta(ctx context.Context, id string, update MetaUpdate) (models.Frame, error) {
	payload := updateMetaPayload{Reviewer: update.Reviewer, Approver: update.Approver}
	var resp wireFrame
	if err := c.client.doJSON(ctx, "frame.meta", http.MethodPatch, "/api/frames/"+id+"/meta", payload, &resp); err != nil {
		return models.Frame{}, err
	}
	return resp.toModel(), nil
}

type feedbackPayload struct {
	Outcome           string          `json:"outcome"`
	Summary           string          `json:"summary,omitempty"`
	LessonsLearned    []string        `json:"lessons_learned,omitempty"`
	AssumptionResults map[string]bool `json:"assumption_results,omitempty"`
}

func (c *FrameClient) SubmitFeedback(ctx context.Context, id string, record models.FeedbackRecord) error {
	payload := feedbackPayload{
		Outcome:           record.Outcome,
		Summary:           record.Summary,
		LessonsLearned:    record.LessonsLearned,
		AssumptionResults: record.AssumptionResults,
	}
	return c.client.doJSON(ctx, "frame.feedback", http.MethodPost, "/api/frames/"+id+"/feedback", payload, nil)
}

func (c *FrameClient) Evaluate(ctx context.Context, id string) (models.Evaluation, error) {
	var resp wireEvaluation
	err := c.client.doJSON(ctx, "frame.evaluate", http.MethodPost, "/api/frames/"+id+"/ai/evaluate", nil, &resp)
	if err != nil {
		return models.Evaluation{}, err
	}
	return models.Evaluation{
		Score:     resp.Score,
		Breakdown: resp.Breakdown,
		Feedback:  resp.Feedback,
		Issues:    resp.Issues,
	}, nil
}

func (c *FrameClient) Delete(ctx context.Context, id string) error {
	return c.client.doJSON(ctx, "frame.delete", http.MethodDelete, "/api/frames/"+id, nil, nil)
}
