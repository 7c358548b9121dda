package remote

import (
	"time"

	"github.com/framerhq/framer/models"
)

// Wire types mirror the backend's JSON contract (snake_case). They stay
// confined to this package; everything above works with models types.

type wireMessage struct {
	ID         string                 `json:"id"`
	Role       string                 `json:"role"`
	Content    string                 `json:"content"`
	Timestamp  string                 `json:"timestamp"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	SenderName string                 `json:"sender_name,omitempty"`
}

type wireState struct {
	FrameType         string             `json:"frame_type,omitempty"`
	SectionsCovered   map[string]float64 `json:"sections_covered"`
	Gaps              []string           `json:"gaps"`
	ReadyToSynthesize bool               `json:"ready_to_synthesize"`
}

type wireConversation struct {
	ID        string        `json:"id"`
	Owner     string        `json:"owner"`
	Status    string        `json:"status"`
	Purpose   string        `json:"purpose"`
	FrameID   string        `json:"frame_id,omitempty"`
	ProjectID string        `json:"project_id,omitempty"`
	Messages  []wireMessage `json:"messages"`
	State     wireState     `json:"state"`
	CreatedAt string        `json:"created_at"`
	UpdatedAt string        `json:"updated_at"`
}

type wireKnowledgeHit struct {
	ID      string  `json:"id,omitempty"`
	Content string  `json:"content"`
	Source  string  `json:"source,omitempty"`
	Score   float64 `json:"score,omitempty"`
}

type wireContent struct {
	ProblemStatement   string `json:"problem_statement,omitempty"`
	RootCause          string `json:"root_cause,omitempty"`
	UserPerspective    string `json:"user_perspective,omitempty"`
	EngineeringFraming string `json:"engineering_framing,omitempty"`
	ValidationThinking string `json:"validation_thinking,omitempty"`
}

type wireFrame struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Status    string      `json:"status"`
	Owner     string      `json:"owner"`
	ProjectID string      `json:"project_id,omitempty"`
	Content   wireContent `json:"content"`
	Meta      wireMeta    `json:"meta"`
}

type wireMeta struct {
	CreatedAt      string         `json:"created_at"`
	UpdatedAt      string         `json:"updated_at"`
	Reviewer       string         `json:"reviewer,omitempty"`
	Approver       string         `json:"approver,omitempty"`
	AIScore        *int           `json:"ai_score,omitempty"`
	AIEvaluatedAt  string         `json:"ai_evaluated_at,omitempty"`
	AIBreakdown    map[string]int `json:"ai_breakdown,omitempty"`
	AIFeedback     string         `json:"ai_feedback,omitempty"`
	AIIssues       []string       `json:"ai_issues,omitempty"`
	ReviewSummary  string         `json:"review_summary,omitempty"`
	ReviewComments []wireComment  `json:"review_comments,omitempty"`
	ReviewRec      string         `json:"review_recommendation,omitempty"`
}

type wireComment struct {
	Section string `json:"section,omitempty"`
	Author  string `json:"author,omitempty"`
	Content string `json:"content"`
}

type wireEvaluation struct {
	Score     int            `json:"score"`
	Breakdown map[string]int `json:"breakdown"`
	Feedback  string         `json:"feedback"`
	Issues    []string       `json:"issues"`
}

func parseWireTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

func (m wireMessage) toModel() models.Message {
	return models.Message{
		ID:         m.ID,
		Role:       models.MessageRole(m.Role),
		Content:    m.Content,
		Timestamp:  parseWireTime(m.Timestamp),
		SenderName: m.SenderName,
		Status:     models.MessageOK,
	}
}

func (s wireState) toModel() models.ConversationState {
	state := models.ConversationState{
		FrameType:         s.FrameType,
		SectionsCovered:   s.SectionsCovered,
		Gaps:              s.Gaps,
		ReadyToSynthesize: s.ReadyToSynthesize,
	}
	if state.SectionsCovered == nil {
		state = models.ConversationState{
			FrameType:         s.FrameType,
			SectionsCovered:   models.NewConversationState().SectionsCovered,
			Gaps:              s.Gaps,
			ReadyToSynthesize: s.ReadyToSynthesize,
		}
	}
	return state
}

func (c wireConversation) toModel() models.Conversation {
	conv := models.Conversation{
		ID:        c.ID,
		Owner:     c.Owner,
		FrameID:   c.FrameID,
		ProjectID: c.ProjectID,
		Purpose:   models.ConversationPurpose(c.Purpose),
		Status:    models.ConversationStatus(c.Status),
		State:     c.State.toModel(),
		CreatedAt: parseWireTime(c.CreatedAt),
		UpdatedAt: parseWireTime(c.UpdatedAt),
	}
	for _, m := range c.Messages {
		conv.Messages = append(conv.Messages, m.toModel())
	}
	return conv
}

func (c wireContent) toModel() models.FrameContent {
	return models.FrameContent{
		ProblemStatement:   c.ProblemStatement,
		RootCause:          c.RootCause,
		UserPerspective:    c.UserPerspective,
		EngineeringFraming: c.EngineeringFraming,
		ValidationThinking: c.ValidationThinking,
	}
}

func contentToWire(c models.FrameContent) wireContent {
	return wireContent{
		ProblemStatement:   c.ProblemStatement,
		RootCause:          c.RootCause,
		UserPerspective:    c.UserPerspective,
		EngineeringFraming: c.EngineeringFraming,
		ValidationThinking: c.ValidationThinking,
	}
}

func (f wireFrame) toModel() models.Frame {
	frame := models.Frame{
		ID:        f.ID,
		Type:      models.FrameType(f.Type),
		Status:    models.FrameStatus(f.Status),
		Owner:     f.Owner,
		ProjectID: f.ProjectID,
		Reviewer:  f.Meta.Reviewer,
		Approver:  f.Meta.Approver,
		Content:   f.Content.toModel(),
		CreatedAt: parseWireTime(f.Meta.CreatedAt),
		UpdatedAt: parseWireTime(f.Meta.UpdatedAt),
	}
	if f.Meta.AIScore != nil {
		frame.Evaluation = &models.Evaluation{
			Score:       *f.Meta.AIScore,
			Breakdown:   f.Meta.AIBreakdown,
			Feedback:    f.Meta.AIFeedback,
			Issues:      f.Meta.AIIssues,
			EvaluatedAt: parseWireTime(f.Meta.AIEvaluatedAt),
		}
	}
	if f.Meta.ReviewSummary != "" || len(f.Meta.ReviewComments) > 0 || f.Meta.ReviewRec != "" {
		review := &models.Review{
			Summary:        f.Meta.ReviewSummary,
			Recommendation: f.Meta.ReviewRec,
		}
		for _, c := range f.Meta.ReviewComments {
			review.Comments = append(review.Comments, models.ReviewComment(c))
		}
		frame.Review = review
	}
	return frame
}
