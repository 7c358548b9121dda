// Package lifecycle owns the collection of frames and their status
// transitions. Transition legality is enforced by the preconditions of
// each operation, not by a generic transition table: the only forward path
// is draft -> in_review -> ready -> feedback -> archived.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/framerhq/framer/internal/syncx"
	"github.com/framerhq/framer/internal/telemetry"
	"github.com/framerhq/framer/models"
	"github.com/framerhq/framer/remote"
	"github.com/framerhq/framer/types"
)

// ErrFrameNotFound is returned when an operation names an unknown frame id.
var ErrFrameNotFound = errors.New("frame not found")

// ErrIllegalTransition is returned when a status operation's precondition
// is not met. There is no skipping and no backward movement.
var ErrIllegalTransition = errors.New("illegal status transition")

// Lifecycle holds the loaded frames and mediates every mutation against
// the remote frame record store.
type Lifecycle struct {
	svc remote.FrameService
	tel telemetry.Client

	mu      sync.RWMutex
	frames  map[string]models.Frame
	loading bool
	lastErr string
}

// New creates a lifecycle backed by the given frame service.
func New(svc remote.FrameService, tel telemetry.Client) *Lifecycle {
	if tel == nil {
		tel = telemetry.NoopClient{}
	}
	return &Lifecycle{
		svc:    svc,
		tel:    tel,
		frames: make(map[string]models.Frame),
	}
}

// Load replaces the local collection, with no remote effect. Used when
// restoring a snapshot at process start.
func (l *Lifecycle) Load(frames []models.Frame) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frames = make(map[string]models.Frame, len(frames))
	for _, f := range frames {
		l.frames[f.ID] = f
	}
}

// CreateFrame creates a new draft frame for owner.
func (l *Lifecycle) CreateFrame(ctx context.Context, frameType models.FrameType, owner, projectID string) (models.Frame, error) {
	l.begin()
	defer l.end()

	frame, err := l.svc.Create(ctx, remote.CreateFrameRequest{
		Type:      frameType,
		Owner:     owner,
		ProjectID: projectID,
	})
	if err != nil {
		l.fail(err)
		return models.Frame{}, err
	}
	l.put(frame)
	l.tel.Track("frame_created", telemetry.Properties{"type": string(frameType)})
	return frame, nil
}

// UpdateFrame merges the partial content into the local frame immediately
// and persists it. On persistence failure the local merge is kept
// (last-writer-wins on the client) and the error is surfaced so the caller
// can decide whether to retry.
func (l *Lifecycle) UpdateFrame(ctx context.Context, id string, updates models.FrameContent) error {
	l.mu.Lock()
	frame, ok := l.frames[id]
	l.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrFrameNotFound, id)
	}

	l.begin()
	defer l.end()

	merged := frame.Content.Merge(updates)
	mutation := syncx.Mutation[models.Frame]{
		Apply: func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			frame.Content = merged
			frame.UpdatedAt = time.Now().UTC()
			l.frames[id] = frame
		},
		Call: func() (models.Frame, error) {
			return l.svc.UpdateContent(ctx, id, merged)
		},
		Reconcile: func(server models.Frame) {
			l.put(server)
		},
		OnFailure: func(err error) {
			// Local edit stays in place; only the error is recorded.
			l.fail(err)
		},
	}
	return mutation.Run()
}

// SubmitForReview persists the frame's content, optionally assigns a
// reviewer, moves the frame to in_review, and runs AI evaluation. If
// evaluation fails after the status change succeeded, the transition is
// kept and the evaluation error is surfaced.
func (l *Lifecycle) SubmitForReview(ctx context.Context, id, reviewerID string) error {
	frame, ok := l.GetFrame(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrFrameNotFound, id)
	}
	if frame.Status != models.StatusDraft {
		return fmt.Errorf("%w: frame %s is %s, submit requires draft", ErrIllegalTransition, id, frame.Status)
	}

	l.begin()
	defer l.end()

	// Persist content first so no unsaved edits are lost by the transition.
	if _, err := l.svc.UpdateContent(ctx, id, frame.Content); err != nil {
		l.fail(err)
		return err
	}
	if reviewerID != "" {
		updated, err := l.svc.UpdateMeta(ctx, id, remote.MetaUpdate{Reviewer: &reviewerID})
		if err != nil {
			l.fail(err)
			return err
		}
		l.put(updated)
	}
	updated, err := l.svc.UpdateStatus(ctx, id, models.StatusInReview)
	if err != nil {
		l.fail(err)
		return err
	}
	l.put(updated)
	l.tel.Track("frame_submitted", telemetry.Properties{"type": string(frame.Type)})

	if err := l.evaluateAndMerge(ctx, id); err != nil {
		// The in_review transition stands; only the evaluation failed.
		l.fail(err)
		return err
	}
	return nil
}

// MarkAsReady moves a frame from in_review to ready.
func (l *Lifecycle) MarkAsReady(ctx context.Context, id string) error {
	return l.transition(ctx, id, models.StatusInReview, models.StatusReady)
}

// StartFeedback moves a frame from ready to feedback.
func (l *Lifecycle) StartFeedback(ctx context.Context, id string) error {
	return l.transition(ctx, id, models.StatusReady, models.StatusFeedback)
}

// SubmitFeedback attaches the feedback record and archives the frame. This
// is the only path that ever sets feedback data, so a frame carries a
// record iff it is archived.
func (l *Lifecycle) SubmitFeedback(ctx context.Context, id string, record models.FeedbackRecord) error {
	frame, ok := l.GetFrame(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrFrameNotFound, id)
	}
	if frame.Status != models.StatusFeedback {
		return fmt.Errorf("%w: frame %s is %s, feedback submission requires feedback", ErrIllegalTransition, id, frame.Status)
	}

	l.begin()
	defer l.end()

	record.SubmittedAt = time.Now().UTC()
	if err := l.svc.SubmitFeedback(ctx, id, record); err != nil {
		l.fail(err)
		return err
	}
	updated, err := l.svc.UpdateStatus(ctx, id, models.StatusArchived)
	if err != nil {
		l.fail(err)
		return err
	}
	updated.Feedback = &record
	l.put(updated)
	l.tel.Track("frame_archived", telemetry.Properties{"outcome": record.Outcome})
	return nil
}

// EvaluateFrame re-runs AI evaluation and merges the result. Independent
// of the status machine.
func (l *Lifecycle) EvaluateFrame(ctx context.Context, id string) error {
	if _, ok := l.GetFrame(id); !ok {
		return fmt.Errorf("%w: %s", ErrFrameNotFound, id)
	}
	l.begin()
	defer l.end()
	if err := l.evaluateAndMerge(ctx, id); err != nil {
		l.fail(err)
		return err
	}
	return nil
}

// SaveReviewSummary merges the outcome of a summarized review discussion
// into the local frame. The backend already persisted it as part of the
// summarize call.
func (l *Lifecycle) SaveReviewSummary(id string, review models.Review) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	frame, ok := l.frames[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrFrameNotFound, id)
	}
	frame.Review = &review
	frame.UpdatedAt = time.Now().UTC()
	l.frames[id] = frame
	return nil
}

// Sync replaces the local collection with the owner's frames from the
// record store. Empty owner lists everything. Feedback records attached
// locally on archived frames survive a server copy that omits them.
func (l *Lifecycle) Sync(ctx context.Context, owner string) error {
	l.begin()
	defer l.end()
	frames, err := l.svc.List(ctx, owner)
	if err != nil {
		l.fail(err)
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	prev := l.frames
	l.frames = make(map[string]models.Frame, len(frames))
	for _, f := range frames {
		if f.Feedback == nil && f.Status == models.StatusArchived {
			if old, ok := prev[f.ID]; ok && old.Feedback != nil {
				f.Feedback = old.Feedback
			}
		}
		l.frames[f.ID] = f
	}
	return nil
}

// Refresh re-reads a frame from the record store and replaces the local copy.
func (l *Lifecycle) Refresh(ctx context.Context, id string) (models.Frame, error) {
	l.begin()
	defer l.end()
	frame, err := l.svc.Get(ctx, id)
	if err != nil {
		l.fail(err)
		return models.Frame{}, err
	}
	l.put(frame)
	return frame, nil
}

// DeleteFrame removes a frame from the record store and the local set.
func (l *Lifecycle) DeleteFrame(ctx context.Context, id string) error {
	l.begin()
	defer l.end()
	if err := l.svc.Delete(ctx, id); err != nil && !types.IsNotFound(err) {
		l.fail(err)
		return err
	}
	l.mu.Lock()
	delete(l.frames, id)
	l.mu.Unlock()
	return nil
}

// GetFrame returns a copy of the frame with the given id.
func (l *Lifecycle) GetFrame(id string) (models.Frame, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	frame, ok := l.frames[id]
	return frame, ok
}

// Frames returns all frames ordered by creation time.
func (l *Lifecycle) Frames() []models.Frame {
	return l.filtered(func(models.Frame) bool { return true })
}

// WorkingFrames returns every frame that has not been archived.
func (l *Lifecycle) WorkingFrames() []models.Frame {
	return l.filtered(func(f models.Frame) bool { return !f.IsArchived() })
}

// ArchivedFrames returns every archived frame.
func (l *Lifecycle) ArchivedFrames() []models.Frame {
	return l.filtered(func(f models.Frame) bool { return f.IsArchived() })
}

// Loading reports whether a remote-backed operation is in progress.
func (l *Lifecycle) Loading() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loading
}

// LastError returns the human-readable message of the most recent remote
// failure, or "" after a successful operation.
func (l *Lifecycle) LastError() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastErr
}

func (l *Lifecycle) transition(ctx context.Context, id string, from, to models.FrameStatus) error {
	frame, ok := l.GetFrame(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrFrameNotFound, id)
	}
	if frame.Status != from {
		return fmt.Errorf("%w: frame %s is %s, want %s", ErrIllegalTransition, id, frame.Status, from)
	}

	l.begin()
	defer l.end()

	updated, err := l.svc.UpdateStatus(ctx, id, to)
	if err != nil {
		l.fail(err)
		return err
	}
	l.put(updated)
	return nil
}

func (l *Lifecycle) evaluateAndMerge(ctx context.Context, id string) error {
	eval, err := l.svc.Evaluate(ctx, id)
	if err != nil {
		return err
	}
	eval.EvaluatedAt = time.Now().UTC()

	l.mu.Lock()
	defer l.mu.Unlock()
	frame, ok := l.frames[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrFrameNotFound, id)
	}
	frame.Evaluation = &eval
	frame.UpdatedAt = time.Now().UTC()
	l.frames[id] = frame
	return nil
}

func (l *Lifecycle) filtered(keep func(models.Frame) bool) []models.Frame {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Frame, 0, len(l.frames))
	for _, f := range l.frames {
		if keep(f) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (l *Lifecycle) put(frame models.Frame) {
	l.mu.Lock()
	defer l.mu.Unlock()
	// A feedback record already attached locally survives a server copy
	// that omits it.
	if frame.Feedback == nil {
		if existing, ok := l.frames[frame.ID]; ok && existing.Feedback != nil && frame.Status == models.StatusArchived {
			frame.Feedback = existing.Feedback
		}
	}
	l.frames[frame.ID] = frame
}

func (l *Lifecycle) begin() {
	l.mu.Lock()
	l.loading = true
	l.lastErr = ""
	l.mu.Unlock()
}

func (l *Lifecycle) end() {
	l.mu.Lock()
	l.loading = false
	l.mu.Unlock()
}

func (l *Lifecycle) fail(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var se *types.ServiceError
	if errors.As(err, &se) && se.Message != "" {
		l.lastErr = se.Message
		return
	}
	l.lastErr = err.Error()
}
