package analyses

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"cvbuilder/internal/ai"
	"cvbuilder/internal/analyses/recommendations"
	"cvbuilder/internal/events"
	"cvbuilder/internal/llm"
	"cvbuilder/internal/queue"
	"cvbuilder/internal/shared/metrics"
	"cvbuilder/internal/shared/telemetry"
	"cvbuilder/internal/subscriptions"
	"cvbuilder/internal/usage"
)

const (
	maxJobDescriptionRunes = 20000
	atsFunction            = "ats-score"
)

// Runner executes a named AI function.
type Runner interface {
	Run(ctx context.Context, userID, name string, in ai.Input) (ai.Result, error)
}

// Gate checks whether a user may use a feature.
type Gate interface {
	Require(ctx context.Context, userID string, feature subscriptions.Feature) error
}

// Service contains business logic for analyses.
type Service struct {
	Repo   Repo
	AI     Runner
	Gate   Gate
	Queue  queue.Client
	Events events.Publisher
	Now    func() time.Time
}

// NewService constructs a Service. Queue may be set later, which is how the
// inline client gets wired back to HandleMessage.
func NewService(repo Repo, runner Runner, gate Gate, q queue.Client, pub events.Publisher) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{Repo: repo, AI: runner, Gate: gate, Queue: q, Events: pub, Now: time.Now}
}

// CreateInput holds the fields of a new analysis request.
type CreateInput struct {
	ResumeID       string
	FileID         string
	JobDescription string
}

// Result is the stored outcome of a completed analysis.
type Result struct {
	ATS             ai.ATSScore                      `json:"ats"`
	Recommendations []recommendations.Recommendation `json:"recommendations"`
}

// Create stores a queued analysis and enqueues it for processing.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (Analysis, error) {
	in.ResumeID = strings.TrimSpace(in.ResumeID)
	in.FileID = strings.TrimSpace(in.FileID)
	if strings.TrimSpace(userID) == "" {
		return Analysis{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if (in.ResumeID == "") == (in.FileID == "") {
		return Analysis{}, fmt.Errorf("%w: exactly one of resumeId or fileId is required", ErrInvalidInput)
	}
	jd := strings.TrimSpace(in.JobDescription)
	if utf8.RuneCountInString(jd) > maxJobDescriptionRunes {
		return Analysis{}, fmt.Errorf("%w: jobDescription must be at most %d characters", ErrInvalidInput, maxJobDescriptionRunes)
	}
	if s.Gate != nil {
		if err := s.Gate.Require(ctx, userID, subscriptions.FeatureAnalyses); err != nil {
			return Analysis{}, err
		}
	}
	if s.Queue == nil {
		return Analysis{}, ErrJobQueueNotConfigured
	}

	now := s.now()
	a := Analysis{
		ID:             uuid.NewString(),
		UserID:         userID,
		ResumeID:       in.ResumeID,
		FileID:         in.FileID,
		JobDescription: jd,
		Status:         StatusQueued,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.Repo.Create(ctx, a); err != nil {
		return Analysis{}, err
	}
	requestID := requestIDFromContext(ctx)
	s.publish(ctx, a, requestID)
	logStatus(a, requestID, "->queued")

	if err := s.Queue.Send(ctx, queue.NewMessage(a.ID, requestID)); err != nil {
		telemetry.Error("analysis.enqueue_failed", map[string]any{
			"analysisId": a.ID,
			"requestId":  requestID,
			"error":      err.Error(),
		})
		failCtx := context.WithoutCancel(ctx)
		if ferr := s.Repo.Fail(failCtx, a.ID, ErrorCodeInternal, "failed to enqueue analysis", s.now()); ferr != nil {
			telemetry.Error("analysis.fail_record_failed", map[string]any{"analysisId": a.ID, "error": ferr.Error()})
		}
		return Analysis{}, fmt.Errorf("enqueue analysis: %w", err)
	}
	return a, nil
}

// Get returns an analysis owned by userID.
func (s *Service) Get(ctx context.Context, userID, id string) (Analysis, error) {
	if strings.TrimSpace(id) == "" {
		return Analysis{}, fmt.Errorf("%w: analysis id is required", ErrInvalidInput)
	}
	return s.Repo.Get(ctx, userID, id)
}

// List returns analyses for a user ordered newest-first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Analysis, error) {
	if userID == "" {
		return nil, errors.New("userID is required")
	}
	return s.Repo.List(ctx, userID, limit, offset)
}

// Delete removes an analysis owned by userID.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.Repo.Delete(ctx, userID, id)
}

// DeleteAll removes every analysis owned by userID.
func (s *Service) DeleteAll(ctx context.Context, userID string) (int, error) {
	return s.Repo.DeleteAllByUser(ctx, userID)
}

// HandleMessage processes one queue message. It is the queue.HandlerFunc used
// by the worker and the inline client.
func (s *Service) HandleMessage(ctx context.Context, msg queue.Message) error {
	return s.ProcessAnalysis(WithRequestID(ctx, msg.RequestID), msg.AnalysisID)
}

// ProcessAnalysis runs one analysis to a terminal state. Failures that belong
// to the analysis are recorded on it and nil is returned; a non-nil error means
// the message should be retried.
func (s *Service) ProcessAnalysis(ctx context.Context, id string) (err error) {
	requestID := requestIDFromContext(ctx)
	a, err := s.Repo.Claim(ctx, id, s.now())
	switch {
	case errors.Is(err, ErrAlreadyFinished):
		telemetry.Info("analysis.skipped", map[string]any{"analysisId": id, "requestId": requestID, "status": string(a.Status)})
		return nil
	case errors.Is(err, ErrNotFound):
		telemetry.Warn("analysis.missing", map[string]any{"analysisId": id, "requestId": requestID})
		return nil
	case err != nil:
		return fmt.Errorf("claim analysis: %w", err)
	}
	s.publish(ctx, a, requestID)
	logStatus(a, requestID, "queued->processing")

	defer func() {
		if r := recover(); r != nil {
			err = s.fail(ctx, a, requestID, ErrorCodeInternal, fmt.Sprintf("panic: %v", r))
		}
	}()

	started := time.Now()
	res, runErr := s.AI.Run(ctx, a.UserID, atsFunction, ai.Input{
		ResumeID:       a.ResumeID,
		FileID:         a.FileID,
		JobDescription: a.JobDescription,
	})
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) && ctx.Err() != nil {
			return runErr
		}
		// Provider errors reach here after the completer's own retry and end
		// the analysis; only unclassified failures go back to the queue.
		code := classify(runErr)
		if code == ErrorCodeInternal && !isTerminal(runErr) {
			return fmt.Errorf("run %s: %w", atsFunction, runErr)
		}
		return s.fail(ctx, a, requestID, code, runErr.Error())
	}
	if res.Fallback {
		return s.fail(ctx, a, requestID, ErrorCodeLLMSchemaMismatch, "model response could not be parsed")
	}
	score, ok := res.Data.(ai.ATSScore)
	if !ok {
		return s.fail(ctx, a, requestID, ErrorCodeLLMSchemaMismatch, fmt.Sprintf("unexpected result type %T", res.Data))
	}

	payload, err := json.Marshal(Result{
		ATS: score,
		Recommendations: recommendations.Generate(recommendations.Input{
			Improvements:    score.Improvements,
			MissingKeywords: score.MissingKeywords,
			SectionScores:   score.SectionScores,
		}),
	})
	if err != nil {
		return s.fail(ctx, a, requestID, ErrorCodeInternal, err.Error())
	}
	now := s.now()
	if err := s.Repo.Complete(ctx, a.ID, payload, score.Score, now); err != nil {
		return fmt.Errorf("complete analysis: %w", err)
	}
	a.Status = StatusCompleted
	a.Score = &score.Score
	s.publish(ctx, a, requestID)
	telemetry.Info("analysis.status", map[string]any{
		"analysisId":        a.ID,
		"userId":            a.UserID,
		"requestId":         requestID,
		"status":            string(StatusCompleted),
		"status_transition": "processing->completed",
		"score":             score.Score,
		"latencyMs":         time.Since(started).Milliseconds(),
	})
	return nil
}

func (s *Service) fail(ctx context.Context, a Analysis, requestID, code, message string) error {
	message = sanitizeErrorMessage(message)
	if err := s.Repo.Fail(ctx, a.ID, code, message, s.now()); err != nil {
		return fmt.Errorf("fail analysis: %w", err)
	}
	a.Status = StatusFailed
	a.ErrorCode = code
	s.publish(ctx, a, requestID)
	telemetry.Error("analysis.status", map[string]any{
		"analysisId":        a.ID,
		"userId":            a.UserID,
		"requestId":         requestID,
		"status":            string(StatusFailed),
		"status_transition": "processing->failed",
		"errorCode":         code,
		"error":             message,
	})
	return nil
}

func (s *Service) publish(ctx context.Context, a Analysis, requestID string) {
	metrics.IncAnalysis(string(a.Status))
	events.PublishBestEffort(ctx, s.Events, events.Event{
		AnalysisID: a.ID,
		UserID:     a.UserID,
		Status:     string(a.Status),
		Score:      a.Score,
		ErrorCode:  a.ErrorCode,
		RequestID:  requestID,
		OccurredAt: s.now(),
	})
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func logStatus(a Analysis, requestID, transition string) {
	telemetry.Info("analysis.status", map[string]any{
		"analysisId":        a.ID,
		"userId":            a.UserID,
		"requestId":         requestID,
		"status":            string(a.Status),
		"status_transition": transition,
	})
}

// classify maps a processing error onto the stored error code.
func classify(err error) string {
	switch {
	case errors.Is(err, ai.ErrInvalidInput):
		return ErrorCodeValidation
	case errors.Is(err, ai.ErrSourceNotFound):
		return ErrorCodeSourceNotFound
	case errors.Is(err, ai.ErrLLMUnavailable):
		if llm.IsTimeout(err) {
			return ErrorCodeLLMTimeout
		}
		return ErrorCodeLLMUnavailable
	case errors.Is(err, subscriptions.ErrSubscriptionRequired), errors.Is(err, subscriptions.ErrLoginRequired):
		return ErrorCodeSubscriptionRequired
	case errors.Is(err, usage.ErrLimitReached):
		return ErrorCodeLimitReached
	default:
		return ErrorCodeInternal
	}
}

// isTerminal reports whether an unclassified error still ends the analysis.
func isTerminal(err error) bool {
	return errors.Is(err, ai.ErrUnknownFunction) || errors.Is(err, context.DeadlineExceeded)
}

func sanitizeErrorMessage(msg string) string {
	msg = strings.Join(strings.Fields(msg), " ")
	if utf8.RuneCountInString(msg) <= maxErrorMessageLen {
		return msg
	}
	runes := []rune(msg)
	return string(runes[:maxErrorMessageLen])
}
