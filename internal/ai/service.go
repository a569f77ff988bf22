package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cvbuilder/internal/files"
	"cvbuilder/internal/llm"
	"cvbuilder/internal/resumes"
	"cvbuilder/internal/shared/metrics"
	"cvbuilder/internal/shared/telemetry"
	"cvbuilder/internal/subscriptions"
	"cvbuilder/internal/usage"
)

// TextSource resolves a stored document to plain text.
type TextSource interface {
	Text(ctx context.Context, userID, id string) (string, error)
}

// Gate checks whether a user may use a feature.
type Gate interface {
	Require(ctx context.Context, userID string, feature subscriptions.Feature) error
}

// Meter tracks AI quota. Consume must be atomic against the limit.
type Meter interface {
	Get(ctx context.Context, userID string) (usage.Usage, error)
	Consume(ctx context.Context, userID string, n int) (usage.Usage, error)
	Refund(ctx context.Context, userID string, n int) (usage.Usage, error)
}

// Service runs AI functions through a Completer.
type Service struct {
	LLM     llm.Completer
	Gate    Gate
	Usage   Meter
	Resumes TextSource
	Files   TextSource
	Timeout time.Duration
}

// NewService constructs a Service. Gate, Usage and the text sources are optional.
func NewService(completer llm.Completer, gate Gate, meter Meter, resumeText, fileText TextSource) *Service {
	return &Service{
		LLM:     completer,
		Gate:    gate,
		Usage:   meter,
		Resumes: resumeText,
		Files:   fileText,
		Timeout: 60 * time.Second,
	}
}

// Result is the outcome of one function call. Fallback is true when the
// model's output could not be parsed and Data holds the fallback object.
type Result struct {
	Function  string `json:"function"`
	Data      any    `json:"data"`
	Fallback  bool   `json:"fallback"`
	Model     string `json:"model,omitempty"`
	Remaining *int   `json:"remaining,omitempty"`
}

// Run validates input, applies subscription and quota checks, calls the model
// and decodes its answer. Unparseable answers yield the fallback object.
func (s *Service) Run(ctx context.Context, userID, name string, in Input) (Result, error) {
	fn, ok := Lookup(name)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	if fn.needsResumeText() {
		var err error
		if in, err = s.resolveResumeText(ctx, userID, in); err != nil {
			return Result{}, err
		}
	}
	if missing := in.missing(fn.Required); len(missing) > 0 {
		return Result{}, &InputError{Missing: missing}
	}
	in = in.trimmed()

	if s.Gate != nil {
		if err := s.Gate.Require(ctx, userID, subscriptions.FeatureAI); err != nil {
			return Result{}, err
		}
	}
	if s.LLM == nil {
		return Result{}, &UpstreamError{Err: llm.ErrNotConfigured}
	}
	// One unit is reserved before the call and handed back if no answer is charged.
	var reserved *usage.Usage
	if s.Usage != nil {
		u, err := s.reserve(ctx, userID)
		if err != nil {
			return Result{}, err
		}
		reserved = &u
	}

	callCtx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	temp := fn.temperature
	started := time.Now()
	resp, err := s.LLM.Complete(callCtx, llm.Request{
		System:      fn.system,
		Prompt:      fn.prompt(in),
		JSON:        true,
		MaxTokens:   fn.maxTokens,
		Temperature: &temp,
	})
	elapsed := time.Since(started)
	if err != nil {
		outcome := "error"
		if llm.IsTimeout(err) {
			outcome = "timeout"
		}
		metrics.ObserveLLMCall(fn.Name, outcome, elapsed)
		telemetry.Error("ai.call_failed", map[string]any{
			"function":  fn.Name,
			"userId":    userID,
			"latencyMs": elapsed.Milliseconds(),
			"error":     err.Error(),
		})
		s.refund(ctx, userID, fn.Name, reserved)
		return Result{}, &UpstreamError{Err: err}
	}

	res := Result{Function: fn.Name, Model: resp.Model}
	data, err := fn.decode(resp.Text)
	if err != nil {
		metrics.ObserveLLMCall(fn.Name, "fallback", elapsed)
		telemetry.Warn("ai.fallback", map[string]any{
			"function":   fn.Name,
			"userId":     userID,
			"error":      err.Error(),
			"outputSize": len(resp.Text),
		})
		res.Data = fn.fallback(in)
		res.Fallback = true
		s.refund(ctx, userID, fn.Name, reserved)
		return res, nil
	}
	metrics.ObserveLLMCall(fn.Name, "ok", elapsed)
	res.Data = data

	if reserved != nil {
		remaining := reserved.Remaining()
		res.Remaining = &remaining
	}
	telemetry.Info("ai.completed", map[string]any{
		"function":         fn.Name,
		"userId":           userID,
		"model":            resp.Model,
		"latencyMs":        elapsed.Milliseconds(),
		"promptTokens":     resp.PromptTokens,
		"completionTokens": resp.CompletionTokens,
	})
	return res, nil
}

func (s *Service) reserve(ctx context.Context, userID string) (usage.Usage, error) {
	u, err := s.Usage.Consume(ctx, userID, 1)
	if errors.Is(err, usage.ErrLimitReached) {
		snap, gerr := s.Usage.Get(ctx, userID)
		if gerr != nil {
			return usage.Usage{}, gerr
		}
		return usage.Usage{}, &LimitError{Usage: snap}
	}
	return u, err
}

func (s *Service) refund(ctx context.Context, userID, function string, reserved *usage.Usage) {
	if reserved == nil {
		return
	}
	if _, err := s.Usage.Refund(context.WithoutCancel(ctx), userID, 1); err != nil {
		telemetry.Warn("ai.usage_refund_failed", map[string]any{
			"function": function,
			"userId":   userID,
			"error":    err.Error(),
		})
	}
}

func (s *Service) resolveResumeText(ctx context.Context, userID string, in Input) (Input, error) {
	if in.has(FieldResumeText) {
		return in, nil
	}
	var (
		src  TextSource
		id   string
		kind string
	)
	switch {
	case in.ResumeID != "":
		src, id, kind = s.Resumes, in.ResumeID, "resume"
	case in.FileID != "":
		src, id, kind = s.Files, in.FileID, "file"
	default:
		return in, nil
	}
	if src == nil {
		return in, fmt.Errorf("%w: %s references are not supported", ErrInvalidInput, kind)
	}
	text, err := src.Text(ctx, userID, id)
	switch {
	case errors.Is(err, resumes.ErrNotFound), errors.Is(err, files.ErrNotFound):
		return in, &SourceError{Kind: kind, ID: id, Err: err}
	case errors.Is(err, files.ErrNotExtracted):
		return in, fmt.Errorf("%w: file %s has no extracted text", ErrInvalidInput, id)
	case err != nil:
		return in, err
	}
	in.ResumeText = text
	return in, nil
}

// IsUpstream reports whether err came from the model provider.
func IsUpstream(err error) bool {
	return errors.Is(err, ErrLLMUnavailable)
}
