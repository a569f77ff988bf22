package ai

import (
	"errors"
	"fmt"
	"strings"

	"cvbuilder/internal/usage"
)

var (
	ErrUnknownFunction = errors.New("unknown AI function")
	ErrInvalidInput    = errors.New("invalid input")
	ErrLLMUnavailable  = errors.New("AI provider unavailable")
	ErrSourceNotFound  = errors.New("source document not found")
	ErrParseFailed     = errors.New("could not parse résumé text")
)

// InputError lists the required fields a request left empty.
type InputError struct {
	Missing []string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: missing %s", ErrInvalidInput, strings.Join(e.Missing, ", "))
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

// LimitError carries the usage snapshot that refused the call.
type LimitError struct {
	Usage usage.Usage
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s (%d/%d)", usage.ErrLimitReached, e.Usage.Used, e.Usage.Limit)
}

func (e *LimitError) Unwrap() error { return usage.ErrLimitReached }

// UpstreamError wraps a provider failure.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", ErrLLMUnavailable, e.Err)
}

// Unwrap exposes both the sentinel and the provider error, so callers can
// test for ErrLLMUnavailable and for timeouts.
func (e *UpstreamError) Unwrap() []error { return []error{ErrLLMUnavailable, e.Err} }

// SourceError reports a resumeId or fileId that could not be resolved.
type SourceError struct {
	Kind string
	ID   string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", ErrSourceNotFound, e.Kind, e.ID, e.Err)
}

func (e *SourceError) Unwrap() []error { return []error{ErrSourceNotFound, e.Err} }
