package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Completer sends a single chat completion to a provider.
type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Request is one system + user prompt exchange.
type Request struct {
	System      string
	Prompt      string
	JSON        bool
	MaxTokens   int
	Temperature *float32
}

// Response is the model's text answer.
type Response struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("LLM provider not configured")

// PlaceholderClient is used when no provider is configured.
type PlaceholderClient struct{}

// Complete returns ErrNotConfigured.
func (PlaceholderClient) Complete(ctx context.Context, req Request) (Response, error) {
	return Response{}, ErrNotConfigured
}

// StatusError is a non-2xx answer from a provider.
type StatusError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: http status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s: http status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// Temporary reports whether retrying the same request may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsTransient reports whether err is worth one more attempt: timeouts,
// rate limiting, 5xx answers and dropped connections.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrNotConfigured) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"client.timeout",
		"connection reset",
		"connection refused",
		"connection closed",
		"broken pipe",
		"tls handshake timeout",
		"unexpected eof",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// IsTimeout reports whether err is a deadline or client timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(strings.ToLower(fmt.Sprint(err)), "client.timeout")
}
