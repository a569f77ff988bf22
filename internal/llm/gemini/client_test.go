package gemini

import (
	"errors"
	"net/http"
	"testing"

	"google.golang.org/genai"

	"cvbuilder/internal/llm"
)

func TestGenerateConfig(t *testing.T) {
	temp := float32(0.3)
	cfg := generateConfig(llm.Request{System: "be terse", JSON: true, MaxTokens: 512, Temperature: &temp})
	if cfg.ResponseMIMEType != "application/json" {
		t.Fatalf("expected JSON mime type, got %q", cfg.ResponseMIMEType)
	}
	if cfg.MaxOutputTokens != 512 {
		t.Fatalf("unexpected max tokens %d", cfg.MaxOutputTokens)
	}
	if cfg.Temperature == nil || *cfg.Temperature != temp {
		t.Fatalf("temperature not forwarded")
	}
	if cfg.SystemInstruction == nil || len(cfg.SystemInstruction.Parts) != 1 || cfg.SystemInstruction.Parts[0].Text != "be terse" {
		t.Fatalf("unexpected system instruction %+v", cfg.SystemInstruction)
	}

	plain := generateConfig(llm.Request{Prompt: "x"})
	if plain.ResponseMIMEType != "" || plain.SystemInstruction != nil {
		t.Fatalf("expected empty config, got %+v", plain)
	}
}

func TestClassifyAPIError(t *testing.T) {
	err := classify(genai.APIError{Code: http.StatusServiceUnavailable, Message: "overloaded"})
	var statusErr *llm.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if !llm.IsTransient(err) {
		t.Fatalf("503 must be transient")
	}

	other := classify(errors.New("boom"))
	if llm.IsTransient(other) {
		t.Fatalf("unknown errors are not transient")
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(t.Context(), "", ""); err == nil {
		t.Fatalf("expected error without api key")
	}
}
