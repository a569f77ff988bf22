package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"cvbuilder/internal/llm"
	"cvbuilder/internal/shared/telemetry"
)

const defaultModel = "gemini-2.5-flash"

// Client implements llm.Completer with the Gemini API.
type Client struct {
	client *genai.Client
	model  string
}

// NewClient constructs a Gemini client. An empty model uses gemini-2.5-flash.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Client{client: client, model: model}, nil
}

func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.Prompt), generateConfig(req))
	if err != nil {
		return llm.Response{}, classify(err)
	}
	out := llm.Response{Text: strings.TrimSpace(resp.Text()), Model: c.model}
	if resp.ModelVersion != "" {
		out.Model = resp.ModelVersion
	}
	if resp.UsageMetadata != nil {
		out.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	if out.Text == "" {
		return llm.Response{}, fmt.Errorf("gemini response empty content")
	}
	telemetry.Info("llm.response", map[string]any{
		"provider":          "gemini",
		"model":             out.Model,
		"prompt_tokens":     out.PromptTokens,
		"completion_tokens": out.CompletionTokens,
	})
	return out, nil
}

func generateConfig(req llm.Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{Temperature: req.Temperature}
	if strings.TrimSpace(req.System) != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	return cfg
}

// classify turns Gemini API errors into llm.StatusError so retry and
// error mapping treat both providers alike.
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &llm.StatusError{Provider: "gemini", StatusCode: apiErr.Code, Message: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &llm.StatusError{Provider: "gemini", StatusCode: apiErrPtr.Code, Message: apiErrPtr.Message}
	}
	return fmt.Errorf("gemini request: %w", err)
}

var _ llm.Completer = (*Client)(nil)
