package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"cvbuilder/internal/llm"
	"cvbuilder/internal/shared/telemetry"
)

const (
	defaultBaseURL = "https://api.openai.com"
	chatPath       = "/v1/chat/completions"
	maxBodyBytes   = 4 << 20
)

// Client implements llm.Completer using OpenAI-compatible Chat Completions.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a new OpenAI client. An empty baseURL uses api.openai.com.
func NewClient(apiKey, model, baseURL string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		model:      model,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    *float32        `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body := chatRequest{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	}
	if req.Temperature != nil && supportsTemperature(c.model) {
		body.Temperature = req.Temperature
	}
	if req.JSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return llm.Response{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatPath, bytes.NewReader(payload))
	if err != nil {
		return llm.Response{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return llm.Response{}, fmt.Errorf("openai request timeout: %w", err)
		}
		return llm.Response{}, fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return llm.Response{}, fmt.Errorf("openai read response: %w", err)
	}

	var parsed chatResponse
	parseErr := json.Unmarshal(raw, &parsed)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := ""
		if parseErr == nil && parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return llm.Response{}, &llm.StatusError{Provider: "openai", StatusCode: resp.StatusCode, Message: msg}
	}
	if parseErr != nil {
		return llm.Response{}, fmt.Errorf("openai response parse: %w", parseErr)
	}
	if parsed.Error != nil {
		return llm.Response{}, fmt.Errorf("openai error: %s (%s)", parsed.Error.Message, parsed.Error.Type)
	}
	if len(parsed.Choices) == 0 {
		return llm.Response{}, fmt.Errorf("openai response missing choices")
	}

	out := llm.Response{
		Text:  strings.TrimSpace(parsed.Choices[0].Message.Content),
		Model: parsed.Model,
	}
	if out.Model == "" {
		out.Model = c.model
	}
	if parsed.Usage != nil {
		out.PromptTokens = parsed.Usage.PromptTokens
		out.CompletionTokens = parsed.Usage.CompletionTokens
	}
	telemetry.Info("llm.response", map[string]any{
		"provider":          "openai",
		"model":             out.Model,
		"prompt_tokens":     out.PromptTokens,
		"completion_tokens": out.CompletionTokens,
	})
	return out, nil
}

// supportsTemperature is false for gpt-5 models and models listed in
// LLM_NO_TEMP0_MODELS, which reject an explicit temperature.
func supportsTemperature(model string) bool {
	if isGPT5(model) {
		return false
	}
	for _, m := range strings.Split(os.Getenv("LLM_NO_TEMP0_MODELS"), ",") {
		if strings.EqualFold(strings.TrimSpace(m), strings.TrimSpace(model)) {
			return false
		}
	}
	return true
}

func isGPT5(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-5")
}

var _ llm.Completer = (*Client)(nil)
