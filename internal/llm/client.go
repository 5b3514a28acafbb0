// Package llm is a minimal client for OpenAI-compatible chat completion
// services (Groq, OpenAI, and most self-hosted gateways speak this protocol).
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrModelNotFound is returned when the service rejects the model
// identifier (decommissioned or unknown). Callers switch models through
// configuration, so this is surfaced as its own kind.
var ErrModelNotFound = errors.New("llm: model not found")

// ErrUnavailable is returned when the service cannot be reached or
// answers with a server-side failure.
var ErrUnavailable = errors.New("llm: service unavailable")

// Request is a single completion request.
type Request struct {
	System      string
	Prompt      string
	Model       string
	Temperature float64
	JSONMode    bool // ask the service for a JSON object response
}

// Client generates text for a prompt. Implementations must be safe for
// concurrent use; the composer issues several requests at once.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// HTTPClient talks to a /chat/completions endpoint.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPClient creates a client for the given base URL (without the
// /chat/completions suffix).
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// Complete sends one chat completion request and returns the generated text.
func (c *HTTPClient) Complete(ctx context.Context, req Request) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("llm: API key not configured")
	}

	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body := chatRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
	}
	if req.JSONMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("llm: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", c.statusError(resp.StatusCode, respBody)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("llm: decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("llm: API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("llm: empty choices in response")
	}

	return parsed.Choices[0].Message.Content, nil
}

func (c *HTTPClient) statusError(status int, body []byte) error {
	var parsed chatResponse
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &parsed) == nil && parsed.Error != nil {
		msg = parsed.Error.Message
		// Groq and OpenAI both report decommissioned/unknown models
		// with this code on a 404.
		if parsed.Error.Code == "model_not_found" || parsed.Error.Code == "model_decommissioned" {
			return fmt.Errorf("%w: %s", ErrModelNotFound, msg)
		}
	}
	switch {
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrModelNotFound, msg)
	case status >= 500, status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d: %s", ErrUnavailable, status, msg)
	default:
		return fmt.Errorf("llm: API error %d: %s", status, msg)
	}
}
