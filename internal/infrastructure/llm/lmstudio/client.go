package lmstudio

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mkoehler/docsort/internal/core/ports"
	"github.com/mkoehler/docsort/internal/infrastructure/resilience"
)

// Client talks to an LM Studio style OpenAI-compatible chat-completions
// endpoint. One classification is one chat call; retries and the breaker are
// owned by the executor.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, model string, timeout time.Duration, executor *resilience.Executor) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type classificationPayload struct {
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory"`
	Confidence  float64 `json:"confidence"`
}

func (c *Client) ClassifyText(ctx context.Context, req ports.InferenceRequest) (ports.InferenceResponse, error) {
	request := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildUserPrompt(req)},
		},
		Temperature: 0.1,
		MaxTokens:   256,
	}

	var response chatResponse
	err := c.executor.Execute(ctx, "inference.classify", func(ctx context.Context) error {
		return c.postJSON(ctx, "/v1/chat/completions", request, &response)
	}, classifyInferenceError)
	if err != nil {
		return ports.InferenceResponse{}, wrapTemporaryIfNeeded("classify text", err)
	}
	if len(response.Choices) == 0 {
		return ports.InferenceResponse{}, fmt.Errorf("classify text: empty choices")
	}

	content := strings.TrimSpace(response.Choices[0].Message.Content)
	var payload classificationPayload
	if err := json.Unmarshal([]byte(extractJSONObject(content)), &payload); err != nil {
		return ports.InferenceResponse{}, fmt.Errorf("parse classification json: %w", err)
	}
	if payload.Category == "" {
		return ports.InferenceResponse{}, fmt.Errorf("classification json without category")
	}
	return ports.InferenceResponse{
		Category:    payload.Category,
		Subcategory: payload.Subcategory,
		Confidence:  payload.Confidence,
		Raw:         content,
	}, nil
}

// extractJSONObject cuts the outermost object out of a chatty model answer.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
