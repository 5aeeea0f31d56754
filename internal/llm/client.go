// internal/llm/client.go
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/Corphon/Diplomat/internal/errors"
	"github.com/tidwall/gjson"
)

// DefaultTemperature keeps assessments close to deterministic.
const DefaultTemperature float32 = 0.2

// upstreamFallbackMessage is reported when a failing upstream gives no error message.
const upstreamFallbackMessage = "LLM request failed"

// 请求参数标准化
type CompletionRequest struct {
	Prompt       string  `json:"prompt"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
	Temperature  float32 `json:"temperature,omitempty"`
}

// 响应结构标准化
type CompletionResponse struct {
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason,omitempty"`
	TokensUsed   int    `json:"tokens_used,omitempty"`
	ModelName    string `json:"model_name,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// Client talks to one OpenAI-compatible /chat/completions endpoint.
type Client struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
}

// NewClient creates a client. baseURL is used without its trailing slashes; an empty apiKey
// sends no Authorization header.
func NewClient(baseURL, model, apiKey string, timeout time.Duration) *Client {
	return NewClientWithHTTP(baseURL, model, apiKey, &http.Client{Timeout: timeout})
}

// NewClientWithHTTP is NewClient with a caller-supplied transport.
func NewClientWithHTTP(baseURL, model, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		model:   model,
		apiKey:  apiKey,
		client:  httpClient,
	}
}

// Model returns the model name sent upstream.
func (c *Client) Model() string {
	return c.model
}

// CompleteText sends one chat completion and returns the first choice's content.
// Transport failures and non-2xx statuses are upstream errors; an unreadable
// success payload is a parse error.
func (c *Client) CompleteText(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	messages := make([]chatMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	temperature := req.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}

	jsonData, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, apperrors.NewUpstreamError(err.Error(), 0, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, apperrors.NewUpstreamError(err.Error(), 0, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, apperrors.NewUpstreamError(err.Error(), httpResp.StatusCode, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, apperrors.NewUpstreamError(upstreamErrorMessage(body), httpResp.StatusCode, nil)
	}

	if !gjson.ValidBytes(body) {
		return nil, apperrors.NewParseError("LLM response was not valid JSON", nil)
	}

	parsed := gjson.ParseBytes(body)
	model := parsed.Get("model").String()
	if model == "" {
		model = c.model
	}

	return &CompletionResponse{
		Text:         parsed.Get("choices.0.message.content").String(),
		FinishReason: parsed.Get("choices.0.finish_reason").String(),
		TokensUsed:   int(parsed.Get("usage.total_tokens").Int()),
		ModelName:    model,
	}, nil
}

// upstreamErrorMessage pulls error.message out of an error payload, if any.
func upstreamErrorMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return upstreamFallbackMessage
	}
	if msg := strings.TrimSpace(gjson.GetBytes(body, "error.message").String()); msg != "" {
		return msg
	}
	return upstreamFallbackMessage
}
