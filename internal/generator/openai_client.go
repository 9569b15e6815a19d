package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	openAIEndpoint     = "https://api.openai.com/v1/chat/completions"
	openRouterEndpoint = "https://openrouter.ai/api/v1/chat/completions"
	openRouterPrefix   = "sk-or-v1-"
	openRouterTitle    = "Mock Test Admin"
)

type OpenAIOptions struct {
	APIKey string
	// Endpoint is the full chat-completions URL. Empty picks OpenAI or OpenRouter from the key.
	Endpoint   string
	Model      string
	Referer    string
	HTTPClient *http.Client
}

// OpenAIClient talks to any OpenAI-compatible chat-completions endpoint.
type OpenAIClient struct {
	httpClient *http.Client
	apiKey     string
	endpoint   string
	model      string
	referer    string
	openRouter bool
}

func NewOpenAIClient(opts OpenAIOptions) *OpenAIClient {
	c := &OpenAIClient{
		httpClient: opts.HTTPClient,
		apiKey:     opts.APIKey,
		endpoint:   opts.Endpoint,
		model:      opts.Model,
		referer:    opts.Referer,
		openRouter: strings.HasPrefix(opts.APIKey, openRouterPrefix),
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	if c.endpoint == "" {
		c.endpoint = openAIEndpoint
		if c.openRouter {
			c.endpoint = openRouterEndpoint
		}
	}
	if c.model == "" {
		c.model = "gpt-4o-mini"
		if c.openRouter {
			c.model = "openai/gpt-4o-mini"
		}
	}
	if c.referer == "" {
		c.referer = "http://localhost:3000"
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (c *OpenAIClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.openRouter {
		req.Header.Set("HTTP-Referer", c.referer)
		req.Header.Set("X-Title", openRouterTitle)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read chat response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProviderError{Provider: c.name(), StatusCode: resp.StatusCode, Body: truncate(string(raw), 512)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}

	// An empty choice list is treated as an empty array so the caller sees zero records.
	content := "[]"
	if len(parsed.Choices) > 0 && parsed.Choices[0].Message.Content != "" {
		content = parsed.Choices[0].Message.Content
	}

	return &LLMResponse{
		Content:      content,
		PromptTokens: parsed.Usage.PromptTokens,
		OutputTokens: parsed.Usage.CompletionTokens,
	}, nil
}

func (c *OpenAIClient) name() string {
	if c.openRouter {
		return "openrouter"
	}
	return "openai"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
