package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Defaults for the OpenAI-compatible endpoint (LM Studio on localhost).
const (
	DefaultSummarizerURL         = "http://localhost:1234/v1"
	DefaultSummarizerModel       = "gemma-3-4b-it-Q4_K_M.gguf"
	DefaultSummarizerTemperature = 0.3
	DefaultSummarizerMaxTokens   = 1000
	DefaultSummarizerTimeout     = 60 * time.Second
)

// ErrNoChoices is returned when a completion response carries no choices.
var ErrNoChoices = errors.New("no choices in completion response")

// ClientConfig configures an OpenAIClient.
type ClientConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// OpenAIClient talks to any OpenAI-compatible chat completion endpoint.
// It is created explicitly by its owner and shared by the summarizer and the
// chat driver; it holds no per-request state.
type OpenAIClient struct {
	client *openai.Client
	cfg    ClientConfig
}

// NewOpenAIClient creates a client for cfg, filling unset fields with defaults.
func NewOpenAIClient(cfg ClientConfig) *OpenAIClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultSummarizerURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultSummarizerModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultSummarizerMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultSummarizerTimeout
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
	}
}

// Model returns the configured model id.
func (c *OpenAIClient) Model() string {
	return c.cfg.Model
}

// BaseURL returns the configured endpoint base URL.
func (c *OpenAIClient) BaseURL() string {
	return c.cfg.BaseURL
}

// Complete sends prompt as a single user message and returns the generated text.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	LogDebug("Requesting completion from %s (model %s, %d prompt chars)", c.cfg.BaseURL, c.cfg.Model, len(prompt))
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		Stream:      false,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}

// Chat sends a prepared prompt to model and returns the assistant reply.
// An empty model falls back to the configured one.
func (c *OpenAIClient) Chat(ctx context.Context, model string, messages []PromptMessage) (string, error) {
	if model == "" {
		model = c.cfg.Model
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: make([]openai.ChatCompletionMessage, len(messages)),
	}
	for i, m := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}

// ListModels returns the ids of the models the endpoint reports.
func (c *OpenAIClient) ListModels(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	list, err := c.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models failed: %w", err)
	}
	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	return ids, nil
}
