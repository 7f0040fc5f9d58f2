// Package llm adapts OpenAI-compatible chat completion APIs to service.Generator.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	systemPrompt     = "You are a helpful assistant."
	defaultMaxTokens = 2000
)

// Config selects the endpoint and model.
type Config struct {
	APIKey    string
	BaseURL   string // empty means api.openai.com
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// OpenAI generates text through a chat completion endpoint.
type OpenAI struct {
	client    *openai.Client
	model     string
	maxTokens int
	timeout   time.Duration
	log       *zap.Logger
}

// NewOpenAI builds the adapter. A base URL lets it talk to any
// OpenAI-compatible server, for example a local Ollama.
func NewOpenAI(cfg Config, log *zap.Logger) (*OpenAI, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, errors.New("openai api key is not configured")
	}
	if log == nil {
		log = zap.NewNop()
	}
	key := cfg.APIKey
	if key == "" {
		key = "dummy-key"
	}
	oc := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	log.Info("llm adapter initialized", zap.String("model", model), zap.Bool("custom_base_url", cfg.BaseURL != ""))
	return &OpenAI{
		client:    openai.NewClientWithConfig(oc),
		model:     model,
		maxTokens: maxTokens,
		timeout:   cfg.Timeout,
		log:       log.Named("llm"),
	}, nil
}

// Generate sends prompt as the user message and returns the first choice.
func (a *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	req := openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: a.maxTokens,
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	a.log.Debug("chat completion",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens))
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
