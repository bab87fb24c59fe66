package llmservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"vehicle-spec-rag/internal/config"
	"vehicle-spec-rag/internal/helper"
	"vehicle-spec-rag/internal/models"
)

// Client sends a prompt to a chat model and returns the completion text.
type Client struct {
	llm         llms.Model
	model       string
	temperature float64
	timeout     time.Duration
	retry       helper.RetryConfig
}

// New creates the client for the configured provider.
func New(ctx context.Context, cfg *config.LLMConfig) (*Client, error) {
	log.Debug().Str("provider", cfg.Provider).Str("model", cfg.Model).Msg("Creating llm client")

	var llm llms.Model
	var err error
	switch cfg.Provider {
	case config.ProviderOpenAI:
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		llm, err = openai.New(opts...)
	case config.ProviderOllama:
		llm, err = ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
	case config.ProviderGoogleAI:
		if cfg.Key == "" {
			return nil, errors.New("googleai api key is required (llm.key or GEMINI_API_KEY)")
		}
		llm, err = googleai.New(ctx,
			googleai.WithAPIKey(cfg.Key),
			googleai.WithDefaultModel(cfg.Model),
		)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s client: %w", cfg.Provider, err)
	}

	client := NewWithModel(llm, cfg.Model, cfg.Temperature, helper.DefaultRetryConfig(cfg.MaxRetries))
	return client.WithTimeout(cfg.Timeout()), nil
}

// NewWithModel wraps an existing langchaingo model.
func NewWithModel(llm llms.Model, model string, temperature float64, retry helper.RetryConfig) *Client {
	// a blocked or empty reply will not change on retry
	retry.RetryIf = func(err error) bool {
		return !errors.Is(err, models.ErrEmptyCompletion)
	}
	return &Client{llm: llm, model: model, temperature: temperature, retry: retry}
}

// WithTimeout bounds each model call, including each retry, to d. Zero
// leaves calls bounded only by the caller's context.
func (c *Client) WithTimeout(d time.Duration) *Client {
	c.timeout = d
	return c
}

// Complete returns the model's reply to prompt. An empty or blocked reply is
// reported as models.ErrEmptyCompletion rather than an empty string.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	return helper.RetryWithResult(ctx, c.retry, "llm_complete", func() (string, error) {
		return c.complete(ctx, prompt)
	})
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	msgContent := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}

	opts := []llms.CallOption{}
	if c.temperature > 0 {
		opts = append(opts, llms.WithTemperature(c.temperature))
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	res, err := c.llm.GenerateContent(ctx, msgContent, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if res == nil || len(res.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", models.ErrEmptyCompletion)
	}

	choice := res.Choices[0]
	if strings.TrimSpace(choice.Content) == "" {
		log.Warn().Str("model", c.model).Str("stop_reason", choice.StopReason).Msg("Model returned no content")
		return "", fmt.Errorf("%w: stop reason %q", models.ErrEmptyCompletion, choice.StopReason)
	}
	return choice.Content, nil
}
