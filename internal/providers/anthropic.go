package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	AnthropicName         = "anthropic"
	anthropicDefaultModel = "claude-sonnet-4-5"
	anthropicMaxTokens    = 4096
)

// AnthropicConfig holds configuration for the Anthropic engine client.
type AnthropicConfig struct {
	APIKey    string
	Model     string
	RateLimit float64
	Timeout   time.Duration
}

// AnthropicEngine implements Engine against the Anthropic Messages API.
type AnthropicEngine struct {
	client  anthropic.Client
	model   string
	limiter *RateLimiter
}

// NewAnthropicEngine creates an Anthropic engine client.
func NewAnthropicEngine(cfg AnthropicConfig) *AnthropicEngine {
	if cfg.Model == "" {
		cfg.Model = anthropicDefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}

	client := anthropic.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
		option.WithMaxRetries(0),
	)

	return &AnthropicEngine{
		client:  client,
		model:   cfg.Model,
		limiter: NewRateLimiter(int(cfg.RateLimit)),
	}
}

// Name returns the engine identifier.
func (e *AnthropicEngine) Name() string {
	return AnthropicName
}

// Generate sends one message request.
func (e *AnthropicEngine) Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return GenerateResult{}, err
	}

	model := req.Model
	if model == "" {
		model = e.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserPrompt)),
		},
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	start := time.Now()
	msg, err := e.client.Messages.New(ctx, params)
	if err != nil {
		return GenerateResult{}, e.mapError(err)
	}

	var text string
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += tb.Text
		}
	}

	return GenerateResult{
		Text:             text,
		PromptTokens:     int(msg.Usage.InputTokens),
		CompletionTokens: int(msg.Usage.OutputTokens),
		Engine:           AnthropicName,
		ModelUsed:        model,
		Duration:         time.Since(start),
	}, nil
}

// HealthCheck verifies credentials and reachability with a minimal request.
func (e *AnthropicEngine) HealthCheck(ctx context.Context) error {
	_, err := e.client.Models.List(ctx, anthropic.ModelListParams{})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	return nil
}

func (e *AnthropicEngine) mapError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 429 {
			e.limiter.Record429(0)
		}
		return classifyStatus(apiErr.StatusCode, err)
	}
	if IsTransient(err) {
		return Transient(err)
	}
	return fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
}
