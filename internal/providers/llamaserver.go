package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	LlamaServerName       = "llamaserver"
	llamaServerDefaultURL = "http://127.0.0.1:8080/v1"
)

// LlamaServerConfig holds configuration for the llama-server engine client.
type LlamaServerConfig struct {
	BaseURL    string // OpenAI-compatible endpoint (default: http://127.0.0.1:8080/v1)
	Model      string // Model name forwarded to the server ("local" works for single-model servers)
	APIKey     string // Usually empty for a local server
	RateLimit  float64
	Timeout    time.Duration
	HTTPClient *http.Client // Optional (tests)
}

// LlamaServerEngine talks to a local llama.cpp server through its
// OpenAI-compatible chat completions endpoint.
type LlamaServerEngine struct {
	client  openai.Client
	model   string
	baseURL string
	limiter *RateLimiter
}

// NewLlamaServerEngine creates a llama-server engine client.
func NewLlamaServerEngine(cfg LlamaServerConfig) *LlamaServerEngine {
	if cfg.BaseURL == "" {
		cfg.BaseURL = llamaServerDefaultURL
	}
	if cfg.Model == "" {
		cfg.Model = "local"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}

	opts := []option.RequestOption{
		option.WithBaseURL(cfg.BaseURL),
		option.WithRequestTimeout(cfg.Timeout),
		option.WithMaxRetries(0), // retries are handled at the batch level
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	} else {
		// The SDK requires a key; llama-server ignores it.
		opts = append(opts, option.WithAPIKey("none"))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &LlamaServerEngine{
		client:  openai.NewClient(opts...),
		model:   cfg.Model,
		baseURL: cfg.BaseURL,
		limiter: NewRateLimiter(int(cfg.RateLimit)),
	}
}

// Name returns the engine identifier.
func (e *LlamaServerEngine) Name() string {
	return LlamaServerName
}

// Generate sends one chat completion request to the server.
func (e *LlamaServerEngine) Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return GenerateResult{}, err
	}

	model := req.Model
	if model == "" {
		model = e.model
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(req.UserPrompt),
		},
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	start := time.Now()
	resp, err := e.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return GenerateResult{}, e.mapError(err)
	}
	if len(resp.Choices) == 0 {
		return GenerateResult{}, Transient(fmt.Errorf("llama-server returned no choices"))
	}

	return GenerateResult{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		Engine:           LlamaServerName,
		ModelUsed:        model,
		Duration:         time.Since(start),
	}, nil
}

// HealthCheck probes the server's models endpoint.
func (e *LlamaServerEngine) HealthCheck(ctx context.Context) error {
	if _, err := e.client.Models.List(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	return nil
}

// mapError classifies SDK errors into the transient/fatal taxonomy.
// llama-server reports slot exhaustion and mid-inference OOM as 5xx, which
// resolves after earlier requests drain, so 5xx is transient here.
func (e *LlamaServerEngine) mapError(err error) error {
	var apiErr *openai.Error
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
