// Package providers contains inference engine clients. The pipeline treats
// an engine as a black box: prompt text in, raw text out, with errors split
// into transient (retryable) and fatal (abort the task).
package providers

import (
	"context"
	"time"
)

// Engine is the external inference oracle.
type Engine interface {
	// Generate sends one prompt to the engine and returns the raw model
	// text. Errors are classified by IsTransient.
	Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error)

	// Name returns the engine identifier (e.g. "llamaserver").
	Name() string

	// HealthCheck verifies the engine is reachable.
	HealthCheck(ctx context.Context) error
}

// GenerateRequest is one inference call.
type GenerateRequest struct {
	SystemPrompt string
	UserPrompt   string

	// Model overrides the engine's default model when set.
	Model string

	// MaxTokens caps the response length. Zero uses the engine default.
	MaxTokens int

	Temperature float64

	// RequestID correlates the call in logs and the llm_calls audit table.
	RequestID string
}

// GenerateResult is the raw outcome of one inference call.
type GenerateResult struct {
	Text string

	// Token usage as reported by the engine; zero when unreported.
	PromptTokens     int
	CompletionTokens int

	Engine    string
	ModelUsed string
	Duration  time.Duration
}
