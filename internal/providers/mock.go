package providers

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const MockEngineName = "mock"

// MockEngine is an Engine for tests and offline development. Responses are
// served from a script in order, falling back to ResponseText.
type MockEngine struct {
	// Configurable behavior
	Latency      time.Duration
	ResponseText string
	Responses    []string // Served in order; the last one repeats

	// FailFirst makes the first N calls fail with a transient error.
	FailFirst int
	// FailAll makes every call fail with a fatal error.
	FailAll bool

	mu    sync.Mutex
	calls int
	// Prompts records every user prompt received, for assertions.
	Prompts []string
}

// NewMockEngine creates a mock engine that echoes a fixed response.
func NewMockEngine() *MockEngine {
	return &MockEngine{ResponseText: "{}"}
}

// Name returns the engine identifier.
func (e *MockEngine) Name() string {
	return MockEngineName
}

// CallCount returns how many Generate calls have been made.
func (e *MockEngine) CallCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// Generate serves the next scripted response.
func (e *MockEngine) Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error) {
	if e.Latency > 0 {
		select {
		case <-ctx.Done():
			return GenerateResult{}, ctx.Err()
		case <-time.After(e.Latency):
		}
	}

	e.mu.Lock()
	e.calls++
	call := e.calls
	e.Prompts = append(e.Prompts, req.UserPrompt)
	text := e.ResponseText
	if len(e.Responses) > 0 {
		idx := call - 1
		if idx >= len(e.Responses) {
			idx = len(e.Responses) - 1
		}
		text = e.Responses[idx]
	}
	e.mu.Unlock()

	if e.FailAll {
		return GenerateResult{}, fmt.Errorf("%w: mock engine configured to fail", ErrEngineUnavailable)
	}
	if call <= e.FailFirst {
		return GenerateResult{}, Transient(fmt.Errorf("mock engine transient failure %d", call))
	}

	return GenerateResult{
		Text:             text,
		PromptTokens:     len(req.UserPrompt) / 4,
		CompletionTokens: len(text) / 4,
		Engine:           MockEngineName,
		ModelUsed:        "mock",
	}, nil
}

// HealthCheck always succeeds unless the engine is configured to fail.
func (e *MockEngine) HealthCheck(ctx context.Context) error {
	if e.FailAll {
		return ErrEngineUnavailable
	}
	return nil
}
