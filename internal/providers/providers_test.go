package providers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestMockEngineScriptedResponses(t *testing.T) {
	e := NewMockEngine()
	e.Responses = []string{"first", "second"}

	ctx := context.Background()
	r1, err := e.Generate(ctx, GenerateRequest{UserPrompt: "a"})
	if err != nil {
		t.Fatal(err)
	}
	r2, _ := e.Generate(ctx, GenerateRequest{UserPrompt: "b"})
	r3, _ := e.Generate(ctx, GenerateRequest{UserPrompt: "c"})

	if r1.Text != "first" || r2.Text != "second" {
		t.Errorf("unexpected responses: %q, %q", r1.Text, r2.Text)
	}
	// Last scripted response repeats.
	if r3.Text != "second" {
		t.Errorf("expected last response to repeat, got %q", r3.Text)
	}
	if e.CallCount() != 3 {
		t.Errorf("expected 3 calls, got %d", e.CallCount())
	}
}

func TestMockEngineFailFirst(t *testing.T) {
	e := NewMockEngine()
	e.FailFirst = 2

	ctx := context.Background()
	if _, err := e.Generate(ctx, GenerateRequest{}); !IsTransient(err) {
		t.Errorf("expected transient error on first call, got %v", err)
	}
	if _, err := e.Generate(ctx, GenerateRequest{}); !IsTransient(err) {
		t.Errorf("expected transient error on second call, got %v", err)
	}
	if _, err := e.Generate(ctx, GenerateRequest{}); err != nil {
		t.Errorf("expected third call to succeed, got %v", err)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"wrapped transient", Transient(errors.New("timeout")), true},
		{"deadline", context.DeadlineExceeded, true},
		{"wrapped deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), true},
		{"fatal", ErrEngineUnavailable, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	base := errors.New("api error")
	if !IsTransient(classifyStatus(429, base)) {
		t.Error("429 should be transient")
	}
	if !IsTransient(classifyStatus(503, base)) {
		t.Error("503 should be transient")
	}
	if IsTransient(classifyStatus(401, base)) {
		t.Error("401 should not be transient")
	}
}

func TestRegistryReload(t *testing.T) {
	r := NewRegistryFromConfig(RegistryConfig{
		Engines: map[string]EngineConfig{
			"mock": {Type: "mock", Enabled: true},
			"off":  {Type: "mock", Enabled: false},
		},
		DefaultEngine: "mock",
	})

	if !r.Has("mock") {
		t.Fatal("expected mock engine registered")
	}
	if r.Has("off") {
		t.Error("disabled engine should not be registered")
	}
	if _, err := r.Get(""); err != nil {
		t.Errorf("empty name should resolve to default: %v", err)
	}

	// Reload without the engine removes it.
	r.Reload(RegistryConfig{Engines: map[string]EngineConfig{}})
	if r.Has("mock") {
		t.Error("expected mock engine unregistered after reload")
	}
}

func TestRateLimiterWait(t *testing.T) {
	rl := NewRateLimiter(600) // 10/s, bucket starts full

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := 0; i < 5; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("wait %d failed: %v", i, err)
		}
	}

	status := rl.Status()
	if status.TotalConsumed != 5 {
		t.Errorf("expected 5 consumed, got %d", status.TotalConsumed)
	}
}
