// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"storyteller/internal/config"
	"storyteller/internal/enginectl"
	"storyteller/internal/home"
	"storyteller/internal/jobs"
	"storyteller/internal/prompts"
	"storyteller/internal/providers"
	"storyteller/internal/store"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Store     *store.Store
	Config    *config.Manager
	Registry  *providers.Registry
	Runner    *jobs.Runner
	Resolver  *prompts.Resolver
	EngineCtl *enginectl.Manager
	Logger    *slog.Logger
	Home      *home.Dir
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// StoreFrom extracts the persistence store from context.
func StoreFrom(ctx context.Context) *store.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Store
	}
	return nil
}

// ConfigFrom extracts the config manager from context.
func ConfigFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}

// RegistryFrom extracts the engine registry from context.
func RegistryFrom(ctx context.Context) *providers.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Registry
	}
	return nil
}

// RunnerFrom extracts the analysis job runner from context.
func RunnerFrom(ctx context.Context) *jobs.Runner {
	if s := ServicesFrom(ctx); s != nil {
		return s.Runner
	}
	return nil
}

// ResolverFrom extracts the prompt resolver from context.
func ResolverFrom(ctx context.Context) *prompts.Resolver {
	if s := ServicesFrom(ctx); s != nil {
		return s.Resolver
	}
	return nil
}

// EngineCtlFrom extracts the llama-server container manager from context.
func EngineCtlFrom(ctx context.Context) *enginectl.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.EngineCtl
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}
