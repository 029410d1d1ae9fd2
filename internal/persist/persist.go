// Package persist commits finished analysis results to the store, one
// idempotent persister per analysis kind.
package persist

import (
	"log/slog"

	"storyteller/internal/analysis"
	"storyteller/internal/store"
)

// Registry dispatches results to the persister for their kind.
type Registry struct {
	byKind map[analysis.Kind]analysis.Persister
}

// NewRegistry builds a registry from the given persisters.
func NewRegistry(persisters ...analysis.Persister) *Registry {
	r := &Registry{byKind: make(map[analysis.Kind]analysis.Persister)}
	for _, p := range persisters {
		r.byKind[p.Kind()] = p
	}
	return r
}

// NewDefault returns a registry covering every analysis kind, backed by st.
func NewDefault(st *store.Store, logger *slog.Logger) *Registry {
	return NewRegistry(
		NewCharacterPersister(st, logger),
		NewDialogPersister(st, logger),
		NewVoicePersister(st, logger),
		NewPlotPointPersister(st, logger),
		NewForeshadowPersister(st, logger),
		NewThemePersister(st, logger),
	)
}

// Get returns the persister for kind.
func (r *Registry) Get(kind analysis.Kind) (analysis.Persister, bool) {
	p, ok := r.byKind[kind]
	return p, ok
}

func ensureLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}
