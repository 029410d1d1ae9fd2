package endpoints

import (
	"storyteller/internal/api"
	"storyteller/internal/enginectl"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	EngineManager   *enginectl.Manager
	SwaggerSpecPath string
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health and status
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{EngineManager: cfg.EngineManager},

		// Books
		&ListBooksEndpoint{},
		&GetBookEndpoint{},
		&IngestEndpoint{},
		&DeleteBookEndpoint{},

		// Analysis
		&AnalyzeEndpoint{},
		&FindingsEndpoint{},
		&ListLLMCallsEndpoint{},

		// Checkpoints
		&ListCheckpointsEndpoint{},
		&DeleteCheckpointEndpoint{},

		// OpenAPI
		&SwaggerEndpoint{SpecPath: cfg.SwaggerSpecPath},
		&SwaggerUIEndpoint{},
	}
}
