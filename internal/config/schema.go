package config

import "storyteller/internal/tokens"

// Config holds storyteller configuration.
// Stored at: ~/.storyteller/config.yaml
type Config struct {
	Engines     map[string]EngineCfg `mapstructure:"engines" yaml:"engines"`
	Defaults    DefaultsCfg          `mapstructure:"defaults" yaml:"defaults"`
	Budgets     map[string]BudgetCfg `mapstructure:"budgets" yaml:"budgets"`
	Checkpoints CheckpointsCfg       `mapstructure:"checkpoints" yaml:"checkpoints"`
	Analysis    AnalysisCfg          `mapstructure:"analysis" yaml:"analysis"`
	Store       StoreCfg             `mapstructure:"store" yaml:"store"`
	Server      ServerCfg            `mapstructure:"server" yaml:"server"`
	Container   ContainerCfg         `mapstructure:"container" yaml:"container"`
}

// EngineCfg configures an inference engine.
type EngineCfg struct {
	Type           string  `mapstructure:"type" yaml:"type"`                 // "llamaserver", "anthropic", "mock"
	BaseURL        string  `mapstructure:"base_url" yaml:"base_url"`         // OpenAI-compatible endpoint (llamaserver)
	Model          string  `mapstructure:"model" yaml:"model"`               // Model name
	APIKey         string  `mapstructure:"api_key" yaml:"api_key"`           // API key (supports ${ENV_VAR} syntax)
	ContextWindow  int     `mapstructure:"context_window" yaml:"context_window"` // Model context size in tokens
	RateLimit      float64 `mapstructure:"rate_limit" yaml:"rate_limit"`     // Requests per minute
	TimeoutSeconds int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	Enabled        bool    `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg specifies default selections for analysis runs.
type DefaultsCfg struct {
	Engine     string   `mapstructure:"engine" yaml:"engine"`           // Default inference engine
	Kinds      []string `mapstructure:"kinds" yaml:"kinds"`             // Analysis kinds to run, in order
	MaxWorkers int      `mapstructure:"max_workers" yaml:"max_workers"` // Max concurrent chapter tasks
}

// BudgetCfg configures the token budget of one analysis kind.
type BudgetCfg struct {
	PromptTokens int `mapstructure:"prompt_tokens" yaml:"prompt_tokens"`
	InputTokens  int `mapstructure:"input_tokens" yaml:"input_tokens"`
	OutputTokens int `mapstructure:"output_tokens" yaml:"output_tokens"`
}

// ToBudget converts the config entry into a tokens.Budget value.
func (b BudgetCfg) ToBudget() tokens.Budget {
	return tokens.NewBudget(b.PromptTokens, b.InputTokens, b.OutputTokens)
}

// CheckpointsCfg configures checkpoint validity.
type CheckpointsCfg struct {
	// ExpiryHours is how long a checkpoint stays resumable (default: 24).
	ExpiryHours int `mapstructure:"expiry_hours" yaml:"expiry_hours"`
}

// AnalysisCfg configures batch execution.
type AnalysisCfg struct {
	// MaxRetries bounds retries of one batch inference call.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
	// RetryDelaySeconds is the base delay for exponential backoff.
	RetryDelaySeconds int `mapstructure:"retry_delay_seconds" yaml:"retry_delay_seconds"`
	// SegmentChars is the target size of one chapter slice per inference call.
	SegmentChars int `mapstructure:"segment_chars" yaml:"segment_chars"`
}

// StoreCfg configures the SQLite store.
type StoreCfg struct {
	// Path overrides the database location (default: ~/.storyteller/db/storyteller.db).
	Path string `mapstructure:"path" yaml:"path"`
}

// ServerCfg configures the HTTP server.
type ServerCfg struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port string `mapstructure:"port" yaml:"port"`
}

// ContainerCfg holds llama-server container configuration.
type ContainerCfg struct {
	// ContainerName is the Docker container name (default: storyteller-llama)
	ContainerName string `mapstructure:"container_name" yaml:"container_name"`
	// Image is the Docker image to use (default: ghcr.io/ggml-org/llama.cpp:server)
	Image string `mapstructure:"image" yaml:"image"`
	// Port is the host port to bind (default: 8080)
	Port string `mapstructure:"port" yaml:"port"`
	// ModelFile is the GGUF file name inside ~/.storyteller/models
	ModelFile string `mapstructure:"model_file" yaml:"model_file"`
	// CtxSize is the context size the server is started with
	CtxSize int `mapstructure:"ctx_size" yaml:"ctx_size"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Engines: map[string]EngineCfg{
			"llamaserver": {
				Type:           "llamaserver",
				BaseURL:        "http://127.0.0.1:8080/v1",
				Model:          "local",
				ContextWindow:  8192,
				RateLimit:      120,
				TimeoutSeconds: 300,
				Enabled:        true,
			},
			"anthropic": {
				Type:           "anthropic",
				Model:          "claude-sonnet-4-5",
				APIKey:         "${ANTHROPIC_API_KEY}",
				ContextWindow:  200000,
				RateLimit:      50,
				TimeoutSeconds: 300,
				Enabled:        false,
			},
		},
		Defaults: DefaultsCfg{
			Engine:     "llamaserver",
			Kinds:      []string{"characters", "dialogs", "plotpoints", "foreshadow", "themes", "voices"},
			MaxWorkers: 2,
		},
		Budgets: map[string]BudgetCfg{
			"characters": {PromptTokens: 600, InputTokens: 2500, OutputTokens: 900},
			"dialogs":    {PromptTokens: 500, InputTokens: 2000, OutputTokens: 1500},
			"voices":     {PromptTokens: 700, InputTokens: 1200, OutputTokens: 800},
			"plotpoints": {PromptTokens: 400, InputTokens: 2800, OutputTokens: 800},
			"foreshadow": {PromptTokens: 400, InputTokens: 2800, OutputTokens: 800},
			"themes":     {PromptTokens: 300, InputTokens: 3000, OutputTokens: 700},
		},
		Checkpoints: CheckpointsCfg{
			ExpiryHours: 24,
		},
		Analysis: AnalysisCfg{
			MaxRetries:        3,
			RetryDelaySeconds: 2,
			SegmentChars:      4000,
		},
		Store: StoreCfg{},
		Server: ServerCfg{
			Host: "127.0.0.1",
			Port: "9170",
		},
		Container: ContainerCfg{
			ContainerName: "storyteller-llama",
			Image:         "ghcr.io/ggml-org/llama.cpp:server",
			Port:          "8080",
			CtxSize:       8192,
		},
	}
}

// GetEngine returns an engine config by name.
func (c *Config) GetEngine(name string) (EngineCfg, bool) {
	cfg, ok := c.Engines[name]
	return cfg, ok
}

// EnabledEngines returns all enabled engines.
func (c *Config) EnabledEngines() map[string]EngineCfg {
	result := make(map[string]EngineCfg)
	for name, cfg := range c.Engines {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

// KindBudget returns the configured budget for an analysis kind, falling
// back to the default budget for that kind when the config has none.
func (c *Config) KindBudget(kind string) tokens.Budget {
	if b, ok := c.Budgets[kind]; ok {
		return b.ToBudget()
	}
	if b, ok := DefaultConfig().Budgets[kind]; ok {
		return b.ToBudget()
	}
	return tokens.Budget{}
}
