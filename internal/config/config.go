package config

import "llmbridge/internal/auth"

// Config is the top-level bridge configuration.
type Config struct {
	Providers   map[string]ProviderConfig `json:"providers" yaml:"providers"`
	Aggregation AggregationConfig         `json:"aggregation" yaml:"aggregation"`
	Sanitizer   SanitizerConfig           `json:"sanitizer" yaml:"sanitizer"`
}

// ProviderConfig describes one upstream provider: where to reach it and
// how to authenticate when it has no built-in auth spec.
type ProviderConfig struct {
	Endpoint    string              `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Model       string              `json:"model,omitempty" yaml:"model,omitempty"`
	EnvVar      string              `json:"env_var,omitempty" yaml:"env_var,omitempty"`
	GenericAuth *auth.GenericMapping `json:"generic_auth,omitempty" yaml:"generic_auth,omitempty"`
	TimeoutSecs int                 `json:"timeout_secs" yaml:"timeout_secs"`
}

// AggregationConfig controls response formatting.
type AggregationConfig struct {
	ToolResultStyle string `json:"tool_result_style" yaml:"tool_result_style"`
}

// SanitizerConfig extends the built-in sensitive field list.
type SanitizerConfig struct {
	ExtraSensitiveFields []string `json:"extra_sensitive_fields,omitempty" yaml:"extra_sensitive_fields,omitempty"`
}

// Defaults returns a Config with sensible default values.
func Defaults() *Config {
	return &Config{
		Providers: map[string]ProviderConfig{
			"openai": {
				Model:       "gpt-4o-mini",
				TimeoutSecs: 120,
			},
			"anthropic": {
				Model:       "claude-sonnet-4-5-20250514",
				TimeoutSecs: 120,
			},
			"openrouter": {
				Endpoint:    "https://openrouter.ai/api/v1",
				TimeoutSecs: 120,
			},
		},
		Aggregation: AggregationConfig{
			ToolResultStyle: "integrated",
		},
		Sanitizer: SanitizerConfig{},
	}
}
