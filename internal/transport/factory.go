package transport

import (
	"fmt"

	"llmbridge/internal/auth"
	"llmbridge/internal/config"
	"llmbridge/internal/convert"
)

// NewProvider creates a transport adapter for a provider id using
// resolved credentials and provider config. OpenAI-compatible providers
// share one adapter parameterized by base URL.
func NewProvider(providerID string, creds *auth.Credentials, conv *convert.Converter, pc config.ProviderConfig) (Provider, error) {
	switch providerID {
	case "openai", "openrouter", "local":
		return NewOpenAIProvider(creds, conv, providerID, pc.Endpoint, pc.Model), nil
	case "anthropic":
		return NewAnthropicProvider(creds, conv, pc.Model), nil
	default:
		if pc.Endpoint != "" {
			// Unknown providers with a configured endpoint are assumed
			// OpenAI-compatible; auth headers were already synthesized
			// by the resolver.
			return NewOpenAIProvider(creds, conv, providerID, pc.Endpoint, pc.Model), nil
		}
		return nil, fmt.Errorf("no transport adapter for provider: %s", providerID)
	}
}
