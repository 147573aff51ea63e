package auth

import "sync"

// anthropicVersion is the fixed protocol version header value sent
// alongside x-api-key.
const anthropicVersion = "2023-06-01"

// HeaderBuilder synthesizes the auth headers for a resolved key.
type HeaderBuilder func(key string) map[string]string

// ProviderAuthSpec is the static per-provider auth descriptor. Specs
// are immutable once registered; extending to a new provider means
// adding one entry.
type ProviderAuthSpec struct {
	ProviderID   string
	EnvVar       string
	BuildHeaders HeaderBuilder
}

// GenericMapping describes how to authenticate against a provider that
// has no built-in spec: a header name plus an optional value prefix
// (e.g. "Bearer ").
type GenericMapping struct {
	EnvVar string `yaml:"env_var" json:"env_var"`
	Header string `yaml:"header" json:"header"`
	Prefix string `yaml:"prefix" json:"prefix"`
}

// BearerHeaders builds authorization headers for OpenAI-compatible
// providers.
func BearerHeaders(key string) map[string]string {
	return map[string]string{"authorization": "Bearer " + key}
}

// APIKeyHeaders builds Anthropic-style headers: the key header plus the
// fixed protocol version header.
func APIKeyHeaders(key string) map[string]string {
	return map[string]string{
		"x-api-key":         key,
		"anthropic-version": anthropicVersion,
	}
}

// GoogleHeaders builds the Google vendor key header.
func GoogleHeaders(key string) map[string]string {
	return map[string]string{"x-goog-api-key": key}
}

// CloudflareHeaders builds the Cloudflare vendor key header.
func CloudflareHeaders(key string) map[string]string {
	return map[string]string{"x-auth-key": key}
}

// Registry holds the provider auth spec table plus configured generic
// mappings for providers without a built-in spec.
type Registry struct {
	mu      sync.RWMutex
	specs   map[string]ProviderAuthSpec
	generic map[string]GenericMapping
}

// NewRegistry creates a registry pre-loaded with the built-in provider
// families.
func NewRegistry() *Registry {
	r := &Registry{
		specs:   make(map[string]ProviderAuthSpec),
		generic: make(map[string]GenericMapping),
	}
	for _, spec := range []ProviderAuthSpec{
		{ProviderID: "openai", EnvVar: "OPENAI_API_KEY", BuildHeaders: BearerHeaders},
		{ProviderID: "openrouter", EnvVar: "OPENROUTER_API_KEY", BuildHeaders: BearerHeaders},
		{ProviderID: "anthropic", EnvVar: "ANTHROPIC_API_KEY", BuildHeaders: APIKeyHeaders},
		{ProviderID: "google", EnvVar: "GOOGLE_API_KEY", BuildHeaders: GoogleHeaders},
		{ProviderID: "cloudflare", EnvVar: "CLOUDFLARE_API_KEY", BuildHeaders: CloudflareHeaders},
	} {
		r.specs[spec.ProviderID] = spec
	}
	return r
}

// Register adds or replaces a provider spec.
func (r *Registry) Register(spec ProviderAuthSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[spec.ProviderID] = spec
}

// RegisterGeneric installs a configured generic mapping for a provider
// without a built-in spec.
func (r *Registry) RegisterGeneric(providerID string, m GenericMapping) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generic[providerID] = m
}

// Lookup returns the auth spec for a provider. Generic mappings are
// consulted when no built-in spec exists; a missing mapping yields
// ok=false rather than a panic.
func (r *Registry) Lookup(providerID string) (ProviderAuthSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if spec, ok := r.specs[providerID]; ok {
		return spec, true
	}
	if m, ok := r.generic[providerID]; ok {
		header := m.Header
		prefix := m.Prefix
		return ProviderAuthSpec{
			ProviderID: providerID,
			EnvVar:     m.EnvVar,
			BuildHeaders: func(key string) map[string]string {
				return map[string]string{header: prefix + key}
			},
		}, true
	}
	return ProviderAuthSpec{}, false
}
