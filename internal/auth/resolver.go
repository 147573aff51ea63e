package auth

import (
	"log"

	"llmbridge/internal/eventbus"
	"llmbridge/internal/security"
)

// AuthError reports a credential resolution failure.
type AuthError struct {
	Reason   string
	Provider string
}

func (e *AuthError) Error() string {
	return "auth: " + e.Reason + " for provider " + e.Provider
}

// ErrorReason exposes the failure reason to the error classifier.
func (e *AuthError) ErrorReason() string { return e.Reason }

// Credentials is a successfully resolved provider credential with its
// synthesized headers.
type Credentials struct {
	Headers map[string]string
	Key     string
}

// CredentialSource identifies which precedence tier supplied a key.
type CredentialSource string

const (
	SourceSession  CredentialSource = "session"
	SourceOverride CredentialSource = "per_request_override"
	SourceEnv      CredentialSource = "environment"
	SourceStored   CredentialSource = "stored_default"
)

// RequestOptions carries per-call overrides for a single bridge
// invocation. A non-nil APIKey overrides every tier below it, even when
// it points at an empty string.
type RequestOptions struct {
	APIKey *string
}

// ConfigStore is the persistent configuration collaborator consulted by
// the two lowest precedence tiers.
type ConfigStore interface {
	// GetDefault returns the stored default key for a provider.
	GetDefault(providerID string) (string, bool)

	// GetEnv returns the value of an environment variable. A set-but-empty
	// variable counts as present.
	GetEnv(name string) (string, bool)
}

// Resolver resolves provider credentials through the layered precedence
// chain and synthesizes provider-specific auth headers. It reads
// session and environment state only, so it is idempotent and safe to
// call repeatedly.
type Resolver struct {
	registry *Registry
	store    ConfigStore
	san      *security.Sanitizer
	bus      *eventbus.Bus
}

// NewResolver creates a resolver over the given spec registry and
// config collaborator. The bus may be nil.
func NewResolver(registry *Registry, store ConfigStore, san *security.Sanitizer, bus *eventbus.Bus) *Resolver {
	return &Resolver{registry: registry, store: store, san: san, bus: bus}
}

// Resolve picks the highest-precedence credential present for a
// provider and returns it with synthesized headers.
//
// Precedence, first match wins:
//  1. session-scoped value for this provider
//  2. per-request override in opts
//  3. environment variable named by the provider spec
//  4. stored default from the config collaborator
func (r *Resolver) Resolve(session *Session, providerID string, opts RequestOptions) (*Credentials, error) {
	spec, ok := r.registry.Lookup(providerID)
	if !ok {
		return nil, &AuthError{Reason: "unsupported_provider", Provider: providerID}
	}

	key, source, found := r.lookupKey(session, spec, opts)
	if !found {
		return nil, &AuthError{Reason: "key_not_found", Provider: providerID}
	}

	log.Printf("[auth] resolved %s credential from %s (%s)", providerID, source, security.MaskKey(key))
	if r.bus != nil {
		r.bus.Publish(eventbus.TopicAuthResolved, map[string]any{
			"provider": providerID,
			"source":   string(source),
		})
	}

	return &Credentials{
		Headers: spec.BuildHeaders(key),
		Key:     key,
	}, nil
}

func (r *Resolver) lookupKey(session *Session, spec ProviderAuthSpec, opts RequestOptions) (string, CredentialSource, bool) {
	if session != nil {
		if key, ok := session.Get(spec.ProviderID); ok {
			return key, SourceSession, true
		}
	}
	if opts.APIKey != nil {
		return *opts.APIKey, SourceOverride, true
	}
	if spec.EnvVar != "" {
		if key, ok := r.store.GetEnv(spec.EnvVar); ok {
			return key, SourceEnv, true
		}
	}
	if key, ok := r.store.GetDefault(spec.ProviderID); ok {
		return key, SourceStored, true
	}
	return "", "", false
}

// Describe returns a sanitized diagnostic view of a resolved
// credential, safe to expose outside the core.
func (r *Resolver) Describe(creds *Credentials) map[string]any {
	headers := make(map[string]any, len(creds.Headers))
	for name := range creds.Headers {
		headers[name] = security.MaskKey(creds.Headers[name])
	}
	return r.san.Map(map[string]any{
		"key":     security.MaskKey(creds.Key),
		"headers": headers,
	})
}
