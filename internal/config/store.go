package config

import (
	"os"

	"llmbridge/internal/security"
)

// Store is the credential collaborator consulted by the two lowest
// resolution tiers: process environment and stored defaults.
type Store struct {
	keys *security.KeyStore
}

// NewStore creates a store over an optional key store. A nil key store
// means no stored defaults exist.
func NewStore(keys *security.KeyStore) *Store {
	return &Store{keys: keys}
}

// GetDefault returns the stored default key for a provider.
func (s *Store) GetDefault(providerID string) (string, bool) {
	if s.keys == nil {
		return "", false
	}
	return s.keys.Get(providerID)
}

// GetEnv returns an environment variable value. A set-but-empty
// variable counts as present.
func (s *Store) GetEnv(name string) (string, bool) {
	return os.LookupEnv(name)
}
