package auth

import "sync"

// Session is a per-execution-context credential store, the highest tier
// of the resolution precedence chain. Isolation is structural: each
// context owns its own Session, so values set in one are invisible to
// another and ClearAll only empties the calling context's table.
type Session struct {
	mu   sync.RWMutex
	keys map[string]string
}

// NewSession creates an empty session credential store.
func NewSession() *Session {
	return &Session{keys: make(map[string]string)}
}

// Set stores a session-scoped key for a provider. An empty value still
// counts as present for precedence purposes.
func (s *Session) Set(providerID, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[providerID] = key
}

// Get returns the session key for a provider and whether one is set.
func (s *Session) Get(providerID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.keys[providerID]
	return key, ok
}

// Clear removes the session key for one provider.
func (s *Session) Clear(providerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, providerID)
}

// ClearAll removes every key in this session. Used at session teardown.
func (s *Session) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = make(map[string]string)
}
