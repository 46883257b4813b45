package auth

import (
	"context"
	"sync"
	"time"
)

// KeyStore defines the interface for API key storage operations.
type KeyStore interface {
	// Create stores a new API key.
	Create(ctx context.Context, key *APIKey) error

	// GetByPrefix retrieves an API key by its prefix.
	// Returns nil, nil if not found.
	GetByPrefix(ctx context.Context, prefix string) (*APIKey, error)

	// GetByID retrieves an API key by its ID.
	// Returns nil, nil if not found.
	GetByID(ctx context.Context, id string) (*APIKey, error)

	// List returns all API keys (without sensitive data).
	List(ctx context.Context) ([]*APIKey, error)

	// Revoke marks an API key as revoked.
	Revoke(ctx context.Context, id string) error

	// UpdateLastUsed updates the last used timestamp for an API key.
	UpdateLastUsed(ctx context.Context, id string, t time.Time) error

	// Delete permanently removes an API key.
	Delete(ctx context.Context, id string) error
}

// MemoryKeyStore is an in-memory implementation of KeyStore.
// It is thread-safe and suitable for development and testing.
type MemoryKeyStore struct {
	mu   sync.RWMutex
	keys map[string]*APIKey // keyed by ID

	// prefixIndex maps prefix -> ID for fast lookup
	prefixIndex map[string]string
}

// NewMemoryKeyStore creates a new in-memory key store.
func NewMemoryKeyStore() *MemoryKeyStore {
	return &MemoryKeyStore{
		keys:        make(map[string]*APIKey),
		prefixIndex: make(map[string]string),
	}
}

func (s *MemoryKeyStore) Create(_ context.Context, key *APIKey) error {
	if key == nil {
		return ErrKeyNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// Prefix collision is extremely unlikely with 8 chars of base64url,
	// but reject it rather than silently shadowing an existing key.
	if _, exists := s.prefixIndex[key.Prefix]; exists {
		return ErrInvalidKeyFormat
	}

	s.keys[key.ID] = copyAPIKey(key)
	s.prefixIndex[key.Prefix] = key.ID
	return nil
}

func (s *MemoryKeyStore) GetByPrefix(_ context.Context, prefix string) (*APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.prefixIndex[prefix]
	if !exists {
		return nil, nil
	}
	key, exists := s.keys[id]
	if !exists {
		return nil, nil
	}
	return copyAPIKey(key), nil
}

func (s *MemoryKeyStore) GetByID(_ context.Context, id string) (*APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, exists := s.keys[id]
	if !exists {
		return nil, nil
	}
	return copyAPIKey(key), nil
}

func (s *MemoryKeyStore) List(_ context.Context) ([]*APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*APIKey, 0, len(s.keys))
	for _, key := range s.keys {
		// Copy without hash/salt so callers cannot leak secrets.
		k := copyAPIKey(key)
		k.Hash = nil
		k.Salt = nil
		result = append(result, k)
	}
	return result, nil
}

func (s *MemoryKeyStore) Revoke(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, exists := s.keys[id]
	if !exists {
		return ErrKeyNotFound
	}
	key.Revoked = true
	return nil
}

func (s *MemoryKeyStore) UpdateLastUsed(_ context.Context, id string, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, exists := s.keys[id]
	if !exists {
		return ErrKeyNotFound
	}
	key.LastUsedAt = &t
	return nil
}

func (s *MemoryKeyStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, exists := s.keys[id]
	if !exists {
		return ErrKeyNotFound
	}
	delete(s.prefixIndex, key.Prefix)
	delete(s.keys, id)
	return nil
}

func copyAPIKey(key *APIKey) *APIKey {
	k := *key
	k.Hash = append([]byte(nil), key.Hash...)
	k.Salt = append([]byte(nil), key.Salt...)
	k.Scopes = append([]string(nil), key.Scopes...)
	if key.ExpiresAt != nil {
		t := *key.ExpiresAt
		k.ExpiresAt = &t
	}
	if key.LastUsedAt != nil {
		t := *key.LastUsedAt
		k.LastUsedAt = &t
	}
	return &k
}
