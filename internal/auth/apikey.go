// Package auth provides API key authentication.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
)

const (
	// APIKeyPrefix is the prefix for all API keys issued by this service.
	APIKeyPrefix = "iprk_"

	// PrefixLength is the number of characters from the key used for
	// identification, allowing lookup without exposing the full key.
	PrefixLength = 8

	// KeyBytes is the number of random bytes used for key generation.
	KeyBytes = 32

	// Argon2id parameters (OWASP recommended for API key hashing)
	argon2Time    = 1
	argon2Memory  = 64 * 1024 // 64MB
	argon2Threads = 4
	argon2KeyLen  = 32
)

var (
	// ErrInvalidKeyFormat indicates the API key format is invalid.
	ErrInvalidKeyFormat = errors.New("invalid API key format")

	// ErrKeyRevoked indicates the API key has been revoked.
	ErrKeyRevoked = errors.New("API key has been revoked")

	// ErrKeyExpired indicates the API key has expired.
	ErrKeyExpired = errors.New("API key has expired")

	// ErrKeyNotFound indicates the API key was not found.
	ErrKeyNotFound = errors.New("API key not found")

	// ErrInvalidKey indicates the API key failed validation.
	ErrInvalidKey = errors.New("invalid API key")

	// ErrInsufficientScopes indicates the API key lacks required permissions.
	ErrInsufficientScopes = errors.New("insufficient scopes")
)

// APIKey represents a stored API key with metadata.
type APIKey struct {
	ID         string     `json:"id"`
	Prefix     string     `json:"prefix"` // First 8 chars for identification
	Name       string     `json:"name"`   // User-provided name
	Hash       []byte     `json:"-"`      // Argon2id hash of the full key (never serialized)
	Salt       []byte     `json:"-"`      // Salt used for hashing (never serialized)
	Scopes     []string   `json:"scopes"` // Permissions: ["convert:run", "conversions:read", ...]
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"` // nil = no expiration
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	Revoked    bool       `json:"revoked"`
}

// IsExpired returns true if the API key has expired.
func (k *APIKey) IsExpired() bool {
	if k.ExpiresAt == nil {
		return false
	}
	return time.Now().After(*k.ExpiresAt)
}

// IsValid returns true if the API key is active (not revoked and not expired).
func (k *APIKey) IsValid() bool {
	return !k.Revoked && !k.IsExpired()
}

// HasScope returns true if the API key has the specified scope.
// "*" grants everything and "conversions:*" matches "conversions:read".
func (k *APIKey) HasScope(scope string) bool {
	for _, s := range k.Scopes {
		if s == scope || s == "*" {
			return true
		}
		if strings.HasSuffix(s, ":*") {
			prefix := strings.TrimSuffix(s, "*")
			if strings.HasPrefix(scope, prefix) {
				return true
			}
		}
	}
	return false
}

// HasAnyScope returns true if the API key has any of the specified scopes.
func (k *APIKey) HasAnyScope(scopes ...string) bool {
	for _, scope := range scopes {
		if k.HasScope(scope) {
			return true
		}
	}
	return false
}

// GenerateAPIKeyOptions contains options for API key generation.
type GenerateAPIKeyOptions struct {
	Name      string
	Scopes    []string
	ExpiresAt *time.Time
}

// GenerateAPIKey creates a new API key with the given options.
// It returns the plaintext key (to be shown once to the caller) and the
// APIKey record. The plaintext key is never stored; only the hash is kept.
func GenerateAPIKey(opts GenerateAPIKeyOptions) (plaintext string, apiKey *APIKey, err error) {
	keyBytes := make([]byte, KeyBytes)
	if _, err := rand.Read(keyBytes); err != nil {
		return "", nil, fmt.Errorf("failed to generate random key: %w", err)
	}

	encoded := base64.RawURLEncoding.EncodeToString(keyBytes)
	plaintext = APIKeyPrefix + encoded

	apiKey, err = buildAPIKey(plaintext, encoded[:PrefixLength], opts)
	if err != nil {
		return "", nil, err
	}
	return plaintext, apiKey, nil
}

// ImportAPIKey builds an APIKey record for a caller-supplied plaintext key.
// It is used to bootstrap a key from configuration at startup.
func ImportAPIKey(plaintext string, opts GenerateAPIKeyOptions) (*APIKey, error) {
	prefix, err := ParseAPIKeyPrefix(plaintext)
	if err != nil {
		return nil, err
	}
	return buildAPIKey(plaintext, prefix, opts)
}

func buildAPIKey(plaintext, prefix string, opts GenerateAPIKeyOptions) (*APIKey, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return &APIKey{
		ID:        uuid.NewString(),
		Prefix:    prefix,
		Name:      opts.Name,
		Hash:      hashKey(plaintext, salt),
		Salt:      salt,
		Scopes:    opts.Scopes,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: opts.ExpiresAt,
	}, nil
}

// ValidateAPIKey checks if the provided plaintext key matches the stored APIKey.
// Returns nil if valid, or an appropriate error.
func ValidateAPIKey(providedKey string, stored *APIKey) error {
	if stored == nil {
		return ErrKeyNotFound
	}
	if stored.Revoked {
		return ErrKeyRevoked
	}
	if stored.IsExpired() {
		return ErrKeyExpired
	}

	providedHash := hashKey(providedKey, stored.Salt)

	// Constant-time comparison to prevent timing attacks
	if subtle.ConstantTimeCompare(providedHash, stored.Hash) != 1 {
		return ErrInvalidKey
	}
	return nil
}

// ParseAPIKeyPrefix extracts the prefix from an API key for lookup.
// Returns an error if the key format is invalid.
func ParseAPIKeyPrefix(key string) (string, error) {
	if !strings.HasPrefix(key, APIKeyPrefix) {
		return "", ErrInvalidKeyFormat
	}
	keyPart := strings.TrimPrefix(key, APIKeyPrefix)
	if len(keyPart) < PrefixLength {
		return "", ErrInvalidKeyFormat
	}
	if !isValidBase64URL(keyPart) {
		return "", ErrInvalidKeyFormat
	}
	return keyPart[:PrefixLength], nil
}

// hashKey hashes the API key using Argon2id.
func hashKey(key string, salt []byte) []byte {
	return argon2.IDKey([]byte(key), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
}

func isValidBase64URL(s string) bool {
	for _, r := range s {
		isUpper := r >= 'A' && r <= 'Z'
		isLower := r >= 'a' && r <= 'z'
		isDigit := r >= '0' && r <= '9'
		isSpecial := r == '-' || r == '_'
		if !isUpper && !isLower && !isDigit && !isSpecial {
			return false
		}
	}
	return true
}

// MaskAPIKey returns a masked version of an API key for logging.
// Example: "iprk_abc12345..." -> "iprk_abc1****"
func MaskAPIKey(key string) string {
	if !strings.HasPrefix(key, APIKeyPrefix) {
		return "****"
	}
	keyPart := strings.TrimPrefix(key, APIKeyPrefix)
	if len(keyPart) < 4 {
		return APIKeyPrefix + "****"
	}
	return APIKeyPrefix + keyPart[:4] + "****"
}
