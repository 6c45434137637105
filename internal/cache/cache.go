package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for caching provider responses. All methods
// take a context because backends may be remote (Redis).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// Key generates a stable cache key from a request URL
func Key(url string) string {
	hash := sha256.Sum256([]byte(url))
	return "personaforge:v1:" + hex.EncodeToString(hash[:])
}
