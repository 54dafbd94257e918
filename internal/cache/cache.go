package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key generates a cache key from content bytes. The namespace keeps OCR
// text and classifier scores from colliding when they share a store.
func Key(namespace string, content []byte) string {
	hash := sha256.Sum256(content)
	return "fiscaltone:v1:" + namespace + ":" + hex.EncodeToString(hash[:])
}

// Noop is a Cache that stores nothing; used when caching is disabled.
type Noop struct{}

func (Noop) Get(string) ([]byte, bool)               { return nil, false }
func (Noop) Set(string, []byte, time.Duration) error { return nil }
func (Noop) Delete(string) error                     { return nil }
func (Noop) Clear() error                            { return nil }
