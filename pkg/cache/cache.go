// Package cache provides byte-level caching for rendered artifacts. Exports
// of the same snapshot under the same filter are content-addressed, so a
// cache hit skips layout and rendering entirely.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values under string keys with optional TTL.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key was
	// present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A zero ttl means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Null is a no-op cache for when caching is disabled.
type Null struct{}

// NewNull creates a cache that never stores anything.
func NewNull() Cache { return &Null{} }

func (c *Null) Get(ctx context.Context, key string) ([]byte, bool, error) { return nil, false, nil }
func (c *Null) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return nil
}
func (c *Null) Delete(ctx context.Context, key string) error { return nil }
func (c *Null) Close() error                                 { return nil }

var _ Cache = (*Null)(nil)
