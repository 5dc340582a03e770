// Package cache provides the key-value cache used for book content and
// source search results.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Namespaces and kinds used by the service.
const (
	NamespaceBooks   = "books"
	NamespaceSources = "sources"

	KindContent = "content"
)

// ErrInvalidTTL is returned when Set is called with a non-positive TTL.
var ErrInvalidTTL = errors.New("cache ttl must be positive")

// Cache is a byte-oriented key-value store with per-entry expiry.
// Implementations must be safe for concurrent use. Concurrent writes to the
// same key are last-write-wins.
type Cache interface {
	// Get returns the value for key. The boolean is false when the key is
	// absent or expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// BuildKey returns "<namespace>_<kind>_" followed by the "name:value" pairs
// of params sorted by name and joined with "|". The result does not depend on
// map iteration order.
func BuildKey(namespace, kind string, params map[string]string) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, len(names))
	for i, name := range names {
		pairs[i] = name + ":" + params[name]
	}

	var sb strings.Builder
	sb.WriteString(namespace)
	sb.WriteByte('_')
	sb.WriteString(kind)
	sb.WriteByte('_')
	sb.WriteString(strings.Join(pairs, "|"))
	return sb.String()
}

// GetJSON reads key and decodes the stored JSON into a new T.
// A value that no longer decodes is reported as a miss.
func GetJSON[T any](ctx context.Context, c Cache, key string) (*T, bool, error) {
	raw, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false, nil
	}
	return &v, true, nil
}

// SetJSON encodes v as JSON and stores it under key.
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache value: %w", err)
	}
	return c.Set(ctx, key, raw, ttl)
}
