package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/helixir/book-content-service/internal/database"
)

// PostgresCache stores entries in the content_cache table so cached content
// is shared by every replica and survives restarts.
type PostgresCache struct {
	db database.DBTX
}

// Compile-time check that *PostgresCache implements Cache.
var _ Cache = (*PostgresCache)(nil)

// NewPostgresCache creates a new PostgresCache.
func NewPostgresCache(db database.DBTX) *PostgresCache {
	return &PostgresCache{db: db}
}

// Get implements Cache.
func (c *PostgresCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	query := `
		SELECT value
		FROM content_cache
		WHERE key = $1 AND expires_at > NOW()`

	var value []byte
	err := c.db.QueryRow(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get cache entry: %w", err)
	}

	return value, true, nil
}

// Set implements Cache.
func (c *PostgresCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}

	query := `
		INSERT INTO content_cache (key, value, expires_at, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()`

	if _, err := c.db.Exec(ctx, query, key, value, time.Now().UTC().Add(ttl)); err != nil {
		return fmt.Errorf("set cache entry: %w", err)
	}
	return nil
}

// Delete implements Cache.
func (c *PostgresCache) Delete(ctx context.Context, key string) error {
	if _, err := c.db.Exec(ctx, `DELETE FROM content_cache WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

// DeleteExpired removes expired rows and returns how many were removed.
func (c *PostgresCache) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := c.db.Exec(ctx, `DELETE FROM content_cache WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired cache entries: %w", err)
	}
	return tag.RowsAffected(), nil
}
