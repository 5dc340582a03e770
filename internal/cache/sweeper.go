package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Expirer is a Cache that can purge expired entries in bulk.
type Expirer interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// RunSweeper calls DeleteExpired every interval until ctx is done.
func RunSweeper(ctx context.Context, c Expirer, interval time.Duration, logger zerolog.Logger) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := c.DeleteExpired(ctx)
			if err != nil {
				logger.Warn().Err(err).Msg("cache sweep failed")
				continue
			}
			if removed > 0 {
				logger.Debug().Int64("removed", removed).Msg("expired cache entries removed")
			}
		}
	}
}
