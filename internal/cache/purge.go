package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Purger is implemented by persistent backends that can drop expired rows.
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// RunPurger deletes expired entries every interval until ctx is done.
// Reads already ignore expired entries; this only reclaims storage.
func RunPurger(ctx context.Context, p Purger, interval time.Duration, logger zerolog.Logger) {
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
			n, err := p.PurgeExpired(ctx, time.Now())
			if err != nil {
				logger.Warn().Err(err).Msg("cache purge failed")
				continue
			}
			if n > 0 {
				logger.Debug().Int64("purged", n).Msg("expired cache entries purged")
			}
		}
	}
}
