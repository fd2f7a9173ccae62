package cache

import (
	"context"
	"log/slog"

	"github.com/DarkZek/christchurch-bus-mural/internal/backoff"
)

// Run refreshes the cache proactively until ctx is done, so reads rarely pay
// for a refresh. A nil b refreshes every TTL.
func (c *Cache[T]) Run(ctx context.Context, b *backoff.Backoff) {
	if b == nil {
		b = &backoff.Backoff{Period: c.ttl}
	}

	for {
		if err := b.Wait(ctx); err != nil {
			return
		}

		b.StartRun()
		if _, err := c.Refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			next := b.EndRun(backoff.Failure)
			slog.Warn("background refresh failed", "error", err, "failures", b.Failures, "next_try", next)
			continue
		}
		b.EndRun(backoff.Success)
		slog.Debug("background refresh done", "next_run", b.NextRun())
	}
}
