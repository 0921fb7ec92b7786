package dataset

import (
	"context"
	"time"
)

// RunReloads reloads the records every interval until ctx is cancelled.
// A failed reload is logged and retried on the next tick; the records from
// the last successful load are dropped either way. It returns immediately
// when the dataset has no loader or interval is not positive.
func (d *Dataset) RunReloads(ctx context.Context, interval time.Duration) {
	if d.loader == nil || interval <= 0 {
		return
	}
	d.log.Info("reload scheduler started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info("reload scheduler stopped")
			return
		case <-ticker.C:
			start := time.Now()
			if err := d.Reload(ctx); err != nil {
				d.log.Error("scheduled reload failed", "error", err)
				continue
			}
			d.log.Info("scheduled reload completed",
				"records", d.Len(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		}
	}
}
