package connectivity

import (
	"context"
	"database/sql"
	"time"
)

// Watch reloads routes once, then polls PRAGMA data_version every interval
// and reloads whenever another connection wrote to the database. It
// returns when ctx is done.
func (r *Router) Watch(ctx context.Context, db *sql.DB, interval time.Duration) {
	if err := r.Reload(ctx, db); err != nil {
		r.logger.Error("connectivity: initial reload failed", "error", err)
	}
	var last int64
	db.QueryRowContext(ctx, "PRAGMA data_version").Scan(&last)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		var ver int64
		if err := db.QueryRowContext(ctx, "PRAGMA data_version").Scan(&ver); err != nil {
			r.logger.Warn("connectivity: data_version poll failed", "error", err)
			continue
		}
		if ver == last {
			continue
		}
		r.logger.Info("connectivity: routes changed", "old_version", last, "new_version", ver)
		if err := r.Reload(ctx, db); err != nil {
			r.logger.Error("connectivity: reload failed", "error", err)
		}
		last = ver
	}
}
