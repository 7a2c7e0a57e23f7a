package db

import "go.uber.org/zap"

// Migrate runs all database migrations
func (d *DB) Migrate() error {
	return d.WithLock(func() error {
		_, err := d.db.Exec(`
			CREATE TABLE IF NOT EXISTS snapshots (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL,
				updated_at INTEGER NOT NULL
			)
		`)
		if err != nil {
			return err
		}

		d.logger.Debug("Migrations applied", zap.String("table", "snapshots"))
		return nil
	})
}
