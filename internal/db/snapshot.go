package db

import (
	"context"
	"database/sql"
	"time"
)

// SnapshotRecord is a stored snapshot blob
type SnapshotRecord struct {
	Key       string
	Value     []byte
	UpdatedAt time.Time
}

// LoadSnapshot returns the snapshot stored under key.
// Returns sql.ErrNoRows when nothing is stored.
func (d *DB) LoadSnapshot(ctx context.Context, key string) (*SnapshotRecord, error) {
	return WithLockResult(d, func() (*SnapshotRecord, error) {
		rec := &SnapshotRecord{Key: key}
		var value string
		var updatedAt int64
		err := d.db.QueryRowContext(ctx,
			"SELECT value, updated_at FROM snapshots WHERE key = ?",
			key,
		).Scan(&value, &updatedAt)
		if err != nil {
			return nil, err
		}
		rec.Value = []byte(value)
		rec.UpdatedAt = time.UnixMilli(updatedAt).UTC()
		return rec, nil
	})
}

// SaveSnapshot stores value under key, replacing any previous value
func (d *DB) SaveSnapshot(ctx context.Context, key string, value []byte) error {
	return d.WithLock(func() error {
		_, err := d.db.ExecContext(ctx, `
			INSERT INTO snapshots (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		`, key, string(value), time.Now().UnixMilli())
		return err
	})
}

// DeleteSnapshot removes the snapshot stored under key.
// Returns sql.ErrNoRows when nothing was stored.
func (d *DB) DeleteSnapshot(ctx context.Context, key string) error {
	return d.WithLock(func() error {
		result, err := d.db.ExecContext(ctx, "DELETE FROM snapshots WHERE key = ?", key)
		if err != nil {
			return err
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rowsAffected == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}
