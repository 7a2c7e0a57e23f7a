package persist

import (
	"context"
	"database/sql"
	"errors"

	"gemini-replica/internal/db"
)

// SQLBackend stores snapshots in the SQLite snapshots table
type SQLBackend struct {
	db *db.DB
}

// NewSQLBackend creates a backend on a migrated database
func NewSQLBackend(database *db.DB) *SQLBackend {
	return &SQLBackend{db: database}
}

func (b *SQLBackend) Load(ctx context.Context, key string) ([]byte, error) {
	rec, err := b.db.LoadSnapshot(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec.Value, nil
}

func (b *SQLBackend) Save(ctx context.Context, key string, data []byte) error {
	return b.db.SaveSnapshot(ctx, key, data)
}

func (b *SQLBackend) Delete(ctx context.Context, key string) error {
	err := b.db.DeleteSnapshot(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
