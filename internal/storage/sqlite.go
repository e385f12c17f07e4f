package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// SQLiteBlob persists payloads in a key-value table of a SQLite database.
// The pure-Go driver keeps the binary free of cgo.
type SQLiteBlob struct {
	db     *sql.DB
	key    string
	logger *slog.Logger
}

// NewSQLiteBlob opens (or creates) the database at path and ensures the
// blobs table exists. Callers own the returned store and must Close it.
func NewSQLiteBlob(ctx context.Context, path string, logger *slog.Logger) (*SQLiteBlob, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	const schema = `CREATE TABLE IF NOT EXISTS blobs (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating blobs table: %w", err)
	}

	return &SQLiteBlob{db: db, key: BlobKey, logger: logger}, nil
}

// Load reads the stored payload. A missing row means no payload exists yet
// and returns ("", nil).
func (b *SQLiteBlob) Load(ctx context.Context) (string, error) {
	var value string
	err := b.db.QueryRowContext(ctx,
		`SELECT value FROM blobs WHERE key = ?`, b.key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("loading blob %q: %w", b.key, err)
	}
	return value, nil
}

// Save upserts the payload.
func (b *SQLiteBlob) Save(ctx context.Context, data string) error {
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO blobs (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		b.key, data)
	if err != nil {
		return fmt.Errorf("saving blob %q: %w", b.key, err)
	}
	return nil
}

// Close releases the underlying database handle.
func (b *SQLiteBlob) Close() error {
	return b.db.Close()
}
