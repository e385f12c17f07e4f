package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// FileBlob persists one serialized payload to a single file.
//
// Writes go to a temp file in the same directory followed by a rename, so a
// crash mid-write can never leave a half-written payload. A flock-based
// advisory lock serializes access across processes sharing the data dir.
type FileBlob struct {
	path   string
	lock   *flock.Flock
	logger *slog.Logger
}

// NewFileBlob creates a FileBlob storing its payload at path.
// The parent directory is created on the first save.
func NewFileBlob(path string, logger *slog.Logger) *FileBlob {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileBlob{
		path:   path,
		lock:   flock.New(path + ".lock"),
		logger: logger,
	}
}

// Load reads the stored payload. A missing file means no payload exists yet
// and returns ("", nil).
func (b *FileBlob) Load(ctx context.Context) (string, error) {
	if err := b.lock.RLock(); err != nil {
		return "", fmt.Errorf("acquiring read lock: %w", err)
	}
	defer b.unlock()

	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading %s: %w", b.path, err)
	}
	return string(data), nil
}

// Save atomically replaces the stored payload.
func (b *FileBlob) Save(ctx context.Context, data string) error {
	if err := b.lock.Lock(); err != nil {
		return fmt.Errorf("acquiring write lock: %w", err)
	}
	defer b.unlock()

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(b.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpName, b.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", b.path, err)
	}
	return nil
}

func (b *FileBlob) unlock() {
	if err := b.lock.Unlock(); err != nil {
		b.logger.Warn("releasing file lock failed", "path", b.path, "error", err)
	}
}
