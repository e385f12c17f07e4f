package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Spool stores attached image bytes under a local directory and hands back a
// file-path handle. It is the local equivalent of a browser object URL: the
// conversation records the handle, never the backend's representation of the
// image.
type Spool struct {
	dir string
}

// NewSpool creates a Spool rooted at dir.
func NewSpool(dir string) *Spool {
	return &Spool{dir: dir}
}

// Resolve writes data to a fresh file and returns its path. The original
// filename contributes only its extension; the stored name is a generated id
// so handles never collide.
func (s *Spool) Resolve(data []byte, filename string) (string, error) {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return "", fmt.Errorf("creating spool directory: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	path := filepath.Join(s.dir, uuid.NewString()+ext)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("writing spooled image: %w", err)
	}
	return path, nil
}
