// Package export renders chat sessions into portable document formats.
package export

import (
	"fmt"
	"io"

	"github.com/RezaSbu/MO-BOT/internal/session"
)

// Exporter renders a single session to a writer.
type Exporter interface {
	Export(sess *session.Session, w io.Writer) error
	Extension() string
}

// NewExporter returns the exporter for a format name.
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "json":
		return &JSONExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "yaml":
		return &YAMLExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: json, md, yaml)", format)
	}
}
