package export

import (
	"encoding/json"
	"io"

	"github.com/RezaSbu/MO-BOT/internal/session"
)

// JSONExporter exports sessions as pretty-printed JSON.
type JSONExporter struct{}

func (e *JSONExporter) Export(sess *session.Session, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(sess)
}

func (e *JSONExporter) Extension() string {
	return "json"
}
