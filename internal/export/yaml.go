package export

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/RezaSbu/MO-BOT/internal/session"
)

// YAMLExporter exports sessions as YAML.
type YAMLExporter struct{}

// Export goes through the JSON encoding first so the document uses the
// same field names and source passthrough as the persisted form.
func (e *YAMLExporter) Export(sess *session.Session, w io.Writer) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode session: %w", err)
	}

	enc := yaml.NewEncoder(w)
	defer func() { _ = enc.Close() }()

	return enc.Encode(doc)
}

func (e *YAMLExporter) Extension() string {
	return "yaml"
}
