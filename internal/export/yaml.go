package export

import (
	"fmt"
	"io"

	"github.com/iksnae/vibe-context/internal"
	"gopkg.in/yaml.v3"
)

// YAMLExporter writes the same document as JSONExporter in YAML, which
// keeps multi-line code blocks readable as literal scalars.
type YAMLExporter struct{}

func (e *YAMLExporter) Export(session *internal.Session, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(newDocument(session)); err != nil {
		_ = enc.Close()
		return fmt.Errorf("failed to encode session %s: %w", session.ID, err)
	}
	return enc.Close()
}

func (e *YAMLExporter) Extension() string {
	return "yaml"
}
