package export

import (
	"encoding/json"
	"io"

	"github.com/iksnae/vibe-context/internal"
)

// JSONExporter writes one indented JSON document per session, with turn
// and token counts alongside the messages.
type JSONExporter struct{}

func (e *JSONExporter) Export(session *internal.Session, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(newDocument(session))
}

func (e *JSONExporter) Extension() string {
	return "json"
}
