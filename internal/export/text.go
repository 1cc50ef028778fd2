package export

import (
	"fmt"
	"io"

	"github.com/iksnae/vibe-context/internal"
)

// TextExporter writes the plain "<role>: <content>" transcript, the same
// rendering the summarizer sends to the model.
type TextExporter struct{}

// Export exports a session as a plain transcript
func (e *TextExporter) Export(session *internal.Session, w io.Writer) error {
	if len(session.Messages) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, internal.RenderTranscript(session.Messages)); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	return nil
}

// Extension returns the file extension for this format
func (e *TextExporter) Extension() string {
	return "txt"
}
