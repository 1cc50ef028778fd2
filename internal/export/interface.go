package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/vibe-context/internal"
)

// Exporter defines the interface for all export formats
type Exporter interface {
	Export(session *internal.Session, w io.Writer) error
	Extension() string
}

// NewExporter creates a new exporter based on format
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "jsonl":
		return &JSONLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "yaml":
		return &YAMLExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	case "txt", "text":
		return &TextExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: %s)", format, strings.Join(Formats(), ", "))
	}
}

// Formats lists the canonical format names accepted by NewExporter
func Formats() []string {
	return []string{"jsonl", "md", "yaml", "json", "txt"}
}
