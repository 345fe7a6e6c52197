package codec

import (
	"fmt"
	"io"

	"strandviz/internal/domain"
)

// Importer reads a workflow from an external representation.
type Importer interface {
	Parse(r io.Reader) (domain.Workflow, error)
	Format() string
}

// Exporter writes a workflow to an external representation.
type Exporter interface {
	Export(wf domain.Workflow, w io.Writer) error
	Format() string
}

// ForFormat returns the exporter registered for the given format name.
func ForFormat(format string) (Exporter, error) {
	switch format {
	case "json", "":
		return NewJSONCodec(), nil
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	}
	return nil, fmt.Errorf("unsupported export format %q", format)
}

// ImporterForFormat returns the importer registered for the given format
// name.
func ImporterForFormat(format string) (Importer, error) {
	switch format {
	case "json", "":
		return NewJSONCodec(), nil
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	}
	return nil, fmt.Errorf("unsupported import format %q", format)
}
