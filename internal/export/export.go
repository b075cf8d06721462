// Package export writes parsed scene documents to interchange formats.
package export

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/modelworks/x2scene/pkg/scene"
)

// Exporter writes a scene document to a file.
type Exporter interface {
	// Export writes doc to path. The path should carry the exporter's
	// extension.
	Export(doc *scene.Document, path string) error
	// Extension returns the output file extension without the dot.
	Extension() string
}

// New returns the exporter for a format name.
func New(format string, log *zap.Logger) (Exporter, error) {
	switch format {
	case "gltf":
		return NewGLTF(false, log), nil
	case "glb":
		return NewGLTF(true, log), nil
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}
