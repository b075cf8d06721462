package xfile

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/modelworks/x2scene/pkg/scene"
)

// Options configures a parse run.
type Options struct {
	// Strict aborts on the first grammar error instead of recovering at
	// the next top-level object.
	Strict bool
	// Logger receives debug traces. Nil disables logging.
	Logger *zap.Logger
}

// Parse ingests a .x byte stream end to end and returns the normalized
// scene document. A non-nil document is returned even on error; its
// Diagnostics record what went wrong.
func Parse(data []byte, opts Options) (*scene.Document, error) {
	return parse(data, opts, false)
}

// parse is the pipeline body. recovered is true when data came out of the
// decompression engine rather than straight from the caller.
func parse(data []byte, opts Options, recovered bool) (*scene.Document, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	if len(data) == 0 {
		doc := scene.NewDocument()
		doc.Diagnostics.AddError("empty file content")
		return doc, ErrEmptyInput
	}

	format := DetectFormat(data)
	log.Debug("sniffed container format", zap.Stringer("format", format))

	if recovered && format == scene.FormatUnknown {
		// The decompression validator also accepts plaintext that opens
		// with a template body instead of the 16-byte preamble. The
		// text grammar handles headerless input, so treat the payload
		// as text rather than rejecting the recovery.
		log.Debug("recovered payload has no preamble, assuming text")
		format = scene.FormatText
	}

	if format == scene.FormatCompressed {
		payload, strategy, err := Decompress(data)
		if err != nil {
			doc := scene.NewDocument()
			doc.Diagnostics.AddErrorf("decompression failed: %v", err)
			return doc, err
		}
		log.Debug("decompressed payload",
			zap.String("strategy", strategy),
			zap.Int("compressed", len(data)),
			zap.Int("decompressed", len(payload)))

		doc, err := parse(payload, opts, true)
		if doc != nil {
			doc.Metadata["decompression"] = strategy
			doc.Header.Compressed = true
		}
		return doc, err
	}

	var (
		doc *scene.Document
		err error
	)
	switch format {
	case scene.FormatText:
		doc, err = NewTextParser(opts.Strict, log).Parse(data)
	case scene.FormatBinary:
		doc, err = NewBinaryParser(opts.Strict, log).Parse(data)
	default:
		doc = scene.NewDocument()
		doc.Diagnostics.AddError("unrecognized file format")
		return doc, ErrUnknownFormat
	}
	doc.Metadata["format"] = format.String()
	if err != nil {
		return doc, err
	}

	normalize(doc)
	doc.Diagnostics.Success = !doc.Diagnostics.HasErrors()
	return doc, nil
}

// ParseFile reads and parses a .x file from disk.
func ParseFile(path string, opts Options) (*scene.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := Parse(data, opts)
	if doc != nil {
		doc.Metadata["source"] = path
	}
	return doc, err
}

// normalize runs the document-level fixups after grammar parsing: bone
// hierarchy linking, timing propagation, and semantic validation.
func normalize(doc *scene.Document) {
	for _, mesh := range doc.Meshes {
		linkBoneHierarchy(mesh, &doc.Diagnostics)
		propagateTiming(doc, mesh)

		for _, msg := range mesh.ValidationErrors() {
			doc.Diagnostics.AddWarningf("mesh %q: %s", mesh.Name, msg)
		}
	}
}

// linkBoneHierarchy resolves parent names to indices and fills child
// index lists. Unresolvable parents leave the bone as a root with a
// warning.
func linkBoneHierarchy(mesh *scene.Mesh, diag *scene.Diagnostics) {
	byName := make(map[string]int, len(mesh.Bones))
	for i := range mesh.Bones {
		byName[mesh.Bones[i].Name] = i
	}

	for i := range mesh.Bones {
		bone := &mesh.Bones[i]
		bone.ParentIndex = -1
		bone.ChildIndices = nil
		if bone.ParentName == "" {
			continue
		}
		parent, ok := byName[bone.ParentName]
		if !ok {
			diag.AddWarningf("bone %q references unknown parent %q", bone.Name, bone.ParentName)
			continue
		}
		if parent == i {
			diag.AddWarningf("bone %q is its own parent, treating as root", bone.Name)
			continue
		}
		bone.ParentIndex = parent
	}

	for i := range mesh.Bones {
		if p := mesh.Bones[i].ParentIndex; p >= 0 {
			mesh.Bones[p].ChildIndices = append(mesh.Bones[p].ChildIndices, i)
		}
	}
}

// propagateTiming applies the file-global tick rate to every clip. The
// source grammar has no per-clip rate declarations, so an explicit
// AnimTicksPerSecond governs the whole file; without one, clips keep the
// conventional default.
func propagateTiming(doc *scene.Document, mesh *scene.Mesh) {
	if doc.Header.HasTimingInfo && doc.Header.TicksPerSecond > 0 {
		mesh.GlobalTicksPerSecond = doc.Header.TicksPerSecond
		mesh.HasTimingInfo = true
		for _, clip := range mesh.Animations {
			clip.TicksPerSecond = doc.Header.TicksPerSecond
		}
		return
	}
	for _, clip := range mesh.Animations {
		if clip.TicksPerSecond <= 0 {
			clip.TicksPerSecond = scene.DefaultTicksPerSecond
		}
	}
}
