package xfile

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/modelworks/x2scene/pkg/encoding"
	"github.com/modelworks/x2scene/pkg/scene"
)

// TextParser parses the ASCII .x grammar into a scene document.
//
// The grammar is a sequence of brace-delimited objects. Parsing moves
// through Header -> TemplateDefinitions -> DataObjects; template parsing
// failures are non-fatal (standard template knowledge is built in), and in
// lenient mode a failure inside one top-level object skips that object and
// resumes at the next top-level brace.
type TextParser struct {
	Strict bool
	log    *zap.Logger
}

// NewTextParser returns a parser. A nil logger disables logging.
func NewTextParser(strict bool, log *zap.Logger) *TextParser {
	if log == nil {
		log = zap.NewNop()
	}
	return &TextParser{Strict: strict, log: log}
}

var (
	templateRe  = regexp.MustCompile(`template\s+(\w+)\s*\{[^}]*\}`)
	animTicksRe = regexp.MustCompile(`AnimTicksPerSecond\s*\{\s*([0-9.]+)\s*[;}]`)
)

// Recognized top-level and nested object kinds. Nested mesh blocks are
// recognized by name but only brace-skipped; they are extension points
// that do not yet populate the model.
var nestedMeshBlocks = []string{
	"MeshMaterialList",
	"MeshNormals",
	"MeshTextureCoords",
	"XSkinMeshHeader",
	"SkinWeights",
}

// textCursor walks payload lines keeping 1-based line numbers for
// diagnostics.
type textCursor struct {
	lines []string
	pos   int
}

func (c *textCursor) next() (string, bool) {
	if c.pos >= len(c.lines) {
		return "", false
	}
	line := c.lines[c.pos]
	c.pos++
	return line, true
}

func (c *textCursor) lineNo() int { return c.pos }

// textContext holds per-parse state. The template dictionary is scoped to
// one invocation; templates reset with every document.
type textContext struct {
	doc       *scene.Document
	mesh      *scene.Mesh
	cur       *textCursor
	templates map[string]string
}

// primary returns the mesh that top-level materials and animation sets
// attach to, creating it on first use.
func (ctx *textContext) primary() *scene.Mesh {
	if ctx.mesh == nil {
		ctx.mesh = scene.NewMesh("")
		ctx.doc.Meshes = append(ctx.doc.Meshes, ctx.mesh)
	}
	return ctx.mesh
}

// Parse builds a scene document from raw bytes. Data beginning with the
// 16-byte preamble has its header validated fatally; headerless payloads
// (recovered from compressed containers) fall back to default header
// values with a warning.
func (p *TextParser) Parse(data []byte) (*scene.Document, error) {
	doc := scene.NewDocument()

	if len(data) == 0 {
		doc.Diagnostics.AddError("empty file content")
		return doc, ErrEmptyInput
	}

	payload := data
	switch {
	case len(data) >= headerSize && string(data[:4]) == magic:
		header, err := ParseHeader(data, &doc.Diagnostics)
		if err != nil {
			doc.Diagnostics.AddError(err.Error())
			return doc, err
		}
		doc.Header = header
		payload = data[headerSize:]
	case len(data) >= 4 && string(data[:4]) == magic:
		doc.Diagnostics.AddWarning("truncated header, assuming text format defaults")
	default:
		doc.Diagnostics.AddWarning("payload carries no header, assuming text format defaults")
	}

	text := string(payload)
	if !utf8.ValidString(text) {
		text = encoding.Windows1252ToUTF8(payload)
		doc.Diagnostics.AddWarning("payload is not valid UTF-8, decoded as Windows-1252")
	}

	ctx := &textContext{
		doc:       doc,
		cur:       &textCursor{lines: splitLines(text)},
		templates: make(map[string]string),
	}

	p.extractTemplates(ctx, text)
	p.extractGlobalTiming(ctx, text)

	if err := p.parseDataObjects(ctx); err != nil {
		return doc, err
	}

	doc.Diagnostics.Success = !doc.Diagnostics.HasErrors()
	return doc, nil
}

// extractTemplates collects named template declarations. Failure here is
// informational only.
func (p *TextParser) extractTemplates(ctx *textContext, text string) {
	for _, m := range templateRe.FindAllStringSubmatch(text, -1) {
		ctx.templates[m[1]] = m[0]
	}
	if len(ctx.templates) > 0 {
		p.log.Debug("extracted template definitions", zap.Int("count", len(ctx.templates)))
	}
}

// extractGlobalTiming picks up an AnimTicksPerSecond declaration anywhere
// in the payload.
func (p *TextParser) extractGlobalTiming(ctx *textContext, text string) {
	m := animTicksRe.FindStringSubmatch(text)
	if m == nil {
		return
	}
	rate, err := strconv.ParseFloat(m[1], 32)
	if err != nil || rate <= 0 {
		ctx.doc.Diagnostics.AddWarningf("ignoring malformed AnimTicksPerSecond value %q", m[1])
		return
	}
	ctx.doc.Header.HasTimingInfo = true
	ctx.doc.Header.TicksPerSecond = float32(rate)
	p.log.Debug("explicit timing declared", zap.Float64("ticksPerSecond", rate))
}

// parseDataObjects is the top-level line scan. Each recognized object kind
// gets a dedicated sub-parser; unrecognized kinds are skipped by brace
// depth counting.
func (p *TextParser) parseDataObjects(ctx *textContext) error {
	for {
		startLine := ctx.cur.pos
		raw, ok := ctx.cur.next()
		if !ok {
			return nil
		}

		line := stripComment(raw)
		if line == "" || strings.HasPrefix(line, "template") {
			if strings.HasPrefix(line, "template") && !strings.Contains(line, "}") {
				skipBlock(ctx.cur, braceDelta(line))
			}
			continue
		}

		if !strings.Contains(line, "{") {
			continue
		}

		kind := objectKind(line)
		var err error
		switch kind {
		case "Mesh":
			err = p.parseMesh(ctx, line)
		case "Frame":
			// Transform hierarchies are not modeled.
			skipBlock(ctx.cur, braceDelta(line))
		case "AnimationSet":
			err = p.parseAnimationSet(ctx, line)
		case "Material":
			err = p.parseMaterial(ctx, line)
		case "AnimTicksPerSecond":
			// Already extracted in the pre-pass.
			if !strings.Contains(line, "}") {
				skipBlock(ctx.cur, braceDelta(line))
			}
		default:
			p.log.Debug("skipping unrecognized object", zap.String("kind", kind), zap.Int("line", ctx.cur.lineNo()))
			skipBlock(ctx.cur, braceDelta(line))
		}

		if err != nil {
			ctx.doc.Diagnostics.AddErrorAt(ctx.cur.lineNo(), fmt.Sprintf("%s object: %v", kind, err))
			if p.Strict {
				return err
			}
			// Lenient recovery: rewind to the object start and skip the
			// whole block, then resume at the next top-level brace.
			ctx.cur.pos = startLine
			first, _ := ctx.cur.next()
			skipBlock(ctx.cur, braceDelta(stripComment(first)))
		}
	}
}

// parseMesh reads the declared vertex and face counts and that many data
// lines, then brace-skips recognized nested blocks until the mesh closes.
func (p *TextParser) parseMesh(ctx *textContext, opening string) error {
	mesh := ctx.primary()
	if mesh.VertexCount() > 0 {
		// Additional Mesh objects become separate meshes.
		mesh = scene.NewMesh("")
		ctx.doc.Meshes = append(ctx.doc.Meshes, mesh)
	}
	if name := objectName(opening); name != "" {
		mesh.Name = name
	}

	vertexCount, err := p.readCountLine(ctx)
	if err != nil {
		return fmt.Errorf("vertex count: %w", err)
	}

	for i := 0; i < vertexCount; i++ {
		line, ok := ctx.cur.next()
		if !ok {
			return syntaxErr(ctx.cur.lineNo(), "unexpected end of input reading vertex %d of %d", i+1, vertexCount)
		}
		values := parseFloats(line)
		if len(values) < 3 {
			return syntaxErr(ctx.cur.lineNo(), "vertex line has %d values, need 3", len(values))
		}
		v := scene.Vertex{}
		v.Position.X, v.Position.Y, v.Position.Z = values[0], values[1], values[2]
		mesh.Vertices = append(mesh.Vertices, v)
	}

	faceCount, err := p.readCountLine(ctx)
	if err != nil {
		return fmt.Errorf("face count: %w", err)
	}

	for i := 0; i < faceCount; i++ {
		line, ok := ctx.cur.next()
		if !ok {
			return syntaxErr(ctx.cur.lineNo(), "unexpected end of input reading face %d of %d", i+1, faceCount)
		}
		values := parseInts(line)
		// Only triangles are accepted; other vertex counts are ignored.
		if len(values) >= 4 && values[0] == 3 {
			mesh.Faces = append(mesh.Faces, scene.NewFace(values[1], values[2], values[3]))
		}
	}

	// Nested blocks up to the closing brace.
	depth := 1
	for depth > 0 {
		raw, ok := ctx.cur.next()
		if !ok {
			return syntaxErr(ctx.cur.lineNo(), "unterminated Mesh object")
		}
		line := stripComment(raw)

		if isNestedMeshBlock(line) && strings.Contains(line, "{") {
			skipBlock(ctx.cur, braceDelta(line))
			continue
		}
		depth += braceDelta(line)
	}

	p.log.Debug("parsed mesh",
		zap.String("name", mesh.Name),
		zap.Int("vertices", mesh.VertexCount()),
		zap.Int("faces", mesh.FaceCount()))
	return nil
}

// parseAnimationSet accumulates every keyframe from nested Animation and
// AnimationKey blocks into one clip named by ordinal. A clip that ends up
// with zero keyframes is discarded.
func (p *TextParser) parseAnimationSet(ctx *textContext, opening string) error {
	mesh := ctx.primary()
	clip := scene.NewAnimationClip(fmt.Sprintf("Animation_%d", mesh.AnimationCount()))

	depth := braceDelta(opening)
	for depth > 0 {
		raw, ok := ctx.cur.next()
		if !ok {
			return syntaxErr(ctx.cur.lineNo(), "unterminated AnimationSet object")
		}
		line := stripComment(raw)

		switch {
		case strings.HasPrefix(line, "AnimationKey") && strings.Contains(line, "{"):
			if err := p.parseAnimationKey(ctx, clip); err != nil {
				return err
			}
		case strings.HasPrefix(line, "Animation") && strings.Contains(line, "{"):
			depth += braceDelta(line)
		default:
			depth += braceDelta(line)
		}
	}

	if clip.KeyframeCount() == 0 {
		ctx.doc.Diagnostics.AddWarningf("discarding animation set %q: no keyframes parsed", clip.Name)
		return nil
	}

	mesh.Animations = append(mesh.Animations, clip)
	p.log.Debug("parsed animation set",
		zap.String("name", clip.Name),
		zap.Int("keyframes", clip.KeyframeCount()),
		zap.Float32("durationTicks", clip.Duration))
	return nil
}

// Animation key type codes.
const (
	keyTypeRotation = 0
	keyTypeScale    = 1
	keyTypePosition = 2
)

// parseAnimationKey reads a key-type code, a key count, and that many
// keyframe lines of the form "time; <count>; v0, v1, ... ;;". The clip
// duration tracks the maximum time observed.
func (p *TextParser) parseAnimationKey(ctx *textContext, clip *scene.AnimationClip) error {
	keyType, err := p.readCountLine(ctx)
	if err != nil {
		return fmt.Errorf("key type: %w", err)
	}

	numKeys, err := p.readCountLine(ctx)
	if err != nil {
		return fmt.Errorf("key count: %w", err)
	}

	for i := 0; i < numKeys; i++ {
		line, ok := ctx.cur.next()
		if !ok {
			return syntaxErr(ctx.cur.lineNo(), "unexpected end of input reading key %d of %d", i+1, numKeys)
		}

		values := parseFloats(line)
		if len(values) == 0 {
			continue
		}

		key := scene.NewKeyframe(values[0])
		switch keyType {
		case keyTypeRotation:
			// Quaternion stored as w, x, y, z after the value count.
			if len(values) >= 6 {
				key.Rotation.W = values[2]
				key.Rotation.X = values[3]
				key.Rotation.Y = values[4]
				key.Rotation.Z = values[5]
			}
		case keyTypeScale:
			if len(values) >= 5 {
				key.Scale.X, key.Scale.Y, key.Scale.Z = values[2], values[3], values[4]
			}
		case keyTypePosition:
			if len(values) >= 5 {
				key.Position.X, key.Position.Y, key.Position.Z = values[2], values[3], values[4]
			}
		}

		clip.Keyframes = append(clip.Keyframes, key)
		if key.Time > clip.Duration {
			clip.Duration = key.Time
		}
	}

	// Consume up to the AnimationKey closing brace.
	skipBlock(ctx.cur, 1)
	return nil
}

// parseMaterial reads the diffuse color from the first data line, then
// shininess / specular / emissive from the following numeric lines, and
// extracts a quoted TextureFilename as the diffuse texture path.
func (p *TextParser) parseMaterial(ctx *textContext, opening string) error {
	mat := scene.Material{Name: objectName(opening)}

	first, ok := ctx.cur.next()
	if !ok {
		return syntaxErr(ctx.cur.lineNo(), "unexpected end of input reading material color")
	}
	values := parseFloats(first)
	if len(values) < 3 {
		return syntaxErr(ctx.cur.lineNo(), "material color line has %d values, need at least 3", len(values))
	}
	mat.DiffuseColor.X, mat.DiffuseColor.Y, mat.DiffuseColor.Z = values[0], values[1], values[2]
	if len(values) >= 4 {
		mat.Transparency = 1 - values[3]
	}

	numericLine := 0
	depth := braceDelta(opening)
	for depth > 0 {
		raw, ok := ctx.cur.next()
		if !ok {
			return syntaxErr(ctx.cur.lineNo(), "unterminated Material object")
		}
		line := stripComment(raw)

		if strings.Contains(line, "TextureFilename") {
			path, err := p.readQuotedValue(ctx, line)
			if err != nil {
				return err
			}
			mat.DiffuseTexture = path
			continue
		}

		if vals := parseFloats(line); len(vals) > 0 {
			numericLine++
			switch {
			case numericLine == 1 && len(vals) == 1:
				mat.Shininess = vals[0]
			case numericLine == 2 && len(vals) >= 3:
				mat.SpecularColor.X, mat.SpecularColor.Y, mat.SpecularColor.Z = vals[0], vals[1], vals[2]
			case numericLine == 3 && len(vals) >= 3:
				mat.EmissiveColor.X, mat.EmissiveColor.Y, mat.EmissiveColor.Z = vals[0], vals[1], vals[2]
			}
		}

		depth += braceDelta(line)
	}

	mesh := ctx.primary()
	mesh.Materials = append(mesh.Materials, mat)
	ctx.doc.Materials = append(ctx.doc.Materials, mat)
	return nil
}

// readQuotedValue extracts the quoted string from a TextureFilename block,
// whether it sits on the opening line or the next one, and consumes the
// rest of the block.
func (p *TextParser) readQuotedValue(ctx *textContext, line string) (string, error) {
	if s, ok := quotedString(line); ok {
		if !strings.Contains(line, "}") {
			skipBlock(ctx.cur, braceDelta(line))
		}
		return s, nil
	}

	next, ok := ctx.cur.next()
	if !ok {
		return "", syntaxErr(ctx.cur.lineNo(), "unexpected end of input reading texture filename")
	}
	s, found := quotedString(next)
	if !found {
		return "", syntaxErr(ctx.cur.lineNo(), "texture filename is not a quoted string")
	}
	if strings.Contains(line, "{") && !strings.Contains(next, "}") {
		skipBlock(ctx.cur, 1)
	}
	return s, nil
}

// readCountLine reads the next line and parses its leading integer field.
func (p *TextParser) readCountLine(ctx *textContext) (int, error) {
	line, ok := ctx.cur.next()
	if !ok {
		return 0, syntaxErr(ctx.cur.lineNo(), "unexpected end of input reading count")
	}
	values := parseInts(line)
	if len(values) == 0 {
		return 0, syntaxErr(ctx.cur.lineNo(), "expected numeric count, got %q", strings.TrimSpace(line))
	}
	return values[0], nil
}

// --- tokenization helpers ---

// parseFloats splits a data line on ';' and ',', trims each token and
// parses it as a float. Non-numeric tokens are silently skipped: callers
// needing exact counts must rely on declared count fields.
func parseFloats(line string) []float32 {
	var out []float32
	for _, tok := range splitDataLine(line) {
		v, err := strconv.ParseFloat(tok, 32)
		if err != nil {
			continue
		}
		out = append(out, float32(v))
	}
	return out
}

// parseInts is parseFloats for integer fields.
func parseInts(line string) []int {
	var out []int
	for _, tok := range splitDataLine(line) {
		v, err := strconv.Atoi(tok)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

func splitDataLine(line string) []string {
	line = strings.TrimSpace(stripComment(line))
	line = strings.TrimRight(line, ";,")
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ';' || r == ','
	})
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	return fields
}

// stripComment removes // and # comments outside of quoted strings and
// trims surrounding whitespace.
func stripComment(line string) string {
	inString := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inString = !inString
		case '#':
			if !inString {
				return strings.TrimSpace(line[:i])
			}
		case '/':
			if !inString && i+1 < len(line) && line[i+1] == '/' {
				return strings.TrimSpace(line[:i])
			}
		}
	}
	return strings.TrimSpace(line)
}

// objectKind returns the leading identifier of an object opening line.
func objectKind(line string) string {
	end := strings.IndexAny(line, " \t{")
	if end < 0 {
		return line
	}
	return line[:end]
}

// objectName returns the optional name between the kind and the brace.
func objectName(line string) string {
	brace := strings.Index(line, "{")
	if brace < 0 {
		return ""
	}
	fields := strings.Fields(line[:brace])
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}

// quotedString extracts the first double-quoted value from a line.
func quotedString(line string) (string, bool) {
	start := strings.Index(line, `"`)
	if start < 0 {
		return "", false
	}
	end := strings.Index(line[start+1:], `"`)
	if end < 0 {
		return "", false
	}
	return line[start+1 : start+1+end], true
}

// braceDelta counts net brace depth change on a line, ignoring braces in
// quoted strings.
func braceDelta(line string) int {
	depth := 0
	inString := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
			}
		}
	}
	return depth
}

// skipBlock consumes lines until the brace depth returns to zero.
func skipBlock(cur *textCursor, depth int) {
	for depth > 0 {
		line, ok := cur.next()
		if !ok {
			return
		}
		depth += braceDelta(stripComment(line))
	}
}

// isNestedMeshBlock reports whether a line opens one of the recognized
// nested mesh blocks.
func isNestedMeshBlock(line string) bool {
	for _, name := range nestedMeshBlocks {
		if strings.HasPrefix(line, name) {
			return true
		}
	}
	return false
}

func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}
	return lines
}
