package xfile

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/modelworks/x2scene/pkg/scene"
)

// Binary .x token codes.
const (
	tokName        = 1
	tokString      = 2
	tokInteger     = 3
	tokGUID        = 5
	tokIntegerList = 6
	tokFloatList   = 7
	tokOBrace      = 10
	tokCBrace      = 11
	tokOParen      = 12
	tokCParen      = 13
	tokOBracket    = 14
	tokCBracket    = 15
	tokOAngle      = 16
	tokCAngle      = 17
	tokDot         = 18
	tokComma       = 19
	tokSemicolon   = 20
	tokTemplate    = 31
	tokWord        = 40
	tokDWord       = 41
	tokFloat       = 42
	tokDouble      = 43
	tokChar        = 44
	tokUChar       = 45
	tokSWord       = 46
	tokSDWord      = 47
	tokVoid        = 48
	tokLPStr       = 49
	tokUnicode     = 50
	tokCString     = 51
	tokArray       = 52
)

// BinaryParser parses the binary .x token stream. It is the structural
// analog of TextParser over the same object kinds but intentionally covers
// a feature subset: object kinds it cannot populate raise Unsupported
// diagnostics instead of being silently dropped.
type BinaryParser struct {
	Strict bool
	log    *zap.Logger
}

// NewBinaryParser returns a parser. A nil logger disables logging.
func NewBinaryParser(strict bool, log *zap.Logger) *BinaryParser {
	if log == nil {
		log = zap.NewNop()
	}
	return &BinaryParser{Strict: strict, log: log}
}

// binTemplate is one entry of the per-parse template dictionary, keyed by
// name with the declared GUID kept for diagnostics.
type binTemplate struct {
	name string
	guid [16]byte
}

type binContext struct {
	doc       *scene.Document
	mesh      *scene.Mesh
	r         *binReader
	floatSize int
	templates map[string]binTemplate
}

func (ctx *binContext) primary() *scene.Mesh {
	if ctx.mesh == nil {
		ctx.mesh = scene.NewMesh("")
		ctx.doc.Meshes = append(ctx.doc.Meshes, ctx.mesh)
	}
	return ctx.mesh
}

// Parse builds a scene document from a binary .x byte stream.
func (p *BinaryParser) Parse(data []byte) (*scene.Document, error) {
	doc := scene.NewDocument()

	header, err := ParseHeader(data, &doc.Diagnostics)
	if err != nil {
		doc.Diagnostics.AddError(err.Error())
		return doc, err
	}
	doc.Header = header

	ctx := &binContext{
		doc:       doc,
		r:         newBinReader(data[headerSize:]),
		floatSize: header.FloatSize,
		templates: make(map[string]binTemplate),
	}

	if err := p.parseTokenStream(ctx); err != nil {
		doc.Diagnostics.AddError(err.Error())
		return doc, err
	}

	doc.Diagnostics.Success = !doc.Diagnostics.HasErrors()
	return doc, nil
}

// parseTokenStream is the top-level dispatch over data objects.
func (p *BinaryParser) parseTokenStream(ctx *binContext) error {
	for !ctx.r.atEnd() {
		tok, err := ctx.r.readUint16()
		if err != nil {
			return err
		}

		switch tok {
		case tokTemplate:
			if err := p.parseTemplate(ctx); err != nil {
				// Template failures are informational; built-in template
				// knowledge is enough to parse the data objects.
				ctx.doc.Diagnostics.AddWarningf("template definition: %v", err)
			}
		case tokName:
			name, err := p.readNameValue(ctx.r)
			if err != nil {
				return err
			}
			if err := p.parseDataObject(ctx, name); err != nil {
				ctx.doc.Diagnostics.AddErrorf("%s object: %v", name, err)
				if p.Strict {
					return err
				}
			}
		default:
			if err := p.skipTokenPayload(ctx, tok); err != nil {
				return err
			}
		}
	}
	return nil
}

// parseTemplate records a template declaration in the per-parse dictionary
// and skips its body.
func (p *BinaryParser) parseTemplate(ctx *binContext) error {
	tok, err := ctx.r.readUint16()
	if err != nil {
		return err
	}
	if tok != tokName {
		return fmt.Errorf("expected template name token, got %d", tok)
	}
	name, err := p.readNameValue(ctx.r)
	if err != nil {
		return err
	}

	tmpl := binTemplate{name: name}

	// Body: OBRACE, GUID, member declarations, CBRACE.
	if err := p.expectToken(ctx, tokOBrace); err != nil {
		return err
	}
	tok, err = ctx.r.readUint16()
	if err != nil {
		return err
	}
	if tok == tokGUID {
		guid, err := ctx.r.readBytes(16)
		if err != nil {
			return err
		}
		copy(tmpl.guid[:], guid)
	} else if err := p.skipTokenPayload(ctx, tok); err != nil {
		return err
	}

	if err := p.skipObjectBody(ctx, 1); err != nil {
		return err
	}

	ctx.templates[name] = tmpl
	p.log.Debug("registered binary template", zap.String("name", name))
	return nil
}

// parseDataObject dispatches one named top-level object. The optional
// object name and opening brace have not been consumed yet.
func (p *BinaryParser) parseDataObject(ctx *binContext, kind string) error {
	objName, err := p.consumeObjectOpening(ctx)
	if err != nil {
		return err
	}

	switch kind {
	case "Mesh":
		return p.parseMeshObject(ctx, objName)
	case "Material":
		return p.parseMaterialObject(ctx, objName)
	case "AnimationSet":
		return p.parseAnimationSetObject(ctx, objName)
	case "Frame":
		// Transform hierarchies are not modeled; skip structurally.
		return p.skipObjectBody(ctx, 1)
	default:
		return p.skipObjectBody(ctx, 1)
	}
}

// consumeObjectOpening reads the optional object name and the opening
// brace, returning the name (possibly empty).
func (p *BinaryParser) consumeObjectOpening(ctx *binContext) (string, error) {
	tok, err := ctx.r.readUint16()
	if err != nil {
		return "", err
	}

	name := ""
	if tok == tokName {
		name, err = p.readNameValue(ctx.r)
		if err != nil {
			return "", err
		}
		tok, err = ctx.r.readUint16()
		if err != nil {
			return "", err
		}
	}
	if tok != tokOBrace {
		return "", fmt.Errorf("expected opening brace token, got %d", tok)
	}
	return name, nil
}

// objectValues is the numeric payload of one object body, in arrival
// order per type. Binary writers coalesce adjacent values into list
// tokens arbitrarily, so consumers draw from these queues against the
// declared counts.
type objectValues struct {
	ints   []int
	floats []float32
}

// collectObjectValues walks one object body, accumulating numeric lists
// and dispatching nested objects to nested(). It stops after the matching
// closing brace.
func (p *BinaryParser) collectObjectValues(ctx *binContext, nested func(kind string) error) (*objectValues, error) {
	vals := &objectValues{}
	for {
		tok, err := ctx.r.readUint16()
		if err != nil {
			return nil, err
		}

		switch tok {
		case tokCBrace:
			return vals, nil
		case tokInteger:
			v, err := ctx.r.readUint32()
			if err != nil {
				return nil, err
			}
			vals.ints = append(vals.ints, int(int32(v)))
		case tokIntegerList:
			count, err := ctx.r.readUint32()
			if err != nil {
				return nil, err
			}
			list, err := ctx.r.readUint32Array(int(count))
			if err != nil {
				return nil, err
			}
			for _, v := range list {
				vals.ints = append(vals.ints, int(int32(v)))
			}
		case tokFloatList:
			count, err := ctx.r.readUint32()
			if err != nil {
				return nil, err
			}
			for i := 0; i < int(count); i++ {
				f, err := p.readFloatValue(ctx)
				if err != nil {
					return nil, err
				}
				vals.floats = append(vals.floats, f)
			}
		case tokName:
			kind, err := p.readNameValue(ctx.r)
			if err != nil {
				return nil, err
			}
			if err := nested(kind); err != nil {
				return nil, err
			}
		default:
			if err := p.skipTokenPayload(ctx, tok); err != nil {
				return nil, err
			}
		}
	}
}

// parseMeshObject decodes geometry from the object's numeric queues:
// vertex count, positions, face count, then per-face index tuples.
// Triangles only; other arities are skipped.
func (p *BinaryParser) parseMeshObject(ctx *binContext, name string) error {
	mesh := ctx.primary()
	if mesh.VertexCount() > 0 {
		mesh = scene.NewMesh("")
		ctx.doc.Meshes = append(ctx.doc.Meshes, mesh)
	}
	mesh.Name = name

	vals, err := p.collectObjectValues(ctx, func(kind string) error {
		return p.parseNestedMeshObject(ctx, kind)
	})
	if err != nil {
		return err
	}

	if len(vals.ints) == 0 {
		return fmt.Errorf("mesh carries no vertex count")
	}
	vertexCount := vals.ints[0]
	if vertexCount < 0 || len(vals.floats) < vertexCount*3 {
		return fmt.Errorf("mesh declares %d vertices but carries %d floats", vertexCount, len(vals.floats))
	}

	mesh.Vertices = make([]scene.Vertex, 0, vertexCount)
	for i := 0; i < vertexCount; i++ {
		var v scene.Vertex
		v.Position.X = vals.floats[i*3]
		v.Position.Y = vals.floats[i*3+1]
		v.Position.Z = vals.floats[i*3+2]
		mesh.Vertices = append(mesh.Vertices, v)
	}

	ints := vals.ints[1:]
	if len(ints) == 0 {
		return nil
	}
	faceCount := ints[0]
	ints = ints[1:]

	for i := 0; i < faceCount && len(ints) > 0; i++ {
		arity := ints[0]
		if arity < 0 || len(ints) < 1+arity {
			return fmt.Errorf("face %d index tuple is truncated", i)
		}
		if arity == 3 {
			mesh.Faces = append(mesh.Faces, scene.NewFace(ints[1], ints[2], ints[3]))
		}
		ints = ints[1+arity:]
	}

	p.log.Debug("parsed binary mesh",
		zap.String("name", mesh.Name),
		zap.Int("vertices", mesh.VertexCount()),
		zap.Int("faces", mesh.FaceCount()))
	return nil
}

// parseNestedMeshObject handles objects nested inside a Mesh body. Skin
// data cannot be populated yet and raises an Unsupported diagnostic; the
// remaining nested blocks are the same extension points the text grammar
// skips.
func (p *BinaryParser) parseNestedMeshObject(ctx *binContext, kind string) error {
	if _, err := p.consumeObjectOpening(ctx); err != nil {
		return err
	}

	switch kind {
	case "SkinWeights", "XSkinMeshHeader":
		ctx.doc.Diagnostics.AddWarningf("unsupported: binary %s data is not populated", kind)
	}
	return p.skipObjectBody(ctx, 1)
}

// parseMaterialObject decodes the face-color block: diffuse rgba, power,
// specular rgb, emissive rgb, plus a nested TextureFilename.
func (p *BinaryParser) parseMaterialObject(ctx *binContext, name string) error {
	mat := scene.Material{Name: name}

	vals, err := p.collectObjectValues(ctx, func(kind string) error {
		if kind != "TextureFilename" {
			if _, err := p.consumeObjectOpening(ctx); err != nil {
				return err
			}
			return p.skipObjectBody(ctx, 1)
		}
		path, err := p.parseTextureFilename(ctx)
		if err != nil {
			return err
		}
		mat.DiffuseTexture = path
		return nil
	})
	if err != nil {
		return err
	}

	f := vals.floats
	if len(f) < 4 {
		return fmt.Errorf("material carries %d floats, need at least 4", len(f))
	}
	mat.DiffuseColor.X, mat.DiffuseColor.Y, mat.DiffuseColor.Z = f[0], f[1], f[2]
	mat.Transparency = 1 - f[3]
	if len(f) >= 5 {
		mat.Shininess = f[4]
	}
	if len(f) >= 8 {
		mat.SpecularColor.X, mat.SpecularColor.Y, mat.SpecularColor.Z = f[5], f[6], f[7]
	}
	if len(f) >= 11 {
		mat.EmissiveColor.X, mat.EmissiveColor.Y, mat.EmissiveColor.Z = f[8], f[9], f[10]
	}

	mesh := ctx.primary()
	mesh.Materials = append(mesh.Materials, mat)
	ctx.doc.Materials = append(ctx.doc.Materials, mat)
	return nil
}

func (p *BinaryParser) parseTextureFilename(ctx *binContext) (string, error) {
	if _, err := p.consumeObjectOpening(ctx); err != nil {
		return "", err
	}

	path := ""
	for {
		tok, err := ctx.r.readUint16()
		if err != nil {
			return "", err
		}
		if tok == tokCBrace {
			return path, nil
		}
		if tok == tokString {
			path, err = p.readStringValue(ctx.r)
			if err != nil {
				return "", err
			}
			continue
		}
		if err := p.skipTokenPayload(ctx, tok); err != nil {
			return "", err
		}
	}
}

// parseAnimationSetObject registers the clip shell. Binary AnimationKey
// payloads are not populated yet; each one raises an Unsupported
// diagnostic so the gap is visible rather than silently truncated, and a
// clip left without keyframes is discarded like its text counterpart.
func (p *BinaryParser) parseAnimationSetObject(ctx *binContext, name string) error {
	mesh := ctx.primary()
	clip := scene.NewAnimationClip(fmt.Sprintf("Animation_%d", mesh.AnimationCount()))
	if name != "" {
		clip.Name = name
	}

	_, err := p.collectObjectValues(ctx, func(kind string) error {
		return p.parseAnimationChild(ctx, clip, kind)
	})
	if err != nil {
		return err
	}

	if clip.KeyframeCount() == 0 {
		ctx.doc.Diagnostics.AddWarningf("discarding animation set %q: no keyframes parsed", clip.Name)
		return nil
	}
	mesh.Animations = append(mesh.Animations, clip)
	return nil
}

// parseAnimationChild walks objects nested under an AnimationSet.
// Animation blocks are descended into so their AnimationKey children are
// seen; key payloads themselves are not populated yet and raise an
// Unsupported diagnostic.
func (p *BinaryParser) parseAnimationChild(ctx *binContext, clip *scene.AnimationClip, kind string) error {
	if _, err := p.consumeObjectOpening(ctx); err != nil {
		return err
	}

	switch kind {
	case "Animation":
		_, err := p.collectObjectValues(ctx, func(inner string) error {
			return p.parseAnimationChild(ctx, clip, inner)
		})
		return err
	case "AnimationKey":
		ctx.doc.Diagnostics.AddWarningf("unsupported: binary AnimationKey data in clip %q is not populated", clip.Name)
		return p.skipObjectBody(ctx, 1)
	default:
		return p.skipObjectBody(ctx, 1)
	}
}

func (p *BinaryParser) expectToken(ctx *binContext, want uint16) error {
	tok, err := ctx.r.readUint16()
	if err != nil {
		return err
	}
	if tok != want {
		return fmt.Errorf("expected token %d, got %d", want, tok)
	}
	return nil
}

// skipObjectBody consumes tokens until the brace depth returns to zero.
func (p *BinaryParser) skipObjectBody(ctx *binContext, depth int) error {
	for depth > 0 {
		tok, err := ctx.r.readUint16()
		if err != nil {
			return err
		}
		switch tok {
		case tokOBrace:
			depth++
		case tokCBrace:
			depth--
		default:
			if err := p.skipTokenPayload(ctx, tok); err != nil {
				return err
			}
		}
	}
	return nil
}

// skipTokenPayload consumes the payload bytes of tokens that carry data.
// Standalone-type and separator tokens have none.
func (p *BinaryParser) skipTokenPayload(ctx *binContext, tok uint16) error {
	r := ctx.r
	switch tok {
	case tokName:
		_, err := p.readNameValue(r)
		return err
	case tokString:
		_, err := p.readStringValue(r)
		return err
	case tokInteger:
		return r.skip(4)
	case tokGUID:
		return r.skip(16)
	case tokIntegerList:
		count, err := r.readUint32()
		if err != nil {
			return err
		}
		return r.skip(int(count) * 4)
	case tokFloatList:
		count, err := r.readUint32()
		if err != nil {
			return err
		}
		return r.skip(int(count) * ctx.floatSize / 8)
	case tokOParen, tokCParen, tokOBracket, tokCBracket, tokOAngle, tokCAngle,
		tokDot, tokComma, tokSemicolon, tokWord, tokDWord, tokFloat, tokDouble,
		tokChar, tokUChar, tokSWord, tokSDWord, tokVoid, tokLPStr, tokUnicode,
		tokCString, tokArray:
		return nil
	default:
		return fmt.Errorf("%w: unknown token %d at offset %d", ErrUnsupportedData, tok, r.pos)
	}
}

// readNameValue reads a NAME payload: u32 length + bytes.
func (p *BinaryParser) readNameValue(r *binReader) (string, error) {
	return r.readPrefixedString()
}

// readStringValue reads a STRING payload: u32 length + bytes + terminator
// token.
func (p *BinaryParser) readStringValue(r *binReader) (string, error) {
	s, err := r.readPrefixedString()
	if err != nil {
		return "", err
	}
	// Trailing semicolon or comma token.
	if _, err := r.readUint16(); err != nil {
		return "", err
	}
	return s, nil
}

// readFloatValue reads one float-list element at the header's declared
// width, narrowing doubles to float32.
func (p *BinaryParser) readFloatValue(ctx *binContext) (float32, error) {
	if ctx.floatSize == 64 {
		v, err := ctx.r.readFloat64()
		return float32(v), err
	}
	return ctx.r.readFloat32()
}
