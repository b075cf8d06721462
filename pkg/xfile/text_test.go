package xfile

import (
	"errors"
	"strings"
	"testing"
)

const textHeader = "xof 0303txt 0032\n"

// quadDoc is a minimal text document: four vertices, two triangles.
const quadDoc = textHeader + `
Mesh quad {
 4;
 0.0; 0.0; 0.0;,
 1.0; 0.0; 0.0;,
 1.0; 1.0; 0.0;,
 0.0; 1.0; 0.0;;
 2;
 3; 0, 1, 2;,
 3; 0, 2, 3;;
}
`

func TestTextParser_Quad(t *testing.T) {
	doc, err := NewTextParser(false, nil).Parse([]byte(quadDoc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !doc.Diagnostics.Success {
		t.Fatalf("parse did not succeed: %v", doc.Diagnostics.Errors)
	}
	if len(doc.Meshes) != 1 {
		t.Fatalf("meshes = %d, want 1", len(doc.Meshes))
	}

	mesh := doc.Meshes[0]
	if mesh.Name != "quad" {
		t.Errorf("mesh name = %q, want quad", mesh.Name)
	}
	if mesh.VertexCount() != 4 {
		t.Errorf("vertices = %d, want 4", mesh.VertexCount())
	}
	if mesh.FaceCount() != 2 {
		t.Errorf("faces = %d, want 2", mesh.FaceCount())
	}

	v := mesh.Vertices[2]
	if v.Position.X != 1 || v.Position.Y != 1 || v.Position.Z != 0 {
		t.Errorf("vertex 2 position = %v", v.Position)
	}
	if mesh.Faces[1].Indices != [3]int{0, 2, 3} {
		t.Errorf("face 1 indices = %v", mesh.Faces[1].Indices)
	}
}

func TestTextParser_Material(t *testing.T) {
	src := textHeader + `
Material red {
 1.000000; 0.000000; 0.000000; 1.000000;;
 32.000000;
 0.500000; 0.500000; 0.500000;;
 0.100000; 0.000000; 0.000000;;
 TextureFilename {
  "test_texture.jpg";
 }
}
`
	doc, err := NewTextParser(false, nil).Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(doc.Materials) != 1 {
		t.Fatalf("materials = %d, want 1", len(doc.Materials))
	}

	mat := doc.Materials[0]
	if mat.Name != "red" {
		t.Errorf("name = %q, want red", mat.Name)
	}
	if mat.DiffuseColor.X != 1 || mat.DiffuseColor.Y != 0 || mat.DiffuseColor.Z != 0 {
		t.Errorf("diffuse = %v", mat.DiffuseColor)
	}
	if mat.Transparency != 0 {
		t.Errorf("transparency = %v, want 0 for alpha 1.0", mat.Transparency)
	}
	if mat.Shininess != 32 {
		t.Errorf("shininess = %v, want 32", mat.Shininess)
	}
	if mat.SpecularColor.X != 0.5 {
		t.Errorf("specular = %v", mat.SpecularColor)
	}
	if mat.EmissiveColor.X != 0.1 {
		t.Errorf("emissive = %v", mat.EmissiveColor)
	}
	if mat.DiffuseTexture != "test_texture.jpg" {
		t.Errorf("texture = %q, want test_texture.jpg", mat.DiffuseTexture)
	}
}

func TestTextParser_AnimationSet(t *testing.T) {
	src := textHeader + `
AnimTicksPerSecond {
 160;
}
AnimationSet Walk {
 Animation {
  AnimationKey {
   0;
   2;
   0; 4; 1.000000, 0.000000, 0.000000, 0.000000;;,
   80; 4; 0.707107, 0.000000, 0.707107, 0.000000;;;
  }
  AnimationKey {
   2;
   2;
   0; 3; 0.000000, 0.000000, 0.000000;;,
   80; 3; 5.000000, 0.000000, 0.000000;;;
  }
 }
}
`
	doc, err := NewTextParser(false, nil).Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !doc.Header.HasTimingInfo || doc.Header.TicksPerSecond != 160 {
		t.Errorf("header timing = %v %v, want explicit 160",
			doc.Header.HasTimingInfo, doc.Header.TicksPerSecond)
	}

	clips := doc.Animations()
	if len(clips) != 1 {
		t.Fatalf("clips = %d, want 1", len(clips))
	}
	clip := clips[0]
	if clip.KeyframeCount() != 4 {
		t.Errorf("keyframes = %d, want 4", clip.KeyframeCount())
	}
	if clip.Duration != 80 {
		t.Errorf("duration = %v ticks, want 80", clip.Duration)
	}

	// Rotation key layout is count-prefixed w, x, y, z.
	rot := clip.Keyframes[1].Rotation
	if rot.W != 0.707107 || rot.X != 0 || rot.Y != 0.707107 {
		t.Errorf("rotation key = %+v", rot)
	}
	// Position key.
	pos := clip.Keyframes[3].Position
	if pos.X != 5 {
		t.Errorf("position key = %+v", pos)
	}
}

func TestTextParser_EmptyAnimationSetDiscarded(t *testing.T) {
	src := textHeader + `
AnimationSet Empty {
 Animation {
 }
}
`
	doc, err := NewTextParser(false, nil).Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(doc.Animations()) != 0 {
		t.Errorf("clips = %d, want 0", len(doc.Animations()))
	}
	if !warningsMention(doc.Diagnostics.Warnings, "no keyframes") {
		t.Errorf("expected discard warning, got %v", doc.Diagnostics.Warnings)
	}
}

func TestTextParser_NestedBlocksSkipped(t *testing.T) {
	src := textHeader + `
Mesh m {
 3;
 0.0; 0.0; 0.0;,
 1.0; 0.0; 0.0;,
 0.0; 1.0; 0.0;;
 1;
 3; 0, 1, 2;;
 MeshNormals {
  1;
  0.0; 0.0; 1.0;;
  1;
  3; 0, 0, 0;;
 }
 MeshTextureCoords {
  3;
  0.0; 0.0;,
  1.0; 0.0;,
  0.0; 1.0;;
 }
}
`
	doc, err := NewTextParser(false, nil).Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(doc.Meshes) != 1 {
		t.Fatalf("meshes = %d, want 1", len(doc.Meshes))
	}
	if doc.Meshes[0].VertexCount() != 3 || doc.Meshes[0].FaceCount() != 1 {
		t.Errorf("geometry = %d vertices, %d faces",
			doc.Meshes[0].VertexCount(), doc.Meshes[0].FaceCount())
	}
}

func TestTextParser_CommentsAndTemplates(t *testing.T) {
	src := textHeader + `
// header comment
template Mesh {
 <3D82AB44-62DA-11cf-AB39-0020AF71E433>
 DWORD nVertices;
}
# another comment style
Mesh m { // trailing comment
 3;
 0.0; 0.0; 0.0;, # inline
 1.0; 0.0; 0.0;,
 0.0; 1.0; 0.0;;
 1;
 3; 0, 1, 2;;
}
`
	doc, err := NewTextParser(false, nil).Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(doc.Meshes) != 1 || doc.Meshes[0].VertexCount() != 3 {
		t.Errorf("parse with comments failed: %+v", doc.Diagnostics)
	}
}

func TestTextParser_LenientRecovery(t *testing.T) {
	// The first Mesh is broken (bad vertex count line); lenient mode skips
	// it and still parses the second one.
	src := textHeader + `
Mesh broken {
 notanumber;
 0.0; 0.0; 0.0;;
}
Mesh good {
 3;
 0.0; 0.0; 0.0;,
 1.0; 0.0; 0.0;,
 0.0; 1.0; 0.0;;
 1;
 3; 0, 1, 2;;
}
`
	doc, err := NewTextParser(false, nil).Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if doc.Diagnostics.Success {
		t.Error("expected Success=false after recovered error")
	}
	if len(doc.Diagnostics.Errors) == 0 {
		t.Error("expected recorded error for broken mesh")
	}

	var good bool
	for _, m := range doc.Meshes {
		if m.Name == "good" && m.VertexCount() == 3 {
			good = true
		}
	}
	if !good {
		t.Errorf("second mesh not recovered, meshes: %d", len(doc.Meshes))
	}
}

func TestTextParser_StrictAborts(t *testing.T) {
	src := textHeader + `
Mesh broken {
 notanumber;
}
`
	_, err := NewTextParser(true, nil).Parse([]byte(src))
	var syn *SyntaxError
	if !errors.As(err, &syn) {
		t.Fatalf("Parse() error = %v, want SyntaxError", err)
	}
	if syn.Line == 0 {
		t.Error("syntax error carries no line number")
	}
}

func TestTextParser_EmptyInput(t *testing.T) {
	_, err := NewTextParser(false, nil).Parse(nil)
	if !errors.Is(err, ErrEmptyInput) {
		t.Errorf("Parse(nil) error = %v, want ErrEmptyInput", err)
	}
}

func TestTextParser_HeaderlessPayload(t *testing.T) {
	src := `Mesh m {
 3;
 0.0; 0.0; 0.0;,
 1.0; 0.0; 0.0;,
 0.0; 1.0; 0.0;;
 1;
 3; 0, 1, 2;;
}
`
	doc, err := NewTextParser(false, nil).Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(doc.Meshes) != 1 {
		t.Fatalf("meshes = %d, want 1", len(doc.Meshes))
	}
	if !warningsMention(doc.Diagnostics.Warnings, "no header") {
		t.Errorf("expected headerless warning, got %v", doc.Diagnostics.Warnings)
	}
}

func TestTextParser_Windows1252Recovery(t *testing.T) {
	// 0xE9 is e-acute in Windows-1252 and invalid standalone UTF-8.
	src := []byte(textHeader + "Material caf\xE9 {\n 1.0; 0.0; 0.0; 1.0;;\n}\n")
	doc, err := NewTextParser(false, nil).Parse(src)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(doc.Materials) != 1 {
		t.Fatalf("materials = %d, want 1", len(doc.Materials))
	}
	if doc.Materials[0].Name != "café" {
		t.Errorf("material name = %q, want café", doc.Materials[0].Name)
	}
	if !warningsMention(doc.Diagnostics.Warnings, "Windows-1252") {
		t.Errorf("expected encoding warning, got %v", doc.Diagnostics.Warnings)
	}
}

func TestTextParser_InvalidHeaderFatal(t *testing.T) {
	src := []byte("xof 03xxtxt 0032\nMesh m {\n}\n")
	_, err := NewTextParser(false, nil).Parse(src)
	if !errors.Is(err, ErrInvalidHeader) {
		t.Errorf("Parse() error = %v, want ErrInvalidHeader", err)
	}
}

func warningsMention(warnings []string, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}
