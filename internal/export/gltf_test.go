package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/qmuntal/gltf"

	"github.com/modelworks/x2scene/pkg/scene"
	"github.com/modelworks/x2scene/pkg/xmath"
)

func testDocument() *scene.Document {
	doc := scene.NewDocument()
	mesh := scene.NewMesh("quad")
	mesh.Vertices = []scene.Vertex{
		{Position: xmath.Vec3{X: 0, Y: 0, Z: 0}, Normal: xmath.Vec3{Z: 1}},
		{Position: xmath.Vec3{X: 1, Y: 0, Z: 0}, Normal: xmath.Vec3{Z: 1}},
		{Position: xmath.Vec3{X: 1, Y: 1, Z: 0}, Normal: xmath.Vec3{Z: 1}},
		{Position: xmath.Vec3{X: 0, Y: 1, Z: 0}, Normal: xmath.Vec3{Z: 1}},
	}
	f0 := scene.NewFace(0, 1, 2)
	f0.MaterialIndex = 0
	f1 := scene.NewFace(0, 2, 3)
	f1.MaterialIndex = 0
	mesh.Faces = []scene.Face{f0, f1}
	mesh.Materials = []scene.Material{
		{
			Name:           "skin",
			DiffuseColor:   xmath.Vec3{X: 1, Y: 0.5, Z: 0.25},
			DiffuseTexture: "skin.png",
		},
	}
	doc.Meshes = append(doc.Meshes, mesh)
	return doc
}

func TestNew(t *testing.T) {
	tests := []struct {
		format  string
		ext     string
		wantErr bool
	}{
		{format: "gltf", ext: "gltf"},
		{format: "glb", ext: "glb"},
		{format: "obj", wantErr: true},
		{format: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			exp, err := New(tt.format, nil)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("New(%q) expected error", tt.format)
				}
				return
			}
			if err != nil {
				t.Fatalf("New(%q) error = %v", tt.format, err)
			}
			if exp.Extension() != tt.ext {
				t.Errorf("Extension() = %q, want %q", exp.Extension(), tt.ext)
			}
		})
	}
}

func TestExportGLTF(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "quad.gltf")

	exp := NewGLTF(false, nil)
	if err := exp.Export(testDocument(), path); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	content := string(data)

	for _, want := range []string{`"quad"`, `"skin"`, "skin.png", "x2scene"} {
		if !strings.Contains(content, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestExportGLB(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "quad.glb")

	exp := NewGLTF(true, nil)
	if err := exp.Export(testDocument(), path); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if len(data) < 12 || string(data[:4]) != "glTF" {
		t.Errorf("output is not a binary glTF container")
	}
}

func TestExportEmptyMesh(t *testing.T) {
	doc := scene.NewDocument()
	doc.Meshes = append(doc.Meshes, scene.NewMesh("hollow"))

	exp := NewGLTF(false, nil)
	err := exp.Export(doc, filepath.Join(t.TempDir(), "hollow.gltf"))
	if err == nil {
		t.Fatal("expected error for mesh without geometry")
	}
	if !strings.Contains(err.Error(), "hollow") {
		t.Errorf("error should name the mesh, got %v", err)
	}
}

func TestAddMaterialColors(t *testing.T) {
	out := gltf.NewDocument()
	exp := NewGLTF(false, nil)

	idx := exp.addMaterial(out, scene.Material{
		Name:          "glass",
		DiffuseColor:  xmath.Vec3{X: 0.25, Y: 0.5, Z: 0.75},
		EmissiveColor: xmath.Vec3{X: 0.125, Y: 0.25, Z: 0.5},
		Transparency:  0.5,
	})

	gmat := out.Materials[idx]
	got := gmat.PBRMetallicRoughness.BaseColorFactor
	want := [4]float64{0.25, 0.5, 0.75, 0.5}
	if got == nil || *got != want {
		t.Errorf("BaseColorFactor = %v, want %v", got, want)
	}
	if gmat.EmissiveFactor != [3]float64{0.125, 0.25, 0.5} {
		t.Errorf("EmissiveFactor = %v", gmat.EmissiveFactor)
	}
	if gmat.AlphaMode != gltf.AlphaBlend {
		t.Errorf("AlphaMode = %v, want blend", gmat.AlphaMode)
	}

	opaque := exp.addMaterial(out, scene.Material{
		Name:         "stone",
		DiffuseColor: xmath.Vec3{X: 1, Y: 1, Z: 1},
	})
	if bc := out.Materials[opaque].PBRMetallicRoughness.BaseColorFactor; bc == nil || bc[3] != 1 {
		t.Errorf("opaque material alpha = %v, want 1", bc)
	}
}

func TestGroupFacesByMaterial(t *testing.T) {
	f := func(matIdx int) scene.Face {
		face := scene.NewFace(0, 1, 2)
		face.MaterialIndex = matIdx
		return face
	}

	groups := groupFacesByMaterial([]scene.Face{f(0), f(1), f(0), f(-1)})

	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	if len(groups[0]) != 2 {
		t.Errorf("expected 2 faces for material 0, got %d", len(groups[0]))
	}
	if len(groups[1]) != 1 {
		t.Errorf("expected 1 face for material 1, got %d", len(groups[1]))
	}
	if len(groups[-1]) != 1 {
		t.Errorf("expected 1 unassigned face, got %d", len(groups[-1]))
	}
}
