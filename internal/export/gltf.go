package export

import (
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/modelworks/x2scene/pkg/scene"
)

// GLTF writes documents as glTF 2.0, either JSON (.gltf) with embedded
// buffers or binary (.glb).
type GLTF struct {
	Binary bool
	log    *zap.Logger
}

// NewGLTF returns a glTF exporter. A nil logger disables logging.
func NewGLTF(binary bool, log *zap.Logger) *GLTF {
	if log == nil {
		log = zap.NewNop()
	}
	return &GLTF{Binary: binary, log: log}
}

// Extension returns "glb" or "gltf".
func (e *GLTF) Extension() string {
	if e.Binary {
		return "glb"
	}
	return "gltf"
}

// Export writes the document to path.
func (e *GLTF) Export(doc *scene.Document, path string) error {
	out := gltf.NewDocument()
	out.Asset.Generator = "x2scene"

	for _, mesh := range doc.Meshes {
		if err := e.addMesh(out, mesh); err != nil {
			return fmt.Errorf("mesh %q: %w", mesh.Name, err)
		}
	}

	e.log.Info("writing scene",
		zap.String("path", path),
		zap.Int("meshes", len(out.Meshes)),
		zap.Int("materials", len(out.Materials)))

	if e.Binary {
		return gltf.SaveBinary(out, path)
	}
	return gltf.Save(out, path)
}

// addMesh appends one mesh with a primitive per material group.
func (e *GLTF) addMesh(out *gltf.Document, mesh *scene.Mesh) error {
	if mesh.VertexCount() == 0 || mesh.FaceCount() == 0 {
		return fmt.Errorf("empty geometry")
	}

	positions := make([][3]float32, 0, mesh.VertexCount())
	normals := make([][3]float32, 0, mesh.VertexCount())
	texCoords := make([][2]float32, 0, mesh.VertexCount())
	hasNormals := false
	hasTexCoords := false
	for _, v := range mesh.Vertices {
		positions = append(positions, [3]float32{v.Position.X, v.Position.Y, v.Position.Z})
		normals = append(normals, [3]float32{v.Normal.X, v.Normal.Y, v.Normal.Z})
		texCoords = append(texCoords, [2]float32{v.TexCoord.U, v.TexCoord.V})
		if v.Normal.Length() > 0 {
			hasNormals = true
		}
		if v.TexCoord.U != 0 || v.TexCoord.V != 0 {
			hasTexCoords = true
		}
	}

	attributes := map[string]int{
		gltf.POSITION: modeler.WritePosition(out, positions),
	}
	if hasNormals {
		attributes[gltf.NORMAL] = modeler.WriteNormal(out, normals)
	}
	if hasTexCoords {
		attributes[gltf.TEXCOORD_0] = modeler.WriteTextureCoord(out, texCoords)
	}

	materialIndex := make(map[int]int, len(mesh.Materials))
	for i, mat := range mesh.Materials {
		materialIndex[i] = e.addMaterial(out, mat)
	}

	gm := &gltf.Mesh{Name: mesh.Name}
	for matIdx, faces := range groupFacesByMaterial(mesh.Faces) {
		indices := make([]uint32, 0, len(faces)*3)
		for _, f := range faces {
			indices = append(indices,
				uint32(f.Indices[0]), uint32(f.Indices[1]), uint32(f.Indices[2]))
		}

		prim := &gltf.Primitive{
			Indices:    gltf.Index(modeler.WriteIndices(out, indices)),
			Attributes: attributes,
		}
		if gi, ok := materialIndex[matIdx]; ok {
			prim.Material = gltf.Index(gi)
		}
		gm.Primitives = append(gm.Primitives, prim)
	}

	out.Meshes = append(out.Meshes, gm)
	nodeIndex := len(out.Nodes)
	out.Nodes = append(out.Nodes, &gltf.Node{
		Name: mesh.Name,
		Mesh: gltf.Index(len(out.Meshes) - 1),
	})
	out.Scenes[0].Nodes = append(out.Scenes[0].Nodes, nodeIndex)
	return nil
}

// addMaterial appends a PBR material and returns its index.
func (e *GLTF) addMaterial(out *gltf.Document, mat scene.Material) int {
	alpha := float64(1 - mat.Transparency)
	gmat := &gltf.Material{
		Name: mat.Name,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float64{
				float64(mat.DiffuseColor.X), float64(mat.DiffuseColor.Y), float64(mat.DiffuseColor.Z), alpha,
			},
			MetallicFactor: gltf.Float(0),
		},
		EmissiveFactor: [3]float64{
			float64(mat.EmissiveColor.X), float64(mat.EmissiveColor.Y), float64(mat.EmissiveColor.Z),
		},
	}
	if mat.Transparency > 0 {
		gmat.AlphaMode = gltf.AlphaBlend
	}

	if mat.DiffuseTexture != "" {
		out.Images = append(out.Images, &gltf.Image{URI: mat.DiffuseTexture})
		out.Textures = append(out.Textures, &gltf.Texture{
			Source: gltf.Index(len(out.Images) - 1),
		})
		gmat.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{
			Index: len(out.Textures) - 1,
		}
	}

	out.Materials = append(out.Materials, gmat)
	return len(out.Materials) - 1
}

// groupFacesByMaterial buckets faces by material index, preserving face
// order within each bucket. Faces without a material go under -1.
func groupFacesByMaterial(faces []scene.Face) map[int][]scene.Face {
	groups := make(map[int][]scene.Face)
	for _, f := range faces {
		groups[f.MaterialIndex] = append(groups[f.MaterialIndex], f)
	}
	return groups
}
