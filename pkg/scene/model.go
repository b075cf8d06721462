// Package scene defines the canonical in-memory scene description produced
// by the .x ingestion pipeline: meshes, materials, skeletons and animation
// clips, plus the per-parse diagnostics record.
package scene

import "github.com/modelworks/x2scene/pkg/xmath"

// DefaultTicksPerSecond is the DirectX default animation tick rate, used
// whenever a file carries no explicit timing information.
const DefaultTicksPerSecond = 4800.0

// MaxBoneInfluences is the maximum number of bone weights per vertex.
const MaxBoneInfluences = 4

// Vertex holds position, normal, texture coordinate and up to four bone
// influences. BoneIndices and BoneWeights are parallel slices.
type Vertex struct {
	Position    xmath.Vec3
	Normal      xmath.Vec3
	TexCoord    xmath.Vec2
	BoneIndices []int
	BoneWeights []float32
}

// Face is a triangle referencing three vertices.
// MaterialIndex is -1 when the face has no material assigned.
type Face struct {
	Indices       [3]int
	MaterialIndex int
}

// NewFace returns a face with no material assigned.
func NewFace(i0, i1, i2 int) Face {
	return Face{Indices: [3]int{i0, i1, i2}, MaterialIndex: -1}
}

// Material describes surface appearance and up to three texture maps.
type Material struct {
	Name            string
	DiffuseColor    xmath.Vec3
	SpecularColor   xmath.Vec3
	EmissiveColor   xmath.Vec3
	Shininess       float32
	Transparency    float32
	DiffuseTexture  string
	NormalTexture   string
	SpecularTexture string
}

// Bone is a skeleton joint. ParentIndex is -1 for a root bone.
type Bone struct {
	Name         string
	ParentName   string
	ParentIndex  int
	BindPose     xmath.Mat4
	InverseBind  xmath.Mat4
	ChildIndices []int
}

// Keyframe holds one animation sample. Time is in source file ticks, not
// seconds; divide by the owning clip's TicksPerSecond to obtain seconds.
type Keyframe struct {
	Time     float32
	Position xmath.Vec3
	Rotation xmath.Quat
	Scale    xmath.Vec3
}

// NewKeyframe returns a keyframe with identity rotation and unit scale.
func NewKeyframe(time float32) Keyframe {
	return Keyframe{
		Time:     time,
		Rotation: xmath.QuatIdentity(),
		Scale:    xmath.One(),
	}
}

// AnimationClip is one named animation. Duration and keyframe times are in
// ticks; TicksPerSecond converts them to real time.
type AnimationClip struct {
	Name           string
	Duration       float32
	TicksPerSecond float32
	Keyframes      []Keyframe
	BoneKeyframes  map[string][]Keyframe
}

// NewAnimationClip returns a clip with the default DirectX tick rate.
func NewAnimationClip(name string) *AnimationClip {
	return &AnimationClip{
		Name:           name,
		TicksPerSecond: DefaultTicksPerSecond,
		BoneKeyframes:  make(map[string][]Keyframe),
	}
}

// DurationSeconds returns the clip duration in real seconds.
func (c *AnimationClip) DurationSeconds() float64 {
	if c.TicksPerSecond <= 0 {
		return 0
	}
	return float64(c.Duration) / float64(c.TicksPerSecond)
}

// KeyframeCount returns the total keyframe count across the flat list and
// all per-bone tracks.
func (c *AnimationClip) KeyframeCount() int {
	total := len(c.Keyframes)
	for _, keys := range c.BoneKeyframes {
		total += len(keys)
	}
	return total
}

// Mesh is a complete parsed mesh with geometry, skinning and animation.
type Mesh struct {
	Name       string
	Vertices   []Vertex
	Faces      []Face
	Materials  []Material
	Bones      []Bone
	Animations []*AnimationClip

	// File-level timing: tick rate applied to clips without their own,
	// and whether it was explicit in the source.
	GlobalTicksPerSecond float32
	HasTimingInfo        bool
}

// NewMesh returns an empty mesh with default timing.
func NewMesh(name string) *Mesh {
	return &Mesh{Name: name, GlobalTicksPerSecond: DefaultTicksPerSecond}
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int { return len(m.Vertices) }

// FaceCount returns the number of triangle faces.
func (m *Mesh) FaceCount() int { return len(m.Faces) }

// BoneCount returns the number of skeleton bones.
func (m *Mesh) BoneCount() int { return len(m.Bones) }

// AnimationCount returns the number of animation clips.
func (m *Mesh) AnimationCount() int { return len(m.Animations) }

// BoneByName returns the bone with the given name, or nil.
func (m *Mesh) BoneByName(name string) *Bone {
	for i := range m.Bones {
		if m.Bones[i].Name == name {
			return &m.Bones[i]
		}
	}
	return nil
}

// Format identifies the payload encoding of a source file.
type Format int

const (
	FormatUnknown Format = iota
	FormatText
	FormatBinary
	FormatCompressed
)

// String returns a human-readable format name.
func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatBinary:
		return "binary"
	case FormatCompressed:
		return "compressed"
	default:
		return "unknown"
	}
}

// Header holds the decoded 16-byte file preamble.
type Header struct {
	Format         Format
	MajorVersion   int
	MinorVersion   int
	FloatSize      int
	Compressed     bool
	HasTimingInfo  bool
	TicksPerSecond float32
}

// Document is the root of a parsed scene. It exclusively owns every nested
// entity; nothing is shared across documents.
type Document struct {
	Header      Header
	Meshes      []*Mesh
	Materials   []Material
	Metadata    map[string]string
	Diagnostics Diagnostics
}

// NewDocument returns an empty document with default header timing.
func NewDocument() *Document {
	return &Document{
		Header: Header{
			Format:         FormatText,
			MajorVersion:   3,
			MinorVersion:   3,
			TicksPerSecond: DefaultTicksPerSecond,
		},
		Metadata: make(map[string]string),
	}
}

// Animations returns all clips across all meshes in document order.
func (d *Document) Animations() []*AnimationClip {
	var clips []*AnimationClip
	for _, m := range d.Meshes {
		clips = append(clips, m.Animations...)
	}
	return clips
}

// AnimationNames returns the names of all clips in document order.
func (d *Document) AnimationNames() []string {
	var names []string
	for _, clip := range d.Animations() {
		names = append(names, clip.Name)
	}
	return names
}

// IsValid reports whether parsing succeeded and every mesh passed
// semantic validation.
func (d *Document) IsValid() bool {
	if !d.Diagnostics.Success {
		return false
	}
	for _, m := range d.Meshes {
		if len(m.ValidationErrors()) > 0 {
			return false
		}
	}
	return true
}
