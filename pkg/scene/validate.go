package scene

import (
	"fmt"
	"math"
)

// weightSumTolerance is the allowed deviation of a vertex's bone weight
// sum from 1.0.
const weightSumTolerance = 0.01

// ValidationErrors runs semantic validation over the fully built mesh and
// returns every violation found. It only collects; whether a violation is
// fatal is the caller's decision.
func (m *Mesh) ValidationErrors() []string {
	var errs []string

	if len(m.Vertices) == 0 {
		errs = append(errs, "mesh has no vertices")
		return errs
	}
	if len(m.Faces) == 0 {
		errs = append(errs, "mesh has no faces")
	}

	for i, face := range m.Faces {
		for _, idx := range face.Indices {
			if idx < 0 || idx >= len(m.Vertices) {
				errs = append(errs, fmt.Sprintf("face %d has out-of-range vertex index %d", i, idx))
			}
		}
		if face.MaterialIndex != -1 && face.MaterialIndex >= len(m.Materials) {
			errs = append(errs, fmt.Sprintf("face %d has out-of-range material index %d", i, face.MaterialIndex))
		}
	}

	for i := range m.Bones {
		bone := &m.Bones[i]
		if bone.ParentIndex == i {
			errs = append(errs, fmt.Sprintf("bone %q references itself as parent", bone.Name))
		}
		if bone.ParentIndex >= len(m.Bones) {
			errs = append(errs, fmt.Sprintf("bone %q has out-of-range parent index %d", bone.Name, bone.ParentIndex))
		}
	}

	if len(m.Bones) > 0 {
		errs = append(errs, m.validateSkinning()...)
	}

	for _, clip := range m.Animations {
		errs = append(errs, m.validateClip(clip)...)
	}

	return errs
}

func (m *Mesh) validateSkinning() []string {
	var errs []string

	for i := range m.Vertices {
		v := &m.Vertices[i]

		if len(v.BoneIndices) != len(v.BoneWeights) {
			errs = append(errs, fmt.Sprintf("vertex %d has mismatched bone index and weight counts", i))
			continue
		}

		for _, bi := range v.BoneIndices {
			if bi < 0 || bi >= len(m.Bones) {
				errs = append(errs, fmt.Sprintf("vertex %d references out-of-range bone index %d", i, bi))
			}
		}

		if len(v.BoneWeights) > 0 {
			var sum float32
			for _, w := range v.BoneWeights {
				sum += w
			}
			if math.Abs(float64(sum)-1.0) > weightSumTolerance {
				errs = append(errs, fmt.Sprintf("vertex %d bone weights sum to %.4f, want 1.0", i, sum))
			}
		}
	}

	return errs
}

func (m *Mesh) validateClip(clip *AnimationClip) []string {
	var errs []string

	if clip.TicksPerSecond <= 0 {
		errs = append(errs, fmt.Sprintf("clip %q has non-positive ticks-per-second %g", clip.Name, clip.TicksPerSecond))
	}

	if !timesNonDecreasing(clip.Keyframes) {
		errs = append(errs, fmt.Sprintf("clip %q has decreasing keyframe times", clip.Name))
	}
	for boneName, keys := range clip.BoneKeyframes {
		if !timesNonDecreasing(keys) {
			errs = append(errs, fmt.Sprintf("clip %q bone %q has decreasing keyframe times", clip.Name, boneName))
		}
		if m.BoneByName(boneName) == nil {
			errs = append(errs, fmt.Sprintf("clip %q references unknown bone %q", clip.Name, boneName))
		}
	}

	return errs
}

func timesNonDecreasing(keys []Keyframe) bool {
	for i := 1; i < len(keys); i++ {
		if keys[i].Time < keys[i-1].Time {
			return false
		}
	}
	return true
}
