package avatar

import "github.com/Faultbox/midgard-avatar/pkg/math"

// DefaultTargetExtent is the size of the largest axis after normalization.
const DefaultTargetExtent float32 = 2.0

// ComputeBounds returns the axis-aligned box around positions. An empty slice
// yields a zero box.
func ComputeBounds(positions []math.Vec3) Bounds {
	if len(positions) == 0 {
		return Bounds{}
	}
	b := Bounds{Min: positions[0], Max: positions[0]}
	for _, p := range positions[1:] {
		b.Min = b.Min.Min(p)
		b.Max = b.Max.Max(p)
	}
	return b
}

// Normalize centers the assembled geometry on the origin and scales it
// uniformly so its largest axis spans targetExtent. A model with zero span
// keeps scale 1. Normals, UVs and indices are carried over unchanged; the
// position slice is freshly allocated.
func Normalize(a *Assembled, targetExtent float32) *Model {
	src := ComputeBounds(a.Positions)
	center := src.Center()

	scale := float32(1)
	if span := src.Size().MaxComponent(); span > 0 {
		scale = targetExtent / span
	}

	positions := make([]math.Vec3, len(a.Positions))
	for i, p := range a.Positions {
		positions[i] = p.Sub(center).Scale(scale)
	}

	return &Model{
		Positions:         positions,
		Normals:           a.Normals,
		UVs:               a.UVs,
		Indices:           a.Indices,
		TriangleMaterials: a.TriangleMaterials,
		FaceNormals:       a.FaceNormals,
		Bounds: Bounds{
			Min: src.Min.Sub(center).Scale(scale),
			Max: src.Max.Sub(center).Scale(scale),
		},
		Center: center,
		Scale:  scale,
	}
}
