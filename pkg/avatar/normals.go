package avatar

import "github.com/Faultbox/midgard-avatar/pkg/math"

// DegenerateEpsilon is the cross-product length below which a triangle is
// treated as zero-area.
const DegenerateEpsilon float32 = 1e-8

// up is the normal given to zero-area faces and to unreferenced vertices.
var up = math.Vec3{X: 0, Y: 1, Z: 0}

// FacetNormal returns the unit normal of triangle (v0, v1, v2) from the cross
// product of its edges. Zero-area triangles get epsilon added to Y before
// normalizing, which yields (0, 1, 0) instead of NaN.
func FacetNormal(v0, v1, v2 math.Vec3) math.Vec3 {
	n := v1.Sub(v0).Cross(v2.Sub(v0))
	if n.Length() < DegenerateEpsilon {
		n.Y += DegenerateEpsilon
	}
	if n = n.Normalize(); n.Length() == 0 {
		return up
	}
	return n
}

// FacetNormals returns one normal per triangle. Indices must already be
// bounds-checked against positions.
func FacetNormals(positions []math.Vec3, triangles [][3]uint32) []math.Vec3 {
	normals := make([]math.Vec3, len(triangles))
	for i, t := range triangles {
		normals[i] = FacetNormal(positions[t[0]], positions[t[1]], positions[t[2]])
	}
	return normals
}

// synthesizeNormals expands facet normals to per-vertex normals for a
// primitive with vertices vertices: every corner of a triangle takes that
// triangle's normal, later triangles overwriting earlier ones on shared
// vertices. Unreferenced vertices point up. The exact per-face normals stay
// available as FaceNormals.
func synthesizeNormals(vertices int, triangles [][3]uint32, faces []math.Vec3) []math.Vec3 {
	normals := make([]math.Vec3, vertices)
	for i := range normals {
		normals[i] = up
	}
	for i, n := range faces {
		for _, v := range triangles[i] {
			normals[v] = n
		}
	}
	return normals
}
