// Package avatar turns a GLB/VRM container into normalized, render-ready mesh buffers.
package avatar

import (
	"errors"
	"fmt"

	"github.com/Faultbox/midgard-avatar/pkg/glb"
	"github.com/Faultbox/midgard-avatar/pkg/math"
)

// Assembly errors.
var (
	ErrMissingPositionAttribute = errors.New("primitive has no POSITION attribute")
	ErrMissingIndexAttribute    = errors.New("primitive has no indices")
	ErrIndexOutOfBounds         = errors.New("index out of bounds")
)

// NoMaterial marks triangles whose primitive references no material.
const NoMaterial = -1

// DecodeError locates a fatal decode failure. Fields that do not apply are -1.
type DecodeError struct {
	Mesh      int
	Primitive int
	Accessor  int
	Err       error
}

func (e *DecodeError) Error() string {
	msg := ""
	if e.Mesh >= 0 {
		msg += fmt.Sprintf("mesh %d ", e.Mesh)
	}
	if e.Primitive >= 0 {
		msg += fmt.Sprintf("primitive %d ", e.Primitive)
	}
	if e.Accessor >= 0 {
		msg += fmt.Sprintf("accessor %d ", e.Accessor)
	}
	if msg == "" {
		return e.Err.Error()
	}
	return msg[:len(msg)-1] + ": " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Primitive is one decoded primitive before merging.
type Primitive struct {
	Positions []math.Vec3
	Normals   []math.Vec3
	UVs       []math.Vec2
	Triangles [][3]uint32 // Local to Positions
	Material  int

	// FaceNormals holds one unit normal per triangle.
	FaceNormals []math.Vec3

	// SynthesizedNormals is set when Normals are facet normals computed here.
	SynthesizedNormals bool
}

// Assembled is every primitive of every mesh merged into one vertex space.
type Assembled struct {
	Positions []math.Vec3
	Normals   []math.Vec3
	UVs       []math.Vec2
	Indices   []uint32 // Triangle list, re-based per primitive

	// TriangleMaterials holds one material index per triangle.
	TriangleMaterials []int
	// FaceNormals holds one unit normal per triangle.
	FaceNormals []math.Vec3
}

// VertexCount returns the number of vertices.
func (a *Assembled) VertexCount() int {
	return len(a.Positions)
}

// TriangleCount returns the number of triangles.
func (a *Assembled) TriangleCount() int {
	return len(a.Indices) / 3
}

// Image is a decoded texture image. Pix is non-premultiplied RGBA, row-major,
// with a stride of Width*4.
type Image struct {
	Source int // Index into the document's images
	Name   string
	Format string
	Width  int
	Height int
	Pix    []byte
}

// Material is the part of a glTF material a renderer needs to pick a texture.
type Material struct {
	Name      string
	BaseColor [4]float32

	// BaseColorImage is the document image index of the base color texture, or -1.
	BaseColorImage int
	DoubleSided    bool
	AlphaMode      string
}

// Warning is a non-fatal problem found during decode.
type Warning struct {
	Image int // Document image index, or -1 if the warning is not about an image
	Err   error
}

func (w Warning) Error() string {
	if w.Image >= 0 {
		return fmt.Sprintf("image %d: %v", w.Image, w.Err)
	}
	return w.Err.Error()
}

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min math.Vec3
	Max math.Vec3
}

// Size returns the per-axis span.
func (b Bounds) Size() math.Vec3 {
	return b.Max.Sub(b.Min)
}

// Center returns the midpoint of the box.
func (b Bounds) Center() math.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Model is the normalized output of Decode. It is never modified after
// Decode returns; decoding the same bytes again yields a new Model.
type Model struct {
	Positions []math.Vec3
	Normals   []math.Vec3
	UVs       []math.Vec2
	Indices   []uint32

	// TriangleMaterials holds one index into Materials per triangle, or NoMaterial.
	TriangleMaterials []int
	// FaceNormals holds one unit normal per triangle. Unlike Normals they are
	// exact for faces whose vertices are shared with other faces.
	FaceNormals []math.Vec3

	Images    []Image
	Materials []Material
	Meta      *glb.VRMMeta
	Warnings  []Warning

	// Bounds is the box after normalization. Center and Scale are what was
	// applied to the source positions: p' = (p - Center) * Scale.
	Bounds Bounds
	Center math.Vec3
	Scale  float32
}

// VertexCount returns the number of vertices.
func (m *Model) VertexCount() int {
	return len(m.Positions)
}

// TriangleCount returns the number of triangles.
func (m *Model) TriangleCount() int {
	return len(m.Indices) / 3
}

// Transform returns the matrix mapping source positions to normalized ones.
func (m *Model) Transform() math.Mat4 {
	return math.UniformScale(m.Scale).Mul(math.Translation(m.Center.Scale(-1)))
}

// SourceTransform returns the matrix mapping normalized positions back to
// the source document's space.
func (m *Model) SourceTransform() math.Mat4 {
	return math.Translation(m.Center).Mul(math.UniformScale(1 / m.Scale))
}

// ImageBySource returns the decoded image for a document image index, or nil
// if that image was omitted.
func (m *Model) ImageBySource(source int) *Image {
	for i := range m.Images {
		if m.Images[i].Source == source {
			return &m.Images[i]
		}
	}
	return nil
}

// MaterialRange is a run of consecutive triangles sharing a material.
type MaterialRange struct {
	Material   int
	FirstIndex int // Offset into Indices
	IndexCount int
}

// MaterialRanges groups consecutive triangles by material, for issuing one
// draw call per range.
func (m *Model) MaterialRanges() []MaterialRange {
	var ranges []MaterialRange
	for t, mat := range m.TriangleMaterials {
		if n := len(ranges); n > 0 && ranges[n-1].Material == mat {
			ranges[n-1].IndexCount += 3
			continue
		}
		ranges = append(ranges, MaterialRange{Material: mat, FirstIndex: t * 3, IndexCount: 3})
	}
	return ranges
}
