package avatar

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/require"
)

// encodeGLB serializes doc as a binary glTF container.
func encodeGLB(t *testing.T, doc *gltf.Document) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc := gltf.NewEncoder(&buf)
	enc.AsBinary = true
	require.NoError(t, enc.Encode(doc))
	return buf.Bytes()
}

// addTriangleMesh appends a single-primitive mesh with positions and
// triangle indices, plus any extra attributes.
func addTriangleMesh(doc *gltf.Document, positions [][3]float32, indices []uint32, extra map[string]uint32) *gltf.Primitive {
	attributes := map[string]uint32{
		"POSITION": modeler.WritePosition(doc, positions),
	}
	for name, accessor := range extra {
		attributes[name] = accessor
	}
	indicesAccessor := modeler.WriteIndices(doc, indices)
	prim := &gltf.Primitive{
		Indices:    &indicesAccessor,
		Attributes: attributes,
	}
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name:       "mesh",
		Primitives: []*gltf.Primitive{prim},
	})
	return prim
}

// twoMeshGLB is two separate one-triangle meshes, each indexing [0,1,2]
// over its own three vertices.
func twoMeshGLB(t *testing.T) []byte {
	doc := gltf.NewDocument()
	addTriangleMesh(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, []uint32{0, 1, 2}, nil)
	addTriangleMesh(doc, [][3]float32{{0, 0, 1}, {4, 0, 1}, {0, 2, 1}}, []uint32{0, 1, 2}, nil)
	return encodeGLB(t, doc)
}

func pngBytes(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
