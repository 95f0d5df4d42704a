package avatar

import (
	"bytes"
	"errors"
	"image/color"
	"sync"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/midgard-avatar/pkg/glb"
	"github.com/Faultbox/midgard-avatar/pkg/glb/glbtest"
	"github.com/Faultbox/midgard-avatar/pkg/math"
	"github.com/Faultbox/midgard-avatar/pkg/texture"
)

const tolerance = 1e-5

func TestDecodeRebasesPrimitives(t *testing.T) {
	m, err := Decode(twoMeshGLB(t))
	require.NoError(t, err)

	assert.Equal(t, 6, m.VertexCount())
	assert.Equal(t, []uint32{0, 1, 2, 3, 4, 5}, m.Indices)
	assert.Equal(t, []int{NoMaterial, NoMaterial}, m.TriangleMaterials)
	assert.Len(t, m.Normals, 6)
	assert.Len(t, m.UVs, 6)
}

func TestDecodeIndicesInRange(t *testing.T) {
	m, err := Decode(twoMeshGLB(t))
	require.NoError(t, err)
	for i, idx := range m.Indices {
		assert.Less(t, int(idx), m.VertexCount(), "index %d", i)
	}
	assert.Equal(t, m.TriangleCount(), len(m.TriangleMaterials))
}

func TestDecodeNormalizes(t *testing.T) {
	for _, extent := range []float32{DefaultTargetExtent, 5, 0.01} {
		m, err := Decode(twoMeshGLB(t), WithTargetExtent(extent))
		require.NoError(t, err)

		b := ComputeBounds(m.Positions)
		assert.InDelta(t, extent, b.Size().MaxComponent(), tolerance*float64(extent))
		c := b.Center()
		assert.InDelta(t, 0, c.X, tolerance)
		assert.InDelta(t, 0, c.Y, tolerance)
		assert.InDelta(t, 0, c.Z, tolerance)
		assert.Equal(t, b, m.Bounds)
	}
}

func TestDecodeSynthesizesFacetNormals(t *testing.T) {
	m, err := Decode(twoMeshGLB(t))
	require.NoError(t, err)
	for i, n := range m.Normals {
		assert.InDelta(t, 1, n.Length(), tolerance, "normal %d", i)
		assert.InDelta(t, 1, n.Z, tolerance, "both triangles face +Z")
	}
}

func TestDecodeFaceNormalsOnSharedVertices(t *testing.T) {
	doc := gltf.NewDocument()
	addTriangleMesh(doc,
		[][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		[]uint32{0, 1, 2, 0, 3, 1}, nil)

	m, err := Decode(encodeGLB(t, doc))
	require.NoError(t, err)

	require.Len(t, m.FaceNormals, m.TriangleCount())
	assert.InDelta(t, 1, m.FaceNormals[0].Z, tolerance, "first face points +Z")
	assert.InDelta(t, 1, m.FaceNormals[1].Y, tolerance, "second face points +Y")

	// Vertex 0 and 1 are shared; the later face wins there.
	assert.InDelta(t, 1, m.Normals[0].Y, tolerance)
	assert.InDelta(t, 1, m.Normals[1].Y, tolerance)
	assert.InDelta(t, 1, m.Normals[2].Z, tolerance)
}

func TestDecodeKeepsAuthoredNormalsAndUVs(t *testing.T) {
	doc := gltf.NewDocument()
	normals := modeler.WriteNormal(doc, [][3]float32{{1, 0, 0}, {1, 0, 0}, {1, 0, 0}})
	uvs := modeler.WriteTextureCoord(doc, [][2]float32{{0, 0}, {1, 0}, {0.5, 1}})
	addTriangleMesh(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, []uint32{0, 1, 2},
		map[string]uint32{"NORMAL": normals, "TEXCOORD_0": uvs})

	m, err := Decode(encodeGLB(t, doc))
	require.NoError(t, err)
	assert.Equal(t, []math.Vec3{{X: 1}, {X: 1}, {X: 1}}, m.Normals)
	assert.Equal(t, []math.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0.5, Y: 1}}, m.UVs)
}

func TestDecodeZeroUVsWhenAbsent(t *testing.T) {
	m, err := Decode(twoMeshGLB(t))
	require.NoError(t, err)
	for i, uv := range m.UVs {
		assert.Equal(t, math.Vec2{}, uv, "uv %d", i)
	}
}

func TestDecodeBadMagic(t *testing.T) {
	data := []byte("GLTF\x02\x00\x00\x00\x0c\x00\x00\x00")

	m, err := Decode(data)
	assert.Nil(t, m)
	require.ErrorIs(t, err, glb.ErrMalformedContainer)

	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, -1, de.Mesh)
	assert.Equal(t, -1, de.Primitive)
	assert.Equal(t, -1, de.Accessor)
}

func TestDecodeBufferViewOverrun(t *testing.T) {
	data := glbtest.Build(`{
		"asset": {"version": "2.0"},
		"buffers": [{"byteLength": 8}],
		"bufferViews": [{"buffer": 0, "byteLength": 64}]
	}`, make([]byte, 8))

	_, err := Decode(data)
	assert.ErrorIs(t, err, glb.ErrBufferOverrun)
}

func TestDecodeHugeBufferViewOffset(t *testing.T) {
	data := glbtest.Build(`{
		"asset": {"version": "2.0"},
		"buffers": [{"byteLength": 4}],
		"bufferViews": [{"buffer": 0, "byteOffset": 9223372036854775807, "byteLength": 1}]
	}`, make([]byte, 4))

	_, err := Decode(data)
	assert.ErrorIs(t, err, glb.ErrBufferOverrun)
}

func TestDecodeUnbackedAccessorCount(t *testing.T) {
	data := glbtest.Build(`{
		"asset": {"version": "2.0"},
		"accessors": [
			{"componentType": 5126, "count": 1537228672809129302, "type": "VEC3"},
			{"componentType": 5125, "count": 3, "type": "SCALAR"}
		],
		"meshes": [{"primitives": [{"attributes": {"POSITION": 0}, "indices": 1}]}]
	}`, nil)

	_, err := Decode(data)
	require.ErrorIs(t, err, glb.ErrBufferOverrun)

	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 0, de.Mesh)
	assert.Equal(t, 0, de.Accessor)
}

func TestDecodeOmitsUndecodableImages(t *testing.T) {
	doc := gltf.NewDocument()
	addTriangleMesh(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, []uint32{0, 1, 2}, nil)

	_, err := modeler.WriteImage(doc, "broken", "image/ktx2", bytes.NewReader([]byte("this is not an image")))
	require.NoError(t, err)
	good, err := modeler.WriteImage(doc, "face", "image/png", bytes.NewReader(pngBytes(t, 4, 2, color.NRGBA{10, 20, 30, 255})))
	require.NoError(t, err)

	core, logs := observer.New(zapcore.WarnLevel)
	m, err := Decode(encodeGLB(t, doc), WithLogger(zap.New(core)))
	require.NoError(t, err)

	require.Len(t, m.Images, 1)
	img := m.Images[0]
	assert.Equal(t, int(good), img.Source)
	assert.Equal(t, "face", img.Name)
	assert.Equal(t, texture.FormatPNG, img.Format)
	assert.Equal(t, 4, img.Width)
	assert.Equal(t, 2, img.Height)
	require.Len(t, img.Pix, 4*2*4)
	assert.Equal(t, []byte{10, 20, 30, 255}, img.Pix[:4])
	assert.Same(t, &m.Images[0], m.ImageBySource(int(good)))
	assert.Nil(t, m.ImageBySource(0))

	require.Len(t, m.Warnings, 1)
	assert.Equal(t, 0, m.Warnings[0].Image)
	assert.ErrorIs(t, m.Warnings[0].Err, texture.ErrUnsupportedImageFormat)
	assert.Equal(t, 1, logs.Len())
}

func TestDecodeMaterials(t *testing.T) {
	doc := gltf.NewDocument()
	prim := addTriangleMesh(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, []uint32{0, 1, 2}, nil)
	addTriangleMesh(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, []uint32{0, 1, 2}, nil)

	imageIndex, err := modeler.WriteImage(doc, "skin", "image/png", bytes.NewReader(pngBytes(t, 1, 1, color.NRGBA{255, 255, 255, 255})))
	require.NoError(t, err)
	doc.Textures = append(doc.Textures, &gltf.Texture{Source: gltf.Index(imageIndex)})
	doc.Materials = append(doc.Materials, &gltf.Material{
		Name:        "Skin",
		DoubleSided: true,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor:  &[4]float32{1, 0.5, 0.5, 1},
			BaseColorTexture: &gltf.TextureInfo{Index: 0},
		},
	})
	prim.Material = gltf.Index(0)

	m, err := Decode(encodeGLB(t, doc))
	require.NoError(t, err)

	require.Len(t, m.Materials, 1)
	mat := m.Materials[0]
	assert.Equal(t, "Skin", mat.Name)
	assert.Equal(t, [4]float32{1, 0.5, 0.5, 1}, mat.BaseColor)
	assert.Equal(t, int(imageIndex), mat.BaseColorImage)
	assert.True(t, mat.DoubleSided)
	assert.Equal(t, "OPAQUE", mat.AlphaMode)

	assert.Equal(t, []int{0, NoMaterial}, m.TriangleMaterials)
	assert.Equal(t, []MaterialRange{
		{Material: 0, FirstIndex: 0, IndexCount: 3},
		{Material: NoMaterial, FirstIndex: 3, IndexCount: 3},
	}, m.MaterialRanges())
}

func TestDecodeVRMMeta(t *testing.T) {
	const text = `{
		"asset": {"version": "2.0"},
		"nodes": [{"name": "Hips"}],
		"extensions": {"VRMC_vrm": {"specVersion": "1.0", "meta": {"name": "Avatar"},
			"humanoid": {"humanBones": {"hips": {"node": 0}}}}}
	}`
	m, err := Decode(glbtest.Build(text, nil))
	require.NoError(t, err)
	require.NotNil(t, m.Meta)
	assert.Equal(t, "Avatar", m.Meta.Name)
	assert.Equal(t, map[string]int{"hips": 0}, m.Meta.HumanBones)
	assert.Zero(t, m.VertexCount())
	assert.Equal(t, float32(1), m.Scale)
}

func TestDecodeBrokenVRMMetaIsWarning(t *testing.T) {
	const text = `{
		"asset": {"version": "2.0"},
		"extensions": {"VRMC_vrm": {"humanoid": {"humanBones": {"hips": {"node": 7}}}}}
	}`
	m, err := Decode(glbtest.Build(text, nil))
	require.NoError(t, err)
	assert.Nil(t, m.Meta)
	require.Len(t, m.Warnings, 1)
	assert.Equal(t, -1, m.Warnings[0].Image)
	assert.ErrorIs(t, m.Warnings[0].Err, glb.ErrIndexOutOfRange)
}

func TestDecodeAssemblyErrorLocation(t *testing.T) {
	doc := gltf.NewDocument()
	addTriangleMesh(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, []uint32{0, 1, 2}, nil)
	addTriangleMesh(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, []uint32{0, 1, 3}, nil)

	_, err := Decode(encodeGLB(t, doc))
	require.ErrorIs(t, err, ErrIndexOutOfBounds)

	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 1, de.Mesh)
	assert.Equal(t, 0, de.Primitive)
	assert.GreaterOrEqual(t, de.Accessor, 0)
	assert.Contains(t, err.Error(), "mesh 1 primitive 0 accessor")
}

func TestDecodeConcurrent(t *testing.T) {
	data := twoMeshGLB(t)
	want, err := Decode(data)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*Model, 8)
	errs := make([]error, len(results))
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = Decode(data)
		}(i)
	}
	wg.Wait()

	for i, m := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, want, m)
		assert.NotSame(t, want, m)
	}
}
