package avatar

import (
	"fmt"
	stdmath "math"

	"github.com/Faultbox/midgard-avatar/pkg/glb"
	"github.com/Faultbox/midgard-avatar/pkg/math"
)

// DecodePrimitive decodes one primitive's attributes and triangles.
// mesh and index only label errors.
func DecodePrimitive(r *glb.Reader, mesh, index int, p *glb.Primitive) (*Primitive, error) {
	fail := func(accessor int, err error) error {
		return &DecodeError{Mesh: mesh, Primitive: index, Accessor: accessor, Err: err}
	}

	if p.Mode != nil && *p.Mode != glb.ModeTriangles {
		return nil, fail(-1, fmt.Errorf("%w: primitive mode %d, only triangle lists are supported", glb.ErrSchema, *p.Mode))
	}

	posAccessor, ok := p.Attributes[glb.AttrPosition]
	if !ok {
		return nil, fail(-1, ErrMissingPositionAttribute)
	}
	positions, err := r.ReadVec3(posAccessor)
	if err != nil {
		return nil, fail(posAccessor, err)
	}

	if p.Indices == nil {
		return nil, fail(-1, ErrMissingIndexAttribute)
	}
	triangles, err := r.ReadIndices(*p.Indices)
	if err != nil {
		return nil, fail(*p.Indices, err)
	}
	for t, tri := range triangles {
		for _, v := range tri {
			if int64(v) >= int64(len(positions)) {
				return nil, fail(*p.Indices, fmt.Errorf("%w: triangle %d references vertex %d, primitive has %d",
					ErrIndexOutOfBounds, t, v, len(positions)))
			}
		}
	}

	prim := &Primitive{
		Positions:   positions,
		Triangles:   triangles,
		FaceNormals: FacetNormals(positions, triangles),
		Material:    NoMaterial,
	}
	if p.Material != nil {
		prim.Material = *p.Material
	}

	if normAccessor, ok := p.Attributes[glb.AttrNormal]; ok {
		normals, err := r.ReadVec3(normAccessor)
		if err != nil {
			return nil, fail(normAccessor, err)
		}
		if len(normals) != len(positions) {
			return nil, fail(normAccessor, fmt.Errorf("%w: %d normals for %d positions", glb.ErrSchema, len(normals), len(positions)))
		}
		prim.Normals = normals
	} else {
		prim.Normals = synthesizeNormals(len(positions), triangles, prim.FaceNormals)
		prim.SynthesizedNormals = true
	}

	if uvAccessor, ok := p.Attributes[glb.AttrTexCoord0]; ok {
		uvs, err := r.ReadVec2(uvAccessor)
		if err != nil {
			return nil, fail(uvAccessor, err)
		}
		if len(uvs) != len(positions) {
			return nil, fail(uvAccessor, fmt.Errorf("%w: %d texcoords for %d positions", glb.ErrSchema, len(uvs), len(positions)))
		}
		prim.UVs = uvs
	} else {
		prim.UVs = make([]math.Vec2, len(positions))
	}

	return prim, nil
}

// Assemble merges every primitive of every mesh, in document order, into one
// vertex space. Each primitive's indices are re-based by the number of
// vertices appended before it.
func Assemble(r *glb.Reader) (*Assembled, error) {
	doc := r.Document()
	a := &Assembled{}

	var offset uint32
	for mi := range doc.Meshes {
		mesh := &doc.Meshes[mi]
		for pi := range mesh.Primitives {
			prim, err := DecodePrimitive(r, mi, pi, &mesh.Primitives[pi])
			if err != nil {
				return nil, err
			}
			if uint64(offset)+uint64(len(prim.Positions)) > stdmath.MaxUint32 {
				return nil, &DecodeError{Mesh: mi, Primitive: pi, Accessor: -1,
					Err: fmt.Errorf("%w: model exceeds %d vertices", ErrIndexOutOfBounds, uint32(stdmath.MaxUint32))}
			}

			a.Positions = append(a.Positions, prim.Positions...)
			a.Normals = append(a.Normals, prim.Normals...)
			a.UVs = append(a.UVs, prim.UVs...)
			for _, tri := range prim.Triangles {
				a.Indices = append(a.Indices, tri[0]+offset, tri[1]+offset, tri[2]+offset)
				a.TriangleMaterials = append(a.TriangleMaterials, prim.Material)
			}
			a.FaceNormals = append(a.FaceNormals, prim.FaceNormals...)

			offset += uint32(len(prim.Positions))
		}
	}

	if err := a.checkIndices(); err != nil {
		return nil, err
	}
	return a, nil
}

// checkIndices verifies every re-based index against the total vertex count.
func (a *Assembled) checkIndices() error {
	n := uint64(len(a.Positions))
	for i, idx := range a.Indices {
		if uint64(idx) >= n {
			return &DecodeError{Mesh: -1, Primitive: -1, Accessor: -1,
				Err: fmt.Errorf("%w: index %d at position %d, model has %d vertices", ErrIndexOutOfBounds, idx, i, n)}
		}
	}
	if len(a.TriangleMaterials)*3 != len(a.Indices) {
		return &DecodeError{Mesh: -1, Primitive: -1, Accessor: -1,
			Err: fmt.Errorf("%w: %d material entries for %d triangles", ErrIndexOutOfBounds, len(a.TriangleMaterials), len(a.Indices)/3)}
	}
	if len(a.FaceNormals)*3 != len(a.Indices) {
		return &DecodeError{Mesh: -1, Primitive: -1, Accessor: -1,
			Err: fmt.Errorf("%w: %d face normals for %d triangles", ErrIndexOutOfBounds, len(a.FaceNormals), len(a.Indices)/3)}
	}
	return nil
}
