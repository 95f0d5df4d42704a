package glb

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ComponentType is the glTF accessor component type.
type ComponentType int

// Supported component types. Signed byte/short are rejected at decode time.
const (
	ComponentUnsignedByte  ComponentType = 5121
	ComponentUnsignedShort ComponentType = 5123
	ComponentUnsignedInt   ComponentType = 5125
	ComponentFloat         ComponentType = 5126
)

// Size returns the component width in bytes, or 0 for unsupported types.
func (c ComponentType) Size() int {
	switch c {
	case ComponentUnsignedByte:
		return 1
	case ComponentUnsignedShort:
		return 2
	case ComponentUnsignedInt, ComponentFloat:
		return 4
	default:
		return 0
	}
}

// String returns a human-readable component type name.
func (c ComponentType) String() string {
	switch c {
	case ComponentUnsignedByte:
		return "UNSIGNED_BYTE"
	case ComponentUnsignedShort:
		return "UNSIGNED_SHORT"
	case ComponentUnsignedInt:
		return "UNSIGNED_INT"
	case ComponentFloat:
		return "FLOAT"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// AccessorType is the element shape of an accessor.
type AccessorType string

// Accessor element shapes.
const (
	TypeScalar AccessorType = "SCALAR"
	TypeVec2   AccessorType = "VEC2"
	TypeVec3   AccessorType = "VEC3"
	TypeVec4   AccessorType = "VEC4"
	TypeMat2   AccessorType = "MAT2"
	TypeMat3   AccessorType = "MAT3"
	TypeMat4   AccessorType = "MAT4"
)

// Components returns the number of components per element, or 0 if unknown.
func (t AccessorType) Components() int {
	switch t {
	case TypeScalar:
		return 1
	case TypeVec2:
		return 2
	case TypeVec3:
		return 3
	case TypeVec4, TypeMat2:
		return 4
	case TypeMat3:
		return 9
	case TypeMat4:
		return 16
	default:
		return 0
	}
}

// Primitive attribute semantics used by the decoder.
const (
	AttrPosition  = "POSITION"
	AttrNormal    = "NORMAL"
	AttrTexCoord0 = "TEXCOORD_0"
)

// ModeTriangles is the only primitive topology the decoder accepts.
const ModeTriangles = 4

// Document is the deserialized JSON chunk of a GLB container.
type Document struct {
	Asset          Asset                      `json:"asset"`
	ExtensionsUsed []string                   `json:"extensionsUsed,omitempty"`
	Buffers        []Buffer                   `json:"buffers,omitempty"`
	BufferViews    []BufferView               `json:"bufferViews,omitempty"`
	Accessors      []Accessor                 `json:"accessors,omitempty"`
	Meshes         []Mesh                     `json:"meshes,omitempty"`
	Images         []Image                    `json:"images,omitempty"`
	Textures       []Texture                  `json:"textures,omitempty"`
	Materials      []Material                 `json:"materials,omitempty"`
	Nodes          []Node                     `json:"nodes,omitempty"`
	Extensions     map[string]json.RawMessage `json:"extensions,omitempty"`
}

// Asset holds glTF asset metadata.
type Asset struct {
	Version   string `json:"version"`
	Generator string `json:"generator,omitempty"`
	Copyright string `json:"copyright,omitempty"`
}

// Buffer is a byte region, either the container's BIN chunk (no URI) or an inline data URI.
type Buffer struct {
	URI        string `json:"uri,omitempty"`
	ByteLength int    `json:"byteLength"`
	Name       string `json:"name,omitempty"`
}

// BufferView is a window into a buffer.
type BufferView struct {
	Buffer     int    `json:"buffer"`
	ByteOffset int    `json:"byteOffset,omitempty"`
	ByteLength int    `json:"byteLength"`
	ByteStride int    `json:"byteStride,omitempty"` // 0 means tightly packed
	Target     int    `json:"target,omitempty"`
	Name       string `json:"name,omitempty"`
}

// Accessor describes how to interpret a run of bytes in a buffer view.
type Accessor struct {
	BufferView    *int            `json:"bufferView,omitempty"`
	ByteOffset    int             `json:"byteOffset,omitempty"`
	ComponentType ComponentType   `json:"componentType"`
	Normalized    bool            `json:"normalized,omitempty"`
	Count         int             `json:"count"`
	Type          AccessorType    `json:"type"`
	Sparse        json.RawMessage `json:"sparse,omitempty"`
	Name          string          `json:"name,omitempty"`
}

// Mesh is an ordered list of primitives.
type Mesh struct {
	Name       string      `json:"name,omitempty"`
	Primitives []Primitive `json:"primitives"`
}

// Primitive is one drawable piece of a mesh.
type Primitive struct {
	Attributes map[string]int `json:"attributes"`
	Indices    *int           `json:"indices,omitempty"`
	Material   *int           `json:"material,omitempty"`
	Mode       *int           `json:"mode,omitempty"`
}

// Image is an inline (data URI) or buffer-view-backed pixel source.
type Image struct {
	Name       string `json:"name,omitempty"`
	URI        string `json:"uri,omitempty"`
	MimeType   string `json:"mimeType,omitempty"`
	BufferView *int   `json:"bufferView,omitempty"`
}

// Texture binds an image to a sampler.
type Texture struct {
	Name    string `json:"name,omitempty"`
	Source  *int   `json:"source,omitempty"`
	Sampler *int   `json:"sampler,omitempty"`
}

// Material keeps the base color part of the metallic-roughness model.
type Material struct {
	Name                 string                `json:"name,omitempty"`
	PBRMetallicRoughness *PBRMetallicRoughness `json:"pbrMetallicRoughness,omitempty"`
	AlphaMode            string                `json:"alphaMode,omitempty"`
	DoubleSided          bool                  `json:"doubleSided,omitempty"`
}

// PBRMetallicRoughness is material.pbrMetallicRoughness.
type PBRMetallicRoughness struct {
	BaseColorFactor  *[4]float32  `json:"baseColorFactor,omitempty"`
	BaseColorTexture *TextureInfo `json:"baseColorTexture,omitempty"`
}

// TextureInfo references a texture from a material.
type TextureInfo struct {
	Index    int `json:"index"`
	TexCoord int `json:"texCoord,omitempty"`
}

// Node is a scene graph node. Only the fields VRM metadata needs are kept.
type Node struct {
	Name     string `json:"name,omitempty"`
	Mesh     *int   `json:"mesh,omitempty"`
	Children []int  `json:"children,omitempty"`
}

// ParseDocument deserializes and structurally validates a JSON chunk.
// It interprets no buffer bytes.
func ParseDocument(text []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(text, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Buffer returns buffers[i].
func (d *Document) Buffer(i int) (*Buffer, error) {
	if err := checkIndex("buffers", i, len(d.Buffers)); err != nil {
		return nil, err
	}
	return &d.Buffers[i], nil
}

// BufferView returns bufferViews[i].
func (d *Document) BufferView(i int) (*BufferView, error) {
	if err := checkIndex("bufferViews", i, len(d.BufferViews)); err != nil {
		return nil, err
	}
	return &d.BufferViews[i], nil
}

// Accessor returns accessors[i].
func (d *Document) Accessor(i int) (*Accessor, error) {
	if err := checkIndex("accessors", i, len(d.Accessors)); err != nil {
		return nil, err
	}
	return &d.Accessors[i], nil
}

// Mesh returns meshes[i].
func (d *Document) Mesh(i int) (*Mesh, error) {
	if err := checkIndex("meshes", i, len(d.Meshes)); err != nil {
		return nil, err
	}
	return &d.Meshes[i], nil
}

// Image returns images[i].
func (d *Document) Image(i int) (*Image, error) {
	if err := checkIndex("images", i, len(d.Images)); err != nil {
		return nil, err
	}
	return &d.Images[i], nil
}

// Texture returns textures[i].
func (d *Document) Texture(i int) (*Texture, error) {
	if err := checkIndex("textures", i, len(d.Textures)); err != nil {
		return nil, err
	}
	return &d.Textures[i], nil
}

// Material returns materials[i].
func (d *Document) Material(i int) (*Material, error) {
	if err := checkIndex("materials", i, len(d.Materials)); err != nil {
		return nil, err
	}
	return &d.Materials[i], nil
}

// PrimitiveCount returns the number of primitives across all meshes.
func (d *Document) PrimitiveCount() int {
	total := 0
	for _, m := range d.Meshes {
		total += len(m.Primitives)
	}
	return total
}

func checkIndex(collection string, i, n int) error {
	if i < 0 || i >= n {
		return &RangeError{Collection: collection, Index: i, Len: n}
	}
	return nil
}

// validate checks value constraints and resolves every cross reference.
func (d *Document) validate() error {
	if d.Asset.Version == "" {
		return schemaErrorf("asset: missing required field \"version\"")
	}
	if !strings.HasPrefix(d.Asset.Version, "2.") {
		return schemaErrorf("asset: unsupported glTF version %q", d.Asset.Version)
	}

	for i, b := range d.Buffers {
		if b.ByteLength < 1 {
			return schemaErrorf("buffers[%d]: invalid byteLength %d", i, b.ByteLength)
		}
	}

	for i, v := range d.BufferViews {
		if v.ByteOffset < 0 || v.ByteLength < 1 {
			return schemaErrorf("bufferViews[%d]: invalid range offset=%d length=%d", i, v.ByteOffset, v.ByteLength)
		}
		if v.ByteStride != 0 && (v.ByteStride < 4 || v.ByteStride > 252 || v.ByteStride%4 != 0) {
			return schemaErrorf("bufferViews[%d]: invalid byteStride %d", i, v.ByteStride)
		}
		if err := checkIndex("buffers", v.Buffer, len(d.Buffers)); err != nil {
			return fmt.Errorf("bufferViews[%d]: %w", i, err)
		}
	}

	for i, a := range d.Accessors {
		if a.Count < 1 {
			return schemaErrorf("accessors[%d]: invalid count %d", i, a.Count)
		}
		if a.ComponentType == 0 {
			return schemaErrorf("accessors[%d]: missing required field \"componentType\"", i)
		}
		if a.ByteOffset < 0 {
			return schemaErrorf("accessors[%d]: invalid byteOffset %d", i, a.ByteOffset)
		}
		if a.Type.Components() == 0 {
			return schemaErrorf("accessors[%d]: invalid type %q", i, a.Type)
		}
		if a.BufferView != nil {
			if err := checkIndex("bufferViews", *a.BufferView, len(d.BufferViews)); err != nil {
				return fmt.Errorf("accessors[%d]: %w", i, err)
			}
		}
	}

	for i, m := range d.Meshes {
		if len(m.Primitives) == 0 {
			return schemaErrorf("meshes[%d]: missing required field \"primitives\"", i)
		}
		for j, p := range m.Primitives {
			if err := d.validatePrimitive(&p); err != nil {
				return fmt.Errorf("meshes[%d].primitives[%d]: %w", i, j, err)
			}
		}
	}

	for i, img := range d.Images {
		if img.BufferView != nil {
			if err := checkIndex("bufferViews", *img.BufferView, len(d.BufferViews)); err != nil {
				return fmt.Errorf("images[%d]: %w", i, err)
			}
		}
	}

	for i, t := range d.Textures {
		if t.Source != nil {
			if err := checkIndex("images", *t.Source, len(d.Images)); err != nil {
				return fmt.Errorf("textures[%d]: %w", i, err)
			}
		}
	}

	for i, m := range d.Materials {
		if pbr := m.PBRMetallicRoughness; pbr != nil && pbr.BaseColorTexture != nil {
			if err := checkIndex("textures", pbr.BaseColorTexture.Index, len(d.Textures)); err != nil {
				return fmt.Errorf("materials[%d]: %w", i, err)
			}
		}
	}

	for i, n := range d.Nodes {
		if n.Mesh != nil {
			if err := checkIndex("meshes", *n.Mesh, len(d.Meshes)); err != nil {
				return fmt.Errorf("nodes[%d]: %w", i, err)
			}
		}
		for _, c := range n.Children {
			if err := checkIndex("nodes", c, len(d.Nodes)); err != nil {
				return fmt.Errorf("nodes[%d]: %w", i, err)
			}
		}
	}

	return nil
}

func (d *Document) validatePrimitive(p *Primitive) error {
	if p.Attributes == nil {
		return schemaErrorf("missing required field \"attributes\"")
	}
	for name, idx := range p.Attributes {
		if err := checkIndex("accessors", idx, len(d.Accessors)); err != nil {
			return fmt.Errorf("attribute %s: %w", name, err)
		}
	}
	if p.Indices != nil {
		if err := checkIndex("accessors", *p.Indices, len(d.Accessors)); err != nil {
			return fmt.Errorf("indices: %w", err)
		}
	}
	if p.Material != nil {
		if err := checkIndex("materials", *p.Material, len(d.Materials)); err != nil {
			return fmt.Errorf("material: %w", err)
		}
	}
	return nil
}
