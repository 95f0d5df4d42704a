package glb

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	vmath "github.com/Faultbox/midgard-avatar/pkg/math"
)

// MaxUnbackedAccessorBytes bounds the zero-filled data one Reader hands out
// for accessors that have no bufferView. Such accessors occupy no bytes in
// the file, so their counts alone must not decide the allocation.
const MaxUnbackedAccessorBytes = 64 << 20

// Reader decodes accessor data from a document's resolved buffers.
// A Reader is not shared between decode calls.
type Reader struct {
	doc      *Document
	buffers  [][]byte
	unbacked int // zero-filled bytes handed out so far
}

// NewReader resolves every buffer of doc and checks every buffer view against
// its buffer. bin is the container's BIN chunk and may be nil.
func NewReader(doc *Document, bin []byte) (*Reader, error) {
	r := &Reader{
		doc:     doc,
		buffers: make([][]byte, len(doc.Buffers)),
	}

	for i, b := range doc.Buffers {
		var data []byte
		switch {
		case b.URI == "":
			if i != 0 || bin == nil {
				return nil, schemaErrorf("buffers[%d]: no uri and no BIN chunk to back it", i)
			}
			data = bin
		case strings.HasPrefix(b.URI, "data:"):
			decoded, _, err := DecodeDataURI(b.URI)
			if err != nil {
				return nil, fmt.Errorf("buffers[%d]: %w", i, err)
			}
			data = decoded
		default:
			return nil, schemaErrorf("buffers[%d]: external uri %q is not supported", i, b.URI)
		}

		if len(data) < b.ByteLength {
			return nil, fmt.Errorf("%w: buffers[%d] declares %d bytes, %d available", ErrBufferOverrun, i, b.ByteLength, len(data))
		}
		// The BIN chunk may carry trailing padding past byteLength.
		r.buffers[i] = data[:b.ByteLength]
	}

	for i, v := range doc.BufferViews {
		if _, err := r.view(i, &v); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Document returns the document the reader decodes from.
func (r *Reader) Document() *Document {
	return r.doc
}

// DecodeDataURI decodes a base64 data URI of the form data:[<mime>];base64,<payload>.
func DecodeDataURI(uri string) (data []byte, mimeType string, err error) {
	if !strings.HasPrefix(uri, "data:") {
		return nil, "", schemaErrorf("not a data uri")
	}
	comma := strings.IndexByte(uri, ',')
	if comma < 0 {
		return nil, "", schemaErrorf("malformed data uri: no comma")
	}
	header := uri[len("data:"):comma]
	if !strings.HasSuffix(header, ";base64") {
		return nil, "", schemaErrorf("data uri encoding %q is not base64", header)
	}
	mimeType = strings.TrimSuffix(header, ";base64")

	data, err = base64.StdEncoding.DecodeString(uri[comma+1:])
	if err != nil {
		return nil, mimeType, schemaErrorf("data uri payload: %v", err)
	}
	return data, mimeType, nil
}

// ReadBufferView returns the raw bytes of bufferViews[i].
// The slice aliases the underlying buffer and must not be modified.
func (r *Reader) ReadBufferView(i int) ([]byte, error) {
	v, err := r.doc.BufferView(i)
	if err != nil {
		return nil, err
	}
	return r.view(i, v)
}

// ReadVec3 decodes a VEC3 FLOAT accessor (positions, normals).
func (r *Reader) ReadVec3(accessor int) ([]vmath.Vec3, error) {
	s, err := r.span(accessor, TypeVec3)
	if err != nil {
		return nil, err
	}
	if s.ct != ComponentFloat {
		return nil, fmt.Errorf("%w: accessors[%d] is VEC3 %s, want FLOAT", ErrUnsupportedComponentType, accessor, s.ct)
	}

	out := make([]vmath.Vec3, s.count)
	var c [3]float32
	for i := range out {
		off := s.base + i*s.stride
		for k := range c {
			if c[k], err = s.readFloat(off + k*4); err != nil {
				return nil, err
			}
		}
		out[i] = vmath.Vec3{X: c[0], Y: c[1], Z: c[2]}
	}
	return out, nil
}

// ReadVec2 decodes a VEC2 accessor (texture coordinates). FLOAT and normalized
// UNSIGNED_BYTE/UNSIGNED_SHORT components are accepted.
func (r *Reader) ReadVec2(accessor int) ([]vmath.Vec2, error) {
	s, err := r.span(accessor, TypeVec2)
	if err != nil {
		return nil, err
	}
	switch {
	case s.ct == ComponentFloat:
	case s.normalized && (s.ct == ComponentUnsignedByte || s.ct == ComponentUnsignedShort):
	default:
		return nil, fmt.Errorf("%w: accessors[%d] is VEC2 %s (normalized=%v)", ErrUnsupportedComponentType, accessor, s.ct, s.normalized)
	}

	out := make([]vmath.Vec2, s.count)
	size := s.ct.Size()
	for i := range out {
		off := s.base + i*s.stride
		u, err := s.readFloat(off)
		if err != nil {
			return nil, err
		}
		v, err := s.readFloat(off + size)
		if err != nil {
			return nil, err
		}
		out[i] = vmath.Vec2{X: u, Y: v}
	}
	return out, nil
}

// ReadIndices decodes a SCALAR index accessor as triangle-list triples.
// The count must be a multiple of 3; strips and fans are not supported.
func (r *Reader) ReadIndices(accessor int) ([][3]uint32, error) {
	s, err := r.span(accessor, TypeScalar)
	if err != nil {
		return nil, err
	}
	switch s.ct {
	case ComponentUnsignedByte, ComponentUnsignedShort, ComponentUnsignedInt:
	default:
		return nil, fmt.Errorf("%w: accessors[%d] indices are %s", ErrUnsupportedComponentType, accessor, s.ct)
	}
	if s.count%3 != 0 {
		return nil, schemaErrorf("accessors[%d]: index count %d is not a multiple of 3", accessor, s.count)
	}

	out := make([][3]uint32, s.count/3)
	for i := range out {
		for k := 0; k < 3; k++ {
			v, err := readComponent(s.data, s.base+(i*3+k)*s.stride, s.ct)
			if err != nil {
				return nil, err
			}
			out[i][k] = v
		}
	}
	return out, nil
}

// span is a validated element range of one accessor.
type span struct {
	data       []byte
	base       int
	stride     int
	count      int
	ct         ComponentType
	normalized bool
}

// span resolves accessor -> bufferView -> buffer and checks the full read range.
func (r *Reader) span(accessor int, want AccessorType) (*span, error) {
	a, err := r.doc.Accessor(accessor)
	if err != nil {
		return nil, err
	}
	if len(a.Sparse) > 0 {
		return nil, schemaErrorf("accessors[%d]: sparse accessors are not supported", accessor)
	}
	if a.Type != want {
		return nil, schemaErrorf("accessors[%d]: type %s, want %s", accessor, a.Type, want)
	}
	size := a.ComponentType.Size()
	if size == 0 {
		return nil, fmt.Errorf("%w: accessors[%d] component type %s", ErrUnsupportedComponentType, accessor, a.ComponentType)
	}
	elem := size * want.Components()

	s := &span{
		stride:     elem,
		count:      a.Count,
		ct:         a.ComponentType,
		normalized: a.Normalized,
	}

	if a.BufferView == nil {
		// glTF: an accessor without a buffer view reads as zeros.
		if a.Count > (MaxUnbackedAccessorBytes-r.unbacked)/elem {
			return nil, fmt.Errorf("%w: accessors[%d] has no bufferView and count %d exceeds the %d-byte limit",
				ErrBufferOverrun, accessor, a.Count, MaxUnbackedAccessorBytes)
		}
		r.unbacked += elem * a.Count
		s.data = make([]byte, elem*a.Count)
		return s, nil
	}

	v, err := r.doc.BufferView(*a.BufferView)
	if err != nil {
		return nil, fmt.Errorf("accessors[%d]: %w", accessor, err)
	}
	data, err := r.view(*a.BufferView, v)
	if err != nil {
		return nil, err
	}
	if v.ByteStride != 0 {
		if v.ByteStride < elem {
			return nil, schemaErrorf("accessors[%d]: byteStride %d is smaller than the %d-byte element", accessor, v.ByteStride, elem)
		}
		s.stride = v.ByteStride
	}

	// Every element takes at least one byte, so this also bounds the multiply below.
	if a.Count > len(data) {
		return nil, fmt.Errorf("%w: accessors[%d] count %d exceeds bufferViews[%d] length %d",
			ErrBufferOverrun, accessor, a.Count, *a.BufferView, len(data))
	}
	if a.ByteOffset > len(data) {
		return nil, fmt.Errorf("%w: accessors[%d] byteOffset %d is past bufferViews[%d] length %d",
			ErrBufferOverrun, accessor, a.ByteOffset, *a.BufferView, len(data))
	}
	end := a.ByteOffset + (a.Count-1)*s.stride + elem
	if end > len(data) {
		return nil, fmt.Errorf("%w: accessors[%d] reads bytes [%d, %d) of bufferViews[%d] with length %d",
			ErrBufferOverrun, accessor, a.ByteOffset, end, *a.BufferView, len(data))
	}

	s.data = data
	s.base = a.ByteOffset
	return s, nil
}

// view slices bufferViews[i] out of its buffer.
func (r *Reader) view(i int, v *BufferView) ([]byte, error) {
	buf := r.buffers[v.Buffer]
	// Compared without adding, so huge offsets cannot wrap around.
	if v.ByteOffset > len(buf) || v.ByteLength > len(buf)-v.ByteOffset {
		return nil, fmt.Errorf("%w: bufferViews[%d] offset %d length %d exceeds buffers[%d] length %d",
			ErrBufferOverrun, i, v.ByteOffset, v.ByteLength, v.Buffer, len(buf))
	}
	return buf[v.ByteOffset : v.ByteOffset+v.ByteLength], nil
}

// readFloat reads one component at off as a float, applying normalization
// for unsigned integer components.
func (s *span) readFloat(off int) (float32, error) {
	bits, err := readComponent(s.data, off, s.ct)
	if err != nil {
		return 0, err
	}
	switch s.ct {
	case ComponentFloat:
		return math.Float32frombits(bits), nil
	case ComponentUnsignedByte:
		return float32(bits) / 255, nil
	case ComponentUnsignedShort:
		return float32(bits) / 65535, nil
	default:
		return float32(bits), nil
	}
}

// readComponent reads one little-endian component of type ct at off.
// All accessor reads go through here.
func readComponent(b []byte, off int, ct ComponentType) (uint32, error) {
	n := ct.Size()
	if n == 0 {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedComponentType, ct)
	}
	if off < 0 || off+n > len(b) {
		return 0, fmt.Errorf("%w: %d-byte read at offset %d of %d", ErrBufferOverrun, n, off, len(b))
	}
	switch n {
	case 1:
		return uint32(b[off]), nil
	case 2:
		return uint32(binary.LittleEndian.Uint16(b[off:])), nil
	default:
		return binary.LittleEndian.Uint32(b[off:]), nil
	}
}
