// Package glbtest builds GLB byte fixtures for tests.
package glbtest

import (
	"encoding/binary"
	"math"
)

const (
	magic     = 0x46546C67
	chunkJSON = 0x4E4F534A
	chunkBIN  = 0x004E4942
)

// Build frames json and bin as a version 2 GLB container. Chunks are padded
// to 4 bytes, JSON with spaces and BIN with zeros. A nil bin omits the BIN chunk.
func Build(json string, bin []byte) []byte {
	j := pad([]byte(json), ' ')
	size := 12 + 8 + len(j)
	var b []byte
	if bin != nil {
		b = pad(bin, 0)
		size += 8 + len(b)
	}

	out := make([]byte, 0, size)
	out = binary.LittleEndian.AppendUint32(out, magic)
	out = binary.LittleEndian.AppendUint32(out, 2)
	out = binary.LittleEndian.AppendUint32(out, uint32(size))
	out = appendChunk(out, chunkJSON, j)
	if bin != nil {
		out = appendChunk(out, chunkBIN, b)
	}
	return out
}

// Chunk returns a raw chunk with an arbitrary type tag, for malformed fixtures.
func Chunk(typ uint32, payload []byte) []byte {
	return appendChunk(nil, typ, payload)
}

// Header returns a 12-byte GLB header.
func Header(magic, version, length uint32) []byte {
	out := binary.LittleEndian.AppendUint32(nil, magic)
	out = binary.LittleEndian.AppendUint32(out, version)
	return binary.LittleEndian.AppendUint32(out, length)
}

// Float32s encodes values as little-endian float32.
func Float32s(values ...float32) []byte {
	out := make([]byte, 0, len(values)*4)
	for _, v := range values {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
	}
	return out
}

// Uint16s encodes values as little-endian uint16.
func Uint16s(values ...uint16) []byte {
	out := make([]byte, 0, len(values)*2)
	for _, v := range values {
		out = binary.LittleEndian.AppendUint16(out, v)
	}
	return out
}

// Uint32s encodes values as little-endian uint32.
func Uint32s(values ...uint32) []byte {
	out := make([]byte, 0, len(values)*4)
	for _, v := range values {
		out = binary.LittleEndian.AppendUint32(out, v)
	}
	return out
}

func appendChunk(out []byte, typ uint32, payload []byte) []byte {
	out = binary.LittleEndian.AppendUint32(out, uint32(len(payload)))
	out = binary.LittleEndian.AppendUint32(out, typ)
	return append(out, payload...)
}

func pad(b []byte, fill byte) []byte {
	out := append([]byte(nil), b...)
	for len(out)%4 != 0 {
		out = append(out, fill)
	}
	return out
}
