// Package glb reads binary glTF (GLB) containers, the envelope VRM avatars ship in.
package glb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// GLB framing constants.
const (
	Magic   uint32 = 0x46546C67 // "glTF"
	Version uint32 = 2

	ChunkJSON uint32 = 0x4E4F534A // "JSON"
	ChunkBIN  uint32 = 0x004E4942 // "BIN\0"

	headerSize      = 12
	chunkHeaderSize = 8
)

// Header is the fixed 12-byte GLB file header.
type Header struct {
	Magic   uint32
	Version uint32
	Length  uint32 // Total declared file length in bytes
}

// ChunkInfo describes one chunk as laid out in the file.
type ChunkInfo struct {
	Type   uint32
	Offset int // Payload offset from the start of the file
	Length int
}

// TypeName returns the four-character chunk tag.
func (c ChunkInfo) TypeName() string {
	return chunkTypeName(c.Type)
}

// Container is a validated GLB split into its JSON and binary chunks.
// JSON and BIN alias the input buffer.
type Container struct {
	Header Header
	JSON   []byte
	BIN    []byte
	Chunks []ChunkInfo
}

// IsGLB reports whether data starts with a GLB version 2 header.
func IsGLB(data []byte) bool {
	if len(data) < headerSize {
		return false
	}
	return binary.LittleEndian.Uint32(data[0:]) == Magic &&
		binary.LittleEndian.Uint32(data[4:]) == Version
}

// ReadContainer validates the GLB header and splits data into its chunks.
// No chunk payload is interpreted here beyond UTF-8 validation of the JSON text.
func ReadContainer(data []byte) (*Container, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the %d-byte header", ErrMalformedContainer, len(data), headerSize)
	}

	h := Header{
		Magic:   binary.LittleEndian.Uint32(data[0:]),
		Version: binary.LittleEndian.Uint32(data[4:]),
		Length:  binary.LittleEndian.Uint32(data[8:]),
	}
	if h.Magic != Magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrMalformedContainer, data[0:4])
	}
	if h.Version != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedContainer, h.Version)
	}
	if uint64(h.Length) > uint64(len(data)) {
		return nil, fmt.Errorf("%w: declared length %d exceeds %d available bytes", ErrMalformedContainer, h.Length, len(data))
	}
	if h.Length < headerSize {
		return nil, fmt.Errorf("%w: declared length %d is shorter than the header", ErrMalformedContainer, h.Length)
	}

	c := &Container{Header: h}
	end := int(h.Length)
	offset := headerSize
	var haveJSON, haveBIN bool

	for offset < end {
		if end-offset < chunkHeaderSize {
			return nil, fmt.Errorf("%w: %d bytes left for an %d-byte chunk header at offset %d",
				ErrTruncatedChunk, end-offset, chunkHeaderSize, offset)
		}
		length := binary.LittleEndian.Uint32(data[offset:])
		typ := binary.LittleEndian.Uint32(data[offset+4:])
		payload := offset + chunkHeaderSize
		if uint64(length) > uint64(end-payload) {
			return nil, fmt.Errorf("%w: %s chunk at offset %d declares %d bytes, %d remain",
				ErrTruncatedChunk, chunkTypeName(typ), offset, length, end-payload)
		}

		switch {
		case !haveJSON:
			if typ != ChunkJSON {
				return nil, fmt.Errorf("%w: first chunk is %q, want JSON", ErrUnknownChunkType, chunkTypeName(typ))
			}
			haveJSON = true
			c.JSON = data[payload : payload+int(length)]
		case !haveBIN:
			if typ != ChunkBIN {
				return nil, fmt.Errorf("%w: second chunk is %q, want BIN", ErrUnknownChunkType, chunkTypeName(typ))
			}
			haveBIN = true
			c.BIN = data[payload : payload+int(length)]
		}
		// Chunks after JSON and BIN are recorded but otherwise ignored.
		c.Chunks = append(c.Chunks, ChunkInfo{Type: typ, Offset: payload, Length: int(length)})
		offset = payload + int(length)
	}

	if !haveJSON {
		return nil, fmt.Errorf("%w: no JSON chunk", ErrMalformedContainer)
	}

	text, err := decodeJSONText(c.JSON)
	if err != nil {
		return nil, err
	}
	c.JSON = text

	return c, nil
}

// decodeJSONText validates the JSON chunk as UTF-8 and drops a leading byte order mark.
func decodeJSONText(b []byte) ([]byte, error) {
	if !utf8.Valid(b) {
		return nil, fmt.Errorf("%w: JSON chunk is not valid UTF-8", ErrMalformedContainer)
	}
	if !bytes.HasPrefix(b, []byte("\xef\xbb\xbf")) {
		return b, nil
	}
	out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), b)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding JSON chunk: %v", ErrMalformedContainer, err)
	}
	return out, nil
}

func chunkTypeName(t uint32) string {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], t)
	return string(bytes.TrimRight(b[:], "\x00"))
}
