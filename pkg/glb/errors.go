package glb

import (
	"errors"
	"fmt"
)

// Container framing errors.
var (
	ErrMalformedContainer = errors.New("malformed GLB container")
	ErrUnknownChunkType   = errors.New("unknown GLB chunk type")
	ErrTruncatedChunk     = errors.New("truncated GLB chunk")
)

// Scene document errors.
var (
	ErrSchema          = errors.New("scene document schema error")
	ErrIndexOutOfRange = errors.New("index out of range")
)

// Attribute decode errors.
var (
	ErrUnsupportedComponentType = errors.New("unsupported component type")
	ErrBufferOverrun            = errors.New("buffer overrun")
)

// RangeError reports a reference to a missing element of a document collection.
type RangeError struct {
	Collection string
	Index      int
	Len        int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s[%d]: %v (have %d)", e.Collection, e.Index, ErrIndexOutOfRange, e.Len)
}

// Unwrap lets errors.Is match ErrIndexOutOfRange.
func (e *RangeError) Unwrap() error {
	return ErrIndexOutOfRange
}

func schemaErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrSchema}, args...)...)
}
