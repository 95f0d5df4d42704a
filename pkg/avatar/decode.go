package avatar

import (
	"errors"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-avatar/pkg/glb"
)

// Option configures Decode.
type Option func(*options)

type options struct {
	targetExtent float32
	logger       *zap.Logger
}

// WithTargetExtent sets the size of the largest axis after normalization.
// Non-positive values are ignored.
func WithTargetExtent(extent float32) Option {
	return func(o *options) {
		if extent > 0 {
			o.targetExtent = extent
		}
	}
}

// WithLogger routes decode warnings and summaries to l.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Decode parses a complete GLB/VRM file and returns its normalized geometry,
// decoded images and materials. Every structural failure aborts the decode
// with a *DecodeError; image failures only add to Model.Warnings.
//
// Decode keeps no state between calls and is safe for concurrent use.
func Decode(data []byte, opts ...Option) (*Model, error) {
	o := options{
		targetExtent: DefaultTargetExtent,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	container, err := glb.ReadContainer(data)
	if err != nil {
		return nil, locate(err)
	}
	doc, err := glb.ParseDocument(container.JSON)
	if err != nil {
		return nil, locate(err)
	}
	reader, err := glb.NewReader(doc, container.BIN)
	if err != nil {
		return nil, locate(err)
	}

	assembled, err := Assemble(reader)
	if err != nil {
		return nil, locate(err)
	}

	images, warnings := ExtractImages(reader)

	meta, err := glb.ParseVRMMeta(doc)
	if err != nil {
		warnings = append(warnings, Warning{Image: -1, Err: err})
	}

	model := Normalize(assembled, o.targetExtent)
	model.Images = images
	model.Materials = Materials(doc)
	model.Meta = meta
	model.Warnings = warnings

	for _, w := range warnings {
		o.logger.Warn("decode warning", zap.Int("image", w.Image), zap.Error(w.Err))
	}
	o.logger.Debug("model decoded",
		zap.Int("vertices", model.VertexCount()),
		zap.Int("triangles", model.TriangleCount()),
		zap.Int("images", len(model.Images)),
		zap.Int("materials", len(model.Materials)),
		zap.Float32("scale", model.Scale))

	return model, nil
}

// locate makes sure err is a *DecodeError.
func locate(err error) error {
	var de *DecodeError
	if errors.As(err, &de) {
		return err
	}
	return &DecodeError{Mesh: -1, Primitive: -1, Accessor: -1, Err: err}
}
