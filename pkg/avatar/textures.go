package avatar

import (
	"fmt"
	"strings"

	"github.com/Faultbox/midgard-avatar/pkg/glb"
	"github.com/Faultbox/midgard-avatar/pkg/texture"
)

// ExtractImages decodes every image in the document into RGBA pixels.
// An image that cannot be read or decoded is left out of the result and
// reported as a Warning instead; it never fails the whole model.
func ExtractImages(r *glb.Reader) ([]Image, []Warning) {
	doc := r.Document()
	var (
		images   []Image
		warnings []Warning
	)
	for i := range doc.Images {
		img, err := extractImage(r, &doc.Images[i])
		if err != nil {
			warnings = append(warnings, Warning{Image: i, Err: err})
			continue
		}
		img.Source = i
		images = append(images, *img)
	}
	return images, warnings
}

func extractImage(r *glb.Reader, src *glb.Image) (*Image, error) {
	data, mimeType, err := imageBytes(r, src)
	if err != nil {
		return nil, err
	}

	pixels, format, err := texture.Decode(data, mimeType)
	if err != nil {
		return nil, err
	}

	b := pixels.Bounds()
	return &Image{
		Name:   src.Name,
		Format: format,
		Width:  b.Dx(),
		Height: b.Dy(),
		Pix:    pixels.Pix,
	}, nil
}

// imageBytes returns the encoded image and its declared mime type. A mime
// type on the image record wins over one in a data URI.
func imageBytes(r *glb.Reader, src *glb.Image) ([]byte, string, error) {
	switch {
	case src.BufferView != nil:
		data, err := r.ReadBufferView(*src.BufferView)
		if err != nil {
			return nil, "", fmt.Errorf("read buffer view %d: %w", *src.BufferView, err)
		}
		return data, src.MimeType, nil
	case strings.HasPrefix(src.URI, "data:"):
		data, mimeType, err := glb.DecodeDataURI(src.URI)
		if err != nil {
			return nil, "", err
		}
		if src.MimeType != "" {
			mimeType = src.MimeType
		}
		return data, mimeType, nil
	case src.URI != "":
		return nil, "", fmt.Errorf("%w: external image %q", texture.ErrUnsupportedImageFormat, src.URI)
	default:
		return nil, "", fmt.Errorf("%w: image has neither bufferView nor uri", glb.ErrSchema)
	}
}
