// Package texture decodes embedded model images into plain RGBA pixel buffers.
// It never touches a graphics context.
package texture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"github.com/h2non/filetype"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

// Texture decode errors.
var (
	ErrUnsupportedImageFormat = errors.New("unsupported image format")
	ErrImageDecode            = errors.New("image decode error")
)

// Recognized image formats.
const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"
	FormatGIF  = "gif"
	FormatBMP  = "bmp"
	FormatWebP = "webp"
	FormatTGA  = "tga"
)

// MaxPixels is the largest image, in pixels, Decode will allocate for.
const MaxPixels = 8192 * 8192

type codec struct {
	decode func(io.Reader) (image.Image, error)
	config func(io.Reader) (image.Config, error)
}

var codecs = map[string]codec{
	FormatPNG:  {png.Decode, png.DecodeConfig},
	FormatJPEG: {jpeg.Decode, jpeg.DecodeConfig},
	FormatGIF:  {gif.Decode, gif.DecodeConfig},
	FormatBMP:  {bmp.Decode, bmp.DecodeConfig},
	FormatWebP: {webp.Decode, webp.DecodeConfig},
}

// mimeFormats maps declared mime types to formats, used when sniffing fails.
var mimeFormats = map[string]string{
	"image/png":      FormatPNG,
	"image/jpeg":     FormatJPEG,
	"image/jpg":      FormatJPEG,
	"image/gif":      FormatGIF,
	"image/bmp":      FormatBMP,
	"image/x-ms-bmp": FormatBMP,
	"image/webp":     FormatWebP,
	"image/tga":      FormatTGA,
	"image/x-tga":    FormatTGA,
	"image/x-targa":  FormatTGA,
}

// DetectFormat identifies the codec of data from its signature, falling back
// to the declared mime type. It returns "" when neither is recognized.
func DetectFormat(data []byte, mimeType string) string {
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		switch kind.Extension {
		case "png":
			return FormatPNG
		case "jpg":
			return FormatJPEG
		case "gif":
			return FormatGIF
		case "bmp":
			return FormatBMP
		case "webp":
			return FormatWebP
		}
		// A recognized signature we cannot decode (tiff, psd, ...) overrides the mime type.
		return ""
	}
	return mimeFormats[strings.ToLower(strings.TrimSpace(mimeType))]
}

// Decode decodes data into a non-premultiplied RGBA image and reports the
// detected format.
func Decode(data []byte, mimeType string) (*image.NRGBA, string, error) {
	format := DetectFormat(data, mimeType)
	if format == "" {
		return nil, "", fmt.Errorf("%w: mime type %q, %d bytes", ErrUnsupportedImageFormat, mimeType, len(data))
	}

	if format == FormatTGA {
		img, err := DecodeTGA(data)
		return img, format, err
	}

	c := codecs[format]
	cfg, err := c.config(bytes.NewReader(data))
	if err != nil {
		return nil, format, fmt.Errorf("%w: %s header: %v", ErrImageDecode, format, err)
	}
	if err := checkDimensions(cfg.Width, cfg.Height); err != nil {
		return nil, format, err
	}

	img, err := c.decode(bytes.NewReader(data))
	if err != nil {
		return nil, format, fmt.Errorf("%w: %s: %v", ErrImageDecode, format, err)
	}
	return ToNRGBA(img), format, nil
}

// checkDimensions rejects images whose pixel buffer would exceed MaxPixels.
// Decoders allocate from the declared header size before reading any pixel
// data, so this runs first.
func checkDimensions(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: invalid dimensions %dx%d", ErrImageDecode, width, height)
	}
	if width > MaxPixels/height {
		return fmt.Errorf("%w: %dx%d exceeds the %d pixel limit", ErrImageDecode, width, height, MaxPixels)
	}
	return nil
}

// ToNRGBA converts any image to a non-premultiplied RGBA image with its
// origin at (0, 0). Images already in that form are returned as is.
func ToNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	if n, ok := img.(*image.NRGBA); ok && b.Min == (image.Point{}) && n.Stride == b.Dx()*4 {
		return n
	}
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
