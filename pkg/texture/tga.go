package texture

import (
	"fmt"
	"image"
)

// TGA image type constants.
const (
	TGATypeUncompressed = 2  // Uncompressed true-color
	TGATypeGray         = 3  // Uncompressed grayscale
	TGATypeRLE          = 10 // RLE compressed true-color
	TGATypeGrayRLE      = 11 // RLE compressed grayscale
)

const tgaHeaderSize = 18

// DecodeTGA decodes a TGA image. TGA has no magic number, so callers only
// reach this when the image's declared mime type says so.
// Supports true-color (24/32 bpp) and grayscale (8 bpp), raw or RLE.
func DecodeTGA(data []byte) (*image.NRGBA, error) {
	if len(data) < tgaHeaderSize {
		return nil, fmt.Errorf("%w: TGA data too short", ErrImageDecode)
	}

	idLength := int(data[0])
	colorMapType := data[1]
	imageType := data[2]
	width := int(data[12]) | int(data[13])<<8
	height := int(data[14]) | int(data[15])<<8
	bpp := int(data[16])
	descriptor := data[17]

	if colorMapType != 0 {
		return nil, fmt.Errorf("%w: color-mapped TGA", ErrUnsupportedImageFormat)
	}
	gray := imageType == TGATypeGray || imageType == TGATypeGrayRLE
	switch {
	case imageType == TGATypeUncompressed || imageType == TGATypeRLE:
		if bpp != 24 && bpp != 32 {
			return nil, fmt.Errorf("%w: TGA true-color depth %d", ErrUnsupportedImageFormat, bpp)
		}
	case gray:
		if bpp != 8 {
			return nil, fmt.Errorf("%w: TGA grayscale depth %d", ErrUnsupportedImageFormat, bpp)
		}
	default:
		return nil, fmt.Errorf("%w: TGA type %d", ErrUnsupportedImageFormat, imageType)
	}
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: TGA has zero size %dx%d", ErrImageDecode, width, height)
	}
	if err := checkDimensions(width, height); err != nil {
		return nil, err
	}

	offset := tgaHeaderSize + idLength
	if offset > len(data) {
		return nil, fmt.Errorf("%w: TGA data truncated", ErrImageDecode)
	}

	// An RLE packet covers at most 128 pixels, so this bounds the allocation by the input size.
	if width*height > (len(data)-offset)*128 {
		return nil, fmt.Errorf("%w: TGA %dx%d does not fit in %d bytes", ErrImageDecode, width, height, len(data)-offset)
	}

	d := &tgaDecoder{
		src:         data[offset:],
		img:         image.NewNRGBA(image.Rect(0, 0, width, height)),
		bpp:         bpp / 8,
		topToBottom: descriptor&0x20 != 0,
	}

	var err error
	if imageType == TGATypeRLE || imageType == TGATypeGrayRLE {
		err = d.decodeRLE()
	} else {
		err = d.decodeRaw()
	}
	if err != nil {
		return nil, err
	}
	return d.img, nil
}

type tgaDecoder struct {
	src         []byte
	pos         int
	img         *image.NRGBA
	bpp         int
	topToBottom bool
}

// pixel reads one BGR(A) or gray pixel from the source.
func (d *tgaDecoder) pixel() ([4]uint8, error) {
	if d.pos+d.bpp > len(d.src) {
		return [4]uint8{}, fmt.Errorf("%w: TGA pixel data truncated", ErrImageDecode)
	}
	p := d.src[d.pos : d.pos+d.bpp]
	d.pos += d.bpp
	switch d.bpp {
	case 1:
		return [4]uint8{p[0], p[0], p[0], 255}, nil
	case 3:
		return [4]uint8{p[2], p[1], p[0], 255}, nil
	default:
		return [4]uint8{p[2], p[1], p[0], p[3]}, nil
	}
}

// put stores pixel n (in file order) honoring the vertical origin bit.
func (d *tgaDecoder) put(n int, c [4]uint8) {
	w := d.img.Rect.Dx()
	x, y := n%w, n/w
	if !d.topToBottom {
		y = d.img.Rect.Dy() - 1 - y
	}
	i := d.img.PixOffset(x, y)
	copy(d.img.Pix[i:i+4], c[:])
}

func (d *tgaDecoder) decodeRaw() error {
	total := d.img.Rect.Dx() * d.img.Rect.Dy()
	for n := 0; n < total; n++ {
		c, err := d.pixel()
		if err != nil {
			return err
		}
		d.put(n, c)
	}
	return nil
}

func (d *tgaDecoder) decodeRLE() error {
	total := d.img.Rect.Dx() * d.img.Rect.Dy()
	n := 0
	for n < total {
		if d.pos >= len(d.src) {
			return fmt.Errorf("%w: TGA RLE data truncated at pixel %d of %d", ErrImageDecode, n, total)
		}
		packet := d.src[d.pos]
		d.pos++
		count := int(packet&0x7F) + 1

		if packet&0x80 != 0 {
			// Run-length packet: one pixel repeated.
			c, err := d.pixel()
			if err != nil {
				return err
			}
			for i := 0; i < count && n < total; i++ {
				d.put(n, c)
				n++
			}
			continue
		}

		for i := 0; i < count && n < total; i++ {
			c, err := d.pixel()
			if err != nil {
				return err
			}
			d.put(n, c)
			n++
		}
	}
	return nil
}
