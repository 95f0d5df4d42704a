package texture

import (
	"errors"
	"image/color"
	"testing"
)

func tgaHeader(imageType, bpp byte, width, height int, descriptor byte) []byte {
	h := make([]byte, tgaHeaderSize)
	h[2] = imageType
	h[12] = byte(width)
	h[13] = byte(width >> 8)
	h[14] = byte(height)
	h[15] = byte(height >> 8)
	h[16] = bpp
	h[17] = descriptor
	return h
}

func TestDecodeTGAUncompressed(t *testing.T) {
	// 2x2, 32-bit BGRA, bottom-to-top
	data := tgaHeader(TGATypeUncompressed, 32, 2, 2, 0)
	data = append(data,
		0, 0, 255, 255, 0, 255, 0, 255, // bottom row: red, green
		255, 0, 0, 255, 255, 255, 255, 128, // top row: blue, translucent white
	)

	img, err := DecodeTGA(data)
	if err != nil {
		t.Fatalf("DecodeTGA failed: %v", err)
	}

	tests := []struct {
		x, y int
		want color.NRGBA
	}{
		{0, 1, color.NRGBA{255, 0, 0, 255}},
		{1, 1, color.NRGBA{0, 255, 0, 255}},
		{0, 0, color.NRGBA{0, 0, 255, 255}},
		{1, 0, color.NRGBA{255, 255, 255, 128}},
	}
	for _, tt := range tests {
		if got := img.NRGBAAt(tt.x, tt.y); got != tt.want {
			t.Errorf("pixel (%d,%d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestDecodeTGATopToBottom(t *testing.T) {
	data := tgaHeader(TGATypeUncompressed, 24, 1, 2, 0x20)
	data = append(data, 0, 0, 255, 255, 0, 0)

	img, err := DecodeTGA(data)
	if err != nil {
		t.Fatalf("DecodeTGA failed: %v", err)
	}
	if got := img.NRGBAAt(0, 0); got != (color.NRGBA{255, 0, 0, 255}) {
		t.Errorf("top pixel = %v, want red", got)
	}
	if got := img.NRGBAAt(0, 1); got != (color.NRGBA{0, 0, 255, 255}) {
		t.Errorf("bottom pixel = %v, want blue", got)
	}
}

func TestDecodeTGARLE(t *testing.T) {
	// 4x1 gray: run of 3 x 0x40, then 1 raw 0xFF
	data := tgaHeader(TGATypeGrayRLE, 8, 4, 1, 0x20)
	data = append(data, 0x82, 0x40, 0x00, 0xFF)

	img, err := DecodeTGA(data)
	if err != nil {
		t.Fatalf("DecodeTGA failed: %v", err)
	}
	want := []uint8{0x40, 0x40, 0x40, 0xFF}
	for x, v := range want {
		if got := img.NRGBAAt(x, 0); got != (color.NRGBA{v, v, v, 255}) {
			t.Errorf("pixel %d = %v, want gray %d", x, got, v)
		}
	}
}

func TestDecodeTGAErrors(t *testing.T) {
	colorMapped := tgaHeader(TGATypeUncompressed, 24, 1, 1, 0)
	colorMapped[1] = 1

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"too short", []byte{0, 0, 2}, ErrImageDecode},
		{"color mapped", colorMapped, ErrUnsupportedImageFormat},
		{"16 bpp", tgaHeader(TGATypeUncompressed, 16, 1, 1, 0), ErrUnsupportedImageFormat},
		{"unknown type", tgaHeader(1, 8, 1, 1, 0), ErrUnsupportedImageFormat},
		{"zero size", tgaHeader(TGATypeUncompressed, 24, 0, 1, 0), ErrImageDecode},
		{"truncated pixels", append(tgaHeader(TGATypeUncompressed, 24, 2, 1, 0), 1, 2, 3, 4), ErrImageDecode},
		{"truncated RLE", append(tgaHeader(TGATypeRLE, 24, 4, 1, 0), 0x81), ErrImageDecode},
		{"huge dimensions", append(tgaHeader(TGATypeRLE, 32, 65535, 65535, 0), 0xFF), ErrImageDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeTGA(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}
