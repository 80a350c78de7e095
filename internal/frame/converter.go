package frame

import (
	"errors"
	"fmt"
	"image"
)

// Conversion errors. Callers treat a failed conversion as "frame not
// yet visually available", not as a fatal feed error.
var (
	ErrUnsupportedFormat = errors.New("unsupported pixel format")
	ErrShortBuffer       = errors.New("frame buffer shorter than geometry requires")
)

// Convert turns a raw packed 32-bit frame into an NRGBA image with the
// same dimensions and channel order. The input buffer is copied; the
// returned image never aliases capture memory.
func Convert(raw *Raw) (*image.NRGBA, error) {
	if raw == nil {
		return nil, ErrShortBuffer
	}
	if raw.Width <= 0 || raw.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrShortBuffer, raw.Width, raw.Height)
	}

	stride := raw.Stride
	if stride == 0 {
		stride = raw.Width * 4
	}
	if stride < raw.Width*4 {
		return nil, fmt.Errorf("%w: stride %d for width %d", ErrShortBuffer, stride, raw.Width)
	}
	if len(raw.Data) < stride*(raw.Height-1)+raw.Width*4 {
		return nil, fmt.Errorf("%w: have %d bytes", ErrShortBuffer, len(raw.Data))
	}

	switch raw.Format {
	case FormatRGBA:
		return convertPacked(raw, stride, 0, 1, 2)
	case FormatBGRA:
		return convertPacked(raw, stride, 2, 1, 0)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, raw.Format)
	}
}

// convertPacked copies a packed 32-bit buffer into an NRGBA image,
// mapping the source channel at offset r/g/b to R/G/B.
func convertPacked(raw *Raw, stride, r, g, b int) (*image.NRGBA, error) {
	img := image.NewNRGBA(image.Rect(0, 0, raw.Width, raw.Height))

	for y := 0; y < raw.Height; y++ {
		srcRow := raw.Data[y*stride:]
		dstRow := img.Pix[y*img.Stride:]
		for x := 0; x < raw.Width; x++ {
			s := srcRow[x*4 : x*4+4]
			d := dstRow[x*4 : x*4+4]
			d[0] = s[r]
			d[1] = s[g]
			d[2] = s[b]
			d[3] = s[3]
		}
	}

	return img, nil
}
