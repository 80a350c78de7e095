// Package frame defines raw capture frames and their conversion to
// CPU-displayable images. Every consumer of a capture feed shares the
// same converter; a frame that cannot be converted simply yields no
// image and is not an error the feed escalates.
package frame

import "time"

// Format identifies the pixel layout of a raw frame buffer.
type Format string

// Supported raw pixel formats. Packed 32-bit formats are the common
// case for capture hardware and the only layouts the converter handles.
const (
	FormatBGRA Format = "bgra"
	FormatRGBA Format = "rgba"
)

// Raw is one hardware frame as delivered by a capture session: a packed
// pixel buffer plus enough geometry to interpret it. Stride is in bytes
// and may exceed Width*4 for aligned buffers.
type Raw struct {
	Format    Format
	Width     int
	Height    int
	Stride    int
	Data      []byte
	Timestamp time.Time
}
