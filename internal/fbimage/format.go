// Package fbimage provides draw.Image implementations over packed pixel
// memory that is owned by someone else, typically a memory-mapped frame
// buffer. Rows may be padded: the byte distance between rows is Stride, not
// width times bytes per pixel.
package fbimage

import "fmt"

// Format identifies the memory layout of one pixel.
type Format int

const (
	FormatUnknown Format = iota

	// FormatARGB32 stores each pixel as one 32-bit word in native byte order,
	// with alpha in bits 24–31, red in 16–23, green in 8–15 and blue in 0–7.
	// On little-endian machines the bytes in memory read B, G, R, A.
	FormatARGB32

	// FormatBGR565 stores each pixel as a little-endian 16-bit word, with red
	// in the top 5 bits and blue in the bottom 5 bits.
	FormatBGR565

	// FormatGray16 stores each pixel as a big-endian 16-bit luminance value.
	FormatGray16
)

func (f Format) String() string {
	switch f {
	case FormatARGB32:
		return "ARGB32"
	case FormatBGR565:
		return "BGR565"
	case FormatGray16:
		return "Gray16"
	case FormatUnknown:
		return "unknown"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// BytesPerPixel returns the size of one pixel, or 0 for FormatUnknown.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatARGB32:
		return 4
	case FormatBGR565, FormatGray16:
		return 2
	}
	return 0
}
