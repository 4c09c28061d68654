package filter

import "github.com/gokrazy/fbfilter/internal/fbimage"

// Clamp limits v to a valid channel value.
func Clamp(v int) uint8 {
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return uint8(v)
}

func opaque(r, g, b uint8) uint32 {
	return 0xFF000000 | uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

// scale returns c*factor truncated toward zero and clamped. NaN maps to 0.
func scale(c uint8, factor float32) uint8 {
	v := float32(c) * factor
	switch {
	case v != v:
		return 0
	case v >= 255:
		return 255
	case v <= 0:
		return 0
	}
	return uint8(v)
}

// BrightnessPixel returns w with each color channel scaled by factor and
// alpha set to 255.
func BrightnessPixel(w uint32, factor float32) uint32 {
	c := fbimage.Unpack(w)
	return opaque(scale(c.R, factor), scale(c.G, factor), scale(c.B, factor))
}

// InvertPixel subtracts w from opaque white as one unsigned 32-bit integer
// and forces alpha to 255. The low 24 bits of the result are 0xFFFFFF minus
// the low 24 bits of w, so applying it twice restores the color channels.
func InvertPixel(w uint32) uint32 {
	return (0x00FFFFFF - w) | 0xFF000000
}
