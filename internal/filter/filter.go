// Package filter implements in-place brightness, inversion and noise
// filters over FormatARGB32 pixel buffers.
//
// Every operation validates the buffer first and then visits each pixel
// exactly once, row by row. A buffer that fails validation is never
// written to.
package filter

import (
	"errors"
	"fmt"
	"image"

	"github.com/gokrazy/fbfilter/internal/fbimage"
)

var (
	// ErrUnsupportedFormat is returned for buffers not in FormatARGB32.
	ErrUnsupportedFormat = errors.New("unsupported pixel format")

	// ErrBufferUnavailable is returned when there is no pixel memory to
	// work on, e.g. because the host could not lock it.
	ErrBufferUnavailable = errors.New("pixel buffer unavailable")

	// ErrInvalidGeometry is returned when width, height and stride do not
	// describe a region that fits into the pixel memory.
	ErrInvalidGeometry = errors.New("invalid buffer geometry")

	// ErrNegativeLevel is returned by Noise for levels below zero.
	ErrNegativeLevel = errors.New("negative noise level")
)

// Buffer describes borrowed pixel memory. The engine never keeps a
// reference to Pix after an operation returns.
type Buffer struct {
	Pix    []byte
	Width  int
	Height int
	Stride int // in bytes, at least 4*Width
	Format fbimage.Format
}

func (b Buffer) validate() error {
	if b.Format != fbimage.FormatARGB32 {
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, b.Format)
	}
	if b.Pix == nil {
		return ErrBufferUnavailable
	}
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidGeometry, b.Width, b.Height)
	}
	if b.Width > len(b.Pix)/4 {
		return fmt.Errorf("%w: width %d does not fit in %d bytes", ErrInvalidGeometry, b.Width, len(b.Pix))
	}
	rowLen := 4 * b.Width
	if b.Stride < rowLen {
		return fmt.Errorf("%w: stride %d < %d", ErrInvalidGeometry, b.Stride, rowLen)
	}
	// (Height-1)*Stride + rowLen <= len(Pix), rearranged so that nothing
	// overflows.
	if b.Height-1 > (len(b.Pix)-rowLen)/b.Stride {
		return fmt.Errorf("%w: %d bytes too short for %d rows of stride %d", ErrInvalidGeometry, len(b.Pix), b.Height, b.Stride)
	}
	return nil
}

func (b Buffer) image() *fbimage.ARGB32 {
	return &fbimage.ARGB32{
		Pix:    b.Pix,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
		Stride: b.Stride,
	}
}

// Engine applies filters. The zero value is not usable; call New.
type Engine struct {
	rand Rand
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand makes the engine draw noise from r instead of the process-wide
// generator. r must be safe for concurrent use if the engine is.
func WithRand(r Rand) Option {
	return func(e *Engine) { e.rand = r }
}

// New returns an Engine that draws noise from the process-wide generator
// unless WithRand is given.
func New(opts ...Option) *Engine {
	e := &Engine{rand: globalRand{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Brightness multiplies the red, green and blue channels of every pixel by
// factor, truncating toward zero and clamping to [0, 255]. Alpha becomes 255.
func (e *Engine) Brightness(buf Buffer, factor float32) error {
	if err := buf.validate(); err != nil {
		return err
	}
	transform(buf.image(), func(w uint32) uint32 {
		return BrightnessPixel(w, factor)
	})
	return nil
}

// Invert replaces every pixel w with (0xFFFFFF - w) | 0xFF000000.
func (e *Engine) Invert(buf Buffer) error {
	if err := buf.validate(); err != nil {
		return err
	}
	transform(buf.image(), InvertPixel)
	return nil
}

// Noise adds an independent random offset in (-level/2, level/2) to the
// red, green and blue channel of every pixel. Alpha becomes 255. A level of
// 0 returns immediately without looking at buf.
func (e *Engine) Noise(buf Buffer, level int) error {
	if level == 0 {
		return nil
	}
	if level < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeLevel, level)
	}
	if err := buf.validate(); err != nil {
		return err
	}
	half := level / 2
	transform(buf.image(), func(w uint32) uint32 {
		c := fbimage.Unpack(w)
		r := Clamp(int(c.R) + e.jitter(half))
		g := Clamp(int(c.G) + e.jitter(half))
		b := Clamp(int(c.B) + e.jitter(half))
		return opaque(r, g, b)
	})
	return nil
}

func (e *Engine) jitter(half int) int {
	if half <= 0 {
		return 0
	}
	return e.rand.IntN(half) - e.rand.IntN(half)
}

// transform visits rows top to bottom and, within a row, pixels left to
// right. Padding after the last pixel of a row is not touched.
func transform(img *fbimage.ARGB32, fn func(uint32) uint32) {
	for y := img.Rect.Min.Y; y < img.Rect.Max.Y; y++ {
		for x := img.Rect.Min.X; x < img.Rect.Max.X; x++ {
			img.SetWordAt(x, y, fn(img.WordAt(x, y)))
		}
	}
}
