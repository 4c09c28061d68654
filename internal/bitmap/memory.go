package bitmap

import (
	"errors"
	"image"
	"image/draw"
	"sync"

	"github.com/gokrazy/fbfilter/internal/fbimage"
)

var (
	errLocked    = errors.New("bitmap already locked")
	errNotLocked = errors.New("bitmap not locked")
)

// Memory is a Bitmap backed by a Go byte slice in FormatARGB32.
type Memory struct {
	img *fbimage.ARGB32

	mu     sync.Mutex
	locked bool
}

// NewMemory returns a transparent black w×h bitmap without row padding.
func NewMemory(w, h int) *Memory {
	return NewMemoryStride(w, h, 4*w)
}

// NewMemoryStride returns a transparent black w×h bitmap whose rows are
// stride bytes apart. stride must be at least 4*w.
func NewMemoryStride(w, h, stride int) *Memory {
	return &Memory{
		img: &fbimage.ARGB32{
			Pix:    make([]byte, stride*h),
			Rect:   image.Rect(0, 0, w, h),
			Stride: stride,
		},
	}
}

// FromImage returns a bitmap holding a copy of src, moved to the origin.
func FromImage(src image.Image) *Memory {
	b := src.Bounds()
	m := NewMemory(b.Dx(), b.Dy())
	draw.Draw(m.img, m.img.Rect, src, b.Min, draw.Src)
	return m
}

func (m *Memory) Info() (Info, error) {
	return Info{
		Width:  m.img.Rect.Dx(),
		Height: m.img.Rect.Dy(),
		Stride: m.img.Stride,
		Format: fbimage.FormatARGB32,
	}, nil
}

func (m *Memory) LockPixels() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locked {
		return nil, errLocked
	}
	m.locked = true
	return m.img.Pix, nil
}

func (m *Memory) UnlockPixels() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.locked {
		return errNotLocked
	}
	m.locked = false
	return nil
}

// Clone returns an unlocked copy of m with the same stride.
func (m *Memory) Clone() *Memory {
	c := *m.img
	c.Pix = append([]byte(nil), m.img.Pix...)
	return &Memory{img: &c}
}

// Image returns a view of the bitmap's pixels. Writes through the view
// change the bitmap.
func (m *Memory) Image() *fbimage.ARGB32 {
	return m.img
}
