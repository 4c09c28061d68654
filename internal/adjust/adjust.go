// Package adjust lets a user preview a combination of brightness, noise and
// inversion on a copy of a bitmap before committing it.
package adjust

import (
	"fmt"

	"github.com/gokrazy/fbfilter/internal/bitmap"
)

// Adjustments is the set of pending changes. Brightness is a plain
// factor: 0 turns every pixel black, so start from None rather than the
// zero value.
type Adjustments struct {
	Brightness float32 `yaml:"brightness"`
	Invert     bool    `yaml:"invert"`
	Noise      int     `yaml:"noise"`
}

// None returns adjustments that leave a bitmap unchanged.
func None() Adjustments {
	return Adjustments{Brightness: 1}
}

// IsZero reports whether a leaves a bitmap unchanged.
func (a Adjustments) IsZero() bool {
	return a == None()
}

// Session holds an original bitmap and a preview with the pending
// adjustments applied. The original is never modified before Commit.
type Session struct {
	filters  *bitmap.Filters
	original *bitmap.Memory
	preview  *bitmap.Memory
	adj      Adjustments
}

func NewSession(filters *bitmap.Filters, original *bitmap.Memory) *Session {
	s := &Session{filters: filters, original: original}
	s.Reset()
	return s
}

// SetBrightness replaces the pending brightness factor.
func (s *Session) SetBrightness(factor float32) error {
	adj := s.adj
	adj.Brightness = factor
	return s.Apply(adj)
}

// SetNoise replaces the pending noise level.
func (s *Session) SetNoise(level int) error {
	adj := s.adj
	adj.Noise = level
	return s.Apply(adj)
}

// ToggleInvert flips whether the preview is inverted.
func (s *Session) ToggleInvert() error {
	adj := s.adj
	adj.Invert = !adj.Invert
	return s.Apply(adj)
}

// Apply replaces all pending adjustments at once and re-renders the
// preview. On error the previous preview and adjustments are kept.
func (s *Session) Apply(adj Adjustments) error {
	preview, err := s.render(adj)
	if err != nil {
		return err
	}
	s.adj = adj
	s.preview = preview
	return nil
}

// ApplyTo applies adj to bmp in place: noise first, then brightness, then
// inversion. Steps that would not change anything are skipped.
func ApplyTo(f *bitmap.Filters, bmp bitmap.Bitmap, adj Adjustments) error {
	if adj.Noise != 0 {
		if err := f.Noise(bmp, adj.Noise); err != nil {
			return fmt.Errorf("noise: %w", err)
		}
	}
	if adj.Brightness != 1 {
		if err := f.SetBrightness(bmp, adj.Brightness); err != nil {
			return fmt.Errorf("brightness: %w", err)
		}
	}
	if adj.Invert {
		if err := f.InvertColors(bmp); err != nil {
			return fmt.Errorf("invert: %w", err)
		}
	}
	return nil
}

func (s *Session) render(adj Adjustments) (*bitmap.Memory, error) {
	if adj.IsZero() {
		return s.original, nil
	}
	tmp := s.original.Clone()
	if err := ApplyTo(s.filters, tmp, adj); err != nil {
		return nil, err
	}
	return tmp, nil
}

// Adjustments returns the pending adjustments.
func (s *Session) Adjustments() Adjustments { return s.adj }

// Preview returns the bitmap with all pending adjustments applied. It is
// the original itself while nothing is pending.
func (s *Session) Preview() *bitmap.Memory { return s.preview }

// Original returns the committed bitmap.
func (s *Session) Original() *bitmap.Memory { return s.original }

// Reset drops all pending adjustments.
func (s *Session) Reset() {
	s.adj = None()
	s.preview = s.original
}

// Commit makes the preview the new original and returns it.
func (s *Session) Commit() *bitmap.Memory {
	s.original = s.preview
	s.Reset()
	return s.original
}
