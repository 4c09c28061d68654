// Package bitmap connects the pixel filters to host-owned bitmaps: it asks
// the host for the bitmap geometry, locks the pixel memory for the duration
// of one filter pass and unlocks it again.
package bitmap

import (
	"errors"
	"fmt"

	"github.com/gokrazy/fbfilter/internal/fbimage"
	"github.com/gokrazy/fbfilter/internal/filter"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Info describes the layout of a bitmap.
type Info struct {
	Width  int
	Height int
	Stride int
	Format fbimage.Format
}

// A Bitmap is pixel memory owned by a host. LockPixels hands out the memory
// until the matching UnlockPixels call.
type Bitmap interface {
	Info() (Info, error)
	LockPixels() ([]byte, error)
	UnlockPixels() error
}

// Filters applies filter operations to host bitmaps. Failures are logged
// and returned; a bitmap that fails a precondition is never written to.
type Filters struct {
	log    *zap.Logger
	engine *filter.Engine
}

func NewFilters(log *zap.Logger, engine *filter.Engine) *Filters {
	return &Filters{
		log:    log.Named("adjustments"),
		engine: engine,
	}
}

// SetBrightness scales the color channels of bmp by factor.
func (f *Filters) SetBrightness(bmp Bitmap, factor float32) error {
	return f.run(bmp, filter.Brightness{Factor: factor})
}

// InvertColors inverts the colors of bmp.
func (f *Filters) InvertColors(bmp Bitmap) error {
	return f.run(bmp, filter.Invert{})
}

// Noise adds random noise of the given level to bmp. Level 0 returns
// without touching bmp.
func (f *Filters) Noise(bmp Bitmap, level int) error {
	if level == 0 {
		return nil
	}
	return f.run(bmp, filter.Noise{Level: level})
}

func (f *Filters) run(bmp Bitmap, req filter.Request) (err error) {
	log := f.log.With(zap.Stringer("op", req))

	info, err := bmp.Info()
	if err != nil {
		log.Error("getting bitmap info failed", zap.Error(err))
		return fmt.Errorf("%w: info: %v", filter.ErrBufferUnavailable, err)
	}
	if info.Format != fbimage.FormatARGB32 {
		log.Error("bitmap format is not ARGB32", zap.Stringer("format", info.Format))
		return fmt.Errorf("%w: %v", filter.ErrUnsupportedFormat, info.Format)
	}

	pix, err := bmp.LockPixels()
	if err != nil {
		log.Error("locking pixels failed", zap.Error(err))
		return fmt.Errorf("%w: lock: %v", filter.ErrBufferUnavailable, err)
	}
	defer func() {
		if uerr := bmp.UnlockPixels(); uerr != nil {
			log.Error("unlocking pixels failed", zap.Error(uerr))
			err = multierr.Append(err, fmt.Errorf("unlock: %w", uerr))
		}
	}()

	buf := filter.Buffer{
		Pix:    pix,
		Width:  info.Width,
		Height: info.Height,
		Stride: info.Stride,
		Format: info.Format,
	}
	if err := f.engine.Apply(buf, req); err != nil {
		if !errors.Is(err, filter.ErrNegativeLevel) {
			log.Error("filter rejected bitmap", zap.Error(err))
		}
		return err
	}
	log.Debug("applied",
		zap.Int("width", info.Width),
		zap.Int("height", info.Height),
		zap.Int("stride", info.Stride))
	return nil
}
