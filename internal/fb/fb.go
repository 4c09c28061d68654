// Copyright 2018 Axel Wagner
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package fb implements Linux frame buffer interaction via ioctls and mmap.
// A Device is a bitmap.Bitmap, so the filters can work on the visible
// screen contents in place.
//
// This package is originally based on Axel Wagner’s
// https://pkg.go.dev/github.com/Merovius/srvfb/internal/fb package.
package fb

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"sync"
	"unsafe"

	"github.com/gokrazy/fbfilter/internal/bitmap"
	"github.com/gokrazy/fbfilter/internal/fbimage"
	"golang.org/x/sys/unix"
)

type Device struct {
	fd    uintptr
	mmap  []byte
	finfo FixScreeninfo

	mu     sync.Mutex
	locked bool
}

func Open(dev string) (*Device, error) {
	fd, err := unix.Open(dev, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %v", dev, err)
	}
	if int(uintptr(fd)) != fd {
		unix.Close(fd)
		return nil, errors.New("fd overflows")
	}
	d := &Device{fd: uintptr(fd)}

	_, _, eno := unix.Syscall(unix.SYS_IOCTL, d.fd, FBIOGET_FSCREENINFO, uintptr(unsafe.Pointer(&d.finfo)))
	if eno != 0 {
		unix.Close(fd)
		return nil, fmt.Errorf("FBIOGET_FSCREENINFO: %v", eno)
	}

	d.mmap, err = unix.Mmap(fd, 0, int(d.finfo.Smem_len), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("mmap: %v", err)
	}
	return d, nil
}

func (d *Device) VarScreeninfo() (VarScreeninfo, error) {
	var vinfo VarScreeninfo
	_, _, eno := unix.Syscall(unix.SYS_IOCTL, d.fd, FBIOGET_VSCREENINFO, uintptr(unsafe.Pointer(&vinfo)))
	if eno != 0 {
		return vinfo, fmt.Errorf("FBIOGET_VSCREENINFO: %v", eno)
	}
	return vinfo, nil
}

// formatOf maps the kernel's pixel description to a fbimage.Format.
func formatOf(vinfo VarScreeninfo) fbimage.Format {
	switch vinfo.Bits_per_pixel {
	case 32:
		// The Linux efifb driver typically defaults to 32 bpp, x8r8g8b8.
		if vinfo.Red.Offset == 16 && vinfo.Green.Offset == 8 && vinfo.Blue.Offset == 0 &&
			vinfo.Red.Length == 8 && vinfo.Green.Length == 8 && vinfo.Blue.Length == 8 {
			return fbimage.FormatARGB32
		}
	case 16:
		// The Raspberry Pi vc4drmfb does not offer 32 bpp, and cannot be
		// reconfigured at runtime.
		if vinfo.Grayscale == 1 {
			return fbimage.FormatGray16
		}
		if vinfo.Red.Offset == 11 && vinfo.Green.Offset == 5 && vinfo.Blue.Offset == 0 {
			return fbimage.FormatBGR565
		}
	}
	return fbimage.FormatUnknown
}

// layout describes where the visible screen lives inside the mapping.
type layout struct {
	format  fbimage.Format
	stride  int
	visible image.Rectangle // in virtual screen coordinates
}

func layoutOf(vinfo VarScreeninfo, finfo FixScreeninfo, mmapLen int) (layout, error) {
	l := layout{
		format: formatOf(vinfo),
		stride: int(finfo.Line_length),
	}
	bpp := int(vinfo.Bits_per_pixel) / 8
	virtual := image.Rect(0, 0, int(vinfo.Xres_virtual), int(vinfo.Yres_virtual))
	if l.stride < virtual.Dx()*bpp {
		return l, fmt.Errorf("line length %d too short for %d pixels of %d bytes", l.stride, virtual.Dx(), bpp)
	}
	if virtual.Dy()*l.stride > mmapLen {
		return l, errors.New("virtual resolution doesn't match framebuffer size")
	}
	l.visible = image.Rect(0, 0, int(vinfo.Xres), int(vinfo.Yres)).
		Add(image.Pt(int(vinfo.Xoffset), int(vinfo.Yoffset)))
	if !l.visible.In(virtual) {
		return l, errors.New("visual resolution not contained in virtual resolution")
	}
	return l, nil
}

func (d *Device) layout() (layout, error) {
	vinfo, err := d.VarScreeninfo()
	if err != nil {
		return layout{}, err
	}
	return layoutOf(vinfo, d.finfo, len(d.mmap))
}

// visiblePix returns the mapping starting at the top left visible pixel.
func (l layout) visiblePix(mmap []byte) []byte {
	bpp := l.format.BytesPerPixel()
	return mmap[l.visible.Min.Y*l.stride+l.visible.Min.X*bpp:]
}

// Info implements bitmap.Bitmap for the visible part of the screen.
func (d *Device) Info() (bitmap.Info, error) {
	l, err := d.layout()
	if err != nil {
		return bitmap.Info{}, err
	}
	return bitmap.Info{
		Width:  l.visible.Dx(),
		Height: l.visible.Dy(),
		Stride: l.stride,
		Format: l.format,
	}, nil
}

// LockPixels implements bitmap.Bitmap. The lock only guards against
// concurrent filter passes within this process; the kernel keeps scanning
// the memory out.
func (d *Device) LockPixels() ([]byte, error) {
	l, err := d.layout()
	if err != nil {
		return nil, err
	}
	if l.format == fbimage.FormatUnknown {
		return nil, errors.New("unknown pixel layout")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.locked {
		return nil, errors.New("frame buffer already locked")
	}
	d.locked = true
	return l.visiblePix(d.mmap), nil
}

// UnlockPixels implements bitmap.Bitmap.
func (d *Device) UnlockPixels() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.locked {
		return errors.New("frame buffer not locked")
	}
	d.locked = false
	return nil
}

// Image returns a draw.Image over the visible screen, with bounds starting
// at the origin.
func (d *Device) Image() (draw.Image, error) {
	l, err := d.layout()
	if err != nil {
		return nil, err
	}
	return l.image(d.mmap)
}

func (l layout) image(mmap []byte) (draw.Image, error) {
	rect := image.Rect(0, 0, l.visible.Dx(), l.visible.Dy())
	switch l.format {
	case fbimage.FormatARGB32:
		return &fbimage.ARGB32{Pix: l.visiblePix(mmap), Stride: l.stride, Rect: rect}, nil
	case fbimage.FormatBGR565:
		return &fbimage.BGR565{Pix: l.visiblePix(mmap), Stride: l.stride, Rect: rect}, nil
	case fbimage.FormatGray16:
		return &image.Gray16{Pix: l.visiblePix(mmap), Stride: l.stride, Rect: rect}, nil
	}
	return nil, errors.New("unsupported frame buffer pixel layout")
}

func (d *Device) Close() error {
	e1 := unix.Munmap(d.mmap)
	if e2 := unix.Close(int(d.fd)); e2 != nil {
		return e2
	}
	return e1
}
