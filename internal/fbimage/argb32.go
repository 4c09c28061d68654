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

package fbimage

import (
	"encoding/binary"
	"image"
	"image/color"
)

// Pack returns the ARGB32 word for c.
func Pack(c color.NRGBA) uint32 {
	return uint32(c.A)<<24 | uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// Unpack splits an ARGB32 word into its channels.
func Unpack(w uint32) color.NRGBA {
	return color.NRGBA{
		R: uint8(w >> 16),
		G: uint8(w >> 8),
		B: uint8(w),
		A: uint8(w >> 24),
	}
}

// ARGB32 is an image whose pixels are FormatARGB32 words.
type ARGB32 struct {
	Pix    []byte
	Rect   image.Rectangle
	Stride int
}

// NewARGB32 allocates an unpadded ARGB32 image.
func NewARGB32(r image.Rectangle) *ARGB32 {
	return &ARGB32{
		Pix:    make([]byte, 4*r.Dx()*r.Dy()),
		Rect:   r,
		Stride: 4 * r.Dx(),
	}
}

func (i *ARGB32) Bounds() image.Rectangle { return i.Rect }
func (i *ARGB32) ColorModel() color.Model { return color.NRGBAModel }

func (i *ARGB32) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(i.Rect)) {
		return color.NRGBA{}
	}
	return Unpack(i.WordAt(x, y))
}

func (i *ARGB32) Set(x, y int, c color.Color) {
	i.SetNRGBA(x, y, color.NRGBAModel.Convert(c).(color.NRGBA))
}

func (i *ARGB32) SetNRGBA(x, y int, c color.NRGBA) {
	if !(image.Point{x, y}.In(i.Rect)) {
		return
	}
	i.SetWordAt(x, y, Pack(c))
}

// WordAt returns the raw word at (x, y), which must be inside Rect.
func (i *ARGB32) WordAt(x, y int) uint32 {
	n := i.PixOffset(x, y)
	return binary.NativeEndian.Uint32(i.Pix[n : n+4 : n+4])
}

// SetWordAt stores w at (x, y), which must be inside Rect.
func (i *ARGB32) SetWordAt(x, y int, w uint32) {
	n := i.PixOffset(x, y)
	binary.NativeEndian.PutUint32(i.Pix[n:n+4:n+4], w)
}

// Row returns the pixel bytes of row y without any trailing padding.
func (i *ARGB32) Row(y int) []byte {
	start := (y - i.Rect.Min.Y) * i.Stride
	end := start + 4*i.Rect.Dx()
	return i.Pix[start:end:end]
}

func (i *ARGB32) PixOffset(x, y int) int {
	return (y-i.Rect.Min.Y)*i.Stride + (x-i.Rect.Min.X)*4
}
