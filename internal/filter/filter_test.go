package filter

import (
	"bytes"
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/gokrazy/fbfilter/internal/fbimage"
)

// newBuffer returns a w×h buffer with pad bytes of 0xAA after every row,
// filled with the given words (repeated if shorter than w*h).
func newBuffer(w, h, pad int, words ...uint32) Buffer {
	stride := 4*w + pad
	buf := Buffer{
		Pix:    bytes.Repeat([]byte{0xAA}, stride*h),
		Width:  w,
		Height: h,
		Stride: stride,
		Format: fbimage.FormatARGB32,
	}
	img := buf.image()
	n := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if len(words) > 0 {
				img.SetWordAt(x, y, words[n%len(words)])
			}
			n++
		}
	}
	return buf
}

func words(buf Buffer) []uint32 {
	img := buf.image()
	var ws []uint32
	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			ws = append(ws, img.WordAt(x, y))
		}
	}
	return ws
}

func checkPadding(t *testing.T, buf Buffer) {
	t.Helper()
	for y := 0; y < buf.Height; y++ {
		pad := buf.Pix[y*buf.Stride+4*buf.Width : (y+1)*buf.Stride]
		for i, b := range pad {
			if b != 0xAA {
				t.Fatalf("row %d: padding byte %d modified: got %#x", y, i, b)
			}
		}
	}
}

func seeded() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func TestBrightnessHalfRed(t *testing.T) {
	buf := newBuffer(2, 2, 0, 0xFFFF0000)
	if err := New().Brightness(buf, 0.5); err != nil {
		t.Fatal(err)
	}
	for i, w := range words(buf) {
		if want := uint32(0xFF7F0000); w != want {
			t.Errorf("pixel %d: got %#08x, want %#08x", i, w, want)
		}
	}
}

func TestBrightnessPixel(t *testing.T) {
	for _, tt := range []struct {
		in     uint32
		factor float32
		want   uint32
	}{
		{0x00112233, 1, 0xFF112233},
		{0x80FFFFFF, 1, 0xFFFFFFFF},
		{0xFF102030, 2, 0xFF204060},
		{0xFF808080, 2, 0xFFFFFFFF},
		{0xFFFFFFFF, 0, 0xFF000000},
		{0xFFFFFFFF, -1, 0xFF000000},
		{0xFF030303, 0.5, 0xFF010101},
		{0xFF646464, 1000, 0xFFFFFFFF},
		{0xFF646464, float32(math.Inf(1)), 0xFFFFFFFF},
		{0xFF000000, float32(math.Inf(1)), 0xFF000000},
		{0xFF646464, float32(math.NaN()), 0xFF000000},
	} {
		if got := BrightnessPixel(tt.in, tt.factor); got != tt.want {
			t.Errorf("BrightnessPixel(%#08x, %v) = %#08x, want %#08x", tt.in, tt.factor, got, tt.want)
		}
	}
}

func TestBrightnessIdentity(t *testing.T) {
	r := seeded()
	for i := 0; i < 10000; i++ {
		w := r.Uint32()
		got := BrightnessPixel(w, 1)
		if want := w | 0xFF000000; got != want {
			t.Fatalf("BrightnessPixel(%#08x, 1) = %#08x, want %#08x", w, got, want)
		}
	}
}

func TestInvertPixel(t *testing.T) {
	for _, tt := range []struct {
		in, want uint32
	}{
		{0xFF000000, 0xFFFFFFFF},
		{0xFFFFFFFF, 0xFF000000},
		{0x00000100, 0xFFFFFEFF},
		{0x00010000, 0xFFFEFFFF},
		{0x80123456, 0xFFEDCBA9},
	} {
		if got := InvertPixel(tt.in); got != tt.want {
			t.Errorf("InvertPixel(%#08x) = %#08x, want %#08x", tt.in, got, tt.want)
		}
	}
}

func TestInvertSelfInverse(t *testing.T) {
	samples := []uint32{0x000000, 0xFFFFFF, 0x000100, 0x010000, 0xFF000000, 0x7F808080}
	r := seeded()
	for i := 0; i < 10000; i++ {
		samples = append(samples, r.Uint32())
	}
	for _, w := range samples {
		once := InvertPixel(w)
		if once>>24 != 0xFF {
			t.Fatalf("InvertPixel(%#08x) = %#08x: alpha not forced", w, once)
		}
		twice := InvertPixel(once)
		if want := w | 0xFF000000; twice != want {
			t.Fatalf("InvertPixel(InvertPixel(%#08x)) = %#08x, want %#08x", w, twice, want)
		}
	}
}

func TestInvertBuffer(t *testing.T) {
	buf := newBuffer(3, 2, 8, 0xFF000000, 0x00FFFFFF, 0x80123456)
	if err := New().Invert(buf); err != nil {
		t.Fatal(err)
	}
	want := []uint32{0xFFFFFFFF, 0xFF000000, 0xFFEDCBA9}
	for i, w := range words(buf) {
		if w != want[i%3] {
			t.Errorf("pixel %d: got %#08x, want %#08x", i, w, want[i%3])
		}
	}
	checkPadding(t, buf)
}

func TestNoiseZeroLevel(t *testing.T) {
	buf := newBuffer(4, 3, 4, 0x12345678, 0x00000000, 0xFFFFFFFF)
	before := bytes.Clone(buf.Pix)
	if err := New().Noise(buf, 0); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, buf.Pix) {
		t.Fatal("Noise(0) modified the buffer")
	}

	// The fast path does not validate.
	if err := New().Noise(Buffer{}, 0); err != nil {
		t.Fatalf("Noise(empty, 0) = %v, want nil", err)
	}
}

func TestNoiseInRange(t *testing.T) {
	e := New(WithRand(seeded()))
	for _, level := range []int{1, 2, 3, 50, 255, 1000} {
		buf := newBuffer(16, 16, 12, 0x00000000, 0x00FFFFFF, 0x40808080)
		before := words(buf)
		if err := e.Noise(buf, level); err != nil {
			t.Fatalf("Noise(%d): %v", level, err)
		}
		half := level / 2
		for i, w := range words(buf) {
			if w>>24 != 0xFF {
				t.Fatalf("level %d pixel %d: alpha not forced: %#08x", level, i, w)
			}
			got, orig := fbimage.Unpack(w), fbimage.Unpack(before[i])
			for _, ch := range [][2]uint8{{got.R, orig.R}, {got.G, orig.G}, {got.B, orig.B}} {
				// Clamping can only shorten the move.
				d := int(ch[0]) - int(ch[1])
				if d < 0 {
					d = -d
				}
				if half == 0 && d != 0 || half > 0 && d >= half {
					t.Fatalf("level %d pixel %d: channel moved by %d", level, i, d)
				}
			}
		}
		checkPadding(t, buf)
	}
}

func TestNoiseDeterministic(t *testing.T) {
	a := newBuffer(8, 8, 0, 0xFF808080)
	b := newBuffer(8, 8, 0, 0xFF808080)
	if err := New(WithRand(seeded())).Noise(a, 100); err != nil {
		t.Fatal(err)
	}
	if err := New(WithRand(seeded())).Noise(b, 100); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Fatal("same seed produced different noise")
	}
	changed := false
	for _, w := range words(a) {
		if w != 0xFF808080 {
			changed = true
		}
	}
	if !changed {
		t.Fatal("Noise(100) changed no pixel")
	}
}

// countingRand returns fixed values and records the bounds it was asked for.
type countingRand struct {
	vals   []int
	bounds []int
}

func (c *countingRand) IntN(n int) int {
	c.bounds = append(c.bounds, n)
	v := c.vals[0]
	c.vals = c.vals[1:]
	return v
}

func TestNoiseDraws(t *testing.T) {
	// Two independent draws per channel, in R, G, B order.
	r := &countingRand{vals: []int{4, 1, 0, 4, 2, 2}}
	buf := newBuffer(1, 1, 0, 0x00101010)
	if err := New(WithRand(r)).Noise(buf, 11); err != nil {
		t.Fatal(err)
	}
	if got, want := words(buf)[0], uint32(0xFF130C10); got != want {
		t.Errorf("got %#08x, want %#08x", got, want)
	}
	for _, n := range r.bounds {
		if n != 5 {
			t.Errorf("IntN(%d), want IntN(5)", n)
		}
	}
	if len(r.bounds) != 6 {
		t.Errorf("%d draws, want 6", len(r.bounds))
	}
}

func TestNoiseNegativeLevel(t *testing.T) {
	buf := newBuffer(2, 2, 0, 0xFF808080)
	before := bytes.Clone(buf.Pix)
	if err := New().Noise(buf, -4); !errors.Is(err, ErrNegativeLevel) {
		t.Fatalf("Noise(-4) = %v, want ErrNegativeLevel", err)
	}
	if !bytes.Equal(before, buf.Pix) {
		t.Fatal("buffer modified")
	}
}

func TestValidation(t *testing.T) {
	good := func() Buffer { return newBuffer(3, 3, 4, 0x80102030) }
	for _, tt := range []struct {
		name   string
		modify func(*Buffer)
		want   error
	}{
		{"format", func(b *Buffer) { b.Format = fbimage.FormatBGR565 }, ErrUnsupportedFormat},
		{"unknown format", func(b *Buffer) { b.Format = fbimage.FormatUnknown }, ErrUnsupportedFormat},
		{"nil pixels", func(b *Buffer) { b.Pix = nil }, ErrBufferUnavailable},
		{"zero width", func(b *Buffer) { b.Width = 0 }, ErrInvalidGeometry},
		{"negative height", func(b *Buffer) { b.Height = -1 }, ErrInvalidGeometry},
		{"short stride", func(b *Buffer) { b.Stride = 8 }, ErrInvalidGeometry},
		{"short buffer", func(b *Buffer) { b.Pix = b.Pix[:len(b.Pix)-5] }, ErrInvalidGeometry},
		{"huge height", func(b *Buffer) { b.Width, b.Height, b.Stride = 1, math.MaxInt/4+1, 4 }, ErrInvalidGeometry},
		{"huge stride", func(b *Buffer) { b.Height, b.Stride = 2, math.MaxInt }, ErrInvalidGeometry},
		{"huge width", func(b *Buffer) { b.Width, b.Stride = math.MaxInt/4+1, math.MaxInt }, ErrInvalidGeometry},
	} {
		for _, req := range []Request{Brightness{Factor: 2}, Invert{}, Noise{Level: 40}} {
			t.Run(tt.name+"/"+req.String(), func(t *testing.T) {
				buf := good()
				tt.modify(&buf)
				before := bytes.Clone(buf.Pix)
				err := New().Apply(buf, req)
				if !errors.Is(err, tt.want) {
					t.Fatalf("Apply = %v, want %v", err, tt.want)
				}
				if !bytes.Equal(before, buf.Pix) {
					t.Fatal("buffer modified despite validation failure")
				}
			})
		}
	}
}

func TestLastRowWithoutPadding(t *testing.T) {
	// The final row does not need trailing padding.
	buf := newBuffer(2, 2, 4, 0xFF000000)
	buf.Pix = buf.Pix[:len(buf.Pix)-4]
	if err := New().Invert(buf); err != nil {
		t.Fatal(err)
	}
	for i, w := range words(buf) {
		if w != 0xFFFFFFFF {
			t.Errorf("pixel %d: got %#08x", i, w)
		}
	}
}

func TestClamp(t *testing.T) {
	for _, tt := range []struct {
		in   int
		want uint8
	}{
		{-1000, 0}, {-1, 0}, {0, 0}, {128, 128}, {255, 255}, {256, 255}, {1 << 20, 255},
	} {
		if got := Clamp(tt.in); got != tt.want {
			t.Errorf("Clamp(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
