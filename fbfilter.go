// Program fbfilter applies brightness, noise and color inversion filters to
// an image, a generated test card, or the live contents of the Linux frame
// buffer, and shows or saves the result.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"os/signal"
	"runtime/pprof"

	"github.com/gokrazy/fbfilter/internal/adjust"
	"github.com/gokrazy/fbfilter/internal/bitmap"
	"github.com/gokrazy/fbfilter/internal/config"
	"github.com/gokrazy/fbfilter/internal/console"
	"github.com/gokrazy/fbfilter/internal/fb"
	"github.com/gokrazy/fbfilter/internal/fbimage"
	"github.com/gokrazy/fbfilter/internal/filter"
	"github.com/gokrazy/fbfilter/internal/logging"
	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"

	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
)

type options struct {
	device   string
	in       string
	out      string
	testcard bool
	hold     bool
	adj      adjust.Adjustments
}

// adjustFlags are the command line flags that set adjustments. Flags given
// explicitly take precedence over a preset.
type adjustFlags struct {
	brightness float64
	noise      int
	invert     bool
}

func (af *adjustFlags) register(fs *flag.FlagSet) {
	fs.Float64Var(&af.brightness, "brightness", 1, "brightness factor; 0 is black, below 1 darkens, above 1 brightens")
	fs.IntVar(&af.noise, "noise", 0, "noise level, 0 to disable")
	fs.BoolVar(&af.invert, "invert", false, "invert colors")
}

// override returns adj with every adjustment flag that was set on fs
// applied to it.
func (af *adjustFlags) override(fs *flag.FlagSet, adj adjust.Adjustments) adjust.Adjustments {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "brightness":
			adj.Brightness = float32(af.brightness)
		case "noise":
			adj.Noise = af.noise
		case "invert":
			adj.Invert = af.invert
		}
	})
	return adj
}

const (
	testcardWidth  = 1024
	testcardHeight = 768
)

func scaleImage(bounds image.Rectangle, maxW, maxH int) image.Rectangle {
	imgW := bounds.Dx()
	imgH := bounds.Dy()
	if imgW == 0 || imgH == 0 {
		return image.Rectangle{}
	}
	ratio := float64(maxW) / float64(imgW)
	if r := float64(maxH) / float64(imgH); r < ratio {
		ratio = r
	}
	scaledW := int(ratio * float64(imgW))
	scaledH := int(ratio * float64(imgH))
	return image.Rect(0, 0, scaledW, scaledH)
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %v", path, err)
	}
	return img, nil
}

func encodeFile(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return err
	}
	return f.Close()
}

// show draws img centered and scaled to fit onto dst, on a dark
// background.
func show(dst draw.Image, img *fbimage.ARGB32) {
	bounds := dst.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	// Compose into an ARGB32 buffer first: for 16 bpp frame buffers the
	// specialized copy is much faster than letting draw convert per pixel.
	var buffer draw.Image = dst
	fast, is565 := dst.(*fbimage.BGR565)
	if is565 {
		buffer = fbimage.NewARGB32(bounds)
	}

	draw.Draw(buffer, bounds, &image.Uniform{bgcolor}, image.Point{}, draw.Src)

	r := scaleImage(img.Bounds(), w, h)
	r = r.Add(bounds.Min).Add(image.Pt((w-r.Dx())/2, (h-r.Dy())/2))
	xdraw.BiLinear.Scale(buffer, r, img, img.Bounds(), draw.Src, nil)

	if is565 {
		fast.CopyARGB32(buffer.(*fbimage.ARGB32))
	}
}

// inPlace filters the visible frame buffer contents directly.
func inPlace(log *zap.Logger, filters *bitmap.Filters, opts options) error {
	dev, err := fb.Open(opts.device)
	if err != nil {
		return err
	}
	defer dev.Close()
	if info, err := dev.VarScreeninfo(); err == nil {
		log.Debug("framebuffer screeninfo", zap.Any("info", info))
	}
	return adjust.ApplyTo(filters, dev, opts.adj)
}

func run(ctx context.Context, log *zap.Logger, opts options) error {
	filters := bitmap.NewFilters(log, filter.New())

	if opts.in == "" && !opts.testcard {
		if opts.out != "" {
			return errors.New("-out requires -in or -testcard")
		}
		return inPlace(log, filters, opts)
	}

	var src *bitmap.Memory
	if opts.in != "" {
		img, err := decodeFile(opts.in)
		if err != nil {
			return err
		}
		src = bitmap.FromImage(img)
	} else {
		img, err := renderTestCard(testcardWidth, testcardHeight)
		if err != nil {
			return err
		}
		src = bitmap.FromImage(img)
	}

	session := adjust.NewSession(filters, src)
	if err := session.Apply(opts.adj); err != nil {
		return err
	}
	result := session.Commit().Image()
	log.Info("adjusted",
		zap.Stringer("bounds", result.Bounds()),
		zap.Float32("brightness", opts.adj.Brightness),
		zap.Int("noise", opts.adj.Noise),
		zap.Bool("invert", opts.adj.Invert))

	if opts.out != "" {
		return encodeFile(opts.out, result)
	}
	return display(ctx, log, opts, result)
}

func display(ctx context.Context, log *zap.Logger, opts options, img *fbimage.ARGB32) error {
	var cons *console.Handle
	if opts.hold {
		var err error
		cons, err = console.LeaseForGraphics(log)
		if err != nil {
			return err
		}
		defer func() {
			if err := cons.Cleanup(); err != nil {
				log.Error("console cleanup", zap.Error(err))
			}
		}()
	}

	dev, err := fb.Open(opts.device)
	if err != nil {
		return err
	}
	defer dev.Close()

	dst, err := dev.Image()
	if err != nil {
		return err
	}
	show(dst, img)
	if cons == nil {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			// return to trigger the deferred cleanup function
			return nil
		case _, ok := <-cons.Redraw():
			if !ok {
				return nil
			}
			show(dst, img)
		}
	}
}

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var (
		device     = flag.String("device", cfg.Device, "frame buffer device")
		in         = flag.String("in", "", "PNG, JPEG or BMP file to adjust instead of the frame buffer contents")
		out        = flag.String("out", "", "write the adjusted image to this PNG file instead of the frame buffer")
		testcard   = flag.Bool("testcard", false, "adjust a generated test card")
		hold       = flag.Bool("hold", false, "keep the result on screen in graphics mode until interrupted")
		preset     = flag.String("preset", cfg.Preset, "YAML file with brightness, noise and invert settings")
		logFile    = flag.String("log_file", cfg.LogFile, "also log to this file, rotated by size")
		dev        = flag.Bool("dev", cfg.Development, "human-readable debug logging")
		cpuprofile = flag.String("cpuprofile", "", "cpu profile")
	)
	var adjFlags adjustFlags
	adjFlags.register(flag.CommandLine)
	flag.Parse()

	log := logging.New(logging.Options{Development: *dev, File: *logFile})
	defer log.Sync()

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal("creating cpu profile", zap.Error(err))
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	opts := options{
		device:   *device,
		in:       *in,
		out:      *out,
		testcard: *testcard,
		hold:     *hold,
		adj:      adjust.None(),
	}
	if *preset != "" {
		adj, err := config.LoadPreset(*preset)
		if err != nil {
			log.Fatal("loading preset", zap.String("path", *preset), zap.Error(err))
		}
		opts.adj = adj
	}
	opts.adj = adjFlags.override(flag.CommandLine, opts.adj)

	// Cancel the context instead of exiting the program:
	ctx, canc := signal.NotifyContext(context.Background(), os.Interrupt)
	defer canc()

	if err := run(ctx, log, opts); err != nil {
		log.Error("fbfilter failed", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
}
