package main

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"github.com/gokrazy/gokrazy"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

var bgcolor = color.RGBA{R: 50, G: 50, B: 50, A: 255}

// testcardBars are the colors of the vertical bars in the top part of the
// test card, chosen so that every filter visibly changes each of them.
var testcardBars = []color.NRGBA{
	{R: 0xEE, G: 0xEE, B: 0xEC, A: 0xFF}, // white
	{R: 0xFC, G: 0xE9, B: 0x4F, A: 0xFF}, // yellow
	{R: 0x34, G: 0xE2, B: 0xE2, A: 0xFF}, // cyan
	{R: 0x8A, G: 0xE2, B: 0x34, A: 0xFF}, // green
	{R: 0xEE, G: 0x38, B: 0xDA, A: 0xFF}, // magenta
	{R: 0xEF, G: 0x29, B: 0x29, A: 0xFF}, // red
	{R: 0x72, G: 0x9F, B: 0xCF, A: 0xFF}, // blue
	{R: 0x55, G: 0x57, B: 0x53, A: 0xFF}, // darkgray
}

// renderTestCard draws color bars, a gray ramp and a caption.
func renderTestCard(w, h int) (image.Image, error) {
	g := gg.NewContext(w, h)
	g.SetColor(bgcolor)
	g.Clear()

	barsH := float64(h) * 2 / 3
	barW := float64(w) / float64(len(testcardBars))
	for i, c := range testcardBars {
		g.SetColor(c)
		g.DrawRectangle(float64(i)*barW, 0, math.Ceil(barW), barsH)
		g.Fill()
	}

	rampH := float64(h) / 6
	for x := 0; x < w; x++ {
		v := 255 * x / max(w-1, 1)
		g.SetRGB255(v, v, v)
		g.DrawRectangle(float64(x), barsH, 1, rampH)
		g.Fill()
	}

	size := math.Max(12, float64(h)/24)
	font, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	g.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: size}))
	g.SetRGB(1, 1, 1)
	caption := "fbfilter test card"
	if model := gokrazy.Model(); model != "" {
		caption += " (" + model + ")"
	}
	captionY := barsH + rampH + (float64(h)-barsH-rampH)/2
	g.DrawStringAnchored(caption, float64(w)/2, captionY, 0.5, 0.5)

	monofont, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return nil, err
	}
	g.SetFontFace(truetype.NewFace(monofont, &truetype.Options{Size: size / 2}))
	g.DrawStringAnchored(fmt.Sprintf("%dx%d", w, h), float64(w)-size, float64(h)-size/2, 1, 0)

	return g.Image(), nil
}
