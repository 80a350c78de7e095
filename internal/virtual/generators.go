package virtual

import (
	"image"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
)

// toNRGBA renders a gg context into the frame format the switcher
// consumes.
func toNRGBA(dc *gg.Context) *image.NRGBA {
	src := dc.Image()
	b := src.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.Set(x, y, src.At(x, y))
		}
	}
	return out
}

type barsGenerator struct{}

// Bars returns the color bar test pattern source.
func Bars() Generator { return barsGenerator{} }

func (barsGenerator) ID() string   { return "bars" }
func (barsGenerator) Name() string { return "Color Bars" }

// Render draws the classic 75% vertical bars with a black lower strip.
func (barsGenerator) Render(width, height int) *image.NRGBA {
	colors := [][3]float64{
		{0.75, 0.75, 0.75}, // white
		{0.75, 0.75, 0},    // yellow
		{0, 0.75, 0.75},    // cyan
		{0, 0.75, 0},       // green
		{0.75, 0, 0.75},    // magenta
		{0.75, 0, 0},       // red
		{0, 0, 0.75},       // blue
	}
	dc := gg.NewContext(width, height)
	barW := float64(width) / float64(len(colors))
	barH := float64(height) * 0.75
	for i, c := range colors {
		dc.SetRGB(c[0], c[1], c[2])
		dc.DrawRectangle(float64(i)*barW, 0, barW+1, barH)
		dc.Fill()
	}
	dc.SetRGB(0.05, 0.05, 0.05)
	dc.DrawRectangle(0, barH, float64(width), float64(height)-barH)
	dc.Fill()
	return toNRGBA(dc)
}

type solidGenerator struct {
	id      string
	name    string
	r, g, b uint8
}

// Solid returns a single-color source.
func Solid(id, name string, r, g, b uint8) Generator {
	return solidGenerator{id: id, name: name, r: r, g: g, b: b}
}

func (s solidGenerator) ID() string   { return s.id }
func (s solidGenerator) Name() string { return s.name }

func (s solidGenerator) Render(width, height int) *image.NRGBA {
	dc := gg.NewContext(width, height)
	dc.SetRGB255(int(s.r), int(s.g), int(s.b))
	dc.Clear()
	return toNRGBA(dc)
}

type titleGenerator struct {
	id   string
	name string
	text string
}

// Title returns a title card source with centered text on a dark
// background.
func Title(id, name, text string) Generator {
	return titleGenerator{id: id, name: name, text: text}
}

func (t titleGenerator) ID() string   { return t.id }
func (t titleGenerator) Name() string { return t.name }

func (t titleGenerator) Render(width, height int) *image.NRGBA {
	dc := gg.NewContext(width, height)
	dc.SetRGB(0.08, 0.08, 0.12)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)
	dc.SetRGB(0.95, 0.95, 0.95)
	dc.DrawStringAnchored(t.text, float64(width)/2, float64(height)/2, 0.5, 0.5)
	return toNRGBA(dc)
}
