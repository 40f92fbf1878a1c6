// Package render draws annotation boxes over a display image.
package render

import (
	"image"
	"image/color"
	"strconv"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/menta2k/image-labeler/pkg/types"
)

// Options controls how boxes are drawn
type Options struct {
	BoxColor     color.NRGBA
	GestureColor color.NRGBA
	Stroke       int
	ShowLabels   bool
	// LabelNames maps class ids to display text; ids without an entry are
	// drawn as numbers
	LabelNames map[int]string
}

// DefaultOptions returns the editor's pen: 2 px red, numeric labels
func DefaultOptions() Options {
	red := color.NRGBA{255, 0, 0, 255}
	return Options{
		BoxColor:     red,
		GestureColor: red,
		Stroke:       2,
		ShowLabels:   true,
	}
}

// Overlay returns a copy of display with every box outlined and labelled.
// A non-nil gesture is drawn as the in-progress rectangle. Boxes are in
// display coordinates and may extend past the image edges.
func Overlay(display image.Image, boxes []types.Box, gesture *types.Rect, opts Options) *image.NRGBA {
	dst := imaging.Clone(display)
	if opts.Stroke < 1 {
		opts.Stroke = 1
	}

	for _, b := range boxes {
		drawRect(dst, b.Rect, opts.BoxColor, opts.Stroke)
		if opts.ShowLabels {
			r := b.Rect.Canon()
			drawLabel(dst, r.X+2, r.Y-2, labelText(b.Label, opts.LabelNames), opts.BoxColor)
		}
	}

	if gesture != nil {
		drawRect(dst, *gesture, opts.GestureColor, opts.Stroke)
	}

	return dst
}

func labelText(label int, names map[int]string) string {
	if name, ok := names[label]; ok {
		return name
	}
	return strconv.Itoa(label)
}

func drawLabel(img *image.NRGBA, x, y int, text string, c color.NRGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func drawRect(img *image.NRGBA, r types.Rect, c color.NRGBA, stroke int) {
	r = r.Canon()
	if r.Empty() {
		return
	}
	x0, y0, x1, y1 := r.X, r.Y, r.X+r.W, r.Y+r.H
	for s := 0; s < stroke; s++ {
		drawHLine(img, y0+s, x0, x1, c)
		drawHLine(img, y1-1-s, x0, x1, c)
		drawVLine(img, x0+s, y0, y1, c)
		drawVLine(img, x1-1-s, y0, y1, c)
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if y < 0 || y >= h {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if x1 <= 0 || x0 >= w {
		return
	}
	if x0 < 0 {
		x0 = 0
	}
	if x1 > w {
		x1 = w
	}
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if x < 0 || x >= w {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y1 <= 0 || y0 >= h {
		return
	}
	if y0 < 0 {
		y0 = 0
	}
	if y1 > h {
		y1 = h
	}
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}
