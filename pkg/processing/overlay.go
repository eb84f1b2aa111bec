package processing

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	bannerPadding = 4
	lineHeight    = 16
)

// AnnotateCounts draws a banner with one text line per entry in the top-left
// corner of a copy of img
func (p *Processor) AnnotateCounts(img image.Image, lines []string) image.Image {
	nrgba := imaging.Clone(img)
	if len(lines) == 0 {
		return nrgba
	}

	face := basicfont.Face7x13
	width := 0
	for _, l := range lines {
		if w := font.MeasureString(face, l).Ceil(); w > width {
			width = w
		}
	}

	banner := image.Rect(0, 0, width+2*bannerPadding, len(lines)*lineHeight+bannerPadding).Intersect(nrgba.Bounds())
	draw.Draw(nrgba, banner, image.NewUniform(color.NRGBA{0, 0, 0, 160}), image.Point{}, draw.Over)

	d := &font.Drawer{
		Dst:  nrgba,
		Src:  image.NewUniform(color.NRGBA{255, 255, 0, 255}),
		Face: face,
	}
	for i, l := range lines {
		d.Dot = fixed.P(bannerPadding, (i+1)*lineHeight-bannerPadding)
		d.DrawString(l)
	}

	return nrgba
}
