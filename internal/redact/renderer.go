// Package redact paints opaque masks over detected PII regions.
package redact

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/pagemask/pagemask/internal/detect"
)

// Renderer fills detection boxes with a fixed opaque color.
type Renderer struct {
	fill color.RGBA
}

// New creates a renderer using the given fill color. Alpha is forced opaque.
func New(fill color.RGBA) *Renderer {
	fill.A = 0xff
	return &Renderer{fill: fill}
}

// NewBlack creates a renderer with the default solid-black fill.
func NewBlack() *Renderer {
	return New(color.RGBA{})
}

// Redact returns a copy of img with every box painted over. The source image
// is never mutated. Boxes are filled independently; overlapping boxes produce
// the union of their regions, and out-of-bounds coordinates are clipped to
// the image extent. Applying the same box set again is a no-op on the pixels.
func (r *Renderer) Redact(img image.Image, boxes []detect.Box) *image.RGBA {
	bounds := img.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, img, bounds.Min, draw.Src)

	fill := image.NewUniform(r.fill)
	for _, box := range boxes {
		rect := box.Rect().Intersect(bounds)
		if rect.Empty() {
			continue
		}
		draw.Draw(out, rect, fill, image.Point{}, draw.Src)
	}

	return out
}
