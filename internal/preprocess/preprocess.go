// Package preprocess applies a quality filter to raw page images before OCR.
// The filter is purely cosmetic: grayscale conversion plus a light blur to
// knock down scanner noise. It has no effect on what counts as PII.
package preprocess

import (
	"image"

	"github.com/disintegration/imaging"
)

// blurSigma approximates a 3x3 Gaussian kernel.
const blurSigma = 0.75

// Filter enhances scanned page images for recognition.
type Filter struct{}

// NewFilter creates the default grayscale-and-blur filter.
func NewFilter() *Filter {
	return &Filter{}
}

// Enhance returns a denoised copy of img. The input is never mutated.
func (f *Filter) Enhance(img image.Image) image.Image {
	gray := imaging.Grayscale(img)
	return imaging.Blur(gray, blurSigma)
}
