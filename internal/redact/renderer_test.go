package redact

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/pagemask/pagemask/internal/detect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func whitePage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}

func TestRedactFillsBoxes(t *testing.T) {
	renderer := NewBlack()
	src := whitePage(100, 100)

	out := renderer.Redact(src, []detect.Box{{X1: 10, Y1: 10, X2: 20, Y2: 20}})

	black := color.RGBA{A: 0xff}
	white := color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

	assert.Equal(t, black, out.RGBAAt(10, 10))
	assert.Equal(t, black, out.RGBAAt(19, 19))
	assert.Equal(t, white, out.RGBAAt(20, 20), "box right/bottom edges are exclusive")
	assert.Equal(t, white, out.RGBAAt(5, 5))

	// The source image stays pristine.
	assert.Equal(t, white, src.RGBAAt(15, 15))
}

func TestRedactOverlappingBoxesUnion(t *testing.T) {
	renderer := NewBlack()
	out := renderer.Redact(whitePage(50, 50), []detect.Box{
		{X1: 0, Y1: 0, X2: 20, Y2: 20},
		{X1: 10, Y1: 10, X2: 30, Y2: 30},
	})

	black := color.RGBA{A: 0xff}
	assert.Equal(t, black, out.RGBAAt(5, 5))
	assert.Equal(t, black, out.RGBAAt(15, 15))
	assert.Equal(t, black, out.RGBAAt(25, 25))
}

func TestRedactClipsOutOfBounds(t *testing.T) {
	renderer := NewBlack()

	require.NotPanics(t, func() {
		out := renderer.Redact(whitePage(40, 40), []detect.Box{
			{X1: 30, Y1: 30, X2: 200, Y2: 200},
			{X1: -10, Y1: -10, X2: 5, Y2: 5},
			{X1: 500, Y1: 500, X2: 600, Y2: 600}, // fully outside
		})

		black := color.RGBA{A: 0xff}
		assert.Equal(t, black, out.RGBAAt(35, 35))
		assert.Equal(t, black, out.RGBAAt(0, 0))
	})
}

func TestRedactIdempotent(t *testing.T) {
	renderer := NewBlack()
	boxes := []detect.Box{{X1: 3, Y1: 3, X2: 12, Y2: 12}, {X1: 8, Y1: 8, X2: 25, Y2: 25}}

	once := renderer.Redact(whitePage(30, 30), boxes)
	twice := renderer.Redact(once, boxes)

	assert.Equal(t, once.Pix, twice.Pix, "re-applying the same box set must be pixel-identical")
}

func TestRedactCustomFillForcedOpaque(t *testing.T) {
	renderer := New(color.RGBA{R: 0xff, A: 0x10})
	out := renderer.Redact(whitePage(10, 10), []detect.Box{{X1: 0, Y1: 0, X2: 10, Y2: 10}})
	assert.Equal(t, color.RGBA{R: 0xff, A: 0xff}, out.RGBAAt(4, 4))
}
