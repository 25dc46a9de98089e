//go:build ocr

// Package ocr extracts positioned text lines from page images.
//
// This implementation wraps the Tesseract OCR engine via gosseract and
// requires Tesseract to be installed on the system. On macOS:
//
//	brew install tesseract
//
// On Ubuntu/Debian:
//
//	apt-get install tesseract-ocr libtesseract-dev
package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/otiai10/gosseract/v2"
	"github.com/pagemask/pagemask/internal/detect"
)

// Client wraps Tesseract for line-level recognition. It is a long-lived
// handle: construct once at startup and reuse across pages.
type Client struct {
	client *gosseract.Client
}

// New creates a new OCR client recognizing the given language (e.g. "eng").
// The client should be closed when no longer needed to release resources.
func New(language string) (*Client, error) {
	client := gosseract.NewClient()
	if language != "" {
		if err := client.SetLanguage(language); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set OCR language: %w", err)
		}
	}
	return &Client{client: client}, nil
}

// Close releases OCR resources.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Lines recognizes the text lines on an image and returns them in reading
// order with their locations and confidences.
func (c *Client) Lines(img image.Image) ([]detect.Line, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode page image: %w", err)
	}

	if err := c.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := c.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	lines := make([]detect.Line, 0, len(boxes))
	for _, box := range boxes {
		if box.Word == "" {
			continue
		}

		// Tesseract reports confidence on a 0-100 scale.
		conf := box.Confidence / 100
		if conf < 0 {
			conf = 0
		} else if conf > 1 {
			conf = 1
		}

		lines = append(lines, detect.Line{
			Quad:       rectQuad(box.Box),
			Text:       box.Word,
			Confidence: conf,
		})
	}

	return lines, nil
}

// rectQuad expands an axis-aligned rectangle into the four-corner form the
// detection pipeline consumes, clockwise from the top-left.
func rectQuad(r image.Rectangle) detect.Quad {
	return detect.Quad{
		{X: float64(r.Min.X), Y: float64(r.Min.Y)},
		{X: float64(r.Max.X), Y: float64(r.Min.Y)},
		{X: float64(r.Max.X), Y: float64(r.Max.Y)},
		{X: float64(r.Min.X), Y: float64(r.Max.Y)},
	}
}
