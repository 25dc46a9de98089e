//go:build !ocr

// Package ocr extracts positioned text lines from page images.
//
// This is the stub implementation used when the "ocr" build tag is not set.
// Recognition calls return ErrNotEnabled. To enable OCR, rebuild with the
// "ocr" build tag:
//
//	go build -tags ocr
//
// This requires Tesseract to be installed.
package ocr

import (
	"image"

	"github.com/pagemask/pagemask/internal/detect"
)

// Client is a stub OCR client that returns ErrNotEnabled for recognition.
type Client struct{}

// New creates a stub OCR client.
func New(language string) (*Client, error) {
	return &Client{}, nil
}

// Close releases OCR resources.
func (c *Client) Close() error {
	return nil
}

// Lines returns ErrNotEnabled.
func (c *Client) Lines(img image.Image) ([]detect.Line, error) {
	return nil, ErrNotEnabled
}
