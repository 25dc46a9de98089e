package pipeline

import (
	"image"
	"time"

	"github.com/pagemask/pagemask/internal/detect"
)

// Rasterizer loads a source file into ordered page images. Implementations
// must reject unsupported extensions and cap the page count.
type Rasterizer interface {
	Load(path string) ([]image.Image, error)
}

// OCREngine recognizes positioned text lines on a page image. It is a
// long-lived collaborator constructed once at startup and injected here so
// tests can substitute a stub.
type OCREngine interface {
	Lines(img image.Image) ([]detect.Line, error)
}

// LanguageDetector guesses the language of a page's concatenated text. Its
// failure is always recovered; a page never fails because of it.
type LanguageDetector interface {
	Detect(text string) (string, error)
}

// Preprocessor applies a quality filter to a raw page image before OCR.
type Preprocessor interface {
	Enhance(img image.Image) image.Image
}

// PageResult is the aggregate outcome of processing one page. Immutable
// once assembled.
type PageResult struct {
	Page       int
	Language   string
	Detections []detect.Detection
	ImagePath  string
}

// DocumentResult is the aggregate outcome of processing one uploaded file.
type DocumentResult struct {
	File       string
	Hash       string
	Pages      []PageResult
	UploadedAt time.Time
}
