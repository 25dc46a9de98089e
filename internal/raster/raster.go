// Package raster turns an uploaded document file into an ordered sequence of
// page images. PDFs are rendered through the poppler pdftoppm tool; plain
// image files decode to a single page.
package raster

import (
	"errors"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pagemask/pagemask/internal/logger"
	"go.uber.org/zap"

	// Image decoders for the supported raster formats.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/tiff"
)

// ErrUnsupportedType is returned for file extensions the loader cannot
// rasterize. It is rejected before any page processing happens.
var ErrUnsupportedType = errors.New("unsupported file type")

var supportedExts = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".tif":  true,
	".tiff": true,
}

// IsSupported reports whether the file's extension is one the loader accepts.
func IsSupported(path string) bool {
	return supportedExts[strings.ToLower(filepath.Ext(path))]
}

// Loader rasterizes source files into page images.
type Loader struct {
	dpi      int
	maxPages int
	logger   *logger.Logger
}

// NewLoader creates a loader rendering PDFs at the given DPI and capping
// documents at maxPages. Pages beyond the cap are silently dropped.
func NewLoader(dpi, maxPages int, log *logger.Logger) *Loader {
	return &Loader{
		dpi:      dpi,
		maxPages: maxPages,
		logger:   log,
	}
}

// Load returns the ordered page images of the file at path.
func (l *Loader) Load(path string) ([]image.Image, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !supportedExts[ext] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}

	if ext == ".pdf" {
		return l.renderPDF(path)
	}

	img, err := l.decodeImage(path)
	if err != nil {
		return nil, err
	}
	return []image.Image{img}, nil
}

// decodeImage decodes a single-page image file.
func (l *Loader) decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", filepath.Base(path), err)
	}

	l.logger.Debug("Image decoded",
		zap.String("format", format),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()),
	)

	return img, nil
}

// renderPDF rasterizes the first maxPages pages of a PDF into PNG images via
// pdftoppm, then decodes them in page order.
func (l *Loader) renderPDF(path string) ([]image.Image, error) {
	dir, err := os.MkdirTemp("", "pagemask-raster-")
	if err != nil {
		return nil, fmt.Errorf("failed to create raster dir: %w", err)
	}
	defer os.RemoveAll(dir)

	prefix := filepath.Join(dir, "page")
	cmd := exec.Command("pdftoppm",
		"-png",
		"-r", strconv.Itoa(l.dpi),
		"-f", "1",
		"-l", strconv.Itoa(l.maxPages),
		path,
		prefix,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w: %s", err, strings.TrimSpace(string(out)))
	}

	entries, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, fmt.Errorf("failed to list rendered pages: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no pages for %s", filepath.Base(path))
	}

	// pdftoppm zero-pads page numbers, so lexical order is page order.
	sort.Strings(entries)

	images := make([]image.Image, 0, len(entries))
	for _, entry := range entries {
		img, err := l.decodeImage(entry)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}

	l.logger.Info("PDF rasterized",
		zap.String("file", filepath.Base(path)),
		zap.Int("pages", len(images)),
		zap.Int("dpi", l.dpi),
	)

	return images, nil
}
