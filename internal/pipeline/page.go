package pipeline

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pagemask/pagemask/internal/detect"
	"github.com/pagemask/pagemask/internal/logger"
	"github.com/pagemask/pagemask/internal/redact"
)

// defaultLanguage is used whenever language identification fails. The
// fallback is a design guarantee: language detection never fails a page.
const defaultLanguage = "en"

// PageProcessor runs one page end-to-end: recognize lines, guess the
// language, match PII, redact, and write the output image.
type PageProcessor struct {
	ocr      OCREngine
	lang     LanguageDetector
	matcher  *detect.Matcher
	renderer *redact.Renderer
	outDir   string
	logger   *logger.Logger
}

// NewPageProcessor creates a page processor writing redacted images to outDir.
func NewPageProcessor(ocr OCREngine, lang LanguageDetector, matcher *detect.Matcher, renderer *redact.Renderer, outDir string, log *logger.Logger) (*PageProcessor, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &PageProcessor{
		ocr:      ocr,
		lang:     lang,
		matcher:  matcher,
		renderer: renderer,
		outDir:   outDir,
		logger:   log,
	}, nil
}

// Process handles a single preprocessed page image. pageNum is 1-based. Any
// error here is fatal for the enclosing document; there are no retries.
func (p *PageProcessor) Process(stem string, pageNum int, img image.Image) (*PageResult, error) {
	lines, err := p.ocr.Lines(img)
	if err != nil {
		return nil, fmt.Errorf("recognition failed on page %d: %w", pageNum, err)
	}

	language := p.detectLanguage(lines, pageNum)

	// Matching runs per line, not over the page text, so every hit stays
	// attributable to a single line's geometry.
	detections, boxes := detect.Aggregate(lines, p.matcher)

	redacted := p.renderer.Redact(img, boxes)

	outPath := filepath.Join(p.outDir, fmt.Sprintf("%s_%03d.png", stem, pageNum))
	if err := writePNG(outPath, redacted); err != nil {
		return nil, fmt.Errorf("failed to write redacted page %d: %w", pageNum, err)
	}

	p.logger.Info("Page processed",
		zap.Int("page", pageNum),
		zap.String("language", language),
		zap.Int("lines", len(lines)),
		zap.Int("detections", len(detections)),
	)

	return &PageResult{
		Page:       pageNum,
		Language:   language,
		Detections: detections,
		ImagePath:  outPath,
	}, nil
}

// detectLanguage joins the recognized line texts and asks the language
// collaborator. Failure is recovered with the default code, never surfaced.
func (p *PageProcessor) detectLanguage(lines []detect.Line, pageNum int) string {
	texts := make([]string, len(lines))
	for i, line := range lines {
		texts[i] = line.Text
	}

	language, err := p.lang.Detect(strings.Join(texts, "\n"))
	if err != nil {
		p.logger.Debug("Language detection fell back to default",
			zap.Int("page", pageNum),
			zap.Error(err),
		)
		return defaultLanguage
	}

	return language
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
