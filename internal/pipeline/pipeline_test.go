package pipeline

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagemask/pagemask/internal/detect"
	"github.com/pagemask/pagemask/internal/logger"
	"github.com/pagemask/pagemask/internal/redact"
	"github.com/pagemask/pagemask/internal/report"
)

// fakeOCR returns one prepared line set per call, optionally failing on a
// specific page.
type fakeOCR struct {
	pages  [][]detect.Line
	failAt int // 1-based page to fail on, 0 for never
	calls  int
}

func (f *fakeOCR) Lines(img image.Image) ([]detect.Line, error) {
	f.calls++
	if f.failAt > 0 && f.calls == f.failAt {
		return nil, errors.New("engine crashed")
	}
	if f.calls > len(f.pages) {
		return nil, nil
	}
	return f.pages[f.calls-1], nil
}

type fakeLang struct {
	code string
	err  error
}

func (f fakeLang) Detect(text string) (string, error) {
	return f.code, f.err
}

type identityFilter struct{}

func (identityFilter) Enhance(img image.Image) image.Image { return img }

type fakeRaster struct {
	images []image.Image
	err    error
}

func (f fakeRaster) Load(path string) ([]image.Image, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.images, nil
}

func whitePage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}

func lineAt(x1, y1, x2, y2 float64, text string, conf float64) detect.Line {
	return detect.Line{
		Quad:       detect.Quad{{X: x1, Y: y1}, {X: x2, Y: y1}, {X: x2, Y: y2}, {X: x1, Y: y2}},
		Text:       text,
		Confidence: conf,
	}
}

func newProcessor(t *testing.T, ocr OCREngine, lang LanguageDetector, outDir string) *PageProcessor {
	t.Helper()
	p, err := NewPageProcessor(ocr, lang, detect.NewMatcher(logger.NewNop()), redact.NewBlack(), outDir, logger.NewNop())
	require.NoError(t, err)
	return p
}

func decodePNG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	return img
}

func isBlack(img image.Image, x, y int) bool {
	r, g, b, _ := img.At(x, y).RGBA()
	return r == 0 && g == 0 && b == 0
}

func TestProcessSinglePageWithEmail(t *testing.T) {
	outDir := t.TempDir()
	engine := &fakeOCR{pages: [][]detect.Line{{
		lineAt(12, 14, 188, 34, "Contact me: jane.doe@example.com", 0.93),
	}}}

	processor := newProcessor(t, engine, fakeLang{code: "en"}, outDir)
	result, err := processor.Process("scanA", 1, whitePage(200, 60))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Page)
	assert.Equal(t, "en", result.Language)
	require.Len(t, result.Detections, 1)

	det := result.Detections[0]
	assert.Equal(t, detect.KindEmail, det.Kind)
	assert.Equal(t, "jane.doe@example.com", det.Text)
	assert.Equal(t, detect.Box{X1: 12, Y1: 14, X2: 188, Y2: 34}, det.Box)
	assert.Equal(t, 0.93, det.Confidence)
	assert.True(t, det.Masked)

	assert.Equal(t, filepath.Join(outDir, "scanA_001.png"), result.ImagePath)

	out := decodePNG(t, result.ImagePath)
	assert.True(t, isBlack(out, 100, 24), "matched line region must be painted over")
	assert.True(t, isBlack(out, 12, 14))
	assert.False(t, isBlack(out, 5, 5), "region outside matched lines stays untouched")
	assert.False(t, isBlack(out, 195, 50))
}

func TestProcessLanguageFallback(t *testing.T) {
	outDir := t.TempDir()

	t.Run("collaborator failure recovers to en", func(t *testing.T) {
		engine := &fakeOCR{pages: [][]detect.Line{{lineAt(0, 0, 10, 10, "hello", 0.5)}}}
		processor := newProcessor(t, engine, fakeLang{err: errors.New("no reading")}, outDir)

		result, err := processor.Process("doc", 1, whitePage(20, 20))
		require.NoError(t, err, "language failure must never fail the page")
		assert.Equal(t, "en", result.Language)
	})

	t.Run("collaborator code is kept", func(t *testing.T) {
		engine := &fakeOCR{pages: [][]detect.Line{{lineAt(0, 0, 10, 10, "bonjour", 0.5)}}}
		processor := newProcessor(t, engine, fakeLang{code: "fr"}, outDir)

		result, err := processor.Process("doc", 2, whitePage(20, 20))
		require.NoError(t, err)
		assert.Equal(t, "fr", result.Language)
	})
}

func TestIngestTwoPageDocument(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "twopage.png")
	require.NoError(t, os.WriteFile(source, []byte("fake scan bytes"), 0644))

	engine := &fakeOCR{pages: [][]detect.Line{
		{lineAt(0, 0, 120, 20, "Nothing sensitive here", 0.88)},
		{lineAt(5, 40, 160, 60, "Call 9876543210 now", 0.96)},
	}}
	processor := newProcessor(t, engine, fakeLang{code: "en"}, filepath.Join(dir, "out"))

	reportLog, err := report.NewLog(filepath.Join(dir, "report.jsonl"))
	require.NoError(t, err)

	ingestor := NewDocumentIngestor(
		fakeRaster{images: []image.Image{whitePage(200, 80), whitePage(200, 80)}},
		identityFilter{},
		processor,
		reportLog,
		logger.NewNop(),
	)

	doc, err := ingestor.Ingest(source)
	require.NoError(t, err)

	wantHash, err := FileSHA256(source)
	require.NoError(t, err)
	assert.Equal(t, wantHash, doc.Hash)
	assert.Equal(t, source, doc.File)
	assert.False(t, doc.UploadedAt.IsZero())

	require.Len(t, doc.Pages, 2)
	assert.Equal(t, 1, doc.Pages[0].Page)
	assert.Equal(t, 2, doc.Pages[1].Page)

	assert.Empty(t, doc.Pages[0].Detections)
	require.Len(t, doc.Pages[1].Detections, 1)
	assert.Equal(t, detect.KindPhone, doc.Pages[1].Detections[0].Kind)
	assert.Equal(t, "9876543210", doc.Pages[1].Detections[0].Text)

	// One report line per page, flushed as the page completed.
	data, err := os.ReadFile(reportLog.Path())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[1], `"9876543210"`)
}

func TestIngestPageFailureAbortsDocument(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "broken.png")
	require.NoError(t, os.WriteFile(source, []byte("bytes"), 0644))

	engine := &fakeOCR{
		pages:  [][]detect.Line{{lineAt(0, 0, 10, 10, "fine", 0.9)}, nil},
		failAt: 2,
	}
	processor := newProcessor(t, engine, fakeLang{code: "en"}, filepath.Join(dir, "out"))

	reportLog, err := report.NewLog(filepath.Join(dir, "report.jsonl"))
	require.NoError(t, err)

	ingestor := NewDocumentIngestor(
		fakeRaster{images: []image.Image{whitePage(20, 20), whitePage(20, 20)}},
		identityFilter{},
		processor,
		reportLog,
		logger.NewNop(),
	)

	_, err = ingestor.Ingest(source)
	require.Error(t, err)

	// Earlier pages' report lines survive the abort.
	data, err := os.ReadFile(reportLog.Path())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 1)
}

func TestIngestPropagatesRasterError(t *testing.T) {
	dir := t.TempDir()
	processor := newProcessor(t, &fakeOCR{}, fakeLang{code: "en"}, filepath.Join(dir, "out"))
	reportLog, err := report.NewLog(filepath.Join(dir, "report.jsonl"))
	require.NoError(t, err)

	wantErr := errors.New("no pages")
	ingestor := NewDocumentIngestor(fakeRaster{err: wantErr}, identityFilter{}, processor, reportLog, logger.NewNop())

	_, err = ingestor.Ingest(filepath.Join(dir, "missing.png"))
	assert.ErrorIs(t, err, wantErr)
}

func TestFileSHA256(t *testing.T) {
	dir := t.TempDir()

	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "renamed.pdf")
	c := filepath.Join(dir, "c.png")
	require.NoError(t, os.WriteFile(a, []byte("identical content"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("identical content"), 0644))
	require.NoError(t, os.WriteFile(c, []byte("identical_content"), 0644))

	hashA, err := FileSHA256(a)
	require.NoError(t, err)
	hashB, err := FileSHA256(b)
	require.NoError(t, err)
	hashC, err := FileSHA256(c)
	require.NoError(t, err)

	assert.Equal(t, hashA, hashB, "hash depends on bytes, not on file name")
	assert.NotEqual(t, hashA, hashC, "one changed byte changes the hash")
	assert.Len(t, hashA, 64)
}

func TestIngestPageNumbering(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "many.png")
	require.NoError(t, os.WriteFile(source, []byte("bytes"), 0644))

	const n = 5
	images := make([]image.Image, n)
	pages := make([][]detect.Line, n)
	for i := range images {
		images[i] = whitePage(20, 20)
	}

	processor := newProcessor(t, &fakeOCR{pages: pages}, fakeLang{code: "en"}, filepath.Join(dir, "out"))
	reportLog, err := report.NewLog(filepath.Join(dir, "report.jsonl"))
	require.NoError(t, err)

	ingestor := NewDocumentIngestor(fakeRaster{images: images}, identityFilter{}, processor, reportLog, logger.NewNop())

	doc, err := ingestor.Ingest(source)
	require.NoError(t, err)
	require.Len(t, doc.Pages, n)

	for i, page := range doc.Pages {
		assert.Equal(t, i+1, page.Page, "page numbers are 1-based and contiguous")
	}
}
