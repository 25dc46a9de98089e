// Package pipeline implements the per-page detection-and-redaction pipeline
// and the document-level ingestion loop around it.
package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pagemask/pagemask/internal/logger"
	"github.com/pagemask/pagemask/internal/report"
)

// hashChunkSize is the buffer used for the streaming content hash.
const hashChunkSize = 8192

// DocumentIngestor orchestrates an entire document: rasterize, hash, process
// pages strictly in order, and append each page outcome to the report log.
// Pages run sequentially; a page failure aborts the whole document.
type DocumentIngestor struct {
	raster    Rasterizer
	pre       Preprocessor
	processor *PageProcessor
	reportLog *report.Log
	logger    *logger.Logger
}

// NewDocumentIngestor wires a document ingestor from its collaborators.
func NewDocumentIngestor(raster Rasterizer, pre Preprocessor, processor *PageProcessor, reportLog *report.Log, log *logger.Logger) *DocumentIngestor {
	return &DocumentIngestor{
		raster:    raster,
		pre:       pre,
		processor: processor,
		reportLog: reportLog,
		logger:    log,
	}
}

// Ingest processes the file at path and returns its ordered page results.
// The report log gains one line per page as soon as that page completes, so
// partial progress survives a crash mid-document even though the relational
// write that follows is all-or-nothing.
func (d *DocumentIngestor) Ingest(path string) (*DocumentResult, error) {
	images, err := d.raster.Load(path)
	if err != nil {
		return nil, err
	}

	hash, err := FileSHA256(path)
	if err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", filepath.Base(path), err)
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	pages := make([]PageResult, 0, len(images))

	for i, img := range images {
		pageNum := i + 1

		result, err := d.processor.Process(stem, pageNum, d.pre.Enhance(img))
		if err != nil {
			return nil, err
		}

		entry := report.Entry{
			File:       path,
			FileHash:   hash,
			Page:       result.Page,
			Language:   result.Language,
			Detections: result.Detections,
			ImagePath:  result.ImagePath,
		}
		if err := d.reportLog.Append(entry); err != nil {
			return nil, fmt.Errorf("failed to record page %d: %w", pageNum, err)
		}

		pages = append(pages, *result)
	}

	d.logger.Info("Document ingested",
		zap.String("file", filepath.Base(path)),
		zap.String("sha256", hash),
		zap.Int("pages", len(pages)),
	)

	return &DocumentResult{
		File:       path,
		Hash:       hash,
		Pages:      pages,
		UploadedAt: time.Now().UTC(),
	}, nil
}

// FileSHA256 computes the hex digest of the file's raw bytes with a
// fixed-size chunked read. The digest is a pure function of the content:
// identical bytes under any name hash identically.
func FileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hasher := sha256.New()
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(hasher, f, buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
