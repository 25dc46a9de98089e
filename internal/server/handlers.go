package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pagemask/pagemask/internal/raster"
)

// maxUploadMemory bounds the in-memory part of multipart parsing.
const maxUploadMemory = 32 << 20

// handleUpload accepts a multipart document, stores it, runs the pipeline,
// and persists the outcome. Unsupported input is rejected with a short
// machine-readable reason before any processing; all other failures surface
// as a generic server error.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	logger := s.logger.WithRequestID(getRequestID(r.Context()))

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "missing file")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "empty filename")
		return
	}

	if !raster.IsSupported(header.Filename) {
		writeError(w, http.StatusBadRequest, "unsupported file type")
		return
	}

	storedPath, err := s.storeUpload(file, header.Filename)
	if err != nil {
		logger.Error("Failed to store upload", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "upload failed")
		return
	}

	doc, err := s.ingestor.Ingest(storedPath)
	if err != nil {
		if errors.Is(err, raster.ErrUnsupportedType) {
			writeError(w, http.StatusBadRequest, "unsupported file type")
			return
		}
		logger.Error("Document ingestion failed",
			zap.String("file", header.Filename),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "processing failed")
		return
	}

	if _, err := s.store.SaveDocument(r.Context(), header.Filename, doc); err != nil {
		// The report log lines written during ingestion stay; the
		// relational transaction was rolled back in full.
		logger.Error("Document persistence failed",
			zap.String("file", header.Filename),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "persistence failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "processed",
		"pages":  len(doc.Pages),
	})
}

// handleReport returns every persisted page record, grouped per page.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.ReportEntries(r.Context())
	if err != nil {
		s.logger.Error("Report query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "report unavailable")
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

// storeUpload copies the uploaded bytes into the upload directory under a
// timestamped name so repeated uploads of the same filename never collide.
func (s *Server) storeUpload(file io.Reader, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	storedName := fmt.Sprintf("%s_%s%s", stem, time.Now().UTC().Format("20060102150405"), ext)
	storedPath := filepath.Join(s.config.Server.UploadDir, storedName)

	out, err := os.Create(storedPath)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}

	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		os.Remove(storedPath)
		return "", fmt.Errorf("failed to write upload: %w", err)
	}

	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to flush upload: %w", err)
	}

	return storedPath, nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, reason string) {
	writeJSON(w, status, map[string]string{"error": reason})
}
