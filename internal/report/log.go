// Package report maintains the append-only JSON-lines record of page
// outcomes. The log is a best-effort durability side-channel: entries are
// flushed as soon as each page completes and are never rewritten, even when
// the relational transaction for the same document later fails.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pagemask/pagemask/internal/detect"
)

// Entry is one self-contained page record.
type Entry struct {
	File       string             `json:"file"`
	FileHash   string             `json:"file_hash"`
	Page       int                `json:"page"`
	Language   string             `json:"language"`
	Detections []detect.Detection `json:"detections"`
	ImagePath  string             `json:"image_path"`
}

// Log appends page records to a line-delimited JSON file.
type Log struct {
	path string
	mu   sync.Mutex
}

// NewLog creates the log file's directory if needed and returns the log.
func NewLog(path string) (*Log, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	return &Log{path: path}, nil
}

// Path returns the log file path.
func (l *Log) Path() string {
	return l.path
}

// Append writes one entry as a single JSON line. The file is opened in
// append mode on every call so a crash mid-document loses at most the
// page being written.
func (l *Log) Append(entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode report entry: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open report log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append report entry: %w", err)
	}

	return nil
}
