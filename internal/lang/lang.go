// Package lang identifies the language of extracted page text.
package lang

import (
	"errors"
	"strings"

	"github.com/abadojack/whatlanggo"
)

// ErrUndetermined is returned when the identifier cannot produce a language
// code. Callers are expected to fall back to a default code.
var ErrUndetermined = errors.New("language could not be determined")

// Detector identifies the language of a page's concatenated text.
type Detector struct{}

// NewDetector creates a language detector.
func NewDetector() *Detector {
	return &Detector{}
}

// Detect returns a two-letter ISO 639-1 code for the given text. Blank or
// unrecognizable text yields ErrUndetermined.
func (d *Detector) Detect(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrUndetermined
	}

	info := whatlanggo.Detect(text)
	if info.Lang == -1 {
		return "", ErrUndetermined
	}

	code := info.Lang.Iso6391()
	if code == "" {
		return "", ErrUndetermined
	}

	return code, nil
}
