package detect

import (
	"encoding/json"
	"fmt"
	"image"
	"regexp"
)

// Kind identifies the category of PII a rule detects.
type Kind string

// Built-in PII kinds.
const (
	KindEmail Kind = "EMAIL"
	KindPhone Kind = "PHONE"
)

// Rule represents a single PII detection rule
type Rule struct {
	Kind    Kind
	Pattern *regexp.Regexp
}

// Match is one PII hit inside a piece of text. Start and End are byte
// offsets into the scanned string, half-open.
type Match struct {
	Kind  Kind
	Text  string
	Start int
	End   int
}

// Point is a 2D image coordinate.
type Point struct {
	X float64
	Y float64
}

// Quad is the four-corner location of a recognized text run. Corners are
// not required to be axis-aligned.
type Quad [4]Point

// Line is one OCR-recognized text run with its location and confidence.
type Line struct {
	Quad       Quad
	Text       string
	Confidence float64
}

// Box is an axis-aligned bounding box in integer pixel coordinates,
// with X1 <= X2 and Y1 <= Y2. It serializes to JSON as [x1,y1,x2,y2].
type Box struct {
	X1 int
	Y1 int
	X2 int
	Y2 int
}

// Rect converts the box to an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// MarshalJSON encodes the box as a four-element array.
func (b Box) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]int{b.X1, b.Y1, b.X2, b.Y2})
}

// UnmarshalJSON decodes a four-element array into the box.
func (b *Box) UnmarshalJSON(data []byte) error {
	var coords [4]int
	if err := json.Unmarshal(data, &coords); err != nil {
		return fmt.Errorf("invalid bbox: %w", err)
	}
	b.X1, b.Y1, b.X2, b.Y2 = coords[0], coords[1], coords[2], coords[3]
	return nil
}

// Detection is one PII match tied to its on-page location. Immutable once
// created; the box is the bounding box of the whole source line.
type Detection struct {
	Kind       Kind    `json:"type"`
	Text       string  `json:"text_sample"`
	Box        Box     `json:"bbox_xyxy"`
	Confidence float64 `json:"confidence"`
	Masked     bool    `json:"mask_applied"`
}
