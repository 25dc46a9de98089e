package detect

// BoundingBox collapses a quadrilateral into an axis-aligned box. Coordinates
// are truncated toward zero, not rounded, matching the integer cast applied
// upstream of the relational schema.
func BoundingBox(q Quad) Box {
	minX, maxX := q[0].X, q[0].X
	minY, maxY := q[0].Y, q[0].Y
	for _, p := range q[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return Box{X1: int(minX), Y1: int(minY), X2: int(maxX), Y2: int(maxY)}
}

// Aggregate runs the matcher over each line independently and ties every
// match to the bounding box of its source line. Redaction is line-granular:
// two hits on the same line share an identical box. Lines without matches
// contribute neither detections nor boxes.
func Aggregate(lines []Line, matcher *Matcher) ([]Detection, []Box) {
	detections := make([]Detection, 0)
	boxes := make([]Box, 0)

	for _, line := range lines {
		hits := matcher.Find(line.Text)
		if len(hits) == 0 {
			continue
		}

		box := BoundingBox(line.Quad)
		boxes = append(boxes, box)

		for _, hit := range hits {
			detections = append(detections, Detection{
				Kind:       hit.Kind,
				Text:       hit.Text,
				Box:        box,
				Confidence: line.Confidence,
				Masked:     true,
			})
		}
	}

	return detections, boxes
}
