package detect

import (
	"encoding/json"
	"testing"

	"github.com/pagemask/pagemask/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundingBox(t *testing.T) {
	t.Run("skewed quad collapses to min and max per axis", func(t *testing.T) {
		quad := Quad{
			{X: 10.9, Y: 5.7},
			{X: 50.2, Y: 6.1},
			{X: 49.8, Y: 20.9},
			{X: 10.1, Y: 21.3},
		}
		box := BoundingBox(quad)
		assert.Equal(t, Box{X1: 10, Y1: 5, X2: 50, Y2: 21}, box)
	})

	t.Run("coordinates truncate toward zero", func(t *testing.T) {
		quad := Quad{
			{X: -3.7, Y: -0.9},
			{X: 99.99, Y: -0.1},
			{X: 99.1, Y: 40.8},
			{X: -3.1, Y: 40.2},
		}
		box := BoundingBox(quad)
		// int() semantics, not floor: -3.7 becomes -3, 99.99 becomes 99.
		assert.Equal(t, Box{X1: -3, Y1: 0, X2: 99, Y2: 40}, box)
	})
}

func TestBoxJSON(t *testing.T) {
	data, err := json.Marshal(Box{X1: 1, Y1: 2, X2: 3, Y2: 4})
	require.NoError(t, err)
	assert.JSONEq(t, `[1,2,3,4]`, string(data))

	var box Box
	require.NoError(t, json.Unmarshal([]byte(`[5,6,7,8]`), &box))
	assert.Equal(t, Box{X1: 5, Y1: 6, X2: 7, Y2: 8}, box)
}

func TestAggregate(t *testing.T) {
	matcher := NewMatcher(logger.NewNop())

	quadAt := func(x1, y1, x2, y2 float64) Quad {
		return Quad{{X: x1, Y: y1}, {X: x2, Y: y1}, {X: x2, Y: y2}, {X: x1, Y: y2}}
	}

	t.Run("matches on one line share its box", func(t *testing.T) {
		lines := []Line{
			{Quad: quadAt(10, 10, 400, 30), Text: "mail a@host.io or call 9876543210", Confidence: 0.91},
		}

		detections, boxes := Aggregate(lines, matcher)
		require.Len(t, detections, 2)
		require.Len(t, boxes, 1)

		want := Box{X1: 10, Y1: 10, X2: 400, Y2: 30}
		assert.Equal(t, want, boxes[0])
		assert.Equal(t, want, detections[0].Box)
		assert.Equal(t, want, detections[1].Box)

		for _, det := range detections {
			assert.Equal(t, 0.91, det.Confidence)
			assert.True(t, det.Masked)
		}
	})

	t.Run("lines without matches contribute nothing", func(t *testing.T) {
		lines := []Line{
			{Quad: quadAt(0, 0, 100, 20), Text: "Invoice total: 42.00", Confidence: 0.99},
			{Quad: quadAt(0, 30, 100, 50), Text: "jane@corp.io", Confidence: 0.8},
			{Quad: quadAt(0, 60, 100, 80), Text: "thank you", Confidence: 0.7},
		}

		detections, boxes := Aggregate(lines, matcher)
		require.Len(t, detections, 1)
		require.Len(t, boxes, 1)
		assert.Equal(t, KindEmail, detections[0].Kind)
		assert.Equal(t, Box{X1: 0, Y1: 30, X2: 100, Y2: 50}, detections[0].Box)
	})

	t.Run("no lines yields empty results", func(t *testing.T) {
		detections, boxes := Aggregate(nil, matcher)
		assert.Empty(t, detections)
		assert.Empty(t, boxes)
	})
}
