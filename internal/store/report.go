package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/pagemask/pagemask/internal/detect"
	"github.com/pagemask/pagemask/internal/report"
)

// reportRow is one row of the three-table join. Detection columns are
// nullable because pages without detections still appear once.
type reportRow struct {
	Filename   string          `db:"filename"`
	StoredPath string          `db:"stored_path"`
	SHA256     string          `db:"sha256"`
	PageNum    int             `db:"page_num"`
	Language   string          `db:"language"`
	ImagePath  string          `db:"image_path"`
	PIIType    sql.NullString  `db:"pii_type"`
	TextSample sql.NullString  `db:"text_sample"`
	Confidence sql.NullFloat64 `db:"confidence"`
	BBoxJSON   sql.NullString  `db:"bbox_json"`
}

// ReportEntries returns the persisted report, newest document first, pages
// in order, grouped by (stored_path, page_num). Pages with no detections
// carry an empty detections list.
func (s *Store) ReportEntries(ctx context.Context) ([]report.Entry, error) {
	query := `
		SELECT
			documents.filename,
			documents.stored_path,
			documents.sha256,
			pages.page_num,
			pages.language,
			pages.image_path,
			detections.pii_type,
			detections.text_sample,
			detections.confidence,
			detections.bbox_json
		FROM pages
		JOIN documents ON pages.document_id = documents.id
		LEFT JOIN detections ON detections.page_id = pages.id
		ORDER BY documents.id DESC, pages.page_num ASC`

	var rows []reportRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("report query failed: %w", err)
	}

	type pageKey struct {
		path string
		page int
	}

	entries := make([]report.Entry, 0)
	index := make(map[pageKey]int)

	for _, row := range rows {
		key := pageKey{path: row.StoredPath, page: row.PageNum}
		i, seen := index[key]
		if !seen {
			entries = append(entries, report.Entry{
				File:       row.StoredPath,
				FileHash:   row.SHA256,
				Page:       row.PageNum,
				Language:   row.Language,
				Detections: []detect.Detection{},
				ImagePath:  row.ImagePath,
			})
			i = len(entries) - 1
			index[key] = i
		}

		if !row.PIIType.Valid {
			continue
		}

		var box detect.Box
		if err := json.Unmarshal([]byte(row.BBoxJSON.String), &box); err != nil {
			s.logger.Warn("Skipping detection with malformed bbox",
				zap.String("stored_path", row.StoredPath),
				zap.Int("page", row.PageNum),
				zap.Error(err),
			)
			continue
		}

		entries[i].Detections = append(entries[i].Detections, detect.Detection{
			Kind:       detect.Kind(row.PIIType.String),
			Text:       row.TextSample.String,
			Box:        box,
			Confidence: row.Confidence.Float64,
			Masked:     true,
		})
	}

	return entries, nil
}
