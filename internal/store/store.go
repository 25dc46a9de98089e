// Package store is the persistence gateway mapping ingestion results into
// the normalized relational schema (documents -> pages -> detections). Each
// document is written as one transaction: either every row lands or none do.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	// Database drivers: lib/pq for postgres, modernc for cgo-free sqlite.
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/pagemask/pagemask/internal/logger"
	"github.com/pagemask/pagemask/internal/pipeline"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config contains database configuration
type Config struct {
	Driver          string        `yaml:"driver" mapstructure:"driver"`
	DSN             string        `yaml:"dsn" mapstructure:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// Store handles document persistence against a relational database.
type Store struct {
	db     *sqlx.DB
	driver string
	logger *logger.Logger
}

// NewStore connects to the configured database and ensures the schema exists.
func NewStore(config *Config, log *logger.Logger) (*Store, error) {
	if config.Driver == DriverSQLite && config.DSN != ":memory:" {
		if dir := filepath.Dir(config.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sqlx.Connect(config.Driver, config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	store := &Store{
		db:     db,
		driver: config.Driver,
		logger: log,
	}

	if err := store.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Info("Document store initialized",
		zap.String("driver", config.Driver),
		zap.String("dsn", maskDSN(config.DSN)),
		zap.Int("max_open_conns", config.MaxOpenConns),
	)

	return store, nil
}

// ensureSchema creates the three tables when they do not exist yet.
func (s *Store) ensureSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	for _, ddl := range schemaFor(s.driver) {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// schemaFor returns the dialect-specific DDL statements in creation order.
func schemaFor(driver string) []string {
	idCol := "INTEGER PRIMARY KEY AUTOINCREMENT"
	refCol := "INTEGER"
	realCol := "REAL"
	if driver == DriverPostgres {
		idCol = "BIGSERIAL PRIMARY KEY"
		refCol = "BIGINT"
		realCol = "DOUBLE PRECISION"
	}

	return []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS documents (
				id %s,
				filename TEXT NOT NULL,
				stored_path TEXT NOT NULL,
				sha256 TEXT NOT NULL,
				uploaded_at TEXT NOT NULL
			)`, idCol),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS pages (
				id %s,
				document_id %s NOT NULL,
				page_num INTEGER NOT NULL,
				language TEXT NOT NULL,
				image_path TEXT NOT NULL,
				FOREIGN KEY(document_id) REFERENCES documents(id)
			)`, idCol, refCol),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS detections (
				id %s,
				page_id %s NOT NULL,
				pii_type TEXT NOT NULL,
				text_sample TEXT NOT NULL,
				confidence %s NOT NULL,
				bbox_json TEXT NOT NULL,
				FOREIGN KEY(page_id) REFERENCES pages(id)
			)`, idCol, refCol, realCol),
	}
}

// SaveDocument persists a completed ingestion result as one transaction:
// the documents row first, then one pages row per PageResult, then one
// detections row per detection. Any failure rolls the whole document back.
func (s *Store) SaveDocument(ctx context.Context, filename string, doc *pipeline.DocumentResult) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	docID, err := s.insertRow(ctx, tx,
		`INSERT INTO documents (filename, stored_path, sha256, uploaded_at) VALUES (?, ?, ?, ?)`,
		filename, doc.File, doc.Hash, doc.UploadedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to insert document: %w", err)
	}

	for _, page := range doc.Pages {
		pageID, err := s.insertRow(ctx, tx,
			`INSERT INTO pages (document_id, page_num, language, image_path) VALUES (?, ?, ?, ?)`,
			docID, page.Page, page.Language, page.ImagePath)
		if err != nil {
			return 0, fmt.Errorf("failed to insert page %d: %w", page.Page, err)
		}

		for _, det := range page.Detections {
			bbox, err := json.Marshal(det.Box)
			if err != nil {
				return 0, fmt.Errorf("failed to encode bounding box: %w", err)
			}

			if _, err := s.insertRow(ctx, tx,
				`INSERT INTO detections (page_id, pii_type, text_sample, confidence, bbox_json) VALUES (?, ?, ?, ?, ?)`,
				pageID, string(det.Kind), det.Text, det.Confidence, string(bbox)); err != nil {
				return 0, fmt.Errorf("failed to insert detection: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit document: %w", err)
	}

	s.logger.Info("Document persisted",
		zap.Int64("document_id", docID),
		zap.String("filename", filename),
		zap.Int("pages", len(doc.Pages)),
	)

	return docID, nil
}

// insertRow executes an insert and returns the generated row ID. The query
// uses ? placeholders and is rebound for the active driver; postgres has no
// LastInsertId so the id comes back through RETURNING instead.
func (s *Store) insertRow(ctx context.Context, tx *sqlx.Tx, query string, args ...interface{}) (int64, error) {
	if s.driver == DriverPostgres {
		var id int64
		q := tx.Rebind(query + " RETURNING id")
		if err := tx.QueryRowContext(ctx, q, args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// maskDSN hides credentials in a connection string for logging.
func maskDSN(dsn string) string {
	if strings.Contains(dsn, "@") {
		parts := strings.Split(dsn, "@")
		userPart := parts[0]
		if idx := strings.LastIndex(userPart, ":"); idx >= 0 {
			parts[0] = userPart[:idx] + ":***"
		}
		return strings.Join(parts, "@")
	}
	return dsn
}
