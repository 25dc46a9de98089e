package config

import "time"

// Config represents the main configuration structure
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Redaction RedactionConfig `yaml:"redaction" mapstructure:"redaction"`
	Database  DatabaseConfig  `yaml:"database" mapstructure:"database"`
	RateLimit RateLimitConfig `yaml:"ratelimit" mapstructure:"ratelimit"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	UploadDir    string        `yaml:"upload_dir" mapstructure:"upload_dir"`
}

// PipelineConfig contains document ingestion configuration
type PipelineConfig struct {
	DPI         int    `yaml:"dpi" mapstructure:"dpi"`
	MaxPages    int    `yaml:"max_pages" mapstructure:"max_pages"`
	OutputDir   string `yaml:"output_dir" mapstructure:"output_dir"`
	ReportPath  string `yaml:"report_path" mapstructure:"report_path"`
	OCRLanguage string `yaml:"ocr_language" mapstructure:"ocr_language"`
}

// RedactionConfig controls how detected regions are masked
type RedactionConfig struct {
	// Fill color as 8-bit RGB components. Default is solid black.
	FillR uint8 `yaml:"fill_r" mapstructure:"fill_r"`
	FillG uint8 `yaml:"fill_g" mapstructure:"fill_g"`
	FillB uint8 `yaml:"fill_b" mapstructure:"fill_b"`
}

// DatabaseConfig contains relational store configuration
type DatabaseConfig struct {
	Driver          string        `yaml:"driver" mapstructure:"driver"` // sqlite or postgres
	DSN             string        `yaml:"dsn" mapstructure:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// RateLimitConfig contains upload rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool    `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	Burst          int     `yaml:"burst" mapstructure:"burst"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
	File   struct {
		Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
		Path    string `yaml:"path" mapstructure:"path"`
	} `yaml:"file" mapstructure:"file"`
}

// GetDefaults returns a configuration with sensible defaults
func GetDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8000,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 5 * time.Minute, // a many-page document blocks its request
			IdleTimeout:  60 * time.Second,
			UploadDir:    "data/uploads",
		},
		Pipeline: PipelineConfig{
			DPI:         300,
			MaxPages:    200,
			OutputDir:   "out/redacted_images",
			ReportPath:  "out/pii_report.jsonl",
			OCRLanguage: "eng",
		},
		Redaction: RedactionConfig{
			FillR: 0,
			FillG: 0,
			FillB: 0,
		},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			DSN:             "data/app.db",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: time.Hour,
		},
		RateLimit: RateLimitConfig{
			Enabled:        false,
			RequestsPerSec: 1,
			Burst:          3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
