// Package config defines service configuration and its loading.
//
// Values are layered: defaults from New, an optional YAML file named by
// IRR_CONFIG, then IRR_* environment variables.
package config

import (
	"context"
	"time"
)

// Repository backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Backend selects the score repository: file or sqlite.
	Backend string `koanf:"backend"`
	// DataFile is the JSON dataset read by the file backend.
	DataFile string `koanf:"data_file"`
	// SQLiteDSN is the database opened by the sqlite backend.
	SQLiteDSN string `koanf:"sqlite_dsn"`
	// RubricFile optionally adds or overrides rubric versions from YAML.
	RubricFile string `koanf:"rubric_file"`

	// ExclusionMarkers flag test and calibration records in score notes.
	ExclusionMarkers []string `koanf:"exclusion_markers"`
	// StrictAnswers drops whole records holding an unrecognised answer.
	StrictAnswers bool `koanf:"strict_answers"`
	// DefaultVersion is assigned to records that carry no rubric version.
	DefaultVersion string `koanf:"default_version"`
	// ComparisonBasis is the default Cohen basis: question or total.
	ComparisonBasis string `koanf:"comparison_basis"`
	// MinSharedArticles is the co-scored study count a rater pair needs.
	MinSharedArticles int `koanf:"min_shared_articles"`
	// LowConfidenceArticles flags Fleiss' kappa computed over fewer articles.
	LowConfidenceArticles int `koanf:"low_confidence_articles"`
	// QualityHigh and QualityModerate are the mean score ratio tier bands.
	QualityHigh     float64 `koanf:"quality_high"`
	QualityModerate float64 `koanf:"quality_moderate"`

	// FetchTimeout bounds the repository fetch of one report.
	FetchTimeout time.Duration `koanf:"fetch_timeout"`
	// ExportDir receives parquet exports written by irrctl.
	ExportDir string `koanf:"export_dir"`

	// QueueSize bounds the ingestion queue behind POST /scores.
	QueueSize int `koanf:"queue_size"`
	// Workers is the ingestion worker count; 0 uses the CPU count.
	Workers int `koanf:"workers"`
	// DrainTimeout bounds how long shutdown waits for queued records.
	DrainTimeout time.Duration `koanf:"drain_timeout"`
}

// New creates a Config holding the defaults. The context is reserved for
// future sources.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		Backend:               BackendFile,
		DataFile:              "data/dataset.json",
		SQLiteDSN:             "data/irr.db",
		ExclusionMarkers:      []string{"[test]", "[calibration]", "#test", "#calibration"},
		ComparisonBasis:       "question",
		MinSharedArticles:     1,
		LowConfidenceArticles: 5,
		QualityHigh:           0.75,
		QualityModerate:       0.50,
		FetchTimeout:          10 * time.Second,
		ExportDir:             "exports",
		QueueSize:             10000,
		DrainTimeout:          10 * time.Second,
	}
}
