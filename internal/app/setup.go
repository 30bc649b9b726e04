package service

import (
	"fmt"

	"github.com/okian/irr/internal/adapters/repository"
	"github.com/okian/irr/internal/config"
	"github.com/okian/irr/internal/domain/agreement"
	"github.com/okian/irr/internal/domain/report"
	"github.com/okian/irr/internal/domain/rubric"
)

// BuildProvider returns the built-in rubrics overlaid by cfg.RubricFile.
func BuildProvider(cfg *config.Config) (*rubric.Registry, error) {
	provider := rubric.Default()
	if cfg.RubricFile == "" {
		return provider, nil
	}
	extra, err := rubric.LoadFile(cfg.RubricFile)
	if err != nil {
		return nil, err
	}
	return provider.Merge(extra), nil
}

// OpenRepository opens the configured score repository.
func OpenRepository(cfg *config.Config) (repository.Repository, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		store, err := repository.OpenSQLite(cfg.SQLiteDSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendFile:
		return repository.NewFileStore(cfg.DataFile), nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", config.ErrInvalidConfig, cfg.Backend)
	}
}

// BuildEngine applies the report settings of cfg.
func BuildEngine(cfg *config.Config, provider rubric.Provider) *report.Engine {
	opts := []report.Option{
		report.WithExclusionMarkers(cfg.ExclusionMarkers),
		report.WithStrictAnswers(cfg.StrictAnswers),
		report.WithMinSharedArticles(cfg.MinSharedArticles),
		report.WithLowConfidenceArticles(cfg.LowConfidenceArticles),
		report.WithQualityBands(cfg.QualityHigh, cfg.QualityModerate),
	}
	if b, ok := agreement.ParseBasis(cfg.ComparisonBasis); ok {
		opts = append(opts, report.WithBasis(b))
	}
	if cfg.DefaultVersion != "" {
		opts = append(opts, report.WithDefaultVersion(rubric.Version(cfg.DefaultVersion)))
	}
	return report.NewEngine(provider, opts...)
}
