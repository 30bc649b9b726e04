package report

import (
	"time"

	"github.com/okian/irr/internal/domain/agreement"
	"github.com/okian/irr/internal/domain/normalize"
	"github.com/okian/irr/internal/domain/rubric"
	"github.com/okian/irr/internal/domain/summary"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithExclusionMarkers replaces the note markers that exclude a record.
func WithExclusionMarkers(markers []string) Option {
	return func(e *Engine) {
		e.normalizeOpts = append(e.normalizeOpts, normalize.WithExclusionMarkers(markers))
	}
}

// WithStrictAnswers drops records holding any unrecognised answer token.
func WithStrictAnswers(strict bool) Option {
	return func(e *Engine) {
		e.normalizeOpts = append(e.normalizeOpts, normalize.WithStrictAnswers(strict))
	}
}

// WithDefaultVersion assigns v to records that carry no rubric version.
func WithDefaultVersion(v rubric.Version) Option {
	return func(e *Engine) {
		e.normalizeOpts = append(e.normalizeOpts, normalize.WithDefaultVersion(v))
	}
}

// WithBasis sets the Cohen comparison basis used when the input names none.
func WithBasis(b agreement.Basis) Option {
	return func(e *Engine) {
		if parsed, ok := agreement.ParseBasis(string(b)); ok {
			e.basis = parsed
		}
	}
}

// WithMinSharedArticles sets how many co-scored studies a rater pair needs.
func WithMinSharedArticles(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.minShared = n
		}
	}
}

// WithLowConfidenceArticles sets the article count below which Fleiss'
// kappa is flagged low-confidence.
func WithLowConfidenceArticles(n int) Option {
	return func(e *Engine) {
		if n >= agreement.MinFleissArticles {
			e.lowConfidence = n
		}
	}
}

// WithQualityBands sets the high and moderate tier thresholds.
func WithQualityBands(high, moderate float64) Option {
	return func(e *Engine) {
		e.summaryOpts = append(e.summaryOpts, summary.WithBands(high, moderate))
	}
}

// WithClock sets the time source for the report timestamp.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithIDGenerator sets the report id generator.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) {
		if gen != nil {
			e.newID = gen
		}
	}
}
