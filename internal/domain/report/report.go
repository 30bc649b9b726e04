// Package report assembles the inter-rater reliability report from raw
// score, study and reviewer collections.
package report

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/irr/internal/domain/agreement"
	"github.com/okian/irr/internal/domain/index"
	"github.com/okian/irr/internal/domain/model"
	"github.com/okian/irr/internal/domain/normalize"
	"github.com/okian/irr/internal/domain/rubric"
	"github.com/okian/irr/internal/domain/summary"
	"github.com/okian/irr/internal/domain/types"
)

// Defaults.
const (
	DefaultBasis                 = agreement.BasisQuestion
	DefaultMinSharedArticles     = 1
	DefaultLowConfidenceArticles = 5
)

// Input is everything one report is computed from.
type Input struct {
	Scores    []model.ScoreRecord
	Studies   []model.Study
	Reviewers []model.Reviewer
	// Version restricts the report to one rubric version; empty keeps all.
	Version rubric.Version
	// Basis overrides the engine's comparison basis when valid.
	Basis agreement.Basis
}

// Engine computes reports. It holds no per-report state and is safe for
// concurrent use.
type Engine struct {
	provider      rubric.Provider
	normalizeOpts []normalize.Option
	summaryOpts   []summary.Option
	basis         agreement.Basis
	minShared     int
	lowConfidence int
	now           func() time.Time
	newID         func() string
}

// NewEngine creates an Engine over provider.
func NewEngine(provider rubric.Provider, opts ...Option) *Engine {
	e := &Engine{
		provider:      provider,
		basis:         DefaultBasis,
		minShared:     DefaultMinSharedArticles,
		lowConfidence: DefaultLowConfidenceArticles,
		now:           time.Now,
		newID:         uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Provider returns the rubric provider the engine resolves answers with.
func (e *Engine) Provider() rubric.Provider { return e.provider }

// Build computes the report for in. Data problems never fail the build;
// they surface as undefined statistics and diagnostics counters.
func (e *Engine) Build(ctx context.Context, in Input) (*types.Report, error) {
	if e == nil || e.provider == nil {
		return nil, ErrNoProvider
	}
	basis := e.basis
	if b, ok := agreement.ParseBasis(string(in.Basis)); ok {
		basis = b
	}
	filter := e.canonicalVersion(in.Version)

	norm := normalize.New(e.provider, e.normalizeOpts...).Normalize(ctx, in.Scores, filter)
	idx := index.Build(norm.Scores)
	sb := summary.New(e.provider, e.summaryOpts...)

	versionCounts := make(map[string]int, len(norm.VersionCounts))
	for v, n := range norm.VersionCounts {
		versionCounts[string(v)] = n
	}

	rep := &types.Report{
		Summary: types.Summary{
			ReportID:                      e.newID(),
			GeneratedAt:                   e.now().UTC(),
			TotalArticles:                 len(idx.Articles()),
			TotalScores:                   len(norm.Scores),
			TotalReviewers:                len(idx.Raters()),
			ArticlesWithMultipleReviewers: len(idx.MultiRater()),
			OverallAgreement:              summary.OverallAgreement(idx),
			VersionFilter:                 string(filter),
			VersionCounts:                 versionCounts,
			ComparisonBasis:               string(basis),
		},
		IRR: types.IRR{
			CohensKappaPairs: agreement.CohenPairs(idx, basis, e.minShared),
			FleissKappas:     agreement.FleissByQuestion(idx, e.provider, e.lowConfidence),
			ICC:              agreement.ICCTotals(idx),
		},
		Articles:      sb.Articles(idx, in.Studies),
		Reviewers:     sb.Reviewers(idx, in.Reviewers),
		Distributions: sb.Distributions(idx),
		Diagnostics:   norm.Diagnostics,
	}
	if rep.IRR.CohensKappaPairs == nil {
		rep.IRR.CohensKappaPairs = []agreement.Pair{}
	}
	return rep, nil
}

// canonicalVersion maps a filter to the provider's spelling of it.
func (e *Engine) canonicalVersion(v rubric.Version) rubric.Version {
	v = rubric.Version(strings.TrimSpace(string(v)))
	if v == "" {
		return ""
	}
	if _, err := e.provider.Rubric(v); err == nil {
		return v
	}
	upper := rubric.Version(strings.ToUpper(string(v)))
	if _, err := e.provider.Rubric(upper); err == nil {
		return upper
	}
	return v
}
