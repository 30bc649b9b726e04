// Package types contains the report payload shared by the engine, the
// service and its transports.
package types

import (
	"time"

	"github.com/okian/irr/internal/domain/agreement"
	"github.com/okian/irr/internal/domain/normalize"
)

// Report is the full inter-rater reliability report.
type Report struct {
	Summary   Summary          `json:"summary"`
	IRR       IRR              `json:"irr"`
	Articles  []ArticleSummary `json:"articles"`
	Reviewers []ReviewerStat   `json:"reviewers"`
	// Distributions maps a question key to answer token counts.
	Distributions map[string]map[string]int `json:"distributions"`
	Diagnostics   normalize.Diagnostics     `json:"diagnostics"`
}

// Summary holds the headline numbers of a report.
type Summary struct {
	ReportID                      string           `json:"reportId"`
	GeneratedAt                   time.Time        `json:"generatedAt"`
	TotalArticles                 int              `json:"totalArticles"`
	TotalScores                   int              `json:"totalScores"`
	TotalReviewers                int              `json:"totalReviewers"`
	ArticlesWithMultipleReviewers int              `json:"articlesWithMultipleReviewers"`
	OverallAgreement              agreement.Result `json:"overallAgreement"`
	VersionFilter                 string           `json:"versionFilter,omitempty"`
	// VersionCounts is computed before the version filter.
	VersionCounts   map[string]int `json:"versionCounts"`
	ComparisonBasis string         `json:"comparisonBasis"`
}

// IRR groups the agreement statistics.
type IRR struct {
	CohensKappaPairs []agreement.Pair           `json:"cohensKappaPairs"`
	FleissKappas     map[string]agreement.Result `json:"fleissKappas"`
	ICC              agreement.ICCResult         `json:"icc"`
}

// Tier is a coarse quality band derived from the mean score ratio.
type Tier string

// Quality tiers.
const (
	TierHigh     Tier = "high"
	TierModerate Tier = "moderate"
	TierLow      Tier = "low"
)

// ArticleSummary describes the scores one study received.
type ArticleSummary struct {
	StudyID       string   `json:"studyId"`
	Citation      string   `json:"citation,omitempty"`
	Year          int      `json:"year,omitempty"`
	DOI           string   `json:"doi,omitempty"`
	ReviewerCount int      `json:"reviewerCount"`
	Raters        []string `json:"raters"`
	MeanTotal     float64  `json:"meanTotal"`
	MinTotal      int      `json:"minTotal"`
	MaxTotal      int      `json:"maxTotal"`
	Range         int      `json:"range"`
	// StdDev is the sample standard deviation of totals, nil below two raters.
	StdDev         *float64 `json:"stdDev"`
	MeanScoreRatio *float64 `json:"meanScoreRatio"`
	Tier           Tier     `json:"tier,omitempty"`
}

// ReviewerStat describes one rater's activity.
type ReviewerStat struct {
	Alias        string     `json:"alias"`
	DisplayName  string     `json:"displayName,omitempty"`
	Affiliation  string     `json:"affiliation,omitempty"`
	Registered   bool       `json:"registered"`
	ScoreCount   int        `json:"scoreCount"`
	MeanTotal    *float64   `json:"meanTotal"`
	LastScoredAt *time.Time `json:"lastScoredAt,omitempty"`
}
