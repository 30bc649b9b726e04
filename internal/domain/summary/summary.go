// Package summary derives score distributions, article and reviewer
// summaries, and the overall percent agreement from an article index.
package summary

import (
	"math"
	"sort"

	"github.com/okian/irr/internal/domain/agreement"
	"github.com/okian/irr/internal/domain/index"
	"github.com/okian/irr/internal/domain/model"
	"github.com/okian/irr/internal/domain/rubric"
	"github.com/okian/irr/internal/domain/types"
)

// Default quality bands on the mean score ratio.
const (
	DefaultHighBand     = 0.75
	DefaultModerateBand = 0.50
)

// Builder produces the descriptive parts of a report.
type Builder struct {
	provider rubric.Provider
	high     float64
	moderate float64
}

// New creates a Builder that reads rubric maxima from provider.
func New(provider rubric.Provider, opts ...Option) *Builder {
	b := &Builder{
		provider: provider,
		high:     DefaultHighBand,
		moderate: DefaultModerateBand,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Tier maps a mean score ratio to a quality band.
func (b *Builder) Tier(ratio float64) types.Tier {
	switch {
	case ratio >= b.high:
		return types.TierHigh
	case ratio >= b.moderate:
		return types.TierModerate
	default:
		return types.TierLow
	}
}

// Distributions counts answered tokens per question slot over every score in
// idx. Every valid token of the rubric is present, zero counts included.
func (b *Builder) Distributions(idx *index.Index) map[string]map[string]int {
	out := make(map[string]map[string]int)
	for _, v := range idx.Versions() {
		rb, err := b.provider.Rubric(v)
		if err != nil {
			continue
		}
		for _, q := range rb.Questions() {
			counts := make(map[string]int, len(q.Options))
			for _, tok := range q.Tokens() {
				counts[tok] = 0
			}
			out[idx.QuestionKey(v, q.ID)] = counts
		}
	}
	for _, s := range idx.Scores() {
		for qid, a := range s.Answers {
			if !a.IsAnswered() {
				continue
			}
			if counts, ok := out[idx.QuestionKey(s.Version, qid)]; ok {
				counts[a.Token]++
			}
		}
	}
	return out
}

// Articles summarizes every scored study in idx, in study id order. Study
// metadata is taken from studies when present. Totals leave out scores
// holding an invalid answer.
func (b *Builder) Articles(idx *index.Index, studies []model.Study) []types.ArticleSummary {
	meta := make(map[string]model.Study, len(studies))
	for _, st := range studies {
		meta[st.ID] = st
	}
	maxima := make(map[rubric.Version]int)
	for _, v := range idx.Versions() {
		if rb, err := b.provider.Rubric(v); err == nil {
			maxima[v] = rb.MaxScore()
		}
	}

	out := make([]types.ArticleSummary, 0, len(idx.Articles()))
	for _, art := range idx.Articles() {
		st := meta[art.StudyID]
		raters := art.Raters()
		sum := types.ArticleSummary{
			StudyID:       art.StudyID,
			Citation:      st.Citation,
			Year:          st.Year,
			DOI:           st.DOI,
			ReviewerCount: len(raters),
			Raters:        raters,
		}

		totals := make([]float64, 0, len(art.Scores))
		var ratioSum float64
		ratios := 0
		for _, s := range art.Scores {
			if !s.HasTotal() {
				continue
			}
			if len(totals) == 0 || s.Total < sum.MinTotal {
				sum.MinTotal = s.Total
			}
			if len(totals) == 0 || s.Total > sum.MaxTotal {
				sum.MaxTotal = s.Total
			}
			totals = append(totals, float64(s.Total))
			if m := maxima[s.Version]; m > 0 {
				ratioSum += float64(s.Total) / float64(m)
				ratios++
			}
		}
		sum.Range = sum.MaxTotal - sum.MinTotal
		sum.MeanTotal = mean(totals)
		sum.StdDev = sampleStdDev(totals)
		if ratios > 0 {
			r := ratioSum / float64(ratios)
			sum.MeanScoreRatio = &r
			sum.Tier = b.Tier(r)
		}
		out = append(out, sum)
	}
	return out
}

// Reviewers summarizes every rater that scored in idx and every registered
// reviewer, ordered by alias. Unregistered raters are kept and flagged.
func (b *Builder) Reviewers(idx *index.Index, reviewers []model.Reviewer) []types.ReviewerStat {
	stats := make(map[string]*types.ReviewerStat)
	totals := make(map[string][]float64)
	for _, r := range reviewers {
		if r.Alias == "" {
			continue
		}
		stats[r.Alias] = &types.ReviewerStat{
			Alias:       r.Alias,
			DisplayName: r.DisplayName,
			Affiliation: r.Affiliation,
			Registered:  true,
		}
	}
	for _, s := range idx.Scores() {
		alias := s.Record.RaterAlias
		st, ok := stats[alias]
		if !ok {
			st = &types.ReviewerStat{Alias: alias}
			stats[alias] = st
		}
		st.ScoreCount++
		if s.HasTotal() {
			totals[alias] = append(totals[alias], float64(s.Total))
		}
		if ts := s.Record.Timestamp; st.LastScoredAt == nil || ts.After(*st.LastScoredAt) {
			t := ts
			st.LastScoredAt = &t
		}
	}

	out := make([]types.ReviewerStat, 0, len(stats))
	for alias, st := range stats {
		if xs := totals[alias]; len(xs) > 0 {
			m := mean(xs)
			st.MeanTotal = &m
		}
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Alias < out[j].Alias })
	return out
}

// OverallAgreement is the percentage of (multi-rater article, question slot)
// pairs on which every answering rater chose the same token. Slots with fewer
// than two answering raters do not count. Answers given under different
// rubric versions are never compared.
func OverallAgreement(idx *index.Index) agreement.Result {
	slots, unanimous := 0, 0
	for _, art := range idx.MultiRater() {
		byVersion := make(map[rubric.Version]map[string][]string)
		for _, s := range art.Scores {
			m, ok := byVersion[s.Version]
			if !ok {
				m = make(map[string][]string)
				byVersion[s.Version] = m
			}
			for qid, a := range s.Answers {
				if a.IsAnswered() {
					m[qid] = append(m[qid], a.Token)
				}
			}
		}
		for _, m := range byVersion {
			for _, tokens := range m {
				if len(tokens) < 2 {
					continue
				}
				slots++
				if allEqual(tokens) {
					unanimous++
				}
			}
		}
	}
	if slots == 0 {
		return agreement.Undefined(agreement.StatPercentAgreement, 0, agreement.ReasonInsufficientSample)
	}
	return agreement.Defined(agreement.StatPercentAgreement, 100*float64(unanimous)/float64(slots), slots)
}

func allEqual(xs []string) bool {
	for _, x := range xs[1:] {
		if x != xs[0] {
			return false
		}
	}
	return true
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

func sampleStdDev(xs []float64) *float64 {
	if len(xs) < 2 {
		return nil
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	v := math.Sqrt(ss / float64(len(xs)-1))
	return &v
}
