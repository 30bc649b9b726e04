package agreement

import (
	"github.com/okian/irr/internal/domain/index"
	"github.com/okian/irr/internal/domain/rubric"
)

// MinFleissArticles is the fewest qualifying articles Fleiss' kappa is ever
// computed over.
const MinFleissArticles = 2

// FleissKappa computes Fleiss' kappa from per-article category counts.
// Each element of counts maps a category to the number of raters who chose
// it on one article; articles with fewer than two ratings are skipped.
func FleissKappa(counts []map[string]int) Result {
	var (
		sumP     float64
		total    int
		articles int
		totals   = make(map[string]int)
	)
	for _, c := range counts {
		ni := 0
		for _, v := range c {
			ni += v
		}
		if ni < 2 {
			continue
		}
		agreeing := 0
		for cat, v := range c {
			agreeing += v * (v - 1)
			totals[cat] += v
		}
		sumP += float64(agreeing) / float64(ni*(ni-1))
		total += ni
		articles++
	}
	if articles < MinFleissArticles {
		return Undefined(StatFleissKappa, articles, ReasonInsufficientSample)
	}
	pBar := sumP / float64(articles)
	pe := 0.0
	for _, v := range totals {
		p := float64(v) / float64(total)
		pe += p * p
	}
	r := Result{Statistic: StatFleissKappa, N: articles, Observed: ptr(pBar), Expected: ptr(pe)}
	k, ok := kappa(pBar, pe)
	if !ok {
		r.Reason = ReasonDegenerateVariance
		return r
	}
	r.Value = ptr(k)
	return r
}

// FleissByQuestion computes Fleiss' kappa for every question slot of every
// rubric version present in idx, over its multi-rater articles. Only raters
// who answered a slot under that version are counted. Results computed from
// fewer than lowConfidence articles are flagged, not hidden, whether or not a
// value could be computed.
func FleissByQuestion(idx *index.Index, provider rubric.Provider, lowConfidence int) map[string]Result {
	if lowConfidence < MinFleissArticles {
		lowConfidence = MinFleissArticles
	}
	out := make(map[string]Result)
	multi := idx.MultiRater()
	for _, v := range idx.Versions() {
		rb, err := provider.Rubric(v)
		if err != nil {
			continue
		}
		for _, q := range rb.Questions() {
			counts := make([]map[string]int, 0, len(multi))
			for _, art := range multi {
				c := make(map[string]int)
				for _, s := range art.Scores {
					if s.Version != v {
						continue
					}
					if a := s.Answer(q.ID); a.IsAnswered() {
						c[a.Token]++
					}
				}
				counts = append(counts, c)
			}
			r := FleissKappa(counts)
			if r.N < lowConfidence {
				r.LowConfidence = true
			}
			out[idx.QuestionKey(v, q.ID)] = r
		}
	}
	return out
}
