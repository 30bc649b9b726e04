package agreement

import (
	"math"

	"github.com/okian/irr/internal/domain/index"
)

// ICCResult is the intraclass correlation with its ANOVA components.
// Value is clamped to [-1, 1]; Raw is not.
type ICCResult struct {
	Result
	Raw     *float64 `json:"raw,omitempty"`
	MSB     *float64 `json:"msb,omitempty"`
	MSE     *float64 `json:"mse,omitempty"`
	KBar    float64  `json:"kBar,omitempty"`
	Ratings int      `json:"ratings"`
}

// ICC computes the one-way random-effects intraclass correlation over
// groups of continuous ratings, one group per subject. Groups with fewer
// than two ratings are ignored. The ragged design is handled with the
// harmonic mean group size.
func ICC(groups [][]float64) ICCResult {
	var (
		subjects int
		ratings  int
		grand    float64
		invK     float64
	)
	kept := make([][]float64, 0, len(groups))
	for _, g := range groups {
		if len(g) < 2 {
			continue
		}
		kept = append(kept, g)
		subjects++
		ratings += len(g)
		invK += 1 / float64(len(g))
		for _, x := range g {
			grand += x
		}
	}
	if subjects < 2 {
		return ICCResult{Result: Undefined(StatICC, subjects, ReasonInsufficientSample), Ratings: ratings}
	}
	grand /= float64(ratings)

	var ssb, ssw float64
	for _, g := range kept {
		mean := 0.0
		for _, x := range g {
			mean += x
		}
		mean /= float64(len(g))
		d := mean - grand
		ssb += float64(len(g)) * d * d
		for _, x := range g {
			e := x - mean
			ssw += e * e
		}
	}
	msb := ssb / float64(subjects-1)
	mse := ssw / float64(ratings-subjects)
	kBar := float64(subjects) / invK

	out := ICCResult{
		Result:  Result{Statistic: StatICC, N: subjects},
		MSB:     ptr(msb),
		MSE:     ptr(mse),
		KBar:    kBar,
		Ratings: ratings,
	}
	denom := msb + (kBar-1)*mse
	if math.Abs(denom) < epsilon {
		out.Reason = ReasonDegenerateVariance
		return out
	}
	raw := (msb - mse) / denom
	out.Raw = ptr(raw)
	out.Value = ptr(Clamp(raw))
	return out
}

// ICCTotals computes the ICC over total scores of the multi-rater articles.
// Scores without a usable total are left out of their article's group.
func ICCTotals(idx *index.Index) ICCResult {
	multi := idx.MultiRater()
	groups := make([][]float64, 0, len(multi))
	for _, art := range multi {
		g := make([]float64, 0, len(art.Scores))
		for _, s := range art.Scores {
			if s.HasTotal() {
				g = append(g, float64(s.Total))
			}
		}
		groups = append(groups, g)
	}
	return ICC(groups)
}
