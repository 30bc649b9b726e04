// Package agreement implements the inter-rater statistics: Cohen's kappa for
// rater pairs, Fleiss' kappa per question and the intraclass correlation of
// total scores.
package agreement

import "math"

// Statistic names.
const (
	StatCohensKappa      = "cohens_kappa"
	StatFleissKappa      = "fleiss_kappa"
	StatICC              = "icc"
	StatPercentAgreement = "percent_agreement"
)

// Reason explains why a statistic has no value.
type Reason string

// Reasons for an undefined statistic.
const (
	ReasonInsufficientSample Reason = "insufficient_sample"
	ReasonDegenerateVariance Reason = "degenerate_variance"
)

// epsilon guards comparisons of chance agreement against 1.
const epsilon = 1e-12

// Result is a named statistic with the sample size it was computed over.
// A nil Value means "not computable", which is never the same as zero.
type Result struct {
	Statistic     string   `json:"statistic"`
	Value         *float64 `json:"value"`
	N             int      `json:"n"`
	Reason        Reason   `json:"reason,omitempty"`
	LowConfidence bool     `json:"lowConfidence,omitempty"`
	// Observed and Expected are the raw and chance agreement behind a kappa.
	Observed *float64 `json:"observed,omitempty"`
	Expected *float64 `json:"expected,omitempty"`
}

// Defined reports whether the statistic has a value.
func (r Result) Defined() bool { return r.Value != nil }

// Float returns the value and whether it is defined.
func (r Result) Float() (float64, bool) {
	if r.Value == nil {
		return 0, false
	}
	return *r.Value, true
}

// Defined builds a result with a value.
func Defined(stat string, v float64, n int) Result {
	return Result{Statistic: stat, Value: ptr(v), N: n}
}

// Undefined builds a result without a value.
func Undefined(stat string, n int, reason Reason) Result {
	return Result{Statistic: stat, N: n, Reason: reason}
}

// kappa applies (po-pe)/(1-pe), returning ok=false when pe is 1.
func kappa(po, pe float64) (float64, bool) {
	if math.Abs(1-pe) < epsilon {
		return 0, false
	}
	return (po - pe) / (1 - pe), true
}

func ptr(v float64) *float64 { return &v }

// Clamp limits v to [-1, 1].
func Clamp(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
