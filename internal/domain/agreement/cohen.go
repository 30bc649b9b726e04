package agreement

import (
	"sort"
	"strconv"

	"github.com/okian/irr/internal/domain/index"
)

// Basis selects what two raters are compared on.
type Basis string

// Comparison bases for Cohen's kappa.
const (
	// BasisTotal compares total scores, one item per shared study.
	BasisTotal Basis = "total"
	// BasisQuestion compares answer tokens, one item per shared study and
	// question slot both raters answered.
	BasisQuestion Basis = "question"
)

// ParseBasis maps s to a Basis, reporting false for unknown input.
func ParseBasis(s string) (Basis, bool) {
	switch Basis(s) {
	case BasisTotal:
		return BasisTotal, true
	case BasisQuestion:
		return BasisQuestion, true
	default:
		return "", false
	}
}

// Pair is the agreement between two raters. RaterA sorts before RaterB.
type Pair struct {
	RaterA         string `json:"raterA"`
	RaterB         string `json:"raterB"`
	SharedArticles int    `json:"sharedArticles"`
	// Kappa.N counts the compared items.
	Kappa Result `json:"kappa"`
}

// CohenKappa computes Cohen's kappa over two parallel category sequences.
// Sequences of unequal length are truncated to the shorter one.
func CohenKappa(a, b []string) Result {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return Undefined(StatCohensKappa, 0, ReasonInsufficientSample)
	}
	countA := make(map[string]int)
	countB := make(map[string]int)
	agree := 0
	for i := 0; i < n; i++ {
		countA[a[i]]++
		countB[b[i]]++
		if a[i] == b[i] {
			agree++
		}
	}
	po := float64(agree) / float64(n)
	pe := 0.0
	for c, ca := range countA {
		if cb, ok := countB[c]; ok {
			pe += (float64(ca) / float64(n)) * (float64(cb) / float64(n))
		}
	}
	r := Result{Statistic: StatCohensKappa, N: n, Observed: ptr(po), Expected: ptr(pe)}
	k, ok := kappa(po, pe)
	if !ok {
		r.Reason = ReasonDegenerateVariance
		return r
	}
	r.Value = ptr(k)
	return r
}

// CohenPairs computes Cohen's kappa for every unordered pair of raters who
// co-scored at least minShared studies (minimum 1). Pairs with no shared
// study are omitted. Pairs are ordered by (RaterA, RaterB).
func CohenPairs(idx *index.Index, basis Basis, minShared int) []Pair {
	if minShared < 1 {
		minShared = 1
	}
	raters := idx.Raters()
	studies := make(map[string][]*index.Article, len(raters))
	for _, art := range idx.Articles() {
		for _, r := range art.Raters() {
			studies[r] = append(studies[r], art)
		}
	}

	var pairs []Pair
	for i := 0; i < len(raters); i++ {
		for j := i + 1; j < len(raters); j++ {
			ra, rb := raters[i], raters[j]
			var xs, ys []string
			shared := 0
			for _, art := range studies[ra] {
				sb, ok := art.ByRater(rb)
				if !ok {
					continue
				}
				sa, _ := art.ByRater(ra)
				shared++
				switch basis {
				case BasisQuestion:
					if sa.Version != sb.Version {
						continue
					}
					keys := make([]string, 0, len(sa.Answers))
					for q := range sa.Answers {
						keys = append(keys, q)
					}
					sort.Strings(keys)
					for _, q := range keys {
						x, y := sa.Answers[q], sb.Answer(q)
						if x.IsAnswered() && y.IsAnswered() {
							xs = append(xs, x.Token)
							ys = append(ys, y.Token)
						}
					}
				default:
					if !sa.HasTotal() || !sb.HasTotal() {
						continue
					}
					xs = append(xs, strconv.Itoa(sa.Total))
					ys = append(ys, strconv.Itoa(sb.Total))
				}
			}
			if shared == 0 || shared < minShared {
				continue
			}
			pairs = append(pairs, Pair{
				RaterA:         ra,
				RaterB:         rb,
				SharedArticles: shared,
				Kappa:          CohenKappa(xs, ys),
			})
		}
	}
	return pairs
}
