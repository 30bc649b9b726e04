package agreement_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/okian/irr/internal/domain/agreement"
	"github.com/okian/irr/internal/domain/index"
	"github.com/okian/irr/internal/domain/model"
	"github.com/okian/irr/internal/domain/normalize"
	"github.com/okian/irr/internal/domain/rubric"
	. "github.com/smartystreets/goconvey/convey"
)

func binaryRegistry() *rubric.Registry {
	r, err := rubric.New("B1", []rubric.Question{
		{ID: "q1", Label: "Binary", Options: []rubric.Option{{Token: "yes", Score: 1}, {Token: "no", Score: 0}}},
	})
	if err != nil {
		panic(err)
	}
	reg, err := rubric.NewRegistry(r)
	if err != nil {
		panic(err)
	}
	return reg
}

func buildIndex(reg rubric.Provider, version string, rows [][3]string) *index.Index {
	recs := make([]model.ScoreRecord, 0, len(rows))
	for i, row := range rows {
		answers := map[string]string{}
		if row[2] != "" {
			answers["q1"] = row[2]
		}
		recs = append(recs, model.ScoreRecord{
			ID:            row[0] + "-" + row[1],
			StudyID:       row[0],
			RaterAlias:    row[1],
			RubricVersion: version,
			Answers:       answers,
			Timestamp:     time.Date(2025, 1, 1, 0, i, 0, 0, time.UTC),
		})
	}
	res := normalize.New(reg).Normalize(context.Background(), recs, "")
	return index.Build(res.Scores)
}

func TestCohenKappa(t *testing.T) {
	Convey("Given two identical rating sequences", t, func() {
		Convey("When the raters used more than one category", func() {
			seq := []string{"yes", "no", "yes", "yes"}
			r := agreement.CohenKappa(seq, seq)

			Convey("Then kappa is exactly 1", func() {
				v, ok := r.Float()
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, 1.0)
				So(r.N, ShouldEqual, 4)
			})
		})

		Convey("When both raters used one identical category", func() {
			seq := []string{"yes", "yes", "yes"}
			r := agreement.CohenKappa(seq, seq)

			Convey("Then kappa is undefined, not 1 or 0", func() {
				So(r.Defined(), ShouldBeFalse)
				So(r.Reason, ShouldEqual, agreement.ReasonDegenerateVariance)
				So(*r.Observed, ShouldEqual, 1.0)
				So(*r.Expected, ShouldEqual, 1.0)
			})
		})
	})

	Convey("Given perfectly anti-correlated binary ratings with balanced marginals", t, func() {
		r := agreement.CohenKappa(
			[]string{"yes", "no", "yes", "no"},
			[]string{"no", "yes", "no", "yes"},
		)

		Convey("Then kappa is negative", func() {
			v, ok := r.Float()
			So(ok, ShouldBeTrue)
			So(v, ShouldBeLessThan, 0.0)
			So(v, ShouldAlmostEqual, -1.0, 1e-12)
		})
	})

	Convey("Given a textbook contingency table", t, func() {
		// 20 yes/yes, 5 yes/no, 10 no/yes, 15 no/no: po=0.7, pe=0.5, kappa=0.4
		var a, b []string
		add := func(x, y string, n int) {
			for i := 0; i < n; i++ {
				a = append(a, x)
				b = append(b, y)
			}
		}
		add("yes", "yes", 20)
		add("yes", "no", 5)
		add("no", "yes", 10)
		add("no", "no", 15)
		r := agreement.CohenKappa(a, b)

		Convey("Then kappa matches the hand computation", func() {
			So(*r.Observed, ShouldAlmostEqual, 0.7, 1e-12)
			So(*r.Expected, ShouldAlmostEqual, 0.5, 1e-12)
			So(*r.Value, ShouldAlmostEqual, 0.4, 1e-12)
		})
	})

	Convey("Given empty sequences", t, func() {
		r := agreement.CohenKappa(nil, nil)

		Convey("Then the sample is insufficient", func() {
			So(r.Defined(), ShouldBeFalse)
			So(r.Reason, ShouldEqual, agreement.ReasonInsufficientSample)
		})
	})
}

func TestCohenPairs(t *testing.T) {
	reg := binaryRegistry()

	Convey("Given three raters with partial overlap", t, func() {
		idx := buildIndex(reg, "B1", [][3]string{
			{"s1", "alice", "yes"}, {"s1", "bob", "yes"},
			{"s2", "alice", "no"}, {"s2", "bob", "no"},
			{"s3", "alice", "yes"}, {"s3", "bob", "no"},
			{"s4", "carol", "yes"},
		})

		Convey("When comparing per question", func() {
			pairs := agreement.CohenPairs(idx, agreement.BasisQuestion, 1)

			Convey("Then pairs without shared studies are omitted", func() {
				So(len(pairs), ShouldEqual, 1)
				So(pairs[0].RaterA, ShouldEqual, "alice")
				So(pairs[0].RaterB, ShouldEqual, "bob")
				So(pairs[0].SharedArticles, ShouldEqual, 3)
			})

			Convey("And kappa is computed over the shared items", func() {
				// po = 2/3; alice yes 2/3, bob yes 1/3; pe = 2/9+2/9 = 4/9
				k := pairs[0].Kappa
				So(k.N, ShouldEqual, 3)
				So(*k.Value, ShouldAlmostEqual, (2.0/3-4.0/9)/(1-4.0/9), 1e-12)
			})
		})

		Convey("When a higher shared minimum is required", func() {
			pairs := agreement.CohenPairs(idx, agreement.BasisQuestion, 4)

			Convey("Then the pair is dropped", func() {
				So(pairs, ShouldBeEmpty)
			})
		})

		Convey("When comparing total scores", func() {
			pairs := agreement.CohenPairs(idx, agreement.BasisTotal, 1)

			Convey("Then the totals are the categories", func() {
				So(len(pairs), ShouldEqual, 1)
				So(pairs[0].Kappa.N, ShouldEqual, 3)
				So(*pairs[0].Kappa.Observed, ShouldAlmostEqual, 2.0/3, 1e-12)
			})
		})
	})

	Convey("Given a shared study where the raters answered different slots", t, func() {
		recs := []model.ScoreRecord{
			{ID: "a", StudyID: "s1", RaterAlias: "alice", RubricVersion: "V1", Answers: map[string]string{"q1": "yes"}},
			{ID: "b", StudyID: "s1", RaterAlias: "bob", RubricVersion: "V1", Answers: map[string]string{"q2": "yes"}},
		}
		idx := index.Build(normalize.New(rubric.Default()).Normalize(context.Background(), recs, "").Scores)
		pairs := agreement.CohenPairs(idx, agreement.BasisQuestion, 1)

		Convey("Then the pair exists but has no comparable items", func() {
			So(len(pairs), ShouldEqual, 1)
			So(pairs[0].SharedArticles, ShouldEqual, 1)
			So(pairs[0].Kappa.Defined(), ShouldBeFalse)
			So(pairs[0].Kappa.Reason, ShouldEqual, agreement.ReasonInsufficientSample)
		})
	})

	Convey("Given ParseBasis", t, func() {
		b, ok := agreement.ParseBasis("question")
		So(ok, ShouldBeTrue)
		So(b, ShouldEqual, agreement.BasisQuestion)
		_, ok = agreement.ParseBasis("nope")
		So(ok, ShouldBeFalse)
	})
}

func TestFleiss(t *testing.T) {
	reg := binaryRegistry()

	Convey("Given 3 studies, 2 raters each, agreeing everywhere", t, func() {
		idx := buildIndex(reg, "B1", [][3]string{
			{"s1", "alice", "yes"}, {"s1", "bob", "yes"},
			{"s2", "alice", "no"}, {"s2", "bob", "no"},
			{"s3", "alice", "yes"}, {"s3", "bob", "yes"},
		})
		res := agreement.FleissByQuestion(idx, reg, 2)

		Convey("Then Fleiss' kappa for the question is 1", func() {
			r := res["q1"]
			So(r.N, ShouldEqual, 3)
			So(*r.Value, ShouldAlmostEqual, 1.0, 1e-12)
			So(r.LowConfidence, ShouldBeFalse)
		})
	})

	Convey("Given the same setup with one answer missing", t, func() {
		idx := buildIndex(reg, "B1", [][3]string{
			{"s1", "alice", "yes"}, {"s1", "bob", "yes"},
			{"s2", "alice", "no"}, {"s2", "bob", "no"},
			{"s3", "alice", "yes"}, {"s3", "bob", ""},
		})
		res := agreement.FleissByQuestion(idx, reg, 5)

		Convey("Then the missing slot is skipped rather than counted as disagreement", func() {
			r := res["q1"]
			So(r.N, ShouldEqual, 2)
			So(*r.Value, ShouldAlmostEqual, 1.0, 1e-12)
		})

		Convey("And a small sample is flagged low-confidence", func() {
			So(res["q1"].LowConfidence, ShouldBeTrue)
		})
	})

	Convey("Given fewer than two qualifying articles", t, func() {
		idx := buildIndex(reg, "B1", [][3]string{
			{"s1", "alice", "yes"}, {"s1", "bob", "yes"},
			{"s2", "alice", "no"},
		})
		res := agreement.FleissByQuestion(idx, reg, 2)

		Convey("Then Fleiss' kappa is undefined with its sample size", func() {
			r := res["q1"]
			So(r.Defined(), ShouldBeFalse)
			So(r.N, ShouldEqual, 1)
			So(r.Reason, ShouldEqual, agreement.ReasonInsufficientSample)
			So(r.LowConfidence, ShouldBeTrue)
		})
	})

	Convey("Given unanimous raters on fewer articles than the confidence floor", t, func() {
		idx := buildIndex(reg, "B1", [][3]string{
			{"s1", "alice", "yes"}, {"s1", "bob", "yes"},
			{"s2", "alice", "yes"}, {"s2", "bob", "yes"},
		})
		res := agreement.FleissByQuestion(idx, reg, 5)

		Convey("Then the degenerate result still carries the flag", func() {
			r := res["q1"]
			So(r.Reason, ShouldEqual, agreement.ReasonDegenerateVariance)
			So(r.N, ShouldEqual, 2)
			So(r.LowConfidence, ShouldBeTrue)
		})
	})

	Convey("Given every rater choosing one category on every article", t, func() {
		r := agreement.FleissKappa([]map[string]int{{"yes": 2}, {"yes": 3}})

		Convey("Then chance agreement is 1 and kappa is undefined", func() {
			So(r.Defined(), ShouldBeFalse)
			So(r.Reason, ShouldEqual, agreement.ReasonDegenerateVariance)
		})
	})

	Convey("Given the Fleiss (1971) style worked example", t, func() {
		// 4 articles, 3 raters, categories a/b/c.
		counts := []map[string]int{
			{"a": 3},
			{"a": 2, "b": 1},
			{"b": 1, "c": 2},
			{"c": 3},
		}
		r := agreement.FleissKappa(counts)

		Convey("Then it matches the hand computation", func() {
			// P_i = 1, 1/3, 1/3, 1 -> Pbar = 2/3
			// p = a 5/12, b 2/12, c 5/12 -> Pe = (25+4+25)/144 = 54/144
			pe := 54.0 / 144
			So(*r.Observed, ShouldAlmostEqual, 2.0/3, 1e-12)
			So(*r.Expected, ShouldAlmostEqual, pe, 1e-12)
			So(*r.Value, ShouldAlmostEqual, (2.0/3-pe)/(1-pe), 1e-12)
		})
	})
}

func TestICC(t *testing.T) {
	Convey("Given raters in perfect agreement across varied subjects", t, func() {
		r := agreement.ICC([][]float64{{10, 10}, {4, 4, 4}, {7, 7}})

		Convey("Then the ICC is 1", func() {
			So(*r.Value, ShouldAlmostEqual, 1.0, 1e-12)
			So(*r.Raw, ShouldAlmostEqual, 1.0, 1e-12)
			So(r.N, ShouldEqual, 3)
			So(r.Ratings, ShouldEqual, 7)
		})
	})

	Convey("Given a ragged design", t, func() {
		r := agreement.ICC([][]float64{{9, 8}, {2, 3, 2}, {5, 6}, {1}})

		Convey("Then single-rater subjects are excluded", func() {
			So(r.N, ShouldEqual, 3)
			So(r.Ratings, ShouldEqual, 7)
		})

		Convey("And k-bar is the harmonic mean group size", func() {
			So(r.KBar, ShouldAlmostEqual, 3/(0.5+1.0/3+0.5), 1e-12)
		})

		Convey("And the raw value follows the ANOVA formula", func() {
			msb, mse := *r.MSB, *r.MSE
			want := (msb - mse) / (msb + (r.KBar-1)*mse)
			So(*r.Raw, ShouldAlmostEqual, want, 1e-12)
			So(*r.Raw, ShouldBeGreaterThan, 0.8)
		})
	})

	Convey("Given no between-subject variance but rater noise", t, func() {
		r := agreement.ICC([][]float64{{4, 6}, {6, 4}, {5, 5}})

		Convey("Then the raw value stays within [-1, 1]", func() {
			So(*r.MSB, ShouldAlmostEqual, 0.0, 1e-12)
			So(*r.Raw, ShouldBeLessThan, 0.0)
			So(*r.Raw, ShouldBeGreaterThanOrEqualTo, -1.0)
			So(*r.Value, ShouldEqual, *r.Raw)
		})
	})

	Convey("Given arbitrary ratings", t, func() {
		sets := [][][]float64{
			{{1, 9}, {9, 1}},
			{{0, 22, 11}, {3, 3}, {20, 0}},
			{{5, 5, 5, 6}, {2, 9}, {7, 7, 1}, {0, 0}},
		}

		Convey("Then the unclamped ICC lies in [-1, 1] whenever MSB >= 0", func() {
			for _, g := range sets {
				r := agreement.ICC(g)
				if r.Raw == nil {
					continue
				}
				So(*r.MSB, ShouldBeGreaterThanOrEqualTo, 0.0)
				So(*r.Raw, ShouldBeBetweenOrEqual, -1.0, 1.0)
				So(math.Abs(*r.Value), ShouldBeLessThanOrEqualTo, 1.0)
			}
		})
	})

	Convey("Given fewer than two multi-rater subjects", t, func() {
		r := agreement.ICC([][]float64{{3, 4}, {5}})

		Convey("Then the ICC is undefined", func() {
			So(r.Defined(), ShouldBeFalse)
			So(r.Reason, ShouldEqual, agreement.ReasonInsufficientSample)
			So(r.N, ShouldEqual, 1)
		})
	})

	Convey("Given identical totals everywhere", t, func() {
		r := agreement.ICC([][]float64{{5, 5}, {5, 5}})

		Convey("Then the variance is degenerate", func() {
			So(r.Defined(), ShouldBeFalse)
			So(r.Reason, ShouldEqual, agreement.ReasonDegenerateVariance)
		})
	})

	Convey("Given an index of total scores", t, func() {
		reg := binaryRegistry()
		idx := buildIndex(reg, "B1", [][3]string{
			{"s1", "alice", "yes"}, {"s1", "bob", "yes"},
			{"s2", "alice", "no"}, {"s2", "bob", "no"},
			{"s3", "carol", "yes"},
		})
		r := agreement.ICCTotals(idx)

		Convey("Then only multi-rater articles contribute", func() {
			So(r.N, ShouldEqual, 2)
			So(*r.Value, ShouldAlmostEqual, 1.0, 1e-12)
		})
	})

	Convey("Given Clamp", t, func() {
		So(agreement.Clamp(1.5), ShouldEqual, 1.0)
		So(agreement.Clamp(-3), ShouldEqual, -1.0)
		So(agreement.Clamp(0.25), ShouldEqual, 0.25)
	})
}
