package report_test

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/okian/irr/internal/domain/agreement"
	"github.com/okian/irr/internal/domain/model"
	"github.com/okian/irr/internal/domain/report"
	"github.com/okian/irr/internal/domain/rubric"
	. "github.com/smartystreets/goconvey/convey"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func answersAll(tok string) map[string]string {
	out := make(map[string]string, 11)
	for i := 1; i <= 11; i++ {
		out[fmt.Sprintf("q%d", i)] = tok
	}
	return out
}

func rec(id, study, rater, version string, answers map[string]string, minute int) model.ScoreRecord {
	return model.ScoreRecord{
		ID:            id,
		StudyID:       study,
		RaterAlias:    rater,
		RubricVersion: version,
		Answers:       answers,
		Timestamp:     fixedNow.Add(-time.Duration(minute) * time.Minute),
	}
}

func newEngine(opts ...report.Option) *report.Engine {
	opts = append([]report.Option{
		report.WithClock(func() time.Time { return fixedNow }),
		report.WithIDGenerator(func() string { return "rep-1" }),
	}, opts...)
	return report.NewEngine(rubric.Default(), opts...)
}

func TestEngineBuild(t *testing.T) {
	ctx := context.Background()

	Convey("Given a mixed dataset", t, func() {
		scores := []model.ScoreRecord{
			rec("1", "s1", "alice", "V1", answersAll("yes"), 50),
			rec("2", "s1", "bob", "V1", answersAll("yes"), 49),
			rec("3", "s2", "alice", "V1", answersAll("no"), 48),
			rec("4", "s2", "bob", "V1", answersAll("no"), 47),
			rec("5", "s3", "carol", "V2", answersAll("yes"), 46),
			rec("6", "s1", "dave", "V1", answersAll("yes"), 45),
			rec("7", "s4", "erin", "V9", answersAll("yes"), 44),
			rec("8", "", "erin", "V1", answersAll("yes"), 43),
		}
		scores[5].Notes = "calibration run [calibration]"
		// Older duplicate of alice on s1.
		scores = append(scores, rec("0", "s1", "alice", "V1", answersAll("no"), 90))

		Convey("When building without a filter", func() {
			rep, err := newEngine().Build(ctx, report.Input{
				Scores:    scores,
				Studies:   []model.Study{{ID: "s1", Citation: "Doe 2020"}},
				Reviewers: []model.Reviewer{{Alias: "alice", DisplayName: "Alice"}},
			})
			So(err, ShouldBeNil)

			Convey("Then the summary reflects the cleaned data", func() {
				So(rep.Summary.ReportID, ShouldEqual, "rep-1")
				So(rep.Summary.GeneratedAt, ShouldEqual, fixedNow)
				So(rep.Summary.TotalArticles, ShouldEqual, 3)
				So(rep.Summary.TotalScores, ShouldEqual, 5)
				So(rep.Summary.TotalReviewers, ShouldEqual, 3)
				So(rep.Summary.ArticlesWithMultipleReviewers, ShouldEqual, 2)
				So(rep.Summary.ComparisonBasis, ShouldEqual, "question")
				So(rep.Summary.VersionCounts, ShouldResemble, map[string]int{"V1": 5, "V2": 1})
			})

			Convey("And every dropped record is accounted for", func() {
				d := rep.Diagnostics
				So(d.Received, ShouldEqual, 9)
				So(d.Excluded, ShouldEqual, 1)
				So(d.Malformed, ShouldEqual, 1)
				So(d.UnknownVersion, ShouldEqual, 1)
				So(d.Duplicates, ShouldEqual, 1)
			})

			Convey("And mixed versions qualify the question keys", func() {
				So(rep.IRR.FleissKappas, ShouldContainKey, "V1/q1")
				So(rep.IRR.FleissKappas, ShouldContainKey, "V2/q1")
				So(rep.Distributions["V1/q1"], ShouldResemble, map[string]int{"yes": 2, "partial": 0, "no": 2})
				So(rep.IRR.FleissKappas["V2/q1"].Defined(), ShouldBeFalse)
			})

			Convey("And agreement statistics are populated", func() {
				So(len(rep.IRR.CohensKappaPairs), ShouldEqual, 1)
				So(*rep.IRR.CohensKappaPairs[0].Kappa.Value, ShouldAlmostEqual, 1.0, 1e-12)
				So(*rep.Summary.OverallAgreement.Value, ShouldEqual, 100.0)
				So(rep.IRR.ICC.N, ShouldEqual, 2)
			})
		})

		Convey("When filtering by a lower-case version", func() {
			rep, err := newEngine().Build(ctx, report.Input{Scores: scores, Version: "v1"})
			So(err, ShouldBeNil)

			Convey("Then the filter is canonical and counts are pre-filter", func() {
				So(rep.Summary.VersionFilter, ShouldEqual, "V1")
				So(rep.Summary.VersionCounts["V2"], ShouldEqual, 1)
				So(rep.Diagnostics.VersionFiltered, ShouldEqual, 1)
				So(rep.Summary.TotalScores, ShouldEqual, 4)
			})

			Convey("And single-version keys are bare", func() {
				So(rep.IRR.FleissKappas, ShouldContainKey, "q1")
				So(rep.Distributions, ShouldContainKey, "q11")
			})
		})

		Convey("When the input asks for the total basis", func() {
			rep, err := newEngine().Build(ctx, report.Input{Scores: scores, Basis: agreement.BasisTotal})
			So(err, ShouldBeNil)

			Convey("Then the pair compares one item per shared study", func() {
				So(rep.Summary.ComparisonBasis, ShouldEqual, "total")
				So(rep.IRR.CohensKappaPairs[0].Kappa.N, ShouldEqual, 2)
			})
		})

		Convey("When an unknown basis is supplied", func() {
			rep, err := newEngine(report.WithBasis(agreement.BasisTotal)).Build(ctx, report.Input{Scores: scores, Basis: "median"})
			So(err, ShouldBeNil)

			Convey("Then the engine default is used", func() {
				So(rep.Summary.ComparisonBasis, ShouldEqual, "total")
			})
		})
	})

	Convey("Given no data at all", t, func() {
		rep, err := newEngine().Build(ctx, report.Input{})

		Convey("Then the report is empty but well formed", func() {
			So(err, ShouldBeNil)
			So(rep.IRR.CohensKappaPairs, ShouldNotBeNil)
			So(rep.IRR.CohensKappaPairs, ShouldBeEmpty)
			So(rep.IRR.ICC.Defined(), ShouldBeFalse)
			So(rep.Summary.OverallAgreement.Defined(), ShouldBeFalse)

			b, err := json.Marshal(rep)
			So(err, ShouldBeNil)
			So(string(b), ShouldContainSubstring, `"cohensKappaPairs":[]`)
		})
	})

	Convey("Given an engine without a provider", t, func() {
		_, err := report.NewEngine(nil).Build(ctx, report.Input{})

		Convey("Then the build fails", func() {
			So(err, ShouldEqual, report.ErrNoProvider)
		})
	})
}

func TestTotalsRoundTrip(t *testing.T) {
	Convey("Given random answers under every built-in version", t, func() {
		reg := rubric.Default()
		rnd := rand.New(rand.NewSource(7))
		var scores []model.ScoreRecord
		want := make(map[string]int)
		corrupt := make(map[string]bool)
		study := func(i int) string { return fmt.Sprintf("s%02d", i) }

		for i := 0; i < 40; i++ {
			v := reg.Versions()[i%2]
			rb, _ := reg.Rubric(v)
			answers := make(map[string]string)
			total := 0
			for _, q := range rb.Questions() {
				switch rnd.Intn(5) {
				case 0:
					// missing
				case 1:
					answers[q.ID] = "garbage"
					corrupt[study(i)] = true
				default:
					o := q.Options[rnd.Intn(len(q.Options))]
					answers[q.ID] = o.Token
					total += o.Score
				}
			}
			want[study(i)] = total
			scores = append(scores, rec(fmt.Sprint(i), study(i), "solo", string(v), answers, i))
		}

		rep, err := newEngine().Build(context.Background(), report.Input{Scores: scores})
		So(err, ShouldBeNil)

		Convey("Then every clean total is the sum of its answered slots", func() {
			So(len(rep.Articles), ShouldEqual, 40)
			for _, a := range rep.Articles {
				if corrupt[a.StudyID] {
					So(a.MeanTotal, ShouldEqual, 0.0)
					So(a.StdDev, ShouldBeNil)
					continue
				}
				So(a.MeanTotal, ShouldEqual, float64(want[a.StudyID]))
			}
			So(rep.Diagnostics.PartialInvalid, ShouldEqual, len(corrupt))
		})
	})
}

func TestUnusableRecords(t *testing.T) {
	ctx := context.Background()

	Convey("Given two raters in full agreement on three studies", t, func() {
		var scores []model.ScoreRecord
		for i, tok := range []string{"yes", "partial", "no"} {
			study := fmt.Sprintf("s%d", i+1)
			scores = append(scores,
				rec(study+"a", study, "alice", "V1", answersAll(tok), 10),
				rec(study+"b", study, "bob", "V1", answersAll(tok), 10),
			)
		}
		clean, err := newEngine().Build(ctx, report.Input{Scores: scores})
		So(err, ShouldBeNil)
		So(*clean.IRR.ICC.Raw, ShouldAlmostEqual, 1.0, 1e-12)

		Convey("When a third rater submits nothing but unknown tokens", func() {
			dirty := append(scores, rec("junk", "s1", "carol", "V1", map[string]string{"q1": "garbage", "q2": "???"}, 5))
			rep, err := newEngine().Build(ctx, report.Input{Scores: dirty})
			So(err, ShouldBeNil)

			Convey("Then the record is dropped and counted", func() {
				So(rep.Diagnostics.Unresolved, ShouldEqual, 1)
				So(rep.Summary.TotalScores, ShouldEqual, 6)
				So(rep.Reviewers, ShouldHaveLength, 2)
			})

			Convey("And the totals are untouched", func() {
				So(*rep.IRR.ICC.Raw, ShouldAlmostEqual, 1.0, 1e-12)
				So(rep.Articles[0].MinTotal, ShouldEqual, clean.Articles[0].MinTotal)
				So(rep.Articles[0].MeanTotal, ShouldEqual, clean.Articles[0].MeanTotal)
			})
		})

		Convey("When a third rater mixes valid and unknown tokens", func() {
			answers := answersAll("partial")
			answers["q1"] = "maybe"
			mixed := append(scores, rec("mixed", "s2", "carol", "V1", answers, 5))
			rep, err := newEngine(report.WithBasis(agreement.BasisTotal)).Build(ctx, report.Input{Scores: mixed})
			So(err, ShouldBeNil)

			Convey("Then its valid slots still count per question", func() {
				So(rep.Diagnostics.PartialInvalid, ShouldEqual, 1)
				So(rep.Distributions["q2"]["partial"], ShouldEqual, 3)
				So(rep.Distributions["q1"]["partial"], ShouldEqual, 2)
			})

			Convey("And its total stays out of every total-based statistic", func() {
				So(*rep.IRR.ICC.Raw, ShouldAlmostEqual, 1.0, 1e-12)
				So(rep.IRR.ICC.Ratings, ShouldEqual, 6)
				So(rep.Articles[1].ReviewerCount, ShouldEqual, 3)
				So(rep.Articles[1].MeanTotal, ShouldEqual, clean.Articles[1].MeanTotal)
				So(*rep.Articles[1].StdDev, ShouldEqual, 0.0)

				for _, r := range rep.Reviewers {
					if r.Alias == "carol" {
						So(r.ScoreCount, ShouldEqual, 1)
						So(r.MeanTotal, ShouldBeNil)
					}
				}
				for _, p := range rep.IRR.CohensKappaPairs {
					if p.RaterB == "carol" {
						So(p.Kappa.Defined(), ShouldBeFalse)
					}
				}
			})
		})
	})
}
