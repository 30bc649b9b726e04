package export

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/irr/internal/domain/agreement"
	"github.com/okian/irr/internal/domain/types"
)

func ptr(f float64) *float64 { return &f }

func sampleReport() *types.Report {
	return &types.Report{
		Summary: types.Summary{
			ReportID:        "rep-7",
			GeneratedAt:     time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC),
			ComparisonBasis: "question",
		},
		IRR: types.IRR{
			CohensKappaPairs: []agreement.Pair{
				{RaterA: "ana", RaterB: "bo", SharedArticles: 4, Kappa: agreement.Result{Statistic: "cohen_kappa", Value: ptr(0.62), N: 44, Observed: ptr(0.8), Expected: ptr(0.47)}},
				{RaterA: "ana", RaterB: "cy", SharedArticles: 1, Kappa: agreement.Result{Statistic: "cohen_kappa", N: 11, Reason: agreement.ReasonDegenerateVariance}},
			},
			FleissKappas: map[string]agreement.Result{
				"q2": {Statistic: "fleiss_kappa", Value: ptr(0.4), N: 3, LowConfidence: true},
				"q1": {Statistic: "fleiss_kappa", N: 1, Reason: agreement.ReasonInsufficientSample},
			},
		},
		Articles: []types.ArticleSummary{
			{StudyID: "study-001", Citation: "Doe 2021", ReviewerCount: 2, MeanTotal: 7.5, MinTotal: 7, MaxTotal: 8, StdDev: ptr(0.707), MeanScoreRatio: ptr(0.68), Tier: types.TierModerate},
			{StudyID: "study-002", ReviewerCount: 1, MeanTotal: 3, MinTotal: 3, MaxTotal: 3},
		},
	}
}

func readRows[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	reader := parquet.NewGenericReader[T](f)
	defer func() { _ = reader.Close() }()
	rows := make([]T, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return rows[:n], nil
}

func TestConvert(t *testing.T) {
	Convey("Given a report", t, func() {
		rep := sampleReport()

		Convey("Then articles keep their optional spread", func() {
			rows := ConvertArticles(rep)
			So(len(rows), ShouldEqual, 2)
			So(rows[0].ReportID, ShouldEqual, "rep-7")
			So(*rows[0].StdDev, ShouldAlmostEqual, 0.707)
			So(rows[0].Tier, ShouldEqual, "moderate")
			So(rows[1].StdDev, ShouldBeNil)
			So(rows[1].MeanScoreRatio, ShouldBeNil)
		})

		Convey("And pairs carry the basis and undefined reasons", func() {
			rows := ConvertPairs(rep)
			So(rows[0].Basis, ShouldEqual, "question")
			So(rows[0].Items, ShouldEqual, 44)
			So(rows[1].Kappa, ShouldBeNil)
			So(rows[1].Reason, ShouldEqual, string(agreement.ReasonDegenerateVariance))
		})

		Convey("And Fleiss rows are ordered by question", func() {
			rows := ConvertFleiss(rep)
			So(rows[0].Question, ShouldEqual, "q1")
			So(rows[1].Question, ShouldEqual, "q2")
			So(rows[1].LowConfidence, ShouldBeTrue)
		})
	})
}

func TestWriteReport(t *testing.T) {
	Convey("Given a report and an output directory", t, func() {
		dir := filepath.Join(t.TempDir(), "out")
		rep := sampleReport()

		Convey("When writing the report", func() {
			files, err := WriteReport(rep, dir)
			So(err, ShouldBeNil)

			Convey("Then every table is named after the report", func() {
				So(files.Articles, ShouldEqual, filepath.Join(dir, "rep-7_articles.parquet"))
				So(files.Pairs, ShouldEqual, filepath.Join(dir, "rep-7_pairs.parquet"))
				So(files.Fleiss, ShouldEqual, filepath.Join(dir, "rep-7_fleiss.parquet"))
			})

			Convey("And the article table reads back", func() {
				rows, err := readRows[ArticleRow](files.Articles)
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, 2)
				So(rows[0].StudyID, ShouldEqual, "study-001")
				So(rows[0].GeneratedAt.Equal(rep.Summary.GeneratedAt), ShouldBeTrue)
				So(rows[1].StdDev, ShouldBeNil)
			})

			Convey("And the pair table reads back", func() {
				rows, err := readRows[PairRow](files.Pairs)
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, 2)
				So(*rows[0].Kappa, ShouldAlmostEqual, 0.62)
				So(rows[1].Kappa, ShouldBeNil)
			})

			Convey("And the Fleiss table has the expected columns", func() {
				rows, err := readRows[FleissRow](files.Fleiss)
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, 2)
				schema := parquet.SchemaOf(new(FleissRow))
				for _, col := range []string{"report_id", "question", "kappa", "articles", "low_confidence", "reason"} {
					_, ok := schema.Lookup(col)
					So(ok, ShouldBeTrue)
				}
			})
		})

		Convey("When the report has no rows", func() {
			files, err := WriteReport(&types.Report{}, dir)

			Convey("Then empty tables are still written", func() {
				So(err, ShouldBeNil)
				So(filepath.Base(files.Pairs), ShouldEqual, "report_pairs.parquet")
				rows, err := readRows[PairRow](files.Pairs)
				So(err, ShouldBeNil)
				So(rows, ShouldBeEmpty)
			})
		})

		Convey("When the report is nil", func() {
			_, err := WriteReport(nil, dir)

			Convey("Then nothing is written", func() {
				So(errors.Is(err, ErrNoReport), ShouldBeTrue)
			})
		})
	})
}
