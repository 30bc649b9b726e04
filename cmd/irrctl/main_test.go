package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"path/filepath"
	"testing"

	"github.com/okian/irr/internal/adapters/render"
	"github.com/okian/irr/internal/adapters/repository"
	app "github.com/okian/irr/internal/app"
	"github.com/okian/irr/internal/domain/rubric"
	"github.com/okian/irr/internal/domain/types"
	"github.com/okian/irr/internal/seed"
	"github.com/okian/irr/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestRun(t *testing.T) {
	convey.Convey("Given a seeded dataset file", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		data := filepath.Join(dir, "dataset.json")
		_, err := seed.Run(ctx, &seed.Config{
			Studies:        6,
			Reviewers:      3,
			RatersPerStudy: 2,
			Agreement:      0.8,
			TestRecords:    1,
			Versions:       []rubric.Version{"V1", "V2"},
			Seed:           11,
			OutputFile:     data,
		}, rubric.Default())
		convey.So(err, convey.ShouldBeNil)

		var out bytes.Buffer

		convey.Convey("When printing JSON for one version", func() {
			err := run(ctx, []string{"-data", data, "-format", "json", "-version", "v2"}, &out)

			convey.Convey("Then the report is filtered and excludes test records", func() {
				convey.So(err, convey.ShouldBeNil)
				var rep types.Report
				convey.So(json.Unmarshal(out.Bytes(), &rep), convey.ShouldBeNil)
				convey.So(rep.Summary.VersionFilter, convey.ShouldEqual, "V2")
				convey.So(rep.Summary.TotalArticles, convey.ShouldEqual, 3)
				convey.So(rep.Summary.TotalScores, convey.ShouldEqual, 6)
				convey.So(rep.Summary.VersionCounts["V1"], convey.ShouldEqual, 6)
			})
		})

		convey.Convey("When printing tables", func() {
			err := run(ctx, []string{"-data", data, "-limit", "2"}, &out)

			convey.Convey("Then the summary is followed by the article rows", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.String(), convey.ShouldContainSubstring, "version all, basis question")
				convey.So(out.String(), convey.ShouldContainSubstring, "Showing 2 of 6 articles")
			})
		})

		convey.Convey("When printing CSV with a total basis and exporting parquet", func() {
			exportDir := filepath.Join(dir, "exports")
			err := run(ctx, []string{"-data", data, "-format", "csv", "-table", render.TableArticles, "-basis", "total", "-export", "-export-dir", exportDir}, &out)

			convey.Convey("Then the article table is printed and the parquet files exist", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.String(), convey.ShouldStartWith, "study_id,reviewer_count")
				matches, err := filepath.Glob(filepath.Join(exportDir, "*.parquet"))
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(matches), convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When the version is unknown", func() {
			err := run(ctx, []string{"-data", data, "-version", "V9"}, &out)

			convey.Convey("Then the rubric error is returned", func() {
				convey.So(errors.Is(err, rubric.ErrUnknownVersion), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the format is unknown", func() {
			err := run(ctx, []string{"-data", data, "-format", "xml"}, &out)

			convey.Convey("Then the render error is returned", func() {
				convey.So(errors.Is(err, render.ErrUnknownFormat), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When help is requested", func() {
			err := run(ctx, []string{"-h"}, &out)

			convey.Convey("Then usage is printed", func() {
				convey.So(errors.Is(err, flag.ErrHelp), convey.ShouldBeTrue)
				convey.So(out.String(), convey.ShouldContainSubstring, "-export-dir")
			})
		})

		convey.Convey("When the dataset file is missing", func() {
			err := run(ctx, []string{"-data", filepath.Join(dir, "absent.json")}, &out)

			convey.Convey("Then the fetch fails", func() {
				convey.So(errors.Is(err, app.ErrFetch), convey.ShouldBeTrue)
				convey.So(errors.Is(err, repository.ErrNotFound), convey.ShouldBeTrue)
			})
		})
	})
}
