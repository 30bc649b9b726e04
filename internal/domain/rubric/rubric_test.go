package rubric_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/irr/internal/domain/rubric"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRubricResolve(t *testing.T) {
	Convey("Given the built-in registry", t, func() {
		reg := rubric.Default()

		Convey("Then it should list V1 and V2 in order", func() {
			So(reg.Versions(), ShouldResemble, []rubric.Version{rubric.V1, rubric.V2})
		})

		Convey("When resolving V1 answers", func() {
			r, err := reg.Rubric(rubric.V1)
			So(err, ShouldBeNil)

			Convey("Then canonical tokens resolve with their score", func() {
				a := r.Resolve("q1", "yes")
				So(a.State, ShouldEqual, rubric.Answered)
				So(a.Token, ShouldEqual, "yes")
				So(a.Score, ShouldEqual, 2)
			})

			Convey("And case, whitespace and aliases are folded", func() {
				So(r.Resolve("q4", "  Partially ").Token, ShouldEqual, "partial")
				So(r.Resolve("q4", "N").Token, ShouldEqual, "no")
			})

			Convey("And blank input is missing, not zero", func() {
				a := r.Resolve("q2", "   ")
				So(a.State, ShouldEqual, rubric.Missing)
				So(a.IsAnswered(), ShouldBeFalse)
			})

			Convey("And unknown tokens or questions are invalid", func() {
				So(r.Resolve("q2", "maybe").State, ShouldEqual, rubric.Invalid)
				So(r.Resolve("q2", "maybe").Token, ShouldEqual, "maybe")
				So(r.Resolve("q99", "yes").State, ShouldEqual, rubric.Invalid)
			})

			Convey("And the maximum score is two points per question", func() {
				So(len(r.Questions()), ShouldEqual, 11)
				So(r.MaxScore(), ShouldEqual, 22)
			})
		})

		Convey("When resolving V2 answers", func() {
			r, err := reg.Rubric(rubric.V2)
			So(err, ShouldBeNil)

			Convey("Then question-specific option sets apply", func() {
				So(r.Resolve("q2", "Case-Control").Token, ShouldEqual, "case_control")
				So(r.Resolve("q2", "case control").Score, ShouldEqual, 1)
				So(r.Resolve("q3", "adequate").Score, ShouldEqual, 2)
				So(r.Resolve("q11", "yes").Token, ShouldEqual, "disclosed")
				So(r.Resolve("q3", "partial").State, ShouldEqual, rubric.Invalid)
			})

			Convey("And the maximum score sums per-question maxima", func() {
				// 8 yes/no/unclear questions + rct + adequate + disclosed
				So(r.MaxScore(), ShouldEqual, 8+3+2+1)
			})
		})

		Convey("When asking for an unknown version", func() {
			_, err := reg.Rubric("V9")

			Convey("Then ErrUnknownVersion is returned", func() {
				So(errors.Is(err, rubric.ErrUnknownVersion), ShouldBeTrue)
			})
		})
	})
}

func TestRubricValidation(t *testing.T) {
	Convey("Given malformed question tables", t, func() {
		Convey("Then duplicate question ids are rejected", func() {
			_, err := rubric.New("X", []rubric.Question{
				{ID: "q1", Options: []rubric.Option{{Token: "a"}}},
				{ID: "q1", Options: []rubric.Option{{Token: "a"}}},
			})
			So(errors.Is(err, rubric.ErrInvalidRubric), ShouldBeTrue)
		})

		Convey("Then duplicate tokens are rejected", func() {
			_, err := rubric.New("X", []rubric.Question{
				{ID: "q1", Options: []rubric.Option{{Token: "Yes"}, {Token: "yes "}}},
			})
			So(errors.Is(err, rubric.ErrInvalidRubric), ShouldBeTrue)
		})

		Convey("Then empty versions and option lists are rejected", func() {
			_, err := rubric.New("", []rubric.Question{{ID: "q1", Options: []rubric.Option{{Token: "a"}}}})
			So(err, ShouldNotBeNil)
			_, err = rubric.New("X", []rubric.Question{{ID: "q1"}})
			So(err, ShouldNotBeNil)
		})

		Convey("Then duplicate versions in a registry are rejected", func() {
			a, _ := rubric.New("X", []rubric.Question{{ID: "q1", Options: []rubric.Option{{Token: "a"}}}})
			b, _ := rubric.New("X", []rubric.Question{{ID: "q1", Options: []rubric.Option{{Token: "b"}}}})
			_, err := rubric.NewRegistry(a, b)
			So(errors.Is(err, rubric.ErrInvalidRubric), ShouldBeTrue)
		})
	})
}

func TestLoadFile(t *testing.T) {
	Convey("Given a YAML rubric file", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "rubrics.yaml")
		content := `rubrics:
  - version: V3
    questions:
      - id: q1
        label: Question one
        options:
          - token: "yes"
            score: 1
            aliases: ["y"]
          - token: "no"
            score: 0
      - id: q2
        label: Question two
        options:
          - token: high
            score: 2
          - token: low
            score: 0
`
		So(os.WriteFile(path, []byte(content), 0o600), ShouldBeNil)

		Convey("When loading it", func() {
			reg, err := rubric.LoadFile(path)
			So(err, ShouldBeNil)

			Convey("Then the version is available and resolves answers", func() {
				r, err := reg.Rubric("V3")
				So(err, ShouldBeNil)
				So(r.Resolve("q1", "Y").Token, ShouldEqual, "yes")
				So(r.MaxScore(), ShouldEqual, 3)
			})

			Convey("And merging with the defaults keeps all versions", func() {
				merged := rubric.Default().Merge(reg)
				So(merged.Versions(), ShouldResemble, []rubric.Version{rubric.V1, rubric.V2, "V3"})
			})
		})

		Convey("When the file does not exist", func() {
			_, err := rubric.LoadFile(filepath.Join(dir, "missing.yaml"))

			Convey("Then ErrLoadRubric is returned", func() {
				So(errors.Is(err, rubric.ErrLoadRubric), ShouldBeTrue)
			})
		})
	})
}
