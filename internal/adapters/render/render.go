// Package render prints reports for terminals and pipelines.
package render

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/okian/irr/internal/domain/agreement"
	"github.com/okian/irr/internal/domain/types"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatCSV   = "csv"
)

// CSV tables.
const (
	TablePairs    = "pairs"
	TableArticles = "articles"
	TableFleiss   = "fleiss"
)

const defaultPrecision = 3

var (
	// ErrUnknownFormat is returned for an unsupported output format.
	ErrUnknownFormat = errors.New("render: unknown format")
	// ErrUnknownTable is returned for an unsupported CSV table.
	ErrUnknownTable = errors.New("render: unknown table")
)

// Options controls how a report is printed.
type Options struct {
	Format    string
	Table     string
	Precision int
	UseColors bool
	// Limit caps the article rows of the table output; 0 prints all.
	Limit int
}

// Write prints rep to w in the format selected by opts.
func Write(w io.Writer, rep *types.Report, opts Options) error {
	if opts.Precision <= 0 {
		opts.Precision = defaultPrecision
	}
	switch opts.Format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
		return nil
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := writeCSV(cw, rep, opts); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
		cw.Flush()
		return cw.Error()
	case FormatTable, "":
		return writeTables(w, rep, opts)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}
}

// formatResult prints a defined value or the reason it is undefined.
func formatResult(r agreement.Result, precision int) string {
	if r.Value == nil {
		if r.Reason == "" {
			return "n/a"
		}
		return "n/a (" + string(r.Reason) + ")"
	}
	return strconv.FormatFloat(*r.Value, 'f', precision, 64)
}

func formatOptional(v *float64, precision int) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', precision, 64)
}

func fleissKeys(rep *types.Report) []string {
	keys := make([]string, 0, len(rep.IRR.FleissKappas))
	for k := range rep.IRR.FleissKappas {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type painter struct {
	high, moderate, low func(...any) string
}

func newPainter(useColors bool) painter {
	if !useColors {
		return painter{high: fmt.Sprint, moderate: fmt.Sprint, low: fmt.Sprint}
	}
	return painter{
		high:     color.New(color.FgGreen).SprintFunc(),
		moderate: color.New(color.FgYellow).SprintFunc(),
		low:      color.New(color.FgRed).SprintFunc(),
	}
}

func (p painter) tier(t types.Tier) string {
	switch t {
	case types.TierHigh:
		return p.high(string(t))
	case types.TierModerate:
		return p.moderate(string(t))
	case types.TierLow:
		return p.low(string(t))
	default:
		return ""
	}
}

// writeTables prints the summary lines followed by one table per section.
func writeTables(w io.Writer, rep *types.Report, opts Options) error {
	s := rep.Summary
	version := s.VersionFilter
	if version == "" {
		version = "all"
	}
	if _, err := fmt.Fprintf(w, "Report %s (version %s, basis %s)\n", s.ReportID, version, s.ComparisonBasis); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Articles: %d, scores: %d, reviewers: %d, multi-reviewed: %d\n",
		s.TotalArticles, s.TotalScores, s.TotalReviewers, s.ArticlesWithMultipleReviewers); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Overall agreement: %s%%, ICC: %s\n\n",
		formatResult(s.OverallAgreement, opts.Precision), formatResult(rep.IRR.ICC.Result, opts.Precision)); err != nil {
		return err
	}

	if err := writeTable(w, []string{"Rater A", "Rater B", "Shared", "Items", "Kappa"}, pairRows(rep, opts.Precision)); err != nil {
		return err
	}
	if err := writeTable(w, []string{"Question", "Articles", "Fleiss", "Low confidence"}, fleissRows(rep, opts.Precision)); err != nil {
		return err
	}

	p := newPainter(opts.UseColors)
	articles := rep.Articles
	if opts.Limit > 0 && len(articles) > opts.Limit {
		articles = articles[:opts.Limit]
	}
	data := make([][]string, 0, len(articles))
	for _, a := range articles {
		data = append(data, []string{
			a.StudyID,
			strconv.Itoa(a.ReviewerCount),
			strconv.FormatFloat(a.MeanTotal, 'f', opts.Precision, 64),
			strconv.Itoa(a.Range),
			formatOptional(a.StdDev, opts.Precision),
			p.tier(a.Tier),
		})
	}
	if err := writeTable(w, []string{"Study", "Reviewers", "Mean", "Range", "Std dev", "Tier"}, data); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Showing %d of %d articles\n", len(articles), len(rep.Articles))
	return err
}

func writeTable(w io.Writer, headers []string, data [][]string) error {
	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func pairRows(rep *types.Report, precision int) [][]string {
	rows := make([][]string, 0, len(rep.IRR.CohensKappaPairs))
	for _, pr := range rep.IRR.CohensKappaPairs {
		rows = append(rows, []string{
			pr.RaterA,
			pr.RaterB,
			strconv.Itoa(pr.SharedArticles),
			strconv.Itoa(pr.Kappa.N),
			formatResult(pr.Kappa, precision),
		})
	}
	return rows
}

func fleissRows(rep *types.Report, precision int) [][]string {
	keys := fleissKeys(rep)
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		r := rep.IRR.FleissKappas[k]
		rows = append(rows, []string{k, strconv.Itoa(r.N), formatResult(r, precision), strconv.FormatBool(r.LowConfidence)})
	}
	return rows
}

// writeCSV writes the table named by opts.Table, pairs by default.
func writeCSV(w *csv.Writer, rep *types.Report, opts Options) error {
	var header []string
	var rows [][]string
	switch strings.ToLower(opts.Table) {
	case TablePairs, "":
		header = []string{"rater_a", "rater_b", "shared_articles", "items", "kappa", "reason"}
		for _, pr := range rep.IRR.CohensKappaPairs {
			rows = append(rows, []string{
				pr.RaterA,
				pr.RaterB,
				strconv.Itoa(pr.SharedArticles),
				strconv.Itoa(pr.Kappa.N),
				formatOptional(pr.Kappa.Value, opts.Precision),
				string(pr.Kappa.Reason),
			})
		}
	case TableArticles:
		header = []string{"study_id", "reviewer_count", "mean_total", "min_total", "max_total", "std_dev", "mean_score_ratio", "tier"}
		for _, a := range rep.Articles {
			rows = append(rows, []string{
				a.StudyID,
				strconv.Itoa(a.ReviewerCount),
				strconv.FormatFloat(a.MeanTotal, 'f', opts.Precision, 64),
				strconv.Itoa(a.MinTotal),
				strconv.Itoa(a.MaxTotal),
				formatOptional(a.StdDev, opts.Precision),
				formatOptional(a.MeanScoreRatio, opts.Precision),
				string(a.Tier),
			})
		}
	case TableFleiss:
		header = []string{"question", "articles", "kappa", "low_confidence", "reason"}
		for _, k := range fleissKeys(rep) {
			r := rep.IRR.FleissKappas[k]
			rows = append(rows, []string{
				k,
				strconv.Itoa(r.N),
				formatOptional(r.Value, opts.Precision),
				strconv.FormatBool(r.LowConfidence),
				string(r.Reason),
			})
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTable, opts.Table)
	}
	if err := w.Write(header); err != nil {
		return err
	}
	return w.WriteAll(rows)
}
