// Package export writes report tables to Parquet files using
// github.com/parquet-go/parquet-go.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/okian/irr/internal/domain/types"
)

// ErrNoReport is returned when there is nothing to export.
var ErrNoReport = errors.New("export: nil report")

const dirPermission = 0750

// ArticleRow is one article summary of a report.
type ArticleRow struct {
	ReportID       string    `parquet:"report_id,snappy"`
	GeneratedAt    time.Time `parquet:"generated_at,snappy"`
	StudyID        string    `parquet:"study_id,snappy"`
	Citation       string    `parquet:"citation,snappy"`
	ReviewerCount  int32     `parquet:"reviewer_count,snappy"`
	MeanTotal      float64   `parquet:"mean_total,snappy"`
	MinTotal       int32     `parquet:"min_total,snappy"`
	MaxTotal       int32     `parquet:"max_total,snappy"`
	StdDev         *float64  `parquet:"std_dev,optional,snappy"`
	MeanScoreRatio *float64  `parquet:"mean_score_ratio,optional,snappy"`
	Tier           string    `parquet:"tier,snappy"`
}

// PairRow is one Cohen's kappa rater pair.
type PairRow struct {
	ReportID       string   `parquet:"report_id,snappy"`
	Basis          string   `parquet:"basis,snappy"`
	RaterA         string   `parquet:"rater_a,snappy"`
	RaterB         string   `parquet:"rater_b,snappy"`
	SharedArticles int32    `parquet:"shared_articles,snappy"`
	Items          int32    `parquet:"items,snappy"`
	Kappa          *float64 `parquet:"kappa,optional,snappy"`
	Observed       *float64 `parquet:"observed,optional,snappy"`
	Expected       *float64 `parquet:"expected,optional,snappy"`
	Reason         string   `parquet:"reason,snappy"`
}

// FleissRow is Fleiss' kappa for one question key.
type FleissRow struct {
	ReportID      string   `parquet:"report_id,snappy"`
	Question      string   `parquet:"question,snappy"`
	Kappa         *float64 `parquet:"kappa,optional,snappy"`
	Articles      int32    `parquet:"articles,snappy"`
	LowConfidence bool     `parquet:"low_confidence,snappy"`
	Reason        string   `parquet:"reason,snappy"`
}

// Files lists the paths written by WriteReport.
type Files struct {
	Articles string
	Pairs    string
	Fleiss   string
}

// ConvertArticles flattens the article summaries of rep.
func ConvertArticles(rep *types.Report) []ArticleRow {
	rows := make([]ArticleRow, len(rep.Articles))
	for i, a := range rep.Articles {
		rows[i] = ArticleRow{
			ReportID:       rep.Summary.ReportID,
			GeneratedAt:    rep.Summary.GeneratedAt,
			StudyID:        a.StudyID,
			Citation:       a.Citation,
			ReviewerCount:  int32(a.ReviewerCount),
			MeanTotal:      a.MeanTotal,
			MinTotal:       int32(a.MinTotal),
			MaxTotal:       int32(a.MaxTotal),
			StdDev:         a.StdDev,
			MeanScoreRatio: a.MeanScoreRatio,
			Tier:           string(a.Tier),
		}
	}
	return rows
}

// ConvertPairs flattens the Cohen's kappa pairs of rep.
func ConvertPairs(rep *types.Report) []PairRow {
	rows := make([]PairRow, len(rep.IRR.CohensKappaPairs))
	for i, p := range rep.IRR.CohensKappaPairs {
		rows[i] = PairRow{
			ReportID:       rep.Summary.ReportID,
			Basis:          rep.Summary.ComparisonBasis,
			RaterA:         p.RaterA,
			RaterB:         p.RaterB,
			SharedArticles: int32(p.SharedArticles),
			Items:          int32(p.Kappa.N),
			Kappa:          p.Kappa.Value,
			Observed:       p.Kappa.Observed,
			Expected:       p.Kappa.Expected,
			Reason:         string(p.Kappa.Reason),
		}
	}
	return rows
}

// ConvertFleiss flattens the per-question Fleiss' kappas of rep, ordered by
// question key.
func ConvertFleiss(rep *types.Report) []FleissRow {
	keys := make([]string, 0, len(rep.IRR.FleissKappas))
	for k := range rep.IRR.FleissKappas {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([]FleissRow, len(keys))
	for i, k := range keys {
		r := rep.IRR.FleissKappas[k]
		rows[i] = FleissRow{
			ReportID:      rep.Summary.ReportID,
			Question:      k,
			Kappa:         r.Value,
			Articles:      int32(r.N),
			LowConfidence: r.LowConfidence,
			Reason:        string(r.Reason),
		}
	}
	return rows
}

// WriteReport writes the article, pair and Fleiss tables of rep into dir,
// creating it if needed. File names are prefixed with the report id.
func WriteReport(rep *types.Report, dir string) (Files, error) {
	if rep == nil {
		return Files{}, ErrNoReport
	}
	if err := os.MkdirAll(dir, dirPermission); err != nil {
		return Files{}, fmt.Errorf("failed to create export directory: %w", err)
	}
	prefix := rep.Summary.ReportID
	if prefix == "" {
		prefix = "report"
	}
	files := Files{
		Articles: filepath.Join(dir, prefix+"_articles.parquet"),
		Pairs:    filepath.Join(dir, prefix+"_pairs.parquet"),
		Fleiss:   filepath.Join(dir, prefix+"_fleiss.parquet"),
	}
	if err := writeParquet(files.Articles, ConvertArticles(rep)); err != nil {
		return Files{}, err
	}
	if err := writeParquet(files.Pairs, ConvertPairs(rep)); err != nil {
		return Files{}, err
	}
	if err := writeParquet(files.Fleiss, ConvertFleiss(rep)); err != nil {
		return Files{}, err
	}
	return files, nil
}

// writeParquet writes rows to path with a schema inferred from T's tags.
func writeParquet[T any](path string, rows []T) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if len(rows) > 0 {
		if _, err := writer.Write(rows); err != nil {
			_ = writer.Close()
			return fmt.Errorf("failed to write data to parquet file %s: %w", path, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish parquet file %s: %w", path, err)
	}
	return file.Close()
}
