package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/irr/internal/domain/types"
	"github.com/okian/irr/pkg/logger"
)

// Verification retry constants. The file repository picks up a new dataset
// on its next reload, so the first report may still be stale.
const (
	verifyAttempts = 5
	verifyDelay    = 2 * time.Second
)

// verifyServer polls the server until its report reflects the seeded dataset.
func verifyServer(ctx context.Context, cfg *Config, stats *Stats) error {
	client := newHTTPClient(cfg.Timeout)
	var lastErr error
	for attempt := 1; attempt <= verifyAttempts; attempt++ {
		rep, err := client.fetchReport(ctx, cfg.VerifyURL)
		if err != nil {
			return err
		}
		if lastErr = verifyReport(rep, stats); lastErr == nil {
			logReport(ctx, rep)
			return nil
		}
		if !errors.Is(lastErr, ErrVerify) || attempt == verifyAttempts {
			break
		}
		logger.Get().Info(ctx, "server report not current yet; retrying",
			logger.Int("attempt", attempt), logger.Error(lastErr))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(verifyDelay):
		}
	}
	return lastErr
}

// verifyReport checks the headline counts of rep against what was seeded.
func verifyReport(rep *types.Report, stats *Stats) error {
	switch {
	case rep.Summary.TotalScores != stats.ScoresGenerated:
		return fmt.Errorf("%w: report has %d scores, seeded %d", ErrVerify, rep.Summary.TotalScores, stats.ScoresGenerated)
	case rep.Summary.TotalArticles != stats.StudiesGenerated:
		return fmt.Errorf("%w: report has %d articles, seeded %d", ErrVerify, rep.Summary.TotalArticles, stats.StudiesGenerated)
	case rep.Diagnostics.Excluded != stats.TestRecords:
		return fmt.Errorf("%w: report excluded %d records, seeded %d test records", ErrVerify, rep.Diagnostics.Excluded, stats.TestRecords)
	}
	return nil
}

func logReport(ctx context.Context, rep *types.Report) {
	fields := []logger.Field{
		logger.String("reportId", rep.Summary.ReportID),
		logger.Int("scores", rep.Summary.TotalScores),
		logger.Int("articles", rep.Summary.TotalArticles),
		logger.Int("pairs", len(rep.IRR.CohensKappaPairs)),
	}
	if v, ok := rep.Summary.OverallAgreement.Float(); ok {
		fields = append(fields, logger.Float64("overallAgreement", v))
	}
	if v, ok := rep.IRR.ICC.Float(); ok {
		fields = append(fields, logger.Float64("icc", v))
	}
	logger.Get().Info(ctx, "server report verified", fields...)
}
