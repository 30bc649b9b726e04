package seed

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/irr/internal/adapters/repository"
	"github.com/okian/irr/internal/domain/model"
	"github.com/okian/irr/internal/domain/rubric"
	"github.com/okian/irr/pkg/logger"
)

// Run generates a dataset, writes it to every configured sink and optionally
// verifies a running server against it.
func Run(ctx context.Context, cfg *Config, provider rubric.Provider) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}

	ds, err := Generate(ctx, cfg, provider)
	if err != nil {
		return nil, fmt.Errorf("dataset generation failed: %w", err)
	}
	stats.StudiesGenerated = len(ds.Studies)
	stats.ReviewersGenerated = len(ds.Reviewers)
	stats.ScoresGenerated = len(ds.Scores) - cfg.TestRecords
	stats.TestRecords = cfg.TestRecords

	if cfg.OutputFile == "" && cfg.SQLiteDSN == "" {
		logger.Get().Warn(ctx, "no output configured; dataset is generated but not stored")
	}
	if cfg.OutputFile != "" {
		if err := writeFile(ctx, cfg.OutputFile, ds); err != nil {
			return nil, fmt.Errorf("writing dataset file failed: %w", err)
		}
	}
	if cfg.SQLiteDSN != "" {
		if err := writeSQLite(ctx, cfg.SQLiteDSN, ds); err != nil {
			return nil, fmt.Errorf("writing sqlite database failed: %w", err)
		}
	}
	if cfg.VerifyURL != "" {
		if err := verifyServer(ctx, cfg, stats); err != nil {
			return nil, fmt.Errorf("server verification failed: %w", err)
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, nil
}

func writeFile(ctx context.Context, path string, ds model.Dataset) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := repository.NewFileStore(path).Import(ctx, ds); err != nil {
		return err
	}
	logger.Get().Info(ctx, "dataset saved to file", logger.String("filename", path))
	return nil
}

func writeSQLite(ctx context.Context, dsn string, ds model.Dataset) error {
	store, err := repository.OpenSQLite(dsn)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close sqlite store", logger.Error(err))
		}
	}()
	if err := store.Import(ctx, ds); err != nil {
		return err
	}
	logger.Get().Info(ctx, "dataset saved to sqlite", logger.String("dsn", dsn))
	return nil
}

// displayFinalStats logs the run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	logger.Get().Info(ctx, "final statistics",
		logger.Int("studies", stats.StudiesGenerated),
		logger.Int("reviewers", stats.ReviewersGenerated),
		logger.Int("scores", stats.ScoresGenerated),
		logger.Int("testRecords", stats.TestRecords),
		logger.Duration("duration", stats.Duration))
}
