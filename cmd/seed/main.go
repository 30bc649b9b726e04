package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/irr/internal/domain/rubric"
	"github.com/okian/irr/internal/seed"
	"github.com/okian/irr/pkg/logger"
)

func main() {
	var (
		studies     = flag.Int("studies", seed.DefaultStudies, "Number of studies")
		reviewers   = flag.Int("reviewers", seed.DefaultReviewers, "Number of registered reviewers")
		raters      = flag.Int("raters", seed.DefaultRatersPerStudy, "Reviewers assigned to each study")
		agreement   = flag.Float64("agreement", seed.DefaultAgreement, "Probability a rater gives the consensus answer")
		testRecords = flag.Int("test-records", seed.DefaultTestRecords, "Extra records flagged [TEST]")
		versions    = flag.String("versions", "V1", "Comma-separated rubric versions")
		rubricFile  = flag.String("rubrics", "", "YAML file with additional rubric versions")
		seedValue   = flag.Int64("seed", 1, "Random seed")
		outputFile  = flag.String("out", "data/dataset.json", "JSON dataset file")
		sqliteDSN   = flag.String("sqlite", "", "SQLite database to import into")
		verifyURL   = flag.String("verify", "", "Base URL of a running server to verify")
		timeout     = flag.Duration("timeout", seed.DefaultTimeout, "HTTP request timeout")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		seed.ShowHelp(os.Stdout)
		return
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	cfg := &seed.Config{
		Studies:        *studies,
		Reviewers:      *reviewers,
		RatersPerStudy: *raters,
		Agreement:      *agreement,
		TestRecords:    *testRecords,
		Versions:       seed.ParseVersions(*versions),
		Seed:           *seedValue,
		OutputFile:     *outputFile,
		SQLiteDSN:      *sqliteDSN,
		VerifyURL:      *verifyURL,
		Timeout:        *timeout,
	}

	if err := run(cfg, *rubricFile); err != nil {
		logger.Get().Error(context.Background(), "seeding failed", logger.Error(err))
		os.Exit(1)
	}
}

func run(cfg *seed.Config, rubricFile string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider := rubric.Default()
	if rubricFile != "" {
		extra, err := rubric.LoadFile(rubricFile)
		if err != nil {
			return err
		}
		provider = provider.Merge(extra)
	}
	_, err := seed.Run(ctx, cfg, provider)
	return err
}
