// Command irrctl builds an inter-rater reliability report offline from a
// dataset file or sqlite database and prints it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/okian/irr/internal/adapters/export"
	"github.com/okian/irr/internal/adapters/render"
	app "github.com/okian/irr/internal/app"
	"github.com/okian/irr/internal/config"
	"github.com/okian/irr/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		os.Stderr.WriteString("failed to read .env: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.Init(logger.WithOutput(os.Stderr)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		logger.Get().Error(context.Background(), "irrctl failed", logger.Error(err))
		os.Exit(1)
	}
}

// run parses args over the loaded configuration, builds one report and
// writes it to stdout.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	flags := flag.NewFlagSet("irrctl", flag.ContinueOnError)
	flags.SetOutput(stdout)
	flags.StringVar(&cfg.Backend, "backend", cfg.Backend, "Repository backend: file or sqlite")
	flags.StringVar(&cfg.DataFile, "data", cfg.DataFile, "JSON dataset file")
	flags.StringVar(&cfg.SQLiteDSN, "sqlite", cfg.SQLiteDSN, "SQLite database")
	flags.StringVar(&cfg.RubricFile, "rubrics", cfg.RubricFile, "YAML file with additional rubric versions")
	flags.BoolVar(&cfg.StrictAnswers, "strict", cfg.StrictAnswers, "Drop records with unknown answer tokens")
	version := flags.String("version", "", "Rubric version filter; empty for every version")
	basis := flags.String("basis", cfg.ComparisonBasis, "Cohen's kappa basis: question or total")
	format := flags.String("format", render.FormatTable, "Output format: table, json or csv")
	table := flags.String("table", render.TablePairs, "CSV table: pairs, articles or fleiss")
	precision := flags.Int("precision", 3, "Decimal places")
	limit := flags.Int("limit", 0, "Article rows to print in table output; 0 prints all")
	useColors := flags.Bool("color", false, "Color quality tiers")
	exportParquet := flags.Bool("export", false, "Also write parquet tables to the export directory")
	flags.StringVar(&cfg.ExportDir, "export-dir", cfg.ExportDir, "Directory receiving parquet tables")
	verbose := flags.Bool("verbose", false, "Enable verbose logging")
	if err := flags.Parse(args); err != nil {
		return err
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	_ = logger.SetLevelString(level)

	provider, err := app.BuildProvider(cfg)
	if err != nil {
		return err
	}
	repo, err := app.OpenRepository(cfg)
	if err != nil {
		return err
	}
	svc := app.New(
		app.WithLogger(logger.Get()),
		app.WithRepository(repo),
		app.WithEngine(app.BuildEngine(cfg, provider)),
		app.WithFetchTimeout(cfg.FetchTimeout),
		app.WithIngestion(false),
	)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	rep, err := svc.Report(ctx, *version, *basis)
	if err != nil {
		return err
	}

	if *exportParquet {
		files, err := export.WriteReport(rep, cfg.ExportDir)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		logger.Get().Info(ctx, "parquet export written",
			logger.String("articles", files.Articles),
			logger.String("pairs", files.Pairs),
			logger.String("fleiss", files.Fleiss))
	}

	return render.Write(stdout, rep, render.Options{
		Format:    *format,
		Table:     *table,
		Precision: *precision,
		UseColors: *useColors,
		Limit:     *limit,
	})
}
