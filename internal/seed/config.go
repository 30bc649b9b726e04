package seed

import (
	"fmt"
	"time"

	"github.com/okian/irr/internal/domain/rubric"
)

// Config holds configuration for a seeding run.
type Config struct {
	Studies        int              // Number of studies to generate
	Reviewers      int              // Number of registered reviewers
	RatersPerStudy int              // Reviewers assigned to each study
	Agreement      float64          // Probability a rater gives the consensus answer
	TestRecords    int              // Extra records flagged with an exclusion marker
	Versions       []rubric.Version // Rubric versions assigned round-robin to studies
	Seed           int64            // Random seed; equal seeds yield equal datasets
	OutputFile     string           // JSON dataset path, skipped when empty
	SQLiteDSN      string           // SQLite database, skipped when empty
	VerifyURL      string           // Base URL of a running server to check, skipped when empty
	Timeout        time.Duration    // HTTP request timeout
}

// Validate checks the generator parameters.
func (c *Config) Validate() error {
	switch {
	case c.Studies < 1:
		return fmt.Errorf("%w: studies must be at least 1", ErrInvalidConfig)
	case c.Reviewers < 1:
		return fmt.Errorf("%w: reviewers must be at least 1", ErrInvalidConfig)
	case c.RatersPerStudy < 1 || c.RatersPerStudy > c.Reviewers:
		return fmt.Errorf("%w: raters per study must be between 1 and %d", ErrInvalidConfig, c.Reviewers)
	case c.Agreement < 0 || c.Agreement > 1:
		return fmt.Errorf("%w: agreement must be within [0, 1]", ErrInvalidConfig)
	case c.TestRecords < 0:
		return fmt.Errorf("%w: test records must not be negative", ErrInvalidConfig)
	case len(c.Versions) == 0:
		return fmt.Errorf("%w: at least one rubric version is required", ErrInvalidConfig)
	}
	return nil
}

// Stats holds run statistics.
type Stats struct {
	StudiesGenerated   int
	ReviewersGenerated int
	ScoresGenerated    int
	TestRecords        int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
