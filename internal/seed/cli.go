package seed

import (
	"io"
	"strings"

	"github.com/okian/irr/internal/domain/rubric"
)

// ParseVersions splits a comma-separated version list, upper-casing each entry.
func ParseVersions(list string) []rubric.Version {
	var out []rubric.Version
	for _, v := range strings.Split(list, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, rubric.Version(strings.ToUpper(v)))
		}
	}
	return out
}

// ShowHelp prints usage information for the seed tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `IRR Dataset Seeder
==================

Generates a synthetic peer-review dataset with a tunable agreement rate.

Usage:
  go run ./cmd/seed [options]

Options:
  -studies int
        Number of studies (default 40)
  -reviewers int
        Number of registered reviewers (default 6)
  -raters int
        Reviewers assigned to each study (default 3)
  -agreement float
        Probability a rater gives the consensus answer (default 0.8)
  -test-records int
        Extra records flagged [TEST] that reports must exclude (default 2)
  -versions string
        Comma-separated rubric versions, assigned round-robin (default "V1")
  -seed int
        Random seed (default 1)
  -out string
        JSON dataset file (default "data/dataset.json")
  -sqlite string
        SQLite database to import into as well
  -verify string
        Base URL of a running server whose report should match the dataset
  -timeout duration
        HTTP request timeout (default 30s)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Write the default dataset for the file backend
  go run ./cmd/seed

  # Mixed rubric versions with low agreement into sqlite
  go run ./cmd/seed -versions V1,V2 -agreement 0.4 -sqlite data/irr.db -out ""

  # Seed and check a running server
  go run ./cmd/seed -verify http://localhost:9080
`)
}
