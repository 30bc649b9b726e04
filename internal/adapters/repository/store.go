// Package repository loads score, study and reviewer collections from the
// backing stores.
package repository

import (
	"context"

	"github.com/okian/irr/internal/domain/model"
)

// Repository yields the fully materialized collections a report is built
// from. Implementations must be safe for concurrent use.
type Repository interface {
	// Scores returns every score record, including test and calibration data.
	Scores(ctx context.Context) ([]model.ScoreRecord, error)
	// Studies returns every study.
	Studies(ctx context.Context) ([]model.Study, error)
	// Reviewers returns every registered reviewer.
	Reviewers(ctx context.Context) ([]model.Reviewer, error)
}

// Importer persists a dataset.
type Importer interface {
	Import(ctx context.Context, ds model.Dataset) error
}

// Appender adds score records to a store, replacing records with the same id.
type Appender interface {
	AppendScores(ctx context.Context, recs []model.ScoreRecord) error
}

// Snapshotter yields all three collections from one consistent view of the
// store, so a write landing mid-fetch cannot split a report across versions.
type Snapshotter interface {
	Snapshot(ctx context.Context) (*model.Dataset, error)
}
