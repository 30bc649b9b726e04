package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/irr/internal/domain/model"
)

type scoreRow struct {
	ID            string `gorm:"primaryKey"`
	StudyID       string `gorm:"index"`
	RaterAlias    string `gorm:"index"`
	RubricVersion string
	// AnswersJSON holds the raw answers map encoded as JSON.
	AnswersJSON string
	Notes       string
	Timestamp   time.Time
}

func (scoreRow) TableName() string { return "scores" }

type studyRow struct {
	ID       string `gorm:"primaryKey"`
	Citation string
	Year     int
	DOI      string
}

func (studyRow) TableName() string { return "studies" }

type reviewerRow struct {
	Alias       string `gorm:"primaryKey"`
	DisplayName string
	Affiliation string
}

func (reviewerRow) TableName() string { return "reviewers" }

// SQLStore serves the collections from a SQLite database through gorm.
type SQLStore struct {
	db        *gorm.DB
	batchSize int
}

// OpenSQLite opens (and migrates) the SQLite database at dsn.
func OpenSQLite(dsn string, opts ...SQLOption) (*SQLStore, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %v", ErrUnavailable, err)
	}
	if err := db.AutoMigrate(&scoreRow{}, &studyRow{}, &reviewerRow{}); err != nil {
		return nil, fmt.Errorf("%w: migrate: %v", ErrUnavailable, err)
	}
	s := &SQLStore{db: db, batchSize: 500}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the database handle.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Scores implements Repository. A row whose answers column cannot be
// decoded is returned without answers and marked malformed.
func (s *SQLStore) Scores(ctx context.Context) ([]model.ScoreRecord, error) {
	return loadScores(s.db.WithContext(ctx))
}

// Studies implements Repository.
func (s *SQLStore) Studies(ctx context.Context) ([]model.Study, error) {
	return loadStudies(s.db.WithContext(ctx))
}

// Reviewers implements Repository.
func (s *SQLStore) Reviewers(ctx context.Context) ([]model.Reviewer, error) {
	return loadReviewers(s.db.WithContext(ctx))
}

// Snapshot implements Snapshotter. The three tables are read in one
// transaction so a concurrent append lands either wholly before or after.
func (s *SQLStore) Snapshot(ctx context.Context) (*model.Dataset, error) {
	var ds model.Dataset
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) (err error) {
		if ds.Scores, err = loadScores(tx); err != nil {
			return err
		}
		if ds.Studies, err = loadStudies(tx); err != nil {
			return err
		}
		ds.Reviewers, err = loadReviewers(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &ds, nil
}

func loadScores(db *gorm.DB) ([]model.ScoreRecord, error) {
	var rows []scoreRow
	if err := db.Order("study_id, timestamp, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: load scores: %v", ErrUnavailable, err)
	}
	out := make([]model.ScoreRecord, len(rows))
	for i, r := range rows {
		out[i] = model.ScoreRecord{
			ID:            r.ID,
			StudyID:       r.StudyID,
			RaterAlias:    r.RaterAlias,
			RubricVersion: r.RubricVersion,
			Notes:         r.Notes,
			Timestamp:     r.Timestamp,
		}
		if r.AnswersJSON != "" {
			if err := json.Unmarshal([]byte(r.AnswersJSON), &out[i].Answers); err != nil {
				out[i].Answers = nil
				out[i].Malformed = true
			}
		}
	}
	return out, nil
}

func loadStudies(db *gorm.DB) ([]model.Study, error) {
	var rows []studyRow
	if err := db.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: load studies: %v", ErrUnavailable, err)
	}
	out := make([]model.Study, len(rows))
	for i, r := range rows {
		out[i] = model.Study{ID: r.ID, Citation: r.Citation, Year: r.Year, DOI: r.DOI}
	}
	return out, nil
}

func loadReviewers(db *gorm.DB) ([]model.Reviewer, error) {
	var rows []reviewerRow
	if err := db.Order("alias").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: load reviewers: %v", ErrUnavailable, err)
	}
	out := make([]model.Reviewer, len(rows))
	for i, r := range rows {
		out[i] = model.Reviewer{Alias: r.Alias, DisplayName: r.DisplayName, Affiliation: r.Affiliation}
	}
	return out, nil
}

// Import upserts every row of ds in a single transaction.
func (s *SQLStore) Import(ctx context.Context, ds model.Dataset) error {
	scores, err := toScoreRows(ds.Scores)
	if err != nil {
		return err
	}
	studies := make([]studyRow, 0, len(ds.Studies))
	for _, st := range ds.Studies {
		studies = append(studies, studyRow{ID: st.ID, Citation: st.Citation, Year: st.Year, DOI: st.DOI})
	}
	reviewers := make([]reviewerRow, 0, len(ds.Reviewers))
	for _, r := range ds.Reviewers {
		reviewers = append(reviewers, reviewerRow{Alias: r.Alias, DisplayName: r.DisplayName, Affiliation: r.Affiliation})
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		upsert := func() *gorm.DB { return tx.Clauses(clause.OnConflict{UpdateAll: true}) }
		if len(studies) > 0 {
			if err := upsert().CreateInBatches(&studies, s.batchSize).Error; err != nil {
				return fmt.Errorf("import studies: %w", err)
			}
		}
		if len(reviewers) > 0 {
			if err := upsert().CreateInBatches(&reviewers, s.batchSize).Error; err != nil {
				return fmt.Errorf("import reviewers: %w", err)
			}
		}
		if len(scores) > 0 {
			if err := upsert().CreateInBatches(&scores, s.batchSize).Error; err != nil {
				return fmt.Errorf("import scores: %w", err)
			}
		}
		return nil
	})
}

// AppendScores implements Appender.
func (s *SQLStore) AppendScores(ctx context.Context, recs []model.ScoreRecord) error {
	rows, err := toScoreRows(recs)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(&rows, s.batchSize).Error
	if err != nil {
		return fmt.Errorf("%w: append scores: %v", ErrUnavailable, err)
	}
	return nil
}

func toScoreRows(recs []model.ScoreRecord) ([]scoreRow, error) {
	rows := make([]scoreRow, 0, len(recs))
	for _, r := range recs {
		if r.ID == "" {
			return nil, fmt.Errorf("%w: score without id", ErrInvalidDataset)
		}
		b, err := json.Marshal(r.Answers)
		if err != nil {
			return nil, fmt.Errorf("%w: score %s: %v", ErrInvalidDataset, r.ID, err)
		}
		rows = append(rows, scoreRow{
			ID:            r.ID,
			StudyID:       r.StudyID,
			RaterAlias:    r.RaterAlias,
			RubricVersion: r.RubricVersion,
			AnswersJSON:   string(b),
			Notes:         r.Notes,
			Timestamp:     r.Timestamp.UTC(),
		})
	}
	return rows, nil
}
