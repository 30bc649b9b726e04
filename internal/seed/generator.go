package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/okian/irr/internal/domain/model"
	"github.com/okian/irr/internal/domain/rubric"
	"github.com/okian/irr/pkg/logger"
)

// baseTime anchors generated timestamps so equal seeds give equal datasets.
var baseTime = time.Date(2025, time.January, 6, 9, 0, 0, 0, time.UTC)

// Constants for generated metadata.
const (
	firstYear  = 2015
	yearSpread = 10
)

// generator draws every random choice from one seeded source.
type generator struct {
	rng *rand.Rand
}

func (g *generator) id() string {
	u, err := uuid.NewRandomFromReader(g.rng)
	if err != nil {
		// math/rand never fails a read.
		panic(err)
	}
	return u.String()
}

func (g *generator) pick(q rubric.Question) string {
	return q.Options[g.rng.Intn(len(q.Options))].Token
}

// Generate builds a synthetic dataset: studies scored by overlapping panels
// of reviewers who give each question's consensus answer with probability
// cfg.Agreement, plus cfg.TestRecords records carrying TestMarker.
func Generate(ctx context.Context, cfg *Config, provider rubric.Provider) (model.Dataset, error) {
	if err := cfg.Validate(); err != nil {
		return model.Dataset{}, err
	}
	rubrics := make([]*rubric.Rubric, len(cfg.Versions))
	for i, v := range cfg.Versions {
		rb, err := provider.Rubric(v)
		if err != nil {
			return model.Dataset{}, fmt.Errorf("seed generate: %w", err)
		}
		rubrics[i] = rb
	}

	logger.Get().Info(ctx, "generating dataset",
		logger.Int("studies", cfg.Studies),
		logger.Int("reviewers", cfg.Reviewers),
		logger.Int("ratersPerStudy", cfg.RatersPerStudy),
		logger.Float64("agreement", cfg.Agreement),
		logger.Any("seed", cfg.Seed))

	g := &generator{rng: rand.New(rand.NewSource(cfg.Seed))} //nolint:gosec // reproducible fixtures, not secrets

	ds := model.Dataset{
		Studies:   make([]model.Study, cfg.Studies),
		Reviewers: make([]model.Reviewer, cfg.Reviewers),
		Scores:    make([]model.ScoreRecord, 0, cfg.Studies*cfg.RatersPerStudy+cfg.TestRecords),
	}
	for i := range ds.Reviewers {
		ds.Reviewers[i] = model.Reviewer{
			Alias:       fmt.Sprintf("reviewer-%02d", i+1),
			DisplayName: fmt.Sprintf("Reviewer %d", i+1),
		}
	}

	ts := baseTime
	for i := range ds.Studies {
		if err := ctx.Err(); err != nil {
			return model.Dataset{}, fmt.Errorf("seed generate: %w", err)
		}
		study := model.Study{
			ID:       fmt.Sprintf("study-%03d", i+1),
			Citation: fmt.Sprintf("Synthetic Study %d", i+1),
			Year:     firstYear + i%yearSpread,
			DOI:      fmt.Sprintf("10.5555/irr.%04d", i+1),
		}
		ds.Studies[i] = study

		rb := rubrics[i%len(rubrics)]
		consensus := make(map[string]string, len(rb.Questions()))
		for _, q := range rb.Questions() {
			consensus[q.ID] = g.pick(q)
		}

		first := g.rng.Intn(cfg.Reviewers)
		for j := 0; j < cfg.RatersPerStudy; j++ {
			answers := make(map[string]string, len(consensus))
			for _, q := range rb.Questions() {
				if g.rng.Float64() < cfg.Agreement {
					answers[q.ID] = consensus[q.ID]
				} else {
					answers[q.ID] = g.pick(q)
				}
			}
			ts = ts.Add(time.Duration(1+g.rng.Intn(90)) * time.Minute)
			ds.Scores = append(ds.Scores, model.ScoreRecord{
				ID:            g.id(),
				StudyID:       study.ID,
				RaterAlias:    ds.Reviewers[(first+j)%cfg.Reviewers].Alias,
				RubricVersion: string(rb.Version()),
				Answers:       answers,
				Timestamp:     ts,
			})
		}
	}

	for i := 0; i < cfg.TestRecords; i++ {
		rb := rubrics[i%len(rubrics)]
		answers := make(map[string]string, len(rb.Questions()))
		for _, q := range rb.Questions() {
			answers[q.ID] = g.pick(q)
		}
		ts = ts.Add(time.Minute)
		ds.Scores = append(ds.Scores, model.ScoreRecord{
			ID:            g.id(),
			StudyID:       ds.Studies[g.rng.Intn(len(ds.Studies))].ID,
			RaterAlias:    "qa-bot",
			RubricVersion: string(rb.Version()),
			Answers:       answers,
			Notes:         TestMarker + " pipeline smoke record",
			Timestamp:     ts,
		})
	}
	return ds, nil
}
