package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/irr/internal/adapters/mq/queue"
	"github.com/okian/irr/internal/domain/model"
	"github.com/okian/irr/internal/domain/rubric"
	"github.com/okian/irr/pkg/logger"
	"github.com/okian/irr/pkg/metrics"
)

// Ack summarizes an accepted submission.
type Ack struct {
	Accepted   int      `json:"accepted"`
	Duplicates []string `json:"duplicates"`
}

// Submit validates recs and queues them for the repository. Validation is
// all-or-nothing: one bad record rejects the whole submission. Records whose
// id was already submitted are reported as duplicates and skipped. Queued
// records become visible to reports once a worker has written them.
func (s *Service) Submit(ctx context.Context, recs []model.ScoreRecord) (Ack, error) {
	s.mu.RLock()
	started, q := s.started, s.queue
	s.mu.RUnlock()
	switch {
	case !started:
		return Ack{}, ErrNotStarted
	case q == nil:
		return Ack{}, ErrIngestDisabled
	case len(recs) == 0:
		return Ack{}, fmt.Errorf("%w: no records", ErrInvalidScore)
	}

	clean := make([]model.ScoreRecord, len(recs))
	for i := range recs {
		rec, err := s.checkRecord(recs[i])
		if err != nil {
			s.count(0, 0, len(recs))
			metrics.RecordIngestRejected("invalid")
			return Ack{}, fmt.Errorf("record %d: %w", i, err)
		}
		clean[i] = rec
	}

	ack := Ack{Duplicates: []string{}}
	for i := range clean {
		if s.seen.SeenAndRecord(ctx, clean[i].ID) {
			ack.Duplicates = append(ack.Duplicates, clean[i].ID)
			metrics.RecordIngestRejected("duplicate")
			continue
		}
		if err := q.Enqueue(ctx, clean[i]); err != nil {
			s.seen.Unrecord(ctx, clean[i].ID)
			s.count(ack.Accepted, len(ack.Duplicates), len(clean)-i)
			return ack, s.enqueueError(ctx, err, ack.Accepted)
		}
		ack.Accepted++
	}
	s.count(ack.Accepted, len(ack.Duplicates), 0)

	s.logger.Debug(ctx, "scores queued",
		logger.Int("accepted", ack.Accepted),
		logger.Int("duplicates", len(ack.Duplicates)),
	)
	return ack, nil
}

func (s *Service) enqueueError(ctx context.Context, err error, accepted int) error {
	switch {
	case errors.Is(err, queue.ErrFull):
		s.logger.Warn(ctx, "ingestion queue full", logger.Int("acceptedBefore", accepted))
		return fmt.Errorf("%w: %d records accepted before the queue filled", ErrBackpressure, accepted)
	case errors.Is(err, queue.ErrClosed):
		return ErrNotStarted
	default:
		return err
	}
}

func (s *Service) count(accepted, duplicates, rejected int) {
	s.mu.Lock()
	s.accepted += accepted
	s.duplicates += duplicates
	s.rejected += rejected
	s.mu.Unlock()
}

// checkRecord returns rec with its version, answers and timestamp in the
// canonical form the repository stores. Blank answers are dropped; tokens
// that match no option reject the record.
func (s *Service) checkRecord(rec model.ScoreRecord) (model.ScoreRecord, error) {
	rec.ID = strings.TrimSpace(rec.ID)
	rec.StudyID = strings.TrimSpace(rec.StudyID)
	rec.RaterAlias = strings.TrimSpace(rec.RaterAlias)
	switch {
	case rec.ID == "":
		return rec, fmt.Errorf("%w: id is required", ErrInvalidScore)
	case rec.StudyID == "":
		return rec, fmt.Errorf("%w: studyId is required", ErrInvalidScore)
	case rec.RaterAlias == "":
		return rec, fmt.Errorf("%w: raterAlias is required", ErrInvalidScore)
	}

	v, err := s.resolveVersion(rec.RubricVersion)
	if err != nil {
		return rec, err
	}
	if v == "" {
		return rec, fmt.Errorf("%w: rubricVersion is required", ErrInvalidScore)
	}
	rb, err := s.engine.Provider().Rubric(v)
	if err != nil {
		return rec, err
	}
	rec.RubricVersion = string(v)

	answers := make(map[string]string, len(rec.Answers))
	for q, raw := range rec.Answers {
		if _, ok := rb.Question(q); !ok {
			return rec, fmt.Errorf("%w: %s has no question %q", ErrInvalidScore, v, q)
		}
		a := rb.Resolve(q, raw)
		switch a.State {
		case rubric.Missing:
			continue
		case rubric.Invalid:
			return rec, fmt.Errorf("%w: %s: %q is not an option", ErrInvalidScore, q, raw)
		}
		answers[q] = a.Token
	}
	if len(answers) == 0 {
		return rec, fmt.Errorf("%w: no answers", ErrInvalidScore)
	}
	rec.Answers = answers

	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	return rec, nil
}
