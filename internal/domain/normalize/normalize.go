// Package normalize filters raw score records and resolves their categorical
// answers into rubric point values.
package normalize

import (
	"context"
	"sort"
	"strings"

	"github.com/okian/irr/internal/domain/dedupe"
	"github.com/okian/irr/internal/domain/model"
	"github.com/okian/irr/internal/domain/rubric"
)

// Score is a record that passed normalization.
type Score struct {
	Record  model.ScoreRecord
	Version rubric.Version
	// Answers holds one entry per question of the record's rubric.
	Answers map[string]rubric.Answer
	// Total sums the answered slots only; missing slots add nothing.
	Total    int
	Answered int
	Invalid  int
}

// Answer returns the resolved answer for question id q.
func (s *Score) Answer(q string) rubric.Answer {
	return s.Answers[q]
}

// HasTotal reports whether Total may feed total-based statistics. A record
// holding an unrecognised token still contributes its valid slots per
// question, but its total would understate the rating.
func (s *Score) HasTotal() bool {
	return s.Answered > 0 && s.Invalid == 0
}

// Diagnostics counts records and slots the normalizer set aside.
type Diagnostics struct {
	Received         int `json:"received"`
	Excluded         int `json:"excluded"`         // notes carried an exclusion marker
	Malformed        int `json:"malformed"`        // blank study id or rater alias, or undecodable answers
	UnknownVersion   int `json:"unknownVersion"`   // rubric version not known to the provider
	VersionFiltered  int `json:"versionFiltered"`  // dropped by the version filter
	StrictDropped    int `json:"strictDropped"`    // dropped for invalid answers in strict mode
	Unresolved       int `json:"unresolved"`       // no slot resolved to a valid option
	PartialInvalid   int `json:"partialInvalid"`   // kept per question, left out of total-based statistics
	Duplicates       int `json:"duplicates"`       // superseded by a newer record for the same study and rater
	InvalidAnswers   int `json:"invalidAnswers"`   // slots with an unrecognised token
	MissingAnswers   int `json:"missingAnswers"`   // slots left blank
	UnknownQuestions int `json:"unknownQuestions"` // answer keys the rubric does not define
}

// Result is the normalizer output.
type Result struct {
	Scores      []*Score
	Diagnostics Diagnostics
	// VersionCounts counts valid records per version before the version
	// filter is applied.
	VersionCounts map[rubric.Version]int
}

// Normalizer turns raw records into Scores.
type Normalizer struct {
	provider       rubric.Provider
	markers        []string
	strict         bool
	defaultVersion rubric.Version
}

// New creates a Normalizer backed by provider.
func New(provider rubric.Provider, opts ...Option) *Normalizer {
	n := &Normalizer{
		provider: provider,
		markers:  append([]string(nil), DefaultExclusionMarkers...),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize filters records and resolves their answers. filter restricts the
// output to one rubric version; empty keeps every version.
// Records are returned ordered by study id, then timestamp, then rater alias.
func (n *Normalizer) Normalize(ctx context.Context, records []model.ScoreRecord, filter rubric.Version) Result {
	res := Result{VersionCounts: make(map[rubric.Version]int)}
	res.Diagnostics.Received = len(records)

	candidates := make([]*Score, 0, len(records))
	for _, rec := range records {
		if n.excluded(rec.Notes) {
			res.Diagnostics.Excluded++
			continue
		}
		if rec.Malformed || strings.TrimSpace(rec.StudyID) == "" || strings.TrimSpace(rec.RaterAlias) == "" {
			res.Diagnostics.Malformed++
			continue
		}
		rb, ok := n.rubricFor(rec.RubricVersion)
		if !ok {
			res.Diagnostics.UnknownVersion++
			continue
		}
		res.VersionCounts[rb.Version()]++
		if filter != "" && rb.Version() != filter {
			res.Diagnostics.VersionFiltered++
			continue
		}

		s, missing, unknown := resolve(rec, rb)
		if s.Invalid > 0 && n.strict {
			res.Diagnostics.StrictDropped++
			continue
		}
		res.Diagnostics.InvalidAnswers += s.Invalid
		res.Diagnostics.MissingAnswers += missing
		res.Diagnostics.UnknownQuestions += unknown
		if s.Answered == 0 {
			res.Diagnostics.Unresolved++
			continue
		}
		candidates = append(candidates, s)
	}

	// Most recent first so the deduper keeps the latest record per key.
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i].Record, candidates[j].Record
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		return a.ID > b.ID
	})
	seen := dedupe.NewInMemoryDeduper()
	for _, s := range candidates {
		if seen.SeenAndRecord(ctx, dedupe.Key(s.Record.StudyID, s.Record.RaterAlias)) {
			res.Diagnostics.Duplicates++
			continue
		}
		if s.Invalid > 0 {
			res.Diagnostics.PartialInvalid++
		}
		res.Scores = append(res.Scores, s)
	}

	sort.Slice(res.Scores, func(i, j int) bool {
		a, b := res.Scores[i].Record, res.Scores[j].Record
		if a.StudyID != b.StudyID {
			return a.StudyID < b.StudyID
		}
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.RaterAlias < b.RaterAlias
	})
	return res
}

func (n *Normalizer) excluded(notes string) bool {
	if notes == "" {
		return false
	}
	lower := strings.ToLower(notes)
	for _, m := range n.markers {
		if m != "" && strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func (n *Normalizer) rubricFor(raw string) (*rubric.Rubric, bool) {
	v := rubric.Version(strings.TrimSpace(raw))
	if v == "" {
		v = n.defaultVersion
	}
	if v == "" {
		return nil, false
	}
	if r, err := n.provider.Rubric(v); err == nil {
		return r, true
	}
	if r, err := n.provider.Rubric(rubric.Version(strings.ToUpper(string(v)))); err == nil {
		return r, true
	}
	return nil, false
}

func resolve(rec model.ScoreRecord, rb *rubric.Rubric) (s *Score, missing, unknown int) {
	s = &Score{
		Record:  rec,
		Version: rb.Version(),
		Answers: make(map[string]rubric.Answer, len(rb.Questions())),
	}
	for _, q := range rb.Questions() {
		a := rb.Resolve(q.ID, rec.Answers[q.ID])
		s.Answers[q.ID] = a
		switch a.State {
		case rubric.Answered:
			s.Total += a.Score
			s.Answered++
		case rubric.Invalid:
			s.Invalid++
		default:
			missing++
		}
	}
	for key := range rec.Answers {
		if _, ok := rb.Question(key); !ok {
			unknown++
		}
	}
	return s, missing, unknown
}
