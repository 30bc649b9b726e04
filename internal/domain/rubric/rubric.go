// Package rubric holds the versioned question/option/score tables used to
// resolve categorical reviewer answers into point values.
package rubric

import (
	"fmt"
	"strings"
)

// Version names a rubric revision, e.g. "V1".
type Version string

// State tells whether a question slot carries a usable answer.
type State uint8

// Answer states. Missing and Invalid are both excluded from aggregates;
// only Invalid indicates corrupt input.
const (
	Missing State = iota
	Answered
	Invalid
)

func (s State) String() string {
	switch s {
	case Answered:
		return "answered"
	case Invalid:
		return "invalid"
	default:
		return "missing"
	}
}

// Option is one valid answer token of a question and its point value.
type Option struct {
	Token   string
	Score   int
	Aliases []string
}

// Question is a single scored slot of a rubric.
type Question struct {
	ID      string
	Label   string
	Options []Option
}

// MaxScore returns the highest point value any option of q awards.
func (q Question) MaxScore() int {
	best := 0
	for i, o := range q.Options {
		if i == 0 || o.Score > best {
			best = o.Score
		}
	}
	return best
}

// Tokens returns the canonical option tokens in declaration order.
func (q Question) Tokens() []string {
	out := make([]string, len(q.Options))
	for i, o := range q.Options {
		out[i] = o.Token
	}
	return out
}

// Answer is the resolved value of one question slot.
type Answer struct {
	State State
	// Token is the canonical option token when Answered, and the raw
	// (normalized) input when Invalid.
	Token string
	Score int
}

// IsAnswered reports whether the slot resolved to a valid option.
func (a Answer) IsAnswered() bool { return a.State == Answered }

// Rubric is an immutable, validated question table for one version.
type Rubric struct {
	version   Version
	questions []Question
	// lookup maps question id -> normalized token or alias -> option index.
	lookup   map[string]map[string]int
	position map[string]int
}

// New validates the question table and builds a Rubric.
func New(version Version, questions []Question) (*Rubric, error) {
	if strings.TrimSpace(string(version)) == "" {
		return nil, fmt.Errorf("%w: empty version", ErrInvalidRubric)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: %s has no questions", ErrInvalidRubric, version)
	}
	r := &Rubric{
		version:   version,
		questions: make([]Question, 0, len(questions)),
		lookup:    make(map[string]map[string]int, len(questions)),
		position:  make(map[string]int, len(questions)),
	}
	for _, q := range questions {
		if q.ID == "" {
			return nil, fmt.Errorf("%w: %s has a question without id", ErrInvalidRubric, version)
		}
		if _, dup := r.position[q.ID]; dup {
			return nil, fmt.Errorf("%w: %s repeats question %s", ErrInvalidRubric, version, q.ID)
		}
		if len(q.Options) == 0 {
			return nil, fmt.Errorf("%w: %s/%s has no options", ErrInvalidRubric, version, q.ID)
		}
		tokens := make(map[string]int, len(q.Options))
		opts := make([]Option, len(q.Options))
		for i, o := range q.Options {
			tok := NormalizeToken(o.Token)
			if tok == "" {
				return nil, fmt.Errorf("%w: %s/%s has an empty option token", ErrInvalidRubric, version, q.ID)
			}
			if _, dup := tokens[tok]; dup {
				return nil, fmt.Errorf("%w: %s/%s repeats token %q", ErrInvalidRubric, version, q.ID, tok)
			}
			tokens[tok] = i
			opts[i] = Option{Token: tok, Score: o.Score, Aliases: append([]string(nil), o.Aliases...)}
		}
		// Aliases never shadow a canonical token.
		for i, o := range opts {
			for _, a := range o.Aliases {
				if al := NormalizeToken(a); al != "" {
					if _, taken := tokens[al]; !taken {
						tokens[al] = i
					}
				}
			}
		}
		r.position[q.ID] = len(r.questions)
		r.lookup[q.ID] = tokens
		r.questions = append(r.questions, Question{ID: q.ID, Label: q.Label, Options: opts})
	}
	return r, nil
}

// Version returns the rubric version.
func (r *Rubric) Version() Version { return r.version }

// Questions returns the ordered question table. Callers must not mutate it.
func (r *Rubric) Questions() []Question { return r.questions }

// Question looks up a question by id.
func (r *Rubric) Question(id string) (Question, bool) {
	i, ok := r.position[id]
	if !ok {
		return Question{}, false
	}
	return r.questions[i], true
}

// MaxScore is the highest total a single score record can reach.
func (r *Rubric) MaxScore() int {
	total := 0
	for _, q := range r.questions {
		total += q.MaxScore()
	}
	return total
}

// Resolve maps a raw answer for questionID to its three-state Answer.
// Blank input is Missing; anything not matching an option (or an unknown
// question id) is Invalid.
func (r *Rubric) Resolve(questionID, raw string) Answer {
	tok := NormalizeToken(raw)
	if tok == "" {
		return Answer{State: Missing}
	}
	tokens, ok := r.lookup[questionID]
	if !ok {
		return Answer{State: Invalid, Token: tok}
	}
	i, ok := tokens[tok]
	if !ok {
		return Answer{State: Invalid, Token: tok}
	}
	opt := r.questions[r.position[questionID]].Options[i]
	return Answer{State: Answered, Token: opt.Token, Score: opt.Score}
}

// NormalizeToken lower-cases and trims raw, folding inner spaces and hyphens
// to underscores so "Case-Control" and "case control" match "case_control".
func NormalizeToken(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == '\t'
	}), "_")
}
