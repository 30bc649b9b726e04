// Package model contains the plain records exchanged between the score
// repository and the analytics engine.
package model

import "time"

// ScoreRecord is one reviewer's rubric scoring of one study.
// Answers maps question slot ids ("q1".."q11") to raw categorical answers.
type ScoreRecord struct {
	ID            string            `json:"id"`
	StudyID       string            `json:"studyId"`
	RaterAlias    string            `json:"raterAlias"` // pseudonymous reviewer identity
	RubricVersion string            `json:"rubricVersion"`
	Answers       map[string]string `json:"answers"`
	Notes         string            `json:"notes,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
	// Malformed is set by a store that could not decode the record's answers.
	Malformed bool `json:"-"`
}

// Study is a scored research article. Only ID matters for grouping.
type Study struct {
	ID       string `json:"id"`
	Citation string `json:"citation,omitempty"`
	Year     int    `json:"year,omitempty"`
	DOI      string `json:"doi,omitempty"`
}

// Reviewer is a registered rater. Only Alias matters for grouping.
type Reviewer struct {
	Alias       string `json:"alias"`
	DisplayName string `json:"displayName,omitempty"`
	Affiliation string `json:"affiliation,omitempty"`
}

// Dataset bundles the three collections the repository yields.
type Dataset struct {
	Scores    []ScoreRecord `json:"scores"`
	Studies   []Study       `json:"studies"`
	Reviewers []Reviewer    `json:"reviewers"`
}
