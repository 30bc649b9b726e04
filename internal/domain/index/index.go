// Package index groups normalized scores by the study they target.
package index

import (
	"sort"

	"github.com/okian/irr/internal/domain/normalize"
	"github.com/okian/irr/internal/domain/rubric"
)

// Article is the set of scores one study received, ordered by timestamp
// and then rater alias.
type Article struct {
	StudyID string
	Scores  []*normalize.Score
}

// Raters returns the distinct rater aliases of the article in score order.
func (a *Article) Raters() []string {
	out := make([]string, 0, len(a.Scores))
	seen := make(map[string]struct{}, len(a.Scores))
	for _, s := range a.Scores {
		if _, ok := seen[s.Record.RaterAlias]; ok {
			continue
		}
		seen[s.Record.RaterAlias] = struct{}{}
		out = append(out, s.Record.RaterAlias)
	}
	return out
}

// MultiRater reports whether at least two distinct raters scored the article.
func (a *Article) MultiRater() bool {
	return len(a.Raters()) >= 2
}

// ByRater returns the article's score from alias, if any.
func (a *Article) ByRater(alias string) (*normalize.Score, bool) {
	for _, s := range a.Scores {
		if s.Record.RaterAlias == alias {
			return s, true
		}
	}
	return nil, false
}

// Index is the ragged article -> ratings matrix.
type Index struct {
	articles []*Article
	byStudy  map[string]*Article
	raters   []string
	versions []rubric.Version
}

// Build groups scores by study id. Articles are sorted by study id.
func Build(scores []*normalize.Score) *Index {
	idx := &Index{byStudy: make(map[string]*Article)}
	raters := make(map[string]struct{})
	versions := make(map[rubric.Version]struct{})
	for _, s := range scores {
		a, ok := idx.byStudy[s.Record.StudyID]
		if !ok {
			a = &Article{StudyID: s.Record.StudyID}
			idx.byStudy[s.Record.StudyID] = a
			idx.articles = append(idx.articles, a)
		}
		a.Scores = append(a.Scores, s)
		raters[s.Record.RaterAlias] = struct{}{}
		versions[s.Version] = struct{}{}
	}
	sort.Slice(idx.articles, func(i, j int) bool {
		return idx.articles[i].StudyID < idx.articles[j].StudyID
	})
	for _, a := range idx.articles {
		sort.SliceStable(a.Scores, func(i, j int) bool {
			x, y := a.Scores[i].Record, a.Scores[j].Record
			if !x.Timestamp.Equal(y.Timestamp) {
				return x.Timestamp.Before(y.Timestamp)
			}
			return x.RaterAlias < y.RaterAlias
		})
	}
	for r := range raters {
		idx.raters = append(idx.raters, r)
	}
	sort.Strings(idx.raters)
	for v := range versions {
		idx.versions = append(idx.versions, v)
	}
	sort.Slice(idx.versions, func(i, j int) bool { return idx.versions[i] < idx.versions[j] })
	return idx
}

// Articles returns every article.
func (x *Index) Articles() []*Article { return x.articles }

// MultiRater returns the articles scored by two or more distinct raters.
func (x *Index) MultiRater() []*Article {
	out := make([]*Article, 0, len(x.articles))
	for _, a := range x.articles {
		if a.MultiRater() {
			out = append(out, a)
		}
	}
	return out
}

// Article looks up a study.
func (x *Index) Article(studyID string) (*Article, bool) {
	a, ok := x.byStudy[studyID]
	return a, ok
}

// Raters returns every rater alias in ascending order.
func (x *Index) Raters() []string { return x.raters }

// Versions returns the rubric versions present, ascending.
func (x *Index) Versions() []rubric.Version { return x.versions }

// Scores returns every score in article order.
func (x *Index) Scores() []*normalize.Score {
	var out []*normalize.Score
	for _, a := range x.articles {
		out = append(out, a.Scores...)
	}
	return out
}

// QuestionKey names a question slot in report maps. With a single rubric
// version in play the bare question id is used; otherwise the key is
// qualified as "VERSION/questionId" so option sets never mix.
func (x *Index) QuestionKey(v rubric.Version, questionID string) string {
	if len(x.versions) <= 1 {
		return questionID
	}
	return string(v) + "/" + questionID
}
