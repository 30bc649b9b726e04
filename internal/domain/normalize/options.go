package normalize

import (
	"strings"

	"github.com/okian/irr/internal/domain/rubric"
)

// DefaultExclusionMarkers flag test and calibration records in the notes field.
var DefaultExclusionMarkers = []string{"[test]", "[calibration]", "#test", "#calibration"}

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithExclusionMarkers replaces the exclusion markers. Matching is
// case-insensitive substring search; an empty list disables exclusion.
func WithExclusionMarkers(markers []string) Option {
	return func(n *Normalizer) {
		n.markers = n.markers[:0]
		for _, m := range markers {
			if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
				n.markers = append(n.markers, m)
			}
		}
	}
}

// WithStrictAnswers drops a whole record when any slot holds an invalid token.
func WithStrictAnswers(strict bool) Option {
	return func(n *Normalizer) {
		n.strict = strict
	}
}

// WithDefaultVersion assigns v to records that carry no rubric version.
func WithDefaultVersion(v rubric.Version) Option {
	return func(n *Normalizer) {
		n.defaultVersion = v
	}
}
