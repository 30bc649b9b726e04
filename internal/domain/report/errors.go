package report

import "errors"

// ErrNoProvider is returned when the engine has no rubric provider.
var ErrNoProvider = errors.New("report: no rubric provider configured")
