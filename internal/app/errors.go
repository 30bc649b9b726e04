package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted    = errors.New("service not started")
	ErrNotConfigured = errors.New("service missing a repository or engine")
	ErrInvalidBasis  = errors.New("invalid comparison basis")
	ErrFetch         = errors.New("repository fetch failed")

	ErrInvalidScore   = errors.New("invalid score record")
	ErrBackpressure   = errors.New("ingestion queue full")
	ErrIngestDisabled = errors.New("score ingestion disabled")
)
