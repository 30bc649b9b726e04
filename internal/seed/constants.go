package seed

import (
	"errors"
	"time"
)

// Sentinel errors.
var (
	ErrInvalidConfig = errors.New("invalid seed config")
	ErrVerify        = errors.New("report verification failed")
)

// Generator defaults.
const (
	DefaultStudies        = 40
	DefaultReviewers      = 6
	DefaultRatersPerStudy = 3
	DefaultAgreement      = 0.8
	DefaultTestRecords    = 2
	DefaultTimeout        = 30 * time.Second
)

// TestMarker is written to the notes of generated test records.
const TestMarker = "[TEST]"

// HTTP status code constants.
const (
	StatusOK = 200
)

// File permission constants.
const (
	directoryPermission = 0750
)
