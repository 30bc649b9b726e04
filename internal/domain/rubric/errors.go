package rubric

import "errors"

// Sentinel kinds for rubric errors.
var (
	ErrUnknownVersion = errors.New("unknown rubric version")
	ErrInvalidRubric  = errors.New("invalid rubric")
	ErrLoadRubric     = errors.New("load rubric failed")
)
