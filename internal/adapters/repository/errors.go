package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound       = errors.New("dataset not found")
	ErrInvalidDataset = errors.New("invalid dataset")
	ErrUnavailable    = errors.New("repository unavailable")
)
