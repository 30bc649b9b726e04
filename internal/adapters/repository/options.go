package repository

import "time"

// FileOption applies a configuration option to the FileStore.
type FileOption func(*FileStore)

// WithReloadInterval sets how often the FileStore checks the dataset file
// for changes. Zero reads the file once and keeps it.
func WithReloadInterval(interval time.Duration) FileOption {
	return func(s *FileStore) {
		if interval >= 0 {
			s.reloadInterval = interval
		}
	}
}

// SQLOption applies a configuration option to the SQLStore.
type SQLOption func(*SQLStore)

// WithBatchSize sets the insert batch size used by Import.
func WithBatchSize(n int) SQLOption {
	return func(s *SQLStore) {
		if n > 0 {
			s.batchSize = n
		}
	}
}
