package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/okian/irr/internal/domain/model"
)

// FileStore serves a dataset from a JSON file of the form
// {"scores": [...], "studies": [...], "reviewers": [...]}.
type FileStore struct {
	path           string
	reloadInterval time.Duration

	// writeMu serializes read-modify-write cycles of the file.
	writeMu sync.Mutex

	mu      sync.RWMutex
	data    *model.Dataset
	modTime time.Time
	checked time.Time
}

// NewFileStore creates a FileStore reading path. The file is read lazily.
func NewFileStore(path string, opts ...FileOption) *FileStore {
	s := &FileStore{
		path:           path,
		reloadInterval: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the dataset file path.
func (s *FileStore) Path() string { return s.path }

// Scores implements Repository.
func (s *FileStore) Scores(ctx context.Context) ([]model.ScoreRecord, error) {
	ds, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return append([]model.ScoreRecord(nil), ds.Scores...), nil
}

// Studies implements Repository.
func (s *FileStore) Studies(ctx context.Context) ([]model.Study, error) {
	ds, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return append([]model.Study(nil), ds.Studies...), nil
}

// Reviewers implements Repository.
func (s *FileStore) Reviewers(ctx context.Context) ([]model.Reviewer, error) {
	ds, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return append([]model.Reviewer(nil), ds.Reviewers...), nil
}

// Snapshot implements Snapshotter with a single load of the file.
func (s *FileStore) Snapshot(ctx context.Context) (*model.Dataset, error) {
	ds, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return &model.Dataset{
		Scores:    append([]model.ScoreRecord(nil), ds.Scores...),
		Studies:   append([]model.Study(nil), ds.Studies...),
		Reviewers: append([]model.Reviewer(nil), ds.Reviewers...),
	}, nil
}

// Import writes ds to the file, replacing its contents atomically.
func (s *FileStore) Import(ctx context.Context, ds model.Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.write(ds)
}

// AppendScores implements Appender. A missing file starts an empty dataset.
func (s *FileStore) AppendScores(ctx context.Context, recs []model.ScoreRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var ds model.Dataset
	current, err := s.load(ctx)
	switch {
	case err == nil:
		ds = *current
		ds.Scores = append([]model.ScoreRecord(nil), current.Scores...)
	case errors.Is(err, ErrNotFound):
	default:
		return err
	}

	pos := make(map[string]int, len(ds.Scores))
	for i, r := range ds.Scores {
		pos[r.ID] = i
	}
	for _, r := range recs {
		if r.ID == "" {
			return fmt.Errorf("%w: score without id", ErrInvalidDataset)
		}
		if i, ok := pos[r.ID]; ok {
			ds.Scores[i] = r
			continue
		}
		pos[r.ID] = len(ds.Scores)
		ds.Scores = append(ds.Scores, r)
	}
	return s.write(ds)
}

// write replaces the file with ds through a rename. Callers hold writeMu.
func (s *FileStore) write(ds model.Dataset) error {
	b, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dataset dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace dataset: %w", err)
	}

	s.mu.Lock()
	s.data = nil
	s.mu.Unlock()
	return nil
}

func (s *FileStore) load(ctx context.Context) (*model.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	if s.data != nil && (s.reloadInterval == 0 || time.Since(s.checked) < s.reloadInterval) {
		ds := s.data
		s.mu.RUnlock()
		return ds, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.path)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if s.data != nil && info.ModTime().Equal(s.modTime) {
		s.checked = time.Now()
		return s.data, nil
	}

	b, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var ds model.Dataset
	if err := json.Unmarshal(b, &ds); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDataset, s.path, err)
	}
	s.data = &ds
	s.modTime = info.ModTime()
	s.checked = time.Now()
	return s.data, nil
}
