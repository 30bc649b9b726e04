// Package service provides the application service behind the HTTP API
// and the command line tools. It fetches the collections from a repository
// for the report engine and feeds submitted scores through the ingestion
// queue into repositories that accept writes.
package service

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/irr/internal/adapters/mq/queue"
	"github.com/okian/irr/internal/adapters/mq/worker"
	"github.com/okian/irr/internal/adapters/repository"
	"github.com/okian/irr/internal/domain/agreement"
	"github.com/okian/irr/internal/domain/dedupe"
	"github.com/okian/irr/internal/domain/model"
	"github.com/okian/irr/internal/domain/report"
	"github.com/okian/irr/internal/domain/rubric"
	"github.com/okian/irr/internal/domain/types"
	"github.com/okian/irr/pkg/logger"
	"github.com/okian/irr/pkg/metrics"
)

const (
	defaultFetchTimeout = 10 * time.Second
	defaultQueueSize    = 10000
	defaultDrainTimeout = 10 * time.Second
	// seenLimit bounds the submitted record ids remembered for dedupe.
	seenLimit = 100000
)

// Service builds IRR reports on request.
type Service struct {
	mu sync.RWMutex

	repo         repository.Repository
	engine       *report.Engine
	fetchTimeout time.Duration

	// Ingestion; queue and pool stay nil while it is off.
	ingest       bool
	queueSize    int
	workerCount  int
	drainTimeout time.Duration
	queue        *queue.InMemoryQueue
	pool         *worker.Pool
	seen         dedupe.Deduper
	cancelPool   context.CancelFunc

	started bool
	logger  logger.Logger

	// Last report bookkeeping for GetStats.
	reportsBuilt int
	lastReportID string
	lastBuiltAt  time.Time
	lastDuration time.Duration
	lastScores   int
	accepted     int
	duplicates   int
	rejected     int
	failedWrites int
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRepository sets the score repository.
func WithRepository(repo repository.Repository) Option {
	return func(s *Service) {
		if repo != nil {
			s.repo = repo
		}
	}
}

// WithEngine sets the report engine.
func WithEngine(e *report.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithFetchTimeout bounds the repository fetch of one report.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithIngestion turns the POST /scores pipeline on or off. It is on by
// default and only starts when the repository implements
// repository.Appender.
func WithIngestion(enabled bool) Option {
	return func(s *Service) {
		s.ingest = enabled
	}
}

// WithQueueSize bounds the ingestion queue.
func WithQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithWorkerCount sets the ingestion worker count; below one uses the CPU
// count.
func WithWorkerCount(n int) Option {
	return func(s *Service) {
		s.workerCount = n
	}
}

// WithDrainTimeout bounds how long Stop waits for queued records.
func WithDrainTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.drainTimeout = d
		}
	}
}

// New constructs a Service. Without WithEngine it uses the built-in rubrics.
func New(opts ...Option) *Service {
	s := &Service{
		fetchTimeout: defaultFetchTimeout,
		ingest:       true,
		queueSize:    defaultQueueSize,
		drainTimeout: defaultDrainTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = report.NewEngine(rubric.Default())
	}
	return s
}

// Start validates the wiring and marks the service ready.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.repo == nil || s.engine == nil || s.engine.Provider() == nil {
		return ErrNotConfigured
	}

	if s.ingest {
		if w, ok := s.repo.(repository.Appender); ok {
			s.startIngestion(ctx, w)
		} else {
			s.logger.Info(ctx, "repository is read-only; score ingestion disabled")
		}
	}

	s.started = true
	s.logger.Info(ctx, "irr service started",
		logger.Int("rubricVersions", len(s.engine.Provider().Versions())),
		logger.Duration("fetchTimeout", s.fetchTimeout),
		logger.Bool("ingestion", s.pool != nil),
	)
	return nil
}

// startIngestion wires queue -> worker pool -> repository. The pool outlives
// ctx and is stopped by Stop.
func (s *Service) startIngestion(ctx context.Context, w repository.Appender) {
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.seen = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(seenLimit))
	s.pool = worker.NewPool(s.workerCount, s.queue, w,
		worker.WithLogger(s.logger.Named("ingest")),
		worker.WithFailureHandler(s.writeFailed),
	)
	poolCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancelPool = cancel
	s.pool.Start(poolCtx)
}

// writeFailed forgets the ids of a batch the repository rejected so the
// client can resubmit it.
func (s *Service) writeFailed(ctx context.Context, batch []model.ScoreRecord, err error) {
	for i := range batch {
		s.seen.Unrecord(ctx, batch[i].ID)
	}
	s.mu.Lock()
	s.failedWrites += len(batch)
	s.mu.Unlock()
	s.logger.Warn(ctx, "score batch not written; ids released for retry",
		logger.Int("records", len(batch)),
		logger.Error(err),
	)
}

// Stop drains the ingestion queue and releases the repository.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	pool, cancelPool := s.pool, s.cancelPool
	s.mu.Unlock()

	// Workers report failed batches under s.mu; drain without holding it.
	if pool != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.drainTimeout)
		if err := pool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "ingestion drain incomplete", logger.Error(err))
		}
		cancel()
		cancelPool()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pool, s.queue, s.cancelPool = nil, nil, nil
	if closer, ok := s.repo.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			s.logger.Warn(context.Background(), "closing repository failed", logger.Error(err))
		}
	}
	s.logger.Info(context.Background(), "irr service stopped")
}

// Report fetches the collections and builds a report. version may be empty
// for every version; basis may be empty for the engine default.
func (s *Service) Report(ctx context.Context, version, basis string) (*types.Report, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return nil, ErrNotStarted
	}

	v, err := s.resolveVersion(version)
	if err != nil {
		metrics.RecordReportError()
		return nil, err
	}
	var b agreement.Basis
	if basis = strings.TrimSpace(basis); basis != "" {
		parsed, ok := agreement.ParseBasis(strings.ToLower(basis))
		if !ok {
			metrics.RecordReportError()
			return nil, fmt.Errorf("%w: %q", ErrInvalidBasis, basis)
		}
		b = parsed
	}

	in, err := s.fetch(ctx)
	if err != nil {
		metrics.RecordReportError()
		s.logger.Error(ctx, "fetching report inputs failed", logger.Error(err))
		return nil, err
	}
	in.Version = v
	in.Basis = b

	start := time.Now()
	rep, err := s.engine.Build(ctx, in)
	if err != nil {
		metrics.RecordReportError()
		return nil, fmt.Errorf("build report: %w", err)
	}
	took := time.Since(start)

	s.record(rep, took)
	s.logger.Info(ctx, "report built",
		logger.String("reportId", rep.Summary.ReportID),
		logger.String("version", string(v)),
		logger.String("basis", rep.Summary.ComparisonBasis),
		logger.Int("scores", rep.Summary.TotalScores),
		logger.Int("articles", rep.Summary.TotalArticles),
		logger.Duration("took", took),
	)
	return rep, nil
}

// Rubrics lists the known rubric versions.
func (s *Service) Rubrics() []rubric.Version {
	return s.engine.Provider().Versions()
}

// Rubric returns one rubric version, matched case-insensitively.
func (s *Service) Rubric(version string) (*rubric.Rubric, error) {
	v, err := s.resolveVersion(version)
	if err != nil {
		return nil, err
	}
	if v == "" {
		return nil, fmt.Errorf("%w: empty version", rubric.ErrUnknownVersion)
	}
	return s.engine.Provider().Rubric(v)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.engine.Provider().Versions()
	names := make([]string, len(versions))
	for i, v := range versions {
		names[i] = string(v)
	}
	stats := map[string]interface{}{
		"started":        s.started,
		"rubricVersions": names,
		"reportsBuilt":   s.reportsBuilt,
		"fetchTimeoutMs": s.fetchTimeout.Milliseconds(),
		"goroutines":     runtime.NumGoroutine(),
	}
	if s.reportsBuilt > 0 {
		stats["lastReportId"] = s.lastReportID
		stats["lastBuiltAt"] = s.lastBuiltAt
		stats["lastBuildMs"] = s.lastDuration.Milliseconds()
		stats["lastScores"] = s.lastScores
	}
	ingest := map[string]interface{}{
		"enabled":     s.pool != nil,
		"accepted":    s.accepted,
		"duplicates":  s.duplicates,
		"rejected":    s.rejected,
		"writeFailed": s.failedWrites,
	}
	if s.pool != nil {
		ingest["workers"] = s.pool.Size()
		ingest["queued"] = s.queue.Len()
		ingest["capacity"] = s.queue.Cap()
	}
	stats["ingestion"] = ingest

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	metrics.UpdateSystemMemoryUsage(mem.HeapAlloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	return stats
}

// resolveVersion maps a requested version to the provider's spelling.
func (s *Service) resolveVersion(version string) (rubric.Version, error) {
	version = strings.TrimSpace(version)
	if version == "" {
		return "", nil
	}
	p := s.engine.Provider()
	for _, candidate := range []rubric.Version{rubric.Version(version), rubric.Version(strings.ToUpper(version))} {
		if _, err := p.Rubric(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %q", rubric.ErrUnknownVersion, version)
}

// fetch loads the three collections under the fetch timeout: from one
// snapshot when the repository offers it, concurrently otherwise.
func (s *Service) fetch(ctx context.Context) (report.Input, error) {
	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	var in report.Input
	if snap, ok := s.repo.(repository.Snapshotter); ok {
		err := timed(ctx, "dataset", func(ctx context.Context) error {
			ds, err := snap.Snapshot(ctx)
			if err != nil {
				return err
			}
			in.Scores, in.Studies, in.Reviewers = ds.Scores, ds.Studies, ds.Reviewers
			return nil
		})
		if err != nil {
			return report.Input{}, err
		}
		return in, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return timed(gctx, "scores", func(ctx context.Context) (err error) {
			in.Scores, err = s.repo.Scores(ctx)
			return err
		})
	})
	g.Go(func() error {
		return timed(gctx, "studies", func(ctx context.Context) (err error) {
			in.Studies, err = s.repo.Studies(ctx)
			return err
		})
	})
	g.Go(func() error {
		return timed(gctx, "reviewers", func(ctx context.Context) (err error) {
			in.Reviewers, err = s.repo.Reviewers(ctx)
			return err
		})
	})
	if err := g.Wait(); err != nil {
		return report.Input{}, err
	}
	return in, nil
}

func timed(ctx context.Context, collection string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	metrics.RecordFetchDuration(collection, float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		metrics.RecordFetchError(collection)
		return fmt.Errorf("%w: %s: %w", ErrFetch, collection, err)
	}
	return nil
}

func (s *Service) record(rep *types.Report, took time.Duration) {
	d := rep.Diagnostics
	metrics.RecordReportBuilt(rep.Summary.VersionFilter, rep.Summary.ComparisonBasis, float64(took.Microseconds())/1000)
	metrics.RecordDroppedRecords("excluded", d.Excluded)
	metrics.RecordDroppedRecords("malformed", d.Malformed)
	metrics.RecordDroppedRecords("unknown_version", d.UnknownVersion)
	metrics.RecordDroppedRecords("version_filtered", d.VersionFiltered)
	metrics.RecordDroppedRecords("strict_dropped", d.StrictDropped)
	metrics.RecordDroppedRecords("unresolved", d.Unresolved)
	metrics.RecordDroppedRecords("duplicate", d.Duplicates)
	metrics.UpdateLastReport(rep.Summary.TotalScores, rep.Summary.TotalArticles, rep.Summary.TotalReviewers)

	s.mu.Lock()
	s.reportsBuilt++
	s.lastReportID = rep.Summary.ReportID
	s.lastBuiltAt = rep.Summary.GeneratedAt
	s.lastDuration = took
	s.lastScores = rep.Summary.TotalScores
	s.mu.Unlock()
}
