// Package worker drains the ingestion queue into the score repository.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/irr/internal/adapters/mq/queue"
	"github.com/okian/irr/internal/domain/model"
	"github.com/okian/irr/pkg/logger"
	"github.com/okian/irr/pkg/metrics"
)

const defaultBatchSize = 64

// Item is what workers read off the queue.
type Item = queue.Item

// Writer persists batches of score records.
type Writer interface {
	AppendScores(ctx context.Context, recs []model.ScoreRecord) error
}

// Queue defines how workers receive records.
type Queue interface {
	Dequeue() <-chan Item
}

// FailureFunc receives a batch that could not be written.
type FailureFunc func(ctx context.Context, batch []model.ScoreRecord, err error)

// Worker processes queued records until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled, Shutdown is called
	// or the queue is closed and drained.
	Run(ctx context.Context)

	// Shutdown stops the worker without draining the queue.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker. It writes whatever is already queued
// behind the first record as one batch, up to its batch size.
type InMemoryWorker struct {
	queue     Queue
	writer    Writer
	name      string
	batchSize int
	onFailure FailureFunc

	stopOnce sync.Once
	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, w Writer, opts ...Option) *InMemoryWorker {
	wk := &InMemoryWorker{
		queue:     q,
		writer:    w,
		name:      "worker",
		batchSize: defaultBatchSize,
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(wk)
	}
	if wk.name != "worker" {
		wk.logger = wk.logger.Named(wk.name)
	}
	return wk
}

// Run implements Worker.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	items := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case it, ok := <-items:
			if !ok {
				return
			}
			if err := w.process(ctx, w.collect(it, items)); err != nil {
				w.logger.Error(ctx, "error writing score records", logger.Error(err))
			}
		}
	}
}

// Shutdown implements Worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stop()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) stop() {
	w.stopOnce.Do(func() { close(w.shutdown) })
}

// collect appends records that are ready without blocking.
func (w *InMemoryWorker) collect(first Item, items <-chan Item) []Item { //nolint:gocritic // hugeParam: items are passed by value through the channel
	batch := []Item{first}
	for len(batch) < w.batchSize {
		select {
		case it, ok := <-items:
			if !ok {
				return batch
			}
			batch = append(batch, it)
		default:
			return batch
		}
	}
	return batch
}

func (w *InMemoryWorker) process(ctx context.Context, batch []Item) error {
	start := time.Now()
	if err := w.writer.AppendScores(ctx, batch); err != nil {
		metrics.RecordIngestWriteError()
		if w.onFailure != nil {
			w.onFailure(ctx, batch, err)
		}
		return fmt.Errorf("failed to write %d score records: %w", len(batch), err)
	}
	metrics.RecordIngestWrite(len(batch), float64(time.Since(start).Microseconds())/1000)
	w.logger.Debug(ctx, "score records written",
		logger.Int("records", len(batch)),
		logger.String("first", batch[0].ID),
	)
	return nil
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers; below one it uses the CPU
// count. opts apply to every worker.
func NewPool(workerCount int, q Queue, w Writer, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range pool.workers {
		workerOpts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(q, w, workerOpts...)
	}
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateIngestWorkers(len(p.workers))
}

// Shutdown closes the queue and waits for the workers to drain it. Workers
// still running when ctx ends are stopped and the records they have not
// read yet are lost.
func (p *Pool) Shutdown(ctx context.Context) error {
	defer metrics.UpdateIngestWorkers(0)

	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			for _, rest := range p.workers {
				rest.stop()
			}
			return fmt.Errorf("drain timed out: %w", ctx.Err())
		}
	}
	return nil
}
