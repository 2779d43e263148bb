package transfer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/schemashift/migrate"
	"github.com/schemashift/migrate/mapping"
	"github.com/schemashift/migrate/metrics"
	"github.com/schemashift/migrate/store"
)

// Config configures the batch transfer executor.
type Config struct {
	// Store is the record store jobs read from and write to (required).
	Store store.Store

	// BatchSize is the number of rows per flushed batch when the job
	// does not set its own (default: 100).
	BatchSize int

	// Workers is the number of concurrent batch flushers (default: 1,
	// sequential). Values above 1 require the store's batch write to be
	// independently atomic per batch.
	Workers int

	// Logger is for observability (optional).
	Logger migrate.Logger

	// Collector is an optional metrics collector.
	Collector *metrics.Collector
}

// Executor streams source rows through a job's mappings and flushes
// target rows in bounded batches. Writes are upserts keyed by row
// identity, so redundant executions of the same job are harmless.
type Executor struct {
	config Config
}

// Compile-time check that Executor implements Runner.
var _ Runner = (*Executor)(nil)

// New creates a new Executor with the given configuration.
// Applies default values for BatchSize and Workers if zero.
func New(cfg Config) *Executor {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.Workers == 0 {
		cfg.Workers = 1
	}

	return &Executor{config: cfg}
}

// Execute runs the job. Each source row matching the filter is mapped
// to a target row; a row whose mapping fails is recorded as a row error
// and skipped unless the job marks row errors fatal. Batches are
// flushed independently: a flush failure does not undo previously
// flushed batches. Cancellation is honored at batch boundaries.
func (e *Executor) Execute(ctx context.Context, job Job) (Result, error) {
	batchSize := job.BatchSize
	if batchSize == 0 {
		batchSize = e.config.BatchSize
	}

	cursor, err := e.config.Store.Find(ctx, job.Source, job.Filter)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open source cursor: %w", err)
	}
	defer func() {
		_ = cursor.Close()
	}()

	flusher := e.newFlusher(ctx, job)
	defer flusher.stop()

	var result Result
	batch := make([]migrate.Row, 0, batchSize)

	for cursor.Next() {
		src := cursor.Row()

		dst, err := mapping.ApplyAll(job.Mappings, src)
		if err != nil {
			rowErr := migrate.RowError{Key: src.Key(), Message: err.Error()}
			result.Errors = append(result.Errors, rowErr)
			result.Skipped++

			if e.config.Logger != nil {
				e.config.Logger.Debug(ctx, "row skipped",
					"phase", job.PhaseID, "row", src.Key(), "error", err)
			}

			if job.FatalRowErrors {
				flusher.stop()
				result.Copied = flusher.copied()
				return result, fmt.Errorf("row error is fatal for this phase: %w", rowErr)
			}
			continue
		}

		batch = append(batch, dst)
		if len(batch) == batchSize {
			if err := flusher.flush(batch); err != nil {
				result.Copied = flusher.copied()
				return result, err
			}
			batch = make([]migrate.Row, 0, batchSize)
		}
	}

	if err := cursor.Err(); err != nil {
		flusher.stop()
		result.Copied = flusher.copied()
		return result, fmt.Errorf("source cursor failed: %w", err)
	}

	if len(batch) > 0 {
		if err := flusher.flush(batch); err != nil {
			result.Copied = flusher.copied()
			return result, err
		}
	}

	if err := flusher.wait(); err != nil {
		result.Copied = flusher.copied()
		return result, err
	}

	result.Copied = flusher.copied()

	if e.config.Logger != nil {
		e.config.Logger.Info(ctx, "transfer complete",
			"phase", job.PhaseID, "source", job.Source, "target", job.Target,
			"copied", result.Copied, "skipped", result.Skipped)
	}
	if e.config.Collector != nil {
		e.config.Collector.AddRowsCopied(job.PhaseID, result.Copied)
		e.config.Collector.AddRowsSkipped(job.PhaseID, result.Skipped)
	}

	return result, nil
}

// flusher owns batch writes. With one worker, flush writes inline; with
// more, batches are handed to a worker pool and flush only fails once a
// worker has failed.
type flusher struct {
	exec *Executor
	ctx  context.Context
	job  Job

	mu       sync.Mutex
	nCopied  int
	firstErr error

	batches chan []migrate.Row
	wg      sync.WaitGroup
	once    sync.Once
}

func (e *Executor) newFlusher(ctx context.Context, job Job) *flusher {
	f := &flusher{exec: e, ctx: ctx, job: job}

	if e.config.Workers > 1 {
		f.batches = make(chan []migrate.Row, e.config.Workers)
		for i := 0; i < e.config.Workers; i++ {
			f.wg.Add(1)
			go func() {
				defer f.wg.Done()
				for batch := range f.batches {
					if err := f.writeBatch(batch); err != nil {
						f.setErr(err)
					}
				}
			}()
		}
	}

	return f
}

// flush accepts one batch. It returns an error if the run is cancelled
// or a previous batch write failed.
func (f *flusher) flush(batch []migrate.Row) error {
	if err := f.ctx.Err(); err != nil {
		return err
	}
	if err := f.err(); err != nil {
		return err
	}

	if f.batches == nil {
		return f.writeBatch(batch)
	}

	select {
	case f.batches <- batch:
		return nil
	case <-f.ctx.Done():
		return f.ctx.Err()
	}
}

// wait drains the worker pool and returns the first write error.
func (f *flusher) wait() error {
	f.stop()
	return f.err()
}

// stop closes the batch channel and waits for workers to finish.
// Safe to call more than once.
func (f *flusher) stop() {
	f.once.Do(func() {
		if f.batches != nil {
			close(f.batches)
		}
	})
	f.wg.Wait()
}

func (f *flusher) writeBatch(batch []migrate.Row) error {
	start := time.Now()
	if err := f.exec.config.Store.Upsert(f.ctx, f.job.Target, batch); err != nil {
		return fmt.Errorf("failed to flush batch of %d rows: %w", len(batch), err)
	}

	f.mu.Lock()
	f.nCopied += len(batch)
	f.mu.Unlock()

	if f.exec.config.Collector != nil {
		f.exec.config.Collector.IncBatchesFlushed(f.job.PhaseID)
		f.exec.config.Collector.ObserveBatchFlushDuration(f.job.PhaseID, time.Since(start).Seconds())
	}
	if f.exec.config.Logger != nil {
		f.exec.config.Logger.Debug(f.ctx, "batch flushed",
			"phase", f.job.PhaseID, "rows", len(batch))
	}

	return nil
}

func (f *flusher) copied() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nCopied
}

func (f *flusher) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.firstErr == nil {
		f.firstErr = err
	}
}

func (f *flusher) err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.firstErr
}
