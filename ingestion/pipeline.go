package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/retry"
	"github.com/poiesic/gleaner/storage"
)

// DefaultStageTimeouts bound a single attempt of each stage.
var DefaultStageTimeouts = map[core.Stage]time.Duration{
	core.StageContentExtraction:   60 * time.Second,
	core.StageTextProcessing:      30 * time.Second,
	core.StageAIAnalysis:          180 * time.Second,
	core.StageEmbeddingGeneration: 120 * time.Second,
	core.StageDatabaseStorage:     30 * time.Second,
}

// Pipeline runs processing tasks through the stage state machine.
// Each task runs on a bounded worker pool; stages within a task run in
// order, each wrapped in the retry policy and its own timeout.
type Pipeline struct {
	tasks     storage.TaskRepository
	documents storage.DocumentRepository
	fetcher   Fetcher
	analyzer  Analyzer
	extractor InsightExtractor
	embedder  EmbeddingGenerator

	pool     *ants.Pool
	policy   retry.Policy
	timeouts map[core.Stage]time.Duration
	now      func() time.Time
	logger   *slog.Logger

	mu      sync.Mutex
	active  map[string]*taskRun
	metrics metricsState
	stopped atomic.Bool
	wg      sync.WaitGroup
}

// metricsState accumulates terminal outcomes. Guarded by Pipeline.mu.
type metricsState struct {
	successful int
	failed     int
	cancelled  int
	totalTime  time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets how many tasks may run concurrently.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithRetryPolicy replaces the retry policy applied around every stage.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(p *Pipeline) error {
		if policy.MaxAttempts < 1 {
			return retry.ErrInvalidMaxAttempts
		}
		p.policy = policy
		return nil
	}
}

// WithStageTimeout bounds one attempt of a stage.
func WithStageTimeout(stage core.Stage, timeout time.Duration) Option {
	return func(p *Pipeline) error {
		if timeout > 0 {
			p.timeouts[stage] = timeout
		}
		return nil
	}
}

// WithClock sets the time source for task timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) error {
		if now != nil {
			p.now = now
		}
		return nil
	}
}

// NewPipeline creates a new processing pipeline.
func NewPipeline(
	tasks storage.TaskRepository,
	documents storage.DocumentRepository,
	fetcher Fetcher,
	analyzer Analyzer,
	extractor InsightExtractor,
	embedder EmbeddingGenerator,
	opts ...Option,
) (*Pipeline, error) {
	switch {
	case tasks == nil:
		return nil, ErrTaskRepositoryRequired
	case documents == nil:
		return nil, ErrDocumentRepositoryRequired
	case fetcher == nil:
		return nil, ErrFetcherRequired
	case analyzer == nil:
		return nil, ErrAnalyzerRequired
	case extractor == nil:
		return nil, ErrExtractorRequired
	case embedder == nil:
		return nil, ErrEmbedderRequired
	}

	// Default pool size
	poolSize := max(runtime.NumCPU()/2, 1)
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	timeouts := make(map[core.Stage]time.Duration, len(DefaultStageTimeouts))
	for stage, timeout := range DefaultStageTimeouts {
		timeouts[stage] = timeout
	}

	p := &Pipeline{
		tasks:     tasks,
		documents: documents,
		fetcher:   fetcher,
		analyzer:  analyzer,
		extractor: extractor,
		embedder:  embedder,
		pool:      pool,
		policy:    retry.DefaultPolicy(),
		timeouts:  timeouts,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    slog.Default(),
		active:    make(map[string]*taskRun),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.pool.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "pipeline")

	return p, nil
}

// Submit records a pending task for source and schedules it. It returns
// the task ID without waiting for any processing.
func (p *Pipeline) Submit(ctx context.Context, source core.Source, owner string) (string, error) {
	// Release sets stopped under mu, so no Add can race its Wait
	p.mu.Lock()
	if p.stopped.Load() {
		p.mu.Unlock()
		return "", ErrPipelineStopped
	}
	p.wg.Add(1)
	p.mu.Unlock()

	if err := core.ValidateSource(source); err != nil {
		p.wg.Done()
		return "", err
	}

	task := core.NewProcessingTask(uuid.NewString(), source, owner, p.now())
	if err := p.tasks.CreateTask(ctx, task); err != nil {
		p.wg.Done()
		return "", err
	}

	run := &taskRun{id: task.ID, source: source, owner: owner}
	p.mu.Lock()
	p.active[task.ID] = run
	p.mu.Unlock()

	p.logger.Info("task submitted", "task", task.ID, "source", source.Kind(), "owner", owner)

	// The pool blocks when saturated; dispatch from a goroutine so Submit
	// returns immediately.
	go func() {
		err := p.pool.Submit(func() {
			p.process(run)
		})
		if err != nil {
			p.finish(run, core.TaskUpdate{
				Status: core.Ptr(core.StatusFailed),
				Error:  core.Ptr(err.Error()),
			}, core.StatusFailed, 0)
		}
	}()

	return task.ID, nil
}

// GetStatus returns a snapshot of the task record.
func (p *Pipeline) GetStatus(ctx context.Context, id string) (*core.ProcessingTask, error) {
	return p.tasks.GetTask(ctx, id)
}

// Cancel requests cooperative cancellation. The task stops at its next
// stage boundary. Returns false if the task is unknown or already terminal.
func (p *Pipeline) Cancel(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	run, ok := p.active[id]
	if !ok {
		return false
	}
	run.cancelRequested.Store(true)
	p.logger.Info("cancellation requested", "task", id)
	return true
}

// GetMetrics returns aggregate outcomes of tasks that reached a terminal
// state. Cancelled tasks are counted separately and excluded from
// TotalProcessed and the averages.
func (p *Pipeline) GetMetrics() core.Metrics {
	p.mu.Lock()
	defer p.mu.Unlock()

	m := core.Metrics{
		Successful: p.metrics.successful,
		Failed:     p.metrics.failed,
		Cancelled:  p.metrics.cancelled,
	}
	m.TotalProcessed = m.Successful + m.Failed
	if m.TotalProcessed > 0 {
		m.AverageProcessingTime = p.metrics.totalTime / time.Duration(m.TotalProcessed)
		m.SuccessRate = float64(m.Successful) / float64(m.TotalProcessed)
	}
	return m
}

// Wait blocks until every submitted task is terminal.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// Release stops accepting tasks, fails tasks that have not started, waits
// for running tasks and releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	p.mu.Lock()
	p.stopped.Store(true)
	p.mu.Unlock()
	p.wg.Wait()
	if p.pool != nil {
		p.pool.Release()
	}
}

// process drives one task through every stage. It is the only writer of
// the task's record after creation.
func (p *Pipeline) process(run *taskRun) {
	ctx := context.Background()
	started := p.now()
	logger := p.logger.With("task", run.id)

	if p.stopped.Load() {
		logger.Info("pipeline stopped before task started")
		p.finish(run, core.TaskUpdate{
			Status: core.Ptr(core.StatusFailed),
			Error:  core.Ptr(ErrPipelineStopped.Error()),
		}, core.StatusFailed, 0)
		return
	}

	p.update(ctx, run, core.TaskUpdate{
		Status:    core.Ptr(core.StatusProcessing),
		StartedAt: core.Ptr(started),
	})

	for _, sp := range p.processors() {
		if run.cancelled() {
			p.cancel(run, sp.stage, started)
			return
		}

		p.update(ctx, run, core.TaskUpdate{
			Stage:      core.Ptr(sp.stage),
			Progress:   core.Ptr(sp.stage.Progress()),
			RetryCount: core.Ptr(0),
		})
		logger.Debug("stage started", "stage", sp.stage)

		attempts := 0
		err := p.policy.Do(ctx, func(ctx context.Context, attempt int) error {
			attempts = attempt
			if attempt > 1 {
				if run.cancelled() {
					return core.ErrCancellationRequested
				}
				p.update(ctx, run, core.TaskUpdate{RetryCount: core.Ptr(attempt - 1)})
			}
			err := p.runStage(ctx, sp, run)
			if err != nil && core.IsRetryable(err) && attempt < p.policy.MaxAttempts {
				logger.Warn("stage failed, will retry", "stage", sp.stage, "attempt", attempt, "err", err)
			}
			return err
		})

		if errors.Is(err, core.ErrCancellationRequested) {
			p.cancel(run, sp.stage, started)
			return
		}
		if err != nil {
			logger.Error("task failed", "stage", sp.stage, "attempts", attempts, "err", err)
			p.finish(run, core.TaskUpdate{
				Status:     core.Ptr(core.StatusFailed),
				RetryCount: core.Ptr(attempts - 1),
				Error:      core.Ptr(errorMessage(sp.stage, err)),
			}, core.StatusFailed, p.now().Sub(started))
			return
		}
	}

	// Storage has committed; a late cancellation request no longer applies
	p.finish(run, core.TaskUpdate{
		Status:     core.Ptr(core.StatusCompleted),
		Stage:      core.Ptr(core.StageCompleted),
		Progress:   core.Ptr(core.StageCompleted.Progress()),
		RetryCount: core.Ptr(0),
		Result:     run.result(),
	}, core.StatusCompleted, p.now().Sub(started))
	logger.Info("task completed", "document", run.documentID, "duration", p.now().Sub(started))
}

// runStage runs one attempt of a stage under the stage timeout. A deadline
// hit by the stage becomes a retryable *core.StageTimeoutError.
func (p *Pipeline) runStage(ctx context.Context, sp stageProcessor, run *taskRun) error {
	timeout := p.timeouts[sp.stage]
	if timeout <= 0 {
		return sp.run(ctx, run)
	}

	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := sp.run(sctx, run)
	if err != nil && errors.Is(sctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return &core.StageTimeoutError{Stage: sp.stage, Timeout: timeout}
	}
	return err
}

func (p *Pipeline) cancel(run *taskRun, stage core.Stage, started time.Time) {
	p.logger.Info("task cancelled", "task", run.id, "stage", stage)
	p.finish(run, core.TaskUpdate{
		Status: core.Ptr(core.StatusCancelled),
	}, core.StatusCancelled, p.now().Sub(started))
}

// finish records the terminal update, updates metrics and retires the task.
// The terminal write is retried under the pipeline's policy; a task stays
// cancellable until it is recorded or retries are exhausted.
func (p *Pipeline) finish(run *taskRun, update core.TaskUpdate, status core.Status, elapsed time.Duration) {
	update.EndedAt = core.Ptr(p.now())
	if err := p.recordTerminal(run, update); err != nil {
		p.logger.Error("error recording terminal task state", "task", run.id, "status", status, "err", err)
	}

	p.mu.Lock()
	switch status {
	case core.StatusCompleted:
		p.metrics.successful++
		p.metrics.totalTime += elapsed
	case core.StatusFailed:
		p.metrics.failed++
		p.metrics.totalTime += elapsed
	case core.StatusCancelled:
		p.metrics.cancelled++
	}
	delete(p.active, run.id)
	p.mu.Unlock()

	p.wg.Done()
}

// recordTerminal persists the terminal update. Store errors other than a
// missing task are retried even when the store does not mark them transient.
func (p *Pipeline) recordTerminal(run *taskRun, update core.TaskUpdate) error {
	return p.policy.Do(context.Background(), func(ctx context.Context, attempt int) error {
		_, err := p.tasks.UpdateTask(ctx, run.id, update)
		if err == nil || errors.Is(err, storage.ErrNotFound) {
			return err
		}
		if attempt < p.policy.MaxAttempts {
			p.logger.Warn("terminal task write failed, will retry", "task", run.id, "attempt", attempt, "err", err)
		}
		return &core.StorageError{Op: "update task", Err: err}
	})
}

// update persists a partial task update. Failures are logged; the task
// keeps running so a transient store outage does not lose work.
func (p *Pipeline) update(ctx context.Context, run *taskRun, update core.TaskUpdate) {
	if _, err := p.tasks.UpdateTask(ctx, run.id, update); err != nil {
		p.logger.Error("error updating task", "task", run.id, "err", err)
	}
}
