// Package workerpool provides a bounded worker pool for controlled concurrency.
// It fans batches of visit reports out over a fixed number of workers.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	ErrShuttingDown = errors.New("pool is shutting down")
	ErrQueueFull    = errors.New("task queue is full")
)

// Task represents a unit of work to be processed
type Task[T any] struct {
	ID      string
	Payload T
	Context context.Context
}

// Result represents the outcome of task processing
type Result[R any] struct {
	TaskID  string
	Success bool
	Error   error
	Data    R
}

// WorkerFunc is the function signature for task processing
type WorkerFunc[T, R any] func(ctx context.Context, task *Task[T]) *Result[R]

// Config holds worker pool configuration
type Config struct {
	// Workers is the number of concurrent workers
	Workers int `mapstructure:"workers"`
	// QueueSize is the size of the task queue
	QueueSize int `mapstructure:"queue_size"`
	// MaxRetries is the maximum number of retries for failed tasks
	MaxRetries int `mapstructure:"max_retries"`
	// RetryDelay is the delay between retries
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	// GracefulShutdownTimeout is the timeout for graceful shutdown
	GracefulShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DefaultConfig returns defaults sized for interactive batch uploads.
func DefaultConfig() Config {
	return Config{
		Workers:                 8,
		QueueSize:               256,
		MaxRetries:              0,
		RetryDelay:              100 * time.Millisecond,
		GracefulShutdownTimeout: 30 * time.Second,
	}
}

type job[T, R any] struct {
	task  *Task[T]
	reply chan *Result[R]
}

// Pool manages a pool of workers for concurrent task processing
type Pool[T, R any] struct {
	config     Config
	workerFunc WorkerFunc[T, R]
	logger     *zap.Logger

	mu         sync.RWMutex
	closed     bool
	taskChan   chan job[T, R]
	resultChan chan *Result[R]
	wg         sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	// Metrics
	tasksSubmitted int64
	tasksCompleted int64
	tasksFailed    int64
	tasksRetried   int64
	activeWorkers  int64
	queueDepth     int64
}

// New creates a new worker pool
func New[T, R any](cfg Config, fn WorkerFunc[T, R], logger *zap.Logger) (*Pool[T, R], error) {
	if fn == nil {
		return nil, fmt.Errorf("worker function is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.GracefulShutdownTimeout <= 0 {
		cfg.GracefulShutdownTimeout = DefaultConfig().GracefulShutdownTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())

	pool := &Pool[T, R]{
		config:     cfg,
		workerFunc: fn,
		logger:     logger,
		taskChan:   make(chan job[T, R], cfg.QueueSize),
		resultChan: make(chan *Result[R], cfg.QueueSize),
		ctx:        ctx,
		cancel:     cancel,
	}

	return pool, nil
}

// Start launches all workers
func (p *Pool[T, R]) Start() {
	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.Debug("worker pool started",
		zap.Int("workers", p.config.Workers),
		zap.Int("queue_size", p.config.QueueSize))
}

// Submit adds a task to the queue. Its result is delivered on Results.
func (p *Pool[T, R]) Submit(task *Task[T]) error {
	return p.enqueue(job[T, R]{task: task})
}

func (p *Pool[T, R]) enqueue(j job[T, R]) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrShuttingDown
	}

	select {
	case p.taskChan <- j:
		atomic.AddInt64(&p.tasksSubmitted, 1)
		atomic.AddInt64(&p.queueDepth, 1)
		return nil
	default:
		return ErrQueueFull
	}
}

// SubmitWait adds a task and waits for its own result. The result is not
// delivered on Results.
func (p *Pool[T, R]) SubmitWait(ctx context.Context, task *Task[T]) (*Result[R], error) {
	reply := make(chan *Result[R], 1)
	if err := p.enqueue(job[T, R]{task: task, reply: reply}); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-reply:
		return result, nil
	}
}

// Results returns the result channel for async processing
func (p *Pool[T, R]) Results() <-chan *Result[R] {
	return p.resultChan
}

// Stop gracefully shuts down the pool
func (p *Pool[T, R]) Stop() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	// Close task channel to stop workers from receiving new tasks
	close(p.taskChan)
	p.mu.Unlock()

	// Wait for workers with timeout
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
		p.logger.Debug("worker pool stopped gracefully")
	case <-time.After(p.config.GracefulShutdownTimeout):
		p.cancel()
		<-done
		err = fmt.Errorf("worker pool shutdown timed out after %s", p.config.GracefulShutdownTimeout)
		p.logger.Warn("worker pool shutdown timed out")
	}

	p.cancel()
	close(p.resultChan)
	return err
}

// worker is the main worker goroutine
func (p *Pool[T, R]) worker(id int) {
	defer p.wg.Done()

	atomic.AddInt64(&p.activeWorkers, 1)
	defer atomic.AddInt64(&p.activeWorkers, -1)

	for j := range p.taskChan {
		atomic.AddInt64(&p.queueDepth, -1)
		p.processTask(id, j)
	}
}

// processTask handles a single task with retries
func (p *Pool[T, R]) processTask(workerID int, j job[T, R]) {
	task := j.task
	ctx := task.Context
	if ctx == nil {
		ctx = p.ctx
	}

	result := p.run(ctx, task)
	if result.Success {
		atomic.AddInt64(&p.tasksCompleted, 1)
	} else {
		atomic.AddInt64(&p.tasksFailed, 1)
		p.logger.Warn("task failed",
			zap.String("task_id", task.ID),
			zap.Int("worker_id", workerID),
			zap.Error(result.Error))
	}

	if j.reply != nil {
		j.reply <- result
		return
	}
	// Send result (non-blocking)
	select {
	case p.resultChan <- result:
	default:
		p.logger.Warn("result channel full, dropping result",
			zap.String("task_id", task.ID))
	}
}

func (p *Pool[T, R]) run(ctx context.Context, task *Task[T]) *Result[R] {
	var lastErr error
	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return &Result[R]{TaskID: task.ID, Error: err}
		}

		result := p.workerFunc(ctx, task)
		if result == nil {
			result = &Result[R]{Error: fmt.Errorf("worker returned no result")}
		}
		result.TaskID = task.ID
		if result.Success {
			return result
		}
		lastErr = result.Error

		// Don't retry on last attempt
		if attempt < p.config.MaxRetries {
			atomic.AddInt64(&p.tasksRetried, 1)
			p.logger.Debug("retrying task",
				zap.String("task_id", task.ID),
				zap.Int("attempt", attempt+1),
				zap.Error(lastErr))

			select {
			case <-ctx.Done():
				return &Result[R]{TaskID: task.ID, Error: ctx.Err()}
			case <-time.After(p.config.RetryDelay * time.Duration(attempt+1)):
			}
		}
	}

	if p.config.MaxRetries == 0 {
		return &Result[R]{TaskID: task.ID, Error: lastErr}
	}
	return &Result[R]{
		TaskID: task.ID,
		Error:  fmt.Errorf("task failed after %d retries: %w", p.config.MaxRetries, lastErr),
	}
}

// Stats returns current pool statistics
type Stats struct {
	TasksSubmitted int64 `json:"tasksSubmitted"`
	TasksCompleted int64 `json:"tasksCompleted"`
	TasksFailed    int64 `json:"tasksFailed"`
	TasksRetried   int64 `json:"tasksRetried"`
	ActiveWorkers  int64 `json:"activeWorkers"`
	QueueDepth     int64 `json:"queueDepth"`
	QueueCapacity  int   `json:"queueCapacity"`
	Workers        int   `json:"workers"`
}

// Stats returns current pool statistics
func (p *Pool[T, R]) Stats() Stats {
	return Stats{
		TasksSubmitted: atomic.LoadInt64(&p.tasksSubmitted),
		TasksCompleted: atomic.LoadInt64(&p.tasksCompleted),
		TasksFailed:    atomic.LoadInt64(&p.tasksFailed),
		TasksRetried:   atomic.LoadInt64(&p.tasksRetried),
		ActiveWorkers:  atomic.LoadInt64(&p.activeWorkers),
		QueueDepth:     atomic.LoadInt64(&p.queueDepth),
		QueueCapacity:  p.config.QueueSize,
		Workers:        p.config.Workers,
	}
}

// IsHealthy returns true if the pool is operating normally
func (p *Pool[T, R]) IsHealthy() bool {
	stats := p.Stats()
	// Healthy if queue isn't backing up significantly
	return float64(stats.QueueDepth)/float64(stats.QueueCapacity) < 0.9
}

// Map runs fn over items on a temporary pool and returns the outputs in
// input order. Failed items leave a zero value and contribute to the
// joined error.
func Map[T, R any](ctx context.Context, cfg Config, items []T, fn func(context.Context, T) (R, error), logger *zap.Logger) ([]R, error) {
	out := make([]R, len(items))
	if len(items) == 0 {
		return out, nil
	}
	if cfg.QueueSize < len(items) {
		cfg.QueueSize = len(items)
	}
	if cfg.Workers > len(items) {
		cfg.Workers = len(items)
	}

	pool, err := New(cfg, func(ctx context.Context, task *Task[T]) *Result[R] {
		data, err := fn(ctx, task.Payload)
		return &Result[R]{Success: err == nil, Error: err, Data: data}
	}, logger)
	if err != nil {
		return nil, err
	}
	pool.Start()

	for i, item := range items {
		if err := pool.Submit(&Task[T]{ID: strconv.Itoa(i), Payload: item, Context: ctx}); err != nil {
			_ = pool.Stop()
			return nil, fmt.Errorf("submit item %d: %w", i, err)
		}
	}

	var errs []error
	for range items {
		result := <-pool.Results()
		i, _ := strconv.Atoi(result.TaskID)
		if !result.Success {
			errs = append(errs, fmt.Errorf("item %d: %w", i, result.Error))
			continue
		}
		out[i] = result.Data
	}
	if err := pool.Stop(); err != nil {
		errs = append(errs, err)
	}
	return out, errors.Join(errs...)
}
