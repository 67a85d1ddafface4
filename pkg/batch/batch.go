package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	tferrors "github.com/vnykmshr/tabflow/pkg/common/errors"
	"github.com/vnykmshr/tabflow/pkg/common/validation"
	"github.com/vnykmshr/tabflow/pkg/metrics"
	"github.com/vnykmshr/tabflow/pkg/pipeline"
	"github.com/vnykmshr/tabflow/pkg/table"
)

// Job is one independent pipeline run. The batch never shares a job's
// table with another job.
type Job struct {
	Name   string
	Table  *table.Table
	Stages []pipeline.Stage

	// Runner overrides Config.Runner for this job.
	Runner *pipeline.Runner
}

// Outcome reports how a job ended. Run is nil when the job panicked outside
// the runner or was never started.
type Outcome struct {
	Job      string
	Index    int
	Run      *pipeline.Run
	Err      error
	WorkerID int
	Duration time.Duration
}

// Status is "success" or "failure".
func (o Outcome) Status() string {
	if o.Err != nil {
		return "failure"
	}
	return "success"
}

// Config holds configuration for a batch.
type Config struct {
	// Name labels log lines and metrics.
	Name string

	// Workers is the number of jobs that may run at once.
	Workers int

	// QueueSize bounds pending jobs. Submit blocks while the queue is full.
	// Defaults to twice the worker count.
	QueueSize int

	// JobTimeout bounds each job's run. Zero means no limit.
	JobTimeout time.Duration

	// Runner executes jobs. Defaults to pipeline.New().
	Runner *pipeline.Runner

	// Logger receives job lifecycle events. Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics is optional.
	Metrics *metrics.Registry

	// OnJobStart is called by the worker before it runs a job.
	OnJobStart func(workerID int, job Job)

	// OnJobComplete is called after a job finishes, whatever its outcome.
	OnJobComplete func(outcome Outcome)
}

type queuedJob struct {
	ctx   context.Context
	job   Job
	index int
}

// Batch runs independent pipeline jobs on a bounded set of workers.
type Batch struct {
	config Config
	logger *slog.Logger

	queue    chan queuedJob
	workerWg sync.WaitGroup

	// submitMu serializes submitters against each other and against Wait.
	submitMu sync.Mutex
	closed   bool

	mu       sync.Mutex
	outcomes []Outcome

	closeOnce sync.Once
}

// New creates a batch with the given number of workers.
func New(workers int) (*Batch, error) {
	return NewWithConfig(Config{Workers: workers})
}

// NewWithConfig creates a batch and starts its workers.
func NewWithConfig(config Config) (*Batch, error) {
	if err := validation.ValidatePositive("batch", "workers", config.Workers); err != nil {
		return nil, err
	}
	if config.QueueSize < 0 {
		return nil, tferrors.NewConfigurationError("batch", "queue_size", config.QueueSize, "cannot be negative")
	}
	if err := validation.ValidateNonNegativeDuration("batch", "job_timeout", config.JobTimeout); err != nil {
		return nil, err
	}
	if config.QueueSize == 0 {
		config.QueueSize = config.Workers * 2
	}
	if config.Runner == nil {
		config.Runner = pipeline.New()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.Name != "" {
		logger = logger.With("batch", config.Name)
	}

	b := &Batch{
		config: config,
		logger: logger,
		queue:  make(chan queuedJob, config.QueueSize),
	}

	b.workerWg.Add(config.Workers)
	for i := 0; i < config.Workers; i++ {
		w := &worker{id: i, batch: b}
		go w.run()
	}
	return b, nil
}

// Submit queues a job using context.Background().
func (b *Batch) Submit(job Job) error {
	return b.SubmitWithContext(context.Background(), job)
}

// SubmitWithContext queues a job. ctx governs both the wait for queue space
// and the job's run. Jobs that cannot be queued do not get an outcome.
func (b *Batch) SubmitWithContext(ctx context.Context, job Job) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if job.Table == nil {
		return tferrors.NewConfigurationError("batch", "table", nil, "cannot be nil").
			WithHint("every job needs an initial table")
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("cannot submit job %q: %w", job.Name, ctx.Err())
	default:
	}

	// submitMu is held across the send so Wait cannot close the queue
	// underneath a blocked submitter. Workers only take mu, so they keep
	// draining the queue meanwhile.
	b.submitMu.Lock()
	defer b.submitMu.Unlock()
	if b.closed {
		return fmt.Errorf("cannot submit job %q: %w", job.Name, tferrors.ErrClosed)
	}

	b.mu.Lock()
	index := len(b.outcomes)
	b.outcomes = append(b.outcomes, Outcome{Job: job.Name, Index: index, WorkerID: -1})
	b.mu.Unlock()

	select {
	case b.queue <- queuedJob{ctx: ctx, job: job, index: index}:
	case <-ctx.Done():
		b.mu.Lock()
		b.outcomes = b.outcomes[:index]
		b.mu.Unlock()
		return fmt.Errorf("cannot submit job %q: %w", job.Name, ctx.Err())
	}

	b.observeSubmit()
	return nil
}

// Wait stops intake, waits for every queued job and returns the outcomes in
// submit order. Calling Wait more than once returns the same outcomes.
func (b *Batch) Wait() []Outcome {
	b.closeOnce.Do(func() {
		b.submitMu.Lock()
		b.closed = true
		close(b.queue)
		b.submitMu.Unlock()
	})
	b.workerWg.Wait()

	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Outcome, len(b.outcomes))
	copy(out, b.outcomes)
	return out
}

// Workers returns the configured worker count.
func (b *Batch) Workers() int {
	return b.config.Workers
}

// Pending returns the number of jobs waiting for a worker.
func (b *Batch) Pending() int {
	return len(b.queue)
}

// Failed returns the outcomes that ended in an error.
func Failed(outcomes []Outcome) []Outcome {
	var failed []Outcome
	for _, o := range outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

func (b *Batch) record(o Outcome) {
	b.mu.Lock()
	b.outcomes[o.Index] = o
	b.mu.Unlock()
}

func (b *Batch) label() string {
	if b.config.Name == "" {
		return "default"
	}
	return b.config.Name
}

func (b *Batch) observeSubmit() {
	if m := b.config.Metrics; m != nil {
		m.BatchJobsSubmitted.WithLabelValues(b.label()).Inc()
		m.BatchQueuedJobs.WithLabelValues(b.label()).Set(float64(len(b.queue)))
	}
}
