package batch

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"
)

type worker struct {
	id    int
	batch *Batch
}

// run drains the queue until Wait closes it.
func (w *worker) run() {
	defer w.batch.workerWg.Done()

	for qj := range w.batch.queue {
		w.batch.observeQueue()
		w.execute(qj)
	}
}

func (w *worker) execute(qj queuedJob) {
	b := w.batch
	start := time.Now()
	outcome := Outcome{Job: qj.job.Name, Index: qj.index, WorkerID: w.id}

	b.observeActive(1)
	defer func() {
		if r := recover(); r != nil {
			outcome.Err = fmt.Errorf("job %q panicked: %v\nStack trace:\n%s", qj.job.Name, r, debug.Stack())
		}
		outcome.Duration = time.Since(start)
		b.observeActive(-1)
		b.finish(outcome)
	}()

	if b.config.OnJobStart != nil {
		b.config.OnJobStart(w.id, qj.job)
	}

	ctx := qj.ctx
	if b.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.config.JobTimeout)
		defer cancel()
	}

	runner := qj.job.Runner
	if runner == nil {
		runner = b.config.Runner
	}
	outcome.Run, outcome.Err = runner.Execute(ctx, qj.job.Table, qj.job.Stages)
}

func (b *Batch) finish(o Outcome) {
	b.record(o)

	if o.Err != nil {
		b.logger.Warn("job failed",
			"job", o.Job,
			"index", o.Index,
			"worker", o.WorkerID,
			"duration", o.Duration,
			"error", o.Err)
	} else {
		b.logger.Debug("job completed",
			"job", o.Job,
			"index", o.Index,
			"worker", o.WorkerID,
			"duration", o.Duration)
	}

	if m := b.config.Metrics; m != nil {
		m.BatchJobsCompleted.WithLabelValues(b.label(), o.Status()).Inc()
	}
	if b.config.OnJobComplete != nil {
		b.config.OnJobComplete(o)
	}
}

func (b *Batch) observeActive(delta float64) {
	if m := b.config.Metrics; m != nil {
		m.BatchActiveWorkers.WithLabelValues(b.label()).Add(delta)
	}
}

func (b *Batch) observeQueue() {
	if m := b.config.Metrics; m != nil {
		m.BatchQueuedJobs.WithLabelValues(b.label()).Set(float64(len(b.queue)))
	}
}
