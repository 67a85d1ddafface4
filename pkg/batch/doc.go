/*
Package batch runs independent pipeline jobs concurrently on a bounded set of
workers.

Every job owns its initial table, its stages and the log its run produces.
Jobs never see each other's intermediate tables, so one failing job cannot
affect another.

# Basic Usage

	b, err := batch.New(4)
	if err != nil {
		return err
	}

	for _, region := range regions {
		if err := b.Submit(batch.Job{
			Name:   region.Name,
			Table:  region.Sales,
			Stages: stages,
		}); err != nil {
			return err
		}
	}

	for _, o := range b.Wait() {
		fmt.Println(o.Job, o.Status())
	}

Wait stops intake and blocks until every queued job has finished. Outcomes
come back in submit order regardless of which worker ran them or when.

# Configuration

	b, err := batch.NewWithConfig(batch.Config{
		Name:       "nightly",
		Workers:    8,
		QueueSize:  32,
		JobTimeout: 10 * time.Minute,
		Runner:     runner,
		Metrics:    metrics.NewRegistry(prometheus.DefaultRegisterer),
	})

Submit blocks while the queue is full. SubmitWithContext gives up when its
context is done, and the same context then bounds the job's run.

# Failure Handling

A job fails when its pipeline fails, when JobTimeout expires, or when a hook
panics. Panics are recovered and reported in Outcome.Err together with the
stack trace; the worker keeps serving the queue. Use Failed to pick out the
outcomes that need attention.
*/
package batch
