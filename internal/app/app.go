// Package app assembles a runnable pipeline from a loaded definition: the
// source reader, the stages, the sink writer, run history and triggers.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/vnykmshr/tabflow/internal/config"
	"github.com/vnykmshr/tabflow/pkg/metrics"
	"github.com/vnykmshr/tabflow/pkg/pipeline"
	"github.com/vnykmshr/tabflow/pkg/quality"
	"github.com/vnykmshr/tabflow/pkg/runlog"
	"github.com/vnykmshr/tabflow/pkg/table"
	"github.com/vnykmshr/tabflow/pkg/tableio"
	"github.com/vnykmshr/tabflow/pkg/trigger"
)

// memoryHistory is the ring size used when no Redis address is configured.
const memoryHistory = 50

// Options holds process-wide dependencies shared by every App.
type Options struct {
	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Metrics is optional. One registry may be shared by several apps.
	Metrics *metrics.Registry

	// History overrides the store derived from the redis settings.
	History runlog.Store
}

// App is one pipeline definition ready to run.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Registry

	runner *pipeline.Runner
	stages []pipeline.Stage
	reader tableio.Reader
	writer tableio.Writer

	history runlog.Store
	rdb     *redis.Client
}

// Result is what one run produced.
type Result struct {
	Run     *pipeline.Run
	Summary runlog.Summary
	Report  *quality.Report
}

// New validates cfg and builds every component it names. No source is read
// and no sink is touched until Run.
func New(cfg *config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	stages, err := cfg.BuildStages()
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{
		cfg:     cfg,
		logger:  logger.With("pipeline", cfg.Name),
		metrics: opts.Metrics,
		stages:  stages,
	}

	src := cfg.Source
	src.Logger, src.Metrics = a.logger, a.metrics
	if a.reader, err = tableio.NewReader(src); err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	if cfg.HasSink() {
		sink := cfg.Sink
		sink.Logger, sink.Metrics = a.logger, a.metrics
		if a.writer, err = tableio.NewWriter(sink); err != nil {
			return nil, fmt.Errorf("sink: %w", err)
		}
	}

	if a.history = opts.History; a.history == nil {
		if a.history, err = a.openHistory(); err != nil {
			return nil, err
		}
	}

	a.runner = pipeline.NewWithConfig(pipeline.Config{
		Name:    cfg.Name,
		Logger:  a.logger,
		Metrics: a.metrics,
	})
	return a, nil
}

func (a *App) openHistory() (runlog.Store, error) {
	rc := a.cfg.Redis
	if rc.Addr == "" {
		return runlog.NewMemoryStore(memoryHistory)
	}
	a.rdb = redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})
	return runlog.NewRedisStore(runlog.RedisConfig{
		Redis:      a.rdb,
		Prefix:     rc.KeyPrefix,
		TTL:        rc.TTL,
		MaxHistory: rc.MaxHistory,
	})
}

// Name returns the pipeline name.
func (a *App) Name() string { return a.cfg.Name }

// Config returns the definition the app was built from.
func (a *App) Config() *config.Config { return a.cfg }

// Stages returns the built stages in order.
func (a *App) Stages() []pipeline.Stage { return a.stages }

// Runner returns the runner used by Run.
func (a *App) Runner() *pipeline.Runner { return a.runner }

// History returns the run history store.
func (a *App) History() runlog.Store { return a.history }

// Read loads the source table.
func (a *App) Read(ctx context.Context) (*table.Table, error) {
	t, err := a.reader.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	return t, nil
}

// Run reads the source, executes the stages, writes the sink on success
// and records the run.
func (a *App) Run(ctx context.Context) (*Result, error) {
	input, err := a.Read(ctx)
	if err != nil {
		return nil, err
	}
	run, err := a.runner.Execute(ctx, input, a.stages)
	return a.Finish(ctx, run, err)
}

// Finish completes a run executed elsewhere, such as in a batch: it writes
// the sink when the run succeeded, then records the summary. A sink failure
// is recorded as a failed run.
func (a *App) Finish(ctx context.Context, run *pipeline.Run, runErr error) (*Result, error) {
	if runErr == nil && a.writer != nil {
		if werr := a.writer.Write(ctx, run.Table); werr != nil {
			runErr = fmt.Errorf("write sink: %w", werr)
		}
	}

	res := &Result{Run: run, Summary: runlog.Summarize(run, runErr)}
	if res.Summary.Pipeline == "" {
		res.Summary.Pipeline = a.cfg.Name
	}
	if runErr == nil {
		report := quality.Compute(run.Table)
		res.Report = &report
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := a.history.Save(saveCtx, res.Summary); err != nil {
		a.logger.Warn("run summary not saved", "run_id", res.Summary.ID, "error", err)
	}
	return res, runErr
}

// Trigger builds a trigger that runs the pipeline on the configured cron
// schedule and on changes to the watched file. Start it to begin firing.
func (a *App) Trigger() (*trigger.Trigger, error) {
	tc := a.cfg.Trigger
	if tc.Cron == "" && tc.Watch == "" {
		return nil, errors.New("no trigger configured: set trigger.cron or trigger.watch")
	}

	tr, err := trigger.NewWithConfig(trigger.Config{
		Location:      a.cfg.Location(),
		Debounce:      tc.Debounce,
		SkipIfRunning: true,
		MaxRuns:       tc.MaxRuns,
		Per:           tc.Per,
		Logger:        a.logger,
		Metrics:       a.metrics,
	})
	if err != nil {
		return nil, err
	}

	job := func(ctx context.Context) error {
		_, err := a.Run(ctx)
		return err
	}
	if tc.Cron != "" {
		if err := tr.Cron(a.cfg.Name+"/cron", tc.Cron, job); err != nil {
			tr.Stop()
			return nil, err
		}
	}
	if tc.Watch != "" {
		if err := tr.Watch(a.cfg.Name+"/watch", tc.Watch, job); err != nil {
			tr.Stop()
			return nil, err
		}
	}
	return tr, nil
}

// Close releases the history store and its Redis client.
func (a *App) Close() error {
	err := a.history.Close()
	if a.rdb != nil {
		err = errors.Join(err, a.rdb.Close())
	}
	return err
}

// NewMetrics creates a metrics registry on a fresh Prometheus registry and
// returns both, for commands that expose /metrics.
func NewMetrics() (*metrics.Registry, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return metrics.NewRegistry(reg), reg
}
