package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	tferrors "github.com/vnykmshr/tabflow/pkg/common/errors"
	"github.com/vnykmshr/tabflow/pkg/common/validation"
	"github.com/vnykmshr/tabflow/pkg/metrics"
)

// Job is the work a trigger starts. It is usually a closure around
// pipeline.Runner.Execute.
type Job func(ctx context.Context) error

// Kind identifies what fired a job.
type Kind string

const (
	KindCron   Kind = "cron"
	KindFile   Kind = "file"
	KindManual Kind = "manual"
)

// Event describes one firing. Jobs can read it with EventFrom.
type Event struct {
	Trigger string
	Kind    Kind
	Path    string
	At      time.Time
}

type eventKey struct{}

// EventFrom returns the event that started the job running under ctx.
func EventFrom(ctx context.Context) (Event, bool) {
	ev, ok := ctx.Value(eventKey{}).(Event)
	return ev, ok
}

// DefaultDebounce is how long a watched file must stay quiet before its
// job runs.
const DefaultDebounce = 500 * time.Millisecond

// Config holds configuration for a Trigger.
type Config struct {
	// Location evaluates cron expressions. Defaults to time.Local.
	Location *time.Location

	// Debounce coalesces bursts of file events. Defaults to DefaultDebounce.
	Debounce time.Duration

	// SkipIfRunning drops a cron firing while the previous run of the same
	// trigger is still going.
	SkipIfRunning bool

	// MaxRuns caps how often each trigger may start its job: at most
	// MaxRuns runs in any Per window, with unused runs not carried beyond
	// MaxRuns. Zero disables the cap.
	MaxRuns int
	Per     time.Duration

	// Logger receives firing and failure events. Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics is optional.
	Metrics *metrics.Registry

	// OnFire is called before each job runs.
	OnFire func(ev Event)

	// OnError is called when a job returns an error or panics.
	OnError func(ev Event, err error)
}

type entry struct {
	name  string
	kind  Kind
	job   Job
	path  string
	cron  cron.EntryID
	limit *runLimiter
}

// Trigger starts jobs on cron schedules and on file changes.
type Trigger struct {
	config Config
	logger *slog.Logger
	cron   *cron.Cron

	mu      sync.Mutex
	entries map[string]*entry
	paths   map[string]string // absolute path -> trigger name
	dirs    map[string]bool
	watcher *fsnotify.Watcher
	running bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a trigger with the default configuration.
func New() *Trigger {
	t, _ := NewWithConfig(Config{})
	return t
}

// NewWithConfig creates a trigger. Nothing fires until Start.
func NewWithConfig(config Config) (*Trigger, error) {
	if err := validation.ValidateNonNegativeDuration("trigger", "debounce", config.Debounce); err != nil {
		return nil, err
	}
	if config.Debounce == 0 {
		config.Debounce = DefaultDebounce
	}
	if config.MaxRuns < 0 {
		return nil, tferrors.NewConfigurationError("trigger", "max_runs", config.MaxRuns, "cannot be negative").
			WithHint("use 0 for no cap")
	}
	if config.MaxRuns > 0 && config.Per <= 0 {
		return nil, tferrors.NewConfigurationError("trigger", "per", config.Per, "must be positive when max_runs is set")
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := []cron.Option{
		cron.WithLocation(config.Location),
		cron.WithParser(parser),
		cron.WithLogger(cronLogger{logger}),
	}
	if config.SkipIfRunning {
		opts = append(opts, cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger})))
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Trigger{
		config:  config,
		logger:  logger,
		cron:    cron.New(opts...),
		entries: make(map[string]*entry),
		paths:   make(map[string]string),
		dirs:    make(map[string]bool),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Cron registers job to run on a cron schedule. Expressions may have five
// or six fields (leading seconds) or be a descriptor such as "@hourly" or
// "@every 5m".
func (t *Trigger) Cron(name, expr string, job Job) error {
	if err := t.checkEntry(name, job); err != nil {
		return err
	}
	schedule, err := ParseSchedule(expr)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, dup := t.entries[name]; dup {
		return duplicate(name)
	}
	e := &entry{name: name, kind: KindCron, job: job, limit: t.newLimiter()}
	e.cron = t.cron.Schedule(schedule, cron.FuncJob(func() {
		t.fire(e, "")
	}))
	t.entries[name] = e
	return nil
}

// Fire runs the named job immediately on the caller's goroutine and returns
// its error.
func (t *Trigger) Fire(ctx context.Context, name string) error {
	t.mu.Lock()
	e, ok := t.entries[name]
	t.mu.Unlock()
	if !ok {
		return fmt.Errorf("trigger: unknown trigger %q", name)
	}
	return t.run(ctx, e, Event{Trigger: name, Kind: KindManual, Path: e.path, At: time.Now()})
}

// Next returns the next scheduled time of a cron trigger. It is zero until
// Start has been called.
func (t *Trigger) Next(name string) (time.Time, bool) {
	t.mu.Lock()
	e, ok := t.entries[name]
	t.mu.Unlock()
	if !ok || e.kind != KindCron {
		return time.Time{}, false
	}
	return t.cron.Entry(e.cron).Next, true
}

// Names returns the registered trigger names in no particular order.
func (t *Trigger) Names() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	return names
}

// Start begins firing. It returns immediately.
func (t *Trigger) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return nil
	}
	if t.ctx.Err() != nil {
		return fmt.Errorf("trigger: %w", tferrors.ErrClosed)
	}
	t.running = true
	t.cron.Start()
	if t.watcher != nil {
		t.wg.Add(1)
		go t.watch(t.watcher)
	}
	t.logger.Info("triggers started", "count", len(t.entries), "watched_files", len(t.paths))
	return nil
}

// Stop halts all triggers and waits for running jobs to return. Jobs see
// their context cancelled.
func (t *Trigger) Stop() {
	t.mu.Lock()
	t.cancel()
	watcher := t.watcher
	t.watcher = nil
	t.running = false
	t.mu.Unlock()

	<-t.cron.Stop().Done()
	if watcher != nil {
		_ = watcher.Close()
	}
	t.wg.Wait()
}

func (t *Trigger) checkEntry(name string, job Job) error {
	if err := validation.ValidateNotEmpty("trigger", "name", name); err != nil {
		return err
	}
	if job == nil {
		return tferrors.NewConfigurationError("trigger", "job", nil, "cannot be nil")
	}
	return nil
}

func duplicate(name string) error {
	return tferrors.NewConfigurationError("trigger", "name", name, "duplicate name").
		WithHint("every trigger needs a distinct name")
}

func (t *Trigger) newLimiter() *runLimiter {
	if t.config.MaxRuns == 0 {
		return nil
	}
	return newRunLimiter(t.config.MaxRuns, t.config.Per)
}

// fire is the asynchronous entry point used by cron and the file watcher.
func (t *Trigger) fire(e *entry, path string) {
	_ = t.run(t.ctx, e, Event{Trigger: e.name, Kind: e.kind, Path: path, At: time.Now()})
}

func (t *Trigger) run(ctx context.Context, e *entry, ev Event) (err error) {
	label := []string{ev.Trigger, string(ev.Kind)}
	if e.limit != nil && !e.limit.allow(ev.At) {
		if m := t.config.Metrics; m != nil {
			m.TriggerThrottled.WithLabelValues(label...).Inc()
		}
		t.logger.Warn("trigger throttled",
			"trigger", ev.Trigger,
			"kind", ev.Kind,
			"max_runs", t.config.MaxRuns,
			"per", t.config.Per)
		return ErrThrottled
	}
	if m := t.config.Metrics; m != nil {
		m.TriggerFires.WithLabelValues(label...).Inc()
	}
	if t.config.OnFire != nil {
		t.config.OnFire(ev)
	}
	t.logger.Info("trigger fired", "trigger", ev.Trigger, "kind", ev.Kind, "path", ev.Path)

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("trigger %q panicked: %v\nStack trace:\n%s", ev.Trigger, r, debug.Stack())
		}
		if err == nil {
			t.logger.Debug("triggered job completed", "trigger", ev.Trigger, "duration", time.Since(start))
			return
		}
		t.logger.Error("triggered job failed",
			"trigger", ev.Trigger,
			"kind", ev.Kind,
			"duration", time.Since(start),
			"error", err)
		if m := t.config.Metrics; m != nil {
			m.TriggerFailures.WithLabelValues(label...).Inc()
		}
		if t.config.OnError != nil {
			t.config.OnError(ev, err)
		}
	}()

	return e.job(context.WithValue(ctx, eventKey{}, ev))
}

// ParseSchedule parses a cron expression the way Cron does.
func ParseSchedule(expr string) (cron.Schedule, error) {
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, tferrors.NewConfigurationError("trigger", "schedule", expr, err.Error()).
			WithHint("use five fields, six with seconds, or a descriptor like @hourly")
	}
	return schedule, nil
}

var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// cronLogger routes cron's internal messages to slog at debug level.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
