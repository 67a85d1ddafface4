/*
Package trigger starts jobs on cron schedules and when watched files change.

A job is any func(ctx) error; in tabflow it usually reads a source, runs a
pipeline and writes the sink.

# Cron

	tr := trigger.New()
	err := tr.Cron("nightly-orders", "0 30 2 * * *", job)

Expressions take five fields, or six with a leading seconds field, and the
descriptors understood by robfig/cron (@hourly, @daily, @every 15m). Set
Config.SkipIfRunning to drop a tick while the previous run is still going.

# File Watching

	err := tr.Watch("orders-drop", "/data/in/orders.csv", job)

The watcher listens on the file's directory, so the file may be created or
atomically replaced after registration. Writes that arrive within
Config.Debounce of each other produce a single run.

# Lifecycle

Nothing fires before Start. Stop cancels the context passed to running jobs
and waits for them to return; a stopped trigger cannot be restarted. Fire runs
a job immediately on the caller's goroutine, which is how the CLI executes a
trigger once.

Errors and panics from jobs are logged, counted in the trigger metrics and
passed to Config.OnError. They never stop the trigger.
*/
package trigger
