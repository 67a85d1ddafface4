/*
Package runlog records summaries of finished pipeline runs so that their
stage logs outlive the process that produced them.

A Summary carries the run id, pipeline name, timing, status, the final table
shape and the full stage log. Summarize builds one from the values Execute
returns; Recorder plugs that into a runner's OnRunComplete hook.

# Stores

MemoryStore keeps a fixed number of recent summaries in a ring:

	store, _ := runlog.NewMemoryStore(50)
	runner := pipeline.NewWithConfig(pipeline.Config{
		Name:          "orders",
		OnRunComplete: runlog.Recorder(store, time.Second, nil),
	})

RedisStore shares history between processes. Each summary is stored as JSON
under its own key with an optional TTL, and every pipeline keeps a list of
its newest run ids trimmed to MaxHistory:

	store, err := runlog.NewRedisStore(runlog.RedisConfig{
		Redis:      rdb,
		TTL:        7 * 24 * time.Hour,
		MaxHistory: 200,
	})

	recent, err := store.Recent(ctx, "orders", 10)
*/
package runlog
