package pipeline

import "time"

// Stats holds execution statistics aggregated over every run of a runner.
type Stats struct {
	TotalRuns       int64
	SuccessfulRuns  int64
	FailedRuns      int64
	TotalDuration   time.Duration
	AverageDuration time.Duration
	StageStats      map[string]StageStats
	LastRunAt       time.Time
}

// StageStats holds statistics for stages sharing a name.
type StageStats struct {
	Name            string
	Executions      int64
	Successes       int64
	Failures        int64
	Warnings        int64
	RowsIn          int64
	RowsOut         int64
	TotalDuration   time.Duration
	AverageDuration time.Duration
}

type stageOutcome int

const (
	stageSucceeded stageOutcome = iota
	stageWarned
	stageFailed
)

// Stats returns a copy of the runner's statistics.
func (r *Runner) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	statsCopy := r.stats
	statsCopy.StageStats = make(map[string]StageStats, len(r.stats.StageStats))
	for k, v := range r.stats.StageStats {
		statsCopy.StageStats[k] = v
	}

	if statsCopy.TotalRuns > 0 {
		statsCopy.AverageDuration = time.Duration(int64(statsCopy.TotalDuration) / statsCopy.TotalRuns)
	}

	return statsCopy
}

func (r *Runner) updateStats(run *Run, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats.TotalRuns++
	r.stats.TotalDuration += run.Duration
	r.stats.LastRunAt = run.EndTime

	if err == nil {
		r.stats.SuccessfulRuns++
	} else {
		r.stats.FailedRuns++
	}
}

func (r *Runner) recordStage(name string, d time.Duration, rowsIn, rowsOut int, outcome stageOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats, exists := r.stats.StageStats[name]
	if !exists {
		stats = StageStats{Name: name}
	}

	stats.Executions++
	stats.TotalDuration += d
	stats.RowsIn += int64(rowsIn)
	stats.RowsOut += int64(rowsOut)

	switch outcome {
	case stageSucceeded:
		stats.Successes++
	case stageWarned:
		stats.Successes++
		stats.Warnings++
	case stageFailed:
		stats.Failures++
	}

	stats.AverageDuration = time.Duration(int64(stats.TotalDuration) / stats.Executions)
	r.stats.StageStats[name] = stats
}
