package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vnykmshr/tabflow/internal/testutil"
)

func TestNewRegistryRegistersAllCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRegistry(reg)

	m.RunsTotal.WithLabelValues("p", "success").Inc()
	m.RunDuration.WithLabelValues("p").Observe(0.5)
	m.StageDuration.WithLabelValues("p", "s").Observe(0.1)
	m.StageRowsIn.WithLabelValues("p", "s").Add(10)
	m.StageRowsOut.WithLabelValues("p", "s").Add(9)
	m.StageMemoryDelta.WithLabelValues("p", "s").Set(-128)
	m.ValidationFailures.WithLabelValues("p", "s", "fatal").Inc()
	m.BatchJobsSubmitted.WithLabelValues("b").Inc()
	m.BatchJobsCompleted.WithLabelValues("b", "success").Inc()
	m.BatchActiveWorkers.WithLabelValues("b").Set(1)
	m.BatchQueuedJobs.WithLabelValues("b").Set(0)
	m.TriggerFires.WithLabelValues("t", "cron").Inc()
	m.TriggerFailures.WithLabelValues("t", "cron").Inc()
	m.TriggerThrottled.WithLabelValues("t", "file").Inc()
	m.RowsRead.WithLabelValues("csv").Add(3)
	m.RowsWritten.WithLabelValues("csv").Add(3)
	m.IODuration.WithLabelValues("csv", "read").Observe(0.01)

	families, err := reg.Gather()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(families), 17)

	testutil.AssertFloat(t, promtest.ToFloat64(m.StageMemoryDelta.WithLabelValues("p", "s")), -128)
}

func TestDuplicateNamespacePanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewRegistry(reg)

	defer func() {
		if recover() == nil {
			t.Error("registering the same namespace twice should panic")
		}
	}()
	NewRegistry(reg)
}

func TestSeparateNamespacesCoexist(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewRegistryWithConfig(Config{Registry: reg, Namespace: "a"})
	NewRegistryWithConfig(Config{Registry: reg, Namespace: "b"})
}
