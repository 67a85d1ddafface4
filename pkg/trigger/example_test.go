package trigger_test

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vnykmshr/tabflow/pkg/trigger"
)

func ExampleTrigger_Fire() {
	tr, _ := trigger.NewWithConfig(trigger.Config{Logger: slog.New(slog.DiscardHandler)})
	defer tr.Stop()

	_ = tr.Cron("nightly", "@daily", func(ctx context.Context) error {
		ev, _ := trigger.EventFrom(ctx)
		fmt.Println("running", ev.Trigger, "via", ev.Kind)
		return nil
	})

	if err := tr.Fire(context.Background(), "nightly"); err != nil {
		fmt.Println("error:", err)
	}
	// Output:
	// running nightly via manual
}
