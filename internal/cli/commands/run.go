package commands

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/vnykmshr/tabflow/internal/app"
	"github.com/vnykmshr/tabflow/internal/cli/ui"
	"github.com/vnykmshr/tabflow/pkg/batch"
	"github.com/vnykmshr/tabflow/pkg/metrics"
	"github.com/vnykmshr/tabflow/pkg/runlog"
)

type runOptions struct {
	configs []string
	workers int
	json    bool
}

func newRunCommand() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run one or more pipelines once",
		Long: `Run reads each pipeline's source, executes its stages and writes the sink.

With several -c flags the pipelines run concurrently on a bounded worker
pool. Each pipeline owns its data; one failing does not stop the others.
The command exits non-zero when any pipeline fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipelines(cmd, opts)
		},
	}
	cmd.Flags().StringArrayVarP(&opts.configs, "config", "c", nil, "pipeline definition file, repeatable")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 4, "pipelines to run at once")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print run summaries as JSON")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func runPipelines(cmd *cobra.Command, opts *runOptions) error {
	apps := make([]*app.App, 0, len(opts.configs))
	defer func() {
		for _, a := range apps {
			_ = a.Close()
		}
	}()

	m, _ := app.NewMetrics()
	for i, path := range opts.configs {
		cfg, err := loadConfig(path)
		if err != nil {
			return err
		}
		if i == 0 {
			closer, err := setupLogging(cfg.Log)
			if err != nil {
				return err
			}
			defer func() { _ = closer.Close() }()
		}
		a, err := app.New(cfg, app.Options{Metrics: m})
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		apps = append(apps, a)
	}

	ctx := cmd.Context()
	var results []*app.Result
	if len(apps) == 1 {
		res, _ := runOne(ctx, apps[0])
		results = append(results, res)
	} else {
		var err error
		if results, err = runBatch(ctx, apps, opts.workers, m); err != nil {
			return err
		}
	}

	return printResults(cmd, results, opts.json)
}

// runOne never returns a nil result so that read failures still print.
func runOne(ctx context.Context, a *app.App) (*app.Result, error) {
	res, err := a.Run(ctx)
	if res == nil {
		res = &app.Result{Summary: runlog.Summarize(nil, err)}
		res.Summary.Pipeline = a.Name()
	}
	return res, err
}

func runBatch(ctx context.Context, apps []*app.App, workers int, m *metrics.Registry) ([]*app.Result, error) {
	b, err := batch.NewWithConfig(batch.Config{Name: "run", Workers: workers, Metrics: m})
	if err != nil {
		return nil, err
	}

	results := make([]*app.Result, len(apps))
	submitted := make([]int, 0, len(apps))
	for i, a := range apps {
		input, err := a.Read(ctx)
		if err != nil {
			results[i] = &app.Result{Summary: runlog.Summarize(nil, err)}
			results[i].Summary.Pipeline = a.Name()
			continue
		}
		job := batch.Job{Name: a.Name(), Table: input, Stages: a.Stages(), Runner: a.Runner()}
		if err := b.SubmitWithContext(ctx, job); err != nil {
			b.Wait()
			return nil, err
		}
		submitted = append(submitted, i)
	}

	for k, o := range b.Wait() {
		a := apps[submitted[k]]
		res, _ := a.Finish(ctx, o.Run, o.Err)
		results[submitted[k]] = res
	}
	return results, nil
}

func printResults(cmd *cobra.Command, results []*app.Result, asJSON bool) error {
	failed := 0
	summaries := make([]runlog.Summary, len(results))
	for i, r := range results {
		summaries[i] = r.Summary
		if r.Summary.Status != runlog.StatusSuccess {
			failed++
		}
	}

	out := cmd.OutOrStdout()
	if asJSON {
		data, err := sonic.ConfigStd.MarshalIndent(summaries, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	} else {
		p := ui.New(out)
		for _, s := range summaries {
			p.Summary(s)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d pipeline(s) failed", failed, len(results))
	}
	return nil
}
