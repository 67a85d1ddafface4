package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vnykmshr/tabflow/internal/app"
	"github.com/vnykmshr/tabflow/internal/cli/ui"
	"github.com/vnykmshr/tabflow/internal/config"
)

func newCheckCommand() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "validate a pipeline definition without running it",
		Long: `Check loads a pipeline definition, validates every setting and builds each
stage from the transform and rule registries. No data is read or written.
All problems are listed, not only the first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := ui.New(cmd.OutOrStdout())

			cfg, err := config.Load(path)
			if err != nil {
				p.Error("%v", err)
				return err
			}
			a, err := app.New(cfg, app.Options{Logger: discardLogger()})
			if err != nil {
				for _, e := range flatten(err) {
					p.Error("%v", e)
				}
				return fmt.Errorf("%s is invalid", path)
			}
			defer func() { _ = a.Close() }()

			p.Success("%s: %d stage(s)", cfg.Name, len(a.Stages()))
			for i, s := range a.Stages() {
				rule := "-"
				if s.Rule() != nil {
					rule = s.Rule().Name()
				}
				fmt.Fprintf(cmd.OutOrStdout(), "  %d. %s [%s] %s\n", i+1, s.Name(), s.Severity(), rule)
			}
			if !cfg.HasSink() {
				p.Warning("no sink configured, results are discarded")
			}
			return nil
		},
	}
	addConfigFlag(cmd, &path)
	return cmd
}

// flatten expands errors.Join trees into their leaves.
func flatten(err error) []error {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return []error{err}
	}
	var out []error
	for _, e := range joined.Unwrap() {
		out = append(out, flatten(e)...)
	}
	return out
}

