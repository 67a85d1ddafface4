package commands

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/vnykmshr/tabflow/internal/app"
	"github.com/vnykmshr/tabflow/internal/cli/ui"
)

func newHistoryCommand() *cobra.Command {
	var (
		path   string
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "list recent runs of a pipeline",
		Long: `History lists the most recent recorded runs of a pipeline, newest first.
Runs are shared between processes only when redis.addr is configured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(path)
			if err != nil {
				return err
			}
			a, err := app.New(cfg, app.Options{Logger: discardLogger()})
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			summaries, err := a.History().Recent(cmd.Context(), cfg.Name, limit)
			if err != nil {
				return err
			}
			if asJSON {
				data, err := sonic.Marshal(summaries)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			ui.New(cmd.OutOrStdout()).History(summaries)
			return nil
		},
	}
	addConfigFlag(cmd, &path)
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print summaries as JSON")
	return cmd
}
