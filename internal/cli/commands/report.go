package commands

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/vnykmshr/tabflow/internal/cli/ui"
	"github.com/vnykmshr/tabflow/pkg/quality"
	"github.com/vnykmshr/tabflow/pkg/tableio"
)

type reportOptions struct {
	format    string
	delimiter string
	threshold float64
	json      bool
}

func newReportCommand() *cobra.Command {
	opts := &reportOptions{}
	cmd := &cobra.Command{
		Use:   "report <file>",
		Short: "print a data quality report for a file",
		Long: `Report loads a csv, json or parquet file and prints per-column completeness,
the number of duplicate rows and the distribution of column types. Column
types are inferred unless the file carries a schema.`,
		Example: `  $ tabflow report data/orders.csv
  $ tabflow report --delimiter '\t' data/export.tsv
  $ tabflow report --json data/orders.parquet`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := tableio.NewReader(tableio.Options{
				Path:      args[0],
				Format:    opts.format,
				Delimiter: opts.delimiter,
				Logger:    discardLogger(),
			})
			if err != nil {
				return err
			}
			t, err := r.Read(cmd.Context())
			if err != nil {
				return err
			}

			report := quality.ComputeWithThreshold(t, opts.threshold)
			out := cmd.OutOrStdout()
			if opts.json {
				data, err := sonic.Marshal(report)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}
			ui.New(out).Report(report, opts.threshold)
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "file format, derived from the extension when empty")
	cmd.Flags().StringVar(&opts.delimiter, "delimiter", "", "csv field separator")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", quality.DefaultLowThreshold, "completeness percentage under which a column is flagged")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the report as JSON")
	return cmd
}
