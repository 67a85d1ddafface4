package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/vnykmshr/tabflow/internal/app"
	"github.com/vnykmshr/tabflow/internal/cli/ui"
)

func newWatchCommand() *cobra.Command {
	var (
		path        string
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "run a pipeline on its cron schedule and on source changes",
		Long: `Watch keeps running until interrupted. The pipeline runs on trigger.cron
and whenever the file at trigger.watch is written. When metrics are enabled
Prometheus metrics are served on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(path)
			if err != nil {
				return err
			}
			closer, err := setupLogging(cfg.Log)
			if err != nil {
				return err
			}
			defer func() { _ = closer.Close() }()

			if metricsAddr != "" {
				cfg.Metrics.Enabled, cfg.Metrics.Addr = true, metricsAddr
			}

			m, reg := app.NewMetrics()
			a, err := app.New(cfg, app.Options{Metrics: m})
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			tr, err := a.Trigger()
			if err != nil {
				return err
			}
			defer tr.Stop()

			ctx := cmd.Context()
			var srv *http.Server
			if cfg.Metrics.Enabled {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
				srv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						slog.Error("metrics server failed", "addr", cfg.Metrics.Addr, "error", err)
					}
				}()
			}

			if err := tr.Start(); err != nil {
				return err
			}
			p := ui.New(cmd.OutOrStdout())
			p.Info("watching %s (triggers: %v)", cfg.Name, tr.Names())
			if srv != nil {
				p.Info("metrics on http://%s/metrics", cfg.Metrics.Addr)
			}

			<-ctx.Done()
			p.Info("stopping")
			if srv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}
			return nil
		},
	}
	addConfigFlag(cmd, &path)
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics on this address, overriding metrics.addr")
	return cmd
}
