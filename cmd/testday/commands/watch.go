package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/trackside/testday/internal/constants"
	"github.com/trackside/testday/internal/livesync"
	"github.com/trackside/testday/internal/metrics"
	"github.com/trackside/testday/internal/toggle"
	"golang.org/x/sync/errgroup"
)

func installWatchCmd(app *App) {
	var index string
	var enable bool

	watchCmd := &cobra.Command{
		Use:   "watch [ROOT]",
		Short: "Keep the dataset in sync with ROOT while live sync is enabled",
		Long: `Import ROOT again and again while live sync is enabled, until interrupted.

Live sync is switched on and off with the sync command, including while watch is running.
Pass counters are served in the Prometheus format when --metrics-port is set.`,
		Args: cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if app.config.Watch.Interval < time.Second {
				return app.usageError("interval must be at least one second, got %s", app.config.Watch.Interval)
			}
			if p := app.config.Watch.MetricsPort; p < 0 || p > 65535 {
				return app.usageError("metrics port must be between 0 and 65535, got %d", p)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			src, location, err := app.source(args, index)
			if err != nil {
				return err
			}

			tg := toggle.New(app.config.ConfigDir)
			if enable {
				if err := tg.SetState(true); err != nil {
					return err
				}
			}

			st, err := app.openStore()
			if err != nil {
				return err
			}
			defer func() {
				if err := st.Close(); err != nil {
					slog.Warn("Could not close the dataset store", "error", err)
				}
			}()
			im := app.newImporter(src, st, location)

			registry := prometheus.NewRegistry()
			passes, err := metrics.NewPasses(registry)
			if err != nil {
				return err
			}

			task := func(ctx context.Context) error {
				start := time.Now()
				o, err := im.Run(ctx)
				if errors.Is(err, context.Canceled) {
					return err
				}
				passes.Observe(time.Since(start), o.Stats, len(o.Diagnostics), err)
				if err != nil {
					return err
				}
				slog.Info("Live sync pass done", "location", location, "status", o.Status(),
					"runsAdded", o.Stats.RunsAdded, "skipped", len(o.Diagnostics))
				return nil
			}

			ctx, cancel := context.WithCancel(app.ctx)
			defer cancel()
			g, ctx := errgroup.WithContext(ctx)

			if port := app.config.Watch.MetricsPort; port > 0 {
				srv := metrics.New(metrics.Config{
					Host:         app.config.Watch.MetricsHost,
					Port:         port,
					ReadTimeout:  5 * time.Second,
					WriteTimeout: 10 * time.Second,
				}, registry)
				slog.Info("Serving metrics", "host", app.config.Watch.MetricsHost, "port", port)
				g.Go(func() error { return srv.Run(ctx) })
			}

			slog.Info("Watching", "location", location, "interval", app.config.Watch.Interval, "switch", tg.Path())
			svc := livesync.New(tg, task, app.config.Watch.Interval)
			g.Go(func() error {
				// The metrics server stops with live sync.
				defer cancel()
				if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					return fmt.Errorf("live sync stopped: %v", err)
				}
				return nil
			})
			return g.Wait()
		},
	}

	watchCmd.Flags().StringVar(&index, "index", "", "read the file list from this YAML index instead of walking ROOT")
	watchCmd.Flags().BoolVar(&enable, "enable", false, "switch live sync on before watching")
	watchCmd.Flags().Duration("interval", constants.DefaultWatchInterval*time.Second, "delay between two imports")
	watchCmd.Flags().String("metrics-host", "", "host for the metrics endpoint")
	watchCmd.Flags().Int("metrics-port", 0, "port for the metrics endpoint, 0 to disable it")
	for key, flag := range map[string]string{
		"watch.interval":    "interval",
		"watch.metricshost": "metrics-host",
		"watch.metricsport": "metrics-port",
	} {
		if err := app.viper.BindPFlag(key, watchCmd.Flags().Lookup(flag)); err != nil {
			slog.Warn("Failed to bind flag", "flag", flag, "error", err)
		}
	}

	app.cmd.AddCommand(watchCmd)
}
