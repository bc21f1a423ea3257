package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yairfalse/perfio/internal/config"
	"github.com/yairfalse/perfio/internal/exporter/prometheus"
	"github.com/yairfalse/perfio/internal/observers/counters"
)

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Poll counters on an interval and serve them as Prometheus metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}

	flags := cmd.Flags()
	flags.Duration("interval", config.DefaultConfig().Interval, "time between batch reads")
	flags.String("listen-address", config.DefaultConfig().ListenAddress, "address to serve metrics on")
	flags.String("metrics-path", config.DefaultConfig().MetricsPath, "path to serve metrics on")
	_ = a.v.BindPFlag("interval", flags.Lookup("interval"))
	_ = a.v.BindPFlag("listen_address", flags.Lookup("listen-address"))
	_ = a.v.BindPFlag("metrics_path", flags.Lookup("metrics-path"))
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	group, closeFn, err := a.openGroup()
	if err != nil {
		return err
	}
	defer closeFn()

	obs, err := counters.NewObserver(group, a.logger, &counters.Config{Interval: a.cfg.Interval})
	if err != nil {
		return err
	}
	if err := obs.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := obs.Stop(); err != nil {
			a.logger.Warn("Failed to stop counters observer", zap.Error(err))
		}
	}()

	reg, err := prometheus.NewRegistry(prometheus.NewCollector(obs, nil))
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              a.cfg.ListenAddress,
		Handler:           prometheus.NewMux(reg, a.cfg.MetricsPath, obs, a.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Serving metrics",
			zap.String("address", a.cfg.ListenAddress),
			zap.String("path", a.cfg.MetricsPath))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
