package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/sessionguard/internal/logging"
	"github.com/MrEthical07/sessionguard/metrics/export/otel"
	"github.com/MrEthical07/sessionguard/metrics/export/prometheus"
	"github.com/spf13/cobra"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func newWatchCmd(opts *globalOptions) *cobra.Command {
	var (
		interval    time.Duration
		metricsAddr string
		landing     string
	)

	c := &cobra.Command{
		Use:   "watch",
		Short: "Keep checking the session and redirect to the landing page when it ends",
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return errors.New("--interval must be > 0")
			}
			out := cmd.OutOrStdout()
			rt, err := openRuntime(opts, out, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer logClose(rt.logger, rt)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			done := make(chan error, 1)
			var server *http.Server
			if metricsAddr != "" {
				reader := sdkmetric.NewManualReader()
				provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
				defer func() { _ = provider.Shutdown(context.Background()) }()

				exp, err := otel.NewExporter(provider.Meter("sessionguard"), rt.guard)
				if err != nil {
					return err
				}
				defer func() { _ = exp.Close() }()

				server = &http.Server{
					Addr:              metricsAddr,
					Handler:           newRouter(rt, prometheus.NewExporter(rt.guard), reader),
					ReadHeaderTimeout: 10 * time.Second,
					ReadTimeout:       15 * time.Second,
					WriteTimeout:      30 * time.Second,
					IdleTimeout:       60 * time.Second,
				}
				go func() {
					if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						done <- fmt.Errorf("metrics server failed: %w", err)
						return
					}
					done <- nil
				}()
				rt.logger.Info("serving metrics", slog.String("addr", metricsAddr))
			}

			err = watchLoop(ctx, rt, interval, landing, done)

			if server != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if serr := server.Shutdown(shutdownCtx); serr != nil {
					rt.logger.Warn("metrics server shutdown", logging.Error(serr))
				}
			}
			return err
		},
	}

	c.Flags().DurationVar(&interval, "interval", 30*time.Second, "time between session checks")
	c.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics and /session on this address, e.g. :9090")
	c.Flags().StringVar(&landing, "landing", "", "landing location; defaults to the guard's configured landing path")
	return c
}

// watchLoop guards the current location until ctx ends or the server fails.
func watchLoop(ctx context.Context, rt *runtime, interval time.Duration, landing string, serverDone <-chan error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	check := func() {
		if rt.guard.RedirectIfNotAuthenticated(ctx, landing) {
			rt.presenter.SetUserName(displayName(rt.guard.CurrentUser(ctx)))
		}
	}

	check()
	for {
		select {
		case <-ctx.Done():
			rt.logger.Info("watch stopped")
			return nil
		case err := <-serverDone:
			return err
		case <-ticker.C:
			check()
		}
	}
}
