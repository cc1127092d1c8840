package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	apperrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func (a *app) newWatchCmd() *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the stored session renewed and print every change until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			displayAppname(cmd, a.cfg.GetAppName())

			reg := prometheus.NewRegistry()
			s, err := newStack(ctx, a.cfg, a.logger, metrics.NewCollector(reg))
			if err != nil {
				return err
			}
			defer s.Close()

			if metricsAddr != "" {
				srv := &http.Server{Addr: metricsAddr, Handler: metrics.Handler(reg)}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !apperrors.Is(err, http.ErrServerClosed) {
						a.logger.Error().Err(err).Msg("metrics server stopped")
					}
				}()
				defer shutdown(srv)
			}

			if err := s.manager.Start(ctx); err != nil {
				a.logger.Warn().Err(err).Msg("could not restore session")
			}
			printSnapshot(cmd.OutOrStdout(), s.manager.Snapshot())

			for {
				select {
				case <-ctx.Done():
					return nil
				case snap := <-s.changes:
					printSnapshot(cmd.OutOrStdout(), snap)
				}
			}
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", a.cfg.GetMetricsAddr(), "Serve Prometheus metrics on this address")
	return cmd
}

func shutdown(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(ctx)
}

func displayAppname(cmd *cobra.Command, appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	fmt.Fprintln(cmd.OutOrStdout(), myFigure.String())
}
