package main

import (
	"context"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jacentio/dimstore/bus"
	"github.com/jacentio/dimstore/catalog"
	"github.com/jacentio/dimstore/internal/metrics"
)

const (
	modeCommands = "commands"
	modeReads    = "reads"
)

func newLambdaCmd(a *app) *cobra.Command {
	var (
		mode        string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "lambda",
		Short: "Run as a Lambda handler for bus commands or read requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			handler, err := a.lambdaHandler(cmd.Context(), mode, prometheus.DefaultRegisterer)
			if err != nil {
				return err
			}
			if metricsAddr != "" {
				go a.serveMetrics(metricsAddr)
			}
			a.logger.Info("starting lambda handler", zap.String("mode", mode))
			lambda.Start(handler)
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", modeCommands, "Handler to run: commands or reads")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	return cmd
}

// lambdaHandler builds the consumer and returns the handler for mode.
func (a *app) lambdaHandler(ctx context.Context, mode string, reg prometheus.Registerer) (any, error) {
	if mode != modeCommands && mode != modeReads {
		return nil, errors.Newf("unknown lambda mode %q, want %s or %s", mode, modeCommands, modeReads)
	}
	m := metrics.New(reg)
	b, err := a.openBackend(ctx, m)
	if err != nil {
		return nil, err
	}

	c := bus.NewConsumer(
		bus.WithLogger(a.logger),
		bus.WithMetrics(m),
		bus.WithReadTimeout(a.cfg.Bus.ReadTimeout),
	)
	bus.RegisterCatalog(c, catalog.NewRepositories(b))

	if mode == modeReads {
		return func(ctx context.Context, req bus.ReadRequest) (bus.ReadResponse, error) {
			return c.HandleRead(ctx, req), nil
		}, nil
	}
	return c.HandleCommands, nil
}

func (a *app) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.logger.Error("metrics server stopped", zap.Error(err))
	}
}
