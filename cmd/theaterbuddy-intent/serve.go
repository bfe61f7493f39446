package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/avvvet/theaterbuddy-intent/internal/transport"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Answer intent requests over NATS and expose Prometheus metrics",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log.Info("starting theater intent service",
		zap.String("service", cfg.ServiceName),
		zap.String("nats_url", cfg.NatsURL))

	svc, err := newService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer svc.Close()

	natsTransport, err := transport.NewNATSTransport(ctx, cfg, svc.handler, log.Named("nats"))
	if err != nil {
		return err
	}
	defer natsTransport.Close()

	if err := natsTransport.Start(); err != nil {
		return err
	}

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", zap.Error(err))
			}
		}()
		log.Info("metrics listening", zap.String("addr", cfg.MetricsAddr))
	}

	log.Info("theater intent service is running",
		zap.String("subject", cfg.NatsRequestSubject))

	<-ctx.Done()
	log.Info("shutting down gracefully",
		zap.Int("active_sessions", svc.memory.ActiveSessionCount()))

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("error stopping metrics server", zap.Error(err))
		}
	}

	log.Info("theater intent service stopped")
	return nil
}
