package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/caffeineduck/ngxmod/host"
	"github.com/caffeineduck/ngxmod/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load the configuration and serve HTTP",
	Long: `Load the configuration file and serve every server block on its listen
address until interrupted.

Servers without a listen directive use --listen. With --metrics-listen,
Prometheus metrics are exposed at /metrics on a separate address.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("listen", "127.0.0.1:8080", "Default listen address for servers without one")
	serveCmd.Flags().String("metrics-listen", "", "Address for the Prometheus /metrics endpoint (disabled when empty)")
	serveCmd.Flags().Int64("request-pool-limit", 4<<20, "Max bytes a request may allocate from its arena")
	serveCmd.Flags().String("server-software", "ngxmod", "Name sent in the Server header")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	listen, _ := cmd.Flags().GetString("listen")
	metricsAddr, _ := cmd.Flags().GetString("metrics-listen")
	poolLimit, _ := cmd.Flags().GetInt64("request-pool-limit")
	software, _ := cmd.Flags().GetString("server-software")

	log := logging.WithComponent("serve")

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	h, err := newHost(
		host.WithDefaultListen(listen),
		host.WithRequestPoolLimit(poolLimit),
		host.WithServerSoftware(software),
		host.WithMetrics(host.NewMetrics(reg)),
	)
	if err != nil {
		return err
	}
	cfg, path, err := loadConfig(cmd, h)
	if err != nil {
		return err
	}
	defer cfg.Close()
	log.Info("configuration loaded", "file", path, "listeners", cfg.Listeners())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if metricsAddr != "" {
		srv := &http.Server{
			Addr:              metricsAddr,
			Handler:           metricsHandler(reg),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go serveMetrics(srv, log.Logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	if err := cfg.ListenAndServe(ctx); err != nil {
		return err
	}
	log.Info("shut down")
	return nil
}

func metricsHandler(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return mux
}

func serveMetrics(srv *http.Server, log *slog.Logger) {
	log.Info("metrics listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("metrics server failed", "error", err)
	}
}
