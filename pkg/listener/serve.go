package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/indragiek/reactivexpc/pkg/config"
	"github.com/indragiek/reactivexpc/pkg/connection"
	"github.com/indragiek/reactivexpc/pkg/log"
	"github.com/indragiek/reactivexpc/pkg/transport"
)

// ErrNoService indicates a process configuration without a service name.
var ErrNoService = errors.New("no service name configured")

// Listen runs the calling process as a service until it receives SIGINT or
// SIGTERM. Settings come from the RXPC_* environment, see config.FromEnv.
// policy runs after the configured admission policies.
//
// Listen only returns on a startup failure, an accept failure, or a
// shutdown signal.
func Listen(policy AcceptPolicy) error {
	cfg, err := config.FromEnv(config.Default())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return Serve(ctx, cfg, policy)
}

// Serve runs a socket service described by cfg until ctx is done.
func Serve(ctx context.Context, cfg config.Config, policy AcceptPolicy) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Service == "" {
		return ErrNoService
	}

	level, _ := cfg.Level()
	slogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var logger log.Logger
	if cfg.ProtocolLog != "" {
		fl, err := log.NewFileLogger(cfg.ProtocolLog)
		if err != nil {
			return fmt.Errorf("open protocol log: %w", err)
		}
		defer fl.Close()
		logger = fl
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	server, err := transport.NewServer(transport.ServerConfig{
		Name:           cfg.Service,
		Resolver:       cfg.Resolver(),
		MaxMessageSize: cfg.MaxMessageSize,
		Logger:         logger,
		Slog:           slogger,
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	l := New(Config{
		Acceptor: server,
		Connection: connection.Config{
			Logger:  logger,
			Slog:    slogger,
			Metrics: connection.NewMetrics(reg),
		},
		Policy:  All(Admission(cfg.Accept), policy),
		Logger:  logger,
		Slog:    slogger,
		Metrics: NewMetrics(reg),
	})

	if cfg.MetricsAddr != "" {
		stopMetrics, err := serveMetrics(cfg.MetricsAddr, reg, slogger)
		if err != nil {
			return err
		}
		defer stopMetrics()
	}

	slogger.Info("service listening", "service", cfg.Service, "path", server.Path())
	err = l.Run(ctx)
	slogger.Info("service stopped", "service", cfg.Service, "error", err)
	return err
}

// Admission builds the policy described by cfg: a peer user allow list
// followed by a per-user rate limit.
func Admission(cfg config.Accept) AcceptPolicy {
	var policies []AcceptPolicy
	if len(cfg.AllowUIDs) > 0 {
		policies = append(policies, AllowUIDs(cfg.AllowUIDs...))
	}
	if cfg.RatePerSecond > 0 {
		policies = append(policies, RateLimit(cfg.RatePerSecond, cfg.Burst, 0))
	}
	return All(policies...)
}

func serveMetrics(addr string, reg *prometheus.Registry, slogger *slog.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogger.Warn("metrics server failed", "error", err)
		}
	}()
	slogger.Info("metrics listening", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
