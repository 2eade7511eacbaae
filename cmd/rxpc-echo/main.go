// Command rxpc-echo is an example service. It receives strings, uppercases
// them, and sends them back. Other values are ignored.
//
// Usage:
//
//	rxpc-echo [flags]
//
// Flags:
//
//	-config string        Configuration file path (.yaml or .toml)
//	-service string       Service name to listen as (default "echo")
//	-runtime-dir string   Directory holding bundled service sockets
//	-log-level string     Log level: debug, info, warn, error
//	-protocol-log string  Protocol log file (.rlog)
//	-metrics-addr string  Serve Prometheus metrics on this address
//
// Settings are layered: defaults, then the config file, then RXPC_*
// environment variables, then flags.
//
// Examples:
//
//	# Listen as "echo" in the default runtime directory
//	rxpc-echo
//
//	# Log traffic and expose metrics
//	rxpc-echo -protocol-log echo.rlog -metrics-addr 127.0.0.1:9464
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"strings"
	"syscall"

	"github.com/indragiek/reactivexpc/pkg/config"
	"github.com/indragiek/reactivexpc/pkg/connection"
	"github.com/indragiek/reactivexpc/pkg/listener"
	"github.com/indragiek/reactivexpc/pkg/stream"
	"github.com/indragiek/reactivexpc/pkg/wire"
)

var (
	configFile  = flag.String("config", "", "Configuration file path (.yaml or .toml)")
	service     = flag.String("service", "echo", "Service name to listen as")
	runtimeDir  = flag.String("runtime-dir", "", "Directory holding bundled service sockets")
	logLevel    = flag.String("log-level", "", "Log level: debug, info, warn, error")
	protocolLog = flag.String("protocol-log", "", "Protocol log file (.rlog)")
	metricsAddr = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address")
)

func main() {
	flag.Parse()
	log.SetFlags(log.Ltime | log.Lmicroseconds)

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("rxpc-echo listening as %q", cfg.Service)
	if err := listener.Serve(ctx, cfg, uppercase); err != nil {
		log.Fatalf("Service failed: %v", err)
	}
	log.Println("Goodbye!")
}

// loadConfig layers the config file, the environment and explicitly set
// flags over the defaults.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	cfg.Service = *service
	if *configFile != "" {
		if err := cfg.LoadFile(*configFile); err != nil {
			return config.Config{}, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return config.Config{}, err
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "service":
			cfg.Service = *service
		case "runtime-dir":
			cfg.RuntimeDir = *runtimeDir
		case "log-level":
			cfg.LogLevel = *logLevel
		case "protocol-log":
			cfg.ProtocolLog = *protocolLog
		case "metrics-addr":
			cfg.MetricsAddr = *metricsAddr
		}
	})
	return cfg, cfg.Validate()
}

// uppercase answers every string received on c with its uppercase form.
// The endpoint is cancelled when its inbound stream ends.
func uppercase(c *connection.Connection) bool {
	replies := stream.Map(
		stream.FilterMap(stream.IgnoreErrors(c.Inbound()), wire.UnpackString),
		func(s string) wire.Value { return wire.PackString(strings.ToUpper(s)) },
	)
	go func() {
		if err := stream.Forward(context.Background(), replies, c.Outbound()); err != nil {
			log.Printf("Forward on %s: %v", c.ID(), err)
		}
	}()
	if pid := c.ProcessID(); pid != 0 {
		log.Printf("Accepted connection %s from pid %d", c.ID(), pid)
	}
	return true
}
