// Command rxpc-client is an example client. Every line typed at the prompt
// is sent to a service as a string, and every string the service sends
// back is printed. After a connection fault the client reconnects with
// exponential backoff.
//
// Usage:
//
//	rxpc-client [flags]
//
// Flags:
//
//	-service string       Service name to connect to (default "echo")
//	-system               Connect to a system service
//	-privileged           Connect to a privileged system service
//	-config string        Configuration file path (.yaml or .toml)
//	-runtime-dir string   Directory holding bundled service sockets
//	-protocol-log string  Protocol log file (.rlog)
//	-log-level string     Log level: debug, info, warn, error
//
// Example:
//
//	rxpc-echo &
//	rxpc-client -service echo
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/chzyer/readline"

	"github.com/indragiek/reactivexpc/pkg/config"
	"github.com/indragiek/reactivexpc/pkg/connection"
	rxlog "github.com/indragiek/reactivexpc/pkg/log"
)

var (
	service     = flag.String("service", "echo", "Service name to connect to")
	system      = flag.Bool("system", false, "Connect to a system service")
	privileged  = flag.Bool("privileged", false, "Connect to a privileged system service")
	configFile  = flag.String("config", "", "Configuration file path (.yaml or .toml)")
	runtimeDir  = flag.String("runtime-dir", "", "Directory holding bundled service sockets")
	protocolLog = flag.String("protocol-log", "", "Protocol log file (.rlog)")
	logLevel    = flag.String("log-level", "", "Log level: debug, info, warn, error")
)

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          *service + "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create readline: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	connCfg, closeLog, err := connectionConfig(cfg, rl.Stderr())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	dial := func() *connection.Connection {
		if *system || *privileged {
			return connection.NewSystem(connCfg, *service, *privileged)
		}
		return connection.New(connCfg, *service)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	s := newSession(dial, connection.NewBackoff(), rl.Stdout())
	done := make(chan error, 1)
	go func() { done <- s.run(ctx) }()

	s.printHelp()
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err != nil || s.handleLine(line) {
			break
		}
	}

	fmt.Fprintln(rl.Stdout(), "Exiting...")
	cancel()
	<-done
}

func loadConfig() (config.Config, error) {
	cfg := config.Default()
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
		case "runtime-dir":
			cfg.RuntimeDir = *runtimeDir
		case "protocol-log":
			cfg.ProtocolLog = *protocolLog
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})
	return cfg, cfg.Validate()
}

// connectionConfig builds the endpoint configuration. The returned func
// closes the protocol log.
func connectionConfig(cfg config.Config, stderr io.Writer) (connection.Config, func(), error) {
	level, _ := cfg.Level()
	out := connection.Config{
		Resolver: cfg.Resolver(),
		Slog:     slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})),
	}
	if cfg.ProtocolLog == "" {
		return out, func() {}, nil
	}

	fl, err := rxlog.NewFileLogger(cfg.ProtocolLog)
	if err != nil {
		return connection.Config{}, nil, fmt.Errorf("open protocol log: %w", err)
	}
	out.Logger = fl
	return out, func() { fl.Close() }, nil
}
