// Package config loads process settings for services and clients.
//
// Settings come from three layers, later layers winning:
//
//	Default()  built-in values
//	Load(path) a YAML (.yaml, .yml) or TOML (.toml) file
//	FromEnv    RXPC_* environment variables
//
// Fields absent from a file keep the value of the layer below.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/indragiek/reactivexpc/pkg/transport"
)

// Errors returned by Load and Validate.
var (
	ErrUnknownFormat = errors.New("unknown config file format")
	ErrInvalidConfig = errors.New("invalid config")
)

// Environment variables read by FromEnv.
const (
	EnvConfig         = "RXPC_CONFIG"
	EnvService        = "RXPC_SERVICE"
	EnvRuntimeDir     = "RXPC_RUNTIME_DIR"
	EnvSystemDir      = "RXPC_SYSTEM_DIR"
	EnvPrivilegedDir  = "RXPC_PRIVILEGED_DIR"
	EnvLogLevel       = "RXPC_LOG_LEVEL"
	EnvProtocolLog    = "RXPC_PROTOCOL_LOG"
	EnvMetricsAddr    = "RXPC_METRICS_ADDR"
	EnvMaxMessageSize = "RXPC_MAX_MESSAGE_SIZE"
	EnvAcceptRate     = "RXPC_ACCEPT_RATE"
	EnvAcceptBurst    = "RXPC_ACCEPT_BURST"
	EnvAcceptUIDs     = "RXPC_ACCEPT_UIDS"
)

// Config holds process settings.
type Config struct {
	// Service is the name a service process listens as.
	Service string `yaml:"service" toml:"service"`

	// Socket directories, see transport.Resolver.
	RuntimeDir    string `yaml:"runtimeDir" toml:"runtime_dir"`
	SystemDir     string `yaml:"systemDir" toml:"system_dir"`
	PrivilegedDir string `yaml:"privilegedDir" toml:"privileged_dir"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"logLevel" toml:"log_level"`

	// ProtocolLog is the path of a .rlog file. Empty disables protocol
	// logging.
	ProtocolLog string `yaml:"protocolLog" toml:"protocol_log"`

	// MetricsAddr is the listen address of the metrics endpoint. Empty
	// disables it.
	MetricsAddr string `yaml:"metricsAddr" toml:"metrics_addr"`

	// MaxMessageSize is the largest accepted frame payload in bytes.
	MaxMessageSize uint32 `yaml:"maxMessageSize" toml:"max_message_size"`

	Accept Accept `yaml:"accept" toml:"accept"`
}

// Accept configures the admission policy of a service.
type Accept struct {
	// RatePerSecond limits new connections per peer user. Zero disables
	// limiting.
	RatePerSecond float64 `yaml:"ratePerSecond" toml:"rate_per_second"`

	// Burst is the number of connections a peer user may open at once.
	Burst int `yaml:"burst" toml:"burst"`

	// AllowUIDs restricts peers to these effective user IDs. Empty allows
	// every user.
	AllowUIDs []uint32 `yaml:"allowUIDs" toml:"allow_uids"`
}

// Default returns the built-in settings.
func Default() Config {
	r := transport.DefaultResolver()
	return Config{
		RuntimeDir:     r.RuntimeDir,
		SystemDir:      r.SystemDir,
		PrivilegedDir:  r.PrivilegedDir,
		LogLevel:       "info",
		MaxMessageSize: transport.DefaultMaxMessageSize,
		Accept: Accept{
			Burst: 1,
		},
	}
}

// Load reads path on top of Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := cfg.LoadFile(path); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile overlays the settings in path onto c. The format is chosen by
// file extension.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	case ".toml":
		err = toml.Unmarshal(data, c)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	if err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

// FromEnv overlays RXPC_* variables onto base. If RXPC_CONFIG names a file,
// it is loaded first.
func FromEnv(base Config) (Config, error) {
	cfg := base
	if path := env(EnvConfig); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overlays RXPC_* variables (except RXPC_CONFIG) onto c.
func (c *Config) ApplyEnv() error {
	setString(&c.Service, EnvService)
	setString(&c.RuntimeDir, EnvRuntimeDir)
	setString(&c.SystemDir, EnvSystemDir)
	setString(&c.PrivilegedDir, EnvPrivilegedDir)
	setString(&c.LogLevel, EnvLogLevel)
	setString(&c.ProtocolLog, EnvProtocolLog)
	setString(&c.MetricsAddr, EnvMetricsAddr)

	if raw := env(EnvMaxMessageSize); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvMaxMessageSize, err)
		}
		c.MaxMessageSize = uint32(n)
	}
	if raw := env(EnvAcceptRate); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvAcceptRate, err)
		}
		c.Accept.RatePerSecond = f
	}
	if raw := env(EnvAcceptBurst); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvAcceptBurst, err)
		}
		c.Accept.Burst = n
	}
	if raw := env(EnvAcceptUIDs); raw != "" {
		uids, err := parseUIDs(raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvAcceptUIDs, err)
		}
		c.Accept.AllowUIDs = uids
	}
	return nil
}

// Validate checks the settings for consistency.
func (c Config) Validate() error {
	if c.Service != "" {
		if err := transport.ValidateServiceName(c.Service); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.MaxMessageSize == 0 {
		return fmt.Errorf("%w: max message size must be positive", ErrInvalidConfig)
	}
	if c.Accept.RatePerSecond < 0 {
		return fmt.Errorf("%w: accept rate must not be negative", ErrInvalidConfig)
	}
	if c.Accept.RatePerSecond > 0 && c.Accept.Burst <= 0 {
		return fmt.Errorf("%w: accept burst must be positive when rate limiting", ErrInvalidConfig)
	}
	return nil
}

// Level returns LogLevel as an slog level.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalidConfig, c.LogLevel)
	}
	return l, nil
}

// Resolver returns the socket resolver for the configured directories.
func (c Config) Resolver() transport.Resolver {
	return transport.Resolver{
		RuntimeDir:    c.RuntimeDir,
		SystemDir:     c.SystemDir,
		PrivilegedDir: c.PrivilegedDir,
	}
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func setString(dst *string, key string) {
	if v := env(key); v != "" {
		*dst = v
	}
}

func parseUIDs(raw string) ([]uint32, error) {
	var uids []uint32
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, err
		}
		uids = append(uids, uint32(n))
	}
	return uids, nil
}
