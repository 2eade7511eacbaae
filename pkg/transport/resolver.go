package transport

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Flags select how a service name is resolved.
type Flags uint8

const (
	// FlagSystemService resolves the name among system-registered services
	// instead of the caller's bundled services.
	FlagSystemService Flags = 1 << iota

	// FlagPrivileged resolves a system service in the privileged
	// namespace. Implies FlagSystemService.
	FlagPrivileged
)

// String returns the flag names.
func (f Flags) String() string {
	var parts []string
	if f&FlagSystemService != 0 {
		parts = append(parts, "system")
	}
	if f&FlagPrivileged != 0 {
		parts = append(parts, "privileged")
	}
	if len(parts) == 0 {
		return "bundled"
	}
	return strings.Join(parts, "|")
}

// SocketSuffix is appended to service names to form socket file names.
const SocketSuffix = ".sock"

// ErrInvalidServiceName indicates a service name that cannot be mapped to a
// socket path.
var ErrInvalidServiceName = errors.New("invalid service name")

// Resolver maps service names to Unix socket paths.
type Resolver struct {
	// RuntimeDir holds bundled services of the current user.
	RuntimeDir string

	// SystemDir holds system-registered services.
	SystemDir string

	// PrivilegedDir holds privileged system services.
	PrivilegedDir string
}

// DefaultResolver returns the resolver rooted at $XDG_RUNTIME_DIR/rxpc (or
// a per-user temp directory), /run/rxpc and /run/rxpc/privileged.
func DefaultResolver() Resolver {
	runtime := os.Getenv("XDG_RUNTIME_DIR")
	if runtime != "" {
		runtime = filepath.Join(runtime, "rxpc")
	} else {
		runtime = filepath.Join(os.TempDir(), fmt.Sprintf("rxpc-%d", os.Getuid()))
	}
	return Resolver{
		RuntimeDir:    runtime,
		SystemDir:     "/run/rxpc",
		PrivilegedDir: "/run/rxpc/privileged",
	}
}

// Path returns the socket path for name.
func (r Resolver) Path(name string, flags Flags) (string, error) {
	if err := ValidateServiceName(name); err != nil {
		return "", err
	}

	var dir string
	switch {
	case flags&FlagPrivileged != 0:
		dir = r.PrivilegedDir
	case flags&FlagSystemService != 0:
		dir = r.SystemDir
	default:
		dir = r.RuntimeDir
	}
	if dir == "" {
		return "", fmt.Errorf("no directory configured for %s services", flags)
	}
	return filepath.Join(dir, name+SocketSuffix), nil
}

// ValidateServiceName reports whether name can be used as a socket file
// name.
func ValidateServiceName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidServiceName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidServiceName, name)
	case strings.ContainsAny(name, "/\x00"):
		return fmt.Errorf("%w: %q contains a path separator or NUL", ErrInvalidServiceName, name)
	}
	return nil
}
