package transport

import (
	"errors"
	"testing"
)

func TestResolverPath(t *testing.T) {
	r := Resolver{RuntimeDir: "/run/user/1000/rxpc", SystemDir: "/run/rxpc", PrivilegedDir: "/run/rxpc/privileged"}

	tests := []struct {
		name  string
		flags Flags
		want  string
	}{
		{"com.example.helper", 0, "/run/user/1000/rxpc/com.example.helper.sock"},
		{"com.example.daemon", FlagSystemService, "/run/rxpc/com.example.daemon.sock"},
		{"com.example.root", FlagSystemService | FlagPrivileged, "/run/rxpc/privileged/com.example.root.sock"},
		{"com.example.root", FlagPrivileged, "/run/rxpc/privileged/com.example.root.sock"},
	}
	for _, tt := range tests {
		got, err := r.Path(tt.name, tt.flags)
		if err != nil {
			t.Errorf("Path(%q, %s) error: %v", tt.name, tt.flags, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Path(%q, %s) = %q, want %q", tt.name, tt.flags, got, tt.want)
		}
	}
}

func TestResolverRejectsBadNames(t *testing.T) {
	r := Resolver{RuntimeDir: "/tmp"}
	for _, name := range []string{"", ".", "..", "a/b", "nul\x00"} {
		if _, err := r.Path(name, 0); !errors.Is(err, ErrInvalidServiceName) {
			t.Errorf("Path(%q) error = %v, want ErrInvalidServiceName", name, err)
		}
	}
}

func TestResolverMissingDirectory(t *testing.T) {
	r := Resolver{RuntimeDir: "/tmp"}
	if _, err := r.Path("svc", FlagSystemService); err == nil {
		t.Error("expected error for unconfigured system directory")
	}
}

func TestFlagsString(t *testing.T) {
	tests := map[Flags]string{
		0:                                  "bundled",
		FlagSystemService:                  "system",
		FlagSystemService | FlagPrivileged: "system|privileged",
	}
	for f, want := range tests {
		if got := f.String(); got != want {
			t.Errorf("Flags(%d).String() = %q, want %q", f, got, want)
		}
	}
}

func TestDefaultResolver(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/42")
	r := DefaultResolver()
	if r.RuntimeDir != "/run/user/42/rxpc" {
		t.Errorf("RuntimeDir = %q", r.RuntimeDir)
	}
	if r.SystemDir != "/run/rxpc" || r.PrivilegedDir != "/run/rxpc/privileged" {
		t.Errorf("unexpected system dirs: %+v", r)
	}
}
