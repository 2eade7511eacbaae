//go:build unix && !linux

package shm

import (
	"os"
)

// createBacking returns an unlinked temporary file of size bytes.
func createBacking(name string, size int) (*os.File, error) {
	f, err := os.CreateTemp("", "rxpc-shm-"+name+"-*")
	if err != nil {
		return nil, err
	}
	if err := os.Remove(f.Name()); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}
