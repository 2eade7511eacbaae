//go:build linux

package shm

import (
	"os"

	"golang.org/x/sys/unix"
)

// createBacking returns a memfd of size bytes.
func createBacking(name string, size int) (*os.File, error) {
	fd, err := unix.MemfdCreate(name, unix.MFD_CLOEXEC)
	if err != nil {
		return nil, err
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return os.NewFile(uintptr(fd), "memfd:"+name), nil
}
