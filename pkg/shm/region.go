// Package shm manages shared memory regions that can be handed to a peer
// process.
//
// A Region is a MAP_SHARED mapping of a backing file. The backing file is
// what crosses the process boundary; the receiving side maps it again with
// Map and owns the resulting mapping. Whoever maps a region must Unmap it.
package shm

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Region errors.
var (
	ErrInvalidSize = errors.New("shm: invalid region size")
	ErrUnmapped    = errors.New("shm: region already unmapped")
)

// Region is a mapped shared memory region.
type Region struct {
	mu   sync.Mutex
	file *os.File
	data []byte
}

// Create allocates a new anonymous shared region of size bytes.
func Create(name string, size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	f, err := createBacking(name, size)
	if err != nil {
		return nil, fmt.Errorf("shm: create backing file: %w", err)
	}
	r, err := Map(f, size)
	if err != nil {
		f.Close()
		return nil, err
	}
	// Map duplicated the descriptor.
	f.Close()
	return r, nil
}

// Map maps length bytes of the backing file f. The region keeps its own
// duplicate of f's descriptor; the caller keeps ownership of f.
func Map(f *os.File, length int) (*Region, error) {
	if length <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, length)
	}
	fd, err := unix.Dup(int(f.Fd()))
	if err != nil {
		return nil, fmt.Errorf("shm: dup backing file: %w", err)
	}
	unix.CloseOnExec(fd)

	data, err := unix.Mmap(fd, 0, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("shm: mmap: %w", err)
	}
	return &Region{
		file: os.NewFile(uintptr(fd), f.Name()),
		data: data,
	}, nil
}

// Bytes returns the mapped memory. The slice is invalid after Unmap.
func (r *Region) Bytes() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data
}

// Len returns the mapped length, or 0 after Unmap.
func (r *Region) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data)
}

// Addr returns the address of the first mapped byte, or 0 after Unmap.
func (r *Region) Addr() uintptr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.data) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(r.data)))
}

// File returns the backing file. It stays open until Unmap.
func (r *Region) File() *os.File {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file
}

// Unmap releases the mapping and closes the backing file.
func (r *Region) Unmap() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.data == nil {
		return ErrUnmapped
	}
	err := unix.Munmap(r.data)
	r.data = nil
	if r.file != nil {
		if cerr := r.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
