package shm

import (
	"errors"
	"testing"
)

func TestCreateAndRemapSharesMemory(t *testing.T) {
	r, err := Create("test", 4096)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer r.Unmap()

	if r.Len() != 4096 {
		t.Fatalf("Len: expected 4096, got %d", r.Len())
	}
	copy(r.Bytes(), "hello")

	peer, err := Map(r.File(), r.Len())
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	defer peer.Unmap()

	if got := string(peer.Bytes()[:5]); got != "hello" {
		t.Errorf("remapped region: expected hello, got %q", got)
	}
	if peer.Addr() == r.Addr() {
		t.Error("a second mapping should live at a different address")
	}

	peer.Bytes()[0] = 'j'
	if r.Bytes()[0] != 'j' {
		t.Error("writes through one mapping should be visible in the other")
	}
}

func TestCreateInvalidSize(t *testing.T) {
	if _, err := Create("bad", 0); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("expected ErrInvalidSize, got %v", err)
	}
}

func TestUnmapTwice(t *testing.T) {
	r, err := Create("twice", 128)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := r.Unmap(); err != nil {
		t.Fatalf("first Unmap: %v", err)
	}
	if err := r.Unmap(); !errors.Is(err, ErrUnmapped) {
		t.Errorf("second Unmap: expected ErrUnmapped, got %v", err)
	}
	if r.Len() != 0 || r.Addr() != 0 {
		t.Error("unmapped region should report zero length and address")
	}
}
