package transport

import (
	"bytes"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
)

// unixPair returns both ends of a connected Unix stream socket.
func unixPair(t *testing.T) (*net.UnixConn, *net.UnixConn) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pair.sock")
	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan *net.UnixConn, 1)
	go func() {
		c, err := ln.AcceptUnix()
		if err != nil {
			accepted <- nil
			return
		}
		accepted <- c
	}()

	client, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	server := <-accepted
	if server == nil {
		t.Fatal("accept failed")
	}
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return client, server
}

func TestFrameFilesOverUnixSocket(t *testing.T) {
	client, server := unixPair(t)

	f, err := os.Create(filepath.Join(t.TempDir(), "payload"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString("passed"); err != nil {
		t.Fatal(err)
	}

	writer := NewFramer(client)
	reader := NewFramer(server)

	if err := writer.WriteFrameFiles([]byte("with-file"), []*os.File{f}); err != nil {
		t.Fatalf("WriteFrameFiles failed: %v", err)
	}
	if err := writer.WriteFrame([]byte("plain")); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	data, files, err := reader.ReadFrameFiles()
	if err != nil {
		t.Fatalf("ReadFrameFiles failed: %v", err)
	}
	if string(data) != "with-file" {
		t.Errorf("payload = %q", data)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
	defer closeFiles(files)

	got, err := io.ReadAll(io.NewSectionReader(files[0], 0, 6))
	if err != nil {
		t.Fatalf("read received file: %v", err)
	}
	if string(got) != "passed" {
		t.Errorf("received file contents = %q", got)
	}

	data, files, err = reader.ReadFrameFiles()
	if err != nil {
		t.Fatalf("second ReadFrameFiles failed: %v", err)
	}
	if string(data) != "plain" || len(files) != 0 {
		t.Errorf("second frame: %q with %d files", data, len(files))
	}
}

func TestFrameFilesRequireUnixSocket(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "x"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	writer := NewFrameWriter(new(bytes.Buffer))
	err = writer.WriteFrameFiles([]byte("x"), []*os.File{f})
	if !errors.Is(err, ErrFilesUnsupported) {
		t.Errorf("expected ErrFilesUnsupported, got %v", err)
	}
}

func TestFrameTooManyFiles(t *testing.T) {
	client, _ := unixPair(t)
	files := make([]*os.File, MaxFrameFiles+1)
	for i := range files {
		files[i] = os.Stdin
	}
	err := NewFrameWriter(client).WriteFrameFiles([]byte("x"), files)
	if !errors.Is(err, ErrTooManyFiles) {
		t.Errorf("expected ErrTooManyFiles, got %v", err)
	}
}

func TestFrameReaderUnixEOF(t *testing.T) {
	client, server := unixPair(t)
	client.Close()

	if _, err := NewFrameReader(server).ReadFrame(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestFrameReaderUnixTruncated(t *testing.T) {
	tests := []struct {
		name  string
		bytes []byte
	}{
		{"partial prefix", []byte{0x00, 0x00}},
		{"partial payload", []byte{0x00, 0x00, 0x00, 0x0a, 'a', 'b', 'c'}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, server := unixPair(t)
			if _, err := client.Write(tt.bytes); err != nil {
				t.Fatalf("write: %v", err)
			}
			client.Close()

			_, err := NewFrameReader(server).ReadFrame()
			if !errors.Is(err, ErrFrameTruncated) {
				t.Errorf("expected ErrFrameTruncated, got %v", err)
			}
		})
	}
}
