package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/indragiek/reactivexpc/pkg/log"
)

// Framing constants.
const (
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4

	// DefaultMaxMessageSize is the default maximum message size (1 MB).
	DefaultMaxMessageSize = 1 << 20

	// MinMessageSize is the minimum valid message size.
	MinMessageSize = 1

	// MaxFrameFiles is the maximum number of descriptors attached to one
	// frame.
	MaxFrameFiles = 64

	// MaxLogFrameDataSize is the maximum frame data size to include in logs (4 KB).
	// Larger frames are truncated in log events to avoid excessive memory usage.
	MaxLogFrameDataSize = 4096
)

// Framing errors.
var (
	// ErrMessageTooLarge indicates the message exceeds the maximum size.
	ErrMessageTooLarge = errors.New("message too large")

	// ErrMessageEmpty indicates an empty message.
	ErrMessageEmpty = errors.New("message is empty")

	// ErrFrameTruncated indicates the frame was truncated.
	ErrFrameTruncated = errors.New("frame truncated")

	// ErrTooManyFiles indicates a frame carries more than MaxFrameFiles
	// descriptors.
	ErrTooManyFiles = errors.New("too many files in frame")

	// ErrFilesUnsupported indicates descriptors were attached to a frame
	// on a stream that is not a Unix domain socket.
	ErrFilesUnsupported = errors.New("descriptor passing requires a unix socket")
)

// FrameWriter writes length-prefixed frames to an underlying writer.
//
// When the writer is a *net.UnixConn, descriptors can be attached to a
// frame. They travel as SCM_RIGHTS ancillary data on the length prefix.
type FrameWriter struct {
	w              io.Writer
	uc             *net.UnixConn
	maxMessageSize uint32
	mu             sync.Mutex

	// Logging support (optional)
	logger log.Logger
	connID string
}

// NewFrameWriter creates a new frame writer.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return NewFrameWriterWithMaxSize(w, DefaultMaxMessageSize)
}

// NewFrameWriterWithMaxSize creates a frame writer with a custom max size.
func NewFrameWriterWithMaxSize(w io.Writer, maxSize uint32) *FrameWriter {
	uc, _ := w.(*net.UnixConn)
	return &FrameWriter{
		w:              w,
		uc:             uc,
		maxMessageSize: maxSize,
	}
}

// SetLogger configures logging for this writer.
// Pass nil to disable logging.
func (fw *FrameWriter) SetLogger(logger log.Logger, connID string) {
	fw.logger = logger
	fw.connID = connID
}

// WriteFrame writes a length-prefixed frame.
// Thread-safe: can be called from multiple goroutines.
func (fw *FrameWriter) WriteFrame(data []byte) error {
	return fw.WriteFrameFiles(data, nil)
}

// WriteFrameFiles writes a length-prefixed frame with descriptors attached.
// The files are borrowed; they must stay open until the call returns.
func (fw *FrameWriter) WriteFrameFiles(data []byte, files []*os.File) error {
	if len(data) == 0 {
		return ErrMessageEmpty
	}
	if uint32(len(data)) > fw.maxMessageSize {
		return fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, len(data), fw.maxMessageSize)
	}
	if len(files) > MaxFrameFiles {
		return fmt.Errorf("%w: %d > %d", ErrTooManyFiles, len(files), MaxFrameFiles)
	}
	if len(files) > 0 && fw.uc == nil {
		return ErrFilesUnsupported
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	// Write length prefix (4 bytes, big-endian)
	var lengthBuf [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(lengthBuf[:], uint32(len(data)))

	if len(files) > 0 {
		fds := make([]int, len(files))
		for i, f := range files {
			fds[i] = int(f.Fd())
		}
		n, _, err := fw.uc.WriteMsgUnix(lengthBuf[:], unix.UnixRights(fds...), nil)
		if err != nil {
			return fmt.Errorf("failed to write length prefix: %w", err)
		}
		if n < LengthPrefixSize {
			if _, err := fw.w.Write(lengthBuf[n:]); err != nil {
				return fmt.Errorf("failed to write length prefix: %w", err)
			}
		}
	} else if _, err := fw.w.Write(lengthBuf[:]); err != nil {
		return fmt.Errorf("failed to write length prefix: %w", err)
	}

	// Write payload
	if _, err := fw.w.Write(data); err != nil {
		return fmt.Errorf("failed to write payload: %w", err)
	}

	if fw.logger != nil {
		fw.logger.Log(makeFrameEvent(fw.connID, data, len(files), log.DirectionOut))
	}

	return nil
}

// makeFrameEvent creates a log event for a frame.
func makeFrameEvent(connID string, data []byte, files int, direction log.Direction) log.Event {
	frameSize := LengthPrefixSize + len(data)
	frameData := data
	truncated := false

	if len(data) > MaxLogFrameDataSize {
		frameData = data[:MaxLogFrameDataSize]
		truncated = true
	}

	return log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    direction,
		Layer:        log.LayerTransport,
		Category:     log.CategoryMessage,
		Frame: &log.FrameEvent{
			Size:      frameSize,
			Data:      frameData,
			Truncated: truncated,
			Files:     files,
		},
	}
}

// FrameReader reads length-prefixed frames from an underlying reader.
type FrameReader struct {
	r              io.Reader
	uc             *net.UnixConn
	maxMessageSize uint32
	lengthBuf      [LengthPrefixSize]byte
	oob            []byte

	// Logging support (optional)
	logger log.Logger
	connID string
}

// NewFrameReader creates a new frame reader.
func NewFrameReader(r io.Reader) *FrameReader {
	return NewFrameReaderWithMaxSize(r, DefaultMaxMessageSize)
}

// NewFrameReaderWithMaxSize creates a frame reader with a custom max size.
func NewFrameReaderWithMaxSize(r io.Reader, maxSize uint32) *FrameReader {
	fr := &FrameReader{
		r:              r,
		maxMessageSize: maxSize,
	}
	if uc, ok := r.(*net.UnixConn); ok {
		fr.uc = uc
		fr.oob = make([]byte, unix.CmsgSpace(MaxFrameFiles*4))
	}
	return fr
}

// SetLogger configures logging for this reader.
// Pass nil to disable logging.
func (fr *FrameReader) SetLogger(logger log.Logger, connID string) {
	fr.logger = logger
	fr.connID = connID
}

// ReadFrame reads a length-prefixed frame.
// Returns the frame payload (without the length prefix). Descriptors
// attached to the frame are closed.
func (fr *FrameReader) ReadFrame() ([]byte, error) {
	data, files, err := fr.ReadFrameFiles()
	closeFiles(files)
	return data, err
}

// ReadFrameFiles reads a length-prefixed frame and any descriptors attached
// to it. The caller owns the returned files.
func (fr *FrameReader) ReadFrameFiles() ([]byte, []*os.File, error) {
	files, err := fr.readPrefix()
	if err != nil {
		closeFiles(files)
		return nil, nil, err
	}

	length := binary.BigEndian.Uint32(fr.lengthBuf[:])

	// Validate length
	if length == 0 {
		closeFiles(files)
		return nil, nil, ErrMessageEmpty
	}
	if length > fr.maxMessageSize {
		closeFiles(files)
		return nil, nil, fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, length, fr.maxMessageSize)
	}

	// Read payload
	payload := make([]byte, length)
	if _, err := io.ReadFull(fr.r, payload); err != nil {
		closeFiles(files)
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, nil, ErrFrameTruncated
		}
		return nil, nil, fmt.Errorf("failed to read payload: %w", err)
	}

	if fr.logger != nil {
		fr.logger.Log(makeFrameEvent(fr.connID, payload, len(files), log.DirectionIn))
	}

	return payload, files, nil
}

// readPrefix fills lengthBuf, collecting descriptors that arrive with it.
func (fr *FrameReader) readPrefix() ([]*os.File, error) {
	if fr.uc == nil {
		return nil, readFull(fr.r, fr.lengthBuf[:], 0)
	}

	n, oobn, _, _, err := fr.uc.ReadMsgUnix(fr.lengthBuf[:], fr.oob)
	var files []*os.File
	if oobn > 0 {
		files = parseRights(fr.oob[:oobn])
	}
	if err != nil {
		// ReadMsgUnix wraps EOF in a *net.OpError.
		if errors.Is(err, io.EOF) && n == 0 {
			return files, io.EOF
		}
		if errors.Is(err, io.EOF) {
			return files, ErrFrameTruncated
		}
		return files, fmt.Errorf("failed to read length prefix: %w", err)
	}
	if n == 0 {
		return files, io.EOF
	}
	return files, readFull(fr.r, fr.lengthBuf[n:], n)
}

// readFull fills buf with the rest of a length prefix. already is the number
// of prefix bytes consumed before the call.
func readFull(r io.Reader, buf []byte, already int) error {
	if len(buf) == 0 {
		return nil
	}
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) && already == 0 {
			return io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return ErrFrameTruncated
		}
		return fmt.Errorf("failed to read length prefix: %w", err)
	}
	return nil
}

// parseRights extracts SCM_RIGHTS descriptors from ancillary data.
func parseRights(oob []byte) []*os.File {
	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil
	}
	var files []*os.File
	for i := range msgs {
		fds, err := unix.ParseUnixRights(&msgs[i])
		if err != nil {
			continue
		}
		for _, fd := range fds {
			unix.CloseOnExec(fd)
			files = append(files, os.NewFile(uintptr(fd), fmt.Sprintf("scm-rights:%d", fd)))
		}
	}
	return files
}

func closeFiles(files []*os.File) {
	for _, f := range files {
		f.Close()
	}
}

// SetMaxMessageSize updates the maximum message size.
func (fr *FrameReader) SetMaxMessageSize(size uint32) {
	fr.maxMessageSize = size
}

// Framer combines frame reading and writing.
type Framer struct {
	*FrameReader
	*FrameWriter
}

// NewFramer creates a new framer for bidirectional communication.
func NewFramer(rw io.ReadWriter) *Framer {
	return NewFramerWithMaxSize(rw, DefaultMaxMessageSize)
}

// NewFramerWithMaxSize creates a framer with a custom max message size.
func NewFramerWithMaxSize(rw io.ReadWriter, maxSize uint32) *Framer {
	return &Framer{
		FrameReader: NewFrameReaderWithMaxSize(rw, maxSize),
		FrameWriter: NewFrameWriterWithMaxSize(rw, maxSize),
	}
}

// SetLogger configures logging for both reader and writer.
// Pass nil to disable logging.
func (f *Framer) SetLogger(logger log.Logger, connID string) {
	f.FrameReader.SetLogger(logger, connID)
	f.FrameWriter.SetLogger(logger, connID)
}

// FrameSize returns the total frame size including the length prefix.
func FrameSize(payloadSize int) int {
	return LengthPrefixSize + payloadSize
}
