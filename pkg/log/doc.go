// Package log provides structured protocol logging for reactivexpc.
//
// This package defines the Logger interface and Event types for capturing
// protocol-level events at multiple layers (transport, wire, endpoint,
// listener). It is separate from operational logging (slog): protocol
// capture provides a complete machine-readable event trace for debugging
// and analysis.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.Logger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.Logger, _ = log.NewFileLogger("/var/log/rxpc/echo.rlog")
//
//	// Both: use MultiLogger
//	cfg.Logger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
//   - Transport: raw frame bytes and descriptor counts (FrameEvent)
//   - Wire: decoded values (MessageEvent)
//   - Endpoint and listener: lifecycle changes (StateChangeEvent)
//   - Faults delivered by the transport (FaultEvent)
//   - Inbound events that failed to decode and were dropped (DropEvent)
//
// # File Format
//
// Log files are a concatenated stream of CBOR-encoded events with the
// .rlog extension. The rxpc-log CLI tool views and summarizes them.
package log
