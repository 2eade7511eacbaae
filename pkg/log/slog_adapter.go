package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger.
// Useful for development when you want to see endpoint traffic in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger. Faults and drops are logged at
// Warn, everything else at Debug.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("conn_id", event.ConnectionID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}

	if event.ServiceName != "" {
		attrs = append(attrs, slog.String("service", event.ServiceName))
	}
	if event.PeerPID != 0 {
		attrs = append(attrs, slog.Int("peer_pid", int(event.PeerPID)))
	}

	// Add type-specific attributes
	switch {
	case event.Frame != nil:
		attrs = append(attrs,
			slog.Int("frame_size", event.Frame.Size),
			slog.Bool("truncated", event.Frame.Truncated),
		)
		if event.Frame.Files > 0 {
			attrs = append(attrs, slog.Int("files", event.Frame.Files))
		}
	case event.Message != nil:
		attrs = append(attrs,
			slog.String("kind", event.Message.Kind),
			slog.String("value", event.Message.Summary),
		)
		if event.Message.Wrapped {
			attrs = append(attrs, slog.Bool("wrapped", true))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Fault != nil:
		attrs = append(attrs, slog.String("fault", event.Fault.Name))
	case event.Drop != nil:
		attrs = append(attrs,
			slog.String("native_type", event.Drop.NativeType),
			slog.String("reason", event.Drop.Reason),
			slog.Uint64("dropped", event.Drop.Count),
		)
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
	}

	level := slog.LevelDebug
	if event.Category == CategoryFault || event.Category == CategoryDrop {
		level = slog.LevelWarn
	}
	a.logger.LogAttrs(context.Background(), level, "protocol", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
