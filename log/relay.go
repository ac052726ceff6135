package log

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Relay re-emits guest log messages through a host logger, tagged with
// source=guest and the guest name.
type Relay struct {
	logger *slog.Logger
}

// NewRelay creates a relay writing to logger, or slog.Default when nil.
func NewRelay(logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{logger: logger}
}

// Emit decodes a LogMessageWire payload and logs it. A payload that is not
// valid wire JSON is logged raw at info level.
func (r *Relay) Emit(ctx context.Context, guest string, payload []byte) {
	var msg LogMessageWire
	if err := json.Unmarshal(payload, &msg); err != nil {
		r.logger.InfoContext(ctx, "guest log (raw)", "source", "guest", "guest", guest, "payload", string(payload))
		return
	}

	level := slog.LevelInfo
	if msg.Level != "" {
		if err := level.UnmarshalText([]byte(msg.Level)); err != nil {
			level = slog.LevelInfo
		}
	}
	if !r.logger.Enabled(ctx, level) {
		return
	}

	attrs := make([]slog.Attr, 0, len(msg.Attrs)+2)
	attrs = append(attrs, slog.String("source", "guest"), slog.String("guest", guest))
	for _, a := range msg.Attrs {
		attrs = append(attrs, fromLogAttrWire(a))
	}
	r.logger.LogAttrs(ctx, level, msg.Message, attrs...)
}
