package safe

import (
	"context"
	"io"
	"log/slog"

	"github.com/secmon-lab/switchboard/pkg/utils/logging"
)

// maxDrainBytes bounds how much of an unread response body is discarded
// before closing, so keep-alive connections can be reused.
const maxDrainBytes = 64 << 10

// Close closes closer and logs a failure. Nil closers are ignored.
func Close(ctx context.Context, closer io.Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.From(ctx).Error("Failed to close", slog.Any("error", err))
	}
}

// Drain discards up to maxDrainBytes of body and closes it.
// Intended for HTTP response bodies.
func Drain(ctx context.Context, body io.ReadCloser) {
	if body == nil {
		return
	}
	if _, err := io.CopyN(io.Discard, body, maxDrainBytes); err != nil && err != io.EOF {
		logging.From(ctx).Debug("Failed to drain body", slog.Any("error", err))
	}
	Close(ctx, body)
}

// Write writes data to w and logs a failure. Nil writers are ignored.
func Write(ctx context.Context, w io.Writer, data []byte) {
	if w == nil {
		return
	}
	if _, err := w.Write(data); err != nil {
		logging.From(ctx).Error("Failed to write", slog.Any("error", err))
	}
}
