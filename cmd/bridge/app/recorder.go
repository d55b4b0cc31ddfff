package app

import (
	"context"
	"log/slog"

	"github.com/roman-kulish/rc-telemetry-bridge/internal/intercore"
	"github.com/roman-kulish/rc-telemetry-bridge/internal/scheduler"
	"github.com/roman-kulish/rc-telemetry-bridge/internal/storage"
)

// Recorder writes emitted frames to the flight log. It is the consumer of
// the frame ring filled by recorderSink.
type Recorder struct {
	ring      *intercore.Ring[scheduler.Frame]
	store     storage.Store
	sessionID int64
	logger    *slog.Logger

	stored uint64
	failed uint64
}

func newRecorder(ring *intercore.Ring[scheduler.Frame], store storage.Store, sessionID int64, logger *slog.Logger) *Recorder {
	return &Recorder{
		ring:      ring,
		store:     store,
		sessionID: sessionID,
		logger:    logger.With(slog.String("component", "recorder"), slog.Int64("session", sessionID)),
	}
}

// Flush stores every frame currently in the ring and returns how many were
// stored. A frame that fails to store is logged and skipped.
func (r *Recorder) Flush(ctx context.Context) int {
	var n int
	for {
		f, ok := r.ring.Pop()
		if !ok {
			return n
		}

		if _, err := r.store.StoreFrame(ctx, r.sessionID, &f); err != nil {
			r.failed++
			r.logger.Error("failed to store frame", slog.String("category", f.Category.String()), slog.Any("error", err))
			continue
		}
		r.stored++
		n++
	}
}
