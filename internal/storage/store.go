package storage

import (
	"context"

	"github.com/roman-kulish/rc-telemetry-bridge/internal/scheduler"
)

// Store records the telemetry frames a bridge emitted, grouped by session, so
// a flight can be reviewed after landing.
type Store interface {
	// CreateSession starts a new session and returns its identifier.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - protocol: Downlink protocol of the session (e.g., "crsf", "frsky")
	//   - config: Optional bridge configuration. Can be string, []byte, or JSON-serializable object
	CreateSession(ctx context.Context, protocol string, config any) (sessionID int64, err error)

	// Session retrieves a session by its ID.
	Session(ctx context.Context, id int64) (*Session, error)

	// Sessions returns all sessions ordered by start time.
	Sessions(ctx context.Context) ([]*Session, error)

	// StoreFrame saves a frame with all of its fields in a single transaction.
	StoreFrame(ctx context.Context, sessionID int64, frame *scheduler.Frame) (frameID int64, err error)

	// ReadFrames returns a reader over the frames of a session in the order
	// they were stored. The reader must be closed after use.
	ReadFrames(ctx context.Context, sessionID int64, opts ...ReaderOption) (FrameReader, error)

	// Close releases all database connections. It is safe to call Close
	// multiple times.
	Close() error
}

// FrameReader iterates over stored frames.
type FrameReader interface {
	// Session returns the session being read.
	Session() *Session

	// Next advances to the next frame. It returns false at the end of the
	// data or on error; check Error to tell the two apart.
	Next(context.Context) bool

	// Current returns the frame Next advanced to.
	Current() *FrameRecord

	// Error returns the error that stopped the iteration, if any.
	Error() error

	// Close releases the reader's resources.
	Close() error
}
