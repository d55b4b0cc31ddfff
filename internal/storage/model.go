package storage

import (
	"database/sql"
	"time"

	"github.com/roman-kulish/rc-telemetry-bridge/internal/scheduler"
)

// Session is one run of the bridge.
type Session struct {
	ID        int64
	StartTime time.Time
	Protocol  string
	Config    *string
}

// FrameRecord is a stored frame.
type FrameRecord struct {
	ID        int64
	SessionID int64
	Frame     scheduler.Frame
}

type fieldData struct {
	Kind       string
	Available  bool
	Value      sql.NullInt64
	MeasuredMs sql.NullInt64
}
