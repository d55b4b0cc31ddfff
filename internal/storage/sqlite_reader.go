package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roman-kulish/rc-telemetry-bridge/internal/scheduler"
)

// ErrNoData indicates either that no data exists for the given parameters,
// or that all available data has been read from the frame reader.
var ErrNoData = errors.New("no data available")

// ReaderOption configures a frame reader with filtering criteria.
type ReaderOption func(*SqliteFrameReader)

// WithCategory restricts the reader to frames of one category.
func WithCategory(c scheduler.Category) ReaderOption {
	return func(r *SqliteFrameReader) {
		r.category = c.String()
	}
}

// SqliteFrameReader implements FrameReader for SQLite database backend.
// Frames are joined with their fields and regrouped while iterating.
type SqliteFrameReader struct {
	db *sql.DB

	sessionID int64
	session   *Session
	category  string // Empty reads every category

	current  *FrameRecord
	next     *FrameRecord // Frame whose first row was read ahead
	rows     *sql.Rows
	err      error
	finished bool
}

func newSqliteFrameReader(ctx context.Context, db *sql.DB, sessionID int64, opts ...ReaderOption) (*SqliteFrameReader, error) {
	fr := &SqliteFrameReader{
		db:        db,
		sessionID: sessionID,
	}
	for _, opt := range opts {
		opt(fr)
	}
	if err := fr.init(ctx); err != nil {
		return nil, fmt.Errorf("initializing reader: %w", err)
	}
	return fr, nil
}

func (fr *SqliteFrameReader) init(ctx context.Context) error {
	if fr.db == nil {
		return errors.New("database connection required")
	}
	if fr.sessionID <= 0 {
		return errors.New("session ID required")
	}

	steps := []struct {
		msg string
		fn  func(context.Context) error
	}{
		{msg: "loading session", fn: fr.loadSession},
		{msg: "initializing query", fn: fr.initQuery},
	}
	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", s.msg, err)
		}
	}
	return nil
}

func (fr *SqliteFrameReader) loadSession(ctx context.Context) (err error) {
	fr.session, err = querySession(ctx, fr.db, fr.sessionID)
	return
}

func (fr *SqliteFrameReader) initQuery(ctx context.Context) (err error) {
	stmt, err := fr.db.PrepareContext(ctx, selectFramesSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	fr.rows, err = stmt.QueryContext(ctx, fr.sessionID, fr.category, fr.category)
	return
}

// scanRow reads one joined row. The field is nil for a frame without fields.
func (fr *SqliteFrameReader) scanRow() (*FrameRecord, *fieldData, error) {
	var (
		rec            FrameRecord
		timestampMs    int64
		category       string
		altitudeSource string
		kind           sql.NullString
		available      sql.NullBool
		field          fieldData
	)

	err := fr.rows.Scan(
		&rec.ID,
		&timestampMs,
		&category,
		&altitudeSource,
		&kind,
		&available,
		&field.Value,
		&field.MeasuredMs,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("scanning frame: %w", err)
	}

	rec.SessionID = fr.sessionID
	rec.Frame.TimestampMs = uint32(timestampMs)
	if rec.Frame.Category, err = scheduler.ParseCategory(category); err != nil {
		return nil, nil, fmt.Errorf("frame %d: %w", rec.ID, err)
	}
	if rec.Frame.AltitudeSource, err = scheduler.ParseAltitudeSource(altitudeSource); err != nil {
		return nil, nil, fmt.Errorf("frame %d: %w", rec.ID, err)
	}

	if !kind.Valid {
		return &rec, nil, nil
	}
	field.Kind = kind.String
	field.Available = available.Bool
	return &rec, &field, nil
}

func (fr *SqliteFrameReader) appendField(rec *FrameRecord, data *fieldData) error {
	if data == nil {
		return nil
	}
	f, err := fromFieldData(*data)
	if err != nil {
		return fmt.Errorf("frame %d: %w", rec.ID, err)
	}
	rec.Frame.Fields = append(rec.Frame.Fields, f)
	return nil
}

func (fr *SqliteFrameReader) Session() *Session {
	return fr.session
}

func (fr *SqliteFrameReader) Next(ctx context.Context) bool {
	if fr.err != nil || fr.rows == nil || fr.finished {
		return false
	}

	fr.current = fr.next
	fr.next = nil

	for {
		select {
		case <-ctx.Done():
			fr.err = ctx.Err()
			return false
		default:
		}

		if !fr.rows.Next() {
			fr.finished = true
			if fr.current != nil {
				return true
			}
			fr.err = ErrNoData
			return false
		}

		rec, field, err := fr.scanRow()
		if err != nil {
			fr.err = err
			return false
		}

		if fr.current == nil {
			fr.current = rec
		} else if rec.ID != fr.current.ID {
			// First row of the following frame: keep it for the next call.
			fr.next = rec
			if err = fr.appendField(fr.next, field); err != nil {
				fr.err = err
				return false
			}
			return true
		}

		if err = fr.appendField(fr.current, field); err != nil {
			fr.err = err
			return false
		}
	}
}

func (fr *SqliteFrameReader) Current() *FrameRecord {
	return fr.current
}

func (fr *SqliteFrameReader) Error() error {
	if fr.err != nil && !errors.Is(fr.err, ErrNoData) {
		return fr.err
	}
	if fr.rows != nil {
		return fr.rows.Err()
	}
	return nil
}

func (fr *SqliteFrameReader) Close() error {
	if fr.rows != nil {
		err := fr.rows.Close()
		fr.current = nil
		fr.next = nil
		fr.rows = nil
		return err
	}
	return nil
}
