package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roman-kulish/rc-telemetry-bridge/internal/telemetry"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && !errors.Is(cErr, sql.ErrTxDone) && *err == nil {
		*err = cErr
	}
}

func toConfigData(config any) (sql.NullString, error) {
	var data sql.NullString

	switch c := config.(type) {
	case nil:
	case string:
		data.Valid = true
		data.String = c

	case []byte:
		data.Valid = true
		data.String = string(c)

	default:
		p, err := json.Marshal(config)
		if err != nil {
			return data, fmt.Errorf("marshaling config: %w", err)
		}

		data.Valid = true
		data.String = string(p)
	}

	return data, nil
}

func toFieldData(f telemetry.Field) fieldData {
	data := fieldData{
		Kind:      f.Kind.String(),
		Available: f.Available,
	}
	if f.Available {
		data.Value = sql.NullInt64{Int64: int64(f.Value), Valid: true}
		data.MeasuredMs = sql.NullInt64{Int64: int64(f.TimestampMs), Valid: true}
	}
	return data
}

func fromFieldData(data fieldData) (telemetry.Field, error) {
	kind, err := telemetry.ParseKind(data.Kind)
	if err != nil {
		return telemetry.Field{}, err
	}

	f := telemetry.Field{Kind: kind}
	f.Available = data.Available
	if data.Value.Valid {
		f.Value = int32(data.Value.Int64)
	}
	if data.MeasuredMs.Valid {
		f.TimestampMs = uint32(data.MeasuredMs.Int64)
	}
	return f, nil
}
