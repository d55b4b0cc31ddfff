package storage

import (
	_ "embed"
)

//go:embed schema.sql
var initSchemaSQL string

const (
	initIndexesSQL = `
CREATE INDEX IF NOT EXISTS idx_frames_session_category ON frames (session_id, category);`

	insertSessionSQL = `
INSERT INTO sessions (
                      start_time,
                      protocol,
                      config)
VALUES (CURRENT_TIMESTAMP, ?, ?)`

	selectSessionSQL = `
SELECT
    id,
    start_time,
    protocol,
    config
FROM sessions
WHERE
    id = ?`

	selectSessionsSQL = `
SELECT
    id,
    start_time,
    protocol,
    config
FROM sessions
ORDER BY start_time, id`

	insertFrameSQL = `
INSERT INTO frames (session_id,
                    timestamp_ms,
                    category,
                    altitude_source)
VALUES (?, ?, ?, ?)`

	insertFieldsSQL = `
INSERT INTO frame_fields (frame_id,
                          position,
                          kind,
                          available,
                          value,
                          measured_ms)
VALUES `

	selectFramesSQL = `
SELECT f.id,
       f.timestamp_ms,
       f.category,
       f.altitude_source,
       ff.kind,
       ff.available,
       ff.value,
       ff.measured_ms
FROM frames f
         LEFT JOIN frame_fields ff ON ff.frame_id = f.id
WHERE f.session_id = ?
  AND (? = '' OR f.category = ?)
ORDER BY f.id, ff.position`
)
