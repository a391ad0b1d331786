package database

import (
	"context"

	"github.com/anicoll/smartbuilding/internal/pkg/model"
)

// WriteResult tells apart a fresh insert from a replayed reading. Both are successful writes.
type WriteResult int

const (
	Inserted WriteResult = iota + 1
	Duplicate
)

func (wr WriteResult) String() string {
	switch wr {
	case Inserted:
		return "inserted"
	case Duplicate:
		return "duplicate"
	}
	return "unknown"
}

// InsertReading stores a reading once per (device_id, time_stamp). A second insert of the
// same key is reported as Duplicate rather than an error.
func (db *Database) InsertReading(ctx context.Context, r model.Reading) (WriteResult, error) {
	tag, err := db.pool.Exec(ctx, `
		INSERT INTO readings (device_id, temperature, humidity, time_stamp)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (device_id, time_stamp) DO NOTHING;`,
		r.DeviceID, r.Temperature, r.Humidity, r.Timestamp)
	if err != nil {
		if isUniqueViolation(err) {
			return Duplicate, nil
		}
		return 0, err
	}
	if tag.RowsAffected() == 0 {
		return Duplicate, nil
	}
	return Inserted, nil
}
