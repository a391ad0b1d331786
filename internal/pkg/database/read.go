package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/anicoll/smartbuilding/internal/pkg/model"
)

const defaultReadingWindow = 48 * time.Hour

// readingRange fills in the missing bounds of a query range.
// A missing end is now, a missing start is two days before the end.
func readingRange(from, to *time.Time, now time.Time) (time.Time, time.Time) {
	end := now
	if to != nil {
		end = *to
	}
	start := end.Add(-defaultReadingWindow)
	if from != nil {
		start = *from
	}
	return start, end
}

// GetReadings returns the stored readings of a device between from and to, newest first.
// Each missing bound is defaulted on its own, see readingRange.
func (db *Database) GetReadings(ctx context.Context, deviceID int64, from, to *time.Time) ([]model.Reading, error) {
	start, end := readingRange(from, to, time.Now())
	const query = `
	SELECT device_id, temperature, humidity, time_stamp
	FROM readings
	WHERE device_id = $1 AND time_stamp BETWEEN $2 AND $3
	ORDER BY time_stamp DESC;
	`

	rows, err := db.pool.Query(ctx, query, deviceID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReadings(rows)
}

func scanReadings(rows pgx.Rows) ([]model.Reading, error) {
	var readings []model.Reading
	for rows.Next() {
		var r model.Reading
		if err := rows.Scan(&r.DeviceID, &r.Temperature, &r.Humidity, &r.Timestamp); err != nil {
			return nil, err
		}
		readings = append(readings, r)
	}

	if err := rows.Err(); err != nil {
		if err == pgx.ErrNoRows {
			return readings, nil
		}
		return nil, err
	}

	return readings, nil
}
