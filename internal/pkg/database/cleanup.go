package database

import (
	"context"
	"time"
)

// Cleanup removes readings older than the retention window and returns how many were deleted.
func (db *Database) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	tag, err := db.pool.Exec(ctx, "DELETE FROM readings WHERE time_stamp < $1", time.Now().AddDate(0, 0, -retentionDays))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
