package database

import (
	"context"

	"github.com/anicoll/smartbuilding/internal/pkg/model"
)

// CreateAlert inserts an alert and fills in its id and creation time.
func (db *Database) CreateAlert(ctx context.Context, a *model.BuildingAlert) error {
	return db.pool.QueryRow(ctx, `
		INSERT INTO building_alerts (zone_id, alert_type, severity, title, message, sensor_value, sensor_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at;`,
		a.ZoneID, a.Type.String(), a.Severity.String(), a.Title, a.Message, a.SensorValue, a.SensorType.String(),
	).Scan(&a.ID, &a.CreatedAt)
}

// FirstActiveCamera returns the active camera of a zone with the lowest id, or nil when there is none.
func (db *Database) FirstActiveCamera(ctx context.Context, zoneID int64) (*model.ZoneCamera, error) {
	const query = `
	SELECT id, zone_id, name, camera_type, rtsp_url, mediamtx_path, recording_enabled,
	       retention_days, position_description, is_active
	FROM zone_cameras
	WHERE zone_id = $1 AND is_active
	ORDER BY id
	LIMIT 1;
	`
	var c model.ZoneCamera
	err := db.pool.QueryRow(ctx, query, zoneID).Scan(
		&c.ID, &c.ZoneID, &c.Name, &c.CameraType, &c.RTSPURL, &c.MediaPath, &c.RecordingEnabled,
		&c.RetentionDays, &c.PositionDescription, &c.Active,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// AttachRecording links an alert to the camera recording it.
func (db *Database) AttachRecording(ctx context.Context, alertID, cameraID int64, path string) error {
	_, err := db.pool.Exec(ctx, `
		UPDATE building_alerts
		SET camera_id = $2, video_recording_path = $3
		WHERE id = $1;`, alertID, cameraID, path)
	return err
}
