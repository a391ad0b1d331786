package database

import (
	"context"

	"github.com/anicoll/smartbuilding/internal/pkg/model"
)

// HVACState returns the HVAC record of a zone, or nil when the zone has none.
func (db *Database) HVACState(ctx context.Context, zoneID int64) (*model.HVACState, error) {
	const query = `
	SELECT id, zone_id, mode, current_temperature, set_temperature, fan_speed,
	       is_cooling, is_heating, power_consumption, last_updated
	FROM hvac_controls
	WHERE zone_id = $1;
	`
	var s model.HVACState
	err := db.pool.QueryRow(ctx, query, zoneID).Scan(
		&s.ID, &s.ZoneID, &s.Mode, &s.CurrentTemperature, &s.SetTemperature, &s.FanSpeed,
		&s.IsCooling, &s.IsHeating, &s.PowerConsumption, &s.LastUpdated,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// SaveHVACState overwrites the controller-owned columns of an HVAC record.
func (db *Database) SaveHVACState(ctx context.Context, s *model.HVACState) error {
	_, err := db.pool.Exec(ctx, `
		UPDATE hvac_controls
		SET current_temperature = $2, set_temperature = $3, fan_speed = $4,
		    is_cooling = $5, is_heating = $6, last_updated = $7
		WHERE id = $1;`,
		s.ID, s.CurrentTemperature, s.SetTemperature, s.FanSpeed, s.IsCooling, s.IsHeating, s.LastUpdated)
	return err
}
