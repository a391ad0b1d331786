package database

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/anicoll/smartbuilding/internal/pkg/model"
)

// ActiveBinding returns the first active zone binding of a device, or nil when the device is unbound.
func (db *Database) ActiveBinding(ctx context.Context, deviceID int64) (*model.ZoneSensorBinding, error) {
	const query = `
	SELECT zs.id, zs.device_id, zs.sensor_type, zs.location_description,
	       zs.latest_value, zs.latest_value_time, zs.is_active,
	       z.id, z.name, z.floor, z.zone_type, z.target_temperature,
	       z.temp_min, z.temp_max, z.target_humidity, z.humidity_min, z.humidity_max,
	       z.operating_start::text, z.operating_end::text, z.is_active
	FROM zone_sensors zs
	JOIN zones z ON z.id = zs.zone_id
	WHERE zs.device_id = $1 AND zs.is_active
	ORDER BY zs.id
	LIMIT 1;
	`
	var b model.ZoneSensorBinding
	err := db.pool.QueryRow(ctx, query, deviceID).Scan(
		&b.ID, &b.DeviceID, &b.SensorType, &b.LocationDescription,
		&b.LatestValue, &b.LatestValueTime, &b.Active,
		&b.Zone.ID, &b.Zone.Name, &b.Zone.Floor, &b.Zone.ZoneType, &b.Zone.TargetTemperature,
		&b.Zone.TempMin, &b.Zone.TempMax, &b.Zone.TargetHumidity, &b.Zone.HumidityMin, &b.Zone.HumidityMax,
		&b.Zone.OperatingStart, &b.Zone.OperatingEnd, &b.Zone.Active,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

// UpdateBindingReading persists the latest value and its time for a binding.
func (db *Database) UpdateBindingReading(ctx context.Context, b *model.ZoneSensorBinding) error {
	_, err := db.pool.Exec(ctx, `
		UPDATE zone_sensors
		SET latest_value = $2, latest_value_time = $3
		WHERE id = $1;`, b.ID, b.LatestValue, b.LatestValueTime)
	return err
}

// ActiveTemperatureValues returns the latest values of every active temperature binding in a zone.
// Bindings that never reported carry a nil value.
func (db *Database) ActiveTemperatureValues(ctx context.Context, zoneID int64) ([]*float64, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT latest_value
		FROM zone_sensors
		WHERE zone_id = $1 AND sensor_type = $2 AND is_active
		ORDER BY id;`, zoneID, model.SensorTemperature.String())
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[*float64])
}
