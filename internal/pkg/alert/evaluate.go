package alert

import (
	"fmt"
	"math"
	"strconv"

	"github.com/anicoll/smartbuilding/internal/pkg/model"
)

// criticalMargin is how far above the upper temperature bound a reading turns critical.
const criticalMargin = 3.0

// Evaluate compares a sensor value against the zone thresholds and returns the alerts it
// raises. At most one alert is returned. A nil value or a sensor type without thresholds
// never raises.
func Evaluate(zone model.Zone, sensorType model.SensorType, value *float64) []model.BuildingAlert {
	if value == nil {
		return nil
	}
	v := *value

	var a *model.BuildingAlert
	switch sensorType {
	case model.SensorTemperature:
		a = evaluateTemperature(zone, v)
	case model.SensorHumidity:
		a = evaluateHumidity(zone, v)
	}
	if a == nil {
		return nil
	}
	a.ZoneID = zone.ID
	a.SensorValue = &v
	a.SensorType = sensorType
	return []model.BuildingAlert{*a}
}

func evaluateTemperature(zone model.Zone, v float64) *model.BuildingAlert {
	switch {
	case v < zone.TempMin:
		return &model.BuildingAlert{
			Type:     model.AlertTemperature,
			Severity: model.SeverityWarning,
			Title:    "Temperature Too Low",
			Message:  fmt.Sprintf("%s: %s°C (Min: %s°C)", zone.Name, formatValue(v), formatValue(zone.TempMin)),
		}
	case v > zone.TempMax:
		severity := model.SeverityWarning
		if v > zone.TempMax+criticalMargin {
			severity = model.SeverityCritical
		}
		return &model.BuildingAlert{
			Type:     model.AlertTemperature,
			Severity: severity,
			Title:    "Temperature Too High",
			Message:  fmt.Sprintf("%s: %s°C (Max: %s°C)", zone.Name, formatValue(v), formatValue(zone.TempMax)),
		}
	}
	return nil
}

func evaluateHumidity(zone model.Zone, v float64) *model.BuildingAlert {
	if v >= zone.HumidityMin && v <= zone.HumidityMax {
		return nil
	}
	return &model.BuildingAlert{
		Type:     model.AlertHumidity,
		Severity: model.SeverityWarning,
		Title:    "Humidity Out of Range",
		Message: fmt.Sprintf("%s: %s%% (Range: %s-%s%%)", zone.Name, formatValue(v),
			formatValue(zone.HumidityMin), formatValue(zone.HumidityMax)),
	}
}

// formatValue prints the shortest representation of v, keeping one decimal on whole numbers.
func formatValue(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if v == math.Trunc(v) && !math.IsInf(v, 0) {
		s += ".0"
	}
	return s
}
