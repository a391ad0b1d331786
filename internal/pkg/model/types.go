package model

type SensorType string

func (st SensorType) String() string {
	return string(st)
}

const (
	SensorTemperature SensorType = "TEMPERATURE"
	SensorHumidity    SensorType = "HUMIDITY"
	SensorCO2         SensorType = "CO2"
	SensorLight       SensorType = "LIGHT"
	SensorMotion      SensorType = "MOTION"
	SensorDoor        SensorType = "DOOR"
)

type HVACMode string

func (m HVACMode) String() string {
	return string(m)
}

const (
	HVACModeAuto     HVACMode = "AUTO"
	HVACModeManual   HVACMode = "MANUAL"
	HVACModeSchedule HVACMode = "SCHEDULE"
	HVACModeOff      HVACMode = "OFF"
)

type AlertType string

func (at AlertType) String() string {
	return string(at)
}

const (
	AlertTemperature AlertType = "TEMPERATURE"
	AlertHumidity    AlertType = "HUMIDITY"
	AlertSecurity    AlertType = "SECURITY"
	AlertEnergy      AlertType = "ENERGY"
	AlertHVAC        AlertType = "HVAC"
	AlertDoor        AlertType = "DOOR"
	AlertMotion      AlertType = "MOTION"
)

type Severity string

func (s Severity) String() string {
	return string(s)
}

const (
	SeverityInfo      Severity = "INFO"
	SeverityWarning   Severity = "WARNING"
	SeverityCritical  Severity = "CRITICAL"
	SeverityEmergency Severity = "EMERGENCY"
)

// DeviceStatus is derived from the remaining TTL of a cached reading.
type DeviceStatus string

const (
	StatusOnline  DeviceStatus = "online"
	StatusOffline DeviceStatus = "offline"
)
