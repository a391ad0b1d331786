package model

import "time"

type Owner struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Device is keyed by its display name, not by the id carried in edge messages.
type Device struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	OwnerID   int64     `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Zone struct {
	ID                int64   `json:"id"`
	Name              string  `json:"name"`
	Floor             int     `json:"floor"`
	ZoneType          string  `json:"zone_type"`
	TargetTemperature float64 `json:"target_temperature"`
	TempMin           float64 `json:"temp_min"`
	TempMax           float64 `json:"temp_max"`
	TargetHumidity    float64 `json:"target_humidity"`
	HumidityMin       float64 `json:"humidity_min"`
	HumidityMax       float64 `json:"humidity_max"`
	// Operating hours as "15:04:05".
	OperatingStart string `json:"operating_start"`
	OperatingEnd   string `json:"operating_end"`
	Active         bool   `json:"is_active"`
}

// ZoneSensorBinding associates a device with a zone and the sensor type it reports.
type ZoneSensorBinding struct {
	ID                  int64      `json:"id"`
	Zone                Zone       `json:"zone"`
	DeviceID            int64      `json:"device_id"`
	SensorType          SensorType `json:"sensor_type"`
	LocationDescription string     `json:"location_description"`
	LatestValue         *float64   `json:"latest_value"`
	LatestValueTime     *time.Time `json:"latest_value_time"`
	Active              bool       `json:"is_active"`
}

type HVACState struct {
	ID                 int64     `json:"id"`
	ZoneID             int64     `json:"zone_id"`
	Mode               HVACMode  `json:"mode"`
	CurrentTemperature *float64  `json:"current_temperature"`
	SetTemperature     float64   `json:"set_temperature"`
	FanSpeed           int       `json:"fan_speed"`
	IsCooling          bool      `json:"is_cooling"`
	IsHeating          bool      `json:"is_heating"`
	PowerConsumption   float64   `json:"power_consumption"`
	LastUpdated        time.Time `json:"last_updated"`
}

type BuildingAlert struct {
	ID            int64      `json:"id"`
	ZoneID        int64      `json:"zone_id"`
	Type          AlertType  `json:"alert_type"`
	Severity      Severity   `json:"severity"`
	Title         string     `json:"title"`
	Message       string     `json:"message"`
	SensorValue   *float64   `json:"sensor_value"`
	SensorType    SensorType `json:"sensor_type"`
	CreatedAt     time.Time  `json:"created_at"`
	Acknowledged  bool       `json:"acknowledged"`
	CameraID      *int64     `json:"camera_id,omitempty"`
	RecordingPath string     `json:"video_recording_path,omitempty"`
}

type ZoneCamera struct {
	ID                  int64  `json:"id"`
	ZoneID              int64  `json:"zone_id"`
	Name                string `json:"name"`
	CameraType          string `json:"camera_type"`
	RTSPURL             string `json:"rtsp_url"`
	MediaPath           string `json:"mediamtx_path"`
	RecordingEnabled    bool   `json:"recording_enabled"`
	RetentionDays       int    `json:"retention_days"`
	PositionDescription string `json:"position_description"`
	Active              bool   `json:"is_active"`
}
