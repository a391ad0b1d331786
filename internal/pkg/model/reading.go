package model

import (
	"encoding/json"
	"time"
)

// EdgeMessage is the JSON document published by sensors on the edge transport.
// DeviceID is kept raw so that both the numeric id and the device label are
// derived from the same token.
type EdgeMessage struct {
	DeviceID    json.RawMessage `json:"device_id"`
	Temperature *float64        `json:"temperature"`
	Humidity    *float64        `json:"humidity"`
	Timestamp   *string         `json:"timestamp"`
}

// Reading is a normalized sensor reading. It only lives for the duration of one
// message; the durable store keeps its own copy.
type Reading struct {
	DeviceID    int64     `json:"device_id"`
	Temperature *float64  `json:"temperature"`
	Humidity    *float64  `json:"humidity"`
	Timestamp   time.Time `json:"timestamp"`
}

// ValueFor returns the field of the reading reported by a binding of the given sensor type.
func (r Reading) ValueFor(st SensorType) (*float64, bool) {
	switch st {
	case SensorTemperature:
		return r.Temperature, true
	case SensorHumidity:
		return r.Humidity, true
	}
	return nil, false
}

type LatestReading struct {
	Reading
	Status DeviceStatus `json:"status"`
}
