package hvac

import "math"

type State string

const (
	StateStandby State = "STANDBY"
	StateCooling State = "COOLING"
	StateHeating State = "HEATING"
)

const (
	deadBand     = 1.0
	fanPerDegree = 20.0
	standbyFan   = 30
)

// Decision is what the controller wants the HVAC unit to do.
type Decision struct {
	State State
	// SetTemperature is only meaningful while cooling or heating.
	SetTemperature float64
	FanSpeed       int
}

// Decide maps the current zone temperature to an HVAC decision. Inside the dead band
// around the target the unit idles with a low circulation fan.
func Decide(currentTemp, target float64) Decision {
	switch {
	case currentTemp > target+deadBand:
		return Decision{State: StateCooling, SetTemperature: target, FanSpeed: fanSpeed(currentTemp - target)}
	case currentTemp < target-deadBand:
		return Decision{State: StateHeating, SetTemperature: target, FanSpeed: fanSpeed(target - currentTemp)}
	default:
		return Decision{State: StateStandby, FanSpeed: standbyFan}
	}
}

func fanSpeed(delta float64) int {
	return int(math.Max(0, math.Min(100, math.Round(delta*fanPerDegree))))
}
