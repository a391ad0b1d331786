package hvac

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/anicoll/smartbuilding/internal/pkg/model"
)

type store interface {
	HVACState(ctx context.Context, zoneID int64) (*model.HVACState, error)
	ActiveTemperatureValues(ctx context.Context, zoneID int64) ([]*float64, error)
	SaveHVACState(ctx context.Context, s *model.HVACState) error
}

// Controller drives the HVAC unit of a zone in AUTO mode from its temperature sensors.
type Controller struct {
	store  store
	logger *zap.Logger
	now    func() time.Time
}

func NewController(store store) *Controller {
	return &Controller{
		store:  store,
		logger: zap.L(),
		now:    time.Now,
	}
}

// Regulate recomputes the HVAC state of the zone and reports whether it was applied.
// Zones without an HVAC record, not in AUTO mode, or without a temperature value are left alone.
// The state is written on every call; a log line is only emitted when the cooling or heating flags change.
func (c *Controller) Regulate(ctx context.Context, zone model.Zone) (bool, error) {
	state, err := c.store.HVACState(ctx, zone.ID)
	if err != nil {
		return false, fmt.Errorf("load hvac of zone %d: %w", zone.ID, err)
	}
	if state == nil {
		c.logger.Debug("no hvac for zone", zap.String("zone", zone.Name))
		return false, nil
	}
	if state.Mode != model.HVACModeAuto {
		c.logger.Debug("hvac not in auto mode", zap.String("zone", zone.Name), zap.String("mode", state.Mode.String()))
		return false, nil
	}

	values, err := c.store.ActiveTemperatureValues(ctx, zone.ID)
	if err != nil {
		return false, fmt.Errorf("load temperatures of zone %d: %w", zone.ID, err)
	}
	temps := lo.FilterMap(values, func(v *float64, _ int) (float64, bool) {
		if v == nil {
			return 0, false
		}
		return *v, true
	})
	if len(temps) == 0 {
		c.logger.Debug("no temperature readings for zone", zap.String("zone", zone.Name))
		return false, nil
	}
	current := lo.Mean(temps)

	prev := stateOf(state)
	wasCooling, wasHeating := state.IsCooling, state.IsHeating
	d := Decide(current, zone.TargetTemperature)

	state.CurrentTemperature = &current
	state.FanSpeed = d.FanSpeed
	state.IsCooling = d.State == StateCooling
	state.IsHeating = d.State == StateHeating
	if d.State != StateStandby {
		state.SetTemperature = d.SetTemperature
	}
	state.LastUpdated = c.now()

	if err := c.store.SaveHVACState(ctx, state); err != nil {
		return false, fmt.Errorf("save hvac of zone %d: %w", zone.ID, err)
	}

	if wasCooling != state.IsCooling || wasHeating != state.IsHeating {
		c.logger.Info("hvac state changed",
			zap.String("zone", zone.Name),
			zap.String("from", string(prev)),
			zap.String("to", string(d.State)),
			zap.Float64("current_temperature", current),
			zap.Float64("target_temperature", zone.TargetTemperature),
			zap.Int("fan_speed", d.FanSpeed),
		)
	}
	return true, nil
}

func stateOf(s *model.HVACState) State {
	switch {
	case s.IsCooling && s.IsHeating:
		return "COOLING+HEATING"
	case s.IsCooling:
		return StateCooling
	case s.IsHeating:
		return StateHeating
	default:
		return StateStandby
	}
}
