package identity

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/anicoll/smartbuilding/internal/pkg/model"
)

// DefaultOwner is the username every auto-registered device is bound to.
const DefaultOwner = "default_user"

type store interface {
	GetOrCreateOwner(ctx context.Context, username string) (model.Owner, bool, error)
	GetOrCreateDevice(ctx context.Context, name string, ownerID int64) (model.Device, bool, error)
}

type Resolver struct {
	store  store
	logger *zap.Logger
}

func New(store store) *Resolver {
	return &Resolver{
		store:  store,
		logger: zap.L(),
	}
}

// DisplayName derives the device label from the raw id token of an edge message.
// Devices are looked up by this label, so two tokens rendering the same text
// (42 and "42") resolve to the same device.
func DisplayName(rawDeviceID string) string {
	return fmt.Sprintf("Device %s", rawDeviceID)
}

// Resolve returns the device for a raw id, creating the default owner and the device on first sight.
func (r *Resolver) Resolve(ctx context.Context, rawDeviceID string) (model.Device, error) {
	owner, created, err := r.store.GetOrCreateOwner(ctx, DefaultOwner)
	if err != nil {
		return model.Device{}, fmt.Errorf("resolve owner: %w", err)
	}
	if created {
		r.logger.Info("created default owner", zap.Int64("owner_id", owner.ID), zap.String("username", owner.Username))
	}

	name := DisplayName(rawDeviceID)
	device, created, err := r.store.GetOrCreateDevice(ctx, name, owner.ID)
	if err != nil {
		return model.Device{}, fmt.Errorf("resolve device %q: %w", name, err)
	}
	if created {
		r.logger.Info("registered device", zap.Int64("device_id", device.ID), zap.String("name", device.Name))
	}
	return device, nil
}
