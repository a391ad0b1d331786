package publisher

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/anicoll/smartbuilding/internal/pkg/model"
)

var errAlreadyRegistered = errors.New("publisher already registered")

type publisher interface {
	// Publish refreshes the derived view with the reading.
	Publish(ctx context.Context, r model.Reading) error
}

// Result is the outcome of publishing to one target.
type Result struct {
	Name string
	Err  error
}

// Registry fans a reading out to every registered target. Targets are isolated from
// each other: a failing target is logged and the others still run.
type Registry struct {
	mu     sync.RWMutex
	names  []string
	byName map[string]publisher
	logger *zap.Logger
}

func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]publisher),
		logger: zap.L(),
	}
}

func (r *Registry) Register(name string, p publisher) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; ok {
		return errAlreadyRegistered
	}
	r.byName[name] = p
	r.names = append(r.names, name)
	return nil
}

// Publish writes the reading to every target in registration order.
func (r *Registry) Publish(ctx context.Context, reading model.Reading) []Result {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]Result, 0, len(r.names))
	for _, name := range r.names {
		err := r.byName[name].Publish(ctx, reading)
		results = append(results, Result{Name: name, Err: err})
		if err != nil {
			r.logger.Warn("failed to publish reading", zap.Error(err), zap.String("publisher", name), zap.Int64("device_id", reading.DeviceID))
			continue
		}
		r.logger.Debug("published reading", zap.String("publisher", name), zap.Int64("device_id", reading.DeviceID))
	}
	return results
}
