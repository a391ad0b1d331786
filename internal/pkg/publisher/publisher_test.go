package publisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/anicoll/smartbuilding/internal/pkg/model"
)

type MockPublisher struct {
	PublishFunc func(ctx context.Context, r model.Reading) error
	calls       int
}

func (m *MockPublisher) Publish(ctx context.Context, r model.Reading) error {
	m.calls++
	return m.PublishFunc(ctx, r)
}

func newTestRegistry(t *testing.T) *Registry {
	r := NewRegistry()
	r.logger = zaptest.NewLogger(t)
	return r
}

func TestRegister_Duplicate(t *testing.T) {
	r := newTestRegistry(t)
	p := &MockPublisher{}

	require.NoError(t, r.Register("cache", p))
	assert.ErrorIs(t, r.Register("cache", p), errAlreadyRegistered)
}

func TestPublish_FailureIsIsolated(t *testing.T) {
	r := newTestRegistry(t)
	cacheErr := errors.New("redis down")
	cache := &MockPublisher{PublishFunc: func(context.Context, model.Reading) error { return cacheErr }}
	search := &MockPublisher{PublishFunc: func(context.Context, model.Reading) error { return nil }}
	require.NoError(t, r.Register("cache", cache))
	require.NoError(t, r.Register("search", search))

	results := r.Publish(context.Background(), model.Reading{DeviceID: 1, Timestamp: time.Now()})

	require.Len(t, results, 2)
	assert.Equal(t, "cache", results[0].Name)
	assert.ErrorIs(t, results[0].Err, cacheErr)
	assert.Equal(t, "search", results[1].Name)
	assert.NoError(t, results[1].Err)
	assert.Equal(t, 1, search.calls)
}

func TestPublish_Empty(t *testing.T) {
	assert.Empty(t, newTestRegistry(t).Publish(context.Background(), model.Reading{}))
}
