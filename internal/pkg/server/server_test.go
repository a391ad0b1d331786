package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/anicoll/smartbuilding/internal/pkg/cache"
	"github.com/anicoll/smartbuilding/internal/pkg/model"
	"github.com/anicoll/smartbuilding/internal/pkg/streams"
)

type MockStarter struct {
	calls int
}

func (m *MockStarter) EnsureStarted() streams.Status {
	m.calls++
	if m.calls == 1 {
		return streams.StatusStarted
	}
	return streams.StatusAlreadyStarted
}

type MockLatest struct {
	LatestFunc    func(ctx context.Context, deviceID int64) (*model.LatestReading, error)
	AllLatestFunc func(ctx context.Context) ([]model.LatestReading, error)
	ClearFunc     func(ctx context.Context, deviceID int64) error
}

func (m *MockLatest) Clear(ctx context.Context, deviceID int64) error {
	return m.ClearFunc(ctx, deviceID)
}

type MockPinger struct {
	err error
}

func (m *MockPinger) Ping(context.Context) error { return m.err }

func (m *MockLatest) Latest(ctx context.Context, deviceID int64) (*model.LatestReading, error) {
	return m.LatestFunc(ctx, deviceID)
}

func (m *MockLatest) AllLatest(ctx context.Context) ([]model.LatestReading, error) {
	return m.AllLatestFunc(ctx)
}

type MockStore struct {
	PingFunc        func(ctx context.Context) error
	GetReadingsFunc func(ctx context.Context, deviceID int64, from, to *time.Time) ([]model.Reading, error)
	HVACStateFunc   func(ctx context.Context, zoneID int64) (*model.HVACState, error)
}

func (m *MockStore) Ping(ctx context.Context) error { return m.PingFunc(ctx) }

func (m *MockStore) GetReadings(ctx context.Context, deviceID int64, from, to *time.Time) ([]model.Reading, error) {
	return m.GetReadingsFunc(ctx, deviceID, from, to)
}

func (m *MockStore) HVACState(ctx context.Context, zoneID int64) (*model.HVACState, error) {
	return m.HVACStateFunc(ctx, zoneID)
}

func newTestServer(t *testing.T, starter streamStarter, latest latestReader, db store) http.Handler {
	s := New(starter, latest, db)
	s.logger = zaptest.NewLogger(t)
	return s.Handler()
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestPostStreamsStart(t *testing.T) {
	h := newTestServer(t, &MockStarter{}, &MockLatest{}, &MockStore{})

	rec := do(t, h, http.MethodPost, "/streams/start")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"started"}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/streams/start")
	assert.JSONEq(t, `{"status":"already_started"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/streams/start")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGetHealth(t *testing.T) {
	tests := map[string]struct {
		pingErr   error
		cacheErr  error
		searchErr error
		status    int
		want      string
	}{
		"healthy": {
			status: http.StatusOK,
			want:   `{"status":"ok","checks":{"database":"ok","cache":"ok","search":"ok"}}`,
		},
		"db failed": {
			pingErr: errors.New("down"),
			status:  http.StatusServiceUnavailable,
			want:    `{"status":"unavailable","checks":{"database":"down"}}`,
		},
		"search degraded": {
			searchErr: errors.New("status 503"),
			status:    http.StatusOK,
			want:      `{"status":"degraded","checks":{"database":"ok","cache":"ok","search":"status 503"}}`,
		},
		"cache degraded": {
			cacheErr: errors.New("connection refused"),
			status:   http.StatusOK,
			want:     `{"status":"degraded","checks":{"database":"ok","cache":"connection refused","search":"ok"}}`,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			db := &MockStore{PingFunc: func(context.Context) error { return tt.pingErr }}
			s := New(&MockStarter{}, &MockLatest{}, db).
				AddCheck("cache", &MockPinger{err: tt.cacheErr}).
				AddCheck("search", &MockPinger{err: tt.searchErr})
			s.logger = zaptest.NewLogger(t)

			rec := do(t, s.Handler(), http.MethodGet, "/healthz")
			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, tt.want, rec.Body.String())
		})
	}
}

func TestDeleteLatest(t *testing.T) {
	var cleared []int64
	latest := &MockLatest{ClearFunc: func(_ context.Context, deviceID int64) error {
		if deviceID == 9 {
			return errors.New("redis down")
		}
		cleared = append(cleared, deviceID)
		return nil
	}}
	h := newTestServer(t, &MockStarter{}, latest, &MockStore{})

	rec := do(t, h, http.MethodDelete, "/devices/5/latest")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []int64{5}, cleared)

	rec = do(t, h, http.MethodDelete, "/devices/9/latest")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetLatest(t *testing.T) {
	v := 21.5
	latest := &MockLatest{
		LatestFunc: func(_ context.Context, deviceID int64) (*model.LatestReading, error) {
			if deviceID == 5 {
				return &model.LatestReading{
					Reading: model.Reading{DeviceID: 5, Temperature: &v, Timestamp: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
					Status:  model.StatusOnline,
				}, nil
			}
			return nil, cache.ErrCacheMiss
		},
	}
	h := newTestServer(t, &MockStarter{}, latest, &MockStore{})

	rec := do(t, h, http.MethodGet, "/devices/5/latest")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"device_id":5,"temperature":21.5,"humidity":null,"timestamp":"2024-05-01T10:00:00Z","status":"online"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/devices/6/latest")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"device_id":6,"status":"offline"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/devices/abc/latest")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAllLatest_Empty(t *testing.T) {
	latest := &MockLatest{AllLatestFunc: func(context.Context) ([]model.LatestReading, error) { return nil, nil }}
	rec := do(t, newTestServer(t, &MockStarter{}, latest, &MockStore{}), http.MethodGet, "/devices/latest")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestGetReadings(t *testing.T) {
	var gotFrom, gotTo *time.Time
	db := &MockStore{GetReadingsFunc: func(_ context.Context, deviceID int64, from, to *time.Time) ([]model.Reading, error) {
		assert.Equal(t, int64(3), deviceID)
		gotFrom, gotTo = from, to
		return []model.Reading{{DeviceID: 3, Timestamp: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}}, nil
	}}
	h := newTestServer(t, &MockStarter{}, &MockLatest{}, db)

	rec := do(t, h, http.MethodGet, "/devices/3/readings?from=2024-05-01T00:00:00Z")
	require.Equal(t, http.StatusOK, rec.Code)
	var readings []model.Reading
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &readings))
	assert.Len(t, readings, 1)
	require.NotNil(t, gotFrom)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), gotFrom.UTC())
	assert.Nil(t, gotTo)

	rec = do(t, h, http.MethodGet, "/devices/3/readings?to=yesterday")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetZoneHVAC(t *testing.T) {
	current := 26.0
	db := &MockStore{HVACStateFunc: func(_ context.Context, zoneID int64) (*model.HVACState, error) {
		if zoneID != 2 {
			return nil, nil
		}
		return &model.HVACState{ID: 1, ZoneID: 2, Mode: model.HVACModeAuto, CurrentTemperature: &current, SetTemperature: 24, FanSpeed: 40, IsCooling: true}, nil
	}}
	h := newTestServer(t, &MockStarter{}, &MockLatest{}, db)

	rec := do(t, h, http.MethodGet, "/zones/2/hvac")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Cooling", body["status"])
	assert.Equal(t, float64(40), body["fan_speed"])
	assert.Equal(t, "AUTO", body["mode"])

	rec = do(t, h, http.MethodGet, "/zones/9/hvac")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoggingMiddleware_EchoesOrigin(t *testing.T) {
	h := newTestServer(t, &MockStarter{}, &MockLatest{}, &MockStore{PingFunc: func(context.Context) error { return nil }})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "http://dashboard.local", rec.Header().Get("Access-Control-Allow-Origin"))
}
