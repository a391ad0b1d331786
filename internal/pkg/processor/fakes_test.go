package processor

import (
	"context"
	"sync"

	"github.com/anicoll/smartbuilding/internal/pkg/database"
	"github.com/anicoll/smartbuilding/internal/pkg/model"
)

type readingKey struct {
	deviceID int64
	unix     int64
}

// memoryStore is an in-memory stand-in for the durable store covering identity,
// readings, zones, alerts and HVAC.
type memoryStore struct {
	mu sync.Mutex

	owners  map[string]model.Owner
	devices map[string]model.Device
	nextID  int64

	readings   map[readingKey]model.Reading
	insertErr  error
	bindingErr error

	bindings map[int64]*model.ZoneSensorBinding
	hvac     map[int64]*model.HVACState
	cameras  map[int64]*model.ZoneCamera
	alerts   []model.BuildingAlert
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		owners:   map[string]model.Owner{},
		devices:  map[string]model.Device{},
		readings: map[readingKey]model.Reading{},
		bindings: map[int64]*model.ZoneSensorBinding{},
		hvac:     map[int64]*model.HVACState{},
		cameras:  map[int64]*model.ZoneCamera{},
	}
}

func (m *memoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memoryStore) GetOrCreateOwner(_ context.Context, username string) (model.Owner, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.owners[username]; ok {
		return o, false, nil
	}
	o := model.Owner{ID: m.id(), Username: username}
	m.owners[username] = o
	return o, true, nil
}

func (m *memoryStore) GetOrCreateDevice(_ context.Context, name string, ownerID int64) (model.Device, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.devices[name]; ok {
		return d, false, nil
	}
	d := model.Device{ID: m.id(), Name: name, OwnerID: ownerID}
	m.devices[name] = d
	return d, true, nil
}

func (m *memoryStore) InsertReading(_ context.Context, r model.Reading) (database.WriteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	k := readingKey{deviceID: r.DeviceID, unix: r.Timestamp.UnixNano()}
	if _, ok := m.readings[k]; ok {
		return database.Duplicate, nil
	}
	m.readings[k] = r
	return database.Inserted, nil
}

func (m *memoryStore) ActiveBinding(_ context.Context, deviceID int64) (*model.ZoneSensorBinding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bindingErr != nil {
		return nil, m.bindingErr
	}
	b, ok := m.bindings[deviceID]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (m *memoryStore) UpdateBindingReading(_ context.Context, b *model.ZoneSensorBinding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.bindings[b.DeviceID] = &cp
	return nil
}

func (m *memoryStore) ActiveTemperatureValues(_ context.Context, zoneID int64) ([]*float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var values []*float64
	for _, b := range m.bindings {
		if b.Zone.ID == zoneID && b.SensorType == model.SensorTemperature && b.Active {
			values = append(values, b.LatestValue)
		}
	}
	return values, nil
}

func (m *memoryStore) HVACState(_ context.Context, zoneID int64) (*model.HVACState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.hvac[zoneID]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *memoryStore) SaveHVACState(_ context.Context, s *model.HVACState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.hvac[s.ZoneID] = &cp
	return nil
}

func (m *memoryStore) CreateAlert(_ context.Context, a *model.BuildingAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = int64(len(m.alerts) + 1)
	m.alerts = append(m.alerts, *a)
	return nil
}

func (m *memoryStore) FirstActiveCamera(_ context.Context, zoneID int64) (*model.ZoneCamera, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cameras[zoneID], nil
}

func (m *memoryStore) AttachRecording(_ context.Context, alertID, cameraID int64, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := &m.alerts[alertID-1]
	a.CameraID = &cameraID
	a.RecordingPath = path
	return nil
}

type MockView struct {
	err   error
	calls int
}

func (v *MockView) Publish(context.Context, model.Reading) error {
	v.calls++
	return v.err
}
