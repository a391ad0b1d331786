package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/anicoll/smartbuilding/internal/pkg/metrics"
	"github.com/anicoll/smartbuilding/internal/pkg/model"
)

type store interface {
	CreateAlert(ctx context.Context, a *model.BuildingAlert) error
	FirstActiveCamera(ctx context.Context, zoneID int64) (*model.ZoneCamera, error)
	AttachRecording(ctx context.Context, alertID, cameraID int64, path string) error
}

// Service persists the alerts raised by Evaluate and binds them to a zone camera.
type Service struct {
	store  store
	logger *zap.Logger
	now    func() time.Time
}

func NewService(store store) *Service {
	return &Service{
		store:  store,
		logger: zap.L(),
		now:    time.Now,
	}
}

// Check evaluates the value against the zone and returns the number of alerts created.
// Failing to bind a camera is logged and does not fail the alert.
func (s *Service) Check(ctx context.Context, zone model.Zone, sensorType model.SensorType, value *float64) (int, error) {
	created := 0
	for _, a := range Evaluate(zone, sensorType, value) {
		if err := s.store.CreateAlert(ctx, &a); err != nil {
			return created, fmt.Errorf("create alert for zone %d: %w", zone.ID, err)
		}
		created++
		metrics.RecordAlert(a.Severity.String())
		s.logger.Info("building alert raised",
			zap.Int64("alert_id", a.ID),
			zap.Int64("zone_id", zone.ID),
			zap.String("severity", a.Severity.String()),
			zap.String("title", a.Title),
		)

		if err := s.attachCamera(ctx, &a); err != nil {
			s.logger.Warn("failed to attach camera to alert", zap.Int64("alert_id", a.ID), zap.Error(err))
		}
	}
	return created, nil
}

func (s *Service) attachCamera(ctx context.Context, a *model.BuildingAlert) error {
	cam, err := s.store.FirstActiveCamera(ctx, a.ZoneID)
	if err != nil {
		return err
	}
	if cam == nil {
		return nil
	}
	path := RecordingPath(*cam, a.ID, s.now())
	if err := s.store.AttachRecording(ctx, a.ID, cam.ID, path); err != nil {
		return err
	}
	a.CameraID = &cam.ID
	a.RecordingPath = path
	return nil
}

// RecordingPath is where the recording of an alert is stored.
func RecordingPath(cam model.ZoneCamera, alertID int64, at time.Time) string {
	media := cam.MediaPath
	if media == "" {
		media = slug.Make(cam.Name)
	}
	return fmt.Sprintf("/recordings/%s/%d_%s.mp4", media, alertID, at.Format("20060102_150405"))
}
