package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/anicoll/smartbuilding/internal/pkg/database"
	"github.com/anicoll/smartbuilding/internal/pkg/identity"
	"github.com/anicoll/smartbuilding/internal/pkg/metrics"
	"github.com/anicoll/smartbuilding/internal/pkg/model"
	"github.com/anicoll/smartbuilding/internal/pkg/publisher"
)

// ErrMalformedInput is returned for payloads that are not a JSON object with a device_id.
var ErrMalformedInput = errors.New("malformed input")

type resolver interface {
	Resolve(ctx context.Context, rawDeviceID string) (model.Device, error)
}

type store interface {
	InsertReading(ctx context.Context, r model.Reading) (database.WriteResult, error)
	ActiveBinding(ctx context.Context, deviceID int64) (*model.ZoneSensorBinding, error)
	UpdateBindingReading(ctx context.Context, b *model.ZoneSensorBinding) error
}

type views interface {
	Publish(ctx context.Context, r model.Reading) []publisher.Result
}

type alerter interface {
	Check(ctx context.Context, zone model.Zone, sensorType model.SensorType, value *float64) (int, error)
}

type regulator interface {
	Regulate(ctx context.Context, zone model.Zone) (bool, error)
}

// StageResult is the outcome of one stage. Target names the view for StageViews results.
type StageResult struct {
	Stage   Stage
	Target  string
	Outcome Outcome
	Err     error
}

// Report describes what happened to one payload.
type Report struct {
	Stages      []StageResult
	Reading     *model.Reading
	Device      *model.Device
	Alerts      int
	HVACApplied bool
}

// Result returns the first result recorded for the stage.
func (r *Report) Result(stage Stage) (StageResult, bool) {
	for _, s := range r.Stages {
		if s.Stage == stage {
			return s, true
		}
	}
	return StageResult{}, false
}

func (r *Report) add(res StageResult) {
	r.Stages = append(r.Stages, res)
	metrics.RecordStage(string(res.Stage), string(res.Outcome))
}

func (r *Report) gated(stage Stage) bool {
	for _, s := range r.Stages {
		if s.Outcome == OutcomeFailed && slices.Contains(policyFor(s.Stage).Gates, stage) {
			return true
		}
	}
	return false
}

// Processor turns one raw payload into a durable reading, refreshed views and zone side effects.
type Processor struct {
	resolver resolver
	store    store
	views    views
	alerts   alerter
	hvac     regulator
	logger   *zap.Logger
	now      func() time.Time
}

func New(resolver resolver, store store, views views, alerts alerter, hvac regulator) *Processor {
	return &Processor{
		resolver: resolver,
		store:    store,
		views:    views,
		alerts:   alerts,
		hvac:     hvac,
		logger:   zap.L(),
		now:      time.Now,
	}
}

// Handle processes a payload and only reports failures that aborted it.
// It matches the stream consumer handler signature.
func (p *Processor) Handle(ctx context.Context, payload []byte) error {
	_, err := p.Process(ctx, payload)
	return err
}

// Process runs every stage on the payload. The returned error is non-nil only when a
// stage aborted the message; isolated failures are recorded in the report.
func (p *Processor) Process(ctx context.Context, payload []byte) (*Report, error) {
	defer metrics.ObserveProcessing(time.Now())
	report := &Report{}

	var msg model.EdgeMessage
	if err := p.run(ctx, report, StageDecode, func(context.Context) (Outcome, error) {
		return OutcomeOK, decode(payload, &msg)
	}); err != nil {
		p.logger.Warn("skipping invalid payload", zap.ByteString("payload", payload), zap.Error(err))
		return report, err
	}

	rawID := identity.Token(msg.DeviceID)
	reading := model.Reading{
		DeviceID:    identity.NumericID(msg.DeviceID),
		Temperature: msg.Temperature,
		Humidity:    msg.Humidity,
		Timestamp:   p.timestamp(msg.Timestamp),
	}
	report.Reading = &reading

	var device model.Device
	if err := p.run(ctx, report, StageIdentity, func(ctx context.Context) (Outcome, error) {
		var err error
		device, err = p.resolver.Resolve(ctx, rawID)
		return OutcomeOK, err
	}); err != nil {
		return report, err
	}
	report.Device = &device

	if err := p.run(ctx, report, StageDurable, func(ctx context.Context) (Outcome, error) {
		res, err := p.store.InsertReading(ctx, reading)
		if err != nil {
			return OutcomeFailed, err
		}
		if res == database.Duplicate {
			p.logger.Debug("duplicate reading", zap.Int64("device_id", reading.DeviceID), zap.Time("timestamp", reading.Timestamp))
			return OutcomeDuplicate, nil
		}
		return OutcomeInserted, nil
	}); err != nil {
		return report, err
	}

	if err := p.publishViews(ctx, report, reading); err != nil {
		return report, err
	}

	if err := p.run(ctx, report, StageCorrelation, func(ctx context.Context) (Outcome, error) {
		return p.correlate(ctx, report, device, reading)
	}); err != nil {
		return report, err
	}
	return report, nil
}

// run executes a stage under its policy and returns an error only when processing must stop.
func (p *Processor) run(ctx context.Context, report *Report, stage Stage, fn func(context.Context) (Outcome, error)) error {
	pol := policyFor(stage)
	if report.gated(stage) {
		report.add(StageResult{Stage: stage, Outcome: OutcomeSkipped})
		return nil
	}

	var (
		outcome Outcome
		err     error
	)
	for attempt := 0; attempt <= pol.Retries; attempt++ {
		outcome, err = fn(ctx)
		if err == nil {
			break
		}
	}
	if err == nil {
		report.add(StageResult{Stage: stage, Outcome: outcome})
		return nil
	}

	report.add(StageResult{Stage: stage, Outcome: OutcomeFailed, Err: err})
	if !pol.Isolate {
		return fmt.Errorf("%s: %w", stage, err)
	}
	p.logger.Warn("stage failed", zap.String("stage", string(stage)), zap.Error(err))
	if pol.Escalate {
		return fmt.Errorf("%s: %w", stage, err)
	}
	return nil
}

func (p *Processor) publishViews(ctx context.Context, report *Report, reading model.Reading) error {
	if report.gated(StageViews) {
		report.add(StageResult{Stage: StageViews, Outcome: OutcomeSkipped})
		return nil
	}
	pol := policyFor(StageViews)
	var firstErr error
	for _, res := range p.views.Publish(ctx, reading) {
		if res.Err != nil {
			report.add(StageResult{Stage: StageViews, Target: res.Name, Outcome: OutcomeFailed, Err: res.Err})
			if firstErr == nil {
				firstErr = res.Err
			}
			continue
		}
		report.add(StageResult{Stage: StageViews, Target: res.Name, Outcome: OutcomeOK})
	}
	if firstErr != nil && (!pol.Isolate || pol.Escalate) {
		return fmt.Errorf("%s: %w", StageViews, firstErr)
	}
	return nil
}

func (p *Processor) correlate(ctx context.Context, report *Report, device model.Device, reading model.Reading) (Outcome, error) {
	binding, err := p.store.ActiveBinding(ctx, device.ID)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("find zone binding: %w", err)
	}
	if binding == nil {
		return OutcomeSkipped, nil
	}

	if value, ok := reading.ValueFor(binding.SensorType); ok {
		binding.LatestValue = value
	}
	binding.LatestValueTime = &reading.Timestamp
	if err := p.store.UpdateBindingReading(ctx, binding); err != nil {
		return OutcomeFailed, fmt.Errorf("update zone sensor %d: %w", binding.ID, err)
	}
	p.logger.Debug("updated zone sensor",
		zap.String("zone", binding.Zone.Name),
		zap.String("sensor_type", binding.SensorType.String()),
	)

	value, _ := reading.ValueFor(binding.SensorType)
	report.Alerts, err = p.alerts.Check(ctx, binding.Zone, binding.SensorType, value)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("check thresholds: %w", err)
	}

	report.HVACApplied, err = p.hvac.Regulate(ctx, binding.Zone)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("regulate hvac: %w", err)
	}
	return OutcomeOK, nil
}

func (p *Processor) timestamp(raw *string) time.Time {
	if raw != nil {
		if ts, ok := parseTimestamp(*raw); ok {
			return ts.UTC()
		}
		p.logger.Debug("unparseable timestamp, using now", zap.String("timestamp", *raw))
	}
	return p.now().UTC()
}

func decode(payload []byte, msg *model.EdgeMessage) error {
	if err := json.Unmarshal(payload, msg); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	id := bytes.TrimSpace(msg.DeviceID)
	if len(id) == 0 || bytes.Equal(id, []byte("null")) {
		return fmt.Errorf("%w: missing device_id", ErrMalformedInput)
	}
	return nil
}
