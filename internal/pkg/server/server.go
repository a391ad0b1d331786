package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/anicoll/smartbuilding/internal/pkg/cache"
	"github.com/anicoll/smartbuilding/internal/pkg/model"
	"github.com/anicoll/smartbuilding/internal/pkg/streams"
)

type streamStarter interface {
	EnsureStarted() streams.Status
}

type latestReader interface {
	Latest(ctx context.Context, deviceID int64) (*model.LatestReading, error)
	AllLatest(ctx context.Context) ([]model.LatestReading, error)
	Clear(ctx context.Context, deviceID int64) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

type check struct {
	name string
	view pinger
}

type store interface {
	Ping(ctx context.Context) error
	GetReadings(ctx context.Context, deviceID int64, from, to *time.Time) ([]model.Reading, error)
	HVACState(ctx context.Context, zoneID int64) (*model.HVACState, error)
}

var errBadRequest = errors.New("bad request")

type server struct {
	streams streamStarter
	latest  latestReader
	db      store
	checks  []check
	logger  *zap.Logger
}

func New(streams streamStarter, latest latestReader, db store) *server {
	return &server{
		streams: streams,
		latest:  latest,
		db:      db,
		logger:  zap.L(),
	}
}

// AddCheck registers a derived view that /healthz reports on.
// A failing view degrades the health report but does not fail it.
func (s *server) AddCheck(name string, view pinger) *server {
	s.checks = append(s.checks, check{name: name, view: view})
	return s
}

// Handler routes the operational endpoints.
func (s *server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(LoggingMiddleware)
	r.HandleFunc("/healthz", s.GetHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/streams/start", s.PostStreamsStart).Methods(http.MethodPost)
	r.HandleFunc("/devices/latest", s.GetAllLatest).Methods(http.MethodGet)
	r.HandleFunc("/devices/{deviceID:[0-9]+}/latest", s.GetLatest).Methods(http.MethodGet)
	r.HandleFunc("/devices/{deviceID:[0-9]+}/latest", s.DeleteLatest).Methods(http.MethodDelete)
	r.HandleFunc("/devices/{deviceID:[0-9]+}/readings", s.GetReadings).Methods(http.MethodGet)
	r.HandleFunc("/zones/{zoneID:[0-9]+}/hvac", s.GetZoneHVAC).Methods(http.MethodGet)
	return r
}

type healthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// GetHealth fails when the database is down and reports degraded when a derived view is.
func (s *server) GetHealth(w http.ResponseWriter, r *http.Request) {
	report := healthReport{Status: "ok", Checks: map[string]string{"database": "ok"}}
	if err := s.db.Ping(r.Context()); err != nil {
		s.logger.Warn("health check failed", zap.String("check", "database"), zap.Error(err))
		report.Status = "unavailable"
		report.Checks["database"] = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, report)
		return
	}
	for _, c := range s.checks {
		if err := c.view.Ping(r.Context()); err != nil {
			s.logger.Warn("health check failed", zap.String("check", c.name), zap.Error(err))
			report.Status = "degraded"
			report.Checks[c.name] = err.Error()
			continue
		}
		report.Checks[c.name] = "ok"
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *server) PostStreamsStart(w http.ResponseWriter, r *http.Request) {
	status := s.streams.EnsureStarted()
	writeJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

func (s *server) GetAllLatest(w http.ResponseWriter, r *http.Request) {
	all, err := s.latest.AllLatest(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	if all == nil {
		all = []model.LatestReading{}
	}
	writeJSON(w, http.StatusOK, all)
}

func (s *server) GetLatest(w http.ResponseWriter, r *http.Request) {
	deviceID, err := pathID(r, "deviceID")
	if err != nil {
		handleError(w, err)
		return
	}
	latest, err := s.latest.Latest(r.Context(), deviceID)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			writeJSON(w, http.StatusNotFound, map[string]any{"device_id": deviceID, "status": model.StatusOffline})
			return
		}
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, latest)
}

// DeleteLatest drops the cached reading of a device so it reports offline until it sends again.
func (s *server) DeleteLatest(w http.ResponseWriter, r *http.Request) {
	deviceID, err := pathID(r, "deviceID")
	if err != nil {
		handleError(w, err)
		return
	}
	if err := s.latest.Clear(r.Context(), deviceID); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) GetReadings(w http.ResponseWriter, r *http.Request) {
	deviceID, err := pathID(r, "deviceID")
	if err != nil {
		handleError(w, err)
		return
	}
	from, err := queryTime(r, "from")
	if err != nil {
		handleError(w, err)
		return
	}
	to, err := queryTime(r, "to")
	if err != nil {
		handleError(w, err)
		return
	}

	readings, err := s.db.GetReadings(r.Context(), deviceID, from, to)
	if err != nil {
		handleError(w, err)
		return
	}
	if readings == nil {
		readings = []model.Reading{}
	}
	writeJSON(w, http.StatusOK, readings)
}

type hvacSnapshot struct {
	*model.HVACState
	Status string `json:"status"`
}

func (s *server) GetZoneHVAC(w http.ResponseWriter, r *http.Request) {
	zoneID, err := pathID(r, "zoneID")
	if err != nil {
		handleError(w, err)
		return
	}
	state, err := s.db.HVACState(r.Context(), zoneID)
	if err != nil {
		handleError(w, err)
		return
	}
	if state == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "zone has no hvac"})
		return
	}

	status := "Standby"
	switch {
	case state.IsCooling:
		status = "Cooling"
	case state.IsHeating:
		status = "Heating"
	}
	writeJSON(w, http.StatusOK, hvacSnapshot{HVACState: state, Status: status})
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil {
		return 0, errors.Join(errBadRequest, err)
	}
	return id, nil
}

func queryTime(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, errors.Join(errBadRequest, err)
	}
	return &t, nil
}

func handleError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, errBadRequest) {
		status = http.StatusBadRequest
	}
	w.WriteHeader(status)
	w.Write([]byte(err.Error()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("failed to write response", zap.Error(err))
	}
}
