package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"aqualink/internal/models"
	"aqualink/internal/view"
)

// Control is the slice of the backend client the server relays for
// operator actions: alarm-threshold updates, the global alarm switch,
// and report export. Display clients never talk to the backend
// directly.
type Control interface {
	UpdateLimitByID(ctx context.Context, id string, value float64) error
	AlarmsEnabled(ctx context.Context) (bool, error)
	SetAlarmsEnabled(ctx context.Context, enabled bool) error
	ExcelRange(ctx context.Context, ids []string, start, end time.Time) ([]byte, error)
}

// Server exposes the orchestrator's UI contract to display clients:
// a JSON API for state and actions plus a WebSocket push channel.
type Server struct {
	orch    *view.Orchestrator
	control Control
	hub     *Hub
	logger  *slog.Logger
}

// New creates a server around an orchestrator. The hub is wired into
// the orchestrator's change callback so every state change is pushed.
// control may be nil when the deployment has no operator actions; the
// relay endpoints then answer 503.
func New(orch *view.Orchestrator, control Control, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		orch:    orch,
		control: control,
		hub:     NewHub(logger),
		logger:  logger,
	}
	orch.OnChange(func() {
		s.hub.Broadcast(orch.Snapshot())
	})
	return s
}

// Router builds the HTTP surface
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/view", s.handleView)
	r.Post("/view/station", s.handleSetStation)
	r.Post("/view/filters/toggle", s.handleToggleFilter)
	r.Post("/view/filters/clear", s.handleClearFilters)
	r.Post("/view/range", s.handleSetRange)
	r.Post("/view/refresh", s.handleRefresh)
	r.Post("/view/retry", s.handleRetry)

	r.Get("/series/{kpiID}", s.handleSeries)
	r.Get("/kpis", s.handleKPIs)

	r.Put("/limits", s.handleUpdateLimit)
	r.Get("/alarms", s.handleGetAlarms)
	r.Put("/alarms", s.handleSetAlarms)
	r.Get("/reports/excel-range", s.handleExcelRange)

	r.Get("/ws", s.hub.HandleWebSocket(s.orch.Snapshot))

	return r
}

// Start runs the HTTP server until ctx is cancelled
func (s *Server) Start(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
		s.hub.CloseAll()
	}()

	s.logger.Info("view server listening", slog.String("address", addr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

type errorBody struct {
	Error string `json:"error"`
}

// writeJSON encodes a payload with the standard headers
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.orch.Snapshot())
}

type stationRequest struct {
	Station string `json:"station"`
}

func (s *Server) handleSetStation(w http.ResponseWriter, r *http.Request) {
	var req stationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Station == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "station is required"})
		return
	}
	s.orch.SetStation(req.Station)
	writeJSON(w, http.StatusOK, s.orch.Snapshot())
}

type filterRequest struct {
	KPI string `json:"kpi"`
}

func (s *Server) handleToggleFilter(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.KPI == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "kpi is required"})
		return
	}
	s.orch.ToggleFilter(req.KPI)
	writeJSON(w, http.StatusOK, s.orch.Snapshot())
}

func (s *Server) handleClearFilters(w http.ResponseWriter, r *http.Request) {
	s.orch.ClearFilters()
	writeJSON(w, http.StatusOK, s.orch.Snapshot())
}

type rangeRequest struct {
	Minutes int `json:"minutes"`
}

func (s *Server) handleSetRange(w http.ResponseWriter, r *http.Request) {
	var req rangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "minutes is required"})
		return
	}
	if err := s.orch.SetTimeRange(req.Minutes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.orch.Snapshot())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.orch.Refresh()
	writeJSON(w, http.StatusOK, s.orch.Snapshot())
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	s.orch.RetryCatalog()
	writeJSON(w, http.StatusOK, s.orch.Snapshot())
}

// seriesResponse carries chart-ready points plus the density tier the
// renderer should use
type seriesResponse struct {
	KPI    string              `json:"kpi"`
	Tier   string              `json:"tier"`
	Points []models.ChartPoint `json:"points"`
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	kpiID := chi.URLParam(r, "kpiID")
	points, tier := s.orch.SeriesForKPI(kpiID)
	writeJSON(w, http.StatusOK, seriesResponse{
		KPI:    kpiID,
		Tier:   string(tier),
		Points: points,
	})
}

func (s *Server) handleKPIs(w http.ResponseWriter, r *http.Request) {
	station := r.URL.Query().Get("station")
	category := r.URL.Query().Get("category")
	if station == "" {
		writeJSON(w, http.StatusOK, s.orch.AllKPIs())
		return
	}
	writeJSON(w, http.StatusOK, s.orch.KPIs(station, category))
}

// requireControl answers 503 when no backend control is wired
func (s *Server) requireControl(w http.ResponseWriter) bool {
	if s.control == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "backend control not configured"})
		return false
	}
	return true
}

type limitRequest struct {
	KPI   string   `json:"kpi"`
	Value *float64 `json:"value"`
}

func (s *Server) handleUpdateLimit(w http.ResponseWriter, r *http.Request) {
	if !s.requireControl(w) {
		return
	}
	var req limitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.KPI == "" || req.Value == nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "kpi and value are required"})
		return
	}
	if err := s.control.UpdateLimitByID(r.Context(), req.KPI, *req.Value); err != nil {
		s.logger.Error("limit update relay failed", slog.Any("error", err))
		writeJSON(w, http.StatusBadGateway, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

type alarmsBody struct {
	AlarmsEnabled *bool `json:"alarms_enabled"`
}

func (s *Server) handleGetAlarms(w http.ResponseWriter, r *http.Request) {
	if !s.requireControl(w) {
		return
	}
	enabled, err := s.control.AlarmsEnabled(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"alarms_enabled": enabled})
}

func (s *Server) handleSetAlarms(w http.ResponseWriter, r *http.Request) {
	if !s.requireControl(w) {
		return
	}
	var req alarmsBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AlarmsEnabled == nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "alarms_enabled is required"})
		return
	}
	if err := s.control.SetAlarmsEnabled(r.Context(), *req.AlarmsEnabled); err != nil {
		writeJSON(w, http.StatusBadGateway, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"alarms_enabled": *req.AlarmsEnabled})
}

func (s *Server) handleExcelRange(w http.ResponseWriter, r *http.Request) {
	if !s.requireControl(w) {
		return
	}
	q := r.URL.Query()
	start, err := time.Parse(time.RFC3339, q.Get("start"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "start must be RFC3339"})
		return
	}
	end, err := time.Parse(time.RFC3339, q.Get("end"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "end must be RFC3339"})
		return
	}
	var ids []string
	if raw := q.Get("kpis"); raw != "" {
		ids = strings.Split(raw, ",")
	}

	blob, err := s.control.ExcelRange(r.Context(), ids, start, end)
	if err != nil {
		s.logger.Error("report relay failed", slog.Any("error", err))
		writeJSON(w, http.StatusBadGateway, errorBody{Error: err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="relatorio.xlsx"`)
	w.Write(blob)
}
