// Package api exposes the published snapshot to the host monitoring platform
// as read-only sensor state over HTTP. Read endpoints never trigger remote
// fetches; only the refresh endpoint starts a cycle.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"walletmon/internal/coordinator"
	"walletmon/internal/log"
)

// SnapshotSource is the read side of the coordinator.
type SnapshotSource interface {
	Snapshot() (coordinator.Snapshot, bool)
	State() coordinator.State
	Aggregates() []coordinator.Aggregate
}

// RefreshRunner triggers an on-demand cycle, shared with the scheduler so
// manual refreshes get the same notifier fan-out.
type RefreshRunner interface {
	RunCycle(ctx context.Context) (coordinator.Snapshot, error)
}

// Server serves the sensor API.
type Server struct {
	source         SnapshotSource
	runner         RefreshRunner
	metricsHandler http.Handler
}

// NewServer creates the sensor API server. metricsHandler may be nil to
// disable the /metrics endpoint.
func NewServer(source SnapshotSource, runner RefreshRunner, metricsHandler http.Handler) *Server {
	return &Server{
		source:         source,
		runner:         runner,
		metricsHandler: metricsHandler,
	}
}

// Router builds the chi router for the server.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/api/v1/snapshot", s.handleSnapshot)
	r.Get("/api/v1/sensors", s.handleSensors)
	r.Post("/api/v1/refresh", s.handleRefresh)
	if s.metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", s.metricsHandler)
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"state":  s.source.State().String(),
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.source.Snapshot()
	if !ok {
		writeError(w, http.StatusNotFound, "no snapshot published yet")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// sensorPayload mirrors the host platform's sensor shape: a primary state
// value plus an attribute map for diagnostics.
type sensorPayload struct {
	Name       string         `json:"name"`
	State      any            `json:"state"`
	Unit       string         `json:"unit,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

func (s *Server) handleSensors(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.source.Snapshot()
	if !ok {
		writeError(w, http.StatusNotFound, "no snapshot published yet")
		return
	}

	var lastError any
	if snap.LastError != "" {
		lastError = snap.LastError
	}

	sensors := []sensorPayload{
		{
			Name:  "transactions",
			State: snap.TotalTransactions,
			Attributes: map[string]any{
				"total_transactions": snap.TotalTransactions,
				"account_count":      snap.ActiveAccountCount,
				"active_account_ids": snap.ActiveAccountIDs,
				"requests_made":      snap.RequestsMade,
				"updated_at":         snap.UpdatedAt.Format(time.RFC3339),
				"last_error":         lastError,
				"transactions":       snap.Transactions,
			},
		},
	}

	for _, agg := range s.source.Aggregates() {
		sensors = append(sensors, sensorPayload{
			Name:  agg.Name,
			State: snap.Aggregates[agg.Name],
			Unit:  agg.Unit,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"sensors": sensors})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := s.runner.RunCycle(r.Context())
	if err != nil {
		if errors.Is(err, coordinator.ErrReauthRequired) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response",
			log.FieldError, err,
			log.FieldComponent, log.ComponentAPI)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
