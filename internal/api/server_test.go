package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"walletmon/internal/coordinator"
	"walletmon/internal/wallet"
)

type fakeSource struct {
	snap  coordinator.Snapshot
	ok    bool
	state coordinator.State
	aggs  []coordinator.Aggregate
}

func (f *fakeSource) Snapshot() (coordinator.Snapshot, bool) { return f.snap, f.ok }
func (f *fakeSource) State() coordinator.State               { return f.state }
func (f *fakeSource) Aggregates() []coordinator.Aggregate    { return f.aggs }

type fakeRunner struct {
	snap  coordinator.Snapshot
	err   error
	calls int
}

func (f *fakeRunner) RunCycle(ctx context.Context) (coordinator.Snapshot, error) {
	f.calls++
	return f.snap, f.err
}

func publishedSource() *fakeSource {
	return &fakeSource{
		ok:    true,
		state: coordinator.StatePublished,
		aggs: []coordinator.Aggregate{
			{Name: "spent_pln_7d", WindowDays: 7, Unit: "PLN"},
		},
		snap: coordinator.Snapshot{
			TotalTransactions:  2,
			Transactions:       []wallet.Record{{ID: "r1"}, {ID: "r2"}},
			ActiveAccountCount: 1,
			ActiveAccountIDs:   []string{"a1"},
			RequestsMade:       3,
			Aggregates:         map[string]float64{"spent_pln_7d": 50},
			UpdatedAt:          time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
		},
	}
}

func doRequest(t *testing.T, srv *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv := NewServer(publishedSource(), &fakeRunner{}, nil)
	rec := doRequest(t, srv, http.MethodGet, "/healthz")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["state"] != "published" {
		t.Errorf("expected published state, got %q", body["state"])
	}
}

func TestGetSnapshot(t *testing.T) {
	srv := NewServer(publishedSource(), &fakeRunner{}, nil)
	rec := doRequest(t, srv, http.MethodGet, "/api/v1/snapshot")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var snap coordinator.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if snap.TotalTransactions != 2 || snap.RequestsMade != 3 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestGetSnapshot_NonePublished(t *testing.T) {
	srv := NewServer(&fakeSource{}, &fakeRunner{}, nil)
	rec := doRequest(t, srv, http.MethodGet, "/api/v1/snapshot")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before first publish, got %d", rec.Code)
	}
}

func TestGetSensors(t *testing.T) {
	source := publishedSource()
	runner := &fakeRunner{}
	srv := NewServer(source, runner, nil)
	rec := doRequest(t, srv, http.MethodGet, "/api/v1/sensors")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Sensors []struct {
			Name       string         `json:"name"`
			State      float64        `json:"state"`
			Unit       string         `json:"unit"`
			Attributes map[string]any `json:"attributes"`
		} `json:"sensors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(body.Sensors) != 2 {
		t.Fatalf("expected 2 sensors, got %d", len(body.Sensors))
	}

	tx := body.Sensors[0]
	if tx.Name != "transactions" || tx.State != 2 {
		t.Errorf("unexpected transactions sensor %+v", tx)
	}
	if tx.Attributes["updated_at"] != "2025-06-15T12:00:00Z" {
		t.Errorf("unexpected updated_at %v", tx.Attributes["updated_at"])
	}
	if tx.Attributes["last_error"] != nil {
		t.Errorf("expected null last_error, got %v", tx.Attributes["last_error"])
	}

	agg := body.Sensors[1]
	if agg.Name != "spent_pln_7d" || agg.State != 50 || agg.Unit != "PLN" {
		t.Errorf("unexpected aggregate sensor %+v", agg)
	}

	// Read endpoints never trigger a refresh.
	if runner.calls != 0 {
		t.Errorf("sensor read triggered %d refreshes", runner.calls)
	}
}

func TestPostRefresh(t *testing.T) {
	runner := &fakeRunner{snap: coordinator.Snapshot{TotalTransactions: 5}}
	srv := NewServer(publishedSource(), runner, nil)
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/refresh")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if runner.calls != 1 {
		t.Errorf("expected 1 refresh call, got %d", runner.calls)
	}
}

func TestPostRefresh_ReauthRequired(t *testing.T) {
	runner := &fakeRunner{err: errors.Join(coordinator.ErrReauthRequired, &wallet.AuthError{StatusCode: 401})}
	srv := NewServer(publishedSource(), runner, nil)
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/refresh")

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 on reauth condition, got %d", rec.Code)
	}
}

func TestPostRefresh_TransientFailure(t *testing.T) {
	runner := &fakeRunner{err: &wallet.TransportError{StatusCode: 503}}
	srv := NewServer(publishedSource(), runner, nil)
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/refresh")

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 on transient failure, got %d", rec.Code)
	}
}

func TestMetricsEndpointDisabledWhenNil(t *testing.T) {
	srv := NewServer(publishedSource(), &fakeRunner{}, nil)
	rec := doRequest(t, srv, http.MethodGet, "/metrics")

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 when metrics disabled, got %d", rec.Code)
	}
}

func TestMetricsEndpointEnabled(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := NewServer(publishedSource(), &fakeRunner{}, handler)
	rec := doRequest(t, srv, http.MethodGet, "/metrics")

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 from metrics handler, got %d", rec.Code)
	}
}
