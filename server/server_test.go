package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vanderwood/midgard/testutil"
)

func TestHealthz(t *testing.T) {
	mux := NewMux(nil, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rec.Code)
	}
	if rec.Header().Get("X-Correlation-ID") == "" {
		t.Error("missing correlation id header")
	}
}

func TestCorrelationIDReused(t *testing.T) {
	mux := NewMux(nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Correlation-ID", "corr-123")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Correlation-ID"); got != "corr-123" {
		t.Errorf("correlation id: got %q, want corr-123", got)
	}
}

func TestStatusEndpoint(t *testing.T) {
	database := testutil.SetupTestDB(t)
	if _, err := database.Exec(`INSERT INTO channels (name) VALUES ('somechannel')`); err != nil {
		t.Fatalf("seed: %v", err)
	}

	mux := NewMux(database, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	var out []struct {
		Channel     string `json:"channel"`
		SessionLive bool   `json:"session_live"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0].Channel != "somechannel" || out[0].SessionLive {
		t.Errorf("got %+v", out)
	}
}

func TestReadyz(t *testing.T) {
	database := testutil.SetupTestDB(t)
	mux := NewMux(database, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rec.Code)
	}
}
