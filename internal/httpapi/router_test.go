package httpapi

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prepvoice/interviewai/internal/session"
)

func testHandler(t *testing.T, registry *session.Registry) http.Handler {
	t.Helper()
	return NewRouter(RouterConfig{}, log.New(io.Discard, "", 0), nil, nil, registry)
}

func TestHealthz(t *testing.T) {
	h := testHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("body = %q, want %q", rec.Body.String(), "ok")
	}
}

func TestReadyz(t *testing.T) {
	registry := session.NewRegistry()
	h := testHandler(t, registry)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d before draining", rec.Code, http.StatusOK)
	}

	registry.StartDraining()

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d while draining", rec.Code, http.StatusServiceUnavailable)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "draining" {
		t.Errorf("status field = %v, want draining", body["status"])
	}
}

func TestCORSPreflight(t *testing.T) {
	h := testHandler(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/profiling/start", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestSessionWSRejectedWhileDraining(t *testing.T) {
	registry := session.NewRegistry()
	registry.StartDraining()

	h := NewRouter(RouterConfig{
		DeepgramAPIKey:  "dg-key",
		OpenAIAPIKey:    "oa-key",
		GoogleTTSAPIKey: "g-key",
	}, log.New(io.Discard, "", 0), nil, nil, registry)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestSessionWSRequiresAPIKeys(t *testing.T) {
	h := testHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d with no API keys", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestListSessionsWithoutStore(t *testing.T) {
	h := testHandler(t, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d without a store", rec.Code, http.StatusServiceUnavailable)
	}
}
