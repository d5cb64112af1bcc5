package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/travela2a/concierge/backend/internal/model/agent"
	"github.com/travela2a/concierge/backend/internal/service/orchestrator"
	"github.com/travela2a/concierge/backend/internal/service/session"
	"github.com/travela2a/concierge/backend/internal/service/turn"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	reg, err := agent.NewRegistry(agent.Seed())
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	store := session.NewStore()
	orch := orchestrator.New(store, reg, nil, orchestrator.Config{})
	hub := turn.NewHub(orch, turn.Messages{}, time.Minute, nil)
	t.Cleanup(hub.Shutdown)

	return NewRouter(Deps{
		Agents:   reg,
		Querier:  orch,
		Store:    store,
		Hub:      hub,
		Greeting: "hello",
	})
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/healthz", "/api/health"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))

		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, resp.Code)
		}
		if got := strings.TrimSpace(resp.Body.String()); got != `{"status":"ok"}` {
			t.Fatalf("%s: unexpected body %s", path, got)
		}
	}
}

func TestRoutesMounted(t *testing.T) {
	router := newTestRouter(t)

	cases := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/api/agents", http.StatusOK},
		{http.MethodPost, "/api/session", http.StatusCreated},
		{http.MethodGet, "/api/sessions/unknown", http.StatusNotFound},
		{http.MethodGet, "/api/stream/s1", http.StatusBadRequest},
		{http.MethodGet, "/api/ws/s1", http.StatusBadRequest}, // not a websocket handshake
	}
	for _, tc := range cases {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(tc.method, tc.path, nil))
		if resp.Code != tc.status {
			t.Fatalf("%s %s: expected %d, got %d", tc.method, tc.path, tc.status, resp.Code)
		}
	}
}

func TestDirectQueryWithoutModel(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/agents/travel/query", strings.NewReader(`{"message":"hi"}`))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req.WithContext(context.Background()))

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}
