package board

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(newFakeStore())

	rr := doRequest(t, server, http.MethodGet, "/api/health", "")
	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	if ok, exists := decodeResponse(t, rr)["ok"]; !exists || ok != true {
		t.Errorf("expected ok=true, got %v", ok)
	}
}

func TestReadyEndpoint_Success(t *testing.T) {
	server := newTestServer(newFakeStore())

	rr := doRequest(t, server, http.MethodGet, "/api/ready", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	response := decodeResponse(t, rr)
	if status, exists := response["status"]; !exists || status != "ready" {
		t.Errorf("expected status=ready, got %v", status)
	}
	checks, exists := response["checks"].(map[string]any)
	if !exists {
		t.Fatalf("expected checks object, got %v", response["checks"])
	}
	dbCheck, exists := checks["database"].(map[string]any)
	if !exists {
		t.Fatalf("expected database check, got %v", checks["database"])
	}
	if dbStatus, exists := dbCheck["status"]; !exists || dbStatus != "ok" {
		t.Errorf("expected database status=ok, got %v", dbStatus)
	}
}

func TestReadyEndpoint_DatabaseFailure(t *testing.T) {
	fs := newFakeStore()
	fs.pingFn = func(context.Context) error {
		return errors.New("connection refused")
	}
	server := newTestServer(fs)

	rr := doRequest(t, server, http.MethodGet, "/api/ready", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}

	response := decodeResponse(t, rr)
	if status, exists := response["status"]; !exists || status != "not_ready" {
		t.Errorf("expected status=not_ready, got %v", status)
	}
	checks := response["checks"].(map[string]any)
	dbCheck := checks["database"].(map[string]any)
	if dbError, exists := dbCheck["error"]; !exists || dbError != "connection refused" {
		t.Errorf("expected database error='connection refused', got %v", dbError)
	}
}

func TestReadyEndpoint_CacheFailure(t *testing.T) {
	fs := newFakeStore()
	boardCache := &fakeCache{
		pingFn: func(context.Context) error {
			return errors.New("redis down")
		},
	}
	svc := newTestService(fs)
	svc.cache = boardCache
	server := NewHTTPServer(svc, "*")

	rr := doRequest(t, server, http.MethodGet, "/api/ready", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}

	checks := decodeResponse(t, rr)["checks"].(map[string]any)
	cacheCheck, exists := checks["cache"].(map[string]any)
	if !exists {
		t.Fatalf("expected cache check, got %v", checks["cache"])
	}
	if cacheStatus, exists := cacheCheck["status"]; !exists || cacheStatus != "error" {
		t.Errorf("expected cache status=error, got %v", cacheStatus)
	}
}

func TestReadyEndpoint_NoCacheCheckWhenUnconfigured(t *testing.T) {
	server := newTestServer(newFakeStore())

	rr := doRequest(t, server, http.MethodGet, "/api/ready", "")
	checks := decodeResponse(t, rr)["checks"].(map[string]any)
	if _, exists := checks["cache"]; exists {
		t.Error("expected no cache check without a configured cache")
	}
}

func TestHealthEndpoint_OptionsRequest(t *testing.T) {
	server := newTestServer(newFakeStore())

	rr := doRequest(t, server, http.MethodOptions, "/api/health", "")
	if rr.Code != http.StatusNoContent {
		t.Errorf("expected status 204 for OPTIONS, got %d", rr.Code)
	}
}

func TestHealthEndpoint_CORSHeaders(t *testing.T) {
	server := newTestServer(newFakeStore())

	rr := doRequest(t, server, http.MethodGet, "/api/health", "")

	if origin := rr.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("expected CORS origin=*, got %v", origin)
	}
	if cache := rr.Header().Get("Cache-Control"); cache != "no-store" {
		t.Errorf("expected Cache-Control=no-store, got %v", cache)
	}
	if requestID := rr.Header().Get("X-Request-ID"); requestID == "" {
		t.Error("expected a generated X-Request-ID header")
	}
}
