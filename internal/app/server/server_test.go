package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/PowerOTP/config"
	"github.com/sifan077/PowerOTP/internal/app/repository"
	"github.com/sifan077/PowerOTP/internal/app/service"
	"github.com/sifan077/PowerOTP/internal/http/middleware"
)

func newTestServer(t *testing.T, storeCheck func(context.Context) error) *Server {
	t.Helper()
	cfg := config.Default()
	repo := repository.NewMemoryLinkRepository()
	return New(Dependencies{
		Config:     cfg,
		Links:      service.NewLinkService(service.LinkDeps{Repo: repo, Share: cfg.Share}),
		Redemption: service.NewRedemptionService(repo, cfg.Share.FreshnessHorizon),
		StoreCheck: storeCheck,
	})
}

func TestServer_CreateAndRedeem(t *testing.T) {
	s := newTestServer(t, nil)

	body := `{"codes":["123456","654321"],"startTime":0,"burnAfterReading":false}`
	req := httptest.NewRequest(http.MethodPost, "/api/share", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatalf("POST /api/share: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created struct{ ID, URL string }
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(created.URL, "http://localhost:8080/s/") {
		t.Fatalf("unexpected url %q", created.URL)
	}

	// Origin 0 with two codes is far in the past.
	resp, err = s.App().Test(httptest.NewRequest(http.MethodGet, "/api/share/"+created.ID, nil))
	if err != nil {
		t.Fatalf("GET /api/share: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 out of sync, got %d", resp.StatusCode)
	}
}

func TestServer_RequestIDAndCORS(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/share", nil)
	req.Header.Set(fiber.HeaderOrigin, "https://app.example.com")
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatalf("OPTIONS /api/share: %v", err)
	}
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if resp.Header.Get(fiber.HeaderAccessControlAllowOrigin) != "*" {
		t.Fatalf("unexpected allow origin %q", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
	}
	if resp.Header.Get(middleware.RequestIDHeader) != "req-42" {
		t.Fatalf("request id not propagated: %q", resp.Header.Get(middleware.RequestIDHeader))
	}
}

func TestServer_UnknownRouteUsesErrorShape(t *testing.T) {
	s := newTestServer(t, nil)

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/nope", nil))
	if err != nil {
		t.Fatalf("GET /nope: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	var out map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["errorType"] != "route_not_found" {
		t.Fatalf("unexpected body %v", out)
	}
}

func TestServer_ReadinessUsesStoreCheck(t *testing.T) {
	s := newTestServer(t, func(context.Context) error { return errors.New("database is locked") })

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if err != nil {
		t.Fatalf("GET /health/ready: %v", err)
	}
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}
