package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestHealthHandler(t *testing.T) {
	healthy := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("dial tcp: connection refused") }

	cases := []struct {
		name   string
		checks map[string]Check
		path   string
		want   int
	}{
		{"live ignores checks", map[string]Check{"redis": down}, "/health", fiber.StatusOK},
		{"ready without checks", nil, "/health/ready", fiber.StatusOK},
		{"ready all healthy", map[string]Check{"postgres": healthy, "redis": healthy}, "/health/ready", fiber.StatusOK},
		{"ready one down", map[string]Check{"postgres": healthy, "redis": down}, "/health/ready", fiber.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			NewHealthHandler(nil, tc.checks).Register(app)

			resp, out := doJSON(t, app, http.MethodGet, tc.path, nil)
			if resp.StatusCode != tc.want {
				t.Fatalf("expected %d, got %d: %v", tc.want, resp.StatusCode, out)
			}
		})
	}
}
