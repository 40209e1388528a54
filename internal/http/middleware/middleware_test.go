package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func TestRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(RequestIDFrom(c)) })

	cases := map[string]struct {
		header string
		keep   bool
	}{
		"generated":  {"", false},
		"propagated": {"abc-123", true},
		"too long":   {strings.Repeat("x", maxRequestIDLen+1), false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set(RequestIDHeader, tc.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("GET /: %v", err)
			}
			got := resp.Header.Get(RequestIDHeader)
			if got == "" {
				t.Fatal("expected a request id header")
			}
			if (got == tc.header) != tc.keep {
				t.Fatalf("header %q, response id %q", tc.header, got)
			}
		})
	}
}

func TestCORS_AllowList(t *testing.T) {
	app := fiber.New()
	app.Use(CORS([]string{"https://app.example.com", "https://admin.example.com"}))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	cases := []struct {
		name   string
		origin string
		want   string
	}{
		{"listed origin ignores case", "https://APP.example.com", "https://APP.example.com"},
		{"second listed origin", "https://admin.example.com", "https://admin.example.com"},
		{"unlisted origin", "https://evil.example.com", ""},
		{"no origin", "", ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if c.origin != "" {
				req.Header.Set(fiber.HeaderOrigin, c.origin)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("GET /: %v", err)
			}
			if got := resp.Header.Get(fiber.HeaderAccessControlAllowOrigin); got != c.want {
				t.Fatalf("expected allowed origin %q, got %q", c.want, got)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Use(Recovery(zap.NewNop()))
	app.Get("/panic", func(c *fiber.Ctx) error { panic("boom") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/panic", nil))
	if err != nil {
		t.Fatalf("GET /panic: %v", err)
	}
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
}
