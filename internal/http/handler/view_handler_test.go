package handler

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

func TestViewHandler_DoesNotRedeem(t *testing.T) {
	rec := &recordedOutcomes{}
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	app := newTestApp(t, clock, rec)
	NewViewHandler(nil).Register(app)

	id := createShare(t, app, map[string]any{"codes": tenCodes(), "startTime": 1_699_999_980})

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/s/"+id, nil))
		if err != nil {
			t.Fatalf("GET /s/%s: %v", id, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if !strings.Contains(string(body), id) {
			t.Fatal("page should point at the redemption endpoint")
		}
	}

	if len(rec.outcomes) != 0 {
		t.Fatalf("viewing the page must not redeem, got %v", rec.outcomes)
	}
	resp, out := doJSON(t, app, http.MethodGet, "/api/share/"+id, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("first redemption after page views should succeed, got %d %v", resp.StatusCode, out)
	}
}
