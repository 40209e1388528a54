package main

import (
	"bytes"
	"encoding/json"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/sifan077/PowerOTP/config"
	"github.com/sifan077/PowerOTP/internal/app/repository"
	appserver "github.com/sifan077/PowerOTP/internal/app/server"
	"github.com/sifan077/PowerOTP/internal/app/service"
	"github.com/sifan077/PowerOTP/internal/http/handler"
	"gopkg.in/yaml.v3"
)

func startServer(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	cfg := config.Default()
	cfg.Server.BaseURL = "http://" + ln.Addr().String()
	repo := repository.NewMemoryLinkRepository()
	srv := appserver.New(appserver.Dependencies{
		Config:     cfg,
		Links:      service.NewLinkService(service.LinkDeps{Repo: repo, Share: cfg.Share}),
		Redemption: service.NewRedemptionService(repo, cfg.Share.FreshnessHorizon),
	})
	go func() { _ = srv.App().Listener(ln) }()
	t.Cleanup(func() { _ = srv.App().Shutdown() })

	return cfg.Server.BaseURL
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCreateAndRedeem(t *testing.T) {
	base := startServer(t)

	out, err := runCLI(t, "--server", base, "create", "--secret", "JBSWY3DPEHPK3PXP", "--expires-in", "1h")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	shareURL := strings.TrimSpace(out)
	if !strings.HasPrefix(shareURL, base+"/s/") {
		t.Fatalf("unexpected share url %q", shareURL)
	}
	id := strings.TrimPrefix(shareURL, base+"/s/")

	out, err = runCLI(t, "--server", base, "redeem", id, "-o", "json")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	var view redemptionView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if !view.BurnAfterReading || len(view.Codes) == 0 || len(view.Codes) > 6 {
		t.Fatalf("unexpected redemption %+v", view)
	}

	_, err = runCLI(t, "--server", base, "redeem", id)
	if err == nil || !strings.Contains(err.Error(), "burned") {
		t.Fatalf("expected burned error, got %v", err)
	}
}

func TestCreate_RejectsUnknownPreset(t *testing.T) {
	_, err := runCLI(t, "--server", "http://127.0.0.1:1", "create", "--secret", "JBSWY3DPEHPK3PXP", "--expires-in", "7d")
	if err == nil || !strings.Contains(err.Error(), "--expires-in") {
		t.Fatalf("expected preset error, got %v", err)
	}
}

func TestRedeem_RejectsUnknownOutput(t *testing.T) {
	_, err := runCLI(t, "--server", "http://127.0.0.1:1", "redeem", "abc", "-o", "xml")
	if err == nil || !strings.Contains(err.Error(), "--output") {
		t.Fatalf("expected output error, got %v", err)
	}
}

func TestBuildViewAndRender(t *testing.T) {
	resp := &handler.RedemptionResponse{
		Codes:              []string{"111111", "222222"},
		Period:             30,
		FirstCodeTimestamp: 1_700_000_010,
		BurnAfterReading:   false,
		ExpiresAt:          "2023-11-15T22:13:20Z",
	}
	v := buildView("Ab3xY9q", resp, time.Unix(1_700_000_020, 0))

	if v.Codes[0].Remaining != 20 || v.Codes[1].Remaining != 0 {
		t.Fatalf("unexpected remaining seconds %+v", v.Codes)
	}
	if v.Codes[1].ValidFrom != 1_700_000_040 {
		t.Fatalf("unexpected window for second code %+v", v.Codes[1])
	}

	var buf bytes.Buffer
	if err := render(&buf, outputYAML, v); err != nil {
		t.Fatalf("render yaml: %v", err)
	}
	var back redemptionView
	if err := yaml.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatalf("yaml output does not parse: %v", err)
	}
	if back.ID != "Ab3xY9q" || len(back.Codes) != 2 {
		t.Fatalf("unexpected yaml round trip %+v", back)
	}

	buf.Reset()
	if err := render(&buf, outputText, v); err != nil {
		t.Fatalf("render text: %v", err)
	}
	if !strings.Contains(buf.String(), "111111") || !strings.Contains(buf.String(), "20s") {
		t.Fatalf("unexpected text output:\n%s", buf.String())
	}
}
