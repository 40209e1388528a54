package view

import (
	"strings"
	"testing"
)

func TestRenderSharePage(t *testing.T) {
	html, err := RenderSharePage(SharePageData{ID: "Ab3xY9q", APIPath: "/api/share/Ab3xY9q"})
	if err != nil {
		t.Fatalf("RenderSharePage returned error: %v", err)
	}
	if !strings.Contains(html, "Ab3xY9q") {
		t.Fatal("expected api path to be embedded")
	}
	if !strings.Contains(html, "<title>One-time code</title>") {
		t.Fatal("expected default title")
	}
}

func TestRenderSharePage_EscapesID(t *testing.T) {
	html, err := RenderSharePage(SharePageData{APIPath: `/api/share/"</script><script>alert(1)//`})
	if err != nil {
		t.Fatalf("RenderSharePage returned error: %v", err)
	}
	if strings.Contains(html, "<script>alert(1)") {
		t.Fatal("api path must be escaped inside the script block")
	}
}
