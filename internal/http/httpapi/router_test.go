package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"promoforge/internal/http/handlers"
	"promoforge/internal/infra"
	"promoforge/internal/pipeline"
	"promoforge/internal/providers/video"
)

type noopGenerator struct{}

func (noopGenerator) Generate(context.Context, video.Request) (*pipeline.Artifact, []video.Attempt, error) {
	return &pipeline.Artifact{RelativePath: "videos/x.mp4"}, nil, nil
}

func TestRouterServesHealthAndStatic(t *testing.T) {
	staticDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(staticDir, "videos"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(staticDir, "videos", "clip.mp4"), []byte("mp4-bytes"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	app := handlers.NewApp(noopGenerator{}, "http://localhost:8080/static", infra.Logger{})
	router := NewRouter(app, infra.Logger{}, staticDir)
	ts := httptest.NewServer(router)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/static/videos/clip.mp4")
	if err != nil {
		t.Fatalf("static: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("static status %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/static/videos/missing.mp4")
	if err != nil {
		t.Fatalf("static miss: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing file status %d", resp.StatusCode)
	}
}
