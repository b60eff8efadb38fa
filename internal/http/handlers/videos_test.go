package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"promoforge/internal/infra"
	"promoforge/internal/pipeline"
	"promoforge/internal/providers/video"
)

type stubGenerator struct {
	artifact *pipeline.Artifact
	attempts []video.Attempt
	err      error
	lastReq  video.Request
}

func (s *stubGenerator) Generate(_ context.Context, req video.Request) (*pipeline.Artifact, []video.Attempt, error) {
	s.lastReq = req
	return s.artifact, s.attempts, s.err
}

func postVideo(t *testing.T, app *App, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/videos/generate", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	app.VideosGenerate(rec, req)
	return rec
}

func TestVideosGenerateReturnsArtifactURL(t *testing.T) {
	gen := &stubGenerator{
		artifact: &pipeline.Artifact{
			ID:           "abc",
			RelativePath: "videos/veo_20260314T092653_abcdef.mp4",
			MimeType:     "video/mp4",
			ProducedBy:   "veo",
			Metadata:     pipeline.Metadata{Prompt: "sunset over rice fields", ProducedBy: "veo"},
		},
		attempts: []video.Attempt{{Provider: "veo", Outcome: video.OutcomeSucceeded}},
	}
	app := NewApp(gen, "http://localhost:8080/static/", infra.Logger{})

	rec := postVideo(t, app, `{"prompt":"sunset over rice fields","aspect_ratio":"9:16","duration":6}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}

	var resp videoGenerateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success {
		t.Fatal("expected success")
	}
	want := "http://localhost:8080/static/videos/veo_20260314T092653_abcdef.mp4"
	if resp.VideoURL != want {
		t.Fatalf("video_url = %q, want %q", resp.VideoURL, want)
	}
	if gen.lastReq.AspectRatio != video.AspectPortrait || gen.lastReq.Duration != 6 {
		t.Fatalf("request not forwarded: %+v", gen.lastReq)
	}
}

func TestVideosGenerateRejectsEmptyPrompt(t *testing.T) {
	app := NewApp(&stubGenerator{}, "http://localhost:8080/static", infra.Logger{})

	rec := postVideo(t, app, `{"prompt":"   "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", rec.Code)
	}
}

func TestVideosGenerateRejectsBadJSON(t *testing.T) {
	app := NewApp(&stubGenerator{}, "http://localhost:8080/static", infra.Logger{})

	rec := postVideo(t, app, `{"prompt":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", rec.Code)
	}
}

func TestVideosGenerateReportsPipelineFailure(t *testing.T) {
	gen := &stubGenerator{err: errors.New("local render failed")}
	app := NewApp(gen, "http://localhost:8080/static", infra.Logger{})

	rec := postVideo(t, app, `{"prompt":"anything"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if success, _ := resp["success"].(bool); success {
		t.Fatal("expected success=false")
	}
}

func TestHealth(t *testing.T) {
	app := NewApp(&stubGenerator{}, "http://localhost:8080/static", infra.Logger{})
	req := httptest.NewRequest(http.MethodGet, "/v1/healthz", nil)
	rec := httptest.NewRecorder()
	app.Health(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
}
