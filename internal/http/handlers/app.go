package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"promoforge/internal/infra"
	"promoforge/internal/pipeline"
	"promoforge/internal/providers/video"
)

// VideoGenerator runs the provider cascade and returns the published
// artifact plus the per-provider attempt log.
type VideoGenerator interface {
	Generate(ctx context.Context, req video.Request) (*pipeline.Artifact, []video.Attempt, error)
}

type App struct {
	Videos  VideoGenerator
	BaseURL string
	Logger  infra.Logger
}

func NewApp(videos VideoGenerator, baseURL string, logger infra.Logger) *App {
	return &App{Videos: videos, BaseURL: strings.TrimRight(baseURL, "/"), Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, map[string]any{
		"success": false,
		"error":   map[string]string{"code": kind, "message": message},
	})
}
