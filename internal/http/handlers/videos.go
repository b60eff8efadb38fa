package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"promoforge/internal/middleware"
	"promoforge/internal/pipeline"
	"promoforge/internal/providers/video"
)

type videoGenerateRequest struct {
	Prompt      string  `json:"prompt"`
	AspectRatio string  `json:"aspect_ratio"`
	Style       string  `json:"style"`
	Duration    float64 `json:"duration"`
}

type videoGenerateResponse struct {
	Success  bool              `json:"success"`
	VideoURL string            `json:"video_url"`
	Metadata pipeline.Metadata `json:"metadata"`
}

func (a *App) VideosGenerate(w http.ResponseWriter, r *http.Request) {
	var req videoGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "prompt is required")
		return
	}
	if req.Duration < 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "duration must be positive")
		return
	}

	genReq := video.Request{
		Prompt:      strings.TrimSpace(req.Prompt),
		AspectRatio: video.ParseAspectRatio(req.AspectRatio),
		Style:       strings.TrimSpace(req.Style),
		Duration:    req.Duration,
		RequestID:   middleware.RequestIDFromContext(r.Context()),
	}

	artifact, attempts, err := a.Videos.Generate(r.Context(), genReq)
	for _, attempt := range attempts {
		a.Logger.Info().
			Str("request_id", genReq.RequestID).
			Str("provider", attempt.Provider).
			Str("outcome", string(attempt.Outcome)).
			Str("error", attempt.Err).
			Msg("video provider attempt")
	}
	if err != nil {
		a.Logger.Error().Err(err).Str("request_id", genReq.RequestID).Msg("video generation failed")
		a.error(w, http.StatusInternalServerError, "internal", "video generation failed")
		return
	}

	a.json(w, http.StatusOK, videoGenerateResponse{
		Success:  true,
		VideoURL: a.BaseURL + "/" + artifact.RelativePath,
		Metadata: artifact.Metadata,
	})
}
