package httpapi

import (
	"net/http"

	"promoforge/internal/http/handlers"
	"promoforge/internal/infra"
	appmw "promoforge/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter assembles the API surface: health, video generation, and the
// static file server that exposes published artifacts.
func NewRouter(app *handlers.App, logger infra.Logger, staticDir string) http.Handler {
	r := chi.NewRouter()

	r.Use(
		appmw.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		appmw.Logger(logger),
	)

	r.Get("/v1/healthz", app.Health)
	r.Post("/v1/videos/generate", app.VideosGenerate)

	fs := http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir)))
	r.Get("/static/*", fs.ServeHTTP)

	return r
}
