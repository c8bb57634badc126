package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/TheMarco/sora-renderer/internal/http/handlers"
	"github.com/TheMarco/sora-renderer/internal/infra/geoip"
	"github.com/TheMarco/sora-renderer/internal/middleware"
)

// NewRouter assembles the full API surface.
func NewRouter(app *handlers.App, logger zerolog.Logger, countries geoip.CountryResolver) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger, countries),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/models", app.Models)
	r.Get("/v1/estimate", app.Estimate)
	r.Get("/v1/events", app.EventStream)
	r.Post("/v1/reset", app.Reset)

	r.Route("/v1/jobs", func(r chi.Router) {
		r.Post("/", app.CreateJob)
		r.Get("/", app.ListJobs)
		r.Get("/{id}", app.GetJob)
		r.Post("/{id}/cancel", app.CancelJob)
		r.Post("/{id}/refresh", app.RefreshJob)
		r.Post("/{id}/assets/retry", app.RetryJobAssets)
		r.Delete("/{id}", app.DeleteJob)
	})

	r.Route("/v1/assets", func(r chi.Router) {
		r.Post("/", app.UploadAsset)
		r.Get("/", app.ListAssets)
		r.Get("/{id}", app.GetAsset)
		r.Get("/{id}/content", app.AssetContent)
		r.Delete("/{id}", app.DeleteAsset)
	})

	r.Route("/v1/credential", func(r chi.Router) {
		r.Put("/", app.PutCredential)
		r.Get("/", app.GetCredential)
		r.Delete("/", app.DeleteCredential)
	})

	r.Route("/v1/settings", func(r chi.Router) {
		r.Get("/", app.GetSettings)
		r.Put("/", app.PutSettings)
	})

	return r
}
