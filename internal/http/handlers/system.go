package handlers

import (
	"net/http"
	"strconv"

	"github.com/TheMarco/sora-renderer/internal/domain"
	"github.com/TheMarco/sora-renderer/internal/pricing"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Models exposes the catalog with per-second rates by resolution.
func (a *App) Models(w http.ResponseWriter, r *http.Request) {
	models := pricing.Models()
	out := make([]map[string]any, 0, len(models))
	for _, model := range models {
		rates := make(map[string]float64, len(model.Resolutions))
		for _, resolution := range model.Resolutions {
			rates[resolution] = pricing.RatePerSecond(model.ID, resolution)
		}
		out = append(out, map[string]any{
			"id":                model.ID,
			"name":              model.Name,
			"max_duration":      model.MaxDuration,
			"allowed_durations": pricing.AllowedDurations,
			"resolutions":       model.Resolutions,
			"rates_per_second":  rates,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"models": out})
}

// Reset wipes all local state: jobs, assets, the credential and the vault key.
func (a *App) Reset(w http.ResponseWriter, r *http.Request) {
	if err := a.Orch.Reset(r.Context()); err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "reset complete"})
}

// Estimate previews the cost of a generation without submitting it.
func (a *App) Estimate(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	model := domain.ModelID(query.Get("model"))
	resolution := query.Get("resolution")
	seconds := pricing.DefaultDuration
	if raw := query.Get("duration_seconds"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || !pricing.DurationAllowed(parsed) {
			a.error(w, http.StatusBadRequest, "bad_request", "unsupported duration")
			return
		}
		seconds = parsed
	}
	if !pricing.ResolutionAvailable(model, resolution) {
		a.error(w, http.StatusBadRequest, "bad_request", "unsupported model/resolution")
		return
	}
	a.json(w, http.StatusOK, pricing.EstimateCost(model, resolution, seconds))
}
