package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/TheMarco/sora-renderer/internal/domain"
	"github.com/TheMarco/sora-renderer/internal/orchestrator"
)

type createJobRequest struct {
	Model           string `json:"model"`
	Resolution      string `json:"resolution"`
	DurationSeconds int    `json:"duration_seconds"`
	Prompt          string `json:"prompt"`
	RefImageID      string `json:"ref_image_id"`
}

func (a *App) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	job, err := a.Orch.Submit(r.Context(), orchestrator.SubmitParams{
		Model:           domain.ModelID(req.Model),
		Resolution:      req.Resolution,
		DurationSeconds: req.DurationSeconds,
		Prompt:          req.Prompt,
		RefImageID:      req.RefImageID,
	})
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusAccepted, toJobView(job))
}

func (a *App) ListJobs(w http.ResponseWriter, r *http.Request) {
	status := domain.JobStatus(r.URL.Query().Get("status"))
	if status != "" && !status.IsValid() {
		a.error(w, http.StatusBadRequest, "bad_request", "unknown status filter")
		return
	}
	jobs := a.Registry.ListJobs(status)
	views := make([]jobView, 0, len(jobs))
	for i := range jobs {
		views = append(views, toJobView(&jobs[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"jobs": views})
}

func (a *App) GetJob(w http.ResponseWriter, r *http.Request) {
	job := a.Registry.GetJob(chi.URLParam(r, "id"))
	if job == nil {
		a.error(w, http.StatusNotFound, "not_found", "job not found")
		return
	}
	a.json(w, http.StatusOK, toJobView(job))
}

func (a *App) CancelJob(w http.ResponseWriter, r *http.Request) {
	job, err := a.Orch.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, toJobView(job))
}

func (a *App) RefreshJob(w http.ResponseWriter, r *http.Request) {
	if err := a.Orch.Refresh(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusAccepted, map[string]string{"status": "refresh scheduled"})
}

func (a *App) RetryJobAssets(w http.ResponseWriter, r *http.Request) {
	if err := a.Orch.RetryAssets(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "assets retried"})
}

func (a *App) DeleteJob(w http.ResponseWriter, r *http.Request) {
	if err := a.Orch.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.domainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
