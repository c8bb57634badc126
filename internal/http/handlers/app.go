package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/TheMarco/sora-renderer/internal/domain"
	"github.com/TheMarco/sora-renderer/internal/infra"
	"github.com/TheMarco/sora-renderer/internal/notify"
	"github.com/TheMarco/sora-renderer/internal/orchestrator"
	"github.com/TheMarco/sora-renderer/internal/registry"
)

// Orchestrator is the slice of job orchestration the handlers drive.
// Satisfied by *orchestrator.Orchestrator.
type Orchestrator interface {
	Submit(ctx context.Context, params orchestrator.SubmitParams) (*domain.Job, error)
	Cancel(ctx context.Context, id string) (*domain.Job, error)
	Refresh(ctx context.Context, id string) error
	RetryAssets(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Reset(ctx context.Context) error
	SetCredential(ctx context.Context, plaintext string) error
	HasCredential(ctx context.Context) (bool, error)
	DeleteCredential(ctx context.Context) error
}

// App bundles the handler dependencies.
type App struct {
	Orch     Orchestrator
	Registry *registry.Registry
	Assets   domain.AssetRepository
	Settings domain.SettingsRepository
	Events   *notify.Service
	Logger   infra.Logger
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]string{"error": errCode, "message": message})
}

// domainError maps domain sentinel errors onto HTTP responses.
func (a *App) domainError(w http.ResponseWriter, err error) {
	var reqErr *domain.RemoteRequestError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, domain.ErrInvalidParams):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, domain.ErrCredentialMissing):
		a.error(w, http.StatusPreconditionFailed, "credential_missing", domain.ErrCredentialMissing.Error())
	case errors.Is(err, domain.ErrCredentialDecrypt):
		a.error(w, http.StatusInternalServerError, "credential_decrypt", domain.ErrCredentialDecrypt.Error())
	case errors.Is(err, domain.ErrJobTerminal):
		a.error(w, http.StatusConflict, "job_terminal", domain.ErrJobTerminal.Error())
	case errors.As(err, &reqErr) && reqErr.ClientFault():
		a.error(w, http.StatusUnprocessableEntity, "remote_rejected", reqErr.Message)
	case errors.As(err, &reqErr):
		a.error(w, http.StatusBadGateway, "remote_unavailable", "remote service failed")
	default:
		a.Logger.Error().Err(err).Msg("handlers: internal error")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

type jobView struct {
	ID              string    `json:"id"`
	Model           string    `json:"model"`
	Resolution      string    `json:"resolution"`
	DurationSeconds int       `json:"duration_seconds"`
	Prompt          string    `json:"prompt"`
	RefImageID      string    `json:"ref_image_id,omitempty"`
	CostEstimate    float64   `json:"cost_estimate"`
	RemoteID        string    `json:"remote_id,omitempty"`
	Status          string    `json:"status"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toJobView(job *domain.Job) jobView {
	return jobView{
		ID:              job.ID,
		Model:           string(job.Model),
		Resolution:      job.Resolution,
		DurationSeconds: job.DurationSeconds,
		Prompt:          job.Prompt,
		RefImageID:      job.RefImageID,
		CostEstimate:    job.CostEstimate,
		RemoteID:        job.RemoteID,
		Status:          string(job.Status),
		ErrorMessage:    job.ErrorMessage,
		CreatedAt:       job.CreatedAt,
		UpdatedAt:       job.UpdatedAt,
	}
}

type assetView struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"`
	MIME      string         `json:"mime"`
	Name      string         `json:"name"`
	Bytes     int64          `json:"bytes"`
	JobID     string         `json:"job_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func toAssetView(asset *domain.Asset) assetView {
	return assetView{
		ID:        asset.ID,
		Kind:      string(asset.Kind),
		MIME:      asset.MIME,
		Name:      asset.Name,
		Bytes:     asset.Bytes,
		JobID:     asset.JobID,
		Metadata:  asset.Metadata,
		CreatedAt: asset.CreatedAt,
	}
}
