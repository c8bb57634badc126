package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/TheMarco/sora-renderer/internal/domain"
	"github.com/TheMarco/sora-renderer/internal/gateway"
	"github.com/TheMarco/sora-renderer/internal/infra"
	"github.com/TheMarco/sora-renderer/internal/pricing"
	"github.com/TheMarco/sora-renderer/internal/registry"
	"github.com/TheMarco/sora-renderer/internal/scheduler"
	"github.com/TheMarco/sora-renderer/internal/vault"
)

// Gateway is the outbound surface the orchestrator drives. Satisfied by
// *gateway.Client.
type Gateway interface {
	Submit(ctx context.Context, credential string, req gateway.SubmitRequest) (string, error)
	FetchStatus(ctx context.Context, credential, remoteID string) (*gateway.StatusReport, error)
	Validate(ctx context.Context, credential string) error
}

// CompletionPipeline materializes the result assets of a finished job.
type CompletionPipeline interface {
	Run(ctx context.Context, job *domain.Job, refs []string, credential string) error
}

// Orchestrator is the only component that ever sees the decrypted credential.
// It submits jobs, consumes poll requests from the scheduler, reconciles
// remote statuses into the canonical state machine (store first, then the
// registry cache) and triggers the completion pipeline exactly once per job.
type Orchestrator struct {
	jobs      domain.JobRepository
	assets    domain.AssetRepository
	creds     domain.CredentialRepository
	settings  domain.SettingsRepository
	registry  *registry.Registry
	vault     *vault.Vault
	gateway   Gateway
	scheduler *scheduler.Scheduler
	pipeline  CompletionPipeline
	logger    infra.Logger
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	Jobs      domain.JobRepository
	Assets    domain.AssetRepository
	Creds     domain.CredentialRepository
	Settings  domain.SettingsRepository
	Registry  *registry.Registry
	Vault     *vault.Vault
	Gateway   Gateway
	Scheduler *scheduler.Scheduler
	Pipeline  CompletionPipeline
	Logger    infra.Logger
}

// New wires an orchestrator from its dependencies.
func New(deps Deps) *Orchestrator {
	return &Orchestrator{
		jobs:      deps.Jobs,
		assets:    deps.Assets,
		creds:     deps.Creds,
		settings:  deps.Settings,
		registry:  deps.Registry,
		vault:     deps.Vault,
		gateway:   deps.Gateway,
		scheduler: deps.Scheduler,
		pipeline:  deps.Pipeline,
		logger:    deps.Logger,
	}
}

// SubmitParams carries the user-facing generation request.
type SubmitParams struct {
	Model           domain.ModelID
	Resolution      string
	DurationSeconds int
	Prompt          string
	RefImageID      string
}

func (p SubmitParams) validate() error {
	if strings.TrimSpace(p.Prompt) == "" {
		return fmt.Errorf("%w: prompt is required", domain.ErrInvalidParams)
	}
	if !pricing.ResolutionAvailable(p.Model, p.Resolution) {
		return fmt.Errorf("%w: model %q does not support resolution %q", domain.ErrInvalidParams, p.Model, p.Resolution)
	}
	if !pricing.DurationAllowed(p.DurationSeconds) {
		return fmt.Errorf("%w: unsupported duration %d", domain.ErrInvalidParams, p.DurationSeconds)
	}
	return nil
}

// Submit validates the request, hands it to the remote service and only then
// persists a queued job and starts polling. A submit-time remote failure
// leaves no job record behind; the error goes back to the caller instead.
func (o *Orchestrator) Submit(ctx context.Context, params SubmitParams) (*domain.Job, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	credential, err := o.decryptCredential(ctx)
	if err != nil {
		return nil, err
	}

	var refImage *gateway.RefImage
	if params.RefImageID != "" {
		asset, err := o.assets.GetByID(ctx, params.RefImageID)
		if err != nil {
			return nil, fmt.Errorf("%w: reference image not found", domain.ErrInvalidParams)
		}
		if asset.Kind != domain.AssetKindImage {
			return nil, fmt.Errorf("%w: asset %q is not an image", domain.ErrInvalidParams, params.RefImageID)
		}
		refImage = &gateway.RefImage{MIME: asset.MIME, Name: asset.Name, Data: asset.Data}
	}

	remoteID, err := o.gateway.Submit(ctx, credential, gateway.SubmitRequest{
		Model:           params.Model,
		Prompt:          params.Prompt,
		Resolution:      params.Resolution,
		DurationSeconds: params.DurationSeconds,
		RefImage:        refImage,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	job := &domain.Job{
		ID:              uuid.NewString(),
		Model:           params.Model,
		Resolution:      params.Resolution,
		DurationSeconds: params.DurationSeconds,
		Prompt:          params.Prompt,
		RefImageID:      params.RefImageID,
		CostEstimate:    pricing.EstimateCost(params.Model, params.Resolution, params.DurationSeconds).Cost,
		RemoteID:        remoteID,
		Status:          domain.JobStatusQueued,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := o.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("orchestrator: persist job: %w", err)
	}
	o.registry.PutJob(job)
	o.scheduler.Start(job.ID, remoteID)

	o.logger.Info().
		Str("job_id", job.ID).
		Str("remote_id", remoteID).
		Str("model", string(job.Model)).
		Msg("orchestrator: job submitted")
	return job.Clone(), nil
}

// Run consumes poll requests until the context is canceled. Each request is
// handled in its own goroutine; the scheduler guarantees at most one
// outstanding request per job, so per-job ordering is preserved.
func (o *Orchestrator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-o.scheduler.Requests():
			go o.handlePoll(ctx, req)
		}
	}
}

// handlePoll performs one status check for one job. The credential is
// decrypted fresh for the call and discarded with the stack frame.
func (o *Orchestrator) handlePoll(ctx context.Context, req scheduler.PollRequest) {
	job, err := o.jobs.GetByID(ctx, req.JobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Deleted underneath the scheduler; stop polling for good.
			o.scheduler.Respond(scheduler.PollResponse{JobID: req.JobID, Terminal: true})
			return
		}
		o.scheduler.Respond(scheduler.PollResponse{JobID: req.JobID, Err: err})
		return
	}
	if job.Status.IsTerminal() {
		o.scheduler.Respond(scheduler.PollResponse{JobID: req.JobID, Terminal: true})
		return
	}

	credential, err := o.decryptCredential(ctx)
	if err != nil {
		// The key may come back; keep the schedule alive.
		o.logger.Warn().Err(err).Str("job_id", job.ID).Msg("orchestrator: poll skipped, credential unavailable")
		o.scheduler.Respond(scheduler.PollResponse{JobID: req.JobID, Err: err})
		return
	}

	report, err := o.gateway.FetchStatus(ctx, credential, req.RemoteID)
	if err != nil {
		var transient *domain.TransientPollError
		if errors.As(err, &transient) {
			o.logger.Debug().Err(err).Str("job_id", job.ID).Msg("orchestrator: transient poll failure")
		} else {
			o.logger.Warn().Err(err).Str("job_id", job.ID).Msg("orchestrator: poll failed")
		}
		o.scheduler.Respond(scheduler.PollResponse{JobID: req.JobID, Err: err})
		return
	}

	status, known := domain.MapRemoteStatus(report.Status)
	if !known {
		o.logger.Warn().
			Str("job_id", job.ID).
			Str("remote_status", report.Status).
			Msg("orchestrator: unrecognized remote status treated as failure")
	}
	message := report.Error
	if message == "" {
		message = domain.FallbackMessage(status)
	}

	completed := false
	if status != job.Status {
		changed, err := o.jobs.UpdateStatus(ctx, job.ID, status, message)
		if err != nil {
			o.scheduler.Respond(scheduler.PollResponse{JobID: req.JobID, Err: err})
			return
		}
		if changed {
			job.Status = status
			job.ErrorMessage = message
			job.UpdatedAt = time.Now().UTC()
			o.registry.PutJob(job)
			completed = status == domain.JobStatusSucceeded
			o.logger.Info().
				Str("job_id", job.ID).
				Str("status", string(status)).
				Msg("orchestrator: job status updated")
		}
	}

	o.scheduler.Respond(scheduler.PollResponse{JobID: req.JobID, Terminal: status.IsTerminal()})

	// The guarded transition into succeeded changes a row at most once, so the
	// pipeline cannot run twice for the same job.
	if completed {
		if err := o.pipeline.Run(ctx, job, report.AssetRefs, credential); err != nil {
			o.logger.Error().Err(err).Str("job_id", job.ID).Msg("orchestrator: completion pipeline failed")
		}
	}
}

// Cancel stops polling and marks the job canceled. Canceling a job that
// already reached a terminal state reports ErrJobTerminal.
func (o *Orchestrator) Cancel(ctx context.Context, id string) (*domain.Job, error) {
	job, err := o.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return nil, domain.ErrJobTerminal
	}

	o.scheduler.Stop(id)
	changed, err := o.jobs.UpdateStatus(ctx, id, domain.JobStatusCanceled, "")
	if err != nil {
		return nil, err
	}
	if !changed {
		// A concurrent poll beat us into a terminal state.
		return nil, domain.ErrJobTerminal
	}
	job.Status = domain.JobStatusCanceled
	job.ErrorMessage = ""
	job.UpdatedAt = time.Now().UTC()
	o.registry.PutJob(job)
	o.logger.Info().Str("job_id", id).Msg("orchestrator: job canceled")
	return job.Clone(), nil
}

// Refresh requests an immediate status check for a non-terminal job. If the
// job somehow lost its schedule (for example after a partial recovery) it is
// re-seeded instead.
func (o *Orchestrator) Refresh(ctx context.Context, id string) error {
	job, err := o.jobs.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return domain.ErrJobTerminal
	}
	if job.RemoteID == "" {
		return fmt.Errorf("%w: job was never submitted remotely", domain.ErrInvalidParams)
	}
	if !o.scheduler.Scheduled(id) {
		o.scheduler.Start(id, job.RemoteID)
		return nil
	}
	o.scheduler.Poke(id)
	return nil
}

// RetryAssets re-runs the completion pipeline for a succeeded job, filling in
// only the assets that are still missing.
func (o *Orchestrator) RetryAssets(ctx context.Context, id string) error {
	job, err := o.jobs.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if job.Status != domain.JobStatusSucceeded {
		return fmt.Errorf("%w: job has no downloadable results", domain.ErrInvalidParams)
	}
	credential, err := o.decryptCredential(ctx)
	if err != nil {
		return err
	}
	report, err := o.gateway.FetchStatus(ctx, credential, job.RemoteID)
	if err != nil {
		return fmt.Errorf("orchestrator: fetch asset refs: %w", err)
	}
	return o.pipeline.Run(ctx, job, report.AssetRefs, credential)
}

// Delete removes a job with its assets, stopping any polling first.
func (o *Orchestrator) Delete(ctx context.Context, id string) error {
	if _, err := o.jobs.GetByID(ctx, id); err != nil {
		return err
	}
	o.scheduler.Stop(id)
	if err := o.assets.DeleteByJobID(ctx, id); err != nil {
		return fmt.Errorf("orchestrator: delete job assets: %w", err)
	}
	if err := o.jobs.Delete(ctx, id); err != nil {
		return fmt.Errorf("orchestrator: delete job: %w", err)
	}
	o.registry.RemoveJob(id)
	o.logger.Info().Str("job_id", id).Msg("orchestrator: job deleted")
	return nil
}

// Reset wipes all jobs, assets, the stored credential and the vault key, and
// restores default settings. Previously produced ciphertexts become
// unrecoverable once the key is gone.
func (o *Orchestrator) Reset(ctx context.Context) error {
	o.scheduler.StopAll()
	if err := o.jobs.DeleteAll(ctx); err != nil {
		return fmt.Errorf("orchestrator: reset jobs: %w", err)
	}
	if err := o.assets.DeleteAll(ctx); err != nil {
		return fmt.Errorf("orchestrator: reset assets: %w", err)
	}
	if err := o.creds.Delete(ctx, domain.CredentialProviderOpenAI); err != nil {
		return fmt.Errorf("orchestrator: reset credential: %w", err)
	}
	if err := o.vault.Wipe(ctx); err != nil {
		return fmt.Errorf("orchestrator: wipe vault: %w", err)
	}
	if err := o.settings.Put(ctx, domain.DefaultSettings()); err != nil {
		return fmt.Errorf("orchestrator: reset settings: %w", err)
	}
	o.registry.Clear()
	o.logger.Warn().Msg("orchestrator: full reset performed")
	return nil
}

// Resume re-seeds the scheduler from the store on process start. Jobs stuck in
// a non-terminal state without a remote id are marked failed instead of being
// polled forever.
func (o *Orchestrator) Resume(ctx context.Context) error {
	rows, err := o.jobs.ListByStatus(ctx, domain.JobStatusQueued, domain.JobStatusRunning)
	if err != nil {
		return fmt.Errorf("orchestrator: list resumable jobs: %w", err)
	}

	resumable := make([]scheduler.ResumeJob, 0, len(rows))
	for i := range rows {
		job := rows[i]
		if job.RemoteID == "" {
			message := "Interrupted before remote submission completed"
			if changed, err := o.jobs.UpdateStatus(ctx, job.ID, domain.JobStatusFailed, message); err == nil && changed {
				job.Status = domain.JobStatusFailed
				job.ErrorMessage = message
				o.registry.PutJob(&job)
			}
			continue
		}
		resumable = append(resumable, scheduler.ResumeJob{JobID: job.ID, RemoteID: job.RemoteID})
	}
	o.scheduler.Resume(resumable)
	if len(resumable) > 0 {
		o.logger.Info().Int("jobs", len(resumable)).Msg("orchestrator: polling resumed")
	}
	return nil
}

// SetCredential validates the plaintext against the remote service, encrypts
// it and stores the ciphertext. The plaintext never touches the store.
func (o *Orchestrator) SetCredential(ctx context.Context, plaintext string) error {
	plaintext = strings.TrimSpace(plaintext)
	if plaintext == "" {
		return fmt.Errorf("%w: credential is empty", domain.ErrInvalidParams)
	}
	if err := o.gateway.Validate(ctx, plaintext); err != nil {
		return err
	}
	ciphertext, err := o.vault.Encrypt(ctx, plaintext)
	if err != nil {
		return err
	}
	if err := o.creds.Put(ctx, &domain.Credential{
		Provider:   domain.CredentialProviderOpenAI,
		Ciphertext: ciphertext,
		CreatedAt:  time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("orchestrator: store credential: %w", err)
	}
	o.logger.Info().Msg("orchestrator: credential stored")
	return nil
}

// HasCredential reports whether a credential is configured.
func (o *Orchestrator) HasCredential(ctx context.Context) (bool, error) {
	_, err := o.creds.Get(ctx, domain.CredentialProviderOpenAI)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeleteCredential removes the stored ciphertext. The vault key stays; only a
// full reset wipes it.
func (o *Orchestrator) DeleteCredential(ctx context.Context) error {
	if err := o.creds.Delete(ctx, domain.CredentialProviderOpenAI); err != nil {
		return err
	}
	o.logger.Info().Msg("orchestrator: credential deleted")
	return nil
}

// decryptCredential loads and opens the stored credential for immediate use.
func (o *Orchestrator) decryptCredential(ctx context.Context) (string, error) {
	cred, err := o.creds.Get(ctx, domain.CredentialProviderOpenAI)
	if errors.Is(err, domain.ErrNotFound) {
		return "", domain.ErrCredentialMissing
	}
	if err != nil {
		return "", err
	}
	return o.vault.Decrypt(ctx, cred.Ciphertext)
}

