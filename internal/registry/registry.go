package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/TheMarco/sora-renderer/internal/domain"
	"github.com/TheMarco/sora-renderer/internal/notify"
)

// Registry is the in-memory, UI-facing cache of job and asset records. It is
// strictly a read cache over the persistent store: every mutation happens
// store-first, and Rebuild reconstructs the cache wholesale after a restart.
type Registry struct {
	mu     sync.RWMutex
	jobs   map[string]*domain.Job
	assets map[string]*domain.Asset
	events *notify.Service
}

// New constructs an empty registry publishing change events to the given hub.
func New(events *notify.Service) *Registry {
	return &Registry{
		jobs:   make(map[string]*domain.Job),
		assets: make(map[string]*domain.Asset),
		events: events,
	}
}

// Rebuild repopulates the cache from the store. Asset payload bytes are not
// cached; content reads always go back to the store.
func (r *Registry) Rebuild(ctx context.Context, jobs domain.JobRepository, assets domain.AssetRepository) error {
	jobRows, err := jobs.List(ctx)
	if err != nil {
		return fmt.Errorf("registry: load jobs: %w", err)
	}
	assetRows, err := assets.List(ctx, "", "")
	if err != nil {
		return fmt.Errorf("registry: load assets: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = make(map[string]*domain.Job, len(jobRows))
	for i := range jobRows {
		job := jobRows[i]
		r.jobs[job.ID] = &job
	}
	r.assets = make(map[string]*domain.Asset, len(assetRows))
	for i := range assetRows {
		asset := assetRows[i]
		r.assets[asset.ID] = &asset
	}
	return nil
}

// PutJob inserts or replaces a job in the cache and publishes a change event.
// Call it only after the corresponding store write succeeded.
func (r *Registry) PutJob(job *domain.Job) {
	if job == nil {
		return
	}
	cp := job.Clone()
	r.mu.Lock()
	r.jobs[cp.ID] = cp
	r.mu.Unlock()

	kind := notify.EventJobUpdated
	if cp.Status.IsTerminal() {
		kind = notify.EventJobCompleted
	}
	r.events.Publish(notify.Event{
		Kind:    kind,
		JobID:   cp.ID,
		Status:  cp.Status,
		Message: cp.ErrorMessage,
	})
}

// GetJob returns a copy of the cached job, or nil when absent.
func (r *Registry) GetJob(id string) *domain.Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.jobs[id].Clone()
}

// RemoveJob drops a job and its assets from the cache.
func (r *Registry) RemoveJob(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
	for assetID, asset := range r.assets {
		if asset.JobID == id {
			delete(r.assets, assetID)
		}
	}
}

// ListJobs returns cached jobs newest first, optionally filtered by status.
func (r *Registry) ListJobs(status domain.JobStatus) []domain.Job {
	r.mu.RLock()
	out := make([]domain.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		if status != "" && job.Status != status {
			continue
		}
		out = append(out, *job)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// PutAsset caches an asset row (payload bytes excluded) and publishes an
// event. Call it only after the store write succeeded.
func (r *Registry) PutAsset(asset *domain.Asset) {
	if asset == nil {
		return
	}
	cp := asset.Clone()
	cp.Data = nil
	r.mu.Lock()
	r.assets[cp.ID] = cp
	r.mu.Unlock()

	r.events.Publish(notify.Event{
		Kind:    notify.EventAssetAdded,
		AssetID: cp.ID,
		JobID:   cp.JobID,
	})
}

// GetAsset returns a copy of the cached asset row, or nil when absent.
func (r *Registry) GetAsset(id string) *domain.Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.assets[id].Clone()
}

// RemoveAsset drops one asset from the cache.
func (r *Registry) RemoveAsset(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.assets, id)
}

// ListAssets returns cached asset rows newest first, optionally filtered by
// kind and/or owning job.
func (r *Registry) ListAssets(kind domain.AssetKind, jobID string) []domain.Asset {
	r.mu.RLock()
	out := make([]domain.Asset, 0, len(r.assets))
	for _, asset := range r.assets {
		if kind != "" && asset.Kind != kind {
			continue
		}
		if jobID != "" && asset.JobID != jobID {
			continue
		}
		out = append(out, *asset)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Clear empties the cache. Used by the full reset.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = make(map[string]*domain.Job)
	r.assets = make(map[string]*domain.Asset)
}
