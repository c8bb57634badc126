package registry

import (
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/TheMarco/sora-renderer/internal/domain"
	"github.com/TheMarco/sora-renderer/internal/notify"
)

func newTestRegistry() (*Registry, *notify.Service) {
	events := notify.NewService(zerolog.New(io.Discard))
	return New(events), events
}

func TestPutJobPublishesEvent(t *testing.T) {
	reg, events := newTestRegistry()
	defer events.Close()
	ch, cancel := events.Subscribe(4)
	defer cancel()

	reg.PutJob(&domain.Job{ID: "j1", Status: domain.JobStatusRunning})
	ev := <-ch
	if ev.Kind != notify.EventJobUpdated || ev.JobID != "j1" {
		t.Fatalf("unexpected event %+v", ev)
	}

	reg.PutJob(&domain.Job{ID: "j1", Status: domain.JobStatusSucceeded})
	ev = <-ch
	if ev.Kind != notify.EventJobCompleted {
		t.Fatalf("terminal update should publish completion, got %+v", ev)
	}
}

func TestGetJobReturnsCopy(t *testing.T) {
	reg, events := newTestRegistry()
	defer events.Close()

	reg.PutJob(&domain.Job{ID: "j1", Status: domain.JobStatusQueued})
	got := reg.GetJob("j1")
	got.Status = domain.JobStatusFailed

	if reg.GetJob("j1").Status != domain.JobStatusQueued {
		t.Fatal("mutating a returned job leaked into the cache")
	}
	if reg.GetJob("missing") != nil {
		t.Fatal("missing job should be nil")
	}
}

func TestListJobsOrderAndFilter(t *testing.T) {
	reg, events := newTestRegistry()
	defer events.Close()
	base := time.Now()

	reg.PutJob(&domain.Job{ID: "old", Status: domain.JobStatusQueued, CreatedAt: base.Add(-time.Hour)})
	reg.PutJob(&domain.Job{ID: "new", Status: domain.JobStatusRunning, CreatedAt: base})

	all := reg.ListJobs("")
	if len(all) != 2 || all[0].ID != "new" || all[1].ID != "old" {
		t.Fatalf("unexpected order: %+v", all)
	}
	queued := reg.ListJobs(domain.JobStatusQueued)
	if len(queued) != 1 || queued[0].ID != "old" {
		t.Fatalf("unexpected filter result: %+v", queued)
	}
}

func TestRemoveJobCascadesAssets(t *testing.T) {
	reg, events := newTestRegistry()
	defer events.Close()

	reg.PutJob(&domain.Job{ID: "j1", Status: domain.JobStatusSucceeded})
	reg.PutAsset(&domain.Asset{ID: "v1", Kind: domain.AssetKindVideo, JobID: "j1"})
	reg.PutAsset(&domain.Asset{ID: "t1", Kind: domain.AssetKindThumb, JobID: "j1"})
	reg.PutAsset(&domain.Asset{ID: "ref", Kind: domain.AssetKindImage})

	reg.RemoveJob("j1")
	if reg.GetJob("j1") != nil {
		t.Fatal("job should be gone")
	}
	if reg.GetAsset("v1") != nil || reg.GetAsset("t1") != nil {
		t.Fatal("job assets should be gone")
	}
	if reg.GetAsset("ref") == nil {
		t.Fatal("standalone reference image must survive job removal")
	}
}

func TestPutAssetStripsPayload(t *testing.T) {
	reg, events := newTestRegistry()
	defer events.Close()

	reg.PutAsset(&domain.Asset{ID: "v1", Kind: domain.AssetKindVideo, Data: []byte{1, 2, 3}})
	if got := reg.GetAsset("v1"); got == nil || got.Data != nil {
		t.Fatalf("cached asset should not hold payload bytes: %+v", got)
	}
}

func TestListAssetsFilter(t *testing.T) {
	reg, events := newTestRegistry()
	defer events.Close()

	reg.PutAsset(&domain.Asset{ID: "v1", Kind: domain.AssetKindVideo, JobID: "j1"})
	reg.PutAsset(&domain.Asset{ID: "t1", Kind: domain.AssetKindThumb, JobID: "j1"})
	reg.PutAsset(&domain.Asset{ID: "v2", Kind: domain.AssetKindVideo, JobID: "j2"})

	videos := reg.ListAssets(domain.AssetKindVideo, "")
	if len(videos) != 2 {
		t.Fatalf("expected 2 videos, got %d", len(videos))
	}
	j1 := reg.ListAssets("", "j1")
	if len(j1) != 2 {
		t.Fatalf("expected 2 assets for j1, got %d", len(j1))
	}
	thumbs := reg.ListAssets(domain.AssetKindThumb, "j2")
	if len(thumbs) != 0 {
		t.Fatalf("expected no thumbs for j2, got %d", len(thumbs))
	}
}
