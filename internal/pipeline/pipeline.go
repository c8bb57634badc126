package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/TheMarco/sora-renderer/internal/domain"
	"github.com/TheMarco/sora-renderer/internal/infra"
	"github.com/TheMarco/sora-renderer/internal/registry"
	"github.com/TheMarco/sora-renderer/internal/storage"
)

// Metadata keys linking derived assets back to their origin.
const (
	metaSourceRef    = "source_ref"
	metaVideoAssetID = "video_asset_id"
)

// AssetFetcher downloads one result artifact from the remote API.
type AssetFetcher interface {
	FetchAssetBytes(ctx context.Context, credential, ref string) ([]byte, string, error)
}

// Pipeline turns a finished remote job into local artifacts: it downloads the
// result videos, derives a thumbnail per video, and optionally exports the
// videos to the download directory.
type Pipeline struct {
	fetcher   AssetFetcher
	assets    domain.AssetRepository
	settings  domain.SettingsRepository
	registry  *registry.Registry
	store     *storage.FileStore
	extractor FrameExtractor
	logger    infra.Logger
}

// New wires a pipeline. The store may be nil, which disables exports.
func New(
	fetcher AssetFetcher,
	assets domain.AssetRepository,
	settings domain.SettingsRepository,
	reg *registry.Registry,
	store *storage.FileStore,
	extractor FrameExtractor,
	logger infra.Logger,
) *Pipeline {
	return &Pipeline{
		fetcher:   fetcher,
		assets:    assets,
		settings:  settings,
		registry:  reg,
		store:     store,
		extractor: extractor,
		logger:    logger,
	}
}

// Run downloads the job's result artifacts and derives thumbnails. It is
// idempotent: refs already downloaded and videos that already have a thumbnail
// are skipped, so a manual retry fills in only what is missing. Per-asset
// failures are logged and never fail the job itself.
func (p *Pipeline) Run(ctx context.Context, job *domain.Job, refs []string, credential string) error {
	existing, err := p.assets.List(ctx, "", job.ID)
	if err != nil {
		return fmt.Errorf("pipeline: list existing assets: %w", err)
	}

	byRef := make(map[string]string)  // source ref -> video asset id
	thumbed := make(map[string]bool)  // video asset id -> has thumbnail
	for _, asset := range existing {
		switch asset.Kind {
		case domain.AssetKindVideo:
			if ref, ok := asset.Metadata[metaSourceRef].(string); ok && ref != "" {
				byRef[ref] = asset.ID
			}
		case domain.AssetKindThumb:
			if videoID, ok := asset.Metadata[metaVideoAssetID].(string); ok && videoID != "" {
				thumbed[videoID] = true
			}
		}
	}

	autoDownload := false
	if settings, err := p.settings.Get(ctx); err != nil {
		p.logger.Warn().Err(err).Msg("pipeline: load settings, export disabled")
	} else {
		autoDownload = settings.AutoDownload
	}

	var videos, thumbs, failed int
	for _, ref := range refs {
		videoID, haveVideo := byRef[ref]
		var videoBytes []byte

		if haveVideo {
			if thumbed[videoID] {
				continue
			}
			// Video survived an earlier attempt but its thumbnail did not;
			// reload the payload to derive it now.
			full, err := p.assets.GetByID(ctx, videoID)
			if err != nil {
				p.logger.Warn().Err(err).Str("asset_id", videoID).Msg("pipeline: reload video payload failed")
				failed++
				continue
			}
			videoBytes = full.Data
		} else {
			video, err := p.downloadVideo(ctx, job, ref, credential, autoDownload)
			if err != nil {
				p.logger.Warn().Err(err).Str("job_id", job.ID).Str("ref", ref).Msg("pipeline: asset download failed")
				failed++
				continue
			}
			videoID = video.ID
			videoBytes = video.Data
			videos++
		}

		if err := p.deriveThumb(ctx, job, videoID, videoBytes); err != nil {
			p.logger.Warn().Err(err).Str("job_id", job.ID).Str("asset_id", videoID).Msg("pipeline: thumbnail derivation failed")
			failed++
			continue
		}
		thumbs++
	}

	p.logger.Info().
		Str("job_id", job.ID).
		Int("videos_added", videos).
		Int("thumbs_added", thumbs).
		Int("assets_failed", failed).
		Msg("pipeline: completion run finished")
	return nil
}

func (p *Pipeline) downloadVideo(ctx context.Context, job *domain.Job, ref, credential string, export bool) (*domain.Asset, error) {
	data, mime, err := p.fetcher.FetchAssetBytes(ctx, credential, ref)
	if err != nil {
		return nil, err
	}
	if mime == "" || mime == "application/octet-stream" {
		mime = "video/mp4"
	}

	asset := &domain.Asset{
		ID:        uuid.NewString(),
		Kind:      domain.AssetKindVideo,
		MIME:      mime,
		Name:      fmt.Sprintf("video-%d.mp4", time.Now().UnixMilli()),
		Bytes:     int64(len(data)),
		Data:      data,
		JobID:     job.ID,
		Metadata:  map[string]any{metaSourceRef: ref},
		CreatedAt: time.Now().UTC(),
	}
	if err := p.assets.Create(ctx, asset); err != nil {
		return nil, fmt.Errorf("persist video asset: %w", err)
	}
	p.registry.PutAsset(asset)

	if export && p.store != nil {
		key := fmt.Sprintf("exports/%s/%s", job.ID, asset.Name)
		if _, err := p.store.Write(ctx, key, data); err != nil {
			p.logger.Warn().Err(err).Str("key", key).Msg("pipeline: export failed")
		}
	}
	return asset, nil
}

func (p *Pipeline) deriveThumb(ctx context.Context, job *domain.Job, videoID string, videoBytes []byte) error {
	frame, err := p.extractor.ExtractFrame(ctx, videoBytes, frameOffset)
	if err != nil {
		return err
	}
	thumbBytes, err := renderThumbnail(frame)
	if err != nil {
		return err
	}

	asset := &domain.Asset{
		ID:        uuid.NewString(),
		Kind:      domain.AssetKindThumb,
		MIME:      "image/jpeg",
		Name:      "thumb-" + videoID + ".jpg",
		Bytes:     int64(len(thumbBytes)),
		Data:      thumbBytes,
		JobID:     job.ID,
		Metadata:  map[string]any{metaVideoAssetID: videoID},
		CreatedAt: time.Now().UTC(),
	}
	if err := p.assets.Create(ctx, asset); err != nil {
		return fmt.Errorf("persist thumbnail asset: %w", err)
	}
	p.registry.PutAsset(asset)
	return nil
}
