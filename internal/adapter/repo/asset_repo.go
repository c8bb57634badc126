package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/TheMarco/sora-renderer/internal/db"
	"github.com/TheMarco/sora-renderer/internal/domain"
	"github.com/TheMarco/sora-renderer/internal/infra"
)

// AssetRepositoryPG implements domain.AssetRepository.
type AssetRepositoryPG struct {
	db db.DBTX
}

// NewAssetRepository creates a new asset repository backed by PostgreSQL.
func NewAssetRepository(db db.DBTX) *AssetRepositoryPG {
	return &AssetRepositoryPG{db: db}
}

// Create inserts a new asset row with its payload bytes.
func (r *AssetRepositoryPG) Create(ctx context.Context, asset *domain.Asset) error {
	var metadata []byte
	if asset.Metadata != nil {
		raw, err := json.Marshal(asset.Metadata)
		if err != nil {
			return fmt.Errorf("marshal asset metadata: %w", err)
		}
		metadata = raw
	}
	query := `
INSERT INTO assets (id, kind, mime, name, bytes, data, job_id, metadata)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8);
`
	_, err := r.db.Exec(ctx, query,
		asset.ID,
		asset.Kind,
		asset.MIME,
		asset.Name,
		asset.Bytes,
		asset.Data,
		asset.JobID,
		metadata,
	)
	if err != nil {
		return fmt.Errorf("insert asset: %w", err)
	}
	return nil
}

// GetByID fetches a single asset including its payload.
func (r *AssetRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Asset, error) {
	query := `
SELECT id, kind, mime, name, bytes, data, COALESCE(job_id, ''), metadata, created_at
FROM assets
WHERE id = $1;
`
	row := r.db.QueryRow(ctx, query, id)
	var asset domain.Asset
	var metadata []byte
	if err := row.Scan(
		&asset.ID,
		&asset.Kind,
		&asset.MIME,
		&asset.Name,
		&asset.Bytes,
		&asset.Data,
		&asset.JobID,
		&metadata,
		&asset.CreatedAt,
	); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get asset: %w", err)
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &asset.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal asset metadata: %w", err)
		}
	}
	return &asset, nil
}

// List returns asset rows without payload bytes, optionally filtered by kind
// and/or owning job. The (kind, job_id) index backs both filters.
func (r *AssetRepositoryPG) List(ctx context.Context, kind domain.AssetKind, jobID string) ([]domain.Asset, error) {
	query := `
SELECT id, kind, mime, name, bytes, COALESCE(job_id, ''), metadata, created_at
FROM assets
WHERE ($1 = '' OR kind = $1)
  AND ($2 = '' OR job_id = $2)
ORDER BY created_at DESC;
`
	rows, err := r.db.Query(ctx, query, string(kind), jobID)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []domain.Asset
	for rows.Next() {
		var asset domain.Asset
		var metadata []byte
		if err := rows.Scan(
			&asset.ID,
			&asset.Kind,
			&asset.MIME,
			&asset.Name,
			&asset.Bytes,
			&asset.JobID,
			&metadata,
			&asset.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &asset.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal asset metadata: %w", err)
			}
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assets: %w", err)
	}
	return assets, nil
}

// Delete removes a single asset row.
func (r *AssetRepositoryPG) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM assets WHERE id = $1;`, id); err != nil {
		return fmt.Errorf("delete asset: %w", err)
	}
	return nil
}

// DeleteByJobID cascades a job delete to every asset referencing it.
func (r *AssetRepositoryPG) DeleteByJobID(ctx context.Context, jobID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM assets WHERE job_id = $1;`, jobID); err != nil {
		return fmt.Errorf("delete job assets: %w", err)
	}
	return nil
}

// DeleteAll clears the assets table. Used by the full reset.
func (r *AssetRepositoryPG) DeleteAll(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM assets;`); err != nil {
		return fmt.Errorf("delete all assets: %w", err)
	}
	return nil
}

var _ domain.AssetRepository = (*AssetRepositoryPG)(nil)
