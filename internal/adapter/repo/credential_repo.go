package repo

import (
	"context"
	"fmt"

	"github.com/TheMarco/sora-renderer/internal/db"
	"github.com/TheMarco/sora-renderer/internal/domain"
	"github.com/TheMarco/sora-renderer/internal/infra"
)

// CredentialRepositoryPG implements domain.CredentialRepository.
type CredentialRepositoryPG struct {
	db db.DBTX
}

// NewCredentialRepository creates a new credential repository backed by PostgreSQL.
func NewCredentialRepository(db db.DBTX) *CredentialRepositoryPG {
	return &CredentialRepositoryPG{db: db}
}

// Get fetches the encrypted credential record for a provider.
func (r *CredentialRepositoryPG) Get(ctx context.Context, provider string) (*domain.Credential, error) {
	row := r.db.QueryRow(ctx, `SELECT provider, ciphertext, created_at FROM credentials WHERE provider = $1;`, provider)
	var cred domain.Credential
	if err := row.Scan(&cred.Provider, &cred.Ciphertext, &cred.CreatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get credential: %w", err)
	}
	return &cred, nil
}

// Put upserts the singleton credential record for a provider.
func (r *CredentialRepositoryPG) Put(ctx context.Context, cred *domain.Credential) error {
	query := `
INSERT INTO credentials (provider, ciphertext)
VALUES ($1, $2)
ON CONFLICT (provider) DO UPDATE SET ciphertext = EXCLUDED.ciphertext, created_at = now();
`
	if _, err := r.db.Exec(ctx, query, cred.Provider, cred.Ciphertext); err != nil {
		return fmt.Errorf("put credential: %w", err)
	}
	return nil
}

// Delete removes the credential record for a provider.
func (r *CredentialRepositoryPG) Delete(ctx context.Context, provider string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM credentials WHERE provider = $1;`, provider); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}

var _ domain.CredentialRepository = (*CredentialRepositoryPG)(nil)
