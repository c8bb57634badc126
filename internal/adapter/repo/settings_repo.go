package repo

import (
	"context"
	"fmt"

	"github.com/TheMarco/sora-renderer/internal/db"
	"github.com/TheMarco/sora-renderer/internal/domain"
	"github.com/TheMarco/sora-renderer/internal/infra"
)

// SettingsRepositoryPG implements domain.SettingsRepository.
type SettingsRepositoryPG struct {
	db db.DBTX
}

// NewSettingsRepository creates a new settings repository backed by PostgreSQL.
func NewSettingsRepository(db db.DBTX) *SettingsRepositoryPG {
	return &SettingsRepositoryPG{db: db}
}

// Get returns the singleton settings record, falling back to defaults when
// none has been written yet.
func (r *SettingsRepositoryPG) Get(ctx context.Context) (*domain.Settings, error) {
	row := r.db.QueryRow(ctx, `SELECT id, theme, polling_ms, auto_download, show_advanced FROM settings WHERE id = $1;`, domain.SettingsID)
	var s domain.Settings
	if err := row.Scan(&s.ID, &s.Theme, &s.PollingMs, &s.AutoDownload, &s.ShowAdvanced); err != nil {
		if infra.IsNoRows(err) {
			return domain.DefaultSettings(), nil
		}
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return &s, nil
}

// Put upserts the singleton settings record.
func (r *SettingsRepositoryPG) Put(ctx context.Context, settings *domain.Settings) error {
	query := `
INSERT INTO settings (id, theme, polling_ms, auto_download, show_advanced)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
	theme = EXCLUDED.theme,
	polling_ms = EXCLUDED.polling_ms,
	auto_download = EXCLUDED.auto_download,
	show_advanced = EXCLUDED.show_advanced;
`
	if _, err := r.db.Exec(ctx, query,
		domain.SettingsID,
		settings.Theme,
		settings.PollingMs,
		settings.AutoDownload,
		settings.ShowAdvanced,
	); err != nil {
		return fmt.Errorf("put settings: %w", err)
	}
	return nil
}

var _ domain.SettingsRepository = (*SettingsRepositoryPG)(nil)
