package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"vntrbirds-be/internal/domain"
	"vntrbirds-be/pkg/database"
)

type settingsRepository struct {
	db *database.PostgresDB
}

// NewSettingsRepository creates a repository over app_settings
func NewSettingsRepository(db *database.PostgresDB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) Get(ctx context.Context, key string) (*domain.AppSetting, error) {
	setting := &domain.AppSetting{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT key, value FROM app_settings WHERE key = $1`, key,
	).Scan(&setting.Key, &setting.Value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return setting, nil
}

func (r *settingsRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO app_settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}
