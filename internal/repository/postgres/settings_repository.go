package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/circuit-microservice/internal/domain/repository"
	"github.com/circuit-microservice/internal/pkg/errors"
)

type settingsRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewSettingsRepository создает новый экземпляр SettingsRepository
func NewSettingsRepository(db *DB) repository.SettingsRepository {
	return &settingsRepository{
		db:     db.DB,
		logger: db.logger,
	}
}

// Get возвращает значение настройки; незаданная настройка - пустая строка
func (r *settingsRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM app_settings WHERE key = $1`,
		key,
	).Scan(&value)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		r.logger.Error("Failed to get setting", zap.String("key", key), zap.Error(err))
		return "", errors.ErrDatabaseError
	}

	return value, nil
}

// Set сохраняет значение настройки
func (r *settingsRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO app_settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, key, value)
	if err != nil {
		r.logger.Error("Failed to set setting", zap.String("key", key), zap.Error(err))
		return errors.ErrDatabaseError
	}

	return nil
}
