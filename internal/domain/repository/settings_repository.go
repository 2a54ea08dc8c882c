package repository

import "context"

// SettingsRepository - singleton key/value настройки приложения
type SettingsRepository interface {
	// Get возвращает значение настройки ("" если не задана)
	Get(ctx context.Context, key string) (string, error)

	// Set сохраняет значение настройки
	Set(ctx context.Context, key, value string) error
}

// Ключи настроек
const (
	// SettingAdminMode - админский режим снимает запрет
	// на удаление официальных circuits
	SettingAdminMode = "admin_mode"
)
