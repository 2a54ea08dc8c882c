package repository

import (
	"context"

	"github.com/circuit-microservice/internal/domain"
)

// CircuitRepository определяет методы для работы с circuits
type CircuitRepository interface {
	// GetByID возвращает circuit по идентификатору,
	// включая soft-deleted записи
	GetByID(ctx context.Context, id string) (*domain.Circuit, error)

	// GetAllByMap возвращает circuits карты.
	// Soft-deleted записи исключаются, если не запрошены явно.
	GetAllByMap(ctx context.Context, mapID string, includeDeleted bool) ([]*domain.Circuit, error)

	// Save создаёт или обновляет circuit (upsert по id)
	Save(ctx context.Context, circuit *domain.Circuit) error

	// SoftDelete помечает circuit удалённым, данные сохраняются
	SoftDelete(ctx context.Context, id string) error

	// GetOfficialCompletion возвращает словарь завершённости
	// официальных circuits карты (circuit_id -> completed).
	// Статус хранится отдельно, потому что сами официальные записи
	// могут быть read-only.
	GetOfficialCompletion(ctx context.Context, mapID string) (map[string]bool, error)

	// SetOfficialCompletion выставляет завершённость официального circuit
	SetOfficialCompletion(ctx context.Context, mapID, circuitID string, completed bool) error
}
