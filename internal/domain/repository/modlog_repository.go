package repository

import (
	"context"

	"github.com/circuit-microservice/internal/domain"
)

// ModLogRepository - append-only журнал модификаций.
// Записи никогда не обновляются и не читаются обратно в состояние,
// только добавляются и экспортируются для аудита.
type ModLogRepository interface {
	// Append добавляет запись в журнал
	Append(ctx context.Context, entry domain.ModLogEntry) error

	// ExportByMap возвращает все записи карты в порядке добавления
	ExportByMap(ctx context.Context, mapID string) ([]domain.ModLogEntry, error)
}
