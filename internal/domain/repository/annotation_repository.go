package repository

import (
	"context"

	"github.com/circuit-microservice/internal/domain"
)

// AnnotationRepository определяет методы для работы с аннотациями POI.
// Составной ключ записи - (map_id, poi_id).
type AnnotationRepository interface {
	// GetByPoi возвращает аннотации одной POI (nil, nil если записи нет)
	GetByPoi(ctx context.Context, mapID, poiID string) (domain.UserData, error)

	// GetAllByMap возвращает все аннотации карты, ключ - poi_id
	GetAllByMap(ctx context.Context, mapID string) (map[string]domain.UserData, error)

	// Put сохраняет частичное обновление аннотаций.
	// Семантика read-merge-before-write: существующая запись читается
	// и сливается с partial, несвязанные поля не затираются.
	Put(ctx context.Context, mapID, poiID string, partial domain.UserData) error

	// PutBatch сохраняет записи пачкой БЕЗ предварительного чтения.
	// Используется для массовых пересчётов (planned counters);
	// вызывающий обязан передавать полные записи, иначе данные
	// будут потеряны.
	PutBatch(ctx context.Context, mapID string, records map[string]domain.UserData) error
}
