package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/circuit-microservice/internal/domain"
	"github.com/circuit-microservice/internal/domain/repository"
)

type modLogRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewModLogRepository создает новый экземпляр ModLogRepository.
// Журнал модификаций живёт в Redis Stream: XADD даёт append-only
// семантику и монотонные идентификаторы без отдельной таблицы.
func NewModLogRepository(client *redis.Client, logger *zap.Logger) repository.ModLogRepository {
	return &modLogRepository{
		client: client,
		logger: logger,
	}
}

func streamKey(mapID string) string {
	return fmt.Sprintf("modlog:%s", mapID)
}

// Append добавляет запись в журнал карты
func (r *modLogRepository) Append(ctx context.Context, entry domain.ModLogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal modlog entry: %w", err)
	}

	err = r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey(entry.MapID),
		Values: map[string]interface{}{"data": string(data)},
	}).Err()
	if err != nil {
		r.logger.Error("Failed to append modlog entry",
			zap.String("map_id", entry.MapID),
			zap.String("poi_id", entry.PoiID),
			zap.Error(err))
		return fmt.Errorf("failed to append to modlog stream: %w", err)
	}

	return nil
}

// ExportByMap возвращает записи журнала карты в порядке добавления
func (r *modLogRepository) ExportByMap(ctx context.Context, mapID string) ([]domain.ModLogEntry, error) {
	messages, err := r.client.XRange(ctx, streamKey(mapID), "-", "+").Result()
	if err != nil {
		r.logger.Error("Failed to read modlog stream",
			zap.String("map_id", mapID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to read modlog stream: %w", err)
	}

	entries := make([]domain.ModLogEntry, 0, len(messages))
	for _, msg := range messages {
		data, ok := msg.Values["data"].(string)
		if !ok {
			r.logger.Warn("Modlog message does not contain 'data' field",
				zap.String("message_id", msg.ID))
			continue
		}

		var entry domain.ModLogEntry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			r.logger.Warn("Failed to unmarshal modlog entry",
				zap.String("message_id", msg.ID),
				zap.Error(err))
			continue
		}
		entries = append(entries, entry)
	}

	return entries, nil
}
