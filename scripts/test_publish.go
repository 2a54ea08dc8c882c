//go:build ignore
// +build ignore

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type ModLogEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	MapID     string    `json:"map_id"`
	PoiID     string    `json:"poi_id"`
	PoiName   string    `json:"poi_name"`
	Action    string    `json:"action"`
	Field     string    `json:"field,omitempty"`
	OldValue  string    `json:"old_value,omitempty"`
	NewValue  string    `json:"new_value,omitempty"`
}

func main() {
	redisAddr := flag.String("redis", "localhost:6380", "Redis address for streams")
	mapID := flag.String("map", "map-test", "Map ID for the modlog stream")
	flag.Parse()

	client := redis.NewClient(&redis.Options{
		Addr: *redisAddr,
	})
	defer client.Close()

	ctx := context.Background()

	// Проверка подключения
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	streamKey := fmt.Sprintf("modlog:%s", *mapID)

	// Тестовая запись журнала модификаций
	entry := ModLogEntry{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		MapID:     *mapID,
		PoiID:     "poi-test-1",
		PoiName:   "Café des Épices",
		Action:    "update",
		Field:     "Notes",
		OldValue:  "",
		NewValue:  "Terrasse sur le toit",
	}

	data, err := json.Marshal(entry)
	if err != nil {
		log.Fatalf("Failed to marshal entry: %v", err)
	}

	// Публикация в стрим
	result, err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()
	if err != nil {
		log.Fatalf("Failed to publish entry: %v", err)
	}

	fmt.Printf("✅ Modlog entry published successfully!\n")
	fmt.Printf("   Stream: %s\n", streamKey)
	fmt.Printf("   Message ID: %s\n", result)
	fmt.Printf("   POI: %s (%s)\n", entry.PoiName, entry.PoiID)
	fmt.Printf("   Change: %s %q -> %q\n", entry.Field, entry.OldValue, entry.NewValue)

	// Читаем стрим обратно, чтобы убедиться что экспорт его увидит
	messages, err := client.XRange(ctx, streamKey, "-", "+").Result()
	if err != nil {
		log.Fatalf("Failed to read stream back: %v", err)
	}

	fmt.Printf("\n📋 Stream now holds %d entries:\n", len(messages))
	for _, msg := range messages {
		dataStr, ok := msg.Values["data"].(string)
		if !ok {
			continue
		}

		var e ModLogEntry
		if err := json.Unmarshal([]byte(dataStr), &e); err != nil {
			continue
		}
		fmt.Printf("   [%s] %s %s.%s\n", msg.ID, e.Action, e.PoiID, e.Field)
	}
}
