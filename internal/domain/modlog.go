package domain

import "time"

// ModLogEntry - неизменяемая запись журнала модификаций.
// Журнал append-only: ядро только пишет, обратно в состояние
// записи никогда не читаются (только экспорт для аудита).
type ModLogEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	MapID     string    `json:"map_id"`
	PoiID     string    `json:"poi_id"`
	// PoiName - снимок имени на момент изменения: POI может быть
	// переименован или удалён позже
	PoiName  string `json:"poi_name"`
	Action   string `json:"action"`
	Field    string `json:"field,omitempty"`
	OldValue string `json:"old_value,omitempty"`
	NewValue string `json:"new_value,omitempty"`
}

// Действия журнала модификаций
const (
	ModActionUpdate = "update"
	ModActionCreate = "create"
	ModActionDelete = "delete"
)
