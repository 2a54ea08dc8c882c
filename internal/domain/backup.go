package domain

import (
	"encoding/json"

	"github.com/paulmach/orb/geojson"
)

// Backup - экспортируемый/импортируемый снимок данных пользователя
type Backup struct {
	BackupVersion string                     `json:"backupVersion"`
	Date          string                     `json:"date"`
	MapID         string                     `json:"mapId"`
	BaseGeoJSON   *geojson.FeatureCollection `json:"baseGeoJSON,omitempty"`
	UserData      map[string]UserData        `json:"userData,omitempty"`
	MyCircuits    []*Circuit                 `json:"myCircuits,omitempty"`
	HiddenPoiIDs  []string                   `json:"hiddenPoiIds,omitempty"`
}

// IsBackup проверяет, является ли произвольный JSON файлом бэкапа:
// нужен backupVersion и хотя бы один из baseGeoJSON / userData
func IsBackup(raw []byte) bool {
	var head struct {
		BackupVersion string          `json:"backupVersion"`
		BaseGeoJSON   json.RawMessage `json:"baseGeoJSON"`
		UserData      json.RawMessage `json:"userData"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return false
	}
	if head.BackupVersion == "" {
		return false
	}
	return len(head.BaseGeoJSON) > 0 || len(head.UserData) > 0
}
