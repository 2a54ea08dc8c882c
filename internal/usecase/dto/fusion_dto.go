package dto

import (
	"encoding/json"

	"github.com/circuit-microservice/internal/domain"
)

// FusionAnalyzeRequest - два входных файла батч-слияния
type FusionAnalyzeRequest struct {
	// Source - канонический GeoJSON FeatureCollection
	Source json.RawMessage `json:"source" validate:"required"`
	// Backup - мобильный бэкап (см. domain.Backup)
	Backup json.RawMessage `json:"backup" validate:"required"`
}

// FusionAnalyzeResponse - три классифицированных списка изменений
// для внешнего review UI
type FusionAnalyzeResponse struct {
	NewPois        []domain.NewPoi        `json:"new_pois"`
	GPSCorrections []domain.GPSCorrection `json:"gps_corrections"`
	ContentChanges []domain.ContentChange `json:"content_changes"`
	// UnmappedFields - поля userData без канонического соответствия
	// (встречались только в устаревшей таблице слияния); не сливаются
	// молча - решение за оператором
	UnmappedFields []string `json:"unmapped_fields,omitempty"`
}

// FusionSelection - выбор оператора: какие изменения применять.
// Ключи - poi_id; для content changes - "poi_id:mobile_field".
type FusionSelection struct {
	NewPois        map[string]bool `json:"new_pois"`
	GPSCorrections map[string]bool `json:"gps_corrections"`
	ContentChanges map[string]bool `json:"content_changes"`
}

// FusionApplyRequest - применение выбранных изменений
type FusionApplyRequest struct {
	Source    json.RawMessage `json:"source" validate:"required"`
	Backup    json.RawMessage `json:"backup" validate:"required"`
	Selection FusionSelection `json:"selection"`
}

// FusionApplyResponse - итоговый GeoJSON и сводка
type FusionApplyResponse struct {
	Merged  json.RawMessage      `json:"merged"`
	Summary domain.FusionSummary `json:"summary"`
}
