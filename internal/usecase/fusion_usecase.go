package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/circuit-microservice/internal/config"
	"github.com/circuit-microservice/internal/domain"
	"github.com/circuit-microservice/internal/pkg/errors"
	"github.com/circuit-microservice/internal/pkg/utils"
	"github.com/circuit-microservice/internal/usecase/dto"
)

// FusionUseCase - батч-слияние мобильного бэкапа в канонический
// GeoJSON. Движок чистый: никакого I/O, одинаковые входы дают
// побайтово одинаковый выход, сколько бы раз его ни запускали.
type FusionUseCase struct {
	logger   *zap.Logger
	cfg      *config.FusionConfig
	fieldMap domain.FieldMap
}

func NewFusionUseCase(cfg *config.FusionConfig, logger *zap.Logger) *FusionUseCase {
	return &FusionUseCase{
		logger:   logger,
		cfg:      cfg,
		fieldMap: domain.DefaultFieldMap(),
	}
}

// Analyze классифицирует расхождения между source и бэкапом.
// Ничего не изменяется: выход - три списка для review.
func (uc *FusionUseCase) Analyze(ctx context.Context, req dto.FusionAnalyzeRequest) (*dto.FusionAnalyzeResponse, error) {
	source, backup, err := uc.parseInputs(req.Source, req.Backup)
	if err != nil {
		return nil, err
	}

	resp := &dto.FusionAnalyzeResponse{}
	byID := indexFeatures(source)

	// Геометрия сверяется по features бэкапа: новый POI - это feature,
	// которой нет в source, коррекция - сдвиг между двумя геометриями
	for _, backupFeature := range backupFeatures(backup) {
		poiID := domain.PoiID(backupFeature)
		ud := backup.UserData[poiID]
		feature, known := byID[poiID]

		if !known {
			if poi := uc.classifyNew(poiID, backupFeature, ud); poi != nil {
				resp.NewPois = append(resp.NewPois, *poi)
			}
			continue
		}

		if corr := uc.classifyGPS(poiID, feature, backupFeature, ud); corr != nil {
			resp.GPSCorrections = append(resp.GPSCorrections, *corr)
		}
	}

	// Контентные обогащения живут в userData, а не в геометрии
	for _, poiID := range sortedKeys(backup.UserData) {
		ud := backup.UserData[poiID]
		resp.UnmappedFields = mergeUnmapped(resp.UnmappedFields, uc.unmappedIn(ud))

		if feature, known := byID[poiID]; known {
			resp.ContentChanges = append(resp.ContentChanges, uc.classifyContent(poiID, feature, ud)...)
		}
	}

	return resp, nil
}

// Apply применяет выбранные изменения и возвращает итоговый GeoJSON.
// Source клонируется: входные данные не мутируются, повторный прогон
// с теми же входами и выбором даёт идентичный результат.
func (uc *FusionUseCase) Apply(ctx context.Context, req dto.FusionApplyRequest) (*dto.FusionApplyResponse, error) {
	source, backup, err := uc.parseInputs(req.Source, req.Backup)
	if err != nil {
		return nil, err
	}

	byID := indexFeatures(source)
	summary := domain.FusionSummary{}

	for _, backupFeature := range backupFeatures(backup) {
		poiID := domain.PoiID(backupFeature)
		ud := backup.UserData[poiID]
		feature, known := byID[poiID]

		if !known {
			if !req.Selection.NewPois[poiID] {
				continue
			}
			if f := uc.buildNewFeature(poiID, backupFeature, ud); f != nil {
				source.Append(f)
				summary.New++
			}
			continue
		}

		if corr := uc.classifyGPS(poiID, feature, backupFeature, ud); corr != nil && req.Selection.GPSCorrections[poiID] {
			feature.Geometry = orb.Point{corr.NewLon, corr.NewLat}
			summary.GPSChanged++
		}
	}

	for _, poiID := range sortedKeys(backup.UserData) {
		ud := backup.UserData[poiID]
		feature, known := byID[poiID]
		if !known {
			continue
		}

		for _, change := range uc.classifyContent(poiID, feature, ud) {
			if !req.Selection.ContentChanges[contentKey(change)] {
				continue
			}
			feature.Properties[change.TargetField] = change.NewValue
			summary.ContentChanged++
		}
	}

	merged, err := json.Marshal(source)
	if err != nil {
		return nil, errors.ErrInternalServer
	}

	return &dto.FusionApplyResponse{
		Merged:  merged,
		Summary: summary,
	}, nil
}

func (uc *FusionUseCase) parseInputs(rawSource, rawBackup json.RawMessage) (*geojson.FeatureCollection, *domain.Backup, error) {
	source, err := geojson.UnmarshalFeatureCollection(rawSource)
	if err != nil {
		return nil, nil, errors.ErrGeoJSONMalformed
	}

	if !domain.IsBackup(rawBackup) {
		return nil, nil, errors.ErrBackupMalformed
	}
	var backup domain.Backup
	if err := json.Unmarshal(rawBackup, &backup); err != nil {
		return nil, nil, errors.ErrBackupMalformed
	}

	return source, &backup, nil
}

// classifyNew строит запись нового POI из feature бэкапа.
// Без точечной геометрии POI не переносится: ему негде стоять на карте.
func (uc *FusionUseCase) classifyNew(poiID string, backupFeature *geojson.Feature, ud domain.UserData) *domain.NewPoi {
	pt, ok := backupFeature.Geometry.(orb.Point)
	if !ok {
		return nil
	}

	return &domain.NewPoi{
		PoiID: poiID,
		Name:  domain.FeatureName(backupFeature, ud),
		Lat:   pt.Lat(),
		Lon:   pt.Lon(),
	}
}

// classifyGPS сравнивает геометрию source с геометрией бэкапа.
// Смещения меньше порога - GPS-шум, не коррекция.
func (uc *FusionUseCase) classifyGPS(poiID string, feature, backupFeature *geojson.Feature, ud domain.UserData) *domain.GPSCorrection {
	oldPt, oldOK := feature.Geometry.(orb.Point)
	newPt, newOK := backupFeature.Geometry.(orb.Point)
	if !oldOK || !newOK {
		return nil
	}

	dist := utils.HaversineDistance(oldPt.Lat(), oldPt.Lon(), newPt.Lat(), newPt.Lon())
	if dist <= uc.cfg.GPSCorrectionThreshold {
		return nil
	}

	return &domain.GPSCorrection{
		PoiID:     poiID,
		Name:      domain.FeatureName(feature, ud),
		OldLat:    oldPt.Lat(),
		OldLon:    oldPt.Lon(),
		NewLat:    newPt.Lat(),
		NewLon:    newPt.Lon(),
		DistanceM: int(math.Round(dist)),
	}
}

// classifyContent находит поля аннотаций, значение которых непусто
// и отличается от канонического. Порядок детерминирован таблицей
// соответствия, не порядком ключей словаря.
func (uc *FusionUseCase) classifyContent(poiID string, feature *geojson.Feature, ud domain.UserData) []domain.ContentChange {
	var changes []domain.ContentChange

	for _, mobileField := range sortedFieldMapKeys(uc.fieldMap) {
		targetField := uc.fieldMap[mobileField]
		newValue := ud.StringField(mobileField)
		if newValue == "" {
			continue
		}

		oldValue, _ := feature.Properties[targetField].(string)
		if newValue == oldValue {
			continue
		}

		changes = append(changes, domain.ContentChange{
			PoiID:       poiID,
			Name:        domain.FeatureName(feature, ud),
			MobileField: mobileField,
			TargetField: targetField,
			OldValue:    oldValue,
			NewValue:    newValue,
		})
	}

	return changes
}

// buildNewFeature создаёт чистую каноническую feature из feature
// бэкапа. Служебные поля мобильного клиента (userData, visited,
// planned_count, accuracy) в канонический файл не переносятся.
func (uc *FusionUseCase) buildNewFeature(poiID string, backupFeature *geojson.Feature, ud domain.UserData) *geojson.Feature {
	poi := uc.classifyNew(poiID, backupFeature, ud)
	if poi == nil {
		return nil
	}

	f := geojson.NewFeature(orb.Point{poi.Lon, poi.Lat})
	f.ID = poiID
	for key, value := range backupFeature.Properties {
		if transientFields[key] {
			continue
		}
		f.Properties[key] = value
	}
	f.Properties["HW_ID"] = poiID
	f.Properties["Nom"] = poi.Name

	for _, mobileField := range sortedFieldMapKeys(uc.fieldMap) {
		if mobileField == "custom_title" {
			continue
		}
		value := ud.StringField(mobileField)
		if value == "" {
			continue
		}
		targetField := uc.fieldMap[mobileField]
		f.Properties[targetField] = uc.normalizeValue(targetField, value, ud)
	}

	// Длительность из пары hour/minute, если строкового поля не было
	if _, has := f.Properties["Durée"]; !has {
		if d := durationFrom(ud); d != "" {
			f.Properties["Durée"] = d
		}
	}

	return f
}

// normalizeValue приводит значение к каноническому виду:
// денежные поля получают суффикс валюты
func (uc *FusionUseCase) normalizeValue(targetField, value string, ud domain.UserData) string {
	if targetField == "Prix" && !strings.HasSuffix(value, uc.cfg.CurrencySuffix) {
		if _, err := parseNumeric(value); err == nil {
			return value + uc.cfg.CurrencySuffix
		}
	}
	return value
}

// unmappedIn возвращает присутствующие в аннотациях поля
// из устаревшей таблицы слияния
func (uc *FusionUseCase) unmappedIn(ud domain.UserData) []string {
	var found []string
	for _, field := range domain.DeprecatedOnlyFields() {
		if ud.StringField(field) != "" {
			found = append(found, field)
		}
	}
	return found
}

// transientFields - мобильная бухгалтерия, которой нет места
// в каноническом файле
var transientFields = map[string]bool{
	"userData":      true,
	"accuracy":      true,
	"gps_accuracy":  true,
	"visited":       true,
	"planned_count": true,
}

// backupFeatures возвращает идентифицируемые features бэкапа
// в порядке файла; бэкап может не нести baseGeoJSON вовсе
func backupFeatures(backup *domain.Backup) []*geojson.Feature {
	if backup.BaseGeoJSON == nil {
		return nil
	}
	return domain.FilterIdentified(backup.BaseGeoJSON).Features
}

func indexFeatures(fc *geojson.FeatureCollection) map[string]*geojson.Feature {
	byID := make(map[string]*geojson.Feature, len(fc.Features))
	for _, f := range fc.Features {
		if id := domain.PoiID(f); id != "" {
			byID[id] = f
		}
	}
	return byID
}

// sortedKeys фиксирует порядок обхода словаря - обязательное условие
// воспроизводимости выхода
func sortedKeys(m map[string]domain.UserData) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedFieldMapKeys(fm domain.FieldMap) []string {
	keys := make([]string, 0, len(fm))
	for k := range fm {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func mergeUnmapped(existing, found []string) []string {
	for _, f := range found {
		dup := false
		for _, e := range existing {
			if e == f {
				dup = true
				break
			}
		}
		if !dup {
			existing = append(existing, f)
		}
	}
	return existing
}

func contentKey(c domain.ContentChange) string {
	return fmt.Sprintf("%s:%s", c.PoiID, c.MobileField)
}

func numberField(ud domain.UserData, keys ...string) (float64, bool) {
	for _, key := range keys {
		switch v := ud[key].(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case string:
			if f, err := parseNumeric(v); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

func parseNumeric(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%g", &f)
	return f, err
}

// durationFrom собирает длительность HH:MM из пары числовых полей
// мобильного клиента
func durationFrom(ud domain.UserData) string {
	hours, hOK := numberField(ud, "duration_hours", "hours")
	minutes, mOK := numberField(ud, "duration_minutes", "minutes")
	if !hOK && !mOK {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", int(hours), int(minutes))
}
