package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/circuit-microservice/internal/config"
	"github.com/circuit-microservice/internal/domain"
	"github.com/circuit-microservice/internal/domain/repository"
	"github.com/circuit-microservice/internal/pkg/errors"
	"github.com/circuit-microservice/internal/pkg/utils"
	"github.com/circuit-microservice/internal/usecase/dto"
)

// MapUseCase - загрузка базового GeoJSON, аннотации POI,
// журнал модификаций и экспорт бэкапа
type MapUseCase struct {
	annotationRepo repository.AnnotationRepository
	circuitRepo    repository.CircuitRepository
	modLogRepo     repository.ModLogRepository
	cacheRepo      repository.CacheRepository
	sessions       *SessionStore
	logger         *zap.Logger
	cfg            *config.CircuitConfig
}

func NewMapUseCase(
	annotationRepo repository.AnnotationRepository,
	circuitRepo repository.CircuitRepository,
	modLogRepo repository.ModLogRepository,
	cacheRepo repository.CacheRepository,
	sessions *SessionStore,
	logger *zap.Logger,
	cfg *config.CircuitConfig,
) *MapUseCase {
	return &MapUseCase{
		annotationRepo: annotationRepo,
		circuitRepo:    circuitRepo,
		modLogRepo:     modLogRepo,
		cacheRepo:      cacheRepo,
		sessions:       sessions,
		logger:         logger,
		cfg:            cfg,
	}
}

// LoadGeoJSON загружает базовый слой карты в сессию.
// Features без распознаваемого id отбрасываются: к ним невозможно
// привязать ни аннотации, ни членство в circuits.
func (uc *MapUseCase) LoadGeoJSON(ctx context.Context, mapID string, raw []byte) (loaded, dropped int, err error) {
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return 0, 0, errors.ErrGeoJSONMalformed
	}

	// Полигоны зон читаются до фильтрации: у них обычно нет id
	if zones := zonePolygons(fc); len(zones) != 0 {
		assignZones(fc, zones)
	}

	identified := domain.FilterIdentified(fc)
	dropped = len(fc.Features) - len(identified.Features)
	if dropped > 0 {
		uc.logger.Warn("Dropped features without identity",
			zap.String("map_id", mapID),
			zap.Int("dropped", dropped))
	}

	sess := uc.sessions.Session(mapID)
	loaded = sess.setFeatures(identified)

	return loaded, dropped, nil
}

// zonePolygons извлекает именованные полигоны базового слоя.
// Полигон без имени бесполезен как зона и пропускается.
func zonePolygons(fc *geojson.FeatureCollection) []utils.ZonePolygon {
	var zones []utils.ZonePolygon
	for _, f := range fc.Features {
		poly, ok := f.Geometry.(orb.Polygon)
		if !ok || len(poly) == 0 {
			continue
		}

		name, _ := f.Properties["Nom"].(string)
		if name == "" {
			name, _ = f.Properties["name"].(string)
		}
		if name == "" {
			continue
		}

		ring := make([][2]float64, 0, len(poly[0]))
		for _, pt := range poly[0] {
			ring = append(ring, [2]float64{pt[0], pt[1]})
		}
		zones = append(zones, utils.ZonePolygon{Name: name, Ring: ring})
	}
	return zones
}

// assignZones проставляет точечным POI метку зоны. Точка вне всех
// полигонов получает явный ZoneNone; карта без полигонов не трогает
// поле вовсе - зона остаётся невычисленной.
func assignZones(fc *geojson.FeatureCollection, zones []utils.ZonePolygon) {
	for _, f := range fc.Features {
		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			continue
		}
		if existing, ok := f.Properties["zone"].(string); ok && existing != "" {
			continue
		}
		f.Properties["zone"] = utils.ZoneForPoint(pt.Lat(), pt.Lon(), zones)
	}
}

// Annotate применяет частичное обновление аннотаций POI.
// Каждое изменившееся поле попадает в журнал модификаций;
// сбой журнала не откатывает саму запись.
func (uc *MapUseCase) Annotate(ctx context.Context, mapID, poiID string, req dto.AnnotateRequest) (domain.UserData, error) {
	sess := uc.sessions.Session(mapID)
	sess.mu.Lock()
	feature := sess.feature(poiID)
	mapLoaded := sess.hasFeatures()
	sess.mu.Unlock()

	if mapLoaded && feature == nil {
		return nil, errors.ErrPoiNotIdentified
	}

	existing, err := uc.annotationRepo.GetByPoi(ctx, mapID, poiID)
	if err != nil {
		return nil, err
	}

	if err := uc.annotationRepo.Put(ctx, mapID, poiID, req.Data); err != nil {
		return nil, err
	}

	merged := existing.Merge(req.Data)
	uc.logChanges(ctx, mapID, poiID, domain.FeatureName(feature, merged), existing, req.Data)

	return merged, nil
}

// Annotations возвращает все аннотации карты
func (uc *MapUseCase) Annotations(ctx context.Context, mapID string) (map[string]domain.UserData, error) {
	return uc.annotationRepo.GetAllByMap(ctx, mapID)
}

// ExportBackup собирает полный снимок данных карты
func (uc *MapUseCase) ExportBackup(ctx context.Context, mapID string) (*domain.Backup, error) {
	userData, err := uc.annotationRepo.GetAllByMap(ctx, mapID)
	if err != nil {
		return nil, err
	}

	circuits, err := uc.circuitRepo.GetAllByMap(ctx, mapID, false)
	if err != nil {
		return nil, err
	}

	var hidden []string
	for poiID, data := range userData {
		if v, ok := data["hidden"].(bool); ok && v {
			hidden = append(hidden, poiID)
		}
	}

	backup := &domain.Backup{
		BackupVersion: "1.0",
		Date:          time.Now().Format(time.RFC3339),
		MapID:         mapID,
		UserData:      userData,
		MyCircuits:    circuits,
		HiddenPoiIDs:  hidden,
	}

	sess := uc.sessions.Session(mapID)
	sess.mu.Lock()
	if sess.hasFeatures() {
		fc := geojson.NewFeatureCollection()
		for _, id := range sess.featureIDs() {
			fc.Append(sess.feature(id))
		}
		backup.BaseGeoJSON = fc
	}
	sess.mu.Unlock()

	return backup, nil
}

// PoiClusters группирует загруженные POI по близости: транзитивное
// замыкание по порогу кластеризации, выбросы отсеиваются отдельно.
// Карта не загружена - пустой результат, это не ошибка.
func (uc *MapUseCase) PoiClusters(ctx context.Context, mapID string) (*dto.PoiClustersResponse, error) {
	sess := uc.sessions.Session(mapID)
	sess.mu.Lock()
	var ids []string
	var points []utils.LatLon
	for _, id := range sess.featureIDs() {
		pt, ok := sess.feature(id).Geometry.(orb.Point)
		if !ok {
			continue
		}
		ids = append(ids, id)
		points = append(points, utils.LatLon{Lat: pt.Lat(), Lon: pt.Lon()})
	}
	sess.mu.Unlock()

	resp := &dto.PoiClustersResponse{}
	if len(points) == 0 {
		return resp, nil
	}

	resp.OutlierPoiIDs = uc.outlierIDs(ids, points)
	outlier := make(map[string]bool, len(resp.OutlierPoiIDs))
	for _, id := range resp.OutlierPoiIDs {
		outlier[id] = true
	}

	// Кластеризуем только основную группу
	var mainIDs []string
	var mainPoints []utils.LatLon
	for i, id := range ids {
		if !outlier[id] {
			mainIDs = append(mainIDs, id)
			mainPoints = append(mainPoints, points[i])
		}
	}

	for _, cluster := range utils.ClusterByProximity(mainPoints, uc.cfg.ClusterThreshold) {
		group := dto.PoiCluster{}
		members := make([]utils.LatLon, 0, len(cluster))
		for _, idx := range cluster {
			group.PoiIDs = append(group.PoiIDs, mainIDs[idx])
			members = append(members, mainPoints[idx])
		}
		group.Center = *utils.Barycenter(members)
		resp.Clusters = append(resp.Clusters, group)
	}

	return resp, nil
}

// outlierIDs возвращает идентификаторы POI, отсеянных FilterOutliers.
// Сопоставление по координатам: FilterOutliers возвращает те же
// значения, что получил на вход.
func (uc *MapUseCase) outlierIDs(ids []string, points []utils.LatLon) []string {
	_, outliers := utils.FilterOutliers(points, uc.cfg.OutlierThreshold)
	if len(outliers) == 0 {
		return nil
	}

	used := make([]bool, len(points))
	var result []string
	for _, o := range outliers {
		for i, p := range points {
			if !used[i] && p == o {
				used[i] = true
				result = append(result, ids[i])
				break
			}
		}
	}
	return result
}

// ExportModLog возвращает журнал модификаций карты
func (uc *MapUseCase) ExportModLog(ctx context.Context, mapID string) ([]domain.ModLogEntry, error) {
	return uc.modLogRepo.ExportByMap(ctx, mapID)
}

// RecoverDraft восстанавливает черновик из recovery-слота
// после падения клиента. Отсутствие слота - не ошибка.
func (uc *MapUseCase) RecoverDraft(ctx context.Context, mapID string) (*domain.Circuit, error) {
	data, err := uc.cacheRepo.Get(ctx, recoveryKey(mapID))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	var draft domain.Circuit
	if err := json.Unmarshal(data, &draft); err != nil {
		uc.logger.Warn("Corrupt draft recovery slot",
			zap.String("map_id", mapID),
			zap.Error(err))
		return nil, nil
	}

	sess := uc.sessions.Session(mapID)
	sess.mu.Lock()
	sess.draft = &draft
	sess.activeCircuitID = draft.ID
	sess.activeReadOnly = false
	sess.mu.Unlock()

	return &draft, nil
}

// logChanges пишет в журнал по записи на каждое фактически
// изменившееся поле
func (uc *MapUseCase) logChanges(ctx context.Context, mapID, poiID, poiName string, before, partial domain.UserData) {
	for field, newValue := range partial {
		oldValue, had := before[field]
		if had && reflect.DeepEqual(oldValue, newValue) {
			continue
		}

		action := domain.ModActionUpdate
		if !had {
			action = domain.ModActionCreate
		}

		entry := domain.ModLogEntry{
			ID:        uuid.New().String(),
			Timestamp: time.Now(),
			MapID:     mapID,
			PoiID:     poiID,
			PoiName:   poiName,
			Action:    action,
			Field:     field,
			OldValue:  stringifyValue(oldValue),
			NewValue:  stringifyValue(newValue),
		}

		if err := uc.modLogRepo.Append(ctx, entry); err != nil {
			uc.logger.Warn("Failed to append modification log entry",
				zap.String("poi_id", poiID),
				zap.String("field", field),
				zap.Error(err))
		}
	}
}

func stringifyValue(v interface{}) string {
	if v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
