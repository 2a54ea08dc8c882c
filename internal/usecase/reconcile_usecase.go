package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/circuit-microservice/internal/config"
	"github.com/circuit-microservice/internal/domain"
	"github.com/circuit-microservice/internal/domain/repository"
	"github.com/circuit-microservice/internal/gpx"
	"github.com/circuit-microservice/internal/pkg/errors"
	"github.com/circuit-microservice/internal/pkg/utils"
	"github.com/circuit-microservice/internal/usecase/dto"
)

// pendingImport - незавершённый импорт, ожидающий подтверждения.
// Живёт в кеше с TTL: истечение равнозначно отказу пользователя.
type pendingImport struct {
	MapID           string         `json:"map_id"`
	TargetCircuitID string         `json:"target_circuit_id"`
	CircuitName     string         `json:"circuit_name"`
	Track           [][2]float64   `json:"track"`
	Waypoints       []gpx.Waypoint `json:"waypoints"`
	Reason          string         `json:"reason"`
}

// ReconcileUseCase решает, принадлежит ли импортируемый GPX файл
// целевому circuit. Порядок проверок строгий: зона карты, затем
// встроенный идентификатор, затем эвристика близости waypoint'ов.
// Идентификатор сильнее эвристики в обе стороны.
type ReconcileUseCase struct {
	circuitRepo repository.CircuitRepository
	cacheRepo   repository.CacheRepository
	sessions    *SessionStore
	logger      *zap.Logger
	cfg         *config.GPXConfig
}

func NewReconcileUseCase(
	circuitRepo repository.CircuitRepository,
	cacheRepo repository.CacheRepository,
	sessions *SessionStore,
	logger *zap.Logger,
	cfg *config.GPXConfig,
) *ReconcileUseCase {
	return &ReconcileUseCase{
		circuitRepo: circuitRepo,
		cacheRepo:   cacheRepo,
		sessions:    sessions,
		logger:      logger,
		cfg:         cfg,
	}
}

// Analyze разбирает GPX и выносит решение об импорте.
// При needs_confirmation возвращается токен: Confirm по нему
// завершает или отменяет импорт.
func (uc *ReconcileUseCase) Analyze(ctx context.Context, req dto.GPXImportRequest) (*dto.GPXImportDecision, error) {
	parsed, err := gpx.Decode([]byte(req.Content))
	if err != nil {
		if err == gpx.ErrNoTrackPoints {
			return nil, errors.ErrGPXNoPoints
		}
		return nil, errors.ErrGPXMalformed
	}

	// 1. Зона: трек целиком вне расширенного bbox карты -
	// файл от другой карты, жёсткий отказ с конкретной причиной
	if !uc.trackInMapZone(req.MapID, parsed.Track) {
		return &dto.GPXImportDecision{
			Decision: dto.ImportDecisionRejected,
			Reason:   dto.ImportReasonWrongZone,
		}, nil
	}

	var target *domain.Circuit
	if req.TargetCircuitID != "" {
		target, err = uc.circuitRepo.GetByID(ctx, req.TargetCircuitID)
		if err != nil {
			return nil, err
		}
	}

	// 2. Встроенный идентификатор - авторитетный сигнал
	if parsed.CircuitID != "" {
		if target == nil {
			// Цель не указана - импорт считается намеренной копией:
			// circuit с этим id, если он есть, не трогается,
			// файл восстанавливается как новый circuit
			circuit, err := uc.applyAsNewCircuit(ctx, req.MapID, parsed, "")
			if err != nil {
				return nil, err
			}
			return &dto.GPXImportDecision{
				Decision:    dto.ImportDecisionAccepted,
				CircuitID:   circuit.ID,
				TrackPoints: len(parsed.Track),
			}, nil
		}

		if parsed.CircuitID != target.ID {
			// Идентификаторы не совпали: эвристика не спрашивается,
			// даже если waypoint'ы идеально легли бы
			return &dto.GPXImportDecision{
				Decision: dto.ImportDecisionRejected,
				Reason:   dto.ImportReasonIDMismatch,
			}, nil
		}

		// Совпадение id принимается сразу, без вопросов
		if err := uc.applyTrack(ctx, target, parsed.Track); err != nil {
			return nil, err
		}
		return &dto.GPXImportDecision{
			Decision:    dto.ImportDecisionAccepted,
			CircuitID:   target.ID,
			TrackPoints: len(parsed.Track),
		}, nil
	}

	// 3. Файл без идентификатора: решение за пользователем,
	// эвристика близости только формирует вопрос
	matchCount := uc.countNearbyWaypoints(req.MapID, target, parsed.Waypoints)
	reason := dto.ImportReasonProximity
	if matchCount == 0 {
		reason = dto.ImportReasonNoWaypoints
	}

	token, err := uc.storePending(ctx, pendingImport{
		MapID:           req.MapID,
		TargetCircuitID: req.TargetCircuitID,
		CircuitName:     parsed.Name,
		Track:           parsed.Track,
		Waypoints:       parsed.Waypoints,
		Reason:          reason,
	})
	if err != nil {
		return nil, err
	}

	return &dto.GPXImportDecision{
		Decision:   dto.ImportDecisionNeedsConfirmation,
		Reason:     reason,
		Token:      token,
		MatchCount: matchCount,
	}, nil
}

// Confirm завершает отложенный импорт по токену.
// Отказ и истечение TTL дают один и тот же исход: данные нетронуты.
func (uc *ReconcileUseCase) Confirm(ctx context.Context, token string, req dto.GPXConfirmRequest) (*dto.GPXImportDecision, error) {
	data, err := uc.cacheRepo.Get(ctx, pendingKey(token))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, errors.ErrImportExpired
	}

	// Токен одноразовый независимо от ответа
	if err := uc.cacheRepo.Delete(ctx, pendingKey(token)); err != nil {
		uc.logger.Warn("Failed to delete pending import token", zap.Error(err))
	}

	if !req.Accept {
		return &dto.GPXImportDecision{
			Decision: dto.ImportDecisionRejected,
			Reason:   dto.ImportReasonUserDeclined,
		}, nil
	}

	var pending pendingImport
	if err := json.Unmarshal(data, &pending); err != nil {
		return nil, errors.ErrCacheError
	}

	parsed := &gpx.Parsed{
		Name:      pending.CircuitName,
		Track:     pending.Track,
		Waypoints: pending.Waypoints,
	}

	if pending.TargetCircuitID != "" {
		target, err := uc.circuitRepo.GetByID(ctx, pending.TargetCircuitID)
		if err != nil {
			return nil, err
		}
		if err := uc.applyTrack(ctx, target, pending.Track); err != nil {
			return nil, err
		}
		return &dto.GPXImportDecision{
			Decision:    dto.ImportDecisionAccepted,
			CircuitID:   target.ID,
			TrackPoints: len(pending.Track),
		}, nil
	}

	circuit, err := uc.applyAsNewCircuit(ctx, pending.MapID, parsed, "")
	if err != nil {
		return nil, err
	}
	return &dto.GPXImportDecision{
		Decision:    dto.ImportDecisionAccepted,
		CircuitID:   circuit.ID,
		TrackPoints: len(pending.Track),
	}, nil
}

// trackInMapZone проверяет, что хотя бы одна точка трека попадает
// в bbox загруженной карты, расширенный на margin. Без загруженной
// карты проверка пропускается.
func (uc *ReconcileUseCase) trackInMapZone(mapID string, track [][2]float64) bool {
	sess := uc.sessions.Session(mapID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if !sess.hasFeatures() {
		return true
	}

	minLat, maxLat := 90.0, -90.0
	minLon, maxLon := 180.0, -180.0
	for _, id := range sess.featureIDs() {
		pt, ok := sess.feature(id).Geometry.(orb.Point)
		if !ok {
			continue
		}
		if pt.Lat() < minLat {
			minLat = pt.Lat()
		}
		if pt.Lat() > maxLat {
			maxLat = pt.Lat()
		}
		if pt.Lon() < minLon {
			minLon = pt.Lon()
		}
		if pt.Lon() > maxLon {
			maxLon = pt.Lon()
		}
	}
	if minLat > maxLat {
		return true
	}

	m := uc.cfg.BBoxMarginDeg
	minLat, maxLat = minLat-m, maxLat+m
	minLon, maxLon = minLon-m, maxLon+m

	for _, p := range track {
		if p[0] >= minLat && p[0] <= maxLat && p[1] >= minLon && p[1] <= maxLon {
			return true
		}
	}
	return false
}

// countNearbyWaypoints считает waypoint'ы файла, лежащие в пределах
// допуска от точек целевого circuit (или всех POI карты, если цели нет)
func (uc *ReconcileUseCase) countNearbyWaypoints(mapID string, target *domain.Circuit, waypoints []gpx.Waypoint) int {
	sess := uc.sessions.Session(mapID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	var anchors [][2]float64
	ids := sess.featureIDs()
	if target != nil {
		ids = target.PoiIDs
	}
	for _, id := range ids {
		f := sess.feature(id)
		if f == nil {
			continue
		}
		if pt, ok := f.Geometry.(orb.Point); ok {
			anchors = append(anchors, [2]float64{pt.Lat(), pt.Lon()})
		}
	}

	count := 0
	for _, wpt := range waypoints {
		for _, a := range anchors {
			if utils.HaversineDistance(wpt.Lat, wpt.Lon, a[0], a[1]) <= uc.cfg.WaypointTolerance {
				count++
				break
			}
		}
	}
	return count
}

// applyTrack заменяет реальный трек circuit и сохраняет его.
// Список POI не трогается: файл уточняет геометрию, не состав.
func (uc *ReconcileUseCase) applyTrack(ctx context.Context, target *domain.Circuit, track [][2]float64) error {
	target.RealTrack = track
	target.UpdatedAt = time.Now()
	if err := uc.circuitRepo.Save(ctx, target); err != nil {
		return err
	}
	uc.refreshActiveDraft(ctx, target)
	return nil
}

// refreshActiveDraft перерисовывает черновик сессии, если импорт
// обновил именно загруженный сейчас circuit
func (uc *ReconcileUseCase) refreshActiveDraft(ctx context.Context, target *domain.Circuit) {
	sess := uc.sessions.Session(target.MapID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.activeCircuitID != target.ID {
		return
	}
	sess.draft = target.Copy()
	uc.writeRecoverySlot(ctx, sess)
}

// activateCircuit делает восстановленный circuit активным в сессии карты
func (uc *ReconcileUseCase) activateCircuit(ctx context.Context, circuit *domain.Circuit) {
	sess := uc.sessions.Session(circuit.MapID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.draft = circuit.Copy()
	sess.activeCircuitID = circuit.ID
	sess.activeReadOnly = false
	uc.writeRecoverySlot(ctx, sess)
}

// writeRecoverySlot вызывается под sess.mu
func (uc *ReconcileUseCase) writeRecoverySlot(ctx context.Context, sess *MapSession) {
	data, err := json.Marshal(sess.draft)
	if err != nil {
		return
	}
	if err := uc.cacheRepo.Set(ctx, recoveryKey(sess.mapID), data, 0); err != nil {
		uc.logger.Warn("Failed to save draft recovery slot",
			zap.String("map_id", sess.mapID),
			zap.Error(err))
	}
}

// applyAsNewCircuit создаёт circuit из GPX файла. Восстановить
// членство POI из waypoint'ов нельзя - список точек пустой,
// circuit несёт только трек.
func (uc *ReconcileUseCase) applyAsNewCircuit(ctx context.Context, mapID string, parsed *gpx.Parsed, circuitID string) (*domain.Circuit, error) {
	now := time.Now()
	if circuitID == "" {
		circuitID = domain.NewImportedCircuitID(now)
	}

	name := parsed.Name
	if name == "" {
		name = "Imported circuit"
	}

	circuit := &domain.Circuit{
		ID:        circuitID,
		MapID:     mapID,
		Name:      name,
		RealTrack: parsed.Track,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.circuitRepo.Save(ctx, circuit); err != nil {
		return nil, err
	}
	uc.activateCircuit(ctx, circuit)
	return circuit, nil
}

func (uc *ReconcileUseCase) storePending(ctx context.Context, pending pendingImport) (string, error) {
	token := uuid.New().String()
	data, err := json.Marshal(pending)
	if err != nil {
		return "", errors.ErrInternalServer
	}
	if err := uc.cacheRepo.Set(ctx, pendingKey(token), data, uc.cfg.PendingImportTTL); err != nil {
		return "", err
	}
	return token, nil
}

func pendingKey(token string) string {
	return "pending_import:" + token
}
