package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/circuit-microservice/internal/domain"
	"github.com/circuit-microservice/internal/domain/repository"
	"github.com/circuit-microservice/internal/gpx"
	"github.com/circuit-microservice/internal/pkg/errors"
	"github.com/circuit-microservice/internal/pkg/utils"
	"github.com/circuit-microservice/internal/usecase/dto"
)

// CircuitUseCase - стейт-машина circuit: Draft -> Persisted-Draft ->
// Active-ReadOnly -> Tombstoned. Все мутации рабочего состояния
// проходят через методы этого usecase.
type CircuitUseCase struct {
	circuitRepo    repository.CircuitRepository
	annotationRepo repository.AnnotationRepository
	settingsRepo   repository.SettingsRepository
	cacheRepo      repository.CacheRepository
	gpxFiles       repository.GPXFileRepository
	sessions       *SessionStore
	logger         *zap.Logger
	maxPoints      int
}

func NewCircuitUseCase(
	circuitRepo repository.CircuitRepository,
	annotationRepo repository.AnnotationRepository,
	settingsRepo repository.SettingsRepository,
	cacheRepo repository.CacheRepository,
	gpxFiles repository.GPXFileRepository,
	sessions *SessionStore,
	logger *zap.Logger,
	maxPoints int,
) *CircuitUseCase {
	return &CircuitUseCase{
		circuitRepo:    circuitRepo,
		annotationRepo: annotationRepo,
		settingsRepo:   settingsRepo,
		cacheRepo:      cacheRepo,
		gpxFiles:       gpxFiles,
		sessions:       sessions,
		logger:         logger,
		maxPoints:      maxPoints,
	}
}

// Draft возвращает текущее состояние черновика карты
func (uc *CircuitUseCase) Draft(ctx context.Context, mapID string) *dto.DraftResponse {
	sess := uc.sessions.Session(mapID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	return uc.draftResponse(sess)
}

// AddPoi добавляет POI в конец черновика.
// Отказы (read-only, дубликат, переполнение) - ожидаемые
// пользовательские исходы, состояние не меняется.
func (uc *CircuitUseCase) AddPoi(ctx context.Context, mapID, poiID string) (*dto.DraftResponse, error) {
	sess := uc.sessions.Session(mapID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.activeReadOnly {
		return nil, errors.ErrCircuitReadOnly
	}

	if sess.feature(poiID) == nil {
		return nil, errors.ErrPoiNotIdentified
	}

	draft := uc.ensureDraft(sess)

	if len(draft.PoiIDs) > 0 && draft.PoiIDs[len(draft.PoiIDs)-1] == poiID {
		return nil, errors.ErrDuplicatePoint
	}
	if len(draft.PoiIDs) >= uc.maxPoints {
		return nil, errors.ErrCircuitFull
	}

	draft.PoiIDs = append(draft.PoiIDs, poiID)
	uc.saveRecoverySlot(ctx, sess)

	return uc.draftResponse(sess), nil
}

// Reorder меняет точку местами с соседней; на границах - no-op
func (uc *CircuitUseCase) Reorder(ctx context.Context, mapID string, index int, direction string) (*dto.DraftResponse, error) {
	sess := uc.sessions.Session(mapID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.activeReadOnly {
		return nil, errors.ErrCircuitReadOnly
	}

	draft := uc.ensureDraft(sess)

	swap := index - 1
	if direction == "down" {
		swap = index + 1
	}

	if index >= 0 && index < len(draft.PoiIDs) && swap >= 0 && swap < len(draft.PoiIDs) {
		draft.PoiIDs[index], draft.PoiIDs[swap] = draft.PoiIDs[swap], draft.PoiIDs[index]
		uc.saveRecoverySlot(ctx, sess)
	}

	return uc.draftResponse(sess), nil
}

// RemovePoint удаляет точку черновика по индексу.
// RemovedPoiID возвращается, чтобы открытая карточка деталей
// могла закрыться вместо ссылки на несуществующий индекс.
func (uc *CircuitUseCase) RemovePoint(ctx context.Context, mapID string, index int) (*dto.DraftResponse, string, error) {
	sess := uc.sessions.Session(mapID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.activeReadOnly {
		return nil, "", errors.ErrCircuitReadOnly
	}

	draft := uc.ensureDraft(sess)
	if index < 0 || index >= len(draft.PoiIDs) {
		return nil, "", errors.ErrInvalidRequest
	}

	removed := draft.PoiIDs[index]
	draft.PoiIDs = append(draft.PoiIDs[:index], draft.PoiIDs[index+1:]...)
	uc.saveRecoverySlot(ctx, sess)

	return uc.draftResponse(sess), removed, nil
}

// Loop замыкает маршрут, добавляя первую точку в конец.
// Guard на дубликат здесь намеренно обходится: замыкание и есть
// повторное добавление стартовой точки. Лимит ёмкости действует.
func (uc *CircuitUseCase) Loop(ctx context.Context, mapID string) (*dto.DraftResponse, error) {
	sess := uc.sessions.Session(mapID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.activeReadOnly {
		return nil, errors.ErrCircuitReadOnly
	}

	draft := uc.ensureDraft(sess)
	if len(draft.PoiIDs) == 0 {
		return nil, errors.ErrInvalidRequest
	}
	if len(draft.PoiIDs) >= uc.maxPoints {
		return nil, errors.ErrCircuitFull
	}

	draft.PoiIDs = append(draft.PoiIDs, draft.PoiIDs[0])
	uc.saveRecoverySlot(ctx, sess)

	return uc.draftResponse(sess), nil
}

// Save присваивает черновику идентификатор (при первом сохранении)
// и сохраняет его. Подпись добавляется к описанию ровно один раз.
// После сохранения пересчитываются planned counters карты.
func (uc *CircuitUseCase) Save(ctx context.Context, mapID string, req dto.SaveCircuitRequest) (*domain.Circuit, error) {
	sess := uc.sessions.Session(mapID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.activeReadOnly {
		return nil, errors.ErrCircuitReadOnly
	}

	draft := uc.ensureDraft(sess)

	name := strings.TrimSpace(req.Name)
	if name == "" {
		// Сгенерированное имя - это default, явное имя пользователя
		// побеждает навсегда. Генератор всегда что-то возвращает,
		// вплоть до плейсхолдера для пустого черновика.
		name = uc.generateName(sess, draft)
	}

	draft.Name = name
	draft.Description = domain.AppendSignature(req.Description)
	draft.Transport = req.Transport
	draft.MapID = mapID

	if draft.ID == "" {
		draft.ID = domain.NewLocalCircuitID(time.Now())
		draft.CreatedAt = time.Now()
	}
	draft.UpdatedAt = time.Now()

	// Запись должна завершиться до ответа об успехе: сбой между
	// "сообщили успех" и "записали" оставил бы данные несогласованными
	if err := uc.circuitRepo.Save(ctx, draft); err != nil {
		return nil, err
	}

	sess.activeCircuitID = draft.ID
	sess.activeReadOnly = false
	uc.saveRecoverySlot(ctx, sess)

	// Членство в circuits влияет на стилизацию маркеров -
	// пересчитываем счётчики по всей карте
	uc.recomputePlannedCounters(ctx, mapID)

	saved := draft.Copy()
	return saved, nil
}

// Delete выполняет soft-delete. Официальные circuits без админского
// режима не удаляются - это ожидаемый исход, а не ошибка.
func (uc *CircuitUseCase) Delete(ctx context.Context, mapID, id string) (*dto.DeleteResult, error) {
	circuit, err := uc.circuitRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if circuit.IsOfficial {
		adminMode, err := uc.settingsRepo.Get(ctx, repository.SettingAdminMode)
		if err != nil {
			return nil, err
		}
		if adminMode != "true" {
			return &dto.DeleteResult{
				Success: false,
				Message: "Official circuits cannot be deleted",
			}, nil
		}
	}

	if err := uc.circuitRepo.SoftDelete(ctx, id); err != nil {
		return nil, err
	}

	sess := uc.sessions.Session(mapID)
	sess.mu.Lock()
	if sess.activeCircuitID == id {
		sess.activeCircuitID = ""
		sess.activeReadOnly = false
		sess.draft = nil
		uc.clearRecoverySlot(ctx, sess)
	}
	sess.mu.Unlock()

	uc.recomputePlannedCounters(ctx, mapID)

	return &dto.DeleteResult{
		Success: true,
		Message: "Circuit deleted",
	}, nil
}

// SetVisited переключает статус посещения. Для официальных circuits
// статус живёт в отдельном словаре карты (их записи могут быть
// read-only), для локальных - в самой записи.
func (uc *CircuitUseCase) SetVisited(ctx context.Context, mapID, id string, visited bool) error {
	circuit, err := uc.circuitRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if circuit.IsOfficial {
		return uc.circuitRepo.SetOfficialCompletion(ctx, mapID, id, visited)
	}

	circuit.IsCompleted = visited
	return uc.circuitRepo.Save(ctx, circuit)
}

// LoadByID загружает circuit для просмотра. Официальный circuit
// копируется (разделяемый список нельзя мутировать) и становится
// Active-ReadOnly. Если у записи есть file без загруженного трека,
// GPX подтягивается лениво - один раз, результат сохраняется.
func (uc *CircuitUseCase) LoadByID(ctx context.Context, mapID, id string) (*dto.DraftResponse, error) {
	circuit, err := uc.circuitRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if circuit.File != "" && !circuit.HasRealTrack() {
		if err := uc.hydrateRealTrack(ctx, circuit); err != nil {
			// Гидратация не должна блокировать просмотр:
			// трек останется прямыми линиями
			uc.logger.Warn("Failed to hydrate real track",
				zap.String("circuit_id", id),
				zap.Error(err))
		}
	}

	sess := uc.sessions.Session(mapID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.draft = circuit.Copy()
	sess.activeCircuitID = circuit.ID
	sess.activeReadOnly = circuit.IsOfficial
	uc.saveRecoverySlot(ctx, sess)

	return uc.draftResponse(sess), nil
}

// ConvertToDraft отвязывает активный circuit: id сбрасывается,
// список точек остаётся. Единственный путь к редактированию
// официального circuit.
func (uc *CircuitUseCase) ConvertToDraft(ctx context.Context, mapID string) (*dto.DraftResponse, error) {
	sess := uc.sessions.Session(mapID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.draft == nil {
		return nil, errors.ErrInvalidRequest
	}

	sess.draft.ID = ""
	sess.draft.IsOfficial = false
	sess.draft.File = ""
	sess.activeCircuitID = ""
	sess.activeReadOnly = false
	uc.saveRecoverySlot(ctx, sess)

	return uc.draftResponse(sess), nil
}

// ImportFromShareLink создаёт circuit из shared-ссылки.
// POI, отсутствующие на загруженной карте, молча отбрасываются;
// ошибка только если не нашлось ни одной.
func (uc *CircuitUseCase) ImportFromShareLink(ctx context.Context, req dto.ImportLinkRequest) (*domain.Circuit, error) {
	ids, name := parseShareLink(req.Input)
	if req.Name != "" {
		name = req.Name
	}

	sess := uc.sessions.Session(req.MapID)
	sess.mu.Lock()

	var resolved []string
	for _, id := range ids {
		if sess.feature(id) != nil {
			resolved = append(resolved, id)
		}
	}

	if len(resolved) == 0 {
		sess.mu.Unlock()
		return nil, errors.ErrShareLinkNoMatches
	}

	now := time.Now()
	circuit := &domain.Circuit{
		ID:        domain.NewImportedCircuitID(now),
		MapID:     req.MapID,
		PoiIDs:    resolved,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if name != "" {
		circuit.Name = name
	} else {
		circuit.Name = uc.generateName(sess, circuit)
	}
	sess.mu.Unlock()

	if err := uc.circuitRepo.Save(ctx, circuit); err != nil {
		return nil, err
	}

	sess.mu.Lock()
	sess.draft = circuit.Copy()
	sess.activeCircuitID = circuit.ID
	sess.activeReadOnly = false
	uc.saveRecoverySlot(ctx, sess)
	sess.mu.Unlock()

	return circuit, nil
}

// List возвращает circuits карты; официальным подставляется
// статус завершённости из словаря карты
func (uc *CircuitUseCase) List(ctx context.Context, mapID string) (*dto.CircuitListResponse, error) {
	circuits, err := uc.circuitRepo.GetAllByMap(ctx, mapID, false)
	if err != nil {
		return nil, err
	}

	var completion map[string]bool
	for _, c := range circuits {
		if !c.IsOfficial {
			continue
		}
		if completion == nil {
			completion, err = uc.circuitRepo.GetOfficialCompletion(ctx, mapID)
			if err != nil {
				return nil, err
			}
		}
		c.IsCompleted = completion[c.ID]
	}

	return &dto.CircuitListResponse{
		Circuits: circuits,
		Total:    len(circuits),
	}, nil
}

// ExportGPX сериализует circuit в GPX файл
func (uc *CircuitUseCase) ExportGPX(ctx context.Context, mapID, id string) (string, []byte, error) {
	circuit, err := uc.circuitRepo.GetByID(ctx, id)
	if err != nil {
		return "", nil, err
	}

	sess := uc.sessions.Session(mapID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	doc := gpx.Document{
		Name:      circuit.Name,
		CircuitID: circuit.ID,
	}

	for _, poiID := range circuit.PoiIDs {
		f := sess.feature(poiID)
		if f == nil {
			continue
		}
		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			continue
		}
		doc.Waypoints = append(doc.Waypoints, gpx.Waypoint{
			Lat:  pt.Lat(),
			Lon:  pt.Lon(),
			Name: domain.FeatureName(f, nil),
			Desc: stringProp(f, "Description"),
			Link: stringProp(f, "Site web"),
		})
	}

	if circuit.HasRealTrack() {
		doc.Track = circuit.RealTrack
	} else {
		// Fallback: трек из последовательности POI по прямым
		for _, wpt := range doc.Waypoints {
			doc.Track = append(doc.Track, [2]float64{wpt.Lat, wpt.Lon})
		}
	}

	filename := fmt.Sprintf("%s.gpx", sanitizeFilename(circuit.Name))
	return filename, gpx.Encode(doc), nil
}

// ---- внутреннее ----

// ensureDraft возвращает черновик сессии, создавая пустой при
// необходимости. Вызывается под sess.mu.
func (uc *CircuitUseCase) ensureDraft(sess *MapSession) *domain.Circuit {
	if sess.draft == nil {
		sess.draft = &domain.Circuit{MapID: sess.mapID}
	}
	return sess.draft
}

func (uc *CircuitUseCase) draftResponse(sess *MapSession) *dto.DraftResponse {
	draft := sess.draft
	if draft == nil {
		draft = &domain.Circuit{MapID: sess.mapID}
	}
	return &dto.DraftResponse{
		Circuit:       draft,
		GeneratedName: uc.generateName(sess, draft),
		DistanceM:     uc.distance(sess, draft),
		ReadOnly:      sess.activeReadOnly,
	}
}

// generateName строит имя по текущему списку точек.
// Детеминированное, служит default'ом до явного имени пользователя.
func (uc *CircuitUseCase) generateName(sess *MapSession, c *domain.Circuit) string {
	names := make([]string, 0, len(c.PoiIDs))
	for _, id := range c.PoiIDs {
		f := sess.feature(id)
		if f == nil {
			names = append(names, id)
			continue
		}
		names = append(names, domain.FeatureName(f, nil))
	}

	switch {
	case len(names) == 0:
		return "New Circuit"
	case len(names) == 1:
		return fmt.Sprintf("Starting from %s", names[0])
	case names[0] == names[len(names)-1]:
		name := fmt.Sprintf("Loop around %s", names[0])
		mid := names[len(names)/2]
		if mid != names[0] {
			name += fmt.Sprintf(" via %s", mid)
		}
		return name
	default:
		name := fmt.Sprintf("Circuit from %s to %s", names[0], names[len(names)-1])
		if len(names) >= 3 {
			mid := names[len(names)/2]
			if mid != names[0] && mid != names[len(names)-1] {
				name += fmt.Sprintf(" via %s", mid)
			}
		}
		return name
	}
}

// distance считает длину circuit: по реальному треку, если он есть,
// иначе ортодромия по последовательным POI
func (uc *CircuitUseCase) distance(sess *MapSession, c *domain.Circuit) float64 {
	if c.HasRealTrack() {
		var total float64
		for i := 1; i < len(c.RealTrack); i++ {
			total += utils.HaversineDistance(
				c.RealTrack[i-1][0], c.RealTrack[i-1][1],
				c.RealTrack[i][0], c.RealTrack[i][1],
			)
		}
		return total
	}

	var total float64
	var prev *orb.Point
	for _, id := range c.PoiIDs {
		f := sess.feature(id)
		if f == nil {
			continue
		}
		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			continue
		}
		if prev != nil {
			total += utils.HaversineDistance(prev.Lat(), prev.Lon(), pt.Lat(), pt.Lon())
		}
		prev = &pt
	}
	return total
}

// hydrateRealTrack подтягивает реальный трек из опубликованного GPX
// и сохраняет запись - повторных загрузок не будет
func (uc *CircuitUseCase) hydrateRealTrack(ctx context.Context, circuit *domain.Circuit) error {
	data, err := uc.gpxFiles.Fetch(ctx, circuit.File)
	if err != nil {
		return errors.ErrGPXFetchFailed
	}

	parsed, err := gpx.Decode(data)
	if err != nil {
		return errors.ErrGPXMalformed
	}

	circuit.RealTrack = parsed.Track
	return uc.circuitRepo.Save(ctx, circuit)
}

// recomputePlannedCounters пересчитывает, сколько circuits ссылаются
// на каждую POI карты. Ошибки здесь не фатальны: частичный успех
// принимается и логируется, автоматических ретраев нет.
func (uc *CircuitUseCase) recomputePlannedCounters(ctx context.Context, mapID string) {
	circuits, err := uc.circuitRepo.GetAllByMap(ctx, mapID, false)
	if err != nil {
		uc.logger.Warn("Planned counters recompute skipped",
			zap.String("map_id", mapID),
			zap.Error(err))
		return
	}

	counts := make(map[string]int)
	for _, c := range circuits {
		seen := make(map[string]bool)
		for _, poiID := range c.PoiIDs {
			if !seen[poiID] {
				counts[poiID]++
				seen[poiID] = true
			}
		}
	}

	annotations, err := uc.annotationRepo.GetAllByMap(ctx, mapID)
	if err != nil {
		uc.logger.Warn("Planned counters recompute skipped",
			zap.String("map_id", mapID),
			zap.Error(err))
		return
	}

	// Пакетная запись без read-merge: записи собираются полными
	// (существующие аннотации + новый счётчик)
	records := make(map[string]domain.UserData)
	for poiID, count := range counts {
		record := annotations[poiID]
		if record == nil {
			record = domain.UserData{}
		}
		records[poiID] = record.Merge(domain.UserData{"planned_count": count})
	}
	for poiID, record := range annotations {
		if _, planned := counts[poiID]; planned {
			continue
		}
		if _, had := record["planned_count"]; had {
			records[poiID] = record.Merge(domain.UserData{"planned_count": 0})
		}
	}

	if err := uc.annotationRepo.PutBatch(ctx, mapID, records); err != nil {
		uc.logger.Warn("Planned counters batch write failed",
			zap.String("map_id", mapID),
			zap.Error(err))
	}
}

// saveRecoverySlot сохраняет черновик в recovery-слот после каждой
// мутации - восстановление после падения клиента
func (uc *CircuitUseCase) saveRecoverySlot(ctx context.Context, sess *MapSession) {
	if sess.draft == nil {
		return
	}
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

func (uc *CircuitUseCase) clearRecoverySlot(ctx context.Context, sess *MapSession) {
	if err := uc.cacheRepo.Delete(ctx, recoveryKey(sess.mapID)); err != nil {
		uc.logger.Warn("Failed to clear draft recovery slot",
			zap.String("map_id", sess.mapID),
			zap.Error(err))
	}
}

func recoveryKey(mapID string) string {
	return fmt.Sprintf("draft:%s", mapID)
}

// parseShareLink разбирает три формата shared-ссылки:
// query "?import=id1,id2&name=...", legacy "hw:id1,id2"
// и сырой список id через запятую
func parseShareLink(input string) (ids []string, name string) {
	input = strings.TrimSpace(input)

	if idx := strings.Index(input, "import="); idx >= 0 {
		query := input[idx:]
		if q := strings.Index(input, "?"); q >= 0 && q < idx {
			query = input[q+1:]
		}
		if values, err := url.ParseQuery(query); err == nil {
			ids = splitIDs(values.Get("import"))
			name = values.Get("name")
			return ids, name
		}
	}

	if strings.HasPrefix(input, "hw:") {
		return splitIDs(strings.TrimPrefix(input, "hw:")), ""
	}

	return splitIDs(input), ""
}

func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids
}

func stringProp(f *geojson.Feature, key string) string {
	if v, ok := f.Properties[key].(string); ok {
		return v
	}
	return ""
}

func sanitizeFilename(name string) string {
	if name == "" {
		return "circuit"
	}
	replacer := strings.NewReplacer("/", "-", "\\", "-", ":", "-", "*", "", "?", "", "\"", "", "<", "", ">", "", "|", "")
	return replacer.Replace(name)
}
