package usecase

import (
	"sync"

	"github.com/paulmach/orb/geojson"

	"github.com/circuit-microservice/internal/domain"
)

// MapSession - рабочее состояние одной карты: загруженные features
// и текущий черновик circuit. Оригинальный редактор держал это
// в одном глобальном мутабельном объекте; здесь состояние закрыто
// за именованными операциями usecase-слоя, напрямую поля снаружи
// не трогаются.
//
// Дисциплина single-writer: каждая операция - одна логическая
// транзакция под mu, две мутации не могут перемежаться.
type MapSession struct {
	mu sync.Mutex

	mapID string

	// features по poi_id; order сохраняет порядок загрузки
	features map[string]*geojson.Feature
	order    []string

	// draft - текущий рабочий circuit (стейт Draft / Persisted-Draft)
	draft *domain.Circuit

	// activeCircuitID - id загруженного circuit ("" в чистом Draft)
	activeCircuitID string

	// activeReadOnly - circuit загружен из официального списка,
	// правки запрещены до конвертации в draft
	activeReadOnly bool
}

// SessionStore - реестр сессий по картам
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*MapSession
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*MapSession),
	}
}

// Session возвращает сессию карты, создавая её при необходимости
func (s *SessionStore) Session(mapID string) *MapSession {
	s.mu.RLock()
	sess, ok := s.sessions[mapID]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[mapID]; ok {
		return sess
	}

	sess = &MapSession{
		mapID:    mapID,
		features: make(map[string]*geojson.Feature),
	}
	s.sessions[mapID] = sess
	return sess
}

// setFeatures заменяет загруженные features карты
func (m *MapSession) setFeatures(fc *geojson.FeatureCollection) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.features = make(map[string]*geojson.Feature, len(fc.Features))
	m.order = m.order[:0]
	for _, f := range fc.Features {
		id := domain.PoiID(f)
		if _, dup := m.features[id]; !dup {
			m.order = append(m.order, id)
		}
		m.features[id] = f
	}
	return len(m.features)
}

// feature возвращает feature по id (nil если не загружена)
func (m *MapSession) feature(poiID string) *geojson.Feature {
	return m.features[poiID]
}

// featureIDs возвращает идентификаторы загруженных features
// в порядке загрузки
func (m *MapSession) featureIDs() []string {
	return m.order
}

// hasFeatures сообщает, загружена ли карта
func (m *MapSession) hasFeatures() bool {
	return len(m.features) > 0
}
