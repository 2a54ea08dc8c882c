package domain

import (
	"fmt"
	"strings"
	"time"
)

// Префиксы идентификаторов circuit.
// HW- присваивается локально созданным circuits, circuit- приходит
// из shared-ссылок. Официальные circuits несут внешний идентификатор
// без этих префиксов.
const (
	LocalIDPrefix    = "HW-"
	ImportedIDPrefix = "circuit-"
)

// TransportInfo - как добраться до начала маршрута и обратно
type TransportInfo struct {
	OutboundTime string `json:"outbound_time,omitempty" db:"outbound_time"`
	OutboundCost string `json:"outbound_cost,omitempty" db:"outbound_cost"`
	ReturnTime   string `json:"return_time,omitempty" db:"return_time"`
	ReturnCost   string `json:"return_cost,omitempty" db:"return_cost"`
}

// Circuit - упорядоченная последовательность POI с опциональным
// реальным GPS-треком. Circuits никогда не валидны между картами.
type Circuit struct {
	ID          string   `json:"id" db:"id"`
	MapID       string   `json:"map_id" db:"map_id"`
	Name        string   `json:"name" db:"name"`
	Description string   `json:"description" db:"description"`
	PoiIDs      []string `json:"poi_ids" db:"poi_ids"`
	// RealTrack - пройденный/импортированный трек, пары [lat, lon].
	// nil означает отсутствие трека: рисуем и меряем по прямым между POI.
	RealTrack [][2]float64  `json:"real_track,omitempty" db:"real_track"`
	Transport TransportInfo `json:"transport"`
	// File - путь к опубликованному GPX файлу (только официальные circuits);
	// RealTrack из него подгружается лениво при первом открытии
	File        string    `json:"file,omitempty" db:"file"`
	IsOfficial  bool      `json:"is_official" db:"is_official"`
	IsDeleted   bool      `json:"is_deleted" db:"is_deleted"`
	IsCompleted bool      `json:"is_completed" db:"is_completed"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// NewLocalCircuitID генерирует идентификатор локально созданного circuit
func NewLocalCircuitID(now time.Time) string {
	return fmt.Sprintf("%s%d", LocalIDPrefix, now.UnixMilli())
}

// NewImportedCircuitID генерирует идентификатор circuit,
// созданного из shared-ссылки или чужого GPX
func NewImportedCircuitID(now time.Time) string {
	return fmt.Sprintf("%s%d", ImportedIDPrefix, now.UnixMilli())
}

// IsLocalID проверяет, создан ли circuit локально (ещё не официализирован)
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}

// HasRealTrack сообщает, есть ли у circuit реальный трек
func (c *Circuit) HasRealTrack() bool {
	return len(c.RealTrack) > 0
}

// IsLoop - замкнут ли маршрут (первая точка совпадает с последней)
func (c *Circuit) IsLoop() bool {
	return len(c.PoiIDs) >= 2 && c.PoiIDs[0] == c.PoiIDs[len(c.PoiIDs)-1]
}

// Copy возвращает глубокую копию circuit. Официальные circuits
// приходят из разделяемого списка - редактировать их на месте нельзя.
func (c *Circuit) Copy() *Circuit {
	cp := *c
	cp.PoiIDs = append([]string(nil), c.PoiIDs...)
	if c.RealTrack != nil {
		cp.RealTrack = append([][2]float64(nil), c.RealTrack...)
	}
	return &cp
}

// SignatureToken помечает описание, сформированное приложением.
// Save добавляет подпись ровно один раз.
const SignatureToken = "— Édité avec Circuit Editor"

// AppendSignature добавляет подпись к описанию, если её там ещё нет
func AppendSignature(description string) string {
	if strings.Contains(description, SignatureToken) {
		return description
	}
	if description == "" {
		return SignatureToken
	}
	return description + "\n" + SignatureToken
}
