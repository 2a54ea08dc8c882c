package dto

import "github.com/circuit-microservice/internal/domain"

// AddPoiRequest - запрос на добавление POI в черновик
type AddPoiRequest struct {
	PoiID string `json:"poi_id" validate:"required"`
}

// ReorderRequest - запрос на перестановку точки черновика
type ReorderRequest struct {
	Index     int    `json:"index" validate:"min=0"`
	Direction string `json:"direction" validate:"required,oneof=up down"`
}

// SaveCircuitRequest - запрос на сохранение черновика
type SaveCircuitRequest struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Transport   domain.TransportInfo `json:"transport"`
}

// SetVisitedRequest - запрос на смену статуса посещения
type SetVisitedRequest struct {
	MapID   string `json:"map_id" validate:"required"`
	Visited bool   `json:"visited"`
}

// ImportLinkRequest - запрос на импорт circuit из shared-ссылки
type ImportLinkRequest struct {
	MapID string `json:"map_id" validate:"required"`
	// Input - query-строка "?import=id1,id2&name=...", legacy токен
	// "hw:id1,id2" или просто список id через запятую
	Input string `json:"input" validate:"required"`
	Name  string `json:"name"`
}

// DraftResponse - состояние черновика после операции
type DraftResponse struct {
	Circuit       *domain.Circuit `json:"circuit"`
	GeneratedName string          `json:"generated_name"`
	DistanceM     float64         `json:"distance_m"`
	// ReadOnly - загружен официальный circuit, правки требуют
	// конвертации в draft
	ReadOnly bool `json:"read_only"`
}

// DeleteResult - исход удаления: ожидаемый пользовательский результат,
// а не исключение
type DeleteResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// CircuitListResponse - circuits карты
type CircuitListResponse struct {
	Circuits []*domain.Circuit `json:"circuits"`
	Total    int               `json:"total"`
}

// AnnotateRequest - частичное обновление аннотаций POI
type AnnotateRequest struct {
	Data domain.UserData `json:"data" validate:"required"`
}
