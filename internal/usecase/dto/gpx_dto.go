package dto

// GPXImportRequest - запрос на анализ импортируемого GPX
type GPXImportRequest struct {
	MapID string `json:"map_id" validate:"required"`
	// TargetCircuitID - circuit, к которому прикрепляется трек;
	// пусто при создании нового circuit из файла
	TargetCircuitID string `json:"target_circuit_id"`
	// Content - содержимое GPX файла
	Content string `json:"content" validate:"required"`
}

// Решения анализа импорта
const (
	ImportDecisionAccepted          = "accepted"
	ImportDecisionNeedsConfirmation = "needs_confirmation"
	ImportDecisionRejected          = "rejected"
)

// Причины отказа/подтверждения - различимые, чтобы вызывающая
// сторона показала конкретное сообщение
const (
	ImportReasonWrongZone    = "wrong_zone"
	ImportReasonIDMismatch   = "id_mismatch"
	ImportReasonUserDeclined = "user_declined"
	ImportReasonNoWaypoints  = "no_matching_waypoints"
	ImportReasonProximity    = "waypoint_proximity"
)

// GPXImportDecision - результат анализа GPX импорта
type GPXImportDecision struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
	// Token выдаётся при needs_confirmation; подтверждение
	// по токену завершает импорт
	Token string `json:"token,omitempty"`
	// MatchCount - число waypoint'ов файла рядом с точками circuit
	// (только для эвристической ветки без идентификатора)
	MatchCount int `json:"match_count,omitempty"`
	// CircuitID - затронутый или созданный circuit (при accepted)
	CircuitID string `json:"circuit_id,omitempty"`
	// TrackPoints - размер принятого трека
	TrackPoints int `json:"track_points,omitempty"`
}

// GPXConfirmRequest - ответ пользователя на запрос подтверждения
type GPXConfirmRequest struct {
	Accept bool `json:"accept"`
}
