package domain

// UserData - пользовательские аннотации POI: произвольный набор полей,
// приходящий с мобильного клиента (custom_title, description, notes,
// visited, price, duration, photos, флаги). Хранится как открытый
// словарь, потому что мобильная схема эволюционирует независимо
// от канонической.
type UserData map[string]interface{}

// Merge накладывает other поверх текущих аннотаций и возвращает
// результат. Ни один из входов не изменяется. Пустые значения
// в other затирают существующие - это осознанно: снятие флага
// тоже обновление.
func (ud UserData) Merge(other UserData) UserData {
	merged := make(UserData, len(ud)+len(other))
	for k, v := range ud {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

// Visited читает флаг посещения
func (ud UserData) Visited() bool {
	v, ok := ud["visited"].(bool)
	return ok && v
}

// StringField читает строковое поле; отсутствие и не-строка дают ""
func (ud UserData) StringField(key string) string {
	s, _ := ud[key].(string)
	return s
}

// PoiAnnotation - запись аннотаций в хранилище,
// составной ключ (map_id, poi_id)
type PoiAnnotation struct {
	MapID string   `json:"map_id" db:"map_id"`
	PoiID string   `json:"poi_id" db:"poi_id"`
	Data  UserData `json:"data" db:"data"`
}
