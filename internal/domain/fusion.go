package domain

// FieldMap - декларативное соответствие ключей мобильных аннотаций
// каноническим свойствам source GeoJSON. Таблица - часть контракта
// слияния: новые поля добавляются здесь, не в коде движка.
type FieldMap map[string]string

// DefaultFieldMap - соответствие, используемое в продакшене.
// Ключ - поле userData мобильного клиента, значение - свойство
// канонического GeoJSON.
func DefaultFieldMap() FieldMap {
	return FieldMap{
		"custom_title": "Nom",
		"description":  "Description",
		"notes":        "Notes",
		"price":        "Prix",
		"duration":     "Durée",
		"phone":        "Téléphone",
		"website":      "Site web",
		"horaires":     "Horaires",
	}
}

// DeprecatedOnlyFields - поля, которые встречались только в устаревшем
// (захардкоженном) варианте слияния и не имеют подтверждённого
// канонического соответствия. Движок их не сливает молча -
// они возвращаются наружу, чтобы оператор принял решение.
func DeprecatedOnlyFields() []string {
	return []string{"acces", "quartier"}
}

// NewPoi - POI из бэкапа, отсутствующий в source
type NewPoi struct {
	PoiID string  `json:"poi_id"`
	Name  string  `json:"name"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
}

// GPSCorrection - смещение координат POI между source и бэкапом
type GPSCorrection struct {
	PoiID  string  `json:"poi_id"`
	Name   string  `json:"name"`
	OldLat float64 `json:"old_lat"`
	OldLon float64 `json:"old_lon"`
	NewLat float64 `json:"new_lat"`
	NewLon float64 `json:"new_lon"`
	// DistanceM - округлённое до метра смещение
	DistanceM int `json:"distance_m"`
}

// ContentChange - обогащение одного канонического поля из аннотаций
type ContentChange struct {
	PoiID       string `json:"poi_id"`
	Name        string `json:"name"`
	MobileField string `json:"mobile_field"`
	TargetField string `json:"target_field"`
	OldValue    string `json:"old_value"`
	NewValue    string `json:"new_value"`
}

// FusionSummary - итоги применённого слияния
type FusionSummary struct {
	New            int `json:"new"`
	GPSChanged     int `json:"gps_changed"`
	ContentChanged int `json:"content_changed"`
}
