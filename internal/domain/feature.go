package domain

import (
	"fmt"

	"github.com/paulmach/orb/geojson"
)

// PoiID возвращает стабильный идентификатор точки интереса.
// Приоритет: feature.id -> properties.HW_ID -> properties.id -> properties.ID.
// Пустая строка означает, что feature не может участвовать
// в circuits и не может получать аннотации.
func PoiID(f *geojson.Feature) string {
	if f == nil {
		return ""
	}

	if f.ID != nil {
		if s := stringify(f.ID); s != "" {
			return s
		}
	}

	for _, key := range []string{"HW_ID", "id", "ID"} {
		if v, ok := f.Properties[key]; ok {
			if s := stringify(v); s != "" {
				return s
			}
		}
	}

	return ""
}

// FilterIdentified отбрасывает features без идентификатора.
// Вызывается один раз при загрузке карты - дальше весь код
// может полагаться на непустой PoiID.
func FilterIdentified(fc *geojson.FeatureCollection) *geojson.FeatureCollection {
	out := geojson.NewFeatureCollection()
	for _, f := range fc.Features {
		if PoiID(f) != "" {
			out.Append(f)
		}
	}
	return out
}

// FeatureName возвращает отображаемое имя POI:
// custom_title из аннотаций, затем properties.Nom, name, placeholder.
func FeatureName(f *geojson.Feature, ud UserData) string {
	if ud != nil {
		if title, ok := ud["custom_title"].(string); ok && title != "" {
			return title
		}
	}
	if f == nil {
		return "POI sans nom"
	}
	for _, key := range []string{"Nom", "name", "Name"} {
		if v, ok := f.Properties[key]; ok {
			if s := stringify(v); s != "" {
				return s
			}
		}
	}
	return "POI sans nom"
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		// GeoJSON числовые id приходят как float64
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%v", val)
	case int:
		return fmt.Sprintf("%d", val)
	case int64:
		return fmt.Sprintf("%d", val)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}
