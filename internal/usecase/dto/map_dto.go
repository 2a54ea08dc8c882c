package dto

import "github.com/circuit-microservice/internal/pkg/utils"

// PoiCluster - группа POI, лежащих ближе порога друг к другу
// (транзитивно), с барицентром для позиционирования маркера группы
type PoiCluster struct {
	PoiIDs []string     `json:"poi_ids"`
	Center utils.LatLon `json:"center"`
}

// PoiClustersResponse - результат группировки POI карты
type PoiClustersResponse struct {
	Clusters []PoiCluster `json:"clusters"`
	// OutlierPoiIDs - POI, выпадающие из общего облака точек карты
	// (правило mean + 2σ с нижней границей порога)
	OutlierPoiIDs []string `json:"outlier_poi_ids"`
}
