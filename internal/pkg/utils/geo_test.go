package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineDistance_IdenticalPoints(t *testing.T) {
	tests := []struct {
		name string
		lat  float64
		lon  float64
	}{
		{"origin", 0, 0},
		{"paris", 48.8566, 2.3522},
		{"southern hemisphere", -33.8688, 151.2093},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := HaversineDistance(tt.lat, tt.lon, tt.lat, tt.lon)
			assert.Equal(t, 0.0, d, "identical points must be at exactly zero distance")
		})
	}
}

func TestHaversineDistance_ParisLondon(t *testing.T) {
	// Paris 48.8566,2.3522 -> London 51.5074,-0.1278
	d := HaversineDistance(48.8566, 2.3522, 51.5074, -0.1278)

	assert.Greater(t, d, 340000.0)
	assert.Less(t, d, 350000.0)
}

func TestIsPointInPolygon(t *testing.T) {
	square := [][2]float64{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}
	// То же кольцо без явного замыкания
	openSquare := [][2]float64{{0, 0}, {10, 0}, {10, 10}, {0, 10}}

	tests := []struct {
		name     string
		point    [2]float64
		ring     [][2]float64
		expected bool
	}{
		{"center inside", [2]float64{5, 5}, square, true},
		{"outside east", [2]float64{15, 5}, square, false},
		{"center inside open ring", [2]float64{5, 5}, openSquare, true},
		{"outside open ring", [2]float64{15, 5}, openSquare, false},
		{"degenerate ring", [2]float64{5, 5}, [][2]float64{{0, 0}, {10, 0}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsPointInPolygon(tt.point, tt.ring))
		})
	}
}

func TestZoneForPoint(t *testing.T) {
	polygons := []ZonePolygon{
		{Name: "Medina", Ring: [][2]float64{{-5.01, 35.56}, {-4.99, 35.56}, {-4.99, 35.58}, {-5.01, 35.58}}},
		{Name: "Ville Nouvelle", Ring: [][2]float64{{-5.03, 35.55}, {-5.01, 35.55}, {-5.01, 35.57}, {-5.03, 35.57}}},
	}

	assert.Equal(t, "Medina", ZoneForPoint(35.57, -5.0, polygons))
	assert.Equal(t, "Ville Nouvelle", ZoneForPoint(35.56, -5.02, polygons))
	assert.Equal(t, ZoneNone, ZoneForPoint(0, 0, polygons))
}

func TestBarycenter(t *testing.T) {
	t.Run("empty input returns nil", func(t *testing.T) {
		assert.Nil(t, Barycenter(nil))
		assert.Nil(t, Barycenter([]LatLon{}))
	})

	t.Run("mean of points", func(t *testing.T) {
		c := Barycenter([]LatLon{
			{Lat: 10, Lon: 20},
			{Lat: 20, Lon: 40},
		})
		assert.NotNil(t, c)
		assert.InDelta(t, 15.0, c.Lat, 1e-9)
		assert.InDelta(t, 30.0, c.Lon, 1e-9)
	})
}

func TestClusterByProximity_Transitive(t *testing.T) {
	// Три точки на одной линии с шагом ровно в порог:
	// A-B и B-C в пороге, A-C нет, но кластер должен быть один
	points := []LatLon{
		{Lat: 0.000, Lon: 0},
		{Lat: 0.001, Lon: 0},
		{Lat: 0.002, Lon: 0},
	}
	threshold := HaversineDistance(points[0].Lat, points[0].Lon, points[1].Lat, points[1].Lon)

	// Sanity: концы цепочки дальше порога друг от друга
	endToEnd := HaversineDistance(points[0].Lat, points[0].Lon, points[2].Lat, points[2].Lon)
	assert.Greater(t, endToEnd, threshold)

	clusters := ClusterByProximity(points, threshold)

	assert.Len(t, clusters, 1)
	assert.Len(t, clusters[0], 3)
}

func TestClusterByProximity_SeparateGroups(t *testing.T) {
	points := []LatLon{
		{Lat: 0, Lon: 0},
		{Lat: 0.0001, Lon: 0},
		{Lat: 1, Lon: 1},
	}

	clusters := ClusterByProximity(points, 50)

	assert.Len(t, clusters, 2)
}

func TestFilterOutliers(t *testing.T) {
	t.Run("fewer than 3 items never produces outliers", func(t *testing.T) {
		points := []LatLon{
			{Lat: 0, Lon: 0},
			{Lat: 50, Lon: 50}, // очень далеко, но всё равно main
		}

		main, outliers := FilterOutliers(points, 100)

		assert.Len(t, main, 2)
		assert.Empty(t, outliers)
	})

	t.Run("distant point beyond floor threshold is an outlier", func(t *testing.T) {
		points := []LatLon{
			{Lat: 35.5700, Lon: -5.0000},
			{Lat: 35.5701, Lon: -5.0001},
			{Lat: 35.5702, Lon: -5.0002},
			{Lat: 35.5700, Lon: -5.0001},
			{Lat: 35.5701, Lon: -5.0002},
			{Lat: 36.5, Lon: -5.0}, // ~100 км в стороне
		}

		main, outliers := FilterOutliers(points, 500)

		assert.Len(t, main, 5)
		assert.Len(t, outliers, 1)
		assert.Equal(t, 36.5, outliers[0].Lat)
	})
}
