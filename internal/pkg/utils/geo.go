package utils

import "math"

const earthRadiusM = 6371000.0

// ZoneNone - значение зоны для точки вне всех полигонов
const ZoneNone = "Hors zone"

// LatLon - координатная пара [lat, lon]
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ZonePolygon - именованный полигон зоны, кольцо в порядке [lon, lat]
type ZonePolygon struct {
	Name string       `json:"name"`
	Ring [][2]float64 `json:"ring"`
}

// HaversineDistance вычисляет расстояние между двумя точками в метрах.
// Для совпадающих точек возвращает ровно 0.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLon := (lon2 - lon1) * math.Pi / 180.0

	lat1Rad := lat1 * math.Pi / 180.0
	lat2Rad := lat2 * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1Rad)*math.Cos(lat2Rad)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusM * c
}

// ValidateCoordinates проверяет валидность координат
func ValidateCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// IsPointInPolygon проверяет принадлежность точки полигону методом
// ray casting (even-odd rule). Точка и кольцо в порядке [lon, lat].
// Кольцо может быть незамкнутым - последний сегмент достраивается.
func IsPointInPolygon(point [2]float64, ring [][2]float64) bool {
	if len(ring) < 3 {
		return false
	}

	x, y := point[0], point[1]
	inside := false

	j := len(ring) - 1
	for i := 0; i < len(ring); i++ {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]

		if (yi > y) != (yj > y) &&
			x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}

	return inside
}

// ZoneForPoint возвращает имя первой зоны, содержащей точку.
// Если точка вне всех полигонов - ZoneNone (это не то же самое,
// что "зона ещё не вычислена").
func ZoneForPoint(lat, lon float64, polygons []ZonePolygon) string {
	for _, poly := range polygons {
		if IsPointInPolygon([2]float64{lon, lat}, poly.Ring) {
			return poly.Name
		}
	}
	return ZoneNone
}

// Barycenter возвращает арифметический центр набора точек.
// Для пустого набора - nil.
func Barycenter(points []LatLon) *LatLon {
	if len(points) == 0 {
		return nil
	}

	var sumLat, sumLon float64
	for _, p := range points {
		sumLat += p.Lat
		sumLon += p.Lon
	}

	return &LatLon{
		Lat: sumLat / float64(len(points)),
		Lon: sumLon / float64(len(points)),
	}
}

// ClusterByProximity группирует точки транзитивным замыканием по порогу:
// если A рядом с B, а B рядом с C, все трое попадают в один кластер,
// даже если расстояние A-C превышает порог.
func ClusterByProximity(points []LatLon, thresholdMeters float64) [][]int {
	n := len(points)
	if n == 0 {
		return nil
	}

	visited := make([]bool, n)
	var clusters [][]int

	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}

		// BFS по графу близости
		cluster := []int{i}
		visited[i] = true
		queue := []int{i}

		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]

			for j := 0; j < n; j++ {
				if visited[j] {
					continue
				}
				d := HaversineDistance(
					points[cur].Lat, points[cur].Lon,
					points[j].Lat, points[j].Lon,
				)
				if d <= thresholdMeters {
					visited[j] = true
					cluster = append(cluster, j)
					queue = append(queue, j)
				}
			}
		}

		clusters = append(clusters, cluster)
	}

	return clusters
}

// FilterOutliers разделяет точки на основную группу и выбросы.
// Выбросом считается точка дальше max(mean + 2*stddev, thresholdMeters)
// от центроида. Меньше 3 точек - выбросов нет.
func FilterOutliers(points []LatLon, thresholdMeters float64) (main []LatLon, outliers []LatLon) {
	if len(points) < 3 {
		return points, nil
	}

	center := Barycenter(points)

	dists := make([]float64, len(points))
	var sum float64
	for i, p := range points {
		dists[i] = HaversineDistance(center.Lat, center.Lon, p.Lat, p.Lon)
		sum += dists[i]
	}
	mean := sum / float64(len(points))

	var variance float64
	for _, d := range dists {
		variance += (d - mean) * (d - mean)
	}
	stddev := math.Sqrt(variance / float64(len(points)))

	limit := math.Max(mean+2*stddev, thresholdMeters)

	for i, p := range points {
		if dists[i] > limit {
			outliers = append(outliers, p)
		} else {
			main = append(main, p)
		}
	}

	return main, outliers
}
