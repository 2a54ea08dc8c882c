package usecase

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/circuit-microservice/internal/domain"
	"github.com/circuit-microservice/internal/gpx"
	"github.com/circuit-microservice/internal/pkg/utils"
)

// IndexEntry - запись индекса официальных circuits,
// который ест клиентский редактор
type IndexEntry struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	File         string   `json:"file"`
	Description  string   `json:"description,omitempty"`
	DistanceM    float64  `json:"distance_m"`
	IsOfficial   bool     `json:"isOfficial"`
	HasRealTrack bool     `json:"hasRealTrack"`
	PoiIDs       []string `json:"poiIds"`
}

// IndexUseCase строит индекс официальных circuits из каталога GPX
// файлов. Файлы без встроенного идентификатора получают его на месте:
// файл переписывается с маркером, чтобы последующие импорты
// распознавались однозначно.
type IndexUseCase struct {
	logger *zap.Logger
}

func NewIndexUseCase(logger *zap.Logger) *IndexUseCase {
	return &IndexUseCase{logger: logger}
}

// BuildIndex сканирует dir и пишет index.json рядом с файлами.
// Возвращает собранные записи.
func (uc *IndexUseCase) BuildIndex(ctx context.Context, dir string) ([]IndexEntry, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var entries []IndexEntry
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(strings.ToLower(file.Name()), ".gpx") {
			continue
		}

		entry, err := uc.indexFile(dir, file.Name())
		if err != nil {
			// Один битый файл не валит весь прогон
			uc.logger.Warn("Skipping GPX file",
				zap.String("file", file.Name()),
				zap.Error(err))
			continue
		}
		entries = append(entries, *entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, "index.json"), data, 0644); err != nil {
		return nil, err
	}

	return entries, nil
}

func (uc *IndexUseCase) indexFile(dir, name string) (*IndexEntry, error) {
	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	parsed, err := gpx.Decode(data)
	if err != nil {
		return nil, err
	}

	circuitID := parsed.CircuitID
	if circuitID == "" {
		circuitID = domain.NewLocalCircuitID(time.Now())
		if err := uc.injectID(path, parsed, circuitID); err != nil {
			return nil, err
		}
		uc.logger.Info("Injected circuit id",
			zap.String("file", name),
			zap.String("circuit_id", circuitID))
	}

	circuitName := parsed.Name
	if circuitName == "" {
		circuitName = strings.TrimSuffix(name, filepath.Ext(name))
	}

	var distance float64
	for i := 1; i < len(parsed.Track); i++ {
		distance += utils.HaversineDistance(
			parsed.Track[i-1][0], parsed.Track[i-1][1],
			parsed.Track[i][0], parsed.Track[i][1],
		)
	}

	poiIDs := make([]string, 0, len(parsed.Waypoints))
	for _, wpt := range parsed.Waypoints {
		if wpt.Name != "" {
			poiIDs = append(poiIDs, wpt.Name)
		}
	}

	return &IndexEntry{
		ID:           circuitID,
		Name:         circuitName,
		File:         name,
		DistanceM:    distance,
		IsOfficial:   true,
		HasRealTrack: len(parsed.Track) > 0,
		PoiIDs:       poiIDs,
	}, nil
}

// injectID переписывает файл с встроенным идентификатором.
// Кодек кладёт маркер во все избыточные позиции сразу.
func (uc *IndexUseCase) injectID(path string, parsed *gpx.Parsed, circuitID string) error {
	doc := gpx.Document{
		Name:      parsed.Name,
		CircuitID: circuitID,
		Waypoints: parsed.Waypoints,
		Track:     parsed.Track,
	}
	return os.WriteFile(path, gpx.Encode(doc), 0644)
}
