package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/circuit-microservice/internal/domain"
	"github.com/circuit-microservice/internal/domain/repository"
	"github.com/circuit-microservice/internal/pkg/errors"
)

type annotationRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewAnnotationRepository создает новый экземпляр AnnotationRepository
func NewAnnotationRepository(db *DB) repository.AnnotationRepository {
	return &annotationRepository{
		db:     db.DB,
		logger: db.logger,
	}
}

// GetByPoi возвращает аннотации одной POI
func (r *annotationRepository) GetByPoi(ctx context.Context, mapID, poiID string) (domain.UserData, error) {
	query := `
		SELECT data
		FROM poi_annotations
		WHERE map_id = $1 AND poi_id = $2
	`

	var raw []byte
	err := r.db.QueryRowContext(ctx, query, mapID, poiID).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get annotation",
			zap.String("map_id", mapID),
			zap.String("poi_id", poiID),
			zap.Error(err))
		return nil, errors.ErrDatabaseError
	}

	var data domain.UserData
	if err := json.Unmarshal(raw, &data); err != nil {
		r.logger.Error("Failed to unmarshal annotation",
			zap.String("poi_id", poiID),
			zap.Error(err))
		return nil, errors.ErrDatabaseError
	}

	return data, nil
}

// GetAllByMap возвращает все аннотации карты
func (r *annotationRepository) GetAllByMap(ctx context.Context, mapID string) (map[string]domain.UserData, error) {
	query := `
		SELECT poi_id, data
		FROM poi_annotations
		WHERE map_id = $1
	`

	rows, err := r.db.QueryContext(ctx, query, mapID)
	if err != nil {
		r.logger.Error("Failed to get annotations by map",
			zap.String("map_id", mapID),
			zap.Error(err))
		return nil, errors.ErrDatabaseError
	}
	defer rows.Close()

	result := make(map[string]domain.UserData)
	for rows.Next() {
		var poiID string
		var raw []byte
		if err := rows.Scan(&poiID, &raw); err != nil {
			r.logger.Error("Failed to scan annotation row", zap.Error(err))
			return nil, errors.ErrDatabaseError
		}

		var data domain.UserData
		if err := json.Unmarshal(raw, &data); err != nil {
			r.logger.Error("Failed to unmarshal annotation",
				zap.String("poi_id", poiID),
				zap.Error(err))
			return nil, errors.ErrDatabaseError
		}
		result[poiID] = data
	}

	return result, rows.Err()
}

// Put сохраняет частичное обновление с семантикой read-merge-before-write:
// существующая запись читается под блокировкой и сливается с partial,
// чтобы обновление одного поля не затёрло остальные.
func (r *annotationRepository) Put(ctx context.Context, mapID, poiID string, partial domain.UserData) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin annotation tx", zap.Error(err))
		return errors.ErrDatabaseError
	}
	defer tx.Rollback()

	var raw []byte
	err = tx.QueryRowContext(ctx,
		`SELECT data FROM poi_annotations WHERE map_id = $1 AND poi_id = $2 FOR UPDATE`,
		mapID, poiID,
	).Scan(&raw)

	existing := domain.UserData{}
	if err == nil {
		if err := json.Unmarshal(raw, &existing); err != nil {
			r.logger.Error("Failed to unmarshal existing annotation",
				zap.String("poi_id", poiID),
				zap.Error(err))
			return errors.ErrDatabaseError
		}
	} else if err != sql.ErrNoRows {
		r.logger.Error("Failed to read annotation before merge", zap.Error(err))
		return errors.ErrDatabaseError
	}

	merged, err := json.Marshal(existing.Merge(partial))
	if err != nil {
		return errors.ErrDatabaseError
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO poi_annotations (map_id, poi_id, data, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (map_id, poi_id)
		DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
	`, mapID, poiID, merged)
	if err != nil {
		r.logger.Error("Failed to upsert annotation",
			zap.String("poi_id", poiID),
			zap.Error(err))
		return errors.ErrDatabaseError
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Failed to commit annotation tx", zap.Error(err))
		return errors.ErrDatabaseError
	}

	return nil
}

// PutBatch пишет записи пачкой без предварительного чтения.
// Ради пропускной способности merge пропущен - записи должны
// быть полными (см. контракт AnnotationRepository).
func (r *annotationRepository) PutBatch(ctx context.Context, mapID string, records map[string]domain.UserData) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin batch annotation tx", zap.Error(err))
		return errors.ErrDatabaseError
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO poi_annotations (map_id, poi_id, data, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (map_id, poi_id)
		DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
	`)
	if err != nil {
		r.logger.Error("Failed to prepare batch statement", zap.Error(err))
		return errors.ErrDatabaseError
	}
	defer stmt.Close()

	for poiID, data := range records {
		raw, err := json.Marshal(data)
		if err != nil {
			return errors.ErrDatabaseError
		}
		if _, err := stmt.ExecContext(ctx, mapID, poiID, raw); err != nil {
			r.logger.Error("Failed to write annotation in batch",
				zap.String("poi_id", poiID),
				zap.Error(err))
			return errors.ErrDatabaseError
		}
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Failed to commit batch annotation tx", zap.Error(err))
		return errors.ErrDatabaseError
	}

	return nil
}
