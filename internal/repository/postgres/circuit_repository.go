package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/circuit-microservice/internal/domain"
	"github.com/circuit-microservice/internal/domain/repository"
	"github.com/circuit-microservice/internal/pkg/errors"
)

type circuitRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewCircuitRepository создает новый экземпляр CircuitRepository
func NewCircuitRepository(db *DB) repository.CircuitRepository {
	return &circuitRepository{
		db:     db.DB,
		logger: db.logger,
	}
}

const circuitColumns = `
	id, map_id, name, description, poi_ids, real_track, transport,
	file, is_official, is_deleted, is_completed, created_at, updated_at
`

// GetByID возвращает circuit по идентификатору (включая tombstoned)
func (r *circuitRepository) GetByID(ctx context.Context, id string) (*domain.Circuit, error) {
	query := `SELECT ` + circuitColumns + ` FROM circuits WHERE id = $1`

	circuit, err := r.scanCircuit(r.db.QueryRowxContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.ErrCircuitNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get circuit by ID", zap.String("id", id), zap.Error(err))
		return nil, errors.ErrDatabaseError
	}

	return circuit, nil
}

// GetAllByMap возвращает circuits карты; tombstoned скрыты по умолчанию
func (r *circuitRepository) GetAllByMap(ctx context.Context, mapID string, includeDeleted bool) ([]*domain.Circuit, error) {
	query := `SELECT ` + circuitColumns + ` FROM circuits WHERE map_id = $1`
	if !includeDeleted {
		query += ` AND is_deleted = FALSE`
	}
	query += ` ORDER BY created_at`

	rows, err := r.db.QueryxContext(ctx, query, mapID)
	if err != nil {
		r.logger.Error("Failed to get circuits by map",
			zap.String("map_id", mapID),
			zap.Error(err))
		return nil, errors.ErrDatabaseError
	}
	defer rows.Close()

	var circuits []*domain.Circuit
	for rows.Next() {
		circuit, err := r.scanCircuit(rows)
		if err != nil {
			r.logger.Error("Failed to scan circuit row", zap.Error(err))
			return nil, errors.ErrDatabaseError
		}
		circuits = append(circuits, circuit)
	}

	return circuits, rows.Err()
}

// Save создаёт или обновляет circuit
func (r *circuitRepository) Save(ctx context.Context, circuit *domain.Circuit) error {
	var realTrack []byte
	if circuit.HasRealTrack() {
		var err error
		realTrack, err = json.Marshal(circuit.RealTrack)
		if err != nil {
			return errors.ErrDatabaseError
		}
	}

	transport, err := json.Marshal(circuit.Transport)
	if err != nil {
		return errors.ErrDatabaseError
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO circuits (
			id, map_id, name, description, poi_ids, real_track, transport,
			file, is_official, is_deleted, is_completed, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			poi_ids = EXCLUDED.poi_ids,
			real_track = EXCLUDED.real_track,
			transport = EXCLUDED.transport,
			file = EXCLUDED.file,
			is_official = EXCLUDED.is_official,
			is_deleted = EXCLUDED.is_deleted,
			is_completed = EXCLUDED.is_completed,
			updated_at = NOW()
	`,
		circuit.ID, circuit.MapID, circuit.Name, circuit.Description,
		pq.Array(circuit.PoiIDs), realTrack, transport,
		circuit.File, circuit.IsOfficial, circuit.IsDeleted, circuit.IsCompleted,
	)
	if err != nil {
		r.logger.Error("Failed to save circuit",
			zap.String("id", circuit.ID),
			zap.Error(err))
		return errors.ErrDatabaseError
	}

	return nil
}

// SoftDelete помечает circuit удалённым (tombstone), данные остаются
func (r *circuitRepository) SoftDelete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE circuits SET is_deleted = TRUE, updated_at = NOW() WHERE id = $1`,
		id,
	)
	if err != nil {
		r.logger.Error("Failed to soft-delete circuit", zap.String("id", id), zap.Error(err))
		return errors.ErrDatabaseError
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return errors.ErrCircuitNotFound
	}

	return nil
}

// GetOfficialCompletion возвращает словарь завершённости официальных circuits
func (r *circuitRepository) GetOfficialCompletion(ctx context.Context, mapID string) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT circuit_id, completed FROM official_circuit_status WHERE map_id = $1`,
		mapID,
	)
	if err != nil {
		r.logger.Error("Failed to get official completion",
			zap.String("map_id", mapID),
			zap.Error(err))
		return nil, errors.ErrDatabaseError
	}
	defer rows.Close()

	result := make(map[string]bool)
	for rows.Next() {
		var circuitID string
		var completed bool
		if err := rows.Scan(&circuitID, &completed); err != nil {
			return nil, errors.ErrDatabaseError
		}
		result[circuitID] = completed
	}

	return result, rows.Err()
}

// SetOfficialCompletion выставляет статус завершённости официального
// circuit. Статус живёт в отдельной таблице: сами официальные записи
// могут быть read-only.
func (r *circuitRepository) SetOfficialCompletion(ctx context.Context, mapID, circuitID string, completed bool) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO official_circuit_status (map_id, circuit_id, completed, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (map_id, circuit_id)
		DO UPDATE SET completed = EXCLUDED.completed, updated_at = NOW()
	`, mapID, circuitID, completed)
	if err != nil {
		r.logger.Error("Failed to set official completion",
			zap.String("circuit_id", circuitID),
			zap.Error(err))
		return errors.ErrDatabaseError
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *circuitRepository) scanCircuit(row rowScanner) (*domain.Circuit, error) {
	var c domain.Circuit
	var poiIDs pq.StringArray
	var realTrack, transport []byte

	err := row.Scan(
		&c.ID, &c.MapID, &c.Name, &c.Description, &poiIDs, &realTrack, &transport,
		&c.File, &c.IsOfficial, &c.IsDeleted, &c.IsCompleted, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.PoiIDs = []string(poiIDs)
	if len(realTrack) > 0 {
		if err := json.Unmarshal(realTrack, &c.RealTrack); err != nil {
			return nil, err
		}
	}
	if len(transport) > 0 {
		if err := json.Unmarshal(transport, &c.Transport); err != nil {
			return nil, err
		}
	}

	return &c, nil
}
