package testhelpers

import (
	"github.com/circuit-microservice/internal/domain/repository"
	"github.com/circuit-microservice/internal/repository/postgres"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// NewDBForTest creates a postgres.DB with test database and logger
func NewDBForTest(db *sqlx.DB, logger *zap.Logger) *postgres.DB {
	return postgres.NewDBForTest(db, logger)
}

// NewCircuitRepositoryForTest creates a circuit repository with test database and logger
func NewCircuitRepositoryForTest(db *sqlx.DB, logger *zap.Logger) repository.CircuitRepository {
	pgDB := NewDBForTest(db, logger)
	return postgres.NewCircuitRepository(pgDB)
}

// NewAnnotationRepositoryForTest creates an annotation repository with test database and logger
func NewAnnotationRepositoryForTest(db *sqlx.DB, logger *zap.Logger) repository.AnnotationRepository {
	pgDB := NewDBForTest(db, logger)
	return postgres.NewAnnotationRepository(pgDB)
}

// NewSettingsRepositoryForTest creates a settings repository with test database and logger
func NewSettingsRepositoryForTest(db *sqlx.DB, logger *zap.Logger) repository.SettingsRepository {
	pgDB := NewDBForTest(db, logger)
	return postgres.NewSettingsRepository(pgDB)
}
