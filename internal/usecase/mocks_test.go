package usecase_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/circuit-microservice/internal/domain"
)

// MockCircuitRepository is a mock of CircuitRepository
type MockCircuitRepository struct {
	mock.Mock
}

func (m *MockCircuitRepository) GetByID(ctx context.Context, id string) (*domain.Circuit, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Circuit), args.Error(1)
}

func (m *MockCircuitRepository) GetAllByMap(ctx context.Context, mapID string, includeDeleted bool) ([]*domain.Circuit, error) {
	args := m.Called(ctx, mapID, includeDeleted)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Circuit), args.Error(1)
}

func (m *MockCircuitRepository) Save(ctx context.Context, circuit *domain.Circuit) error {
	args := m.Called(ctx, circuit)
	return args.Error(0)
}

func (m *MockCircuitRepository) SoftDelete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCircuitRepository) GetOfficialCompletion(ctx context.Context, mapID string) (map[string]bool, error) {
	args := m.Called(ctx, mapID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]bool), args.Error(1)
}

func (m *MockCircuitRepository) SetOfficialCompletion(ctx context.Context, mapID, circuitID string, completed bool) error {
	args := m.Called(ctx, mapID, circuitID, completed)
	return args.Error(0)
}

// MockAnnotationRepository is a mock of AnnotationRepository
type MockAnnotationRepository struct {
	mock.Mock
}

func (m *MockAnnotationRepository) GetByPoi(ctx context.Context, mapID, poiID string) (domain.UserData, error) {
	args := m.Called(ctx, mapID, poiID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.UserData), args.Error(1)
}

func (m *MockAnnotationRepository) GetAllByMap(ctx context.Context, mapID string) (map[string]domain.UserData, error) {
	args := m.Called(ctx, mapID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.UserData), args.Error(1)
}

func (m *MockAnnotationRepository) Put(ctx context.Context, mapID, poiID string, partial domain.UserData) error {
	args := m.Called(ctx, mapID, poiID, partial)
	return args.Error(0)
}

func (m *MockAnnotationRepository) PutBatch(ctx context.Context, mapID string, records map[string]domain.UserData) error {
	args := m.Called(ctx, mapID, records)
	return args.Error(0)
}

// MockSettingsRepository is a mock of SettingsRepository
type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockSettingsRepository) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

// MockCacheRepository is a mock of CacheRepository
type MockCacheRepository struct {
	mock.Mock
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

// MockModLogRepository is a mock of ModLogRepository
type MockModLogRepository struct {
	mock.Mock
}

func (m *MockModLogRepository) Append(ctx context.Context, entry domain.ModLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockModLogRepository) ExportByMap(ctx context.Context, mapID string) ([]domain.ModLogEntry, error) {
	args := m.Called(ctx, mapID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ModLogEntry), args.Error(1)
}

// MockGPXFileRepository is a mock of GPXFileRepository
type MockGPXFileRepository struct {
	mock.Mock
}

func (m *MockGPXFileRepository) Fetch(ctx context.Context, path string) ([]byte, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
