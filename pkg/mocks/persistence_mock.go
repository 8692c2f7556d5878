package mocks

import (
	"context"

	"github.com/dukex/facilitator/pkg/models"
	"github.com/dukex/facilitator/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockWorkshopRepository is a mock implementation of persistence.WorkshopRepository
// and persistence.DraftRepository.
type MockWorkshopRepository struct {
	mock.Mock
}

func (m *MockWorkshopRepository) GetAll(ctx context.Context) ([]*models.Workshop, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workshop), args.Error(1)
}

func (m *MockWorkshopRepository) GetByID(ctx context.Context, id string) (*models.Workshop, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workshop), args.Error(1)
}

func (m *MockWorkshopRepository) Save(ctx context.Context, workshop *models.Workshop) error {
	args := m.Called(ctx, workshop)

	return args.Error(0)
}

func (m *MockWorkshopRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockSessionRepository is a mock implementation of persistence.SessionRepository interface.
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) GetAll(ctx context.Context) ([]*models.Session, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Session), args.Error(1)
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockSessionRepository) Save(ctx context.Context, session *models.Session) error {
	args := m.Called(ctx, session)

	return args.Error(0)
}

func (m *MockSessionRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockSessionRepository) SaveWorkshopSnapshot(ctx context.Context, sessionID string, workshop *models.Workshop) error {
	args := m.Called(ctx, sessionID, workshop)

	return args.Error(0)
}

func (m *MockSessionRepository) WorkshopSnapshot(ctx context.Context, sessionID string) (*models.Workshop, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workshop), args.Error(1)
}

// MockHistoryRepository is a mock implementation of persistence.HistoryRepository interface.
type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) GetAll(ctx context.Context) ([]*models.SessionRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.SessionRecord), args.Error(1)
}

func (m *MockHistoryRepository) GetByID(ctx context.Context, id string) (*models.SessionRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.SessionRecord), args.Error(1)
}

func (m *MockHistoryRepository) Prepend(ctx context.Context, record *models.SessionRecord) error {
	args := m.Called(ctx, record)

	return args.Error(0)
}

func (m *MockHistoryRepository) Save(ctx context.Context, record *models.SessionRecord) error {
	args := m.Called(ctx, record)

	return args.Error(0)
}

// MockResponseRepository is a mock implementation of persistence.ResponseRepository interface.
type MockResponseRepository struct {
	mock.Mock
}

func (m *MockResponseRepository) Get(ctx context.Context, sessionID, participantID string) (models.ParticipantResponses, error) {
	args := m.Called(ctx, sessionID, participantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(models.ParticipantResponses), args.Error(1)
}

func (m *MockResponseRepository) Save(ctx context.Context, sessionID, participantID string, responses models.ParticipantResponses) error {
	args := m.Called(ctx, sessionID, participantID, responses)

	return args.Error(0)
}

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock

	Workshops MockWorkshopRepository
	Drafts    MockWorkshopRepository
	Sessions  MockSessionRepository
	History   MockHistoryRepository
	Responses MockResponseRepository
}

func (m *MockPersistence) WorkshopRepository() persistence.WorkshopRepository {
	return &m.Workshops
}

func (m *MockPersistence) DraftRepository() persistence.DraftRepository {
	return &m.Drafts
}

func (m *MockPersistence) SessionRepository() persistence.SessionRepository {
	return &m.Sessions
}

func (m *MockPersistence) HistoryRepository() persistence.HistoryRepository {
	return &m.History
}

func (m *MockPersistence) ResponseRepository() persistence.ResponseRepository {
	return &m.Responses
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

var _ persistence.Persistence = (*MockPersistence)(nil)
