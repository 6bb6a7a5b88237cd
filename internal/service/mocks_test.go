package service

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"studenthub/portal/internal/domain"
)

// Testify mocks for the repository and storage collaborators.

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(primitive.ObjectID), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) UpdatePasswordHash(ctx context.Context, id primitive.ObjectID, hash string) error {
	return m.Called(ctx, id, hash).Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return m.Called(ctx, id).Error(0)
}

type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) Create(ctx context.Context, profile *domain.Profile) (primitive.ObjectID, error) {
	args := m.Called(ctx, profile)
	return args.Get(0).(primitive.ObjectID), args.Error(1)
}

func (m *MockProfileRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *MockProfileRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *MockProfileRepository) GetByUsername(ctx context.Context, username string) (*domain.Profile, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *MockProfileRepository) List(ctx context.Context) ([]domain.Profile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Profile), args.Error(1)
}

func (m *MockProfileRepository) Update(ctx context.Context, profile *domain.Profile) error {
	return m.Called(ctx, profile).Error(0)
}

func (m *MockProfileRepository) Approve(ctx context.Context, id primitive.ObjectID, username string) error {
	return m.Called(ctx, id, username).Error(0)
}

func (m *MockProfileRepository) SetStatus(ctx context.Context, id primitive.ObjectID, status domain.ProfileStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockProfileRepository) DeleteByUserID(ctx context.Context, userID primitive.ObjectID) error {
	return m.Called(ctx, userID).Error(0)
}

type MockUploadRepository struct {
	mock.Mock
}

func (m *MockUploadRepository) Create(ctx context.Context, upload *domain.Upload) (primitive.ObjectID, error) {
	args := m.Called(ctx, upload)
	return args.Get(0).(primitive.ObjectID), args.Error(1)
}

func (m *MockUploadRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Upload, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Upload), args.Error(1)
}

func (m *MockUploadRepository) ListByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.Upload, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Upload), args.Error(1)
}

func (m *MockUploadRepository) ListAll(ctx context.Context) ([]domain.Upload, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Upload), args.Error(1)
}

func (m *MockUploadRepository) SetReview(ctx context.Context, id primitive.ObjectID, status domain.UploadStatus, feedback string, reviewedBy primitive.ObjectID, reviewedAt time.Time) error {
	return m.Called(ctx, id, status, feedback, reviewedBy, reviewedAt).Error(0)
}

func (m *MockUploadRepository) DeleteByUserID(ctx context.Context, userID primitive.ObjectID) error {
	return m.Called(ctx, userID).Error(0)
}

type MockFeedbackRepository struct {
	mock.Mock
}

func (m *MockFeedbackRepository) Create(ctx context.Context, fb *domain.Feedback) (primitive.ObjectID, error) {
	args := m.Called(ctx, fb)
	return args.Get(0).(primitive.ObjectID), args.Error(1)
}

func (m *MockFeedbackRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Feedback, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Feedback), args.Error(1)
}

func (m *MockFeedbackRepository) ListByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.Feedback, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Feedback), args.Error(1)
}

func (m *MockFeedbackRepository) ListAll(ctx context.Context) ([]domain.Feedback, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Feedback), args.Error(1)
}

func (m *MockFeedbackRepository) ExistsForUserBetween(ctx context.Context, userID primitive.ObjectID, from, to time.Time) (bool, error) {
	args := m.Called(ctx, userID, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockFeedbackRepository) SetResponse(ctx context.Context, id primitive.ObjectID, response string, respondedBy primitive.ObjectID, respondedAt time.Time) error {
	return m.Called(ctx, id, response, respondedBy, respondedAt).Error(0)
}

func (m *MockFeedbackRepository) SetStatus(ctx context.Context, id primitive.ObjectID, status domain.FeedbackStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockFeedbackRepository) DeleteByUserID(ctx context.Context, userID primitive.ObjectID) error {
	return m.Called(ctx, userID).Error(0)
}

type MockFileStorage struct {
	mock.Mock
}

func (m *MockFileStorage) Save(ctx context.Context, objectKey string, r io.Reader) (int64, error) {
	args := m.Called(ctx, objectKey, r)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFileStorage) Open(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	args := m.Called(ctx, objectKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockFileStorage) Delete(ctx context.Context, objectKey string) error {
	return m.Called(ctx, objectKey).Error(0)
}
