package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"studenthub/portal/internal/domain"
)

// Error constants for the repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrDuplicate    = RepositoryError("duplicate key")
	ErrUpdateFailed = RepositoryError("update failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with account data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	UpdatePasswordHash(ctx context.Context, id primitive.ObjectID, hash string) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// ProfileRepository defines the interface for interacting with profile data.
type ProfileRepository interface {
	Create(ctx context.Context, profile *domain.Profile) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Profile, error)
	GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.Profile, error)
	GetByUsername(ctx context.Context, username string) (*domain.Profile, error)
	List(ctx context.Context) ([]domain.Profile, error)
	Update(ctx context.Context, profile *domain.Profile) error
	Approve(ctx context.Context, id primitive.ObjectID, username string) error
	SetStatus(ctx context.Context, id primitive.ObjectID, status domain.ProfileStatus) error
	DeleteByUserID(ctx context.Context, userID primitive.ObjectID) error
}

// UploadRepository defines the interface for interacting with upload metadata.
type UploadRepository interface {
	Create(ctx context.Context, upload *domain.Upload) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Upload, error)
	ListByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.Upload, error)
	ListAll(ctx context.Context) ([]domain.Upload, error)
	SetReview(ctx context.Context, id primitive.ObjectID, status domain.UploadStatus, feedback string, reviewedBy primitive.ObjectID, reviewedAt time.Time) error
	DeleteByUserID(ctx context.Context, userID primitive.ObjectID) error
}

// FeedbackRepository defines the interface for interacting with feedback entries.
type FeedbackRepository interface {
	Create(ctx context.Context, fb *domain.Feedback) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Feedback, error)
	ListByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.Feedback, error)
	ListAll(ctx context.Context) ([]domain.Feedback, error)
	// ExistsForUserBetween reports whether the account already has an
	// entry created in [from, to). Used for the one-per-day rule.
	ExistsForUserBetween(ctx context.Context, userID primitive.ObjectID, from, to time.Time) (bool, error)
	SetResponse(ctx context.Context, id primitive.ObjectID, response string, respondedBy primitive.ObjectID, respondedAt time.Time) error
	SetStatus(ctx context.Context, id primitive.ObjectID, status domain.FeedbackStatus) error
	DeleteByUserID(ctx context.Context, userID primitive.ObjectID) error
}
