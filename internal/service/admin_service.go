package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"studenthub/portal/internal/domain"
	"studenthub/portal/internal/repository"
	"studenthub/portal/internal/storage"
)

// --- Error Definitions ---
var (
	ErrUsernameRequired = errors.New("username is required")
	ErrUsernameTaken    = errors.New("username is already taken")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrFeedbackNotFound = errors.New("feedback not found")
	ErrNothingToUpdate  = errors.New("response or status is required")
)

// UploadWithStudent enriches an upload record with the submitting
// student's display name for admin listings.
type UploadWithStudent struct {
	domain.Upload
	StudentName string `json:"studentName"`
}

// FeedbackResponseInput carries an admin's answer to a feedback entry.
// Response and Status are orthogonal; either may be set alone.
type FeedbackResponseInput struct {
	Response *string
	Status   *domain.FeedbackStatus
}

// --- Service Interface ---
type AdminService interface {
	ListStudents(ctx context.Context) ([]domain.Profile, error)
	// ApproveStudent assigns the username and activates the profile.
	ApproveStudent(ctx context.Context, profileID primitive.ObjectID, username string) error
	SuspendStudent(ctx context.Context, profileID primitive.ObjectID) error
	ActivateStudent(ctx context.Context, profileID primitive.ObjectID) error
	// DeleteStudent cascades: upload and feedback records go, their
	// backing files are removed best-effort, then the profile and the
	// account itself.
	DeleteStudent(ctx context.Context, profileID primitive.ObjectID) error

	ListUploads(ctx context.Context) ([]UploadWithStudent, error)
	// ReviewUpload records an admin verdict plus reviewer id and time.
	ReviewUpload(ctx context.Context, adminID, uploadID primitive.ObjectID, status domain.UploadStatus, feedback string) error

	ListFeedback(ctx context.Context) ([]domain.Feedback, error)
	RespondFeedback(ctx context.Context, adminID, feedbackID primitive.ObjectID, in FeedbackResponseInput) error
}

// --- Service Implementation ---

type adminService struct {
	userRepo     repository.UserRepository
	profileRepo  repository.ProfileRepository
	uploadRepo   repository.UploadRepository
	feedbackRepo repository.FeedbackRepository
	fileStorage  storage.FileStorage
	logger       *zap.Logger
}

// NewAdminService creates a new instance of adminService.
func NewAdminService(
	userRepo repository.UserRepository,
	profileRepo repository.ProfileRepository,
	uploadRepo repository.UploadRepository,
	feedbackRepo repository.FeedbackRepository,
	fileStorage storage.FileStorage,
	logger *zap.Logger,
) AdminService {
	return &adminService{
		userRepo:     userRepo,
		profileRepo:  profileRepo,
		uploadRepo:   uploadRepo,
		feedbackRepo: feedbackRepo,
		fileStorage:  fileStorage,
		logger:       logger,
	}
}

// === Account management ===

func (s *adminService) ListStudents(ctx context.Context) ([]domain.Profile, error) {
	profiles, err := s.profileRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	// Stored avatar references are allocator keys; listings serve URLs.
	for i := range profiles {
		if profiles[i].AvatarURL != "" && !strings.HasPrefix(profiles[i].AvatarURL, "/uploads/") {
			profiles[i].AvatarURL = "/uploads/" + strings.TrimPrefix(profiles[i].AvatarURL, "/")
		}
	}
	return profiles, nil
}

func (s *adminService) ApproveStudent(ctx context.Context, profileID primitive.ObjectID, username string) error {
	if username == "" {
		return ErrUsernameRequired
	}

	// Reject a taken username up front for a clear message; the unique
	// index still backstops the race.
	existing, err := s.profileRepo.GetByUsername(ctx, username)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if existing != nil && existing.ID != profileID {
		return ErrUsernameTaken
	}

	if err := s.profileRepo.Approve(ctx, profileID, username); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return ErrUsernameTaken
		case errors.Is(err, repository.ErrNotFound):
			return ErrProfileNotFound
		}
		return err
	}
	return nil
}

func (s *adminService) SuspendStudent(ctx context.Context, profileID primitive.ObjectID) error {
	return s.setProfileStatus(ctx, profileID, domain.ProfileSuspended)
}

func (s *adminService) ActivateStudent(ctx context.Context, profileID primitive.ObjectID) error {
	return s.setProfileStatus(ctx, profileID, domain.ProfileActive)
}

func (s *adminService) setProfileStatus(ctx context.Context, profileID primitive.ObjectID, status domain.ProfileStatus) error {
	if err := s.profileRepo.SetStatus(ctx, profileID, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProfileNotFound
		}
		return err
	}
	return nil
}

// DeleteStudent removes an account and everything it owns. Blob
// deletions are best-effort: a missing or undeletable file is logged
// and skipped, the records are removed regardless.
func (s *adminService) DeleteStudent(ctx context.Context, profileID primitive.ObjectID) error {
	profile, err := s.profileRepo.GetByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProfileNotFound
		}
		return err
	}
	userID := profile.UserID

	uploads, err := s.uploadRepo.ListByUserID(ctx, userID)
	if err != nil {
		return err
	}
	for _, u := range uploads {
		if err := s.fileStorage.Delete(ctx, u.StoragePath); err != nil {
			s.logger.Warn("failed to delete upload file during account removal",
				zap.String("key", u.StoragePath), zap.Error(err))
		}
	}
	if err := s.uploadRepo.DeleteByUserID(ctx, userID); err != nil {
		return err
	}

	entries, err := s.feedbackRepo.ListByUserID(ctx, userID)
	if err != nil {
		return err
	}
	for _, fb := range entries {
		for _, url := range fb.Attachments {
			key := strings.TrimPrefix(url, "/uploads/")
			if err := s.fileStorage.Delete(ctx, key); err != nil {
				s.logger.Warn("failed to delete attachment during account removal",
					zap.String("key", key), zap.Error(err))
			}
		}
	}
	if err := s.feedbackRepo.DeleteByUserID(ctx, userID); err != nil {
		return err
	}

	if err := s.profileRepo.DeleteByUserID(ctx, userID); err != nil {
		return err
	}
	if err := s.userRepo.Delete(ctx, userID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return nil
}

// === Upload review ===

func (s *adminService) ListUploads(ctx context.Context) ([]UploadWithStudent, error) {
	uploads, err := s.uploadRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	// Resolve display names once per account, not once per upload.
	names := make(map[primitive.ObjectID]string)
	result := make([]UploadWithStudent, 0, len(uploads))
	for _, u := range uploads {
		name, ok := names[u.UserID]
		if !ok {
			name = "Unknown"
			if profile, err := s.profileRepo.GetByUserID(ctx, u.UserID); err == nil {
				name = profile.FullName
			}
			names[u.UserID] = name
		}
		result = append(result, UploadWithStudent{Upload: u, StudentName: name})
	}
	return result, nil
}

func (s *adminService) ReviewUpload(ctx context.Context, adminID, uploadID primitive.ObjectID, status domain.UploadStatus, feedback string) error {
	switch status {
	case domain.UploadReviewed, domain.UploadApproved, domain.UploadRejected:
	default:
		return ErrInvalidStatus
	}

	if err := s.uploadRepo.SetReview(ctx, uploadID, status, feedback, adminID, time.Now().UTC()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUploadNotFound
		}
		return err
	}
	return nil
}

// === Feedback handling ===

func (s *adminService) ListFeedback(ctx context.Context) ([]domain.Feedback, error) {
	return s.feedbackRepo.ListAll(ctx)
}

// RespondFeedback applies an admin response and/or a status update.
// The two fields are independent: setting one never forces the other.
func (s *adminService) RespondFeedback(ctx context.Context, adminID, feedbackID primitive.ObjectID, in FeedbackResponseInput) error {
	if in.Response == nil && in.Status == nil {
		return ErrNothingToUpdate
	}

	if in.Status != nil {
		switch *in.Status {
		case domain.FeedbackInReview, domain.FeedbackResolved, domain.FeedbackRejected, domain.FeedbackSubmitted:
		default:
			return ErrInvalidStatus
		}
	}

	if in.Response != nil {
		if err := s.feedbackRepo.SetResponse(ctx, feedbackID, *in.Response, adminID, time.Now().UTC()); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrFeedbackNotFound
			}
			return err
		}
	}
	if in.Status != nil {
		if err := s.feedbackRepo.SetStatus(ctx, feedbackID, *in.Status); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrFeedbackNotFound
			}
			return err
		}
	}
	return nil
}
