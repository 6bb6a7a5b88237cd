package service

import (
	"context"
	"errors"
	"io"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"studenthub/portal/internal/domain"
	"studenthub/portal/internal/filecheck"
	"studenthub/portal/internal/repository"
	"studenthub/portal/internal/storage"
)

// --- Error Definitions ---
var (
	ErrProfileNotFound        = errors.New("profile not found")
	ErrUploadNotFound         = errors.New("upload not found")
	ErrNoFile                 = errors.New("no selected file")
	ErrFileWriteFailed        = errors.New("failed to store file")
	ErrFeedbackFieldsRequired = errors.New("category, subject, and message are required")
	ErrFeedbackAlreadyToday   = errors.New("feedback already submitted today")
	ErrRatingRequired         = errors.New("rating is required")
	ErrRatingOutOfRange       = errors.New("rating must be between 1 and 5")
	ErrRatingBadIncrement     = errors.New("rating must be in 0.5 increments")
)

// UploadedFile is one incoming multipart file. The reader must be
// seekable so the validator can sniff leading bytes and rewind before
// the content is persisted.
type UploadedFile struct {
	FileName    string
	ContentType string // Declared MIME type, may be empty
	Size        int64
	Content     io.ReadSeeker
}

// ProfileUpdateInput carries the optional display-field updates.
// Nil pointers mean "leave unchanged".
type ProfileUpdateInput struct {
	FullName      *string
	ContactNumber *string
	CollegeName   *string
	CollegeID     *string
	CollegeEmail  *string
	City          *string
	Pincode       *string
}

// FeedbackInput is a feedback submission before validation.
type FeedbackInput struct {
	Category    string
	Subject     string
	Message     string
	Rating      *float64 // Pointer: absence is distinct from zero
	Attachments []UploadedFile
}

// --- Service Interface ---
type StudentService interface {
	GetProfile(ctx context.Context, userID primitive.ObjectID) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, userID primitive.ObjectID, in ProfileUpdateInput) (*domain.Profile, error)
	SetAvatar(ctx context.Context, userID primitive.ObjectID, file UploadedFile) (*domain.Profile, error)

	CreateUpload(ctx context.Context, userID primitive.ObjectID, file UploadedFile, description string) (*domain.Upload, error)
	ListUploads(ctx context.Context, userID primitive.ObjectID) ([]domain.Upload, error)
	// OpenUpload streams a stored upload for its owner, or for an
	// admin. Every failure mode collapses to ErrUploadNotFound so
	// nothing about the filesystem or other accounts leaks.
	OpenUpload(ctx context.Context, callerID primitive.ObjectID, callerIsAdmin bool, uploadID primitive.ObjectID) (*domain.Upload, io.ReadCloser, error)

	CreateFeedback(ctx context.Context, userID primitive.ObjectID, in FeedbackInput) (*domain.Feedback, error)
	ListFeedback(ctx context.Context, userID primitive.ObjectID) ([]domain.Feedback, error)
}

// --- Service Implementation ---

type studentService struct {
	profileRepo  repository.ProfileRepository
	uploadRepo   repository.UploadRepository
	feedbackRepo repository.FeedbackRepository
	fileStorage  storage.FileStorage
	docPolicy    filecheck.Policy
	imagePolicy  filecheck.Policy
	logger       *zap.Logger
	now          func() time.Time // Injectable clock for the one-per-day rule
}

// NewStudentService creates a new instance of studentService.
func NewStudentService(
	profileRepo repository.ProfileRepository,
	uploadRepo repository.UploadRepository,
	feedbackRepo repository.FeedbackRepository,
	fileStorage storage.FileStorage,
	logger *zap.Logger,
) StudentService {
	return &studentService{
		profileRepo:  profileRepo,
		uploadRepo:   uploadRepo,
		feedbackRepo: feedbackRepo,
		fileStorage:  fileStorage,
		docPolicy:    filecheck.DocumentPolicy(),
		imagePolicy:  filecheck.ImagePolicy(),
		logger:       logger,
		now:          time.Now,
	}
}

// === Profile ===

func (s *studentService) GetProfile(ctx context.Context, userID primitive.ObjectID) (*domain.Profile, error) {
	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return profile, nil
}

// UpdateProfile applies a partial update of the display fields.
func (s *studentService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, in ProfileUpdateInput) (*domain.Profile, error) {
	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.FullName != nil {
		profile.FullName = *in.FullName
	}
	if in.ContactNumber != nil {
		profile.ContactNumber = *in.ContactNumber
	}
	if in.CollegeName != nil {
		profile.CollegeName = *in.CollegeName
	}
	if in.CollegeID != nil {
		profile.CollegeID = *in.CollegeID
	}
	if in.CollegeEmail != nil {
		profile.CollegeEmail = *in.CollegeEmail
	}
	if in.City != nil {
		profile.City = *in.City
	}
	if in.Pincode != nil {
		profile.Pincode = *in.Pincode
	}

	if err := s.profileRepo.Update(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// SetAvatar validates an image, stores it, and points the profile at
// the served URL.
func (s *studentService) SetAvatar(ctx context.Context, userID primitive.ObjectID, file UploadedFile) (*domain.Profile, error) {
	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.admit(file, s.imagePolicy); err != nil {
		return nil, err
	}

	objectKey := storage.AllocateObjectKey(userID.Hex(), file.FileName)
	if _, err := s.fileStorage.Save(ctx, objectKey, file.Content); err != nil {
		s.logger.Error("avatar write failed", zap.String("key", objectKey), zap.Error(err))
		return nil, ErrFileWriteFailed
	}

	profile.AvatarURL = "/uploads/" + objectKey
	if err := s.profileRepo.Update(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// === Uploads ===

// CreateUpload runs the intake pipeline: admit the file type, allocate
// a storage path, persist the blob, then persist the record. The
// sequence is not atomic; a crash between the last two steps leaves an
// orphaned file, which matches the observed behavior of the system.
func (s *studentService) CreateUpload(ctx context.Context, userID primitive.ObjectID, file UploadedFile, description string) (*domain.Upload, error) {
	if file.FileName == "" || file.Content == nil {
		return nil, ErrNoFile
	}

	if err := s.admit(file, s.docPolicy); err != nil {
		return nil, err
	}

	objectKey := storage.AllocateObjectKey(userID.Hex(), file.FileName)
	written, err := s.fileStorage.Save(ctx, objectKey, file.Content)
	if err != nil {
		s.logger.Error("upload write failed", zap.String("key", objectKey), zap.Error(err))
		return nil, ErrFileWriteFailed
	}

	size := file.Size
	if size <= 0 {
		size = written
	}

	upload := &domain.Upload{
		UserID:      userID,
		FileName:    file.FileName,
		StoragePath: objectKey,
		ContentType: file.ContentType,
		Size:        size,
		Description: description,
		Status:      domain.UploadPending,
	}

	uploadID, err := s.uploadRepo.Create(ctx, upload)
	if err != nil {
		return nil, err
	}
	upload.ID = uploadID
	return upload, nil
}

func (s *studentService) ListUploads(ctx context.Context, userID primitive.ObjectID) ([]domain.Upload, error) {
	return s.uploadRepo.ListByUserID(ctx, userID)
}

func (s *studentService) OpenUpload(ctx context.Context, callerID primitive.ObjectID, callerIsAdmin bool, uploadID primitive.ObjectID) (*domain.Upload, io.ReadCloser, error) {
	upload, err := s.uploadRepo.GetByID(ctx, uploadID)
	if err != nil {
		return nil, nil, ErrUploadNotFound
	}
	if !callerIsAdmin && upload.UserID != callerID {
		return nil, nil, ErrUploadNotFound
	}

	rc, err := s.fileStorage.Open(ctx, upload.StoragePath)
	if err != nil {
		return nil, nil, ErrUploadNotFound
	}
	return upload, rc, nil
}

// === Feedback ===

// CreateFeedback validates a submission in a fixed order (first failure
// wins), stores any attachments, and persists the entry.
func (s *studentService) CreateFeedback(ctx context.Context, userID primitive.ObjectID, in FeedbackInput) (*domain.Feedback, error) {
	// 1. Required fields.
	if in.Category == "" || in.Subject == "" || in.Message == "" {
		return nil, ErrFeedbackFieldsRequired
	}

	// 2. One entry per account per UTC calendar day.
	dayStart := s.now().UTC().Truncate(24 * time.Hour)
	exists, err := s.feedbackRepo.ExistsForUserBetween(ctx, userID, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrFeedbackAlreadyToday
	}

	// 3-5. Rating: present, in range, on the half-point grid.
	if in.Rating == nil {
		return nil, ErrRatingRequired
	}
	r := *in.Rating
	if r < 1.0 || r > 5.0 {
		return nil, ErrRatingOutOfRange
	}
	if math.Abs(r*2-math.Round(r*2)) > 1e-9 {
		return nil, ErrRatingBadIncrement
	}

	// 6. Attachments must all pass the image policy before anything is
	// written.
	for _, att := range in.Attachments {
		if err := s.admit(att, s.imagePolicy); err != nil {
			return nil, err
		}
	}

	urls := make([]string, 0, len(in.Attachments))
	for _, att := range in.Attachments {
		objectKey := storage.AllocateObjectKey(userID.Hex(), att.FileName)
		if _, err := s.fileStorage.Save(ctx, objectKey, att.Content); err != nil {
			s.logger.Error("attachment write failed", zap.String("key", objectKey), zap.Error(err))
			return nil, ErrFileWriteFailed
		}
		urls = append(urls, "/uploads/"+objectKey)
	}

	fb := &domain.Feedback{
		UserID:      userID,
		Category:    in.Category,
		Subject:     in.Subject,
		Message:     in.Message,
		Rating:      r,
		Attachments: urls,
		Status:      domain.FeedbackSubmitted,
	}

	fbID, err := s.feedbackRepo.Create(ctx, fb)
	if err != nil {
		return nil, err
	}
	fb.ID = fbID
	return fb, nil
}

func (s *studentService) ListFeedback(ctx context.Context, userID primitive.ObjectID) ([]domain.Feedback, error) {
	return s.feedbackRepo.ListByUserID(ctx, userID)
}

// admit samples the leading bytes without consuming the stream and runs
// the policy decision. A rejection comes back as *filecheck.RejectionError
// with the full diagnostic payload.
func (s *studentService) admit(file UploadedFile, policy filecheck.Policy) error {
	var sample []byte
	if file.Content != nil {
		b, err := filecheck.ReadSample(file.Content)
		if err != nil {
			return err
		}
		sample = b
	}
	return policy.Check(file.FileName, file.ContentType, sample)
}
