package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"studenthub/portal/internal/domain"
	"studenthub/portal/internal/repository"
)

const testJWTSecret = "test-secret"

func newTestAuthService(t *testing.T) (AuthService, *MockUserRepository, *MockProfileRepository) {
	t.Helper()
	userRepo := new(MockUserRepository)
	profileRepo := new(MockProfileRepository)
	svc := NewAuthService(userRepo, profileRepo, testJWTSecret, time.Hour, 24*time.Hour, zap.NewNop())
	return svc, userRepo, profileRepo
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestSignup_CreatesPendingStudent(t *testing.T) {
	svc, userRepo, profileRepo := newTestAuthService(t)
	userID := primitive.NewObjectID()
	profileID := primitive.NewObjectID()

	userRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Email == "new@example.com" && u.Role == domain.RoleStudent && u.PasswordHash != ""
	})).Return(userID, nil).Once()

	profileRepo.On("Create", mock.Anything, mock.MatchedBy(func(p *domain.Profile) bool {
		return p.UserID == userID &&
			p.Status == domain.ProfilePending &&
			p.Username == "" &&
			p.FullName == "New Student"
	})).Return(profileID, nil).Once()

	user, profile, err := svc.Signup(context.Background(), SignupInput{
		Email:    "new@example.com",
		Password: "secret123",
		FullName: "New Student",
	})

	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	assert.Empty(t, user.PasswordHash)
	assert.Equal(t, domain.ProfilePending, profile.Status)
	userRepo.AssertExpectations(t)
	profileRepo.AssertExpectations(t)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	svc, userRepo, _ := newTestAuthService(t)

	userRepo.On("Create", mock.Anything, mock.Anything).
		Return(primitive.NilObjectID, repository.ErrDuplicate).Once()

	_, _, err := svc.Signup(context.Background(), SignupInput{
		Email:    "taken@example.com",
		Password: "secret123",
		FullName: "Someone",
	})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
}

func TestSignup_MissingFields(t *testing.T) {
	svc, userRepo, _ := newTestAuthService(t)

	_, _, err := svc.Signup(context.Background(), SignupInput{Email: "a@b.c"})
	assert.Error(t, err)
	userRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSignup_RollsBackUserOnProfileFailure(t *testing.T) {
	svc, userRepo, profileRepo := newTestAuthService(t)
	userID := primitive.NewObjectID()

	userRepo.On("Create", mock.Anything, mock.Anything).Return(userID, nil).Once()
	profileRepo.On("Create", mock.Anything, mock.Anything).
		Return(primitive.NilObjectID, assert.AnError).Once()
	userRepo.On("Delete", mock.Anything, userID).Return(nil).Once()

	_, _, err := svc.Signup(context.Background(), SignupInput{
		Email:    "new@example.com",
		Password: "secret123",
		FullName: "New Student",
	})
	assert.Error(t, err)
	userRepo.AssertExpectations(t)
}

func TestLogin_PendingStudentRejected(t *testing.T) {
	svc, userRepo, profileRepo := newTestAuthService(t)
	userID := primitive.NewObjectID()

	user := &domain.User{
		ID:           userID,
		Email:        "stu@example.com",
		PasswordHash: hashPassword(t, "secret123"),
		Role:         domain.RoleStudent,
	}
	profile := &domain.Profile{UserID: userID, Status: domain.ProfilePending}

	userRepo.On("GetByEmail", mock.Anything, "stu@example.com").Return(user, nil)
	profileRepo.On("GetByUserID", mock.Anything, userID).Return(profile, nil)

	_, _, _, err := svc.Login(context.Background(), "stu@example.com", "", "secret123")
	assert.ErrorIs(t, err, ErrAccountPending)
}

func TestLogin_SuspendedStudentRejected(t *testing.T) {
	svc, userRepo, profileRepo := newTestAuthService(t)
	userID := primitive.NewObjectID()

	user := &domain.User{
		ID:           userID,
		Email:        "stu@example.com",
		PasswordHash: hashPassword(t, "secret123"),
		Role:         domain.RoleStudent,
	}
	profile := &domain.Profile{UserID: userID, Status: domain.ProfileSuspended}

	userRepo.On("GetByEmail", mock.Anything, "stu@example.com").Return(user, nil)
	profileRepo.On("GetByUserID", mock.Anything, userID).Return(profile, nil)

	_, _, _, err := svc.Login(context.Background(), "stu@example.com", "", "secret123")
	assert.ErrorIs(t, err, ErrAccountSuspended)
}

func TestLogin_ActiveStudentGetsTokenPair(t *testing.T) {
	svc, userRepo, profileRepo := newTestAuthService(t)
	userID := primitive.NewObjectID()

	user := &domain.User{
		ID:           userID,
		Email:        "stu@example.com",
		PasswordHash: hashPassword(t, "secret123"),
		Role:         domain.RoleStudent,
	}
	profile := &domain.Profile{UserID: userID, Username: "stu1", Status: domain.ProfileActive}

	userRepo.On("GetByEmail", mock.Anything, "stu@example.com").Return(user, nil)
	profileRepo.On("GetByUserID", mock.Anything, userID).Return(profile, nil)

	pair, gotUser, gotProfile, err := svc.Login(context.Background(), "stu@example.com", "", "secret123")

	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Empty(t, gotUser.PasswordHash)
	assert.Equal(t, "stu1", gotProfile.Username)

	// The access token carries the uid and the access type marker.
	claims := &jwtClaims{}
	_, err = jwt.ParseWithClaims(pair.AccessToken, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	assert.Equal(t, userID.Hex(), claims.UserID)
	assert.Equal(t, tokenTypeAccess, claims.TokenType)
}

func TestLogin_ByUsername(t *testing.T) {
	svc, userRepo, profileRepo := newTestAuthService(t)
	userID := primitive.NewObjectID()

	user := &domain.User{
		ID:           userID,
		PasswordHash: hashPassword(t, "secret123"),
		Role:         domain.RoleStudent,
	}
	profile := &domain.Profile{UserID: userID, Username: "stu1", Status: domain.ProfileActive}

	profileRepo.On("GetByUsername", mock.Anything, "stu1").Return(profile, nil)
	userRepo.On("GetByID", mock.Anything, userID).Return(user, nil)

	pair, _, _, err := svc.Login(context.Background(), "", "stu1", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, userRepo, profileRepo := newTestAuthService(t)
	userID := primitive.NewObjectID()

	user := &domain.User{
		ID:           userID,
		PasswordHash: hashPassword(t, "secret123"),
		Role:         domain.RoleStudent,
	}
	userRepo.On("GetByEmail", mock.Anything, "stu@example.com").Return(user, nil)
	profileRepo.On("GetByUserID", mock.Anything, userID).
		Return(&domain.Profile{UserID: userID, Status: domain.ProfileActive}, nil)

	_, _, _, err := svc.Login(context.Background(), "stu@example.com", "", "wrong")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestLogin_UnknownAccount(t *testing.T) {
	svc, userRepo, _ := newTestAuthService(t)

	userRepo.On("GetByEmail", mock.Anything, "nobody@example.com").
		Return(nil, repository.ErrNotFound)

	_, _, _, err := svc.Login(context.Background(), "nobody@example.com", "", "x")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestLogin_AdminSkipsProfileGate(t *testing.T) {
	svc, userRepo, profileRepo := newTestAuthService(t)
	userID := primitive.NewObjectID()

	admin := &domain.User{
		ID:           userID,
		Email:        "admin@example.com",
		PasswordHash: hashPassword(t, "secret123"),
		Role:         domain.RoleAdmin,
	}
	userRepo.On("GetByEmail", mock.Anything, "admin@example.com").Return(admin, nil)
	profileRepo.On("GetByUserID", mock.Anything, userID).Return(nil, repository.ErrNotFound)

	pair, _, _, err := svc.Login(context.Background(), "admin@example.com", "", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
}

func TestRefresh_IssuesNewAccessToken(t *testing.T) {
	svc, userRepo, profileRepo := newTestAuthService(t)
	userID := primitive.NewObjectID()

	user := &domain.User{
		ID:           userID,
		Email:        "stu@example.com",
		PasswordHash: hashPassword(t, "secret123"),
		Role:         domain.RoleStudent,
	}
	userRepo.On("GetByEmail", mock.Anything, "stu@example.com").Return(user, nil)
	profileRepo.On("GetByUserID", mock.Anything, userID).
		Return(&domain.Profile{UserID: userID, Status: domain.ProfileActive}, nil)
	userRepo.On("GetByID", mock.Anything, userID).Return(user, nil)

	pair, _, _, err := svc.Login(context.Background(), "stu@example.com", "", "secret123")
	require.NoError(t, err)

	access, err := svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)

	claims := &jwtClaims{}
	_, err = jwt.ParseWithClaims(access, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	assert.Equal(t, tokenTypeAccess, claims.TokenType)
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	svc, userRepo, profileRepo := newTestAuthService(t)
	userID := primitive.NewObjectID()

	user := &domain.User{
		ID:           userID,
		Email:        "stu@example.com",
		PasswordHash: hashPassword(t, "secret123"),
		Role:         domain.RoleStudent,
	}
	userRepo.On("GetByEmail", mock.Anything, "stu@example.com").Return(user, nil)
	profileRepo.On("GetByUserID", mock.Anything, userID).
		Return(&domain.Profile{UserID: userID, Status: domain.ProfileActive}, nil)

	pair, _, _, err := svc.Login(context.Background(), "stu@example.com", "", "secret123")
	require.NoError(t, err)

	// An access token is not exchangeable, only a refresh token is.
	_, err = svc.Refresh(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRefresh_RejectsGarbage(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	_, err := svc.Refresh(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRefresh_RejectsDeletedAccount(t *testing.T) {
	svc, userRepo, profileRepo := newTestAuthService(t)
	userID := primitive.NewObjectID()

	user := &domain.User{
		ID:           userID,
		Email:        "stu@example.com",
		PasswordHash: hashPassword(t, "secret123"),
		Role:         domain.RoleStudent,
	}
	userRepo.On("GetByEmail", mock.Anything, "stu@example.com").Return(user, nil)
	profileRepo.On("GetByUserID", mock.Anything, userID).
		Return(&domain.Profile{UserID: userID, Status: domain.ProfileActive}, nil)
	userRepo.On("GetByID", mock.Anything, userID).Return(nil, repository.ErrNotFound)

	pair, _, _, err := svc.Login(context.Background(), "stu@example.com", "", "secret123")
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestResetPassword(t *testing.T) {
	svc, userRepo, _ := newTestAuthService(t)
	userID := primitive.NewObjectID()

	user := &domain.User{ID: userID, Email: "stu@example.com"}
	userRepo.On("GetByEmail", mock.Anything, "stu@example.com").Return(user, nil)
	userRepo.On("UpdatePasswordHash", mock.Anything, userID, mock.MatchedBy(func(hash string) bool {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte("newpass")) == nil
	})).Return(nil).Once()

	err := svc.ResetPassword(context.Background(), "stu@example.com", "newpass")
	require.NoError(t, err)
	userRepo.AssertExpectations(t)
}

func TestResetPassword_UnknownEmail(t *testing.T) {
	svc, userRepo, _ := newTestAuthService(t)

	userRepo.On("GetByEmail", mock.Anything, "nobody@example.com").
		Return(nil, repository.ErrNotFound)

	err := svc.ResetPassword(context.Background(), "nobody@example.com", "newpass")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
