package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"studenthub/portal/internal/domain"
	"studenthub/portal/internal/repository"
)

// --- Error Definitions ---
var (
	ErrEmailAlreadyExists   = errors.New("email already exists")
	ErrAuthenticationFailed = errors.New("invalid credentials")
	ErrAccountPending       = errors.New("your account is pending approval, please wait for admin verification")
	ErrAccountSuspended     = errors.New("your account has been suspended, please contact support")
	ErrHashingFailed        = errors.New("failed to hash password")
	ErrTokenGeneration      = errors.New("failed to generate authentication token")
	ErrInvalidRefreshToken  = errors.New("invalid refresh token")
	ErrUserNotFound         = errors.New("user not found")
)

// TokenPair bundles the bearer credentials issued at login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// SignupInput carries the fields accepted at registration. Only email,
// password, and full name are mandatory.
type SignupInput struct {
	Email         string
	Password      string
	FullName      string
	ContactNumber string
	CollegeName   string
	CollegeID     string
	CollegeEmail  string
	City          string
	Pincode       string
}

// --- Service Interface ---
type AuthService interface {
	Signup(ctx context.Context, in SignupInput) (*domain.User, *domain.Profile, error)
	// Login authenticates by email or by approved username. Students
	// must have an active profile; admins skip the status check.
	Login(ctx context.Context, email, username, password string) (*TokenPair, *domain.User, *domain.Profile, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	GetIdentity(ctx context.Context, userID primitive.ObjectID) (*domain.User, *domain.Profile, error)
	ChangePassword(ctx context.Context, userID primitive.ObjectID, newPassword string) error
	ResetPassword(ctx context.Context, email, newPassword string) error
	GetJWTSecret() string
}

// --- Service Implementation ---

type authService struct {
	userRepo          repository.UserRepository
	profileRepo       repository.ProfileRepository
	jwtSecret         string
	jwtExpiration     time.Duration
	refreshExpiration time.Duration
	logger            *zap.Logger
}

// NewAuthService creates a new instance of authService.
func NewAuthService(
	userRepo repository.UserRepository,
	profileRepo repository.ProfileRepository,
	jwtSecret string,
	jwtExpiration, refreshExpiration time.Duration,
	logger *zap.Logger,
) AuthService {
	if jwtSecret == "" {
		panic("JWT secret cannot be empty") // Critical configuration
	}
	if jwtExpiration <= 0 {
		jwtExpiration = time.Hour
	}
	if refreshExpiration <= 0 {
		refreshExpiration = 30 * 24 * time.Hour
	}
	return &authService{
		userRepo:          userRepo,
		profileRepo:       profileRepo,
		jwtSecret:         jwtSecret,
		jwtExpiration:     jwtExpiration,
		refreshExpiration: refreshExpiration,
		logger:            logger,
	}
}

// Signup registers a new student account: a User with role student plus
// a Profile with status pending and no username. The username arrives
// later, at admin approval.
func (s *authService) Signup(ctx context.Context, in SignupInput) (*domain.User, *domain.Profile, error) {
	if in.Email == "" || in.Password == "" || in.FullName == "" {
		return nil, nil, errors.New("email, password, and full_name are required")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, ErrHashingFailed
	}

	user := &domain.User{
		Email:        in.Email,
		PasswordHash: string(hashedPassword),
		Role:         domain.RoleStudent,
	}

	userID, err := s.userRepo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, nil, ErrEmailAlreadyExists
		}
		return nil, nil, err
	}
	user.ID = userID

	profile := &domain.Profile{
		UserID:        userID,
		FullName:      in.FullName,
		Email:         in.Email,
		ContactNumber: in.ContactNumber,
		CollegeName:   in.CollegeName,
		CollegeID:     in.CollegeID,
		CollegeEmail:  in.CollegeEmail,
		City:          in.City,
		Pincode:       in.Pincode,
		Status:        domain.ProfilePending,
	}

	profileID, err := s.profileRepo.Create(ctx, profile)
	if err != nil {
		// Compensate so a half-created account does not block the email.
		if delErr := s.userRepo.Delete(ctx, userID); delErr != nil {
			s.logger.Error("failed to roll back user after profile create failure",
				zap.String("userId", userID.Hex()), zap.Error(delErr))
		}
		return nil, nil, err
	}
	profile.ID = profileID

	user.PasswordHash = ""
	return user, profile, nil
}

// Login authenticates a caller and issues access + refresh tokens.
func (s *authService) Login(ctx context.Context, email, username, password string) (*TokenPair, *domain.User, *domain.Profile, error) {
	if (email == "" && username == "") || password == "" {
		return nil, nil, nil, errors.New("username (or email) and password required")
	}

	// Resolve the account by email, or by approved username.
	var user *domain.User
	var profile *domain.Profile
	var err error
	if email != "" {
		user, err = s.userRepo.GetByEmail(ctx, email)
		if err == nil {
			profile, _ = s.profileRepo.GetByUserID(ctx, user.ID)
		}
	} else {
		profile, err = s.profileRepo.GetByUsername(ctx, username)
		if err == nil {
			user, err = s.userRepo.GetByID(ctx, profile.UserID)
		}
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, nil, ErrAuthenticationFailed
		}
		return nil, nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, nil, ErrAuthenticationFailed
	}

	// Students need an approved profile; admins are always allowed in.
	if !user.IsAdmin() {
		if profile == nil || profile.Status != domain.ProfileActive {
			switch {
			case profile != nil && profile.Status == domain.ProfileSuspended:
				return nil, nil, nil, ErrAccountSuspended
			default:
				return nil, nil, nil, ErrAccountPending
			}
		}
	}

	access, err := s.generateToken(user, tokenTypeAccess, s.jwtExpiration)
	if err != nil {
		return nil, nil, nil, ErrTokenGeneration
	}
	refresh, err := s.generateToken(user, tokenTypeRefresh, s.refreshExpiration)
	if err != nil {
		return nil, nil, nil, ErrTokenGeneration
	}

	user.PasswordHash = ""
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, user, profile, nil
}

// Refresh exchanges a valid refresh token for a fresh access token.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims := &jwtClaims{}
	token, err := jwt.ParseWithClaims(refreshToken, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidRefreshToken
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid || claims.TokenType != tokenTypeRefresh {
		return "", ErrInvalidRefreshToken
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return "", ErrInvalidRefreshToken
	}
	// Re-fetch so a deleted account cannot keep minting access tokens.
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return "", ErrInvalidRefreshToken
	}

	access, err := s.generateToken(user, tokenTypeAccess, s.jwtExpiration)
	if err != nil {
		return "", ErrTokenGeneration
	}
	return access, nil
}

// GetIdentity returns the account and profile behind a verified caller id.
func (s *authService) GetIdentity(ctx context.Context, userID primitive.ObjectID) (*domain.User, *domain.Profile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, err
	}
	user.PasswordHash = ""

	// A missing profile is tolerated; admin seed accounts may not have one.
	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, nil, err
	}
	return user, profile, nil
}

// ChangePassword replaces the caller's own credential.
func (s *authService) ChangePassword(ctx context.Context, userID primitive.ObjectID, newPassword string) error {
	if newPassword == "" {
		return errors.New("new password is required")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return ErrHashingFailed
	}
	if err := s.userRepo.UpdatePasswordHash(ctx, userID, string(hashed)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// ResetPassword replaces the credential of the account with the given
// email address.
func (s *authService) ResetPassword(ctx context.Context, email, newPassword string) error {
	if email == "" || newPassword == "" {
		return errors.New("email and new password are required")
	}
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return ErrHashingFailed
	}
	return s.userRepo.UpdatePasswordHash(ctx, user.ID, string(hashed))
}

// --- JWT Helpers ---

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// jwtClaims defines the structure of the JWT payload.
type jwtClaims struct {
	UserID    string      `json:"uid"`
	Role      domain.Role `json:"role"`
	TokenType string      `json:"typ"`
	jwt.RegisteredClaims
}

func (s *authService) generateToken(user *domain.User, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &jwtClaims{
		UserID:    user.ID.Hex(),
		Role:      user.Role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.Hex(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "studenthub-portal",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

// GetJWTSecret returns the JWT secret for middleware authentication.
func (s *authService) GetJWTSecret() string {
	return s.jwtSecret
}
