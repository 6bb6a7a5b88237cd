package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"studenthub/portal/internal/domain"
	"studenthub/portal/internal/repository"
)

const testSecret = "test-secret"

type stubUserRepo struct {
	mock.Mock
}

func (m *stubUserRepo) Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(primitive.ObjectID), args.Error(1)
}

func (m *stubUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *stubUserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *stubUserRepo) UpdatePasswordHash(ctx context.Context, id primitive.ObjectID, hash string) error {
	return m.Called(ctx, id, hash).Error(0)
}

func (m *stubUserRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	return m.Called(ctx, id).Error(0)
}

func signToken(t *testing.T, userID primitive.ObjectID, role domain.Role, tokenType string) string {
	t.Helper()
	claims := &jwtClaims{
		UserID:    userID.Hex(),
		Role:      role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func newGateRouter(userRepo repository.UserRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/admin-only", AuthMiddleware(testSecret), AdminRequired(userRepo), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func doGet(router *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/admin-only", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	router := newGateRouter(new(stubUserRepo))

	w := doGet(router, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_RefreshTokenRejected(t *testing.T) {
	// A refresh token is only good at the refresh endpoint, never as a
	// bearer credential.
	router := newGateRouter(new(stubUserRepo))
	token := signToken(t, primitive.NewObjectID(), domain.RoleAdmin, "refresh")

	w := doGet(router, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminRequired_ChecksStoredRole(t *testing.T) {
	// The role claim in the token is not trusted; the stored account
	// decides. A token claiming admin for a student account is refused.
	userID := primitive.NewObjectID()
	userRepo := new(stubUserRepo)
	userRepo.On("GetByID", mock.Anything, userID).
		Return(&domain.User{ID: userID, Role: domain.RoleStudent}, nil)

	router := newGateRouter(userRepo)
	token := signToken(t, userID, domain.RoleAdmin, "access")

	w := doGet(router, token)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Admin access required")
}

func TestAdminRequired_AdminAllowed(t *testing.T) {
	userID := primitive.NewObjectID()
	userRepo := new(stubUserRepo)
	userRepo.On("GetByID", mock.Anything, userID).
		Return(&domain.User{ID: userID, Role: domain.RoleAdmin}, nil)

	router := newGateRouter(userRepo)
	token := signToken(t, userID, domain.RoleAdmin, "access")

	w := doGet(router, token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminRequired_FailsClosedOnLookupError(t *testing.T) {
	// A record store failure, or a deleted account, must deny rather
	// than fall back to the token claim.
	userID := primitive.NewObjectID()
	userRepo := new(stubUserRepo)
	userRepo.On("GetByID", mock.Anything, userID).
		Return(nil, repository.ErrNotFound)

	router := newGateRouter(userRepo)
	token := signToken(t, userID, domain.RoleAdmin, "access")

	w := doGet(router, token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
