package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"studenthub/portal/internal/domain"
	"studenthub/portal/internal/service"
)

// AuthHandler holds the authentication service dependency.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// --- Request/Response Structs ---

type SignupRequest struct {
	Email         string `json:"email" binding:"required,email"`
	Password      string `json:"password" binding:"required,min=6"`
	FullName      string `json:"full_name" binding:"required"`
	ContactNumber string `json:"contact_number"`
	CollegeName   string `json:"college_name"`
	CollegeID     string `json:"college_id"`
	CollegeEmail  string `json:"college_email"`
	City          string `json:"city"`
	Pincode       string `json:"pincode"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password" binding:"required"`
}

// UserSummary is the caller-facing view of an account.
type UserSummary struct {
	ID       string      `json:"id"`
	Email    string      `json:"email"`
	Username string      `json:"username,omitempty"`
	Role     domain.Role `json:"role"`
}

type LoginResponse struct {
	Success      bool        `json:"success"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         UserSummary `json:"user"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type PasswordResetRequest struct {
	Email       string `json:"email" binding:"required,email"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

type PasswordChangeRequest struct {
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

type EmailRequest struct {
	Email string `json:"email"`
}

// --- Handler Methods ---

// Signup creates a student account plus its pending profile.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "email, password, and full_name are required")
		return
	}

	user, _, err := h.authService.Signup(c.Request.Context(), service.SignupInput{
		Email:         req.Email,
		Password:      req.Password,
		FullName:      req.FullName,
		ContactNumber: req.ContactNumber,
		CollegeName:   req.CollegeName,
		CollegeID:     req.CollegeID,
		CollegeEmail:  req.CollegeEmail,
		City:          req.City,
		Pincode:       req.Pincode,
	})
	if err != nil {
		if errors.Is(err, service.ErrEmailAlreadyExists) {
			abortWithError(c, http.StatusConflict, "Email already exists")
			return
		}
		abortWithError(c, http.StatusInternalServerError, fmt.Sprintf("Signup failed: %v", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Signup successful",
		"user":    gin.H{"id": user.ID.Hex(), "email": user.Email},
	})
}

// Login authenticates by email or username and returns a token pair.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil || (req.Email == "" && req.Username == "") {
		abortWithError(c, http.StatusBadRequest, "username (or email) and password required")
		return
	}

	tokens, user, profile, err := h.authService.Login(c.Request.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAuthenticationFailed):
			abortWithError(c, http.StatusUnauthorized, "Invalid credentials")
		case errors.Is(err, service.ErrAccountPending):
			abortWithError(c, http.StatusForbidden, "Your account is pending approval. Please wait for admin verification.")
		case errors.Is(err, service.ErrAccountSuspended):
			abortWithError(c, http.StatusForbidden, "Your account has been suspended. Please contact support.")
		default:
			abortWithError(c, http.StatusInternalServerError, fmt.Sprintf("Login error: %v", err))
		}
		return
	}

	summary := UserSummary{ID: user.ID.Hex(), Email: user.Email, Role: user.Role}
	if profile != nil {
		summary.Username = profile.Username
	}

	c.JSON(http.StatusOK, LoginResponse{
		Success:      true,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		User:         summary,
	})
}

// Refresh exchanges a refresh token for a new access token.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "refresh_token is required")
		return
	}

	access, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "access_token": access})
}

// Me returns the authenticated caller's identity and profile summary.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify caller")
		return
	}

	user, profile, err := h.authService.GetIdentity(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			abortWithError(c, http.StatusNotFound, "User not found")
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to load identity")
		return
	}

	profileView := gin.H{"id": nil, "username": nil, "full_name": nil, "status": string(domain.ProfilePending)}
	if profile != nil {
		profileView = gin.H{
			"id":        profile.ID.Hex(),
			"username":  profile.Username,
			"full_name": profile.FullName,
			"status":    string(profile.Status),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user": gin.H{
			"id":      user.ID.Hex(),
			"email":   user.Email,
			"role":    user.Role,
			"profile": profileView,
		},
	})
}

// ChangePassword replaces the caller's own password.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req PasswordChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "new password is required")
		return
	}

	userID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify caller")
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), userID, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			abortWithError(c, http.StatusNotFound, "User not found")
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to change password")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password changed successfully."})
}

// ResetPassword replaces the password for the account with the given
// email.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "email and new password are required")
		return
	}

	if err := h.authService.ResetPassword(c.Request.Context(), req.Email, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			abortWithError(c, http.StatusNotFound, "User not found")
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to reset password")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password reset successful."})
}

// ForgotUsername always answers success so account existence never
// leaks through this endpoint.
func (h *AuthHandler) ForgotUsername(c *gin.Context) {
	var req EmailRequest
	_ = c.ShouldBindJSON(&req)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "If an account exists, your username will be sent to your email.",
	})
}

// ForgotPassword always answers success, same as ForgotUsername.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req EmailRequest
	_ = c.ShouldBindJSON(&req)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password reset email sent."})
}
