package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"studenthub/portal/internal/domain"
	"studenthub/portal/internal/service"
)

// AdminHandler holds the admin service dependency.
type AdminHandler struct {
	adminService service.AdminService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(adminService service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// --- Request Structs ---

type ApproveRequest struct {
	Username string `json:"username"`
}

type UploadReviewRequest struct {
	Status   string `json:"status"`
	Feedback string `json:"feedback"`
}

type FeedbackRespondRequest struct {
	Response *string `json:"response"`
	Status   *string `json:"status"`
}

// AdminUploadResponse is an upload listing row enriched with the
// student's display name.
type AdminUploadResponse struct {
	UploadResponse
	StudentName string `json:"student_name"`
}

// --- Account management ---

func (h *AdminHandler) ListStudents(c *gin.Context) {
	profiles, err := h.adminService.ListStudents(c.Request.Context())
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to fetch students")
		return
	}

	result := make([]ProfileResponse, 0, len(profiles))
	for i := range profiles {
		result = append(result, MapProfileToResponse(&profiles[i]))
	}
	c.JSON(http.StatusOK, result)
}

func (h *AdminHandler) ApproveStudent(c *gin.Context) {
	profileID, ok := profileIDParam(c)
	if !ok {
		return
	}

	var req ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" {
		abortWithError(c, http.StatusBadRequest, "username is required")
		return
	}

	if err := h.adminService.ApproveStudent(c.Request.Context(), profileID, req.Username); err != nil {
		switch {
		case errors.Is(err, service.ErrUsernameTaken):
			abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Username %q is already taken", req.Username))
		case errors.Is(err, service.ErrProfileNotFound):
			abortWithError(c, http.StatusNotFound, "Profile not found")
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to approve student")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Student approved with username: %s", req.Username),
	})
}

func (h *AdminHandler) SuspendStudent(c *gin.Context) {
	h.setStatus(c, h.adminService.SuspendStudent, "Student suspended successfully.")
}

func (h *AdminHandler) ActivateStudent(c *gin.Context) {
	h.setStatus(c, h.adminService.ActivateStudent, "Student activated successfully.")
}

func (h *AdminHandler) setStatus(c *gin.Context, op func(context.Context, primitive.ObjectID) error, message string) {
	profileID, ok := profileIDParam(c)
	if !ok {
		return
	}

	if err := op(c.Request.Context(), profileID); err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			abortWithError(c, http.StatusNotFound, "Profile not found")
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to update student status")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message})
}

func (h *AdminHandler) DeleteStudent(c *gin.Context) {
	profileID, ok := profileIDParam(c)
	if !ok {
		return
	}

	if err := h.adminService.DeleteStudent(c.Request.Context(), profileID); err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			abortWithError(c, http.StatusNotFound, "Profile not found")
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to delete student")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Student deleted successfully."})
}

// --- Upload review ---

func (h *AdminHandler) ListUploads(c *gin.Context) {
	uploads, err := h.adminService.ListUploads(c.Request.Context())
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to fetch uploads")
		return
	}

	result := make([]AdminUploadResponse, 0, len(uploads))
	for i := range uploads {
		result = append(result, AdminUploadResponse{
			UploadResponse: MapUploadToResponse(&uploads[i].Upload),
			StudentName:    uploads[i].StudentName,
		})
	}
	c.JSON(http.StatusOK, result)
}

func (h *AdminHandler) ReviewUpload(c *gin.Context) {
	adminID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify caller")
		return
	}

	uploadID, err := primitive.ObjectIDFromHex(c.Param("uploadId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid upload ID")
		return
	}

	var req UploadReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	err = h.adminService.ReviewUpload(c.Request.Context(), adminID, uploadID, domain.UploadStatus(req.Status), req.Feedback)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidStatus):
			abortWithError(c, http.StatusBadRequest, "Invalid status")
		case errors.Is(err, service.ErrUploadNotFound):
			abortWithError(c, http.StatusNotFound, "Upload not found")
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to update upload status")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": fmt.Sprintf("Upload marked as %s.", req.Status)})
}

// --- Feedback handling ---

func (h *AdminHandler) ListFeedback(c *gin.Context) {
	entries, err := h.adminService.ListFeedback(c.Request.Context())
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to fetch feedback")
		return
	}

	result := make([]FeedbackResponse, 0, len(entries))
	for i := range entries {
		result = append(result, MapFeedbackToResponse(&entries[i]))
	}
	c.JSON(http.StatusOK, result)
}

func (h *AdminHandler) RespondFeedback(c *gin.Context) {
	adminID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify caller")
		return
	}

	feedbackID, err := primitive.ObjectIDFromHex(c.Param("feedbackId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid feedback ID")
		return
	}

	var req FeedbackRespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	input := service.FeedbackResponseInput{Response: req.Response}
	if req.Status != nil {
		status := domain.FeedbackStatus(*req.Status)
		input.Status = &status
	}

	if err := h.adminService.RespondFeedback(c.Request.Context(), adminID, feedbackID, input); err != nil {
		switch {
		case errors.Is(err, service.ErrNothingToUpdate), errors.Is(err, service.ErrInvalidStatus):
			abortWithError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrFeedbackNotFound):
			abortWithError(c, http.StatusNotFound, "Feedback not found")
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to respond to feedback")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Feedback updated."})
}

// --- Helpers ---

func profileIDParam(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("profileId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid profile ID")
		return primitive.NilObjectID, false
	}
	return id, true
}
