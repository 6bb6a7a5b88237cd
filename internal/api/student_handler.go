package api

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"studenthub/portal/internal/domain"
	"studenthub/portal/internal/filecheck"
	"studenthub/portal/internal/service"
)

// StudentHandler holds the student service dependency.
type StudentHandler struct {
	studentService service.StudentService
}

// NewStudentHandler creates a new StudentHandler.
func NewStudentHandler(studentService service.StudentService) *StudentHandler {
	return &StudentHandler{studentService: studentService}
}

// --- Request/Response Structs ---

type ProfileResponse struct {
	ID            string `json:"id"`
	UserID        string `json:"user_id"`
	Username      string `json:"username,omitempty"`
	Email         string `json:"email"`
	FullName      string `json:"full_name"`
	ContactNumber string `json:"contact_number,omitempty"`
	CollegeName   string `json:"college_name,omitempty"`
	CollegeID     string `json:"college_id,omitempty"`
	CollegeEmail  string `json:"college_email,omitempty"`
	City          string `json:"city,omitempty"`
	Pincode       string `json:"pincode,omitempty"`
	AvatarURL     string `json:"avatar_url,omitempty"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at,omitempty"`
}

type ProfileUpdateRequest struct {
	FullName      *string `json:"fullName"`
	ContactNumber *string `json:"contactNumber"`
	CollegeName   *string `json:"collegeName"`
	CollegeID     *string `json:"collegeId"`
	CollegeEmail  *string `json:"collegeEmail"`
	City          *string `json:"city"`
	Pincode       *string `json:"pincode"`
}

type UploadResponse struct {
	ID            string  `json:"id"`
	UserID        string  `json:"user_id"`
	FileName      string  `json:"file_name"`
	FileURL       string  `json:"file_url"`
	FileType      string  `json:"file_type,omitempty"`
	FileSize      int64   `json:"file_size"`
	Description   string  `json:"description,omitempty"`
	Status        string  `json:"status"`
	AdminFeedback string  `json:"admin_feedback,omitempty"`
	ReviewedBy    *string `json:"reviewed_by,omitempty"`
	ReviewedAt    *string `json:"reviewed_at,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

type FeedbackJSONRequest struct {
	Category string   `json:"category"`
	Subject  string   `json:"subject"`
	Message  string   `json:"message"`
	Rating   *float64 `json:"rating"`
}

type FeedbackResponse struct {
	ID            string   `json:"id"`
	UserID        string   `json:"user_id"`
	Category      string   `json:"category"`
	Subject       string   `json:"subject"`
	Message       string   `json:"message"`
	Rating        float64  `json:"rating"`
	Attachments   []string `json:"attachments,omitempty"`
	Status        string   `json:"status"`
	AdminResponse string   `json:"admin_response,omitempty"`
	RespondedAt   *string  `json:"responded_at,omitempty"`
	CreatedAt     string   `json:"created_at"`
}

// --- Profile ---

func (h *StudentHandler) GetProfile(c *gin.Context) {
	userID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify caller")
		return
	}

	profile, err := h.studentService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			abortWithError(c, http.StatusNotFound, "Profile not found")
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to fetch profile")
		return
	}
	c.JSON(http.StatusOK, MapProfileToResponse(profile))
}

func (h *StudentHandler) UpdateProfile(c *gin.Context) {
	userID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify caller")
		return
	}

	var req ProfileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	_, err = h.studentService.UpdateProfile(c.Request.Context(), userID, service.ProfileUpdateInput{
		FullName:      req.FullName,
		ContactNumber: req.ContactNumber,
		CollegeName:   req.CollegeName,
		CollegeID:     req.CollegeID,
		CollegeEmail:  req.CollegeEmail,
		City:          req.City,
		Pincode:       req.Pincode,
	})
	if err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			abortWithError(c, http.StatusNotFound, "Profile not found")
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to update profile")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Profile updated"})
}

// SetAvatar accepts a multipart image and stores it as the caller's
// avatar.
func (h *StudentHandler) SetAvatar(c *gin.Context) {
	userID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify caller")
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "No file part")
		return
	}
	file, cleanup, err := openMultipart(header)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Unable to read file")
		return
	}
	defer cleanup()

	profile, err := h.studentService.SetAvatar(c.Request.Context(), userID, file)
	if err != nil {
		respondUploadError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "avatar_url": profile.AvatarURL})
}

// --- Uploads ---

// CreateUpload handles the daily multipart file submission.
func (h *StudentHandler) CreateUpload(c *gin.Context) {
	userID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify caller")
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "No file part")
		return
	}
	if header.Filename == "" {
		abortWithError(c, http.StatusBadRequest, "No selected file")
		return
	}
	file, cleanup, err := openMultipart(header)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Unable to read file")
		return
	}
	defer cleanup()

	description := c.PostForm("description")

	upload, err := h.studentService.CreateUpload(c.Request.Context(), userID, file, description)
	if err != nil {
		respondUploadError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "File uploaded successfully",
		"upload":  gin.H{"id": upload.ID.Hex()},
	})
}

func (h *StudentHandler) ListUploads(c *gin.Context) {
	userID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify caller")
		return
	}

	uploads, err := h.studentService.ListUploads(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to fetch uploads")
		return
	}

	result := make([]UploadResponse, 0, len(uploads))
	for i := range uploads {
		result = append(result, MapUploadToResponse(&uploads[i]))
	}
	c.JSON(http.StatusOK, result)
}

// DownloadUpload streams a stored file back to its owner (or an admin).
// Any failure is a generic not-found.
func (h *StudentHandler) DownloadUpload(c *gin.Context) {
	userID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify caller")
		return
	}
	role, _ := getUserRoleFromContext(c)

	uploadID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusNotFound, "Upload not found")
		return
	}

	upload, rc, err := h.studentService.OpenUpload(c.Request.Context(), userID, role == domain.RoleAdmin, uploadID)
	if err != nil {
		abortWithError(c, http.StatusNotFound, "Upload not found")
		return
	}
	defer rc.Close()

	contentType := upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", `attachment; filename="`+upload.FileName+`"`)
	c.DataFromReader(http.StatusOK, upload.Size, contentType, rc, nil)
}

// --- Feedback ---

// CreateFeedback accepts either a JSON body or a multipart form with
// image attachments.
func (h *StudentHandler) CreateFeedback(c *gin.Context) {
	userID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify caller")
		return
	}

	var input service.FeedbackInput
	var cleanups []func()
	defer func() {
		for _, fn := range cleanups {
			fn()
		}
	}()

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		input.Category = c.PostForm("category")
		input.Subject = c.PostForm("subject")
		input.Message = c.PostForm("message")
		if raw, ok := c.GetPostForm("rating"); ok && raw != "" {
			r, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				abortWithError(c, http.StatusBadRequest, "rating must be a number")
				return
			}
			input.Rating = &r
		}

		form, err := c.MultipartForm()
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid multipart form")
			return
		}
		for _, header := range form.File["attachments"] {
			file, cleanup, err := openMultipart(header)
			if err != nil {
				abortWithError(c, http.StatusBadRequest, "Unable to read attachment")
				return
			}
			cleanups = append(cleanups, cleanup)
			input.Attachments = append(input.Attachments, file)
		}
	} else {
		var req FeedbackJSONRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid request body")
			return
		}
		input.Category = req.Category
		input.Subject = req.Subject
		input.Message = req.Message
		input.Rating = req.Rating
	}

	fb, err := h.studentService.CreateFeedback(c.Request.Context(), userID, input)
	if err != nil {
		respondFeedbackError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "Feedback submitted",
		"feedback_id": fb.ID.Hex(),
	})
}

func (h *StudentHandler) ListFeedback(c *gin.Context) {
	userID, err := getUserObjectID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify caller")
		return
	}

	entries, err := h.studentService.ListFeedback(c.Request.Context(), userID)
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

// --- Helpers and mappers ---

// openMultipart opens a multipart file header as an UploadedFile.
// multipart.File is seekable for both in-memory and on-disk spooling,
// which the validator relies on.
func openMultipart(header *multipart.FileHeader) (service.UploadedFile, func(), error) {
	f, err := header.Open()
	if err != nil {
		return service.UploadedFile{}, nil, err
	}
	return service.UploadedFile{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Content:     f,
	}, func() { f.Close() }, nil
}

// respondUploadError maps intake pipeline failures onto HTTP responses.
// A filecheck rejection carries its diagnostic payload to the caller.
func respondUploadError(c *gin.Context, err error) {
	var rejection *filecheck.RejectionError
	switch {
	case errors.As(err, &rejection):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"success":    false,
			"message":    "Invalid file type",
			"diagnostic": rejection,
		})
	case errors.Is(err, service.ErrNoFile):
		abortWithError(c, http.StatusBadRequest, "No selected file")
	case errors.Is(err, service.ErrProfileNotFound):
		abortWithError(c, http.StatusNotFound, "Profile not found")
	case errors.Is(err, service.ErrFileWriteFailed):
		abortWithError(c, http.StatusInternalServerError, "Failed to store file")
	default:
		abortWithError(c, http.StatusInternalServerError, "Failed to upload file: "+err.Error())
	}
}

func respondFeedbackError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrFeedbackFieldsRequired),
		errors.Is(err, service.ErrFeedbackAlreadyToday),
		errors.Is(err, service.ErrRatingRequired),
		errors.Is(err, service.ErrRatingOutOfRange),
		errors.Is(err, service.ErrRatingBadIncrement):
		abortWithError(c, http.StatusBadRequest, err.Error())
	default:
		respondUploadError(c, err)
	}
}

func MapProfileToResponse(p *domain.Profile) ProfileResponse {
	return ProfileResponse{
		ID:            p.ID.Hex(),
		UserID:        p.UserID.Hex(),
		Username:      p.Username,
		Email:         p.Email,
		FullName:      p.FullName,
		ContactNumber: p.ContactNumber,
		CollegeName:   p.CollegeName,
		CollegeID:     p.CollegeID,
		CollegeEmail:  p.CollegeEmail,
		City:          p.City,
		Pincode:       p.Pincode,
		AvatarURL:     p.AvatarURL,
		Status:        string(p.Status),
		CreatedAt:     p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func MapUploadToResponse(u *domain.Upload) UploadResponse {
	resp := UploadResponse{
		ID:            u.ID.Hex(),
		UserID:        u.UserID.Hex(),
		FileName:      u.FileName,
		FileURL:       "/uploads/" + u.StoragePath,
		FileType:      u.ContentType,
		FileSize:      u.Size,
		Description:   u.Description,
		Status:        string(u.Status),
		AdminFeedback: u.AdminFeedback,
		CreatedAt:     u.CreatedAt.UTC().Format(time.RFC3339),
	}
	if u.ReviewedBy != nil {
		hex := u.ReviewedBy.Hex()
		resp.ReviewedBy = &hex
	}
	if u.ReviewedAt != nil {
		ts := u.ReviewedAt.UTC().Format(time.RFC3339)
		resp.ReviewedAt = &ts
	}
	return resp
}

func MapFeedbackToResponse(f *domain.Feedback) FeedbackResponse {
	resp := FeedbackResponse{
		ID:            f.ID.Hex(),
		UserID:        f.UserID.Hex(),
		Category:      f.Category,
		Subject:       f.Subject,
		Message:       f.Message,
		Rating:        f.Rating,
		Attachments:   f.Attachments,
		Status:        string(f.Status),
		AdminResponse: f.AdminResponse,
		CreatedAt:     f.CreatedAt.UTC().Format(time.RFC3339),
	}
	if f.RespondedAt != nil {
		ts := f.RespondedAt.UTC().Format(time.RFC3339)
		resp.RespondedAt = &ts
	}
	return resp
}
