package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"studenthub/portal/internal/repository"
	"studenthub/portal/internal/service"
	"studenthub/portal/internal/storage"
)

// SetupRoutes wires handlers, middleware, and route groups onto the
// engine.
func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	userRepo repository.UserRepository,
	fileStorage storage.FileStorage,
	authService service.AuthService,
	studentService service.StudentService,
	adminService service.AdminService,
	logger *zap.Logger,
) {
	authHandler := NewAuthHandler(authService)
	studentHandler := NewStudentHandler(studentService)
	adminHandler := NewAdminHandler(adminService)
	filesHandler := NewFilesHandler(fileStorage)

	authMiddleware := AuthMiddleware(jwtSecret)
	adminGate := AdminRequired(userRepo)

	router.Use(RequestLogger(logger))
	router.Use(CORS())

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Stored files double as URLs; serving stays outside the API group.
	router.GET("/uploads/*filepath", filesHandler.Serve)

	apiV1 := router.Group("/api/v1")

	authGroup := apiV1.Group("/auth")
	{
		authGroup.POST("/signup", authHandler.Signup)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/forgot-username", authHandler.ForgotUsername)
		authGroup.POST("/forgot-password", authHandler.ForgotPassword)
		authGroup.POST("/reset-password", authHandler.ResetPassword)

		authGroup.GET("/me", authMiddleware, authHandler.Me)
		authGroup.POST("/change-password", authMiddleware, authHandler.ChangePassword)
	}

	studentGroup := apiV1.Group("/student")
	studentGroup.Use(authMiddleware)
	{
		studentGroup.GET("/profile", studentHandler.GetProfile)
		studentGroup.PUT("/profile", studentHandler.UpdateProfile)
		studentGroup.POST("/profile/avatar", studentHandler.SetAvatar)

		studentGroup.GET("/uploads", studentHandler.ListUploads)
		studentGroup.POST("/uploads", studentHandler.CreateUpload)
		studentGroup.GET("/uploads/:id/download", studentHandler.DownloadUpload)

		studentGroup.GET("/feedback", studentHandler.ListFeedback)
		studentGroup.POST("/feedback", studentHandler.CreateFeedback)
	}

	adminGroup := apiV1.Group("/admin")
	adminGroup.Use(authMiddleware, adminGate)
	{
		adminGroup.GET("/students", adminHandler.ListStudents)
		adminGroup.POST("/students/:profileId/approve", adminHandler.ApproveStudent)
		adminGroup.POST("/students/:profileId/suspend", adminHandler.SuspendStudent)
		adminGroup.POST("/students/:profileId/activate", adminHandler.ActivateStudent)
		adminGroup.DELETE("/students/:profileId", adminHandler.DeleteStudent)

		adminGroup.GET("/uploads", adminHandler.ListUploads)
		adminGroup.POST("/uploads/:uploadId/status", adminHandler.ReviewUpload)

		adminGroup.GET("/feedback", adminHandler.ListFeedback)
		adminGroup.POST("/feedback/:feedbackId/respond", adminHandler.RespondFeedback)
	}
}
