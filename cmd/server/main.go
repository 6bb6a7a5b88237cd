package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"studenthub/portal/internal/api"
	"studenthub/portal/internal/config"
	mongorepo "studenthub/portal/internal/repository/mongo"
	"studenthub/portal/internal/service"
	"studenthub/portal/internal/storage"
)

func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}

	// --- Logger ---
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("FATAL: Could not build logger: %v", err)
	}
	defer logger.Sync()
	logger.Info("starting StudentHub portal server")

	// --- Database Connection ---
	dbClient, err := mongorepo.ConnectDB(cfg.Database.URI)
	if err != nil {
		logger.Fatal("could not connect to MongoDB", zap.Error(err))
	}
	defer func() {
		logger.Info("disconnecting MongoDB")
		if err := mongorepo.DisconnectDB(dbClient); err != nil {
			logger.Error("failed to disconnect MongoDB", zap.Error(err))
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	logger.Info("database connection established", zap.String("database", cfg.Database.Name))

	// --- Ensure Indexes ---
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongorepo.EnsureUserIndexes(ctx, appDB.Collection("users"))
		mongorepo.EnsureProfileIndexes(ctx, appDB.Collection("profiles"))
		mongorepo.EnsureUploadIndexes(ctx, appDB.Collection("uploads"))
		mongorepo.EnsureFeedbackIndexes(ctx, appDB.Collection("feedback"))
		logger.Info("index creation completed")
	}()

	// --- Initialize Storage ---
	var fileStorage storage.FileStorage
	switch cfg.Storage.Driver {
	case "s3":
		fileStorage, err = storage.NewS3Storage(cfg.Storage.S3, logger)
	default:
		fileStorage, err = storage.NewLocalStorage(cfg.Storage.Root, logger)
	}
	if err != nil {
		logger.Fatal("failed to initialize file storage", zap.Error(err))
	}

	// --- Initialize Repositories ---
	userRepo := mongorepo.NewMongoUserRepository(appDB)
	profileRepo := mongorepo.NewMongoProfileRepository(appDB)
	uploadRepo := mongorepo.NewMongoUploadRepository(appDB)
	feedbackRepo := mongorepo.NewMongoFeedbackRepository(appDB)

	// --- Initialize Services ---
	authService := service.NewAuthService(userRepo, profileRepo, cfg.JWT.Secret, cfg.JWT.Expiration, cfg.JWT.RefreshExpiration, logger)
	studentService := service.NewStudentService(profileRepo, uploadRepo, feedbackRepo, fileStorage, logger)
	adminService := service.NewAdminService(userRepo, profileRepo, uploadRepo, feedbackRepo, fileStorage, logger)

	// --- Initialize Gin Engine ---
	router := gin.New()
	router.Use(gin.Recovery())
	router.MaxMultipartMemory = cfg.Upload.MaxSizeBytes

	// --- Setup Routes ---
	api.SetupRoutes(router, cfg.JWT.Secret, userRepo, fileStorage, authService, studentService, adminService, logger)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logger.Info("server starting", zap.String("address", cfg.Server.Address))

	// --- Graceful Shutdown ---
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen and serve error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exiting")
}
