package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/zimlearn/console-api/api/swagger"
	"github.com/zimlearn/console-api/internal/handler"
	"github.com/zimlearn/console-api/internal/middleware"
	"github.com/zimlearn/console-api/internal/models"
	"github.com/zimlearn/console-api/internal/repository"
	"github.com/zimlearn/console-api/internal/service"
	"github.com/zimlearn/console-api/pkg/cache"
	"github.com/zimlearn/console-api/pkg/config"
	"github.com/zimlearn/console-api/pkg/database"
	"github.com/zimlearn/console-api/pkg/export"
	"github.com/zimlearn/console-api/pkg/jobs"
	"github.com/zimlearn/console-api/pkg/logger"
	corsmiddleware "github.com/zimlearn/console-api/pkg/middleware/cors"
	reqidmiddleware "github.com/zimlearn/console-api/pkg/middleware/requestid"
	"github.com/zimlearn/console-api/pkg/storage"
)

// @title Learning Console API
// @version 1.0.0
// @description Admin console backend for subject content, quizzes and uploads
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
		redisClient = nil
	}

	objectStore, err := storage.NewObjectStore(cfg.Storage.BaseDir)
	if err != nil {
		logr.Fatal("failed to prepare object store", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	chapterRepo := repository.NewChapterRepository(db)
	contentRepo := repository.NewContentRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close()

	// Services.
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr,
		cfg.Dashboard.Enabled && redisClient != nil)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "console-api",
		Audience:           []string{"console"},
	})

	schoolSvc := service.NewSchoolService(schoolRepo, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, cacheRepo, validate, logr)
	contentSvc := service.NewContentService(chapterRepo, contentRepo, subjectRepo, objectStore, cacheRepo, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, subjectRepo, validate, logr)

	csvExporter := export.NewCSVExporter()
	pdfExporter := export.NewPDFExporter()

	quizSvc, err := service.NewQuizService(quizRepo, contentRepo, csvExporter, pdfExporter, service.QuizServiceConfig{
		ImportMaxQuestions: cfg.Quizzes.ImportMaxQuestions,
		LeaderboardLimit:   cfg.Quizzes.DefaultLeaderboard,
	}, validate, logr)
	if err != nil {
		logr.Fatal("failed to init quiz service", zap.Error(err))
	}

	uploadSvc := service.NewUploadService(objectStore, signer, service.UploadConfig{
		PublicURL:    cfg.PublicURL,
		APIPrefix:    cfg.APIPrefix,
		TempOwnerTTL: cfg.Uploads.TempOwnerTTL,
	}, logr)

	dashboardSvc := service.NewDashboardService(subjectRepo, contentRepo, cacheSvc, csvExporter, metricsSvc, logr,
		service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL})

	// Background sweep for uploads whose content row never arrived.
	cleanupQueue := jobs.NewQueue("uploads", uploadSvc.CleanupHandler, jobs.QueueConfig{
		Workers:    cfg.Uploads.CleanupWorkers,
		MaxRetries: cfg.Uploads.CleanupRetries,
		Logger:     logr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cleanupQueue.Start(ctx)
	defer cleanupQueue.Stop()

	go func() {
		ticker := time.NewTicker(cfg.Uploads.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := cleanupQueue.Enqueue(jobs.Job{Type: service.CleanupJobType}); err != nil {
					logr.Warn("failed to enqueue upload cleanup", zap.Error(err))
				}
			}
		}
	}()

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	schoolHandler := handler.NewSchoolHandler(schoolSvc)
	subjectHandler := handler.NewSubjectHandler(subjectSvc)
	hierarchyHandler := handler.NewHierarchyHandler(subjectSvc, contentSvc)
	contentHandler := handler.NewContentHandler(contentSvc)
	quizHandler := handler.NewQuizHandler(quizSvc)
	uploadHandler := handler.NewUploadHandler(uploadSvc, metricsSvc)
	fileHandler := handler.NewFileHandler(objectStore, signer, logr)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/signup", authHandler.Signup)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	api.GET("/files/:bucket/*path", fileHandler.Serve)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	// Read surfaces are open to any authenticated role.
	authed.GET("/subjects", subjectHandler.List)
	authed.GET("/subjects/:id", subjectHandler.Get)
	authed.GET("/subjects/:id/enrollments", enrollmentHandler.CountForSubject)
	authed.GET("/terms/:id/weeks", hierarchyHandler.ListWeeks)
	authed.GET("/weeks/:id/chapters", hierarchyHandler.ListChapters)
	authed.GET("/chapters/:id/content", contentHandler.ListByChapter)
	authed.GET("/content/:id", contentHandler.Get)
	authed.GET("/content/:id/questions", quizHandler.ListQuestions)
	authed.GET("/content/:id/attempts", quizHandler.ListAttempts)
	authed.GET("/content/:id/statistics", quizHandler.Statistics)
	authed.GET("/content/:id/leaderboard", quizHandler.Leaderboard)
	authed.GET("/schools", schoolHandler.List)
	authed.GET("/schools/:id", schoolHandler.Get)
	authed.GET("/users/:user_id/enrollments", enrollmentHandler.ListForUser)
	authed.POST("/content/:id/attempts", quizHandler.RecordAttempt)

	// Console mutations require an admin role.
	admin := api.Group("")
	admin.Use(middleware.JWT(authSvc), middleware.RequireAdmin())

	admin.POST("/subjects",
		middleware.Audit(userRepo, models.AuditActionCreate, "subject"), subjectHandler.Create)
	admin.PUT("/subjects/:id",
		middleware.Audit(userRepo, models.AuditActionUpdate, "subject"), subjectHandler.Update)
	admin.DELETE("/subjects/:id",
		middleware.Audit(userRepo, models.AuditActionDelete, "subject"), subjectHandler.Delete)
	admin.POST("/subjects/:id/statistics", subjectHandler.RecomputeStatistics)

	admin.POST("/schools", schoolHandler.Create)
	admin.PUT("/schools/:id", schoolHandler.Update)
	admin.DELETE("/schools/:id", schoolHandler.Delete)

	admin.POST("/weeks/:id/chapters",
		middleware.Audit(userRepo, models.AuditActionCreate, "chapter"), hierarchyHandler.CreateChapter)
	admin.PUT("/chapters/:id", hierarchyHandler.UpdateChapter)
	admin.DELETE("/chapters/:id",
		middleware.Audit(userRepo, models.AuditActionDelete, "chapter"), hierarchyHandler.DeleteChapter)
	admin.POST("/chapters/:id/continue", hierarchyHandler.ContinueChapter)

	admin.POST("/chapters/:id/content",
		middleware.Audit(userRepo, models.AuditActionCreate, "content"), contentHandler.Create)
	admin.PUT("/content/:id", contentHandler.Update)
	admin.DELETE("/content/:id",
		middleware.Audit(userRepo, models.AuditActionDelete, "content"), contentHandler.Delete)
	admin.POST("/content/:id/move", contentHandler.Move)

	admin.POST("/content/:id/questions", quizHandler.CreateQuestions)
	admin.POST("/content/:id/questions/import", quizHandler.ImportQuestions)
	admin.GET("/content/:id/questions/export", quizHandler.ExportQuestions)
	admin.PUT("/questions/:id", quizHandler.UpdateQuestion)
	admin.DELETE("/questions/:id", quizHandler.DeleteQuestion)

	admin.POST("/uploads/content", uploadHandler.UploadContentFile)
	admin.POST("/uploads/quiz-image", uploadHandler.UploadQuizImage)

	admin.POST("/enrollments", enrollmentHandler.Enroll)
	admin.DELETE("/users/:user_id/enrollments/:subject_id", enrollmentHandler.Unenroll)

	admin.GET("/dashboard/summary", dashboardHandler.Summary)
	admin.GET("/dashboard/content", dashboardHandler.ListContent)
	admin.GET("/dashboard/content/export", dashboardHandler.ExportContent)
	admin.GET("/dashboard/system", metricsHandler.Snapshot)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
