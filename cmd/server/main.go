// Package main runs the audience engagement HTTP server with WebSocket and
// graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/grouppulse/backend/config"
	"github.com/grouppulse/backend/internal/auth"
	"github.com/grouppulse/backend/internal/images"
	"github.com/grouppulse/backend/internal/middleware"
	"github.com/grouppulse/backend/internal/participants"
	"github.com/grouppulse/backend/internal/polls"
	"github.com/grouppulse/backend/internal/questions"
	"github.com/grouppulse/backend/internal/realtime"
	"github.com/grouppulse/backend/internal/responses"
	"github.com/grouppulse/backend/internal/sessions"
	"github.com/grouppulse/backend/pkg/database"
	"github.com/grouppulse/backend/pkg/queue"
	"github.com/grouppulse/backend/pkg/redis"
	"github.com/grouppulse/backend/pkg/response"
	"github.com/grouppulse/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ImagesBucket:         cfg.AWS.ImagesBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Sessions
	sessionRepo := sessions.NewRepository(pool)
	sessionHandler := sessions.NewHandler(sessionRepo, hub, jobQueue, logger)

	// Polls
	pollRepo := polls.NewRepository(pool)
	pollHandler := polls.NewHandler(pollRepo, sessionRepo, hub, s3Client)

	// Responses and frozen result snapshots
	responseRepo := responses.NewRepository(pool)
	snapshotRepo := responses.NewSnapshotRepository(pool)
	responseHandler := responses.NewHandler(responseRepo, snapshotRepo, pollRepo, sessionRepo, hub, logger)

	// Q&A
	questionRepo := questions.NewRepository(pool)
	questionHandler := questions.NewHandler(questionRepo, pollRepo, sessionRepo, hub, logger)

	// Attendee log and peak participant tracking
	participantRepo := participants.NewRepository(pool)
	participantHandler := participants.NewHandler(participantRepo, sessionRepo)
	hub.SetParticipantChangeHandler(func(sessionID uuid.UUID, count int) {
		_ = sessionRepo.UpdatePeakParticipants(context.Background(), sessionID, count)
	})
	hub.SetParticipantLogger(
		func(sessionID uuid.UUID, participantID *uuid.UUID) {
			_ = participantRepo.LogJoin(context.Background(), sessionID, participantID)
		},
		func(sessionID uuid.UUID, participantID *uuid.UUID) {
			_ = participantRepo.LogLeave(context.Background(), sessionID, participantID)
		},
	)

	// Images (pre-signed uploads for image-choice options)
	var imageHandler *images.Handler
	if s3Client != nil {
		imageHandler = images.NewHandler(s3Client, sessionRepo)
	}

	jwtValidate := func(token string) (userID, role string, err error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return "", "", err
		}
		return claims.UserID.String(), claims.Role, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Participant surface (public, keyed by join code; no accounts needed)
	join := router.Group("/join/:code")
	{
		join.GET("", sessionHandler.Join)
		join.GET("/polls", pollHandler.ListForParticipants)
		join.POST("/polls/:poll_id/responses", responseHandler.Submit)
		join.POST("/polls/:poll_id/questions", questionHandler.Submit)
		join.GET("/polls/:poll_id/questions", questionHandler.ListForParticipants)
		join.POST("/questions/:question_id/upvote", questionHandler.Upvote)
	}

	// Presenter API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Users (admin only)
		api.GET("/users", middleware.RequireRole("admin"), authHandler.List)

		// Sessions
		api.GET("/sessions", sessionHandler.List)
		api.POST("/sessions", sessionHandler.Create)
		api.GET("/sessions/:id", sessionHandler.GetByID)
		api.PATCH("/sessions/:id", sessionHandler.Update)
		api.PATCH("/sessions/:id/status", sessionHandler.UpdateStatus)
		api.DELETE("/sessions/:id", sessionHandler.Delete)
		api.GET("/sessions/:id/participant_count", sessionHandler.ParticipantCount)
		api.GET("/sessions/:id/participants", participantHandler.ListBySession)
		api.GET("/sessions/:id/snapshots", responseHandler.Snapshots)
		api.DELETE("/sessions/:id/responses", responseHandler.ResetSession)

		// Polls
		api.POST("/sessions/:id/polls", pollHandler.Create)
		api.GET("/sessions/:id/polls", pollHandler.ListBySession)
		api.POST("/polls/:id/launch", pollHandler.Launch)
		api.POST("/polls/:id/close", pollHandler.Close)
		api.PATCH("/polls/:id/position", pollHandler.Reorder)
		api.DELETE("/polls/:id", pollHandler.Delete)
		api.GET("/polls/:id/results", responseHandler.Results)
		api.DELETE("/polls/:id/responses", responseHandler.ResetPoll)

		// Q&A moderation
		api.GET("/polls/:id/questions", questionHandler.ListForModeration)
		api.PATCH("/questions/:id/approved", questionHandler.SetApproved)
		api.POST("/questions/:id/answered", questionHandler.MarkAnswered)
		api.DELETE("/questions/:id", questionHandler.Delete)

		// Image uploads (only when S3 is configured)
		if imageHandler != nil {
			api.POST("/sessions/:id/images/presign", imageHandler.Presign)
		}
	}

	// WebSocket (token in query; anonymous participants allowed)
	router.GET("/ws", realtime.ServeWs(hub, logger, jwtValidate))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
