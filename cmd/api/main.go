package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/api"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/attendance"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/auth"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/cloudinary"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/config"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/httpmiddleware"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/logger"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/material"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/queue"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/realtime"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/session"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/storage"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/store"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/token"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatal().Err(err).Msg("http server failed")
	}
}

func runHTTP(cfg config.App) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			return err
		}
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "attendance:jobs")
	}

	hub := realtime.NewHub(64)
	var pub realtime.Publisher = hub
	if cfg.RealtimeBackend == "redis" {
		broker := realtime.NewRedisBroker(redisClient.Client, hub)
		pub = broker
		go func() {
			if err := broker.Run(ctx); err != nil {
				log.Error().Err(err).Msg("realtime relay stopped")
			}
		}()
	}

	clock := session.SystemClock(cfg.Location())
	tokens := token.NewIssuer(cfg.TokenSecret, cfg.TokenRotation)

	sessionRepo := session.NewRepository(db.Client)
	recordRepo := attendance.NewRepository(db.Client)
	sessions := session.NewService(sessionRepo, sessionRepo, pub, clock)
	go sessions.WatchEnrollments(ctx, hub)
	mutations := session.NewGateway(sessionRepo, recordRepo, pub, cfg.PublicOrigin, clock)

	var validator attendance.Validator
	if cfg.MarkFunctionURL != "" {
		validator = attendance.NewRemoteValidator(cfg.MarkFunctionURL, cfg.MarkFunctionKey)
		log.Info().Str("url", cfg.MarkFunctionURL).Msg("marks validated by remote function")
	} else {
		local := attendance.NewLocalValidator(sessionRepo, sessions, tokens, clock)
		local.RequireToken = cfg.RequireQRToken
		validator = local
	}
	marks := attendance.NewGateway(validator, recordRepo, q, pub, clock)

	var materials api.Materials
	if files := objectStorage(cfg); files != nil {
		materials = material.NewService(material.NewRepository(db.Client), files)
	}

	handler := api.NewHandler(api.Deps{
		Sessions:   sessions,
		Mutations:  mutations,
		Attendance: marks,
		Materials:  materials,
		Refresher: &auth.Sessions{
			Issuer:     cfg.JWTIssuer,
			Key:        cfg.JWTSigningKey,
			AccessTTL:  cfg.AccessTTL,
			RefreshTTL: cfg.RefreshTTL,
			Store:      auth.NewRefreshStore(db.Client),
		},
		Tokens: tokens,
		Hub:    hub,
		Health: func(ctx context.Context) map[string]bool {
			return map[string]bool{"db": db.Healthy(ctx), "redis": redisClient.Healthy(ctx)}
		},
		Clock: clock,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger("/healthz", "/metrics"))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.PublicOrigin},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"X-Token-Expires-At", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(httpmiddleware.SecurityHeaders(cfg.Production()))
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	api.SetupRoutes(r, handler, cfg.JWTSigningKey, cfg.JWTIssuer)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced shutdown")
	}
	log.Info().Msg("server exited")
	return nil
}

// objectStorage returns the configured material storage, or nil when none is set up.
func objectStorage(cfg config.App) storage.Storage {
	switch cfg.StorageBackend {
	case "s3":
		s3, err := storage.NewS3Storage(storage.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.S3PublicURL,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			log.Warn().Err(err).Msg("s3 storage not available")
			return nil
		}
		log.Info().Str("bucket", cfg.S3Bucket).Msg("materials stored in s3")
		return s3
	default:
		if cfg.CloudinaryCloudName == "" || cfg.CloudinaryAPIKey == "" || cfg.CloudinaryAPISecret == "" {
			log.Warn().Msg("cloudinary not configured (CLOUDINARY_CLOUD_NAME / API_KEY / API_SECRET not set)")
			return nil
		}
		log.Info().Str("cloud", cfg.CloudinaryCloudName).Msg("materials stored in cloudinary")
		return cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
	}
}
