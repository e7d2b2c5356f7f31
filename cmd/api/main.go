package main

import (
	"context"
	"errors"
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

	_ "github.com/noah-isme/programme-booking-api/api/swagger"
	"github.com/noah-isme/programme-booking-api/internal/handler"
	"github.com/noah-isme/programme-booking-api/internal/middleware"
	"github.com/noah-isme/programme-booking-api/internal/repository"
	"github.com/noah-isme/programme-booking-api/internal/service"
	"github.com/noah-isme/programme-booking-api/pkg/cache"
	"github.com/noah-isme/programme-booking-api/pkg/config"
	"github.com/noah-isme/programme-booking-api/pkg/database"
	"github.com/noah-isme/programme-booking-api/pkg/logger"
	"github.com/noah-isme/programme-booking-api/pkg/mailer"
	corsmiddleware "github.com/noah-isme/programme-booking-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/programme-booking-api/pkg/middleware/requestid"
	"github.com/noah-isme/programme-booking-api/pkg/storage"
)

// @title Programme Booking API
// @version 1.0.0
// @description Registration and capacity management for programme editions with bookable session dates.
// @BasePath /api/v1
// @schemes http
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	// Redis only backs seat locks; the API stays up without it, racing
	// registrations then fall back to plain check-then-act.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, seat locking disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	editionRepo := repository.NewEditionRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)

	seatLocker := cache.NewSeatLocker(redisClient, cfg.Booking.SeatLockTTL, logr)

	var mail mailer.Mailer
	if cfg.Mail.Enabled {
		mail = mailer.NewSMTPMailer(cfg.Mail)
	} else {
		mail = mailer.NewLogMailer(logr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifications := service.NewNotificationService(mail, metrics, *cfg, logr)
	notifications.Start(ctx)
	defer notifications.Stop()

	availabilityService := service.NewAvailabilityService(availabilityRepo, logr)
	catalogService := service.NewCatalogService(editionRepo, availabilityRepo, validate, logr)
	registrationService := service.NewRegistrationService(
		registrationRepo, editionRepo, availabilityRepo, seatLocker, notifications, metrics, validate, logr)
	exportStore, err := storage.NewExportStore(cfg.Export.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export directory", "error", err)
	}
	exportSigner := storage.NewExportLinkSigner(cfg.Admin.JWTSecret, cfg.Export.LinkTTL)

	statusService := service.NewStatusService(
		registrationRepo, editionRepo, notifications, metrics, exportStore, exportSigner,
		cfg.Booking.DisplayTimezone, logr)

	// Drop archived exports once their links have expired.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if deleted, err := exportStore.CleanupOlderThan(cfg.Export.LinkTTL); err != nil {
					logr.Sugar().Warnw("export cleanup failed", "error", err)
				} else if len(deleted) > 0 {
					logr.Sugar().Infow("cleaned up expired exports", "count", len(deleted))
				}
			}
		}
	}()

	editionHandler := handler.NewEditionHandler(catalogService, availabilityService)
	registrationHandler := handler.NewRegistrationHandler(registrationService, statusService)
	metricsHandler := handler.NewMetricsHandler(metrics, db)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.GET("/editions", editionHandler.List)
		api.GET("/editions/:idOrKey", editionHandler.Get)
		api.GET("/editions/:idOrKey/availability", editionHandler.Availability)
		api.POST("/editions/:idOrKey/register", registrationHandler.Register)
		api.GET("/exports/:token", registrationHandler.Download)

		admin := api.Group("", middleware.Admin(cfg.Admin.JWTSecret))
		{
			admin.POST("/editions", editionHandler.Create)
			admin.PUT("/editions/:idOrKey", editionHandler.Update)
			admin.DELETE("/editions/:idOrKey", editionHandler.Delete)
			admin.GET("/editions/:idOrKey/registrations/export", registrationHandler.Export)
			admin.GET("/registrations", registrationHandler.List)
			admin.GET("/registrations/:id", registrationHandler.Get)
			admin.PATCH("/registrations/:id/status", registrationHandler.UpdateStatus)
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}
