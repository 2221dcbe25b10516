package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/abroad-api/api/swagger"
	"github.com/noah-isme/abroad-api/internal/handler"
	"github.com/noah-isme/abroad-api/internal/middleware"
	"github.com/noah-isme/abroad-api/internal/repository"
	"github.com/noah-isme/abroad-api/internal/service"
	"github.com/noah-isme/abroad-api/pkg/cache"
	"github.com/noah-isme/abroad-api/pkg/config"
	"github.com/noah-isme/abroad-api/pkg/database"
	"github.com/noah-isme/abroad-api/pkg/export"
	"github.com/noah-isme/abroad-api/pkg/jobs"
	"github.com/noah-isme/abroad-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/abroad-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/abroad-api/pkg/middleware/requestid"
	"github.com/noah-isme/abroad-api/pkg/storage"
)

// @title Abroad API
// @version 1.0.0
// @description Study-abroad program discovery and consultation booking engine
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

// Health and scrape endpoints are kept out of request logs and HTTP metrics.
var healthPaths = []string{"/health", "/ready", "/metrics"}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		migrator, err := database.NewMigrator(db, logr)
		if err != nil {
			logr.Fatal("failed to prepare migrations", zap.Error(err))
		}
		if err := migrator.Up(ctx); err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, catalog cache disabled", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	programRepo := repository.NewProgramRepository(db)
	slotRepo := repository.NewSlotRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	savedRepo := repository.NewSavedProgramRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, cfg.Redis.Namespace, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Catalog.CacheTTL, logr, redisClient != nil)
	catalogSvc := service.NewCatalogService(programRepo, cacheSvc, metricsSvc, validate, logr, cfg.Catalog.CacheTTL)
	slotSvc := service.NewSlotService(slotRepo, cfg.Booking.SlotLookahead, logr)
	bookingSvc := service.NewBookingService(bookingRepo, validate, logr)
	authSvc := service.NewAuthService(service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
		Audience:          cfg.JWT.Audience,
	})

	sessionSvc := service.NewSessionService(catalogSvc, savedRepo, slotSvc, bookingSvc, metricsSvc, validate, logr, service.SessionConfig{
		IdleTTL:          cfg.Sessions.IdleTTL,
		PageSize:         cfg.Catalog.PageSize,
		UrgentWindowDays: cfg.Deadlines.UrgentWindowDays,
		FetchTimeout:     cfg.Catalog.FetchTimeout,
	})

	receiptQueue := jobs.NewQueue("receipts", jobs.QueueConfig{
		Workers:    cfg.Booking.WorkerConcurrency,
		MaxRetries: cfg.Booking.WorkerRetries,
		RetryDelay: 2 * time.Second,
		Logger:     logr,
	})
	receiptStore, err := storage.NewLocalStorage(cfg.Booking.ReceiptsDir)
	if err != nil {
		logr.Fatal("failed to prepare receipt storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Booking.SignedURLSecret, cfg.Booking.SignedURLTTL)
	receiptSvc := service.NewReceiptService(receiptQueue, receiptStore, signer, bookingSvc, metricsSvc, logr, cfg.APIPrefix)
	if cfg.Booking.ReceiptsEnabled {
		sessionSvc.WithReceipts(receiptSvc)
		receiptQueue.Start(ctx)
		defer receiptQueue.Stop()
	}

	dashboardSvc := service.NewDashboardService(bookingSvc, logr, service.DashboardServiceConfig{
		UrgentWindowDays: cfg.Deadlines.UrgentWindowDays,
		UpcomingLimit:    cfg.Deadlines.UpcomingLimit,
	})
	exportSvc := service.NewExportService(export.NewCSVExporter(), cfg.Deadlines.UrgentWindowDays)

	go sessionSvc.Run(ctx, cfg.Sessions.SweepInterval)

	metricsHandler := handler.NewMetricsHandler(metricsSvc).WithCheck("postgres", db)
	if redisClient != nil {
		metricsHandler.WithCheck("redis", redisPinger{client: redisClient})
	}
	authHandler := handler.NewAuthHandler(authSvc)
	programHandler := handler.NewProgramHandler(sessionSvc)
	catalogHandler := handler.NewCatalogHandler(sessionSvc, catalogSvc)
	savedHandler := handler.NewSavedHandler(sessionSvc, exportSvc)
	bookingHandler := handler.NewBookingHandler(sessionSvc, slotSvc, bookingSvc, receiptSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	sessionHandler := handler.NewSessionHandler(sessionSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, healthPaths...))
	r.Use(corsmiddleware.New(corsmiddleware.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		MaxAge:         cfg.CORS.MaxAge,
	}))
	r.Use(middleware.Metrics(metricsSvc, healthPaths...))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/receipts/:token", bookingHandler.DownloadReceipt)
	if cfg.Env != config.EnvProduction {
		api.POST("/auth/dev-token", authHandler.DevToken)
	}

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	authed.GET("/auth/me", authHandler.Me)
	authed.DELETE("/session", sessionHandler.SignOut)
	authed.GET("/bookings", bookingHandler.History)
	authed.GET("/catalog/programs", catalogHandler.Search)

	admin := authed.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	admin.POST("/programs", catalogHandler.Import)

	engine := authed.Group("")
	engine.Use(middleware.Session(sessionSvc))
	{
		engine.GET("/programs", programHandler.List)
		engine.PUT("/programs/criteria", programHandler.ApplyCriteria)
		engine.DELETE("/programs/criteria", programHandler.ClearCriteria)
		engine.GET("/programs/page/:page", programHandler.Page)
		engine.GET("/programs/facets", programHandler.Facets)
		engine.GET("/programs/:id", programHandler.Get)

		engine.POST("/catalog/refresh", catalogHandler.Refresh)
		engine.GET("/catalog/status", catalogHandler.Status)

		engine.GET("/saved", savedHandler.List)
		engine.PUT("/saved", savedHandler.Replace)
		engine.POST("/saved/:id/toggle", savedHandler.Toggle)
		engine.GET("/saved/export.csv", savedHandler.Export)

		engine.GET("/booking", bookingHandler.View)
		engine.GET("/booking/services", bookingHandler.Services)
		engine.GET("/booking/slots", bookingHandler.Slots)
		engine.POST("/booking/service", bookingHandler.SelectService)
		engine.POST("/booking/slot", bookingHandler.SelectSlot)
		engine.POST("/booking/channel", bookingHandler.SetChannel)
		engine.POST("/booking/details", bookingHandler.SetDetails)
		engine.POST("/booking/next", bookingHandler.Next)
		engine.POST("/booking/back", bookingHandler.Back)
		engine.POST("/booking/submit", bookingHandler.Submit)
		engine.POST("/booking/restart", bookingHandler.Restart)
		engine.GET("/booking/receipt", bookingHandler.Receipt)

		engine.GET("/dashboard", dashboardHandler.Get)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logr.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		logr.Error("server failed", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	cancel()
	logr.Info("server stopped")
}
