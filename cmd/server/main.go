package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	httpapi "github.com/ibndev/citystaff-backend/internal/api/http"
	"github.com/ibndev/citystaff-backend/internal/config"
	"github.com/ibndev/citystaff-backend/internal/geo"
	"github.com/ibndev/citystaff-backend/internal/jobs"
	"github.com/ibndev/citystaff-backend/internal/logger"
	"github.com/ibndev/citystaff-backend/internal/push"
	"github.com/ibndev/citystaff-backend/internal/realtime"
	"github.com/ibndev/citystaff-backend/internal/repository/postgres"
	"github.com/ibndev/citystaff-backend/internal/scheduler"
	"github.com/ibndev/citystaff-backend/internal/security"
	"github.com/ibndev/citystaff-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Local .env is optional; real deployments inject the environment.
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting CityStaff Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "host", cfg.Server.Host, "port", cfg.Server.Port)
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)

	// Initialize Database
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize Security
	tokenManager := security.NewTokenManager(
		cfg.JWT.Secret,
		time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute,
		time.Duration(cfg.JWT.RefreshTokenExpiry)*time.Minute,
	)

	// Optional Redis location cache
	var locationCache *geo.LocationCache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Warn("Redis unreachable, live location cache disabled", "error", err)
		} else {
			locationCache = geo.NewLocationCache(rdb)
			logger.Info("Redis location cache enabled", "addr", cfg.Redis.Addr)
		}
	}

	// Optional FCM push
	var pushSender service.PushSender
	if cfg.Firebase.CredentialsFile != "" {
		sender, err := push.NewFCMSender(context.Background(), cfg.Firebase.CredentialsFile)
		if err != nil {
			logger.Warn("FCM init failed, push notifications disabled", "error", err)
		} else {
			pushSender = sender
			logger.Info("FCM push notifications enabled")
		}
	}

	// Realtime hub
	hub := realtime.NewHub()

	// Initialize Services
	settingsSvc := service.NewSettingsService(store.SettingsRepository)
	notificationSvc := service.NewNotificationService(
		store.NotificationRepository,
		store.UserRepository,
		store.ProviderRepository,
		pushSender,
		hub,
	)
	dispatchSvc := service.NewDispatchService(
		store.BookingRepository,
		store.DispatchOfferRepository,
		store.ProviderRepository,
		settingsSvc,
		notificationSvc,
		hub,
	)
	bookingSvc := service.NewBookingService(
		store.BookingRepository,
		store.CatalogRepository,
		settingsSvc,
		dispatchSvc,
		notificationSvc,
		hub,
	)
	walletSvc := service.NewWalletService(
		store.WalletRepository,
		store.ProviderRepository,
		settingsSvc,
		notificationSvc,
	)
	providerSvc := service.NewProviderService(
		store.ProviderRepository,
		store.BookingRepository,
		store.WalletRepository,
		locationCache,
		hub,
	)

	// HTTP surface
	router := httpapi.NewRouter(httpapi.RouterDeps{
		Bookings:      httpapi.NewBookingHandler(bookingSvc, dispatchSvc),
		Providers:     httpapi.NewProviderHandler(providerSvc),
		Wallets:       httpapi.NewWalletHandler(walletSvc),
		Notifications: httpapi.NewNotificationHandler(notificationSvc),
		Settings:      httpapi.NewSettingsHandler(settingsSvc),
		Users:         httpapi.NewUserHandler(store.UserRepository),
		WS:            httpapi.NewWSHandler(hub, tokenManager, providerSvc, dispatchSvc, cfg.Server.AllowedOrigins),
		Tokens:        tokenManager,
	})

	// In-process safety sweeps alongside the request path. The standalone
	// cronjob binary covers deployments that split them out.
	jobRunner := jobs.NewJobRunner(store, dispatchSvc, cfg)
	cronScheduler := scheduler.NewScheduler(jobRunner)
	cronScheduler.Start()
	defer cronScheduler.Stop()

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server stopped", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for termination signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
	logger.Info("Server stopped")
}
