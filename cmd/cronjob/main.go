package main

import (
	"database/sql"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/ibndev/citystaff-backend/internal/config"
	"github.com/ibndev/citystaff-backend/internal/jobs"
	"github.com/ibndev/citystaff-backend/internal/logger"
	"github.com/ibndev/citystaff-backend/internal/repository/postgres"
	"github.com/ibndev/citystaff-backend/internal/scheduler"
	"github.com/ibndev/citystaff-backend/internal/service"
)

// noopPublisher drops realtime events. The cronjob binary has no websocket
// clients; redispatched bookings notify through push and stored
// notifications only.
type noopPublisher struct{}

func (noopPublisher) Publish(string, string, any) {}

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'expire-offers', 'redispatch', 'all')")
	flag.Parse()

	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting CityStaff Cronjob Runner...", "log_level", cfg.Log.Level)

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
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

	// Initialize Services
	settingsSvc := service.NewSettingsService(store.SettingsRepository)
	notificationSvc := service.NewNotificationService(
		store.NotificationRepository,
		store.UserRepository,
		store.ProviderRepository,
		nil,
		noopPublisher{},
	)
	dispatchSvc := service.NewDispatchService(
		store.BookingRepository,
		store.DispatchOfferRepository,
		store.ProviderRepository,
		settingsSvc,
		notificationSvc,
		noopPublisher{},
	)

	jobRunner := jobs.NewJobRunner(store, dispatchSvc, cfg)

	// Run-once mode for manual execution and debugging
	if *runOnce != "" {
		switch *runOnce {
		case "expire-offers":
			jobRunner.ExpireStaleOffers()
		case "redispatch":
			jobRunner.RedispatchStalePending()
		case "all":
			jobRunner.RunAll()
		default:
			log.Fatalf("Unknown job: %s", *runOnce)
		}
		logger.Info("Run-once complete", "job", *runOnce)
		return
	}

	cronScheduler := scheduler.NewScheduler(jobRunner)
	cronScheduler.Start()

	// Wait for termination signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down...")
	cronScheduler.Stop()
	logger.Info("Cronjob runner stopped")
}
