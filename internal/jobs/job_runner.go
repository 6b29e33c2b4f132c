package jobs

import (
	"github.com/ibndev/citystaff-backend/internal/config"
	"github.com/ibndev/citystaff-backend/internal/logger"
	"github.com/ibndev/citystaff-backend/internal/repository/postgres"
	"github.com/ibndev/citystaff-backend/internal/service"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	store    *postgres.Store
	dispatch service.DispatchService
	config   *config.Config
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(store *postgres.Store, dispatch service.DispatchService, cfg *config.Config) *JobRunner {
	return &JobRunner{
		store:    store,
		dispatch: dispatch,
		config:   cfg,
	}
}

// Config exposes the loaded configuration to the scheduler.
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	log := logger.With("job", jobName)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Job panicked", "panic", r)
		}
	}()

	log.Info("Starting job")
	jobFunc()
	log.Info("Job completed")
}

// RunAll runs every job once (for manual execution)
func (jr *JobRunner) RunAll() {
	jr.ExpireStaleOffers()
	jr.RedispatchStalePending()
}
