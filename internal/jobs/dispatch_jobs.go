package jobs

import (
	"context"
	"time"

	"github.com/ibndev/citystaff-backend/internal/logger"
)

// ExpireStaleOffers flips offered rows whose TTL passed without a
// response, then re-enters dispatch for bookings the lost timers left
// stranded in dispatching. In steady state the in-process timers handle
// expiry; this sweep only catches timers lost to a crash or restart.
func (jr *JobRunner) ExpireStaleOffers() {
	jr.runWithRecovery("ExpireStaleOffers", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		n, err := jr.store.ExpireStale(ctx, time.Now())
		if err != nil {
			logger.Error("stale offer sweep failed", "error", err)
			return
		}
		if n > 0 {
			logger.Warn("expired offers without a live timer", "count", n)
		}

		released, err := jr.store.ReleaseStalledDispatching(ctx, time.Now())
		if err != nil {
			logger.Error("stalled dispatching sweep failed", "error", err)
			return
		}
		for _, id := range released {
			if err := jr.dispatch.StartDispatch(ctx, id); err != nil {
				logger.Error("stalled dispatch restart failed", "booking_id", id, "error", err)
			}
		}
		if len(released) > 0 {
			logger.Warn("re-entered dispatch for stalled bookings", "count", len(released))
		}
	})
}

// RedispatchStalePending retries dispatch for bookings that have sat in
// pending too long, e.g. after a no-match round or a server restart that
// lost the dispatch goroutine.
func (jr *JobRunner) RedispatchStalePending() {
	jr.runWithRecovery("RedispatchStalePending", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		cfg := jr.config.Scheduler
		maxAge := time.Duration(cfg.StalePendingMaxAge) * time.Minute
		bookings, err := jr.store.ListStalePending(ctx, maxAge, int32(cfg.StalePendingBatch))
		if err != nil {
			logger.Error("stale pending scan failed", "error", err)
			return
		}
		for _, b := range bookings {
			if err := jr.dispatch.StartDispatch(ctx, b.ID); err != nil {
				logger.Error("redispatch failed", "booking_id", b.ID, "error", err)
			}
		}
		if len(bookings) > 0 {
			logger.Info("redispatched stale pending bookings", "count", len(bookings))
		}
	})
}
