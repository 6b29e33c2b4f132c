package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ibndev/citystaff-backend/internal/domain"
	"github.com/ibndev/citystaff-backend/internal/geo"
	"github.com/ibndev/citystaff-backend/internal/logger"
	"github.com/ibndev/citystaff-backend/internal/observability"
	"github.com/ibndev/citystaff-backend/internal/repository"
)

type dispatchEngine struct {
	bookings  repository.BookingRepository
	offers    repository.DispatchOfferRepository
	providers repository.ProviderRepository
	settings  SettingsService
	notifier  Notifier
	realtime  Publisher

	// schedule arms the offer expiry timer. time.AfterFunc in production,
	// replaced in tests to fire deterministically.
	schedule func(d time.Duration, fn func())
	now      func() time.Time
}

func NewDispatchService(
	bookings repository.BookingRepository,
	offers repository.DispatchOfferRepository,
	providers repository.ProviderRepository,
	settings SettingsService,
	notifier Notifier,
	realtime Publisher,
) DispatchService {
	return &dispatchEngine{
		bookings:  bookings,
		offers:    offers,
		providers: providers,
		settings:  settings,
		notifier:  notifier,
		realtime:  realtime,
		schedule:  func(d time.Duration, fn func()) { time.AfterFunc(d, fn) },
		now:       time.Now,
	}
}

func (e *dispatchEngine) StartDispatch(ctx context.Context, bookingID string) error {
	moved, err := e.bookings.UpdateStatusIf(ctx, bookingID, domain.BookingStatusPending, domain.BookingStatusDispatching)
	if err != nil {
		return fmt.Errorf("start dispatch %s: %w", bookingID, err)
	}
	if !moved {
		// Already dispatching, or resolved by another path. Nothing to do.
		logger.Debug("dispatch start skipped, booking not pending", "booking_id", bookingID)
		return nil
	}

	booking, err := e.bookings.GetByID(ctx, bookingID)
	if err != nil {
		e.revertToPending(ctx, bookingID)
		return fmt.Errorf("start dispatch %s: %w", bookingID, err)
	}

	logger.Info("dispatch round started", "booking_id", bookingID, "booking_ref", booking.BookingRef)
	if err := e.offerToNext(ctx, booking, nil, 1); err != nil {
		e.revertToPending(ctx, bookingID)
		return fmt.Errorf("start dispatch %s: %w", bookingID, err)
	}
	return nil
}

// offerToNext runs one escalation step: rank the remaining candidates,
// create an offer for the best one, notify it, and arm the TTL timer.
// tried accumulates every provider already consumed this round so the
// same provider is never offered the same booking twice.
func (e *dispatchEngine) offerToNext(ctx context.Context, booking *domain.Booking, tried []string, attempt int32) error {
	maxAttempts := int32(e.settings.GetNumber(ctx, SettingMaxAttempts, 5))
	if attempt > maxAttempts {
		logger.Info("dispatch exhausted attempts", "booking_id", booking.ID, "attempts", maxAttempts)
		return e.noMatch(ctx, booking)
	}

	candidates, err := e.providers.FindCandidates(ctx, booking.ServiceID, tried)
	if err != nil {
		return fmt.Errorf("find candidates: %w", err)
	}

	policy := geo.ParsePolicy(e.settings.Get(ctx, SettingDispatchMode, "nearest"))
	maxKm := e.settings.GetNumber(ctx, SettingMaxDistanceKm, 50)
	ranked := geo.Rank(policy, booking.Latitude, booking.Longitude, maxKm, candidates)
	if len(ranked) == 0 {
		logger.Info("dispatch found no eligible providers", "booking_id", booking.ID, "attempt", attempt)
		return e.noMatch(ctx, booking)
	}

	top := ranked[0]
	ttl := time.Duration(e.settings.GetNumber(ctx, SettingOfferTTLSeconds, 30)) * time.Second
	offer := &domain.DispatchOffer{
		ID:            uuid.NewString(),
		BookingID:     booking.ID,
		ProviderID:    top.ProviderID,
		AttemptNumber: attempt,
		Status:        domain.OfferStatusOffered,
		DistanceKm:    top.DistanceKm,
		ExpiresAt:     e.now().Add(ttl),
		CreatedAt:     e.now(),
	}
	if err := e.offers.Create(ctx, offer); err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	observability.DispatchOffers.Inc()
	logger.Info("offer extended",
		"booking_id", booking.ID,
		"provider_id", top.ProviderID,
		"attempt", attempt,
		"distance_km", top.DistanceKm,
		"ttl", ttl,
	)

	title := fmt.Sprintf("%s · earn %s", e.settings.Get(ctx, SettingOfferTitle, "New job nearby"), formatCents(booking.ProviderPayoutCents))
	e.notifier.Notify(ctx, domain.RecipientProvider, top.ProviderID, domain.NotificationPayload{
		Title: title,
		Body:  fmt.Sprintf("%s, respond within %d seconds", booking.Address, int(ttl.Seconds())),
		Type:  "dispatch_offer",
		Data: map[string]string{
			"booking_id":   booking.ID,
			"payout_cents": strconv.FormatInt(booking.ProviderPayoutCents, 10),
			"ttl_seconds":  strconv.Itoa(int(ttl.Seconds())),
		},
	})
	e.realtime.Publish(providerChannel(top.ProviderID), "dispatch_offer", map[string]any{
		"booking_id":   booking.ID,
		"booking_ref":  booking.BookingRef,
		"address":      booking.Address,
		"total_cents":  booking.TotalPriceCents,
		"payout_cents": booking.ProviderPayoutCents,
		"distance_km":  top.DistanceKm,
		"attempt":      attempt,
		"expires_at":   offer.ExpiresAt.UTC().Format(time.RFC3339),
		"ttl_seconds":  int(ttl.Seconds()),
	})

	bookingID, providerID := booking.ID, top.ProviderID
	nextTried := append(append([]string(nil), tried...), providerID)
	e.schedule(ttl, func() {
		e.handleOfferTimeout(bookingID, providerID, nextTried, attempt)
	})
	return nil
}

// handleOfferTimeout fires when an offer's TTL elapses. The conditional
// status flip makes it a no-op when the provider already responded; a
// stray timer for a resolved booking cleans itself up silently.
func (e *dispatchEngine) handleOfferTimeout(bookingID, providerID string, tried []string, attempt int32) {
	ctx := context.Background()

	timedOut, err := e.offers.MarkTimeoutIfOffered(ctx, bookingID, providerID)
	if err != nil {
		logger.Error("offer timeout flip failed", "booking_id", bookingID, "provider_id", providerID, "error", err)
		return
	}
	if !timedOut {
		return
	}
	observability.DispatchTimeouts.Inc()
	logger.Info("offer timed out", "booking_id", bookingID, "provider_id", providerID, "attempt", attempt)

	booking, err := e.bookings.GetByID(ctx, bookingID)
	if err != nil {
		logger.Error("offer timeout escalation aborted", "booking_id", bookingID, "error", err)
		return
	}
	if booking.Status != domain.BookingStatusDispatching {
		return
	}
	if err := e.offerToNext(ctx, booking, tried, attempt+1); err != nil {
		logger.Error("offer timeout escalation failed", "booking_id", bookingID, "error", err)
	}
}

func (e *dispatchEngine) AcceptOffer(ctx context.Context, bookingID, providerID string) (*domain.Booking, error) {
	booking, err := e.offers.Accept(ctx, bookingID, providerID)
	if err != nil {
		if errors.Is(err, domain.ErrOfferExpiredOrInvalid) || errors.Is(err, domain.ErrBookingUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("accept offer %s/%s: %w", bookingID, providerID, err)
	}
	observability.DispatchAccepts.Inc()
	logger.Info("offer accepted", "booking_id", bookingID, "provider_id", providerID)

	// Notify after commit; the assignment is already durable.
	var providerName string
	if p, perr := e.providers.GetByID(ctx, providerID); perr == nil {
		providerName = p.FullName
	} else {
		logger.Warn("provider lookup after accept failed", "provider_id", providerID, "error", perr)
	}
	e.notifier.Notify(ctx, domain.RecipientUser, booking.UserID, domain.NotificationPayload{
		Title: "Provider on the way",
		Body:  fmt.Sprintf("%s accepted your booking %s", providerName, booking.BookingRef),
		Type:  "booking_accepted",
		Data:  map[string]string{"booking_id": booking.ID},
	})
	e.realtime.Publish(userChannel(booking.UserID), "booking_accepted", map[string]any{
		"booking_id":    booking.ID,
		"booking_ref":   booking.BookingRef,
		"provider_id":   providerID,
		"provider_name": providerName,
	})
	return booking, nil
}

func (e *dispatchEngine) DeclineOffer(ctx context.Context, bookingID, providerID string) error {
	declined, err := e.offers.MarkDeclinedIfOffered(ctx, bookingID, providerID)
	if err != nil {
		return fmt.Errorf("decline offer %s/%s: %w", bookingID, providerID, err)
	}
	if !declined {
		// Offer already timed out, was skipped, or never existed. A repeat
		// decline is not an error.
		return nil
	}
	logger.Info("offer declined", "booking_id", bookingID, "provider_id", providerID)

	booking, err := e.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("decline escalation %s: %w", bookingID, err)
	}
	if booking.Status != domain.BookingStatusDispatching {
		return nil
	}

	tried, err := e.offers.TriedProviderIDs(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("decline escalation %s: %w", bookingID, err)
	}
	lastAttempt, err := e.offers.MaxAttempt(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("decline escalation %s: %w", bookingID, err)
	}
	return e.offerToNext(ctx, booking, tried, lastAttempt+1)
}

// noMatch ends the round: the booking returns to pending and the user is
// told once. The conditional flip guards against a concurrent accept or
// cancel, and doubles as the notify-once guard.
func (e *dispatchEngine) noMatch(ctx context.Context, booking *domain.Booking) error {
	moved, err := e.bookings.UpdateStatusIf(ctx, booking.ID, domain.BookingStatusDispatching, domain.BookingStatusPending)
	if err != nil {
		return fmt.Errorf("dispatch no-match %s: %w", booking.ID, err)
	}
	if !moved {
		return nil
	}
	observability.DispatchNoMatch.Inc()

	body := e.settings.Get(ctx, SettingNoProvidersText, "No providers are available right now. Please try again shortly.")
	e.notifier.Notify(ctx, domain.RecipientUser, booking.UserID, domain.NotificationPayload{
		Title: "No providers available",
		Body:  body,
		Type:  "dispatch_no_match",
		Data:  map[string]string{"booking_id": booking.ID},
	})
	e.realtime.Publish(userChannel(booking.UserID), "dispatch_no_match", map[string]any{
		"booking_id":  booking.ID,
		"booking_ref": booking.BookingRef,
	})
	return nil
}

func formatCents(cents int64) string {
	return fmt.Sprintf("%.2f", float64(cents)/100)
}

func (e *dispatchEngine) revertToPending(ctx context.Context, bookingID string) {
	if _, err := e.bookings.UpdateStatusIf(ctx, bookingID, domain.BookingStatusDispatching, domain.BookingStatusPending); err != nil {
		logger.Error("dispatch revert failed", "booking_id", bookingID, "error", err)
	}
}
