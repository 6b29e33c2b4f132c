package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ibndev/citystaff-backend/internal/domain"
	"github.com/ibndev/citystaff-backend/internal/logger"
	"github.com/ibndev/citystaff-backend/internal/observability"
	"github.com/ibndev/citystaff-backend/internal/repository"
)

type bookingService struct {
	bookings repository.BookingRepository
	catalog  repository.CatalogRepository
	settings SettingsService
	dispatch DispatchService
	notifier Notifier
	realtime Publisher
}

func NewBookingService(
	bookings repository.BookingRepository,
	catalog repository.CatalogRepository,
	settings SettingsService,
	dispatch DispatchService,
	notifier Notifier,
	realtime Publisher,
) BookingService {
	return &bookingService{
		bookings: bookings,
		catalog:  catalog,
		settings: settings,
		dispatch: dispatch,
		notifier: notifier,
		realtime: realtime,
	}
}

func (s *bookingService) Create(ctx context.Context, in CreateBookingInput) (*domain.Booking, error) {
	if strings.TrimSpace(in.ServiceID) == "" || strings.TrimSpace(in.Address) == "" {
		return nil, fmt.Errorf("create booking: service_id and address are required: %w", domain.ErrInvalidInput)
	}
	switch in.PaymentMethod {
	case domain.PaymentMethodWallet, domain.PaymentMethodCash, domain.PaymentMethodCard:
	default:
		return nil, fmt.Errorf("create booking: unknown payment method %q: %w", in.PaymentMethod, domain.ErrInvalidInput)
	}

	svc, err := s.catalog.GetActiveService(ctx, in.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	var addonsCents int64
	for _, name := range in.SelectedAddons {
		found := false
		for _, a := range svc.Addons {
			if a.Name == name {
				addonsCents += a.PriceCents
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("create booking: addon %q not offered by service: %w", name, domain.ErrInvalidInput)
		}
	}

	var promo *domain.PromoCode
	var discountCents int64
	if code := strings.TrimSpace(in.PromoCode); code != "" {
		promo, err = s.catalog.GetActivePromo(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("create booking: %w", err)
		}
		if promo != nil {
			discountCents = promo.DiscountCents(svc.BasePriceCents + addonsCents)
		}
	}

	taxPct := s.settings.GetNumber(ctx, SettingTaxPercent, 0)
	commissionPct := s.settings.GetNumber(ctx, SettingCommissionPercent, 15)
	bd := domain.ComputeBreakdown(svc.BasePriceCents, addonsCents, discountCents, taxPct, commissionPct)

	now := time.Now()
	booking := &domain.Booking{
		ID:                  uuid.NewString(),
		BookingRef:          newBookingRef(now),
		UserID:              in.UserID,
		ServiceID:           in.ServiceID,
		Address:             in.Address,
		Latitude:            in.Latitude,
		Longitude:           in.Longitude,
		ScheduledAt:         in.ScheduledAt,
		BasePriceCents:      bd.BaseCents,
		AddonsPriceCents:    bd.AddonsCents,
		DiscountCents:       bd.DiscountCents,
		TaxCents:            bd.TaxCents,
		TotalPriceCents:     bd.TotalCents,
		PlatformFeeCents:    bd.FeeCents,
		ProviderPayoutCents: bd.PayoutCents,
		SelectedAddons:      in.SelectedAddons,
		Notes:               in.Notes,
		PaymentMethod:       in.PaymentMethod,
		PaymentStatus:       domain.PaymentStatusUnpaid,
		Status:              domain.BookingStatusPending,
		CreatedAt:           now,
	}
	if promo != nil && discountCents > 0 {
		booking.PromoCode = promo.Code
	}

	if err := s.bookings.CreateWithCapture(ctx, booking); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}
	observability.BookingsCreated.Inc()
	logger.Info("booking created",
		"booking_id", booking.ID,
		"booking_ref", booking.BookingRef,
		"user_id", booking.UserID,
		"total_cents", booking.TotalPriceCents,
		"payment_method", booking.PaymentMethod,
	)

	if promo != nil && discountCents > 0 {
		if err := s.catalog.IncrementPromoUse(ctx, promo.ID); err != nil {
			logger.Warn("promo use counter not bumped", "promo_id", promo.ID, "error", err)
		}
	}

	// Dispatch runs outside the request so creation latency stays flat.
	go func(id string) {
		if err := s.dispatch.StartDispatch(context.Background(), id); err != nil {
			logger.Error("dispatch after create failed", "booking_id", id, "error", err)
		}
	}(booking.ID)

	return booking, nil
}

func (s *bookingService) Get(ctx context.Context, id string) (*domain.Booking, error) {
	return s.bookings.GetByID(ctx, id)
}

func (s *bookingService) ListForUser(ctx context.Context, userID string, status domain.BookingStatus, page, pageSize int32) ([]domain.Booking, int32, error) {
	return s.bookings.ListByUser(ctx, userID, status, page, pageSize)
}

func (s *bookingService) ListForProvider(ctx context.Context, providerID string, status domain.BookingStatus, page, pageSize int32) ([]domain.Booking, int32, error) {
	return s.bookings.ListByProvider(ctx, providerID, status, page, pageSize)
}

func (s *bookingService) Cancel(ctx context.Context, id, userID, reason string) (*domain.Booking, error) {
	booking, err := s.bookings.CancelWithRefund(ctx, id, userID, reason, domain.CancelActorUser)
	if err != nil {
		return nil, err
	}
	observability.BookingsCancelled.Inc()
	logger.Info("booking cancelled", "booking_id", id, "user_id", userID, "reason", reason)

	if booking.ProviderID != nil {
		s.notifier.Notify(ctx, domain.RecipientProvider, *booking.ProviderID, domain.NotificationPayload{
			Title: "Booking cancelled",
			Body:  fmt.Sprintf("Booking %s was cancelled by the customer", booking.BookingRef),
			Type:  "booking_cancelled",
			Data:  map[string]string{"booking_id": booking.ID},
		})
	}
	s.realtime.Publish(bookingChannel(booking.ID), "booking_cancelled", map[string]any{
		"booking_id": booking.ID,
		"status":     booking.Status,
	})
	return booking, nil
}

func (s *bookingService) Start(ctx context.Context, id, providerID string) error {
	started, err := s.bookings.StartJob(ctx, id, providerID)
	if err != nil {
		return fmt.Errorf("start booking %s: %w", id, err)
	}
	if !started {
		return domain.ErrInvalidTransition
	}
	logger.Info("booking started", "booking_id", id, "provider_id", providerID)
	s.realtime.Publish(bookingChannel(id), "booking_started", map[string]any{
		"booking_id": id,
		"status":     domain.BookingStatusInProgress,
	})
	return nil
}

func (s *bookingService) Complete(ctx context.Context, id, providerID string) (*domain.Booking, error) {
	booking, err := s.bookings.CompleteWithPayout(ctx, id, providerID)
	if err != nil {
		return nil, err
	}
	observability.BookingsCompleted.Inc()
	logger.Info("booking completed",
		"booking_id", id,
		"provider_id", providerID,
		"payout_cents", booking.ProviderPayoutCents,
	)

	s.notifier.Notify(ctx, domain.RecipientUser, booking.UserID, domain.NotificationPayload{
		Title: "Job completed",
		Body:  fmt.Sprintf("Booking %s is done. Rate your experience!", booking.BookingRef),
		Type:  "booking_completed",
		Data:  map[string]string{"booking_id": booking.ID},
	})
	s.realtime.Publish(userChannel(booking.UserID), "booking_completed", map[string]any{
		"booking_id":  booking.ID,
		"booking_ref": booking.BookingRef,
	})
	return booking, nil
}

func (s *bookingService) Rate(ctx context.Context, id, userID string, rating int32, review string) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("rate booking: rating must be 1 to 5: %w", domain.ErrInvalidInput)
	}
	if err := s.bookings.Rate(ctx, id, userID, rating, review); err != nil {
		return err
	}
	logger.Info("booking rated", "booking_id", id, "rating", rating)
	return nil
}

const refAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func newBookingRef(now time.Time) string {
	var b strings.Builder
	b.WriteString("CSB")
	fmt.Fprintf(&b, "%d", now.UnixMilli()%100000000)
	for i := 0; i < 3; i++ {
		b.WriteByte(refAlphabet[rand.Intn(len(refAlphabet))])
	}
	return b.String()
}
