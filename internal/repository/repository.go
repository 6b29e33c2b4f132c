package repository

import (
	"context"
	"time"

	"github.com/ibndev/citystaff-backend/internal/domain"
	"github.com/ibndev/citystaff-backend/internal/geo"
)

type BookingRepository interface {
	// CreateWithCapture inserts the booking and, for wallet payments,
	// debits the customer's wallet and writes the ledger entry in the same
	// transaction. Returns domain.ErrInsufficientBalance (nothing written)
	// when the wallet cannot cover the total.
	CreateWithCapture(ctx context.Context, b *domain.Booking) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	// UpdateStatusIf performs a compare-and-swap on (id, expected status).
	// Exactly one concurrent writer observing the precondition succeeds.
	UpdateStatusIf(ctx context.Context, id string, from, to domain.BookingStatus) (bool, error)
	// StartJob moves accepted -> in_progress for the assigned provider only.
	StartJob(ctx context.Context, id, providerID string) (bool, error)
	// CompleteWithPayout moves in_progress -> completed and credits the
	// provider's wallet with the payout in the same transaction.
	CompleteWithPayout(ctx context.Context, id, providerID string) (*domain.Booking, error)
	// CancelWithRefund cancels the booking if it is still cancellable and,
	// when the booking was wallet-paid, refunds the full total in the same
	// transaction.
	CancelWithRefund(ctx context.Context, id, userID, reason string, actor domain.CancelActor) (*domain.Booking, error)
	Rate(ctx context.Context, id, userID string, rating int32, review string) error
	ListByUser(ctx context.Context, userID string, status domain.BookingStatus, page, pageSize int32) ([]domain.Booking, int32, error)
	ListByProvider(ctx context.Context, providerID string, status domain.BookingStatus, page, pageSize int32) ([]domain.Booking, int32, error)
	// ActiveUserIDsForProvider lists users with an accepted or in_progress
	// booking assigned to the provider, for location fan-out.
	ActiveUserIDsForProvider(ctx context.Context, providerID string) ([]string, error)
	ListStalePending(ctx context.Context, olderThan time.Duration, limit int32) ([]domain.Booking, error)
	// ReleaseStalledDispatching moves dispatching bookings with no live
	// offered row back to pending and returns their ids, so a sweep can
	// re-enter dispatch for rounds whose timers died with the process.
	ReleaseStalledDispatching(ctx context.Context, now time.Time) ([]string, error)
}

type DispatchOfferRepository interface {
	Create(ctx context.Context, o *domain.DispatchOffer) error
	GetOffered(ctx context.Context, bookingID, providerID string) (*domain.DispatchOffer, error)
	// Accept is the single serialization point of a dispatch round: within
	// one transaction it requires the offer to still be "offered" and
	// unexpired and the booking to still be "dispatching", then marks the
	// offer accepted, skips every other offered row, assigns the provider
	// on the booking and bumps the provider's job counter. Returns
	// domain.ErrOfferExpiredOrInvalid or domain.ErrBookingUnavailable with
	// no writes when a precondition fails.
	Accept(ctx context.Context, bookingID, providerID string) (*domain.Booking, error)
	MarkDeclinedIfOffered(ctx context.Context, bookingID, providerID string) (bool, error)
	MarkTimeoutIfOffered(ctx context.Context, bookingID, providerID string) (bool, error)
	// TriedProviderIDs returns providers already burned for the booking
	// (declined, timed out or skipped).
	TriedProviderIDs(ctx context.Context, bookingID string) ([]string, error)
	MaxAttempt(ctx context.Context, bookingID string) (int32, error)
	// ExpireStale marks offered rows past their expiry as timeout. Safety
	// sweep for timers lost across a restart.
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

type ProviderRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Provider, error)
	// FindCandidates returns providers qualified for the service that are
	// online, available, verified, active, have known coordinates and are
	// not in the exclusion set. Distance is left for the ranker.
	FindCandidates(ctx context.Context, serviceID string, excludeIDs []string) ([]geo.Candidate, error)
	UpdateProfile(ctx context.Context, p *domain.Provider) error
	SetAvailability(ctx context.Context, id string, available bool) error
	SetOnline(ctx context.Context, id string, online bool) error
	UpdateLocation(ctx context.Context, loc *domain.Location) error
	ReplaceServices(ctx context.Context, providerID string, serviceIDs []string) error
	Earnings(ctx context.Context, providerID string) (*domain.EarningsSummary, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	SetPushToken(ctx context.Context, id, token string) error
}

type CatalogRepository interface {
	GetActiveService(ctx context.Context, id string) (*domain.Service, error)
	// GetActivePromo returns (nil, nil) when the code does not resolve to a
	// usable promo; an invalid code is not an error, just no discount.
	GetActivePromo(ctx context.Context, code string) (*domain.PromoCode, error)
	IncrementPromoUse(ctx context.Context, id string) error
}

type WalletRepository interface {
	Balance(ctx context.Context, owner domain.OwnerType, ownerID string) (int64, error)
	ListEntries(ctx context.Context, owner domain.OwnerType, ownerID string, limit int32) ([]domain.WalletEntry, error)
	// ConfirmTopUp credits the user's wallet for a confirmed gateway
	// payment. Idempotent by reference: a replayed confirmation returns the
	// current balance without a second credit.
	ConfirmTopUp(ctx context.Context, userID string, amountCents int64, reference string) (int64, error)
	// RequestPayout debits the provider's wallet and records the payout
	// request in one transaction. Returns domain.ErrInsufficientBalance
	// when the balance cannot cover the amount.
	RequestPayout(ctx context.Context, req *domain.PayoutRequest) error
}

type SettingsRepository interface {
	GetAll(ctx context.Context) (map[string]string, error)
	GetPublic(ctx context.Context) (map[string]string, error)
	Set(ctx context.Context, key, value string) error
}

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	List(ctx context.Context, rt domain.RecipientType, recipientID string, page, pageSize int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, id string, rt domain.RecipientType, recipientID string) error
}
