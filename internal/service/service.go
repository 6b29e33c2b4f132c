package service

import (
	"context"
	"time"

	"github.com/ibndev/citystaff-backend/internal/domain"
)

// Publisher is the realtime fan-out capability handed to the core.
// Delivery is at-most-once and best-effort; implementations must never
// block the caller on a slow subscriber.
type Publisher interface {
	Publish(channelKey, event string, payload any)
}

// PushSender delivers one push message to a device token.
type PushSender interface {
	Send(ctx context.Context, token string, payload domain.NotificationPayload) error
}

// Notifier delivers a payload to a recipient: stored notification, push
// when a token is known, and a realtime event. Failures are logged and
// swallowed; notification delivery is never allowed to fail a state
// transition.
type Notifier interface {
	Notify(ctx context.Context, rt domain.RecipientType, recipientID string, payload domain.NotificationPayload)
}

type SettingsService interface {
	Get(ctx context.Context, key, def string) string
	GetNumber(ctx context.Context, key string, def float64) float64
	GetBool(ctx context.Context, key string, def bool) bool
	Update(ctx context.Context, key, value string) error
	UpdateMany(ctx context.Context, values map[string]string) error
	Public(ctx context.Context) (map[string]string, error)
}

type DispatchService interface {
	// StartDispatch moves a pending booking into dispatching and runs the
	// first offer attempt. Idempotent against duplicate triggers.
	StartDispatch(ctx context.Context, bookingID string) error
	AcceptOffer(ctx context.Context, bookingID, providerID string) (*domain.Booking, error)
	DeclineOffer(ctx context.Context, bookingID, providerID string) error
}

type CreateBookingInput struct {
	UserID         string
	ServiceID      string
	Address        string
	Latitude       float64
	Longitude      float64
	ScheduledAt    *time.Time
	SelectedAddons []string
	Notes          string
	PromoCode      string
	PaymentMethod  domain.PaymentMethod
}

type BookingService interface {
	Create(ctx context.Context, in CreateBookingInput) (*domain.Booking, error)
	Get(ctx context.Context, id string) (*domain.Booking, error)
	ListForUser(ctx context.Context, userID string, status domain.BookingStatus, page, pageSize int32) ([]domain.Booking, int32, error)
	ListForProvider(ctx context.Context, providerID string, status domain.BookingStatus, page, pageSize int32) ([]domain.Booking, int32, error)
	Cancel(ctx context.Context, id, userID, reason string) (*domain.Booking, error)
	Start(ctx context.Context, id, providerID string) error
	Complete(ctx context.Context, id, providerID string) (*domain.Booking, error)
	Rate(ctx context.Context, id, userID string, rating int32, review string) error
}

type WalletService interface {
	Statement(ctx context.Context, owner domain.OwnerType, ownerID string) (int64, []domain.WalletEntry, error)
	ConfirmTopUp(ctx context.Context, userID string, amountCents int64, reference string) (int64, error)
	RequestPayout(ctx context.Context, providerID string, amountCents int64) (*domain.PayoutRequest, error)
}

type ProviderService interface {
	Profile(ctx context.Context, id string) (*domain.Provider, error)
	UpdateProfile(ctx context.Context, p *domain.Provider) error
	SetAvailability(ctx context.Context, id string, available bool) error
	SetOnline(ctx context.Context, id string, online bool) error
	ReplaceServices(ctx context.Context, id string, serviceIDs []string) error
	Earnings(ctx context.Context, id string) (*domain.EarningsSummary, int64, error)
	// UpdateLocation persists the latest-known position and republishes it
	// to every user with an active booking assigned to this provider.
	UpdateLocation(ctx context.Context, loc *domain.Location) error
	LastLocation(ctx context.Context, providerID string) (*domain.Location, error)
}

type NotificationService interface {
	Notifier
	List(ctx context.Context, rt domain.RecipientType, recipientID string, page, pageSize int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, id string, rt domain.RecipientType, recipientID string) error
}

func userChannel(id string) string     { return "user_" + id }
func providerChannel(id string) string { return "provider_" + id }
func bookingChannel(id string) string  { return "booking_" + id }
