package service

import (
	"context"
	"strconv"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/ibndev/citystaff-backend/internal/domain"
	"github.com/ibndev/citystaff-backend/internal/geo"
)

type MockBookingRepo struct{ mock.Mock }

func (m *MockBookingRepo) CreateWithCapture(ctx context.Context, b *domain.Booking) error {
	return m.Called(ctx, b).Error(0)
}

func (m *MockBookingRepo) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if b := args.Get(0); b != nil {
		return b.(*domain.Booking), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBookingRepo) UpdateStatusIf(ctx context.Context, id string, from, to domain.BookingStatus) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingRepo) StartJob(ctx context.Context, id, providerID string) (bool, error) {
	args := m.Called(ctx, id, providerID)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingRepo) CompleteWithPayout(ctx context.Context, id, providerID string) (*domain.Booking, error) {
	args := m.Called(ctx, id, providerID)
	if b := args.Get(0); b != nil {
		return b.(*domain.Booking), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBookingRepo) CancelWithRefund(ctx context.Context, id, userID, reason string, actor domain.CancelActor) (*domain.Booking, error) {
	args := m.Called(ctx, id, userID, reason, actor)
	if b := args.Get(0); b != nil {
		return b.(*domain.Booking), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBookingRepo) Rate(ctx context.Context, id, userID string, rating int32, review string) error {
	return m.Called(ctx, id, userID, rating, review).Error(0)
}

func (m *MockBookingRepo) ListByUser(ctx context.Context, userID string, status domain.BookingStatus, page, pageSize int32) ([]domain.Booking, int32, error) {
	args := m.Called(ctx, userID, status, page, pageSize)
	return args.Get(0).([]domain.Booking), args.Get(1).(int32), args.Error(2)
}

func (m *MockBookingRepo) ListByProvider(ctx context.Context, providerID string, status domain.BookingStatus, page, pageSize int32) ([]domain.Booking, int32, error) {
	args := m.Called(ctx, providerID, status, page, pageSize)
	return args.Get(0).([]domain.Booking), args.Get(1).(int32), args.Error(2)
}

func (m *MockBookingRepo) ActiveUserIDsForProvider(ctx context.Context, providerID string) ([]string, error) {
	args := m.Called(ctx, providerID)
	if ids := args.Get(0); ids != nil {
		return ids.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBookingRepo) ReleaseStalledDispatching(ctx context.Context, now time.Time) ([]string, error) {
	args := m.Called(ctx, now)
	if ids := args.Get(0); ids != nil {
		return ids.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBookingRepo) ListStalePending(ctx context.Context, olderThan time.Duration, limit int32) ([]domain.Booking, error) {
	args := m.Called(ctx, olderThan, limit)
	if bs := args.Get(0); bs != nil {
		return bs.([]domain.Booking), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockOfferRepo struct{ mock.Mock }

func (m *MockOfferRepo) Create(ctx context.Context, o *domain.DispatchOffer) error {
	return m.Called(ctx, o).Error(0)
}

func (m *MockOfferRepo) GetOffered(ctx context.Context, bookingID, providerID string) (*domain.DispatchOffer, error) {
	args := m.Called(ctx, bookingID, providerID)
	if o := args.Get(0); o != nil {
		return o.(*domain.DispatchOffer), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOfferRepo) Accept(ctx context.Context, bookingID, providerID string) (*domain.Booking, error) {
	args := m.Called(ctx, bookingID, providerID)
	if b := args.Get(0); b != nil {
		return b.(*domain.Booking), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOfferRepo) MarkDeclinedIfOffered(ctx context.Context, bookingID, providerID string) (bool, error) {
	args := m.Called(ctx, bookingID, providerID)
	return args.Bool(0), args.Error(1)
}

func (m *MockOfferRepo) MarkTimeoutIfOffered(ctx context.Context, bookingID, providerID string) (bool, error) {
	args := m.Called(ctx, bookingID, providerID)
	return args.Bool(0), args.Error(1)
}

func (m *MockOfferRepo) TriedProviderIDs(ctx context.Context, bookingID string) ([]string, error) {
	args := m.Called(ctx, bookingID)
	if ids := args.Get(0); ids != nil {
		return ids.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOfferRepo) MaxAttempt(ctx context.Context, bookingID string) (int32, error) {
	args := m.Called(ctx, bookingID)
	return args.Get(0).(int32), args.Error(1)
}

func (m *MockOfferRepo) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type MockProviderRepo struct{ mock.Mock }

func (m *MockProviderRepo) GetByID(ctx context.Context, id string) (*domain.Provider, error) {
	args := m.Called(ctx, id)
	if p := args.Get(0); p != nil {
		return p.(*domain.Provider), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProviderRepo) FindCandidates(ctx context.Context, serviceID string, excludeIDs []string) ([]geo.Candidate, error) {
	args := m.Called(ctx, serviceID, excludeIDs)
	if cs := args.Get(0); cs != nil {
		return cs.([]geo.Candidate), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProviderRepo) UpdateProfile(ctx context.Context, p *domain.Provider) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockProviderRepo) SetAvailability(ctx context.Context, id string, available bool) error {
	return m.Called(ctx, id, available).Error(0)
}

func (m *MockProviderRepo) SetOnline(ctx context.Context, id string, online bool) error {
	return m.Called(ctx, id, online).Error(0)
}

func (m *MockProviderRepo) UpdateLocation(ctx context.Context, loc *domain.Location) error {
	return m.Called(ctx, loc).Error(0)
}

func (m *MockProviderRepo) ReplaceServices(ctx context.Context, providerID string, serviceIDs []string) error {
	return m.Called(ctx, providerID, serviceIDs).Error(0)
}

func (m *MockProviderRepo) Earnings(ctx context.Context, providerID string) (*domain.EarningsSummary, error) {
	args := m.Called(ctx, providerID)
	if s := args.Get(0); s != nil {
		return s.(*domain.EarningsSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockCatalogRepo struct{ mock.Mock }

func (m *MockCatalogRepo) GetActiveService(ctx context.Context, id string) (*domain.Service, error) {
	args := m.Called(ctx, id)
	if s := args.Get(0); s != nil {
		return s.(*domain.Service), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalogRepo) GetActivePromo(ctx context.Context, code string) (*domain.PromoCode, error) {
	args := m.Called(ctx, code)
	if p := args.Get(0); p != nil {
		return p.(*domain.PromoCode), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalogRepo) IncrementPromoUse(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockWalletRepo struct{ mock.Mock }

func (m *MockWalletRepo) Balance(ctx context.Context, owner domain.OwnerType, ownerID string) (int64, error) {
	args := m.Called(ctx, owner, ownerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockWalletRepo) ListEntries(ctx context.Context, owner domain.OwnerType, ownerID string, limit int32) ([]domain.WalletEntry, error) {
	args := m.Called(ctx, owner, ownerID, limit)
	if es := args.Get(0); es != nil {
		return es.([]domain.WalletEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockWalletRepo) ConfirmTopUp(ctx context.Context, userID string, amountCents int64, reference string) (int64, error) {
	args := m.Called(ctx, userID, amountCents, reference)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockWalletRepo) RequestPayout(ctx context.Context, req *domain.PayoutRequest) error {
	return m.Called(ctx, req).Error(0)
}

type MockSettingsRepo struct{ mock.Mock }

func (m *MockSettingsRepo) GetAll(ctx context.Context) (map[string]string, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.(map[string]string), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSettingsRepo) GetPublic(ctx context.Context) (map[string]string, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.(map[string]string), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSettingsRepo) Set(ctx context.Context, key, value string) error {
	return m.Called(ctx, key, value).Error(0)
}

type MockNotifier struct{ mock.Mock }

func (m *MockNotifier) Notify(ctx context.Context, rt domain.RecipientType, recipientID string, payload domain.NotificationPayload) {
	m.Called(ctx, rt, recipientID, payload)
}

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	events []publishedEvent
}

type publishedEvent struct {
	Channel string
	Event   string
	Payload any
}

func (p *recordingPublisher) Publish(channelKey, event string, payload any) {
	p.events = append(p.events, publishedEvent{Channel: channelKey, Event: event, Payload: payload})
}

// staticSettings serves fixed values without a database.
type staticSettings map[string]string

func (s staticSettings) Get(_ context.Context, key, def string) string {
	if v, ok := s[key]; ok {
		return v
	}
	return def
}

func (s staticSettings) GetNumber(_ context.Context, key string, def float64) float64 {
	if v, ok := s[key]; ok {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return def
}

func (s staticSettings) GetBool(_ context.Context, key string, def bool) bool {
	if v, ok := s[key]; ok {
		return v == "true" || v == "1"
	}
	return def
}

func (s staticSettings) Update(context.Context, string, string) error     { return nil }
func (s staticSettings) UpdateMany(context.Context, map[string]string) error { return nil }
func (s staticSettings) Public(context.Context) (map[string]string, error)   { return s, nil }
