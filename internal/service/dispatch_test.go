package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ibndev/citystaff-backend/internal/domain"
	"github.com/ibndev/citystaff-backend/internal/geo"
)

type dispatchFixture struct {
	engine    *dispatchEngine
	bookings  *MockBookingRepo
	offers    *MockOfferRepo
	providers *MockProviderRepo
	notifier  *MockNotifier
	publisher *recordingPublisher
	timers    []func()
}

func newDispatchFixture(settings staticSettings) *dispatchFixture {
	f := &dispatchFixture{
		bookings:  new(MockBookingRepo),
		offers:    new(MockOfferRepo),
		providers: new(MockProviderRepo),
		notifier:  new(MockNotifier),
		publisher: &recordingPublisher{},
	}
	f.engine = NewDispatchService(f.bookings, f.offers, f.providers, settings, f.notifier, f.publisher).(*dispatchEngine)
	f.engine.schedule = func(_ time.Duration, fn func()) {
		f.timers = append(f.timers, fn)
	}
	return f
}

// fireTimer runs the most recently armed expiry callback.
func (f *dispatchFixture) fireTimer(t *testing.T) {
	require.NotEmpty(t, f.timers, "no timer armed")
	fn := f.timers[len(f.timers)-1]
	f.timers = f.timers[:len(f.timers)-1]
	fn()
}

func dispatchingBooking() *domain.Booking {
	return &domain.Booking{
		ID:                  "bk-1",
		BookingRef:          "CSB10000001AAA",
		UserID:              "usr-1",
		ServiceID:           "svc-1",
		Address:             "12 Marina Road",
		Latitude:            6.45,
		Longitude:           3.40,
		TotalPriceCents:     115500,
		ProviderPayoutCents: 98175,
		Status:              domain.BookingStatusDispatching,
	}
}

func TestDispatch_StartOffersNearestProvider(t *testing.T) {
	f := newDispatchFixture(staticSettings{SettingOfferTTLSeconds: "30"})
	ctx := context.Background()

	f.bookings.On("UpdateStatusIf", mock.Anything, "bk-1", domain.BookingStatusPending, domain.BookingStatusDispatching).
		Return(true, nil).Once()
	f.bookings.On("GetByID", mock.Anything, "bk-1").Return(dispatchingBooking(), nil).Once()
	f.providers.On("FindCandidates", mock.Anything, "svc-1", mock.Anything).Return([]geo.Candidate{
		{ProviderID: "prv-far", Latitude: 6.60, Longitude: 3.60, Rating: 5.0},
		{ProviderID: "prv-near", Latitude: 6.46, Longitude: 3.41, Rating: 4.0},
	}, nil).Once()
	f.offers.On("Create", mock.Anything, mock.MatchedBy(func(o *domain.DispatchOffer) bool {
		return o.BookingID == "bk-1" && o.ProviderID == "prv-near" &&
			o.AttemptNumber == 1 && o.Status == domain.OfferStatusOffered
	})).Return(nil).Once()
	f.notifier.On("Notify", mock.Anything, domain.RecipientProvider, "prv-near", mock.MatchedBy(func(p domain.NotificationPayload) bool {
		return p.Type == "dispatch_offer" &&
			p.Data["payout_cents"] == "98175" &&
			p.Data["ttl_seconds"] == "30" &&
			strings.Contains(p.Title, "981.75")
	})).Once()

	err := f.engine.StartDispatch(ctx, "bk-1")
	require.NoError(t, err)

	require.Len(t, f.timers, 1, "offer must arm exactly one expiry timer")
	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, "provider_prv-near", f.publisher.events[0].Channel)
	assert.Equal(t, "dispatch_offer", f.publisher.events[0].Event)

	f.bookings.AssertExpectations(t)
	f.offers.AssertExpectations(t)
	f.providers.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func TestDispatch_StartIsIdempotent(t *testing.T) {
	f := newDispatchFixture(staticSettings{})

	f.bookings.On("UpdateStatusIf", mock.Anything, "bk-1", domain.BookingStatusPending, domain.BookingStatusDispatching).
		Return(false, nil).Once()

	err := f.engine.StartDispatch(context.Background(), "bk-1")
	require.NoError(t, err)

	f.providers.AssertNotCalled(t, "FindCandidates", mock.Anything, mock.Anything, mock.Anything)
	f.offers.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestDispatch_TimeoutEscalatesToNextProvider(t *testing.T) {
	f := newDispatchFixture(staticSettings{SettingOfferTTLSeconds: "15"})

	f.bookings.On("UpdateStatusIf", mock.Anything, "bk-1", domain.BookingStatusPending, domain.BookingStatusDispatching).
		Return(true, nil).Once()
	f.bookings.On("GetByID", mock.Anything, "bk-1").Return(dispatchingBooking(), nil)

	f.providers.On("FindCandidates", mock.Anything, "svc-1", mock.Anything).Return([]geo.Candidate{
		{ProviderID: "prv-1", Latitude: 6.46, Longitude: 3.41, Rating: 4.5},
	}, nil).Once()
	f.offers.On("Create", mock.Anything, mock.MatchedBy(func(o *domain.DispatchOffer) bool {
		return o.ProviderID == "prv-1" && o.AttemptNumber == 1
	})).Return(nil).Once()
	f.notifier.On("Notify", mock.Anything, domain.RecipientProvider, "prv-1", mock.Anything).Once()

	require.NoError(t, f.engine.StartDispatch(context.Background(), "bk-1"))

	// First provider never responds. The expiry must exclude it on the
	// next attempt.
	f.offers.On("MarkTimeoutIfOffered", mock.Anything, "bk-1", "prv-1").Return(true, nil).Once()
	f.providers.On("FindCandidates", mock.Anything, "svc-1", []string{"prv-1"}).Return([]geo.Candidate{
		{ProviderID: "prv-2", Latitude: 6.47, Longitude: 3.42, Rating: 4.0},
	}, nil).Once()
	f.offers.On("Create", mock.Anything, mock.MatchedBy(func(o *domain.DispatchOffer) bool {
		return o.ProviderID == "prv-2" && o.AttemptNumber == 2
	})).Return(nil).Once()
	f.notifier.On("Notify", mock.Anything, domain.RecipientProvider, "prv-2", mock.Anything).Once()

	f.fireTimer(t)

	require.Len(t, f.timers, 1, "escalation must arm a fresh timer")
	f.offers.AssertExpectations(t)
	f.providers.AssertExpectations(t)
}

func TestDispatch_TimeoutAfterResponseIsNoop(t *testing.T) {
	f := newDispatchFixture(staticSettings{})

	f.bookings.On("UpdateStatusIf", mock.Anything, "bk-1", domain.BookingStatusPending, domain.BookingStatusDispatching).
		Return(true, nil).Once()
	f.bookings.On("GetByID", mock.Anything, "bk-1").Return(dispatchingBooking(), nil)
	f.providers.On("FindCandidates", mock.Anything, "svc-1", mock.Anything).Return([]geo.Candidate{
		{ProviderID: "prv-1", Latitude: 6.46, Longitude: 3.41},
	}, nil).Once()
	f.offers.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	f.notifier.On("Notify", mock.Anything, domain.RecipientProvider, "prv-1", mock.Anything).Once()

	require.NoError(t, f.engine.StartDispatch(context.Background(), "bk-1"))

	// Provider accepted before the TTL elapsed; the flip fails and the
	// timer must not escalate.
	f.offers.On("MarkTimeoutIfOffered", mock.Anything, "bk-1", "prv-1").Return(false, nil).Once()

	f.fireTimer(t)

	f.providers.AssertNumberOfCalls(t, "FindCandidates", 1)
	f.offers.AssertNumberOfCalls(t, "Create", 1)
}

func TestDispatch_NoCandidatesNotifiesUserOnce(t *testing.T) {
	f := newDispatchFixture(staticSettings{})
	ctx := context.Background()

	f.bookings.On("UpdateStatusIf", mock.Anything, "bk-1", domain.BookingStatusPending, domain.BookingStatusDispatching).
		Return(true, nil).Once()
	f.bookings.On("GetByID", mock.Anything, "bk-1").Return(dispatchingBooking(), nil).Once()
	f.providers.On("FindCandidates", mock.Anything, "svc-1", mock.Anything).Return([]geo.Candidate{}, nil).Once()
	f.bookings.On("UpdateStatusIf", mock.Anything, "bk-1", domain.BookingStatusDispatching, domain.BookingStatusPending).
		Return(true, nil).Once()
	f.notifier.On("Notify", mock.Anything, domain.RecipientUser, "usr-1", mock.MatchedBy(func(p domain.NotificationPayload) bool {
		return p.Type == "dispatch_no_match"
	})).Once()

	require.NoError(t, f.engine.StartDispatch(ctx, "bk-1"))

	assert.Empty(t, f.timers)
	f.bookings.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func TestDispatch_ExhaustedAttemptsReturnToPending(t *testing.T) {
	f := newDispatchFixture(staticSettings{SettingMaxAttempts: "1"})

	f.bookings.On("UpdateStatusIf", mock.Anything, "bk-1", domain.BookingStatusPending, domain.BookingStatusDispatching).
		Return(true, nil).Once()
	f.bookings.On("GetByID", mock.Anything, "bk-1").Return(dispatchingBooking(), nil)
	f.providers.On("FindCandidates", mock.Anything, "svc-1", mock.Anything).Return([]geo.Candidate{
		{ProviderID: "prv-1", Latitude: 6.46, Longitude: 3.41},
	}, nil).Once()
	f.offers.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	f.notifier.On("Notify", mock.Anything, domain.RecipientProvider, "prv-1", mock.Anything).Once()

	require.NoError(t, f.engine.StartDispatch(context.Background(), "bk-1"))

	f.offers.On("MarkTimeoutIfOffered", mock.Anything, "bk-1", "prv-1").Return(true, nil).Once()
	f.bookings.On("UpdateStatusIf", mock.Anything, "bk-1", domain.BookingStatusDispatching, domain.BookingStatusPending).
		Return(true, nil).Once()
	f.notifier.On("Notify", mock.Anything, domain.RecipientUser, "usr-1", mock.MatchedBy(func(p domain.NotificationPayload) bool {
		return p.Type == "dispatch_no_match"
	})).Once()

	f.fireTimer(t)

	// Attempt 2 exceeds the max of 1, so no second candidate search runs.
	f.providers.AssertNumberOfCalls(t, "FindCandidates", 1)
	f.bookings.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func TestDispatch_DeclineEscalatesWithNextAttempt(t *testing.T) {
	f := newDispatchFixture(staticSettings{})
	ctx := context.Background()

	f.offers.On("MarkDeclinedIfOffered", mock.Anything, "bk-1", "prv-1").Return(true, nil).Once()
	f.bookings.On("GetByID", mock.Anything, "bk-1").Return(dispatchingBooking(), nil).Once()
	f.offers.On("TriedProviderIDs", mock.Anything, "bk-1").Return([]string{"prv-1"}, nil).Once()
	f.offers.On("MaxAttempt", mock.Anything, "bk-1").Return(int32(1), nil).Once()
	f.providers.On("FindCandidates", mock.Anything, "svc-1", []string{"prv-1"}).Return([]geo.Candidate{
		{ProviderID: "prv-2", Latitude: 6.47, Longitude: 3.42},
	}, nil).Once()
	f.offers.On("Create", mock.Anything, mock.MatchedBy(func(o *domain.DispatchOffer) bool {
		return o.ProviderID == "prv-2" && o.AttemptNumber == 2
	})).Return(nil).Once()
	f.notifier.On("Notify", mock.Anything, domain.RecipientProvider, "prv-2", mock.Anything).Once()

	require.NoError(t, f.engine.DeclineOffer(ctx, "bk-1", "prv-1"))
	f.offers.AssertExpectations(t)
}

func TestDispatch_RepeatDeclineIsNoop(t *testing.T) {
	f := newDispatchFixture(staticSettings{})

	f.offers.On("MarkDeclinedIfOffered", mock.Anything, "bk-1", "prv-1").Return(false, nil).Once()

	require.NoError(t, f.engine.DeclineOffer(context.Background(), "bk-1", "prv-1"))
	f.bookings.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestDispatch_AcceptNotifiesCustomer(t *testing.T) {
	f := newDispatchFixture(staticSettings{})
	ctx := context.Background()

	accepted := dispatchingBooking()
	accepted.Status = domain.BookingStatusAccepted
	providerID := "prv-1"
	accepted.ProviderID = &providerID

	f.offers.On("Accept", mock.Anything, "bk-1", "prv-1").Return(accepted, nil).Once()
	f.providers.On("GetByID", mock.Anything, "prv-1").Return(&domain.Provider{ID: "prv-1", FullName: "Ada O."}, nil).Once()
	f.notifier.On("Notify", mock.Anything, domain.RecipientUser, "usr-1", mock.MatchedBy(func(p domain.NotificationPayload) bool {
		return p.Type == "booking_accepted"
	})).Once()

	booking, err := f.engine.AcceptOffer(ctx, "bk-1", "prv-1")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusAccepted, booking.Status)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, "user_usr-1", f.publisher.events[0].Channel)
	assert.Equal(t, "booking_accepted", f.publisher.events[0].Event)
	f.notifier.AssertExpectations(t)
}

func TestDispatch_AcceptExpiredOffer(t *testing.T) {
	f := newDispatchFixture(staticSettings{})

	f.offers.On("Accept", mock.Anything, "bk-1", "prv-1").
		Return(nil, domain.ErrOfferExpiredOrInvalid).Once()

	_, err := f.engine.AcceptOffer(context.Background(), "bk-1", "prv-1")
	assert.ErrorIs(t, err, domain.ErrOfferExpiredOrInvalid)
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
