package domain

import (
	"math"
	"time"
)

type BookingStatus string

const (
	BookingStatusPending     BookingStatus = "pending"
	BookingStatusDispatching BookingStatus = "dispatching"
	BookingStatusAccepted    BookingStatus = "accepted"
	BookingStatusInProgress  BookingStatus = "in_progress"
	BookingStatusCompleted   BookingStatus = "completed"
	BookingStatusCancelled   BookingStatus = "cancelled"
)

// IsTerminal reports whether no further transition is permitted.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

// IsCancellable reports whether a booking in this status may still be
// cancelled by the customer.
func (s BookingStatus) IsCancellable() bool {
	switch s {
	case BookingStatusPending, BookingStatusDispatching, BookingStatusAccepted:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodWallet PaymentMethod = "wallet"
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodCard   PaymentMethod = "card"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"
)

type CancelActor string

const (
	CancelActorUser     CancelActor = "user"
	CancelActorProvider CancelActor = "provider"
	CancelActorAdmin    CancelActor = "admin"
)

type Booking struct {
	ID         string  `json:"id"`
	BookingRef string  `json:"booking_ref"`
	UserID     string  `json:"user_id"`
	ServiceID  string  `json:"service_id"`
	ProviderID *string `json:"provider_id,omitempty"`

	Address     string     `json:"address"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`

	// Money fields are snapshots computed once at creation time. Settings
	// changes never retroactively affect an existing booking.
	BasePriceCents      int64 `json:"base_price_cents"`
	AddonsPriceCents    int64 `json:"addons_price_cents"`
	DiscountCents       int64 `json:"discount_cents"`
	TaxCents            int64 `json:"tax_cents"`
	TotalPriceCents     int64 `json:"total_price_cents"`
	PlatformFeeCents    int64 `json:"platform_fee_cents"`
	ProviderPayoutCents int64 `json:"provider_payout_cents"`

	SelectedAddons []string      `json:"selected_addons"`
	Notes          string        `json:"notes"`
	PromoCode      string        `json:"promo_code,omitempty"`
	PaymentMethod  PaymentMethod `json:"payment_method"`
	PaymentStatus  PaymentStatus `json:"payment_status"`

	Status       BookingStatus `json:"status"`
	CancelReason string        `json:"cancel_reason,omitempty"`
	CancelledBy  *CancelActor  `json:"cancelled_by,omitempty"`

	Rating *int32 `json:"rating,omitempty"`
	Review string `json:"review,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	RatedAt     *time.Time `json:"rated_at,omitempty"`
}

// PriceBreakdown holds the monetary split frozen into a booking row.
type PriceBreakdown struct {
	BaseCents     int64
	AddonsCents   int64
	DiscountCents int64
	TaxCents      int64
	TotalCents    int64
	FeeCents      int64
	PayoutCents   int64
}

// ComputeBreakdown derives the full monetary split from the service base
// price, selected addons, promo discount and the platform percentages in
// effect at creation time. The platform fee is rounded to the nearest cent
// and the payout is the remainder so that fee + payout == total always
// holds; the payout is floored at zero.
func ComputeBreakdown(baseCents, addonsCents, discountCents int64, taxPct, commissionPct float64) PriceBreakdown {
	subtotal := baseCents + addonsCents - discountCents
	if subtotal < 0 {
		subtotal = 0
	}
	tax := int64(math.Round(float64(subtotal) * taxPct / 100))
	total := subtotal + tax
	fee := int64(math.Round(float64(total) * commissionPct / 100))
	if fee > total {
		fee = total
	}
	return PriceBreakdown{
		BaseCents:     baseCents,
		AddonsCents:   addonsCents,
		DiscountCents: discountCents,
		TaxCents:      tax,
		TotalCents:    total,
		FeeCents:      fee,
		PayoutCents:   total - fee,
	}
}
