package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeBreakdown(t *testing.T) {
	t.Run("StandardBooking", func(t *testing.T) {
		bd := ComputeBreakdown(100000, 20000, 10000, 5, 15)

		assert.Equal(t, int64(110000), bd.BaseCents+bd.AddonsCents-bd.DiscountCents)
		assert.Equal(t, int64(5500), bd.TaxCents)
		assert.Equal(t, int64(115500), bd.TotalCents)
		assert.Equal(t, int64(17325), bd.FeeCents)
		assert.Equal(t, int64(98175), bd.PayoutCents)
	})

	t.Run("FeePlusPayoutEqualsTotal", func(t *testing.T) {
		cases := [][3]int64{
			{100000, 20000, 10000},
			{33333, 0, 0},
			{99999, 1, 12345},
			{1, 0, 0},
		}
		for _, c := range cases {
			bd := ComputeBreakdown(c[0], c[1], c[2], 7.5, 12.5)
			assert.Equal(t, bd.TotalCents, bd.FeeCents+bd.PayoutCents,
				"base=%d addons=%d discount=%d", c[0], c[1], c[2])
			assert.GreaterOrEqual(t, bd.PayoutCents, int64(0))
		}
	})

	t.Run("DiscountExceedingSubtotalFloorsAtZero", func(t *testing.T) {
		bd := ComputeBreakdown(5000, 0, 10000, 5, 15)

		assert.Equal(t, int64(0), bd.TaxCents)
		assert.Equal(t, int64(0), bd.TotalCents)
		assert.Equal(t, int64(0), bd.FeeCents)
		assert.Equal(t, int64(0), bd.PayoutCents)
	})

	t.Run("ZeroPercentages", func(t *testing.T) {
		bd := ComputeBreakdown(100000, 0, 0, 0, 0)

		assert.Equal(t, int64(0), bd.TaxCents)
		assert.Equal(t, int64(100000), bd.TotalCents)
		assert.Equal(t, int64(0), bd.FeeCents)
		assert.Equal(t, int64(100000), bd.PayoutCents)
	})
}

func TestPromoCodeDiscount(t *testing.T) {
	t.Run("PercentScalesWithSubtotal", func(t *testing.T) {
		p := &PromoCode{Type: PromoTypePercent, Value: 10}
		assert.Equal(t, int64(12000), p.DiscountCents(120000))
	})

	t.Run("FixedCappedAtSubtotal", func(t *testing.T) {
		p := &PromoCode{Type: PromoTypeFixed, Value: 10000}
		assert.Equal(t, int64(10000), p.DiscountCents(120000))
		assert.Equal(t, int64(5000), p.DiscountCents(5000))
	})

	t.Run("BelowMinimumOrderGivesNothing", func(t *testing.T) {
		p := &PromoCode{Type: PromoTypeFixed, Value: 10000, MinOrderCents: 50000}
		assert.Equal(t, int64(0), p.DiscountCents(49999))
		assert.Equal(t, int64(10000), p.DiscountCents(50000))
	})
}

func TestBookingStatusHelpers(t *testing.T) {
	assert.True(t, BookingStatusCompleted.IsTerminal())
	assert.True(t, BookingStatusCancelled.IsTerminal())
	assert.False(t, BookingStatusInProgress.IsTerminal())

	assert.True(t, BookingStatusPending.IsCancellable())
	assert.True(t, BookingStatusDispatching.IsCancellable())
	assert.True(t, BookingStatusAccepted.IsCancellable())
	assert.False(t, BookingStatusInProgress.IsCancellable())
	assert.False(t, BookingStatusCompleted.IsCancellable())
}
