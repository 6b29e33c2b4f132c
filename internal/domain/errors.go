package domain

import "errors"

var (
	// ErrInsufficientBalance aborts the whole booking-creation (or payout)
	// transaction; nothing is written.
	ErrInsufficientBalance = errors.New("insufficient wallet balance")

	// ErrOfferExpiredOrInvalid is returned to a provider whose accept raced
	// against a timeout, a decline, or a cancellation. Booking state is
	// never touched when it is returned.
	ErrOfferExpiredOrInvalid = errors.New("offer expired or already responded")

	// ErrBookingUnavailable means the booking left dispatching before the
	// accept transaction could claim it.
	ErrBookingUnavailable = errors.New("booking no longer available")

	ErrNotCancellable    = errors.New("booking cannot be cancelled at this stage")
	ErrInvalidTransition = errors.New("booking is not in the required status")
	ErrNotFound          = errors.New("not found")
	ErrAlreadyRated      = errors.New("booking already rated")
	ErrInvalidInput      = errors.New("invalid input")
)
