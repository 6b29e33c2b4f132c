package domain

import "time"

type OfferStatus string

const (
	OfferStatusOffered  OfferStatus = "offered"
	OfferStatusAccepted OfferStatus = "accepted"
	OfferStatusDeclined OfferStatus = "declined"
	OfferStatusTimeout  OfferStatus = "timeout"
	OfferStatusSkipped  OfferStatus = "skipped"
)

// DispatchOffer is one time-boxed proposal of a booking to a provider.
// Identified by (booking, provider, attempt); transitions exactly once out
// of "offered" and is never mutated after reaching a terminal status.
type DispatchOffer struct {
	ID            string      `json:"id"`
	BookingID     string      `json:"booking_id"`
	ProviderID    string      `json:"provider_id"`
	AttemptNumber int32       `json:"attempt_number"`
	Status        OfferStatus `json:"status"`
	DistanceKm    float64     `json:"distance_km"`
	ExpiresAt     time.Time   `json:"expires_at"`
	RespondedAt   *time.Time  `json:"responded_at,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}
