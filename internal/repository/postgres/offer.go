package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/ibndev/citystaff-backend/internal/domain"
	"github.com/ibndev/citystaff-backend/internal/repository"
)

const offerColumns = `id, booking_id, provider_id, attempt_number, status, distance_km, expires_at, responded_at, created_at`

type dispatchOfferRepository struct {
	db *sql.DB
}

func NewDispatchOfferRepository(db *sql.DB) repository.DispatchOfferRepository {
	return &dispatchOfferRepository{db: db}
}

func (r *dispatchOfferRepository) Create(ctx context.Context, o *domain.DispatchOffer) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO dispatch_queue (id, booking_id, provider_id, attempt_number, status, distance_km, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		o.ID, o.BookingID, o.ProviderID, o.AttemptNumber, o.Status, o.DistanceKm, o.ExpiresAt, o.CreatedAt)
	return err
}

func (r *dispatchOfferRepository) GetOffered(ctx context.Context, bookingID, providerID string) (*domain.DispatchOffer, error) {
	o := &domain.DispatchOffer{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+offerColumns+` FROM dispatch_queue WHERE booking_id = $1 AND provider_id = $2 AND status = $3`,
		bookingID, providerID, domain.OfferStatusOffered).
		Scan(&o.ID, &o.BookingID, &o.ProviderID, &o.AttemptNumber, &o.Status, &o.DistanceKm, &o.ExpiresAt, &o.RespondedAt, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// Accept resolves the accept side of the accept-vs-timeout race. The two
// conditional reads below are the precondition; every write happens only
// after both hold, inside one transaction, so at most one provider can ever
// claim a booking.
func (r *dispatchOfferRepository) Accept(ctx context.Context, bookingID, providerID string) (*domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var offerID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM dispatch_queue WHERE booking_id = $1 AND provider_id = $2 AND status = $3 AND expires_at > $4 FOR UPDATE`,
		bookingID, providerID, domain.OfferStatusOffered, time.Now()).Scan(&offerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrOfferExpiredOrInvalid
		}
		return nil, err
	}

	b, err := scanBooking(tx.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1 AND status = $2 FOR UPDATE`,
		bookingID, domain.BookingStatusDispatching))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrBookingUnavailable
		}
		return nil, err
	}

	now := time.Now()
	if _, err := tx.ExecContext(ctx,
		`UPDATE dispatch_queue SET status = $1, responded_at = $2 WHERE id = $3`,
		domain.OfferStatusAccepted, now, offerID); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE dispatch_queue SET status = $1 WHERE booking_id = $2 AND provider_id != $3 AND status = $4`,
		domain.OfferStatusSkipped, bookingID, providerID, domain.OfferStatusOffered); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = $1, provider_id = $2 WHERE id = $3`,
		domain.BookingStatusAccepted, providerID, bookingID); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE providers SET total_jobs = total_jobs + 1 WHERE id = $1`, providerID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	b.Status = domain.BookingStatusAccepted
	b.ProviderID = &providerID
	return b, nil
}

func (r *dispatchOfferRepository) markIfOffered(ctx context.Context, bookingID, providerID string, to domain.OfferStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE dispatch_queue SET status = $1, responded_at = $2 WHERE booking_id = $3 AND provider_id = $4 AND status = $5`,
		to, time.Now(), bookingID, providerID, domain.OfferStatusOffered)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *dispatchOfferRepository) MarkDeclinedIfOffered(ctx context.Context, bookingID, providerID string) (bool, error) {
	return r.markIfOffered(ctx, bookingID, providerID, domain.OfferStatusDeclined)
}

func (r *dispatchOfferRepository) MarkTimeoutIfOffered(ctx context.Context, bookingID, providerID string) (bool, error) {
	return r.markIfOffered(ctx, bookingID, providerID, domain.OfferStatusTimeout)
}

func (r *dispatchOfferRepository) TriedProviderIDs(ctx context.Context, bookingID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT provider_id FROM dispatch_queue WHERE booking_id = $1 AND status IN ($2, $3, $4)`,
		bookingID, domain.OfferStatusDeclined, domain.OfferStatusTimeout, domain.OfferStatusSkipped)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *dispatchOfferRepository) MaxAttempt(ctx context.Context, bookingID string) (int32, error) {
	var max int32
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(attempt_number), 0) FROM dispatch_queue WHERE booking_id = $1`, bookingID).Scan(&max)
	return max, err
}

func (r *dispatchOfferRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE dispatch_queue SET status = $1, responded_at = $2 WHERE status = $3 AND expires_at <= $2`,
		domain.OfferStatusTimeout, now, domain.OfferStatusOffered)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
