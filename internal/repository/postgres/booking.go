package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/ibndev/citystaff-backend/internal/domain"
	"github.com/ibndev/citystaff-backend/internal/repository"
)

const bookingColumns = `id, booking_ref, user_id, service_id, provider_id, address, latitude, longitude, scheduled_at,
	base_price_cents, addons_price_cents, discount_cents, tax_cents, total_price_cents, platform_fee_cents, provider_payout_cents,
	selected_addons, COALESCE(notes, ''), COALESCE(promo_code, ''), payment_method, payment_status, status,
	COALESCE(cancel_reason, ''), cancelled_by, rating, COALESCE(review, ''), created_at, started_at, completed_at, cancelled_at, rated_at`

type bookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) repository.BookingRepository {
	return &bookingRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	b := &domain.Booking{}
	var addons pq.StringArray
	var cancelledBy sql.NullString
	err := row.Scan(
		&b.ID, &b.BookingRef, &b.UserID, &b.ServiceID, &b.ProviderID, &b.Address, &b.Latitude, &b.Longitude, &b.ScheduledAt,
		&b.BasePriceCents, &b.AddonsPriceCents, &b.DiscountCents, &b.TaxCents, &b.TotalPriceCents, &b.PlatformFeeCents, &b.ProviderPayoutCents,
		&addons, &b.Notes, &b.PromoCode, &b.PaymentMethod, &b.PaymentStatus, &b.Status,
		&b.CancelReason, &cancelledBy, &b.Rating, &b.Review, &b.CreatedAt, &b.StartedAt, &b.CompletedAt, &b.CancelledAt, &b.RatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.SelectedAddons = addons
	if cancelledBy.Valid {
		actor := domain.CancelActor(cancelledBy.String)
		b.CancelledBy = &actor
	}
	return b, nil
}

func (r *bookingRepository) CreateWithCapture(ctx context.Context, b *domain.Booking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if b.PaymentMethod == domain.PaymentMethodWallet {
		desc := fmt.Sprintf("Payment for booking %s", b.BookingRef)
		if _, err := applyWalletEntry(ctx, tx, domain.OwnerTypeUser, b.UserID,
			domain.DirectionDebit, domain.ReasonBookingPayment, b.TotalPriceCents, desc, b.BookingRef); err != nil {
			return err
		}
		b.PaymentStatus = domain.PaymentStatusPaid
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO bookings (id, booking_ref, user_id, service_id, address, latitude, longitude, scheduled_at,
		 base_price_cents, addons_price_cents, discount_cents, tax_cents, total_price_cents, platform_fee_cents, provider_payout_cents,
		 selected_addons, notes, promo_code, payment_method, payment_status, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`,
		b.ID, b.BookingRef, b.UserID, b.ServiceID, b.Address, b.Latitude, b.Longitude, b.ScheduledAt,
		b.BasePriceCents, b.AddonsPriceCents, b.DiscountCents, b.TaxCents, b.TotalPriceCents, b.PlatformFeeCents, b.ProviderPayoutCents,
		pq.Array(b.SelectedAddons), b.Notes, b.PromoCode, b.PaymentMethod, b.PaymentStatus, b.Status, b.CreatedAt)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *bookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return b, err
}

func (r *bookingRepository) UpdateStatusIf(ctx context.Context, id string, from, to domain.BookingStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET status = $1 WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *bookingRepository) StartJob(ctx context.Context, id, providerID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET status = $1, started_at = $2 WHERE id = $3 AND provider_id = $4 AND status = $5`,
		domain.BookingStatusInProgress, time.Now(), id, providerID, domain.BookingStatusAccepted)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *bookingRepository) CompleteWithPayout(ctx context.Context, id, providerID string) (*domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	b, err := scanBooking(tx.QueryRowContext(ctx,
		`UPDATE bookings SET status = $1, completed_at = $2, payment_status = $3
		 WHERE id = $4 AND provider_id = $5 AND status = $6 RETURNING `+bookingColumns,
		domain.BookingStatusCompleted, time.Now(), domain.PaymentStatusPaid,
		id, providerID, domain.BookingStatusInProgress))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrInvalidTransition
		}
		return nil, err
	}

	desc := fmt.Sprintf("Payout for booking %s", b.BookingRef)
	if _, err := applyWalletEntry(ctx, tx, domain.OwnerTypeProvider, providerID,
		domain.DirectionCredit, domain.ReasonJobPayout, b.ProviderPayoutCents, desc, b.BookingRef); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE providers SET total_earnings_cents = total_earnings_cents + $1, completed_jobs = completed_jobs + 1 WHERE id = $2`,
		b.ProviderPayoutCents, providerID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *bookingRepository) CancelWithRefund(ctx context.Context, id, userID, reason string, actor domain.CancelActor) (*domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	b, err := scanBooking(tx.QueryRowContext(ctx,
		`UPDATE bookings SET status = $1, cancelled_at = $2, cancel_reason = $3, cancelled_by = $4
		 WHERE id = $5 AND user_id = $6 AND status IN ($7, $8, $9) RETURNING `+bookingColumns,
		domain.BookingStatusCancelled, time.Now(), reason, actor, id, userID,
		domain.BookingStatusPending, domain.BookingStatusDispatching, domain.BookingStatusAccepted))
	if err != nil {
		if err == sql.ErrNoRows {
			var status domain.BookingStatus
			lookupErr := tx.QueryRowContext(ctx,
				`SELECT status FROM bookings WHERE id = $1 AND user_id = $2`, id, userID).Scan(&status)
			if lookupErr == sql.ErrNoRows {
				return nil, domain.ErrNotFound
			}
			if lookupErr != nil {
				return nil, lookupErr
			}
			return nil, domain.ErrNotCancellable
		}
		return nil, err
	}

	if b.PaymentMethod == domain.PaymentMethodWallet && b.PaymentStatus == domain.PaymentStatusPaid {
		desc := fmt.Sprintf("Refund for cancelled booking %s", b.BookingRef)
		if _, err := applyWalletEntry(ctx, tx, domain.OwnerTypeUser, b.UserID,
			domain.DirectionCredit, domain.ReasonBookingRefund, b.TotalPriceCents, desc, b.BookingRef); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *bookingRepository) Rate(ctx context.Context, id, userID string, rating int32, review string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var providerID sql.NullString
	err = tx.QueryRowContext(ctx,
		`UPDATE bookings SET rating = $1, review = $2, rated_at = $3
		 WHERE id = $4 AND user_id = $5 AND status = $6 AND rating IS NULL RETURNING provider_id`,
		rating, review, time.Now(), id, userID, domain.BookingStatusCompleted).Scan(&providerID)
	if err != nil {
		if err == sql.ErrNoRows {
			var existing sql.NullInt32
			lookupErr := tx.QueryRowContext(ctx,
				`SELECT rating FROM bookings WHERE id = $1 AND user_id = $2`, id, userID).Scan(&existing)
			if lookupErr == sql.ErrNoRows {
				return domain.ErrNotFound
			}
			if lookupErr != nil {
				return lookupErr
			}
			if existing.Valid {
				return domain.ErrAlreadyRated
			}
			return domain.ErrInvalidTransition
		}
		return err
	}

	if providerID.Valid {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO reviews (booking_id, user_id, provider_id, rating, comment)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (booking_id) DO UPDATE SET rating = $4, comment = $5`,
			id, userID, providerID.String, rating, review); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE providers SET
			   rating = (SELECT ROUND(AVG(rating)::numeric, 2) FROM reviews WHERE provider_id = $1),
			   rating_count = (SELECT COUNT(*) FROM reviews WHERE provider_id = $1)
			 WHERE id = $1`, providerID.String); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *bookingRepository) listBy(ctx context.Context, ownerColumn, ownerID string, status domain.BookingStatus, page, pageSize int32) ([]domain.Booking, int32, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize

	where := fmt.Sprintf("WHERE %s = $1", ownerColumn)
	args := []any{ownerID}
	if status != "" {
		where += " AND status = $2"
		args = append(args, status)
	}

	var count int32
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM bookings `+where, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM bookings %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		bookingColumns, where, len(args)+1, len(args)+2)
	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *b)
	}
	return out, count, rows.Err()
}

func (r *bookingRepository) ListByUser(ctx context.Context, userID string, status domain.BookingStatus, page, pageSize int32) ([]domain.Booking, int32, error) {
	return r.listBy(ctx, "user_id", userID, status, page, pageSize)
}

func (r *bookingRepository) ListByProvider(ctx context.Context, providerID string, status domain.BookingStatus, page, pageSize int32) ([]domain.Booking, int32, error) {
	return r.listBy(ctx, "provider_id", providerID, status, page, pageSize)
}

func (r *bookingRepository) ActiveUserIDsForProvider(ctx context.Context, providerID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id FROM bookings WHERE provider_id = $1 AND status IN ($2, $3)`,
		providerID, domain.BookingStatusAccepted, domain.BookingStatusInProgress)
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

func (r *bookingRepository) ReleaseStalledDispatching(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`UPDATE bookings SET status = $1
		 WHERE status = $2
		   AND NOT EXISTS (
		     SELECT 1 FROM dispatch_queue q
		     WHERE q.booking_id = bookings.id AND q.status = $3 AND q.expires_at > $4
		   )
		 RETURNING id`,
		domain.BookingStatusPending, domain.BookingStatusDispatching, domain.OfferStatusOffered, now)
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

func (r *bookingRepository) ListStalePending(ctx context.Context, olderThan time.Duration, limit int32) ([]domain.Booking, error) {
	cutoff := time.Now().Add(-olderThan)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE status = $1 AND created_at < $2 ORDER BY created_at ASC LIMIT $3`,
		domain.BookingStatusPending, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}
