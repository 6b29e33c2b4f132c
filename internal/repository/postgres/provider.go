package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/ibndev/citystaff-backend/internal/domain"
	"github.com/ibndev/citystaff-backend/internal/geo"
	"github.com/ibndev/citystaff-backend/internal/repository"
)

type providerRepository struct {
	db *sql.DB
}

func NewProviderRepository(db *sql.DB) repository.ProviderRepository {
	return &providerRepository{db: db}
}

func (r *providerRepository) GetByID(ctx context.Context, id string) (*domain.Provider, error) {
	p := &domain.Provider{}
	var serviceIDs pq.StringArray
	err := r.db.QueryRowContext(ctx,
		`SELECT p.id, p.full_name, p.phone, COALESCE(p.email, ''), COALESCE(p.avatar_url, ''), COALESCE(p.bio, ''), COALESCE(p.push_token, ''),
		        p.latitude, p.longitude, p.is_online, p.is_available, p.is_verified, p.is_active,
		        p.rating, p.rating_count, p.wallet_balance_cents, p.total_earnings_cents, p.total_jobs, p.completed_jobs,
		        COALESCE(p.bank_name, ''), COALESCE(p.bank_account_no, ''), COALESCE(p.bank_account_name, ''), COALESCE(p.bank_code, ''),
		        COALESCE(ARRAY_AGG(ps.service_id) FILTER (WHERE ps.service_id IS NOT NULL), '{}'),
		        p.last_seen, p.created_at, p.updated_at
		 FROM providers p
		 LEFT JOIN provider_services ps ON p.id = ps.provider_id
		 WHERE p.id = $1
		 GROUP BY p.id`, id).
		Scan(&p.ID, &p.FullName, &p.Phone, &p.Email, &p.AvatarURL, &p.Bio, &p.PushToken,
			&p.Latitude, &p.Longitude, &p.IsOnline, &p.IsAvailable, &p.IsVerified, &p.IsActive,
			&p.Rating, &p.RatingCount, &p.WalletBalanceCents, &p.TotalEarningsCents, &p.TotalJobs, &p.CompletedJobs,
			&p.BankName, &p.BankAccountNo, &p.BankAccountName, &p.BankCode,
			&serviceIDs, &p.LastSeen, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.ServiceIDs = serviceIDs
	return p, nil
}

func (r *providerRepository) FindCandidates(ctx context.Context, serviceID string, excludeIDs []string) ([]geo.Candidate, error) {
	query := `SELECT DISTINCT p.id, p.full_name, COALESCE(p.push_token, ''), p.latitude, p.longitude, p.rating
	          FROM providers p
	          INNER JOIN provider_services ps ON p.id = ps.provider_id
	          WHERE ps.service_id = $1 AND p.is_online = true AND p.is_available = true
	          AND p.is_verified = true AND p.is_active = true
	          AND p.latitude IS NOT NULL AND p.longitude IS NOT NULL`
	args := []any{serviceID}
	if len(excludeIDs) > 0 {
		query += ` AND p.id != ALL($2)`
		args = append(args, pq.Array(excludeIDs))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []geo.Candidate
	for rows.Next() {
		var c geo.Candidate
		if err := rows.Scan(&c.ProviderID, &c.FullName, &c.PushToken, &c.Latitude, &c.Longitude, &c.Rating); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *providerRepository) UpdateProfile(ctx context.Context, p *domain.Provider) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE providers SET
		   full_name = COALESCE(NULLIF($1, ''), full_name),
		   email = COALESCE(NULLIF($2, ''), email),
		   bio = COALESCE(NULLIF($3, ''), bio),
		   avatar_url = COALESCE(NULLIF($4, ''), avatar_url),
		   bank_name = COALESCE(NULLIF($5, ''), bank_name),
		   bank_account_no = COALESCE(NULLIF($6, ''), bank_account_no),
		   bank_account_name = COALESCE(NULLIF($7, ''), bank_account_name),
		   bank_code = COALESCE(NULLIF($8, ''), bank_code),
		   push_token = COALESCE(NULLIF($9, ''), push_token),
		   updated_at = $10
		 WHERE id = $11`,
		p.FullName, p.Email, p.Bio, p.AvatarURL,
		p.BankName, p.BankAccountNo, p.BankAccountName, p.BankCode,
		p.PushToken, time.Now(), p.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return err
}

func (r *providerRepository) SetAvailability(ctx context.Context, id string, available bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE providers SET is_available = $1, updated_at = $2 WHERE id = $3`, available, time.Now(), id)
	return err
}

func (r *providerRepository) SetOnline(ctx context.Context, id string, online bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE providers SET is_online = $1, last_seen = $2 WHERE id = $3`, online, time.Now(), id)
	return err
}

func (r *providerRepository) UpdateLocation(ctx context.Context, loc *domain.Location) error {
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO provider_locations (provider_id, latitude, longitude, heading, speed, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (provider_id) DO UPDATE SET latitude = $2, longitude = $3, heading = $4, speed = $5, updated_at = $6`,
		loc.ProviderID, loc.Latitude, loc.Longitude, loc.Heading, loc.Speed, loc.UpdatedAt); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE providers SET latitude = $1, longitude = $2, is_online = true, last_seen = $3 WHERE id = $4`,
		loc.Latitude, loc.Longitude, loc.UpdatedAt, loc.ProviderID)
	return err
}

func (r *providerRepository) ReplaceServices(ctx context.Context, providerID string, serviceIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM provider_services WHERE provider_id = $1`, providerID); err != nil {
		return err
	}
	for _, sid := range serviceIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO provider_services (provider_id, service_id) VALUES ($1, $2)`, providerID, sid); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *providerRepository) Earnings(ctx context.Context, providerID string) (*domain.EarningsSummary, error) {
	s := &domain.EarningsSummary{}
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FILTER (WHERE status = 'completed'),
		        COALESCE(SUM(provider_payout_cents) FILTER (WHERE status = 'completed'), 0),
		        COALESCE(SUM(provider_payout_cents) FILTER (WHERE status = 'completed' AND completed_at >= NOW() - INTERVAL '30 days'), 0),
		        COALESCE(SUM(provider_payout_cents) FILTER (WHERE status = 'completed' AND completed_at >= NOW() - INTERVAL '7 days'), 0)
		 FROM bookings WHERE provider_id = $1`, providerID).
		Scan(&s.TotalCompleted, &s.TotalEarnedCents, &s.ThisMonthCents, &s.ThisWeekCents)
	if err != nil {
		return nil, err
	}
	return s, nil
}
