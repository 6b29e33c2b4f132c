package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/ibndev/citystaff-backend/internal/domain"
	"github.com/ibndev/citystaff-backend/internal/repository"
)

type catalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) repository.CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) GetActiveService(ctx context.Context, id string) (*domain.Service, error) {
	s := &domain.Service{}
	var addonsJSON []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, COALESCE(image_url, ''), base_price_cents, COALESCE(addons, '[]'), is_active
		 FROM services WHERE id = $1 AND is_active = true`, id).
		Scan(&s.ID, &s.Name, &s.ImageURL, &s.BasePriceCents, &addonsJSON, &s.IsActive)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(addonsJSON) > 0 {
		if err := json.Unmarshal(addonsJSON, &s.Addons); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (r *catalogRepository) GetActivePromo(ctx context.Context, code string) (*domain.PromoCode, error) {
	p := &domain.PromoCode{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, code, type, value, min_order_cents, max_uses, used_count, is_active, expires_at
		 FROM promo_codes
		 WHERE code = $1 AND is_active = true
		 AND (expires_at IS NULL OR expires_at > $2)
		 AND (max_uses IS NULL OR used_count < max_uses)`,
		strings.ToUpper(code), time.Now()).
		Scan(&p.ID, &p.Code, &p.Type, &p.Value, &p.MinOrderCents, &p.MaxUses, &p.UsedCount, &p.IsActive, &p.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *catalogRepository) IncrementPromoUse(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE promo_codes SET used_count = used_count + 1 WHERE id = $1`, id)
	return err
}
