package domain

import "time"

type Addon struct {
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
}

type Service struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	ImageURL       string  `json:"image_url,omitempty"`
	BasePriceCents int64   `json:"base_price_cents"`
	Addons         []Addon `json:"addons,omitempty"`
	IsActive       bool    `json:"is_active"`
}

type PromoType string

const (
	PromoTypePercent PromoType = "percent"
	PromoTypeFixed   PromoType = "fixed"
)

type PromoCode struct {
	ID            string     `json:"id"`
	Code          string     `json:"code"`
	Type          PromoType  `json:"type"`
	Value         float64    `json:"value"`
	MinOrderCents int64      `json:"min_order_cents"`
	MaxUses       *int32     `json:"max_uses,omitempty"`
	UsedCount     int32      `json:"used_count"`
	IsActive      bool       `json:"is_active"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// DiscountCents returns the discount this promo grants on the given
// subtotal, zero when the minimum order is not met. A percent promo scales
// with the subtotal; a fixed promo is capped at the subtotal.
func (p *PromoCode) DiscountCents(subtotalCents int64) int64 {
	if subtotalCents < p.MinOrderCents {
		return 0
	}
	if p.Type == PromoTypePercent {
		return int64(float64(subtotalCents) * p.Value / 100)
	}
	d := int64(p.Value)
	if d > subtotalCents {
		d = subtotalCents
	}
	return d
}
