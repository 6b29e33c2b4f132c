package domain

import "time"

type Provider struct {
	ID        string   `json:"id"`
	FullName  string   `json:"full_name"`
	Phone     string   `json:"phone"`
	Email     string   `json:"email,omitempty"`
	AvatarURL string   `json:"avatar_url,omitempty"`
	Bio       string   `json:"bio,omitempty"`
	PushToken string   `json:"-"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	IsOnline    bool `json:"is_online"`
	IsAvailable bool `json:"is_available"`
	IsVerified  bool `json:"is_verified"`
	IsActive    bool `json:"is_active"`

	Rating      float64 `json:"rating"`
	RatingCount int32   `json:"rating_count"`

	WalletBalanceCents int64 `json:"wallet_balance_cents"`
	TotalEarningsCents int64 `json:"total_earnings_cents"`
	TotalJobs          int32 `json:"total_jobs"`
	CompletedJobs      int32 `json:"completed_jobs"`

	BankName        string `json:"bank_name,omitempty"`
	BankAccountNo   string `json:"bank_account_no,omitempty"`
	BankAccountName string `json:"bank_account_name,omitempty"`
	BankCode        string `json:"bank_code,omitempty"`

	ServiceIDs []string `json:"service_ids,omitempty"`

	LastSeen  *time.Time `json:"last_seen,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Location is a single live-position sample pushed by a provider.
type Location struct {
	ProviderID string    `json:"provider_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Heading    float64   `json:"heading"`
	Speed      float64   `json:"speed"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// EarningsSummary aggregates a provider's completed-job payouts.
type EarningsSummary struct {
	TotalCompleted   int32 `json:"total_completed"`
	TotalEarnedCents int64 `json:"total_earned_cents"`
	ThisMonthCents   int64 `json:"this_month_cents"`
	ThisWeekCents    int64 `json:"this_week_cents"`
}
