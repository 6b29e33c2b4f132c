package domain

import "time"

type User struct {
	ID                 string    `json:"id"`
	FullName           string    `json:"full_name"`
	Phone              string    `json:"phone"`
	Email              string    `json:"email,omitempty"`
	AvatarURL          string    `json:"avatar_url,omitempty"`
	PushToken          string    `json:"-"`
	WalletBalanceCents int64     `json:"wallet_balance_cents"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
