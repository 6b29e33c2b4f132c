package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/ibndev/citystaff-backend/internal/domain"
	"github.com/ibndev/citystaff-backend/internal/repository"
)

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u := &domain.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, full_name, phone, COALESCE(email, ''), COALESCE(avatar_url, ''), COALESCE(push_token, ''),
		        wallet_balance_cents, created_at, updated_at
		 FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.FullName, &u.Phone, &u.Email, &u.AvatarURL, &u.PushToken,
			&u.WalletBalanceCents, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *userRepository) SetPushToken(ctx context.Context, id, token string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET push_token = $1, updated_at = $2 WHERE id = $3`, token, time.Now(), id)
	return err
}
