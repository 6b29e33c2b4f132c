package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/ibndev/citystaff-backend/internal/repository"
)

type settingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) repository.SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) getWhere(ctx context.Context, query string) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

func (r *settingsRepository) GetAll(ctx context.Context) (map[string]string, error) {
	return r.getWhere(ctx, `SELECT key, value FROM app_settings ORDER BY sort_order ASC`)
}

func (r *settingsRepository) GetPublic(ctx context.Context) (map[string]string, error) {
	return r.getWhere(ctx, `SELECT key, value FROM app_settings WHERE is_public = true ORDER BY sort_order ASC`)
}

func (r *settingsRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO app_settings (key, value, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = $3`,
		key, value, time.Now())
	return err
}
