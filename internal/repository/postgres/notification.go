package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ibndev/citystaff-backend/internal/domain"
	"github.com/ibndev/citystaff-backend/internal/repository"
)

type notificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) repository.NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	data, err := json.Marshal(n.Data)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO notifications (id, recipient_type, recipient_id, title, body, type, data, is_read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8)`,
		n.ID, n.RecipientType, n.RecipientID, n.Title, n.Body, n.Type, data, n.CreatedAt)
	return err
}

func (r *notificationRepository) List(ctx context.Context, rt domain.RecipientType, recipientID string, page, pageSize int32) ([]domain.Notification, int32, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize

	var count int32
	if err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM notifications WHERE recipient_type = $1 AND recipient_id = $2`,
		rt, recipientID).Scan(&count); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, recipient_type, recipient_id, title, body, type, COALESCE(data, '{}'), is_read, created_at
		 FROM notifications WHERE recipient_type = $1 AND recipient_id = $2
		 ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		rt, recipientID, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var data []byte
		if err := rows.Scan(&n.ID, &n.RecipientType, &n.RecipientID, &n.Title, &n.Body, &n.Type, &data, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, 0, err
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &n.Data); err != nil {
				return nil, 0, err
			}
		}
		out = append(out, n)
	}
	return out, count, rows.Err()
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, id string, rt domain.RecipientType, recipientID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = true WHERE id = $1 AND recipient_type = $2 AND recipient_id = $3`,
		id, rt, recipientID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return err
}
