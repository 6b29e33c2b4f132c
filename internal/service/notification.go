package service

import (
	"context"

	"github.com/ibndev/citystaff-backend/internal/domain"
	"github.com/ibndev/citystaff-backend/internal/logger"
	"github.com/ibndev/citystaff-backend/internal/repository"
)

type notificationService struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	providers     repository.ProviderRepository
	push          PushSender
	realtime      Publisher
}

// NewNotificationService wires the delivery fan-out. push may be nil when
// no FCM credentials are configured; stored notifications and realtime
// events still flow.
func NewNotificationService(
	notifications repository.NotificationRepository,
	users repository.UserRepository,
	providers repository.ProviderRepository,
	push PushSender,
	realtime Publisher,
) NotificationService {
	return &notificationService{
		notifications: notifications,
		users:         users,
		providers:     providers,
		push:          push,
		realtime:      realtime,
	}
}

func (s *notificationService) Notify(ctx context.Context, rt domain.RecipientType, recipientID string, payload domain.NotificationPayload) {
	n := &domain.Notification{
		RecipientType: rt,
		RecipientID:   recipientID,
		Title:         payload.Title,
		Body:          payload.Body,
		Type:          payload.Type,
		Data:          payload.Data,
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		logger.Error("notification not stored", "recipient", recipientID, "type", payload.Type, "error", err)
	}

	if s.push != nil {
		if token := s.pushToken(ctx, rt, recipientID); token != "" {
			if err := s.push.Send(ctx, token, payload); err != nil {
				logger.Warn("push delivery failed", "recipient", recipientID, "type", payload.Type, "error", err)
			}
		}
	}

	channel := userChannel(recipientID)
	if rt == domain.RecipientProvider {
		channel = providerChannel(recipientID)
	}
	s.realtime.Publish(channel, "notification", payload)
}

func (s *notificationService) pushToken(ctx context.Context, rt domain.RecipientType, recipientID string) string {
	if rt == domain.RecipientProvider {
		p, err := s.providers.GetByID(ctx, recipientID)
		if err != nil {
			logger.Debug("push token lookup failed", "provider_id", recipientID, "error", err)
			return ""
		}
		return p.PushToken
	}
	u, err := s.users.GetByID(ctx, recipientID)
	if err != nil {
		logger.Debug("push token lookup failed", "user_id", recipientID, "error", err)
		return ""
	}
	return u.PushToken
}

func (s *notificationService) List(ctx context.Context, rt domain.RecipientType, recipientID string, page, pageSize int32) ([]domain.Notification, int32, error) {
	return s.notifications.List(ctx, rt, recipientID, page, pageSize)
}

func (s *notificationService) MarkAsRead(ctx context.Context, id string, rt domain.RecipientType, recipientID string) error {
	return s.notifications.MarkAsRead(ctx, id, rt, recipientID)
}
