package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ibndev/citystaff-backend/internal/domain"
	"github.com/ibndev/citystaff-backend/internal/security"
	"github.com/ibndev/citystaff-backend/internal/service"
)

type NotificationHandler struct {
	notifications service.NotificationService
}

func NewNotificationHandler(notifications service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func recipientType(role security.Role) domain.RecipientType {
	if role == security.RoleProvider {
		return domain.RecipientProvider
	}
	return domain.RecipientUser
}

type notificationListResponse struct {
	Notifications []domain.Notification `json:"notifications"`
	Total         int32                 `json:"total"`
	Page          int32                 `json:"page"`
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	page, pageSize := pagination(r)
	items, total, err := h.notifications.List(r.Context(), recipientType(claims.Role), claims.SubjectID(), page, pageSize)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, notificationListResponse{Notifications: items, Total: total, Page: page})
}

func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	if err := h.notifications.MarkAsRead(r.Context(), mux.Vars(r)["id"], recipientType(claims.Role), claims.SubjectID()); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "read"})
}
